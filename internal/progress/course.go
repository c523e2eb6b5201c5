package progress

// Module is an ordered group of lessons.
type Module struct {
	ID      string
	Title   string
	Lessons []Lesson
}

// IsFullyCompleted is true when the module has lessons and all are completed.
func (m Module) IsFullyCompleted() bool {
	if len(m.Lessons) == 0 {
		return false
	}
	for _, l := range m.Lessons {
		if !l.Completed {
			return false
		}
	}
	return true
}

// CompletedLessons counts completed lessons.
func (m Module) CompletedLessons() int {
	n := 0
	for _, l := range m.Lessons {
		if l.Completed {
			n++
		}
	}
	return n
}

// ProgressPercentage is the rounded share of completed lessons.
func (m Module) ProgressPercentage() int {
	return roundPercent(m.CompletedLessons(), len(m.Lessons))
}

// Lesson finds a lesson by id.
func (m Module) Lesson(id string) (Lesson, bool) {
	for _, l := range m.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

// Course is an ordered group of modules.
type Course struct {
	ID          string
	Title       string
	Description string
	Modules     []Module
}

// IsFullyCompleted is true when the course has modules and all are fully completed.
func (c Course) IsFullyCompleted() bool {
	if len(c.Modules) == 0 {
		return false
	}
	for _, m := range c.Modules {
		if !m.IsFullyCompleted() {
			return false
		}
	}
	return true
}

// TotalLessons counts lessons across modules.
func (c Course) TotalLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// CompletedLessons counts completed lessons across modules.
func (c Course) CompletedLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += m.CompletedLessons()
	}
	return n
}

// ProgressPercentage is the rounded share of completed lessons in the course.
func (c Course) ProgressPercentage() int {
	return roundPercent(c.CompletedLessons(), c.TotalLessons())
}

// ModuleOf returns the module holding the lesson.
func (c Course) ModuleOf(lessonID string) (Module, bool) {
	for _, m := range c.Modules {
		if _, ok := m.Lesson(lessonID); ok {
			return m, true
		}
	}
	return Module{}, false
}

// Lesson finds a lesson anywhere in the course.
func (c Course) Lesson(id string) (Lesson, bool) {
	for _, m := range c.Modules {
		if l, ok := m.Lesson(id); ok {
			return l, true
		}
	}
	return Lesson{}, false
}

// WithLesson returns a copy of the course with the lesson of the same id
// replaced. The receiver's module and lesson slices are not modified.
func (c Course) WithLesson(lesson Lesson) (Course, bool) {
	for mi, m := range c.Modules {
		for li, l := range m.Lessons {
			if l.ID != lesson.ID {
				continue
			}
			lessons := make([]Lesson, len(m.Lessons))
			copy(lessons, m.Lessons)
			lessons[li] = lesson

			modules := make([]Module, len(c.Modules))
			copy(modules, c.Modules)
			modules[mi].Lessons = lessons

			c.Modules = modules
			return c, true
		}
	}
	return c, false
}
