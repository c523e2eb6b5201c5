package learning

import "github.com/p-n-ai/pai-progress/internal/progress"

// LessonView is the per-user state of a lesson as returned to clients.
type LessonView struct {
	LessonID        string               `json:"lesson_id"`
	Title           string               `json:"title"`
	DurationSeconds int                  `json:"duration_seconds"`
	WatchedSeconds  int                  `json:"watched_seconds"`
	Percentage      int                  `json:"percentage"`
	State           progress.LessonState `json:"state"`
	Completed       bool                 `json:"completed"`
	HasQuiz         bool                 `json:"has_quiz"`
	QuizPassed      bool                 `json:"quiz_passed"`
	TrulyCompleted  bool                 `json:"truly_completed"`
	LastBlockID     string               `json:"last_block_id,omitempty"`
}

// NewLessonView builds the view of a lesson.
func NewLessonView(l progress.Lesson) LessonView {
	return LessonView{
		LessonID:        l.ID,
		Title:           l.Title,
		DurationSeconds: l.DurationSeconds,
		WatchedSeconds:  l.WatchedSeconds,
		Percentage:      l.ProgressPercentage(),
		State:           l.State(),
		Completed:       l.Completed,
		HasQuiz:         l.HasQuiz,
		QuizPassed:      l.QuizPassed,
		TrulyCompleted:  l.IsTrulyCompleted(),
		LastBlockID:     l.LastBlockID,
	}
}

// ModuleView summarizes a module.
type ModuleView struct {
	ModuleID         string       `json:"module_id"`
	Title            string       `json:"title"`
	Percentage       int          `json:"percentage"`
	CompletedLessons int          `json:"completed_lessons"`
	Completed        bool         `json:"completed"`
	Lessons          []LessonView `json:"lessons"`
}

// CourseView summarizes a course for one user.
type CourseView struct {
	CourseID         string       `json:"course_id"`
	Title            string       `json:"title"`
	Percentage       int          `json:"percentage"`
	CompletedLessons int          `json:"completed_lessons"`
	TotalLessons     int          `json:"total_lessons"`
	Completed        bool         `json:"completed"`
	Modules          []ModuleView `json:"modules"`
}

// NewCourseView builds the view of a course with merged progress.
func NewCourseView(c progress.Course) CourseView {
	view := CourseView{
		CourseID:         c.ID,
		Title:            c.Title,
		Percentage:       c.ProgressPercentage(),
		CompletedLessons: c.CompletedLessons(),
		TotalLessons:     c.TotalLessons(),
		Completed:        c.IsFullyCompleted(),
		Modules:          make([]ModuleView, 0, len(c.Modules)),
	}
	for _, m := range c.Modules {
		mv := ModuleView{
			ModuleID:         m.ID,
			Title:            m.Title,
			Percentage:       m.ProgressPercentage(),
			CompletedLessons: m.CompletedLessons(),
			Completed:        m.IsFullyCompleted(),
			Lessons:          make([]LessonView, 0, len(m.Lessons)),
		}
		for _, l := range m.Lessons {
			mv.Lessons = append(mv.Lessons, NewLessonView(l))
		}
		view.Modules = append(view.Modules, mv)
	}
	return view
}
