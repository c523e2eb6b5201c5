package progress_test

import (
	"testing"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

func lesson(id string, completed bool) progress.Lesson {
	return progress.Lesson{ID: id, DurationSeconds: 100, Completed: completed}
}

func TestModule_IsFullyCompleted(t *testing.T) {
	tests := []struct {
		name    string
		lessons []progress.Lesson
		want    bool
	}{
		{"empty module", nil, false},
		{"one pending", []progress.Lesson{lesson("a", true), lesson("b", false)}, false},
		{"all done", []progress.Lesson{lesson("a", true), lesson("b", true)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := progress.Module{ID: "m", Lessons: tt.lessons}
			if got := m.IsFullyCompleted(); got != tt.want {
				t.Errorf("IsFullyCompleted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCourse_Progress(t *testing.T) {
	c := progress.Course{
		ID: "c1",
		Modules: []progress.Module{
			{ID: "m1", Lessons: []progress.Lesson{lesson("a", true), lesson("b", true)}},
			{ID: "m2", Lessons: []progress.Lesson{lesson("c", true)}},
		},
	}

	if c.TotalLessons() != 3 {
		t.Errorf("TotalLessons() = %d, want 3", c.TotalLessons())
	}
	if c.CompletedLessons() != 3 || c.ProgressPercentage() != 100 {
		t.Errorf("completed = %d (%d%%), want 3 (100%%)", c.CompletedLessons(), c.ProgressPercentage())
	}
	if !c.IsFullyCompleted() {
		t.Error("course with every module done should be fully completed")
	}

	c.Modules[1].Lessons[0].Completed = false
	if c.IsFullyCompleted() {
		t.Error("course with a pending lesson should not be fully completed")
	}
	if c.ProgressPercentage() != 67 {
		t.Errorf("ProgressPercentage() = %d, want 67", c.ProgressPercentage())
	}
}

func TestCourse_EmptyIsNeverCompleted(t *testing.T) {
	tests := []progress.Course{
		{ID: "no modules"},
		{ID: "empty module", Modules: []progress.Module{{ID: "m"}}},
	}
	for _, c := range tests {
		if c.IsFullyCompleted() {
			t.Errorf("%s: IsFullyCompleted() = true, want false", c.ID)
		}
		if c.ProgressPercentage() != 0 {
			t.Errorf("%s: ProgressPercentage() = %d, want 0", c.ID, c.ProgressPercentage())
		}
	}
}

func TestCourse_ModuleOf(t *testing.T) {
	c := progress.Course{Modules: []progress.Module{
		{ID: "m1", Lessons: []progress.Lesson{lesson("a", false)}},
		{ID: "m2", Lessons: []progress.Lesson{lesson("b", false)}},
	}}

	m, ok := c.ModuleOf("b")
	if !ok || m.ID != "m2" {
		t.Errorf("ModuleOf(b) = %s, %v, want m2, true", m.ID, ok)
	}
	if _, ok := c.ModuleOf("zzz"); ok {
		t.Error("ModuleOf(unknown) should report false")
	}
}

func TestCourse_WithLesson(t *testing.T) {
	c := progress.Course{Modules: []progress.Module{
		{ID: "m1", Lessons: []progress.Lesson{lesson("a", false), lesson("b", true)}},
	}}

	updated, ok := c.WithLesson(lesson("a", true))
	if !ok {
		t.Fatal("WithLesson(a) should find the lesson")
	}
	if !updated.IsFullyCompleted() {
		t.Error("updated course should be fully completed")
	}
	if c.Modules[0].Lessons[0].Completed {
		t.Error("WithLesson modified the original course")
	}

	if _, ok := c.WithLesson(lesson("missing", true)); ok {
		t.Error("WithLesson(missing) should report false")
	}
}
