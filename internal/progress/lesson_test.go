package progress_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

func newLesson(t *testing.T, duration, watched int) progress.Lesson {
	t.Helper()
	l, err := progress.NewLesson(progress.LessonParams{
		ID:              "l1",
		Title:           "Lesson 1",
		DurationSeconds: duration,
		WatchedSeconds:  watched,
	})
	if err != nil {
		t.Fatalf("NewLesson() error = %v", err)
	}
	return l
}

func TestLesson_UpdateProgress_CompletesAtThresholdOnce(t *testing.T) {
	l := newLesson(t, 100, 0)

	steps := []struct {
		watched       int
		wantBecame    bool
		wantCompleted bool
	}{
		{89, false, false},
		{90, true, true},
		{95, false, true},
		{100, false, true},
		{10, false, true},
	}

	for _, s := range steps {
		var became bool
		var err error
		l, became, err = l.UpdateProgress(s.watched)
		if err != nil {
			t.Fatalf("UpdateProgress(%d) error = %v", s.watched, err)
		}
		if became != s.wantBecame {
			t.Errorf("UpdateProgress(%d) became = %v, want %v", s.watched, became, s.wantBecame)
		}
		if l.Completed != s.wantCompleted {
			t.Errorf("after UpdateProgress(%d) Completed = %v, want %v", s.watched, l.Completed, s.wantCompleted)
		}
	}
}

func TestLesson_UpdateProgress_UntimedContent(t *testing.T) {
	l := newLesson(t, 0, 0)

	l, became, err := l.UpdateProgress(0)
	if err != nil {
		t.Fatalf("UpdateProgress(0) error = %v", err)
	}
	if became || l.Completed {
		t.Errorf("UpdateProgress(0) = (completed %v, became %v), want both false", l.Completed, became)
	}

	l, became, err = l.UpdateProgress(1)
	if err != nil {
		t.Fatalf("UpdateProgress(1) error = %v", err)
	}
	if !became || !l.Completed {
		t.Errorf("UpdateProgress(1) = (completed %v, became %v), want both true", l.Completed, became)
	}
	if got := l.ProgressPercentage(); got != 100 {
		t.Errorf("ProgressPercentage() = %d, want 100", got)
	}
}

func TestLesson_UpdateProgress_RejectsNegative(t *testing.T) {
	l := newLesson(t, 100, 40)

	got, became, err := l.UpdateProgress(-1)
	if !errors.Is(err, progress.ErrNegativeWatchTime) {
		t.Fatalf("UpdateProgress(-1) error = %v, want ErrNegativeWatchTime", err)
	}
	if !progress.IsValidation(err) {
		t.Error("negative watch time should be a validation error")
	}
	if became {
		t.Error("UpdateProgress(-1) should not report a transition")
	}
	if got != l {
		t.Errorf("lesson changed on rejected update: %v -> %v", l, got)
	}
}

func TestLesson_UpdateProgress_ClampsToDuration(t *testing.T) {
	l := newLesson(t, 60, 0)

	l, became, err := l.UpdateProgress(600)
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if !became {
		t.Error("watching past the end should complete the lesson")
	}
	if l.WatchedSeconds != 60 {
		t.Errorf("WatchedSeconds = %d, want 60", l.WatchedSeconds)
	}
}

func TestLesson_UpdateProgress_DoesNotMutateReceiver(t *testing.T) {
	original := newLesson(t, 100, 0)

	updated, _, err := original.UpdateProgress(95)
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if original.Completed || original.WatchedSeconds != 0 {
		t.Errorf("receiver mutated: %v", original)
	}
	if !updated.Completed {
		t.Error("returned lesson should be completed")
	}
}

func TestLesson_ProgressPercentage(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		watched  int
		want     int
	}{
		{"not started", 100, 0, 0},
		{"rounds down", 300, 1, 0},
		{"rounds half up", 200, 1, 1},
		{"two thirds", 3, 2, 67},
		{"full", 100, 100, 100},
		{"untimed unwatched", 0, 0, 0},
		{"untimed watched", 0, 5, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := progress.Lesson{ID: "l", DurationSeconds: tt.duration, WatchedSeconds: tt.watched}
			if got := l.ProgressPercentage(); got != tt.want {
				t.Errorf("ProgressPercentage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLesson_State(t *testing.T) {
	l := newLesson(t, 100, 0)
	if l.State() != progress.StateNotStarted {
		t.Errorf("State() = %s, want not_started", l.State())
	}

	l, _, _ = l.UpdateProgress(10)
	if l.State() != progress.StateInProgress {
		t.Errorf("State() = %s, want in_progress", l.State())
	}

	l, _, _ = l.UpdateProgress(90)
	if l.State() != progress.StateCompleted {
		t.Errorf("State() = %s, want completed", l.State())
	}
}

func TestLesson_IsTrulyCompleted(t *testing.T) {
	l := newLesson(t, 100, 0)
	l, _, _ = l.UpdateProgress(100)

	if !l.IsTrulyCompleted() {
		t.Error("completed lesson without quiz should be truly completed")
	}

	withQuiz := l.WithQuizResult(false)
	if withQuiz.IsTrulyCompleted() {
		t.Error("failed quiz should block moving on")
	}

	passed := withQuiz.WithQuizResult(true)
	if !passed.IsTrulyCompleted() {
		t.Error("passed quiz should allow moving on")
	}

	if !passed.WithQuizResult(false).QuizPassed {
		t.Error("a later failed attempt should not clear a passed quiz")
	}
}

func TestNewLesson_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  progress.LessonParams
		wantErr bool
	}{
		{"valid", progress.LessonParams{ID: "a", DurationSeconds: 10}, false},
		{"missing id", progress.LessonParams{DurationSeconds: 10}, true},
		{"negative duration", progress.LessonParams{ID: "a", DurationSeconds: -1}, true},
		{"negative watched", progress.LessonParams{ID: "a", DurationSeconds: 10, WatchedSeconds: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := progress.NewLesson(tt.params)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLesson() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLesson_ClampsWatched(t *testing.T) {
	l := newLesson(t, 50, 80)
	if l.WatchedSeconds != 50 {
		t.Errorf("WatchedSeconds = %d, want 50", l.WatchedSeconds)
	}
}
