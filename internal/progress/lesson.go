// Package progress holds the lesson completion, XP and achievement rules of the
// learning platform. It has no I/O and no third-party dependencies; every
// operation returns a new value instead of mutating shared state.
package progress

import "fmt"

// CompletionThresholdPercent is the watched share at which a timed lesson completes.
const CompletionThresholdPercent = 90

// LessonState is the position of a lesson in its progress state machine.
type LessonState string

const (
	StateNotStarted LessonState = "not_started"
	StateInProgress LessonState = "in_progress"
	StateCompleted  LessonState = "completed"
)

// Lesson is a single unit of content with per-user watch progress.
type Lesson struct {
	ID              string
	Title           string
	DurationSeconds int // 0 means untimed/demo content
	WatchedSeconds  int
	Completed       bool
	HasQuiz         bool
	QuizPassed      bool
	LastBlockID     string
}

// LessonParams holds the persisted state a lesson is built from.
type LessonParams struct {
	ID              string
	Title           string
	DurationSeconds int
	WatchedSeconds  int
	Completed       bool
	HasQuiz         bool
	QuizPassed      bool
	LastBlockID     string
}

// NewLesson validates params and clamps watched time to the duration.
func NewLesson(p LessonParams) (Lesson, error) {
	if p.ID == "" {
		return Lesson{}, Invalid("NewLesson", "lesson id is required")
	}
	if p.DurationSeconds < 0 {
		return Lesson{}, ErrNegativeDuration
	}
	if p.WatchedSeconds < 0 {
		return Lesson{}, ErrNegativeWatchTime
	}

	watched := p.WatchedSeconds
	if p.DurationSeconds > 0 && watched > p.DurationSeconds {
		watched = p.DurationSeconds
	}

	return Lesson{
		ID:              p.ID,
		Title:           p.Title,
		DurationSeconds: p.DurationSeconds,
		WatchedSeconds:  watched,
		Completed:       p.Completed,
		HasQuiz:         p.HasQuiz,
		QuizPassed:      p.HasQuiz && p.QuizPassed,
		LastBlockID:     p.LastBlockID,
	}, nil
}

// UpdateProgress applies a reported watched time and returns the updated
// lesson. becameCompleted is true only on the call that first moves the
// lesson into the completed state. On error the receiver is returned as is.
func (l Lesson) UpdateProgress(watched int) (updated Lesson, becameCompleted bool, err error) {
	if watched < 0 {
		return l, false, ErrNegativeWatchTime
	}

	wasCompleted := l.Completed
	updated = l

	if l.DurationSeconds <= 0 {
		// Untimed content counts as acknowledged on the first positive report.
		updated.WatchedSeconds = watched
		if watched > 0 {
			updated.Completed = true
		}
		return updated, !wasCompleted && updated.Completed, nil
	}

	updated.WatchedSeconds = min(watched, l.DurationSeconds)
	if updated.WatchedSeconds*100 >= CompletionThresholdPercent*l.DurationSeconds {
		updated.Completed = true
	}

	return updated, !wasCompleted && updated.Completed, nil
}

// State derives the state machine position from the stored flags.
func (l Lesson) State() LessonState {
	switch {
	case l.Completed:
		return StateCompleted
	case l.WatchedSeconds > 0:
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// ProgressPercentage is the rounded watched share used by display and gating alike.
func (l Lesson) ProgressPercentage() int {
	if l.DurationSeconds <= 0 {
		if l.WatchedSeconds > 0 {
			return 100
		}
		return 0
	}
	return roundPercent(l.WatchedSeconds, l.DurationSeconds)
}

// IsTrulyCompleted reports whether the learner may move on: the lesson is
// completed and any attached quiz has been passed.
func (l Lesson) IsTrulyCompleted() bool {
	return l.Completed && (!l.HasQuiz || l.QuizPassed)
}

// WithQuizResult records a quiz attempt outcome. A passed quiz stays passed.
func (l Lesson) WithQuizResult(passed bool) Lesson {
	l.HasQuiz = true
	l.QuizPassed = l.QuizPassed || passed
	return l
}

// WithLastBlock records the last text block the learner read.
func (l Lesson) WithLastBlock(blockID string) Lesson {
	if blockID != "" {
		l.LastBlockID = blockID
	}
	return l
}

func (l Lesson) String() string {
	return fmt.Sprintf("Lesson{ID: %s, Watched: %d/%d, State: %s}",
		l.ID, l.WatchedSeconds, l.DurationSeconds, l.State())
}

// roundPercent returns round(part/total*100) with halves rounded up.
func roundPercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (part*200 + total) / (2 * total)
}
