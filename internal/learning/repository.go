// Package learning persists lesson progress and turns completions into XP and
// achievements. The Engine applies the reward rules of package progress and
// writes the result; the Service is the use-case layer the HTTP API calls.
package learning

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

// Repository is the persistence contract of the progress engine.
type Repository interface {
	// UpdateLessonProgress saves watched time, the completion flag and the
	// last read block. An empty lastBlockID keeps the stored marker.
	UpdateLessonProgress(ctx context.Context, userID, lessonID string, watchedSeconds int, completed bool, lastBlockID string) error
	// UpdateUserGamification saves the user's XP, level and full achievement list.
	UpdateUserGamification(ctx context.Context, userID string, xp, level int, achievements []progress.Achievement) error
	GetUserByID(ctx context.Context, userID string) (progress.User, error)
	// GetCourseByID returns the course structure with the user's lesson
	// progress merged in.
	GetCourseByID(ctx context.Context, courseID, userID string) (progress.Course, error)
	// SaveUser inserts a new user with its gamification state. For an
	// existing user only name, email and role are written; XP, level and
	// achievements change through gamification writes alone.
	SaveUser(ctx context.Context, user progress.User) error
	// RecordQuizAttempt stores a graded attempt, numbering it when Attempt is
	// zero, and marks the lesson quiz as passed when the attempt passed.
	RecordQuizAttempt(ctx context.Context, attempt QuizAttempt) (QuizAttempt, error)
}

// EventApplier is implemented by repositories that can write a whole
// progress event atomically. The Engine prefers it over the two separate
// Repository writes.
type EventApplier interface {
	// ApplyProgressEvent writes the technical progress and, when present, the
	// gamification delta in one unit. applied is false when the delta's
	// idempotency key was already recorded; the technical part is written
	// regardless.
	ApplyProgressEvent(ctx context.Context, event ProgressEvent) (applied bool, err error)
}

// CourseSource provides course structure without per-user state.
type CourseSource interface {
	Course(id string) (progress.Course, bool)
}

// StaticCourses is a CourseSource backed by a map, keyed by course id.
type StaticCourses map[string]progress.Course

// Course implements CourseSource.
func (s StaticCourses) Course(id string) (progress.Course, bool) {
	c, ok := s[id]
	return c, ok
}

// ProgressEvent is one lesson progress report and the rewards it produced.
type ProgressEvent struct {
	UserID         string
	LessonID       string
	WatchedSeconds int
	Completed      bool
	LastBlockID    string
	Gamification   *GamificationDelta
	OccurredAt     time.Time
}

// GamificationDelta is the user state after a completion was rewarded.
type GamificationDelta struct {
	XP             int
	Level          int
	Achievements   []progress.Achievement
	IdempotencyKey string
}

// CompletionKey identifies the reward of one lesson completion for one user.
func CompletionKey(userID, lessonID string) string {
	sum := blake2b.Sum256([]byte("lesson-completed|" + userID + "|" + lessonID))
	return hex.EncodeToString(sum[:])
}

// QuizAttempt is one graded quiz submission.
type QuizAttempt struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	LessonID  string              `json:"lesson_id"`
	QuizID    string              `json:"quiz_id"`
	Attempt   int                 `json:"attempt"`
	Result    progress.QuizResult `json:"result"`
	Answers   map[string]string   `json:"answers"`
	CreatedAt time.Time           `json:"created_at"`
}

// Validate checks the attempt before it is stored.
func (a QuizAttempt) Validate() error {
	if a.UserID == "" || a.LessonID == "" || a.QuizID == "" {
		return progress.Invalid("QuizAttempt.Validate", "user, lesson and quiz ids are required")
	}
	if a.Attempt < 0 {
		return progress.Invalid("QuizAttempt.Validate", "attempt number must be at least 1")
	}
	if a.Result.Score < 0 || a.Result.Score > 100 {
		return progress.Invalid("QuizAttempt.Validate", fmt.Sprintf("score %.2f out of range", a.Result.Score))
	}
	return nil
}
