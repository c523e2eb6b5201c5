package learning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

// EngineConfig holds dependencies for the progress engine.
type EngineConfig struct {
	Repository Repository
	Clock      func() time.Time // unlock timestamps (default time.Now)
}

// Engine records lesson progress and awards completion rewards.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// Outcome is the result of one progress update.
type Outcome struct {
	User     progress.User
	Unlocked []progress.Achievement
	// Applied is false when the completion had already been rewarded and the
	// gamification write was skipped.
	Applied bool
}

// NewEngine creates a new progress engine.
func NewEngine(cfg EngineConfig) *Engine {
	repo := cfg.Repository
	if repo == nil {
		repo = NewMemoryStore(nil)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{repo: repo, now: clock}
}

// UpdateUserProgress persists the lesson's technical progress and, when the
// lesson just became completed, awards the completion rewards and persists
// the new gamification state with it. The input user is not modified; the
// updated user is returned in the Outcome together with the achievements
// unlocked by this call, in unlock order.
func (e *Engine) UpdateUserProgress(ctx context.Context, user progress.User, lesson progress.Lesson, course progress.Course, becameCompleted bool, lastBlockID string) (Outcome, error) {
	lesson = lesson.WithLastBlock(lastBlockID)

	event := ProgressEvent{
		UserID:         user.ID,
		LessonID:       lesson.ID,
		WatchedSeconds: lesson.WatchedSeconds,
		Completed:      lesson.Completed,
		LastBlockID:    lastBlockID,
		OccurredAt:     e.now(),
	}

	outcome := Outcome{User: user, Unlocked: []progress.Achievement{}}

	if becameCompleted {
		updated, unlocked := progress.ApplyCompletion(user, lesson, course, event.OccurredAt)
		event.Gamification = &GamificationDelta{
			XP:             updated.XP(),
			Level:          updated.Level(),
			Achievements:   updated.Achievements(),
			IdempotencyKey: CompletionKey(user.ID, lesson.ID),
		}
		outcome.User = updated
		outcome.Unlocked = unlocked
	}

	applied, err := e.write(ctx, event)
	if err != nil {
		return Outcome{}, err
	}

	if event.Gamification != nil && !applied {
		slog.Warn("completion already rewarded, skipping gamification",
			"user_id", user.ID,
			"lesson_id", lesson.ID,
		)
		return Outcome{User: user, Unlocked: []progress.Achievement{}}, nil
	}

	outcome.Applied = event.Gamification != nil
	if outcome.Applied {
		slog.Info("lesson completed",
			"user_id", user.ID,
			"lesson_id", lesson.ID,
			"xp", outcome.User.XP(),
			"level", outcome.User.Level(),
			"unlocked", len(outcome.Unlocked),
		)
	}
	return outcome, nil
}

// write persists the event atomically when the repository supports it and
// falls back to the two sequential writes otherwise.
func (e *Engine) write(ctx context.Context, event ProgressEvent) (bool, error) {
	if applier, ok := e.repo.(EventApplier); ok {
		applied, err := applier.ApplyProgressEvent(ctx, event)
		if err != nil {
			return false, fmt.Errorf("apply progress event: %w", err)
		}
		return applied, nil
	}

	if err := e.repo.UpdateLessonProgress(ctx, event.UserID, event.LessonID, event.WatchedSeconds, event.Completed, event.LastBlockID); err != nil {
		return false, fmt.Errorf("update lesson progress: %w", err)
	}
	if g := event.Gamification; g != nil {
		if err := e.repo.UpdateUserGamification(ctx, event.UserID, g.XP, g.Level, g.Achievements); err != nil {
			return false, fmt.Errorf("update user gamification: %w", err)
		}
		return true, nil
	}
	return false, nil
}
