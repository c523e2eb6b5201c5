package learning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

// ErrRequirementsNotMet rejects a quiz submission before the lesson's
// requirements are satisfied.
var ErrRequirementsNotMet = progress.Invalid("Service.SubmitQuiz", "lesson requirements not met")

// Catalog provides per-lesson configuration.
type Catalog interface {
	Requirements(lessonID string) progress.Requirements
	Quiz(lessonID string) (progress.Quiz, bool)
}

// Locker serializes progress writes on a key. The returned function releases
// the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// ProfileCache caches user snapshots in front of the repository.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (progress.UserSnapshot, bool, error)
	Set(ctx context.Context, snapshot progress.UserSnapshot) error
	Invalidate(ctx context.Context, userID string) error
}

// Notifier delivers unlocked achievements to connected clients.
type Notifier interface {
	NotifyAchievement(ctx context.Context, userID string, achievement progress.Achievement) error
}

// ServiceConfig holds dependencies for the service. Only Repository is
// required in production; the others fall back to in-process defaults.
type ServiceConfig struct {
	Repository Repository
	Engine     *Engine
	Catalog    Catalog
	Locker     Locker
	Profiles   ProfileCache
	Notifier   Notifier
	Events     EventLogger
	Clock      func() time.Time
}

// Service is the use-case layer over the engine and the repository.
type Service struct {
	repo     Repository
	engine   *Engine
	catalog  Catalog
	locker   Locker
	profiles ProfileCache
	notifier Notifier
	events   EventLogger
	now      func() time.Time
}

// NewService creates a new service.
func NewService(cfg ServiceConfig) *Service {
	repo := cfg.Repository
	if repo == nil {
		repo = NewMemoryStore(nil)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	engine := cfg.Engine
	if engine == nil {
		engine = NewEngine(EngineConfig{Repository: repo, Clock: clock})
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = defaultCatalog{}
	}
	locker := cfg.Locker
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		catalog:  catalog,
		locker:   locker,
		profiles: cfg.Profiles,
		notifier: cfg.Notifier,
		events:   events,
		now:      clock,
	}
}

// WatchInput is a watched-time report from the player.
type WatchInput struct {
	UserID         string `json:"user_id"`
	CourseID       string `json:"course_id"`
	LessonID       string `json:"lesson_id"`
	WatchedSeconds int    `json:"watched_seconds"`
	LastBlockID    string `json:"last_block_id,omitempty"`
}

// WatchResult is the state after a watched-time report.
type WatchResult struct {
	Lesson          LessonView             `json:"lesson"`
	CourseProgress  int                    `json:"course_progress"`
	BecameCompleted bool                   `json:"became_completed"`
	User            progress.UserSnapshot  `json:"user"`
	Unlocked        []progress.Achievement `json:"unlocked"`
}

// RecordWatchTime applies a watched-time report. Reports for the same user
// are serialized so a completion is rewarded at most once.
func (s *Service) RecordWatchTime(ctx context.Context, in WatchInput) (WatchResult, error) {
	if in.UserID == "" || in.CourseID == "" || in.LessonID == "" {
		return WatchResult{}, progress.Invalid("Service.RecordWatchTime", "user_id, course_id and lesson_id are required")
	}
	if in.WatchedSeconds < 0 {
		return WatchResult{}, progress.ErrNegativeWatchTime
	}

	unlock, err := s.locker.Lock(ctx, lockKey(in.UserID))
	if err != nil {
		return WatchResult{}, err
	}
	defer unlock()

	user, err := s.User(ctx, in.UserID)
	if err != nil {
		return WatchResult{}, err
	}
	course, lesson, err := s.lesson(ctx, in.CourseID, in.UserID, in.LessonID)
	if err != nil {
		return WatchResult{}, err
	}

	updated, became, err := lesson.UpdateProgress(in.WatchedSeconds)
	if err != nil {
		return WatchResult{}, err
	}

	outcome, err := s.engine.UpdateUserProgress(ctx, user, updated, course, became, in.LastBlockID)
	if err != nil {
		return WatchResult{}, err
	}

	updated = updated.WithLastBlock(in.LastBlockID)
	course, _ = course.WithLesson(updated)

	s.logEvent(in.UserID, EventLessonProgress, map[string]any{
		"lesson_id":       in.LessonID,
		"watched_seconds": updated.WatchedSeconds,
		"percentage":      updated.ProgressPercentage(),
	})

	if outcome.Applied {
		s.refreshProfile(ctx, outcome.User)
		s.logEvent(in.UserID, EventLessonCompleted, map[string]any{
			"lesson_id": in.LessonID,
			"course_id": in.CourseID,
			"xp":        outcome.User.XP(),
			"level":     outcome.User.Level(),
		})
		for _, a := range outcome.Unlocked {
			s.logEvent(in.UserID, EventAchievementUnlocked, map[string]any{"achievement_id": a.ID})
			s.notify(ctx, in.UserID, a)
		}
	}

	return WatchResult{
		Lesson:          NewLessonView(updated),
		CourseProgress:  course.ProgressPercentage(),
		BecameCompleted: outcome.Applied,
		User:            outcome.User.Snapshot(),
		Unlocked:        outcome.Unlocked,
	}, nil
}

// QuizInput is a quiz submission.
type QuizInput struct {
	UserID   string            `json:"user_id"`
	CourseID string            `json:"course_id"`
	LessonID string            `json:"lesson_id"`
	Answers  map[string]string `json:"answers"`

	// Signals carries the reading signals used for gating; the video
	// progress is taken from the stored lesson.
	Signals progress.Signals `json:"-"`
}

// QuizOutcome is the graded submission and the resulting lesson state.
type QuizOutcome struct {
	Attempt QuizAttempt `json:"attempt"`
	Lesson  LessonView  `json:"lesson"`
}

// SubmitQuiz grades a submission against the lesson quiz and stores the attempt.
// The lesson requirements must be met first.
func (s *Service) SubmitQuiz(ctx context.Context, in QuizInput) (QuizOutcome, error) {
	if in.UserID == "" || in.CourseID == "" || in.LessonID == "" {
		return QuizOutcome{}, progress.Invalid("Service.SubmitQuiz", "user_id, course_id and lesson_id are required")
	}

	quiz, ok := s.catalog.Quiz(in.LessonID)
	if !ok {
		return QuizOutcome{}, progress.NotFound("Quiz", in.LessonID)
	}

	unlock, err := s.locker.Lock(ctx, lockKey(in.UserID))
	if err != nil {
		return QuizOutcome{}, err
	}
	defer unlock()

	_, lesson, err := s.lesson(ctx, in.CourseID, in.UserID, in.LessonID)
	if err != nil {
		return QuizOutcome{}, err
	}

	eval := s.catalog.Requirements(in.LessonID).Meets(in.Signals.WithLesson(lesson))
	if !eval.Meets {
		return QuizOutcome{}, fmt.Errorf("%w: %d requirement(s) missing", ErrRequirementsNotMet, len(eval.Missing))
	}

	result := quiz.Grade(in.Answers)
	attempt, err := s.repo.RecordQuizAttempt(ctx, QuizAttempt{
		UserID:    in.UserID,
		LessonID:  in.LessonID,
		QuizID:    quiz.ID,
		Result:    result,
		Answers:   in.Answers,
		CreatedAt: s.now(),
	})
	if err != nil {
		return QuizOutcome{}, fmt.Errorf("record quiz attempt: %w", err)
	}

	lesson = lesson.WithQuizResult(result.Passed)

	s.logEvent(in.UserID, EventQuizSubmitted, map[string]any{
		"lesson_id": in.LessonID,
		"quiz_id":   quiz.ID,
		"attempt":   attempt.Attempt,
		"score":     result.Score,
		"passed":    result.Passed,
	})

	slog.Info("quiz submitted",
		"user_id", in.UserID,
		"lesson_id", in.LessonID,
		"attempt", attempt.Attempt,
		"passed", result.Passed,
	)

	return QuizOutcome{Attempt: attempt, Lesson: NewLessonView(lesson)}, nil
}

// RequirementsInput asks whether a lesson's gated actions are available.
// When UserID and CourseID are set, the video progress comes from the
// stored lesson instead of Signals.
type RequirementsInput struct {
	UserID   string
	CourseID string
	LessonID string
	Signals  progress.Signals
}

// CheckRequirements evaluates the lesson requirements against the signals.
func (s *Service) CheckRequirements(ctx context.Context, in RequirementsInput) (progress.Evaluation, error) {
	if in.LessonID == "" {
		return progress.Evaluation{}, progress.Invalid("Service.CheckRequirements", "lesson_id is required")
	}

	signals := in.Signals
	if in.UserID != "" && in.CourseID != "" {
		_, lesson, err := s.lesson(ctx, in.CourseID, in.UserID, in.LessonID)
		if err != nil {
			return progress.Evaluation{}, err
		}
		signals = signals.WithLesson(lesson)
	}

	return s.catalog.Requirements(in.LessonID).Meets(signals), nil
}

// Requirements returns the configuration of a lesson.
func (s *Service) Requirements(lessonID string) progress.Requirements {
	return s.catalog.Requirements(lessonID)
}

// RegisterUser creates a profile or updates the name, email and role of an
// existing one. XP and achievements are never reset. It holds the same
// per-user lock as RecordWatchTime so the returned snapshot is current.
func (s *Service) RegisterUser(ctx context.Context, p progress.UserParams) (progress.UserSnapshot, error) {
	if p.ID == "" {
		return progress.UserSnapshot{}, progress.Invalid("Service.RegisterUser", "user id is required")
	}

	unlock, err := s.locker.Lock(ctx, lockKey(p.ID))
	if err != nil {
		return progress.UserSnapshot{}, fmt.Errorf("lock user %s: %w", p.ID, err)
	}
	defer unlock()

	existing, err := s.repo.GetUserByID(ctx, p.ID)
	switch {
	case err == nil:
		snap := existing.Snapshot()
		snap.Name, snap.Email = p.Name, p.Email
		if p.Role != "" {
			snap.Role = p.Role
		}
		existing, err = progress.RestoreUser(snap)
		if err != nil {
			return progress.UserSnapshot{}, err
		}
	case progress.IsNotFound(err):
		existing, err = progress.NewUser(progress.UserParams{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role})
		if err != nil {
			return progress.UserSnapshot{}, err
		}
	default:
		return progress.UserSnapshot{}, err
	}

	if err := s.repo.SaveUser(ctx, existing); err != nil {
		return progress.UserSnapshot{}, fmt.Errorf("save user: %w", err)
	}
	s.refreshProfile(ctx, existing)
	return existing.Snapshot(), nil
}

// User loads a user, reading through the profile cache when configured.
func (s *Service) User(ctx context.Context, userID string) (progress.User, error) {
	if s.profiles != nil {
		snap, ok, err := s.profiles.Get(ctx, userID)
		if err != nil {
			slog.Warn("profile cache read failed", "user_id", userID, "error", err)
		}
		if ok {
			if u, err := progress.RestoreUser(snap); err == nil {
				return u, nil
			}
		}
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return progress.User{}, err
	}

	if s.profiles != nil {
		if err := s.profiles.Set(ctx, u.Snapshot()); err != nil {
			slog.Warn("profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return u, nil
}

// Profile returns the gamification snapshot of a user.
func (s *Service) Profile(ctx context.Context, userID string) (progress.UserSnapshot, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return progress.UserSnapshot{}, err
	}
	return u.Snapshot(), nil
}

// Course returns the course with the user's progress merged in.
func (s *Service) Course(ctx context.Context, courseID, userID string) (progress.Course, error) {
	return s.repo.GetCourseByID(ctx, courseID, userID)
}

// CourseProgress returns the course summary for a user.
func (s *Service) CourseProgress(ctx context.Context, courseID, userID string) (CourseView, error) {
	c, err := s.Course(ctx, courseID, userID)
	if err != nil {
		return CourseView{}, err
	}
	return NewCourseView(c), nil
}

func (s *Service) lesson(ctx context.Context, courseID, userID, lessonID string) (progress.Course, progress.Lesson, error) {
	course, err := s.repo.GetCourseByID(ctx, courseID, userID)
	if err != nil {
		return progress.Course{}, progress.Lesson{}, err
	}
	lesson, ok := course.Lesson(lessonID)
	if !ok {
		return progress.Course{}, progress.Lesson{}, progress.NotFound("Lesson", lessonID)
	}
	return course, lesson, nil
}

func (s *Service) refreshProfile(ctx context.Context, u progress.User) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.Set(ctx, u.Snapshot()); err != nil {
		slog.Warn("profile cache refresh failed, invalidating", "user_id", u.ID, "error", err)
		if err := s.profiles.Invalidate(ctx, u.ID); err != nil {
			slog.Error("profile cache invalidation failed", "user_id", u.ID, "error", err)
		}
	}
}

func (s *Service) notify(ctx context.Context, userID string, a progress.Achievement) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAchievement(ctx, userID, a); err != nil {
		slog.Warn("achievement notification failed", "user_id", userID, "achievement_id", a.ID, "error", err)
	}
}

func (s *Service) logEvent(userID, eventType string, data map[string]any) {
	if err := s.events.LogEvent(Event{UserID: userID, EventType: eventType, Data: data, CreatedAt: s.now()}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "user_id", userID, "error", err)
	}
}

func lockKey(userID string) string {
	return "progress:" + userID
}

type defaultCatalog struct{}

func (defaultCatalog) Requirements(lessonID string) progress.Requirements {
	return progress.DefaultRequirements(lessonID)
}

func (defaultCatalog) Quiz(string) (progress.Quiz, bool) {
	return progress.Quiz{}, false
}
