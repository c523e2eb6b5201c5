package learning

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

type lessonKey struct {
	userID   string
	lessonID string
}

type lessonRow struct {
	watchedSeconds int
	completed      bool
	quizAttempted  bool
	quizPassed     bool
	lastBlockID    string
}

// MemoryStore is an in-memory implementation of Repository and EventApplier.
type MemoryStore struct {
	courses CourseSource

	mu       sync.RWMutex
	users    map[string]progress.UserSnapshot
	lessons  map[lessonKey]lessonRow
	rewarded map[string]struct{}
	attempts []QuizAttempt
}

// NewMemoryStore creates a new in-memory store reading course structure from
// courses. A nil source knows no courses.
func NewMemoryStore(courses CourseSource) *MemoryStore {
	if courses == nil {
		courses = StaticCourses{}
	}
	return &MemoryStore{
		courses:  courses,
		users:    make(map[string]progress.UserSnapshot),
		lessons:  make(map[lessonKey]lessonRow),
		rewarded: make(map[string]struct{}),
	}
}

func (s *MemoryStore) UpdateLessonProgress(_ context.Context, userID, lessonID string, watchedSeconds int, completed bool, lastBlockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLessonLocked(userID, lessonID, watchedSeconds, completed, lastBlockID)
}

func (s *MemoryStore) updateLessonLocked(userID, lessonID string, watchedSeconds int, completed bool, lastBlockID string) error {
	if userID == "" || lessonID == "" {
		return progress.Invalid("MemoryStore.UpdateLessonProgress", "user and lesson ids are required")
	}
	if watchedSeconds < 0 {
		return progress.ErrNegativeWatchTime
	}

	key := lessonKey{userID, lessonID}
	row := s.lessons[key]
	row.watchedSeconds = watchedSeconds
	row.completed = row.completed || completed
	if lastBlockID != "" {
		row.lastBlockID = lastBlockID
	}
	s.lessons[key] = row
	return nil
}

func (s *MemoryStore) UpdateUserGamification(_ context.Context, userID string, xp, level int, achievements []progress.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateGamificationLocked(userID, xp, level, achievements)
}

func (s *MemoryStore) updateGamificationLocked(userID string, xp, level int, achievements []progress.Achievement) error {
	snap, ok := s.users[userID]
	if !ok {
		return progress.NotFound("User", userID)
	}
	if xp < 0 {
		return progress.ErrNegativeXP
	}
	snap.XP = xp
	snap.Level = level
	snap.Achievements = append([]progress.Achievement(nil), achievements...)
	s.users[userID] = snap
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (progress.User, error) {
	s.mu.RLock()
	snap, ok := s.users[userID]
	s.mu.RUnlock()

	if !ok {
		return progress.User{}, progress.NotFound("User", userID)
	}
	return progress.RestoreUser(snap)
}

func (s *MemoryStore) GetCourseByID(_ context.Context, courseID, userID string) (progress.Course, error) {
	course, ok := s.courses.Course(courseID)
	if !ok {
		return progress.Course{}, progress.NotFound("Course", courseID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return mergeProgress(course, func(lessonID string) (lessonRow, bool) {
		row, ok := s.lessons[lessonKey{userID, lessonID}]
		return row, ok
	}), nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user progress.User) error {
	if user.ID == "" {
		return progress.Invalid("MemoryStore.SaveUser", "user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.users[user.ID]
	if !ok {
		s.users[user.ID] = user.Snapshot()
		return nil
	}
	snap.Name, snap.Email, snap.Role = user.Name, user.Email, user.Role
	s.users[user.ID] = snap
	return nil
}

func (s *MemoryStore) ApplyProgressEvent(_ context.Context, event ProgressEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := event.Gamification
	if g != nil {
		// Check everything that can fail before the first write.
		if _, ok := s.users[event.UserID]; !ok {
			return false, progress.NotFound("User", event.UserID)
		}
		if g.XP < 0 {
			return false, progress.ErrNegativeXP
		}
	}

	if err := s.updateLessonLocked(event.UserID, event.LessonID, event.WatchedSeconds, event.Completed, event.LastBlockID); err != nil {
		return false, err
	}

	if g == nil {
		return false, nil
	}
	if _, done := s.rewarded[g.IdempotencyKey]; done {
		return false, nil
	}
	s.rewarded[g.IdempotencyKey] = struct{}{}

	return true, s.updateGamificationLocked(event.UserID, g.XP, g.Level, g.Achievements)
}

func (s *MemoryStore) RecordQuizAttempt(_ context.Context, attempt QuizAttempt) (QuizAttempt, error) {
	if err := attempt.Validate(); err != nil {
		return QuizAttempt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if attempt.Attempt == 0 {
		attempt.Attempt = 1
		for _, a := range s.attempts {
			if a.UserID == attempt.UserID && a.QuizID == attempt.QuizID && a.Attempt >= attempt.Attempt {
				attempt.Attempt = a.Attempt + 1
			}
		}
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	s.attempts = append(s.attempts, attempt)

	key := lessonKey{attempt.UserID, attempt.LessonID}
	row := s.lessons[key]
	row.quizAttempted = true
	row.quizPassed = row.quizPassed || attempt.Result.Passed
	s.lessons[key] = row

	return attempt, nil
}

// QuizAttempts returns the stored attempts of a user, oldest first.
func (s *MemoryStore) QuizAttempts(userID string) []QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// mergeProgress overlays per-user lesson rows on a course structure. The
// structure's slices are copied, never modified.
func mergeProgress(course progress.Course, lookup func(lessonID string) (lessonRow, bool)) progress.Course {
	modules := make([]progress.Module, len(course.Modules))
	for mi, m := range course.Modules {
		lessons := make([]progress.Lesson, len(m.Lessons))
		for li, l := range m.Lessons {
			if row, ok := lookup(l.ID); ok {
				l.WatchedSeconds = row.watchedSeconds
				if l.DurationSeconds > 0 && l.WatchedSeconds > l.DurationSeconds {
					l.WatchedSeconds = l.DurationSeconds
				}
				l.Completed = row.completed
				l.HasQuiz = l.HasQuiz || row.quizAttempted
				l.QuizPassed = row.quizPassed
				l.LastBlockID = row.lastBlockID
			}
			lessons[li] = l
		}
		m.Lessons = lessons
		modules[mi] = m
	}
	course.Modules = modules
	return course
}
