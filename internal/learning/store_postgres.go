package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Repository and EventApplier.
type PostgresStore struct {
	pool    *pgxpool.Pool
	courses CourseSource
}

// NewPostgresStore creates a PostgreSQL-backed store. Course structure comes
// from courses; per-user progress from the lesson_progress table.
func NewPostgresStore(pool *pgxpool.Pool, courses CourseSource) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if courses == nil {
		courses = StaticCourses{}
	}
	return &PostgresStore{pool: pool, courses: courses}, nil
}

func (s *PostgresStore) UpdateLessonProgress(ctx context.Context, userID, lessonID string, watchedSeconds int, completed bool, lastBlockID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return upsertLesson(ctx, s.pool, userID, lessonID, watchedSeconds, completed, lastBlockID)
}

func (s *PostgresStore) UpdateUserGamification(ctx context.Context, userID string, xp, level int, achievements []progress.Achievement) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return writeGamification(ctx, tx, userID, xp, level, achievements)
	})
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (progress.User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	snap := progress.UserSnapshot{ID: userID}
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT name, email, role, xp, level FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&snap.Name, &snap.Email, &role, &snap.XP, &snap.Level)
	if database.IsNoRows(err) {
		return progress.User{}, progress.NotFound("User", userID)
	}
	if err != nil {
		return progress.User{}, fmt.Errorf("query profile: %w", err)
	}
	snap.Role = progress.Role(role)

	rows, err := s.pool.Query(ctx,
		`SELECT achievement_id, title, description, icon, unlocked_at
		 FROM user_achievements
		 WHERE user_id = $1
		 ORDER BY position ASC`,
		userID,
	)
	if err != nil {
		return progress.User{}, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a progress.Achievement
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Icon, &a.UnlockedAt); err != nil {
			return progress.User{}, fmt.Errorf("scan achievement: %w", err)
		}
		a.UnlockedAt = a.UnlockedAt.UTC()
		snap.Achievements = append(snap.Achievements, a)
	}
	if err := rows.Err(); err != nil {
		return progress.User{}, fmt.Errorf("iterate achievements: %w", err)
	}

	return progress.RestoreUser(snap)
}

func (s *PostgresStore) GetCourseByID(ctx context.Context, courseID, userID string) (progress.Course, error) {
	course, ok := s.courses.Course(courseID)
	if !ok {
		return progress.Course{}, progress.NotFound("Course", courseID)
	}

	var lessonIDs []string
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			lessonIDs = append(lessonIDs, l.ID)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT lesson_id, watched_seconds, completed, quiz_attempted, quiz_passed, last_block_id
		 FROM lesson_progress
		 WHERE user_id = $1 AND lesson_id = ANY($2)`,
		userID,
		lessonIDs,
	)
	if err != nil {
		return progress.Course{}, fmt.Errorf("query lesson progress: %w", err)
	}
	defer rows.Close()

	found := make(map[string]lessonRow)
	for rows.Next() {
		var id string
		var row lessonRow
		if err := rows.Scan(&id, &row.watchedSeconds, &row.completed, &row.quizAttempted, &row.quizPassed, &row.lastBlockID); err != nil {
			return progress.Course{}, fmt.Errorf("scan lesson progress: %w", err)
		}
		found[id] = row
	}
	if err := rows.Err(); err != nil {
		return progress.Course{}, fmt.Errorf("iterate lesson progress: %w", err)
	}

	return mergeProgress(course, func(lessonID string) (lessonRow, bool) {
		row, ok := found[lessonID]
		return row, ok
	}), nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, user progress.User) error {
	if user.ID == "" {
		return progress.Invalid("PostgresStore.SaveUser", "user id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO profiles (user_id, name, email, role, xp, level)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id) DO NOTHING`,
			user.ID, user.Name, user.Email, string(user.Role), user.XP(), user.Level(),
		)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return insertAchievements(ctx, tx, user.ID, user.Achievements())
		}

		if _, err := tx.Exec(ctx,
			`UPDATE profiles
			 SET name = $2, email = $3, role = $4, updated_at = NOW()
			 WHERE user_id = $1`,
			user.ID, user.Name, user.Email, string(user.Role),
		); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ApplyProgressEvent(ctx context.Context, event ProgressEvent) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	applied := false
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := upsertLesson(ctx, tx, event.UserID, event.LessonID, event.WatchedSeconds, event.Completed, event.LastBlockID); err != nil {
			return err
		}

		g := event.Gamification
		if g == nil {
			return nil
		}

		cmd, err := tx.Exec(ctx,
			`INSERT INTO progress_events (idempotency_key, user_id, lesson_id, xp, level, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (idempotency_key) DO NOTHING`,
			g.IdempotencyKey, event.UserID, event.LessonID, g.XP, g.Level, occurredAt(event),
		)
		if err != nil {
			return fmt.Errorf("insert progress event: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}

		if err := writeGamification(ctx, tx, event.UserID, g.XP, g.Level, g.Achievements); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *PostgresStore) RecordQuizAttempt(ctx context.Context, attempt QuizAttempt) (QuizAttempt, error) {
	if err := attempt.Validate(); err != nil {
		return QuizAttempt{}, err
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	answers := attempt.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return QuizAttempt{}, fmt.Errorf("marshal answers: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if attempt.Attempt == 0 {
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(attempt), 0) + 1 FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2`,
				attempt.UserID, attempt.QuizID,
			).Scan(&attempt.Attempt); err != nil {
				return fmt.Errorf("next attempt number: %w", err)
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_attempts (id, user_id, lesson_id, quiz_id, attempt, score, passed, earned_points, total_points, answers, created_at)
			 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)`,
			attempt.ID, attempt.UserID, attempt.LessonID, attempt.QuizID, attempt.Attempt,
			attempt.Result.Score, attempt.Result.Passed, attempt.Result.EarnedPoints, attempt.Result.TotalPoints,
			string(data), attempt.CreatedAt,
		); err != nil {
			if database.IsUniqueViolation(err) {
				return progress.Invalid("PostgresStore.RecordQuizAttempt",
					fmt.Sprintf("attempt %d already recorded", attempt.Attempt))
			}
			return fmt.Errorf("insert quiz attempt: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO lesson_progress (user_id, lesson_id, quiz_attempted, quiz_passed)
			 VALUES ($1, $2, TRUE, $3)
			 ON CONFLICT (user_id, lesson_id) DO UPDATE
			 SET quiz_attempted = TRUE,
			     quiz_passed = lesson_progress.quiz_passed OR EXCLUDED.quiz_passed,
			     updated_at = NOW()`,
			attempt.UserID, attempt.LessonID, attempt.Result.Passed,
		); err != nil {
			return fmt.Errorf("update lesson quiz flags: %w", err)
		}
		return nil
	})
	if err != nil {
		return QuizAttempt{}, err
	}
	return attempt, nil
}

func upsertLesson(ctx context.Context, q database.Querier, userID, lessonID string, watchedSeconds int, completed bool, lastBlockID string) error {
	if userID == "" || lessonID == "" {
		return progress.Invalid("PostgresStore.UpdateLessonProgress", "user and lesson ids are required")
	}
	if watchedSeconds < 0 {
		return progress.ErrNegativeWatchTime
	}

	_, err := q.Exec(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_id, watched_seconds, completed, last_block_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE
		 SET watched_seconds = EXCLUDED.watched_seconds,
		     completed = lesson_progress.completed OR EXCLUDED.completed,
		     last_block_id = COALESCE(NULLIF(EXCLUDED.last_block_id, ''), lesson_progress.last_block_id),
		     updated_at = NOW()`,
		userID, lessonID, watchedSeconds, completed, lastBlockID,
	)
	if err != nil {
		return fmt.Errorf("upsert lesson progress: %w", err)
	}
	return nil
}

func writeGamification(ctx context.Context, q database.Querier, userID string, xp, level int, achievements []progress.Achievement) error {
	if xp < 0 {
		return progress.ErrNegativeXP
	}

	cmd, err := q.Exec(ctx,
		`UPDATE profiles SET xp = $2, level = $3, updated_at = NOW() WHERE user_id = $1`,
		userID, xp, level,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return progress.NotFound("User", userID)
	}
	return insertAchievements(ctx, q, userID, achievements)
}

// insertAchievements adds achievements not yet stored; existing rows keep
// their original unlock time and position.
func insertAchievements(ctx context.Context, q database.Querier, userID string, achievements []progress.Achievement) error {
	for i, a := range achievements {
		if _, err := q.Exec(ctx,
			`INSERT INTO user_achievements (user_id, achievement_id, title, description, icon, position, unlocked_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id, achievement_id) DO NOTHING`,
			userID, a.ID, a.Title, a.Description, a.Icon, i, a.UnlockedAt,
		); err != nil {
			return fmt.Errorf("insert achievement %s: %w", a.ID, err)
		}
	}
	return nil
}

func occurredAt(e ProgressEvent) time.Time {
	if e.OccurredAt.IsZero() {
		return time.Now()
	}
	return e.OccurredAt
}
