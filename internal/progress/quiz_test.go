package progress_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

func sampleQuiz() progress.Quiz {
	return progress.Quiz{
		ID:           "q1",
		LessonID:     "l1",
		Title:        "Check",
		PassingScore: 70,
		Questions: []progress.QuizQuestion{
			{ID: "q-a", Points: 3, Options: []progress.QuizOption{{ID: "1", Correct: true}, {ID: "2"}}},
			{ID: "q-b", Points: 1, Options: []progress.QuizOption{{ID: "1"}, {ID: "2", Correct: true}}},
		},
	}
}

func TestNewQuiz_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *progress.Quiz)
		wantErr bool
	}{
		{"valid", func(q *progress.Quiz) {}, false},
		{"no questions", func(q *progress.Quiz) { q.Questions = nil }, true},
		{"zero points", func(q *progress.Quiz) { q.Questions[0].Points = 0 }, true},
		{"single option", func(q *progress.Quiz) { q.Questions[0].Options = q.Questions[0].Options[:1] }, true},
		{"no correct option", func(q *progress.Quiz) { q.Questions[1].Options[1].Correct = false }, true},
		{"passing score above 100", func(q *progress.Quiz) { q.PassingScore = 101 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuiz()
			tt.mutate(&q)
			_, err := progress.NewQuiz(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewQuiz() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, progress.ErrInvalidQuiz) {
				t.Errorf("error %v should wrap ErrInvalidQuiz", err)
			}
		})
	}
}

func TestQuiz_Grade(t *testing.T) {
	q := sampleQuiz()

	tests := []struct {
		name       string
		answers    map[string]string
		wantScore  float64
		wantPassed bool
	}{
		{"all correct", map[string]string{"q-a": "1", "q-b": "2"}, 100, true},
		{"heavy question only", map[string]string{"q-a": "1", "q-b": "1"}, 75, true},
		{"light question only", map[string]string{"q-a": "2", "q-b": "2"}, 25, false},
		{"unanswered", nil, 0, false},
		{"unknown option", map[string]string{"q-a": "9"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := q.Grade(tt.answers)
			if got.Score != tt.wantScore || got.Passed != tt.wantPassed {
				t.Errorf("Grade() = %+v, want score %v passed %v", got, tt.wantScore, tt.wantPassed)
			}
			if got.TotalPoints != 4 {
				t.Errorf("TotalPoints = %d, want 4", got.TotalPoints)
			}
		})
	}
}

func TestQuiz_Grade_PassesAtExactScore(t *testing.T) {
	q := sampleQuiz()
	q.PassingScore = 75
	if got := q.Grade(map[string]string{"q-a": "1"}); !got.Passed {
		t.Errorf("score equal to passing score should pass: %+v", got)
	}
}
