package progress

import "fmt"

// QuizOption is one answer choice.
type QuizOption struct {
	ID      string
	Text    string
	Correct bool
}

// QuizQuestion is a scored question with at least one correct option.
type QuizQuestion struct {
	ID      string
	Text    string
	Points  int
	Options []QuizOption
}

// Quiz is the assessment attached to a lesson.
type Quiz struct {
	ID           string
	LessonID     string
	Title        string
	PassingScore int
	Questions    []QuizQuestion
}

// QuizResult is the graded outcome of one attempt.
type QuizResult struct {
	Score        float64 `json:"score"`
	Passed       bool    `json:"passed"`
	EarnedPoints int     `json:"earned_points"`
	TotalPoints  int     `json:"total_points"`
}

// NewQuiz validates the quiz structure.
func NewQuiz(q Quiz) (Quiz, error) {
	if !inPercentRange(q.PassingScore) {
		return Quiz{}, fmt.Errorf("passing score %d: %w", q.PassingScore, ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return Quiz{}, fmt.Errorf("quiz %s has no questions: %w", q.ID, ErrInvalidQuiz)
	}
	for _, question := range q.Questions {
		if question.Points <= 0 {
			return Quiz{}, fmt.Errorf("question %s: points must be positive: %w", question.ID, ErrInvalidQuiz)
		}
		if len(question.Options) < 2 {
			return Quiz{}, fmt.Errorf("question %s: needs at least 2 options: %w", question.ID, ErrInvalidQuiz)
		}
		if !question.hasCorrectOption() {
			return Quiz{}, fmt.Errorf("question %s: needs a correct option: %w", question.ID, ErrInvalidQuiz)
		}
	}
	return q, nil
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Grade scores answers keyed by question id with the selected option id.
// Unanswered questions earn nothing.
func (q Quiz) Grade(answers map[string]string) QuizResult {
	earned := 0
	for _, question := range q.Questions {
		if selected, ok := answers[question.ID]; ok && question.IsCorrect(selected) {
			earned += question.Points
		}
	}

	total := q.TotalPoints()
	score := 0.0
	if total > 0 {
		score = float64(earned) / float64(total) * 100
	}

	return QuizResult{
		Score:        score,
		Passed:       score >= float64(q.PassingScore),
		EarnedPoints: earned,
		TotalPoints:  total,
	}
}

// IsCorrect reports whether optionID is a correct option of the question.
func (qq QuizQuestion) IsCorrect(optionID string) bool {
	for _, o := range qq.Options {
		if o.ID == optionID {
			return o.Correct
		}
	}
	return false
}

func (qq QuizQuestion) hasCorrectOption() bool {
	for _, o := range qq.Options {
		if o.Correct {
			return true
		}
	}
	return false
}
