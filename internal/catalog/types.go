package catalog

// CourseDoc is one course file as authored in YAML.
type CourseDoc struct {
	CourseID    string      `yaml:"course_id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Modules     []ModuleDoc `yaml:"modules"`
}

// ModuleDoc represents an ordered group of lessons within a course.
type ModuleDoc struct {
	ID      string      `yaml:"id"`
	Title   string      `yaml:"title"`
	Lessons []LessonDoc `yaml:"lessons"`
}

// LessonDoc represents a lesson with its optional gating and quiz.
type LessonDoc struct {
	ID              string           `yaml:"id"`
	Title           string           `yaml:"title"`
	DurationSeconds int              `yaml:"duration_seconds"`
	Requirements    *RequirementsDoc `yaml:"requirements"`
	Quiz            *QuizDoc         `yaml:"quiz"`
}

// RequirementsDoc holds the lesson requirements. Omitted fields take the
// platform defaults.
type RequirementsDoc struct {
	VideoRequiredPercent      *int     `yaml:"video_required_percent"`
	TextBlocksRequiredPercent *int     `yaml:"text_blocks_required_percent"`
	RequiredPDFs              []string `yaml:"required_pdfs"`
	RequiredAudios            []string `yaml:"required_audios"`
	RequiredMaterials         []string `yaml:"required_materials"`
	MinEvaluationQuestions    *int     `yaml:"min_evaluation_questions"`
	EvaluationPassingScore    *int     `yaml:"evaluation_passing_score"`
}

// QuizDoc represents the assessment attached to a lesson.
type QuizDoc struct {
	ID           string        `yaml:"id"`
	Title        string        `yaml:"title"`
	PassingScore int           `yaml:"passing_score"`
	Questions    []QuestionDoc `yaml:"questions"`
}

// QuestionDoc is a scored quiz question.
type QuestionDoc struct {
	ID      string      `yaml:"id"`
	Text    string      `yaml:"text"`
	Points  int         `yaml:"points"`
	Options []OptionDoc `yaml:"options"`
}

// OptionDoc is one answer choice.
type OptionDoc struct {
	ID      string `yaml:"id"`
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}
