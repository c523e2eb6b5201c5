package progress

import (
	"fmt"
	"slices"
)

// Requirement defaults applied when a lesson leaves a field unset.
const (
	DefaultVideoRequiredPercent   = 90
	DefaultMinEvaluationQuestions = 10
	DefaultEvaluationPassingScore = 70
)

// RequirementKind names one evaluated gating dimension.
type RequirementKind string

const (
	RequirementVideo      RequirementKind = "video"
	RequirementTextBlocks RequirementKind = "text_blocks"
	RequirementPDFs       RequirementKind = "pdfs"
	RequirementAudios     RequirementKind = "audios"
)

// Requirements is the immutable per-lesson configuration that gates actions
// such as the lesson quiz. Build it with NewRequirements; edits replace the
// whole value.
type Requirements struct {
	lessonID                  string
	videoRequiredPercent      int
	textBlocksRequiredPercent int
	requiredPDFs              []string
	requiredAudios            []string
	requiredMaterials         []string
	minEvaluationQuestions    int
	evaluationPassingScore    int
}

// RequirementsParams configures NewRequirements. Nil pointers take the defaults.
type RequirementsParams struct {
	LessonID                  string
	VideoRequiredPercent      *int
	TextBlocksRequiredPercent *int
	RequiredPDFs              []string
	RequiredAudios            []string
	RequiredMaterials         []string
	MinEvaluationQuestions    *int
	EvaluationPassingScore    *int
}

// NewRequirements validates every bound before returning.
func NewRequirements(p RequirementsParams) (Requirements, error) {
	r := Requirements{
		lessonID:                  p.LessonID,
		videoRequiredPercent:      valueOr(p.VideoRequiredPercent, DefaultVideoRequiredPercent),
		textBlocksRequiredPercent: valueOr(p.TextBlocksRequiredPercent, 0),
		requiredPDFs:              slices.Clone(p.RequiredPDFs),
		requiredAudios:            slices.Clone(p.RequiredAudios),
		requiredMaterials:         slices.Clone(p.RequiredMaterials),
		minEvaluationQuestions:    valueOr(p.MinEvaluationQuestions, DefaultMinEvaluationQuestions),
		evaluationPassingScore:    valueOr(p.EvaluationPassingScore, DefaultEvaluationPassingScore),
	}

	if !inPercentRange(r.videoRequiredPercent) {
		return Requirements{}, fmt.Errorf("video required percent %d: %w", r.videoRequiredPercent, ErrPercentOutOfRange)
	}
	if !inPercentRange(r.textBlocksRequiredPercent) {
		return Requirements{}, fmt.Errorf("text blocks required percent %d: %w", r.textBlocksRequiredPercent, ErrPercentOutOfRange)
	}
	if r.minEvaluationQuestions < 1 {
		return Requirements{}, ErrMinQuestions
	}
	if !inPercentRange(r.evaluationPassingScore) {
		return Requirements{}, ErrPassingScoreOutOfRange
	}

	return r, nil
}

// DefaultRequirements returns the configuration used when a lesson has none.
func DefaultRequirements(lessonID string) Requirements {
	r, _ := NewRequirements(RequirementsParams{LessonID: lessonID})
	return r
}

func (r Requirements) LessonID() string { return r.lessonID }
func (r Requirements) VideoRequiredPercent() int { return r.videoRequiredPercent }
func (r Requirements) TextBlocksRequiredPercent() int { return r.textBlocksRequiredPercent }
func (r Requirements) RequiredPDFs() []string { return slices.Clone(r.requiredPDFs) }
func (r Requirements) RequiredAudios() []string { return slices.Clone(r.requiredAudios) }
func (r Requirements) RequiredMaterials() []string { return slices.Clone(r.requiredMaterials) }
func (r Requirements) MinEvaluationQuestions() int { return r.minEvaluationQuestions }
func (r Requirements) EvaluationPassingScore() int { return r.evaluationPassingScore }

// Signals are the learner's observed interactions with a lesson.
type Signals struct {
	VideoProgress  int // rounded percentage, see Lesson.ProgressPercentage
	TextBlocksRead []string
	TotalBlocks    int
	PDFsViewed     []string
	AudiosPlayed   []string
}

// WithLesson fills VideoProgress from the lesson so gating and display
// share one rounding policy.
func (s Signals) WithLesson(l Lesson) Signals {
	s.VideoProgress = l.ProgressPercentage()
	return s
}

// MissingRequirement describes one unmet dimension.
type MissingRequirement struct {
	Kind     RequirementKind `json:"type"`
	Message  string          `json:"message"`
	Current  float64         `json:"current"`
	Required float64         `json:"required"`
	Missing  []string        `json:"missing,omitempty"` // ids for pdfs/audios
	Read     int             `json:"read,omitempty"`    // distinct text blocks read
	Total    int             `json:"total,omitempty"`   // text blocks in the lesson
}

// Evaluation is the result of Meets.
type Evaluation struct {
	Meets   bool                 `json:"meets"`
	Missing []MissingRequirement `json:"missing"`
}

// Meets checks every dimension and reports all deficiencies, so callers can
// render a full checklist.
func (r Requirements) Meets(s Signals) Evaluation {
	missing := []MissingRequirement{}

	if s.VideoProgress < r.videoRequiredPercent {
		missing = append(missing, MissingRequirement{
			Kind:     RequirementVideo,
			Message:  fmt.Sprintf("Video: %d%% / %d%% required", s.VideoProgress, r.videoRequiredPercent),
			Current:  float64(s.VideoProgress),
			Required: float64(r.videoRequiredPercent),
		})
	}

	read := min(distinct(s.TextBlocksRead), s.TotalBlocks)
	textPercent := 100.0
	textMet := true
	if s.TotalBlocks > 0 {
		textPercent = float64(read) / float64(s.TotalBlocks) * 100
		textMet = read*100 >= r.textBlocksRequiredPercent*s.TotalBlocks
	}
	if !textMet {
		missing = append(missing, MissingRequirement{
			Kind: RequirementTextBlocks,
			Message: fmt.Sprintf("Text blocks: %d/%d (%.0f%% / %d%% required)",
				read, s.TotalBlocks, textPercent, r.textBlocksRequiredPercent),
			Current:  textPercent,
			Required: float64(r.textBlocksRequiredPercent),
			Read:     read,
			Total:    s.TotalBlocks,
		})
	}

	if absent := missingFrom(r.requiredPDFs, s.PDFsViewed); len(absent) > 0 {
		missing = append(missing, MissingRequirement{
			Kind:     RequirementPDFs,
			Message:  fmt.Sprintf("%d required PDF(s) not viewed", len(absent)),
			Current:  float64(len(r.requiredPDFs) - len(absent)),
			Required: float64(len(r.requiredPDFs)),
			Missing:  absent,
		})
	}

	if absent := missingFrom(r.requiredAudios, s.AudiosPlayed); len(absent) > 0 {
		missing = append(missing, MissingRequirement{
			Kind:     RequirementAudios,
			Message:  fmt.Sprintf("%d required audio(s) not played", len(absent)),
			Current:  float64(len(r.requiredAudios) - len(absent)),
			Required: float64(len(r.requiredAudios)),
			Missing:  absent,
		})
	}

	return Evaluation{Meets: len(missing) == 0, Missing: missing}
}

// Describe lists the configured requirements for display to the learner.
func (r Requirements) Describe() []string {
	var desc []string
	if r.videoRequiredPercent > 0 {
		desc = append(desc, fmt.Sprintf("Watch %d%% of the video", r.videoRequiredPercent))
	}
	if r.textBlocksRequiredPercent > 0 {
		desc = append(desc, fmt.Sprintf("Read %d%% of the text blocks", r.textBlocksRequiredPercent))
	}
	if n := len(r.requiredPDFs); n > 0 {
		desc = append(desc, fmt.Sprintf("View %d required PDF(s)", n))
	}
	if n := len(r.requiredAudios); n > 0 {
		desc = append(desc, fmt.Sprintf("Play %d required audio(s)", n))
	}
	return desc
}

func distinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// missingFrom returns the required ids absent from seen, in required order.
func missingFrom(required, seen []string) []string {
	if len(required) == 0 {
		return nil
	}
	have := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		have[id] = struct{}{}
	}
	var absent []string
	for _, id := range required {
		if _, ok := have[id]; !ok {
			absent = append(absent, id)
		}
	}
	return absent
}

func inPercentRange(v int) bool { return v >= 0 && v <= 100 }

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
