package progress

import "time"

// XP awards and thresholds. UI progress bars depend on the same numbers.
const (
	LessonCompletionXP = 150
	ModuleCompletionXP = 500
	XPPerLevel         = 1000
	LevelMilestone     = 5
)

// Achievement ids form a stable contract with clients.
const (
	AchievementFirstLesson    = "first-lesson"
	AchievementModuleMaster   = "module-master"
	AchievementCourseComplete = "course-complete"
	AchievementXP1000         = "xp-1000"
	AchievementXP5000         = "xp-5000"
	AchievementLevel5         = "level-5"
)

// AchievementKind selects which unlock rule to evaluate.
type AchievementKind string

const (
	KindLesson AchievementKind = "LESSON"
	KindModule AchievementKind = "MODULE"
	KindCourse AchievementKind = "COURSE"
	KindXP     AchievementKind = "XP"
	KindLevel  AchievementKind = "LEVEL"
)

// IsValid reports whether k is one of the known kinds.
func (k AchievementKind) IsValid() bool {
	switch k {
	case KindLesson, KindModule, KindCourse, KindXP, KindLevel:
		return true
	default:
		return false
	}
}

// Achievement is an unlocked badge. Only ID is meaningful to the rules.
type Achievement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// Definition describes an achievement before it is unlocked.
type Definition struct {
	ID          string
	Kind        AchievementKind
	Title       string
	Description string
	Icon        string
	Threshold   int // XP or level; 0 when the rule is event-driven
}

var definitions = []Definition{
	{AchievementFirstLesson, KindLesson, "First Step", "Completed your first lesson", "🎯", 0},
	{AchievementModuleMaster, KindModule, "Module Master", "Completed an entire module", "📚", 0},
	{AchievementCourseComplete, KindCourse, "Course Complete", "Completed an entire course", "🎓", 0},
	{AchievementXP5000, KindXP, "XP Legend", "Earned 5000 XP", "🏆", 5000},
	{AchievementXP1000, KindXP, "XP Hunter", "Earned 1000 XP", "⭐", 1000},
	{AchievementLevel5, KindLevel, "Level 5", "Reached level 5", "🔥", LevelMilestone},
}

// Definitions returns every known achievement. XP thresholds are listed highest first.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// LookupDefinition returns the definition for an achievement id.
func LookupDefinition(id string) (Definition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Unlock builds the achievement value for a definition at the given time.
func (d Definition) Unlock(at time.Time) Achievement {
	return Achievement{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Icon:        d.Icon,
		UnlockedAt:  at.UTC(),
	}
}

func definitionsOfKind(kind AchievementKind) []Definition {
	var out []Definition
	for _, d := range definitions {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
