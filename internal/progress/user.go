package progress

import (
	"fmt"
	"time"
)

// Role is the platform role of a user.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
)

// User holds the gamification state of a learner. XP and achievements are
// only changed through AddXP and CheckAndAddAchievements, which return a new
// User and leave the receiver untouched. The level is always derived from XP.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role

	xp           int
	achievements achievementSet
}

// UserParams holds the persisted profile a user is built from.
type UserParams struct {
	ID           string
	Name         string
	Email        string
	Role         Role
	XP           int
	Achievements []Achievement
}

// NewUser validates params. Duplicate achievement ids keep the first occurrence.
func NewUser(p UserParams) (User, error) {
	if p.ID == "" {
		return User{}, Invalid("NewUser", "user id is required")
	}
	if p.XP < 0 {
		return User{}, Invalid("NewUser", "xp cannot be negative")
	}
	role := p.Role
	if role == "" {
		role = RoleStudent
	}

	set := newAchievementSet(len(p.Achievements))
	for _, a := range p.Achievements {
		set.add(a)
	}

	return User{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		Role:         role,
		xp:           p.XP,
		achievements: set,
	}, nil
}

// XP returns the accumulated experience points.
func (u User) XP() int { return u.xp }

// Level returns floor(xp/1000)+1.
func (u User) Level() int { return LevelForXP(u.xp) }

// LevelForXP is the single level formula used everywhere.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel returns how many points are missing for the next level.
func (u User) XPToNextLevel() int {
	return u.Level()*XPPerLevel - u.xp
}

// Achievements returns a copy of the unlocked achievements in unlock order.
func (u User) Achievements() []Achievement {
	return u.achievements.list()
}

// HasAchievement reports whether id is already unlocked.
func (u User) HasAchievement(id string) bool {
	return u.achievements.has(id)
}

// Clone returns a deep copy; the achievement storage is not shared.
func (u User) Clone() User {
	u.achievements = u.achievements.clone()
	return u
}

// AddXP returns a copy with amount added. Negative amounts are rejected.
func (u User) AddXP(amount int) (User, error) {
	if amount < 0 {
		return u, ErrNegativeXP
	}
	next := u.Clone()
	next.xp += amount
	return next, nil
}

// CheckAndAddAchievements evaluates one rule kind and returns the user with
// every newly unlocked achievement added, plus those achievements in unlock
// order. Ids already present are never unlocked again. For KindXP all newly
// crossed thresholds are returned at once, highest threshold first.
func (u User) CheckAndAddAchievements(kind AchievementKind, at time.Time) (User, []Achievement) {
	var unlocked []Achievement
	next := u
	for {
		var a *Achievement
		next, a = next.CheckNextAchievement(kind, at)
		if a == nil {
			return next, unlocked
		}
		unlocked = append(unlocked, *a)
	}
}

// CheckNextAchievement unlocks at most one achievement of the given kind:
// the highest eligible definition not yet unlocked. It returns nil when
// nothing new qualifies. Repeated calls surface lower XP thresholds one by one.
func (u User) CheckNextAchievement(kind AchievementKind, at time.Time) (User, *Achievement) {
	for _, def := range definitionsOfKind(kind) {
		if u.achievements.has(def.ID) || !u.eligible(def) {
			continue
		}
		a := def.Unlock(at)
		next := u.Clone()
		next.achievements.add(a)
		return next, &a
	}
	return u, nil
}

func (u User) eligible(def Definition) bool {
	switch def.Kind {
	case KindXP:
		return u.xp >= def.Threshold
	case KindLevel:
		return u.Level() >= def.Threshold
	case KindLesson, KindModule, KindCourse:
		// Callers only ask for these right after the matching completion.
		return true
	default:
		return false
	}
}

// UserSnapshot is the serializable form of a User.
type UserSnapshot struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Role         Role          `json:"role"`
	XP           int           `json:"xp"`
	Level        int           `json:"level"`
	Achievements []Achievement `json:"achievements"`
}

// Snapshot exports the user for storage, caching and responses.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		XP:           u.xp,
		Level:        u.Level(),
		Achievements: u.Achievements(),
	}
}

// RestoreUser rebuilds a user from a snapshot. The stored level is ignored
// and recomputed from XP.
func RestoreUser(s UserSnapshot) (User, error) {
	return NewUser(UserParams{
		ID:           s.ID,
		Name:         s.Name,
		Email:        s.Email,
		Role:         s.Role,
		XP:           s.XP,
		Achievements: s.Achievements,
	})
}

func (u User) String() string {
	return fmt.Sprintf("User{ID: %s, XP: %d, Level: %d, Achievements: %d}",
		u.ID, u.xp, u.Level(), u.achievements.len())
}

// achievementSet keeps unlock order and an id index.
type achievementSet struct {
	items []Achievement
	index map[string]int
}

func newAchievementSet(capacity int) achievementSet {
	return achievementSet{
		items: make([]Achievement, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

func (s *achievementSet) add(a Achievement) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[a.ID]; ok {
		return false
	}
	s.index[a.ID] = len(s.items)
	s.items = append(s.items, a)
	return true
}

func (s achievementSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s achievementSet) len() int { return len(s.items) }

func (s achievementSet) list() []Achievement {
	out := make([]Achievement, len(s.items))
	copy(out, s.items)
	return out
}

func (s achievementSet) clone() achievementSet {
	c := newAchievementSet(len(s.items))
	for _, a := range s.items {
		c.add(a)
	}
	return c
}
