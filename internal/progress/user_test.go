package progress_test

import (
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

var unlockTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newUser(t *testing.T, xp int, achievements ...string) progress.User {
	t.Helper()
	var unlocked []progress.Achievement
	for _, id := range achievements {
		def, ok := progress.LookupDefinition(id)
		if !ok {
			t.Fatalf("unknown achievement %q", id)
		}
		unlocked = append(unlocked, def.Unlock(unlockTime))
	}
	u, err := progress.NewUser(progress.UserParams{
		ID:           "u1",
		Name:         "Ana",
		Email:        "ana@example.com",
		XP:           xp,
		Achievements: unlocked,
	})
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	return u
}

func ids(as []progress.Achievement) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{1999, 2},
		{4000, 5},
		{10500, 11},
	}

	for _, tt := range tests {
		if got := progress.LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestUser_AddXP(t *testing.T) {
	u := newUser(t, 0)

	u, err := u.AddXP(999)
	if err != nil {
		t.Fatalf("AddXP(999) error = %v", err)
	}
	if u.Level() != 1 {
		t.Errorf("Level() = %d, want 1", u.Level())
	}
	if u.XPToNextLevel() != 1 {
		t.Errorf("XPToNextLevel() = %d, want 1", u.XPToNextLevel())
	}

	u, err = u.AddXP(1)
	if err != nil {
		t.Fatalf("AddXP(1) error = %v", err)
	}
	if u.XP() != 1000 || u.Level() != 2 {
		t.Errorf("after AddXP(1): xp = %d level = %d, want 1000 and 2", u.XP(), u.Level())
	}
}

func TestUser_AddXP_RejectsNegative(t *testing.T) {
	u := newUser(t, 300)

	got, err := u.AddXP(-10)
	if !errors.Is(err, progress.ErrNegativeXP) {
		t.Fatalf("AddXP(-10) error = %v, want ErrNegativeXP", err)
	}
	if got.XP() != 300 {
		t.Errorf("XP() = %d, want unchanged 300", got.XP())
	}
}

func TestUser_AddXP_DoesNotMutateReceiver(t *testing.T) {
	u := newUser(t, 100)
	if _, err := u.AddXP(50); err != nil {
		t.Fatalf("AddXP() error = %v", err)
	}
	if u.XP() != 100 {
		t.Errorf("receiver XP = %d, want 100", u.XP())
	}
}

func TestUser_CheckAndAddAchievements_LessonOnce(t *testing.T) {
	u := newUser(t, 0)

	u, first := u.CheckAndAddAchievements(progress.KindLesson, unlockTime)
	if !equalIDs(ids(first), []string{progress.AchievementFirstLesson}) {
		t.Fatalf("first check = %v, want [first-lesson]", ids(first))
	}

	u, second := u.CheckAndAddAchievements(progress.KindLesson, unlockTime)
	if len(second) != 0 {
		t.Errorf("second check = %v, want none", ids(second))
	}
	if len(u.Achievements()) != 1 {
		t.Errorf("Achievements() = %v, want one entry", ids(u.Achievements()))
	}
}

func TestUser_CheckAndAddAchievements_AllXPThresholds(t *testing.T) {
	u := newUser(t, 5000)

	u, got := u.CheckAndAddAchievements(progress.KindXP, unlockTime)
	want := []string{progress.AchievementXP5000, progress.AchievementXP1000}
	if !equalIDs(ids(got), want) {
		t.Errorf("unlocked = %v, want %v", ids(got), want)
	}
	if !u.HasAchievement(progress.AchievementXP1000) || !u.HasAchievement(progress.AchievementXP5000) {
		t.Error("both XP achievements should be held")
	}
}

func TestUser_CheckNextAchievement_SurfacesThresholdsOneByOne(t *testing.T) {
	u := newUser(t, 5000)

	u, a := u.CheckNextAchievement(progress.KindXP, unlockTime)
	if a == nil || a.ID != progress.AchievementXP5000 {
		t.Fatalf("first = %v, want xp-5000", a)
	}
	u, a = u.CheckNextAchievement(progress.KindXP, unlockTime)
	if a == nil || a.ID != progress.AchievementXP1000 {
		t.Fatalf("second = %v, want xp-1000", a)
	}
	_, a = u.CheckNextAchievement(progress.KindXP, unlockTime)
	if a != nil {
		t.Errorf("third = %v, want nil", a)
	}
}

func TestUser_CheckAndAddAchievements_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		kind progress.AchievementKind
		xp   int
		held []string
		want []string
	}{
		{"xp below threshold", progress.KindXP, 999, nil, nil},
		{"xp at threshold", progress.KindXP, 1000, nil, []string{progress.AchievementXP1000}},
		{"xp lower already held", progress.KindXP, 6000, []string{progress.AchievementXP1000}, []string{progress.AchievementXP5000}},
		{"level below milestone", progress.KindLevel, 3999, nil, nil},
		{"level at milestone", progress.KindLevel, 4000, nil, []string{progress.AchievementLevel5}},
		{"level already held", progress.KindLevel, 9000, []string{progress.AchievementLevel5}, nil},
		{"module", progress.KindModule, 0, nil, []string{progress.AchievementModuleMaster}},
		{"course", progress.KindCourse, 0, nil, []string{progress.AchievementCourseComplete}},
		{"unknown kind", progress.AchievementKind("STREAK"), 100000, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUser(t, tt.xp, tt.held...)
			_, got := u.CheckAndAddAchievements(tt.kind, unlockTime)
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("unlocked = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestUser_CheckAndAddAchievements_DoesNotMutateReceiver(t *testing.T) {
	u := newUser(t, 0)
	next, _ := u.CheckAndAddAchievements(progress.KindLesson, unlockTime)

	if u.HasAchievement(progress.AchievementFirstLesson) {
		t.Error("receiver gained an achievement")
	}
	if !next.HasAchievement(progress.AchievementFirstLesson) {
		t.Error("returned user is missing the achievement")
	}
}

func TestUser_AchievementsReturnsCopy(t *testing.T) {
	u := newUser(t, 0, progress.AchievementFirstLesson)

	list := u.Achievements()
	list[0].ID = "tampered"

	if !u.HasAchievement(progress.AchievementFirstLesson) || u.Achievements()[0].ID != progress.AchievementFirstLesson {
		t.Error("modifying the returned slice changed the user")
	}
}

func TestUser_CloneIsIndependent(t *testing.T) {
	u := newUser(t, 0)
	c := u.Clone()
	c, _ = c.CheckAndAddAchievements(progress.KindLesson, unlockTime)

	if u.HasAchievement(progress.AchievementFirstLesson) {
		t.Error("clone shares achievement storage with the original")
	}
	if !c.HasAchievement(progress.AchievementFirstLesson) {
		t.Error("clone did not record the achievement")
	}
}

func TestNewUser(t *testing.T) {
	first := progress.Achievement{ID: progress.AchievementFirstLesson, Title: "first"}
	dup := progress.Achievement{ID: progress.AchievementFirstLesson, Title: "dup"}

	u, err := progress.NewUser(progress.UserParams{ID: "u1", Achievements: []progress.Achievement{first, dup}})
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if u.Role != progress.RoleStudent {
		t.Errorf("Role = %q, want %q", u.Role, progress.RoleStudent)
	}
	got := u.Achievements()
	if len(got) != 1 || got[0].Title != "first" {
		t.Errorf("Achievements() = %+v, want only the first occurrence", got)
	}

	if _, err := progress.NewUser(progress.UserParams{}); !progress.IsValidation(err) {
		t.Errorf("NewUser(empty id) error = %v, want validation error", err)
	}
	if _, err := progress.NewUser(progress.UserParams{ID: "u1", XP: -1}); !progress.IsValidation(err) {
		t.Errorf("NewUser(negative xp) error = %v, want validation error", err)
	}
}

func TestUser_SnapshotRoundTrip(t *testing.T) {
	u := newUser(t, 2500, progress.AchievementFirstLesson, progress.AchievementXP1000)

	s := u.Snapshot()
	if s.Level != 3 {
		t.Errorf("Snapshot().Level = %d, want 3", s.Level)
	}

	s.Level = 42
	restored, err := progress.RestoreUser(s)
	if err != nil {
		t.Fatalf("RestoreUser() error = %v", err)
	}
	if restored.Level() != 3 {
		t.Errorf("restored Level() = %d, want level derived from xp", restored.Level())
	}
	if !equalIDs(ids(restored.Achievements()), []string{progress.AchievementFirstLesson, progress.AchievementXP1000}) {
		t.Errorf("restored achievements = %v", ids(restored.Achievements()))
	}
}

func TestZeroUserIsUsable(t *testing.T) {
	var u progress.User
	u, got := u.CheckAndAddAchievements(progress.KindLesson, unlockTime)
	if len(got) != 1 || !u.HasAchievement(progress.AchievementFirstLesson) {
		t.Errorf("zero user check = %v", ids(got))
	}
}
