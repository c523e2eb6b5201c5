package progress

import "time"

// ApplyCompletion awards the rewards for a lesson that just completed and
// returns the updated user with the achievements unlocked, in unlock order:
// lesson XP and LESSON, module XP and MODULE when the lesson's module is now
// fully completed, COURSE when the course is, then XP thresholds and LEVEL.
//
// The course is evaluated with the given lesson substituted, so a course
// loaded before the update still yields the right module and course state.
func ApplyCompletion(user User, lesson Lesson, course Course, at time.Time) (User, []Achievement) {
	if updated, ok := course.WithLesson(lesson); ok {
		course = updated
	}

	var unlocked []Achievement
	check := func(kind AchievementKind) {
		var got []Achievement
		user, got = user.CheckAndAddAchievements(kind, at)
		unlocked = append(unlocked, got...)
	}

	user = mustAddXP(user, LessonCompletionXP)
	check(KindLesson)

	if module, ok := course.ModuleOf(lesson.ID); ok && module.IsFullyCompleted() {
		user = mustAddXP(user, ModuleCompletionXP)
		check(KindModule)
	}

	if course.IsFullyCompleted() {
		check(KindCourse)
	}

	check(KindXP)
	check(KindLevel)

	return user, unlocked
}

// mustAddXP adds a positive constant bonus, which cannot fail validation.
func mustAddXP(u User, amount int) User {
	next, err := u.AddXP(amount)
	if err != nil {
		panic(err)
	}
	return next
}
