// Package report exports course progress as XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

// Sheet names of the progress workbook.
const (
	SheetProgress     = "Progress"
	SheetAchievements = "Achievements"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	progressHeader    = []any{"Module", "Lesson", "Title", "Watched (s)", "Duration (s)", "Progress (%)", "Completed", "Quiz"}
	achievementHeader = []any{"ID", "Title", "Description", "Unlocked At"}
)

// WriteCourseProgress writes a workbook with one row per lesson of the course
// and one row per achievement of the user, followed by the XP summary.
func WriteCourseProgress(w io.Writer, course progress.Course, user progress.User) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetProgress); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetAchievements); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeProgress(f, course, bold); err != nil {
		return err
	}
	if err := writeAchievements(f, user, bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeProgress(f *excelize.File, course progress.Course, headerStyle int) error {
	if err := setRow(f, SheetProgress, 1, progressHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetProgress, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	row := 2
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			values := []any{m.ID, l.ID, l.Title, l.WatchedSeconds, l.DurationSeconds, l.ProgressPercentage(), yesNo(l.Completed), quizState(l)}
			if err := setRow(f, SheetProgress, row, values); err != nil {
				return err
			}
			row++
		}
	}

	total := []any{"Total", "", course.Title, "", "", course.ProgressPercentage(), fmt.Sprintf("%d/%d", course.CompletedLessons(), course.TotalLessons()), ""}
	if err := setRow(f, SheetProgress, row+1, total); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetProgress, row+1, row+1, headerStyle); err != nil {
		return fmt.Errorf("style total: %w", err)
	}

	return f.SetColWidth(SheetProgress, "A", "C", 24)
}

func writeAchievements(f *excelize.File, user progress.User, headerStyle int) error {
	if err := setRow(f, SheetAchievements, 1, achievementHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetAchievements, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	row := 2
	for _, a := range user.Achievements() {
		values := []any{a.ID, a.Title, a.Description, a.UnlockedAt.UTC().Format(time.RFC3339)}
		if err := setRow(f, SheetAchievements, row, values); err != nil {
			return err
		}
		row++
	}

	summary := [][]any{
		{"User", user.ID},
		{"XP", user.XP()},
		{"Level", user.Level()},
		{"XP to next level", user.XPToNextLevel()},
	}
	for i, values := range summary {
		if err := setRow(f, SheetAchievements, row+1+i, values); err != nil {
			return err
		}
	}

	return f.SetColWidth(SheetAchievements, "A", "C", 28)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func quizState(l progress.Lesson) string {
	switch {
	case !l.HasQuiz:
		return ""
	case l.QuizPassed:
		return "passed"
	default:
		return "pending"
	}
}
