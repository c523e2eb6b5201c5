// Package catalog loads course structure, lesson requirements and quizzes
// from YAML files validated against an embedded JSON Schema.
package catalog

import (
	_ "embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

//go:embed schema/course.schema.json
var courseSchema []byte

// Loader loads and caches the course catalog from the filesystem.
type Loader struct {
	rootDir      string
	schema       *gojsonschema.Schema
	courses      map[string]progress.Course
	requirements map[string]progress.Requirements
	quizzes      map[string]progress.Quiz
	mu           sync.RWMutex
}

// NewLoader creates a new catalog loader and loads every course file under
// rootDir. A file that fails validation fails the whole load.
func NewLoader(rootDir string) (*Loader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(courseSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling course schema: %w", err)
	}

	l := &Loader{
		rootDir: rootDir,
		schema:  schema,
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rereads the catalog. On error the previously loaded content is kept.
func (l *Loader) Reload() error {
	next := &loadState{
		courses:      make(map[string]progress.Course),
		requirements: make(map[string]progress.Requirements),
		quizzes:      make(map[string]progress.Quiz),
		lessonOwner:  make(map[string]string),
	}

	err := filepath.WalkDir(l.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		return l.loadFile(path, next)
	})
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	l.mu.Lock()
	l.courses = next.courses
	l.requirements = next.requirements
	l.quizzes = next.quizzes
	l.mu.Unlock()

	slog.Info("catalog loaded",
		"path", l.rootDir,
		"courses", len(next.courses),
		"quizzes", len(next.quizzes),
	)
	return nil
}

// Course returns a course structure by ID. Lessons carry no user progress.
func (l *Loader) Course(id string) (progress.Course, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.courses[id]
	if !ok {
		return progress.Course{}, false
	}
	return cloneCourse(c), true
}

// Courses returns all loaded courses ordered by ID.
func (l *Loader) Courses() []progress.Course {
	l.mu.RLock()
	defer l.mu.RUnlock()
	courses := make([]progress.Course, 0, len(l.courses))
	for _, c := range l.courses {
		courses = append(courses, cloneCourse(c))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// Requirements returns the configured requirements of a lesson, or the
// defaults when the lesson has none.
func (l *Loader) Requirements(lessonID string) progress.Requirements {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.requirements[lessonID]; ok {
		return r
	}
	return progress.DefaultRequirements(lessonID)
}

// Quiz returns the quiz attached to a lesson.
func (l *Loader) Quiz(lessonID string) (progress.Quiz, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.quizzes[lessonID]
	return q, ok
}

type loadState struct {
	courses      map[string]progress.Course
	requirements map[string]progress.Requirements
	quizzes      map[string]progress.Quiz
	lessonOwner  map[string]string // lesson id -> course id
}

func (l *Loader) loadFile(path string, st *loadState) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, ok := raw["course_id"]; !ok {
		slog.Debug("skipping non-course YAML", "path", path)
		return nil
	}

	result, err := l.schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("%s: validating: %w", path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s: invalid course: %s", path, strings.Join(msgs, "; "))
	}

	var doc CourseDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := st.add(doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (st *loadState) add(doc CourseDoc) error {
	if _, dup := st.courses[doc.CourseID]; dup {
		return fmt.Errorf("duplicate course id %q", doc.CourseID)
	}

	course := progress.Course{
		ID:          doc.CourseID,
		Title:       doc.Title,
		Description: doc.Description,
		Modules:     make([]progress.Module, 0, len(doc.Modules)),
	}

	for _, md := range doc.Modules {
		module := progress.Module{ID: md.ID, Title: md.Title}
		for _, ld := range md.Lessons {
			if owner, dup := st.lessonOwner[ld.ID]; dup {
				return fmt.Errorf("lesson id %q already used by course %q", ld.ID, owner)
			}
			st.lessonOwner[ld.ID] = doc.CourseID

			lesson, err := progress.NewLesson(progress.LessonParams{
				ID:              ld.ID,
				Title:           ld.Title,
				DurationSeconds: ld.DurationSeconds,
				HasQuiz:         ld.Quiz != nil,
			})
			if err != nil {
				return err
			}
			module.Lessons = append(module.Lessons, lesson)

			if ld.Requirements != nil {
				r, err := toRequirements(ld.ID, *ld.Requirements)
				if err != nil {
					return fmt.Errorf("lesson %s: %w", ld.ID, err)
				}
				st.requirements[ld.ID] = r
			}
			if ld.Quiz != nil {
				q, err := toQuiz(ld.ID, *ld.Quiz)
				if err != nil {
					return fmt.Errorf("lesson %s: %w", ld.ID, err)
				}
				st.quizzes[ld.ID] = q
			}
		}
		course.Modules = append(course.Modules, module)
	}

	st.courses[course.ID] = course
	return nil
}

func toRequirements(lessonID string, d RequirementsDoc) (progress.Requirements, error) {
	return progress.NewRequirements(progress.RequirementsParams{
		LessonID:                  lessonID,
		VideoRequiredPercent:      d.VideoRequiredPercent,
		TextBlocksRequiredPercent: d.TextBlocksRequiredPercent,
		RequiredPDFs:              d.RequiredPDFs,
		RequiredAudios:            d.RequiredAudios,
		RequiredMaterials:         d.RequiredMaterials,
		MinEvaluationQuestions:    d.MinEvaluationQuestions,
		EvaluationPassingScore:    d.EvaluationPassingScore,
	})
}

func toQuiz(lessonID string, d QuizDoc) (progress.Quiz, error) {
	id := d.ID
	if id == "" {
		id = lessonID + "-quiz"
	}
	q := progress.Quiz{
		ID:           id,
		LessonID:     lessonID,
		Title:        d.Title,
		PassingScore: d.PassingScore,
		Questions:    make([]progress.QuizQuestion, 0, len(d.Questions)),
	}
	for _, qd := range d.Questions {
		question := progress.QuizQuestion{ID: qd.ID, Text: qd.Text, Points: qd.Points}
		for _, od := range qd.Options {
			question.Options = append(question.Options, progress.QuizOption{ID: od.ID, Text: od.Text, Correct: od.Correct})
		}
		q.Questions = append(q.Questions, question)
	}
	return progress.NewQuiz(q)
}

func cloneCourse(c progress.Course) progress.Course {
	modules := make([]progress.Module, len(c.Modules))
	for i, m := range c.Modules {
		m.Lessons = append([]progress.Lesson(nil), m.Lessons...)
		modules[i] = m
	}
	c.Modules = modules
	return c
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
