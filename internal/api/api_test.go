package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-progress/internal/api"
	"github.com/p-n-ai/pai-progress/internal/learning"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

type testCatalog struct{}

func (testCatalog) Requirements(lessonID string) progress.Requirements {
	return progress.DefaultRequirements(lessonID)
}

func (testCatalog) Quiz(lessonID string) (progress.Quiz, bool) {
	if lessonID != "l1" {
		return progress.Quiz{}, false
	}
	return progress.Quiz{
		ID:           "q1",
		LessonID:     "l1",
		PassingScore: 50,
		Questions: []progress.QuizQuestion{
			{ID: "a", Points: 1, Options: []progress.QuizOption{{ID: "yes", Correct: true}, {ID: "no"}}},
		},
	}, true
}

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, checks map[string]api.HealthChecker) *api.Server {
	t.Helper()
	store := learning.NewMemoryStore(learning.StaticCourses{
		"c1": {
			ID:    "c1",
			Title: "Course One",
			Modules: []progress.Module{
				{ID: "m1", Lessons: []progress.Lesson{{ID: "l1", Title: "Lesson One", DurationSeconds: 100}}},
			},
		},
	})
	svc := learning.NewService(learning.ServiceConfig{Repository: store, Catalog: testCatalog{}})
	return api.NewServer(api.Config{Service: svc, Checks: checks})
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func register(t *testing.T, h http.Handler, userID string) {
	t.Helper()
	rec := do(t, h, http.MethodPut, "/v1/users/"+userID, `{"name":"Ana","email":"ana@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT user status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	srv := newTestServer(t, map[string]api.HealthChecker{
		"database": checkFunc(func(context.Context) error { return nil }),
		"cache":    checkFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := do(t, srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Failed map[string]string `json:"failed"`
	}
	decode(t, rec, &body)
	if _, ok := body.Failed["cache"]; !ok || len(body.Failed) != 1 {
		t.Errorf("failed = %v, want only cache", body.Failed)
	}
}

func TestUsers(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "u1")

	rec := do(t, srv, http.MethodGet, "/v1/users/u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var profile struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		XP            int    `json:"xp"`
		Level         int    `json:"level"`
		XPToNextLevel int    `json:"xp_to_next_level"`
	}
	decode(t, rec, &profile)
	if profile.ID != "u1" || profile.Name != "Ana" || profile.Level != 1 || profile.XPToNextLevel != 1000 {
		t.Errorf("profile = %+v", profile)
	}

	if rec := do(t, srv, http.MethodGet, "/v1/users/ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodPut, "/v1/users/u2", `{"role":"ADMIN"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad role status = %d, want 400", rec.Code)
	}
}

func TestRecordProgress(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "u1")

	rec := do(t, srv, http.MethodPost, "/v1/progress",
		`{"user_id":"u1","course_id":"c1","lesson_id":"l1","watched_seconds":95}`,
		"Accept-Language", "pt-BR")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var res struct {
		BecameCompleted bool `json:"became_completed"`
		CourseProgress  int  `json:"course_progress"`
		User            struct {
			XP int `json:"xp"`
		} `json:"user"`
		Unlocked []progress.Achievement `json:"unlocked"`
	}
	decode(t, rec, &res)
	if !res.BecameCompleted || res.User.XP != 650 || res.CourseProgress != 100 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Unlocked) != 3 || res.Unlocked[0].Title != "Primeiro Passo" {
		t.Errorf("unlocked = %+v, want 3 with localized titles", res.Unlocked)
	}
}

func TestRecordProgress_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "u1")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{"user_id":`, http.StatusBadRequest},
		{"unknown field", `{"user_id":"u1","course_id":"c1","lesson_id":"l1","seconds":5}`, http.StatusBadRequest},
		{"negative seconds", `{"user_id":"u1","course_id":"c1","lesson_id":"l1","watched_seconds":-1}`, http.StatusBadRequest},
		{"unknown user", `{"user_id":"ghost","course_id":"c1","lesson_id":"l1","watched_seconds":5}`, http.StatusNotFound},
		{"unknown lesson", `{"user_id":"u1","course_id":"c1","lesson_id":"l9","watched_seconds":5}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/progress", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var body struct {
				Error string `json:"error"`
			}
			decode(t, rec, &body)
			if body.Error == "" {
				t.Error("error body is empty")
			}
		})
	}
}

func TestRequirements(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "u1")

	rec := do(t, srv, http.MethodGet, "/v1/lessons/l1/requirements", "", "Accept-Language", "ms")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var req struct {
		VideoRequiredPercent int      `json:"video_required_percent"`
		RequiredPDFs         []string `json:"required_pdfs"`
		Checklist            []string `json:"checklist"`
	}
	decode(t, rec, &req)
	if req.VideoRequiredPercent != 90 || req.RequiredPDFs == nil || len(req.Checklist) != 1 || req.Checklist[0] != "Tonton 90% video" {
		t.Errorf("requirements = %+v", req)
	}

	rec = do(t, srv, http.MethodPost, "/v1/lessons/l1/requirements/check", `{"user_id":"u1","course_id":"c1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d, body %s", rec.Code, rec.Body.String())
	}
	var eval progress.Evaluation
	decode(t, rec, &eval)
	if eval.Meets || len(eval.Missing) != 1 || eval.Missing[0].Message != "Video: 0% / 90% required" {
		t.Errorf("evaluation = %+v", eval)
	}
}

func TestSubmitQuiz(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "u1")
	body := `{"user_id":"u1","course_id":"c1","lesson_id":"l1","answers":{"a":"yes"}}`

	if rec := do(t, srv, http.MethodPost, "/v1/quiz-attempts", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("gated submit status = %d, want 400", rec.Code)
	}

	if rec := do(t, srv, http.MethodPost, "/v1/progress", `{"user_id":"u1","course_id":"c1","lesson_id":"l1","watched_seconds":100}`); rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}

	rec := do(t, srv, http.MethodPost, "/v1/quiz-attempts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Attempt struct {
			Attempt int                 `json:"attempt"`
			Result  progress.QuizResult `json:"result"`
		} `json:"attempt"`
		Lesson struct {
			TrulyCompleted bool `json:"truly_completed"`
		} `json:"lesson"`
	}
	decode(t, rec, &out)
	if out.Attempt.Attempt != 1 || !out.Attempt.Result.Passed || !out.Lesson.TrulyCompleted {
		t.Errorf("outcome = %+v", out)
	}
}

func TestCourseProgressAndReport(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "u1")
	do(t, srv, http.MethodPost, "/v1/progress", `{"user_id":"u1","course_id":"c1","lesson_id":"l1","watched_seconds":100}`)

	rec := do(t, srv, http.MethodGet, "/v1/users/u1/courses/c1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view learning.CourseView
	decode(t, rec, &view)
	if view.Percentage != 100 || !view.Completed {
		t.Errorf("view = %+v", view)
	}

	rec = do(t, srv, http.MethodGet, "/v1/users/u1/courses/c1/report.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Progress", "B2"); v != "l1" {
		t.Errorf("B2 = %q, want l1", v)
	}

	if rec := do(t, srv, http.MethodGet, "/v1/users/u1/courses/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown course status = %d, want 404", rec.Code)
	}
}

// brokenRepo fails user reads with an infrastructure error.
type brokenRepo struct{ *learning.MemoryStore }

func (brokenRepo) GetUserByID(context.Context, string) (progress.User, error) {
	return progress.User{}, errors.New("connection reset")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	svc := learning.NewService(learning.ServiceConfig{Repository: brokenRepo{learning.NewMemoryStore(nil)}})
	srv := api.NewServer(api.Config{Service: svc})

	rec := do(t, srv, http.MethodGet, "/v1/users/u1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("body leaks internal error: %s", rec.Body.String())
	}
}

func TestNotificationsRouteRequiresGateway(t *testing.T) {
	srv := newTestServer(t, nil)
	if rec := do(t, srv, http.MethodGet, "/v1/users/u1/notifications", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a gateway", rec.Code)
	}
}
