package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/p-n-ai/pai-progress/internal/learning"
	"github.com/p-n-ai/pai-progress/internal/locale"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/report"
)

// signalsRequest is the wire form of the learner's interaction signals.
type signalsRequest struct {
	VideoProgress  int      `json:"video_progress"`
	TextBlocksRead []string `json:"text_blocks_read"`
	TotalBlocks    int      `json:"total_blocks"`
	PDFsViewed     []string `json:"pdfs_viewed"`
	AudiosPlayed   []string `json:"audios_played"`
}

func (s signalsRequest) toSignals() progress.Signals {
	return progress.Signals{
		VideoProgress:  s.VideoProgress,
		TextBlocksRead: s.TextBlocksRead,
		TotalBlocks:    s.TotalBlocks,
		PDFsViewed:     s.PDFsViewed,
		AudiosPlayed:   s.AudiosPlayed,
	}
}

func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var in learning.WatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.RecordWatchTime(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := locale.Printer(r.Header.Get("Accept-Language"))
	res.Unlocked = locale.Achievements(p, res.Unlocked)
	res.User.Achievements = locale.Achievements(p, res.User.Achievements)
	writeJSON(w, http.StatusOK, res)
}

type quizRequest struct {
	UserID   string            `json:"user_id"`
	CourseID string            `json:"course_id"`
	LessonID string            `json:"lesson_id"`
	Answers  map[string]string `json:"answers"`
	Signals  signalsRequest    `json:"signals"`
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.svc.SubmitQuiz(r.Context(), learning.QuizInput{
		UserID:   req.UserID,
		CourseID: req.CourseID,
		LessonID: req.LessonID,
		Answers:  req.Answers,
		Signals:  req.Signals.toSignals(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

type requirementsResponse struct {
	LessonID                  string   `json:"lesson_id"`
	VideoRequiredPercent      int      `json:"video_required_percent"`
	TextBlocksRequiredPercent int      `json:"text_blocks_required_percent"`
	RequiredPDFs              []string `json:"required_pdfs"`
	RequiredAudios            []string `json:"required_audios"`
	RequiredMaterials         []string `json:"required_materials"`
	MinEvaluationQuestions    int      `json:"min_evaluation_questions"`
	EvaluationPassingScore    int      `json:"evaluation_passing_score"`
	Checklist                 []string `json:"checklist"`
}

func (s *Server) handleGetRequirements(w http.ResponseWriter, r *http.Request) {
	req := s.svc.Requirements(r.PathValue("lessonID"))
	p := locale.Printer(r.Header.Get("Accept-Language"))

	writeJSON(w, http.StatusOK, requirementsResponse{
		LessonID:                  req.LessonID(),
		VideoRequiredPercent:      req.VideoRequiredPercent(),
		TextBlocksRequiredPercent: req.TextBlocksRequiredPercent(),
		RequiredPDFs:              nonNil(req.RequiredPDFs()),
		RequiredAudios:            nonNil(req.RequiredAudios()),
		RequiredMaterials:         nonNil(req.RequiredMaterials()),
		MinEvaluationQuestions:    req.MinEvaluationQuestions(),
		EvaluationPassingScore:    req.EvaluationPassingScore(),
		Checklist:                 nonNil(locale.Describe(p, req)),
	})
}

type checkRequest struct {
	UserID   string         `json:"user_id"`
	CourseID string         `json:"course_id"`
	Signals  signalsRequest `json:"signals"`
}

func (s *Server) handleCheckRequirements(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	eval, err := s.svc.CheckRequirements(r.Context(), learning.RequirementsInput{
		UserID:   req.UserID,
		CourseID: req.CourseID,
		LessonID: r.PathValue("lessonID"),
		Signals:  req.Signals.toSignals(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := locale.Printer(r.Header.Get("Accept-Language"))
	writeJSON(w, http.StatusOK, locale.Evaluation(p, eval))
}

type profileResponse struct {
	progress.UserSnapshot
	XPToNextLevel int `json:"xp_to_next_level"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.User(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := locale.Printer(r.Header.Get("Accept-Language"))
	snap := u.Snapshot()
	snap.Achievements = locale.Achievements(p, snap.Achievements)
	writeJSON(w, http.StatusOK, profileResponse{UserSnapshot: snap, XPToNextLevel: u.XPToNextLevel()})
}

type userRequest struct {
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Role  progress.Role `json:"role"`
}

func (s *Server) handlePutUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role != "" && req.Role != progress.RoleStudent && req.Role != progress.RoleInstructor {
		writeError(w, r, progress.Invalid("api.PutUser", fmt.Sprintf("unknown role %q", req.Role)))
		return
	}

	snap, err := s.svc.RegisterUser(r.Context(), progress.UserParams{
		ID:    r.PathValue("userID"),
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCourseProgress(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.CourseProgress(r.Context(), r.PathValue("courseID"), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID, courseID := r.PathValue("userID"), r.PathValue("courseID")

	u, err := s.svc.User(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	course, err := s.svc.Course(r.Context(), courseID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCourseProgress(&buf, course, u); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, courseID, userID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if _, err := s.svc.User(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	s.gw.ServeUser(w, r, userID)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
