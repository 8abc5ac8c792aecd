package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/services"

	log "github.com/sirupsen/logrus"
)

const multipartMemory = 8 << 20

type FormAnalysisResponse struct {
	Analysis   FormAnalysisDTO `json:"analysis"`
	SetUpdated bool            `json:"setUpdated"`
}

func (s *Server) aiUnavailable(w http.ResponseWriter) bool {
	if s.AI == nil {
		WriteError(w, http.StatusServiceUnavailable, "AI service is not configured")
		return true
	}
	return false
}

func (s *Server) GenerateWorkout(w http.ResponseWriter, r *http.Request) {
	if s.aiUnavailable(w) {
		return
	}
	var req services.GenerateWorkoutInput
	if !decodeJSON(w, r, &req) {
		return
	}
	detail, err := services.GenerateWorkout(r.Context(), s.DB, s.AI, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"workout": buildWorkoutDetailDTO(detail)})
}

func (s *Server) AnalyzeForm(w http.ResponseWriter, r *http.Request) {
	if s.aiUnavailable(w) {
		return
	}
	maxBytes := s.Config.MaxVideoBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Video is too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("video")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Video file is required")
		return
	}
	defer file.Close()

	in := services.FormCheckInput{
		ExerciseID:  strings.TrimSpace(r.FormValue("exerciseId")),
		SessionID:   strings.TrimSpace(r.FormValue("sessionId")),
		SetNumber:   parseInt(r.FormValue("setNumber"), 0),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		MaxBytes:    maxBytes,
		Video:       file,
	}
	out, err := services.AnalyzeForm(r.Context(), s.DB, s.AI, s.Config.MediaStoragePath, CurrentUserID(r), in)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	log.Debugf("form analysis %s scored %d", out.Analysis.ID, out.Analysis.OverallScore)
	WriteJSON(w, http.StatusOK, FormAnalysisResponse{Analysis: buildFormAnalysisDTO(out.Analysis), SetUpdated: out.SetUpdated})
}

func (s *Server) CoachingFeedback(w http.ResponseWriter, r *http.Request) {
	if s.aiUnavailable(w) {
		return
	}
	var req services.CoachingInput
	if !decodeJSON(w, r, &req) {
		return
	}
	feedback, err := services.CoachingFeedback(r.Context(), s.DB, s.AI, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"feedback": feedback})
}

func (s *Server) PredictProgress(w http.ResponseWriter, r *http.Request) {
	if s.aiUnavailable(w) {
		return
	}
	prediction, err := services.PredictProgress(r.Context(), s.DB, s.AI, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"prediction": prediction})
}
