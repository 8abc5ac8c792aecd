package httpapi

import (
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type RateWorkoutRequest struct {
	Rating int `json:"rating"`
}

type PagedWorkoutsResponse struct {
	Workouts   []WorkoutDTO        `json:"workouts"`
	Pagination services.Pagination `json:"pagination"`
}

type PagedSessionsResponse struct {
	Sessions   []SessionDTO        `json:"sessions"`
	Pagination services.Pagination `json:"pagination"`
}

type CompletedSessionResponse struct {
	Session      SessionDTO       `json:"session"`
	Stats        interface{}      `json:"stats"`
	Achievements []AchievementDTO `json:"achievements"`
}

func (s *Server) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.WorkoutFilter{
		Category:   strings.TrimSpace(query.Get("category")),
		Difficulty: strings.TrimSpace(query.Get("difficulty")),
		Page:       services.NewPagination(parseInt(query.Get("page"), 1), parseInt(query.Get("limit"), 10), 10, 100),
	}
	items, page, err := services.ListWorkouts(r.Context(), s.DB, CurrentUserID(r), filter)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, PagedWorkoutsResponse{Workouts: buildWorkoutDTOs(items), Pagination: page})
}

func (s *Server) CreateWorkout(w http.ResponseWriter, r *http.Request) {
	var req services.WorkoutInput
	if !decodeJSON(w, r, &req) {
		return
	}
	detail, err := services.CreateWorkout(r.Context(), s.DB, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"workout": buildWorkoutDetailDTO(detail)})
}

func (s *Server) GetWorkout(w http.ResponseWriter, r *http.Request) {
	detail, err := services.GetWorkout(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"workout": buildWorkoutDetailDTO(detail)})
}

func (s *Server) RateWorkout(w http.ResponseWriter, r *http.Request) {
	var req RateWorkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	workout, err := services.RateWorkout(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "id"), req.Rating)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"workout": buildWorkoutDTO(workout)})
}

func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	userID := CurrentUserID(r)
	session, err := services.StartSession(r.Context(), s.DB, userID, chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	dto := buildSessionDTO(session)
	s.Live.Publish(userID, services.LiveSessionStarted, dto)
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"session": dto})
}

func (s *Server) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req services.CompleteSessionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := CurrentUserID(r)
	out, err := services.CompleteSession(r.Context(), s.DB, s.Bus, userID, chi.URLParam(r, "id"), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	s.Metrics.CounterSessionsCompleted.Inc()
	resp := CompletedSessionResponse{
		Session:      buildSessionDTO(out.Session),
		Stats:        out.Stats,
		Achievements: buildAchievementDTOs(out.Unlocked),
	}
	s.Live.Publish(userID, services.LiveSessionCompleted, resp.Session)
	for _, a := range resp.Achievements {
		s.Live.Publish(userID, services.LiveAchievement, a)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) SessionHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := services.NewPagination(parseInt(query.Get("page"), 1), parseInt(query.Get("limit"), 20), 20, 100)
	items, page, err := services.SessionHistory(r.Context(), s.DB, CurrentUserID(r), page)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	out := make([]SessionDTO, 0, len(items))
	for _, item := range items {
		dto := buildSessionDTO(item.WorkoutSession)
		dto.Workout = &WorkoutBrief{
			Name:       item.WorkoutName,
			Category:   item.WorkoutCategory,
			Difficulty: item.WorkoutDifficulty,
			Duration:   item.WorkoutDuration,
		}
		out = append(out, dto)
	}
	WriteJSON(w, http.StatusOK, PagedSessionsResponse{Sessions: out, Pagination: page})
}

func (s *Server) RecordSet(w http.ResponseWriter, r *http.Request) {
	var req services.RecordSetInput
	if !decodeJSON(w, r, &req) {
		return
	}
	set, err := services.RecordSet(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"set": buildSetDTO(set)})
}

func (s *Server) CompleteSet(w http.ResponseWriter, r *http.Request) {
	var req services.CompleteSetInput
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := CurrentUserID(r)
	set, err := services.CompleteSet(r.Context(), s.DB, userID, chi.URLParam(r, "id"), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	dto := buildSetDTO(set)
	s.Live.Publish(userID, services.LiveSetCompleted, dto)
	WriteJSON(w, http.StatusOK, map[string]interface{}{"set": dto})
}
