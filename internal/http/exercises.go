package httpapi

import (
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type PagedExercisesResponse struct {
	Exercises  []ExerciseDTO       `json:"exercises"`
	Pagination services.Pagination `json:"pagination"`
}

func (s *Server) ListExercises(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.ExerciseFilter{
		Category:     strings.TrimSpace(query.Get("category")),
		Difficulty:   strings.TrimSpace(query.Get("difficulty")),
		TargetMuscle: strings.TrimSpace(query.Get("targetMuscle")),
		Equipment:    strings.TrimSpace(query.Get("equipment")),
		Search:       query.Get("search"),
		Page:         services.NewPagination(parseInt(query.Get("page"), 1), parseInt(query.Get("limit"), 20), 20, 50),
	}
	items, page, err := services.ListExercises(r.Context(), s.DB, filter)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	out := make([]ExerciseDTO, 0, len(items))
	for _, e := range items {
		out = append(out, buildExerciseDTO(e))
	}
	WriteJSON(w, http.StatusOK, PagedExercisesResponse{Exercises: out, Pagination: page})
}

func (s *Server) ExerciseCategories(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": services.ExerciseCategories})
}

func (s *Server) MuscleGroups(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"muscleGroups": services.MuscleGroups})
}

func (s *Server) GetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := services.GetExercise(r.Context(), s.DB, chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"exercise": buildExerciseDTO(ex)})
}

func (s *Server) CreateExercise(w http.ResponseWriter, r *http.Request) {
	if !s.canManageExercises(w, r) {
		return
	}
	var req services.ExerciseInput
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, err := services.CreateExercise(r.Context(), s.DB, req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"exercise": buildExerciseDTO(ex)})
}

func (s *Server) UpdateExercise(w http.ResponseWriter, r *http.Request) {
	if !s.canManageExercises(w, r) {
		return
	}
	var req services.ExerciseInput
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, err := services.UpdateExercise(r.Context(), s.DB, chi.URLParam(r, "id"), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"exercise": buildExerciseDTO(ex)})
}

// canManageExercises admits admins and approved trainers.
func (s *Server) canManageExercises(w http.ResponseWriter, r *http.Request) bool {
	ok, err := services.CanManageExercises(r.Context(), s.DB, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return false
	}
	if !ok {
		WriteError(w, http.StatusForbidden, "Insufficient permissions")
		return false
	}
	return true
}

