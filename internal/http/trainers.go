package httpapi

import (
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type ReviewTrainerRequest struct {
	Decision string `json:"decision"`
}

type PagedTrainersResponse struct {
	Trainers   []TrainerDTO        `json:"trainers"`
	Pagination services.Pagination `json:"pagination"`
}

func (s *Server) ListTrainers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.TrainerFilter{
		Specialty: strings.TrimSpace(query.Get("specialty")),
		MinRate:   parseDecimal(query.Get("minRate")),
		MaxRate:   parseDecimal(query.Get("maxRate")),
		Location:  strings.TrimSpace(query.Get("location")),
		MinRating: parseDecimal(query.Get("minRating")),
		Page:      services.NewPagination(parseInt(query.Get("page"), 1), parseInt(query.Get("limit"), 12), 12, 50),
	}
	items, page, err := services.ListTrainers(r.Context(), s.DB, filter)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, PagedTrainersResponse{Trainers: buildTrainerListingDTOs(items), Pagination: page})
}

func (s *Server) FeaturedTrainers(w http.ResponseWriter, r *http.Request) {
	items, err := services.FeaturedTrainers(r.Context(), s.DB)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"trainers": buildTrainerListingDTOs(items)})
}

func (s *Server) GetTrainer(w http.ResponseWriter, r *http.Request) {
	trainer, err := services.GetTrainer(r.Context(), s.DB, chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"trainer": buildTrainerListingDTO(trainer)})
}

func (s *Server) TrainerWorkouts(w http.ResponseWriter, r *http.Request) {
	items, err := services.TrainerWorkouts(r.Context(), s.DB, chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"workouts": buildWorkoutDTOs(items)})
}

func (s *Server) ApplyAsTrainer(w http.ResponseWriter, r *http.Request) {
	var req services.TrainerApplication
	if !decodeJSON(w, r, &req) {
		return
	}
	trainer, err := services.ApplyAsTrainer(r.Context(), s.DB, s.Bus, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"trainer": buildTrainerDTO(trainer)})
}

func (s *Server) UpdateTrainerProfile(w http.ResponseWriter, r *http.Request) {
	var req services.TrainerProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	trainer, err := services.UpdateTrainerProfile(r.Context(), s.DB, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"trainer": buildTrainerDTO(trainer)})
}

func (s *Server) TrainerEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := services.GetTrainerEarnings(r.Context(), s.DB, CurrentUserID(r), s.Now())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"earnings": earnings})
}

func (s *Server) BookSession(w http.ResponseWriter, r *http.Request) {
	var req services.BookingInput
	if !decodeJSON(w, r, &req) {
		return
	}
	booking, err := services.BookSession(r.Context(), s.DB, s.Bus, CurrentUserID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"booking": buildBookingDTO(booking)})
}

func (s *Server) ReviewTrainer(w http.ResponseWriter, r *http.Request) {
	var req ReviewTrainerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trainer, err := services.ReviewTrainer(r.Context(), s.DB, chi.URLParam(r, "id"), strings.TrimSpace(req.Decision))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if trainer.ApplicationStatus == models.ApplicationApproved {
		s.Entitlements.Invalidate(trainer.UserID)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"trainer": buildTrainerDTO(trainer)})
}
