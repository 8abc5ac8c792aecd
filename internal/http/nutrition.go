package httpapi

import (
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type WaterIntakeRequest struct {
	WaterIntake int `json:"waterIntake"`
}

type WaterIntakeResponse struct {
	Date        string `json:"date"`
	WaterIntake int    `json:"waterIntake"`
}

type AddMealResponse struct {
	Meal        MealDTO       `json:"meal"`
	DailyTotals models.Macros `json:"dailyTotals"`
}

func (s *Server) DailyLog(w http.ResponseWriter, r *http.Request) {
	log, err := services.GetOrCreateDailyLog(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "date"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"log": buildDailyLogDTO(log)})
}

func (s *Server) AddMeal(w http.ResponseWriter, r *http.Request) {
	var req services.AddMealInput
	if !decodeJSON(w, r, &req) {
		return
	}
	log, meal, err := services.AddMeal(r.Context(), s.DB, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, AddMealResponse{Meal: buildMealDTO(meal), DailyTotals: log.Macros})
}

func (s *Server) SetWaterIntake(w http.ResponseWriter, r *http.Request) {
	var req WaterIntakeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	log, err := services.SetWaterIntake(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "date"), req.WaterIntake)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, WaterIntakeResponse{Date: log.Date, WaterIntake: log.WaterIntake})
}

func (s *Server) SearchFoods(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	foods, err := services.SearchFoods(r.Context(), s.Foods, strings.TrimSpace(query.Get("q")), parseInt(query.Get("limit"), 20))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"foods": foods})
}

func (s *Server) NutritionAnalytics(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("days"), 7)
	out, err := services.GetNutritionAnalytics(r.Context(), s.DB, CurrentUserID(r), days, s.Now())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
