package httpapi

import (
	"net/http"

	"fitcoach-backend-go/internal/services"
)

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	userID := CurrentUserID(r)
	if services.IsAdvancedTimeframe(timeframe) {
		ok, err := s.Entitlements.HasFeature(r.Context(), s.DB, userID, services.FeatureAdvancedAnalytics)
		if err != nil {
			WriteServiceError(w, r, err)
			return
		}
		if !ok {
			WriteError(w, http.StatusForbidden, "Feature not available in your plan: "+services.FeatureAdvancedAnalytics)
			return
		}
	}
	out, err := services.GetDashboard(r.Context(), s.DB, userID, timeframe, s.Now())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) AdminAnalytics(w http.ResponseWriter, r *http.Request) {
	out, err := services.GetAdminAnalytics(r.Context(), s.DB, r.URL.Query().Get("timeframe"), s.Now())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) TrainerAnalytics(w http.ResponseWriter, r *http.Request) {
	out, err := services.GetTrainerAnalytics(r.Context(), s.DB, CurrentUserID(r), r.URL.Query().Get("timeframe"), s.Now())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
