package httpapi

import (
	"net/http"

	"fitcoach-backend-go/internal/services"
)

type CurrentSubscriptionResponse struct {
	Subscription *SubscriptionDTO `json:"subscription"`
	Plan         string           `json:"plan"`
}

type CreateSubscriptionResponse struct {
	Subscription SubscriptionDTO `json:"subscription"`
	ClientSecret string          `json:"clientSecret,omitempty"`
}

func (s *Server) Plans(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"plans": services.Plans()})
}

func (s *Server) CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	current, err := services.GetCurrentSubscription(r.Context(), s.DB, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	resp := CurrentSubscriptionResponse{Plan: current.Plan}
	if current.Subscription != nil {
		dto := buildSubscriptionDTO(*current.Subscription)
		resp.Subscription = &dto
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) Features(w http.ResponseWriter, r *http.Request) {
	set, err := s.Entitlements.Resolve(r.Context(), s.DB, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	out := make(map[string]bool, len(services.AllFeatures))
	for _, feature := range services.AllFeatures {
		out[feature] = set[feature]
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"features": out})
}

func (s *Server) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSubscriptionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := services.CreateSubscription(r.Context(), s.DB, s.Billing, s.Entitlements, s.Bus, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, CreateSubscriptionResponse{
		Subscription: buildSubscriptionDTO(out.Subscription),
		ClientSecret: out.ClientSecret,
	})
}

func (s *Server) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := services.CancelSubscription(r.Context(), s.DB, s.Billing, s.Entitlements, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Subscription will be canceled at the end of the billing period",
		"subscription": buildSubscriptionDTO(sub),
	})
}

func (s *Server) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := services.ReactivateSubscription(r.Context(), s.DB, s.Billing, s.Entitlements, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Subscription reactivated",
		"subscription": buildSubscriptionDTO(sub),
	})
}
