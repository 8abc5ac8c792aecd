package httpapi

import (
	"io"
	"net/http"

	"fitcoach-backend-go/internal/services"

	log "github.com/sirupsen/logrus"
)

const maxWebhookBytes = 1 << 20

// StripeWebhook verifies the signature and mirrors the event. Verified events
// are always acknowledged so the provider does not retry duplicates or stale ones.
func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	ev, err := s.ParseWebhook(payload, r.Header.Get("Stripe-Signature"), s.Config.StripeWebhookSecret)
	if err != nil {
		log.Warnf("stripe webhook rejected: %s", err)
		WriteError(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}
	outcome, err := services.ApplyBillingEvent(r.Context(), s.DB, s.Entitlements, s.Bus, ev)
	if err != nil {
		s.Metrics.CounterBillingEvents.WithLabelValues("error").Inc()
		WriteServiceError(w, r, err)
		return
	}
	s.Metrics.CounterBillingEvents.WithLabelValues(string(outcome)).Inc()
	log.Debugf("stripe event %s (%s): %s", ev.ID, ev.Type, outcome)
	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
