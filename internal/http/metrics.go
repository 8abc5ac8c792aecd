package httpapi

import (
	"net/http"
	"time"

	"fitcoach-backend-go/internal/services"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveSocket streams the token owner's live session events. Browsers cannot
// set headers on websocket requests, so the access token comes as ?token=.
func (s *Server) LiveSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		WriteError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	claims, err := s.Tokens.Parse(tokenStr, services.TokenTypeAccess)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	if s.Live == nil {
		WriteError(w, http.StatusServiceUnavailable, "Live updates are disabled")
		return
	}
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("live: upgrade failed: %s", err)
		return
	}
	userID := claims.Subject
	s.Live.Add(userID, conn)
	s.Metrics.GaugeLiveConnections.Inc()
	defer func() {
		s.Live.Remove(userID, conn)
		s.Metrics.GaugeLiveConnections.Dec()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
	}
}
