package httpapi

import (
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type PagedUsersResponse struct {
	Items    []UserDTO `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := parseInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseInt(r.URL.Query().Get("pageSize"), 10)
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	users, total, err := services.ListUsers(r.Context(), s.DB, search, page, pageSize)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	items := make([]UserDTO, 0, len(users))
	for _, u := range users {
		items = append(items, buildUserDTO(u))
	}
	WriteJSON(w, http.StatusOK, PagedUsersResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (s *Server) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, false)
}

func (s *Server) ReactivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, true)
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request, active bool) {
	userID := chi.URLParam(r, "userId")
	if userID == CurrentUserID(r) {
		WriteError(w, http.StatusBadRequest, "You cannot change your own account status")
		return
	}
	if err := services.SetUserActive(r.Context(), s.DB, userID, active); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	s.Entitlements.Invalidate(userID)
	log.Infof("admin %s set user %s active=%t", CurrentUserID(r), userID, active)
	w.WriteHeader(http.StatusNoContent)
}

type MetricsHistoryResponse struct {
	Items []services.HostSample `json:"items"`
}

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 120)
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	items, err := services.LatestHostSamples(r.Context(), s.DB, limit)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MetricsHistoryResponse{Items: items})
}
