package httpapi

import (
	"net/http"

	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"

	log "github.com/sirupsen/logrus"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresAt    int64    `json:"expiresAt"`
	User         *UserDTO `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) issueTokens(w http.ResponseWriter, r *http.Request, status int, user models.User) {
	pair, err := s.Tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	dto := buildUserDTO(user)
	WriteJSON(w, status, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         &dto,
	})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.RegisterUser(r.Context(), s.DB, s.Tokens, services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	log.Infof("user registered: %s", user.ID)
	s.issueTokens(w, r, http.StatusCreated, user)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.Authenticate(r.Context(), s.DB, s.Tokens, req.Email, req.Password)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if err := services.SetLastLogin(r.Context(), s.DB, user.ID); err != nil {
		log.Warnf("set last login for %s: %s", user.ID, err)
	}
	s.issueTokens(w, r, http.StatusOK, user)
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}
	claims, err := s.Tokens.Parse(req.RefreshToken, services.TokenTypeRefresh)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	user, err := services.GetActiveUser(r.Context(), s.DB, claims.Subject)
	if err != nil {
		if services.IsKind(err, services.KindNotFound) {
			WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		WriteServiceError(w, r, err)
		return
	}
	s.issueTokens(w, r, http.StatusOK, user)
}

// Logout is an acknowledgement only; tokens are stateless and expire on their own.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	WriteJSON(w, http.StatusOK, map[string]interface{}{"user": buildUserDTO(user)})
}
