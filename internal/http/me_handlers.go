package httpapi

import (
	"net/http"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.UpdateProfile(r.Context(), s.DB, CurrentUserID(r), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"user": buildUserDTO(user)})
}

func (s *Server) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.RefreshUserStats(r.Context(), s.DB, CurrentUserID(r), s.Now())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req DeleteAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := services.DeleteAccount(r.Context(), s.DB, s.Tokens, s.Billing, s.Entitlements, CurrentUserID(r), req.Password); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (s *Server) UserAchievements(w http.ResponseWriter, r *http.Request) {
	items, err := services.UserAchievements(r.Context(), s.DB, CurrentUserID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	out := make([]AchievementDTO, 0, len(items))
	for _, item := range items {
		dto := buildAchievementDTO(item.Achievement)
		unlockedAt := item.UnlockedAt
		dto.UnlockedAt = &unlockedAt
		out = append(out, dto)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"achievements": out})
}

func (s *Server) AchievementCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := services.AchievementCatalog(r.Context(), s.DB)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"achievements": buildAchievementDTOs(items)})
}

// MediaContent streams one of the caller's stored uploads.
func (s *Server) MediaContent(w http.ResponseWriter, r *http.Request) {
	var asset models.MediaAsset
	err := db.Get(r.Context(), s.DB, &asset, `SELECT id, owner_user_id, bucket, storage_key, filename, content_type, size_bytes, sha256, created_at
FROM media_assets WHERE id = ? AND owner_user_id = ?`, chi.URLParam(r, "assetId"), CurrentUserID(r))
	if err != nil {
		if db.IsNotFound(err) {
			WriteError(w, http.StatusNotFound, "Media not found")
			return
		}
		WriteServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "inline; filename=\""+asset.Filename+"\"")
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("ETag", "\""+asset.SHA256+"\"")
	http.ServeFile(w, r, services.MediaAssetPath(s.Config.MediaStoragePath, asset))
}
