package httpapi

import (
	"time"

	"fitcoach-backend-go/internal/models"

	"github.com/shopspring/decimal"
)

type UserDTO struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	Avatar             *string            `json:"avatar,omitempty"`
	DateOfBirth        *string            `json:"dateOfBirth,omitempty"`
	Gender             *string            `json:"gender,omitempty"`
	Height             *decimal.Decimal   `json:"height,omitempty"`
	Weight             *decimal.Decimal   `json:"weight,omitempty"`
	FitnessLevel       string             `json:"fitnessLevel"`
	Role               string             `json:"role"`
	SubscriptionStatus string             `json:"subscriptionStatus"`
	Preferences        models.Preferences `json:"preferences"`
	Stats              models.UserStats   `json:"stats"`
	IsActive           bool               `json:"isActive"`
	LastLoginAt        *time.Time         `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

func buildUserDTO(u models.User) UserDTO {
	dto := UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		FitnessLevel:       u.FitnessLevel,
		Role:               u.Role,
		SubscriptionStatus: u.SubscriptionStatus,
		Preferences:        u.Preferences,
		Stats:              u.Stats,
		IsActive:           u.IsActive,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
	if u.AvatarURL.Valid {
		dto.Avatar = &u.AvatarURL.String
	}
	if u.DateOfBirth.Valid {
		dto.DateOfBirth = &u.DateOfBirth.String
	}
	if u.Gender.Valid {
		dto.Gender = &u.Gender.String
	}
	if u.HeightCm.Valid {
		dto.Height = &u.HeightCm.Decimal
	}
	if u.WeightKg.Valid {
		dto.Weight = &u.WeightKg.Decimal
	}
	return dto
}

type AchievementDTO struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Rarity      string         `json:"rarity"`
	Icon        string         `json:"icon,omitempty"`
	Criteria    models.RawJSON `json:"criteria"`
	Points      int            `json:"points"`
	UnlockedAt  *time.Time     `json:"unlockedAt,omitempty"`
}

func buildAchievementDTO(a models.Achievement) AchievementDTO {
	return AchievementDTO{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Category:    a.Category,
		Rarity:      a.Rarity,
		Icon:        a.Icon.String,
		Criteria:    a.Criteria,
		Points:      a.Points,
	}
}

func buildAchievementDTOs(items []models.Achievement) []AchievementDTO {
	out := make([]AchievementDTO, 0, len(items))
	for _, a := range items {
		out = append(out, buildAchievementDTO(a))
	}
	return out
}
