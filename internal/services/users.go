package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const userColumns = `id, email, password_hash, first_name, last_name, avatar_url, date_of_birth, gender,
height_cm, weight_kg, fitness_level, role, subscription_status, stripe_customer_id, preferences, stats,
is_active, last_login_at, created_at, updated_at`

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func RegisterUser(ctx context.Context, q sqlx.ExtContext, tokens TokenService, in RegisterInput) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	v := Violations{}
	Required("email", email, v)
	if email != "" && !strings.Contains(email, "@") {
		v.Add("email", "must be a valid email address")
	}
	if len(in.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	LengthBetween("firstName", in.FirstName, 1, 50, v)
	LengthBetween("lastName", in.LastName, 1, 50, v)
	if err := v.Err(); err != nil {
		return models.User{}, err
	}

	var exists bool
	if err := db.Get(ctx, q, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email); err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrConflict("User already exists with this email")
	}
	hash, err := tokens.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	now := time.Now().UTC()
	user := models.User{
		ID:                 uuid.NewString(),
		Email:              email,
		PasswordHash:       hash,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		FitnessLevel:       "beginner",
		Role:               models.RoleFree,
		SubscriptionStatus: models.SubscriptionInactive,
		Preferences:        models.DefaultPreferences(),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := InsertUser(ctx, q, user); err != nil {
		if db.IsUniqueViolation(err) {
			return models.User{}, ErrConflict("User already exists with this email")
		}
		return models.User{}, err
	}
	return user, nil
}

func InsertUser(ctx context.Context, q sqlx.ExtContext, user models.User) error {
	_, err := db.Exec(ctx, q, `
INSERT INTO users (id, email, password_hash, first_name, last_name, fitness_level, role, subscription_status,
                   preferences, stats, is_active, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.FitnessLevel, user.Role,
		user.SubscriptionStatus, user.Preferences, user.Stats, user.IsActive, user.CreatedAt, user.UpdatedAt)
	return err
}

// Authenticate checks credentials. Unknown emails and bad passwords look the same to the caller.
func Authenticate(ctx context.Context, q sqlx.ExtContext, tokens TokenService, email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	var user models.User
	if err := db.Get(ctx, q, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		if db.IsNotFound(err) {
			return models.User{}, ErrUnauthorized("Invalid credentials")
		}
		return models.User{}, err
	}
	if !tokens.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return models.User{}, ErrForbidden("Account is deactivated")
	}
	return user, nil
}

func GetUser(ctx context.Context, q sqlx.ExtContext, userID string) (models.User, error) {
	var user models.User
	if err := db.Get(ctx, q, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID); err != nil {
		if db.IsNotFound(err) {
			return models.User{}, ErrNotFound("User not found")
		}
		return models.User{}, err
	}
	return user, nil
}

// GetActiveUser is GetUser for callers acting on behalf of a signed-in user.
func GetActiveUser(ctx context.Context, q sqlx.ExtContext, userID string) (models.User, error) {
	user, err := GetUser(ctx, q, userID)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrUnauthorized("Account is deactivated")
	}
	return user, nil
}

func SetLastLogin(ctx context.Context, q sqlx.ExtContext, userID string) error {
	now := time.Now().UTC()
	_, err := db.Exec(ctx, q, `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, now, now, userID)
	return err
}

type GoalsPatch struct {
	PrimaryGoal     *string `json:"primaryGoal"`
	WeeklyWorkouts  *int    `json:"weeklyWorkouts"`
	ExperienceLevel *string `json:"experienceLevel"`
}

type PreferencesPatch struct {
	Units         *string     `json:"units"`
	Notifications *bool       `json:"notifications"`
	VoiceCoaching *bool       `json:"voiceCoaching"`
	FormAnalysis  *bool       `json:"formAnalysis"`
	Goals         *GoalsPatch `json:"goals"`
}

type ProfileUpdate struct {
	FirstName    *string           `json:"firstName"`
	LastName     *string           `json:"lastName"`
	AvatarURL    *string           `json:"avatar"`
	DateOfBirth  *string           `json:"dateOfBirth"`
	Gender       *string           `json:"gender"`
	HeightCm     *decimal.Decimal  `json:"height"`
	WeightKg     *decimal.Decimal  `json:"weight"`
	FitnessLevel *string           `json:"fitnessLevel"`
	Preferences  *PreferencesPatch `json:"preferences"`
}

var (
	fitnessLevels = []string{"beginner", "intermediate", "advanced"}
	genders       = []string{"male", "female", "other", "prefer_not_to_say"}
	unitSystems   = []string{"metric", "imperial"}
)

// UpdateProfile applies the supplied fields; preferences and goals are merged key by key.
func UpdateProfile(ctx context.Context, q sqlx.ExtContext, userID string, upd ProfileUpdate) (models.User, error) {
	user, err := GetActiveUser(ctx, q, userID)
	if err != nil {
		return models.User{}, err
	}
	v := Violations{}
	if upd.FirstName != nil {
		LengthBetween("firstName", *upd.FirstName, 1, 50, v)
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		LengthBetween("lastName", *upd.LastName, 1, 50, v)
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = sql.NullString{String: *upd.AvatarURL, Valid: *upd.AvatarURL != ""}
	}
	if upd.DateOfBirth != nil {
		day := ParseDay("dateOfBirth", *upd.DateOfBirth, v)
		user.DateOfBirth = sql.NullString{String: day, Valid: day != ""}
	}
	if upd.Gender != nil {
		OneOf("gender", *upd.Gender, genders, v)
		user.Gender = sql.NullString{String: *upd.Gender, Valid: true}
	}
	if upd.HeightCm != nil {
		PositiveDecimal("height", *upd.HeightCm, v)
		user.HeightCm = decimal.NullDecimal{Decimal: *upd.HeightCm, Valid: true}
	}
	if upd.WeightKg != nil {
		PositiveDecimal("weight", *upd.WeightKg, v)
		user.WeightKg = decimal.NullDecimal{Decimal: *upd.WeightKg, Valid: true}
	}
	if upd.FitnessLevel != nil {
		OneOf("fitnessLevel", *upd.FitnessLevel, fitnessLevels, v)
		user.FitnessLevel = *upd.FitnessLevel
	}
	if p := upd.Preferences; p != nil {
		if p.Units != nil {
			OneOf("preferences.units", *p.Units, unitSystems, v)
			user.Preferences.Units = *p.Units
		}
		if p.Notifications != nil {
			user.Preferences.Notifications = *p.Notifications
		}
		if p.VoiceCoaching != nil {
			user.Preferences.VoiceCoaching = *p.VoiceCoaching
		}
		if p.FormAnalysis != nil {
			user.Preferences.FormAnalysis = *p.FormAnalysis
		}
		if g := p.Goals; g != nil {
			if g.PrimaryGoal != nil {
				user.Preferences.Goals.PrimaryGoal = *g.PrimaryGoal
			}
			if g.WeeklyWorkouts != nil {
				RangeInt("preferences.goals.weeklyWorkouts", *g.WeeklyWorkouts, 1, 14, v)
				user.Preferences.Goals.WeeklyWorkouts = *g.WeeklyWorkouts
			}
			if g.ExperienceLevel != nil {
				OneOf("preferences.goals.experienceLevel", *g.ExperienceLevel, fitnessLevels, v)
				user.Preferences.Goals.ExperienceLevel = *g.ExperienceLevel
			}
		}
	}
	if err := v.Err(); err != nil {
		return models.User{}, err
	}
	user.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(ctx, q, `
UPDATE users SET first_name = ?, last_name = ?, avatar_url = ?, date_of_birth = ?, gender = ?,
  height_cm = ?, weight_kg = ?, fitness_level = ?, preferences = ?, updated_at = ?
WHERE id = ?`,
		user.FirstName, user.LastName, user.AvatarURL, user.DateOfBirth, user.Gender,
		user.HeightCm, user.WeightKg, user.FitnessLevel, user.Preferences, user.UpdatedAt, user.ID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// DeleteAccount verifies the password, cancels any paid plan at the provider
// and soft-deletes the user.
func DeleteAccount(ctx context.Context, database *sqlx.DB, tokens TokenService, billing BillingGateway, ent *Entitlements, userID, password string) error {
	user, err := GetActiveUser(ctx, database, userID)
	if err != nil {
		return err
	}
	if password == "" || !tokens.VerifyPassword(password, user.PasswordHash) {
		return ErrBadRequest("Invalid password")
	}
	sub, err := FindSubscription(ctx, database, userID)
	if err != nil {
		return err
	}
	if sub != nil && IsLiveSubscriptionStatus(sub.Status) && billing != nil {
		if err := billing.CancelNow(ctx, sub.StripeSubscriptionID); err != nil {
			return ErrUpstream("Billing provider unavailable", err)
		}
	}
	err = db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if sub != nil {
			if _, err := db.Exec(ctx, tx, `UPDATE subscriptions SET status = ?, cancel_at_period_end = ?, updated_at = ? WHERE id = ?`,
				models.SubscriptionCanceled, false, now, sub.ID); err != nil {
				return err
			}
		}
		role := user.Role
		if IsPaidTier(role) {
			role = models.RoleFree
		}
		_, err := db.Exec(ctx, tx, `UPDATE users SET is_active = ?, role = ?, subscription_status = ?, updated_at = ? WHERE id = ?`,
			false, role, models.SubscriptionCanceled, now, userID)
		return err
	})
	if err != nil {
		return err
	}
	ent.Invalidate(userID)
	return nil
}

func ListUsers(ctx context.Context, q sqlx.ExtContext, search string, page, pageSize int) ([]models.User, int, error) {
	where := ""
	args := []interface{}{}
	if s := CleanSearchTerm(search); s != "" {
		where = ` WHERE LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?`
		pattern := "%" + strings.ToLower(s) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	var total int
	if err := db.Get(ctx, q, &total, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return nil, 0, err
	}
	users := []models.User{}
	args = append(args, pageSize, (page-1)*pageSize)
	if err := db.Select(ctx, q, &users, `SELECT `+userColumns+` FROM users`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func SetUserActive(ctx context.Context, q sqlx.ExtContext, userID string, active bool) error {
	ok, err := db.ExecOne(ctx, q, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound("User not found")
	}
	return nil
}
