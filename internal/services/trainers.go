package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var SessionTypes = []string{"consultation", "training", "nutrition"}

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCanceled  = "canceled"
)

const trainerColumns = `t.id, t.user_id, t.bio, t.specialties, t.certifications, t.experience, t.hourly_rate, t.location,
t.availability, t.rating, t.review_count, t.client_count, t.total_earnings, t.commission_rate, t.application_status,
t.is_verified, t.is_active, t.languages, t.timezone, t.reviewed_at, t.created_at, t.updated_at`

const bookingColumns = `id, trainer_id, client_id, session_type, scheduled_at, duration, cost, status, notes, created_at`

// TrainerListing is a trainer with the public part of its user.
type TrainerListing struct {
	models.Trainer
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	AvatarURL sql.NullString `db:"avatar_url"`
	Email     string         `db:"email"`
}

const trainerListingSelect = `SELECT ` + trainerColumns + `, u.first_name, u.last_name, u.avatar_url, u.email
FROM trainers t JOIN users u ON u.id = t.user_id`

type TrainerApplication struct {
	Bio            string          `json:"bio"`
	Specialties    []string        `json:"specialties"`
	Experience     int             `json:"experience"`
	HourlyRate     decimal.Decimal `json:"hourlyRate"`
	Location       string          `json:"location"`
	Certifications json.RawMessage `json:"certifications"`
	Availability   json.RawMessage `json:"availability"`
	Languages      []string        `json:"languages"`
	Timezone       string          `json:"timezone"`
}

var minHourlyRate = decimal.NewFromInt(1)

func validateCertifications(raw json.RawMessage, v Violations) {
	var list []json.RawMessage
	if len(raw) == 0 {
		v.Add("certifications", "must be an array")
		return
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		v.Add("certifications", "must be an array")
	}
}

func ApplyAsTrainer(ctx context.Context, q sqlx.ExtContext, bus EventPublisher, userID string, in TrainerApplication) (models.Trainer, error) {
	v := Violations{}
	if len([]rune(strings.TrimSpace(in.Bio))) < 50 {
		v.Add("bio", "must be at least 50 characters")
	}
	in.Specialties = CleanList(in.Specialties, maxListItems)
	in.Languages = CleanList(in.Languages, maxListItems)
	if len(in.Specialties) == 0 {
		v.Add("specialties", "must contain at least one specialty")
	}
	MinInt("experience", in.Experience, 0, v)
	if in.HourlyRate.LessThan(minHourlyRate) {
		v.Add("hourlyRate", "must be at least 1")
	}
	Required("location", in.Location, v)
	validateCertifications(in.Certifications, v)
	if len(in.Availability) > 0 {
		var obj map[string]interface{}
		if err := json.Unmarshal(in.Availability, &obj); err != nil {
			v.Add("availability", "must be an object")
		}
	}
	if err := v.Err(); err != nil {
		return models.Trainer{}, err
	}
	if _, err := GetActiveUser(ctx, q, userID); err != nil {
		return models.Trainer{}, err
	}

	var exists bool
	if err := db.Get(ctx, q, &exists, `SELECT EXISTS(SELECT 1 FROM trainers WHERE user_id = ?)`, userID); err != nil {
		return models.Trainer{}, err
	}
	if exists {
		return models.Trainer{}, ErrConflict("You have already applied to become a trainer")
	}

	now := time.Now().UTC()
	t := models.Trainer{
		ID:                uuid.NewString(),
		UserID:            userID,
		Bio:               strings.TrimSpace(in.Bio),
		Specialties:       in.Specialties,
		Certifications:    models.RawJSON(in.Certifications),
		Experience:        in.Experience,
		HourlyRate:        in.HourlyRate.Round(2),
		Location:          strings.TrimSpace(in.Location),
		Availability:      models.RawJSON(in.Availability),
		Rating:            decimal.Zero,
		TotalEarnings:     decimal.Zero,
		CommissionRate:    decimal.RequireFromString("0.20"),
		ApplicationStatus: models.ApplicationPending,
		IsActive:          true,
		Languages:         in.Languages,
		Timezone:          in.Timezone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if len(t.Availability) == 0 {
		t.Availability = models.RawJSON("{}")
	}
	if len(t.Languages) == 0 {
		t.Languages = models.StringList{"English"}
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}
	_, err := db.Exec(ctx, q, `
INSERT INTO trainers (id, user_id, bio, specialties, certifications, experience, hourly_rate, location, availability,
  rating, review_count, client_count, total_earnings, commission_rate, application_status, is_verified, is_active,
  languages, timezone, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Bio, t.Specialties, t.Certifications, t.Experience, t.HourlyRate, t.Location, t.Availability,
		t.Rating, t.ReviewCount, t.ClientCount, t.TotalEarnings, t.CommissionRate, t.ApplicationStatus, t.IsVerified, t.IsActive,
		t.Languages, t.Timezone, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Trainer{}, ErrConflict("You have already applied to become a trainer")
		}
		return models.Trainer{}, err
	}
	log.Infof("trainer application submitted by user %s", userID)
	publish(ctx, bus, TopicTrainerApplied, map[string]string{"trainerId": t.ID, "userId": userID})
	return t, nil
}

type TrainerFilter struct {
	Specialty string
	MinRate   *decimal.Decimal
	MaxRate   *decimal.Decimal
	Location  string
	MinRating *decimal.Decimal
	Page      Pagination
}

// ListTrainers returns approved, active trainers matching every given filter,
// best rated first.
func ListTrainers(ctx context.Context, q sqlx.ExtContext, f TrainerFilter) ([]TrainerListing, Pagination, error) {
	where := " WHERE t.application_status = ? AND t.is_active = ?"
	args := []interface{}{models.ApplicationApproved, true}
	if f.Specialty != "" {
		where += " AND t.specialties LIKE ?"
		args = append(args, jsonContains(f.Specialty))
	}
	if f.MinRate != nil {
		where += " AND t.hourly_rate >= ?"
		args = append(args, *f.MinRate)
	}
	if f.MaxRate != nil {
		where += " AND t.hourly_rate <= ?"
		args = append(args, *f.MaxRate)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where += " AND LOWER(t.location) LIKE ?"
		args = append(args, "%"+strings.ToLower(loc)+"%")
	}
	if f.MinRating != nil {
		where += " AND t.rating >= ?"
		args = append(args, *f.MinRating)
	}
	var total int
	if err := db.Get(ctx, q, &total, `SELECT COUNT(*) FROM trainers t`+where, args...); err != nil {
		return nil, Pagination{}, err
	}
	items := []TrainerListing{}
	args = append(args, f.Page.Limit, f.Page.Offset())
	if err := db.Select(ctx, q, &items, trainerListingSelect+where+` ORDER BY t.rating DESC, t.review_count DESC, t.created_at
LIMIT ? OFFSET ?`, args...); err != nil {
		return nil, Pagination{}, err
	}
	return items, f.Page.WithTotal(total), nil
}

var featuredMinRating = decimal.RequireFromString("4.5")

func FeaturedTrainers(ctx context.Context, q sqlx.ExtContext) ([]TrainerListing, error) {
	items, _, err := ListTrainers(ctx, q, TrainerFilter{MinRating: &featuredMinRating, Page: NewPagination(1, 6, 6, 6)})
	return items, err
}

func GetTrainer(ctx context.Context, q sqlx.ExtContext, id string) (TrainerListing, error) {
	var t TrainerListing
	if err := db.Get(ctx, q, &t, trainerListingSelect+` WHERE t.id = ?`, id); err != nil {
		if db.IsNotFound(err) {
			return TrainerListing{}, ErrNotFound("Trainer not found")
		}
		return TrainerListing{}, err
	}
	return t, nil
}

func trainerByUser(ctx context.Context, q sqlx.ExtContext, userID string) (models.Trainer, error) {
	var t models.Trainer
	if err := db.Get(ctx, q, &t, `SELECT `+trainerColumns+` FROM trainers t WHERE t.user_id = ?`, userID); err != nil {
		if db.IsNotFound(err) {
			return models.Trainer{}, ErrNotFound("Trainer profile not found")
		}
		return models.Trainer{}, err
	}
	return t, nil
}

func TrainerWorkouts(ctx context.Context, q sqlx.ExtContext, trainerID string) ([]models.Workout, error) {
	t, err := GetTrainer(ctx, q, trainerID)
	if err != nil {
		return nil, err
	}
	return PublicWorkoutsBy(ctx, q, t.UserID, 100)
}

type TrainerProfileUpdate struct {
	Bio          *string          `json:"bio"`
	HourlyRate   *decimal.Decimal `json:"hourlyRate"`
	Specialties  []string         `json:"specialties"`
	Availability json.RawMessage  `json:"availability"`
	Location     *string          `json:"location"`
}

func UpdateTrainerProfile(ctx context.Context, q sqlx.ExtContext, userID string, upd TrainerProfileUpdate) (models.Trainer, error) {
	v := Violations{}
	if upd.Bio != nil && len([]rune(strings.TrimSpace(*upd.Bio))) < 50 {
		v.Add("bio", "must be at least 50 characters")
	}
	if upd.HourlyRate != nil && upd.HourlyRate.LessThan(minHourlyRate) {
		v.Add("hourlyRate", "must be at least 1")
	}
	if upd.Specialties != nil {
		upd.Specialties = CleanList(upd.Specialties, maxListItems)
	}
	if upd.Specialties != nil && len(upd.Specialties) == 0 {
		v.Add("specialties", "must contain at least one specialty")
	}
	if len(upd.Availability) > 0 {
		var obj map[string]interface{}
		if err := json.Unmarshal(upd.Availability, &obj); err != nil {
			v.Add("availability", "must be an object")
		}
	}
	if upd.Location != nil {
		Required("location", *upd.Location, v)
	}
	if err := v.Err(); err != nil {
		return models.Trainer{}, err
	}
	t, err := trainerByUser(ctx, q, userID)
	if err != nil {
		return models.Trainer{}, err
	}
	if upd.Bio != nil {
		t.Bio = strings.TrimSpace(*upd.Bio)
	}
	if upd.HourlyRate != nil {
		t.HourlyRate = upd.HourlyRate.Round(2)
	}
	if upd.Specialties != nil {
		t.Specialties = upd.Specialties
	}
	if len(upd.Availability) > 0 {
		t.Availability = models.RawJSON(upd.Availability)
	}
	if upd.Location != nil {
		t.Location = strings.TrimSpace(*upd.Location)
	}
	t.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(ctx, q, `UPDATE trainers SET bio = ?, hourly_rate = ?, specialties = ?, availability = ?, location = ?, updated_at = ?
WHERE id = ?`, t.Bio, t.HourlyRate, t.Specialties, t.Availability, t.Location, t.UpdatedAt, t.ID)
	if err != nil {
		return models.Trainer{}, err
	}
	return t, nil
}

// ReviewTrainer approves or rejects a pending application. Approval makes the
// applicant a trainer unless they are an admin.
func ReviewTrainer(ctx context.Context, database *sqlx.DB, trainerID, decision string) (models.Trainer, error) {
	v := Violations{}
	OneOf("decision", decision, []string{models.ApplicationApproved, models.ApplicationRejected}, v)
	if err := v.Err(); err != nil {
		return models.Trainer{}, err
	}
	var t models.Trainer
	err := db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		if err := db.Get(ctx, tx, &t, `SELECT `+trainerColumns+` FROM trainers t WHERE t.id = ?`, trainerID); err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound("Trainer not found")
			}
			return err
		}
		now := time.Now().UTC()
		t.ApplicationStatus = decision
		t.IsVerified = decision == models.ApplicationApproved
		t.ReviewedAt = &now
		t.UpdatedAt = now
		if _, err := db.Exec(ctx, tx, `UPDATE trainers SET application_status = ?, is_verified = ?, reviewed_at = ?, updated_at = ? WHERE id = ?`,
			t.ApplicationStatus, t.IsVerified, t.ReviewedAt, t.UpdatedAt, t.ID); err != nil {
			return err
		}
		if decision != models.ApplicationApproved {
			return nil
		}
		_, err := db.Exec(ctx, tx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ? AND role <> ?`,
			models.RoleTrainer, now, t.UserID, models.RoleAdmin)
		return err
	})
	return t, err
}

type BookingInput struct {
	SessionType string `json:"sessionType"`
	Date        string `json:"date"`
	Duration    int    `json:"duration"`
	Notes       string `json:"notes"`
}

var sixty = decimal.NewFromInt(60)

// BookingCost is hourlyRate * minutes / 60, rounded to cents.
func BookingCost(hourlyRate decimal.Decimal, minutes int) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(int64(minutes))).Div(sixty).Round(2)
}

// BookSession records a pending booking and hands it to the scheduling side
// over the bus. There is no availability check and no payment capture.
func BookSession(ctx context.Context, q sqlx.ExtContext, bus EventPublisher, clientID, trainerID string, in BookingInput) (models.TrainerBooking, error) {
	v := Violations{}
	OneOf("sessionType", in.SessionType, SessionTypes, v)
	RangeInt("duration", in.Duration, 30, 180, v)
	MaxLength("notes", in.Notes, 500, v)
	scheduled, err := time.Parse(time.RFC3339, strings.TrimSpace(in.Date))
	if err != nil {
		if day, dayErr := time.Parse(DayLayout, strings.TrimSpace(in.Date)); dayErr == nil {
			scheduled = day
		} else {
			v.Add("date", "must be an ISO-8601 date")
		}
	}
	if err := v.Err(); err != nil {
		return models.TrainerBooking{}, err
	}
	t, err := GetTrainer(ctx, q, trainerID)
	if err != nil {
		return models.TrainerBooking{}, err
	}
	if t.ApplicationStatus != models.ApplicationApproved || !t.IsActive {
		return models.TrainerBooking{}, ErrNotFound("Trainer not found")
	}
	if t.UserID == clientID {
		return models.TrainerBooking{}, ErrBadRequest("You cannot book a session with yourself")
	}
	b := models.TrainerBooking{
		ID:          uuid.NewString(),
		TrainerID:   t.ID,
		ClientID:    clientID,
		SessionType: in.SessionType,
		ScheduledAt: scheduled.UTC(),
		Duration:    in.Duration,
		Cost:        BookingCost(t.HourlyRate, in.Duration),
		Status:      BookingPending,
		Notes:       sql.NullString{String: in.Notes, Valid: in.Notes != ""},
		CreatedAt:   time.Now().UTC(),
	}
	_, err = db.Exec(ctx, q, `INSERT INTO trainer_bookings (`+bookingColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.TrainerID, b.ClientID, b.SessionType, b.ScheduledAt, b.Duration, b.Cost, b.Status, b.Notes, b.CreatedAt)
	if err != nil {
		return models.TrainerBooking{}, err
	}
	log.Infof("session booked with trainer %s by user %s", t.ID, clientID)
	publish(ctx, bus, TopicBookingRequested, b)
	return b, nil
}

type TrainerEarnings struct {
	TotalEarnings     decimal.Decimal `json:"totalEarnings"`
	ThisMonth         decimal.Decimal `json:"thisMonth"`
	LastMonth         decimal.Decimal `json:"lastMonth"`
	PendingPayouts    decimal.Decimal `json:"pendingPayouts"`
	CommissionRate    decimal.Decimal `json:"commissionRate"`
	Commission        decimal.Decimal `json:"commission"`
	Net               decimal.Decimal `json:"net"`
	SessionsCompleted int             `json:"sessionsCompleted"`
	SessionsPending   int             `json:"sessionsPending"`
	Clients           int             `json:"clients"`
}

func trainerBookings(ctx context.Context, q sqlx.ExtContext, trainerID string) ([]models.TrainerBooking, error) {
	items := []models.TrainerBooking{}
	err := db.Select(ctx, q, &items, `SELECT `+bookingColumns+` FROM trainer_bookings WHERE trainer_id = ? ORDER BY scheduled_at`, trainerID)
	return items, err
}

// GetTrainerEarnings derives the trainer's numbers from bookings. Gross is the
// stored total plus completed bookings; commission is taken at the trainer's rate.
func GetTrainerEarnings(ctx context.Context, q sqlx.ExtContext, userID string, now time.Time) (TrainerEarnings, error) {
	t, err := trainerByUser(ctx, q, userID)
	if err != nil {
		return TrainerEarnings{}, err
	}
	bookings, err := trainerBookings(ctx, q, t.ID)
	if err != nil {
		return TrainerEarnings{}, err
	}
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	out := TrainerEarnings{
		TotalEarnings:  t.TotalEarnings,
		ThisMonth:      decimal.Zero,
		LastMonth:      decimal.Zero,
		PendingPayouts: decimal.Zero,
		CommissionRate: t.CommissionRate,
	}
	clients := map[string]struct{}{}
	for _, b := range bookings {
		if b.Status == BookingCanceled {
			continue
		}
		clients[b.ClientID] = struct{}{}
		switch b.Status {
		case BookingCompleted:
			out.SessionsCompleted++
			out.TotalEarnings = out.TotalEarnings.Add(b.Cost)
			switch {
			case !b.ScheduledAt.Before(monthStart):
				out.ThisMonth = out.ThisMonth.Add(b.Cost)
			case !b.ScheduledAt.Before(lastMonthStart):
				out.LastMonth = out.LastMonth.Add(b.Cost)
			}
		default:
			out.SessionsPending++
			out.PendingPayouts = out.PendingPayouts.Add(b.Cost)
		}
	}
	out.Clients = len(clients)
	out.Commission = out.TotalEarnings.Mul(t.CommissionRate).Round(2)
	out.Net = out.TotalEarnings.Sub(out.Commission)
	out.PendingPayouts = out.PendingPayouts.Mul(decimal.NewFromInt(1).Sub(t.CommissionRate)).Round(2)
	return out, nil
}
