package httpapi

import (
	"database/sql"
	"time"

	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"

	"github.com/shopspring/decimal"
)

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullDecimal(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	return &v.Decimal
}

type ExerciseDTO struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	TargetMuscles     []string         `json:"targetMuscles"`
	Equipment         []string         `json:"equipment"`
	Difficulty        string           `json:"difficulty"`
	Instructions      []string         `json:"instructions"`
	Tips              []string         `json:"tips"`
	FormCheckpoints   models.RawJSON   `json:"formCheckpoints"`
	CaloriesPerMinute *decimal.Decimal `json:"caloriesPerMinute,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

func buildExerciseDTO(e models.Exercise) ExerciseDTO {
	return ExerciseDTO{
		ID:                e.ID,
		Name:              e.Name,
		Description:       e.Description,
		Category:          e.Category,
		TargetMuscles:     nonNil(e.TargetMuscles),
		Equipment:         nonNil(e.Equipment),
		Difficulty:        e.Difficulty,
		Instructions:      nonNil(e.Instructions),
		Tips:              nonNil(e.Tips),
		FormCheckpoints:   e.FormCheckpoints,
		CaloriesPerMinute: nullDecimal(e.CaloriesPerMinute),
		CreatedAt:         e.CreatedAt,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

type WorkoutExerciseDTO struct {
	ID               string           `json:"id"`
	ExerciseID       string           `json:"exerciseId"`
	ExerciseName     string           `json:"exerciseName,omitempty"`
	ExerciseCategory string           `json:"exerciseCategory,omitempty"`
	Position         int              `json:"position"`
	Sets             int              `json:"sets"`
	Reps             *int             `json:"reps,omitempty"`
	Weight           *decimal.Decimal `json:"weight,omitempty"`
	Duration         *int             `json:"duration,omitempty"`
	Distance         *decimal.Decimal `json:"distance,omitempty"`
	RestTime         int              `json:"restTime"`
	Notes            *string          `json:"notes,omitempty"`
}

type WorkoutDTO struct {
	ID              string               `json:"id"`
	UserID          string               `json:"userId"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Duration        int                  `json:"duration"`
	Difficulty      string               `json:"difficulty"`
	Category        string               `json:"category"`
	CreatedBy       string               `json:"createdBy"`
	IsPublic        bool                 `json:"isPublic"`
	Calories        *int                 `json:"calories,omitempty"`
	TargetMuscles   []string             `json:"targetMuscles"`
	Equipment       []string             `json:"equipment"`
	AICoachingNotes *string              `json:"aiCoachingNotes,omitempty"`
	Rating          *int                 `json:"rating,omitempty"`
	CompletedAt     *time.Time           `json:"completedAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	Exercises       []WorkoutExerciseDTO `json:"exercises,omitempty"`
}

func buildWorkoutDTO(w models.Workout) WorkoutDTO {
	return WorkoutDTO{
		ID:              w.ID,
		UserID:          w.UserID,
		Name:            w.Name,
		Description:     w.Description,
		Duration:        w.Duration,
		Difficulty:      w.Difficulty,
		Category:        w.Category,
		CreatedBy:       w.CreatedBy,
		IsPublic:        w.IsPublic,
		Calories:        nullInt(w.Calories),
		TargetMuscles:   nonNil(w.TargetMuscles),
		Equipment:       nonNil(w.Equipment),
		AICoachingNotes: nullString(w.AICoachingNotes),
		Rating:          nullInt(w.Rating),
		CompletedAt:     w.CompletedAt,
		CreatedAt:       w.CreatedAt,
	}
}

func buildWorkoutDTOs(items []models.Workout) []WorkoutDTO {
	out := make([]WorkoutDTO, 0, len(items))
	for _, w := range items {
		out = append(out, buildWorkoutDTO(w))
	}
	return out
}

func buildWorkoutDetailDTO(d services.WorkoutDetail) WorkoutDTO {
	dto := buildWorkoutDTO(d.Workout)
	dto.Exercises = make([]WorkoutExerciseDTO, 0, len(d.Exercises))
	for _, e := range d.Exercises {
		dto.Exercises = append(dto.Exercises, WorkoutExerciseDTO{
			ID:               e.ID,
			ExerciseID:       e.ExerciseID,
			ExerciseName:     e.ExerciseName,
			ExerciseCategory: e.ExerciseCategory,
			Position:         e.Position,
			Sets:             e.Sets,
			Reps:             nullInt(e.Reps),
			Weight:           nullDecimal(e.Weight),
			Duration:         nullInt(e.Duration),
			Distance:         nullDecimal(e.Distance),
			RestTime:         e.RestTime,
			Notes:            nullString(e.Notes),
		})
	}
	return dto
}

type SessionDTO struct {
	ID             string         `json:"id"`
	WorkoutID      string         `json:"workoutId"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"startedAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	Duration       *int           `json:"duration,omitempty"`
	CaloriesBurned *int           `json:"caloriesBurned,omitempty"`
	Rating         *int           `json:"rating,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	Performance    models.JSONMap `json:"performance,omitempty"`
	Workout        *WorkoutBrief  `json:"workout,omitempty"`
}

type WorkoutBrief struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Duration   int    `json:"duration"`
}

func buildSessionDTO(s models.WorkoutSession) SessionDTO {
	return SessionDTO{
		ID:             s.ID,
		WorkoutID:      s.WorkoutID,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		Duration:       nullInt(s.Duration),
		CaloriesBurned: nullInt(s.CaloriesBurned),
		Rating:         nullInt(s.Rating),
		Notes:          nullString(s.Notes),
		Performance:    s.Performance,
	}
}

type SetDTO struct {
	ID                string           `json:"id"`
	WorkoutExerciseID string           `json:"workoutExerciseId"`
	SessionID         *string          `json:"sessionId,omitempty"`
	SetNumber         int              `json:"setNumber"`
	Type              string           `json:"type"`
	TargetReps        *int             `json:"targetReps,omitempty"`
	ActualReps        *int             `json:"actualReps,omitempty"`
	Weight            *decimal.Decimal `json:"weight,omitempty"`
	Duration          *int             `json:"duration,omitempty"`
	Distance          *decimal.Decimal `json:"distance,omitempty"`
	RestTime          int              `json:"restTime"`
	FormScore         *int             `json:"formScore,omitempty"`
	Completed         bool             `json:"completed"`
	CompletedAt       *time.Time       `json:"completedAt,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
}

func buildSetDTO(s models.ExerciseSet) SetDTO {
	return SetDTO{
		ID:                s.ID,
		WorkoutExerciseID: s.WorkoutExerciseID,
		SessionID:         nullString(s.SessionID),
		SetNumber:         s.SetNumber,
		Type:              s.Type,
		TargetReps:        nullInt(s.TargetReps),
		ActualReps:        nullInt(s.ActualReps),
		Weight:            nullDecimal(s.Weight),
		Duration:          nullInt(s.Duration),
		Distance:          nullDecimal(s.Distance),
		RestTime:          s.RestTime,
		FormScore:         nullInt(s.FormScore),
		Completed:         s.Completed,
		CompletedAt:       s.CompletedAt,
		Notes:             nullString(s.Notes),
	}
}

type FoodDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    *string         `json:"brand,omitempty"`
	Barcode  *string         `json:"barcode,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	models.Macros
}

type MealDTO struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Name     *string       `json:"name,omitempty"`
	Totals   models.Macros `json:"totals"`
	LoggedAt time.Time     `json:"loggedAt"`
	Foods    []FoodDTO     `json:"foods"`
}

type DailyLogDTO struct {
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	Totals      models.Macros `json:"totals"`
	WaterIntake int           `json:"waterIntake"`
	Notes       *string       `json:"notes,omitempty"`
	Meals       []MealDTO     `json:"meals"`
}

func buildMealDTO(m services.MealDetail) MealDTO {
	dto := MealDTO{
		ID:       m.ID,
		Type:     m.Type,
		Name:     nullString(m.Name),
		Totals:   m.Macros,
		LoggedAt: m.LoggedAt,
		Foods:    make([]FoodDTO, 0, len(m.Foods)),
	}
	for _, f := range m.Foods {
		dto.Foods = append(dto.Foods, FoodDTO{
			ID:       f.ID,
			Name:     f.Name,
			Brand:    nullString(f.Brand),
			Barcode:  nullString(f.Barcode),
			Quantity: f.Quantity,
			Unit:     f.Unit,
			Macros:   f.Macros(),
		})
	}
	return dto
}

func buildDailyLogDTO(l services.DailyLog) DailyLogDTO {
	dto := DailyLogDTO{
		ID:          l.ID,
		Date:        l.Date,
		Totals:      l.Macros,
		WaterIntake: l.WaterIntake,
		Notes:       nullString(l.Notes),
		Meals:       make([]MealDTO, 0, len(l.Meals)),
	}
	for _, m := range l.Meals {
		dto.Meals = append(dto.Meals, buildMealDTO(m))
	}
	return dto
}

type SubscriptionDTO struct {
	ID                 string            `json:"id"`
	Tier               string            `json:"tier"`
	Status             string            `json:"status"`
	CurrentPeriodStart *time.Time        `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time        `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd  bool              `json:"cancelAtPeriodEnd"`
	Price              decimal.Decimal   `json:"price"`
	Currency           string            `json:"currency"`
	Interval           string            `json:"interval"`
	Features           models.FeatureSet `json:"features"`
}

func buildSubscriptionDTO(s models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:                 s.ID,
		Tier:               s.Tier,
		Status:             s.Status,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		Price:              s.Price,
		Currency:           s.Currency,
		Interval:           s.Interval,
		Features:           s.Features,
	}
}

type TrainerDTO struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	FirstName         string          `json:"firstName,omitempty"`
	LastName          string          `json:"lastName,omitempty"`
	Avatar            *string         `json:"avatar,omitempty"`
	Bio               string          `json:"bio"`
	Specialties       []string        `json:"specialties"`
	Certifications    models.RawJSON  `json:"certifications"`
	Experience        int             `json:"experience"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	Location          string          `json:"location"`
	Availability      models.RawJSON  `json:"availability"`
	Rating            decimal.Decimal `json:"rating"`
	ReviewCount       int             `json:"reviewCount"`
	ClientCount       int             `json:"clientCount"`
	ApplicationStatus string          `json:"applicationStatus"`
	IsVerified        bool            `json:"isVerified"`
	Languages         []string        `json:"languages"`
	Timezone          string          `json:"timezone"`
}

func buildTrainerDTO(t models.Trainer) TrainerDTO {
	return TrainerDTO{
		ID:                t.ID,
		UserID:            t.UserID,
		Bio:               t.Bio,
		Specialties:       nonNil(t.Specialties),
		Certifications:    t.Certifications,
		Experience:        t.Experience,
		HourlyRate:        t.HourlyRate,
		Location:          t.Location,
		Availability:      t.Availability,
		Rating:            t.Rating,
		ReviewCount:       t.ReviewCount,
		ClientCount:       t.ClientCount,
		ApplicationStatus: t.ApplicationStatus,
		IsVerified:        t.IsVerified,
		Languages:         nonNil(t.Languages),
		Timezone:          t.Timezone,
	}
}

func buildTrainerListingDTO(l services.TrainerListing) TrainerDTO {
	dto := buildTrainerDTO(l.Trainer)
	dto.FirstName = l.FirstName
	dto.LastName = l.LastName
	dto.Avatar = nullString(l.AvatarURL)
	return dto
}

func buildTrainerListingDTOs(items []services.TrainerListing) []TrainerDTO {
	out := make([]TrainerDTO, 0, len(items))
	for _, l := range items {
		out = append(out, buildTrainerListingDTO(l))
	}
	return out
}

type BookingDTO struct {
	ID          string          `json:"id"`
	TrainerID   string          `json:"trainerId"`
	ClientID    string          `json:"clientId"`
	SessionType string          `json:"sessionType"`
	ScheduledAt time.Time       `json:"scheduledAt"`
	Duration    int             `json:"duration"`
	Cost        decimal.Decimal `json:"cost"`
	Status      string          `json:"status"`
	Notes       *string         `json:"notes,omitempty"`
}

func buildBookingDTO(b models.TrainerBooking) BookingDTO {
	return BookingDTO{
		ID:          b.ID,
		TrainerID:   b.TrainerID,
		ClientID:    b.ClientID,
		SessionType: b.SessionType,
		ScheduledAt: b.ScheduledAt,
		Duration:    b.Duration,
		Cost:        b.Cost,
		Status:      b.Status,
		Notes:       nullString(b.Notes),
	}
}

type FormAnalysisDTO struct {
	ID           string         `json:"id"`
	ExerciseID   string         `json:"exerciseId"`
	SessionID    *string        `json:"sessionId,omitempty"`
	SetNumber    int            `json:"setNumber"`
	OverallScore int            `json:"overallScore"`
	Feedback     models.RawJSON `json:"feedback"`
	Improvements []string       `json:"improvements"`
	RiskLevel    string         `json:"riskLevel"`
	RepCount     *int           `json:"repCount,omitempty"`
	VideoAssetID *string        `json:"videoAssetId,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func buildFormAnalysisDTO(a models.FormAnalysis) FormAnalysisDTO {
	return FormAnalysisDTO{
		ID:           a.ID,
		ExerciseID:   a.ExerciseID,
		SessionID:    nullString(a.SessionID),
		SetNumber:    a.SetNumber,
		OverallScore: a.OverallScore,
		Feedback:     a.Feedback,
		Improvements: nonNil(a.Improvements),
		RiskLevel:    a.RiskLevel,
		RepCount:     nullInt(a.RepCount),
		VideoAssetID: nullString(a.VideoAssetID),
		CreatedAt:    a.CreatedAt,
	}
}
