package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleFree    = "free"
	RolePremium = "premium"
	RoleElite   = "elite"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

const (
	SubscriptionInactive = "inactive"
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionPaused     = "paused"
	SessionAbandoned  = "abandoned"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

type User struct {
	ID                 string              `db:"id"`
	Email              string              `db:"email"`
	PasswordHash       string              `db:"password_hash"`
	FirstName          string              `db:"first_name"`
	LastName           string              `db:"last_name"`
	AvatarURL          sql.NullString      `db:"avatar_url"`
	DateOfBirth        sql.NullString      `db:"date_of_birth"`
	Gender             sql.NullString      `db:"gender"`
	HeightCm           decimal.NullDecimal `db:"height_cm"`
	WeightKg           decimal.NullDecimal `db:"weight_kg"`
	FitnessLevel       string              `db:"fitness_level"`
	Role               string              `db:"role"`
	SubscriptionStatus string              `db:"subscription_status"`
	StripeCustomerID   sql.NullString      `db:"stripe_customer_id"`
	Preferences        Preferences         `db:"preferences"`
	Stats              UserStats           `db:"stats"`
	IsActive           bool                `db:"is_active"`
	LastLoginAt        *time.Time          `db:"last_login_at"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

type Exercise struct {
	ID                string              `db:"id"`
	Name              string              `db:"name"`
	Description       string              `db:"description"`
	Category          string              `db:"category"`
	TargetMuscles     StringList          `db:"target_muscles"`
	Equipment         StringList          `db:"equipment"`
	Difficulty        string              `db:"difficulty"`
	Instructions      StringList          `db:"instructions"`
	Tips              StringList          `db:"tips"`
	FormCheckpoints   RawJSON             `db:"form_checkpoints"`
	CaloriesPerMinute decimal.NullDecimal `db:"calories_per_minute"`
	IsActive          bool                `db:"is_active"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

type Workout struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	Name            string         `db:"name"`
	Description     string         `db:"description"`
	Duration        int            `db:"duration"`
	Difficulty      string         `db:"difficulty"`
	Category        string         `db:"category"`
	CreatedBy       string         `db:"created_by"`
	IsPublic        bool           `db:"is_public"`
	Calories        sql.NullInt64  `db:"calories"`
	TargetMuscles   StringList     `db:"target_muscles"`
	Equipment       StringList     `db:"equipment"`
	AICoachingNotes sql.NullString `db:"ai_coaching_notes"`
	Rating          sql.NullInt64  `db:"rating"`
	CompletedAt     *time.Time     `db:"completed_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type WorkoutExercise struct {
	ID         string              `db:"id"`
	WorkoutID  string              `db:"workout_id"`
	ExerciseID string              `db:"exercise_id"`
	Position   int                 `db:"position"`
	Sets       int                 `db:"sets"`
	Reps       sql.NullInt64       `db:"reps"`
	Weight     decimal.NullDecimal `db:"weight"`
	Duration   sql.NullInt64       `db:"duration"`
	Distance   decimal.NullDecimal `db:"distance"`
	RestTime   int                 `db:"rest_time"`
	Notes      sql.NullString      `db:"notes"`
}

type ExerciseSet struct {
	ID                string              `db:"id"`
	WorkoutExerciseID string              `db:"workout_exercise_id"`
	SessionID         sql.NullString      `db:"session_id"`
	SetNumber         int                 `db:"set_number"`
	Type              string              `db:"type"`
	TargetReps        sql.NullInt64       `db:"target_reps"`
	ActualReps        sql.NullInt64       `db:"actual_reps"`
	Weight            decimal.NullDecimal `db:"weight"`
	Duration          sql.NullInt64       `db:"duration"`
	Distance          decimal.NullDecimal `db:"distance"`
	RestTime          int                 `db:"rest_time"`
	FormScore         sql.NullInt64       `db:"form_score"`
	Completed         bool                `db:"completed"`
	CompletedAt       *time.Time          `db:"completed_at"`
	Notes             sql.NullString      `db:"notes"`
	CreatedAt         time.Time           `db:"created_at"`
}

type WorkoutSession struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	WorkoutID      string         `db:"workout_id"`
	Status         string         `db:"status"`
	StartedAt      time.Time      `db:"started_at"`
	CompletedAt    *time.Time     `db:"completed_at"`
	Duration       sql.NullInt64  `db:"duration"`
	CaloriesBurned sql.NullInt64  `db:"calories_burned"`
	Rating         sql.NullInt64  `db:"rating"`
	Notes          sql.NullString `db:"notes"`
	Performance    JSONMap        `db:"performance"`
	Version        int            `db:"version"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// Macros holds the aggregated nutrient columns shared by logs, meals and foods.
type Macros struct {
	Calories int             `db:"total_calories" json:"calories"`
	Protein  decimal.Decimal `db:"total_protein" json:"protein"`
	Carbs    decimal.Decimal `db:"total_carbs" json:"carbs"`
	Fat      decimal.Decimal `db:"total_fat" json:"fat"`
	Fiber    decimal.Decimal `db:"total_fiber" json:"fiber"`
	Sugar    decimal.Decimal `db:"total_sugar" json:"sugar"`
	Sodium   decimal.Decimal `db:"total_sodium" json:"sodium"`
}

func (m Macros) Add(other Macros) Macros {
	return Macros{
		Calories: m.Calories + other.Calories,
		Protein:  m.Protein.Add(other.Protein),
		Carbs:    m.Carbs.Add(other.Carbs),
		Fat:      m.Fat.Add(other.Fat),
		Fiber:    m.Fiber.Add(other.Fiber),
		Sugar:    m.Sugar.Add(other.Sugar),
		Sodium:   m.Sodium.Add(other.Sodium),
	}
}

type NutritionLog struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
	Date   string `db:"log_date"`
	Macros
	WaterIntake int            `db:"water_intake"`
	Notes       sql.NullString `db:"notes"`
	Version     int            `db:"version"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type Meal struct {
	ID             string         `db:"id"`
	NutritionLogID string         `db:"nutrition_log_id"`
	Type           string         `db:"type"`
	Name           sql.NullString `db:"name"`
	Macros
	LoggedAt time.Time `db:"logged_at"`
}

type Food struct {
	ID       string          `db:"id"`
	MealID   string          `db:"meal_id"`
	Name     string          `db:"name"`
	Brand    sql.NullString  `db:"brand"`
	Barcode  sql.NullString  `db:"barcode"`
	Quantity decimal.Decimal `db:"quantity"`
	Unit     string          `db:"unit"`
	Calories int             `db:"calories"`
	Protein  decimal.Decimal `db:"protein"`
	Carbs    decimal.Decimal `db:"carbs"`
	Fat      decimal.Decimal `db:"fat"`
	Fiber    decimal.Decimal `db:"fiber"`
	Sugar    decimal.Decimal `db:"sugar"`
	Sodium   decimal.Decimal `db:"sodium"`
}

func (f Food) Macros() Macros {
	return Macros{
		Calories: f.Calories,
		Protein:  f.Protein,
		Carbs:    f.Carbs,
		Fat:      f.Fat,
		Fiber:    f.Fiber,
		Sugar:    f.Sugar,
		Sodium:   f.Sodium,
	}
}

type Subscription struct {
	ID                   string          `db:"id"`
	UserID               string          `db:"user_id"`
	StripeSubscriptionID string          `db:"stripe_subscription_id"`
	StripeCustomerID     string          `db:"stripe_customer_id"`
	Tier                 string          `db:"tier"`
	Status               string          `db:"status"`
	CurrentPeriodStart   *time.Time      `db:"current_period_start"`
	CurrentPeriodEnd     *time.Time      `db:"current_period_end"`
	CancelAtPeriodEnd    bool            `db:"cancel_at_period_end"`
	Price                decimal.Decimal `db:"price"`
	Currency             string          `db:"currency"`
	Interval             string          `db:"billing_interval"`
	Features             FeatureSet      `db:"features"`
	LastEventAt          *time.Time      `db:"last_event_at"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

type Trainer struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	Bio               string          `db:"bio"`
	Specialties       StringList      `db:"specialties"`
	Certifications    RawJSON         `db:"certifications"`
	Experience        int             `db:"experience"`
	HourlyRate        decimal.Decimal `db:"hourly_rate"`
	Location          string          `db:"location"`
	Availability      RawJSON         `db:"availability"`
	Rating            decimal.Decimal `db:"rating"`
	ReviewCount       int             `db:"review_count"`
	ClientCount       int             `db:"client_count"`
	TotalEarnings     decimal.Decimal `db:"total_earnings"`
	CommissionRate    decimal.Decimal `db:"commission_rate"`
	ApplicationStatus string          `db:"application_status"`
	IsVerified        bool            `db:"is_verified"`
	IsActive          bool            `db:"is_active"`
	Languages         StringList      `db:"languages"`
	Timezone          string          `db:"timezone"`
	ReviewedAt        *time.Time      `db:"reviewed_at"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type TrainerBooking struct {
	ID          string          `db:"id"`
	TrainerID   string          `db:"trainer_id"`
	ClientID    string          `db:"client_id"`
	SessionType string          `db:"session_type"`
	ScheduledAt time.Time       `db:"scheduled_at"`
	Duration    int             `db:"duration"`
	Cost        decimal.Decimal `db:"cost"`
	Status      string          `db:"status"`
	Notes       sql.NullString  `db:"notes"`
	CreatedAt   time.Time       `db:"created_at"`
}

type Achievement struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	Rarity      string         `db:"rarity"`
	Icon        sql.NullString `db:"icon"`
	Criteria    RawJSON        `db:"criteria"`
	Points      int            `db:"points"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
}

type UserAchievement struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	AchievementID string    `db:"achievement_id"`
	UnlockedAt    time.Time `db:"unlocked_at"`
}

type MediaAsset struct {
	ID          string    `db:"id"`
	OwnerUserID string    `db:"owner_user_id"`
	Bucket      string    `db:"bucket"`
	StorageKey  string    `db:"storage_key"`
	Filename    string    `db:"filename"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	SHA256      string    `db:"sha256"`
	CreatedAt   time.Time `db:"created_at"`
}

type FormAnalysis struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	ExerciseID   string         `db:"exercise_id"`
	SessionID    sql.NullString `db:"session_id"`
	SetNumber    int            `db:"set_number"`
	OverallScore int            `db:"overall_score"`
	Feedback     RawJSON        `db:"feedback"`
	Improvements StringList     `db:"improvements"`
	RiskLevel    string         `db:"risk_level"`
	RepCount     sql.NullInt64  `db:"rep_count"`
	VideoAssetID sql.NullString `db:"video_asset_id"`
	AnalysisData RawJSON        `db:"analysis_data"`
	CreatedAt    time.Time      `db:"created_at"`
}
