package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const aiHistoryLimit = 50

type WorkoutSummary struct {
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Difficulty  string     `json:"difficulty"`
	Duration    int        `json:"duration"`
	Rating      *int       `json:"rating,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type WorkoutPlanRequest struct {
	UserID       string           `json:"userId"`
	FitnessLevel string           `json:"fitnessLevel"`
	Goals        models.Goals     `json:"goals"`
	Duration     int              `json:"duration"`
	Difficulty   string           `json:"difficulty"`
	Equipment    []string         `json:"equipment"`
	Preferences  json.RawMessage  `json:"preferences,omitempty"`
	History      []WorkoutSummary `json:"workoutHistory"`
}

type GeneratedExercise struct {
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	TargetMuscles []string         `json:"targetMuscles"`
	Equipment     []string         `json:"equipment"`
	Instructions  []string         `json:"instructions"`
	Sets          *int             `json:"sets"`
	Reps          *int             `json:"reps"`
	Weight        *decimal.Decimal `json:"weight"`
	Duration      *int             `json:"duration"`
	RestTime      *int             `json:"restTime"`
	Notes         string           `json:"notes"`
}

type GeneratedWorkout struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	Difficulty    string              `json:"difficulty"`
	Duration      int                 `json:"duration"`
	Calories      *int                `json:"estimatedCalories"`
	TargetMuscles []string            `json:"targetMuscles"`
	Equipment     []string            `json:"equipment"`
	CoachingNotes string              `json:"coachingNotes"`
	Exercises     []GeneratedExercise `json:"exercises"`
}

type FormAnalysisRequest struct {
	ExerciseName string
	Checkpoints  json.RawMessage
	SetNumber    int
	Filename     string
	ContentType  string
	Video        io.Reader
}

type FormAnalysisResult struct {
	OverallScore int
	Feedback     json.RawMessage
	Improvements []string
	RiskLevel    string
	RepCount     *int
	Raw          json.RawMessage
}

type CoachingRequest struct {
	UserID       string           `json:"userId"`
	FitnessLevel string           `json:"fitnessLevel"`
	Workout      WorkoutSummary   `json:"workout"`
	Performance  models.JSONMap   `json:"performance"`
	Goals        models.Goals     `json:"goals"`
	Stats        models.UserStats `json:"stats"`
}

type ProgressRequest struct {
	UserID       string           `json:"userId"`
	FitnessLevel string           `json:"fitnessLevel"`
	Goals        models.Goals     `json:"goals"`
	Stats        models.UserStats `json:"stats"`
	History      []WorkoutSummary `json:"workoutHistory"`
}

//go:generate mockgen -source=$GOFILE -destination=ai_mocks_test.go -package=services

type WorkoutGenerator interface {
	GenerateWorkout(ctx context.Context, req WorkoutPlanRequest) (GeneratedWorkout, error)
}

type FormAnalyzer interface {
	AnalyzeForm(ctx context.Context, req FormAnalysisRequest) (FormAnalysisResult, error)
}

type CoachingAdvisor interface {
	CoachingFeedback(ctx context.Context, req CoachingRequest) (json.RawMessage, error)
}

type ProgressPredictor interface {
	PredictProgress(ctx context.Context, req ProgressRequest) (json.RawMessage, error)
}

// AIProvider bundles the capabilities of the external AI service.
type AIProvider interface {
	WorkoutGenerator
	FormAnalyzer
	CoachingAdvisor
	ProgressPredictor
}

func upstreamError(err error) error {
	if _, ok := AsServiceError(err); ok {
		return err
	}
	return ErrUpstream("AI service unavailable", err)
}

func summarize(w models.Workout) WorkoutSummary {
	s := WorkoutSummary{Name: w.Name, Category: w.Category, Difficulty: w.Difficulty, Duration: w.Duration, CompletedAt: w.CompletedAt}
	if w.Rating.Valid {
		r := int(w.Rating.Int64)
		s.Rating = &r
	}
	return s
}

func workoutHistory(ctx context.Context, q sqlx.ExtContext, userID string) ([]WorkoutSummary, error) {
	recent, err := RecentCompletedWorkouts(ctx, q, userID, aiHistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]WorkoutSummary, 0, len(recent))
	for _, w := range recent {
		out = append(out, summarize(w))
	}
	return out, nil
}

type GenerateWorkoutInput struct {
	Duration    *int            `json:"duration"`
	Difficulty  string          `json:"difficulty"`
	Equipment   []string        `json:"equipment"`
	Preferences json.RawMessage `json:"preferences"`
}

// GenerateWorkout asks the AI service for a plan and stores it as a workout
// created by ai. Exercises are matched by name and created when unknown.
func GenerateWorkout(ctx context.Context, database *sqlx.DB, gen WorkoutGenerator, userID string, in GenerateWorkoutInput) (WorkoutDetail, error) {
	duration := intOr(in.Duration, 45)
	v := Violations{}
	RangeInt("duration", duration, 10, 180, v)
	if in.Difficulty != "" {
		OneOf("difficulty", in.Difficulty, Difficulties, v)
	}
	if err := v.Err(); err != nil {
		return WorkoutDetail{}, err
	}
	user, err := GetActiveUser(ctx, database, userID)
	if err != nil {
		return WorkoutDetail{}, err
	}
	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = validOr(user.Preferences.Goals.ExperienceLevel, Difficulties, "beginner")
	}
	history, err := workoutHistory(ctx, database, userID)
	if err != nil {
		return WorkoutDetail{}, err
	}
	plan, err := gen.GenerateWorkout(ctx, WorkoutPlanRequest{
		UserID:       userID,
		FitnessLevel: user.FitnessLevel,
		Goals:        user.Preferences.Goals,
		Duration:     duration,
		Difficulty:   difficulty,
		Equipment:    in.Equipment,
		Preferences:  in.Preferences,
		History:      history,
	})
	if err != nil {
		return WorkoutDetail{}, upstreamError(err)
	}
	if len(plan.Exercises) == 0 {
		return WorkoutDetail{}, ErrUpstream("AI service returned a workout without exercises", nil)
	}

	var out WorkoutDetail
	err = db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		input := WorkoutInput{
			Name:            firstNonEmpty(strings.TrimSpace(plan.Name), "AI Workout"),
			Description:     plan.Description,
			Duration:        duration,
			Difficulty:      validOr(plan.Difficulty, Difficulties, difficulty),
			Category:        validOr(plan.Category, WorkoutCategories, "functional"),
			Calories:        plan.Calories,
			TargetMuscles:   plan.TargetMuscles,
			Equipment:       plan.Equipment,
			AICoachingNotes: plan.CoachingNotes,
		}
		if plan.Duration > 0 {
			input.Duration = plan.Duration
		}
		for _, ge := range plan.Exercises {
			ex, err := resolveGeneratedExercise(ctx, tx, ge)
			if err != nil {
				return err
			}
			input.Exercises = append(input.Exercises, WorkoutExerciseInput{
				ExerciseID: ex.ID,
				Sets:       ge.Sets,
				Reps:       ge.Reps,
				Weight:     ge.Weight,
				Duration:   ge.Duration,
				RestTime:   ge.RestTime,
				Notes:      ge.Notes,
			})
		}
		if err := input.validate(); err != nil {
			return ErrUpstream("AI service returned an invalid workout", err)
		}
		var err error
		out, err = createWorkoutTx(ctx, tx, userID, input, CreatedByAI)
		return err
	})
	return out, err
}

func resolveGeneratedExercise(ctx context.Context, tx *sqlx.Tx, ge GeneratedExercise) (models.Exercise, error) {
	name := strings.TrimSpace(ge.Name)
	if name == "" {
		return models.Exercise{}, ErrUpstream("AI service returned an exercise without a name", nil)
	}
	existing, err := findExerciseByName(ctx, tx, name)
	if err != nil {
		return models.Exercise{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	now := time.Now().UTC()
	ex := models.Exercise{
		ID:              uuid.NewString(),
		Name:            name,
		Category:        validOr(ge.Category, ExerciseCategories, "full_body"),
		TargetMuscles:   ge.TargetMuscles,
		Equipment:       ge.Equipment,
		Difficulty:      "beginner",
		Instructions:    ge.Instructions,
		Tips:            models.StringList{},
		FormCheckpoints: models.RawJSON("[]"),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(ex.TargetMuscles) == 0 {
		ex.TargetMuscles = models.StringList{"full_body"}
	}
	if len(ex.Instructions) == 0 {
		ex.Instructions = models.StringList{"Follow the coaching notes for this exercise."}
	}
	if err := insertExercise(ctx, tx, ex); err != nil {
		return models.Exercise{}, err
	}
	log.Infof("created exercise %q from generated workout", name)
	return ex, nil
}

func validOr(value string, allowed []string, def string) string {
	for _, a := range allowed {
		if a == value {
			return value
		}
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type FormCheckInput struct {
	ExerciseID  string
	SessionID   string
	SetNumber   int
	Filename    string
	ContentType string
	MaxBytes    int64
	Video       io.Reader
}

type FormCheckResult struct {
	Analysis   models.FormAnalysis
	SetUpdated bool
}

// AnalyzeForm stores the uploaded video, forwards it for analysis and records
// the result. When the session has the matching set its form score is updated.
func AnalyzeForm(ctx context.Context, database *sqlx.DB, analyzer FormAnalyzer, mediaPath, userID string, in FormCheckInput) (FormCheckResult, error) {
	v := Violations{}
	Required("exerciseId", in.ExerciseID, v)
	MinInt("setNumber", in.SetNumber, 1, v)
	if !strings.HasPrefix(strings.ToLower(in.ContentType), "video/") {
		v.Add("video", "must be a video file")
	}
	if err := v.Err(); err != nil {
		return FormCheckResult{}, err
	}
	exercise, err := GetExercise(ctx, database, in.ExerciseID)
	if err != nil {
		return FormCheckResult{}, err
	}
	if in.SessionID != "" {
		if _, err := ownSession(ctx, database, userID, in.SessionID); err != nil {
			return FormCheckResult{}, err
		}
	}

	asset, err := SaveMediaAsset(ctx, database, mediaPath, MediaUpload{
		Bucket:      BucketFormVideos,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		OwnerID:     userID,
		MaxBytes:    in.MaxBytes,
	}, in.Video)
	if err != nil {
		return FormCheckResult{}, err
	}
	video, err := os.Open(MediaAssetPath(mediaPath, asset))
	if err != nil {
		return FormCheckResult{}, err
	}
	result, err := analyzer.AnalyzeForm(ctx, FormAnalysisRequest{
		ExerciseName: exercise.Name,
		Checkpoints:  json.RawMessage(exercise.FormCheckpoints),
		SetNumber:    in.SetNumber,
		Filename:     asset.Filename,
		ContentType:  asset.ContentType,
		Video:        video,
	})
	_ = video.Close()
	if err != nil {
		if delErr := DeleteMediaAsset(ctx, database, mediaPath, asset.ID); delErr != nil {
			log.Errorf("remove form video %s: %s", asset.ID, delErr)
		}
		return FormCheckResult{}, upstreamError(err)
	}

	score := result.OverallScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	analysis := models.FormAnalysis{
		ID:           uuid.NewString(),
		UserID:       userID,
		ExerciseID:   exercise.ID,
		SessionID:    sql.NullString{String: in.SessionID, Valid: in.SessionID != ""},
		SetNumber:    in.SetNumber,
		OverallScore: score,
		Feedback:     models.RawJSON(result.Feedback),
		Improvements: result.Improvements,
		RiskLevel:    validOr(result.RiskLevel, []string{"low", "medium", "high"}, "low"),
		RepCount:     nullInt(result.RepCount),
		VideoAssetID: sql.NullString{String: asset.ID, Valid: true},
		AnalysisData: models.RawJSON(result.Raw),
		CreatedAt:    time.Now().UTC(),
	}
	if len(analysis.Feedback) == 0 {
		analysis.Feedback = models.RawJSON("[]")
	}
	if len(analysis.AnalysisData) == 0 {
		analysis.AnalysisData = models.RawJSON("{}")
	}

	out := FormCheckResult{Analysis: analysis}
	err = db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		if _, err := db.Exec(ctx, tx, `
INSERT INTO form_analyses (id, user_id, exercise_id, session_id, set_number, overall_score, feedback, improvements,
  risk_level, rep_count, video_asset_id, analysis_data, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			analysis.ID, analysis.UserID, analysis.ExerciseID, analysis.SessionID, analysis.SetNumber, analysis.OverallScore,
			analysis.Feedback, analysis.Improvements, analysis.RiskLevel, analysis.RepCount, analysis.VideoAssetID,
			analysis.AnalysisData, analysis.CreatedAt); err != nil {
			return err
		}
		if in.SessionID == "" {
			return nil
		}
		var err error
		out.SetUpdated, err = updateSetFormScore(ctx, tx, in.SessionID, exercise.ID, in.SetNumber, score)
		return err
	})
	if err != nil {
		return FormCheckResult{}, err
	}
	return out, nil
}

type CoachingInput struct {
	WorkoutID   string         `json:"workoutId"`
	Performance models.JSONMap `json:"performance"`
}

func CoachingFeedback(ctx context.Context, q sqlx.ExtContext, advisor CoachingAdvisor, userID string, in CoachingInput) (json.RawMessage, error) {
	v := Violations{}
	Required("workoutId", in.WorkoutID, v)
	if in.Performance == nil {
		v.Add("performance", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	user, err := GetActiveUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	w, err := visibleWorkout(ctx, q, userID, in.WorkoutID)
	if err != nil {
		return nil, err
	}
	feedback, err := advisor.CoachingFeedback(ctx, CoachingRequest{
		UserID:       userID,
		FitnessLevel: user.FitnessLevel,
		Workout:      summarize(w),
		Performance:  in.Performance,
		Goals:        user.Preferences.Goals,
		Stats:        user.Stats,
	})
	if err != nil {
		return nil, upstreamError(err)
	}
	return feedback, nil
}

func PredictProgress(ctx context.Context, q sqlx.ExtContext, predictor ProgressPredictor, userID string) (json.RawMessage, error) {
	user, err := GetActiveUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	history, err := workoutHistory(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	prediction, err := predictor.PredictProgress(ctx, ProgressRequest{
		UserID:       userID,
		FitnessLevel: user.FitnessLevel,
		Goals:        user.Preferences.Goals,
		Stats:        user.Stats,
		History:      history,
	})
	if err != nil {
		return nil, upstreamError(err)
	}
	return prediction, nil
}
