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

var WorkoutCategories = []string{"strength", "cardio", "flexibility", "sports", "rehabilitation", "yoga", "pilates", "hiit", "functional"}

const (
	CreatedByUser    = "user"
	CreatedByAI      = "ai"
	CreatedByTrainer = "trainer"
)

const workoutColumns = `id, user_id, name, description, duration, difficulty, category, created_by, is_public, calories,
target_muscles, equipment, ai_coaching_notes, rating, completed_at, created_at, updated_at`

type WorkoutExerciseInput struct {
	ExerciseID string           `json:"exerciseId"`
	Sets       *int             `json:"sets"`
	Reps       *int             `json:"reps"`
	Weight     *decimal.Decimal `json:"weight"`
	Duration   *int             `json:"duration"`
	Distance   *decimal.Decimal `json:"distance"`
	RestTime   *int             `json:"restTime"`
	Notes      string           `json:"notes"`
}

type WorkoutInput struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Duration        int                    `json:"duration"`
	Difficulty      string                 `json:"difficulty"`
	Category        string                 `json:"category"`
	IsPublic        bool                   `json:"isPublic"`
	Calories        *int                   `json:"calories"`
	TargetMuscles   []string               `json:"targetMuscles"`
	Equipment       []string               `json:"equipment"`
	AICoachingNotes string                 `json:"aiCoachingNotes"`
	Exercises       []WorkoutExerciseInput `json:"exercises"`
}

func (in WorkoutInput) validate() error {
	v := Violations{}
	LengthBetween("name", in.Name, 1, 100, v)
	MinInt("duration", in.Duration, 1, v)
	OneOf("difficulty", in.Difficulty, Difficulties, v)
	OneOf("category", in.Category, WorkoutCategories, v)
	if in.Calories != nil {
		MinInt("calories", *in.Calories, 0, v)
	}
	if len(in.Exercises) == 0 {
		v.Add("exercises", "must contain at least one exercise")
	}
	for _, ex := range in.Exercises {
		Required("exercises.exerciseId", ex.ExerciseID, v)
		if ex.Sets != nil {
			MinInt("exercises.sets", *ex.Sets, 1, v)
		}
		if ex.Reps != nil {
			MinInt("exercises.reps", *ex.Reps, 1, v)
		}
		if ex.Weight != nil {
			NonNegativeDecimal("exercises.weight", *ex.Weight, v)
		}
		if ex.Duration != nil {
			MinInt("exercises.duration", *ex.Duration, 1, v)
		}
		if ex.Distance != nil {
			NonNegativeDecimal("exercises.distance", *ex.Distance, v)
		}
		if ex.RestTime != nil {
			MinInt("exercises.restTime", *ex.RestTime, 0, v)
		}
	}
	return v.Err()
}

type WorkoutExerciseDetail struct {
	models.WorkoutExercise
	ExerciseName     string `db:"exercise_name"`
	ExerciseCategory string `db:"exercise_category"`
}

type WorkoutDetail struct {
	models.Workout
	Exercises []WorkoutExerciseDetail
}

// CreateWorkout writes the workout and its exercises in one transaction;
// positions follow input order starting at 1.
func CreateWorkout(ctx context.Context, database *sqlx.DB, userID string, in WorkoutInput) (WorkoutDetail, error) {
	if err := in.validate(); err != nil {
		return WorkoutDetail{}, err
	}
	var out WorkoutDetail
	err := db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		var err error
		out, err = createWorkoutTx(ctx, tx, userID, in, CreatedByUser)
		return err
	})
	return out, err
}

func createWorkoutTx(ctx context.Context, tx *sqlx.Tx, userID string, in WorkoutInput, createdBy string) (WorkoutDetail, error) {
	now := time.Now().UTC()
	w := models.Workout{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Duration:      in.Duration,
		Difficulty:    in.Difficulty,
		Category:      in.Category,
		CreatedBy:     createdBy,
		IsPublic:      in.IsPublic,
		TargetMuscles: models.StringList(in.TargetMuscles),
		Equipment:     models.StringList(in.Equipment),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Calories != nil {
		w.Calories = sql.NullInt64{Int64: int64(*in.Calories), Valid: true}
	}
	if in.AICoachingNotes != "" {
		w.AICoachingNotes = sql.NullString{String: in.AICoachingNotes, Valid: true}
	}
	if _, err := db.Exec(ctx, tx, `
INSERT INTO workouts (id, user_id, name, description, duration, difficulty, category, created_by, is_public, calories,
                      target_muscles, equipment, ai_coaching_notes, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		w.ID, w.UserID, w.Name, w.Description, w.Duration, w.Difficulty, w.Category, w.CreatedBy, w.IsPublic, w.Calories,
		w.TargetMuscles, w.Equipment, w.AICoachingNotes, w.CreatedAt, w.UpdatedAt); err != nil {
		return WorkoutDetail{}, err
	}

	detail := WorkoutDetail{Workout: w, Exercises: make([]WorkoutExerciseDetail, 0, len(in.Exercises))}
	for i, item := range in.Exercises {
		ex, err := GetExercise(ctx, tx, item.ExerciseID)
		if err != nil {
			if IsKind(err, KindNotFound) {
				return WorkoutDetail{}, ErrNotFound("Exercise not found: " + item.ExerciseID)
			}
			return WorkoutDetail{}, err
		}
		we := models.WorkoutExercise{
			ID:         uuid.NewString(),
			WorkoutID:  w.ID,
			ExerciseID: ex.ID,
			Position:   i + 1,
			Sets:       intOr(item.Sets, 3),
			Reps:       nullInt(item.Reps),
			Weight:     nullDecimal(item.Weight),
			Duration:   nullInt(item.Duration),
			Distance:   nullDecimal(item.Distance),
			RestTime:   intOr(item.RestTime, 60),
		}
		if item.Notes != "" {
			we.Notes = sql.NullString{String: item.Notes, Valid: true}
		}
		if _, err := db.Exec(ctx, tx, `
INSERT INTO workout_exercises (id, workout_id, exercise_id, position, sets, reps, weight, duration, distance, rest_time, notes)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			we.ID, we.WorkoutID, we.ExerciseID, we.Position, we.Sets, we.Reps, we.Weight, we.Duration, we.Distance,
			we.RestTime, we.Notes); err != nil {
			return WorkoutDetail{}, err
		}
		detail.Exercises = append(detail.Exercises, WorkoutExerciseDetail{WorkoutExercise: we, ExerciseName: ex.Name, ExerciseCategory: ex.Category})
	}
	return detail, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}

type WorkoutFilter struct {
	Category   string
	Difficulty string
	Page       Pagination
}

func ListWorkouts(ctx context.Context, q sqlx.ExtContext, userID string, f WorkoutFilter) ([]models.Workout, Pagination, error) {
	where := " WHERE user_id = ?"
	args := []interface{}{userID}
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		where += " AND difficulty = ?"
		args = append(args, f.Difficulty)
	}
	var total int
	if err := db.Get(ctx, q, &total, `SELECT COUNT(*) FROM workouts`+where, args...); err != nil {
		return nil, Pagination{}, err
	}
	items := []models.Workout{}
	args = append(args, f.Page.Limit, f.Page.Offset())
	if err := db.Select(ctx, q, &items, `SELECT `+workoutColumns+` FROM workouts`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...); err != nil {
		return nil, Pagination{}, err
	}
	return items, f.Page.WithTotal(total), nil
}

func getWorkoutRow(ctx context.Context, q sqlx.ExtContext, id string) (models.Workout, error) {
	var w models.Workout
	if err := db.Get(ctx, q, &w, `SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id); err != nil {
		if db.IsNotFound(err) {
			return models.Workout{}, ErrNotFound("Workout not found")
		}
		return models.Workout{}, err
	}
	return w, nil
}

// visibleWorkout loads a workout the user owns or that is public.
func visibleWorkout(ctx context.Context, q sqlx.ExtContext, userID, id string) (models.Workout, error) {
	w, err := getWorkoutRow(ctx, q, id)
	if err != nil {
		return models.Workout{}, err
	}
	if w.UserID != userID && !w.IsPublic {
		return models.Workout{}, ErrForbidden("Access denied")
	}
	return w, nil
}

func GetWorkout(ctx context.Context, q sqlx.ExtContext, userID, id string) (WorkoutDetail, error) {
	w, err := visibleWorkout(ctx, q, userID, id)
	if err != nil {
		return WorkoutDetail{}, err
	}
	exercises, err := workoutExercises(ctx, q, w.ID)
	if err != nil {
		return WorkoutDetail{}, err
	}
	return WorkoutDetail{Workout: w, Exercises: exercises}, nil
}

func workoutExercises(ctx context.Context, q sqlx.ExtContext, workoutID string) ([]WorkoutExerciseDetail, error) {
	items := []WorkoutExerciseDetail{}
	err := db.Select(ctx, q, &items, `
SELECT we.id, we.workout_id, we.exercise_id, we.position, we.sets, we.reps, we.weight, we.duration, we.distance,
       we.rest_time, we.notes, e.name AS exercise_name, e.category AS exercise_category
FROM workout_exercises we
JOIN exercises e ON e.id = we.exercise_id
WHERE we.workout_id = ?
ORDER BY we.position`, workoutID)
	return items, err
}

func RateWorkout(ctx context.Context, q sqlx.ExtContext, userID, id string, rating int) (models.Workout, error) {
	v := Violations{}
	RangeInt("rating", rating, 1, 5, v)
	if err := v.Err(); err != nil {
		return models.Workout{}, err
	}
	w, err := getWorkoutRow(ctx, q, id)
	if err != nil {
		return models.Workout{}, err
	}
	if w.UserID != userID {
		return models.Workout{}, ErrNotFound("Workout not found")
	}
	w.Rating = sql.NullInt64{Int64: int64(rating), Valid: true}
	w.UpdatedAt = time.Now().UTC()
	if _, err := db.Exec(ctx, q, `UPDATE workouts SET rating = ?, updated_at = ? WHERE id = ?`, w.Rating, w.UpdatedAt, w.ID); err != nil {
		return models.Workout{}, err
	}
	return w, nil
}

// PublicWorkoutsBy lists the public workouts a user has published, newest first.
func PublicWorkoutsBy(ctx context.Context, q sqlx.ExtContext, userID string, limit int) ([]models.Workout, error) {
	items := []models.Workout{}
	err := db.Select(ctx, q, &items, `SELECT `+workoutColumns+` FROM workouts WHERE user_id = ? AND is_public = ?
ORDER BY created_at DESC LIMIT ?`, userID, true, limit)
	return items, err
}

// RecentCompletedWorkouts returns up to limit completed workouts for AI context.
func RecentCompletedWorkouts(ctx context.Context, q sqlx.ExtContext, userID string, limit int) ([]models.Workout, error) {
	items := []models.Workout{}
	err := db.Select(ctx, q, &items, `SELECT `+workoutColumns+` FROM workouts WHERE user_id = ? AND completed_at IS NOT NULL
ORDER BY completed_at DESC LIMIT ?`, userID, limit)
	return items, err
}
