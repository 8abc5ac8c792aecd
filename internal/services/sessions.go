package services

import (
	"context"
	"database/sql"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const sessionColumns = `id, user_id, workout_id, status, started_at, completed_at, duration, calories_burned, rating,
notes, performance, version, created_at, updated_at`

const setColumns = `id, workout_exercise_id, session_id, set_number, type, target_reps, actual_reps, weight, duration,
distance, rest_time, form_score, completed, completed_at, notes, created_at`

var SetTypes = []string{"reps", "time", "distance"}

func StartSession(ctx context.Context, q sqlx.ExtContext, userID, workoutID string) (models.WorkoutSession, error) {
	w, err := visibleWorkout(ctx, q, userID, workoutID)
	if err != nil {
		return models.WorkoutSession{}, err
	}
	now := time.Now().UTC()
	s := models.WorkoutSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		WorkoutID:   w.ID,
		Status:      models.SessionInProgress,
		StartedAt:   now,
		Performance: models.JSONMap{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = db.Exec(ctx, q, `
INSERT INTO workout_sessions (id, user_id, workout_id, status, started_at, performance, version, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.WorkoutID, s.Status, s.StartedAt, s.Performance, s.Version, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return models.WorkoutSession{}, err
	}
	return s, nil
}

// ownSession loads a session of the user. Foreign sessions look missing.
func ownSession(ctx context.Context, q sqlx.ExtContext, userID, sessionID string) (models.WorkoutSession, error) {
	var s models.WorkoutSession
	if err := db.Get(ctx, q, &s, `SELECT `+sessionColumns+` FROM workout_sessions WHERE id = ? AND user_id = ?`, sessionID, userID); err != nil {
		if db.IsNotFound(err) {
			return models.WorkoutSession{}, ErrNotFound("Workout session not found")
		}
		return models.WorkoutSession{}, err
	}
	return s, nil
}

type CompleteSessionInput struct {
	Duration       int            `json:"duration"`
	CaloriesBurned *int           `json:"caloriesBurned"`
	Rating         *int           `json:"rating"`
	Notes          string         `json:"notes"`
	Performance    models.JSONMap `json:"performance"`
}

type CompletedSession struct {
	Session  models.WorkoutSession
	Stats    models.UserStats
	Unlocked []models.Achievement
}

type SessionCompletedEvent struct {
	UserID         string    `json:"userId"`
	SessionID      string    `json:"sessionId"`
	WorkoutID      string    `json:"workoutId"`
	Duration       int       `json:"duration"`
	CaloriesBurned *int      `json:"caloriesBurned,omitempty"`
	CompletedAt    time.Time `json:"completedAt"`
}

// CompleteSession finishes an in-progress session. The update is guarded by the
// row version, so only one of several concurrent completions succeeds and the
// others get a conflict.
func CompleteSession(ctx context.Context, database *sqlx.DB, bus EventPublisher, userID, sessionID string, in CompleteSessionInput) (CompletedSession, error) {
	v := Violations{}
	MinInt("duration", in.Duration, 1, v)
	if in.CaloriesBurned != nil {
		MinInt("caloriesBurned", *in.CaloriesBurned, 0, v)
	}
	if in.Rating != nil {
		RangeInt("rating", *in.Rating, 1, 5, v)
	}
	MaxLength("notes", in.Notes, 500, v)
	if err := v.Err(); err != nil {
		return CompletedSession{}, err
	}

	var session models.WorkoutSession
	err := db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		var err error
		session, err = ownSession(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Status == models.SessionCompleted {
			return ErrConflict("Workout session already completed")
		}
		now := time.Now().UTC()
		session.Status = models.SessionCompleted
		session.CompletedAt = &now
		session.Duration = sql.NullInt64{Int64: int64(in.Duration), Valid: true}
		session.CaloriesBurned = nullInt(in.CaloriesBurned)
		session.Rating = nullInt(in.Rating)
		session.Notes = sql.NullString{String: in.Notes, Valid: in.Notes != ""}
		if in.Performance != nil {
			session.Performance = in.Performance
		}
		session.UpdatedAt = now
		ok, err := db.ExecOne(ctx, tx, `
UPDATE workout_sessions SET status = ?, completed_at = ?, duration = ?, calories_burned = ?, rating = ?, notes = ?,
  performance = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ? AND status <> ?`,
			session.Status, session.CompletedAt, session.Duration, session.CaloriesBurned, session.Rating, session.Notes,
			session.Performance, session.UpdatedAt, session.ID, session.Version, models.SessionCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict("Workout session was modified concurrently")
		}
		session.Version++
		_, err = db.Exec(ctx, tx, `UPDATE workouts SET completed_at = ?, updated_at = ? WHERE id = ?`, now, now, session.WorkoutID)
		return err
	})
	if err != nil {
		return CompletedSession{}, err
	}

	out := CompletedSession{Session: session}
	out.Stats, err = RefreshUserStats(ctx, database, userID, time.Now().UTC())
	if err != nil {
		log.Errorf("refresh stats for %s: %s", userID, err)
	} else if out.Unlocked, err = EvaluateAchievements(ctx, database, userID, out.Stats); err != nil {
		log.Errorf("evaluate achievements for %s: %s", userID, err)
	}
	publish(ctx, bus, TopicSessionCompleted, SessionCompletedEvent{
		UserID:         userID,
		SessionID:      session.ID,
		WorkoutID:      session.WorkoutID,
		Duration:       in.Duration,
		CaloriesBurned: in.CaloriesBurned,
		CompletedAt:    *session.CompletedAt,
	})
	return out, nil
}

type SessionHistoryItem struct {
	models.WorkoutSession
	WorkoutName       string `db:"workout_name"`
	WorkoutCategory   string `db:"workout_category"`
	WorkoutDifficulty string `db:"workout_difficulty"`
	WorkoutDuration   int    `db:"workout_duration"`
}

func SessionHistory(ctx context.Context, q sqlx.ExtContext, userID string, page Pagination) ([]SessionHistoryItem, Pagination, error) {
	var total int
	if err := db.Get(ctx, q, &total, `SELECT COUNT(*) FROM workout_sessions WHERE user_id = ? AND status = ?`,
		userID, models.SessionCompleted); err != nil {
		return nil, Pagination{}, err
	}
	items := []SessionHistoryItem{}
	err := db.Select(ctx, q, &items, `
SELECT s.id, s.user_id, s.workout_id, s.status, s.started_at, s.completed_at, s.duration, s.calories_burned, s.rating,
       s.notes, s.performance, s.version, s.created_at, s.updated_at,
       w.name AS workout_name, w.category AS workout_category, w.difficulty AS workout_difficulty, w.duration AS workout_duration
FROM workout_sessions s
JOIN workouts w ON w.id = s.workout_id
WHERE s.user_id = ? AND s.status = ?
ORDER BY s.completed_at DESC
LIMIT ? OFFSET ?`, userID, models.SessionCompleted, page.Limit, page.Offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	return items, page.WithTotal(total), nil
}

type RecordSetInput struct {
	WorkoutExerciseID string           `json:"workoutExerciseId"`
	SetNumber         int              `json:"setNumber"`
	Type              string           `json:"type"`
	TargetReps        *int             `json:"targetReps"`
	Weight            *decimal.Decimal `json:"weight"`
	Duration          *int             `json:"duration"`
	Distance          *decimal.Decimal `json:"distance"`
	RestTime          *int             `json:"restTime"`
}

func RecordSet(ctx context.Context, q sqlx.ExtContext, userID, sessionID string, in RecordSetInput) (models.ExerciseSet, error) {
	if in.Type == "" {
		in.Type = "reps"
	}
	v := Violations{}
	Required("workoutExerciseId", in.WorkoutExerciseID, v)
	MinInt("setNumber", in.SetNumber, 1, v)
	OneOf("type", in.Type, SetTypes, v)
	if in.RestTime != nil {
		MinInt("restTime", *in.RestTime, 0, v)
	}
	if in.Weight != nil {
		NonNegativeDecimal("weight", *in.Weight, v)
	}
	if err := v.Err(); err != nil {
		return models.ExerciseSet{}, err
	}
	session, err := ownSession(ctx, q, userID, sessionID)
	if err != nil {
		return models.ExerciseSet{}, err
	}
	var belongs bool
	if err := db.Get(ctx, q, &belongs, `SELECT EXISTS(SELECT 1 FROM workout_exercises WHERE id = ? AND workout_id = ?)`,
		in.WorkoutExerciseID, session.WorkoutID); err != nil {
		return models.ExerciseSet{}, err
	}
	if !belongs {
		return models.ExerciseSet{}, ErrNotFound("Workout exercise not found")
	}
	set := models.ExerciseSet{
		ID:                uuid.NewString(),
		WorkoutExerciseID: in.WorkoutExerciseID,
		SessionID:         sql.NullString{String: session.ID, Valid: true},
		SetNumber:         in.SetNumber,
		Type:              in.Type,
		TargetReps:        nullInt(in.TargetReps),
		Weight:            nullDecimal(in.Weight),
		Duration:          nullInt(in.Duration),
		Distance:          nullDecimal(in.Distance),
		RestTime:          intOr(in.RestTime, 60),
		CreatedAt:         time.Now().UTC(),
	}
	_, err = db.Exec(ctx, q, `
INSERT INTO exercise_sets (id, workout_exercise_id, session_id, set_number, type, target_reps, weight, duration, distance,
                           rest_time, completed, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		set.ID, set.WorkoutExerciseID, set.SessionID, set.SetNumber, set.Type, set.TargetReps, set.Weight, set.Duration,
		set.Distance, set.RestTime, set.Completed, set.CreatedAt)
	if err != nil {
		return models.ExerciseSet{}, err
	}
	return set, nil
}

type CompleteSetInput struct {
	ActualReps *int             `json:"actualReps"`
	Weight     *decimal.Decimal `json:"weight"`
	Duration   *int             `json:"duration"`
	Distance   *decimal.Decimal `json:"distance"`
	FormScore  *int             `json:"formScore"`
	Notes      string           `json:"notes"`
}

// CompleteSet records the actual performance of a set. It does not look at the
// session status.
func CompleteSet(ctx context.Context, q sqlx.ExtContext, userID, setID string, in CompleteSetInput) (models.ExerciseSet, error) {
	v := Violations{}
	if in.ActualReps != nil {
		MinInt("actualReps", *in.ActualReps, 0, v)
	}
	if in.FormScore != nil {
		RangeInt("formScore", *in.FormScore, 0, 100, v)
	}
	if in.Weight != nil {
		NonNegativeDecimal("weight", *in.Weight, v)
	}
	MaxLength("notes", in.Notes, 500, v)
	if err := v.Err(); err != nil {
		return models.ExerciseSet{}, err
	}

	var set models.ExerciseSet
	err := db.Get(ctx, q, &set, `
SELECT s.id, s.workout_exercise_id, s.session_id, s.set_number, s.type, s.target_reps, s.actual_reps, s.weight, s.duration,
       s.distance, s.rest_time, s.form_score, s.completed, s.completed_at, s.notes, s.created_at
FROM exercise_sets s
JOIN workout_exercises we ON we.id = s.workout_exercise_id
JOIN workouts w ON w.id = we.workout_id
LEFT JOIN workout_sessions ws ON ws.id = s.session_id
WHERE s.id = ? AND (ws.user_id = ? OR (s.session_id IS NULL AND w.user_id = ?))`, setID, userID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return models.ExerciseSet{}, ErrNotFound("Exercise set not found")
		}
		return models.ExerciseSet{}, err
	}

	now := time.Now().UTC()
	set.Completed = true
	set.CompletedAt = &now
	if in.ActualReps != nil {
		set.ActualReps = nullInt(in.ActualReps)
	}
	if in.Weight != nil {
		set.Weight = nullDecimal(in.Weight)
	}
	if in.Duration != nil {
		set.Duration = nullInt(in.Duration)
	}
	if in.Distance != nil {
		set.Distance = nullDecimal(in.Distance)
	}
	if in.FormScore != nil {
		set.FormScore = nullInt(in.FormScore)
	}
	if in.Notes != "" {
		set.Notes = sql.NullString{String: in.Notes, Valid: true}
	}
	_, err = db.Exec(ctx, q, `
UPDATE exercise_sets SET completed = ?, completed_at = ?, actual_reps = ?, weight = ?, duration = ?, distance = ?,
  form_score = ?, notes = ?
WHERE id = ?`,
		set.Completed, set.CompletedAt, set.ActualReps, set.Weight, set.Duration, set.Distance, set.FormScore, set.Notes, set.ID)
	if err != nil {
		return models.ExerciseSet{}, err
	}
	return set, nil
}

// updateSetFormScore stamps the analysed score on the matching set of a session, if one exists.
func updateSetFormScore(ctx context.Context, q sqlx.ExtContext, sessionID, exerciseID string, setNumber, score int) (bool, error) {
	res, err := db.Exec(ctx, q, `
UPDATE exercise_sets SET form_score = ?
WHERE session_id = ? AND set_number = ?
  AND workout_exercise_id IN (SELECT id FROM workout_exercises WHERE exercise_id = ?)`,
		score, sessionID, setNumber, exerciseID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
