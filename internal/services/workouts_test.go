package services

import (
	"context"
	"testing"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkout_PositionsFollowInputOrder(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	detail, err := CreateWorkout(ctx, database, user.ID, simpleWorkout(plankID, pushUpID, squatID))
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 3)
	for i, ex := range detail.Exercises {
		assert.Equal(t, i+1, ex.Position)
	}
	assert.Equal(t, plankID, detail.Exercises[0].ExerciseID)
	assert.Equal(t, squatID, detail.Exercises[2].ExerciseID)
	assert.Equal(t, CreatedByUser, detail.CreatedBy)
}

func TestCreateWorkout_UnknownExerciseWritesNothing(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	_, err := CreateWorkout(ctx, database, user.ID, simpleWorkout(pushUpID, "does-not-exist"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))

	var n int
	require.NoError(t, db.Get(ctx, database, &n, `SELECT COUNT(*) FROM workouts WHERE user_id = ?`, user.ID))
	assert.Zero(t, n)
}

func TestCreateWorkout_Validation(t *testing.T) {
	database := newTestDB(t)
	user := newUser(t, database, models.RoleFree)

	in := simpleWorkout()
	in.Difficulty = "legendary"
	_, err := CreateWorkout(context.Background(), database, user.ID, in)
	require.Error(t, err)
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, se.Kind)
	fields := map[string]bool{}
	for _, fe := range se.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["difficulty"])
	assert.True(t, fields["exercises"])
}

func TestStartSession_PrivateWorkoutOfAnotherUser(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	owner := newUser(t, database, models.RoleFree)
	other := newUser(t, database, models.RoleFree)

	w, err := CreateWorkout(ctx, database, owner.ID, simpleWorkout(pushUpID))
	require.NoError(t, err)

	_, err = StartSession(ctx, database, other.ID, w.ID)
	assert.True(t, IsKind(err, KindAccessDenied))

	s, err := StartSession(ctx, database, owner.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, s.Status)
	assert.Equal(t, 1, s.Version)
}

func TestCompleteSession_SecondCompletionConflicts(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)
	bus := &recordingBus{}

	w, err := CreateWorkout(ctx, database, user.ID, simpleWorkout(pushUpID))
	require.NoError(t, err)
	s, err := StartSession(ctx, database, user.ID, w.ID)
	require.NoError(t, err)

	done, err := CompleteSession(ctx, database, bus, user.ID, s.ID, CompleteSessionInput{Duration: 1800, Rating: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, done.Session.Status)
	assert.Equal(t, 1, done.Stats.TotalWorkouts)
	assert.Equal(t, 30, done.Stats.TotalMinutes)
	assert.Equal(t, 1, done.Stats.CurrentStreak)
	require.NotEmpty(t, done.Unlocked)
	assert.Equal(t, "First Workout", done.Unlocked[0].Name)

	var first models.WorkoutSession
	require.NoError(t, db.Get(ctx, database, &first, `SELECT `+sessionColumns+` FROM workout_sessions WHERE id = ?`, s.ID))

	_, err = CompleteSession(ctx, database, bus, user.ID, s.ID, CompleteSessionInput{Duration: 60})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))

	var after models.WorkoutSession
	require.NoError(t, db.Get(ctx, database, &after, `SELECT `+sessionColumns+` FROM workout_sessions WHERE id = ?`, s.ID))
	require.NotNil(t, after.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(*after.CompletedAt))
	assert.Equal(t, int64(1800), after.Duration.Int64)
	assert.Equal(t, []string{TopicSessionCompleted}, bus.topics())
}

func TestCompleteSession_StampsWorkoutLastWriteWins(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	w, err := CreateWorkout(ctx, database, user.ID, simpleWorkout(pushUpID))
	require.NoError(t, err)
	require.Nil(t, w.CompletedAt)

	early, err := StartSession(ctx, database, user.ID, w.ID)
	require.NoError(t, err)
	late, err := StartSession(ctx, database, user.ID, w.ID)
	require.NoError(t, err)

	first, err := CompleteSession(ctx, database, nil, user.ID, late.ID, CompleteSessionInput{Duration: 900})
	require.NoError(t, err)
	got, err := GetWorkout(ctx, database, user.ID, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, *first.Session.CompletedAt, *got.CompletedAt, time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	second, err := CompleteSession(ctx, database, nil, user.ID, early.ID, CompleteSessionInput{Duration: 1200})
	require.NoError(t, err)
	got, err = GetWorkout(ctx, database, user.ID, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, *second.Session.CompletedAt, *got.CompletedAt, time.Millisecond)
	assert.True(t, got.CompletedAt.After(*first.Session.CompletedAt))
}

func TestCompleteSession_ForeignSessionLooksMissing(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	owner := newUser(t, database, models.RoleFree)
	other := newUser(t, database, models.RoleFree)

	w, err := CreateWorkout(ctx, database, owner.ID, simpleWorkout(pushUpID))
	require.NoError(t, err)
	s, err := StartSession(ctx, database, owner.ID, w.ID)
	require.NoError(t, err)

	_, err = CompleteSession(ctx, database, nil, other.ID, s.ID, CompleteSessionInput{Duration: 60})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestRecordAndCompleteSet(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	w, err := CreateWorkout(ctx, database, user.ID, simpleWorkout(squatID))
	require.NoError(t, err)
	s, err := StartSession(ctx, database, user.ID, w.ID)
	require.NoError(t, err)

	set, err := RecordSet(ctx, database, user.ID, s.ID, RecordSetInput{
		WorkoutExerciseID: w.Exercises[0].ID,
		SetNumber:         1,
		TargetReps:        intPtr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, "reps", set.Type)
	assert.Equal(t, 60, set.RestTime)

	done, err := CompleteSet(ctx, database, user.ID, set.ID, CompleteSetInput{ActualReps: intPtr(11), FormScore: intPtr(85)})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, int64(11), done.ActualReps.Int64)

	stranger := newUser(t, database, models.RoleFree)
	_, err = CompleteSet(ctx, database, stranger.ID, set.ID, CompleteSetInput{})
	assert.True(t, IsKind(err, KindNotFound))
}
