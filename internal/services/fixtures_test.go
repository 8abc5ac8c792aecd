package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/migrations"
	"fitcoach-backend-go/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	pushUpID = "0b7d3c1e-4f7a-4c55-9a43-1d2f0a6c0001"
	squatID  = "0b7d3c1e-4f7a-4c55-9a43-1d2f0a6c0002"
	plankID  = "0b7d3c1e-4f7a-4c55-9a43-1d2f0a6c0003"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Apply(context.Background(), database))
	require.NoError(t, EnsureAchievementCatalog(context.Background(), database))
	return database
}

func newUser(t *testing.T, q sqlx.ExtContext, role string) models.User {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:                 uuid.NewString(),
		Email:              gofakeit.Email(),
		PasswordHash:       "x",
		FirstName:          gofakeit.FirstName(),
		LastName:           gofakeit.LastName(),
		FitnessLevel:       "beginner",
		Role:               role,
		SubscriptionStatus: models.SubscriptionInactive,
		Preferences:        models.DefaultPreferences(),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, InsertUser(context.Background(), q, u))
	return u
}

func intPtr(v int) *int { return &v }

func simpleWorkout(exerciseIDs ...string) WorkoutInput {
	in := WorkoutInput{
		Name:       "Morning circuit",
		Duration:   30,
		Difficulty: "beginner",
		Category:   "functional",
	}
	for _, id := range exerciseIDs {
		in.Exercises = append(in.Exercises, WorkoutExerciseInput{ExerciseID: id, Sets: intPtr(3), Reps: intPtr(10)})
	}
	return in
}

type published struct {
	topic   string
	payload interface{}
}

type recordingBus struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBus) Publish(_ context.Context, topic string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{topic: topic, payload: payload})
	return nil
}

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.topic)
	}
	return out
}
