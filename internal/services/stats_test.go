package services

import (
	"context"
	"testing"
	"time"

	"fitcoach-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day := func(offset int, hour int) time.Time {
		return time.Date(2026, 3, 10+offset, hour, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		in   []time.Time
		want int
	}{
		{"none", nil, 0},
		{"today only", []time.Time{day(0, 7)}, 1},
		{"yesterday keeps the streak", []time.Time{day(-1, 20), day(-2, 6)}, 2},
		{"lapsed", []time.Time{day(-2, 10), day(-3, 10)}, 0},
		{"same day counts once", []time.Time{day(0, 8), day(0, 7), day(-1, 18), day(-1, 6)}, 2},
		{"gap stops counting", []time.Time{day(0, 8), day(-1, 8), day(-3, 8), day(-4, 8)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentStreak(tt.in, now))
		})
	}
}

func TestRefreshAllUsers_UnlocksAchievements(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)
	idle := newUser(t, database, models.RoleFree)

	w, err := CreateWorkout(ctx, database, user.ID, simpleWorkout(pushUpID))
	require.NoError(t, err)
	s, err := StartSession(ctx, database, user.ID, w.ID)
	require.NoError(t, err)
	_, err = CompleteSession(ctx, database, nil, user.ID, s.ID, CompleteSessionInput{Duration: 600})
	require.NoError(t, err)

	refreshed, failed, err := RefreshAllUsers(ctx, database, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)
	assert.Zero(t, failed)

	got, err := UserAchievements(ctx, database, user.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "First Workout", got[0].Name)

	none, err := UserAchievements(ctx, database, idle.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCriteriaMet(t *testing.T) {
	stats := models.UserStats{TotalWorkouts: 10, TotalMinutes: 400, CurrentStreak: 2, LongestStreak: 7}
	assert.True(t, criteriaMet(AchievementCriteria{CriteriaTotalWorkouts, 10}, stats))
	assert.False(t, criteriaMet(AchievementCriteria{CriteriaTotalWorkouts, 11}, stats))
	assert.True(t, criteriaMet(AchievementCriteria{CriteriaStreak, 7}, stats))
	assert.False(t, criteriaMet(AchievementCriteria{CriteriaTotalMinutes, 1000}, stats))
	assert.False(t, criteriaMet(AchievementCriteria{"calories", 1}, stats))
	assert.False(t, criteriaMet(AchievementCriteria{CriteriaTotalWorkouts, 0}, stats))
}
