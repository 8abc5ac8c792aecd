package services

import (
	"context"
	"database/sql"
	"math"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
)

const streakWindow = 30

type completedSessionRow struct {
	CompletedAt time.Time     `db:"completed_at"`
	Duration    sql.NullInt64 `db:"duration"`
	Rating      sql.NullInt64 `db:"rating"`
}

// RefreshUserStats recomputes the aggregate counters from completed sessions
// and stores them on the user. The longest streak never decreases.
func RefreshUserStats(ctx context.Context, q sqlx.ExtContext, userID string, now time.Time) (models.UserStats, error) {
	user, err := GetUser(ctx, q, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	rows := []completedSessionRow{}
	if err := db.Select(ctx, q, &rows, `
SELECT completed_at, duration, rating
FROM workout_sessions
WHERE user_id = ? AND status = ? AND completed_at IS NOT NULL
ORDER BY completed_at DESC`, userID, models.SessionCompleted); err != nil {
		return models.UserStats{}, err
	}

	stats := models.UserStats{TotalWorkouts: len(rows)}
	totalSeconds := int64(0)
	ratingSum, rated := int64(0), 0
	days := make([]time.Time, 0, streakWindow)
	for i, row := range rows {
		if row.Duration.Valid {
			totalSeconds += row.Duration.Int64
		}
		if row.Rating.Valid {
			ratingSum += row.Rating.Int64
			rated++
		}
		if i < streakWindow {
			days = append(days, row.CompletedAt)
		}
	}
	stats.TotalMinutes = int(totalSeconds / 60)
	if rated > 0 {
		stats.AverageRating = math.Round(float64(ratingSum)/float64(rated)*10) / 10
	}
	stats.CurrentStreak = CurrentStreak(days, now)
	stats.LongestStreak = user.Stats.LongestStreak
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}

	if _, err := db.Exec(ctx, q, `UPDATE users SET stats = ?, updated_at = ? WHERE id = ?`, stats, now.UTC(), userID); err != nil {
		return models.UserStats{}, err
	}
	return stats, nil
}

// CurrentStreak counts consecutive calendar days (UTC) with a completed session,
// walking back from the most recent. Several sessions on one day count once. A
// streak whose last day is before yesterday has lapsed.
func CurrentStreak(completedDesc []time.Time, now time.Time) int {
	if len(completedDesc) == 0 {
		return 0
	}
	today := truncateDay(now)
	last := truncateDay(completedDesc[0])
	if today.Sub(last) > 24*time.Hour {
		return 0
	}
	streak := 1
	for _, ts := range completedDesc[1:] {
		day := truncateDay(ts)
		gap := last.Sub(day)
		switch {
		case gap == 0:
			continue
		case gap == 24*time.Hour:
			streak++
			last = day
		default:
			return streak
		}
	}
	return streak
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ActiveUserIDs lists users with at least one completed session, for batch refreshes.
func ActiveUserIDs(ctx context.Context, q sqlx.ExtContext) ([]string, error) {
	ids := []string{}
	err := db.Select(ctx, q, &ids, `
SELECT DISTINCT s.user_id FROM workout_sessions s
JOIN users u ON u.id = s.user_id
WHERE s.status = ? AND u.is_active = ?`, models.SessionCompleted, true)
	return ids, err
}
