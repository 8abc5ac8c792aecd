package services

import (
	"context"
	"encoding/json"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	CriteriaTotalWorkouts = "total_workouts"
	CriteriaStreak        = "streak"
	CriteriaTotalMinutes  = "total_minutes"
)

type AchievementCriteria struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type achievementSeed struct {
	Name        string
	Description string
	Category    string
	Rarity      string
	Icon        string
	Points      int
	Criteria    AchievementCriteria
}

var achievementCatalog = []achievementSeed{
	{"First Workout", "Complete your first workout", "milestone", "common", "trophy", 10, AchievementCriteria{CriteriaTotalWorkouts, 1}},
	{"Getting Serious", "Complete 10 workouts", "milestone", "uncommon", "medal", 25, AchievementCriteria{CriteriaTotalWorkouts, 10}},
	{"Half Century", "Complete 50 workouts", "milestone", "rare", "star", 50, AchievementCriteria{CriteriaTotalWorkouts, 50}},
	{"Week Warrior", "Work out 7 days in a row", "consistency", "rare", "flame", 50, AchievementCriteria{CriteriaStreak, 7}},
	{"Thousand Minutes", "Train for 1000 minutes in total", "endurance", "epic", "clock", 100, AchievementCriteria{CriteriaTotalMinutes, 1000}},
}

// EnsureAchievementCatalog inserts the built-in achievements that are missing.
func EnsureAchievementCatalog(ctx context.Context, q sqlx.ExtContext) error {
	for _, seed := range achievementCatalog {
		criteria, err := json.Marshal(seed.Criteria)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx, q, `
INSERT INTO achievements (id, name, description, category, rarity, icon, criteria, points, is_active, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), seed.Name, seed.Description, seed.Category, seed.Rarity, seed.Icon, string(criteria),
			seed.Points, true, time.Now().UTC())
		if err != nil {
			return err
		}
	}
	return nil
}

const achievementColumns = `id, name, description, category, rarity, icon, criteria, points, is_active, created_at`

func AchievementCatalog(ctx context.Context, q sqlx.ExtContext) ([]models.Achievement, error) {
	items := []models.Achievement{}
	err := db.Select(ctx, q, &items, `SELECT `+achievementColumns+` FROM achievements WHERE is_active = ? ORDER BY points, name`, true)
	return items, err
}

type UnlockedAchievement struct {
	models.Achievement
	UnlockedAt time.Time `db:"unlocked_at"`
}

func UserAchievements(ctx context.Context, q sqlx.ExtContext, userID string) ([]UnlockedAchievement, error) {
	items := []UnlockedAchievement{}
	err := db.Select(ctx, q, &items, `
SELECT a.id, a.name, a.description, a.category, a.rarity, a.icon, a.criteria, a.points, a.is_active, a.created_at,
       ua.unlocked_at
FROM user_achievements ua
JOIN achievements a ON a.id = ua.achievement_id
WHERE ua.user_id = ?
ORDER BY ua.unlocked_at DESC`, userID)
	return items, err
}

// criteriaMet reports whether stats satisfy the criteria. Unknown types never match.
func criteriaMet(c AchievementCriteria, stats models.UserStats) bool {
	if c.Value <= 0 {
		return false
	}
	switch c.Type {
	case CriteriaTotalWorkouts:
		return stats.TotalWorkouts >= c.Value
	case CriteriaStreak:
		return stats.CurrentStreak >= c.Value || stats.LongestStreak >= c.Value
	case CriteriaTotalMinutes:
		return stats.TotalMinutes >= c.Value
	}
	return false
}

// EvaluateAchievements unlocks every active achievement the stats now satisfy
// and returns the newly unlocked ones.
func EvaluateAchievements(ctx context.Context, q sqlx.ExtContext, userID string, stats models.UserStats) ([]models.Achievement, error) {
	catalog, err := AchievementCatalog(ctx, q)
	if err != nil {
		return nil, err
	}
	unlocked := []models.Achievement{}
	now := time.Now().UTC()
	for _, a := range catalog {
		var c AchievementCriteria
		if err := json.Unmarshal(a.Criteria, &c); err != nil {
			continue
		}
		if !criteriaMet(c, stats) {
			continue
		}
		inserted, err := db.ExecOne(ctx, q, `
INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at) VALUES (?,?,?,?)
ON CONFLICT (user_id, achievement_id) DO NOTHING`, uuid.NewString(), userID, a.ID, now)
		if err != nil {
			return nil, err
		}
		if inserted {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}

// RefreshAllUsers recomputes stats and achievements for every user with a
// completed session. Failures for one user do not stop the others.
func RefreshAllUsers(ctx context.Context, q sqlx.ExtContext, now time.Time) (refreshed int, failed int, err error) {
	ids, err := ActiveUserIDs(ctx, q)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return refreshed, failed, ctx.Err()
		}
		stats, err := RefreshUserStats(ctx, q, id, now)
		if err != nil {
			failed++
			continue
		}
		if _, err := EvaluateAchievements(ctx, q, id, stats); err != nil {
			failed++
			continue
		}
		refreshed++
	}
	return refreshed, failed, nil
}
