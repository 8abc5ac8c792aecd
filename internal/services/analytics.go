package services

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var timeframeDays = map[string]int{"7d": 7, "30d": 30, "90d": 90, "1y": 365}

// ParseTimeframe maps 7d, 30d, 90d and 1y to a start time before now. Empty means 30d.
func ParseTimeframe(timeframe string, now time.Time) (string, time.Time, error) {
	if timeframe == "" {
		timeframe = "30d"
	}
	days, ok := timeframeDays[timeframe]
	if !ok {
		v := Violations{}
		v.Add("timeframe", "must be one of 7d, 30d, 90d, 1y")
		return "", time.Time{}, v.Err()
	}
	if timeframe == "1y" {
		return timeframe, now.AddDate(-1, 0, 0), nil
	}
	return timeframe, now.AddDate(0, 0, -days), nil
}

// IsAdvancedTimeframe is true for ranges that need the advanced analytics feature.
func IsAdvancedTimeframe(timeframe string) bool {
	return timeframe == "90d" || timeframe == "1y"
}

type DashboardSummary struct {
	TotalWorkouts int     `json:"totalWorkouts"`
	TotalDuration int     `json:"totalDuration"`
	TotalCalories int     `json:"totalCalories"`
	AverageRating float64 `json:"averageRating"`
}

type WeekProgress struct {
	Week     string `json:"week"`
	Workouts int    `json:"workouts"`
	Duration int    `json:"duration"`
	Calories int    `json:"calories"`
}

type Dashboard struct {
	Summary           DashboardSummary `json:"summary"`
	WorkoutsByDay     map[string]int   `json:"workoutsByDay"`
	CategoryBreakdown map[string]int   `json:"categoryBreakdown"`
	WeeklyProgress    []WeekProgress   `json:"weeklyProgress"`
	Timeframe         string           `json:"timeframe"`
}

type dashboardRow struct {
	CompletedAt    time.Time      `db:"completed_at"`
	Duration       sql.NullInt64  `db:"duration"`
	CaloriesBurned sql.NullInt64  `db:"calories_burned"`
	Rating         sql.NullInt64  `db:"rating"`
	Category       sql.NullString `db:"category"`
}

func GetDashboard(ctx context.Context, q sqlx.ExtContext, userID, timeframe string, now time.Time) (Dashboard, error) {
	timeframe, start, err := ParseTimeframe(timeframe, now)
	if err != nil {
		return Dashboard{}, err
	}
	rows := []dashboardRow{}
	if err := db.Select(ctx, q, &rows, `
SELECT s.completed_at, s.duration, s.calories_burned, s.rating, w.category
FROM workout_sessions s
LEFT JOIN workouts w ON w.id = s.workout_id
WHERE s.user_id = ? AND s.completed_at IS NOT NULL AND s.completed_at >= ? AND s.completed_at <= ?
ORDER BY s.completed_at`, userID, start.UTC(), now.UTC()); err != nil {
		return Dashboard{}, err
	}

	out := Dashboard{
		WorkoutsByDay:     map[string]int{},
		CategoryBreakdown: map[string]int{},
		WeeklyProgress:    []WeekProgress{},
		Timeframe:         timeframe,
	}
	seconds, ratingSum := 0, 0
	for _, r := range rows {
		seconds += int(r.Duration.Int64)
		out.Summary.TotalCalories += int(r.CaloriesBurned.Int64)
		ratingSum += int(r.Rating.Int64)
		out.WorkoutsByDay[r.CompletedAt.UTC().Format(DayLayout)]++
		category := "unknown"
		if r.Category.Valid {
			category = r.Category.String
		}
		out.CategoryBreakdown[category]++
	}
	out.Summary.TotalWorkouts = len(rows)
	out.Summary.TotalDuration = int(math.Round(float64(seconds) / 60))
	if len(rows) > 0 {
		out.Summary.AverageRating = math.Round(float64(ratingSum)/float64(len(rows))*10) / 10
	}

	week := 7 * 24 * time.Hour
	weeks := int(math.Ceil(float64(now.Sub(start)) / float64(week)))
	for i := 0; i < weeks; i++ {
		ws := start.Add(time.Duration(i) * week)
		we := ws.Add(week)
		p := WeekProgress{Week: ws.UTC().Format(DayLayout)}
		for _, r := range rows {
			if !r.CompletedAt.Before(ws) && r.CompletedAt.Before(we) {
				p.Workouts++
				p.Duration += int(r.Duration.Int64)
				p.Calories += int(r.CaloriesBurned.Int64)
			}
		}
		out.WeeklyProgress = append(out.WeeklyProgress, p)
	}
	return out, nil
}

type DailyActive struct {
	Date  string `json:"date"`
	Users int    `json:"users"`
}

type AdminAnalytics struct {
	Users struct {
		Total       int           `json:"total"`
		New         int           `json:"new"`
		DailyActive []DailyActive `json:"dailyActive"`
	} `json:"users"`
	Subscriptions struct {
		Active  int             `json:"active"`
		Revenue decimal.Decimal `json:"revenue"`
	} `json:"subscriptions"`
	Workouts struct {
		Total int `json:"total"`
	} `json:"workouts"`
	Trainers struct {
		Total   int `json:"total"`
		Pending int `json:"pending"`
	} `json:"trainers"`
	Host      *HostSample `json:"host,omitempty"`
	Timeframe string      `json:"timeframe"`
}

func GetAdminAnalytics(ctx context.Context, q sqlx.ExtContext, timeframe string, now time.Time) (AdminAnalytics, error) {
	timeframe, start, err := ParseTimeframe(timeframe, now)
	if err != nil {
		return AdminAnalytics{}, err
	}
	var out AdminAnalytics
	out.Timeframe = timeframe
	start = start.UTC()

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&out.Users.Total, `SELECT COUNT(*) FROM users`, nil},
		{&out.Users.New, `SELECT COUNT(*) FROM users WHERE created_at >= ?`, []interface{}{start}},
		{&out.Subscriptions.Active, `SELECT COUNT(*) FROM subscriptions WHERE status = ?`, []interface{}{models.SubscriptionActive}},
		{&out.Workouts.Total, `SELECT COUNT(*) FROM workout_sessions WHERE completed_at IS NOT NULL AND created_at >= ?`, []interface{}{start}},
		{&out.Trainers.Total, `SELECT COUNT(*) FROM trainers WHERE application_status = ?`, []interface{}{models.ApplicationApproved}},
		{&out.Trainers.Pending, `SELECT COUNT(*) FROM trainers WHERE application_status = ?`, []interface{}{models.ApplicationPending}},
	}
	for _, c := range counts {
		if err := db.Get(ctx, q, c.dest, c.query, c.args...); err != nil {
			return AdminAnalytics{}, err
		}
	}

	prices := []decimal.Decimal{}
	if err := db.Select(ctx, q, &prices, `SELECT price FROM subscriptions WHERE status = ?`, models.SubscriptionActive); err != nil {
		return AdminAnalytics{}, err
	}
	out.Subscriptions.Revenue = decimal.Zero
	for _, p := range prices {
		out.Subscriptions.Revenue = out.Subscriptions.Revenue.Add(p)
	}

	activity := []struct {
		UserID    string    `db:"user_id"`
		CreatedAt time.Time `db:"created_at"`
	}{}
	if err := db.Select(ctx, q, &activity, `SELECT user_id, created_at FROM workout_sessions WHERE created_at >= ?`, start); err != nil {
		return AdminAnalytics{}, err
	}
	perDay := map[string]map[string]struct{}{}
	for _, a := range activity {
		day := a.CreatedAt.UTC().Format(DayLayout)
		if perDay[day] == nil {
			perDay[day] = map[string]struct{}{}
		}
		perDay[day][a.UserID] = struct{}{}
	}
	out.Users.DailyActive = make([]DailyActive, 0, len(perDay))
	for day, users := range perDay {
		out.Users.DailyActive = append(out.Users.DailyActive, DailyActive{Date: day, Users: len(users)})
	}
	sort.Slice(out.Users.DailyActive, func(i, j int) bool { return out.Users.DailyActive[i].Date < out.Users.DailyActive[j].Date })

	samples, err := LatestHostSamples(ctx, q, 1)
	if err != nil {
		return AdminAnalytics{}, err
	}
	if len(samples) == 1 {
		out.Host = &samples[0]
	}
	return out, nil
}

type TrainerAnalytics struct {
	Earnings struct {
		Total     decimal.Decimal `json:"total"`
		ThisMonth decimal.Decimal `json:"thisMonth"`
		LastMonth decimal.Decimal `json:"lastMonth"`
		Growth    decimal.Decimal `json:"growth"`
	} `json:"earnings"`
	Sessions struct {
		Total     int `json:"total"`
		ThisMonth int `json:"thisMonth"`
		Completed int `json:"completed"`
		Canceled  int `json:"canceled"`
	} `json:"sessions"`
	Clients struct {
		Total     int `json:"total"`
		New       int `json:"new"`
		Returning int `json:"returning"`
	} `json:"clients"`
	Rating struct {
		Average decimal.Decimal `json:"average"`
		Total   int             `json:"total"`
	} `json:"rating"`
	Timeframe string `json:"timeframe"`
}

func GetTrainerAnalytics(ctx context.Context, q sqlx.ExtContext, userID, timeframe string, now time.Time) (TrainerAnalytics, error) {
	timeframe, start, err := ParseTimeframe(timeframe, now)
	if err != nil {
		return TrainerAnalytics{}, err
	}
	t, err := trainerByUser(ctx, q, userID)
	if err != nil {
		return TrainerAnalytics{}, err
	}
	earnings, err := GetTrainerEarnings(ctx, q, userID, now)
	if err != nil {
		return TrainerAnalytics{}, err
	}
	bookings, err := trainerBookings(ctx, q, t.ID)
	if err != nil {
		return TrainerAnalytics{}, err
	}

	var out TrainerAnalytics
	out.Timeframe = timeframe
	out.Earnings.Total = earnings.TotalEarnings
	out.Earnings.ThisMonth = earnings.ThisMonth
	out.Earnings.LastMonth = earnings.LastMonth
	out.Earnings.Growth = decimal.Zero
	if earnings.LastMonth.IsPositive() {
		out.Earnings.Growth = earnings.ThisMonth.Sub(earnings.LastMonth).Div(earnings.LastMonth).Mul(hundred).Round(1)
	}
	out.Rating.Average = t.Rating
	out.Rating.Total = t.ReviewCount

	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	firstBooking := map[string]time.Time{}
	perClient := map[string]int{}
	for _, b := range bookings {
		out.Sessions.Total++
		if !b.ScheduledAt.Before(monthStart) {
			out.Sessions.ThisMonth++
		}
		switch b.Status {
		case BookingCompleted:
			out.Sessions.Completed++
		case BookingCanceled:
			out.Sessions.Canceled++
		}
		perClient[b.ClientID]++
		if first, ok := firstBooking[b.ClientID]; !ok || b.CreatedAt.Before(first) {
			firstBooking[b.ClientID] = b.CreatedAt
		}
	}
	out.Clients.Total = len(perClient)
	for client, n := range perClient {
		if n > 1 {
			out.Clients.Returning++
		}
		if !firstBooking[client].Before(start) {
			out.Clients.New++
		}
	}
	return out, nil
}
