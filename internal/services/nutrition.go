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

var MealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

const logColumns = `id, user_id, log_date, total_calories, total_protein, total_carbs, total_fat, total_fiber,
total_sugar, total_sodium, water_intake, notes, version, created_at, updated_at`

const mealColumns = `id, nutrition_log_id, type, name, total_calories, total_protein, total_carbs, total_fat, total_fiber,
total_sugar, total_sodium, logged_at`

const foodColumns = `id, meal_id, name, brand, barcode, quantity, unit, calories, protein, carbs, fat, fiber, sugar, sodium`

type MealDetail struct {
	models.Meal
	Foods []models.Food
}

type DailyLog struct {
	models.NutritionLog
	Meals []MealDetail
}

// ensureDailyLog returns the user's log for the day, creating it when absent.
// A concurrent insert of the same day is absorbed by the conflict clause.
func ensureDailyLog(ctx context.Context, q sqlx.ExtContext, userID, day string) (models.NutritionLog, error) {
	now := time.Now().UTC()
	if _, err := db.Exec(ctx, q, `
INSERT INTO nutrition_logs (id, user_id, log_date, version, created_at, updated_at)
VALUES (?,?,?,?,?,?)
ON CONFLICT (user_id, log_date) DO NOTHING`, uuid.NewString(), userID, day, 1, now, now); err != nil {
		return models.NutritionLog{}, err
	}
	var log models.NutritionLog
	err := db.Get(ctx, q, &log, `SELECT `+logColumns+` FROM nutrition_logs WHERE user_id = ? AND log_date = ?`, userID, day)
	return log, err
}

func GetOrCreateDailyLog(ctx context.Context, q sqlx.ExtContext, userID, date string) (DailyLog, error) {
	v := Violations{}
	day := ParseDay("date", date, v)
	if err := v.Err(); err != nil {
		return DailyLog{}, err
	}
	log, err := ensureDailyLog(ctx, q, userID, day)
	if err != nil {
		return DailyLog{}, err
	}
	meals, err := logMeals(ctx, q, log.ID)
	if err != nil {
		return DailyLog{}, err
	}
	return DailyLog{NutritionLog: log, Meals: meals}, nil
}

func logMeals(ctx context.Context, q sqlx.ExtContext, logID string) ([]MealDetail, error) {
	meals := []models.Meal{}
	if err := db.Select(ctx, q, &meals, `SELECT `+mealColumns+` FROM meals WHERE nutrition_log_id = ? ORDER BY logged_at, id`, logID); err != nil {
		return nil, err
	}
	foods := []models.Food{}
	if err := db.Select(ctx, q, &foods, `
SELECT f.id, f.meal_id, f.name, f.brand, f.barcode, f.quantity, f.unit, f.calories, f.protein, f.carbs, f.fat, f.fiber,
       f.sugar, f.sodium
FROM foods f JOIN meals m ON m.id = f.meal_id
WHERE m.nutrition_log_id = ?`, logID); err != nil {
		return nil, err
	}
	byMeal := map[string][]models.Food{}
	for _, f := range foods {
		byMeal[f.MealID] = append(byMeal[f.MealID], f)
	}
	out := make([]MealDetail, 0, len(meals))
	for _, m := range meals {
		items := byMeal[m.ID]
		if items == nil {
			items = []models.Food{}
		}
		out = append(out, MealDetail{Meal: m, Foods: items})
	}
	return out, nil
}

type FoodInput struct {
	Name     string           `json:"name"`
	Brand    string           `json:"brand"`
	Barcode  string           `json:"barcode"`
	Quantity decimal.Decimal  `json:"quantity"`
	Unit     string           `json:"unit"`
	Calories int              `json:"calories"`
	Protein  *decimal.Decimal `json:"protein"`
	Carbs    *decimal.Decimal `json:"carbs"`
	Fat      *decimal.Decimal `json:"fat"`
	Fiber    *decimal.Decimal `json:"fiber"`
	Sugar    *decimal.Decimal `json:"sugar"`
	Sodium   *decimal.Decimal `json:"sodium"`
}

type AddMealInput struct {
	Date  string      `json:"date"`
	Type  string      `json:"type"`
	Name  string      `json:"name"`
	Foods []FoodInput `json:"foods"`
}

func decOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Round(2)
}

func (in AddMealInput) validate(v Violations) string {
	day := ParseDay("date", in.Date, v)
	OneOf("type", in.Type, MealTypes, v)
	MaxLength("name", in.Name, 100, v)
	if len(in.Foods) == 0 {
		v.Add("foods", "must contain at least one food")
	}
	for _, f := range in.Foods {
		Required("foods.name", f.Name, v)
		PositiveDecimal("foods.quantity", f.Quantity, v)
		MinInt("foods.calories", f.Calories, 0, v)
		for field, val := range map[string]*decimal.Decimal{
			"foods.protein": f.Protein, "foods.carbs": f.Carbs, "foods.fat": f.Fat,
			"foods.fiber": f.Fiber, "foods.sugar": f.Sugar, "foods.sodium": f.Sodium,
		} {
			if val != nil {
				NonNegativeDecimal(field, *val, v)
			}
		}
	}
	return day
}

// AddMeal stores a meal with its foods and recomputes the day's totals from every
// meal of the log. The log update is version guarded: a concurrent meal add
// makes one of the two fail with a conflict instead of losing a meal.
func AddMeal(ctx context.Context, database *sqlx.DB, userID string, in AddMealInput) (DailyLog, MealDetail, error) {
	v := Violations{}
	day := in.validate(v)
	if err := v.Err(); err != nil {
		return DailyLog{}, MealDetail{}, err
	}

	var out DailyLog
	var meal MealDetail
	err := db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		log, err := ensureDailyLog(ctx, tx, userID, day)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		meal = MealDetail{Meal: models.Meal{
			ID:             uuid.NewString(),
			NutritionLogID: log.ID,
			Type:           in.Type,
			Name:           sql.NullString{String: strings.TrimSpace(in.Name), Valid: strings.TrimSpace(in.Name) != ""},
			LoggedAt:       now,
		}}
		for _, fi := range in.Foods {
			food := models.Food{
				ID:       uuid.NewString(),
				MealID:   meal.ID,
				Name:     strings.TrimSpace(fi.Name),
				Brand:    sql.NullString{String: fi.Brand, Valid: fi.Brand != ""},
				Barcode:  sql.NullString{String: fi.Barcode, Valid: fi.Barcode != ""},
				Quantity: fi.Quantity.Round(2),
				Unit:     fi.Unit,
				Calories: fi.Calories,
				Protein:  decOrZero(fi.Protein),
				Carbs:    decOrZero(fi.Carbs),
				Fat:      decOrZero(fi.Fat),
				Fiber:    decOrZero(fi.Fiber),
				Sugar:    decOrZero(fi.Sugar),
				Sodium:   decOrZero(fi.Sodium),
			}
			if food.Unit == "" {
				food.Unit = "g"
			}
			meal.Macros = meal.Macros.Add(food.Macros())
			meal.Foods = append(meal.Foods, food)
		}

		if _, err := db.Exec(ctx, tx, `
INSERT INTO meals (id, nutrition_log_id, type, name, total_calories, total_protein, total_carbs, total_fat, total_fiber,
                   total_sugar, total_sodium, logged_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			meal.ID, meal.NutritionLogID, meal.Type, meal.Name, meal.Calories, meal.Protein, meal.Carbs, meal.Fat, meal.Fiber,
			meal.Sugar, meal.Sodium, meal.LoggedAt); err != nil {
			return err
		}
		for _, f := range meal.Foods {
			if _, err := db.Exec(ctx, tx, `
INSERT INTO foods (id, meal_id, name, brand, barcode, quantity, unit, calories, protein, carbs, fat, fiber, sugar, sodium)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				f.ID, f.MealID, f.Name, f.Brand, f.Barcode, f.Quantity, f.Unit, f.Calories, f.Protein, f.Carbs, f.Fat,
				f.Fiber, f.Sugar, f.Sodium); err != nil {
				return err
			}
		}

		meals, err := logMeals(ctx, tx, log.ID)
		if err != nil {
			return err
		}
		totals := models.Macros{}
		for _, m := range meals {
			totals = totals.Add(m.Macros)
		}
		if err := storeLogTotals(ctx, tx, log, totals, now); err != nil {
			return err
		}
		log.Macros = totals
		log.Version++
		log.UpdatedAt = now
		out = DailyLog{NutritionLog: log, Meals: meals}
		return nil
	})
	if err != nil {
		return DailyLog{}, MealDetail{}, err
	}
	return out, meal, nil
}

// storeLogTotals writes recomputed totals only if the log still has the version
// the caller read.
func storeLogTotals(ctx context.Context, q sqlx.ExtContext, log models.NutritionLog, totals models.Macros, now time.Time) error {
	ok, err := db.ExecOne(ctx, q, `
UPDATE nutrition_logs SET total_calories = ?, total_protein = ?, total_carbs = ?, total_fat = ?, total_fiber = ?,
  total_sugar = ?, total_sodium = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ?`,
		totals.Calories, totals.Protein, totals.Carbs, totals.Fat, totals.Fiber, totals.Sugar, totals.Sodium, now,
		log.ID, log.Version)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict("Nutrition log was modified concurrently, please retry")
	}
	return nil
}

// SetWaterIntake overwrites the day's water total. It leaves version alone:
// the version guards meal totals and a water write cannot lose a meal.
func SetWaterIntake(ctx context.Context, q sqlx.ExtContext, userID, date string, waterIntake int) (models.NutritionLog, error) {
	v := Violations{}
	day := ParseDay("date", date, v)
	MinInt("waterIntake", waterIntake, 0, v)
	if err := v.Err(); err != nil {
		return models.NutritionLog{}, err
	}
	log, err := ensureDailyLog(ctx, q, userID, day)
	if err != nil {
		return models.NutritionLog{}, err
	}
	log.WaterIntake = waterIntake
	log.UpdatedAt = time.Now().UTC()
	if _, err := db.Exec(ctx, q, `UPDATE nutrition_logs SET water_intake = ?, updated_at = ? WHERE id = ?`,
		waterIntake, log.UpdatedAt, log.ID); err != nil {
		return models.NutritionLog{}, err
	}
	return log, nil
}

type MacroDistribution struct {
	Protein decimal.Decimal `json:"protein"`
	Carbs   decimal.Decimal `json:"carbs"`
	Fat     decimal.Decimal `json:"fat"`
}

type NutritionDay struct {
	Date     string          `json:"date"`
	Calories int             `json:"calories"`
	Protein  decimal.Decimal `json:"protein"`
	Carbs    decimal.Decimal `json:"carbs"`
	Fat      decimal.Decimal `json:"fat"`
	Water    int             `json:"water"`
}

type NutritionAnalytics struct {
	Days              int               `json:"days"`
	AverageCalories   int               `json:"averageCalories"`
	AverageProtein    decimal.Decimal   `json:"averageProtein"`
	AverageCarbs      decimal.Decimal   `json:"averageCarbs"`
	AverageFat        decimal.Decimal   `json:"averageFat"`
	AverageWater      int               `json:"averageWater"`
	MacroDistribution MacroDistribution `json:"macroDistribution"`
	DailyBreakdown    []NutritionDay    `json:"dailyBreakdown"`
}

var (
	kcalPerGramProtein = decimal.NewFromInt(4)
	kcalPerGramCarbs   = decimal.NewFromInt(4)
	kcalPerGramFat     = decimal.NewFromInt(9)
	hundred            = decimal.NewFromInt(100)
)

// GetNutritionAnalytics summarises the logs of the last `days` days up to today.
func GetNutritionAnalytics(ctx context.Context, q sqlx.ExtContext, userID string, days int, now time.Time) (NutritionAnalytics, error) {
	v := Violations{}
	RangeInt("days", days, 1, 365, v)
	if err := v.Err(); err != nil {
		return NutritionAnalytics{}, err
	}
	end := truncateDay(now)
	start := end.AddDate(0, 0, -days)
	logs := []models.NutritionLog{}
	if err := db.Select(ctx, q, &logs, `SELECT `+logColumns+` FROM nutrition_logs
WHERE user_id = ? AND log_date >= ? AND log_date <= ? ORDER BY log_date`,
		userID, start.Format(DayLayout), end.Format(DayLayout)); err != nil {
		return NutritionAnalytics{}, err
	}

	out := NutritionAnalytics{Days: days, DailyBreakdown: []NutritionDay{}}
	if len(logs) == 0 {
		return out, nil
	}
	totals := models.Macros{}
	water := 0
	for _, l := range logs {
		totals = totals.Add(l.Macros)
		water += l.WaterIntake
		out.DailyBreakdown = append(out.DailyBreakdown, NutritionDay{
			Date: l.Date, Calories: l.Calories, Protein: l.Protein, Carbs: l.Carbs, Fat: l.Fat, Water: l.WaterIntake,
		})
	}
	n := decimal.NewFromInt(int64(len(logs)))
	out.AverageCalories = int(decimal.NewFromInt(int64(totals.Calories)).Div(n).Round(0).IntPart())
	out.AverageProtein = totals.Protein.Div(n).Round(2)
	out.AverageCarbs = totals.Carbs.Div(n).Round(2)
	out.AverageFat = totals.Fat.Div(n).Round(2)
	out.AverageWater = int(decimal.NewFromInt(int64(water)).Div(n).Round(0).IntPart())

	proteinKcal := totals.Protein.Mul(kcalPerGramProtein)
	carbsKcal := totals.Carbs.Mul(kcalPerGramCarbs)
	fatKcal := totals.Fat.Mul(kcalPerGramFat)
	macroKcal := proteinKcal.Add(carbsKcal).Add(fatKcal)
	if macroKcal.IsPositive() {
		out.MacroDistribution = MacroDistribution{
			Protein: proteinKcal.Div(macroKcal).Mul(hundred).Round(1),
			Carbs:   carbsKcal.Div(macroKcal).Mul(hundred).Round(1),
			Fat:     fatKcal.Div(macroKcal).Mul(hundred).Round(1),
		}
	}
	return out, nil
}
