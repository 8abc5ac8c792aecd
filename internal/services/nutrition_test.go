package services

import (
	"context"
	"testing"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestAddMeal_TotalsAreSumOfMeals(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	_, breakfast, err := AddMeal(ctx, database, user.ID, AddMealInput{
		Date: "2026-03-02",
		Type: "breakfast",
		Foods: []FoodInput{
			{Name: "Oats", Quantity: decimal.NewFromInt(80), Calories: 300, Protein: dec("10.5"), Carbs: dec("54")},
			{Name: "Banana", Quantity: decimal.NewFromInt(1), Unit: "piece", Calories: 105, Carbs: dec("27"), Sugar: dec("14.4")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 405, breakfast.Calories)
	assert.Equal(t, "g", breakfast.Foods[0].Unit)

	daily, lunch, err := AddMeal(ctx, database, user.ID, AddMealInput{
		Date:  "2026-03-02",
		Type:  "lunch",
		Name:  "Chicken bowl",
		Foods: []FoodInput{{Name: "Chicken breast", Quantity: decimal.NewFromInt(150), Calories: 250, Protein: dec("46.25"), Fat: dec("5.4")}},
	})
	require.NoError(t, err)

	require.Len(t, daily.Meals, 2)
	want := breakfast.Macros.Add(lunch.Macros)
	assert.Equal(t, want.Calories, daily.Calories)
	assert.True(t, want.Protein.Equal(daily.Protein), "protein %s != %s", want.Protein, daily.Protein)
	assert.True(t, want.Carbs.Equal(daily.Carbs))
	assert.True(t, want.Fat.Equal(daily.Fat))
	assert.True(t, want.Sugar.Equal(daily.Sugar))
	assert.Equal(t, 3, daily.Version)

	stored, err := GetOrCreateDailyLog(ctx, database, user.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 655, stored.Calories)
	assert.True(t, decimal.RequireFromString("56.75").Equal(stored.Protein))
}

func TestAddMeal_Validation(t *testing.T) {
	database := newTestDB(t)
	user := newUser(t, database, models.RoleFree)

	_, _, err := AddMeal(context.Background(), database, user.ID, AddMealInput{
		Date:  "02/03/2026",
		Type:  "brunch",
		Foods: []FoodInput{{Name: "Toast", Quantity: decimal.Zero}},
	})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, se.Kind)
	fields := map[string]bool{}
	for _, fe := range se.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["date"])
	assert.True(t, fields["type"])
	assert.True(t, fields["foods.quantity"])
}

func TestSetWaterIntake_Idempotent(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	for i := 0; i < 2; i++ {
		log, err := SetWaterIntake(ctx, database, user.ID, "2026-03-03", 2000)
		require.NoError(t, err)
		assert.Equal(t, 2000, log.WaterIntake)
	}
	daily, err := GetOrCreateDailyLog(ctx, database, user.ID, "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, 2000, daily.WaterIntake)
	assert.Empty(t, daily.Meals)

	_, err = SetWaterIntake(ctx, database, user.ID, "2026-03-03", -1)
	assert.True(t, IsKind(err, KindValidation))
}

func TestStoreLogTotals_RejectsStaleVersion(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	read, err := ensureDailyLog(ctx, database, user.ID, "2026-03-04")
	require.NoError(t, err)

	// Another meal add lands between the read and the guarded write.
	_, err = db.Exec(ctx, database, `UPDATE nutrition_logs SET total_calories = ?, version = version + 1 WHERE id = ?`, 500, read.ID)
	require.NoError(t, err)

	err = storeLogTotals(ctx, database, read, models.Macros{Calories: 120}, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict), "got %v", err)

	stored, err := GetOrCreateDailyLog(ctx, database, user.ID, "2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, 500, stored.Calories)
	assert.Equal(t, read.Version+1, stored.Version)
}

func TestSetWaterIntake_DoesNotBumpVersion(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	read, err := ensureDailyLog(ctx, database, user.ID, "2026-03-05")
	require.NoError(t, err)

	water, err := SetWaterIntake(ctx, database, user.ID, "2026-03-05", 1500)
	require.NoError(t, err)
	assert.Equal(t, read.Version, water.Version)

	require.NoError(t, storeLogTotals(ctx, database, read, models.Macros{Calories: 300}, time.Now().UTC()))

	stored, err := GetOrCreateDailyLog(ctx, database, user.ID, "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, 300, stored.Calories)
	assert.Equal(t, 1500, stored.WaterIntake)
}

func TestNutritionAnalytics_AveragesOverLoggedDays(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	for _, day := range []string{"2026-03-03", "2026-03-04"} {
		_, _, err := AddMeal(ctx, database, user.ID, AddMealInput{
			Date:  day,
			Type:  "dinner",
			Foods: []FoodInput{{Name: "Rice", Quantity: decimal.NewFromInt(200), Calories: 260}},
		})
		require.NoError(t, err)
	}

	out, err := GetNutritionAnalytics(ctx, database, user.ID, 7, now)
	require.NoError(t, err)
	assert.Equal(t, 260, out.AverageCalories)
	assert.Len(t, out.DailyBreakdown, 2)
	assert.Equal(t, 7, out.Days)
}
