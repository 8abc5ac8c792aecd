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

func TestFeatureTemplate(t *testing.T) {
	tests := []struct {
		role string
		want []string
	}{
		{models.RoleFree, nil},
		{models.RolePremium, []string{FeatureAICoaching, FeatureFormAnalysis, FeatureAdvancedAnalytics, FeatureCustomWorkouts}},
		{models.RoleElite, AllFeatures},
		{models.RoleTrainer, nil},
		{models.RoleAdmin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			set := FeatureTemplate(tt.role)
			assert.Len(t, set, len(AllFeatures))
			enabled := []string{}
			for _, f := range AllFeatures {
				if set[f] {
					enabled = append(enabled, f)
				}
			}
			assert.ElementsMatch(t, tt.want, enabled)
		})
	}
}

func TestRoleHasFeature_NutritionAIIsEliteOnly(t *testing.T) {
	for _, role := range []string{models.RoleFree, models.RolePremium, models.RoleTrainer, models.RoleAdmin} {
		assert.False(t, RoleHasFeature(role, FeatureNutritionAI), role)
	}
	assert.True(t, RoleHasFeature(models.RoleElite, FeatureNutritionAI))
	assert.False(t, RoleHasFeature(models.RoleElite, "teleportation"))
}

func TestEntitlements_CachesUntilInvalidated(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)
	ent := NewEntitlements(1, 60)

	ok, err := ent.HasFeature(ctx, database, user.ID, FeatureAICoaching)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = db.Exec(ctx, database, `UPDATE users SET role = ? WHERE id = ?`, models.RolePremium, user.ID)
	require.NoError(t, err)

	ok, err = ent.HasFeature(ctx, database, user.ID, FeatureAICoaching)
	require.NoError(t, err)
	assert.False(t, ok, "cached document is served until invalidated")

	ent.Invalidate(user.ID)
	ok, err = ent.HasFeature(ctx, database, user.ID, FeatureAICoaching)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEntitlements_NilResolvesFromDatabase(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleElite)

	var ent *Entitlements
	ok, err := ent.HasFeature(ctx, database, user.ID, FeatureNutritionAI)
	require.NoError(t, err)
	assert.True(t, ok)
	ent.Invalidate(user.ID)

	_, err = ent.Resolve(ctx, database, "missing")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestEntitlements_StaffSubscriptionGrantsNothing(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	ent := NewEntitlements(1, 60)

	for i, role := range []string{models.RoleAdmin, models.RoleTrainer} {
		user := newUser(t, database, role)
		evID, subID := "evt_staff_"+role, "sub_staff_"+role
		_, err := ApplyBillingEvent(ctx, database, ent, nil,
			subscriptionEvent(evID, EventSubscriptionCreated, subID, models.SubscriptionActive, user.ID, models.RoleElite, time.Now().Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)

		gotRole, status := userRole(t, database, user.ID)
		assert.Equal(t, role, gotRole)
		assert.Equal(t, models.SubscriptionActive, status)

		set, err := ent.Resolve(ctx, database, user.ID)
		require.NoError(t, err)
		assert.Equal(t, FeatureTemplate(user.Role), set)
		assert.False(t, set[FeatureNutritionAI], role)
		assert.False(t, set[FeatureAICoaching], role)
	}
}

func TestEntitlements_NutritionAIFollowsRole(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	_, err := ApplyBillingEvent(ctx, database, nil, nil,
		subscriptionEvent("evt_elite", EventSubscriptionCreated, "sub_elite", models.SubscriptionActive, user.ID, models.RoleElite, time.Now()))
	require.NoError(t, err)
	ok, err := (*Entitlements)(nil).HasFeature(ctx, database, user.ID, FeatureNutritionAI)
	require.NoError(t, err)
	assert.True(t, ok)

	// A role drift away from elite must not leave nutrition_ai on.
	_, err = db.Exec(ctx, database, `UPDATE users SET role = ? WHERE id = ?`, models.RolePremium, user.ID)
	require.NoError(t, err)
	ok, err = (*Entitlements)(nil).HasFeature(ctx, database, user.ID, FeatureNutritionAI)
	require.NoError(t, err)
	assert.False(t, ok)
}
