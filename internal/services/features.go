package services

import (
	"context"
	"encoding/json"

	"fitcoach-backend-go/internal/models"

	"github.com/coocood/freecache"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

const (
	FeatureAICoaching        = "ai_coaching"
	FeatureFormAnalysis      = "form_analysis"
	FeatureNutritionAI       = "nutrition_ai"
	FeatureAdvancedAnalytics = "advanced_analytics"
	FeatureCustomWorkouts    = "custom_workouts"
	FeaturePersonalTrainer   = "personal_trainer"
)

var AllFeatures = []string{
	FeatureAICoaching,
	FeatureFormAnalysis,
	FeatureNutritionAI,
	FeatureAdvancedAnalytics,
	FeatureCustomWorkouts,
	FeaturePersonalTrainer,
}

var premiumFeatures = []string{FeatureAICoaching, FeatureFormAnalysis, FeatureAdvancedAnalytics, FeatureCustomWorkouts}

// FeatureTemplate returns the static entitlement document for a role. Only
// paid tiers carry features; admins and trainers get none from billing.
func FeatureTemplate(role string) models.FeatureSet {
	set := models.FeatureSet{}
	for _, f := range AllFeatures {
		set[f] = false
	}
	switch role {
	case models.RolePremium:
		for _, f := range premiumFeatures {
			set[f] = true
		}
	case models.RoleElite:
		for _, f := range AllFeatures {
			set[f] = true
		}
	}
	return set
}

func RoleHasFeature(role, feature string) bool {
	return FeatureTemplate(role)[feature]
}

func IsKnownFeature(feature string) bool {
	for _, f := range AllFeatures {
		if f == feature {
			return true
		}
	}
	return false
}

// Entitlements resolves feature documents through an in-process cache keyed by
// user id. A nil *Entitlements resolves straight from the database.
type Entitlements struct {
	cache      *freecache.Cache
	ttlSeconds int
}

func NewEntitlements(sizeMB, ttlSeconds int) *Entitlements {
	if sizeMB < 1 {
		sizeMB = 1
	}
	return &Entitlements{
		cache:      freecache.NewCache(sizeMB * 1024 * 1024),
		ttlSeconds: ttlSeconds,
	}
}

func (e *Entitlements) Resolve(ctx context.Context, q sqlx.ExtContext, userID string) (models.FeatureSet, error) {
	if e != nil {
		if raw, err := e.cache.Get([]byte(userID)); err == nil {
			set := models.FeatureSet{}
			if err := json.Unmarshal(raw, &set); err == nil {
				return set, nil
			}
			log.Warnf("entitlements: dropping corrupt cache entry for %s", userID)
		}
	}

	set, err := loadEntitlements(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	if e != nil {
		raw, _ := json.Marshal(set)
		if err := e.cache.Set([]byte(userID), raw, e.ttlSeconds); err != nil {
			log.Errorf("entitlements: cache set for %s: %s", userID, err)
		}
	}
	return set, nil
}

func (e *Entitlements) HasFeature(ctx context.Context, q sqlx.ExtContext, userID, feature string) (bool, error) {
	set, err := e.Resolve(ctx, q, userID)
	if err != nil {
		return false, err
	}
	return set[feature], nil
}

func (e *Entitlements) Invalidate(userID string) {
	if e == nil {
		return
	}
	e.cache.Del([]byte(userID))
}

func loadEntitlements(ctx context.Context, q sqlx.ExtContext, userID string) (models.FeatureSet, error) {
	user, err := GetUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	sub, err := FindSubscription(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	// Trainers and admins keep their role under billing, so a subscription they
	// hold never grants paid features.
	if sub == nil || !IsLiveSubscriptionStatus(sub.Status) || !IsPaidTier(user.Role) {
		return FeatureTemplate(user.Role), nil
	}
	set := FeatureTemplate(sub.Tier)
	for name, enabled := range sub.Features {
		if IsKnownFeature(name) {
			set[name] = enabled
		}
	}
	set[FeatureNutritionAI] = user.Role == models.RoleElite
	return set, nil
}
