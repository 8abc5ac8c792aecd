package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitcoach-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateSubscription(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)
	ent := NewEntitlements(1, 300)
	bus := &recordingBus{}

	ctrl := gomock.NewController(t)
	gw := NewMockBillingGateway(ctrl)
	periodEnd := time.Now().UTC().AddDate(0, 1, 0)

	gw.EXPECT().EnsureCustomer(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req CustomerRequest) (string, error) {
		assert.Equal(t, user.ID, req.UserID)
		assert.Equal(t, user.Email, req.Email)
		assert.Empty(t, req.ExistingID)
		return "cus_123", nil
	})
	gw.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req SubscriptionRequest) (ProviderSubscription, error) {
		assert.Equal(t, "cus_123", req.CustomerID)
		assert.Equal(t, "pm_card", req.PaymentMethodID)
		assert.Equal(t, models.RoleElite, req.Plan.Tier)
		return ProviderSubscription{ID: "sub_123", Status: "incomplete", CurrentPeriodEnd: &periodEnd, ClientSecret: "pi_secret"}, nil
	})

	out, err := CreateSubscription(ctx, database, gw, ent, bus, user.ID, CreateSubscriptionInput{Tier: models.RoleElite, PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.Equal(t, "pi_secret", out.ClientSecret)
	assert.Equal(t, models.SubscriptionTrialing, out.Subscription.Status)
	assert.Equal(t, "sub_123", out.Subscription.StripeSubscriptionID)

	role, status := userRole(t, database, user.ID)
	assert.Equal(t, models.RoleElite, role)
	assert.Equal(t, models.SubscriptionTrialing, status)

	ok, err := ent.HasFeature(ctx, database, user.ID, FeatureNutritionAI)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{TopicSubscriptionChanged}, bus.topics())

	_, err = CreateSubscription(ctx, database, gw, ent, bus, user.ID, CreateSubscriptionInput{Tier: models.RolePremium, PaymentMethodID: "pm_card"})
	assert.True(t, IsKind(err, KindConflict))
}

func TestCreateSubscription_ProviderFailure(t *testing.T) {
	database := newTestDB(t)
	user := newUser(t, database, models.RoleFree)

	ctrl := gomock.NewController(t)
	gw := NewMockBillingGateway(ctrl)
	gw.EXPECT().EnsureCustomer(gomock.Any(), gomock.Any()).Return("", errors.New("card_declined"))

	_, err := CreateSubscription(context.Background(), database, gw, nil, nil, user.ID, CreateSubscriptionInput{Tier: models.RolePremium, PaymentMethodID: "pm_card"})
	assert.True(t, IsKind(err, KindUpstream))

	sub, err := FindSubscription(context.Background(), database, user.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)
	role, _ := userRole(t, database, user.ID)
	assert.Equal(t, models.RoleFree, role)
}

func TestCreateSubscription_Validation(t *testing.T) {
	database := newTestDB(t)
	user := newUser(t, database, models.RoleFree)
	ctrl := gomock.NewController(t)

	_, err := CreateSubscription(context.Background(), database, NewMockBillingGateway(ctrl), nil, nil, user.ID,
		CreateSubscriptionInput{Tier: models.RoleAdmin})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, se.Kind)
	assert.Len(t, se.Errors, 2)
}

func TestCancelAndReactivateSubscription(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)

	_, err := ApplyBillingEvent(ctx, database, nil, nil,
		subscriptionEvent("evt_live", EventSubscriptionCreated, "sub_live", models.SubscriptionActive, user.ID, models.RolePremium, time.Now()))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	gw := NewMockBillingGateway(ctrl)
	periodEnd := time.Now().UTC().AddDate(0, 0, 20).Truncate(time.Second)
	gomock.InOrder(
		gw.EXPECT().SetCancelAtPeriodEnd(gomock.Any(), "sub_live", true).Return(ProviderSubscription{ID: "sub_live", CurrentPeriodEnd: &periodEnd}, nil),
		gw.EXPECT().SetCancelAtPeriodEnd(gomock.Any(), "sub_live", false).Return(ProviderSubscription{ID: "sub_live"}, nil),
	)

	canceled, err := CancelSubscription(ctx, database, gw, nil, user.ID)
	require.NoError(t, err)
	assert.True(t, canceled.CancelAtPeriodEnd)
	require.NotNil(t, canceled.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*canceled.CurrentPeriodEnd))
	assert.Equal(t, models.SubscriptionActive, canceled.Status)

	reactivated, err := ReactivateSubscription(ctx, database, gw, nil, user.ID)
	require.NoError(t, err)
	assert.False(t, reactivated.CancelAtPeriodEnd)

	stored, err := FindSubscription(ctx, database, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.CancelAtPeriodEnd)
}

func TestReactivateSubscription_EndedSubscription(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	user := newUser(t, database, models.RoleFree)
	start := time.Now().UTC()

	_, err := ApplyBillingEvent(ctx, database, nil, nil,
		subscriptionEvent("evt_on", EventSubscriptionCreated, "sub_end", models.SubscriptionActive, user.ID, models.RolePremium, start))
	require.NoError(t, err)
	_, err = ApplyBillingEvent(ctx, database, nil, nil,
		subscriptionEvent("evt_off", EventSubscriptionDeleted, "sub_end", models.SubscriptionCanceled, user.ID, models.RolePremium, start.Add(time.Minute)))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	gw := NewMockBillingGateway(ctrl)

	_, err = ReactivateSubscription(ctx, database, gw, nil, user.ID)
	assert.True(t, IsKind(err, KindValidation))
	_, err = CancelSubscription(ctx, database, gw, nil, user.ID)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestGetCurrentSubscription_FreeWhenNone(t *testing.T) {
	database := newTestDB(t)
	user := newUser(t, database, models.RoleFree)

	cur, err := GetCurrentSubscription(context.Background(), database, user.ID)
	require.NoError(t, err)
	assert.Nil(t, cur.Subscription)
	assert.Equal(t, models.RoleFree, cur.Plan)
}
