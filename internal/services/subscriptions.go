package services

import (
	"context"
	"strings"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Plan struct {
	Tier     string            `json:"tier"`
	Name     string            `json:"name"`
	Price    decimal.Decimal   `json:"price"`
	Currency string            `json:"currency"`
	Interval string            `json:"interval"`
	Features models.FeatureSet `json:"features"`
}

func Plans() []Plan {
	return []Plan{
		{Tier: models.RolePremium, Name: "Premium", Price: decimal.RequireFromString("9.99"), Currency: "USD", Interval: "month", Features: FeatureTemplate(models.RolePremium)},
		{Tier: models.RoleElite, Name: "Elite", Price: decimal.RequireFromString("39.99"), Currency: "USD", Interval: "month", Features: FeatureTemplate(models.RoleElite)},
	}
}

func PlanFor(tier string) (Plan, bool) {
	for _, p := range Plans() {
		if p.Tier == tier {
			return p, true
		}
	}
	return Plan{}, false
}

func IsPaidTier(role string) bool {
	return role == models.RolePremium || role == models.RoleElite
}

// IsLiveSubscriptionStatus reports whether a subscription in this status still
// grants its tier's features.
func IsLiveSubscriptionStatus(status string) bool {
	switch status {
	case models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue:
		return true
	}
	return false
}

type CustomerRequest struct {
	UserID     string
	Email      string
	Name       string
	ExistingID string
}

type SubscriptionRequest struct {
	UserID          string
	CustomerID      string
	PaymentMethodID string
	Plan            Plan
}

// ProviderSubscription is the billing provider's view of a subscription.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	Price              decimal.Decimal
	Currency           string
	Interval           string
	Metadata           map[string]string
	ClientSecret       string
}

//go:generate mockgen -source=$GOFILE -destination=subscriptions_mocks_test.go -package=services

// BillingGateway is the outbound side of the payment provider.
type BillingGateway interface {
	EnsureCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (ProviderSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (ProviderSubscription, error)
	CancelNow(ctx context.Context, subscriptionID string) error
}

const subscriptionColumns = `id, user_id, stripe_subscription_id, stripe_customer_id, tier, status, current_period_start,
current_period_end, cancel_at_period_end, price, currency, billing_interval, features, last_event_at, created_at, updated_at`

func FindSubscription(ctx context.Context, q sqlx.ExtContext, userID string) (*models.Subscription, error) {
	return findSubscriptionWhere(ctx, q, "user_id = ?", userID)
}

func FindSubscriptionByProviderID(ctx context.Context, q sqlx.ExtContext, stripeSubscriptionID string) (*models.Subscription, error) {
	return findSubscriptionWhere(ctx, q, "stripe_subscription_id = ?", stripeSubscriptionID)
}

func findSubscriptionWhere(ctx context.Context, q sqlx.ExtContext, where string, arg interface{}) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Get(ctx, q, &sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+where, arg); err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

type CurrentSubscription struct {
	Subscription *models.Subscription
	Plan         string
}

func GetCurrentSubscription(ctx context.Context, q sqlx.ExtContext, userID string) (CurrentSubscription, error) {
	sub, err := FindSubscription(ctx, q, userID)
	if err != nil {
		return CurrentSubscription{}, err
	}
	if sub == nil {
		return CurrentSubscription{Plan: models.RoleFree}, nil
	}
	return CurrentSubscription{Subscription: sub, Plan: sub.Tier}, nil
}

type CreateSubscriptionInput struct {
	Tier            string `json:"tier"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type CreatedSubscription struct {
	Subscription models.Subscription
	ClientSecret string
}

func CreateSubscription(ctx context.Context, database *sqlx.DB, gw BillingGateway, ent *Entitlements, bus EventPublisher, userID string, in CreateSubscriptionInput) (CreatedSubscription, error) {
	v := Violations{}
	OneOf("tier", in.Tier, []string{models.RolePremium, models.RoleElite}, v)
	Required("paymentMethodId", in.PaymentMethodID, v)
	if err := v.Err(); err != nil {
		return CreatedSubscription{}, err
	}
	plan, _ := PlanFor(in.Tier)

	user, err := GetActiveUser(ctx, database, userID)
	if err != nil {
		return CreatedSubscription{}, err
	}
	existing, err := FindSubscription(ctx, database, userID)
	if err != nil {
		return CreatedSubscription{}, err
	}
	if existing != nil && IsLiveSubscriptionStatus(existing.Status) {
		return CreatedSubscription{}, ErrConflict("User already has an active subscription")
	}
	if gw == nil {
		return CreatedSubscription{}, ErrUpstream("Billing provider is not configured", nil)
	}

	customerID, err := gw.EnsureCustomer(ctx, CustomerRequest{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       strings.TrimSpace(user.FirstName + " " + user.LastName),
		ExistingID: user.StripeCustomerID.String,
	})
	if err != nil {
		return CreatedSubscription{}, ErrUpstream("Billing provider unavailable", err)
	}
	ps, err := gw.CreateSubscription(ctx, SubscriptionRequest{
		UserID:          user.ID,
		CustomerID:      customerID,
		PaymentMethodID: in.PaymentMethodID,
		Plan:            plan,
	})
	if err != nil {
		return CreatedSubscription{}, ErrUpstream("Billing provider unavailable", err)
	}

	status := models.SubscriptionTrialing
	if ps.Status == models.SubscriptionActive {
		status = models.SubscriptionActive
	}
	now := time.Now().UTC()
	sub := models.Subscription{
		ID:                   uuid.NewString(),
		UserID:               user.ID,
		StripeSubscriptionID: ps.ID,
		StripeCustomerID:     customerID,
		Tier:                 plan.Tier,
		Status:               status,
		CurrentPeriodStart:   ps.CurrentPeriodStart,
		CurrentPeriodEnd:     ps.CurrentPeriodEnd,
		Price:                plan.Price,
		Currency:             plan.Currency,
		Interval:             plan.Interval,
		Features:             plan.Features,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	err = db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		if err := upsertSubscription(ctx, tx, &sub); err != nil {
			return err
		}
		_, err := db.Exec(ctx, tx, `UPDATE users SET role = ?, subscription_status = ?, stripe_customer_id = ?, updated_at = ? WHERE id = ?`,
			roleForTier(user.Role, plan.Tier), status, customerID, now, user.ID)
		return err
	})
	if err != nil {
		return CreatedSubscription{}, err
	}
	ent.Invalidate(user.ID)
	publish(ctx, bus, TopicSubscriptionChanged, SubscriptionChangedEvent{UserID: user.ID, Tier: sub.Tier, Status: sub.Status})
	log.Infof("subscription created for user %s: %s", user.ID, plan.Tier)
	return CreatedSubscription{Subscription: sub, ClientSecret: ps.ClientSecret}, nil
}

// roleForTier promotes ordinary members to the paid tier. Trainers and admins keep their role.
func roleForTier(current, tier string) string {
	if current == models.RoleTrainer || current == models.RoleAdmin {
		return current
	}
	return tier
}

// upsertSubscription writes the row keyed by user. The stored id wins on update.
// The mirror only reaches it for the row's own provider subscription or for a
// newly created one after the previous subscription ended.
func upsertSubscription(ctx context.Context, q sqlx.ExtContext, sub *models.Subscription) error {
	_, err := db.Exec(ctx, q, `
INSERT INTO subscriptions (id, user_id, stripe_subscription_id, stripe_customer_id, tier, status, current_period_start,
  current_period_end, cancel_at_period_end, price, currency, billing_interval, features, last_event_at, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (user_id) DO UPDATE SET
  stripe_subscription_id = excluded.stripe_subscription_id,
  stripe_customer_id = excluded.stripe_customer_id,
  tier = excluded.tier,
  status = excluded.status,
  current_period_start = excluded.current_period_start,
  current_period_end = excluded.current_period_end,
  cancel_at_period_end = excluded.cancel_at_period_end,
  price = excluded.price,
  currency = excluded.currency,
  billing_interval = excluded.billing_interval,
  features = excluded.features,
  last_event_at = excluded.last_event_at,
  updated_at = excluded.updated_at`,
		sub.ID, sub.UserID, sub.StripeSubscriptionID, sub.StripeCustomerID, sub.Tier, sub.Status, sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.Price, sub.Currency, sub.Interval, sub.Features, sub.LastEventAt,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return err
	}
	return db.Get(ctx, q, &sub.ID, `SELECT id FROM subscriptions WHERE user_id = ?`, sub.UserID)
}

func CancelSubscription(ctx context.Context, q sqlx.ExtContext, gw BillingGateway, ent *Entitlements, userID string) (models.Subscription, error) {
	sub, err := FindSubscription(ctx, q, userID)
	if err != nil {
		return models.Subscription{}, err
	}
	if sub == nil || (sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionTrialing) {
		return models.Subscription{}, ErrNotFound("No active subscription found")
	}
	return setCancelAtPeriodEnd(ctx, q, gw, ent, *sub, true)
}

func ReactivateSubscription(ctx context.Context, q sqlx.ExtContext, gw BillingGateway, ent *Entitlements, userID string) (models.Subscription, error) {
	sub, err := FindSubscription(ctx, q, userID)
	if err != nil {
		return models.Subscription{}, err
	}
	if sub == nil {
		return models.Subscription{}, ErrNotFound("No subscription found")
	}
	if !IsLiveSubscriptionStatus(sub.Status) {
		return models.Subscription{}, ErrBadRequest("Subscription has ended and cannot be reactivated")
	}
	return setCancelAtPeriodEnd(ctx, q, gw, ent, *sub, false)
}

func setCancelAtPeriodEnd(ctx context.Context, q sqlx.ExtContext, gw BillingGateway, ent *Entitlements, sub models.Subscription, cancel bool) (models.Subscription, error) {
	if gw == nil {
		return models.Subscription{}, ErrUpstream("Billing provider is not configured", nil)
	}
	ps, err := gw.SetCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, cancel)
	if err != nil {
		return models.Subscription{}, ErrUpstream("Billing provider unavailable", err)
	}
	sub.CancelAtPeriodEnd = cancel
	if ps.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = ps.CurrentPeriodEnd
	}
	sub.UpdatedAt = time.Now().UTC()
	if _, err := db.Exec(ctx, q, `UPDATE subscriptions SET cancel_at_period_end = ?, current_period_end = ?, updated_at = ? WHERE id = ?`,
		sub.CancelAtPeriodEnd, sub.CurrentPeriodEnd, sub.UpdatedAt, sub.ID); err != nil {
		return models.Subscription{}, err
	}
	ent.Invalidate(sub.UserID)
	return sub, nil
}

type SubscriptionChangedEvent struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
	Role   string `json:"role,omitempty"`
}
