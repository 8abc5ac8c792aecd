package services

import (
	"context"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// BillingEvent is a verified provider webhook reduced to what the mirror needs.
type BillingEvent struct {
	ID      string
	Type    string
	Created time.Time
	// Set for customer.subscription.* events.
	Subscription *ProviderSubscription
	// Set for invoice.* events.
	InvoiceSubscriptionID string
}

type BillingOutcome string

const (
	OutcomeApplied   BillingOutcome = "applied"
	OutcomeDuplicate BillingOutcome = "duplicate"
	OutcomeStale     BillingOutcome = "stale"
	OutcomeIgnored   BillingOutcome = "ignored"
)

// ApplyBillingEvent mirrors one provider event into the subscription and user
// rows. Replays of an already recorded event id and events older than the last
// applied one change nothing.
func ApplyBillingEvent(ctx context.Context, database *sqlx.DB, ent *Entitlements, bus EventPublisher, ev BillingEvent) (BillingOutcome, error) {
	if ev.ID == "" {
		return OutcomeIgnored, ErrBadRequest("Event id is required")
	}
	if ev.Created.IsZero() {
		ev.Created = time.Now().UTC()
	}
	ev.Created = ev.Created.UTC()

	outcome := OutcomeIgnored
	var changed *SubscriptionChangedEvent
	err := db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		recorded, err := db.ExecOne(ctx, tx, `INSERT INTO billing_events (event_id, event_type, received_at) VALUES (?,?,?)
ON CONFLICT (event_id) DO NOTHING`, ev.ID, ev.Type, time.Now().UTC())
		if err != nil {
			return err
		}
		if !recorded {
			outcome = OutcomeDuplicate
			return nil
		}
		switch ev.Type {
		case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
			outcome, changed, err = mirrorSubscription(ctx, tx, ev)
		case EventInvoicePaid, EventInvoiceFailed:
			outcome, changed, err = mirrorInvoice(ctx, tx, ev)
		default:
			outcome = OutcomeIgnored
		}
		return err
	})
	if err != nil {
		return OutcomeIgnored, err
	}
	if changed != nil {
		ent.Invalidate(changed.UserID)
		publish(ctx, bus, TopicSubscriptionChanged, *changed)
	}
	log.Debugf("billing event %s (%s): %s", ev.ID, ev.Type, outcome)
	return outcome, nil
}

func mirrorSubscription(ctx context.Context, tx *sqlx.Tx, ev BillingEvent) (BillingOutcome, *SubscriptionChangedEvent, error) {
	ps := ev.Subscription
	if ps == nil || ps.ID == "" {
		return OutcomeIgnored, nil, nil
	}
	status := ps.Status
	if ev.Type == EventSubscriptionDeleted || status == "incomplete_expired" {
		status = models.SubscriptionCanceled
	}

	existing, err := FindSubscriptionByProviderID(ctx, tx, ps.ID)
	if err != nil {
		return OutcomeIgnored, nil, err
	}
	if existing != nil && isStale(existing, ev.Created) {
		return OutcomeStale, nil, nil
	}

	userID, err := resolveBillingUser(ctx, tx, existing, ps)
	if err != nil {
		return OutcomeIgnored, nil, err
	}
	if userID == "" {
		log.Warnf("billing event %s: no local user for subscription %s", ev.ID, ps.ID)
		return OutcomeIgnored, nil, nil
	}
	if existing == nil {
		replaces, err := replacesCurrentSubscription(ctx, tx, userID, ev.Type, ps.ID)
		if err != nil {
			return OutcomeIgnored, nil, err
		}
		if !replaces {
			log.Warnf("billing event %s: subscription %s is not the current one for user %s", ev.ID, ps.ID, userID)
			return OutcomeIgnored, nil, nil
		}
	}

	tier := ps.Metadata["tier"]
	if !IsPaidTier(tier) {
		tier = models.RolePremium
		if existing != nil {
			tier = existing.Tier
		}
	}
	plan, _ := PlanFor(tier)
	now := time.Now().UTC()
	sub := models.Subscription{
		ID:                   uuid.NewString(),
		UserID:               userID,
		StripeSubscriptionID: ps.ID,
		StripeCustomerID:     ps.CustomerID,
		Tier:                 tier,
		Status:               status,
		CurrentPeriodStart:   ps.CurrentPeriodStart,
		CurrentPeriodEnd:     ps.CurrentPeriodEnd,
		CancelAtPeriodEnd:    ps.CancelAtPeriodEnd,
		Price:                plan.Price,
		Currency:             plan.Currency,
		Interval:             plan.Interval,
		Features:             FeatureTemplate(tier),
		LastEventAt:          &ev.Created,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if existing != nil {
		sub.CreatedAt = existing.CreatedAt
		if existing.Tier == tier && len(existing.Features) > 0 {
			sub.Features = existing.Features
		}
		if sub.StripeCustomerID == "" {
			sub.StripeCustomerID = existing.StripeCustomerID
		}
	}
	if err := upsertSubscription(ctx, tx, &sub); err != nil {
		return OutcomeIgnored, nil, err
	}
	role, err := applyBillingPolicy(ctx, tx, userID, tier, status, sub.StripeCustomerID)
	if err != nil {
		return OutcomeIgnored, nil, err
	}
	return OutcomeApplied, &SubscriptionChangedEvent{UserID: userID, Tier: tier, Status: status, Role: role}, nil
}

func mirrorInvoice(ctx context.Context, tx *sqlx.Tx, ev BillingEvent) (BillingOutcome, *SubscriptionChangedEvent, error) {
	if ev.InvoiceSubscriptionID == "" {
		return OutcomeIgnored, nil, nil
	}
	existing, err := FindSubscriptionByProviderID(ctx, tx, ev.InvoiceSubscriptionID)
	if err != nil || existing == nil {
		return OutcomeIgnored, nil, err
	}
	if isStale(existing, ev.Created) {
		return OutcomeStale, nil, nil
	}
	status := models.SubscriptionActive
	if ev.Type == EventInvoiceFailed {
		status = models.SubscriptionPastDue
	}
	if _, err := db.Exec(ctx, tx, `UPDATE subscriptions SET status = ?, last_event_at = ?, updated_at = ? WHERE id = ?`,
		status, ev.Created, time.Now().UTC(), existing.ID); err != nil {
		return OutcomeIgnored, nil, err
	}
	role, err := applyBillingPolicy(ctx, tx, existing.UserID, existing.Tier, status, existing.StripeCustomerID)
	if err != nil {
		return OutcomeIgnored, nil, err
	}
	return OutcomeApplied, &SubscriptionChangedEvent{UserID: existing.UserID, Tier: existing.Tier, Status: status, Role: role}, nil
}

// replacesCurrentSubscription reports whether an event for a subscription with no
// mirrored row may take over the user's row. Only a created event can, and only
// once the subscription it replaces is no longer live.
func replacesCurrentSubscription(ctx context.Context, q sqlx.ExtContext, userID, eventType, providerID string) (bool, error) {
	current, err := FindSubscription(ctx, q, userID)
	if err != nil {
		return false, err
	}
	if current == nil || current.StripeSubscriptionID == providerID {
		return true, nil
	}
	return eventType == EventSubscriptionCreated && !IsLiveSubscriptionStatus(current.Status), nil
}

func isStale(sub *models.Subscription, created time.Time) bool {
	return sub.LastEventAt != nil && created.Before(*sub.LastEventAt)
}

// resolveBillingUser finds the local owner: the mirrored row first, then the
// userId put in subscription metadata at checkout, then the provider customer id.
func resolveBillingUser(ctx context.Context, q sqlx.ExtContext, existing *models.Subscription, ps *ProviderSubscription) (string, error) {
	if existing != nil {
		return existing.UserID, nil
	}
	if id := ps.Metadata["userId"]; id != "" {
		var found string
		err := db.Get(ctx, q, &found, `SELECT id FROM users WHERE id = ?`, id)
		if err == nil {
			return found, nil
		}
		if !db.IsNotFound(err) {
			return "", err
		}
	}
	if ps.CustomerID == "" {
		return "", nil
	}
	var found string
	err := db.Get(ctx, q, &found, `SELECT id FROM users WHERE stripe_customer_id = ?`, ps.CustomerID)
	if db.IsNotFound(err) {
		return "", nil
	}
	return found, err
}

// applyBillingPolicy moves the user's role and subscription status to match the
// provider state and returns the resulting role.
func applyBillingPolicy(ctx context.Context, tx *sqlx.Tx, userID, tier, status, customerID string) (string, error) {
	var current struct {
		Role               string `db:"role"`
		SubscriptionStatus string `db:"subscription_status"`
	}
	if err := db.Get(ctx, tx, &current, `SELECT role, subscription_status FROM users WHERE id = ?`, userID); err != nil {
		return "", err
	}
	role, userStatus := current.Role, current.SubscriptionStatus
	switch status {
	case models.SubscriptionActive, models.SubscriptionTrialing:
		role = roleForTier(current.Role, tier)
		userStatus = status
	case models.SubscriptionPastDue:
		userStatus = models.SubscriptionPastDue
	case models.SubscriptionCanceled, "unpaid":
		if IsPaidTier(role) {
			role = models.RoleFree
		}
		userStatus = models.SubscriptionCanceled
	default:
		userStatus = models.SubscriptionInactive
	}
	_, err := db.Exec(ctx, tx, `UPDATE users SET role = ?, subscription_status = ?,
  stripe_customer_id = COALESCE(stripe_customer_id, ?), updated_at = ? WHERE id = ?`,
		role, userStatus, nullIfEmpty(customerID), time.Now().UTC(), userID)
	return role, err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// PurgeBillingEvents drops replay-protection records older than the cutoff.
func PurgeBillingEvents(ctx context.Context, q sqlx.ExtContext, olderThan time.Time) (int64, error) {
	res, err := db.Exec(ctx, q, `DELETE FROM billing_events WHERE received_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
