// Package billing adapts Stripe to the subscription services.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrPriceNotConfigured = errors.New("stripe price not configured for tier")

// Gateway implements services.BillingGateway on the Stripe API.
type Gateway struct {
	api    *client.API
	prices map[string]string
}

var _ services.BillingGateway = (*Gateway)(nil)

// NewGateway creates a gateway. prices maps a tier to a Stripe price id.
// backends may be nil to talk to the live Stripe API.
func NewGateway(secretKey string, prices map[string]string, backends *stripe.Backends) *Gateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Gateway{api: api, prices: prices}
}

func (g *Gateway) EnsureCustomer(ctx context.Context, req services.CustomerRequest) (string, error) {
	if req.ExistingID != "" {
		return req.ExistingID, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
		Name:  stripe.String(req.Name),
	}
	params.Context = ctx
	params.AddMetadata("userId", req.UserID)
	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return customer.ID, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, req services.SubscriptionRequest) (services.ProviderSubscription, error) {
	priceID := g.prices[req.Plan.Tier]
	if priceID == "" {
		return services.ProviderSubscription{}, fmt.Errorf("%w: %s", ErrPriceNotConfigured, req.Plan.Tier)
	}

	if req.PaymentMethodID != "" {
		attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(req.CustomerID)}
		attach.Context = ctx
		if _, err := g.api.PaymentMethods.Attach(req.PaymentMethodID, attach); err != nil {
			return services.ProviderSubscription{}, fmt.Errorf("attach payment method: %w", err)
		}
	}

	params := &stripe.SubscriptionParams{
		Customer:        stripe.String(req.CustomerID),
		Items:           []*stripe.SubscriptionItemsParams{{Price: stripe.String(priceID)}},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	if req.PaymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(req.PaymentMethodID)
	}
	params.Context = ctx
	params.AddMetadata("userId", req.UserID)
	params.AddMetadata("tier", req.Plan.Tier)
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return services.ProviderSubscription{}, fmt.Errorf("create stripe subscription: %w", err)
	}
	out := FromStripeSubscription(sub)
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out, nil
}

func (g *Gateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (services.ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return services.ProviderSubscription{}, fmt.Errorf("update stripe subscription: %w", err)
	}
	return FromStripeSubscription(sub), nil
}

func (g *Gateway) CancelNow(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := g.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("cancel stripe subscription: %w", err)
	}
	return nil
}

// FromStripeSubscription converts the API object. Amounts are in minor units.
func FromStripeSubscription(sub *stripe.Subscription) services.ProviderSubscription {
	out := services.ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Metadata:          sub.Metadata,
		Price:             decimal.Zero,
		Currency:          "USD",
		Interval:          "month",
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodStart > 0 {
		t := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		out.CurrentPeriodStart = &t
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		out.Price = decimal.New(price.UnitAmount, -2)
		if price.Currency != "" {
			out.Currency = strings.ToUpper(string(price.Currency))
		}
		if price.Recurring != nil {
			out.Interval = string(price.Recurring.Interval)
		}
	}
	if sub.Status == stripe.SubscriptionStatusIncompleteExpired {
		out.Status = models.SubscriptionCanceled
	}
	return out
}

// ParseWebhook verifies the Stripe-Signature header and reduces the event to
// what the subscription mirror consumes.
func ParseWebhook(payload []byte, signature, secret string) (services.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return services.BillingEvent{}, err
	}
	out := services.BillingEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return out, nil
	}
	switch out.Type {
	case services.EventSubscriptionCreated, services.EventSubscriptionUpdated, services.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return services.BillingEvent{}, fmt.Errorf("decode subscription: %w", err)
		}
		ps := FromStripeSubscription(&sub)
		out.Subscription = &ps
	case services.EventInvoicePaid, services.EventInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return services.BillingEvent{}, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Subscription != nil {
			out.InvoiceSubscriptionID = inv.Subscription.ID
		}
	}
	return out, nil
}
