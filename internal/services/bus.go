package services

import (
	"context"

	log "github.com/sirupsen/logrus"
)

const (
	TopicSessionCompleted     = "workout.session.completed"
	TopicSubscriptionChanged  = "subscription.changed"
	TopicBookingRequested     = "trainer.booking.requested"
	TopicTrainerApplied       = "trainer.application.submitted"
	TopicAchievementsUnlocked = "achievement.unlocked"
)

// EventPublisher hands domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// publish is fire-and-forget: a bus outage never fails the request that produced the event.
func publish(ctx context.Context, p EventPublisher, topic string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, payload); err != nil {
		log.Errorf("publish %s: %s", topic, err)
	}
}
