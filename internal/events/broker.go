// Package events provides in-process delivery of invitation and
// membership events to connected users.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 64

// Subscriber receives the events addressed to one user.
type Subscriber struct {
	ID        string
	UserID    string
	Ch        chan *models.Event
	CreatedAt time.Time
}

// Publisher is the write side of the broker used by services.
type Publisher interface {
	Publish(event *models.Event)
}

// Broker fans events out to subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber // subscriber ID -> subscriber
	logger      *slog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for events concerning userID.
func (b *Broker) Subscribe(userID string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.New().String(),
		UserID:    userID,
		Ch:        make(chan *models.Event, subscriberBuffer),
		CreatedAt: time.Now(),
	}
	b.subscribers[sub.ID] = sub
	b.logger.Debug("subscriber added", "subscriber_id", sub.ID, "user_id", userID)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish delivers event to every subscriber of event.UserID. Slow
// subscribers lose events rather than block the publisher.
func (b *Broker) Publish(event *models.Event) {
	if event == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.UserID != event.UserID {
			continue
		}
		select {
		case sub.Ch <- event:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"subscriber_id", sub.ID,
				"event_type", event.Type,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(*models.Event) {}
