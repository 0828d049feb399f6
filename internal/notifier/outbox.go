package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segyhp/loanlink/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const ChannelOutbox = "outbox"

// Envelope is one queued notification.
type Envelope struct {
	ID           string              `json:"id"`
	Recipient    string              `json:"recipient"`
	Notification domain.Notification `json:"notification"`
	Attempts     int                 `json:"attempts"`
	EnqueuedAt   time.Time           `json:"enqueuedAt"`
	LastError    string              `json:"lastError,omitempty"`
}

// OutboxNotifier queues notifications on a Redis list for the relay.
// New envelopes are pushed on the left and consumed from the right.
type OutboxNotifier struct {
	client *redis.Client
	key    string
	log    *logrus.Logger
}

func NewOutboxNotifier(client *redis.Client, key string, log *logrus.Logger) *OutboxNotifier {
	return &OutboxNotifier{client: client, key: key, log: log}
}

func (o *OutboxNotifier) Notify(ctx context.Context, recipient string, n domain.Notification) domain.Delivery {
	env := Envelope{
		ID:           uuid.NewString(),
		Recipient:    recipient,
		Notification: n,
		EnqueuedAt:   time.Now().UTC(),
	}

	if err := push(ctx, o.client, o.key, env); err != nil {
		o.log.WithError(err).WithField("recipient", recipient).Error("failed to queue notification")
		return domain.Delivery{Channel: ChannelOutbox, Message: "notification could not be queued"}
	}

	o.log.WithFields(logrus.Fields{
		"envelope_id": env.ID,
		"event":       n.Event,
	}).Debug("notification queued")
	return domain.Delivery{Delivered: true, Channel: ChannelOutbox, Message: "queued"}
}

func push(ctx context.Context, client redis.Cmdable, key string, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return client.LPush(ctx, key, raw).Err()
}
