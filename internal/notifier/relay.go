package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RelayStats summarises one drain pass.
type RelayStats struct {
	Sent         int
	Requeued     int
	DeadLettered int
	// Recovered counts envelopes left in flight by an earlier pass and put
	// back on the outbox.
	Recovered int
}

// Relay moves queued notifications from the outbox to a delivery channel.
// Envelopes that keep failing are moved to the dead-letter list once they
// reach maxAttempts.
//
// Each envelope is moved to a processing list while it is being sent and
// only removed from there once its outcome is written back, so a Redis
// failure part way through a pass leaves it to be recovered by the next one.
// A single relay is assumed to drain a given outbox.
type Relay struct {
	client        *redis.Client
	sender        Notifier
	key           string
	processingKey string
	deadKey       string
	maxAttempts   int
	batchSize     int
	log           *logrus.Logger
}

func NewRelay(client *redis.Client, sender Notifier, key string, maxAttempts, batchSize int, log *logrus.Logger) *Relay {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		client:        client,
		sender:        sender,
		key:           key,
		processingKey: ProcessingKey(key),
		deadKey:       DeadLetterKey(key),
		maxAttempts:   maxAttempts,
		batchSize:     batchSize,
		log:           log,
	}
}

// DeadLetterKey is the list holding envelopes that exhausted their attempts.
func DeadLetterKey(key string) string {
	return key + ":dead"
}

// ProcessingKey is the list holding envelopes taken by a pass that has not
// settled them yet.
func ProcessingKey(key string) string {
	return key + ":processing"
}

// settlement is the outcome of one taken entry, written back after the pass.
type settlement struct {
	raw    string
	target string // list to push to, empty when delivered
	body   []byte
	dead   bool
}

// Drain processes up to one batch. Outcomes are written back in one
// transaction after the pass, so a failed envelope is not retried twice in
// one run and none is lost when Redis fails mid-pass.
func (r *Relay) Drain(ctx context.Context) (RelayStats, error) {
	var stats RelayStats

	recovered, err := r.reclaim(ctx)
	stats.Recovered = recovered
	if err != nil {
		return stats, err
	}

	var (
		settled []settlement
		takeErr error
	)
	for i := 0; i < r.batchSize; i++ {
		raw, err := r.client.LMove(ctx, r.key, r.processingKey, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			takeErr = fmt.Errorf("pop outbox: %w", err)
			break
		}
		settled = append(settled, r.handle(ctx, raw))
	}

	if err := r.settle(ctx, settled); err != nil {
		return stats, errors.Join(takeErr, err)
	}

	for _, st := range settled {
		switch {
		case st.target == "":
			stats.Sent++
		case st.dead:
			stats.DeadLettered++
		default:
			stats.Requeued++
		}
	}
	return stats, takeErr
}

func (r *Relay) handle(ctx context.Context, raw string) settlement {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.log.WithError(err).Error("undecodable outbox entry moved to dead letters")
		return settlement{raw: raw, target: r.deadKey, body: []byte(raw), dead: true}
	}

	d := r.sender.Notify(ctx, env.Recipient, env.Notification)
	if d.Delivered || d.Skipped {
		return settlement{raw: raw}
	}

	env.Attempts++
	env.LastError = d.Message
	st := settlement{raw: raw, target: r.key}
	if env.Attempts >= r.maxAttempts {
		st.target, st.dead = r.deadKey, true
		r.log.WithFields(logrus.Fields{
			"envelope_id": env.ID,
			"attempts":    env.Attempts,
			"last_error":  env.LastError,
		}).Warn("notification dead-lettered")
	}

	body, err := json.Marshal(env)
	if err != nil {
		return settlement{raw: raw, target: r.key, body: []byte(raw)}
	}
	st.body = body
	return st
}

func (r *Relay) settle(ctx context.Context, settled []settlement) error {
	if len(settled) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, st := range settled {
			if st.target != "" {
				pipe.LPush(ctx, st.target, st.body)
			}
			pipe.LRem(ctx, r.processingKey, 1, st.raw)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("settle envelopes: %w", err)
	}
	return nil
}

// reclaim puts envelopes left on the processing list back at the consuming
// end of the outbox, oldest first.
func (r *Relay) reclaim(ctx context.Context) (int, error) {
	n := 0
	for {
		err := r.client.LMove(ctx, r.processingKey, r.key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover in-flight envelopes: %w", err)
		}
		n++
	}
}

// Backlog reports how many envelopes are waiting and how many were given up on.
func (r *Relay) Backlog(ctx context.Context) (pending, dead int64, err error) {
	pipe := r.client.Pipeline()
	pendingCmd := pipe.LLen(ctx, r.key)
	deadCmd := pipe.LLen(ctx, r.deadKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("outbox backlog: %w", err)
	}
	return pendingCmd.Val(), deadCmd.Val(), nil
}
