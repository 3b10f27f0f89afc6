package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-mapping/core"

	"github.com/goliatone/go-job/queue"
)

// RetryPolicy bounds how often a failed invalidation job is redelivered.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Apply clamps the nack delay and stops requeueing once attempt reaches
// MaxAttempts. A nack that neither requeues nor dead-letters is requeued.
func (p RetryPolicy) Apply(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	opts.Reason = strings.TrimSpace(opts.Reason)
	opts.Delay = max(opts.Delay, 0)
	if p.MaxDelay > 0 {
		opts.Delay = min(opts.Delay, p.MaxDelay)
	}
	if opts.DeadLetter {
		opts.Requeue = false
	}
	exhausted := p.MaxAttempts > 0 && attempt >= p.MaxAttempts
	if exhausted {
		opts.Requeue = false
		opts.DeadLetter = opts.DeadLetter || p.DeadLetterOnMax
	}
	if !opts.Requeue && !opts.DeadLetter {
		opts.Requeue = true
	}
	return opts
}

// InvalidationQueue carries rule invalidation jobs over a go-job queue. It
// satisfies the core enqueuer and dequeuer contracts.
type InvalidationQueue struct {
	enqueuer queue.Enqueuer
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

type QueueOption func(*InvalidationQueue)

func WithEnqueuer(enqueuer queue.Enqueuer) QueueOption {
	return func(q *InvalidationQueue) { q.enqueuer = enqueuer }
}

func WithDequeuer(dequeuer queue.Dequeuer) QueueOption {
	return func(q *InvalidationQueue) { q.dequeuer = dequeuer }
}

func WithRetryPolicy(policy RetryPolicy) QueueOption {
	return func(q *InvalidationQueue) { q.policy = policy }
}

func NewInvalidationQueue(opts ...QueueOption) *InvalidationQueue {
	q := &InvalidationQueue{}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func (q *InvalidationQueue) Policy() RetryPolicy {
	if q == nil {
		return RetryPolicy{}
	}
	return q.policy
}

func (q *InvalidationQueue) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if q == nil || q.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	return q.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

// PublishInvalidation enqueues an invalidation of entity at version. Version 0
// asks every consumer to drop all cached versions of the entity.
func (q *InvalidationQueue) PublishInvalidation(ctx context.Context, entity core.EntityType, version int) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	if version < 0 {
		return fmt.Errorf("gojob: invalidation version must be >= 0")
	}
	return q.Enqueue(ctx, core.NewInvalidateRulesMessage(entity, version))
}

// Dequeue returns nil, nil when the underlying queue has nothing ready.
func (q *InvalidationQueue) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if q == nil || q.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	raw, err := q.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return &Delivery{raw: raw, policy: q.policy}, nil
}

// Delivery wraps one go-job delivery and applies the queue retry policy to
// every nack.
type Delivery struct {
	raw     queue.Delivery
	policy  RetryPolicy
	attempt int
}

func NewDelivery(raw queue.Delivery, policy RetryPolicy) *Delivery {
	return &Delivery{raw: raw, policy: policy}
}

// WithAttempt records the delivery attempt reported by the worker.
func (d *Delivery) WithAttempt(attempt int) *Delivery {
	if d != nil {
		d.attempt = attempt
	}
	return d
}

func (d *Delivery) Message() *core.JobExecutionMessage {
	if d == nil || d.raw == nil {
		return nil
	}
	return FromExecutionMessage(d.raw.Message())
}

func (d *Delivery) Ack(ctx context.Context) error {
	if d == nil || d.raw == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.raw.Ack(ctx)
}

func (d *Delivery) Nack(ctx context.Context, opts core.JobNackOptions) error {
	if d == nil || d.raw == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.raw.Nack(ctx, toNackOptions(d.policy.Apply(opts, d.attempt)))
}

// NewInvalidationRunner drains q into invalidator. The runner retry delay is
// clamped to the queue policy.
func NewInvalidationRunner(invalidator core.RuleInvalidator, q *InvalidationQueue) *core.InvalidationRunner {
	runner := core.NewInvalidationRunner(invalidator, q)
	if limit := q.Policy().MaxDelay; limit > 0 {
		runner.RetryDelay = min(runner.RetryDelay, limit)
	}
	return runner
}

var (
	_ core.JobEnqueuer = (*InvalidationQueue)(nil)
	_ core.JobDequeuer = (*InvalidationQueue)(nil)
	_ core.JobDelivery = (*Delivery)(nil)
)
