package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// RuleStore is the read side of the rule management collaborator. FindRules
// returns rules in any order; the cache sorts them.
type RuleStore interface {
	FindRules(ctx context.Context, entity EntityType, version int) ([]MappingRule, error)
	FindMaxVersion(ctx context.Context, entity EntityType) (version int, found bool, err error)
}

// RuleStoreInvalidator is implemented by rule stores that keep their own
// read cache and must drop it when the engine invalidates.
type RuleStoreInvalidator interface {
	InvalidateRules(ctx context.Context, entity EntityType, version int) error
}

// RulePublisher stores a new immutable rule version. Only management tooling
// uses it; the engine never writes rules.
type RulePublisher interface {
	PublishVersion(ctx context.Context, entity EntityType, rules []MappingRule) (int, error)
}

type RuleStoreFactory interface {
	BuildRuleStore(persistenceClient any) (RuleStore, error)
}

// RuleSetLoader resolves rule sets for the engine.
type RuleSetLoader interface {
	Load(ctx context.Context, entity EntityType, version int) (*RuleSet, error)
	LatestVersion(ctx context.Context, entity EntityType) (int, error)
	Invalidate(ctx context.Context, entity EntityType, version int) error
}

type Mapper interface {
	Map(
		ctx context.Context,
		entity EntityType,
		direction Direction,
		input map[string]any,
		opts MapOptions,
	) (map[string]any, error)
	GetLatestVersion(ctx context.Context, entity EntityType) (int, error)
	Invalidate(ctx context.Context, entity EntityType, version int) error
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
