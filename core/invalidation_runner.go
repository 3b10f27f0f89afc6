package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	InvalidateRulesJobID            = "mapping.rules.invalidate"
	invalidateRulesDedup            = "drop"
	defaultInvalidationDelay        = time.Second
	InvalidationOutcomeAcked        = "acked"
	InvalidationOutcomeDeadLettered = "dead_lettered"
	InvalidationOutcomeRequeued     = "requeued"
	InvalidationOutcomeEmpty        = "empty"
)

// RuleInvalidator is the part of the mapping service the runner drives.
type RuleInvalidator interface {
	Invalidate(ctx context.Context, entity EntityType, version int) error
}

// NewInvalidateRulesMessage builds the job message a rule publisher enqueues
// after storing a new version. Version 0 invalidates every cached version.
func NewInvalidateRulesMessage(entity EntityType, version int) *JobExecutionMessage {
	return &JobExecutionMessage{
		JobID:      InvalidateRulesJobID,
		ScriptPath: InvalidateRulesJobID,
		Parameters: map[string]any{
			"entity":  string(entity),
			"version": version,
		},
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", InvalidateRulesJobID, entity, version),
		DedupPolicy:    invalidateRulesDedup,
	}
}

// ParseInvalidateRulesMessage reads entity and version from a job message.
func ParseInvalidateRulesMessage(msg *JobExecutionMessage) (EntityType, int, error) {
	if msg == nil {
		return "", 0, fmt.Errorf("%w: job message is required", ErrInvalidRule)
	}
	if jobID := strings.TrimSpace(msg.JobID); jobID != InvalidateRulesJobID {
		return "", 0, fmt.Errorf("%w: unexpected job id %q", ErrInvalidRule, jobID)
	}
	entity, err := ParseEntityType(fmt.Sprint(msg.Parameters["entity"]))
	if err != nil {
		return "", 0, err
	}
	version, err := versionParameter(msg.Parameters["version"])
	if err != nil {
		return "", 0, err
	}
	return entity, version, nil
}

type InvalidationRunResult struct {
	Outcome string
	Entity  EntityType
	Version int
}

type InvalidationRunner struct {
	Invalidator RuleInvalidator
	Dequeuer    JobDequeuer
	RetryDelay  time.Duration
}

func NewInvalidationRunner(invalidator RuleInvalidator, dequeuer JobDequeuer) *InvalidationRunner {
	return &InvalidationRunner{
		Invalidator: invalidator,
		Dequeuer:    dequeuer,
		RetryDelay:  defaultInvalidationDelay,
	}
}

// RunOnce handles a single delivery. Malformed messages are dead-lettered,
// invalidation failures are requeued and returned.
func (r *InvalidationRunner) RunOnce(ctx context.Context) (InvalidationRunResult, error) {
	if r == nil || r.Invalidator == nil || r.Dequeuer == nil {
		return InvalidationRunResult{}, fmt.Errorf("core: invalidation runner is not configured")
	}
	delivery, err := r.Dequeuer.Dequeue(ctx)
	if err != nil {
		return InvalidationRunResult{}, err
	}
	if delivery == nil {
		return InvalidationRunResult{Outcome: InvalidationOutcomeEmpty}, nil
	}

	entity, version, parseErr := ParseInvalidateRulesMessage(delivery.Message())
	if parseErr != nil {
		nackErr := delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     parseErr.Error(),
		})
		if nackErr != nil {
			return InvalidationRunResult{}, nackErr
		}
		return InvalidationRunResult{Outcome: InvalidationOutcomeDeadLettered}, nil
	}

	result := InvalidationRunResult{Entity: entity, Version: version}
	if err := r.Invalidator.Invalidate(ctx, entity, version); err != nil {
		result.Outcome = InvalidationOutcomeRequeued
		nackErr := delivery.Nack(ctx, JobNackOptions{
			Delay:   r.RetryDelay,
			Requeue: true,
			Reason:  err.Error(),
		})
		if nackErr != nil {
			return result, nackErr
		}
		return result, err
	}
	if err := delivery.Ack(ctx); err != nil {
		return result, err
	}
	result.Outcome = InvalidationOutcomeAcked
	return result, nil
}

func versionParameter(raw any) (int, error) {
	switch typed := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return checkVersion(typed)
	case int32:
		return checkVersion(int(typed))
	case int64:
		return checkVersion(int(typed))
	case float64:
		if typed != math.Trunc(typed) {
			return 0, fmt.Errorf("%w: version %v is not an integer", ErrInvalidRule, typed)
		}
		return checkVersion(int(typed))
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: version %q is not an integer", ErrInvalidRule, typed)
		}
		return checkVersion(int(parsed))
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" || strings.EqualFold(trimmed, "latest") {
			return 0, nil
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("%w: version %q is not an integer", ErrInvalidRule, typed)
		}
		return checkVersion(parsed)
	default:
		return 0, fmt.Errorf("%w: unsupported version type %T", ErrInvalidRule, raw)
	}
}

func checkVersion(version int) (int, error) {
	if version < 0 {
		return 0, fmt.Errorf("%w: version must be >= 0", ErrInvalidRule)
	}
	return version, nil
}
