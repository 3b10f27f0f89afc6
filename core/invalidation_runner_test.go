package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type stubInvalidator struct {
	calls []invalidationCall
	err   error
}

func (s *stubInvalidator) Invalidate(_ context.Context, entity EntityType, version int) error {
	s.calls = append(s.calls, invalidationCall{entity: entity, version: version})
	return s.err
}

func TestInvalidateRulesMessage_RoundTrip(t *testing.T) {
	msg := NewInvalidateRulesMessage(EntityDeal, 4)
	if msg.JobID != InvalidateRulesJobID {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
	if msg.IdempotencyKey != "mapping.rules.invalidate:deal:4" {
		t.Fatalf("unexpected idempotency key %q", msg.IdempotencyKey)
	}
	entity, version, err := ParseInvalidateRulesMessage(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if entity != EntityDeal || version != 4 {
		t.Fatalf("expected deal@4, got %s@%d", entity, version)
	}

	if _, _, err := ParseInvalidateRulesMessage(&JobExecutionMessage{JobID: "other"}); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected foreign job id to be rejected, got %v", err)
	}
	bad := NewInvalidateRulesMessage(EntityDeal, 0)
	bad.Parameters["entity"] = "widget"
	if _, _, err := ParseInvalidateRulesMessage(bad); !errors.Is(err, ErrInvalidEntityType) {
		t.Fatalf("expected unknown entity to be rejected, got %v", err)
	}
}

func TestVersionParameter(t *testing.T) {
	valid := map[string]struct {
		raw  any
		want int
	}{
		"nil":         {raw: nil, want: 0},
		"int":         {raw: 3, want: 3},
		"int64":       {raw: int64(7), want: 7},
		"whole float": {raw: 2.0, want: 2},
		"json number": {raw: json.Number("9"), want: 9},
		"string":      {raw: " 5 ", want: 5},
		"latest":      {raw: "latest", want: 0},
		"empty":       {raw: "", want: 0},
	}
	for name, tt := range valid {
		got, err := versionParameter(tt.raw)
		if err != nil || got != tt.want {
			t.Fatalf("%s: expected %d, got %d err=%v", name, tt.want, got, err)
		}
	}

	for _, raw := range []any{1.5, -1, "v2", true} {
		if _, err := versionParameter(raw); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("expected %#v to be rejected, got %v", raw, err)
		}
	}
}

func TestInvalidationRunner_AcksOnSuccess(t *testing.T) {
	delivery := &stubJobDelivery{msg: NewInvalidateRulesMessage(EntityProduct, 2)}
	invalidator := &stubInvalidator{}
	runner := NewInvalidationRunner(invalidator, &stubJobDequeuer{deliveries: []JobDelivery{delivery}})

	result, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.Outcome != InvalidationOutcomeAcked || result.Entity != EntityProduct || result.Version != 2 {
		t.Fatalf("unexpected result %#v", result)
	}
	if !delivery.acked || delivery.nacked {
		t.Fatalf("expected delivery to be acked")
	}
	if len(invalidator.calls) != 1 || invalidator.calls[0].version != 2 {
		t.Fatalf("unexpected invalidations %#v", invalidator.calls)
	}
}

func TestInvalidationRunner_DeadLettersMalformedMessages(t *testing.T) {
	delivery := &stubJobDelivery{msg: &JobExecutionMessage{
		JobID:      InvalidateRulesJobID,
		Parameters: map[string]any{"entity": "product", "version": "abc"},
	}}
	invalidator := &stubInvalidator{}
	runner := NewInvalidationRunner(invalidator, &stubJobDequeuer{deliveries: []JobDelivery{delivery}})

	result, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected malformed message to be settled without error, got %v", err)
	}
	if result.Outcome != InvalidationOutcomeDeadLettered {
		t.Fatalf("expected dead letter outcome, got %q", result.Outcome)
	}
	if !delivery.nacked || !delivery.nack.DeadLetter || delivery.nack.Requeue {
		t.Fatalf("expected dead-letter nack, got %#v", delivery.nack)
	}
	if len(invalidator.calls) != 0 {
		t.Fatalf("expected no invalidation for malformed message")
	}
}

func TestInvalidationRunner_RequeuesOnFailure(t *testing.T) {
	failure := errors.New("store unavailable")
	delivery := &stubJobDelivery{msg: NewInvalidateRulesMessage(EntityAccount, 0)}
	runner := NewInvalidationRunner(&stubInvalidator{err: failure}, &stubJobDequeuer{deliveries: []JobDelivery{delivery}})
	runner.RetryDelay = 0

	result, err := runner.RunOnce(context.Background())
	if !errors.Is(err, failure) {
		t.Fatalf("expected invalidation failure, got %v", err)
	}
	if result.Outcome != InvalidationOutcomeRequeued {
		t.Fatalf("expected requeue outcome, got %q", result.Outcome)
	}
	if !delivery.nack.Requeue || delivery.nack.DeadLetter || delivery.acked {
		t.Fatalf("expected requeue nack, got %#v", delivery.nack)
	}
}

func TestInvalidationRunner_EmptyQueueAndMisconfiguration(t *testing.T) {
	runner := NewInvalidationRunner(&stubInvalidator{}, &stubJobDequeuer{})
	result, err := runner.RunOnce(context.Background())
	if err != nil || result.Outcome != InvalidationOutcomeEmpty {
		t.Fatalf("expected empty outcome, got %#v err=%v", result, err)
	}

	dequeueErr := errors.New("broker down")
	runner = NewInvalidationRunner(&stubInvalidator{}, &stubJobDequeuer{err: dequeueErr})
	if _, err := runner.RunOnce(context.Background()); !errors.Is(err, dequeueErr) {
		t.Fatalf("expected dequeue error, got %v", err)
	}

	if _, err := (&InvalidationRunner{}).RunOnce(context.Background()); err == nil {
		t.Fatalf("expected unconfigured runner to fail")
	}
}

func TestInvalidationRunner_DrivesServiceCache(t *testing.T) {
	ctx := context.Background()
	store := newRecordingRuleStore()
	publishRules(t, store, EntityProduct, productRules())
	svc, err := NewService(DefaultConfig(), WithRuleStore(store))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.GetLatestVersion(ctx, EntityProduct); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	publishRules(t, store, EntityProduct, productRules())

	delivery := &stubJobDelivery{msg: NewInvalidateRulesMessage(EntityProduct, 0)}
	runner := NewInvalidationRunner(svc, &stubJobDequeuer{deliveries: []JobDelivery{delivery}})
	if _, err := runner.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	version, err := svc.GetLatestVersion(ctx, EntityProduct)
	if err != nil || version != 2 {
		t.Fatalf("expected invalidation to expose version 2, got %d err=%v", version, err)
	}
}
