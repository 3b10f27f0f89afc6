package core

import (
	"context"
	"sync"
	"testing"
)

// recordingRuleStore wraps a MemoryRuleStore and counts gateway reads. When
// gate is set, FindRules signals entered and waits for gate to close.
type recordingRuleStore struct {
	inner *MemoryRuleStore

	mu             sync.Mutex
	findRulesCalls int
	findMaxCalls   int
	findErr        error
	maxErr         error
	invalidations  []invalidationCall

	gate    chan struct{}
	entered chan struct{}
}

type invalidationCall struct {
	entity  EntityType
	version int
}

func newRecordingRuleStore() *recordingRuleStore {
	return &recordingRuleStore{inner: NewMemoryRuleStore()}
}

func (s *recordingRuleStore) FindRules(ctx context.Context, entity EntityType, version int) ([]MappingRule, error) {
	s.mu.Lock()
	s.findRulesCalls++
	err := s.findErr
	gate := s.gate
	entered := s.entered
	s.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return s.inner.FindRules(ctx, entity, version)
}

func (s *recordingRuleStore) FindMaxVersion(ctx context.Context, entity EntityType) (int, bool, error) {
	s.mu.Lock()
	s.findMaxCalls++
	err := s.maxErr
	s.mu.Unlock()
	if err != nil {
		return 0, false, err
	}
	return s.inner.FindMaxVersion(ctx, entity)
}

func (s *recordingRuleStore) PublishVersion(ctx context.Context, entity EntityType, rules []MappingRule) (int, error) {
	return s.inner.PublishVersion(ctx, entity, rules)
}

func (s *recordingRuleStore) InvalidateRules(_ context.Context, entity EntityType, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidations = append(s.invalidations, invalidationCall{entity: entity, version: version})
	return nil
}

func (s *recordingRuleStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findRulesCalls, s.findMaxCalls
}

func (s *recordingRuleStore) setGate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.entered = make(chan struct{}, 1)
}

func (s *recordingRuleStore) openGate() {
	s.mu.Lock()
	gate := s.gate
	s.gate = nil
	s.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// productRules is the catalogue used by most engine tests.
func productRules() []MappingRule {
	return []MappingRule{
		{Direction: DirectionToExternal, SourcePath: "name", TargetPath: "Product_Name", IsRequired: true},
		{Direction: DirectionToExternal, SourcePath: "price", TargetPath: "Unit_Price", Transform: TransformToNumber},
		{Direction: DirectionToInternal, SourcePath: "Product_Name", TargetPath: "name", IsRequired: true},
		{Direction: DirectionToInternal, SourcePath: "Unit_Price", TargetPath: "price", Transform: TransformToNumber},
	}
}

func publishRules(t *testing.T, store RulePublisher, entity EntityType, rules []MappingRule) int {
	t.Helper()
	version, err := store.PublishVersion(context.Background(), entity, rules)
	if err != nil {
		t.Fatalf("publish %s rules: %v", entity, err)
	}
	return version
}

func newTestEngine(t *testing.T, store RuleStore, opts ...EngineOption) *Engine {
	t.Helper()
	cache, err := NewRuleCache(store)
	if err != nil {
		t.Fatalf("new rule cache: %v", err)
	}
	engine, err := NewEngine(cache, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// stubJobDelivery records how a delivery was settled.
type stubJobDelivery struct {
	msg    *JobExecutionMessage
	acked  bool
	nacked bool
	nack   JobNackOptions
}

func (d *stubJobDelivery) Message() *JobExecutionMessage { return d.msg }

func (d *stubJobDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *stubJobDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.nacked = true
	d.nack = opts
	return nil
}

type stubJobDequeuer struct {
	deliveries []JobDelivery
	err        error
}

func (q *stubJobDequeuer) Dequeue(context.Context) (JobDelivery, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.deliveries) == 0 {
		return nil, nil
	}
	next := q.deliveries[0]
	q.deliveries = q.deliveries[1:]
	return next, nil
}
