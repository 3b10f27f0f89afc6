package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
	mapping "github.com/goliatone/go-mapping"
	"github.com/goliatone/go-mapping/adapters/gocommand"
	"github.com/goliatone/go-mapping/adapters/gojob"
	"github.com/goliatone/go-mapping/adapters/gologger"
	mappingcommand "github.com/goliatone/go-mapping/command"
	"github.com/goliatone/go-mapping/core"
	mappingquery "github.com/goliatone/go-mapping/query"
)

// Two engine processes share one rule store. A publish on the first is
// broadcast through the job queue and the second drops its cached version.
func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()
	store := core.NewMemoryRuleStore()
	rules := []core.MappingRule{
		{Direction: core.DirectionToExternal, SourcePath: "email", TargetPath: "Email", IsRequired: true},
	}
	if _, err := store.PublishVersion(ctx, core.EntityContact, rules); err != nil {
		t.Fatalf("seed v1: %v", err)
	}

	provider := &compatProvider{logger: compatLogger{}}
	_, _, jobProvider, jobLogger := gologger.ResolveForJob("mapping", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	publisherSvc, err := core.NewService(core.DefaultConfig(),
		append(gologger.ServiceOptions("mapping", provider, nil), core.WithRuleStore(store))...)
	if err != nil {
		t.Fatalf("new publisher service: %v", err)
	}
	readerSvc, err := core.NewService(core.DefaultConfig(), core.WithRuleStore(store))
	if err != nil {
		t.Fatalf("new reader service: %v", err)
	}
	if latest, err := readerSvc.GetLatestVersion(ctx, core.EntityContact); err != nil || latest != 1 {
		t.Fatalf("expected reader to cache version 1, got %d err=%v", latest, err)
	}

	facade, err := mapping.NewFacade(publisherSvc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	queueRegistry := jobqueuecommand.NewRegistry()
	bus := gocommand.NewBus(command.NewRegistry())
	defer bus.Close()
	if err := bus.MirrorToQueue("queue", queueRegistry); err != nil {
		t.Fatalf("mirror to queue: %v", err)
	}
	if err := bus.Mount(facade); err != nil {
		t.Fatalf("mount mapping handlers: %v", err)
	}
	if err := bus.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get(mappingcommand.TypePublishRules); !ok {
		t.Fatalf("expected publish command to be mirrored into go-job queue registry")
	}

	if err := gocommand.Dispatch(ctx, mappingcommand.PublishRulesMessage{
		Entity: core.EntityContact,
		Rules:  rules,
	}); err != nil {
		t.Fatalf("dispatch publish: %v", err)
	}
	latest, err := gocommand.Query[mappingquery.LatestVersionMessage, int](ctx, mappingquery.LatestVersionMessage{
		Entity: core.EntityContact,
	})
	if err != nil || latest != 2 {
		t.Fatalf("expected publisher to see version 2, got %d err=%v", latest, err)
	}

	broker := &compatBroker{}
	invalidations := gojob.NewInvalidationQueue(
		gojob.WithEnqueuer(broker),
		gojob.WithDequeuer(broker),
		gojob.WithRetryPolicy(gojob.RetryPolicy{MaxAttempts: 3}),
	)
	if err := invalidations.PublishInvalidation(ctx, core.EntityContact, 0); err != nil {
		t.Fatalf("publish invalidation: %v", err)
	}
	runner := gojob.NewInvalidationRunner(readerSvc, invalidations)
	result, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run invalidation: %v", err)
	}
	if result.Outcome != core.InvalidationOutcomeAcked {
		t.Fatalf("expected acked invalidation, got %q", result.Outcome)
	}
	if latest, err := readerSvc.GetLatestVersion(ctx, core.EntityContact); err != nil || latest != 2 {
		t.Fatalf("expected reader to see version 2 after invalidation, got %d err=%v", latest, err)
	}
	if empty, err := runner.RunOnce(ctx); err != nil || empty.Outcome != core.InvalidationOutcomeEmpty {
		t.Fatalf("expected drained queue, got %#v err=%v", empty, err)
	}
}

type compatBroker struct {
	pending []*job.ExecutionMessage
}

func (b *compatBroker) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	b.pending = append(b.pending, msg)
	return nil
}

func (b *compatBroker) Dequeue(context.Context) (queue.Delivery, error) {
	if len(b.pending) == 0 {
		return nil, nil
	}
	msg := b.pending[0]
	b.pending = b.pending[1:]
	return &compatDelivery{msg: msg}, nil
}

type compatDelivery struct {
	msg *job.ExecutionMessage
}

func (d *compatDelivery) Message() *job.ExecutionMessage                { return d.msg }
func (d *compatDelivery) Ack(context.Context) error                     { return nil }
func (d *compatDelivery) Nack(context.Context, queue.NackOptions) error { return nil }

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
