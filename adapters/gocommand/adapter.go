package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	mapping "github.com/goliatone/go-mapping"
)

// MessagePrefix namespaces every mapping command and query type.
const MessagePrefix = "mapping."

// ValidateMessage checks the go-command message contract and that the type
// lives in the mapping namespace.
func ValidateMessage(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	msgType := strings.TrimSpace(m.Type())
	if msgType == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	if !strings.HasPrefix(msgType, MessagePrefix) {
		return fmt.Errorf("gocommand: message type %q is outside the %q namespace", msgType, MessagePrefix)
	}
	return nil
}

// Bus mounts mapping handlers on a go-command registry and on the process
// dispatcher. Close releases every dispatcher subscription it made.
type Bus struct {
	registry      *command.Registry
	runnerOpts    []runner.Option
	subscriptions []commanddispatcher.Subscription
}

func NewBus(registry *command.Registry, runnerOpts ...runner.Option) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry, runnerOpts: runnerOpts}
}

func (b *Bus) Registry() *command.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

func (b *Bus) AddResolver(key string, resolver command.Resolver) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// MirrorToQueue copies every registered handler into a go-job queue registry
// when the bus is initialized, so the same messages can run as jobs.
func (b *Bus) MirrorToQueue(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (b *Bus) HasResolver(key string) bool {
	if b == nil || b.registry == nil {
		return false
	}
	return b.registry.HasResolver(strings.TrimSpace(key))
}

// Mount registers and subscribes the facade's commands and queries. A failed
// mount leaves no subscriptions behind.
func (b *Bus) Mount(facade *mapping.Facade) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if facade == nil {
		return fmt.Errorf("gocommand: mapping facade is required")
	}
	commands := facade.Commands()
	queries := facade.Queries()

	mounted := len(b.subscriptions)
	steps := []func() error{
		func() error { return mountCommand(b, commands.InvalidateRules) },
		func() error { return mountCommand(b, commands.PublishRules) },
		func() error { return mountQuery(b, queries.MapRecord) },
		func() error { return mountQuery(b, queries.MapRecords) },
		func() error { return mountQuery(b, queries.LatestVersion) },
		func() error { return mountQuery(b, queries.RuleSet) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.release(mounted)
			return err
		}
	}
	return nil
}

func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Subscriptions reports how many dispatcher subscriptions are live.
func (b *Bus) Subscriptions() int {
	if b == nil {
		return 0
	}
	return len(b.subscriptions)
}

func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.release(0)
}

func (b *Bus) release(keep int) {
	for _, subscription := range b.subscriptions[keep:] {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = b.subscriptions[:keep]
}

func mountCommand[T any](b *Bus, cmd command.Commander[T]) error {
	if cmd == nil {
		return fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, b.runnerOpts...)
	if err := b.registry.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	b.subscriptions = append(b.subscriptions, subscription)
	return nil
}

func mountQuery[T any, R any](b *Bus, qry command.Querier[T, R]) error {
	if qry == nil {
		return fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, b.runnerOpts...)
	if err := b.registry.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	b.subscriptions = append(b.subscriptions, subscription)
	return nil
}

// Dispatch validates msg and sends it to its subscribed command handler.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessage(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

// Query validates msg and returns the subscribed query handler's result.
func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessage(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}
