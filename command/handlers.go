package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-mapping/core"
)

type RuleInvalidator interface {
	Invalidate(ctx context.Context, entity core.EntityType, version int) error
}

type RulePublisher interface {
	PublishRules(ctx context.Context, entity core.EntityType, rules []core.MappingRule) (int, error)
}

type InvalidateRulesCommand struct {
	service RuleInvalidator
}

func NewInvalidateRulesCommand(service RuleInvalidator) *InvalidateRulesCommand {
	return &InvalidateRulesCommand{service: service}
}

func (c *InvalidateRulesCommand) Execute(ctx context.Context, msg InvalidateRulesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: rule invalidator is required")
	}
	return c.service.Invalidate(ctx, msg.Entity, msg.Version)
}

// PublishRulesCommand stores the published version number in the context
// result collector when one is present.
type PublishRulesCommand struct {
	service RulePublisher
}

func NewPublishRulesCommand(service RulePublisher) *PublishRulesCommand {
	return &PublishRulesCommand{service: service}
}

func (c *PublishRulesCommand) Execute(ctx context.Context, msg PublishRulesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: rule publisher is required")
	}
	version, err := c.service.PublishRules(ctx, msg.Entity, msg.Rules)
	if err != nil {
		return err
	}
	storeResult(ctx, version)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
