package core

import (
	"context"
	"fmt"
)

const DefaultMaxBatchSize = 500

type EngineOption func(*Engine)

// WithEngineMaxBatchSize bounds MapMany batches; 0 disables the bound.
func WithEngineMaxBatchSize(size int) EngineOption {
	return func(e *Engine) {
		if e == nil || size < 0 {
			return
		}
		e.maxBatchSize = size
	}
}

// Engine applies resolved rule sets to records. It holds no per-call state;
// the loader is the only state shared between calls.
type Engine struct {
	loader       RuleSetLoader
	maxBatchSize int
}

func NewEngine(loader RuleSetLoader, opts ...EngineOption) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("core: rule set loader is required")
	}
	engine := &Engine{loader: loader, maxBatchSize: DefaultMaxBatchSize}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine, nil
}

// Map converts one record. Either the complete output is returned or an
// error; partial output is never observable.
func (e *Engine) Map(
	ctx context.Context,
	entity EntityType,
	direction Direction,
	input map[string]any,
	opts MapOptions,
) (map[string]any, error) {
	if err := e.validate(entity, direction, opts); err != nil {
		return nil, err
	}
	set, err := e.loader.Load(ctx, entity, opts.Version)
	if err != nil {
		return nil, err
	}
	return applyRuleSet(set, direction, input, opts.Sparse)
}

// MapMany converts a batch of records against one resolved rule set and
// stops at the first failing record.
func (e *Engine) MapMany(
	ctx context.Context,
	entity EntityType,
	direction Direction,
	inputs []map[string]any,
	opts MapOptions,
) ([]map[string]any, error) {
	if err := e.validate(entity, direction, opts); err != nil {
		return nil, err
	}
	if e.maxBatchSize > 0 && len(inputs) > e.maxBatchSize {
		return nil, badInputError(fmt.Errorf(
			"%w: batch of %d records exceeds max batch size %d",
			ErrInvalidRule,
			len(inputs),
			e.maxBatchSize,
		))
	}
	if len(inputs) == 0 {
		return []map[string]any{}, nil
	}
	set, err := e.loader.Load(ctx, entity, opts.Version)
	if err != nil {
		return nil, err
	}
	outputs := make([]map[string]any, 0, len(inputs))
	for idx, input := range inputs {
		output, mapErr := applyRuleSet(set, direction, input, opts.Sparse)
		if mapErr != nil {
			return nil, withRecordIndex(mapErr, idx)
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

// Rules returns the rule set Map would apply for entity and version.
func (e *Engine) Rules(ctx context.Context, entity EntityType, version int) (*RuleSet, error) {
	if e == nil || e.loader == nil {
		return nil, fmt.Errorf("core: mapping engine is required")
	}
	if err := entity.Validate(); err != nil {
		return nil, badInputError(err)
	}
	if version < 0 {
		return nil, badInputError(fmt.Errorf("%w: version must be >= 0", ErrInvalidRule))
	}
	return e.loader.Load(ctx, entity, version)
}

func (e *Engine) GetLatestVersion(ctx context.Context, entity EntityType) (int, error) {
	if e == nil || e.loader == nil {
		return 0, fmt.Errorf("core: mapping engine is required")
	}
	if err := entity.Validate(); err != nil {
		return 0, badInputError(err)
	}
	return e.loader.LatestVersion(ctx, entity)
}

func (e *Engine) Invalidate(ctx context.Context, entity EntityType, version int) error {
	if e == nil || e.loader == nil {
		return fmt.Errorf("core: mapping engine is required")
	}
	if err := entity.Validate(); err != nil {
		return badInputError(err)
	}
	if version < 0 {
		return badInputError(fmt.Errorf("%w: version must be >= 0", ErrInvalidRule))
	}
	return e.loader.Invalidate(ctx, entity, version)
}

func (e *Engine) validate(entity EntityType, direction Direction, opts MapOptions) error {
	if e == nil || e.loader == nil {
		return fmt.Errorf("core: mapping engine is required")
	}
	if err := entity.Validate(); err != nil {
		return badInputError(err)
	}
	if err := direction.Validate(); err != nil {
		return badInputError(err)
	}
	if err := opts.Validate(); err != nil {
		return badInputError(err)
	}
	return nil
}

func applyRuleSet(set *RuleSet, direction Direction, input map[string]any, sparse bool) (map[string]any, error) {
	// Sparse application is a partial update against the external system.
	sparse = sparse && direction == DirectionToExternal
	output := make(map[string]any)
	for _, rule := range set.Rules(direction) {
		location := ruleLocation{entity: set.Entity, version: set.Version, direction: direction, rule: &rule}

		if sparse && !HasOwnPath(input, rule.SourcePath) {
			continue
		}

		value, found := GetPath(input, rule.SourcePath)
		if rule.Transform != "" {
			transformed, stillFound, ok := applyTransform(rule.Transform, value, found, rule.DefaultValue)
			if !ok {
				return nil, unknownTransformError(rule.Transform, location)
			}
			value, found = transformed, stillFound
		}
		if value == nil && rule.HasDefault() {
			value, found = rule.DefaultValue, true
		}
		if rule.IsRequired && isEmptyValue(value, found) {
			return nil, requiredFieldError(location)
		}
		if !found {
			continue
		}
		SetPath(output, rule.TargetPath, cloneValue(value))
	}
	return output, nil
}

func isEmptyValue(value any, found bool) bool {
	if !found || value == nil {
		return true
	}
	text, ok := value.(string)
	return ok && text == ""
}
