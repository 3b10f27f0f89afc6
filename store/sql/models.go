package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-mapping/core"
	"github.com/uptrace/bun"
)

type mappingRuleRecord struct {
	bun.BaseModel `bun:"table:mapping_rules,alias:mr"`

	ID              string    `bun:"id,pk"`
	EntityType      string    `bun:"entity_type,notnull"`
	Version         int       `bun:"version,notnull"`
	Direction       string    `bun:"direction,notnull"`
	SourcePath      string    `bun:"source_path,notnull"`
	TargetPath      string    `bun:"target_path,notnull"`
	IsRequired      bool      `bun:"is_required,notnull"`
	TransformMethod string    `bun:"transform_method"`
	DefaultValue    string    `bun:"default_value"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newMappingRuleRecord(entity core.EntityType, version int, rule core.MappingRule, now time.Time) (*mappingRuleRecord, error) {
	defaultValue, err := encodeDefaultValue(rule.DefaultValue)
	if err != nil {
		return nil, err
	}
	return &mappingRuleRecord{
		ID:              strings.TrimSpace(rule.ID),
		EntityType:      string(entity),
		Version:         version,
		Direction:       string(rule.Direction),
		SourcePath:      strings.TrimSpace(rule.SourcePath),
		TargetPath:      strings.TrimSpace(rule.TargetPath),
		IsRequired:      rule.IsRequired,
		TransformMethod: strings.TrimSpace(rule.Transform),
		DefaultValue:    defaultValue,
		CreatedAt:       now,
	}, nil
}

func (r *mappingRuleRecord) toDomain() (core.MappingRule, error) {
	if r == nil {
		return core.MappingRule{}, nil
	}
	defaultValue, err := decodeDefaultValue(r.DefaultValue)
	if err != nil {
		return core.MappingRule{}, fmt.Errorf("sqlstore: rule %s: %w", r.ID, err)
	}
	return core.MappingRule{
		ID:           r.ID,
		Entity:       core.EntityType(r.EntityType),
		Version:      r.Version,
		Direction:    core.Direction(r.Direction),
		SourcePath:   r.SourcePath,
		TargetPath:   r.TargetPath,
		IsRequired:   r.IsRequired,
		Transform:    r.TransformMethod,
		DefaultValue: defaultValue,
	}, nil
}

// default_value holds JSON text so any scalar or structured default survives
// both dialects. An empty column means the rule has no default.
func encodeDefaultValue(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("sqlstore: encode default value: %w", err)
	}
	return string(encoded), nil
}

func decodeDefaultValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decode default value: %w", err)
	}
	return value, nil
}
