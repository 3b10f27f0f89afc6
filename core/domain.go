package core

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidEntityType = errors.New("core: invalid entity type")
	ErrInvalidDirection  = errors.New("core: invalid mapping direction")
	ErrInvalidRule       = errors.New("core: invalid mapping rule")
)

type EntityType string

const (
	EntityProduct EntityType = "product"
	EntityContact EntityType = "contact"
	EntityAccount EntityType = "account"
	EntityVendor  EntityType = "vendor"
	EntityDeal    EntityType = "deal"
)

var knownEntityTypes = []EntityType{
	EntityAccount,
	EntityContact,
	EntityDeal,
	EntityProduct,
	EntityVendor,
}

// EntityTypes lists every entity tag the engine accepts, sorted.
func EntityTypes() []EntityType {
	return slices.Clone(knownEntityTypes)
}

func ParseEntityType(raw string) (EntityType, error) {
	entity := EntityType(strings.TrimSpace(strings.ToLower(raw)))
	if err := entity.Validate(); err != nil {
		return "", err
	}
	return entity, nil
}

func (e EntityType) Validate() error {
	if slices.Contains(knownEntityTypes, e) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidEntityType, string(e))
}

func (e EntityType) String() string {
	return string(e)
}

type Direction string

const (
	DirectionToExternal Direction = "to_external"
	DirectionToInternal Direction = "to_internal"
)

func ParseDirection(raw string) (Direction, error) {
	candidate := strings.TrimSpace(strings.ToLower(raw))
	candidate = strings.ReplaceAll(candidate, "-", "_")
	switch candidate {
	case "to_external", "toexternal", "external":
		return DirectionToExternal, nil
	case "to_internal", "tointernal", "internal":
		return DirectionToInternal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, raw)
	}
}

func (d Direction) Validate() error {
	switch d {
	case DirectionToExternal, DirectionToInternal:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDirection, string(d))
	}
}

func (d Direction) String() string {
	return string(d)
}

// MappingRule is one source path to target path entry of a published rule
// version. DefaultValue nil means the rule carries no default.
type MappingRule struct {
	ID           string     `json:"id,omitempty" yaml:"id,omitempty"`
	Entity       EntityType `json:"entity" yaml:"entity"`
	Version      int        `json:"version" yaml:"version"`
	Direction    Direction  `json:"direction" yaml:"direction"`
	SourcePath   string     `json:"source" yaml:"source"`
	TargetPath   string     `json:"target" yaml:"target"`
	IsRequired   bool       `json:"is_required,omitempty" yaml:"is_required,omitempty"`
	Transform    string     `json:"transform_method,omitempty" yaml:"transform_method,omitempty"`
	DefaultValue any        `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

func (r MappingRule) Validate() error {
	if err := r.Entity.Validate(); err != nil {
		return err
	}
	if err := r.Direction.Validate(); err != nil {
		return err
	}
	if r.Version < 1 {
		return fmt.Errorf("%w: version must be >= 1", ErrInvalidRule)
	}
	if len(SplitPath(r.SourcePath)) == 0 {
		return fmt.Errorf("%w: source path is required", ErrInvalidRule)
	}
	if len(SplitPath(r.TargetPath)) == 0 {
		return fmt.Errorf("%w: target path is required", ErrInvalidRule)
	}
	return nil
}

// HasDefault reports whether the rule carries a fallback value.
func (r MappingRule) HasDefault() bool {
	return r.DefaultValue != nil
}

// Pair renders the rule as "source -> target" for diagnostics.
func (r MappingRule) Pair() string {
	return r.SourcePath + " -> " + r.TargetPath
}

// RuleSet is one resolved, direction-partitioned rule version. Values are
// never mutated after construction; the cache replaces whole entries.
type RuleSet struct {
	Entity     EntityType
	Version    int
	ToExternal []MappingRule
	ToInternal []MappingRule
	LoadedAt   time.Time
}

func (s *RuleSet) Rules(direction Direction) []MappingRule {
	if s == nil {
		return nil
	}
	switch direction {
	case DirectionToExternal:
		return s.ToExternal
	case DirectionToInternal:
		return s.ToInternal
	default:
		return nil
	}
}

func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ToExternal) + len(s.ToInternal)
}

// newRuleSet partitions rules by direction and orders each partition by
// source path, then target path, then id.
func newRuleSet(entity EntityType, version int, rules []MappingRule, loadedAt time.Time) *RuleSet {
	set := &RuleSet{
		Entity:   entity,
		Version:  version,
		LoadedAt: loadedAt,
	}
	for _, rule := range rules {
		rule = normalizeMappingRule(rule)
		switch rule.Direction {
		case DirectionToExternal:
			set.ToExternal = append(set.ToExternal, rule)
		case DirectionToInternal:
			set.ToInternal = append(set.ToInternal, rule)
		}
	}
	sortMappingRules(set.ToExternal)
	sortMappingRules(set.ToInternal)
	return set
}

func sortMappingRules(rules []MappingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		left := rules[i]
		right := rules[j]
		if left.SourcePath != right.SourcePath {
			return left.SourcePath < right.SourcePath
		}
		if left.TargetPath != right.TargetPath {
			return left.TargetPath < right.TargetPath
		}
		return left.ID < right.ID
	})
}

func normalizeMappingRule(rule MappingRule) MappingRule {
	rule.ID = strings.TrimSpace(rule.ID)
	rule.Entity = EntityType(strings.TrimSpace(strings.ToLower(string(rule.Entity))))
	if direction, err := ParseDirection(string(rule.Direction)); err == nil {
		rule.Direction = direction
	}
	rule.SourcePath = strings.TrimSpace(rule.SourcePath)
	rule.TargetPath = strings.TrimSpace(rule.TargetPath)
	rule.Transform = strings.TrimSpace(rule.Transform)
	return rule
}

// MapOptions selects the rule version and application mode of one call.
// Version 0 resolves the latest published version.
type MapOptions struct {
	Version int  `json:"version,omitempty"`
	Sparse  bool `json:"sparse,omitempty"`
}

func (o MapOptions) Validate() error {
	if o.Version < 0 {
		return fmt.Errorf("%w: version must be >= 0", ErrInvalidRule)
	}
	return nil
}

type MapRequest struct {
	Entity    EntityType     `json:"entity"`
	Direction Direction      `json:"direction"`
	Input     map[string]any `json:"input"`
	Options   MapOptions     `json:"options"`
}

func (r MapRequest) Validate() error {
	if err := r.Entity.Validate(); err != nil {
		return err
	}
	if err := r.Direction.Validate(); err != nil {
		return err
	}
	if r.Input == nil {
		return fmt.Errorf("core: map input record is required")
	}
	return r.Options.Validate()
}
