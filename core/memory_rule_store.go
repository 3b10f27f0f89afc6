package core

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRuleStore keeps published rule versions in process. It serves tests
// and embedded setups that ship rules with the binary.
type MemoryRuleStore struct {
	mu       sync.RWMutex
	versions map[EntityType]map[int][]MappingRule
	nextID   int
}

func NewMemoryRuleStore() *MemoryRuleStore {
	return &MemoryRuleStore{versions: make(map[EntityType]map[int][]MappingRule)}
}

func (s *MemoryRuleStore) FindRules(_ context.Context, entity EntityType, version int) ([]MappingRule, error) {
	if s == nil {
		return nil, ErrRuleStoreRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.versions[entity][version]
	out := make([]MappingRule, len(rules))
	copy(out, rules)
	return out, nil
}

func (s *MemoryRuleStore) FindMaxVersion(_ context.Context, entity EntityType) (int, bool, error) {
	if s == nil {
		return 0, false, ErrRuleStoreRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxVersion := 0
	for version := range s.versions[entity] {
		if version > maxVersion {
			maxVersion = version
		}
	}
	return maxVersion, maxVersion > 0, nil
}

// PublishVersion validates rules and stores them as the next version of the
// entity. Published versions are never modified.
func (s *MemoryRuleStore) PublishVersion(_ context.Context, entity EntityType, rules []MappingRule) (int, error) {
	if s == nil {
		return 0, ErrRuleStoreRequired
	}
	if err := RuleIssuesError(ValidateRules(entity, rules)); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byVersion, ok := s.versions[entity]
	if !ok {
		byVersion = make(map[int][]MappingRule)
		s.versions[entity] = byVersion
	}
	next := 1
	for version := range byVersion {
		if version >= next {
			next = version + 1
		}
	}

	stored := make([]MappingRule, 0, len(rules))
	for _, rule := range rules {
		rule = normalizeMappingRule(rule)
		rule.Entity = entity
		rule.Version = next
		rule.DefaultValue = cloneValue(rule.DefaultValue)
		if rule.ID == "" {
			s.nextID++
			rule.ID = fmt.Sprintf("rule_%d", s.nextID)
		}
		stored = append(stored, rule)
	}
	byVersion[next] = stored
	return next, nil
}

var (
	_ RuleStore     = (*MemoryRuleStore)(nil)
	_ RulePublisher = (*MemoryRuleStore)(nil)
)
