package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const latestRuleCacheKey = "latest"

type RuleCacheOption func(*RuleCache)

func WithRuleCacheClock(now func() time.Time) RuleCacheOption {
	return func(c *RuleCache) {
		if c == nil || now == nil {
			return
		}
		c.now = now
	}
}

// WithRuleCacheDisabled makes every Load read the rule store.
func WithRuleCacheDisabled(disabled bool) RuleCacheOption {
	return func(c *RuleCache) {
		if c == nil {
			return
		}
		c.disabled = disabled
	}
}

type ruleCacheKey struct {
	entity  EntityType
	version string
}

func (k ruleCacheKey) String() string {
	return string(k.entity) + "@" + k.version
}

func newRuleCacheKey(entity EntityType, version int) ruleCacheKey {
	if version <= 0 {
		return ruleCacheKey{entity: entity, version: latestRuleCacheKey}
	}
	return ruleCacheKey{entity: entity, version: strconv.Itoa(version)}
}

// RuleCache resolves rule versions and keeps loaded rule sets until they are
// invalidated. Entries are immutable; only whole entries are replaced.
type RuleCache struct {
	store    RuleStore
	now      func() time.Time
	disabled bool

	mu          sync.RWMutex
	entries     map[ruleCacheKey]*RuleSet
	generations map[EntityType]uint64
	loads       singleflight.Group
}

func NewRuleCache(store RuleStore, opts ...RuleCacheOption) (*RuleCache, error) {
	if store == nil {
		return nil, ErrRuleStoreRequired
	}
	cache := &RuleCache{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		entries:     make(map[ruleCacheKey]*RuleSet),
		generations: make(map[EntityType]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cache)
		}
	}
	return cache, nil
}

// LatestVersion asks the rule store for the highest published version.
func (c *RuleCache) LatestVersion(ctx context.Context, entity EntityType) (int, error) {
	if c == nil || c.store == nil {
		return 0, configurationError("rule store is not configured", ruleLocation{entity: entity}, ErrRuleStoreRequired)
	}
	version, found, err := c.store.FindMaxVersion(ctx, entity)
	if err != nil {
		return 0, configurationError("rule store lookup failed", ruleLocation{entity: entity}, err)
	}
	if !found || version < 1 {
		return 0, configurationError("no rule versions published", ruleLocation{entity: entity}, ErrRulesNotFound)
	}
	return version, nil
}

// Load returns the rule set for an explicit version, or for the latest
// version when version is 0. Concurrent misses for one key share a single
// rule store read.
func (c *RuleCache) Load(ctx context.Context, entity EntityType, version int) (*RuleSet, error) {
	if c == nil || c.store == nil {
		return nil, configurationError("rule store is not configured", ruleLocation{entity: entity}, ErrRuleStoreRequired)
	}
	if version < 0 {
		return nil, badInputError(fmt.Errorf("%w: version must be >= 0", ErrInvalidRule))
	}
	key := newRuleCacheKey(entity, version)
	if c.disabled {
		return c.fetch(ctx, entity, version)
	}

	c.mu.RLock()
	entry, hit := c.entries[key]
	generation := c.generations[entity]
	c.mu.RUnlock()
	if hit {
		return entry, nil
	}

	flightKey := key.String() + "#" + strconv.FormatUint(generation, 10)
	result, err, _ := c.loads.Do(flightKey, func() (any, error) {
		loaded, fetchErr := c.fetch(ctx, entity, version)
		if fetchErr != nil {
			return nil, fetchErr
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		// An invalidation that ran while the store was read wins.
		if c.generations[entity] == generation {
			c.entries[key] = loaded
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*RuleSet), nil
}

// Invalidate drops cached rule sets. An explicit version drops that version
// and the latest pointer; version 0 drops every entry of the entity.
func (c *RuleCache) Invalidate(ctx context.Context, entity EntityType, version int) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.generations[entity]++
	if version > 0 {
		delete(c.entries, newRuleCacheKey(entity, version))
		delete(c.entries, newRuleCacheKey(entity, 0))
	} else {
		for key := range c.entries {
			if key.entity == entity {
				delete(c.entries, key)
			}
		}
	}
	c.mu.Unlock()

	if invalidator, ok := c.store.(RuleStoreInvalidator); ok {
		if err := invalidator.InvalidateRules(ctx, entity, version); err != nil {
			return configurationError("rule store invalidation failed", ruleLocation{entity: entity, version: version}, err)
		}
	}
	return nil
}

func (c *RuleCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys lists cached keys as "<entity>@<version|latest>", sorted.
func (c *RuleCache) Keys() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key.String())
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (c *RuleCache) fetch(ctx context.Context, entity EntityType, version int) (*RuleSet, error) {
	resolved := version
	if resolved <= 0 {
		latest, err := c.LatestVersion(ctx, entity)
		if err != nil {
			return nil, err
		}
		resolved = latest
	}
	rules, err := c.store.FindRules(ctx, entity, resolved)
	if err != nil {
		return nil, configurationError("rule store lookup failed", ruleLocation{entity: entity, version: resolved}, err)
	}
	if len(rules) == 0 {
		return nil, configurationError("no rules found", ruleLocation{entity: entity, version: resolved}, ErrRulesNotFound)
	}
	return newRuleSet(entity, resolved, rules, c.now()), nil
}
