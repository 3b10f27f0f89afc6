package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-mapping/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const (
	rulesCacheKeyPrefix      = "go-mapping::rules::v1"
	maxVersionCacheKeyPrefix = "go-mapping::max_version::v1"
)

// CachedRuleStore puts a shared go-repository-cache service in front of a
// rule store so several engine processes can share reads.
type CachedRuleStore struct {
	base  core.RuleStore
	cache repositorycache.CacheService
}

type maxVersionEntry struct {
	Version int
	Found   bool
}

func NewCachedRuleStore(base core.RuleStore, cacheService repositorycache.CacheService) (*CachedRuleStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base rule store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: rule cache service is required")
	}
	return &CachedRuleStore{base: base, cache: cacheService}, nil
}

// RulesCacheKey returns go-mapping::rules::v1::<entity>::<version>.
func RulesCacheKey(entity core.EntityType, version int) string {
	return strings.Join([]string{
		rulesCacheKeyPrefix,
		url.PathEscape(string(entity)),
		strconv.Itoa(version),
	}, "::")
}

// MaxVersionCacheKey returns go-mapping::max_version::v1::<entity>.
func MaxVersionCacheKey(entity core.EntityType) string {
	return maxVersionCacheKeyPrefix + "::" + url.PathEscape(string(entity))
}

func (s *CachedRuleStore) FindRules(ctx context.Context, entity core.EntityType, version int) ([]core.MappingRule, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached rule store is not configured")
	}
	rules, err := repositorycache.GetOrFetch(ctx, s.cache, RulesCacheKey(entity, version), func(ctx context.Context) ([]core.MappingRule, error) {
		fetched, fetchErr := s.base.FindRules(ctx, entity, version)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneRules(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneRules(rules), nil
}

func (s *CachedRuleStore) FindMaxVersion(ctx context.Context, entity core.EntityType) (int, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, false, fmt.Errorf("sqlstore: cached rule store is not configured")
	}
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, MaxVersionCacheKey(entity), func(ctx context.Context) (maxVersionEntry, error) {
		version, found, fetchErr := s.base.FindMaxVersion(ctx, entity)
		if fetchErr != nil {
			return maxVersionEntry{}, fetchErr
		}
		return maxVersionEntry{Version: version, Found: found}, nil
	})
	if err != nil {
		return 0, false, err
	}
	return entry.Version, entry.Found, nil
}

// PublishVersion forwards to the base store and drops the cached max version
// so the next latest lookup sees the new version.
func (s *CachedRuleStore) PublishVersion(ctx context.Context, entity core.EntityType, rules []core.MappingRule) (int, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached rule store is not configured")
	}
	publisher, ok := s.base.(core.RulePublisher)
	if !ok {
		return 0, fmt.Errorf("sqlstore: base rule store %T cannot publish", s.base)
	}
	version, err := publisher.PublishVersion(ctx, entity, rules)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Delete(ctx, MaxVersionCacheKey(entity)); err != nil {
		return version, err
	}
	return version, nil
}

// InvalidateRules drops the cached max version and, for version > 0, that
// version's rules. Version 0 drops every version the base store knows.
func (s *CachedRuleStore) InvalidateRules(ctx context.Context, entity core.EntityType, version int) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached rule store is not configured")
	}
	if err := s.cache.Delete(ctx, MaxVersionCacheKey(entity)); err != nil {
		return err
	}
	if version > 0 {
		return s.cache.Delete(ctx, RulesCacheKey(entity, version))
	}
	maxVersion, _, err := s.base.FindMaxVersion(ctx, entity)
	if err != nil {
		return err
	}
	for v := 1; v <= maxVersion; v++ {
		if err := s.cache.Delete(ctx, RulesCacheKey(entity, v)); err != nil {
			return err
		}
	}
	return nil
}

func cloneRules(rules []core.MappingRule) []core.MappingRule {
	if rules == nil {
		return nil
	}
	out := make([]core.MappingRule, len(rules))
	copy(out, rules)
	return out
}
