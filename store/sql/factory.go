package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-mapping/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the SQL rule store from a persistence client. When
// a cache service is configured the store is wrapped in a CachedRuleStore.
type RepositoryFactory struct {
	db    *bun.DB
	cache repositorycache.CacheService

	ruleStore       *RuleStore
	cachedRuleStore *CachedRuleStore
}

type FactoryOption func(*RepositoryFactory)

func WithCacheService(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildRuleStore(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildRuleStore(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildRuleStore(persistenceClient any) (core.RuleStore, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.ruleStore == nil {
		store, err := NewRuleStore(f.db)
		if err != nil {
			return nil, err
		}
		f.ruleStore = store
	}
	if f.cache == nil {
		return f.ruleStore, nil
	}
	if f.cachedRuleStore == nil {
		cached, err := NewCachedRuleStore(f.ruleStore, f.cache)
		if err != nil {
			return nil, err
		}
		f.cachedRuleStore = cached
	}
	return f.cachedRuleStore, nil
}

func (f *RepositoryFactory) RuleStore() *RuleStore {
	if f == nil {
		return nil
	}
	return f.ruleStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
