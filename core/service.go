package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	ruleStore         RuleStore
	ruleLoader        RuleSetLoader
	engine            *Engine
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	RuleStore         RuleStore
	RuleSetLoader     RuleSetLoader
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("mapping", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("mapping"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.ruleStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RuleStoreFactory); ok {
			store, buildErr := storeFactory.BuildRuleStore(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			builder.ruleStore = store
		} else if store, ok := builder.repositoryFactory.(RuleStore); ok {
			builder.ruleStore = store
		}
	}
	if builder.ruleStore == nil {
		builder.ruleStore = NewMemoryRuleStore()
	}

	if builder.ruleLoader == nil {
		cache, cacheErr := NewRuleCache(
			builder.ruleStore,
			WithRuleCacheClock(builder.now),
			WithRuleCacheDisabled(finalConfig.Cache.Disabled),
		)
		if cacheErr != nil {
			return nil, mapBuildError(builder.errorMapper, cacheErr)
		}
		builder.ruleLoader = cache
	}

	engine, err := NewEngine(builder.ruleLoader, WithEngineMaxBatchSize(finalConfig.maxBatchSize()))
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		ruleStore:         builder.ruleStore,
		ruleLoader:        builder.ruleLoader,
		engine:            engine,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		RuleStore:         s.ruleStore,
		RuleSetLoader:     s.ruleLoader,
	}
}

func (s *Service) Map(
	ctx context.Context,
	entity EntityType,
	direction Direction,
	input map[string]any,
	opts MapOptions,
) (output map[string]any, err error) {
	if s == nil || s.engine == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	fields := map[string]any{
		"entity":    string(entity),
		"direction": string(direction),
		"version":   opts.Version,
		"sparse":    opts.Sparse,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "map", err, fields)
	}()

	output, err = s.engine.Map(ctx, entity, direction, input, opts)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return output, nil
}

// MapRecord is Map over a request value, as used by the query handlers.
func (s *Service) MapRecord(ctx context.Context, req MapRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, s.mapError(badInputError(err))
	}
	return s.Map(ctx, req.Entity, req.Direction, req.Input, req.Options)
}

func (s *Service) MapMany(
	ctx context.Context,
	entity EntityType,
	direction Direction,
	inputs []map[string]any,
	opts MapOptions,
) (outputs []map[string]any, err error) {
	if s == nil || s.engine == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	fields := map[string]any{
		"entity":    string(entity),
		"direction": string(direction),
		"version":   opts.Version,
		"sparse":    opts.Sparse,
		"records":   len(inputs),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "map_many", err, fields)
	}()

	outputs, err = s.engine.MapMany(ctx, entity, direction, inputs, opts)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return outputs, nil
}

func (s *Service) GetLatestVersion(ctx context.Context, entity EntityType) (version int, err error) {
	if s == nil || s.engine == nil {
		return 0, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	fields := map[string]any{"entity": string(entity)}
	defer func() {
		fields["version"] = version
		s.observeOperation(ctx, startedAt, "latest_version", err, fields)
	}()

	version, err = s.engine.GetLatestVersion(ctx, entity)
	if err != nil {
		err = s.mapError(err)
		return 0, err
	}
	return version, nil
}

// Invalidate drops cached rules for entity; version 0 drops every cached
// version, including the latest pointer.
func (s *Service) Invalidate(ctx context.Context, entity EntityType, version int) (err error) {
	if s == nil || s.engine == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	fields := map[string]any{
		"entity":  string(entity),
		"version": version,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "invalidate", err, fields)
	}()

	if err = s.engine.Invalidate(ctx, entity, version); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) RuleSet(ctx context.Context, entity EntityType, version int) (set *RuleSet, err error) {
	if s == nil || s.engine == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	fields := map[string]any{
		"entity":  string(entity),
		"version": version,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "rule_set", err, fields)
	}()

	set, err = s.engine.Rules(ctx, entity, version)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return set, nil
}

// PublishRules stores rules as the next version of entity when the rule
// store accepts writes, then drops the cached latest pointer.
func (s *Service) PublishRules(ctx context.Context, entity EntityType, rules []MappingRule) (version int, err error) {
	if s == nil || s.engine == nil {
		return 0, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	fields := map[string]any{
		"entity": string(entity),
		"rules":  len(rules),
	}
	defer func() {
		fields["version"] = version
		s.observeOperation(ctx, startedAt, "publish_rules", err, fields)
	}()

	publisher, ok := s.ruleStore.(RulePublisher)
	if !ok {
		err = s.mapError(configurationError("rule store does not accept rule versions", ruleLocation{entity: entity}, nil))
		return 0, err
	}
	if err = entity.Validate(); err != nil {
		err = s.mapError(badInputError(err))
		return 0, err
	}
	version, err = publisher.PublishVersion(ctx, entity, rules)
	if err != nil {
		err = s.mapError(err)
		return 0, err
	}
	if err = s.engine.Invalidate(ctx, entity, 0); err != nil {
		err = s.mapError(err)
		return version, err
	}
	return version, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
