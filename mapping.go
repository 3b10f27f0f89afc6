package mapping

import "github.com/goliatone/go-mapping/core"

type Config = core.Config
type CacheConfig = core.CacheConfig
type EngineConfig = core.EngineConfig

type Option = core.Option

type Service = core.Service
type ServiceDependencies = core.ServiceDependencies

type EntityType = core.EntityType
type Direction = core.Direction
type MappingRule = core.MappingRule
type RuleSet = core.RuleSet
type MapOptions = core.MapOptions
type MapRequest = core.MapRequest

type RuleStore = core.RuleStore
type RulePublisher = core.RulePublisher
type RuleSetLoader = core.RuleSetLoader

const (
	EntityProduct = core.EntityProduct
	EntityContact = core.EntityContact
	EntityAccount = core.EntityAccount
	EntityVendor  = core.EntityVendor
	EntityDeal    = core.EntityDeal

	DirectionToExternal = core.DirectionToExternal
	DirectionToInternal = core.DirectionToInternal
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithRuleStore         = core.WithRuleStore
	WithRuleSetLoader     = core.WithRuleSetLoader
	WithClock             = core.WithClock

	IsConfigurationError    = core.IsConfigurationError
	IsRequiredFieldError    = core.IsRequiredFieldError
	IsUnknownTransformError = core.IsUnknownTransformError
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func NewMemoryRuleStore() *core.MemoryRuleStore {
	return core.NewMemoryRuleStore()
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
