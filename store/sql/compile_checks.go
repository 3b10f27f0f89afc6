package sqlstore

import "github.com/goliatone/go-mapping/core"

var (
	_ core.RuleStore            = (*RuleStore)(nil)
	_ core.RulePublisher        = (*RuleStore)(nil)
	_ core.RuleStore            = (*CachedRuleStore)(nil)
	_ core.RulePublisher        = (*CachedRuleStore)(nil)
	_ core.RuleStoreInvalidator = (*CachedRuleStore)(nil)
	_ core.RuleStoreFactory     = (*RepositoryFactory)(nil)
)
