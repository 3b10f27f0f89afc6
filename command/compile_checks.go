package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-mapping/core"
)

var (
	_ gocmd.Commander[InvalidateRulesMessage] = (*InvalidateRulesCommand)(nil)
	_ gocmd.Commander[PublishRulesMessage]    = (*PublishRulesCommand)(nil)
	_ RuleInvalidator                         = (*core.Service)(nil)
	_ RulePublisher                           = (*core.Service)(nil)
)
