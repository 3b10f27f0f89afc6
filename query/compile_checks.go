package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-mapping/core"
)

var (
	_ gocmd.Querier[MapRecordMessage, map[string]any]    = (*MapRecordQuery)(nil)
	_ gocmd.Querier[MapRecordsMessage, []map[string]any] = (*MapRecordsQuery)(nil)
	_ gocmd.Querier[LatestVersionMessage, int]           = (*LatestVersionQuery)(nil)
	_ gocmd.Querier[RuleSetMessage, *core.RuleSet]       = (*RuleSetQuery)(nil)
	_ RecordMapper                                       = (*core.Service)(nil)
	_ RuleReader                                         = (*core.Service)(nil)
)
