package mapping

import (
	"fmt"

	mappingcommand "github.com/goliatone/go-mapping/command"
	mappingquery "github.com/goliatone/go-mapping/query"
)

type CommandQueryService interface {
	mappingcommand.RuleInvalidator
	mappingcommand.RulePublisher
	mappingquery.RecordMapper
	mappingquery.RuleReader
}

type Commands struct {
	InvalidateRules *mappingcommand.InvalidateRulesCommand
	PublishRules    *mappingcommand.PublishRulesCommand
}

type Queries struct {
	MapRecord     *mappingquery.MapRecordQuery
	MapRecords    *mappingquery.MapRecordsQuery
	LatestVersion *mappingquery.LatestVersionQuery
	RuleSet       *mappingquery.RuleSetQuery
}

// Facade bundles the go-command handlers for one mapping service.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("mapping: command/query service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			InvalidateRules: mappingcommand.NewInvalidateRulesCommand(service),
			PublishRules:    mappingcommand.NewPublishRulesCommand(service),
		},
		queries: Queries{
			MapRecord:     mappingquery.NewMapRecordQuery(service),
			MapRecords:    mappingquery.NewMapRecordsQuery(service),
			LatestVersion: mappingquery.NewLatestVersionQuery(service),
			RuleSet:       mappingquery.NewRuleSetQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
