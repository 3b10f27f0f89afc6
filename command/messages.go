package command

import (
	"strings"

	"github.com/goliatone/go-mapping/core"
)

const (
	TypeInvalidateRules = "mapping.command.rules.invalidate"
	TypePublishRules    = "mapping.command.rules.publish"
)

// InvalidateRulesMessage drops cached rule versions. Version 0 drops every
// version of the entity.
type InvalidateRulesMessage struct {
	Entity  core.EntityType
	Version int
}

func (InvalidateRulesMessage) Type() string { return TypeInvalidateRules }

func (m InvalidateRulesMessage) Validate() error {
	if err := validateEntity(m.Entity); err != nil {
		return err
	}
	if m.Version < 0 {
		return commandValidationError("version", "version must be >= 0")
	}
	return nil
}

// PublishRulesMessage stores Rules as the next version of Entity.
type PublishRulesMessage struct {
	Entity core.EntityType
	Rules  []core.MappingRule
}

func (PublishRulesMessage) Type() string { return TypePublishRules }

func (m PublishRulesMessage) Validate() error {
	if err := validateEntity(m.Entity); err != nil {
		return err
	}
	if len(m.Rules) == 0 {
		return commandValidationError("rules", "at least one rule is required")
	}
	if err := core.RuleIssuesError(core.ValidateRules(m.Entity, m.Rules)); err != nil {
		return commandWrapValidation(err, "command: rule version is invalid")
	}
	return nil
}

func validateEntity(entity core.EntityType) error {
	if strings.TrimSpace(string(entity)) == "" {
		return commandValidationError("entity", "entity is required")
	}
	if err := entity.Validate(); err != nil {
		return commandWrapValidation(err, "command: entity is invalid")
	}
	return nil
}
