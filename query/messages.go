package query

import (
	"strings"

	"github.com/goliatone/go-mapping/core"
)

const (
	TypeMapRecord     = "mapping.query.record.map"
	TypeMapRecords    = "mapping.query.records.map"
	TypeLatestVersion = "mapping.query.rules.latest_version"
	TypeRuleSet       = "mapping.query.rules.get"
)

type MapRecordMessage struct {
	Request core.MapRequest
}

func (MapRecordMessage) Type() string { return TypeMapRecord }

func (m MapRecordMessage) Validate() error {
	if err := validateEntity(m.Request.Entity); err != nil {
		return err
	}
	if m.Request.Input == nil {
		return queryValidationError("input", "input record is required")
	}
	if err := m.Request.Validate(); err != nil {
		return queryWrapValidation(err, "query: map request is invalid")
	}
	return nil
}

type MapRecordsMessage struct {
	Entity    core.EntityType
	Direction core.Direction
	Inputs    []map[string]any
	Options   core.MapOptions
}

func (MapRecordsMessage) Type() string { return TypeMapRecords }

func (m MapRecordsMessage) Validate() error {
	if err := validateEntity(m.Entity); err != nil {
		return err
	}
	if err := m.Direction.Validate(); err != nil {
		return queryWrapValidation(err, "query: direction is invalid")
	}
	if err := m.Options.Validate(); err != nil {
		return queryWrapValidation(err, "query: map options are invalid")
	}
	return nil
}

type LatestVersionMessage struct {
	Entity core.EntityType
}

func (LatestVersionMessage) Type() string { return TypeLatestVersion }

func (m LatestVersionMessage) Validate() error {
	return validateEntity(m.Entity)
}

// RuleSetMessage reads one rule version; Version 0 selects the latest.
type RuleSetMessage struct {
	Entity  core.EntityType
	Version int
}

func (RuleSetMessage) Type() string { return TypeRuleSet }

func (m RuleSetMessage) Validate() error {
	if err := validateEntity(m.Entity); err != nil {
		return err
	}
	if m.Version < 0 {
		return queryValidationError("version", "version must be >= 0")
	}
	return nil
}

func validateEntity(entity core.EntityType) error {
	if strings.TrimSpace(string(entity)) == "" {
		return queryValidationError("entity", "entity is required")
	}
	if err := entity.Validate(); err != nil {
		return queryWrapValidation(err, "query: entity is invalid")
	}
	return nil
}
