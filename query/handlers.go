package query

import (
	"context"

	"github.com/goliatone/go-mapping/core"
)

type RecordMapper interface {
	MapRecord(ctx context.Context, req core.MapRequest) (map[string]any, error)
	MapMany(
		ctx context.Context,
		entity core.EntityType,
		direction core.Direction,
		inputs []map[string]any,
		opts core.MapOptions,
	) ([]map[string]any, error)
}

type RuleReader interface {
	GetLatestVersion(ctx context.Context, entity core.EntityType) (int, error)
	RuleSet(ctx context.Context, entity core.EntityType, version int) (*core.RuleSet, error)
}

type MapRecordQuery struct {
	mapper RecordMapper
}

func NewMapRecordQuery(mapper RecordMapper) *MapRecordQuery {
	return &MapRecordQuery{mapper: mapper}
}

func (q *MapRecordQuery) Query(ctx context.Context, msg MapRecordMessage) (map[string]any, error) {
	if q == nil || q.mapper == nil {
		return nil, queryDependencyError("query: record mapper is required")
	}
	return q.mapper.MapRecord(ctx, msg.Request)
}

type MapRecordsQuery struct {
	mapper RecordMapper
}

func NewMapRecordsQuery(mapper RecordMapper) *MapRecordsQuery {
	return &MapRecordsQuery{mapper: mapper}
}

func (q *MapRecordsQuery) Query(ctx context.Context, msg MapRecordsMessage) ([]map[string]any, error) {
	if q == nil || q.mapper == nil {
		return nil, queryDependencyError("query: record mapper is required")
	}
	return q.mapper.MapMany(ctx, msg.Entity, msg.Direction, msg.Inputs, msg.Options)
}

type LatestVersionQuery struct {
	reader RuleReader
}

func NewLatestVersionQuery(reader RuleReader) *LatestVersionQuery {
	return &LatestVersionQuery{reader: reader}
}

func (q *LatestVersionQuery) Query(ctx context.Context, msg LatestVersionMessage) (int, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: rule reader is required")
	}
	return q.reader.GetLatestVersion(ctx, msg.Entity)
}

type RuleSetQuery struct {
	reader RuleReader
}

func NewRuleSetQuery(reader RuleReader) *RuleSetQuery {
	return &RuleSetQuery{reader: reader}
}

func (q *RuleSetQuery) Query(ctx context.Context, msg RuleSetMessage) (*core.RuleSet, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: rule reader is required")
	}
	return q.reader.RuleSet(ctx, msg.Entity, msg.Version)
}
