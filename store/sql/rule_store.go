package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-mapping/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RuleStore reads and publishes mapping rule versions in the mapping_rules
// table. Published rows are never updated.
type RuleStore struct {
	db   *bun.DB
	repo repository.Repository[*mappingRuleRecord]
	now  func() time.Time
}

func NewRuleStore(db *bun.DB) (*RuleStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*mappingRuleRecord](db, mappingRuleHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid mapping rule repository wiring: %w", err)
		}
	}
	return &RuleStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *RuleStore) FindRules(ctx context.Context, entity core.EntityType, version int) ([]core.MappingRule, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: rule store is not configured")
	}
	if version < 1 {
		return nil, fmt.Errorf("sqlstore: rule version must be >= 1")
	}

	var records []*mappingRuleRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.entity_type = ?", string(entity)).
		Where("?TableAlias.version = ?", version).
		OrderExpr("?TableAlias.source_path ASC, ?TableAlias.target_path ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	rules := make([]core.MappingRule, 0, len(records))
	for _, record := range records {
		rule, convErr := record.toDomain()
		if convErr != nil {
			return nil, convErr
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *RuleStore) FindMaxVersion(ctx context.Context, entity core.EntityType) (int, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, fmt.Errorf("sqlstore: rule store is not configured")
	}
	maxVersion, err := maxRuleVersion(ctx, s.db, entity)
	if err != nil {
		return 0, false, err
	}
	return maxVersion, maxVersion > 0, nil
}

// PublishVersion validates rules and inserts them as the next version of the
// entity inside one transaction. A concurrent publisher that claims the same
// version fails on the unique index and the whole batch rolls back.
func (s *RuleStore) PublishVersion(ctx context.Context, entity core.EntityType, rules []core.MappingRule) (int, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return 0, fmt.Errorf("sqlstore: rule store is not configured")
	}
	if err := core.RuleIssuesError(core.ValidateRules(entity, rules)); err != nil {
		return 0, err
	}
	now := s.now()

	var published int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		maxVersion, err := maxRuleVersion(ctx, tx, entity)
		if err != nil {
			return err
		}
		next := maxVersion + 1
		for _, rule := range rules {
			if direction, parseErr := core.ParseDirection(string(rule.Direction)); parseErr == nil {
				rule.Direction = direction
			}
			record, recordErr := newMappingRuleRecord(entity, next, rule, now)
			if recordErr != nil {
				return recordErr
			}
			if record.ID == "" {
				record.ID = uuid.NewString()
			}
			if _, createErr := s.repo.CreateTx(ctx, tx, record); createErr != nil {
				if isUniqueViolation(createErr) {
					return fmt.Errorf("sqlstore: %s version %d was published concurrently: %w", entity, next, createErr)
				}
				return createErr
			}
		}
		published = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// Versions lists the published versions of an entity in ascending order.
func (s *RuleStore) Versions(ctx context.Context, entity core.EntityType) ([]int, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: rule store is not configured")
	}
	var versions []int
	err := s.db.NewSelect().
		Model((*mappingRuleRecord)(nil)).
		ColumnExpr("DISTINCT ?TableAlias.version").
		Where("?TableAlias.entity_type = ?", string(entity)).
		OrderExpr("?TableAlias.version ASC").
		Scan(ctx, &versions)
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func maxRuleVersion(ctx context.Context, db bun.IDB, entity core.EntityType) (int, error) {
	var maxVersion int
	if err := db.NewSelect().
		Model((*mappingRuleRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.entity_type = ?", string(entity)).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
