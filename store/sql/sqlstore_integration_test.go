package sqlstore_test

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-mapping/core"
	sqlstore "github.com/goliatone/go-mapping/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"mapping_rules",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "mapping_rules" {
		t.Fatalf("expected mapping_rules table, got %q", tableName)
	}
}

func TestRuleStore_PublishFindAndMaxVersion(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RuleStore()
	if store == nil {
		t.Fatalf("expected rule store from factory")
	}

	if _, found, err := store.FindMaxVersion(ctx, core.EntityProduct); err != nil || found {
		t.Fatalf("expected no versions before publish, found=%v err=%v", found, err)
	}

	first, err := store.PublishVersion(ctx, core.EntityProduct, []core.MappingRule{
		{Direction: core.DirectionToExternal, SourcePath: "price", TargetPath: "Unit_Price", Transform: "toNumber"},
		{Direction: core.DirectionToExternal, SourcePath: "name", TargetPath: "Product_Name", IsRequired: true},
		{Direction: core.DirectionToExternal, SourcePath: "status", TargetPath: "Status", DefaultValue: "draft"},
		{Direction: "toInternal", SourcePath: "Product_Name", TargetPath: "name"},
	})
	if err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	second, err := store.PublishVersion(ctx, core.EntityProduct, []core.MappingRule{
		{Direction: core.DirectionToExternal, SourcePath: "name", TargetPath: "Title"},
	})
	if err != nil {
		t.Fatalf("publish v2: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected versions 1 and 2, got %d and %d", first, second)
	}

	maxVersion, found, err := store.FindMaxVersion(ctx, core.EntityProduct)
	if err != nil || !found || maxVersion != 2 {
		t.Fatalf("expected max version 2, got %d found=%v err=%v", maxVersion, found, err)
	}
	if _, found, _ := store.FindMaxVersion(ctx, core.EntityDeal); found {
		t.Fatalf("expected versions to be scoped per entity")
	}

	rules, err := store.FindRules(ctx, core.EntityProduct, 1)
	if err != nil {
		t.Fatalf("find rules: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected four v1 rules, got %d", len(rules))
	}
	var sources []string
	for _, rule := range rules {
		if rule.ID == "" || rule.Entity != core.EntityProduct || rule.Version != 1 {
			t.Fatalf("unexpected stored rule %#v", rule)
		}
		sources = append(sources, rule.SourcePath)
		switch rule.SourcePath {
		case "name":
			if !rule.IsRequired {
				t.Fatalf("expected required flag to round trip")
			}
		case "status":
			if rule.DefaultValue != "draft" {
				t.Fatalf("expected default value to round trip, got %#v", rule.DefaultValue)
			}
		case "price":
			if rule.Transform != "toNumber" || rule.DefaultValue != nil {
				t.Fatalf("unexpected price rule %#v", rule)
			}
		case "Product_Name":
			if rule.Direction != core.DirectionToInternal {
				t.Fatalf("expected direction alias to be normalized, got %q", rule.Direction)
			}
		}
	}
	if !reflect.DeepEqual(sources, []string{"Product_Name", "name", "price", "status"}) {
		t.Fatalf("expected rules ordered by source path, got %v", sources)
	}

	versions, err := store.Versions(ctx, core.EntityProduct)
	if err != nil || !reflect.DeepEqual(versions, []int{1, 2}) {
		t.Fatalf("expected versions [1 2], got %v err=%v", versions, err)
	}
	if rules, err := store.FindRules(ctx, core.EntityProduct, 9); err != nil || len(rules) != 0 {
		t.Fatalf("expected missing version to return no rules, got %d err=%v", len(rules), err)
	}
}

func TestRuleStore_PublishRejectsInvalidRules(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RuleStore()
	_, err = store.PublishVersion(ctx, core.EntityContact, []core.MappingRule{
		{Direction: core.DirectionToExternal, SourcePath: "email", TargetPath: "Email"},
		{Direction: core.DirectionToExternal, SourcePath: "email", TargetPath: "Email"},
	})
	if err == nil {
		t.Fatalf("expected duplicate pair to be rejected")
	}
	if _, found, _ := store.FindMaxVersion(ctx, core.EntityContact); found {
		t.Fatalf("expected rejected publish to store nothing")
	}
}

func TestRuleStore_ConcurrentPublishAssignsDistinctVersions(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RuleStore()

	const publishers = 4
	var wg sync.WaitGroup
	versions := make([]int, publishers)
	errs := make([]error, publishers)
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			versions[i], errs[i] = store.PublishVersion(ctx, core.EntityVendor, []core.MappingRule{
				{Direction: core.DirectionToExternal, SourcePath: "email", TargetPath: fmt.Sprintf("Email_%d", i)},
			})
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for i := 0; i < publishers; i++ {
		if errs[i] != nil {
			continue
		}
		if seen[versions[i]] {
			t.Fatalf("version %d was assigned twice", versions[i])
		}
		seen[versions[i]] = true
	}
	if len(seen) == 0 {
		t.Fatalf("expected at least one publish to succeed, errors=%v", errs)
	}
}

func TestService_MapsWithSQLRuleStore(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	svc, err := core.NewService(core.DefaultConfig(),
		core.WithPersistenceClient(client),
		core.WithRepositoryFactory(sqlstore.NewRepositoryFactory()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.PublishRules(ctx, core.EntityProduct, []core.MappingRule{
		{Direction: core.DirectionToExternal, SourcePath: "name", TargetPath: "Product_Name", IsRequired: true},
		{Direction: core.DirectionToExternal, SourcePath: "price", TargetPath: "Unit_Price", Transform: "toNumber"},
		{Direction: core.DirectionToExternal, SourcePath: "status", TargetPath: "Status", DefaultValue: "draft"},
	}); err != nil {
		t.Fatalf("publish rules: %v", err)
	}

	output, err := svc.Map(ctx, core.EntityProduct, core.DirectionToExternal, map[string]any{
		"name":  "Widget",
		"price": "9.5",
	}, core.MapOptions{})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := map[string]any{"Product_Name": "Widget", "Unit_Price": 9.5, "Status": "draft"}
	if !reflect.DeepEqual(output, want) {
		t.Fatalf("expected %#v, got %#v", want, output)
	}

	_, err = svc.Map(ctx, core.EntityProduct, core.DirectionToExternal, map[string]any{"price": 1}, core.MapOptions{})
	if !core.IsRequiredFieldError(err) {
		t.Fatalf("expected required field error, got %v", err)
	}
}

func TestOpen_RejectsUnknownDriverAndEmptyDSN(t *testing.T) {
	if _, err := sqlstore.Open(sqlstore.ClientConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(sqlstore.ClientConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:mapping-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.OpenAndMigrate(context.Background(), sqlstore.ClientConfig{
		Driver: "sqlite",
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}
