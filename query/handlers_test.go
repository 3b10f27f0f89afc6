package query

import (
	"context"
	"reflect"
	"testing"

	"github.com/goliatone/go-mapping/core"
)

func newPublishedService(t *testing.T) *core.Service {
	t.Helper()
	svc, err := core.NewService(core.DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.PublishRules(context.Background(), core.EntityProduct, []core.MappingRule{
		{Direction: core.DirectionToExternal, SourcePath: "name", TargetPath: "Product_Name", IsRequired: true},
		{Direction: core.DirectionToExternal, SourcePath: "price", TargetPath: "Unit_Price", Transform: "toNumber"},
		{Direction: core.DirectionToInternal, SourcePath: "Product_Name", TargetPath: "name"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return svc
}

func TestMapRecordQuery_DelegatesToService(t *testing.T) {
	svc := newPublishedService(t)
	msg := MapRecordMessage{Request: core.MapRequest{
		Entity:    core.EntityProduct,
		Direction: core.DirectionToExternal,
		Input:     map[string]any{"name": "Lamp", "price": "12"},
	}}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	output, err := NewMapRecordQuery(svc).Query(context.Background(), msg)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !reflect.DeepEqual(output, map[string]any{"Product_Name": "Lamp", "Unit_Price": 12.0}) {
		t.Fatalf("unexpected output %#v", output)
	}
}

func TestMapRecordsQuery_MapsBatchInOrder(t *testing.T) {
	svc := newPublishedService(t)
	msg := MapRecordsMessage{
		Entity:    core.EntityProduct,
		Direction: core.DirectionToInternal,
		Inputs: []map[string]any{
			{"Product_Name": "A"},
			{"Product_Name": "B"},
		},
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	outputs, err := NewMapRecordsQuery(svc).Query(context.Background(), msg)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(outputs) != 2 || outputs[0]["name"] != "A" || outputs[1]["name"] != "B" {
		t.Fatalf("unexpected outputs %#v", outputs)
	}
}

func TestRuleQueries_ReadLatestAndRuleSet(t *testing.T) {
	svc := newPublishedService(t)
	version, err := NewLatestVersionQuery(svc).Query(context.Background(), LatestVersionMessage{Entity: core.EntityProduct})
	if err != nil || version != 1 {
		t.Fatalf("expected latest version 1, got %d err=%v", version, err)
	}
	set, err := NewRuleSetQuery(svc).Query(context.Background(), RuleSetMessage{Entity: core.EntityProduct})
	if err != nil {
		t.Fatalf("rule set: %v", err)
	}
	if len(set.ToExternal) != 2 || len(set.ToInternal) != 1 {
		t.Fatalf("unexpected partition %d/%d", len(set.ToExternal), len(set.ToInternal))
	}
	if _, err := NewLatestVersionQuery(svc).Query(context.Background(), LatestVersionMessage{Entity: core.EntityDeal}); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for entity without rules, got %v", err)
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (RuleSetMessage{Entity: core.EntityProduct, Version: -1}).Validate(); err == nil {
		t.Fatalf("expected negative version to be rejected")
	}
	if err := (MapRecordsMessage{Entity: core.EntityProduct, Direction: "both"}).Validate(); err == nil {
		t.Fatalf("expected unknown direction to be rejected")
	}
	if err := (LatestVersionMessage{Entity: "widget"}).Validate(); err == nil {
		t.Fatalf("expected unknown entity to be rejected")
	}
}
