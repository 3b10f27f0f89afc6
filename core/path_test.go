package core

import (
	"reflect"
	"testing"
)

func TestSplitPath_NormalizesSegments(t *testing.T) {
	want := []string{"a", "b"}
	for _, path := range []string{"a.b", " a . b ", "a..b", ".a.b.", "  a.  .b"} {
		if got := SplitPath(path); !reflect.DeepEqual(got, want) {
			t.Fatalf("split %q: expected %v, got %v", path, want, got)
		}
	}
	if got := SplitPath(" . . "); len(got) != 0 {
		t.Fatalf("expected no segments for blank path, got %v", got)
	}
}

func TestGetPath_DistinguishesAbsentFromNull(t *testing.T) {
	record := map[string]any{
		"name":      "Keyboard",
		"nothing":   nil,
		"inventory": map[string]any{"qty": 3.0},
		"tags":      []any{"a", map[string]any{"code": "b"}},
	}

	tests := []struct {
		path      string
		wantValue any
		wantFound bool
	}{
		{path: "name", wantValue: "Keyboard", wantFound: true},
		{path: "nothing", wantValue: nil, wantFound: true},
		{path: "inventory.qty", wantValue: 3.0, wantFound: true},
		{path: " inventory . qty ", wantValue: 3.0, wantFound: true},
		{path: "tags.1.code", wantValue: "b", wantFound: true},
		{path: "missing", wantFound: false},
		{path: "missing.deeper.still", wantFound: false},
		{path: "name.length", wantFound: false},
		{path: "nothing.child", wantFound: false},
		{path: "tags.2", wantFound: false},
		{path: "tags.-1", wantFound: false},
		{path: "tags.01", wantFound: false},
		{path: "", wantFound: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			value, found := GetPath(record, tt.path)
			if found != tt.wantFound {
				t.Fatalf("expected found=%v, got %v", tt.wantFound, found)
			}
			if !reflect.DeepEqual(value, tt.wantValue) {
				t.Fatalf("expected %#v, got %#v", tt.wantValue, value)
			}
		})
	}

	if _, found := GetPath(nil, "name"); found {
		t.Fatalf("expected nil record to yield absent")
	}
}

func TestHasOwnPath_CountsExplicitNull(t *testing.T) {
	record := map[string]any{
		"name":      nil,
		"inventory": map[string]any{"qty": nil},
		"label":     "x",
		"items":     []any{nil},
	}

	if !HasOwnPath(record, "name") {
		t.Fatalf("expected explicit null key to be owned")
	}
	if !HasOwnPath(record, "inventory.qty") {
		t.Fatalf("expected nested explicit null key to be owned")
	}
	if !HasOwnPath(record, "items.0") {
		t.Fatalf("expected in-range array index to be owned")
	}
	if HasOwnPath(record, "price") {
		t.Fatalf("expected missing key to not be owned")
	}
	if HasOwnPath(record, "inventory.sku") {
		t.Fatalf("expected missing nested key to not be owned")
	}
	if HasOwnPath(record, "label.length") {
		t.Fatalf("expected key under a scalar to not be owned")
	}
	if HasOwnPath(record, "name.child") {
		t.Fatalf("expected key under null to not be owned")
	}
	if HasOwnPath(record, "") {
		t.Fatalf("expected empty path to not be owned")
	}
}

func TestSetPath_CreatesAndReplacesIntermediates(t *testing.T) {
	output := map[string]any{"Vendor": "flat"}
	SetPath(output, "Vendor.Name", "Acme")
	SetPath(output, "Address.City", "Lisbon")
	SetPath(output, "Address.Zip", "1000")

	want := map[string]any{
		"Vendor":  map[string]any{"Name": "Acme"},
		"Address": map[string]any{"City": "Lisbon", "Zip": "1000"},
	}
	if !reflect.DeepEqual(output, want) {
		t.Fatalf("expected %#v, got %#v", want, output)
	}

	withArray := map[string]any{"lines": []any{map[string]any{"sku": "a"}, "scalar"}}
	SetPath(withArray, "lines.0.qty", 2)
	SetPath(withArray, "lines.1.qty", 3)
	SetPath(withArray, "lines.5.qty", 4)
	lines, ok := withArray["lines"].(map[string]any)
	if !ok {
		t.Fatalf("expected out-of-range index to replace the array with an object, got %#v", withArray["lines"])
	}
	if !reflect.DeepEqual(lines, map[string]any{"5": map[string]any{"qty": 4}}) {
		t.Fatalf("unexpected replaced lines: %#v", lines)
	}

	inRange := map[string]any{"lines": []any{map[string]any{"sku": "a"}, "scalar"}}
	SetPath(inRange, "lines.0.qty", 2)
	SetPath(inRange, "lines.1.qty", 3)
	wantLines := []any{map[string]any{"sku": "a", "qty": 2}, map[string]any{"qty": 3}}
	if !reflect.DeepEqual(inRange["lines"], wantLines) {
		t.Fatalf("expected %#v, got %#v", wantLines, inRange["lines"])
	}

	SetPath(nil, "a.b", 1)
	empty := map[string]any{}
	SetPath(empty, " . ", 1)
	if len(empty) != 0 {
		t.Fatalf("expected empty path to be a no-op, got %#v", empty)
	}
}

func TestSetPath_ValueReachableByGetPath(t *testing.T) {
	paths := []string{"a", "a.b", "a.b.c", " x .. y ", "n.0.m", "deep.er.and.deeper"}
	for _, path := range paths {
		output := map[string]any{"a": "scalar", "n": []any{"v"}}
		SetPath(output, path, path)
		got, found := GetPath(output, path)
		if !found || got != path {
			t.Fatalf("path %q: expected (%q, true), got (%#v, %v)", path, path, got, found)
		}
	}
}

func TestCloneValue_DetachesContainers(t *testing.T) {
	source := map[string]any{
		"inner": map[string]any{"k": "v"},
		"list":  []any{map[string]any{"k": 1}},
	}
	copied := cloneValue(source).(map[string]any)
	copied["inner"].(map[string]any)["k"] = "changed"
	copied["list"].([]any)[0].(map[string]any)["k"] = 2

	if source["inner"].(map[string]any)["k"] != "v" {
		t.Fatalf("expected source map to stay unchanged")
	}
	if source["list"].([]any)[0].(map[string]any)["k"] != 1 {
		t.Fatalf("expected source list to stay unchanged")
	}
}
