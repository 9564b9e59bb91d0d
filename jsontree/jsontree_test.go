package jsontree

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAndMarshal_CompactRoundTrip(t *testing.T) {
	src := `{"zeta":1,"alpha":[null,{"name":"Épée","price":1.50}],"flag":true,"empty":[],"obj":{}}`

	v, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if got := v.Keys(); strings.Join(got, ",") != "zeta,alpha,flag,empty,obj" {
		t.Fatalf("key order changed: %v", got)
	}

	out, err := Marshal(v, "")
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != src {
		t.Fatalf("compact round trip mismatch:\n got %s\nwant %s", out, src)
	}
}

func TestMarshal_Indented(t *testing.T) {
	v, err := Parse([]byte(`{"a":[1,"<b>"],"c":{}}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	out, err := Marshal(v, "  ")
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := "{\n  \"a\": [\n    1,\n    \"<b>\"\n  ],\n  \"c\": {}\n}\n"
	if string(out) != want {
		t.Fatalf("indented output:\n%s\nwant:\n%s", out, want)
	}
}

func TestParse_BOMAndErrors(t *testing.T) {
	v, err := Parse(append([]byte{0xEF, 0xBB, 0xBF}, []byte(`["x"]`)...))
	if err != nil {
		t.Fatalf("Parse with BOM: %v", err)
	}
	if v.Kind() != KindSequence || v.Len() != 1 {
		t.Fatalf("unexpected tree: %v", v.Interface())
	}

	for _, bad := range []string{`{"broken":`, `[1] [2]`, ``} {
		if _, err := Parse([]byte(bad)); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestAccessors(t *testing.T) {
	v, err := Parse([]byte(`{"list":["a","b"],"n":7}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	list, ok := v.Field("list")
	if !ok {
		t.Fatal("missing field list")
	}
	item, err := list.Index(1)
	if err != nil {
		t.Fatalf("Index(1): %v", err)
	}
	if s, ok := item.Str(); !ok || s != "b" {
		t.Fatalf("Index(1) = %v, want b", item.Interface())
	}

	if _, err := list.Index(2); !errors.Is(err, ErrRange) {
		t.Fatalf("Index(2) error = %v, want ErrRange", err)
	}
	if err := list.SetIndex(2, String("c")); !errors.Is(err, ErrRange) {
		t.Fatalf("SetIndex(2) error = %v, want ErrRange", err)
	}
	if list.Len() != 2 {
		t.Fatalf("SetIndex grew the sequence to %d", list.Len())
	}
	if _, err := v.Index(0); !errors.Is(err, ErrKind) {
		t.Fatalf("Index on mapping error = %v, want ErrKind", err)
	}

	n, _ := v.Field("n")
	if i, ok := n.Int(); !ok || i != 7 {
		t.Fatalf("Int() = %d, %v", i, ok)
	}

	if err := v.SetField("n", String("seven")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := v.SetField("new", Null()); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if got := strings.Join(v.Keys(), ","); got != "list,n,new" {
		t.Fatalf("keys after SetField = %s", got)
	}
}

func TestCloneAndEqual(t *testing.T) {
	v, err := Parse([]byte(`{"a":[1,{"b":"c"}]}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	c := v.Clone()
	if !Equal(v, c) {
		t.Fatal("clone differs from original")
	}

	a, _ := c.Field("a")
	inner, _ := a.Index(1)
	_ = inner.SetField("b", String("d"))

	if Equal(v, c) {
		t.Fatal("mutating the clone changed the original")
	}
	if diff := cmp.Diff(map[string]any{"a": []any{"1", map[string]any{"b": "c"}}}, normalize(v.Interface())); diff != "" {
		t.Fatalf("original changed (-want +got):\n%s", diff)
	}
}

// normalize turns json.Number leaves into plain strings for comparison.
func normalize(x any) any {
	switch t := x.(type) {
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	case interface{ String() string }:
		return t.String()
	}
	return x
}
