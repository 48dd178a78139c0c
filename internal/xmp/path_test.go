package xmp

import (
	"errors"
	"testing"
)

func TestNewItemSelector(t *testing.T) {
	sel, err := NewItemSelector(3)
	if err != nil {
		t.Fatalf("NewItemSelector: %v", err)
	}
	if sel.Item.Expr != "items[3]" {
		t.Errorf("Item = %q", sel.Item)
	}
	if sel.Filename.Expr != "items[3]/ablFR:filePath" || sel.Filename.Array {
		t.Errorf("Filename = %+v", sel.Filename)
	}
	if sel.Keywords.Expr != "items[3]/ablFR:keywords" || !sel.Keywords.Array {
		t.Errorf("Keywords = %+v", sel.Keywords)
	}
}

func TestNewItemSelector_NonPositive(t *testing.T) {
	for _, i := range []int{0, -1} {
		if _, err := NewItemSelector(i); !errors.Is(err, ErrBadPath) {
			t.Errorf("NewItemSelector(%d) err = %v, want ErrBadPath", i, err)
		}
	}
}

func TestComposeStructFieldPath_Errors(t *testing.T) {
	cases := []struct {
		name                    string
		schema, path, ns, field string
	}{
		{"unknown schema", "urn:nope", "items[1]", NSAbleton, "filePath"},
		{"unknown field ns", NSAbleton, "items[1]", "urn:nope", "filePath"},
		{"empty field", NSAbleton, "items[1]", NSAbleton, ""},
		{"empty struct", NSAbleton, "", NSAbleton, "filePath"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ComposeStructFieldPath(c.schema, c.path, c.ns, c.field); !errors.Is(err, ErrBadPath) {
				t.Errorf("err = %v, want ErrBadPath", err)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	steps, err := parsePath(NSAbleton, "items[2]/ablFR:keywords[5]")
	if err != nil {
		t.Fatalf("parsePath: %v", err)
	}
	want := []step{
		{ns: NSAbleton, name: "items", index: 2},
		{ns: NSAbleton, name: "keywords", index: 5},
	}
	if len(steps) != len(want) {
		t.Fatalf("steps = %+v", steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}

	for _, bad := range []string{"", "items[0]", "items[x]", "items[1", "items/keywords", "foo:bar"} {
		if _, err := parsePath(NSAbleton, bad); !errors.Is(err, ErrBadPath) {
			t.Errorf("parsePath(%q) err = %v, want ErrBadPath", bad, err)
		}
	}
}
