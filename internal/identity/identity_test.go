package identity

import (
	"regexp"
	"sort"
	"testing"
)

var canonical = regexp.MustCompile(`^[A-F\d]{8}-[A-F\d]{4}-[A-F\d]{4}-[A-F\d]{4}-[A-F\d]{12}$`)

func TestNewIsUniqueAndCanonical(t *testing.T) {
	seen := make(map[ID]struct{}, 500)
	for i := 0; i < 500; i++ {
		id := New()
		if !canonical.MatchString(id.String()) {
			t.Fatalf("non-canonical id %q", id)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id at iteration %d: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3f2504e0-4f89-11d3-9a0c-0305e82c3301", "3F2504E0-4F89-11D3-9A0C-0305E82C3301"},
		{"{3F2504E0-4F89-11D3-9A0C-0305E82C3301}", "3F2504E0-4F89-11D3-9A0C-0305E82C3301"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			id, err := Parse(test.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if id.String() != test.want {
				t.Errorf("expected %s, got %s", test.want, id)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "abc", "3F2504E0-4F89-11D3-9A0C"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestOrdering(t *testing.T) {
	gen := Sequence(10)
	a, b, c := gen(), gen(), gen()

	if !a.Less(b) || !b.Less(c) {
		t.Fatalf("sequence ids not increasing: %s %s %s", a, b, c)
	}
	if a.Compare(a) != 0 {
		t.Error("id should compare equal to itself")
	}
	if c.Compare(a) != 1 {
		t.Error("expected c > a")
	}

	ids := []ID{c, a, b}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	if ids[0] != a || ids[1] != b || ids[2] != c {
		t.Errorf("unexpected sort order: %v", ids)
	}
}

func TestTextMarshaling(t *testing.T) {
	id := New()
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var back ID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != id {
		t.Errorf("expected %s, got %s", id, back)
	}
}

func TestNilIsZero(t *testing.T) {
	if !Nil.IsZero() {
		t.Error("Nil should be zero")
	}
	if New().IsZero() {
		t.Error("fresh id should not be zero")
	}
}
