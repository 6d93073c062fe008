package codes

import (
	"errors"
	"testing"

	"github.com/bvdk-tools/prefabgen/internal/document"
)

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		keyword string
		want    string
		wantErr bool
	}{
		{"keyword and base", "prefab 5.5.5", "prefab", "5.5.5", false},
		{"keyword case-insensitive", "Prefab 5.5.5", "prefab", "5.5.5", false},
		{"bare base", "5.5.5", "prefab", "5.5.5", false},
		{"surrounding whitespace", "  prefab 12.3  ", "prefab", "12.3", false},
		{"single segment", "prefab 7", "prefab", "7", false},
		{"custom keyword", "spool 5.5.5", "spool", "5.5.5", false},
		{"empty", "", "prefab", "", true},
		{"whitespace only", "   ", "prefab", "", true},
		{"wrong keyword", "module 5.5.5", "prefab", "", true},
		{"too many fields", "prefab 5.5.5 extra", "prefab", "", true},
		{"non-numeric base", "prefab 5.5.x", "prefab", "", true},
		{"trailing dot", "prefab 5.5.", "prefab", "", true},
		{"leading dot", "prefab .5.5", "prefab", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeed(tt.in, tt.keyword)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSeed(%q) succeeded, want error", tt.in)
				}
				var sfe *SeedFormatError
				if !errors.As(err, &sfe) {
					t.Fatalf("error type %T, want *SeedFormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSeed(%q): %v", tt.in, err)
			}
			if got.Base != tt.want {
				t.Errorf("base = %q, want %q", got.Base, tt.want)
			}
		})
	}
}

func hostRef(id int64) *int64 { return &id }

func TestAssignIndependent(t *testing.T) {
	seed := Seed{Base: "5.5.5"}
	// Three pipes, two fittings, three tags in spatial order.
	members := []Member{
		{ID: 1, Category: document.CategoryPipe},
		{ID: 2, Category: document.CategoryFitting},
		{ID: 3, Category: document.CategoryTag, HostID: hostRef(5)},
		{ID: 4, Category: document.CategoryFitting},
		{ID: 5, Category: document.CategoryPipe},
		{ID: 6, Category: document.CategoryTag, HostID: hostRef(1)},
		{ID: 7, Category: document.CategoryPipe},
		{ID: 8, Category: document.CategoryTag},
	}

	a := Assign(seed, members, PairingIndependent)

	want := map[int64]string{
		1: "5.5.5.1",
		5: "5.5.5.2",
		7: "5.5.5.3",
		2: "5.5.5",
		4: "5.5.5",
		3: "5.5.5.1",
		6: "5.5.5.2",
		8: "5.5.5.3",
	}
	for id, code := range want {
		got, ok := a.Code(id)
		if !ok || got != code {
			t.Errorf("element %d: code = %q ok=%v, want %q", id, got, ok, code)
		}
	}
	if len(a.Entries) != len(members) {
		t.Errorf("got %d entries, want %d", len(a.Entries), len(members))
	}
}

func TestAssignPaired(t *testing.T) {
	seed := Seed{Base: "7.1"}
	members := []Member{
		{ID: 1, Category: document.CategoryPipe},
		{ID: 2, Category: document.CategoryPipe},
		{ID: 3, Category: document.CategoryTag, HostID: hostRef(2)},
		{ID: 4, Category: document.CategoryTag, HostID: hostRef(1)},
		{ID: 5, Category: document.CategoryTag}, // no host
	}

	a := Assign(seed, members, PairingPaired)

	tests := []struct {
		id   int64
		want string
	}{
		{1, "7.1.1"},
		{2, "7.1.2"},
		{3, "7.1.2"}, // inherits pipe 2's index
		{4, "7.1.1"}, // inherits pipe 1's index
		{5, "7.1.1"}, // unhosted tag starts its own sequence
	}
	for _, tt := range tests {
		got, _ := a.Code(tt.id)
		if got != tt.want {
			t.Errorf("element %d: code = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestAssignPairedHostOutsideRegion(t *testing.T) {
	seed := Seed{Base: "3.3"}
	// The tag's host pipe is not among the members, so pairing cannot
	// resolve and the tag falls back to the independent sequence.
	members := []Member{
		{ID: 1, Category: document.CategoryPipe},
		{ID: 2, Category: document.CategoryTag, HostID: hostRef(999)},
	}
	a := Assign(seed, members, PairingPaired)
	if got, _ := a.Code(2); got != "3.3.1" {
		t.Errorf("tag code = %q, want 3.3.1", got)
	}
}

func TestAssignDeterministic(t *testing.T) {
	seed := Seed{Base: "5.5.5"}
	members := []Member{
		{ID: 10, Category: document.CategoryPipe},
		{ID: 11, Category: document.CategoryFitting},
		{ID: 12, Category: document.CategoryPipe},
		{ID: 13, Category: document.CategoryTag},
	}
	first := Assign(seed, members, PairingIndependent)
	second := Assign(seed, members, PairingIndependent)
	for _, e := range first.Entries {
		got, _ := second.Code(e.ElementID)
		if got != e.Code {
			t.Errorf("element %d: %q vs %q across runs", e.ElementID, e.Code, got)
		}
	}
}

func TestAssignEmpty(t *testing.T) {
	a := Assign(Seed{Base: "1.2"}, nil, PairingIndependent)
	if len(a.Entries) != 0 {
		t.Errorf("got %d entries for empty input, want 0", len(a.Entries))
	}
}

func TestParsePairingPolicy(t *testing.T) {
	if p, err := ParsePairingPolicy(""); err != nil || p != PairingIndependent {
		t.Errorf("empty policy = %q, %v; want independent", p, err)
	}
	if p, err := ParsePairingPolicy("paired"); err != nil || p != PairingPaired {
		t.Errorf("paired = %q, %v", p, err)
	}
	if _, err := ParsePairingPolicy("bogus"); err == nil {
		t.Error("bogus policy accepted")
	}
}

func TestFormatCode(t *testing.T) {
	if got := FormatCode("5.5.5", 12); got != "5.5.5.12" {
		t.Errorf("FormatCode = %q, want 5.5.5.12", got)
	}
}
