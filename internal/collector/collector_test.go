package collector

import (
	"path/filepath"
	"testing"

	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/geometry"
)

func openStore(t *testing.T) *document.Store {
	t.Helper()
	s, err := document.Open(filepath.Join(t.TempDir(), "doc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func boxAt(x, y float64) *geometry.Box {
	return &geometry.Box{
		Min: geometry.Point{X: x - 0.5, Y: y - 0.5},
		Max: geometry.Point{X: x + 0.5, Y: y + 0.5},
	}
}

func addElement(t *testing.T, s *document.Store, e document.Element) int64 {
	t.Helper()
	id, err := s.AddElement(e)
	if err != nil {
		t.Fatalf("add element: %v", err)
	}
	return id
}

func unitSquare(t *testing.T, size float64) *geometry.Polygon {
	t.Helper()
	p, err := geometry.BuildPolygon([]geometry.Segment{
		{Start: geometry.Point{}, End: geometry.Point{X: size}},
		{Start: geometry.Point{X: size}, End: geometry.Point{X: size, Y: size}},
		{Start: geometry.Point{X: size, Y: size}, End: geometry.Point{Y: size}},
		{Start: geometry.Point{Y: size}, End: geometry.Point{}},
	}, geometry.DefaultTolerance)
	if err != nil {
		t.Fatalf("build polygon: %v", err)
	}
	return p
}

func TestCollectContainmentAndOrder(t *testing.T) {
	s := openStore(t)
	poly := unitSquare(t, 10)

	inside1 := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "P1", BBox: boxAt(7, 2)})
	inside2 := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "P2", BBox: boxAt(3, 8)})
	inside3 := addElement(t, s, document.Element{Category: document.CategoryFitting, Name: "F1", BBox: boxAt(3, 1)})
	addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "Out", BBox: boxAt(25, 25)})

	got, warns, err := Collect(s, poly, []document.Category{document.CategoryPipe, document.CategoryFitting})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}

	// Sorted by center X, then Y: F1 (3,1), P2 (3,8), P1 (7,2).
	want := []int64{inside3, inside2, inside1}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.Element.ID != want[i] {
			t.Errorf("candidate %d: got element %d, want %d", i, c.Element.ID, want[i])
		}
	}
}

func TestCollectUnreadableGeometryWarns(t *testing.T) {
	s := openStore(t)
	poly := unitSquare(t, 10)

	ok := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "P1", BBox: boxAt(5, 5)})
	broken := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "Broken"})

	got, warns, err := Collect(s, poly, []document.Category{document.CategoryPipe})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 || got[0].Element.ID != ok {
		t.Fatalf("got %v, want only element %d", got, ok)
	}
	if len(warns) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warns))
	}
	if warns[0].ElementID != broken {
		t.Errorf("warning names element %d, want %d", warns[0].ElementID, broken)
	}
}

func TestCollectPullsTagOfContainedPipe(t *testing.T) {
	s := openStore(t)
	poly := unitSquare(t, 10)

	pipe := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "P1", BBox: boxAt(5, 5)})
	// Tag sits well outside the boundary but tags a contained pipe.
	tag := addElement(t, s, document.Element{Category: document.CategoryTag, Name: "P1 Tag", BBox: boxAt(30, 30), HostID: &pipe})

	got, _, err := Collect(s, poly, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	found := map[int64]bool{}
	for _, c := range got {
		found[c.Element.ID] = true
	}
	if !found[pipe] || !found[tag] {
		t.Fatalf("want pipe %d and tag %d collected, got %v", pipe, tag, found)
	}
}

func TestCollectTagNotDuplicated(t *testing.T) {
	s := openStore(t)
	poly := unitSquare(t, 10)

	pipe := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "P1", BBox: boxAt(5, 5)})
	// Tag inside the boundary AND hosted by a contained pipe: one entry only.
	addElement(t, s, document.Element{Category: document.CategoryTag, Name: "P1 Tag", BBox: boxAt(6, 5), HostID: &pipe})

	got, _, err := Collect(s, poly, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (pipe + tag once)", len(got))
	}
}

func TestCollectSkipsTagPullWhenTagsNotRequested(t *testing.T) {
	s := openStore(t)
	poly := unitSquare(t, 10)

	pipe := addElement(t, s, document.Element{Category: document.CategoryPipe, Name: "P1", BBox: boxAt(5, 5)})
	addElement(t, s, document.Element{Category: document.CategoryTag, Name: "P1 Tag", BBox: boxAt(30, 30), HostID: &pipe})

	got, _, err := Collect(s, poly, []document.Category{document.CategoryPipe})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 || got[0].Element.Category != document.CategoryPipe {
		t.Fatalf("got %v, want only the pipe", got)
	}
}

func TestRegionBounds(t *testing.T) {
	cands := []Candidate{
		{Element: document.Element{BBox: boxAt(2, 2)}},
		{Element: document.Element{BBox: boxAt(8, 4)}},
	}
	b := RegionBounds(cands)
	if b.Min.X != 1.5 || b.Min.Y != 1.5 {
		t.Errorf("min = %v, want (1.5, 1.5)", b.Min)
	}
	if b.Max.X != 8.5 || b.Max.Y != 4.5 {
		t.Errorf("max = %v, want (8.5, 4.5)", b.Max)
	}
}
