// Package collector queries the host document for elements whose
// bounding-box center falls inside a boundary polygon.
//
// Collection is read-only and forgiving: an element with unreadable
// geometry is skipped and reported as a soft warning instead of failing
// the run. The returned order is stable (center X, then Y, then ID) so
// downstream code numbering is reproducible on unchanged geometry.
package collector

import (
	"fmt"
	"sort"

	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/geometry"
)

// Candidate is a document element matched during collection, together
// with its resolved center. The element is referenced by ID downstream;
// the snapshot here never diverges silently from the document.
type Candidate struct {
	Element document.Element
	Center  geometry.Point
}

// Warning is a non-fatal, per-element geometry problem. Collection
// continues past it.
type Warning struct {
	ElementID int64
	Category  document.Category
	Reason    string
}

func (w Warning) String() string {
	return fmt.Sprintf("element %d (%s): %s", w.ElementID, w.Category, w.Reason)
}

// Collect returns the elements of the requested categories contained in
// the polygon, plus soft warnings for elements that could not be tested.
// Empty categories means all four working categories.
//
// Tags are pulled in by host containment as well: a tag whose host pipe
// is inside the region belongs to the region even when the tag's own
// center sits outside the drawn boundary.
func Collect(doc document.Reader, poly *geometry.Polygon, categories []document.Category) ([]Candidate, []Warning, error) {
	if len(categories) == 0 {
		categories = document.AllCategories()
	}

	elems, err := doc.ElementsByCategory(categories...)
	if err != nil {
		return nil, nil, fmt.Errorf("collector: enumerate: %w", err)
	}

	var (
		candidates []Candidate
		warnings   []Warning
		included   = make(map[int64]bool)
		pipeInside = make(map[int64]bool)
	)

	for _, e := range elems {
		center, ok := e.Center()
		if !ok {
			warnings = append(warnings, Warning{
				ElementID: e.ID,
				Category:  e.Category,
				Reason:    "bounding box unreadable, element skipped",
			})
			continue
		}
		if !poly.Contains(center) {
			continue
		}
		candidates = append(candidates, Candidate{Element: e, Center: center})
		included[e.ID] = true
		if e.Category == document.CategoryPipe {
			pipeInside[e.ID] = true
		}
	}

	// Second pass for tags hosted by contained pipes.
	if wantsCategory(categories, document.CategoryTag) {
		for pipeID := range pipeInside {
			tags, err := doc.TagsForHost(pipeID)
			if err != nil {
				return nil, nil, fmt.Errorf("collector: tags for host %d: %w", pipeID, err)
			}
			for _, tag := range tags {
				if included[tag.ID] {
					continue
				}
				center, ok := tag.Center()
				if !ok {
					warnings = append(warnings, Warning{
						ElementID: tag.ID,
						Category:  tag.Category,
						Reason:    "bounding box unreadable, element skipped",
					})
					continue
				}
				candidates = append(candidates, Candidate{Element: tag, Center: center})
				included[tag.ID] = true
			}
		}
	}

	sortCandidates(candidates)
	return candidates, warnings, nil
}

// RegionBounds returns the bounding volume of the candidates' boxes.
// This drives the cropped view extent and the 3D section box.
func RegionBounds(candidates []Candidate) geometry.Box {
	boxes := make([]geometry.Box, 0, len(candidates))
	for _, c := range candidates {
		if c.Element.BBox != nil {
			boxes = append(boxes, *c.Element.BBox)
		}
	}
	return geometry.UnionBounds(boxes)
}

// sortCandidates orders by center X, then Y, then ID. The ID tiebreak
// keeps the order total when two elements share a center.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Center.X != b.Center.X {
			return a.Center.X < b.Center.X
		}
		if a.Center.Y != b.Center.Y {
			return a.Center.Y < b.Center.Y
		}
		return a.Element.ID < b.Element.ID
	})
}

func wantsCategory(categories []document.Category, c document.Category) bool {
	for _, cat := range categories {
		if cat == c {
			return true
		}
	}
	return false
}
