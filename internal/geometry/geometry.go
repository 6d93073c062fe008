// Package geometry implements the boundary-containment primitives for
// prefabgen: chaining user-selected line segments into a closed polygon
// and testing element centers against it.
//
// All functions are pure. Containment is evaluated in the XY plane of the
// boundary; Z is carried through for bounding volumes (crop boxes and 3D
// section boxes) but never participates in the inside/outside decision.
package geometry

import (
	"fmt"
	"math"
)

// DefaultTolerance is the endpoint-coincidence tolerance used when chaining
// segments into a loop and when classifying on-edge points. Document units.
const DefaultTolerance = 1e-6

// Point is a location in document coordinates.
type Point struct {
	X, Y, Z float64
}

// Segment is one boundary line with a start and end point.
type Segment struct {
	Start, End Point
}

// closeTo reports whether two points coincide within tol on all three axes.
func closeTo(a, b Point, tol float64) bool {
	return math.Abs(a.X-b.X) < tol &&
		math.Abs(a.Y-b.Y) < tol &&
		math.Abs(a.Z-b.Z) < tol
}

// BoundaryError reports why a segment selection does not form a single
// closed loop. The user must fix the selection; no document mutation is
// ever attempted on this error.
type BoundaryError struct {
	Reason string
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("boundary: %s", e.Reason)
}

// Polygon is a closed loop of vertices, ordered along the boundary.
// Construct with BuildPolygon; a Polygon always has at least 3 vertices.
type Polygon struct {
	vertices []Point
	tol      float64
}

// BuildPolygon orders an unordered set of segments into one closed loop by
// chaining coincident endpoints (within tol; pass 0 for DefaultTolerance).
// It fails with *BoundaryError when there are fewer than 3 segments, when a
// gap exceeds the tolerance, or when segments are left over after the loop
// closes (branching or a second disjoint loop).
func BuildPolygon(segments []Segment, tol float64) (*Polygon, error) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if len(segments) < 3 {
		return nil, &BoundaryError{Reason: fmt.Sprintf("need at least 3 segments, got %d", len(segments))}
	}

	// Chain greedily from the first segment, consuming whichever remaining
	// segment touches the current loose end. Either orientation of a
	// segment may match.
	remaining := make([]Segment, len(segments)-1)
	copy(remaining, segments[1:])

	verts := []Point{segments[0].Start, segments[0].End}

	for len(remaining) > 0 {
		last := verts[len(verts)-1]
		matched := -1
		var next Point
		for i, seg := range remaining {
			switch {
			case closeTo(last, seg.Start, tol):
				matched, next = i, seg.End
			case closeTo(last, seg.End, tol):
				matched, next = i, seg.Start
			}
			if matched >= 0 {
				break
			}
		}
		if matched < 0 {
			return nil, &BoundaryError{Reason: "loop is not closed: found a gap larger than the tolerance"}
		}
		verts = append(verts, next)
		remaining = append(remaining[:matched], remaining[matched+1:]...)
	}

	if !closeTo(verts[0], verts[len(verts)-1], tol) {
		return nil, &BoundaryError{Reason: "segments chain into an open path, not a closed loop"}
	}
	// Drop the duplicated closing vertex.
	verts = verts[:len(verts)-1]

	if len(verts) < 3 {
		return nil, &BoundaryError{Reason: "loop is degenerate: fewer than 3 distinct vertices"}
	}

	return &Polygon{vertices: verts, tol: tol}, nil
}

// Vertices returns a copy of the ordered loop vertices.
func (p *Polygon) Vertices() []Point {
	out := make([]Point, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Contains reports whether pt lies inside the polygon, using even-odd ray
// casting in the XY plane. The test is robust to non-convex loops. A point
// sitting on an edge (within the polygon's tolerance) counts as contained,
// so elements placed exactly on the drawn boundary are never dropped.
func (p *Polygon) Contains(pt Point) bool {
	if p.onEdge(pt) {
		return true
	}

	inside := false
	n := len(p.vertices)
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := p.vertices[i], p.vertices[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) {
			dy := vj.Y - vi.Y
			if dy == 0 {
				dy = 1e-12
			}
			if pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/dy+vi.X {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// onEdge reports whether pt lies within tolerance of any polygon edge.
func (p *Polygon) onEdge(pt Point) bool {
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		a := p.vertices[i]
		b := p.vertices[(i+1)%n]
		if distToSegmentXY(pt, a, b) < p.tol {
			return true
		}
	}
	return false
}

// distToSegmentXY returns the XY-plane distance from pt to segment ab.
func distToSegmentXY(pt, a, b Point) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	apx, apy := pt.X-a.X, pt.Y-a.Y

	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return math.Hypot(apx, apy)
	}

	t := (apx*abx + apy*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy := a.X+t*abx, a.Y+t*aby
	return math.Hypot(pt.X-cx, pt.Y-cy)
}

// Bounds returns the axis-aligned bounding extent of the loop vertices.
func (p *Polygon) Bounds() (min, max Point) {
	min = Point{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = Point{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range p.vertices {
		min, max = expand(min, max, v)
	}
	return min, max
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Point
}

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// UnionBounds returns the smallest box enclosing all given boxes.
// Returns the zero Box when boxes is empty.
func UnionBounds(boxes []Box) Box {
	if len(boxes) == 0 {
		return Box{}
	}
	min := Point{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := Point{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, b := range boxes {
		min, max = expand(min, max, b.Min)
		min, max = expand(min, max, b.Max)
	}
	return Box{Min: min, Max: max}
}

func expand(min, max, p Point) (Point, Point) {
	min.X = math.Min(min.X, p.X)
	min.Y = math.Min(min.Y, p.Y)
	min.Z = math.Min(min.Z, p.Z)
	max.X = math.Max(max.X, p.X)
	max.Y = math.Max(max.Y, p.Y)
	max.Z = math.Max(max.Z, p.Z)
	return min, max
}
