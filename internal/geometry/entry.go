package geometry

import (
	"github.com/twpayne/go-geom"
)

// Entry is a reference polygon ring tagged with a label and its cached bounds.
type Entry struct {
	Label  string
	Ring   []geom.Coord
	Bounds *geom.Bounds
}

// NewEntry builds an Entry from an exterior ring. The ring is closed if
// needed. It returns false when the ring has fewer than three distinct
// vertices.
func NewEntry(label string, ring []geom.Coord) (Entry, bool) {
	if distinctVertices(ring) < 3 {
		return Entry{}, false
	}
	closed := ring
	if !ring[len(ring)-1].Equal(geom.XY, ring[0]) {
		closed = make([]geom.Coord, 0, len(ring)+1)
		closed = append(closed, ring...)
		closed = append(closed, ring[0])
	}
	return Entry{
		Label:  label,
		Ring:   closed,
		Bounds: BoundingBox(closed),
	}, true
}

// Contains rejects on the cached bounds before running the ray-casting test.
func (e Entry) Contains(pt geom.Coord) bool {
	if !InBounds(e.Bounds, pt) {
		return false
	}
	return PointInPolygon(pt, e.Ring)
}

// ExteriorRings returns the exterior ring of each polygon in g. Holes are
// ignored and geometry types other than Polygon and MultiPolygon yield nothing.
func ExteriorRings(g geom.T) [][]geom.Coord {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		return [][]geom.Coord{xy(t.LinearRing(0).Coords())}
	case *geom.MultiPolygon:
		var rings [][]geom.Coord
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			if p.NumLinearRings() == 0 {
				continue
			}
			rings = append(rings, xy(p.LinearRing(0).Coords()))
		}
		return rings
	default:
		return nil
	}
}

// Entries builds one Entry per usable exterior ring of g.
func Entries(label string, g geom.T) []Entry {
	var out []Entry
	for _, ring := range ExteriorRings(g) {
		if e, ok := NewEntry(label, ring); ok {
			out = append(out, e)
		}
	}
	return out
}

// xy drops any Z or M ordinates.
func xy(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[i] = geom.Coord{c.X(), c.Y()}
	}
	return out
}

func distinctVertices(ring []geom.Coord) int {
	seen := make(map[[2]float64]struct{}, len(ring))
	for _, c := range ring {
		seen[[2]float64{c.X(), c.Y()}] = struct{}{}
	}
	return len(seen)
}
