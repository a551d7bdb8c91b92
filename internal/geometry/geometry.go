// Package geometry implements the planar primitives used by the spatial
// passes: ring bounding boxes and ray-casting point-in-polygon tests.
package geometry

import (
	"github.com/twpayne/go-geom"
)

// BoundingBox returns the XY bounds of a ring, or nil for an empty ring.
func BoundingBox(ring []geom.Coord) *geom.Bounds {
	if len(ring) == 0 {
		return nil
	}

	minX, minY := ring[0].X(), ring[0].Y()
	maxX, maxY := minX, minY
	for _, c := range ring[1:] {
		x, y := c.X(), c.Y()
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return geom.NewBounds(geom.XY).Set(minX, minY, maxX, maxY)
}

// InBounds reports whether pt lies inside b or on its border.
func InBounds(b *geom.Bounds, pt geom.Coord) bool {
	if b == nil {
		return false
	}
	x, y := pt.X(), pt.Y()
	return b.Min(0) <= x && x <= b.Max(0) && b.Min(1) <= y && y <= b.Max(1)
}

// PointInPolygon reports whether pt falls inside ring using horizontal ray
// casting. Rings with fewer than three vertices never contain anything.
//
// An edge toggles the parity when it straddles the point's latitude
// (exclusive below, inclusive above) and its crossing lies at or east of the
// point. Horizontal edges never straddle, so their crossing is never
// computed. As a consequence points on the west and south borders of a ring
// test outside and points on the east and north borders test inside.
func PointInPolygon(pt geom.Coord, ring []geom.Coord) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	if !InBounds(BoundingBox(ring), pt) {
		return false
	}

	x, y := pt.X(), pt.Y()
	inside := false

	p1x, p1y := ring[0].X(), ring[0].Y()
	for i := 1; i <= n; i++ {
		var p2 geom.Coord
		if i == n {
			// Close the ring when the last vertex does not repeat the first.
			if ring[n-1].Equal(geom.XY, ring[0]) {
				break
			}
			p2 = ring[0]
		} else {
			p2 = ring[i]
		}
		p2x, p2y := p2.X(), p2.Y()

		if y > min(p1y, p2y) && y <= max(p1y, p2y) && x <= max(p1x, p2x) {
			if p1x == p2x {
				inside = !inside
			} else if p1y != p2y {
				xinters := (y-p1y)*(p2x-p1x)/(p2y-p1y) + p1x
				if x <= xinters {
					inside = !inside
				}
			}
		}
		p1x, p1y = p2x, p2y
	}

	return inside
}

// SignedArea returns the shoelace area of a ring. It is negative for
// clockwise rings.
func SignedArea(ring []geom.Coord) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		sum += a.X()*b.Y() - b.X()*a.Y()
	}
	return sum / 2
}
