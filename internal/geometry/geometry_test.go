package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square() []geom.Coord {
	return []geom.Coord{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
}

func TestBoundingBox(t *testing.T) {
	assert.Nil(t, BoundingBox(nil))

	b := BoundingBox([]geom.Coord{{-99.2, 19.3}, {-99.1, 19.5}, {-99.3, 19.4}})
	require.NotNil(t, b)
	assert.InDelta(t, -99.3, b.Min(0), 1e-9)
	assert.InDelta(t, 19.3, b.Min(1), 1e-9)
	assert.InDelta(t, -99.1, b.Max(0), 1e-9)
	assert.InDelta(t, 19.5, b.Max(1), 1e-9)
}

func TestPointInPolygon_Square(t *testing.T) {
	tests := []struct {
		name     string
		pt       geom.Coord
		expected bool
	}{
		{name: "center", pt: geom.Coord{5, 5}, expected: true},
		{name: "east of ring", pt: geom.Coord{15, 5}, expected: false},
		// Boundary behavior is fixed by the ray-casting convention.
		{name: "west edge is outside", pt: geom.Coord{0, 5}, expected: false},
		{name: "east edge is inside", pt: geom.Coord{10, 5}, expected: true},
		{name: "south edge is outside", pt: geom.Coord{5, 0}, expected: false},
		{name: "north edge is inside", pt: geom.Coord{5, 10}, expected: true},
		{name: "south-west corner", pt: geom.Coord{0, 0}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PointInPolygon(tt.pt, square()))
		})
	}
}

func TestPointInPolygon_ClosedRingMatchesOpen(t *testing.T) {
	closed := append(square(), geom.Coord{0, 0})
	for _, pt := range []geom.Coord{{5, 5}, {0, 5}, {10, 5}, {5, 0}, {5, 10}, {11, 11}} {
		assert.Equal(t, PointInPolygon(pt, square()), PointInPolygon(pt, closed), "point %v", pt)
	}
}

func TestPointInPolygon_Concave(t *testing.T) {
	// U shape opening to the north.
	ring := []geom.Coord{{0, 0}, {0, 10}, {3, 10}, {3, 3}, {7, 3}, {7, 10}, {10, 10}, {10, 0}, {0, 0}}

	assert.True(t, PointInPolygon(geom.Coord{1, 5}, ring))
	assert.True(t, PointInPolygon(geom.Coord{8, 5}, ring))
	assert.False(t, PointInPolygon(geom.Coord{5, 5}, ring), "notch of the U")
	assert.True(t, PointInPolygon(geom.Coord{5, 1}, ring))
}

func TestPointInPolygon_Degenerate(t *testing.T) {
	assert.False(t, PointInPolygon(geom.Coord{0, 0}, nil))
	assert.False(t, PointInPolygon(geom.Coord{0, 0}, []geom.Coord{{0, 0}, {1, 1}}))
}

func TestPointInPolygon_HorizontalEdgesOnly(t *testing.T) {
	// Collinear horizontal ring: every edge is horizontal, nothing straddles.
	ring := []geom.Coord{{0, 1}, {5, 1}, {10, 1}}
	assert.False(t, PointInPolygon(geom.Coord{5, 1}, ring))
}

func TestNewEntry(t *testing.T) {
	e, ok := NewEntry("A", square())
	require.True(t, ok)
	assert.Equal(t, "A", e.Label)
	assert.Len(t, e.Ring, 5, "ring is closed")
	assert.True(t, e.Contains(geom.Coord{5, 5}))
	assert.False(t, e.Contains(geom.Coord{-1, 5}))

	_, ok = NewEntry("B", []geom.Coord{{0, 0}, {1, 1}, {0, 0}, {1, 1}})
	assert.False(t, ok, "two distinct vertices")
}

func TestExteriorRings(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
		{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
	})
	rings := ExteriorRings(poly)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 5)

	multi := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}},
		{{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}},
	})
	assert.Len(t, ExteriorRings(multi), 2)

	assert.Nil(t, ExteriorRings(geom.NewPointFlat(geom.XY, []float64{1, 2})))
	assert.Nil(t, ExteriorRings(nil))
}

func TestEntries_HoleIgnored(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
		{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
	})
	entries := Entries("Centro", poly)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Contains(geom.Coord{3, 3}), "points in holes still match the exterior")
}

func TestSignedArea(t *testing.T) {
	ccw := []geom.Coord{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.InDelta(t, 100, SignedArea(ccw), 1e-9)
	assert.InDelta(t, -100, SignedArea(square()), 1e-9)
	assert.Zero(t, SignedArea(nil))
}
