package spatial

import (
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geostats-cli/internal/geometry"
	"github.com/sells-group/geostats-cli/internal/normalize"
)

// PrimaryMarker is the road-type substring that marks a primary road.
const PrimaryMarker = "primaria"

// RoadClass is the classification of a single request.
type RoadClass int

// Road classifications.
const (
	RoadLocal RoadClass = iota
	RoadPrimary
	RoadError
)

// RoadSummary counts requests by road classification.
type RoadSummary struct {
	Total     int `json:"total"`
	Primarias int `json:"primarias"`
	Locales   int `json:"locales"`
	// Intersecciones is reserved. Intersections are not classified yet, so
	// it is always zero.
	Intersecciones int `json:"intersecciones"`
	ErrorCoords    int `json:"error_coords"`
}

// Add counts one classified request. Locales is left for Finish.
func (s *RoadSummary) Add(c RoadClass) {
	s.Total++
	switch c {
	case RoadPrimary:
		s.Primarias++
	case RoadError:
		s.ErrorCoords++
	}
}

// Merge sums other into s.
func (s *RoadSummary) Merge(other RoadSummary) {
	s.Total += other.Total
	s.Primarias += other.Primarias
	s.ErrorCoords += other.ErrorCoords
	s.Intersecciones += other.Intersecciones
}

// Finish derives Locales once all requests have been counted.
func (s *RoadSummary) Finish() {
	s.Locales = s.Total - s.Primarias - s.ErrorCoords
}

// RoadFeature is a road-layer polygon with its properties.
type RoadFeature struct {
	Properties map[string]any
	Geometry   geom.T
}

// RoadIndex holds the exterior rings of every primary road polygon.
type RoadIndex struct {
	primary []geometry.Entry
}

// NewRoadIndex keeps the features whose typeField value contains "primaria"
// (case-insensitive) and indexes their exterior rings.
func NewRoadIndex(features []RoadFeature, typeField string) *RoadIndex {
	idx := &RoadIndex{}
	for _, f := range features {
		kind := strings.ToLower(normalize.Text(f.Properties[typeField]))
		if !strings.Contains(kind, PrimaryMarker) {
			continue
		}
		idx.primary = append(idx.primary, geometry.Entries(kind, f.Geometry)...)
	}
	return idx
}

// Len returns the number of primary road rings.
func (r *RoadIndex) Len() int {
	if r == nil {
		return 0
	}
	return len(r.primary)
}

// Classify places one request. Coordinates that are missing or not numeric
// are errors; anything else is primary when it falls in a primary road ring
// and local otherwise. Out-of-range numbers are classified, not rejected.
func (r *RoadIndex) Classify(coords []any) RoadClass {
	pt, outcome := Parse(coords)
	if outcome != OutcomeValid {
		return RoadError
	}
	if r == nil {
		return RoadLocal
	}
	for i := range r.primary {
		if r.primary[i].Contains(pt) {
			return RoadPrimary
		}
	}
	return RoadLocal
}

// ClassifyAll runs Classify over every request and returns the finished
// summary.
func (r *RoadIndex) ClassifyAll(coords [][]any) RoadSummary {
	var s RoadSummary
	for _, c := range coords {
		s.Add(r.Classify(c))
	}
	s.Finish()
	return s
}
