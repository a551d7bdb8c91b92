package stats

import (
	"sort"
)

// DefaultInvalidSampleLimit bounds the invalid-coordinate diagnostics sample.
const DefaultInvalidSampleLimit = 100

// Observation is the per-request input to an Aggregation. All fields must be
// populated; sentinels stand in for missing values.
type Observation struct {
	NeighborhoodKey   string
	NeighborhoodLabel any
	SectionKey        string
	SectionLabel      any
	Month             string
	Type              string
	Status            string
}

// InvalidCoord describes a request whose coordinates failed validation.
type InvalidCoord struct {
	Index        int    `json:"idx"`
	Neighborhood any    `json:"colonia"`
	Coords       any    `json:"coords"`
	Reason       string `json:"reason"`
}

// CoordStats tracks coordinate quality across every input request.
type CoordStats struct {
	Total         int            `json:"total"`
	WithCoords    int            `json:"with_coords"`
	Missing       int            `json:"missing_both"`
	Invalid       int            `json:"invalid"`
	InvalidRange  int            `json:"invalid_range"`
	InvalidFormat int            `json:"invalid_format"`
	InvalidSample []InvalidCoord `json:"invalid_coords"`
}

// Values holds the distinct month, type and status values observed.
type Values struct {
	Month  map[string]struct{}
	Type   map[string]struct{}
	Status map[string]struct{}
}

// Sorted returns each value set as a sorted slice.
func (v Values) Sorted() (months, types, statuses []string) {
	return sortedSet(v.Month), sortedSet(v.Type), sortedSet(v.Status)
}

// Aggregation is the accumulated state of one run: the global bundle, the
// per-neighborhood and per-section entities, observed values and coordinate
// diagnostics.
type Aggregation struct {
	Global        *Counters
	Neighborhoods Group
	Sections      Group
	Values        Values
	Coords        CoordStats

	sampleLimit int
}

// New returns an empty Aggregation keeping at most sampleLimit invalid
// coordinate entries. A non-positive limit selects the default.
func New(sampleLimit int) *Aggregation {
	if sampleLimit <= 0 {
		sampleLimit = DefaultInvalidSampleLimit
	}
	return &Aggregation{
		Global:        NewCounters(),
		Neighborhoods: Group{},
		Sections:      Group{},
		Values: Values{
			Month:  map[string]struct{}{},
			Type:   map[string]struct{}{},
			Status: map[string]struct{}{},
		},
		Coords:      CoordStats{InvalidSample: []InvalidCoord{}},
		sampleLimit: sampleLimit,
	}
}

// Record counts one request with valid coordinates in the global bundle and
// in its neighborhood and section entities.
func (a *Aggregation) Record(o Observation) {
	a.Global.Record(o.Month, o.Type, o.Status)
	a.Neighborhoods.Ensure(o.NeighborhoodKey, o.NeighborhoodLabel).Record(o.Month, o.Type, o.Status)
	a.Sections.Ensure(o.SectionKey, o.SectionLabel).Record(o.Month, o.Type, o.Status)

	a.Values.Month[o.Month] = struct{}{}
	a.Values.Type[o.Type] = struct{}{}
	a.Values.Status[o.Status] = struct{}{}
}

// Seen counts a request before coordinate validation.
func (a *Aggregation) Seen() {
	a.Coords.Total++
}

// Valid counts a request whose coordinates passed validation.
func (a *Aggregation) Valid() {
	a.Coords.WithCoords++
}

// MissingCoords counts a request without usable coordinates.
func (a *Aggregation) MissingCoords() {
	a.Coords.Missing++
}

// InvalidCoords counts a request with unusable coordinates and keeps it in
// the diagnostics sample while there is room. rangeErr distinguishes
// out-of-range values from unparsable ones.
func (a *Aggregation) InvalidCoords(entry InvalidCoord, rangeErr bool) {
	a.Coords.Invalid++
	if rangeErr {
		a.Coords.InvalidRange++
	} else {
		a.Coords.InvalidFormat++
	}
	if len(a.Coords.InvalidSample) < a.sampleLimit {
		a.Coords.InvalidSample = append(a.Coords.InvalidSample, entry)
	}
}

// Merge folds other into a. Counts are summed; labels and the invalid sample
// favour a, so partial aggregations must be merged in input order.
func (a *Aggregation) Merge(other *Aggregation) {
	if other == nil {
		return
	}
	a.Global.Merge(other.Global)
	a.Neighborhoods.Merge(other.Neighborhoods)
	a.Sections.Merge(other.Sections)

	for k := range other.Values.Month {
		a.Values.Month[k] = struct{}{}
	}
	for k := range other.Values.Type {
		a.Values.Type[k] = struct{}{}
	}
	for k := range other.Values.Status {
		a.Values.Status[k] = struct{}{}
	}

	a.Coords.Total += other.Coords.Total
	a.Coords.WithCoords += other.Coords.WithCoords
	a.Coords.Missing += other.Coords.Missing
	a.Coords.Invalid += other.Coords.Invalid
	a.Coords.InvalidRange += other.Coords.InvalidRange
	a.Coords.InvalidFormat += other.Coords.InvalidFormat
	for _, e := range other.Coords.InvalidSample {
		if len(a.Coords.InvalidSample) >= a.sampleLimit {
			break
		}
		a.Coords.InvalidSample = append(a.Coords.InvalidSample, e)
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
