// Package spatial implements the per-request passes: coordinate validation,
// the neighborhood spatial join and road classification.
package spatial

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// Outcome is the result of validating a request's coordinates.
type Outcome int

// Coordinate validation outcomes.
const (
	OutcomeValid Outcome = iota
	OutcomeMissing
	OutcomeInvalidRange
	OutcomeInvalidFormat
)

// String returns the diagnostic name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeMissing:
		return "missing"
	case OutcomeInvalidRange:
		return "invalid_range"
	case OutcomeInvalidFormat:
		return "invalid_format"
	default:
		return "unknown"
	}
}

// Parse converts the first two coordinate values to numbers without range
// checks. It returns OutcomeMissing for fewer than two values and
// OutcomeInvalidFormat when either value is not numeric.
func Parse(coords []any) (geom.Coord, Outcome) {
	if len(coords) < 2 {
		return nil, OutcomeMissing
	}
	lon, ok := toFloat(coords[0])
	if !ok {
		return nil, OutcomeInvalidFormat
	}
	lat, ok := toFloat(coords[1])
	if !ok {
		return nil, OutcomeInvalidFormat
	}
	return geom.Coord{lon, lat}, OutcomeValid
}

// Validate parses coords and checks that both values are finite with the
// longitude in [-180, 180] and the latitude in [-90, 90].
func Validate(coords []any) (geom.Coord, Outcome) {
	pt, outcome := Parse(coords)
	if outcome != OutcomeValid {
		return nil, outcome
	}
	lon, lat := pt.X(), pt.Y()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return nil, OutcomeInvalidRange
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return nil, OutcomeInvalidRange
	}
	return pt, OutcomeValid
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
