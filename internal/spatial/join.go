package spatial

import (
	"reflect"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geostats-cli/internal/geometry"
	"github.com/sells-group/geostats-cli/internal/normalize"
)

// JoinOutcome reports what Apply did to one request.
type JoinOutcome struct {
	// Matched is set when a neighborhood polygon contains the point.
	Matched bool
	// Updated is set when the polygon label replaced a different value.
	Updated bool
	// Overridden is set when the name property replaced the value afterwards.
	Overridden bool
	// Previous holds the neighborhood value before Apply.
	Previous any
	// Current holds the neighborhood value after Apply.
	Current any
}

// Changed reports whether the neighborhood property was rewritten.
func (o JoinOutcome) Changed() bool {
	return o.Updated || o.Overridden
}

// Join assigns requests to the neighborhood polygon that contains them.
type Join struct {
	entries   []geometry.Entry
	field     string
	nameField string
}

// NewJoin creates a Join over entries, in priority order. field is the
// neighborhood property to rewrite; nameField, when non-empty, names the
// per-request label that takes precedence over the polygon result.
func NewJoin(entries []geometry.Entry, field, nameField string) *Join {
	return &Join{entries: entries, field: field, nameField: nameField}
}

// Len returns the number of reference polygons.
func (j *Join) Len() int {
	return len(j.entries)
}

// Locate returns the label of the first polygon containing pt. Overlapping
// polygons are not disambiguated: list order decides.
func (j *Join) Locate(pt geom.Coord) (string, bool) {
	for i := range j.entries {
		if j.entries[i].Contains(pt) {
			return j.entries[i].Label, true
		}
	}
	return "", false
}

// Apply rewrites the neighborhood property of a request located at pt.
//
// The polygon label replaces the current value when they differ; a point
// outside every polygon keeps its value. After that, a non-empty name
// property that differs from the neighborhood value wins over the spatial
// result. That second rule is intentional: upstream data treats an explicit
// per-request name as more reliable than the polygon layer.
func (j *Join) Apply(props map[string]any, pt geom.Coord) JoinOutcome {
	out := JoinOutcome{Previous: props[j.field]}

	if label, ok := j.Locate(pt); ok {
		out.Matched = true
		if cur, isString := props[j.field].(string); !isString || cur != label {
			props[j.field] = label
			out.Updated = true
		}
	}

	if j.nameField != "" && j.nameField != j.field {
		name := props[j.nameField]
		if normalize.Truthy(name) && !reflect.DeepEqual(name, props[j.field]) {
			props[j.field] = name
			out.Overridden = true
		}
	}

	out.Current = props[j.field]
	return out
}
