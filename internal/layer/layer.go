// Package layer loads polygon reference layers (neighborhoods, sections,
// roads) from GeoJSON or ESRI shapefiles.
package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geostats-cli/internal/geometry"
	"github.com/sells-group/geostats-cli/internal/normalize"
	"github.com/sells-group/geostats-cli/internal/spatial"
)

// StatKeyProperty is added to every feature of an enriched layer.
const StatKeyProperty = "STAT_KEY"

// ErrNotFound is returned by Load when the layer file does not exist.
var ErrNotFound = eris.New("layer: file not found")

// Feature is one reference-layer feature.
type Feature struct {
	Properties map[string]any
	// Geometry is nil when the feature has no usable geometry.
	Geometry geom.T

	// raw holds the source GeoJSON text, empty for shapefile features.
	raw string
}

// Layer is a loaded reference layer.
type Layer struct {
	Source   string
	Features []*Feature
	// Skipped counts features whose geometry could not be decoded.
	Skipped int

	doc []byte
}

// Load reads a layer, choosing the format from the file extension: ".shp"
// for shapefiles, anything else for GeoJSON. A missing file yields
// ErrNotFound so callers can degrade instead of failing.
func Load(path, charset string) (*Layer, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "layer: %s", path)
		}
		return nil, eris.Wrapf(err, "layer: stat %s", path)
	}

	var (
		l   *Layer
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		l, err = loadShapefile(path, charset)
	} else {
		l, err = loadGeoJSON(path, charset)
	}
	if err != nil {
		return nil, err
	}
	l.Source = path
	return l, nil
}

// SampleProperties returns the properties of the first feature, used to
// resolve field names.
func (l *Layer) SampleProperties() map[string]any {
	if l == nil || len(l.Features) == 0 {
		return nil
	}
	return l.Features[0].Properties
}

// Entries builds labelled reference polygons from every feature whose
// labelField is non-empty, in feature order.
func (l *Layer) Entries(labelField string) []geometry.Entry {
	if l == nil || labelField == "" {
		return nil
	}
	var out []geometry.Entry
	for _, f := range l.Features {
		label := f.Properties[labelField]
		if !normalize.Truthy(label) || f.Geometry == nil {
			continue
		}
		out = append(out, geometry.Entries(normalize.Text(label), f.Geometry)...)
	}
	return out
}

// RoadFeatures adapts the layer for road classification.
func (l *Layer) RoadFeatures() []spatial.RoadFeature {
	if l == nil {
		return nil
	}
	out := make([]spatial.RoadFeature, 0, len(l.Features))
	for _, f := range l.Features {
		if f.Geometry == nil {
			continue
		}
		out = append(out, spatial.RoadFeature{Properties: f.Properties, Geometry: f.Geometry})
	}
	return out
}

// Annotate sets STAT_KEY on every feature to keyFn applied to its
// labelField value. An empty labelField passes nil to keyFn.
func (l *Layer) Annotate(labelField string, keyFn func(any) string) {
	for _, f := range l.Features {
		var label any
		if labelField != "" {
			label = f.Properties[labelField]
		}
		f.Properties[StatKeyProperty] = keyFn(label)
	}
}
