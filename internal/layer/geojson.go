package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/geostats-cli/internal/dataset"
)

func loadGeoJSON(path, charset string) (*Layer, error) {
	data, err := dataset.ReadFile(path, charset)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read %s", path)
	}
	if !gjson.ValidBytes(data) {
		return nil, eris.Errorf("layer: invalid JSON in %s", path)
	}
	arr := gjson.GetBytes(data, "features")
	if !arr.IsArray() {
		return nil, eris.Errorf("layer: %s has no features array", path)
	}

	l := &Layer{doc: data}
	arr.ForEach(func(_, v gjson.Result) bool {
		f := &Feature{Properties: map[string]any{}, raw: v.Raw}
		if props, ok := v.Get("properties").Value().(map[string]any); ok {
			f.Properties = props
		}
		if g := v.Get("geometry"); g.IsObject() {
			var t geom.T
			if err := geojson.Unmarshal([]byte(g.Raw), &t); err != nil {
				zap.L().Debug("layer: undecodable geometry",
					zap.String("path", path),
					zap.Int("feature", len(l.Features)),
					zap.Error(err),
				)
			} else {
				f.Geometry = t
			}
		}
		if f.Geometry == nil {
			l.Skipped++
		}
		l.Features = append(l.Features, f)
		return true
	})
	return l, nil
}

// Bytes encodes the layer as a GeoJSON FeatureCollection. Features read
// from GeoJSON keep their original text with only STAT_KEY set; shapefile
// features are encoded from their geometry.
func (l *Layer) Bytes() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	n := 0
	for i, f := range l.Features {
		raw, err := f.encode()
		if err != nil {
			return nil, eris.Wrapf(err, "layer: encode feature %d", i)
		}
		if raw == "" {
			continue
		}
		if n > 0 {
			b.WriteByte(',')
		}
		b.WriteString(raw)
		n++
	}
	b.WriteByte(']')

	doc := l.doc
	if doc == nil {
		doc = []byte(`{"type":"FeatureCollection","features":[]}`)
	}
	out, err := sjson.SetRawBytes(doc, "features", []byte(b.String()))
	if err != nil {
		return nil, eris.Wrap(err, "layer: replace features")
	}
	return out, nil
}

// Save writes the layer as GeoJSON to path, creating parent directories.
func (l *Layer) Save(path string) error {
	data, err := l.Bytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "layer: create dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "layer: write %s", path)
	}
	return nil
}

func (f *Feature) encode() (string, error) {
	if f.raw != "" {
		if !gjson.Parse(f.raw).IsObject() {
			return f.raw, nil
		}
		key, ok := f.Properties[StatKeyProperty]
		if !ok {
			return f.raw, nil
		}
		if !gjson.Get(f.raw, "properties").IsObject() {
			return sjson.Set(f.raw, "properties", f.Properties)
		}
		return sjson.Set(f.raw, "properties."+StatKeyProperty, key)
	}

	// Shapefile records without polygon geometry are left out.
	if f.Geometry == nil {
		return "", nil
	}
	gf := &geojson.Feature{Geometry: f.Geometry, Properties: f.Properties}
	data, err := gf.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
