// Package dataset reads and rewrites the request point collection.
//
// Features are read leniently with gjson so that one malformed record never
// fails the load, and rewritten with sjson so that only the properties that
// changed are touched in the output document.
package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrNoFeatures is returned when the collection has no features.
var ErrNoFeatures = eris.New("dataset: no features")

// Feature is one request of the point collection.
type Feature struct {
	Index int
	// Properties is never nil.
	Properties map[string]any
	// Coordinates holds the raw geometry coordinates, nil when absent.
	Coordinates []any
	// HasGeometry is set when the feature carries a geometry object.
	HasGeometry bool

	raw      string
	propsObj bool
	dirty    []string
}

// Touch marks field as changed so it is written back on save.
func (f *Feature) Touch(field string) {
	for _, d := range f.dirty {
		if d == field {
			return
		}
	}
	f.dirty = append(f.dirty, field)
}

// Dirty reports whether any property was touched.
func (f *Feature) Dirty() bool {
	return len(f.dirty) > 0
}

// Collection is a decoded point FeatureCollection.
type Collection struct {
	Source   string
	Features []*Feature

	doc []byte
}

// Load reads a GeoJSON FeatureCollection from path.
func Load(path, charset string) (*Collection, error) {
	data, err := ReadFile(path, charset)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: load %s", path)
	}
	c.Source = path
	return c, nil
}

// Parse decodes a FeatureCollection document. It fails only when the
// document is not JSON, has no features array or the array is empty.
func Parse(data []byte) (*Collection, error) {
	if !gjson.ValidBytes(data) {
		return nil, eris.New("dataset: invalid JSON")
	}
	arr := gjson.GetBytes(data, "features")
	if !arr.IsArray() {
		return nil, eris.New("dataset: missing features array")
	}

	c := &Collection{doc: data}
	arr.ForEach(func(_, v gjson.Result) bool {
		c.Features = append(c.Features, decodeFeature(len(c.Features), v))
		return true
	})
	if len(c.Features) == 0 {
		return nil, ErrNoFeatures
	}
	return c, nil
}

func decodeFeature(idx int, v gjson.Result) *Feature {
	f := &Feature{Index: idx, raw: v.Raw, Properties: map[string]any{}}
	if !v.IsObject() {
		return f
	}

	if props := v.Get("properties"); props.IsObject() {
		if m, ok := props.Value().(map[string]any); ok {
			f.Properties = m
			f.propsObj = true
		}
	}

	g := v.Get("geometry")
	if !g.IsObject() {
		return f
	}
	f.HasGeometry = true
	if coords := g.Get("coordinates"); coords.IsArray() {
		if vals, ok := coords.Value().([]any); ok {
			f.Coordinates = vals
		}
	}
	return f
}

// Updated returns the number of features with touched properties.
func (c *Collection) Updated() int {
	var n int
	for _, f := range c.Features {
		if f.Dirty() {
			n++
		}
	}
	return n
}

// Bytes returns the document with touched properties rewritten. Untouched
// features are emitted exactly as read.
func (c *Collection) Bytes() ([]byte, error) {
	if c.Updated() == 0 {
		return c.doc, nil
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, f := range c.Features {
		if i > 0 {
			b.WriteByte(',')
		}
		raw, err := f.encode()
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: encode feature %d", f.Index)
		}
		b.WriteString(raw)
	}
	b.WriteByte(']')

	out, err := sjson.SetRawBytes(c.doc, "features", []byte(b.String()))
	if err != nil {
		return nil, eris.Wrap(err, "dataset: replace features")
	}
	return out, nil
}

// Save writes the document to path, creating parent directories.
func (c *Collection) Save(path string) error {
	data, err := c.Bytes()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "dataset: create dir %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	return nil
}

func (f *Feature) encode() (string, error) {
	if !f.Dirty() {
		return f.raw, nil
	}
	if !f.propsObj {
		return sjson.Set(f.raw, "properties", f.Properties)
	}
	raw := f.raw
	for _, field := range f.dirty {
		var err error
		raw, err = sjson.Set(raw, "properties."+EscapePath(field), f.Properties[field])
		if err != nil {
			return "", err
		}
	}
	return raw, nil
}

// EscapePath escapes a property name for use as a gjson/sjson path component.
func EscapePath(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!', ':', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
