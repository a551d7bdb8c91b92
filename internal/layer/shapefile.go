package layer

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/geostats-cli/internal/dataset"
	"github.com/sells-group/geostats-cli/internal/geometry"
)

func loadShapefile(path, charset string) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	l := &Layer{}
	for reader.Next() {
		_, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				props[name] = nil
				continue
			}
			decoded, decErr := dataset.Decode([]byte(val), charset)
			if decErr != nil {
				return nil, eris.Wrapf(decErr, "layer: decode attribute %s", name)
			}
			props[name] = string(decoded)
		}

		g := shapeToGeometry(shape)
		if g == nil {
			l.Skipped++
		}
		l.Features = append(l.Features, &Feature{Properties: props, Geometry: g})
	}

	if l.Skipped > 0 {
		zap.L().Debug("layer: shapefile records without polygon geometry",
			zap.String("path", path),
			zap.Int("skipped", l.Skipped),
		)
	}
	return l, nil
}

// shapeToGeometry converts a shapefile polygon to a MultiPolygon. Clockwise
// rings start a new polygon and counter-clockwise rings are holes of the
// preceding one. Other shape types have no area and yield nil.
func shapeToGeometry(shape shp.Shape) geom.T {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	rings := make([][]geom.Coord, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			zap.L().Debug("layer: skipping malformed polygon ring", zap.Int32("part", i))
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		rings = append(rings, ring)
	}

	var polys [][][]geom.Coord
	for _, ring := range rings {
		if geometry.SignedArea(ring) < 0 || len(polys) == 0 {
			polys = append(polys, [][]geom.Coord{ring})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}
	if len(polys) == 0 {
		return nil
	}

	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		zap.L().Debug("layer: skipping malformed polygon", zap.Error(err))
		return nil
	}
	return mp
}
