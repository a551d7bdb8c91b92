// Package artifact builds, writes and reads the precomputed statistics
// document consumed by the dashboard.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geostats-cli/internal/fields"
	"github.com/sells-group/geostats-cli/internal/pipeline"
	"github.com/sells-group/geostats-cli/internal/spatial"
	"github.com/sells-group/geostats-cli/internal/stats"
)

// Output file names inside the output directory.
const (
	StatsFile     = "estadisticas.json"
	ColoniasFile  = "colonias_enriquecidas.geojson"
	SeccionesFile = "secciones_enriquecidas.geojson"
	ReportFile    = "estadisticas.xlsx"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Meta describes the run that produced the statistics.
type Meta struct {
	RunID       string              `json:"runId"`
	GeneratedAt string              `json:"generatedAt"`
	Source      string              `json:"source"`
	Columns     fields.Mapping      `json:"columns"`
	Records     int                 `json:"records"`
	Updated     int                 `json:"updated"`
	Overridden  int                 `json:"overridden"`
	Coords      stats.CoordStats    `json:"coords"`
	Vialidades  spatial.RoadSummary `json:"vialidades"`
}

// Values lists the distinct dimension values, sorted.
type Values struct {
	Month  []string `json:"mes"`
	Type   []string `json:"tipo"`
	Status []string `json:"estado"`
}

// Statistics is the estadisticas.json document.
type Statistics struct {
	Meta      Meta            `json:"meta"`
	Values    Values          `json:"values"`
	Global    *stats.Counters `json:"global"`
	Colonias  stats.Group     `json:"colonias"`
	Secciones stats.Group     `json:"secciones"`
}

// Build assembles the document for a finished run.
func Build(runID uuid.UUID, source string, mapping fields.Mapping, res *pipeline.Result, now time.Time) *Statistics {
	months, types, statuses := res.Stats.Values.Sorted()
	return &Statistics{
		Meta: Meta{
			RunID:       runID.String(),
			GeneratedAt: now.UTC().Format(timeLayout),
			Source:      filepath.ToSlash(source),
			Columns:     mapping,
			Records:     res.Stats.Global.Total,
			Updated:     res.Updated,
			Overridden:  res.Overridden,
			Coords:      res.Stats.Coords,
			Vialidades:  res.Roads,
		},
		Values:    Values{Month: months, Type: types, Status: statuses},
		Global:    res.Stats.Global,
		Colonias:  res.Stats.Neighborhoods,
		Secciones: res.Stats.Sections,
	}
}

// GeneratedTime parses Meta.GeneratedAt.
func (s *Statistics) GeneratedTime() (time.Time, error) {
	t, err := time.Parse(timeLayout, s.Meta.GeneratedAt)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "artifact: parse generatedAt")
	}
	return t, nil
}

// Write stores the document as StatsFile in dir and returns its path.
func Write(dir string, s *Statistics) (string, error) {
	path := filepath.Join(dir, StatsFile)
	if err := WriteFile(path, s); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile stores the document at path, creating its directory.
func WriteFile(path string, s *Statistics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create dir for %s", path)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "artifact: marshal statistics")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "artifact: write %s", path)
	}
	return nil
}

// Read loads a document written by Write.
func Read(path string) (*Statistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	var s Statistics
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "artifact: decode %s", path)
	}
	if s.Global == nil {
		s.Global = stats.NewCounters()
	}
	if s.Colonias == nil {
		s.Colonias = stats.Group{}
	}
	if s.Secciones == nil {
		s.Secciones = stats.Group{}
	}
	return &s, nil
}
