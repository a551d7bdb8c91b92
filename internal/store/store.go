package store

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geostats-cli/internal/artifact"
	"github.com/sells-group/geostats-cli/internal/normalize"
	"github.com/sells-group/geostats-cli/internal/spatial"
	"github.com/sells-group/geostats-cli/internal/stats"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunStatus is the lifecycle state of a precalculation run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Entity kinds stored in stat_entities.
const (
	KindGlobal       = "global"
	KindNeighborhood = "colonia"
	KindSection      = "seccion"
)

// Run is one persisted precalculation run.
type Run struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary is the headline result of a completed run.
type RunSummary struct {
	Records    int                 `json:"records"`
	Updated    int                 `json:"updated"`
	Overridden int                 `json:"overridden"`
	Coords     stats.CoordStats    `json:"coords"`
	Vialidades spatial.RoadSummary `json:"vialidades"`
}

// SummaryOf extracts the RunSummary of a statistics document.
func SummaryOf(s *artifact.Statistics) *RunSummary {
	return &RunSummary{
		Records:    s.Meta.Records,
		Updated:    s.Meta.Updated,
		Overridden: s.Meta.Overridden,
		Coords:     s.Meta.Coords,
		Vialidades: s.Meta.Vialidades,
	}
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// EntityTotal is the request total of one neighborhood or section.
type EntityTotal struct {
	Kind  string `json:"kind"`
	Key   string `json:"key"`
	Label string `json:"label"`
	Total int    `json:"total"`
}

// Store persists precalculation runs and their statistics.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, id, source string) (*Run, error)
	CompleteRun(ctx context.Context, id string, summary *RunSummary) error
	FailRun(ctx context.Context, id string, reason string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Statistics
	SaveStatistics(ctx context.Context, runID string, s *artifact.Statistics) (int64, error)
	TopEntities(ctx context.Context, runID, kind string, limit int) ([]EntityTotal, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var (
	entityColumns = []string{"run_id", "kind", "key", "label", "total"}
	countColumns  = []string{"run_id", "kind", "key", "dimension", "value", "count"}
)

// statisticsRows flattens a statistics document into stat_entities and
// stat_counts rows. The global bundle is stored with kind "global" and an
// empty key.
func statisticsRows(runID string, s *artifact.Statistics) (entities, counts [][]any) {
	add := func(kind, key, label string, c *stats.Counters) {
		entities = append(entities, []any{runID, kind, key, label, c.Total})
		dims := c.Dimensions()
		names := make([]string, 0, len(dims))
		for name := range dims {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, dim := range names {
			counter := dims[dim]
			for _, value := range counter.Keys() {
				counts = append(counts, []any{runID, kind, key, dim, value, counter[value]})
			}
		}
	}

	if s.Global != nil {
		add(KindGlobal, "", "", s.Global)
	}
	for _, key := range s.Colonias.Keys() {
		e := s.Colonias[key]
		add(KindNeighborhood, key, normalize.Text(e.Label), &e.Counters)
	}
	for _, key := range s.Secciones.Keys() {
		e := s.Secciones[key]
		add(KindSection, key, normalize.Text(e.Label), &e.Counters)
	}
	return entities, counts
}

func listLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
