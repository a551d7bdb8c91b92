package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/geostats-cli/internal/dataset"
	"github.com/sells-group/geostats-cli/internal/fields"
	"github.com/sells-group/geostats-cli/internal/month"
	"github.com/sells-group/geostats-cli/internal/normalize"
	"github.com/sells-group/geostats-cli/internal/spatial"
	"github.com/sells-group/geostats-cli/internal/stats"
)

// DefaultProgressEvery is the progress logging interval in features.
const DefaultProgressEvery = 5000

// Options tunes a pipeline run.
type Options struct {
	// Workers splits the features into that many contiguous chunks. Values
	// below 1 run sequentially.
	Workers            int
	ProgressEvery      int
	InvalidSampleLimit int
}

// Result is the outcome of one run.
type Result struct {
	Stats *stats.Aggregation
	Roads spatial.RoadSummary
	// Updated counts requests whose neighborhood property was rewritten.
	Updated int
	// Overridden counts rewrites decided by the name property.
	Overridden int
	Duration   time.Duration
}

// Pipeline runs the coordinate validation, spatial join, aggregation and
// road classification passes over a point collection.
type Pipeline struct {
	mapping fields.Mapping
	join    *spatial.Join
	roads   *spatial.RoadIndex
	opts    Options
}

// New creates a Pipeline. A nil join still applies the name override; a
// nil road index classifies every request with coordinates as local.
func New(mapping fields.Mapping, join *spatial.Join, roads *spatial.RoadIndex, opts Options) *Pipeline {
	if join == nil {
		join = spatial.NewJoin(nil, mapping.Neighborhood, mapping.Name)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Pipeline{mapping: mapping, join: join, roads: roads, opts: opts}
}

type partial struct {
	agg        *stats.Aggregation
	roads      spatial.RoadSummary
	updated    int
	overridden int
}

// Run processes features and returns the merged result. Features are
// mutated in place: rewritten neighborhood properties are marked dirty.
func (p *Pipeline) Run(ctx context.Context, features []*dataset.Feature) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.Int("features", len(features)), zap.Int("workers", p.opts.Workers))
	log.Info("pipeline: processing requests")

	chunks := split(features, p.opts.Workers)
	parts := make([]*partial, len(chunks))

	var processed atomic.Int64
	progress := &rate.Sometimes{Every: p.opts.ProgressEvery}

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			part, err := p.process(gctx, chunk, func() {
				n := processed.Add(1)
				progress.Do(func() {
					if n > 1 {
						log.Info("pipeline: progress", zap.Int64("processed", n))
					}
				})
			})
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run")
	}

	res := &Result{Stats: stats.New(p.opts.InvalidSampleLimit)}
	for _, part := range parts {
		res.Stats.Merge(part.agg)
		res.Roads.Merge(part.roads)
		res.Updated += part.updated
		res.Overridden += part.overridden
	}
	res.Roads.Finish()
	res.Duration = time.Since(start)

	log.Info("pipeline: done",
		zap.Int("records", res.Stats.Global.Total),
		zap.Int("updated", res.Updated),
		zap.Int("overridden", res.Overridden),
		zap.Int("missing_coords", res.Stats.Coords.Missing),
		zap.Int("invalid_coords", res.Stats.Coords.Invalid),
		zap.Int("primarias", res.Roads.Primarias),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, features []*dataset.Feature, tick func()) (*partial, error) {
	part := &partial{agg: stats.New(p.opts.InvalidSampleLimit)}
	for i, f := range features {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p.processOne(part, f)
		part.roads.Add(p.roads.Classify(f.Coordinates))
		tick()
	}
	return part, nil
}

func (p *Pipeline) processOne(part *partial, f *dataset.Feature) {
	agg := part.agg
	props := f.Properties
	agg.Seen()

	pt, outcome := spatial.Validate(f.Coordinates)
	switch outcome {
	case spatial.OutcomeMissing:
		agg.MissingCoords()
		return
	case spatial.OutcomeInvalidRange, spatial.OutcomeInvalidFormat:
		agg.InvalidCoords(stats.InvalidCoord{
			Index:        f.Index,
			Neighborhood: props[p.mapping.Neighborhood],
			Coords:       f.Coordinates,
			Reason:       outcome.String(),
		}, outcome == spatial.OutcomeInvalidRange)
		return
	}
	agg.Valid()

	out := p.join.Apply(props, pt)
	if out.Changed() {
		f.Touch(p.mapping.Neighborhood)
		part.updated++
		if out.Overridden {
			part.overridden++
		}
		if part.updated <= 5 {
			zap.L().Debug("pipeline: neighborhood rewritten",
				zap.Int("idx", f.Index),
				zap.Any("from", out.Previous),
				zap.Any("to", out.Current),
			)
		}
	}

	neighborhood := props[p.mapping.Neighborhood]
	section := props[p.mapping.Section]
	agg.Record(stats.Observation{
		NeighborhoodKey:   normalize.NeighborhoodKey(neighborhood),
		NeighborhoodLabel: neighborhood,
		SectionKey:        normalize.SectionKey(section),
		SectionLabel:      section,
		Month:             p.month(props),
		Type:              textOr(props[p.mapping.Type], normalize.NoType),
		Status:            textOr(props[p.mapping.Status], normalize.NoStatus),
	})
}

// month resolves the month property. The date property is only consulted
// when the dataset has no month column at all.
func (p *Pipeline) month(props map[string]any) string {
	field := p.mapping.Month
	if field == "" {
		field = p.mapping.Date
	}
	if field == "" {
		return normalize.NoMonth
	}
	return month.OrDefault(props[field])
}

func textOr(v any, fallback string) string {
	if !normalize.Truthy(v) {
		return fallback
	}
	return normalize.Text(v)
}

// split cuts features into at most n contiguous chunks of near-equal size.
func split(features []*dataset.Feature, n int) [][]*dataset.Feature {
	if n < 1 {
		n = 1
	}
	if n > len(features) {
		n = len(features)
	}
	if n <= 1 {
		return [][]*dataset.Feature{features}
	}
	size := (len(features) + n - 1) / n
	out := make([][]*dataset.Feature, 0, n)
	for start := 0; start < len(features); start += size {
		end := min(start+size, len(features))
		out = append(out, features[start:end])
	}
	return out
}
