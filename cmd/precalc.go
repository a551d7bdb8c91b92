package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geostats-cli/internal/artifact"
	"github.com/sells-group/geostats-cli/internal/config"
	"github.com/sells-group/geostats-cli/internal/dataset"
	"github.com/sells-group/geostats-cli/internal/fields"
	"github.com/sells-group/geostats-cli/internal/layer"
	"github.com/sells-group/geostats-cli/internal/normalize"
	"github.com/sells-group/geostats-cli/internal/pipeline"
	"github.com/sells-group/geostats-cli/internal/report"
	"github.com/sells-group/geostats-cli/internal/spatial"
	"github.com/sells-group/geostats-cli/internal/store"
)

var precalcCmd = &cobra.Command{
	Use:   "precalc",
	Short: "Assign requests to neighborhoods and precompute statistics",
	Long: "Validates request coordinates, rewrites each request's neighborhood from the polygon that contains it, " +
		"aggregates counts by neighborhood, section, month, type and status, classifies requests on primary roads, " +
		"and writes the statistics artifact plus enriched reference layers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyPrecalcFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate("precalc"); err != nil {
			return err
		}

		var st store.Store
		if persist, _ := cmd.Flags().GetBool("persist"); persist {
			if err := cfg.Validate("runs"); err != nil {
				return eris.Wrap(err, "precalc: --persist")
			}
			s, err := initStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			st = s
		}

		out, err := runPrecalc(ctx, cfg, st, time.Now())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Run %s: %d requests aggregated, %d neighborhood values updated\n",
			out.Stats.Meta.RunID, out.Stats.Meta.Records, out.Stats.Meta.Updated)
		for _, f := range out.Files {
			fmt.Fprintf(os.Stdout, "  wrote %s\n", f)
		}
		return nil
	},
}

func init() {
	f := precalcCmd.Flags()
	f.String("points", "", "point dataset (GeoJSON FeatureCollection)")
	f.String("colonias", "", "neighborhood polygons (GeoJSON or shapefile)")
	f.String("secciones", "", "electoral section polygons (GeoJSON or shapefile)")
	f.String("vialidades", "", "road polygons (GeoJSON or shapefile)")
	f.String("out", "", "output directory")
	f.Bool("in-place", false, "overwrite the point dataset instead of writing a copy to the output directory")
	f.Int("workers", 0, "number of parallel workers (default from config)")
	f.Bool("xlsx", false, "also write an estadisticas.xlsx report")
	f.Bool("persist", false, "save the run and its statistics to the configured store")
	rootCmd.AddCommand(precalcCmd)
}

// applyPrecalcFlags copies explicitly set flags over the loaded config.
func applyPrecalcFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	strs := map[string]*string{
		"points":     &c.Input.Points,
		"colonias":   &c.Input.Colonias,
		"secciones":  &c.Input.Secciones,
		"vialidades": &c.Input.Vialidades,
		"out":        &c.Output.Dir,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if flags.Changed("in-place") {
		c.Output.InPlace, _ = flags.GetBool("in-place")
	}
	if flags.Changed("xlsx") {
		c.Output.XLSX, _ = flags.GetBool("xlsx")
	}
	if flags.Changed("workers") {
		c.Pipeline.Workers, _ = flags.GetInt("workers")
	}
	return nil
}

// precalcOutput describes a finished precalculation.
type precalcOutput struct {
	Stats *artifact.Statistics
	// PointsPath is empty when no neighborhood value changed.
	PointsPath string
	Files      []string
}

// runPrecalc runs every pass and writes the artifacts. Nothing is written
// unless the passes succeed. A nil st skips persistence.
func runPrecalc(ctx context.Context, c *config.Config, st store.Store, now time.Time) (*precalcOutput, error) {
	runID := uuid.New()
	log := zap.L().With(zap.String("run_id", runID.String()))

	if st != nil {
		if _, err := st.CreateRun(ctx, runID.String(), c.Input.Points); err != nil {
			return nil, eris.Wrap(err, "precalc: create run")
		}
	}

	out, err := precalc(ctx, c, runID, now, log)
	if err == nil && st != nil {
		err = persist(ctx, st, out.Stats)
	}
	if err != nil {
		if st != nil {
			if ferr := st.FailRun(ctx, runID.String(), err.Error()); ferr != nil {
				log.Error("precalc: record failure", zap.Error(ferr))
			}
		}
		return nil, err
	}
	return out, nil
}

func precalc(ctx context.Context, c *config.Config, runID uuid.UUID, now time.Time, log *zap.Logger) (*precalcOutput, error) {
	in := c.Input

	points, err := dataset.Load(in.Points, in.Encoding)
	if err != nil {
		return nil, err
	}
	log.Info("precalc: loaded requests", zap.String("path", in.Points), zap.Int("features", len(points.Features)))

	candidates, err := fields.LoadCandidates(c.Fields.CandidatesFile)
	if err != nil {
		return nil, err
	}
	mapping, err := fields.Resolve(points.Features[0].Properties, candidates, fields.Mapping{
		Neighborhood: c.Fields.Neighborhood,
		Name:         c.Fields.Name,
		Section:      c.Fields.Section,
		Type:         c.Fields.Type,
		Status:       c.Fields.Status,
		Month:        c.Fields.Month,
		Date:         c.Fields.Date,
	})
	if err != nil {
		return nil, err
	}
	log.Info("precalc: resolved columns",
		zap.String("colonia", mapping.Neighborhood),
		zap.String("name", mapping.Name),
		zap.String("seccion", mapping.Section),
		zap.String("tipo", mapping.Type),
		zap.String("estado", mapping.Status),
		zap.String("mes", mapping.Month),
		zap.String("fecha", mapping.Date),
	)

	colonias, err := loadLayer(in.Colonias, in.Encoding, "colonias")
	if err != nil {
		return nil, err
	}
	secciones, err := loadLayer(in.Secciones, in.Encoding, "secciones")
	if err != nil {
		return nil, err
	}
	vialidades, err := loadLayer(in.Vialidades, in.Encoding, "vialidades")
	if err != nil {
		return nil, err
	}

	var join *spatial.Join
	if colonias != nil {
		label := fields.Find(colonias.SampleProperties(), candidates.NeighborhoodJoin)
		if label == "" {
			log.Warn("precalc: colonias layer has no label field, spatial join disabled",
				zap.Strings("candidates", candidates.NeighborhoodJoin))
		} else {
			join = spatial.NewJoin(colonias.Entries(label), mapping.Neighborhood, mapping.Name)
			log.Info("precalc: neighborhood polygons indexed", zap.String("label", label), zap.Int("rings", join.Len()))
		}
	}

	var roads *spatial.RoadIndex
	if vialidades != nil {
		roads = spatial.NewRoadIndex(vialidades.RoadFeatures(), c.Fields.RoadType)
		log.Info("precalc: primary roads indexed", zap.Int("rings", roads.Len()))
	}

	res, err := pipeline.New(mapping, join, roads, pipeline.Options{
		Workers:            c.Pipeline.Workers,
		ProgressEvery:      c.Pipeline.ProgressEvery,
		InvalidSampleLimit: c.Pipeline.InvalidSampleLimit,
	}).Run(ctx, points.Features)
	if err != nil {
		return nil, err
	}

	s := artifact.Build(runID, in.Points, mapping, res, now)

	dir := c.Output.Dir
	if dir == "" {
		dir = filepath.Dir(in.Points)
	}

	// Outputs are staged and moved into place together once all are written.
	stage := artifact.NewStage(runID.String())
	defer stage.Discard()

	if err := artifact.WriteFile(stage.Path(filepath.Join(dir, artifact.StatsFile)), s); err != nil {
		return nil, err
	}

	var pointsPath string
	if points.Updated() > 0 {
		pointsPath = in.Points
		if !c.Output.InPlace {
			pointsPath = filepath.Join(dir, filepath.Base(in.Points))
		}
		if err := points.Save(stage.Path(pointsPath)); err != nil {
			return nil, err
		}
	} else {
		log.Info("precalc: no neighborhood values changed, request file left untouched")
	}

	if colonias != nil {
		path := stage.Path(filepath.Join(dir, artifact.ColoniasFile))
		if err := enrich(colonias, candidates.NeighborhoodEnrich, normalize.NeighborhoodKey, path); err != nil {
			return nil, err
		}
	}
	if secciones != nil {
		path := stage.Path(filepath.Join(dir, artifact.SeccionesFile))
		if err := enrich(secciones, candidates.SectionEnrich, normalize.SectionKey, path); err != nil {
			return nil, err
		}
	}

	if c.Output.XLSX {
		if err := report.Write(stage.Path(filepath.Join(dir, artifact.ReportFile)), s); err != nil {
			return nil, err
		}
	}

	files, err := stage.Commit()
	if err != nil {
		return nil, err
	}
	return &precalcOutput{Stats: s, PointsPath: pointsPath, Files: files}, nil
}

// loadLayer returns nil without error when path is empty or missing.
func loadLayer(path, charset, name string) (*layer.Layer, error) {
	if path == "" {
		zap.L().Warn("precalc: layer not configured", zap.String("layer", name))
		return nil, nil
	}
	l, err := layer.Load(path, charset)
	if errors.Is(err, layer.ErrNotFound) {
		zap.L().Warn("precalc: layer not found, skipping", zap.String("layer", name), zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("precalc: loaded layer",
		zap.String("layer", name),
		zap.Int("features", len(l.Features)),
		zap.Int("skipped", l.Skipped),
	)
	return l, nil
}

// enrich tags every layer feature with its grouping key and saves the layer.
func enrich(l *layer.Layer, candidates []string, keyFn func(any) string, path string) error {
	label := fields.Find(l.SampleProperties(), candidates)
	if label == "" {
		zap.L().Warn("precalc: no label field for enrichment, every feature gets the sentinel key",
			zap.String("path", path), zap.Strings("candidates", candidates))
	}
	l.Annotate(label, keyFn)
	return l.Save(path)
}

func persist(ctx context.Context, st store.Store, s *artifact.Statistics) error {
	n, err := st.SaveStatistics(ctx, s.Meta.RunID, s)
	if err != nil {
		return eris.Wrap(err, "precalc: save statistics")
	}
	if err := st.CompleteRun(ctx, s.Meta.RunID, store.SummaryOf(s)); err != nil {
		return eris.Wrap(err, "precalc: complete run")
	}
	zap.L().Info("precalc: run persisted", zap.String("run_id", s.Meta.RunID), zap.Int64("rows", n))
	return nil
}
