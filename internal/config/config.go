package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Fields   FieldsConfig   `yaml:"fields" mapstructure:"fields"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the point dataset and the reference layers.
type InputConfig struct {
	Points     string `yaml:"points" mapstructure:"points"`
	Colonias   string `yaml:"colonias" mapstructure:"colonias"`
	Secciones  string `yaml:"secciones" mapstructure:"secciones"`
	Vialidades string `yaml:"vialidades" mapstructure:"vialidades"`
	// Encoding is the charset of every input file (e.g. windows-1252).
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	InPlace bool   `yaml:"in_place" mapstructure:"in_place"`
	XLSX    bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// FieldsConfig configures property name resolution.
type FieldsConfig struct {
	RoadType       string `yaml:"road_type" mapstructure:"road_type"`
	CandidatesFile string `yaml:"candidates_file" mapstructure:"candidates_file"`

	// Explicit property names; empty entries are resolved from candidates.
	Neighborhood string `yaml:"colonia" mapstructure:"colonia"`
	Name         string `yaml:"name" mapstructure:"name"`
	Section      string `yaml:"seccion" mapstructure:"seccion"`
	Type         string `yaml:"tipo" mapstructure:"tipo"`
	Status       string `yaml:"estado" mapstructure:"estado"`
	Month        string `yaml:"mes" mapstructure:"mes"`
	Date         string `yaml:"fecha" mapstructure:"fecha"`
}

// PipelineConfig tunes the processing passes.
type PipelineConfig struct {
	Workers            int `yaml:"workers" mapstructure:"workers"`
	ProgressEvery      int `yaml:"progress_every" mapstructure:"progress_every"`
	InvalidSampleLimit int `yaml:"invalid_sample_limit" mapstructure:"invalid_sample_limit"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.points", "archivos/solicitudes/Solicitudes.geojson")
	v.SetDefault("input.colonias", "archivos/vectores/colonias_wgs84_geojson_renombrado.geojson")
	v.SetDefault("input.secciones", "archivos/vectores/secciones.geojson")
	v.SetDefault("input.vialidades", "archivos/vectores/vialidades.geojson")
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("output.dir", "archivos/precalculos")
	v.SetDefault("output.in_place", false)
	v.SetDefault("output.xlsx", false)
	v.SetDefault("fields.road_type", "TIPO_VIA")
	v.SetDefault("fields.candidates_file", "")
	for _, role := range []string{"colonia", "name", "seccion", "tipo", "estado", "mes", "fecha"} {
		v.SetDefault("fields."+role, "")
	}
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.progress_every", 5000)
	v.SetDefault("pipeline.invalid_sample_limit", 100)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is one of
// "precalc", "serve" or "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "precalc":
		if c.Input.Points == "" {
			errs = append(errs, "input.points is required")
		}
		if c.Output.Dir == "" && !c.Output.InPlace {
			errs = append(errs, "output.dir is required")
		}
		if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
			errs = append(errs, fmt.Sprintf("pipeline.workers must be between 1 and 64, got %d", c.Pipeline.Workers))
		}
		if c.Pipeline.InvalidSampleLimit < 0 {
			errs = append(errs, "pipeline.invalid_sample_limit must be >= 0")
		}
		errs = append(errs, c.storeErrors(false)...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
	case "runs":
		errs = append(errs, c.storeErrors(true)...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) storeErrors(required bool) []string {
	var errs []string
	switch c.Store.Driver {
	case "", "none":
		if required {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of none, sqlite, postgres", c.Store.Driver))
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
