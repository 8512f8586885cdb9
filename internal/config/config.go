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
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Match    MatchConfig    `yaml:"match" mapstructure:"match"`
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Tiger    TigerConfig    `yaml:"tiger" mapstructure:"tiger"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MatchConfig tunes the matcher.
type MatchConfig struct {
	Workers           int `yaml:"workers" mapstructure:"workers"`
	ProgressEvery     int `yaml:"progress_every" mapstructure:"progress_every"`
	IndexNodeCapacity int `yaml:"index_node_capacity" mapstructure:"index_node_capacity"`
}

// InputConfig names the attributes read from source and target files.
type InputConfig struct {
	SourceIDField     string `yaml:"source_id_field" mapstructure:"source_id_field"`
	SourceRegionField string `yaml:"source_region_field" mapstructure:"source_region_field"`
	TargetIDField     string `yaml:"target_id_field" mapstructure:"target_id_field"`
	TempDir           string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// OutputConfig selects the sink.
type OutputConfig struct {
	Format     string `yaml:"format" mapstructure:"format"`
	Table      string `yaml:"table" mapstructure:"table"`
	Truncate   bool   `yaml:"truncate" mapstructure:"truncate"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// PostgresConfig is used for PostGIS sources and the postgres sink.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DatasetConfig points at an optional dataset descriptor.
type DatasetConfig struct {
	Descriptor string `yaml:"descriptor" mapstructure:"descriptor"`
}

// TigerConfig configures the block downloader.
type TigerConfig struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// Output formats.
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatPostgres = "postgres"
	FormatSQLite   = "sqlite"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("blockassign")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BLOCKASSIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("match.workers", 1)
	v.SetDefault("match.progress_every", 100)
	v.SetDefault("match.index_node_capacity", 10)
	v.SetDefault("input.source_id_field", "id")
	v.SetDefault("input.source_region_field", "")
	v.SetDefault("input.target_id_field", "GEOID20")
	v.SetDefault("input.temp_dir", "")
	v.SetDefault("output.format", FormatCSV)
	v.SetDefault("output.table", "block_assignments")
	v.SetDefault("output.truncate", false)
	v.SetDefault("output.sqlite_path", "blockassign.db")
	v.SetDefault("postgres.database_url", "")
	v.SetDefault("dataset.descriptor", "")
	v.SetDefault("tiger.year", 2020)
	v.SetDefault("tiger.temp_dir", "/tmp/tiger")

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

// Validate checks the settings a command needs. mode is "map" or "fetch".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "map":
		if c.Match.Workers < 1 {
			errs = append(errs, fmt.Sprintf("match.workers must be >= 1, got %d", c.Match.Workers))
		}
		if c.Match.IndexNodeCapacity < 2 {
			errs = append(errs, fmt.Sprintf("match.index_node_capacity must be >= 2, got %d", c.Match.IndexNodeCapacity))
		}
		switch c.Output.Format {
		case FormatCSV, FormatXLSX:
		case FormatPostgres:
			if c.Postgres.DatabaseURL == "" {
				errs = append(errs, "postgres.database_url is required for output.format postgres")
			}
		case FormatSQLite:
			if c.Output.SQLitePath == "" {
				errs = append(errs, "output.sqlite_path is required for output.format sqlite")
			}
		default:
			errs = append(errs, fmt.Sprintf("output.format %q is not one of csv, xlsx, postgres, sqlite", c.Output.Format))
		}
	case "fetch":
		if c.Tiger.Year <= 0 {
			errs = append(errs, fmt.Sprintf("tiger.year must be positive, got %d", c.Tiger.Year))
		}
		if c.Tiger.TempDir == "" {
			errs = append(errs, "tiger.temp_dir is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
