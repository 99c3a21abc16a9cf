// Package config loads and validates the extractor's configuration,
// following the TOML-or-JSON-plus-env-overlay convention named in spec.md
// §6.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/jward/pboindex/internal/parse/scriptdialect"
	"github.com/jward/pboindex/internal/perr"
)

// Config is the full set of options recognised by spec.md §6.
type Config struct {
	GameDataDirs        []string `toml:"game_data_dirs" json:"game_data_dirs" env:"GAME_DATA_DIRS" envSeparator:","`
	MissionDirs         []string `toml:"mission_dirs" json:"mission_dirs" env:"MISSION_DIRS" envSeparator:","`
	GameDataExtensions  []string `toml:"game_data_extensions" json:"game_data_extensions" env:"GAME_DATA_EXTENSIONS" envSeparator:","`
	MissionExtensions   []string `toml:"mission_extensions" json:"mission_extensions" env:"MISSION_EXTENSIONS" envSeparator:","`
	CacheDir            string   `toml:"cache_dir" json:"cache_dir" env:"CACHE_DIR"`
	AnalysisDBPath      string   `toml:"analysis_database_path" json:"analysis_database_path" env:"ANALYSIS_DATABASE_PATH"`
	ExtractorDBPath     string   `toml:"extractor_database_path" json:"extractor_database_path" env:"EXTRACTOR_DATABASE_PATH"`
	Threads             int      `toml:"threads" json:"threads" env:"THREADS" envDefault:"4"`
	MaxConnections      int      `toml:"max_connections" json:"max_connections" env:"MAX_CONNECTIONS" envDefault:"10"`
	BusyTimeoutMs       int      `toml:"busy_timeout_ms" json:"busy_timeout_ms" env:"BUSY_TIMEOUT_MS" envDefault:"5000"`
	UseWAL              bool     `toml:"use_wal" json:"use_wal" env:"USE_WAL" envDefault:"true"`
	CacheSize           int      `toml:"cache_size" json:"cache_size" env:"CACHE_SIZE" envDefault:"-2000"`
	Synchronous         int      `toml:"synchronous" json:"synchronous" env:"SYNCHRONOUS" envDefault:"1"`
	ExtractionTimeoutS  int      `toml:"extraction_timeout_s" json:"extraction_timeout_s" env:"EXTRACTION_TIMEOUT_S" envDefault:"60"`
	ParserMode          string   `toml:"parser_mode" json:"parser_mode" env:"PARSER_MODE" envDefault:"advanced"`
	VerbSet             []string `toml:"verb_set" json:"verb_set" env:"VERB_SET" envSeparator:","`
	FuzzyThreshold      float64  `toml:"fuzzy_threshold" json:"fuzzy_threshold" env:"FUZZY_THRESHOLD" envDefault:"0.8"`
	FuzzyTopN           int      `toml:"fuzzy_top_n" json:"fuzzy_top_n" env:"FUZZY_TOP_N" envDefault:"5"`
}

// EnvPrefix is the common prefix applied to every environment-variable
// override (spec.md §6: "env-var overlay with a common prefix").
const EnvPrefix = "PBOINDEX_"

// DefaultVerbSet is used when verb_set is empty in every source, matching
// the script-reference-extractor default verb list (spec.md §4.5).
var DefaultVerbSet = scriptdialect.DefaultVerbs

// Load reads path (TOML or JSON, selected by extension) and applies the
// PBOINDEX_-prefixed environment overlay, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if strings.HasSuffix(path, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s as json: %w", path, err)
			}
		} else {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s as toml: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("apply env overlay: %w", err)
	}

	if len(cfg.VerbSet) == 0 {
		cfg.VerbSet = DefaultVerbSet
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the rules in spec.md §6: threads > 0; at least one of
// game_data_dirs/mission_dirs non-empty; cache_dir writable; thresholds in
// [0, 1].
func (c *Config) Validate() error {
	if c.Threads <= 0 {
		return perr.Validation("threads", fmt.Errorf("config: threads must be > 0, got %d", c.Threads))
	}
	if len(c.GameDataDirs) == 0 && len(c.MissionDirs) == 0 {
		return perr.Validation("game_data_dirs", fmt.Errorf("config: at least one of game_data_dirs or mission_dirs must be set"))
	}
	if c.CacheDir == "" {
		return perr.Validation("cache_dir", fmt.Errorf("config: cache_dir is required"))
	}
	if err := checkWritable(c.CacheDir); err != nil {
		return perr.Validation("cache_dir", fmt.Errorf("config: cache_dir %s not writable: %w", c.CacheDir, err))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return perr.Validation("fuzzy_threshold", fmt.Errorf("config: fuzzy_threshold must be in [0, 1], got %f", c.FuzzyThreshold))
	}
	if c.ParserMode != "simple" && c.ParserMode != "advanced" {
		return perr.Validation("parser_mode", fmt.Errorf("config: parser_mode must be \"simple\" or \"advanced\", got %q", c.ParserMode))
	}
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// ExtractorDBPathOrDefault returns the configured extractor DB path, or the
// default location beneath cache_dir (spec.md §6 cache layout).
func (c *Config) ExtractorDBPathOrDefault() string {
	if c.ExtractorDBPath != "" {
		return c.ExtractorDBPath
	}
	return c.CacheDir + "/extractor.db"
}

// AnalysisDBPathOrDefault returns the configured analysis DB path, or the
// same file as the extractor DB when no override is given.
func (c *Config) AnalysisDBPathOrDefault() string {
	if c.AnalysisDBPath != "" {
		return c.AnalysisDBPath
	}
	return c.ExtractorDBPathOrDefault()
}
