package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. SIMREC_LSH_BAND_WIDTH=4.
const EnvPrefix = "SIMREC"

// Config represents the main configuration structure
type Config struct {
	// MinHash holds signature settings
	MinHash MinHashConfig `mapstructure:"minhash" toml:"minhash" yaml:"minhash"`

	// LSH holds banding settings
	LSH LSHConfig `mapstructure:"lsh" toml:"lsh" yaml:"lsh"`

	// Recommend holds ranking and item recommendation settings
	Recommend RecommendConfig `mapstructure:"recommend" toml:"recommend" yaml:"recommend"`

	// Evaluate holds estimation accuracy settings
	Evaluate EvaluateConfig `mapstructure:"evaluate" toml:"evaluate" yaml:"evaluate"`

	// Input holds ratings file settings
	Input InputConfig `mapstructure:"input" toml:"input" yaml:"input"`

	// Output holds output formatting configuration
	Output OutputConfig `mapstructure:"output" toml:"output" yaml:"output"`

	// Performance holds worker settings
	Performance PerformanceConfig `mapstructure:"performance" toml:"performance" yaml:"performance"`

	// Server holds HTTP API settings
	Server ServerConfig `mapstructure:"server" toml:"server" yaml:"server"`

	// Logging holds logger settings
	Logging LoggingConfig `mapstructure:"logging" toml:"logging" yaml:"logging"`
}

// MinHashConfig holds signature settings
type MinHashConfig struct {
	// NumHashes is the signature length
	NumHashes int `mapstructure:"n_hashes" toml:"n_hashes" yaml:"n_hashes"`

	// Seed seeds the hash coefficients; corpora are only comparable under the same seed
	Seed uint64 `mapstructure:"seed" toml:"seed" yaml:"seed"`
}

// LSHConfig holds banding settings
type LSHConfig struct {
	// BandWidth is the number of rows per band; it must divide n_hashes
	BandWidth int `mapstructure:"band_width" toml:"band_width" yaml:"band_width"`

	// MinBandMatches is how many band-buckets a candidate must share with the query
	MinBandMatches int `mapstructure:"min_band_matches" toml:"min_band_matches" yaml:"min_band_matches"`
}

// RecommendConfig holds ranking settings
type RecommendConfig struct {
	TopK                int     `mapstructure:"top_k" toml:"top_k" yaml:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" toml:"similarity_threshold" yaml:"similarity_threshold"`
	ScoreMode           string  `mapstructure:"score_mode" toml:"score_mode" yaml:"score_mode"` // "signature", "jaccard"
	ItemCount           int     `mapstructure:"item_count" toml:"item_count" yaml:"item_count"`
	ItemWeighting       string  `mapstructure:"item_weighting" toml:"item_weighting" yaml:"item_weighting"` // "mean", "similarity"
}

// EvaluateConfig holds estimation accuracy settings
type EvaluateConfig struct {
	SampleSize int     `mapstructure:"sample_size" toml:"sample_size" yaml:"sample_size"`
	Threshold  float64 `mapstructure:"threshold" toml:"threshold" yaml:"threshold"`
	MaxResults int     `mapstructure:"max_results" toml:"max_results" yaml:"max_results"`
}

// InputConfig holds ratings file settings
type InputConfig struct {
	// Paths are files or directories read when no paths are given on the command line
	Paths []string `mapstructure:"paths" toml:"paths" yaml:"paths"`

	// IncludePatterns and ExcludePatterns are doublestar globs applied inside directories
	IncludePatterns []string `mapstructure:"include_patterns" toml:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" toml:"exclude_patterns" yaml:"exclude_patterns"`

	// Snapshot, when set, is loaded instead of reading ratings files
	Snapshot string `mapstructure:"snapshot" toml:"snapshot" yaml:"snapshot"`

	EntityColumn string  `mapstructure:"entity_column" toml:"entity_column" yaml:"entity_column"`
	ItemColumn   string  `mapstructure:"item_column" toml:"item_column" yaml:"item_column"`
	RatingColumn string  `mapstructure:"rating_column" toml:"rating_column" yaml:"rating_column"`
	MinRating    float64 `mapstructure:"min_rating" toml:"min_rating" yaml:"min_rating"`
	Delimiter    string  `mapstructure:"delimiter" toml:"delimiter" yaml:"delimiter"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml, csv
	Format string `mapstructure:"format" toml:"format" yaml:"format"`

	// ShowDetails adds exact Jaccard similarity to ranked results
	ShowDetails bool `mapstructure:"show_details" toml:"show_details" yaml:"show_details"`
}

// PerformanceConfig holds worker settings
type PerformanceConfig struct {
	// Workers bounds parallel signature building; 0 means one per CPU
	Workers int `mapstructure:"workers" toml:"workers" yaml:"workers"`

	// TimeoutSeconds bounds a corpus build
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Address            string `mapstructure:"address" toml:"address" yaml:"address"`
	CacheSize          int    `mapstructure:"cache_size" toml:"cache_size" yaml:"cache_size"`
	ReadTimeoutSeconds int    `mapstructure:"read_timeout_seconds" toml:"read_timeout_seconds" yaml:"read_timeout_seconds"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level" yaml:"level"`
	Format string `mapstructure:"format" toml:"format" yaml:"format"` // "console", "json"
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		MinHash: MinHashConfig{
			NumHashes: domain.DefaultNumHashes,
			Seed:      domain.DefaultSeed,
		},
		LSH: LSHConfig{
			BandWidth:      domain.DefaultBandWidth,
			MinBandMatches: domain.DefaultMinBandMatches,
		},
		Recommend: RecommendConfig{
			TopK:                domain.DefaultTopK,
			SimilarityThreshold: domain.DefaultSimilarityThreshold,
			ScoreMode:           domain.DefaultScoreMode,
			ItemCount:           domain.DefaultItemCount,
			ItemWeighting:       domain.DefaultItemWeighting,
		},
		Evaluate: EvaluateConfig{
			SampleSize: domain.DefaultEvalSampleSize,
			Threshold:  domain.DefaultEvalThreshold,
			MaxResults: domain.DefaultEvalMaxResults,
		},
		Input: InputConfig{
			Paths:           []string{},
			IncludePatterns: append([]string(nil), domain.DefaultIncludePatterns...),
			ExcludePatterns: []string{},
			EntityColumn:    domain.DefaultEntityColumn,
			ItemColumn:      domain.DefaultItemColumn,
			RatingColumn:    domain.DefaultRatingColumn,
			MinRating:       domain.DefaultMinRating,
			Delimiter:       domain.DefaultDelimiter,
		},
		Output: OutputConfig{
			Format:      string(domain.OutputFormatText),
			ShowDetails: false,
		},
		Performance: PerformanceConfig{
			Workers:        domain.DefaultWorkers,
			TimeoutSeconds: domain.DefaultTimeoutSeconds,
		},
		Server: ServerConfig{
			Address:            domain.DefaultServerAddress,
			CacheSize:          domain.DefaultCacheSize,
			ReadTimeoutSeconds: domain.DefaultReadTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level:  domain.DefaultLogLevel,
			Format: domain.DefaultLogFormat,
		},
	}
}

// LoadConfig resolves the configuration for a run. Values are layered as
// defaults, then the discovered .simrec.toml (searched upwards from
// startDir) or the explicit configPath, then SIMREC_* environment variables.
// An explicit configPath may be any format viper reads (toml, yaml, json).
func LoadConfig(configPath, startDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" && startDir != "" {
		loaded, _, err := NewTomlConfigLoader().Load(startDir)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	v := newViper(cfg)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newViper returns a viper instance whose defaults are the values of base,
// with environment overrides enabled for every key.
func newViper(base *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("minhash.n_hashes", base.MinHash.NumHashes)
	v.SetDefault("minhash.seed", base.MinHash.Seed)

	v.SetDefault("lsh.band_width", base.LSH.BandWidth)
	v.SetDefault("lsh.min_band_matches", base.LSH.MinBandMatches)

	v.SetDefault("recommend.top_k", base.Recommend.TopK)
	v.SetDefault("recommend.similarity_threshold", base.Recommend.SimilarityThreshold)
	v.SetDefault("recommend.score_mode", base.Recommend.ScoreMode)
	v.SetDefault("recommend.item_count", base.Recommend.ItemCount)
	v.SetDefault("recommend.item_weighting", base.Recommend.ItemWeighting)

	v.SetDefault("evaluate.sample_size", base.Evaluate.SampleSize)
	v.SetDefault("evaluate.threshold", base.Evaluate.Threshold)
	v.SetDefault("evaluate.max_results", base.Evaluate.MaxResults)

	v.SetDefault("input.paths", base.Input.Paths)
	v.SetDefault("input.include_patterns", base.Input.IncludePatterns)
	v.SetDefault("input.exclude_patterns", base.Input.ExcludePatterns)
	v.SetDefault("input.snapshot", base.Input.Snapshot)
	v.SetDefault("input.entity_column", base.Input.EntityColumn)
	v.SetDefault("input.item_column", base.Input.ItemColumn)
	v.SetDefault("input.rating_column", base.Input.RatingColumn)
	v.SetDefault("input.min_rating", base.Input.MinRating)
	v.SetDefault("input.delimiter", base.Input.Delimiter)

	v.SetDefault("output.format", base.Output.Format)
	v.SetDefault("output.show_details", base.Output.ShowDetails)

	v.SetDefault("performance.workers", base.Performance.Workers)
	v.SetDefault("performance.timeout_seconds", base.Performance.TimeoutSeconds)

	v.SetDefault("server.address", base.Server.Address)
	v.SetDefault("server.cache_size", base.Server.CacheSize)
	v.SetDefault("server.read_timeout_seconds", base.Server.ReadTimeoutSeconds)

	v.SetDefault("logging.level", base.Logging.Level)
	v.SetDefault("logging.format", base.Logging.Format)

	return v
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.MinHash.NumHashes <= 0 {
		return fmt.Errorf("minhash.n_hashes must be > 0, got %d", c.MinHash.NumHashes)
	}

	if c.LSH.BandWidth <= 0 || c.MinHash.NumHashes%c.LSH.BandWidth != 0 {
		return fmt.Errorf("lsh.band_width (%d) must be a positive divisor of minhash.n_hashes (%d)",
			c.LSH.BandWidth, c.MinHash.NumHashes)
	}

	if c.LSH.MinBandMatches < 1 || c.LSH.MinBandMatches > c.MinHash.NumHashes/c.LSH.BandWidth {
		return fmt.Errorf("lsh.min_band_matches must be between 1 and the number of bands (%d), got %d",
			c.MinHash.NumHashes/c.LSH.BandWidth, c.LSH.MinBandMatches)
	}

	if c.Recommend.TopK <= 0 {
		return fmt.Errorf("recommend.top_k must be > 0, got %d", c.Recommend.TopK)
	}

	if c.Recommend.SimilarityThreshold < 0.0 || c.Recommend.SimilarityThreshold > 1.0 {
		return fmt.Errorf("recommend.similarity_threshold must be between 0.0 and 1.0, got %f", c.Recommend.SimilarityThreshold)
	}

	validModes := map[string]bool{
		"signature": true,
		"jaccard":   true,
	}

	if !validModes[c.Recommend.ScoreMode] {
		return fmt.Errorf("invalid recommend.score_mode '%s', must be one of: signature, jaccard", c.Recommend.ScoreMode)
	}

	if c.Recommend.ItemCount <= 0 {
		return fmt.Errorf("recommend.item_count must be > 0, got %d", c.Recommend.ItemCount)
	}

	validWeightings := map[string]bool{
		"mean":       true,
		"similarity": true,
	}

	if !validWeightings[c.Recommend.ItemWeighting] {
		return fmt.Errorf("invalid recommend.item_weighting '%s', must be one of: mean, similarity", c.Recommend.ItemWeighting)
	}

	if c.Evaluate.SampleSize < 0 {
		return fmt.Errorf("evaluate.sample_size must be >= 0, got %d", c.Evaluate.SampleSize)
	}

	if c.Evaluate.Threshold < 0.0 || c.Evaluate.Threshold > 1.0 {
		return fmt.Errorf("evaluate.threshold must be between 0.0 and 1.0, got %f", c.Evaluate.Threshold)
	}

	if c.Evaluate.MaxResults <= 0 {
		return fmt.Errorf("evaluate.max_results must be > 0, got %d", c.Evaluate.MaxResults)
	}

	if c.Input.EntityColumn == "" || c.Input.ItemColumn == "" {
		return fmt.Errorf("input.entity_column and input.item_column cannot be empty")
	}

	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		return fmt.Errorf("input.delimiter must be a single character, got %q", c.Input.Delimiter)
	}

	if _, err := domain.ParseOutputFormat(c.Output.Format); err != nil {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml, csv", c.Output.Format)
	}

	if c.Performance.Workers < 0 {
		return fmt.Errorf("performance.workers must be >= 0, got %d", c.Performance.Workers)
	}

	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server.cache_size must be >= 0, got %d", c.Server.CacheSize)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging.level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format '%s', must be one of: console, json", c.Logging.Format)
	}

	return nil
}

// CorpusRequest derives the corpus request described by the configuration.
func (c *Config) CorpusRequest() *domain.CorpusRequest {
	req := domain.DefaultCorpusRequest()
	req.Paths = append([]string(nil), c.Input.Paths...)
	req.IncludePatterns = append([]string(nil), c.Input.IncludePatterns...)
	req.ExcludePatterns = append([]string(nil), c.Input.ExcludePatterns...)
	req.Snapshot = c.Input.Snapshot
	req.EntityColumn = c.Input.EntityColumn
	req.ItemColumn = c.Input.ItemColumn
	req.RatingColumn = c.Input.RatingColumn
	req.Delimiter = c.Input.Delimiter
	req.MinRating = c.Input.MinRating
	req.NumHashes = c.MinHash.NumHashes
	req.Seed = c.MinHash.Seed
	req.BandWidth = c.LSH.BandWidth
	req.Workers = c.Performance.Workers
	req.Timeout = c.Timeout()
	return req
}

// Timeout returns the build timeout; zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Performance.TimeoutSeconds) * time.Second
}

// LoggerConfig returns the logger settings, writing to stderr.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	return cfg
}
