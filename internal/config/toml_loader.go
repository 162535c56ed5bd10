package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ludo-technologies/simrec/domain"
)

// tomlFile represents the structure of .simrec.toml. Fields whose zero value
// is a legitimate setting are pointers so an omitted key keeps its default.
type tomlFile struct {
	MinHash     tomlMinHash     `toml:"minhash"`
	LSH         tomlLSH         `toml:"lsh"`
	Recommend   tomlRecommend   `toml:"recommend"`
	Evaluate    tomlEvaluate    `toml:"evaluate"`
	Input       tomlInput       `toml:"input"`
	Output      tomlOutput      `toml:"output"`
	Performance tomlPerformance `toml:"performance"`
	Server      tomlServer      `toml:"server"`
	Logging     tomlLogging     `toml:"logging"`
}

type tomlMinHash struct {
	NumHashes int     `toml:"n_hashes"`
	Seed      *uint64 `toml:"seed"` // pointer to detect unset
}

type tomlLSH struct {
	BandWidth      int `toml:"band_width"`
	MinBandMatches int `toml:"min_band_matches"`
}

type tomlRecommend struct {
	TopK                int      `toml:"top_k"`
	SimilarityThreshold *float64 `toml:"similarity_threshold"` // pointer to detect unset
	ScoreMode           string   `toml:"score_mode"`
	ItemCount           int      `toml:"item_count"`
	ItemWeighting       string   `toml:"item_weighting"`
}

type tomlEvaluate struct {
	SampleSize *int     `toml:"sample_size"` // 0 means every entity
	Threshold  *float64 `toml:"threshold"`
	MaxResults int      `toml:"max_results"`
}

type tomlInput struct {
	Paths           []string `toml:"paths"`
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	Snapshot        string   `toml:"snapshot"`
	EntityColumn    string   `toml:"entity_column"`
	ItemColumn      string   `toml:"item_column"`
	RatingColumn    string   `toml:"rating_column"`
	MinRating       *float64 `toml:"min_rating"` // pointer to detect unset
	Delimiter       string   `toml:"delimiter"`
}

type tomlOutput struct {
	Format      string `toml:"format"`
	ShowDetails *bool  `toml:"show_details"` // pointer to detect unset
}

type tomlPerformance struct {
	Workers        *int `toml:"workers"`         // 0 means one per CPU
	TimeoutSeconds *int `toml:"timeout_seconds"` // 0 disables the timeout
}

type tomlServer struct {
	Address            string `toml:"address"`
	CacheSize          *int   `toml:"cache_size"` // 0 disables the cache
	ReadTimeoutSeconds int    `toml:"read_timeout_seconds"`
}

type tomlLogging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TomlConfigLoader discovers and loads .simrec.toml
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// Load finds .simrec.toml at or above startDir and merges it into the
// defaults. It returns the defaults and an empty path when no file exists.
func (l *TomlConfigLoader) Load(startDir string) (*Config, string, error) {
	cfg := DefaultConfig()

	path, err := FindConfigFile(startDir)
	if err != nil {
		return cfg, "", nil
	}

	if err := l.LoadFile(path, cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFile parses the TOML file at path and merges the keys it sets into cfg.
// Relative input paths are resolved against the file's directory.
func (l *TomlConfigLoader) LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- config path chosen by the operator
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file tomlFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	l.merge(cfg, &file, filepath.Dir(path))
	return nil
}

// FindConfigFile walks up the directory tree from startDir to find .simrec.toml
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, domain.DefaultConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

func (l *TomlConfigLoader) merge(cfg *Config, f *tomlFile, baseDir string) {
	// [minhash]
	if f.MinHash.NumHashes != 0 {
		cfg.MinHash.NumHashes = f.MinHash.NumHashes
	}
	if f.MinHash.Seed != nil {
		cfg.MinHash.Seed = *f.MinHash.Seed
	}

	// [lsh]
	if f.LSH.BandWidth != 0 {
		cfg.LSH.BandWidth = f.LSH.BandWidth
	}
	if f.LSH.MinBandMatches != 0 {
		cfg.LSH.MinBandMatches = f.LSH.MinBandMatches
	}

	// [recommend]
	if f.Recommend.TopK != 0 {
		cfg.Recommend.TopK = f.Recommend.TopK
	}
	if f.Recommend.SimilarityThreshold != nil {
		cfg.Recommend.SimilarityThreshold = *f.Recommend.SimilarityThreshold
	}
	if f.Recommend.ScoreMode != "" {
		cfg.Recommend.ScoreMode = f.Recommend.ScoreMode
	}
	if f.Recommend.ItemCount != 0 {
		cfg.Recommend.ItemCount = f.Recommend.ItemCount
	}
	if f.Recommend.ItemWeighting != "" {
		cfg.Recommend.ItemWeighting = f.Recommend.ItemWeighting
	}

	// [evaluate]
	if f.Evaluate.SampleSize != nil {
		cfg.Evaluate.SampleSize = *f.Evaluate.SampleSize
	}
	if f.Evaluate.Threshold != nil {
		cfg.Evaluate.Threshold = *f.Evaluate.Threshold
	}
	if f.Evaluate.MaxResults != 0 {
		cfg.Evaluate.MaxResults = f.Evaluate.MaxResults
	}

	// [input]
	if len(f.Input.Paths) > 0 {
		cfg.Input.Paths = make([]string, len(f.Input.Paths))
		for i, p := range f.Input.Paths {
			cfg.Input.Paths[i] = resolvePath(baseDir, p)
		}
	}
	if len(f.Input.IncludePatterns) > 0 {
		cfg.Input.IncludePatterns = f.Input.IncludePatterns
	}
	if len(f.Input.ExcludePatterns) > 0 {
		cfg.Input.ExcludePatterns = f.Input.ExcludePatterns
	}
	if f.Input.Snapshot != "" {
		cfg.Input.Snapshot = resolvePath(baseDir, f.Input.Snapshot)
	}
	if f.Input.EntityColumn != "" {
		cfg.Input.EntityColumn = f.Input.EntityColumn
	}
	if f.Input.ItemColumn != "" {
		cfg.Input.ItemColumn = f.Input.ItemColumn
	}
	if f.Input.RatingColumn != "" {
		cfg.Input.RatingColumn = f.Input.RatingColumn
	}
	if f.Input.MinRating != nil {
		cfg.Input.MinRating = *f.Input.MinRating
	}
	if f.Input.Delimiter != "" {
		cfg.Input.Delimiter = f.Input.Delimiter
	}

	// [output]
	if f.Output.Format != "" {
		cfg.Output.Format = f.Output.Format
	}
	if f.Output.ShowDetails != nil {
		cfg.Output.ShowDetails = *f.Output.ShowDetails
	}

	// [performance]
	if f.Performance.Workers != nil {
		cfg.Performance.Workers = *f.Performance.Workers
	}
	if f.Performance.TimeoutSeconds != nil {
		cfg.Performance.TimeoutSeconds = *f.Performance.TimeoutSeconds
	}

	// [server]
	if f.Server.Address != "" {
		cfg.Server.Address = f.Server.Address
	}
	if f.Server.CacheSize != nil {
		cfg.Server.CacheSize = *f.Server.CacheSize
	}
	if f.Server.ReadTimeoutSeconds != 0 {
		cfg.Server.ReadTimeoutSeconds = f.Server.ReadTimeoutSeconds
	}

	// [logging]
	if f.Logging.Level != "" {
		cfg.Logging.Level = f.Logging.Level
	}
	if f.Logging.Format != "" {
		cfg.Logging.Format = f.Logging.Format
	}
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
