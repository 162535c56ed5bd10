package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"github.com/ludo-technologies/simrec/domain"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds all values used to render the default config template.
// All values are sourced from the domain package.
type DefaultConfigValues struct {
	NumHashes      int
	Seed           uint64
	BandWidth      int
	Bands          int
	Threshold      float64
	MinBandMatches int

	TopK                int
	SimilarityThreshold float64
	ScoreMode           string
	ItemCount           int
	ItemWeighting       string

	EvalSampleSize int
	EvalThreshold  float64
	EvalMaxResults int

	IncludePatterns []string
	EntityColumn    string
	ItemColumn      string
	RatingColumn    string
	MinRating       float64
	Delimiter       string

	Workers        int
	TimeoutSeconds int

	ServerAddress      string
	CacheSize          int
	ReadTimeoutSeconds int

	LogLevel  string
	LogFormat string
}

func newDefaultConfigValues() DefaultConfigValues {
	bands := domain.DefaultNumHashes / domain.DefaultBandWidth
	return DefaultConfigValues{
		NumHashes:      domain.DefaultNumHashes,
		Seed:           domain.DefaultSeed,
		BandWidth:      domain.DefaultBandWidth,
		Bands:          bands,
		Threshold:      math.Pow(1/float64(bands), 1/float64(domain.DefaultBandWidth)),
		MinBandMatches: domain.DefaultMinBandMatches,

		TopK:                domain.DefaultTopK,
		SimilarityThreshold: domain.DefaultSimilarityThreshold,
		ScoreMode:           domain.DefaultScoreMode,
		ItemCount:           domain.DefaultItemCount,
		ItemWeighting:       domain.DefaultItemWeighting,

		EvalSampleSize: domain.DefaultEvalSampleSize,
		EvalThreshold:  domain.DefaultEvalThreshold,
		EvalMaxResults: domain.DefaultEvalMaxResults,

		IncludePatterns: domain.DefaultIncludePatterns,
		EntityColumn:    domain.DefaultEntityColumn,
		ItemColumn:      domain.DefaultItemColumn,
		RatingColumn:    domain.DefaultRatingColumn,
		MinRating:       domain.DefaultMinRating,
		Delimiter:       domain.DefaultDelimiter,

		Workers:        domain.DefaultWorkers,
		TimeoutSeconds: domain.DefaultTimeoutSeconds,

		ServerAddress:      domain.DefaultServerAddress,
		CacheSize:          domain.DefaultCacheSize,
		ReadTimeoutSeconds: domain.DefaultReadTimeoutSeconds,

		LogLevel:  domain.DefaultLogLevel,
		LogFormat: domain.DefaultLogFormat,
	}
}

// GenerateDefaultConfigTOML renders the default config template with domain values
// and returns the resulting TOML string.
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}

	return buf.String(), nil
}

// LoadDefaultConfigFromTOML parses the rendered default config into a Config.
func LoadDefaultConfigFromTOML() (*Config, error) {
	configTOML, err := GenerateDefaultConfigTOML()
	if err != nil {
		return nil, err
	}

	var file tomlFile
	if err := toml.Unmarshal([]byte(configTOML), &file); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	NewTomlConfigLoader().merge(cfg, &file, "")
	return cfg, nil
}
