package domain

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"
)

// CorpusRequest describes where a corpus comes from and how it is hashed.
type CorpusRequest struct {
	// Input parameters
	Paths           []string `json:"paths"`
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	Snapshot        string   `json:"snapshot,omitempty"` // load this snapshot instead of reading Paths

	// Ratings layout
	EntityColumn string  `json:"entity_column"`
	ItemColumn   string  `json:"item_column"`
	RatingColumn string  `json:"rating_column"`
	Delimiter    string  `json:"delimiter"`
	MinRating    float64 `json:"min_rating"`

	// Hashing and banding
	NumHashes int    `json:"n_hashes"`
	Seed      uint64 `json:"seed"`
	BandWidth int    `json:"band_width"`

	// Performance
	Workers int           `json:"workers"`
	Timeout time.Duration `json:"timeout"`
}

// Validate validates a corpus request
func (req *CorpusRequest) Validate() error {
	if len(req.Paths) == 0 && req.Snapshot == "" {
		return NewValidationError("either input paths or a snapshot is required")
	}
	if req.Snapshot != "" {
		return nil
	}
	if req.NumHashes <= 0 {
		return NewInvalidConfigError(fmt.Sprintf("n_hashes must be positive, got %d", req.NumHashes), nil)
	}
	if req.BandWidth <= 0 || req.NumHashes%req.BandWidth != 0 {
		return NewInvalidConfigError(
			fmt.Sprintf("band_width %d must be a positive divisor of n_hashes %d", req.BandWidth, req.NumHashes), nil)
	}
	if req.EntityColumn == "" || req.ItemColumn == "" {
		return NewInvalidConfigError("entity_column and item_column are required", nil)
	}
	if utf8.RuneCountInString(req.Delimiter) != 1 {
		return NewInvalidConfigError(fmt.Sprintf("delimiter must be a single character, got %q", req.Delimiter), nil)
	}
	if req.Workers < 0 {
		return NewInvalidConfigError(fmt.Sprintf("workers must be >= 0, got %d", req.Workers), nil)
	}
	return nil
}

// DefaultCorpusRequest returns a corpus request with default hashing and layout
func DefaultCorpusRequest() *CorpusRequest {
	return &CorpusRequest{
		IncludePatterns: append([]string(nil), DefaultIncludePatterns...),
		EntityColumn:    DefaultEntityColumn,
		ItemColumn:      DefaultItemColumn,
		RatingColumn:    DefaultRatingColumn,
		Delimiter:       DefaultDelimiter,
		MinRating:       DefaultMinRating,
		NumHashes:       DefaultNumHashes,
		Seed:            DefaultSeed,
		BandWidth:       DefaultBandWidth,
		Workers:         DefaultWorkers,
		Timeout:         DefaultTimeoutSeconds * time.Second,
	}
}

// CorpusSummary describes the corpus currently loaded.
type CorpusSummary struct {
	ID         string    `json:"id" yaml:"id"`
	BuiltAt    time.Time `json:"built_at" yaml:"built_at"`
	Source     string    `json:"source" yaml:"source"`
	Entities   int       `json:"entities" yaml:"entities"`
	Buckets    int       `json:"buckets" yaml:"buckets"`
	NumHashes  int       `json:"n_hashes" yaml:"n_hashes"`
	Seed       uint64    `json:"seed" yaml:"seed"`
	BandWidth  int       `json:"band_width" yaml:"band_width"`
	Bands      int       `json:"bands" yaml:"bands"`
	Threshold  float64   `json:"threshold" yaml:"threshold"`
	Files      int       `json:"files,omitempty" yaml:"files,omitempty"`
	Ratings    int       `json:"ratings,omitempty" yaml:"ratings,omitempty"`
	Skipped    []string  `json:"skipped,omitempty" yaml:"skipped,omitempty"` // entities with no item at or above min_rating
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
}

// SnapshotResponse reports a written snapshot.
type SnapshotResponse struct {
	Path   string         `json:"path" yaml:"path"`
	Bytes  int64          `json:"bytes" yaml:"bytes"`
	Corpus *CorpusSummary `json:"corpus" yaml:"corpus"`
}

// CorpusService builds, loads and persists the corpus that queries run against.
type CorpusService interface {
	// Load builds a corpus from ratings files or reads a snapshot, and makes it current.
	Load(ctx context.Context, req *CorpusRequest) (*CorpusSummary, error)

	// Save writes the current corpus to a snapshot file.
	Save(ctx context.Context, path string) (*SnapshotResponse, error)

	// Summary describes the current corpus; NOT_READY when none is loaded.
	Summary() (*CorpusSummary, error)
}
