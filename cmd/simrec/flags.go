package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/simrec/app"
	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
	"github.com/ludo-technologies/simrec/service"
)

// corpusFlags select and shape the corpus a command runs against.
type corpusFlags struct {
	snapshot        string
	includePatterns []string
	excludePatterns []string

	entityColumn string
	itemColumn   string
	ratingColumn string
	delimiter    string
	minRating    float64

	numHashes int
	seed      uint64
	bandWidth int

	workers int
	timeout time.Duration
}

func (f *corpusFlags) register(fs *pflag.FlagSet, withSnapshot bool) {
	if withSnapshot {
		fs.StringVar(&f.snapshot, "snapshot", "", "Load this snapshot instead of reading ratings files")
	}
	fs.StringSliceVar(&f.includePatterns, "include", domain.DefaultIncludePatterns, "Include file patterns inside directories")
	fs.StringSliceVar(&f.excludePatterns, "exclude", []string{}, "Exclude file patterns")

	fs.StringVar(&f.entityColumn, "entity-column", domain.DefaultEntityColumn, "Header of the entity id column")
	fs.StringVar(&f.itemColumn, "item-column", domain.DefaultItemColumn, "Header of the item id column")
	fs.StringVar(&f.ratingColumn, "rating-column", domain.DefaultRatingColumn, "Header of the rating column (empty: every row rates 1)")
	fs.StringVar(&f.delimiter, "delimiter", domain.DefaultDelimiter, "Field delimiter")
	fs.Float64Var(&f.minRating, "min-rating", domain.DefaultMinRating, "Only items rated at or above this value enter an entity's set")

	fs.IntVar(&f.numHashes, "n-hashes", domain.DefaultNumHashes, "Signature length")
	fs.Uint64Var(&f.seed, "seed", domain.DefaultSeed, "Hash coefficient seed")
	fs.IntVar(&f.bandWidth, "band-width", domain.DefaultBandWidth, "Rows per LSH band; must divide --n-hashes")

	fs.IntVar(&f.workers, "workers", domain.DefaultWorkers, "Parallel signature workers (0 = one per CPU)")
	fs.DurationVar(&f.timeout, "timeout", domain.DefaultTimeoutSeconds*time.Second, "Corpus build timeout (0 = none)")
}

// request layers explicitly set flags over the configuration. Positional
// paths replace the configured input paths and any configured snapshot.
func (f *corpusFlags) request(cmd *cobra.Command, cfg *config.Config, args []string) *domain.CorpusRequest {
	ft := explicitFlags(cmd)
	req := cfg.CorpusRequest()

	if len(args) > 0 {
		req.Paths = append([]string(nil), args...)
		req.Snapshot = ""
	}
	req.Snapshot = config.Merge(ft, req.Snapshot, f.snapshot, "snapshot")
	req.IncludePatterns = config.MergeSlice(ft, req.IncludePatterns, f.includePatterns, "include")
	req.ExcludePatterns = config.MergeSlice(ft, req.ExcludePatterns, f.excludePatterns, "exclude")

	req.EntityColumn = config.Merge(ft, req.EntityColumn, f.entityColumn, "entity-column")
	req.ItemColumn = config.Merge(ft, req.ItemColumn, f.itemColumn, "item-column")
	req.RatingColumn = config.Merge(ft, req.RatingColumn, f.ratingColumn, "rating-column")
	req.Delimiter = config.Merge(ft, req.Delimiter, f.delimiter, "delimiter")
	req.MinRating = config.Merge(ft, req.MinRating, f.minRating, "min-rating")

	req.NumHashes = config.Merge(ft, req.NumHashes, f.numHashes, "n-hashes")
	req.Seed = config.Merge(ft, req.Seed, f.seed, "seed")
	req.BandWidth = config.Merge(ft, req.BandWidth, f.bandWidth, "band-width")

	req.Workers = config.Merge(ft, req.Workers, f.workers, "workers")
	req.Timeout = config.Merge(ft, req.Timeout, f.timeout, "timeout")
	return req
}

// queryFlags select the query entity and how neighbours are ranked.
type queryFlags struct {
	entity    string
	tokens    []string
	topK      int
	threshold float64
	scoreMode string
	minBands  int
	details   bool
}

func (f *queryFlags) register(fs *pflag.FlagSet, ranked bool) {
	fs.StringVarP(&f.entity, "entity", "e", "", "Id of the query entity")
	fs.StringSliceVar(&f.tokens, "tokens", nil, "Feature tokens of an entity outside the corpus")
	fs.IntVar(&f.minBands, "min-bands", domain.DefaultMinBandMatches, "Band-buckets a candidate must share with the query")
	if !ranked {
		return
	}
	fs.IntVarP(&f.topK, "top-k", "k", domain.DefaultTopK, "Number of similar entities")
	fs.Float64Var(&f.threshold, "threshold", domain.DefaultSimilarityThreshold, "Minimum similarity (0 disables)")
	fs.StringVar(&f.scoreMode, "score-mode", domain.DefaultScoreMode, "Score by signature agreement or exact Jaccard (signature|jaccard)")
	fs.BoolVar(&f.details, "details", false, "Also report exact Jaccard similarity")
}

func (f *queryFlags) query() domain.EntityQuery {
	return domain.EntityQuery{EntityID: f.entity, Tokens: f.tokens}
}

func (f *queryFlags) minBandMatches(ft *config.FlagTracker, cfg *config.Config) int {
	return config.Merge(ft, cfg.LSH.MinBandMatches, f.minBands, "min-bands")
}

func (f *queryFlags) similarRequest(cmd *cobra.Command, cfg *config.Config) *domain.SimilarRequest {
	ft := explicitFlags(cmd)
	return &domain.SimilarRequest{
		Query:          f.query(),
		TopK:           config.Merge(ft, cfg.Recommend.TopK, f.topK, "top-k"),
		Threshold:      config.Merge(ft, cfg.Recommend.SimilarityThreshold, f.threshold, "threshold"),
		ScoreMode:      config.Merge(ft, cfg.Recommend.ScoreMode, f.scoreMode, "score-mode"),
		MinBandMatches: f.minBandMatches(ft, cfg),
		ShowDetails:    config.Merge(ft, cfg.Output.ShowDetails, f.details, "details"),
	}
}

// outputFlags select the report format and destination.
type outputFlags struct {
	json   bool
	csv    bool
	yaml   bool
	output string
}

func (f *outputFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.json, "json", false, "Output JSON")
	fs.BoolVar(&f.csv, "csv", false, "Output CSV")
	fs.BoolVar(&f.yaml, "yaml", false, "Output YAML")
	fs.StringVarP(&f.output, "output", "o", "", "Write the report to this file instead of stdout")
}

func (f *outputFlags) options(cmd *cobra.Command, cfg *config.Config) (app.OutputOptions, error) {
	format, _, err := service.NewOutputFormatResolver().Determine(f.json, f.csv, f.yaml, cfg.Output.Format)
	if err != nil {
		return app.OutputOptions{}, err
	}
	return app.OutputOptions{Format: format, Path: f.output, Writer: cmd.OutOrStdout()}, nil
}

// newQueryUseCase wires an engine with a progress bar for the corpus build.
func newQueryUseCase(cmd *cobra.Command, opts *rootOptions) (*app.QueryUseCase, *config.Config, error) {
	cfg, logger, err := opts.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	progress := service.NewProgressManager("Building signatures")
	progress.SetWriter(cmd.ErrOrStderr())

	engine, err := app.NewEngine(app.EngineOptions{Progress: progress, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	uc, err := engine.QueryUseCase(service.NewFileOutputWriter(cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, err
	}
	return uc, cfg, nil
}
