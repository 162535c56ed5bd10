package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/corpus"
	"github.com/ludo-technologies/simrec/internal/lsh"
	"github.com/ludo-technologies/simrec/internal/metrics"
	"github.com/ludo-technologies/simrec/internal/persistence"
)

// CorpusServiceImpl implements domain.CorpusService on top of a CorpusStore.
type CorpusServiceImpl struct {
	store    *CorpusStore
	reader   *RatingsReader
	progress domain.ProgressManager
	logger   zerolog.Logger
}

// NewCorpusService creates a corpus service. A nil progress manager disables progress output.
func NewCorpusService(store *CorpusStore, progress domain.ProgressManager, logger zerolog.Logger) *CorpusServiceImpl {
	if progress == nil {
		progress = NoopProgressManager{}
	}
	return &CorpusServiceImpl{
		store:    store,
		reader:   NewRatingsReader(logger),
		progress: progress,
		logger:   logger,
	}
}

// Load builds or restores a corpus and makes it current. On error the
// previously loaded corpus stays in place.
func (s *CorpusServiceImpl) Load(ctx context.Context, req *domain.CorpusRequest) (*domain.CorpusSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		lc  *LoadedCorpus
		err error
	)
	if req.Snapshot != "" {
		lc, err = s.loadSnapshot(req.Snapshot)
	} else {
		lc, err = s.buildFromRatings(ctx, req)
	}
	elapsed := time.Since(start)
	metrics.RecordBuild(err, elapsed)
	if err != nil {
		s.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("corpus load failed")
		return nil, err
	}

	lc.Summary.DurationMs = elapsed.Milliseconds()
	s.store.Swap(lc)
	metrics.SetCorpus(lc.Summary.Entities, lc.Summary.Buckets)

	s.logger.Info().
		Str("corpus_id", lc.Summary.ID).
		Str("source", lc.Summary.Source).
		Int("entities", lc.Summary.Entities).
		Int("buckets", lc.Summary.Buckets).
		Int("skipped", len(lc.Summary.Skipped)).
		Dur("elapsed", elapsed).
		Msg("corpus loaded")

	summary := lc.Summary
	return &summary, nil
}

func (s *CorpusServiceImpl) loadSnapshot(path string) (*LoadedCorpus, error) {
	c, err := persistence.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, translateError(err)
	}
	return &LoadedCorpus{Corpus: c, Summary: summarize(c, "snapshot:"+path)}, nil
}

func (s *CorpusServiceImpl) buildFromRatings(ctx context.Context, req *domain.CorpusRequest) (*LoadedCorpus, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	data, err := s.reader.Read(ctx, req.Paths, req.IncludePatterns, req.ExcludePatterns, LayoutFromRequest(req))
	if err != nil {
		return nil, err
	}
	if len(data.Entities) == 0 {
		return nil, domain.NewEmptyInputError(
			fmt.Sprintf("no entity has an item rated at or above %g", req.MinRating), nil)
	}

	params := corpus.Params{NumHashes: req.NumHashes, Seed: req.Seed, BandWidth: req.BandWidth}
	c, err := s.Build(ctx, params, data.Entities, req.Workers)
	if err != nil {
		return nil, err
	}

	summary := summarize(c, strings.Join(data.Files, ","))
	summary.Files = len(data.Files)
	summary.Ratings = data.Ratings
	summary.Skipped = data.Skipped
	return &LoadedCorpus{Corpus: c, Summary: summary}, nil
}

// Build computes signatures on up to workers goroutines, each indexing one
// shard of the entities, and merges the partial indexes. The result is the
// same for any number of workers; workers <= 0 uses GOMAXPROCS.
func (s *CorpusServiceImpl) Build(ctx context.Context, params corpus.Params, entities []corpus.Entity, workers int) (*corpus.Corpus, error) {
	if err := params.Validate(); err != nil {
		return nil, translateError(err)
	}
	hasher, err := corpus.NewHasher(params)
	if err != nil {
		return nil, translateError(err)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	shards := corpus.Shard(entities, workers)
	parts := make([]*lsh.Index, len(shards))
	tasks := make([]domain.ExecutableTask, len(shards))
	for i, shard := range shards {
		tasks[i] = NewSimpleTask(fmt.Sprintf("shard-%d", i), true, func(ctx context.Context) (interface{}, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			idx, err := corpus.BuildShard(ctx, params, hasher, shard)
			if err != nil {
				return nil, err
			}
			// Build has already returned once ctx is done; leave parts alone.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			parts[i] = idx
			s.progress.Add(len(shard))
			return idx, nil
		})
	}

	s.progress.Initialize(len(entities))
	s.progress.Start()
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(workers)
	executor.SetTimeout(0)

	s.logger.Debug().Int("entities", len(entities)).Int("shards", len(shards)).Msg("building signatures")
	err = executor.Execute(ctx, tasks)
	s.progress.Complete(err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, translateError(err)
	}

	merged, err := lsh.Merge(parts...)
	if err != nil {
		return nil, translateError(err)
	}
	c, err := corpus.Assemble(params, hasher, merged, entities)
	if err != nil {
		return nil, translateError(err)
	}
	return c, nil
}

// Save writes the current corpus to path.
func (s *CorpusServiceImpl) Save(ctx context.Context, path string) (*domain.SnapshotResponse, error) {
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := persistence.SaveFile(path, lc.Corpus); err != nil {
		return nil, domain.NewOutputError(fmt.Sprintf("failed to save snapshot to %s", path), err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewOutputError(fmt.Sprintf("failed to stat snapshot %s", path), err)
	}

	s.logger.Info().Str("path", path).Int64("bytes", info.Size()).Str("corpus_id", lc.Summary.ID).Msg("snapshot written")
	summary := lc.Summary
	return &domain.SnapshotResponse{Path: path, Bytes: info.Size(), Corpus: &summary}, nil
}

// Summary describes the current corpus.
func (s *CorpusServiceImpl) Summary() (*domain.CorpusSummary, error) {
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	summary := lc.Summary
	return &summary, nil
}

func summarize(c *corpus.Corpus, source string) domain.CorpusSummary {
	p := c.Params()
	lp := p.LSH()
	return domain.CorpusSummary{
		ID:        c.ID(),
		BuiltAt:   c.BuiltAt(),
		Source:    source,
		Entities:  c.Size(),
		Buckets:   c.Index().NumBuckets(),
		NumHashes: p.NumHashes,
		Seed:      p.Seed,
		BandWidth: p.BandWidth,
		Bands:     lp.NumBands(),
		Threshold: lp.Threshold(),
	}
}
