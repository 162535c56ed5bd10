package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/corpus"
	"github.com/ludo-technologies/simrec/internal/lsh"
	"github.com/ludo-technologies/simrec/internal/metrics"
	"github.com/ludo-technologies/simrec/internal/minhash"
	"github.com/ludo-technologies/simrec/internal/ranking"
)

// rateGrid is the similarity grid of the false positive/negative table in Stats.
var rateGrid = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// RecommendServiceImpl implements domain.RecommendService against the corpus
// held by a CorpusStore.
type RecommendServiceImpl struct {
	store  *CorpusStore
	cache  *RecommendCache
	logger zerolog.Logger
}

// NewRecommendService creates a recommend service. cache may be nil.
func NewRecommendService(store *CorpusStore, cache *RecommendCache, logger zerolog.Logger) *RecommendServiceImpl {
	return &RecommendServiceImpl{store: store, cache: cache, logger: logger}
}

// resolvedQuery is the query entity with its signature and features.
type resolvedQuery struct {
	label   string
	exclude string // id left out of candidate sets
	query   ranking.Query
	owned   map[string]float64
}

func resolveQuery(c *corpus.Corpus, q domain.EntityQuery) (*resolvedQuery, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.EntityID != "" {
		sig, ok := c.Signature(q.EntityID)
		if !ok {
			return nil, domain.NewUnknownEntityError(q.EntityID, lsh.ErrUnknownEntity)
		}
		fs, _ := c.FeatureSet(q.EntityID)
		owned, _ := c.Ratings(q.EntityID)
		if owned == nil {
			owned = tokenSet(fs.Tokens())
		}
		return &resolvedQuery{
			label:   q.EntityID,
			exclude: q.EntityID,
			query:   ranking.Query{Signature: sig, Features: fs},
			owned:   owned,
		}, nil
	}

	fs, sig, err := c.SignatureOf(q.Tokens)
	if err != nil {
		return nil, translateError(err)
	}
	return &resolvedQuery{
		label: q.Label(),
		query: ranking.Query{Signature: sig, Features: fs},
		owned: tokenSet(fs.Tokens()),
	}, nil
}

func tokenSet(tokens []string) map[string]float64 {
	m := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		m[t] = 1
	}
	return m
}

// candidates returns the candidate ids in ascending order and the number of
// bands each shares with the query.
func candidates(c *corpus.Corpus, rq *resolvedQuery, minBands int) ([]string, map[string]int, error) {
	retriever := c.Retriever(minBands)
	shared, err := retriever.SharedBandsFor(rq.query.Signature, rq.exclude)
	if err != nil {
		return nil, nil, translateError(err)
	}
	ids := make([]string, 0, len(shared))
	for id, n := range shared {
		if n >= retriever.MinBands() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, shared, nil
}

// observe records metrics for one query.
func (s *RecommendServiceImpl) observe(op string, start time.Time, empty bool, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		s.logger.Debug().Err(err).Str("operation", op).Msg("query failed")
	case empty:
		outcome = "empty"
	}
	metrics.RecordQuery(op, outcome, time.Since(start))
}

// Similar returns the top-k entities most similar to the query.
func (s *RecommendServiceImpl) Similar(ctx context.Context, req *domain.SimilarRequest) (resp *domain.SimilarResponse, err error) {
	start := time.Now()
	defer func() { s.observe("similar", start, resp != nil && len(resp.Results) == 0, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	key, cacheable := s.cache.Key(lc.Corpus.ID(), "similar", req)
	if cacheable {
		if v, ok := s.cache.Get(key); ok {
			return v.(*domain.SimilarResponse), nil
		}
	}

	resp, err = s.similar(ctx, lc.Corpus, req)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.Add(key, resp)
	}
	return resp, nil
}

func (s *RecommendServiceImpl) similar(ctx context.Context, c *corpus.Corpus, req *domain.SimilarRequest) (*domain.SimilarResponse, error) {
	rq, err := resolveQuery(c, req.Query)
	if err != nil {
		return nil, err
	}
	ids, shared, err := candidates(c, rq, req.MinBandMatches)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode, err := ranking.ParseMode(req.ScoreMode)
	if err != nil {
		return nil, translateError(err)
	}
	scorer, err := ranking.NewScorer(c, mode, req.Threshold)
	if err != nil {
		return nil, translateError(err)
	}
	ranked, err := scorer.Rank(rq.query, ids, req.TopK)
	if err != nil {
		return nil, translateError(err)
	}

	results := make([]domain.SimilarEntity, len(ranked))
	for i, r := range ranked {
		results[i] = domain.SimilarEntity{
			EntityID:    r.EntityID,
			Similarity:  r.Similarity,
			SharedBands: shared[r.EntityID],
		}
		if req.ShowDetails {
			fs, _ := c.FeatureSet(r.EntityID)
			exact := minhash.Jaccard(rq.query.Features, fs)
			results[i].Exact = &exact
		}
	}

	return &domain.SimilarResponse{
		CorpusID:   c.ID(),
		Query:      rq.label,
		ScoreMode:  string(mode),
		Candidates: len(ids),
		Results:    results,
	}, nil
}

// Candidates returns every entity sharing at least MinBandMatches buckets
// with the query, in ascending id order. An empty list is a valid answer.
func (s *RecommendServiceImpl) Candidates(ctx context.Context, req *domain.CandidatesRequest) (resp *domain.CandidatesResponse, err error) {
	start := time.Now()
	defer func() { s.observe("candidates", start, resp != nil && len(resp.Candidates) == 0, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	key, cacheable := s.cache.Key(lc.Corpus.ID(), "candidates", req)
	if cacheable {
		if v, ok := s.cache.Get(key); ok {
			return v.(*domain.CandidatesResponse), nil
		}
	}

	rq, err := resolveQuery(lc.Corpus, req.Query)
	if err != nil {
		return nil, err
	}
	ids, shared, err := candidates(lc.Corpus, rq, req.MinBandMatches)
	if err != nil {
		return nil, err
	}

	minBands := max(req.MinBandMatches, 1)
	out := make([]domain.Candidate, len(ids))
	for i, id := range ids {
		out[i] = domain.Candidate{EntityID: id, SharedBands: shared[id]}
	}
	resp = &domain.CandidatesResponse{
		CorpusID:       lc.Corpus.ID(),
		Query:          rq.label,
		MinBandMatches: minBands,
		Candidates:     out,
	}
	if cacheable {
		s.cache.Add(key, resp)
	}
	return resp, nil
}

// Items recommends items rated by the query's nearest neighbours that the
// query entity does not already have.
func (s *RecommendServiceImpl) Items(ctx context.Context, req *domain.ItemsRequest) (resp *domain.ItemsResponse, err error) {
	start := time.Now()
	defer func() { s.observe("items", start, resp != nil && len(resp.Items) == 0, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	key, cacheable := s.cache.Key(lc.Corpus.ID(), "items", req)
	if cacheable {
		if v, ok := s.cache.Get(key); ok {
			return v.(*domain.ItemsResponse), nil
		}
	}

	c := lc.Corpus
	weighting, err := ranking.ParseWeighting(req.Weighting)
	if err != nil {
		return nil, translateError(err)
	}
	neighbours, err := s.similar(ctx, c, &domain.SimilarRequest{
		Query:          req.Query,
		TopK:           req.TopK,
		Threshold:      req.Threshold,
		ScoreMode:      req.ScoreMode,
		MinBandMatches: req.MinBandMatches,
	})
	if err != nil {
		return nil, err
	}
	rq, err := resolveQuery(c, req.Query)
	if err != nil {
		return nil, err
	}

	scored := make([]ranking.Scored, len(neighbours.Results))
	for i, n := range neighbours.Results {
		scored[i] = ranking.Scored{EntityID: n.EntityID, Similarity: n.Similarity}
	}
	items, err := ranking.RecommendItems(scored, c, rq.owned, weighting, req.Count)
	if err != nil {
		return nil, translateError(err)
	}

	out := make([]domain.RecommendedItem, len(items))
	for i, it := range items {
		out[i] = domain.RecommendedItem{ItemID: it.ItemID, Score: it.Score, Supporters: it.Supporters}
	}
	resp = &domain.ItemsResponse{
		CorpusID:   c.ID(),
		Query:      rq.label,
		Weighting:  string(weighting),
		Neighbours: neighbours.Results,
		Items:      out,
	}
	if cacheable {
		s.cache.Add(key, resp)
	}
	return resp, nil
}

// Compare reports the estimated and exact similarity of two entities, the
// number of bands in which their signatures agree, and the probability that
// banding pairs entities of that exact similarity.
func (s *RecommendServiceImpl) Compare(ctx context.Context, req *domain.CompareRequest) (resp *domain.CompareResponse, err error) {
	start := time.Now()
	defer func() { s.observe("compare", start, false, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	c := lc.Corpus

	left, err := resolveQuery(c, req.Left)
	if err != nil {
		return nil, err
	}
	right, err := resolveQuery(c, req.Right)
	if err != nil {
		return nil, err
	}

	estimated, err := left.query.Signature.Agreement(right.query.Signature)
	if err != nil {
		return nil, translateError(err)
	}
	exact := minhash.Jaccard(left.query.Features, right.query.Features)

	lp := c.Params().LSH()
	sharedBands := 0
	for b := 0; b < lp.NumBands(); b++ {
		if slices.Equal(left.query.Signature.Band(b, lp.BandWidth), right.query.Signature.Band(b, lp.BandWidth)) {
			sharedBands++
		}
	}

	return &domain.CompareResponse{
		Left:                 left.label,
		Right:                right.label,
		Estimated:            estimated,
		Exact:                exact,
		SharedBands:          sharedBands,
		CandidateProbability: lsh.CandidateProbability(exact, lp.NumBands(), lp.BandWidth),
	}, nil
}

// Stats summarizes the corpus and its bucket index.
func (s *RecommendServiceImpl) Stats(ctx context.Context, req *domain.StatsRequest) (resp *domain.StatsResponse, err error) {
	start := time.Now()
	defer func() { s.observe("stats", start, false, err) }()

	if req.LargestBuckets < 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("largest buckets must be >= 0, got %d", req.LargestBuckets))
	}
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	idx := lc.Corpus.Index()
	st := idx.Stats()
	lp := idx.Params()

	rates := make([]domain.RateEstimate, len(rateGrid))
	for i, sim := range rateGrid {
		rates[i] = domain.RateEstimate{
			Similarity:    sim,
			FalsePositive: lp.EstimateFalsePositiveRate(sim),
			FalseNegative: lp.EstimateFalseNegativeRate(sim),
		}
	}

	var buckets []domain.BucketSummary
	for _, b := range idx.LargestBuckets(req.LargestBuckets) {
		buckets = append(buckets, domain.BucketSummary{
			Band:      b.Key.Band,
			Hash:      fmt.Sprintf("%016x", b.Key.Hash),
			Size:      len(b.EntityIDs),
			EntityIDs: b.EntityIDs,
		})
	}

	summary := lc.Summary
	return &domain.StatsResponse{
		Corpus: &summary,
		Index: domain.IndexStatistics{
			Entities:         st.NumEntities,
			Buckets:          st.NumBuckets,
			Bands:            st.Bands,
			Rows:             st.Rows,
			Threshold:        st.Threshold,
			MinBucketSize:    st.MinBucketSize,
			MaxBucketSize:    st.MaxBucketSize,
			AvgBucketSize:    st.AvgBucketSize,
			MedianBucketSize: st.MedianBucketSize,
			Singletons:       st.Singletons,
		},
		Rates:          rates,
		LargestBuckets: buckets,
	}, nil
}

// Evaluate compares signature estimates with exact Jaccard over a sample of
// the corpus.
func (s *RecommendServiceImpl) Evaluate(ctx context.Context, req *domain.EvaluateRequest) (resp *domain.EvaluateResponse, err error) {
	start := time.Now()
	defer func() { s.observe("evaluate", start, false, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	lc, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eval, err := ranking.Evaluate(lc.Corpus, ranking.EvalOptions{
		SampleSize: req.SampleSize,
		Threshold:  req.Threshold,
		MaxResults: req.MaxResults,
		Seed:       req.Seed,
	})
	if err != nil {
		return nil, translateError(err)
	}

	pairs := make([]domain.PairComparison, len(eval.TopPairs))
	for i, p := range eval.TopPairs {
		pairs[i] = domain.PairComparison{Left: p.Left, Right: p.Right, Estimated: p.Estimated, Exact: p.Exact, Loss: p.Loss}
	}
	s.logger.Debug().Int("sampled", eval.Sampled).Int("pairs", eval.PairsCompared).Msg("evaluation finished")

	return &domain.EvaluateResponse{
		CorpusID:        lc.Corpus.ID(),
		Sampled:         eval.Sampled,
		PairsCompared:   eval.PairsCompared,
		Threshold:       req.Threshold,
		PairsAbove:      eval.PairsAbove,
		MeanLoss:        eval.MeanLoss,
		StdDevLoss:      eval.StdDevLoss,
		MaxLoss:         eval.MaxLoss,
		OverallMeanLoss: eval.OverallMeanLoss,
		Correlation:     eval.Correlation,
		TopPairs:        pairs,
	}, nil
}
