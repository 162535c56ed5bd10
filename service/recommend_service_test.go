package service

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/lsh"
	"github.com/ludo-technologies/simrec/internal/minhash"
)

func newScenarioService(t *testing.T) *RecommendServiceImpl {
	t.Helper()
	store, _ := loadScenario(t)
	return NewRecommendService(store, nil, zerolog.Nop())
}

func similarReq(id string) *domain.SimilarRequest {
	return &domain.SimilarRequest{Query: domain.EntityQuery{EntityID: id}, TopK: 10}
}

func TestRecommendService_ScenarioCandidates(t *testing.T) {
	svc := newScenarioService(t)

	resp, err := svc.Candidates(context.Background(), &domain.CandidatesRequest{Query: domain.EntityQuery{EntityID: "A"}})
	require.NoError(t, err)

	ids := make([]string, len(resp.Candidates))
	for i, c := range resp.Candidates {
		ids[i] = c.EntityID
		assert.Positive(t, c.SharedBands)
	}
	assert.Contains(t, ids, "B")
	assert.NotContains(t, ids, "C")
	assert.NotContains(t, ids, "A", "the query is never its own candidate")
	assert.Equal(t, 1, resp.MinBandMatches)
}

func TestRecommendService_SimilarEstimate(t *testing.T) {
	svc := newScenarioService(t)

	req := similarReq("A")
	req.ShowDetails = true
	resp, err := svc.Similar(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	assert.Equal(t, "B", top.EntityID)
	assert.InDelta(t, 0.5, top.Similarity, 0.25)
	require.NotNil(t, top.Exact)
	assert.InDelta(t, 0.5, *top.Exact, 1e-9)
	assert.Equal(t, "signature", resp.ScoreMode)
}

func TestRecommendService_JaccardModeAndThreshold(t *testing.T) {
	svc := newScenarioService(t)

	req := similarReq("A")
	req.ScoreMode = "jaccard"
	resp, err := svc.Similar(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 0.5, resp.Results[0].Similarity, 1e-9)

	req.Threshold = 0.6
	resp, err = svc.Similar(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestRecommendService_AdHocQuery(t *testing.T) {
	svc := newScenarioService(t)

	resp, err := svc.Similar(context.Background(), &domain.SimilarRequest{
		Query: domain.EntityQuery{Tokens: []string{"1", "2", "3"}},
		TopK:  5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "A", resp.Results[0].EntityID, "identical tokens collide in every band")
	assert.InDelta(t, 1.0, resp.Results[0].Similarity, 1e-9)
	assert.Equal(t, "(1,2,3)", resp.Query)
}

func TestRecommendService_Errors(t *testing.T) {
	svc := newScenarioService(t)
	ctx := context.Background()

	_, err := svc.Similar(ctx, similarReq("Z"))
	assert.True(t, domain.IsCode(err, domain.ErrCodeUnknownEntity))
	assert.ErrorIs(t, err, lsh.ErrUnknownEntity)

	req := similarReq("A")
	req.TopK = 0
	_, err = svc.Similar(ctx, req)
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidK))

	_, err = svc.Similar(ctx, &domain.SimilarRequest{Query: domain.EntityQuery{Tokens: []string{""}}, TopK: 1})
	assert.True(t, domain.IsCode(err, domain.ErrCodeEmptyInput))
	assert.ErrorIs(t, err, minhash.ErrEmptyInput)

	_, err = svc.Candidates(ctx, &domain.CandidatesRequest{})
	assert.True(t, domain.IsCode(err, domain.ErrCodeEmptyInput))

	notReady := NewRecommendService(NewCorpusStore(), nil, zerolog.Nop())
	_, err = notReady.Similar(ctx, similarReq("A"))
	assert.True(t, domain.IsCode(err, domain.ErrCodeNotReady))
}

func TestRecommendService_Items(t *testing.T) {
	svc := newScenarioService(t)

	resp, err := svc.Items(context.Background(), &domain.ItemsRequest{
		Query: domain.EntityQuery{EntityID: "A"},
		TopK:  5,
		Count: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "4", resp.Items[0].ItemID, "only the item A has not rated")
	assert.InDelta(t, 4.0, resp.Items[0].Score, 1e-9)
	assert.Equal(t, 1, resp.Items[0].Supporters)
	assert.Equal(t, "mean", resp.Weighting)

	_, err = svc.Items(context.Background(), &domain.ItemsRequest{
		Query: domain.EntityQuery{EntityID: "A"}, TopK: 5, Count: 0,
	})
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidK))
}

func TestRecommendService_Compare(t *testing.T) {
	svc := newScenarioService(t)

	resp, err := svc.Compare(context.Background(), &domain.CompareRequest{
		Left:  domain.EntityQuery{EntityID: "A"},
		Right: domain.EntityQuery{Tokens: []string{"1", "2", "3"}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, resp.Estimated, 1e-9)
	assert.InDelta(t, 1.0, resp.Exact, 1e-9)
	assert.Equal(t, 50, resp.SharedBands)
	assert.InDelta(t, 1.0, resp.CandidateProbability, 1e-9)

	resp, err = svc.Compare(context.Background(), &domain.CompareRequest{
		Left:  domain.EntityQuery{EntityID: "A"},
		Right: domain.EntityQuery{EntityID: "C"},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Exact)
	assert.Zero(t, resp.CandidateProbability)
}

func TestRecommendService_Stats(t *testing.T) {
	svc := newScenarioService(t)

	resp, err := svc.Stats(context.Background(), &domain.StatsRequest{LargestBuckets: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Index.Entities)
	assert.Equal(t, 50, resp.Index.Bands)
	assert.Equal(t, 1, resp.Index.Rows)
	assert.Len(t, resp.Rates, len(rateGrid))
	assert.Len(t, resp.LargestBuckets, 3)
	assert.Len(t, resp.LargestBuckets[0].Hash, 16)
	assert.GreaterOrEqual(t, resp.LargestBuckets[0].Size, resp.LargestBuckets[2].Size)

	for i := 1; i < len(resp.Rates); i++ {
		assert.GreaterOrEqual(t, resp.Rates[i].FalsePositive, resp.Rates[i-1].FalsePositive)
	}

	_, err = svc.Stats(context.Background(), &domain.StatsRequest{LargestBuckets: -1})
	assert.Error(t, err)
}

func TestRecommendService_Evaluate(t *testing.T) {
	svc := newScenarioService(t)

	resp, err := svc.Evaluate(context.Background(), &domain.EvaluateRequest{Threshold: 0.3, MaxResults: 5, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Sampled)
	assert.Equal(t, 3, resp.PairsCompared)
	for _, p := range resp.TopPairs {
		assert.Greater(t, p.Estimated, 0.3)
	}
}

func TestRecommendService_CachePurgedOnSwap(t *testing.T) {
	store, corpusSvc := loadScenario(t)
	cache, err := NewRecommendCache(16)
	require.NoError(t, err)
	cache.Attach(store)
	svc := NewRecommendService(store, cache, zerolog.Nop())

	first, err := svc.Similar(context.Background(), similarReq("A"))
	require.NoError(t, err)
	again, err := svc.Similar(context.Background(), similarReq("A"))
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, cache.Len())

	lc, _ := store.Current()
	req := domain.DefaultCorpusRequest()
	req.Paths = []string{lc.Summary.Source}
	req.NumHashes = 50
	req.BandWidth = 5
	_, err = corpusSvc.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, cache.Len())

	fresh, err := svc.Similar(context.Background(), similarReq("A"))
	require.NoError(t, err)
	assert.NotEqual(t, first.CorpusID, fresh.CorpusID)
}

func TestRecommendCache_Disabled(t *testing.T) {
	cache, err := NewRecommendCache(0)
	require.NoError(t, err)
	assert.Nil(t, cache)

	_, ok := cache.Key("c", "similar", similarReq("A"))
	assert.False(t, ok)
	cache.Add("k", 1)
	_, ok = cache.Get("k")
	assert.False(t, ok)
	cache.Attach(NewCorpusStore())
	assert.Zero(t, cache.Len())
}

func TestCurveService(t *testing.T) {
	resp, err := NewCurveService().Curve(context.Background(), &domain.CurveRequest{
		NumHashes:  100,
		BandWidths: []int{2, 5, 10},
		Step:       0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, resp.Similarities)
	require.Len(t, resp.Rows, 3)

	for i := 1; i < len(resp.Rows); i++ {
		assert.Greater(t, resp.Rows[i].Threshold, resp.Rows[i-1].Threshold, "larger r raises the threshold")
	}
	for _, row := range resp.Rows {
		assert.Zero(t, row.Probabilities[0])
		assert.Equal(t, 1.0, row.Probabilities[len(row.Probabilities)-1])
	}

	_, err = NewCurveService().Curve(context.Background(), &domain.CurveRequest{NumHashes: 100, BandWidths: []int{3}, Step: 0.1})
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidConfig))
}

func TestSimilarityGrid(t *testing.T) {
	grid := SimilarityGrid(0.1)
	assert.Len(t, grid, 11)
	assert.Equal(t, 0.3, grid[3])
	assert.Equal(t, 1.0, grid[10])

	assert.Equal(t, []float64{0, 0.3, 0.6, 0.9, 1}, SimilarityGrid(0.3))
	assert.Equal(t, []float64{0, 1}, SimilarityGrid(math.NaN()))
}
