package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/app"
	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
	"github.com/ludo-technologies/simrec/mcp"
)

const ratings = `userId,movieId,rating
A,1,5
A,2,5
A,3,5
B,2,4
B,3,4
B,4,4
C,9,3
C,10,3
`

func setupHandlers(t *testing.T) *mcp.HandlerSet {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratings.csv")
	require.NoError(t, os.WriteFile(path, []byte(ratings), 0o600))

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{path}
	cfg.MinHash.NumHashes = 50
	cfg.LSH.BandWidth = 1

	engine, err := app.NewEngine(app.EngineOptions{CacheSize: 8, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return mcp.NewHandlerSet(mcp.NewTestDependencies(cfg, engine, cfg.CorpusRequest()))
}

func call(
	t *testing.T,
	handler func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error),
	arguments interface{},
) *mcplib.CallToolResult {
	t.Helper()
	request := mcplib.CallToolRequest{}
	request.Params.Arguments = arguments
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result
}

func text(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	content, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return content.Text
}

func decodeResult[T any](t *testing.T, result *mcplib.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, text(t, result))
	var v T
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &v))
	return v
}

func TestHandleFindSimilar(t *testing.T) {
	h := setupHandlers(t)

	tests := []struct {
		name      string
		arguments interface{}
		wantErr   string
		wantFirst string
	}{
		{name: "indexed entity", arguments: map[string]interface{}{"entity_id": "A", "top_k": float64(2)}, wantFirst: "B"},
		{name: "unseen tokens", arguments: map[string]interface{}{"tokens": []interface{}{"2", "3", "4"}}, wantFirst: "B"},
		{name: "neither id nor tokens", arguments: map[string]interface{}{}, wantErr: "neither an entity id nor tokens"},
		{name: "unknown entity", arguments: map[string]interface{}{"entity_id": "Z"}, wantErr: "unknown entity"},
		{name: "zero top_k", arguments: map[string]interface{}{"entity_id": "A", "top_k": float64(0)}, wantErr: "top_k must be positive"},
		{name: "bad arguments", arguments: "not a map", wantErr: "invalid arguments format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, h.HandleFindSimilar, tt.arguments)
			if tt.wantErr != "" {
				assert.True(t, result.IsError)
				assert.Contains(t, text(t, result), tt.wantErr)
				return
			}
			resp := decodeResult[domain.SimilarResponse](t, result)
			require.NotEmpty(t, resp.Results)
			assert.Equal(t, tt.wantFirst, resp.Results[0].EntityID)
		})
	}
}

func TestHandleFindCandidates(t *testing.T) {
	h := setupHandlers(t)

	resp := decodeResult[domain.CandidatesResponse](t, call(t, h.HandleFindCandidates, map[string]interface{}{"entity_id": "A"}))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "B", resp.Candidates[0].EntityID)

	resp = decodeResult[domain.CandidatesResponse](t, call(t, h.HandleFindCandidates, map[string]interface{}{"entity_id": "C"}))
	assert.Empty(t, resp.Candidates)
}

func TestHandleRecommendItems(t *testing.T) {
	h := setupHandlers(t)

	resp := decodeResult[domain.ItemsResponse](t, call(t, h.HandleRecommendItems, map[string]interface{}{
		"entity_id":  "A",
		"item_count": float64(3),
	}))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "4", resp.Items[0].ItemID)
	assert.InDelta(t, 4.0, resp.Items[0].Score, 1e-9)
}

func TestHandleIndexStats(t *testing.T) {
	h := setupHandlers(t)

	resp := decodeResult[domain.StatsResponse](t, call(t, h.HandleIndexStats, map[string]interface{}{"largest_buckets": float64(1)}))
	assert.Equal(t, 3, resp.Index.Entities)
	assert.Len(t, resp.LargestBuckets, 1)
	require.NotNil(t, resp.Corpus)
	assert.Equal(t, 50, resp.Corpus.NumHashes)
}

func TestHandleEstimateSimilarity(t *testing.T) {
	h := setupHandlers(t)

	resp := decodeResult[domain.CompareResponse](t, call(t, h.HandleEstimateSimilarity, map[string]interface{}{"left": "A", "right": "B"}))
	assert.InDelta(t, 0.5, resp.Exact, 1e-9)
	assert.InDelta(t, 0.5, resp.Estimated, 0.3)

	result := call(t, h.HandleEstimateSimilarity, map[string]interface{}{"left": "A"})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "left and right parameters are required")
}

func TestHandlers_RejectIntegerArguments(t *testing.T) {
	h := setupHandlers(t)

	tests := []struct {
		name    string
		handler func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error)
		args    map[string]interface{}
	}{
		{"huge top_k", h.HandleFindSimilar, map[string]interface{}{"entity_id": "A", "top_k": 1e30}},
		{"fractional top_k", h.HandleFindSimilar, map[string]interface{}{"entity_id": "A", "top_k": 2.5}},
		{"string item_count", h.HandleRecommendItems, map[string]interface{}{"entity_id": "A", "item_count": "3"}},
		{"negative overflow min_band_matches", h.HandleFindCandidates, map[string]interface{}{"entity_id": "A", "min_band_matches": -1e12}},
		{"huge largest_buckets", h.HandleIndexStats, map[string]interface{}{"largest_buckets": 1e30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, tt.handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text(t, result), "INVALID_INPUT")
		})
	}

	resp := decodeResult[domain.SimilarResponse](t, call(t, h.HandleFindSimilar, map[string]interface{}{"entity_id": "A", "top_k": float64(1)}))
	assert.LessOrEqual(t, len(resp.Results), 1)
}

func TestHandlers_LoadFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{filepath.Join(t.TempDir(), "missing.csv")}
	engine, err := app.NewEngine(app.EngineOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	h := mcp.NewHandlerSet(mcp.NewTestDependencies(cfg, engine, cfg.CorpusRequest()))

	result := call(t, h.HandleIndexStats, nil)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "failed to load corpus")
}

func TestNewDependencies(t *testing.T) {
	deps, err := mcp.NewDependencies(nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().MinHash.NumHashes, deps.Config().MinHash.NumHashes)
	assert.NotNil(t, deps.Engine())

	_, err = deps.EnsureLoaded(context.Background())
	assert.Error(t, err, "default config has no input paths")
}
