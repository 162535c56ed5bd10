package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/simrec/domain"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	return &HandlerSet{deps: deps}
}

// HandleFindSimilar handles the find_similar tool
func (h *HandlerSet) HandleFindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, query, failure := h.prepare(ctx, request)
	if failure != nil {
		return failure, nil
	}

	rc := h.deps.Config().Recommend
	req := &domain.SimilarRequest{
		Query:          query,
		TopK:           argInt(args, "top_k", rc.TopK),
		Threshold:      argFloat(args, "similarity_threshold", rc.SimilarityThreshold),
		ScoreMode:      argString(args, "score_mode", rc.ScoreMode),
		MinBandMatches: h.deps.Config().LSH.MinBandMatches,
		ShowDetails:    argBool(args, "show_details", h.deps.Config().Output.ShowDetails),
	}
	resp, err := h.deps.Engine().Recommend.Similar(ctx, req)
	return result(resp, err)
}

// HandleFindCandidates handles the find_candidates tool
func (h *HandlerSet) HandleFindCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, query, failure := h.prepare(ctx, request)
	if failure != nil {
		return failure, nil
	}

	req := &domain.CandidatesRequest{
		Query:          query,
		MinBandMatches: argInt(args, "min_band_matches", h.deps.Config().LSH.MinBandMatches),
	}
	resp, err := h.deps.Engine().Recommend.Candidates(ctx, req)
	return result(resp, err)
}

// HandleRecommendItems handles the recommend_items tool
func (h *HandlerSet) HandleRecommendItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, query, failure := h.prepare(ctx, request)
	if failure != nil {
		return failure, nil
	}

	rc := h.deps.Config().Recommend
	req := &domain.ItemsRequest{
		Query:          query,
		TopK:           argInt(args, "top_k", rc.TopK),
		Threshold:      rc.SimilarityThreshold,
		ScoreMode:      rc.ScoreMode,
		MinBandMatches: h.deps.Config().LSH.MinBandMatches,
		Count:          argInt(args, "item_count", rc.ItemCount),
		Weighting:      argString(args, "item_weighting", rc.ItemWeighting),
	}
	resp, err := h.deps.Engine().Recommend.Items(ctx, req)
	return result(resp, err)
}

// HandleIndexStats handles the index_stats tool
func (h *HandlerSet) HandleIndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	if err := validateIntArgs(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := h.deps.EnsureLoaded(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load corpus: %v", err)), nil
	}

	resp, err := h.deps.Engine().Recommend.Stats(ctx, &domain.StatsRequest{LargestBuckets: argInt(args, "largest_buckets", 0)})
	return result(resp, err)
}

// HandleEstimateSimilarity handles the estimate_similarity tool
func (h *HandlerSet) HandleEstimateSimilarity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	left, lok := args["left"].(string)
	right, rok := args["right"].(string)
	if !lok || !rok || left == "" || right == "" {
		return mcp.NewToolResultError("left and right parameters are required and must be strings"), nil
	}
	if _, err := h.deps.EnsureLoaded(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load corpus: %v", err)), nil
	}

	resp, err := h.deps.Engine().Recommend.Compare(ctx, &domain.CompareRequest{
		Left:  domain.EntityQuery{EntityID: left},
		Right: domain.EntityQuery{EntityID: right},
	})
	return result(resp, err)
}

// prepare parses the arguments shared by the entity query tools and makes
// sure a corpus is loaded. A non-nil failure is returned to the client as is.
func (h *HandlerSet) prepare(ctx context.Context, request mcp.CallToolRequest) (map[string]interface{}, domain.EntityQuery, *mcp.CallToolResult) {
	args, ok := arguments(request)
	if !ok {
		return nil, domain.EntityQuery{}, mcp.NewToolResultError("invalid arguments format")
	}

	query := domain.EntityQuery{
		EntityID: argString(args, "entity_id", ""),
		Tokens:   argStrings(args, "tokens"),
	}
	if err := query.Validate(); err != nil {
		return nil, query, mcp.NewToolResultError(err.Error())
	}
	if err := validateIntArgs(args); err != nil {
		return nil, query, mcp.NewToolResultError(err.Error())
	}

	if _, err := h.deps.EnsureLoaded(ctx); err != nil {
		return nil, query, mcp.NewToolResultError(fmt.Sprintf("failed to load corpus: %v", err))
	}
	return args, query, nil
}

func result(resp any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonData, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func argString(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// JSON numbers arrive as float64.
func argFloat(args map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

// intArgs are the tool arguments read with argInt.
var intArgs = []string{"top_k", "min_band_matches", "item_count", "largest_buckets"}

// validateIntArgs rejects integer arguments that are not whole numbers in
// the int32 range, so argInt never converts an out-of-range float.
func validateIntArgs(args map[string]interface{}) error {
	for _, key := range intArgs {
		raw, present := args[key]
		if !present || raw == nil {
			continue
		}
		v, ok := raw.(float64)
		if !ok {
			return domain.NewValidationError(fmt.Sprintf("%s must be a number", key))
		}
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return domain.NewValidationError(fmt.Sprintf("%s must be an integer, got %g", key, v))
		}
	}
	return nil
}

func argInt(args map[string]interface{}, key string, fallback int) int {
	if v, ok := args[key].(float64); ok && v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
		return int(v)
	}
	return fallback
}

func argBool(args map[string]interface{}, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

func argStrings(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
