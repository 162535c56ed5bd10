package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func queryOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("entity_id",
			mcp.Description("Id of an entity in the corpus. Give either entity_id or tokens")),
		mcp.WithArray("tokens",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Feature tokens (item ids) of an entity that is not in the corpus")),
	}
}

// RegisterTools registers all simrec MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	// Tool 1: find_similar - ranked nearest neighbours
	s.AddTool(mcp.NewTool("find_similar", append(queryOptions(),
		mcp.WithDescription("Find the entities most similar to a query entity using MinHash signatures and LSH banding"),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results (default: recommend.top_k from config)")),
		mcp.WithNumber("similarity_threshold",
			mcp.Description("Minimum similarity 0.0-1.0, 0 disables the filter")),
		mcp.WithString("score_mode",
			mcp.Enum("signature", "jaccard"),
			mcp.Description("Score by signature agreement or exact Jaccard (default: signature)")),
		mcp.WithBoolean("show_details",
			mcp.Description("Also report exact Jaccard for every result")),
	)...), h.HandleFindSimilar)

	// Tool 2: find_candidates - raw LSH candidate set
	s.AddTool(mcp.NewTool("find_candidates", append(queryOptions(),
		mcp.WithDescription("List entities sharing at least min_band_matches LSH buckets with the query, unranked"),
		mcp.WithNumber("min_band_matches",
			mcp.Description("Buckets a candidate must share with the query (default: 1)")),
	)...), h.HandleFindCandidates)

	// Tool 3: recommend_items - items rated by similar entities
	s.AddTool(mcp.NewTool("recommend_items", append(queryOptions(),
		mcp.WithDescription("Recommend items the query entity does not have, aggregated from its most similar entities"),
		mcp.WithNumber("top_k",
			mcp.Description("Neighbours consulted (default: recommend.top_k from config)")),
		mcp.WithNumber("item_count",
			mcp.Description("Number of items to return (default: recommend.item_count from config)")),
		mcp.WithString("item_weighting",
			mcp.Enum("mean", "similarity"),
			mcp.Description("Rank items by mean neighbour rating or similarity-weighted mean")),
	)...), h.HandleRecommendItems)

	// Tool 4: index_stats - corpus and bucket statistics
	s.AddTool(mcp.NewTool("index_stats",
		mcp.WithDescription("Describe the loaded corpus, its LSH bucket sizes and banding error rates"),
		mcp.WithNumber("largest_buckets",
			mcp.Description("Number of largest buckets to list (default: 0)")),
	), h.HandleIndexStats)

	// Tool 5: estimate_similarity - compare two entities
	s.AddTool(mcp.NewTool("estimate_similarity",
		mcp.WithDescription("Compare two corpus entities: estimated and exact Jaccard similarity and the probability LSH pairs them"),
		mcp.WithString("left",
			mcp.Required(),
			mcp.Description("Id of the first entity")),
		mcp.WithString("right",
			mcp.Required(),
			mcp.Description("Id of the second entity")),
	), h.HandleEstimateSimilarity)
}
