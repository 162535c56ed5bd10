package domain

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
)

// EntityQuery selects the query entity: either an indexed entity by id or
// an unseen entity described by its tokens.
type EntityQuery struct {
	EntityID string   `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	Tokens   []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// IsAdHoc reports whether the query describes an entity outside the corpus.
func (q EntityQuery) IsAdHoc() bool {
	return q.EntityID == "" && len(q.Tokens) > 0
}

// Label names the query entity in reports.
func (q EntityQuery) Label() string {
	if q.EntityID != "" {
		return q.EntityID
	}
	return "(" + strings.Join(q.Tokens, ",") + ")"
}

// Validate validates an entity query
func (q EntityQuery) Validate() error {
	if q.EntityID != "" && len(q.Tokens) > 0 {
		return NewValidationError("specify either an entity id or tokens, not both")
	}
	if q.EntityID == "" && len(q.Tokens) == 0 {
		return NewEmptyInputError("query has neither an entity id nor tokens", nil)
	}
	return nil
}

// SimilarEntity is one ranked neighbour.
type SimilarEntity struct {
	EntityID    string   `json:"entity_id" yaml:"entity_id" csv:"entity_id"`
	Similarity  float64  `json:"similarity" yaml:"similarity" csv:"similarity"`
	SharedBands int      `json:"shared_bands" yaml:"shared_bands" csv:"shared_bands"`
	Exact       *float64 `json:"exact_jaccard,omitempty" yaml:"exact_jaccard,omitempty" csv:"exact_jaccard"`
}

// SimilarRequest asks for the top-k most similar entities.
type SimilarRequest struct {
	Query          EntityQuery `json:"query"`
	TopK           int         `json:"top_k"`
	Threshold      float64     `json:"similarity_threshold"`
	ScoreMode      string      `json:"score_mode"`
	MinBandMatches int         `json:"min_band_matches"`
	ShowDetails    bool        `json:"show_details"` // also report exact Jaccard
}

// Validate validates a similarity request
func (req *SimilarRequest) Validate() error {
	if err := req.Query.Validate(); err != nil {
		return err
	}
	if req.TopK <= 0 {
		return NewInvalidKError(req.TopK, nil)
	}
	return validateRanking(req.Threshold, req.ScoreMode)
}

// SimilarResponse lists ranked neighbours of the query entity.
type SimilarResponse struct {
	CorpusID   string          `json:"corpus_id" yaml:"corpus_id"`
	Query      string          `json:"query" yaml:"query"`
	ScoreMode  string          `json:"score_mode" yaml:"score_mode"`
	Candidates int             `json:"candidates" yaml:"candidates"`
	Results    []SimilarEntity `json:"results" yaml:"results"`
}

// Candidate is an entity sharing at least one band-bucket with the query.
type Candidate struct {
	EntityID    string `json:"entity_id" yaml:"entity_id" csv:"entity_id"`
	SharedBands int    `json:"shared_bands" yaml:"shared_bands" csv:"shared_bands"`
}

// CandidatesRequest asks for the raw, unranked candidate set.
type CandidatesRequest struct {
	Query          EntityQuery `json:"query"`
	MinBandMatches int         `json:"min_band_matches"`
}

// Validate validates a candidates request
func (req *CandidatesRequest) Validate() error {
	return req.Query.Validate()
}

// CandidatesResponse lists candidates in ascending id order.
type CandidatesResponse struct {
	CorpusID       string      `json:"corpus_id" yaml:"corpus_id"`
	Query          string      `json:"query" yaml:"query"`
	MinBandMatches int         `json:"min_band_matches" yaml:"min_band_matches"`
	Candidates     []Candidate `json:"candidates" yaml:"candidates"`
}

// RecommendedItem is an item suggested to the query entity.
type RecommendedItem struct {
	ItemID     string  `json:"item_id" yaml:"item_id" csv:"item_id"`
	Score      float64 `json:"score" yaml:"score" csv:"score"`
	Supporters int     `json:"supporters" yaml:"supporters" csv:"supporters"`
}

// ItemsRequest asks for item recommendations derived from the query's neighbours.
type ItemsRequest struct {
	Query          EntityQuery `json:"query"`
	TopK           int         `json:"top_k"` // neighbours consulted
	Threshold      float64     `json:"similarity_threshold"`
	ScoreMode      string      `json:"score_mode"`
	MinBandMatches int         `json:"min_band_matches"`
	Count          int         `json:"item_count"`
	Weighting      string      `json:"item_weighting"`
}

// Validate validates an items request
func (req *ItemsRequest) Validate() error {
	if err := req.Query.Validate(); err != nil {
		return err
	}
	if req.TopK <= 0 {
		return NewInvalidKError(req.TopK, nil)
	}
	if req.Count <= 0 {
		return NewInvalidKError(req.Count, nil)
	}
	switch req.Weighting {
	case "", "mean", "similarity":
	default:
		return NewInvalidConfigError(fmt.Sprintf("unknown item_weighting %q, must be mean or similarity", req.Weighting), nil)
	}
	return validateRanking(req.Threshold, req.ScoreMode)
}

// ItemsResponse carries the neighbours consulted and the recommended items.
type ItemsResponse struct {
	CorpusID   string            `json:"corpus_id" yaml:"corpus_id"`
	Query      string            `json:"query" yaml:"query"`
	Weighting  string            `json:"weighting" yaml:"weighting"`
	Neighbours []SimilarEntity   `json:"neighbours" yaml:"neighbours"`
	Items      []RecommendedItem `json:"items" yaml:"items"`
}

// CompareRequest asks for the similarity of two entities.
type CompareRequest struct {
	Left  EntityQuery `json:"left"`
	Right EntityQuery `json:"right"`
}

// Validate validates a compare request
func (req *CompareRequest) Validate() error {
	if err := req.Left.Validate(); err != nil {
		return err
	}
	return req.Right.Validate()
}

// CompareResponse reports estimated and exact similarity of two entities and
// the probability that banding makes them candidates.
type CompareResponse struct {
	Left                 string  `json:"left" yaml:"left"`
	Right                string  `json:"right" yaml:"right"`
	Estimated            float64 `json:"estimated" yaml:"estimated"`
	Exact                float64 `json:"exact" yaml:"exact"`
	SharedBands          int     `json:"shared_bands" yaml:"shared_bands"`
	CandidateProbability float64 `json:"candidate_probability" yaml:"candidate_probability"`
}

// StatsRequest asks for index statistics.
type StatsRequest struct {
	LargestBuckets int `json:"largest_buckets"`
}

// IndexStatistics summarizes bucket sizes.
type IndexStatistics struct {
	Entities         int     `json:"entities" yaml:"entities"`
	Buckets          int     `json:"buckets" yaml:"buckets"`
	Bands            int     `json:"bands" yaml:"bands"`
	Rows             int     `json:"rows" yaml:"rows"`
	Threshold        float64 `json:"threshold" yaml:"threshold"`
	MinBucketSize    int     `json:"min_bucket_size" yaml:"min_bucket_size"`
	MaxBucketSize    int     `json:"max_bucket_size" yaml:"max_bucket_size"`
	AvgBucketSize    float64 `json:"avg_bucket_size" yaml:"avg_bucket_size"`
	MedianBucketSize float64 `json:"median_bucket_size" yaml:"median_bucket_size"`
	Singletons       int     `json:"singletons" yaml:"singletons"`
}

// BucketSummary is one bucket with its members.
type BucketSummary struct {
	Band      int      `json:"band" yaml:"band" csv:"band"`
	Hash      string   `json:"hash" yaml:"hash" csv:"hash"`
	Size      int      `json:"size" yaml:"size" csv:"size"`
	EntityIDs []string `json:"entity_ids" yaml:"entity_ids" csv:"entity_ids"`
}

// RateEstimate is the banding error at one similarity level.
type RateEstimate struct {
	Similarity    float64 `json:"similarity" yaml:"similarity"`
	FalsePositive float64 `json:"false_positive" yaml:"false_positive"`
	FalseNegative float64 `json:"false_negative" yaml:"false_negative"`
}

// StatsResponse describes the current corpus and its index.
type StatsResponse struct {
	Corpus         *CorpusSummary  `json:"corpus" yaml:"corpus"`
	Index          IndexStatistics `json:"index" yaml:"index"`
	Rates          []RateEstimate  `json:"rates" yaml:"rates"`
	LargestBuckets []BucketSummary `json:"largest_buckets,omitempty" yaml:"largest_buckets,omitempty"`
}

// EvaluateRequest configures an estimation accuracy run.
type EvaluateRequest struct {
	SampleSize int     `json:"sample_size"`
	Threshold  float64 `json:"threshold"`
	MaxResults int     `json:"max_results"`
	Seed       uint64  `json:"seed"`
}

// Validate validates an evaluate request
func (req *EvaluateRequest) Validate() error {
	if req.SampleSize < 0 {
		return NewValidationError(fmt.Sprintf("sample_size must be >= 0, got %d", req.SampleSize))
	}
	if !inUnitInterval(req.Threshold) {
		return NewInvalidConfigError(fmt.Sprintf("threshold must be within [0, 1], got %g", req.Threshold), nil)
	}
	if req.MaxResults <= 0 {
		return NewInvalidKError(req.MaxResults, nil)
	}
	return nil
}

// PairComparison is one sampled pair.
type PairComparison struct {
	Left      string  `json:"left" yaml:"left" csv:"left"`
	Right     string  `json:"right" yaml:"right" csv:"right"`
	Estimated float64 `json:"estimated" yaml:"estimated" csv:"estimated"`
	Exact     float64 `json:"exact" yaml:"exact" csv:"exact"`
	Loss      float64 `json:"loss" yaml:"loss" csv:"loss"`
}

// EvaluateResponse reports how closely the estimate tracks exact Jaccard.
type EvaluateResponse struct {
	CorpusID        string           `json:"corpus_id" yaml:"corpus_id"`
	Sampled         int              `json:"sampled" yaml:"sampled"`
	PairsCompared   int              `json:"pairs_compared" yaml:"pairs_compared"`
	Threshold       float64          `json:"threshold" yaml:"threshold"`
	PairsAbove      int              `json:"pairs_above_threshold" yaml:"pairs_above_threshold"`
	MeanLoss        float64          `json:"mean_loss" yaml:"mean_loss"`
	StdDevLoss      float64          `json:"stddev_loss" yaml:"stddev_loss"`
	MaxLoss         float64          `json:"max_loss" yaml:"max_loss"`
	OverallMeanLoss float64          `json:"overall_mean_loss" yaml:"overall_mean_loss"`
	Correlation     float64          `json:"correlation" yaml:"correlation"`
	TopPairs        []PairComparison `json:"top_pairs" yaml:"top_pairs"`
}

// RecommendService answers queries against the current corpus.
type RecommendService interface {
	Similar(ctx context.Context, req *SimilarRequest) (*SimilarResponse, error)
	Candidates(ctx context.Context, req *CandidatesRequest) (*CandidatesResponse, error)
	Items(ctx context.Context, req *ItemsRequest) (*ItemsResponse, error)
	Compare(ctx context.Context, req *CompareRequest) (*CompareResponse, error)
	Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error)
	Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error)
}

// ReportFormatter renders responses in every supported output format.
type ReportFormatter interface {
	WriteSimilar(resp *SimilarResponse, format OutputFormat, w io.Writer) error
	WriteCandidates(resp *CandidatesResponse, format OutputFormat, w io.Writer) error
	WriteItems(resp *ItemsResponse, format OutputFormat, w io.Writer) error
	WriteCompare(resp *CompareResponse, format OutputFormat, w io.Writer) error
	WriteStats(resp *StatsResponse, format OutputFormat, w io.Writer) error
	WriteEvaluation(resp *EvaluateResponse, format OutputFormat, w io.Writer) error
	WriteCurve(resp *CurveResponse, format OutputFormat, w io.Writer) error
	WriteSnapshot(resp *SnapshotResponse, format OutputFormat, w io.Writer) error
}

func validateRanking(threshold float64, mode string) error {
	if !inUnitInterval(threshold) {
		return NewInvalidConfigError(fmt.Sprintf("similarity_threshold must be within [0, 1], got %g", threshold), nil)
	}
	switch mode {
	case "", "signature", "jaccard":
	default:
		return NewInvalidConfigError(fmt.Sprintf("unknown score_mode %q, must be signature or jaccard", mode), nil)
	}
	return nil
}

// inUnitInterval reports whether v lies within [0, 1]. NaN does not.
func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
