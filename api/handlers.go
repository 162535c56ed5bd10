package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ludo-technologies/simrec/domain"
)

// HealthHandler reports liveness and whether a corpus is loaded.
func (api *API) HealthHandler(c *gin.Context) {
	body := gin.H{"status": "ok", "ready": false}
	if summary, err := api.corpus.Summary(); err == nil {
		body["ready"] = true
		body["corpus_id"] = summary.ID
		body["entities"] = summary.Entities
	}
	c.JSON(http.StatusOK, body)
}

// StatsHandler returns corpus and index statistics.
// Query: buckets (largest buckets to list)
func (api *API) StatsHandler(c *gin.Context) {
	buckets, ok := queryInt(c, "buckets", api.defaults.Buckets)
	if !ok {
		return
	}
	resp, err := api.recommend.Stats(c.Request.Context(), &domain.StatsRequest{LargestBuckets: buckets})
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SimilarHandler ranks the entities most similar to an indexed entity.
// Query: k, threshold, mode, min_bands, details
func (api *API) SimilarHandler(c *gin.Context) {
	req, ok := api.similarRequest(c, domain.EntityQuery{EntityID: c.Param("id")})
	if !ok {
		return
	}
	resp, err := api.recommend.Similar(c.Request.Context(), req)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CandidatesHandler lists the raw LSH candidates of an indexed entity.
// Query: min_bands
func (api *API) CandidatesHandler(c *gin.Context) {
	minBands, ok := queryInt(c, "min_bands", api.defaults.MinBandMatches)
	if !ok {
		return
	}
	req := &domain.CandidatesRequest{
		Query:          domain.EntityQuery{EntityID: c.Param("id")},
		MinBandMatches: minBands,
	}
	resp, err := api.recommend.Candidates(c.Request.Context(), req)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ItemsHandler recommends items to an indexed entity.
// Query: n, k, threshold, mode, min_bands, weighting
func (api *API) ItemsHandler(c *gin.Context) {
	sim, ok := api.similarRequest(c, domain.EntityQuery{EntityID: c.Param("id")})
	if !ok {
		return
	}
	count, ok := queryInt(c, "n", api.defaults.ItemCount)
	if !ok {
		return
	}
	req := &domain.ItemsRequest{
		Query:          sim.Query,
		TopK:           sim.TopK,
		Threshold:      sim.Threshold,
		ScoreMode:      sim.ScoreMode,
		MinBandMatches: sim.MinBandMatches,
		Count:          count,
		Weighting:      c.DefaultQuery("weighting", api.defaults.ItemWeighting),
	}
	resp, err := api.recommend.Items(c.Request.Context(), req)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdHocSimilarRequest describes an entity that is not in the corpus.
type AdHocSimilarRequest struct {
	Tokens         []string `json:"tokens"`
	K              *int     `json:"k,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
	Mode           string   `json:"mode,omitempty"`
	MinBandMatches *int     `json:"min_bands,omitempty"`
	Details        bool     `json:"details,omitempty"`
}

// AdHocSimilarHandler ranks corpus entities against an unseen token set.
// Request Body: AdHocSimilarRequest
func (api *API) AdHocSimilarHandler(c *gin.Context) {
	var body AdHocSimilarRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Tokens) == 0 {
		SendDomainError(c, domain.NewEmptyInputError("tokens must not be empty", nil))
		return
	}

	req := &domain.SimilarRequest{
		Query:          domain.EntityQuery{Tokens: body.Tokens},
		TopK:           deref(body.K, api.defaults.TopK),
		Threshold:      deref(body.Threshold, api.defaults.Threshold),
		ScoreMode:      body.Mode,
		MinBandMatches: deref(body.MinBandMatches, api.defaults.MinBandMatches),
		ShowDetails:    body.Details || api.defaults.ShowDetails,
	}
	if req.ScoreMode == "" {
		req.ScoreMode = api.defaults.ScoreMode
	}

	resp, err := api.recommend.Similar(c.Request.Context(), req)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReloadHandler rebuilds the corpus from its configured source and swaps it
// in. Queries keep using the old corpus until the new one is ready.
func (api *API) ReloadHandler(c *gin.Context) {
	if api.source == nil {
		SendError(c, http.StatusConflict, ErrorCodeReloadDisabled, "server was started without a reloadable source")
		return
	}
	if !api.reloadMu.TryLock() {
		SendError(c, http.StatusConflict, ErrorCodeReloadRunning, "a reload is already running")
		return
	}
	defer api.reloadMu.Unlock()

	summary, err := api.corpus.Load(c.Request.Context(), api.source)
	if err != nil {
		api.logger.Error().Err(err).Msg("reload failed; keeping current corpus")
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (api *API) similarRequest(c *gin.Context, q domain.EntityQuery) (*domain.SimilarRequest, bool) {
	k, ok := queryInt(c, "k", api.defaults.TopK)
	if !ok {
		return nil, false
	}
	threshold, ok := queryFloat(c, "threshold", api.defaults.Threshold)
	if !ok {
		return nil, false
	}
	minBands, ok := queryInt(c, "min_bands", api.defaults.MinBandMatches)
	if !ok {
		return nil, false
	}
	details, ok := queryBool(c, "details", api.defaults.ShowDetails)
	if !ok {
		return nil, false
	}
	return &domain.SimilarRequest{
		Query:          q,
		TopK:           k,
		Threshold:      threshold,
		ScoreMode:      c.DefaultQuery("mode", api.defaults.ScoreMode),
		MinBandMatches: minBands,
		ShowDetails:    details,
	}, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "query parameter "+name+" must be an integer")
		return 0, false
	}
	return v, true
}

func queryFloat(c *gin.Context, name string, fallback float64) (float64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "query parameter "+name+" must be a number")
		return 0, false
	}
	return v, true
}

func queryBool(c *gin.Context, name string, fallback bool) (bool, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "query parameter "+name+" must be a boolean")
		return false, false
	}
	return v, true
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
