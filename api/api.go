package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simrec/domain"
)

const requestIDKey = "request_id"

// Defaults fill query parameters the client leaves out.
type Defaults struct {
	TopK           int
	Threshold      float64
	ScoreMode      string
	MinBandMatches int
	ItemCount      int
	ItemWeighting  string
	ShowDetails    bool
	Buckets        int
}

// DefaultDefaults mirrors the configuration defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		TopK:           domain.DefaultTopK,
		Threshold:      domain.DefaultSimilarityThreshold,
		ScoreMode:      domain.DefaultScoreMode,
		MinBandMatches: domain.DefaultMinBandMatches,
		ItemCount:      domain.DefaultItemCount,
		ItemWeighting:  domain.DefaultItemWeighting,
	}
}

// API holds dependencies for the HTTP handlers.
type API struct {
	corpus    domain.CorpusService
	recommend domain.RecommendService
	defaults  Defaults
	logger    zerolog.Logger

	// source is rebuilt by POST /v1/admin/reload; nil disables reloading
	source   *domain.CorpusRequest
	reloadMu sync.Mutex
}

// NewAPI creates the handler set. source may be nil.
func NewAPI(corpus domain.CorpusService, recommend domain.RecommendService, source *domain.CorpusRequest, defaults Defaults, logger zerolog.Logger) *API {
	return &API{
		corpus:    corpus,
		recommend: recommend,
		defaults:  defaults,
		logger:    logger,
		source:    source,
	}
}

// NewRouter returns a gin engine with recovery, request ids, access logging
// and every route registered.
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(api.logger))
	SetupRoutes(router, api)
	return router
}

// SetupRoutes defines all the API routes.
func SetupRoutes(router *gin.Engine, api *API) {
	router.GET("/health", api.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/stats", api.StatsHandler)
		v1.POST("/similar", api.AdHocSimilarHandler)

		entities := v1.Group("/entities/:id")
		{
			entities.GET("/similar", api.SimilarHandler)
			entities.GET("/candidates", api.CandidatesHandler)
			entities.GET("/items", api.ItemsHandler)
		}

		v1.POST("/admin/reload", api.ReloadHandler)
	}
}

// RequestIDMiddleware tags each request with an id, reusing X-Request-ID when sent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// LoggerMiddleware writes one access log line per request.
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Err(c.Errors.Last())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str(requestIDKey, c.GetString(requestIDKey)).
			Msg("request")
	}
}
