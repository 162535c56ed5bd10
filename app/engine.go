package app

import (
	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/service"
)

// EngineOptions configures NewEngine.
type EngineOptions struct {
	// CacheSize bounds the query result cache; 0 disables it
	CacheSize int

	// Progress reports signature building; nil reports nothing
	Progress domain.ProgressManager

	Logger zerolog.Logger
}

// Engine owns the shared corpus and the services that read it. One engine
// backs a CLI run, the HTTP server or the MCP server.
type Engine struct {
	Store     *service.CorpusStore
	Cache     *service.RecommendCache
	Corpus    *service.CorpusServiceImpl
	Recommend *service.RecommendServiceImpl
	Curves    *service.CurveServiceImpl
	Formatter *service.ReportFormatterImpl
}

// NewEngine wires the services around a fresh, empty corpus store.
func NewEngine(opts EngineOptions) (*Engine, error) {
	store := service.NewCorpusStore()

	cache, err := service.NewRecommendCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	cache.Attach(store)

	return &Engine{
		Store:     store,
		Cache:     cache,
		Corpus:    service.NewCorpusService(store, opts.Progress, opts.Logger.With().Str("component", "corpus").Logger()),
		Recommend: service.NewRecommendService(store, cache, opts.Logger.With().Str("component", "recommend").Logger()),
		Curves:    service.NewCurveService(),
		Formatter: service.NewReportFormatter(),
	}, nil
}

// QueryUseCase returns a query use case over the engine's services.
func (e *Engine) QueryUseCase(output domain.ReportWriter) (*QueryUseCase, error) {
	return NewQueryUseCaseBuilder().
		WithCorpusService(e.Corpus).
		WithRecommendService(e.Recommend).
		WithFormatter(e.Formatter).
		WithOutputWriter(output).
		Build()
}

// CurveUseCase returns a curve use case over the engine's services.
func (e *Engine) CurveUseCase(output domain.ReportWriter) (*CurveUseCase, error) {
	uc, err := NewCurveUseCase(e.Curves, e.Formatter)
	if err != nil {
		return nil, err
	}
	if output != nil {
		uc.WithOutputWriter(output)
	}
	return uc, nil
}
