package mcp

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simrec/app"
	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	config *config.Config
	engine *app.Engine
	source *domain.CorpusRequest

	loadMu sync.Mutex
}

// NewDependencies wires an engine for cfg. The corpus is loaded on first
// use, or earlier through EnsureLoaded.
func NewDependencies(cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	engine, err := app.NewEngine(app.EngineOptions{CacheSize: cfg.Server.CacheSize, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		config: cfg,
		engine: engine,
		source: cfg.CorpusRequest(),
	}, nil
}

// Config exposes the loaded configuration snapshot.
func (d *Dependencies) Config() *config.Config {
	return d.config
}

// Engine exposes the services the handlers query.
func (d *Dependencies) Engine() *app.Engine {
	return d.engine
}

// EnsureLoaded loads the configured corpus unless one is already serving.
func (d *Dependencies) EnsureLoaded(ctx context.Context) (*domain.CorpusSummary, error) {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	if summary, err := d.engine.Corpus.Summary(); err == nil {
		return summary, nil
	}
	return d.engine.Corpus.Load(ctx, d.source)
}
