package mcp

import (
	"github.com/ludo-technologies/simrec/app"
	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
)

func NewTestDependencies(cfg *config.Config, engine *app.Engine, source *domain.CorpusRequest) *Dependencies {
	return &Dependencies{
		config: cfg,
		engine: engine,
		source: source,
	}
}
