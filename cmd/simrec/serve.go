package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/api"
	"github.com/ludo-technologies/simrec/app"
	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand represents the serve command
type ServeCommand struct {
	root      *rootOptions
	corpus    corpusFlags
	addr      string
	cacheSize int
}

// CreateCobraCommand creates the cobra command for the HTTP API
func (c *ServeCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [paths...]",
		Short: "Serve similarity queries over HTTP",
		Long: `Build or load a corpus and serve it over an HTTP JSON API.

Routes:
  GET  /health
  GET  /metrics                        Prometheus metrics
  GET  /v1/stats?buckets=N
  GET  /v1/entities/:id/similar?k=&threshold=&mode=&min_bands=&details=
  GET  /v1/entities/:id/candidates?min_bands=
  GET  /v1/entities/:id/items?n=&k=&weighting=
  POST /v1/similar                     {"tokens": [...], "k": 10}
  POST /v1/admin/reload                rebuild from the same source and swap

Query results are cached per corpus; the cache is cleared on reload.

Examples:
  simrec serve ratings.csv --addr :8080
  simrec serve --snapshot movies.simrec --cache-size 4096`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	cmd.Flags().StringVar(&c.addr, "addr", domain.DefaultServerAddress, "Listen address")
	cmd.Flags().IntVar(&c.cacheSize, "cache-size", domain.DefaultCacheSize, "Query result cache entries (0 disables)")
	return cmd
}

func (c *ServeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := c.root.load(cmd)
	if err != nil {
		return err
	}
	ft := explicitFlags(cmd)
	addr := config.Merge(ft, cfg.Server.Address, c.addr, "addr")
	cacheSize := config.Merge(ft, cfg.Server.CacheSize, c.cacheSize, "cache-size")

	engine, err := app.NewEngine(app.EngineOptions{CacheSize: cacheSize, Logger: logger})
	if err != nil {
		return err
	}

	source := c.corpus.request(cmd, cfg, args)
	ctx := cmd.Context()
	if _, err := engine.Corpus.Load(ctx, source); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handlers := api.NewAPI(engine.Corpus, engine.Recommend, source, apiDefaults(cfg), logger.With().Str("component", "api").Logger())
	readTimeout := time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handlers),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func apiDefaults(cfg *config.Config) api.Defaults {
	return api.Defaults{
		TopK:           cfg.Recommend.TopK,
		Threshold:      cfg.Recommend.SimilarityThreshold,
		ScoreMode:      cfg.Recommend.ScoreMode,
		MinBandMatches: cfg.LSH.MinBandMatches,
		ItemCount:      cfg.Recommend.ItemCount,
		ItemWeighting:  cfg.Recommend.ItemWeighting,
		ShowDetails:    cfg.Output.ShowDetails,
	}
}

// NewServeCmd creates and returns the serve cobra command
func NewServeCmd(root *rootOptions) *cobra.Command {
	return (&ServeCommand{root: root}).CreateCobraCommand()
}
