package main

import (
	"context"
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/simrec/internal/config"
	"github.com/ludo-technologies/simrec/internal/logging"
	"github.com/ludo-technologies/simrec/internal/version"
	"github.com/ludo-technologies/simrec/mcp"
)

const serverName = "simrec"

func main() {
	configPath := pflag.StringP("config", "c", "", "Configuration file path")
	eager := pflag.Bool("load", true, "Load the corpus before accepting connections")
	pflag.Parse()

	if err := run(*configPath, *eager); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, eager bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(configPath, cwd)
	if err != nil {
		return err
	}

	// stdout carries JSON-RPC; the logger always writes to stderr.
	logger := logging.Init(cfg.LoggerConfig())

	deps, err := mcp.NewDependencies(cfg, logger)
	if err != nil {
		return err
	}
	if eager {
		summary, err := deps.EnsureLoaded(context.Background())
		if err != nil {
			// Tools retry the load on each call.
			logger.Warn().Err(err).Msg("corpus not loaded")
		} else {
			logger.Info().Str("corpus_id", summary.ID).Int("entities", summary.Entities).Msg("corpus loaded")
		}
	}

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)
	mcp.RegisterTools(server, mcp.NewHandlerSet(deps))

	logger.Info().
		Str("version", version.Short()).
		Strs("tools", []string{"find_similar", "find_candidates", "recommend_items", "index_stats", "estimate_similarity"}).
		Msg("MCP server ready, waiting for client on stdio")

	return mcpserver.ServeStdio(server)
}
