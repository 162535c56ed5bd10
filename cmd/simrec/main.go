package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/internal/config"
	"github.com/ludo-technologies/simrec/internal/logging"
	"github.com/ludo-technologies/simrec/internal/version"
	"github.com/ludo-technologies/simrec/service"
)

// rootOptions holds the persistent flags and the configuration they resolve to.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg    *config.Config
	logger zerolog.Logger
}

// load resolves the configuration once and initializes logging from it.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	if o.cfg != nil {
		return o.cfg, o.logger, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.LoadConfig(o.configPath, cwd)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	explicit := explicitFlags(cmd)
	cfg.Logging.Level = config.Merge(explicit, cfg.Logging.Level, o.logLevel, "log-level")
	cfg.Logging.Format = config.Merge(explicit, cfg.Logging.Format, o.logFormat, "log-format")
	if o.verbose && !explicit.WasSet("log-level") {
		cfg.Logging.Level = "debug"
	}
	if !logging.ValidLevel(cfg.Logging.Level) {
		return nil, zerolog.Nop(), fmt.Errorf("invalid log level %q", cfg.Logging.Level)
	}

	o.cfg = cfg
	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	o.logger = logging.Init(lc)
	return o.cfg, o.logger, nil
}

// NewRootCmd builds the simrec command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "simrec",
		Short: "MinHash and LSH similarity search and recommendation",
		Long: `simrec finds similar entities in large collections of sets using MinHash
signatures and locality-sensitive hashing (LSH) banding, and recommends items
from the most similar entities.

Entities are read from ratings CSV files (entity, item, rating) or from a
snapshot written by "simrec index".

Features:
  • MinHash signatures estimating Jaccard similarity
  • LSH banding for sub-linear candidate retrieval
  • Top-k similar entities and item recommendations
  • Estimation accuracy and S-curve reports
  • HTTP API and MCP server`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (default: discover .simrec.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error|disabled)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "Log format (console|json)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewSimilarCmd(opts))
	rootCmd.AddCommand(NewCandidatesCmd(opts))
	rootCmd.AddCommand(NewItemsCmd(opts))
	rootCmd.AddCommand(NewCompareCmd(opts))
	rootCmd.AddCommand(NewIndexCmd(opts))
	rootCmd.AddCommand(NewStatsCmd(opts))
	rootCmd.AddCommand(NewEvaluateCmd(opts))
	rootCmd.AddCommand(NewCurveCmd(opts))
	rootCmd.AddCommand(NewServeCmd(opts))
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// reportError prints err with its category and recovery suggestions.
func reportError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)

	fmt.Fprintf(w, "Error [%s]: %s\n", categorized.Category, categorized.Message)
	if categorized.Message != err.Error() {
		fmt.Fprintf(w, "  %v\n", err)
	}
	fmt.Fprintln(w, "\nSuggestions:")
	for _, s := range categorizer.GetRecoverySuggestions(categorized.Category) {
		fmt.Fprintf(w, "  • %s\n", s)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
