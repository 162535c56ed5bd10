package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
)

// EvaluateCommand represents the evaluate command
type EvaluateCommand struct {
	root   *rootOptions
	corpus corpusFlags
	out    outputFlags

	sampleSize int
	threshold  float64
	maxResults int
	sampleSeed uint64
}

// CreateCobraCommand creates the cobra command for estimation accuracy reports
func (c *EvaluateCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [paths...]",
		Short: "Measure how closely signatures estimate Jaccard similarity",
		Long: `Sample entities, compare the signature estimate with exact Jaccard
similarity for every sampled pair and report the loss statistics and the
pairs above a similarity threshold.

Examples:
  simrec evaluate ratings.csv
  simrec evaluate ratings.csv --sample-size 500 --threshold 0.3 --max-results 50`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	c.out.register(cmd.Flags())
	cmd.Flags().IntVar(&c.sampleSize, "sample-size", domain.DefaultEvalSampleSize, "Entities sampled (0 = all)")
	cmd.Flags().Float64Var(&c.threshold, "threshold", domain.DefaultEvalThreshold, "Report pairs whose estimated similarity exceeds this value")
	cmd.Flags().IntVar(&c.maxResults, "max-results", domain.DefaultEvalMaxResults, "Maximum pairs listed")
	cmd.Flags().Uint64Var(&c.sampleSeed, "sample-seed", 1, "Seed of the entity sample")
	return cmd
}

func (c *EvaluateCommand) run(cmd *cobra.Command, args []string) error {
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}

	ft := explicitFlags(cmd)
	req := &domain.EvaluateRequest{
		SampleSize: config.Merge(ft, cfg.Evaluate.SampleSize, c.sampleSize, "sample-size"),
		Threshold:  config.Merge(ft, cfg.Evaluate.Threshold, c.threshold, "threshold"),
		MaxResults: config.Merge(ft, cfg.Evaluate.MaxResults, c.maxResults, "max-results"),
		Seed:       c.sampleSeed,
	}
	return uc.Evaluate(cmd.Context(), c.corpus.request(cmd, cfg, args), req, out)
}

// NewEvaluateCmd creates and returns the evaluate cobra command
func NewEvaluateCmd(root *rootOptions) *cobra.Command {
	return (&EvaluateCommand{root: root}).CreateCobraCommand()
}
