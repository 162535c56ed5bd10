package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
)

// StatsCommand represents the stats command
type StatsCommand struct {
	root    *rootOptions
	corpus  corpusFlags
	out     outputFlags
	buckets int
}

// CreateCobraCommand creates the cobra command for index statistics
func (c *StatsCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [paths...]",
		Short: "Show corpus and LSH bucket statistics",
		Long: `Show the corpus summary, bucket size statistics, the estimated false
positive and false negative rates of the banding, and optionally the
largest buckets with their members.

Examples:
  simrec stats ratings.csv
  simrec stats --snapshot movies.simrec --buckets 10`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	c.out.register(cmd.Flags())
	cmd.Flags().IntVar(&c.buckets, "buckets", 0, "List the N largest buckets")
	return cmd
}

func (c *StatsCommand) run(cmd *cobra.Command, args []string) error {
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}
	return uc.Stats(cmd.Context(), c.corpus.request(cmd, cfg, args), &domain.StatsRequest{LargestBuckets: c.buckets}, out)
}

// NewStatsCmd creates and returns the stats cobra command
func NewStatsCmd(root *rootOptions) *cobra.Command {
	return (&StatsCommand{root: root}).CreateCobraCommand()
}
