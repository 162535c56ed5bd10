package main

import (
	"github.com/spf13/cobra"
)

// SimilarCommand represents the similar command
type SimilarCommand struct {
	root   *rootOptions
	corpus corpusFlags
	query  queryFlags
	out    outputFlags
}

// CreateCobraCommand creates the cobra command for top-k similarity queries
func (c *SimilarCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar [paths...]",
		Short: "Find the entities most similar to a query entity",
		Long: `Find the top-k entities most similar to a query entity.

Candidates come from the LSH band-buckets the query shares with other
entities; they are ranked by signature agreement (the MinHash estimate of
Jaccard similarity) or by exact Jaccard similarity.

Examples:
  # Ten most similar users to user 42
  simrec similar ratings.csv --entity 42

  # Similar to an unseen user who liked movies 1, 50 and 260
  simrec similar ratings.csv --tokens 1,50,260 --top-k 5

  # Exact Jaccard ranking with a similarity floor, as JSON
  simrec similar data/ --entity 42 --score-mode jaccard --threshold 0.3 --json

  # Query a snapshot written by simrec index
  simrec similar --snapshot movies.simrec --entity 42 --details`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	c.query.register(cmd.Flags(), true)
	c.out.register(cmd.Flags())
	return cmd
}

func (c *SimilarCommand) run(cmd *cobra.Command, args []string) error {
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}
	return uc.Similar(cmd.Context(), c.corpus.request(cmd, cfg, args), c.query.similarRequest(cmd, cfg), out)
}

// NewSimilarCmd creates and returns the similar cobra command
func NewSimilarCmd(root *rootOptions) *cobra.Command {
	return (&SimilarCommand{root: root}).CreateCobraCommand()
}
