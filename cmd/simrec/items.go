package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
)

// ItemsCommand represents the items command
type ItemsCommand struct {
	root   *rootOptions
	corpus corpusFlags
	query  queryFlags
	out    outputFlags

	count     int
	weighting string
}

// CreateCobraCommand creates the cobra command for item recommendations
func (c *ItemsCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items [paths...]",
		Short: "Recommend items from the most similar entities",
		Long: `Recommend items the query entity has not rated, aggregated over the
ratings of its top-k most similar entities.

Weighting:
  mean        - mean neighbour rating (default)
  similarity  - similarity-weighted mean neighbour rating

Examples:
  simrec items ratings.csv --entity 42 --count 20
  simrec items ratings.csv --entity 42 --top-k 30 --weighting similarity --json`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	c.query.register(cmd.Flags(), true)
	c.out.register(cmd.Flags())
	cmd.Flags().IntVarP(&c.count, "count", "n", domain.DefaultItemCount, "Number of items to recommend")
	cmd.Flags().StringVar(&c.weighting, "weighting", domain.DefaultItemWeighting, "Item weighting (mean|similarity)")
	return cmd
}

func (c *ItemsCommand) run(cmd *cobra.Command, args []string) error {
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}

	ft := explicitFlags(cmd)
	sim := c.query.similarRequest(cmd, cfg)
	req := &domain.ItemsRequest{
		Query:          sim.Query,
		TopK:           sim.TopK,
		Threshold:      sim.Threshold,
		ScoreMode:      sim.ScoreMode,
		MinBandMatches: sim.MinBandMatches,
		Count:          config.Merge(ft, cfg.Recommend.ItemCount, c.count, "count"),
		Weighting:      config.Merge(ft, cfg.Recommend.ItemWeighting, c.weighting, "weighting"),
	}
	return uc.Items(cmd.Context(), c.corpus.request(cmd, cfg, args), req, out)
}

// NewItemsCmd creates and returns the items cobra command
func NewItemsCmd(root *rootOptions) *cobra.Command {
	return (&ItemsCommand{root: root}).CreateCobraCommand()
}
