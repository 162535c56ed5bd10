package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
)

// CandidatesCommand represents the candidates command
type CandidatesCommand struct {
	root   *rootOptions
	corpus corpusFlags
	query  queryFlags
	out    outputFlags
}

// CreateCobraCommand creates the cobra command for raw candidate retrieval
func (c *CandidatesCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates [paths...]",
		Short: "List the LSH candidates of a query entity",
		Long: `List every entity sharing at least --min-bands band-buckets with the query,
in ascending id order and without ranking.

Examples:
  simrec candidates ratings.csv --entity 42
  simrec candidates ratings.csv --entity 42 --min-bands 3 --csv`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	c.query.register(cmd.Flags(), false)
	c.out.register(cmd.Flags())
	return cmd
}

func (c *CandidatesCommand) run(cmd *cobra.Command, args []string) error {
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}

	ft := explicitFlags(cmd)
	req := &domain.CandidatesRequest{
		Query:          c.query.query(),
		MinBandMatches: c.query.minBandMatches(ft, cfg),
	}
	return uc.Candidates(cmd.Context(), c.corpus.request(cmd, cfg, args), req, out)
}

// NewCandidatesCmd creates and returns the candidates cobra command
func NewCandidatesCmd(root *rootOptions) *cobra.Command {
	return (&CandidatesCommand{root: root}).CreateCobraCommand()
}
