package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
)

// CompareCommand represents the compare command
type CompareCommand struct {
	root   *rootOptions
	corpus corpusFlags
	out    outputFlags

	left        string
	right       string
	leftTokens  []string
	rightTokens []string
}

// CreateCobraCommand creates the cobra command for pairwise comparison
func (c *CompareCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [paths...]",
		Short: "Compare two entities",
		Long: `Report the estimated and exact Jaccard similarity of two entities, the
number of bands their signatures agree on, and the probability that LSH
banding makes them candidates of each other.

Examples:
  simrec compare ratings.csv --left 42 --right 7
  simrec compare ratings.csv --left 42 --right-tokens 1,50,260`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), true)
	c.out.register(cmd.Flags())
	cmd.Flags().StringVar(&c.left, "left", "", "Id of the first entity")
	cmd.Flags().StringVar(&c.right, "right", "", "Id of the second entity")
	cmd.Flags().StringSliceVar(&c.leftTokens, "left-tokens", nil, "Tokens of a first entity outside the corpus")
	cmd.Flags().StringSliceVar(&c.rightTokens, "right-tokens", nil, "Tokens of a second entity outside the corpus")
	return cmd
}

func (c *CompareCommand) run(cmd *cobra.Command, args []string) error {
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}

	req := &domain.CompareRequest{
		Left:  domain.EntityQuery{EntityID: c.left, Tokens: c.leftTokens},
		Right: domain.EntityQuery{EntityID: c.right, Tokens: c.rightTokens},
	}
	return uc.Compare(cmd.Context(), c.corpus.request(cmd, cfg, args), req, out)
}

// NewCompareCmd creates and returns the compare cobra command
func NewCompareCmd(root *rootOptions) *cobra.Command {
	return (&CompareCommand{root: root}).CreateCobraCommand()
}
