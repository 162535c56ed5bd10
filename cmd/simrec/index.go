package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/domain"
)

// IndexCommand represents the index command
type IndexCommand struct {
	root     *rootOptions
	corpus   corpusFlags
	out      outputFlags
	snapshot string
}

// CreateCobraCommand creates the cobra command for writing snapshots
func (c *IndexCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Build a corpus and save it as a snapshot",
		Long: `Read ratings files, build MinHash signatures and save the corpus as an
lz4-compressed snapshot. Other commands load it with --snapshot instead of
re-reading the ratings.

The snapshot stores hash parameters, feature sets, ratings and signatures;
the LSH buckets are rebuilt when it is loaded.

Examples:
  simrec index ratings.csv --snapshot movies.simrec
  simrec index data/ --n-hashes 200 --band-width 10 --snapshot movies.simrec`,
		RunE: c.run,
	}

	c.corpus.register(cmd.Flags(), false)
	c.out.register(cmd.Flags())
	cmd.Flags().StringVar(&c.snapshot, "snapshot", "", "Snapshot file to write")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func (c *IndexCommand) run(cmd *cobra.Command, args []string) error {
	if c.snapshot == "" {
		return domain.NewValidationError("--snapshot is required")
	}
	uc, cfg, err := newQueryUseCase(cmd, c.root)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}

	req := c.corpus.request(cmd, cfg, args)
	req.Snapshot = ""
	return uc.Snapshot(cmd.Context(), req, c.snapshot, out)
}

// NewIndexCmd creates and returns the index cobra command
func NewIndexCmd(root *rootOptions) *cobra.Command {
	return (&IndexCommand{root: root}).CreateCobraCommand()
}
