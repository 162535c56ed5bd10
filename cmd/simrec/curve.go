package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simrec/app"
	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/config"
	"github.com/ludo-technologies/simrec/service"
)

// CurveCommand represents the curve command
type CurveCommand struct {
	root       *rootOptions
	out        outputFlags
	numHashes  int
	bandWidths []int
	step       float64
}

// CreateCobraCommand creates the cobra command for S-curve tables
func (c *CurveCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Tabulate the LSH candidate probability curve",
		Long: `Print the probability 1-(1-s^r)^b that two entities with Jaccard
similarity s become candidates, for a signature length n and each band
width r (b = n/r bands), together with each curve's threshold (1/b)^(1/r).

Use it to choose --band-width: larger band widths raise the threshold and
cut false positives at the cost of false negatives.

Examples:
  simrec curve
  simrec curve --n-hashes 200 --band-widths 4,5,8,10 --step 0.05 --csv`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	c.out.register(cmd.Flags())
	cmd.Flags().IntVar(&c.numHashes, "n-hashes", domain.DefaultNumHashes, "Signature length")
	cmd.Flags().IntSliceVar(&c.bandWidths, "band-widths", domain.DefaultCurveBandWidths, "Band widths to tabulate; each must divide --n-hashes")
	cmd.Flags().Float64Var(&c.step, "step", domain.DefaultCurveStep, "Similarity grid spacing")
	return cmd
}

func (c *CurveCommand) run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := c.root.load(cmd)
	if err != nil {
		return err
	}
	out, err := c.out.options(cmd, cfg)
	if err != nil {
		return err
	}

	engine, err := app.NewEngine(app.EngineOptions{Logger: logger})
	if err != nil {
		return err
	}
	uc, err := engine.CurveUseCase(service.NewFileOutputWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	ft := explicitFlags(cmd)
	req := &domain.CurveRequest{
		NumHashes:  config.Merge(ft, cfg.MinHash.NumHashes, c.numHashes, "n-hashes"),
		BandWidths: c.bandWidths,
		Step:       c.step,
	}
	return uc.Execute(cmd.Context(), req, out)
}

// NewCurveCmd creates and returns the curve cobra command
func NewCurveCmd(root *rootOptions) *cobra.Command {
	return (&CurveCommand{root: root}).CreateCobraCommand()
}
