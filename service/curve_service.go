package service

import (
	"context"
	"math"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/lsh"
)

// CurveServiceImpl tabulates the candidate probability 1-(1-s^r)^b.
type CurveServiceImpl struct{}

// NewCurveService creates a curve service.
func NewCurveService() *CurveServiceImpl {
	return &CurveServiceImpl{}
}

// Curve evaluates every requested band width over the grid 0, step, 2*step, ..., 1.
func (s *CurveServiceImpl) Curve(ctx context.Context, req *domain.CurveRequest) (*domain.CurveResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	grid := SimilarityGrid(req.Step)
	resp := &domain.CurveResponse{NumHashes: req.NumHashes, Similarities: grid}
	for _, r := range req.BandWidths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := lsh.Params{SignatureLength: req.NumHashes, BandWidth: r}
		row := domain.CurveRow{
			BandWidth:     r,
			Bands:         p.NumBands(),
			Threshold:     p.Threshold(),
			Probabilities: make([]float64, len(grid)),
		}
		for i, sim := range grid {
			row.Probabilities[i] = lsh.CandidateProbability(sim, row.Bands, r)
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp, nil
}

// SimilarityGrid returns 0, step, 2*step, ... up to and including 1.
func SimilarityGrid(step float64) []float64 {
	if math.IsNaN(step) || step <= 0 || step > 1 {
		return []float64{0, 1}
	}
	n := int(math.Floor(1/step + 1e-9))
	grid := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		grid = append(grid, math.Round(float64(i)*step*1e9)/1e9)
	}
	if grid[len(grid)-1] < 1 {
		grid = append(grid, 1)
	}
	return grid
}
