package domain

import (
	"context"
	"fmt"
	"math"
)

// CurveRequest asks for the candidate probability S-curve of several band
// widths at a fixed signature length.
type CurveRequest struct {
	NumHashes  int     `json:"n_hashes"`
	BandWidths []int   `json:"band_widths"`
	Step       float64 `json:"step"`
}

// Validate validates a curve request
func (req *CurveRequest) Validate() error {
	if req.NumHashes <= 0 {
		return NewInvalidConfigError(fmt.Sprintf("n_hashes must be positive, got %d", req.NumHashes), nil)
	}
	if len(req.BandWidths) == 0 {
		return NewValidationError("at least one band width is required")
	}
	for _, r := range req.BandWidths {
		if r <= 0 || req.NumHashes%r != 0 {
			return NewInvalidConfigError(
				fmt.Sprintf("band_width %d must be a positive divisor of n_hashes %d", r, req.NumHashes), nil)
		}
	}
	if math.IsNaN(req.Step) || req.Step <= 0 || req.Step > 1 {
		return NewValidationError(fmt.Sprintf("step must be within (0, 1], got %g", req.Step))
	}
	return nil
}

// CurveRow is the S-curve of one band width.
type CurveRow struct {
	BandWidth     int       `json:"band_width" yaml:"band_width"`
	Bands         int       `json:"bands" yaml:"bands"`
	Threshold     float64   `json:"threshold" yaml:"threshold"`
	Probabilities []float64 `json:"probabilities" yaml:"probabilities"`
}

// CurveResponse tabulates candidate probability over a similarity grid.
type CurveResponse struct {
	NumHashes    int        `json:"n_hashes" yaml:"n_hashes"`
	Similarities []float64  `json:"similarities" yaml:"similarities"`
	Rows         []CurveRow `json:"rows" yaml:"rows"`
}

// CurveService computes S-curves.
type CurveService interface {
	Curve(ctx context.Context, req *CurveRequest) (*CurveResponse, error)
}
