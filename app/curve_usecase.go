package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/simrec/domain"
	svc "github.com/ludo-technologies/simrec/service"
)

// CurveUseCase tabulates candidate probability curves. It needs no corpus.
type CurveUseCase struct {
	service   domain.CurveService
	formatter domain.ReportFormatter
	output    domain.ReportWriter
}

// NewCurveUseCase creates a new curve use case
func NewCurveUseCase(service domain.CurveService, formatter domain.ReportFormatter) (*CurveUseCase, error) {
	if service == nil {
		return nil, fmt.Errorf("curve service is required")
	}
	if formatter == nil {
		return nil, fmt.Errorf("report formatter is required")
	}
	return &CurveUseCase{service: service, formatter: formatter, output: svc.NewFileOutputWriter(nil)}, nil
}

// WithOutputWriter replaces the report writer
func (uc *CurveUseCase) WithOutputWriter(output domain.ReportWriter) *CurveUseCase {
	uc.output = output
	return uc
}

// Execute computes the curves and writes them
func (uc *CurveUseCase) Execute(ctx context.Context, req *domain.CurveRequest, out OutputOptions) error {
	if err := out.validate(); err != nil {
		return err
	}
	resp, err := uc.service.Curve(ctx, req)
	if err != nil {
		return err
	}

	var w io.Writer
	if out.Path == "" {
		w = out.Writer
	}
	return uc.output.Write(w, out.Path, out.Format, func(w io.Writer) error {
		return uc.formatter.WriteCurve(resp, out.Format, w)
	})
}
