package service

import (
	"github.com/ludo-technologies/simrec/domain"
)

// OutputFormatResolver resolves output format and file extension from flags.
type OutputFormatResolver struct{}

func NewOutputFormatResolver() *OutputFormatResolver { return &OutputFormatResolver{} }

// Determine evaluates format flags and returns the selected format and extension.
// At most one of json/csv/yaml may be true; if none are true, fallback is used.
func (r *OutputFormatResolver) Determine(json, csv, yaml bool, fallback string) (domain.OutputFormat, string, error) {
	formatCount := 0
	var format domain.OutputFormat
	var ext string

	if json {
		formatCount++
		format = domain.OutputFormatJSON
		ext = "json"
	}
	if csv {
		formatCount++
		format = domain.OutputFormatCSV
		ext = "csv"
	}
	if yaml {
		formatCount++
		format = domain.OutputFormatYAML
		ext = "yaml"
	}

	if formatCount > 1 {
		return "", "", domain.NewInvalidInputError("only one output format flag can be specified", nil)
	}
	if formatCount == 1 {
		return format, ext, nil
	}

	format, err := domain.ParseOutputFormat(fallback)
	if err != nil {
		return "", "", err
	}
	if format == domain.OutputFormatText {
		return format, "", nil
	}
	return format, string(format), nil
}
