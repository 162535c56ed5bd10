package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/domain"
)

func TestNewErrorCategorizer(t *testing.T) {
	categorizer := NewErrorCategorizer()
	assert.IsType(t, &ErrorCategorizerImpl{}, categorizer)
	assert.Nil(t, categorizer.Categorize(nil))
}

func TestCategorize_ByCode(t *testing.T) {
	categorizer := NewErrorCategorizer()

	tests := []struct {
		name string
		err  error
		want domain.ErrorCategory
	}{
		{"empty input", domain.NewEmptyInputError("no tokens", nil), domain.ErrorCategoryInput},
		{"file not found", domain.NewFileNotFoundError("ratings.csv", nil), domain.ErrorCategoryInput},
		{"invalid config", domain.NewInvalidConfigError("band_width", nil), domain.ErrorCategoryConfig},
		{"invalid k", domain.NewInvalidKError(0, nil), domain.ErrorCategoryQuery},
		{"unknown entity", domain.NewUnknownEntityError("u9", nil), domain.ErrorCategoryQuery},
		{"not ready", domain.NewNotReadyError(), domain.ErrorCategoryQuery},
		{"build", domain.NewBuildError("merge failed", nil), domain.ErrorCategoryProcessing},
		{"output", domain.NewOutputError("disk full", nil), domain.ErrorCategoryOutput},
		{"wrapped code", fmt.Errorf("query: %w", domain.NewUnknownEntityError("u1", nil)), domain.ErrorCategoryQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorizer.Categorize(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Category)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestCategorize_ByMessage(t *testing.T) {
	categorizer := NewErrorCategorizer()

	tests := []struct {
		msg  string
		want domain.ErrorCategory
	}{
		{"operation timed out", domain.ErrorCategoryTimeout},
		{"bad toml at line 3", domain.ErrorCategoryConfig},
		{"open x.csv: no such file or directory", domain.ErrorCategoryInput},
		{"cannot create report", domain.ErrorCategoryOutput},
		{"snapshot is corrupt", domain.ErrorCategoryProcessing},
		{"something odd", domain.ErrorCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got := categorizer.Categorize(errors.New(tt.msg))
			assert.Equal(t, tt.want, got.Category)
		})
	}
}

func TestCategorize_ContextErrors(t *testing.T) {
	categorizer := NewErrorCategorizer()

	got := categorizer.Categorize(fmt.Errorf("build: %w", context.DeadlineExceeded))
	assert.Equal(t, domain.ErrorCategoryTimeout, got.Category)
	assert.Equal(t, "Operation timed out", got.Message)
}

func TestCategorize_UnknownKeepsMessage(t *testing.T) {
	got := NewErrorCategorizer().Categorize(errors.New("weird failure"))
	assert.Equal(t, "weird failure", got.Message)
}

func TestGetRecoverySuggestions(t *testing.T) {
	categorizer := NewErrorCategorizer()
	for _, category := range []domain.ErrorCategory{
		domain.ErrorCategoryInput,
		domain.ErrorCategoryConfig,
		domain.ErrorCategoryQuery,
		domain.ErrorCategoryTimeout,
		domain.ErrorCategoryOutput,
		domain.ErrorCategoryProcessing,
		domain.ErrorCategoryUnknown,
	} {
		assert.NotEmpty(t, categorizer.GetRecoverySuggestions(category), category)
	}
	assert.Equal(t, []string{"Check the error message for more details"},
		categorizer.GetRecoverySuggestions(domain.ErrorCategory("other")))
}
