package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/simrec/domain"
)

type errorPattern struct {
	category domain.ErrorCategory
	patterns []string
}

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	codes    map[string]domain.ErrorCategory
	patterns []errorPattern
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		codes:    initializeErrorCodes(),
		patterns: initializeErrorPatterns(),
	}
}

func initializeErrorCodes() map[string]domain.ErrorCategory {
	return map[string]domain.ErrorCategory{
		domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
		domain.ErrCodeEmptyInput:        domain.ErrorCategoryInput,
		domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
		domain.ErrCodeParseError:        domain.ErrorCategoryInput,
		domain.ErrCodeInvalidConfig:     domain.ErrorCategoryConfig,
		domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryConfig,
		domain.ErrCodeInvalidK:          domain.ErrorCategoryQuery,
		domain.ErrCodeUnknownEntity:     domain.ErrorCategoryQuery,
		domain.ErrCodeNotReady:          domain.ErrorCategoryQuery,
		domain.ErrCodeBuildError:        domain.ErrorCategoryProcessing,
		domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
	}
}

// initializeErrorPatterns lists message fragments used when an error carries no code.
// Order matters: the first matching category wins.
func initializeErrorPatterns() []errorPattern {
	return []errorPattern{
		{domain.ErrorCategoryTimeout, []string{"timeout", "timed out", "deadline", "context canceled"}},
		{domain.ErrorCategoryConfig, []string{"config", "toml", "yaml", "band_width", "n_hashes"}},
		{domain.ErrorCategoryInput, []string{"no such file", "not found", "permission denied", "csv", "column"}},
		{domain.ErrorCategoryOutput, []string{"write", "output", "cannot create"}},
		{domain.ErrorCategoryProcessing, []string{"build", "signature", "index", "snapshot"}},
	}
}

// Categorize determines the category of an error
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	category := domain.ErrorCategoryUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		category = domain.ErrorCategoryTimeout
	default:
		if c, ok := ec.codes[domain.ErrorCode(err)]; ok {
			category = c
		} else {
			errMsg := strings.ToLower(err.Error())
			for _, p := range ec.patterns {
				if containsAnyPattern(errMsg, p.patterns) {
					category = p.category
					break
				}
			}
		}
	}

	message := ec.getCategoryMessage(category)
	if category == domain.ErrorCategoryUnknown {
		message = err.Error()
	}
	return &domain.CategorizedError{
		Category: category,
		Message:  message,
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the ratings files exist and have a header row",
			"Verify entity_column, item_column and rating_column match the header",
			"Lower min_rating if every entity was skipped",
		},
		domain.ErrorCategoryConfig: {
			"band_width must divide n_hashes exactly",
			"Try: simrec init to generate a valid config file",
			"Check for syntax errors in .simrec.toml",
		},
		domain.ErrorCategoryQuery: {
			"Use --entity with an id present in the corpus, or --tokens for an unseen entity",
			"--top-k and --count must be positive",
			"Run: simrec stats to inspect the loaded corpus",
		},
		domain.ErrorCategoryTimeout: {
			"Increase performance.timeout_seconds or --timeout",
			"Build once with simrec index and reuse the snapshot",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions for the output path",
			"Ensure the output directory is writable",
		},
		domain.ErrorCategoryProcessing: {
			"Rebuild the snapshot with the current version of simrec",
			"Run with --log-level debug for details",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --log-level debug for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read ratings input",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryQuery:      "The query could not be answered",
		domain.ErrorCategoryTimeout:    "Operation timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Error while building or loading the corpus",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An unexpected error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
