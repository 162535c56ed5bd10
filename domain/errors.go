package domain

import (
	"errors"
	"fmt"
)

// DomainError represents errors in the domain layer
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e DomainError) Unwrap() error {
	return e.Cause
}

// Domain error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeEmptyInput        = "EMPTY_INPUT"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeInvalidK          = "INVALID_K"
	ErrCodeUnknownEntity     = "UNKNOWN_ENTITY"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeParseError        = "PARSE_ERROR"
	ErrCodeBuildError        = "BUILD_ERROR"
	ErrCodeNotReady          = "NOT_READY"
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewEmptyInputError is returned when an entity has no tokens to hash.
func NewEmptyInputError(message string, cause error) error {
	return NewDomainError(ErrCodeEmptyInput, message, cause)
}

// NewInvalidConfigError creates a configuration error
func NewInvalidConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidConfig, message, cause)
}

// NewInvalidKError is returned for a non-positive result count.
func NewInvalidKError(k int, cause error) error {
	return NewDomainError(ErrCodeInvalidK, fmt.Sprintf("top_k must be positive, got %d", k), cause)
}

// NewUnknownEntityError is returned when a queried entity is not in the corpus.
func NewUnknownEntityError(id string, cause error) error {
	return NewDomainError(ErrCodeUnknownEntity, fmt.Sprintf("unknown entity: %s", id), cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewParseError creates a parse error
func NewParseError(file string, cause error) error {
	return NewDomainError(ErrCodeParseError, fmt.Sprintf("failed to parse file: %s", file), cause)
}

// NewBuildError creates a corpus build error
func NewBuildError(message string, cause error) error {
	return NewDomainError(ErrCodeBuildError, message, cause)
}

// NewNotReadyError is returned when a query arrives before any corpus is loaded.
func NewNotReadyError() error {
	return NewDomainError(ErrCodeNotReady, "no corpus loaded", nil)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format), nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// ErrorCode returns the code of the first DomainError in err's chain, or ""
// when there is none.
func ErrorCode(err error) string {
	var de DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
