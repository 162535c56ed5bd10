package service

import (
	"errors"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/corpus"
	"github.com/ludo-technologies/simrec/internal/lsh"
	"github.com/ludo-technologies/simrec/internal/minhash"
	"github.com/ludo-technologies/simrec/internal/persistence"
	"github.com/ludo-technologies/simrec/internal/ranking"
)

// translateError maps sentinel errors of the algorithm packages onto domain
// error codes. Errors that already carry a code pass through unchanged.
func translateError(err error) error {
	if err == nil || domain.ErrorCode(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, minhash.ErrEmptyInput):
		return domain.NewEmptyInputError("feature set has no tokens", err)
	case errors.Is(err, minhash.ErrInvalidNumHashes),
		errors.Is(err, lsh.ErrInvalidBandWidth),
		errors.Is(err, ranking.ErrInvalidThreshold),
		errors.Is(err, ranking.ErrInvalidMode):
		return domain.NewInvalidConfigError(err.Error(), err)
	case errors.Is(err, lsh.ErrUnknownEntity):
		return domain.NewDomainError(domain.ErrCodeUnknownEntity, err.Error(), err)
	case errors.Is(err, ranking.ErrInvalidK):
		return domain.NewDomainError(domain.ErrCodeInvalidK, err.Error(), err)
	case errors.Is(err, corpus.ErrDuplicateEntity),
		errors.Is(err, lsh.ErrConflictingEntity),
		errors.Is(err, lsh.ErrIncompatibleIndex):
		return domain.NewBuildError("failed to build corpus", err)
	case errors.Is(err, persistence.ErrBadMagic),
		errors.Is(err, persistence.ErrUnsupportedVersion):
		return domain.NewInvalidInputError("not a usable simrec snapshot", err)
	}
	return err
}
