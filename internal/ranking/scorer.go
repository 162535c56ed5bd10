// Package ranking scores LSH candidates against a query entity and turns the
// nearest neighbours into ranked results.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ludo-technologies/simrec/internal/minhash"
)

var (
	// ErrInvalidK is returned when the requested result length is not positive.
	ErrInvalidK = errors.New("ranking: k must be positive")

	// ErrInvalidThreshold is returned when a similarity threshold lies outside [0, 1].
	ErrInvalidThreshold = errors.New("ranking: similarity threshold must be within [0, 1]")

	// ErrInvalidMode is returned for an unknown score mode or item weighting.
	ErrInvalidMode = errors.New("ranking: unknown mode")

	// ErrMissingCandidate is returned when a candidate has no data in the source.
	ErrMissingCandidate = errors.New("ranking: candidate not found in source")
)

// Mode selects how a candidate's similarity to the query is computed.
type Mode string

const (
	// ModeSignature estimates similarity as the fraction of agreeing signature positions.
	ModeSignature Mode = "signature"
	// ModeJaccard computes the exact Jaccard similarity over raw feature sets.
	ModeJaccard Mode = "jaccard"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSignature, "":
		return ModeSignature, nil
	case ModeJaccard:
		return ModeJaccard, nil
	default:
		return "", fmt.Errorf("%w: score mode %q", ErrInvalidMode, s)
	}
}

// Source gives the scorer access to stored signatures and feature sets.
type Source interface {
	Signature(id string) (minhash.Signature, bool)
	FeatureSet(id string) (minhash.FeatureSet, bool)
}

// Query is the entity candidates are compared against. For an indexed entity
// both fields come from the corpus; for an unseen entity they are computed
// from ad-hoc tokens.
type Query struct {
	Signature minhash.Signature
	Features  minhash.FeatureSet
}

// Scored is a candidate and its similarity to the query.
type Scored struct {
	EntityID   string  `json:"entity_id" yaml:"entity_id"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// Scorer ranks candidates. It holds no mutable state.
type Scorer struct {
	source    Source
	mode      Mode
	threshold float64
}

// NewScorer validates the mode and threshold. A threshold of 0 keeps every candidate.
func NewScorer(source Source, mode Mode, threshold float64) (*Scorer, error) {
	if mode != ModeSignature && mode != ModeJaccard {
		return nil, fmt.Errorf("%w: score mode %q", ErrInvalidMode, mode)
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidThreshold, threshold)
	}
	return &Scorer{source: source, mode: mode, threshold: threshold}, nil
}

// Mode returns the configured score mode.
func (s *Scorer) Mode() Mode { return s.mode }

// Threshold returns the configured similarity cutoff.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Similarity scores a single candidate against the query.
func (s *Scorer) Similarity(q Query, candidate string) (float64, error) {
	switch s.mode {
	case ModeJaccard:
		fs, ok := s.source.FeatureSet(candidate)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingCandidate, candidate)
		}
		return minhash.Jaccard(q.Features, fs), nil
	default:
		sig, ok := s.source.Signature(candidate)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingCandidate, candidate)
		}
		return q.Signature.Agreement(sig)
	}
}

// Rank scores candidates, drops those below the threshold, sorts by
// similarity descending with ties broken by ascending id, and keeps at most k.
func (s *Scorer) Rank(q Query, candidates []string, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	scored := make([]Scored, 0, len(candidates))
	for _, id := range candidates {
		sim, err := s.Similarity(q, id)
		if err != nil {
			return nil, err
		}
		if sim < s.threshold {
			continue
		}
		scored = append(scored, Scored{EntityID: id, Similarity: sim})
	}

	SortScored(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// SortScored orders by similarity descending, then entity id ascending.
func SortScored(scored []Scored) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].EntityID < scored[j].EntityID
	})
}
