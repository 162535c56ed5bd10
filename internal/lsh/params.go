package lsh

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidBandWidth is returned when the band width is not a positive divisor of the signature length.
	ErrInvalidBandWidth = errors.New("lsh: band width must be a positive divisor of the signature length")

	// ErrUnknownEntity is returned when an entity is not present in the index.
	ErrUnknownEntity = errors.New("lsh: unknown entity")

	// ErrSignatureLength is returned when a signature does not match the index signature length.
	ErrSignatureLength = errors.New("lsh: signature length does not match index")

	// ErrIncompatibleIndex is returned when merging indexes built with different parameters.
	ErrIncompatibleIndex = errors.New("lsh: indexes have different parameters")

	// ErrConflictingEntity is returned when merged indexes disagree on an entity's signature.
	ErrConflictingEntity = errors.New("lsh: entity has conflicting signatures")
)

// Params configures the banding of signatures.
type Params struct {
	SignatureLength int // n, number of hash functions
	BandWidth       int // r, rows per band
}

// Validate checks that BandWidth divides SignatureLength.
func (p Params) Validate() error {
	if p.SignatureLength <= 0 {
		return fmt.Errorf("%w: signature length %d", ErrInvalidBandWidth, p.SignatureLength)
	}
	if p.BandWidth <= 0 || p.SignatureLength%p.BandWidth != 0 {
		return fmt.Errorf("%w: band width %d, signature length %d", ErrInvalidBandWidth, p.BandWidth, p.SignatureLength)
	}
	return nil
}

// NumBands returns b = n / r.
func (p Params) NumBands() int {
	if p.BandWidth <= 0 {
		return 0
	}
	return p.SignatureLength / p.BandWidth
}

// Threshold returns the approximate similarity (1/b)^(1/r) at which the
// probability of becoming a candidate rises most steeply.
func (p Params) Threshold() float64 {
	b := p.NumBands()
	if b == 0 {
		return 0
	}
	return math.Pow(1.0/float64(b), 1.0/float64(p.BandWidth))
}

// CandidateProbability returns 1 - (1 - s^r)^b, the chance that two entities
// with Jaccard similarity s share at least one bucket.
func CandidateProbability(s float64, bands, rows int) float64 {
	if s <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return 1.0 - math.Pow(1.0-math.Pow(s, float64(rows)), float64(bands))
}

// EstimateFalsePositiveRate returns the probability that a pair with true
// similarity s below the threshold still becomes a candidate.
func (p Params) EstimateFalsePositiveRate(s float64) float64 {
	if s <= 0 || s >= 1 {
		return 0
	}
	return CandidateProbability(s, p.NumBands(), p.BandWidth)
}

// EstimateFalseNegativeRate returns the probability that a pair with true
// similarity s shares no bucket at all.
func (p Params) EstimateFalseNegativeRate(s float64) float64 {
	if s <= 0 {
		return 1
	}
	if s >= 1 {
		return 0
	}
	return 1.0 - CandidateProbability(s, p.NumBands(), p.BandWidth)
}

// Divisors returns every valid band width for a signature length, ascending.
func Divisors(signatureLength int) []int {
	var out []int
	for r := 1; r <= signatureLength; r++ {
		if signatureLength%r == 0 {
			out = append(out, r)
		}
	}
	return out
}

// OptimalBandWidth picks the band width whose threshold is closest to target.
func OptimalBandWidth(signatureLength int, target float64) (Params, error) {
	if signatureLength <= 0 {
		return Params{}, fmt.Errorf("%w: signature length %d", ErrInvalidBandWidth, signatureLength)
	}

	best := Params{SignatureLength: signatureLength, BandWidth: 1}
	bestErr := math.Inf(1)
	for _, r := range Divisors(signatureLength) {
		p := Params{SignatureLength: signatureLength, BandWidth: r}
		if e := math.Abs(p.Threshold() - target); e < bestErr {
			bestErr = e
			best = p
		}
	}
	return best, nil
}
