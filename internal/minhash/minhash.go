// Package minhash builds MinHash signatures for entity feature sets.
//
// Every hash function is an affine map modulo the Mersenne prime 2^61-1,
// h(x) = (a*x + b) mod p, with coefficients drawn from a seeded PRNG. The
// family is pairwise independent, so for two sets A and B the probability
// that their signatures agree at a position equals Jaccard(A, B).
package minhash

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// MersennePrime is the modulus of every hash function (2^61 - 1).
const MersennePrime uint64 = 1<<61 - 1

// DefaultSeed seeds the coefficient generator when callers do not pick one.
const DefaultSeed uint64 = 0x5eed_1234_cafe_babe

var (
	// ErrEmptyInput is returned when a signature is requested for a feature set with no tokens.
	ErrEmptyInput = errors.New("minhash: feature set has no tokens")

	// ErrInvalidNumHashes is returned when the number of hash functions is not positive.
	ErrInvalidNumHashes = errors.New("minhash: number of hash functions must be positive")

	// ErrSignatureMismatch is returned when comparing signatures of different lengths.
	ErrSignatureMismatch = errors.New("minhash: signature lengths do not match")
)

// HashFunc is one member of the affine hash family.
type HashFunc struct {
	A uint64
	B uint64
}

// Apply returns (A*x + B) mod p. x must already be reduced modulo p.
func (f HashFunc) Apply(x uint64) uint64 {
	hi, lo := bits.Mul64(f.A, x)
	r := bits.Rem64(hi, lo, MersennePrime)
	r += f.B
	if r >= MersennePrime {
		r -= MersennePrime
	}
	return r
}

// Hasher computes signatures with a fixed, reproducible hash family.
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	seed  uint64
	funcs []HashFunc
}

// NewHasher creates a Hasher with numHashes functions generated from seed.
// The same (numHashes, seed) pair always yields the same functions.
func NewHasher(numHashes int, seed uint64) (*Hasher, error) {
	if numHashes <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidNumHashes, numHashes)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	funcs := make([]HashFunc, numHashes)
	for i := range funcs {
		funcs[i] = HashFunc{
			A: rng.Uint64N(MersennePrime-1) + 1,
			B: rng.Uint64N(MersennePrime),
		}
	}

	return &Hasher{seed: seed, funcs: funcs}, nil
}

// NumHashes returns the signature length produced by this hasher.
func (h *Hasher) NumHashes() int { return len(h.funcs) }

// Seed returns the seed the hash family was generated from.
func (h *Hasher) Seed() uint64 { return h.seed }

// Funcs returns a copy of the hash family.
func (h *Hasher) Funcs() []HashFunc {
	out := make([]HashFunc, len(h.funcs))
	copy(out, h.funcs)
	return out
}

// Signature computes the MinHash signature of fs.
func (h *Hasher) Signature(fs FeatureSet) (Signature, error) {
	if fs.Len() == 0 {
		if fs.EntityID != "" {
			return nil, fmt.Errorf("%w: entity %q", ErrEmptyInput, fs.EntityID)
		}
		return nil, ErrEmptyInput
	}

	base := make([]uint64, len(fs.tokens))
	for i, tok := range fs.tokens {
		base[i] = tokenValue(tok)
	}

	sig := make(Signature, len(h.funcs))
	for i, f := range h.funcs {
		minv := uint64(math.MaxUint64)
		for _, x := range base {
			if v := f.Apply(x); v < minv {
				minv = v
			}
		}
		sig[i] = minv
	}
	return sig, nil
}

// SignatureOf is a shortcut for an anonymous feature set.
func (h *Hasher) SignatureOf(tokens []string) (Signature, error) {
	return h.Signature(NewFeatureSet("", tokens))
}

// tokenValue maps a token onto the hash domain [0, p).
func tokenValue(token string) uint64 {
	return xxhash.Sum64String(token) % MersennePrime
}
