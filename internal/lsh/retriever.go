package lsh

import (
	"fmt"
	"sort"

	"github.com/ludo-technologies/simrec/internal/minhash"
)

// Retriever looks up candidate entities through bucket collisions.
type Retriever struct {
	index    *Index
	minBands int
}

// NewRetriever creates a Retriever that requires at least minBands shared
// band-buckets per candidate. Values below 1 are treated as 1.
func NewRetriever(index *Index, minBands int) *Retriever {
	if minBands < 1 {
		minBands = 1
	}
	return &Retriever{index: index, minBands: minBands}
}

// Index returns the underlying index.
func (r *Retriever) Index() *Index { return r.index }

// MinBands returns the number of shared bands a candidate needs.
func (r *Retriever) MinBands() int { return r.minBands }

// ForEntity returns every other indexed entity sharing a bucket with id.
// An empty result means no similar entities were found.
func (r *Retriever) ForEntity(id string) ([]string, error) {
	sig, ok := r.index.Signature(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	return r.ForSignature(sig, id)
}

// ForSignature returns the entities colliding with sig, skipping exclude.
// Use it for entities that are not part of the index.
func (r *Retriever) ForSignature(sig minhash.Signature, exclude string) ([]string, error) {
	counts, err := r.SharedBandsFor(sig, exclude)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(counts))
	for id, n := range counts {
		if n >= r.minBands {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)
	return candidates, nil
}

// SharedBands returns, for each candidate of id, how many bands it shares with id.
func (r *Retriever) SharedBands(id string) (map[string]int, error) {
	sig, ok := r.index.Signature(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	return r.SharedBandsFor(sig, id)
}

// SharedBandsFor counts, for every entity colliding with sig, the bands it
// shares with sig. exclude is left out. The minimum band count is not applied.
func (r *Retriever) SharedBandsFor(sig minhash.Signature, exclude string) (map[string]int, error) {
	keys, err := r.index.BucketKeys(sig)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, key := range keys {
		for _, other := range r.index.buckets[key.Band][key.Hash] {
			if other != exclude {
				counts[other]++
			}
		}
	}
	return counts, nil
}
