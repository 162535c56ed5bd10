// Package lsh implements the banding technique of Locality-Sensitive Hashing
// over MinHash signatures.
//
// A signature of length n is split into b bands of r rows. Each band is
// hashed into a bucket; entities that share a bucket in any band become
// candidates for each other. The Index is built once from a batch of
// signatures and is read-only afterwards, so it can be shared by concurrent
// readers without locking. A changed corpus means building a new Index.
package lsh

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/ludo-technologies/simrec/internal/minhash"
)

// BucketKey identifies one bucket: the band index and the hash of the band's values.
type BucketKey struct {
	Band int
	Hash uint64
}

// Index maps bucket keys to the set of entities whose band hashed there.
type Index struct {
	params     Params
	buckets    []map[uint64][]string // per band: band hash -> sorted entity ids
	signatures map[string]minhash.Signature
}

// Build creates an index from signatures. Every entity lands in exactly one
// bucket per band.
func Build(params Params, signatures map[string]minhash.Signature) (*Index, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	idx := newIndex(params)

	// Sorted insertion keeps every bucket sorted without a second pass.
	ids := make([]string, 0, len(signatures))
	for id := range signatures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sig := signatures[id]
		if sig.Len() != params.SignatureLength {
			return nil, fmt.Errorf("%w: entity %q has %d positions, index expects %d",
				ErrSignatureLength, id, sig.Len(), params.SignatureLength)
		}
		idx.signatures[id] = sig
		for band := range idx.buckets {
			h := idx.bandHash(sig, band)
			idx.buckets[band][h] = append(idx.buckets[band][h], id)
		}
	}

	return idx, nil
}

func newIndex(params Params) *Index {
	buckets := make([]map[uint64][]string, params.NumBands())
	for i := range buckets {
		buckets[i] = make(map[uint64][]string)
	}
	return &Index{
		params:     params,
		buckets:    buckets,
		signatures: make(map[string]minhash.Signature),
	}
}

// bandHash hashes the little-endian concatenation of a band's values.
func (idx *Index) bandHash(sig minhash.Signature, band int) uint64 {
	values := sig.Band(band, idx.params.BandWidth)
	buf := make([]byte, 0, len(values)*8)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return xxhash.Sum64(buf)
}

// Params returns the banding parameters.
func (idx *Index) Params() Params { return idx.params }

// Size returns the number of indexed entities.
func (idx *Index) Size() int { return len(idx.signatures) }

// Has reports whether id is indexed.
func (idx *Index) Has(id string) bool {
	_, ok := idx.signatures[id]
	return ok
}

// Signature returns the stored signature of id.
func (idx *Index) Signature(id string) (minhash.Signature, bool) {
	sig, ok := idx.signatures[id]
	return sig, ok
}

// EntityIDs returns all indexed ids in ascending order.
func (idx *Index) EntityIDs() []string {
	ids := make([]string, 0, len(idx.signatures))
	for id := range idx.signatures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BucketKeys returns the b bucket keys a signature falls into.
func (idx *Index) BucketKeys(sig minhash.Signature) ([]BucketKey, error) {
	if sig.Len() != idx.params.SignatureLength {
		return nil, fmt.Errorf("%w: got %d positions, index expects %d",
			ErrSignatureLength, sig.Len(), idx.params.SignatureLength)
	}
	keys := make([]BucketKey, len(idx.buckets))
	for band := range idx.buckets {
		keys[band] = BucketKey{Band: band, Hash: idx.bandHash(sig, band)}
	}
	return keys, nil
}

// Bucket returns a copy of the sorted entity ids in a bucket.
func (idx *Index) Bucket(key BucketKey) []string {
	if key.Band < 0 || key.Band >= len(idx.buckets) {
		return nil
	}
	return slices.Clone(idx.buckets[key.Band][key.Hash])
}

// Buckets returns a copy of every bucket.
func (idx *Index) Buckets() map[BucketKey][]string {
	out := make(map[BucketKey][]string)
	for band, m := range idx.buckets {
		for h, ids := range m {
			out[BucketKey{Band: band, Hash: h}] = slices.Clone(ids)
		}
	}
	return out
}

// NumBuckets returns the number of non-empty buckets across all bands.
func (idx *Index) NumBuckets() int {
	n := 0
	for _, m := range idx.buckets {
		n += len(m)
	}
	return n
}

// Merge unions partial indexes built over disjoint or overlapping parts of a
// corpus. The result does not depend on the order of parts.
func Merge(parts ...*Index) (*Index, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("lsh: nothing to merge")
	}
	params := parts[0].params
	for _, p := range parts[1:] {
		if p.params != params {
			return nil, fmt.Errorf("%w: %+v vs %+v", ErrIncompatibleIndex, params, p.params)
		}
	}

	merged := newIndex(params)
	for _, part := range parts {
		for id, sig := range part.signatures {
			if existing, ok := merged.signatures[id]; ok && !existing.Equal(sig) {
				return nil, fmt.Errorf("%w: %q", ErrConflictingEntity, id)
			}
			merged.signatures[id] = sig
		}
		for band, m := range part.buckets {
			for h, ids := range m {
				merged.buckets[band][h] = unionSorted(merged.buckets[band][h], ids)
			}
		}
	}
	return merged, nil
}

// unionSorted merges two sorted, duplicate-free slices.
func unionSorted(a, b []string) []string {
	if len(a) == 0 {
		return slices.Clone(b)
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
