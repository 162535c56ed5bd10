package minhash

import (
	"slices"
	"sort"
)

// FeatureSet is an entity identifier paired with a set of categorical tokens.
// Tokens are deduplicated and sorted on construction; the set never changes afterwards.
type FeatureSet struct {
	EntityID string
	tokens   []string
}

// NewFeatureSet builds a FeatureSet from tokens. Duplicates and empty tokens are dropped.
func NewFeatureSet(entityID string, tokens []string) FeatureSet {
	set := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set = append(set, t)
		}
	}
	sort.Strings(set)
	set = slices.Compact(set)
	return FeatureSet{EntityID: entityID, tokens: set}
}

// Tokens returns a copy of the sorted tokens.
func (fs FeatureSet) Tokens() []string {
	return slices.Clone(fs.tokens)
}

// Len returns the number of distinct tokens.
func (fs FeatureSet) Len() int { return len(fs.tokens) }

// Contains reports whether token is in the set.
func (fs FeatureSet) Contains(token string) bool {
	_, found := slices.BinarySearch(fs.tokens, token)
	return found
}

// Jaccard returns |A∩B| / |A∪B|. Two empty sets have similarity 0.
func Jaccard(a, b FeatureSet) float64 {
	inter := 0
	i, j := 0, 0
	for i < len(a.tokens) && j < len(b.tokens) {
		switch {
		case a.tokens[i] == b.tokens[j]:
			inter++
			i++
			j++
		case a.tokens[i] < b.tokens[j]:
			i++
		default:
			j++
		}
	}
	union := len(a.tokens) + len(b.tokens) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Signature is a MinHash signature. Treat it as read-only once computed.
type Signature []uint64

// Len returns the number of positions.
func (s Signature) Len() int { return len(s) }

// Agreement returns the fraction of positions where s and other hold the same value.
func (s Signature) Agreement(other Signature) (float64, error) {
	if len(s) != len(other) {
		return 0, ErrSignatureMismatch
	}
	if len(s) == 0 {
		return 0, nil
	}
	match := 0
	for i := range s {
		if s[i] == other[i] {
			match++
		}
	}
	return float64(match) / float64(len(s)), nil
}

// Equal reports whether both signatures are identical.
func (s Signature) Equal(other Signature) bool {
	return slices.Equal(s, other)
}

// Band returns positions [band*width, band*width+width).
func (s Signature) Band(band, width int) []uint64 {
	start := band * width
	return s[start : start+width]
}
