package minhash

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasher(t *testing.T) {
	h, err := NewHasher(64, 42)
	require.NoError(t, err)

	assert.Equal(t, 64, h.NumHashes())
	assert.Equal(t, uint64(42), h.Seed())
	for i, f := range h.Funcs() {
		assert.Greater(t, f.A, uint64(0), "hash function %d should have a > 0", i)
		assert.Less(t, f.A, MersennePrime, "hash function %d should have a < p", i)
		assert.Less(t, f.B, MersennePrime, "hash function %d should have b < p", i)
	}
}

func TestNewHasher_InvalidNumHashes(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := NewHasher(n, DefaultSeed)
		assert.ErrorIs(t, err, ErrInvalidNumHashes)
	}
}

func TestNewHasher_SeedDeterminism(t *testing.T) {
	h1, _ := NewHasher(32, 7)
	h2, _ := NewHasher(32, 7)
	h3, _ := NewHasher(32, 8)

	assert.Equal(t, h1.Funcs(), h2.Funcs())
	assert.NotEqual(t, h1.Funcs(), h3.Funcs())
}

func TestHashFunc_Apply(t *testing.T) {
	f := HashFunc{A: 3, B: 5}
	assert.Equal(t, uint64(11), f.Apply(2))

	// (p-1)*(p-1) + 0 mod p == 1
	big := HashFunc{A: MersennePrime - 1, B: 0}
	assert.Equal(t, uint64(1), big.Apply(MersennePrime-1))

	wrap := HashFunc{A: 1, B: MersennePrime - 1}
	assert.Equal(t, uint64(0), wrap.Apply(1))
}

func TestSignature_EmptyFeatureSet(t *testing.T) {
	h, _ := NewHasher(16, DefaultSeed)

	_, err := h.Signature(NewFeatureSet("D", nil))
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Contains(t, err.Error(), `"D"`)

	_, err = h.SignatureOf([]string{"", ""})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSignature_Deterministic(t *testing.T) {
	h, _ := NewHasher(64, 42)
	fs := NewFeatureSet("a", []string{"x", "y", "z"})

	s1, err := h.Signature(fs)
	require.NoError(t, err)
	s2, err := h.Signature(fs)
	require.NoError(t, err)

	assert.Equal(t, 64, s1.Len())
	assert.True(t, s1.Equal(s2))
	for _, v := range s1 {
		assert.Less(t, v, MersennePrime)
	}
}

func TestSignature_OrderAndDuplicatesIgnored(t *testing.T) {
	h, _ := NewHasher(32, 1)

	s1, _ := h.SignatureOf([]string{"a", "b", "c"})
	s2, _ := h.SignatureOf([]string{"c", "a", "b", "a"})

	assert.True(t, s1.Equal(s2))
}

func TestAgreement(t *testing.T) {
	s1 := Signature{1, 2, 3, 4}
	s2 := Signature{1, 9, 3, 9}

	sim, err := s1.Agreement(s2)
	require.NoError(t, err)
	assert.Equal(t, 0.5, sim)

	_, err = s1.Agreement(Signature{1})
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected float64
	}{
		{"identical sets", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 1.0},
		{"no overlap", []string{"a", "b"}, []string{"c", "d"}, 0.0},
		{"partial overlap", []string{"1", "2", "3"}, []string{"2", "3", "4"}, 0.5},
		{"subset", []string{"a", "b"}, []string{"a", "b", "c"}, 2.0 / 3.0},
		{"empty sets", nil, nil, 0.0},
		{"one empty", []string{"a"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(NewFeatureSet("a", tt.a), NewFeatureSet("b", tt.b))
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestFeatureSet(t *testing.T) {
	fs := NewFeatureSet("u1", []string{"b", "a", "b", ""})

	assert.Equal(t, []string{"a", "b"}, fs.Tokens())
	assert.Equal(t, 2, fs.Len())
	assert.True(t, fs.Contains("a"))
	assert.False(t, fs.Contains("c"))

	tokens := fs.Tokens()
	tokens[0] = "mutated"
	assert.True(t, fs.Contains("a"), "Tokens must return a copy")
}

// syntheticPair returns two sets of tokens with a known Jaccard similarity.
func syntheticPair(prefix string, shared, onlyA, onlyB int) ([]string, []string) {
	var a, b []string
	for i := 0; i < shared; i++ {
		tok := fmt.Sprintf("%s-s%d", prefix, i)
		a = append(a, tok)
		b = append(b, tok)
	}
	for i := 0; i < onlyA; i++ {
		a = append(a, fmt.Sprintf("%s-a%d", prefix, i))
	}
	for i := 0; i < onlyB; i++ {
		b = append(b, fmt.Sprintf("%s-b%d", prefix, i))
	}
	return a, b
}

func TestAgreement_ConvergesToJaccard(t *testing.T) {
	cases := []struct {
		name                 string
		shared, onlyA, onlyB int
	}{
		{"high", 80, 10, 10},
		{"medium", 50, 25, 25},
		{"low", 20, 40, 40},
	}

	const trials = 10
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := syntheticPair(tc.name, tc.shared, tc.onlyA, tc.onlyB)
			exact := Jaccard(NewFeatureSet("a", a), NewFeatureSet("b", b))

			// The mean over independent hash families has a standard error of
			// roughly sqrt(J(1-J)/(200*trials)), far below the tolerance.
			total := 0.0
			for seed := uint64(1); seed <= trials; seed++ {
				h, err := NewHasher(200, seed)
				require.NoError(t, err)
				sa, _ := h.SignatureOf(a)
				sb, _ := h.SignatureOf(b)
				sim, err := sa.Agreement(sb)
				require.NoError(t, err)
				total += sim
			}

			assert.InDelta(t, exact, total/trials, 0.05)
		})
	}
}

func BenchmarkSignature(b *testing.B) {
	h, _ := NewHasher(128, DefaultSeed)
	tokens := make([]string, 50)
	for i := range tokens {
		tokens[i] = strconv.Itoa(i)
	}
	fs := NewFeatureSet("bench", tokens)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Signature(fs)
	}
}
