package lsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/internal/minhash"
)

func TestRetriever_Scenario(t *testing.T) {
	// A and B have Jaccard 0.5, C shares nothing with either. With n=50 and
	// r=5 a 0.5-similar pair collides in some band with probability
	// 1-(1-0.5^5)^10 ≈ 0.27, so check the rate across independent seeds.
	params := Params{SignatureLength: 50, BandWidth: 5}
	const seeds = 200

	hits := 0
	estimates := 0.0
	for seed := uint64(1); seed <= seeds; seed++ {
		sigs := signaturesFor(t, 50, seed, scenario)
		idx, err := Build(params, sigs)
		require.NoError(t, err)

		candidates, err := NewRetriever(idx, 1).ForEntity("A")
		require.NoError(t, err)
		assert.NotContains(t, candidates, "C", "seed %d", seed)
		assert.NotContains(t, candidates, "A", "query must not be its own candidate")
		if len(candidates) > 0 {
			assert.Equal(t, []string{"B"}, candidates)
			hits++
		}

		est, err := sigs["A"].Agreement(sigs["B"])
		require.NoError(t, err)
		estimates += est
	}

	expected := CandidateProbability(0.5, params.NumBands(), params.BandWidth)
	assert.InDelta(t, expected, float64(hits)/seeds, 0.12)
	assert.InDelta(t, 0.5, estimates/seeds, 0.05)
}

func TestRetriever_ScenarioOneRowPerBand(t *testing.T) {
	// r=1 gives 50 single-position bands; B collides with A unless all 50
	// positions disagree.
	sigs := signaturesFor(t, 50, minhash.DefaultSeed, scenario)
	idx, err := Build(Params{SignatureLength: 50, BandWidth: 1}, sigs)
	require.NoError(t, err)

	candidates, err := NewRetriever(idx, 1).ForEntity("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, candidates)
}

func TestRetriever_NoCollisionsIsNotAnError(t *testing.T) {
	sigs := signaturesFor(t, 50, 1, scenario)
	idx, err := Build(Params{SignatureLength: 50, BandWidth: 5}, sigs)
	require.NoError(t, err)

	candidates, err := NewRetriever(idx, 1).ForEntity("C")
	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestRetriever_UnknownEntity(t *testing.T) {
	sigs := signaturesFor(t, 50, 1, scenario)
	idx, err := Build(Params{SignatureLength: 50, BandWidth: 5}, sigs)
	require.NoError(t, err)

	_, err = NewRetriever(idx, 1).ForEntity("Z")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = NewRetriever(idx, 1).SharedBands("Z")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRetriever_ForSignatureUnseenEntity(t *testing.T) {
	params := Params{SignatureLength: 50, BandWidth: 1}
	sigs := signaturesFor(t, 50, 4, scenario)
	idx, err := Build(params, sigs)
	require.NoError(t, err)

	h, err := minhash.NewHasher(50, 4)
	require.NoError(t, err)
	query, err := h.SignatureOf([]string{"1", "2", "3"})
	require.NoError(t, err)

	// Same tokens as A: every band collides with A.
	candidates, err := NewRetriever(idx, params.NumBands()).ForSignature(query, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, candidates)

	_, err = NewRetriever(idx, 1).ForSignature(query[:10], "")
	assert.ErrorIs(t, err, ErrSignatureLength)
}

func TestRetriever_MinBands(t *testing.T) {
	sigs := signaturesFor(t, 60, 3, map[string][]string{
		"q":     {"a", "b", "c", "d", "e", "f", "g", "h"},
		"close": {"a", "b", "c", "d", "e", "f", "g", "x"},
		"far":   {"a", "y", "z", "w", "v", "u", "t", "s"},
	})
	idx, err := Build(Params{SignatureLength: 60, BandWidth: 2}, sigs)
	require.NoError(t, err)

	shared, err := NewRetriever(idx, 1).SharedBands("q")
	require.NoError(t, err)

	for _, minBands := range []int{1, 3, 10} {
		candidates, err := NewRetriever(idx, minBands).ForEntity("q")
		require.NoError(t, err)
		for _, c := range candidates {
			assert.GreaterOrEqual(t, shared[c], minBands)
		}
		for id, n := range shared {
			if n >= minBands {
				assert.Contains(t, candidates, id)
			}
		}
	}

	assert.Equal(t, 1, NewRetriever(idx, 0).MinBands())
}

func TestRetriever_SharedBandsForMatchesEntityLookup(t *testing.T) {
	sigs := signaturesFor(t, 40, 5, map[string][]string{
		"q": {"a", "b", "c", "d"},
		"p": {"a", "b", "c", "e"},
		"o": {"x", "y"},
	})
	idx, err := Build(Params{SignatureLength: 40, BandWidth: 2}, sigs)
	require.NoError(t, err)
	r := NewRetriever(idx, 1)

	byID, err := r.SharedBands("q")
	require.NoError(t, err)
	bySig, err := r.SharedBandsFor(sigs["q"], "q")
	require.NoError(t, err)
	assert.Equal(t, byID, bySig)
	assert.NotContains(t, bySig, "q")

	withSelf, err := r.SharedBandsFor(sigs["q"], "")
	require.NoError(t, err)
	assert.Equal(t, idx.Params().NumBands(), withSelf["q"])
}
