package persistence

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/internal/corpus"
	"github.com/ludo-technologies/simrec/internal/minhash"
)

func buildCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	entities := []corpus.Entity{
		{ID: "A", Features: minhash.NewFeatureSet("A", []string{"1", "2", "3"}), Ratings: map[string]float64{"1": 5, "2": 4, "3": 4, "8": 1}},
		{ID: "B", Features: minhash.NewFeatureSet("B", []string{"2", "3", "4"}), Ratings: map[string]float64{"2": 3, "3": 5, "4": 4}},
		{ID: "C", Features: minhash.NewFeatureSet("C", []string{"9", "10"})},
	}
	c, err := corpus.Build(corpus.Params{NumHashes: 40, Seed: 3, BandWidth: 4}, entities)
	require.NoError(t, err)
	return c
}

func TestWriteRead(t *testing.T) {
	orig := buildCorpus(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, orig))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), magic))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, orig.ID(), got.ID())
	assert.True(t, orig.BuiltAt().Equal(got.BuiltAt()))
	assert.Equal(t, orig.Params(), got.Params())
	assert.Equal(t, orig.EntityIDs(), got.EntityIDs())
	assert.Equal(t, orig.Index().Buckets(), got.Index().Buckets())

	for _, id := range orig.EntityIDs() {
		want, _ := orig.Signature(id)
		have, _ := got.Signature(id)
		assert.True(t, want.Equal(have), id)

		wantFS, _ := orig.FeatureSet(id)
		haveFS, _ := got.FeatureSet(id)
		assert.Equal(t, wantFS.Tokens(), haveFS.Tokens())
	}

	r, ok := got.Ratings("A")
	require.True(t, ok)
	assert.Equal(t, 1.0, r["8"])
}

func TestRead_BadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a snapshot at all")))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Read(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestRead_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, buildCorpus(t)))

	truncated := buf.Bytes()[:len(magic)+10]
	_, err := Read(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "corpus.simrec")
	orig := buildCorpus(t)

	require.NoError(t, SaveFile(path, orig))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, orig.ID(), got.ID())
	assert.Equal(t, orig.Index().Buckets(), got.Index().Buckets())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.simrec"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
