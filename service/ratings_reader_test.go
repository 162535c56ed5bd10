package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/domain"
)

const sampleRatings = `userId,movieId,rating,timestamp
A,1,5.0,0
A,2,4.0,0
A,3,3.5,0
A,7,1.0,0
B,2,5.0,0
B,3,4.5,0
B,4,4.0,0
C,9,4.0,0
C,10,5.0,0
D,1,1.0,0
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultLayout() RatingsLayout {
	return LayoutFromRequest(domain.DefaultCorpusRequest())
}

func TestParseRatings(t *testing.T) {
	into := make(map[string]map[string]float64)
	n, err := ParseRatings(strings.NewReader(sampleRatings), defaultLayout(), into)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Len(t, into, 4)
	assert.InDelta(t, 3.5, into["A"]["3"], 1e-9)
}

func TestParseRatings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		layout  func(*RatingsLayout)
		wantErr string
	}{
		{name: "empty", input: "", wantErr: "missing header"},
		{name: "missing entity column", input: "user,movieId,rating\n", wantErr: `"userId"`},
		{name: "missing rating column", input: "userId,movieId\n", wantErr: `"rating"`},
		{name: "bad rating", input: "userId,movieId,rating\nA,1,five\n", wantErr: "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := defaultLayout()
			if tt.layout != nil {
				tt.layout(&layout)
			}
			_, err := ParseRatings(strings.NewReader(tt.input), layout, map[string]map[string]float64{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseRatings_ImplicitAndDelimiter(t *testing.T) {
	layout := RatingsLayout{EntityColumn: "user", ItemColumn: "book", Delimiter: ';'}
	into := make(map[string]map[string]float64)
	n, err := ParseRatings(strings.NewReader("\ufeffuser;book\nu1;b1\nu1; b2\n;b3\n"), layout, into)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]float64{"b1": 1, "b2": 1}, into["u1"])
}

func TestEntitiesFromRatings(t *testing.T) {
	ratings := map[string]map[string]float64{
		"b": {"x": 5, "y": 2},
		"a": {"x": 4},
		"c": {"z": 1},
	}
	entities, skipped := EntitiesFromRatings(ratings, 3)

	require.Len(t, entities, 2)
	assert.Equal(t, "a", entities[0].ID)
	assert.Equal(t, "b", entities[1].ID)
	assert.Equal(t, []string{"x"}, entities[1].Features.Tokens())
	assert.Len(t, entities[1].Ratings, 2, "ratings keep items below min_rating")
	assert.Equal(t, []string{"c"}, skipped)
}

func TestRatingsReader_CollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ratings.csv"), sampleRatings)
	writeFile(t, filepath.Join(dir, "nested", "more.csv"), sampleRatings)
	writeFile(t, filepath.Join(dir, "nested", "tmp", "skip.csv"), sampleRatings)
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, ".hidden", "h.csv"), sampleRatings)
	explicit := writeFile(t, filepath.Join(t.TempDir(), "explicit.tsv"), sampleRatings)

	r := NewRatingsReader(zerolog.Nop())
	files, err := r.CollectFiles([]string{dir, explicit}, []string{"**/*.csv"}, []string{"**/tmp/**"})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"ratings.csv", "more.csv", "explicit.tsv"}, names)

	_, err = r.CollectFiles([]string{filepath.Join(dir, "missing")}, nil, nil)
	assert.True(t, domain.IsCode(err, domain.ErrCodeFileNotFound))
}

func TestRatingsReader_CollectFiles_ExplicitFilesIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	inTmp := writeFile(t, filepath.Join(root, "tmp", "ratings.csv"), sampleRatings)
	other := writeFile(t, filepath.Join(root, "data", "ratings.tsv"), sampleRatings)

	r := NewRatingsReader(zerolog.Nop())
	files, err := r.CollectFiles([]string{inTmp, other}, []string{"**/*.csv"}, []string{"**/tmp/**", "*.tsv"})
	require.NoError(t, err)
	assert.Equal(t, []string{other, inTmp}, files)

	// The same exclude still applies when the parent directory is walked.
	files, err = r.CollectFiles([]string{root}, []string{"**/*.csv"}, []string{"tmp/**"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRatingsReader_Read(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), sampleRatings)
	writeFile(t, filepath.Join(dir, "b.csv"), "userId,movieId,rating\nE,1,5\nA,8,4\n")

	layout := defaultLayout()
	layout.MinRating = 3
	data, err := NewRatingsReader(zerolog.Nop()).Read(context.Background(), []string{dir}, []string{"**/*.csv"}, nil, layout)
	require.NoError(t, err)

	assert.Len(t, data.Files, 2)
	assert.Equal(t, 12, data.Ratings)
	assert.Equal(t, []string{"D"}, data.Skipped)

	ids := make([]string, len(data.Entities))
	for i, e := range data.Entities {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"A", "B", "C", "E"}, ids)
	assert.Equal(t, []string{"1", "2", "3", "8"}, data.Entities[0].Features.Tokens())
}

func TestRatingsReader_ReadErrors(t *testing.T) {
	r := NewRatingsReader(zerolog.Nop())

	_, err := r.Read(context.Background(), []string{t.TempDir()}, []string{"**/*.csv"}, nil, defaultLayout())
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))

	bad := writeFile(t, filepath.Join(t.TempDir(), "bad.csv"), "userId,movieId,rating\nA,1,x\n")
	_, err = r.Read(context.Background(), []string{bad}, nil, nil, defaultLayout())
	assert.True(t, domain.IsCode(err, domain.ErrCodeParseError))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	good := writeFile(t, filepath.Join(t.TempDir(), "good.csv"), sampleRatings)
	_, err = r.Read(ctx, []string{good}, nil, nil, defaultLayout())
	assert.ErrorIs(t, err, context.Canceled)
}
