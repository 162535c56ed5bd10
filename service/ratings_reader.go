package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/corpus"
	"github.com/ludo-technologies/simrec/internal/minhash"
)

// RatingsLayout describes the columns of a ratings file.
type RatingsLayout struct {
	EntityColumn string
	ItemColumn   string
	RatingColumn string // empty: every row counts as a rating of 1
	Delimiter    rune
	MinRating    float64 // items rated below this stay out of the feature set
}

// LayoutFromRequest extracts the ratings layout of a corpus request.
func LayoutFromRequest(req *domain.CorpusRequest) RatingsLayout {
	delim, _ := utf8.DecodeRuneInString(req.Delimiter)
	if delim == utf8.RuneError {
		delim = ','
	}
	return RatingsLayout{
		EntityColumn: req.EntityColumn,
		ItemColumn:   req.ItemColumn,
		RatingColumn: req.RatingColumn,
		Delimiter:    delim,
		MinRating:    req.MinRating,
	}
}

// RatingsData is everything read from a set of ratings files.
type RatingsData struct {
	Entities []corpus.Entity // ascending id order
	Files    []string
	Ratings  int      // rows read
	Skipped  []string // entities with no item at or above MinRating
}

// RatingsReader discovers ratings files and turns them into corpus entities.
type RatingsReader struct {
	logger zerolog.Logger
}

// NewRatingsReader creates a ratings reader.
func NewRatingsReader(logger zerolog.Logger) *RatingsReader {
	return &RatingsReader{logger: logger}
}

// CollectFiles expands paths into ratings files. Directories are walked and
// filtered with doublestar include/exclude patterns matched against the path
// relative to the directory; explicitly named files are only checked against
// the exclude patterns.
func (r *RatingsReader) CollectFiles(paths, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		// Files named explicitly are read as given; patterns filter walks only.
		if !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				r.logger.Warn().Err(err).Str("path", p).Msg("skipping unreadable path")
				return nil
			}
			if p != path && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(path, p)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if matchesAny(excludePatterns, rel, d.Name()) {
				return nil
			}
			if len(includePatterns) == 0 || matchesAny(includePatterns, rel, d.Name()) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("failed to walk directory %s", path), err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(patterns []string, candidates ...string) bool {
	for _, pattern := range patterns {
		for _, c := range candidates {
			if matched, _ := doublestar.Match(pattern, c); matched {
				return true
			}
		}
	}
	return false
}

// Read collects files under paths and reads every one of them. Ratings of
// the same entity in several files are combined; a later file wins when the
// same item is rated twice.
func (r *RatingsReader) Read(ctx context.Context, paths, includePatterns, excludePatterns []string, layout RatingsLayout) (*RatingsData, error) {
	files, err := r.CollectFiles(paths, includePatterns, excludePatterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no ratings files found in the given paths", nil)
	}

	ratings := make(map[string]map[string]float64)
	rows := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.readFile(file, layout, ratings)
		if err != nil {
			return nil, err
		}
		r.logger.Debug().Str("file", file).Int("rows", n).Msg("read ratings file")
		rows += n
	}

	data := &RatingsData{Files: files, Ratings: rows}
	data.Entities, data.Skipped = EntitiesFromRatings(ratings, layout.MinRating)
	for _, id := range data.Skipped {
		r.logger.Warn().Str("entity", id).Float64("min_rating", layout.MinRating).
			Msg("entity has no items at or above min_rating, skipped")
	}
	return data, nil
}

// EntitiesFromRatings derives feature sets from ratings: the feature set of an
// entity is the items it rated at or above minRating. Entities whose set would
// be empty are returned in skipped instead.
func EntitiesFromRatings(ratings map[string]map[string]float64, minRating float64) (entities []corpus.Entity, skipped []string) {
	ids := make([]string, 0, len(ratings))
	for id := range ratings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		items := ratings[id]
		tokens := make([]string, 0, len(items))
		for item, rating := range items {
			if rating >= minRating {
				tokens = append(tokens, item)
			}
		}
		fs := minhash.NewFeatureSet(id, tokens)
		if fs.Len() == 0 {
			skipped = append(skipped, id)
			continue
		}
		entities = append(entities, corpus.Entity{ID: id, Features: fs, Ratings: items})
	}
	return entities, skipped
}

func (r *RatingsReader) readFile(path string, layout RatingsLayout, into map[string]map[string]float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, domain.NewFileNotFoundError(path, err)
	}
	defer f.Close()

	n, err := ParseRatings(f, layout, into)
	if err != nil {
		return 0, domain.NewParseError(path, err)
	}
	return n, nil
}

// ParseRatings reads delimited ratings with a header row into into and
// returns the number of rows read. Rows with an empty entity or item are ignored.
func ParseRatings(src io.Reader, layout RatingsLayout, into map[string]map[string]float64) (int, error) {
	cr := csv.NewReader(src)
	cr.Comma = layout.Delimiter
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errors.New("missing header row")
		}
		return 0, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}

	entityCol, ok := cols[layout.EntityColumn]
	if !ok {
		return 0, fmt.Errorf("column %q not found in header", layout.EntityColumn)
	}
	itemCol, ok := cols[layout.ItemColumn]
	if !ok {
		return 0, fmt.Errorf("column %q not found in header", layout.ItemColumn)
	}
	ratingCol := -1
	if layout.RatingColumn != "" {
		if ratingCol, ok = cols[layout.RatingColumn]; !ok {
			return 0, fmt.Errorf("column %q not found in header", layout.RatingColumn)
		}
	}

	rows := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, err
		}
		line, _ := cr.FieldPos(0)

		entity := field(record, entityCol)
		item := field(record, itemCol)
		if entity == "" || item == "" {
			continue
		}
		rating := 1.0
		if ratingCol >= 0 {
			raw := field(record, ratingCol)
			if rating, err = strconv.ParseFloat(raw, 64); err != nil {
				return rows, fmt.Errorf("line %d: invalid rating %q", line, raw)
			}
		}

		m := into[entity]
		if m == nil {
			m = make(map[string]float64)
			into[entity] = m
		}
		m[item] = rating
		rows++
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
