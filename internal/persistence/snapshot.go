// Package persistence stores built corpora as lz4-compressed gob snapshots.
//
// A snapshot holds the corpus identity, its parameters, and per entity the
// tokens, ratings and signature. Bucket contents are not stored: they are a
// pure function of the signatures and are rebuilt on load.
package persistence

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/ludo-technologies/simrec/internal/corpus"
	"github.com/ludo-technologies/simrec/internal/minhash"
)

// FormatVersion is bumped whenever the snapshot layout changes.
const FormatVersion = 1

var magic = []byte("SIMREC\x00")

var (
	// ErrBadMagic is returned when a file is not a snapshot.
	ErrBadMagic = errors.New("persistence: not a simrec snapshot")

	// ErrUnsupportedVersion is returned for snapshots written by an incompatible release.
	ErrUnsupportedVersion = errors.New("persistence: unsupported snapshot version")
)

// EntityRecord is the stored form of one entity.
type EntityRecord struct {
	ID        string
	Tokens    []string
	Ratings   map[string]float64
	Signature []uint64
}

// Snapshot is the stored form of a corpus.
type Snapshot struct {
	Version  int
	CorpusID string
	BuiltAt  time.Time
	Params   corpus.Params
	Entities []EntityRecord
}

// FromCorpus captures c in a snapshot.
func FromCorpus(c *corpus.Corpus) *Snapshot {
	snap := &Snapshot{
		Version:  FormatVersion,
		CorpusID: c.ID(),
		BuiltAt:  c.BuiltAt(),
		Params:   c.Params(),
	}
	for _, e := range c.Entities() {
		sig, _ := c.Signature(e.ID)
		snap.Entities = append(snap.Entities, EntityRecord{
			ID:        e.ID,
			Tokens:    e.Features.Tokens(),
			Ratings:   e.Ratings,
			Signature: sig,
		})
	}
	return snap
}

// Corpus rebuilds the corpus described by the snapshot.
func (s *Snapshot) Corpus() (*corpus.Corpus, error) {
	entities := make([]corpus.Entity, 0, len(s.Entities))
	sigs := make(map[string]minhash.Signature, len(s.Entities))
	for _, rec := range s.Entities {
		entities = append(entities, corpus.Entity{
			ID:       rec.ID,
			Features: minhash.NewFeatureSet(rec.ID, rec.Tokens),
			Ratings:  rec.Ratings,
		})
		sigs[rec.ID] = minhash.Signature(rec.Signature)
	}
	return corpus.Restore(s.CorpusID, s.BuiltAt, s.Params, entities, sigs)
}

// Write encodes c to w.
func Write(w io.Writer, c *corpus.Corpus) error {
	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	zw := lz4.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(FromCorpus(c)); err != nil {
		return fmt.Errorf("failed to gob encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return nil
}

// Read decodes a corpus from r.
func Read(r io.Reader) (*corpus.Corpus, error) {
	snap, err := ReadSnapshot(r)
	if err != nil {
		return nil, err
	}
	return snap.Corpus()
}

// ReadSnapshot decodes the raw snapshot without rebuilding the index.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, magic) {
		return nil, ErrBadMagic
	}

	var snap Snapshot
	if err := gob.NewDecoder(lz4.NewReader(r)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to gob decode snapshot: %w", err)
	}
	if snap.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return &snap, nil
}

// SaveFile writes c to path, replacing any existing file only once the new
// snapshot is complete.
func SaveFile(path string, c *corpus.Corpus) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".simrec-snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Write(bw, c); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move snapshot into place at %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a corpus from path. A missing file yields an error wrapping os.ErrNotExist.
func LoadFile(path string) (*corpus.Corpus, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()

	c, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return c, nil
}
