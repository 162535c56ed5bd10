// Package corpus bundles everything a query needs into one immutable value:
// the hash family, the bucket index, and the feature sets and ratings of
// every entity. A Corpus is never modified after construction; a changed
// dataset produces a new Corpus.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ludo-technologies/simrec/internal/lsh"
	"github.com/ludo-technologies/simrec/internal/minhash"
)

// ErrDuplicateEntity is returned when the same entity id appears twice in the input.
var ErrDuplicateEntity = errors.New("corpus: duplicate entity")

// Params are the hashing and banding parameters of a corpus.
type Params struct {
	NumHashes int    `json:"n_hashes" yaml:"n_hashes"`
	Seed      uint64 `json:"seed" yaml:"seed"`
	BandWidth int    `json:"band_width" yaml:"band_width"`
}

// LSH returns the banding parameters.
func (p Params) LSH() lsh.Params {
	return lsh.Params{SignatureLength: p.NumHashes, BandWidth: p.BandWidth}
}

// Validate checks both the hash count and the band layout.
func (p Params) Validate() error {
	if p.NumHashes <= 0 {
		return fmt.Errorf("%w: got %d", minhash.ErrInvalidNumHashes, p.NumHashes)
	}
	return p.LSH().Validate()
}

// Entity is one row of input: a feature set plus the raw ratings it was derived from.
type Entity struct {
	ID       string
	Features minhash.FeatureSet
	Ratings  map[string]float64
}

// Corpus is a built, read-only similarity corpus.
type Corpus struct {
	id       string
	builtAt  time.Time
	params   Params
	hasher   *minhash.Hasher
	index    *lsh.Index
	features map[string]minhash.FeatureSet
	ratings  map[string]map[string]float64
}

// NewHasher creates the hash family described by p.
func NewHasher(p Params) (*minhash.Hasher, error) {
	return minhash.NewHasher(p.NumHashes, p.Seed)
}

// Signatures computes the signature of every entity.
func Signatures(ctx context.Context, h *minhash.Hasher, entities []Entity) (map[string]minhash.Signature, error) {
	sigs := make(map[string]minhash.Signature, len(entities))
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, dup := sigs[e.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntity, e.ID)
		}
		sig, err := h.Signature(e.Features)
		if err != nil {
			return nil, err
		}
		sigs[e.ID] = sig
	}
	return sigs, nil
}

// BuildShard computes signatures for a slice of entities and indexes them.
// Shards built this way are combined with lsh.Merge. A cancelled ctx stops
// the shard between entities.
func BuildShard(ctx context.Context, p Params, h *minhash.Hasher, entities []Entity) (*lsh.Index, error) {
	sigs, err := Signatures(ctx, h, entities)
	if err != nil {
		return nil, err
	}
	return lsh.Build(p.LSH(), sigs)
}

// Build builds a corpus sequentially.
func Build(p Params, entities []Entity) (*Corpus, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	h, err := NewHasher(p)
	if err != nil {
		return nil, err
	}
	idx, err := BuildShard(context.Background(), p, h, entities)
	if err != nil {
		return nil, err
	}
	return Assemble(p, h, idx, entities)
}

// Assemble wraps an already built index. Every entity must be present in idx.
func Assemble(p Params, h *minhash.Hasher, idx *lsh.Index, entities []Entity) (*Corpus, error) {
	return assemble(uuid.New().String(), time.Now().UTC(), p, h, idx, entities)
}

// Restore rebuilds a corpus from stored signatures, keeping its identity.
// The index is reconstructed rather than stored.
func Restore(id string, builtAt time.Time, p Params, entities []Entity, signatures map[string]minhash.Signature) (*Corpus, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	h, err := NewHasher(p)
	if err != nil {
		return nil, err
	}
	idx, err := lsh.Build(p.LSH(), signatures)
	if err != nil {
		return nil, err
	}
	return assemble(id, builtAt, p, h, idx, entities)
}

func assemble(id string, builtAt time.Time, p Params, h *minhash.Hasher, idx *lsh.Index, entities []Entity) (*Corpus, error) {
	c := &Corpus{
		id:       id,
		builtAt:  builtAt,
		params:   p,
		hasher:   h,
		index:    idx,
		features: make(map[string]minhash.FeatureSet, len(entities)),
		ratings:  make(map[string]map[string]float64, len(entities)),
	}
	for _, e := range entities {
		if _, dup := c.features[e.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntity, e.ID)
		}
		if !idx.Has(e.ID) {
			return nil, fmt.Errorf("%w: %q missing from index", lsh.ErrUnknownEntity, e.ID)
		}
		c.features[e.ID] = e.Features
		if e.Ratings != nil {
			c.ratings[e.ID] = e.Ratings
		}
	}
	if idx.Size() != len(c.features) {
		return nil, fmt.Errorf("corpus: index holds %d entities, input has %d", idx.Size(), len(c.features))
	}
	return c, nil
}

// ID returns the unique id assigned when the corpus was first built.
func (c *Corpus) ID() string { return c.id }

// BuiltAt returns when the corpus was first built.
func (c *Corpus) BuiltAt() time.Time { return c.builtAt }

// Params returns the hashing and banding parameters.
func (c *Corpus) Params() Params { return c.params }

// Hasher returns the hash family used for every signature in the corpus.
func (c *Corpus) Hasher() *minhash.Hasher { return c.hasher }

// Index returns the bucket index.
func (c *Corpus) Index() *lsh.Index { return c.index }

// Size returns the number of entities.
func (c *Corpus) Size() int { return len(c.features) }

// Has reports whether id is part of the corpus.
func (c *Corpus) Has(id string) bool {
	_, ok := c.features[id]
	return ok
}

// Signature returns the signature of id.
func (c *Corpus) Signature(id string) (minhash.Signature, bool) {
	return c.index.Signature(id)
}

// FeatureSet returns the feature set of id.
func (c *Corpus) FeatureSet(id string) (minhash.FeatureSet, bool) {
	fs, ok := c.features[id]
	return fs, ok
}

// Ratings returns every rating of id, including items below the feature threshold.
func (c *Corpus) Ratings(id string) (map[string]float64, bool) {
	r, ok := c.ratings[id]
	return r, ok
}

// EntityIDs returns all entity ids in ascending order.
func (c *Corpus) EntityIDs() []string {
	ids := make([]string, 0, len(c.features))
	for id := range c.features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entities returns every entity in ascending id order.
func (c *Corpus) Entities() []Entity {
	out := make([]Entity, 0, len(c.features))
	for _, id := range c.EntityIDs() {
		out = append(out, Entity{ID: id, Features: c.features[id], Ratings: c.ratings[id]})
	}
	return out
}

// Retriever returns a candidate retriever over the corpus index.
func (c *Corpus) Retriever(minBands int) *lsh.Retriever {
	return lsh.NewRetriever(c.index, minBands)
}

// SignatureOf computes a signature for tokens of an entity that is not in the corpus.
func (c *Corpus) SignatureOf(tokens []string) (minhash.FeatureSet, minhash.Signature, error) {
	fs := minhash.NewFeatureSet("", tokens)
	sig, err := c.hasher.Signature(fs)
	if err != nil {
		return fs, nil, err
	}
	return fs, sig, nil
}

// Shard splits entities into at most n contiguous, non-empty slices.
func Shard(entities []Entity, n int) [][]Entity {
	if n < 1 {
		n = 1
	}
	if n > len(entities) {
		n = len(entities)
	}
	if n == 0 {
		return nil
	}
	shards := make([][]Entity, 0, n)
	size := (len(entities) + n - 1) / n
	for start := 0; start < len(entities); start += size {
		end := min(start+size, len(entities))
		shards = append(shards, entities[start:end])
	}
	return shards
}
