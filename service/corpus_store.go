package service

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ludo-technologies/simrec/domain"
	"github.com/ludo-technologies/simrec/internal/corpus"
)

// LoadedCorpus is a corpus together with the summary of how it was loaded.
type LoadedCorpus struct {
	Corpus  *corpus.Corpus
	Summary domain.CorpusSummary
}

// CorpusStore holds the corpus that queries run against. Readers never block:
// a reload builds a complete new corpus and swaps it in atomically.
type CorpusStore struct {
	current atomic.Pointer[LoadedCorpus]

	mu     sync.Mutex
	onSwap []func(*LoadedCorpus)
}

// NewCorpusStore creates an empty store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{}
}

// Current returns the loaded corpus or a NOT_READY error.
func (s *CorpusStore) Current() (*LoadedCorpus, error) {
	lc := s.current.Load()
	if lc == nil {
		return nil, domain.NewNotReadyError()
	}
	return lc, nil
}

// Swap installs lc and returns the corpus it replaced, if any.
func (s *CorpusStore) Swap(lc *LoadedCorpus) *LoadedCorpus {
	prev := s.current.Swap(lc)

	s.mu.Lock()
	hooks := slices.Clone(s.onSwap)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(lc)
	}
	return prev
}

// OnSwap registers fn to run after every swap.
func (s *CorpusStore) OnSwap(fn func(*LoadedCorpus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}
