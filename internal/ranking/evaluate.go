package ranking

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ludo-technologies/simrec/internal/minhash"
)

// EvalOptions controls an estimation accuracy run.
type EvalOptions struct {
	SampleSize int     // entities drawn from the corpus; <= 0 means all
	Threshold  float64 // pairs with an estimate above this are reported
	MaxResults int     // reported pairs kept, highest estimate first
	Seed       uint64
}

// PairEstimate compares estimated and exact similarity of two entities.
type PairEstimate struct {
	Left      string  `json:"left" yaml:"left"`
	Right     string  `json:"right" yaml:"right"`
	Estimated float64 `json:"estimated" yaml:"estimated"`
	Exact     float64 `json:"exact" yaml:"exact"`
	Loss      float64 `json:"loss" yaml:"loss"`
}

// Evaluation summarizes how closely signature agreement tracks exact Jaccard.
type Evaluation struct {
	Sampled         int            `json:"sampled" yaml:"sampled"`
	PairsCompared   int            `json:"pairs_compared" yaml:"pairs_compared"`
	PairsAbove      int            `json:"pairs_above_threshold" yaml:"pairs_above_threshold"`
	MeanLoss        float64        `json:"mean_loss" yaml:"mean_loss"` // over pairs above threshold
	StdDevLoss      float64        `json:"stddev_loss" yaml:"stddev_loss"`
	MaxLoss         float64        `json:"max_loss" yaml:"max_loss"`
	OverallMeanLoss float64        `json:"overall_mean_loss" yaml:"overall_mean_loss"` // over every compared pair
	Correlation     float64        `json:"correlation" yaml:"correlation"`
	TopPairs        []PairEstimate `json:"top_pairs" yaml:"top_pairs"`
}

// EvalSource lists entities and exposes their signatures and feature sets.
type EvalSource interface {
	Source
	EntityIDs() []string
}

// Evaluate samples entities with a seeded PRNG and compares the signature
// estimate with the exact Jaccard similarity for every sampled pair.
func Evaluate(src EvalSource, opts EvalOptions) (*Evaluation, error) {
	if math.IsNaN(opts.Threshold) || opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidThreshold, opts.Threshold)
	}
	if opts.MaxResults <= 0 {
		return nil, fmt.Errorf("%w: max results %d", ErrInvalidK, opts.MaxResults)
	}

	ids := sampleIDs(src.EntityIDs(), opts.SampleSize, opts.Seed)
	sigs := make([]minhash.Signature, len(ids))
	sets := make([]minhash.FeatureSet, len(ids))
	for i, id := range ids {
		sig, ok := src.Signature(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingCandidate, id)
		}
		fs, ok := src.FeatureSet(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingCandidate, id)
		}
		sigs[i], sets[i] = sig, fs
	}

	eval := &Evaluation{Sampled: len(ids)}
	var estimates, exacts, allLosses, losses []float64
	var above []PairEstimate
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			est, err := sigs[i].Agreement(sigs[j])
			if err != nil {
				return nil, err
			}
			exact := minhash.Jaccard(sets[i], sets[j])
			loss := math.Abs(est - exact)

			estimates = append(estimates, est)
			exacts = append(exacts, exact)
			allLosses = append(allLosses, loss)

			if est > opts.Threshold {
				losses = append(losses, loss)
				above = append(above, PairEstimate{Left: ids[i], Right: ids[j], Estimated: est, Exact: exact, Loss: loss})
			}
		}
	}

	eval.PairsCompared = len(allLosses)
	eval.PairsAbove = len(above)
	if len(allLosses) > 0 {
		eval.OverallMeanLoss = stat.Mean(allLosses, nil)
	}
	if len(estimates) > 1 {
		if c := stat.Correlation(estimates, exacts, nil); !math.IsNaN(c) {
			eval.Correlation = c
		}
	}
	if len(losses) > 0 {
		eval.MeanLoss = stat.Mean(losses, nil)
		eval.MaxLoss = floats.Max(losses)
	}
	if len(losses) > 1 {
		eval.StdDevLoss = stat.StdDev(losses, nil)
	}

	sort.Slice(above, func(a, b int) bool {
		if above[a].Estimated != above[b].Estimated {
			return above[a].Estimated > above[b].Estimated
		}
		if above[a].Left != above[b].Left {
			return above[a].Left < above[b].Left
		}
		return above[a].Right < above[b].Right
	})
	if len(above) > opts.MaxResults {
		above = above[:opts.MaxResults]
	}
	eval.TopPairs = above
	return eval, nil
}

// sampleIDs returns up to n ids chosen with a seeded shuffle, sorted.
func sampleIDs(ids []string, n int, seed uint64) []string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(sorted), func(i, j int) { sorted[i], sorted[j] = sorted[j], sorted[i] })
	sample := sorted[:n]
	sort.Strings(sample)
	return sample
}
