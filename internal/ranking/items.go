package ranking

import (
	"fmt"
	"sort"
)

// Weighting selects how neighbour ratings are combined into an item score.
type Weighting string

const (
	// WeightingMean scores an item by the mean rating among neighbours who have it.
	WeightingMean Weighting = "mean"
	// WeightingSimilarity weights each neighbour's rating by its similarity to the query.
	WeightingSimilarity Weighting = "similarity"
)

// ParseWeighting converts a configuration string to a Weighting.
func ParseWeighting(s string) (Weighting, error) {
	switch Weighting(s) {
	case WeightingMean, "":
		return WeightingMean, nil
	case WeightingSimilarity:
		return WeightingSimilarity, nil
	default:
		return "", fmt.Errorf("%w: item weighting %q", ErrInvalidMode, s)
	}
}

// RatingSource returns the items an entity rated and the rating of each.
type RatingSource interface {
	Ratings(id string) (map[string]float64, bool)
}

// ItemScore is a recommended item.
type ItemScore struct {
	ItemID     string  `json:"item_id" yaml:"item_id"`
	Score      float64 `json:"score" yaml:"score"`
	Supporters int     `json:"supporters" yaml:"supporters"` // neighbours who rated the item
}

type itemAccumulator struct {
	sum         float64
	weightedSum float64
	weight      float64
	count       int
}

// RecommendItems aggregates the items rated by neighbours, skips items listed
// in owned, and returns at most count items ordered by score descending, then
// by number of supporters descending, then by item id ascending.
func RecommendItems(neighbours []Scored, ratings RatingSource, owned map[string]float64, weighting Weighting, count int) ([]ItemScore, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, count)
	}
	if weighting != WeightingMean && weighting != WeightingSimilarity {
		return nil, fmt.Errorf("%w: item weighting %q", ErrInvalidMode, weighting)
	}

	acc := make(map[string]*itemAccumulator)
	for _, n := range neighbours {
		items, ok := ratings.Ratings(n.EntityID)
		if !ok {
			continue
		}
		for item, rating := range items {
			if _, has := owned[item]; has {
				continue
			}
			a := acc[item]
			if a == nil {
				a = &itemAccumulator{}
				acc[item] = a
			}
			a.sum += rating
			a.weightedSum += rating * n.Similarity
			a.weight += n.Similarity
			a.count++
		}
	}

	out := make([]ItemScore, 0, len(acc))
	for item, a := range acc {
		score := a.sum / float64(a.count)
		if weighting == WeightingSimilarity && a.weight > 0 {
			score = a.weightedSum / a.weight
		}
		out = append(out, ItemScore{ItemID: item, Score: score, Supporters: a.count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Supporters != out[j].Supporters {
			return out[i].Supporters > out[j].Supporters
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}
