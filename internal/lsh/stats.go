package lsh

import (
	"sort"
)

// IndexStats summarizes the shape of an index.
type IndexStats struct {
	NumEntities      int     // Number of indexed entities
	NumBuckets       int     // Number of non-empty buckets across all bands
	Bands            int     // b
	Rows             int     // r
	Threshold        float64 // (1/b)^(1/r)
	MinBucketSize    int
	MaxBucketSize    int
	AvgBucketSize    float64
	MedianBucketSize float64
	Singletons       int // Buckets holding a single entity
}

// Stats computes bucket size statistics.
func (idx *Index) Stats() IndexStats {
	stats := IndexStats{
		NumEntities: len(idx.signatures),
		NumBuckets:  idx.NumBuckets(),
		Bands:       idx.params.NumBands(),
		Rows:        idx.params.BandWidth,
		Threshold:   idx.params.Threshold(),
	}
	if stats.NumBuckets == 0 {
		return stats
	}

	sizes := make([]int, 0, stats.NumBuckets)
	total := 0
	for _, m := range idx.buckets {
		for _, ids := range m {
			sizes = append(sizes, len(ids))
			total += len(ids)
			if len(ids) == 1 {
				stats.Singletons++
			}
		}
	}
	sort.Ints(sizes)

	stats.MinBucketSize = sizes[0]
	stats.MaxBucketSize = sizes[len(sizes)-1]
	stats.AvgBucketSize = float64(total) / float64(len(sizes))
	if len(sizes)%2 == 0 {
		mid := len(sizes) / 2
		stats.MedianBucketSize = float64(sizes[mid-1]+sizes[mid]) / 2.0
	} else {
		stats.MedianBucketSize = float64(sizes[len(sizes)/2])
	}
	return stats
}

// BucketEntry is a bucket together with its members.
type BucketEntry struct {
	Key       BucketKey
	EntityIDs []string
}

// LargestBuckets returns up to n buckets ordered by size descending, then by
// band and hash ascending.
func (idx *Index) LargestBuckets(n int) []BucketEntry {
	if n <= 0 {
		return nil
	}
	entries := make([]BucketEntry, 0, idx.NumBuckets())
	for band, m := range idx.buckets {
		for h, ids := range m {
			entries = append(entries, BucketEntry{Key: BucketKey{Band: band, Hash: h}, EntityIDs: ids})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if len(a.EntityIDs) != len(b.EntityIDs) {
			return len(a.EntityIDs) > len(b.EntityIDs)
		}
		if a.Key.Band != b.Key.Band {
			return a.Key.Band < b.Key.Band
		}
		return a.Key.Hash < b.Key.Hash
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].EntityIDs = append([]string(nil), entries[i].EntityIDs...)
	}
	return entries
}
