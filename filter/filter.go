// Package filter implements the post-distance candidate filters:
// top-K nearest, a distance threshold, and a full sort. Filters
// compose in sequence, each seeing only the scores that survived the
// previous stage.
package filter

import (
	"sort"
)

// Filter narrows a batch of distance scores down to the indices worth
// keeping, in whatever order it defines.
type Filter interface {
	Apply(scores []float64) []int
}

// NearestFilter keeps the K smallest scores, sorted ascending. K is
// exported so the engine's underfill logic can read the target
// candidate count directly off the first configured filter.
type NearestFilter struct {
	K int
}

type scoredIndex struct {
	idx   int
	score float64
}

func (f NearestFilter) Apply(scores []float64) []int {
	if f.K <= 0 {
		return nil
	}
	if len(scores) <= f.K {
		idx := make([]int, len(scores))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
		return idx
	}

	// Max-heap of size K on score: the heap root is the current worst
	// (largest-score) kept candidate, so it's the one to evict when a
	// smaller score arrives.
	kept := make([]scoredIndex, 0, f.K)
	for i, s := range scores {
		item := scoredIndex{idx: i, score: s}
		if len(kept) < f.K {
			pushMaxHeap(&kept, item)
			continue
		}
		if item.score < kept[0].score {
			popMaxHeap(&kept)
			pushMaxHeap(&kept, item)
		}
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].score < kept[b].score })
	out := make([]int, len(kept))
	for i, k := range kept {
		out[i] = k.idx
	}
	return out
}

// pushMaxHeap and popMaxHeap maintain a binary max-heap over
// scoredIndex by score, ordered via sift-up/sift-down.
func pushMaxHeap(x *[]scoredIndex, item scoredIndex) {
	*x = append(*x, item)
	index := len(*x) - 1
	for index > 0 {
		p := (index - 1) / 2
		if (*x)[p].score >= (*x)[index].score {
			break
		}
		(*x)[p], (*x)[index] = (*x)[index], (*x)[p]
		index = p
	}
}

func popMaxHeap(x *[]scoredIndex) scoredIndex {
	ret := (*x)[0]
	(*x)[0], *x = (*x)[len(*x)-1], (*x)[:len(*x)-1]
	index := 0
	for {
		left := index*2 + 1
		right := left + 1
		if left >= len(*x) {
			break
		}
		c := left
		if right < len(*x) && (*x)[right].score > (*x)[left].score {
			c = right
		}
		if (*x)[index].score >= (*x)[c].score {
			break
		}
		(*x)[c], (*x)[index] = (*x)[index], (*x)[c]
		index = c
	}
	return ret
}

// DistanceThresholdFilter keeps every index whose score is at most T,
// preserving input order.
type DistanceThresholdFilter struct {
	T float64
}

func (f DistanceThresholdFilter) Apply(scores []float64) []int {
	var out []int
	for i, s := range scores {
		if s <= f.T {
			out = append(out, i)
		}
	}
	return out
}

// SortedFilter keeps every index, ordered by ascending score.
type SortedFilter struct{}

func (SortedFilter) Apply(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	return idx
}
