// Package autocut implements the adaptive rank-gap truncation of C3: given
// a score-sorted result list, locate the largest score gap and truncate
// past it, subject to min/max bounds (§4.3). This spec standardises on the
// adaptive rule only; no "simple" variant is implemented (§9's note on the
// ambiguous reference behaviour).
package autocut

// DefaultMaxResults and DefaultMinResults are the §4.3 bounds used when a
// caller does not override them.
const (
	DefaultMaxResults = 10
	DefaultMinResults = 3
)

// Bounds configures Cut. A zero value is replaced with its default.
type Bounds struct {
	MaxResults int
	MinResults int
}

func (b Bounds) normalize() Bounds {
	if b.MaxResults <= 0 {
		b.MaxResults = DefaultMaxResults
	}
	if b.MinResults <= 0 {
		b.MinResults = DefaultMinResults
	}
	if b.MinResults > b.MaxResults {
		b.MinResults = b.MaxResults
	}
	return b
}

// Metadata describes what Cut did, for callers that surface it alongside
// results (§4.3 step 5).
type Metadata struct {
	OriginalCount int
	KeptCount     int
	GapFound      bool
	LargestGap    float64
}

// Scored is the minimal shape Cut needs from a ranked result: a
// descending-sorted score. Callers index back into their own result slice
// using the returned KeptCount.
type Scored interface {
	GetScore() float64
}

// Cut truncates scores (assumed already sorted descending) at the largest
// significant rank gap and returns how many items to keep, plus metadata.
// scores must be the same length and order as the caller's result list.
func Cut(scores []float64, bounds Bounds) Metadata {
	bounds = bounds.normalize()
	meta := Metadata{OriginalCount: len(scores)}

	if len(scores) == 0 {
		meta.KeptCount = 0
		return meta
	}

	if len(scores) <= bounds.MinResults {
		meta.KeptCount = len(scores)
		return meta
	}

	if allZero(scores) {
		meta.KeptCount = bounds.MinResults
		return meta
	}

	window := bounds.MaxResults * 3
	if window > len(scores) {
		window = len(scores)
	}
	considered := scores[:window]

	gapStart := bounds.MinResults - 1
	gapEnd := bounds.MaxResults - 1
	if gapEnd > len(considered)-2 {
		gapEnd = len(considered) - 2
	}

	bestIdx := -1
	bestGap := 0.0
	for i := gapStart; i <= gapEnd; i++ {
		if i < 0 || i+1 >= len(considered) {
			continue
		}
		gap := considered[i] - considered[i+1]
		// Ties at the cut keep the longer prefix: an equal gap further down
		// the list moves the cut later (§4.3 edge cases).
		if gap > 0 && gap >= bestGap {
			bestGap = gap
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		keep := bounds.MaxResults
		if keep > len(scores) {
			keep = len(scores)
		}
		meta.KeptCount = keep
		return meta
	}

	cutScore := considered[bestIdx]
	threshold := cutScore * 0.3
	if threshold > 0.1 {
		threshold = 0.1
	}

	if bestGap >= threshold {
		meta.GapFound = true
		meta.LargestGap = bestGap
		meta.KeptCount = bestIdx + 1
		return meta
	}

	keep := bounds.MaxResults
	if keep > len(scores) {
		keep = len(scores)
	}
	meta.KeptCount = keep
	return meta
}

func allZero(scores []float64) bool {
	for _, s := range scores {
		if s != 0 {
			return false
		}
	}
	return true
}
