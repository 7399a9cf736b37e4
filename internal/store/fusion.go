package store

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains.
const DefaultRRFConstant = 60

// rrfFusion combines a BM25Index engine's results and a VectorStore engine's
// results into a single ranked list using Reciprocal Rank Fusion.
//
// Algorithm: RRF_score(d) = Σ weight_i / (k + rank_i)
type rrfFusion struct {
	k int
}

func newRRFFusion(k int) *rrfFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &rrfFusion{k: k}
}

// fuse blends bm25 (keyword side) and vec (semantic side) with alpha
// mapped to fusion weights {bm25: 1-alpha, semantic: alpha}, per §4.1.1.
//
// Results are sorted by: RRFScore (desc) -> InBothLists (true first) ->
// BM25Score (desc) -> ChunkID (asc), matching §8's determinism invariant.
func (f *rrfFusion) fuse(bm25 []*BM25Result, vec []*VectorResult, alpha float64) []Hit {
	if len(bm25) == 0 && len(vec) == 0 {
		return []Hit{}
	}

	bm25Weight := 1 - alpha
	vecWeight := alpha

	type acc struct {
		hit       Hit
		bm25Score float64
	}
	scores := make(map[string]*acc, len(bm25)+len(vec))

	get := func(id string) *acc {
		if a, ok := scores[id]; ok {
			return a
		}
		a := &acc{hit: Hit{ID: id}}
		scores[id] = a
		return a
	}

	for rank, r := range bm25 {
		a := get(r.DocID)
		a.bm25Score = r.Score
		a.hit.BM25Rank = rank + 1
		a.hit.MatchedTerms = r.MatchedTerms
		a.hit.Score += bm25Weight / float64(f.k+rank+1)
	}

	for rank, r := range vec {
		a := get(r.ID)
		a.hit.VecRank = rank + 1
		a.hit.Score += vecWeight / float64(f.k+rank+1)
		if a.hit.BM25Rank > 0 {
			a.hit.InBothLists = true
		}
	}

	missingRank := len(bm25) + 1
	if len(vec) > len(bm25) {
		missingRank = len(vec) + 1
	}
	for _, a := range scores {
		if a.hit.BM25Rank == 0 && a.hit.VecRank > 0 {
			a.hit.Score += bm25Weight / float64(f.k+missingRank)
		}
		if a.hit.VecRank == 0 && a.hit.BM25Rank > 0 {
			a.hit.Score += vecWeight / float64(f.k+missingRank)
		}
	}

	results := make([]Hit, 0, len(scores))
	bm25Scores := make(map[string]float64, len(scores))
	for id, a := range scores {
		results = append(results, a.hit)
		bm25Scores[id] = a.bm25Score
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.InBothLists != b.InBothLists {
			return a.InBothLists
		}
		sa, sb := bm25Scores[a.ID], bm25Scores[b.ID]
		if sa != sb {
			return sa > sb
		}
		return a.ID < b.ID
	})

	if len(results) > 0 && results[0].Score > 0 {
		max := results[0].Score
		for i := range results {
			results[i].Score /= max
		}
	}

	return results
}
