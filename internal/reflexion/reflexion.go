// Package reflexion implements the Reflexion Controller (C4): a bounded,
// sequential multi-strategy search loop that reformulates a query under a
// handful of strategies, stops early once a quality threshold is met, and
// merges the attempts' hits into a single deduplicated, score-sorted list.
package reflexion

import (
	"context"

	"github.com/Aman-CERP/coderag/internal/store"
)

const (
	// DefaultThreshold is the top-score quality bar an attempt must clear
	// to short-circuit the loop (§4.4).
	DefaultThreshold = 0.7
	// DefaultMaxAttempts bounds how many strategies run when the caller
	// does not override it.
	DefaultMaxAttempts = 4
)

// SearchFunc is the store-backed search closure C4 drives: F(q, α) → hits.
// Callers close over project, limit, and any filter before passing this in
// (§4.4, §4.5 AdvancedSearch).
type SearchFunc func(ctx context.Context, query string, alpha float64) ([]store.Hit, error)

// Attempt records one strategy's execution (§4.4 step 3).
type Attempt struct {
	Strategy    string
	Alpha       float64
	Query       string
	TopScore    float64
	ResultCount int
	Err         error
}

// Output is the C4 result contract (§4.4).
type Output struct {
	Results       []store.Hit
	BestAttempt   *Attempt
	Attempts      []Attempt
	QualityMet    bool
	BestScore     float64
	Threshold     float64
	TotalAttempts int
}

// Run drives the strategy table against search for query, stopping early
// once an attempt's top score meets threshold or maxAttempts strategies
// have run, whichever comes first. maxAttempts <= 0 or > len(Strategies)
// is clamped to len(Strategies); a negative threshold uses DefaultThreshold,
// while a caller-supplied 0 is honoured literally so "always return after
// exactly one attempt" (§8) works.
func Run(ctx context.Context, search SearchFunc, query string, threshold float64, maxAttempts int) Output {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	if maxAttempts <= 0 || maxAttempts > len(Strategies) {
		maxAttempts = len(Strategies)
	}

	out := Output{Threshold: threshold}
	var allHits []store.Hit

	for i := 0; i < maxAttempts; i++ {
		strat := Strategies[i]
		rewritten := strat.Transform(query)

		hits, err := search(ctx, rewritten, strat.Alpha)
		attempt := Attempt{
			Strategy: strat.Name,
			Alpha:    strat.Alpha,
			Query:    rewritten,
			Err:      err,
		}

		if err == nil {
			attempt.ResultCount = len(hits)
			attempt.TopScore = topScore(hits)
			allHits = append(allHits, hits...)
		}

		out.Attempts = append(out.Attempts, attempt)
		out.TotalAttempts = len(out.Attempts)

		if err == nil && attempt.TopScore >= threshold {
			out.QualityMet = true
			break
		}

		if ctx.Err() != nil {
			break
		}
	}

	for i := range out.Attempts {
		if out.BestAttempt == nil || out.Attempts[i].TopScore > out.BestScore {
			out.BestScore = out.Attempts[i].TopScore
			out.BestAttempt = &out.Attempts[i]
		}
	}

	out.Results = merge(allHits)
	return out
}

func topScore(hits []store.Hit) float64 {
	best := 0.0
	for _, h := range hits {
		if h.Score > best {
			best = h.Score
		}
	}
	return best
}

// merge deduplicates hits by (file, name), keeping the highest score per
// key, then sorts the survivors by score descending (§4.4 "Merging").
func merge(hits []store.Hit) []store.Hit {
	type key struct{ file, name string }
	best := make(map[key]store.Hit, len(hits))
	order := make([]key, 0, len(hits))

	for _, h := range hits {
		k := key{
			file: getFilePath(h.Properties),
			name: getName(h.Properties),
		}
		existing, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = h
			continue
		}
		if h.Score > existing.Score {
			best[k] = h
		}
	}

	merged := make([]store.Hit, 0, len(order))
	for _, k := range order {
		merged = append(merged, best[k])
	}

	sortByScoreDesc(merged)
	return merged
}

func sortByScoreDesc(hits []store.Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func getFilePath(props map[string]any) string {
	if v, ok := props[store.PropFilePath]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getName(props map[string]any) string {
	if v, ok := props[store.PropName]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
