// Package searchfacade implements the Search Façade (C5): the five
// entry points that map directly onto the agent-facing tool surface,
// wiring the store adapter (C1), query rewriter (C2), autocut (C3), and
// reflexion controller (C4) together.
package searchfacade

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Aman-CERP/coderag/internal/autocut"
	"github.com/Aman-CERP/coderag/internal/reflexion"
	"github.com/Aman-CERP/coderag/internal/rewrite"
	"github.com/Aman-CERP/coderag/internal/store"
	"github.com/Aman-CERP/coderag/internal/telemetry"
)

const (
	defaultLimit             = 10
	defaultBasicAlpha        = 0.5
	defaultTypeAlpha         = 0.7
	defaultMemoryAlpha       = 0.7
	defaultSimilarCertainty  = 0.7
	defaultAdvancedThreshold = 0.5
	defaultAdvancedAttempts  = 3
	defaultMemoryLimit       = 5
	jsDocMaxChars            = 200
	typePropertiesCap        = 10
)

// Facade wires the core components behind the tool surface. Metrics and
// Rewriter are both optional: a nil Metrics disables telemetry recording,
// and a nil Rewriter falls back to the pure lexicon pass (§4.2).
type Facade struct {
	Store    store.Adapter
	Metrics  *telemetry.QueryMetrics
	Rewriter *rewrite.Rewriter
}

// rewriteQuery runs the configured rewrite pass (LLM-backed when a
// Rewriter is set, lexicon-only otherwise).
func (f *Facade) rewriteQuery(ctx context.Context, query string) rewrite.Result {
	if f.Rewriter != nil {
		return f.Rewriter.Rewrite(ctx, query, "")
	}
	return rewrite.Lexicon(query)
}

func recordQuery(m *telemetry.QueryMetrics, qt telemetry.QueryType, query string, resultCount int, start time.Time) {
	if m == nil {
		return
	}
	m.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   qt,
		ResultCount: resultCount,
		Latency:     time.Since(start),
		Timestamp:   time.Now(),
	})
}

// Result is one ranked hit in a BasicSearch/AdvancedSearch response (§4.5,
// §6.1 `search`/`search_advanced`).
type Result struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	File      string  `json:"file"`
	Signature string  `json:"signature,omitempty"`
	JSDoc     string  `json:"jsDoc,omitempty"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
}

// RewriteMetadata carries C2's output when BasicSearch runs with rewrite=true.
type RewriteMetadata struct {
	Primary      string   `json:"primary"`
	Variants     []string `json:"variants,omitempty"`
	SynonymsUsed []string `json:"synonymsUsed,omitempty"`
	Confidence   float64  `json:"confidence"`
}

// AutocutMetadata carries C3's output when autocut is requested.
type AutocutMetadata struct {
	OriginalCount int     `json:"originalCount"`
	KeptCount     int     `json:"keptCount"`
	GapFound      bool    `json:"gapFound"`
	LargestGap    float64 `json:"largestGap"`
}

// BasicSearchOptions configures BasicSearch. Alpha 0 and Limit 0 are
// treated as "unset" and replaced with their defaults — callers that want
// an alpha of exactly zero should pass a value indistinguishably close
// instead; the store treats alpha as a continuous blend, not a toggle.
type BasicSearchOptions struct {
	Project    string
	Limit      int
	ChunkTypes []string
	Alpha      float64
	Rewrite    bool
	Autocut    bool
}

func (o BasicSearchOptions) normalize() BasicSearchOptions {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Alpha == 0 {
		o.Alpha = defaultBasicAlpha
	}
	return o
}

// BasicSearchOutput is the §6.1 `search` tool output shape.
type BasicSearchOutput struct {
	Query           string           `json:"query"`
	OriginalQuery   string           `json:"originalQuery,omitempty"`
	Project         string           `json:"project"`
	ResultCount     int              `json:"resultCount"`
	Results         []Result         `json:"results"`
	RewriteMetadata *RewriteMetadata `json:"rewriteMetadata,omitempty"`
	AutocutMetadata *AutocutMetadata `json:"autocutMetadata,omitempty"`
}

// BasicSearch is C5's first entry point (§4.5).
func (f *Facade) BasicSearch(ctx context.Context, query string, opts BasicSearchOptions) (BasicSearchOutput, error) {
	start := time.Now()
	opts = opts.normalize()

	out := BasicSearchOutput{Query: query, Project: opts.Project}
	storeQuery := query

	if opts.Rewrite {
		lex := f.rewriteQuery(ctx, query)
		storeQuery = lex.Primary
		out.OriginalQuery = query
		out.Query = storeQuery
		out.RewriteMetadata = &RewriteMetadata{
			Primary:      lex.Primary,
			Variants:     lex.Variants,
			SynonymsUsed: lex.SynonymsUsed,
			Confidence:   lex.Confidence,
		}
	}

	filter := chunkFilter(opts.Project, opts.ChunkTypes)

	fetchLimit := opts.Limit
	if opts.Autocut {
		fetchLimit = max(opts.Limit*3, 30)
	}

	hits, err := f.Store.HybridSearch(ctx, store.CollectionCodeChunk, storeQuery, opts.Alpha, filter, fetchLimit, nil)
	if err != nil {
		return out, fmt.Errorf("searchfacade: basic search: %w", err)
	}

	keep := len(hits)
	if opts.Autocut {
		scores := make([]float64, len(hits))
		for i, h := range hits {
			scores[i] = h.Score
		}
		meta := autocut.Cut(scores, autocut.Bounds{MaxResults: opts.Limit, MinResults: autocut.DefaultMinResults})
		keep = meta.KeptCount
		out.AutocutMetadata = &AutocutMetadata{
			OriginalCount: meta.OriginalCount,
			KeptCount:     meta.KeptCount,
			GapFound:      meta.GapFound,
			LargestGap:    meta.LargestGap,
		}
	} else if keep > opts.Limit {
		keep = opts.Limit
	}
	if keep > len(hits) {
		keep = len(hits)
	}

	out.Results = toResults(hits[:keep])
	out.ResultCount = len(out.Results)

	recordQuery(f.Metrics, telemetry.QueryTypeMixed, query, out.ResultCount, start)
	return out, nil
}

// AdvancedSearchOptions configures AdvancedSearch.
type AdvancedSearchOptions struct {
	Project     string
	Limit       int
	ChunkTypes  []string
	Threshold   float64
	MaxAttempts int
}

func (o AdvancedSearchOptions) normalize() AdvancedSearchOptions {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Threshold == 0 {
		o.Threshold = defaultAdvancedThreshold
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultAdvancedAttempts
	}
	return o
}

// AdvancedSearchMetadata is the §6.1 `search_advanced` metadata block.
type AdvancedSearchMetadata struct {
	TotalAttempts int                 `json:"totalAttempts"`
	QualityMet    bool                `json:"qualityMet"`
	BestScore     float64             `json:"bestScore"`
	Threshold     float64             `json:"threshold"`
	BestAttempt   *reflexion.Attempt  `json:"bestAttempt,omitempty"`
	Attempts      []reflexion.Attempt `json:"attempts"`
	Autocut       *AutocutMetadata    `json:"autocut,omitempty"`
	ElapsedMs     int64               `json:"elapsedMs"`
}

// AdvancedSearchOutput is the §6.1 `search_advanced` tool output shape.
type AdvancedSearchOutput struct {
	Query       string                 `json:"query"`
	Project     string                 `json:"project"`
	ResultCount int                    `json:"resultCount"`
	Results     []Result               `json:"results"`
	Metadata    AdvancedSearchMetadata `json:"metadata"`
}

// AdvancedSearch is C5's second entry point (§4.5), driving C4 and then C3.
func (f *Facade) AdvancedSearch(ctx context.Context, query string, opts AdvancedSearchOptions) (AdvancedSearchOutput, error) {
	start := time.Now()
	opts = opts.normalize()

	filter := chunkFilter(opts.Project, opts.ChunkTypes)
	fetchLimit := 2 * opts.Limit

	search := func(ctx context.Context, q string, alpha float64) ([]store.Hit, error) {
		return f.Store.HybridSearch(ctx, store.CollectionCodeChunk, q, alpha, filter, fetchLimit, nil)
	}

	reflOut := reflexion.Run(ctx, search, query, opts.Threshold, opts.MaxAttempts)

	scores := make([]float64, len(reflOut.Results))
	for i, h := range reflOut.Results {
		scores[i] = h.Score
	}
	cutMeta := autocut.Cut(scores, autocut.Bounds{MaxResults: opts.Limit, MinResults: autocut.DefaultMinResults})

	keep := cutMeta.KeptCount
	if keep > len(reflOut.Results) {
		keep = len(reflOut.Results)
	}

	out := AdvancedSearchOutput{
		Query:       query,
		Project:     opts.Project,
		Results:     toResults(reflOut.Results[:keep]),
		ResultCount: keep,
		Metadata: AdvancedSearchMetadata{
			TotalAttempts: reflOut.TotalAttempts,
			QualityMet:    reflOut.QualityMet,
			BestScore:     reflOut.BestScore,
			Threshold:     reflOut.Threshold,
			BestAttempt:   reflOut.BestAttempt,
			Attempts:      reflOut.Attempts,
			Autocut: &AutocutMetadata{
				OriginalCount: cutMeta.OriginalCount,
				KeptCount:     cutMeta.KeptCount,
				GapFound:      cutMeta.GapFound,
				LargestGap:    cutMeta.LargestGap,
			},
			ElapsedMs: time.Since(start).Milliseconds(),
		},
	}

	recordQuery(f.Metrics, telemetry.QueryTypeMixed, query, out.ResultCount, start)
	return out, nil
}

// SimilarityResult is one hit in a SimilaritySearch response, carrying the
// NearText certainty alongside the usual result fields.
type SimilarityResult struct {
	Result
	Similarity float64 `json:"similarity"`
}

// SimilaritySearchOptions configures SimilaritySearch.
type SimilaritySearchOptions struct {
	Project string
	Limit   int
}

// SimilaritySearchOutput is the §6.1 `similar` tool output shape.
type SimilaritySearchOutput struct {
	Project     string              `json:"project"`
	ResultCount int                 `json:"resultCount"`
	Results     []SimilarityResult  `json:"results"`
}

// SimilaritySearch is C5's third entry point (§4.5).
func (f *Facade) SimilaritySearch(ctx context.Context, code string, opts SimilaritySearchOptions) (SimilaritySearchOutput, error) {
	start := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}

	filter := chunkFilter(opts.Project, nil)
	hits, err := f.Store.NearText(ctx, store.CollectionCodeChunk, code, defaultSimilarCertainty, filter, opts.Limit)
	if err != nil {
		return SimilaritySearchOutput{}, fmt.Errorf("searchfacade: similarity search: %w", err)
	}

	results := make([]SimilarityResult, len(hits))
	base := toResults(hits)
	for i, h := range hits {
		results[i] = SimilarityResult{Result: base[i], Similarity: h.Score}
	}

	out := SimilaritySearchOutput{Project: opts.Project, ResultCount: len(results), Results: results}
	recordQuery(f.Metrics, telemetry.QueryTypeSemantic, code, out.ResultCount, start)
	return out, nil
}

// TypeResult is one hit in a TypeSearch response (§4.5, §6.1 `types`).
type TypeResult struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	File       string   `json:"file"`
	Properties []string `json:"properties,omitempty"`
	Extends    []string `json:"extends,omitempty"`
	FromDB     bool     `json:"fromDB"`
	Content    string   `json:"content"`
}

// TypeSearchOptions configures TypeSearch.
type TypeSearchOptions struct {
	Project string
	Limit   int
}

// TypeSearchOutput is the §6.1 `types` tool output shape.
type TypeSearchOutput struct {
	Query       string       `json:"query"`
	Project     string       `json:"project"`
	ResultCount int          `json:"resultCount"`
	Results     []TypeResult `json:"results"`
}

// TypeSearch is C5's fourth entry point (§4.5).
func (f *Facade) TypeSearch(ctx context.Context, query string, opts TypeSearchOptions) (TypeSearchOutput, error) {
	start := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}

	filter := store.Eq(store.PropProject, opts.Project)
	hits, err := f.Store.HybridSearch(ctx, store.CollectionTypeDefinition, query, defaultTypeAlpha, filter, opts.Limit, nil)
	if err != nil {
		return TypeSearchOutput{}, fmt.Errorf("searchfacade: type search: %w", err)
	}

	results := make([]TypeResult, 0, len(hits))
	for _, h := range hits {
		t := store.TypeDefFromProperties(h.Properties)
		props := t.Properties
		if len(props) > typePropertiesCap {
			props = props[:typePropertiesCap]
		}
		results = append(results, TypeResult{
			Name:       t.Name,
			Kind:       string(t.TypeKind),
			File:       t.FilePath,
			Properties: props,
			Extends:    t.ExtendsTypes,
			FromDB:     t.FromDatabase,
			Content:    t.Content,
		})
	}

	out := TypeSearchOutput{Query: query, Project: opts.Project, ResultCount: len(results), Results: results}
	recordQuery(f.Metrics, telemetry.QueryTypeMixed, query, out.ResultCount, start)
	return out, nil
}

// MemoryResult is one hit in a MemorySearch response (§4.5, §6.1 `memories`).
type MemoryResult struct {
	SessionID string   `json:"sessionId"`
	Summary   string   `json:"summary"`
	Decisions []string `json:"decisions,omitempty"`
	Files     []string `json:"files,omitempty"`
	Project   string   `json:"project"`
	Topics    []string `json:"topics,omitempty"`
	Date      string   `json:"date"`
}

// MemorySearchOptions configures MemorySearch. Project is optional: a
// zero value means unfiltered.
type MemorySearchOptions struct {
	Project string
	Limit   int
}

// MemorySearchOutput is the §6.1 `memories` tool output shape.
type MemorySearchOutput struct {
	Query       string         `json:"query"`
	Project     string         `json:"project,omitempty"`
	ResultCount int            `json:"resultCount"`
	Results     []MemoryResult `json:"results"`
}

// MemorySearch is C5's fifth entry point (§4.5).
func (f *Facade) MemorySearch(ctx context.Context, query string, opts MemorySearchOptions) (MemorySearchOutput, error) {
	start := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = defaultMemoryLimit
	}

	var filter *store.Filter
	if opts.Project != "" {
		filter = &store.Filter{Logic: store.FilterLogicAnd, Clauses: []store.Clause{
			{Property: store.PropProject, Op: store.FilterOpContainsAny, Value: []string{opts.Project}},
		}}
	}

	hits, err := f.Store.HybridSearch(ctx, store.CollectionConversationMemory, query, defaultMemoryAlpha, filter, opts.Limit, nil)
	if err != nil {
		return MemorySearchOutput{}, fmt.Errorf("searchfacade: memory search: %w", err)
	}

	results := make([]MemoryResult, 0, len(hits))
	for _, h := range hits {
		m := store.MemoryFromProperties(h.ID, h.Properties)
		results = append(results, MemoryResult{
			SessionID: m.SessionID,
			Summary:   m.Summary,
			Decisions: m.Decisions,
			Files:     m.FilesModified,
			Project:   m.Project,
			Topics:    m.Topics,
			Date:      m.Timestamp.Format("2006-01-02"),
		})
	}

	out := MemorySearchOutput{Query: query, Project: opts.Project, ResultCount: len(results), Results: results}
	recordQuery(f.Metrics, telemetry.QueryTypeMixed, query, out.ResultCount, start)
	return out, nil
}

func chunkFilter(project string, chunkTypes []string) *store.Filter {
	filter := store.Eq(store.PropProject, project)
	if len(chunkTypes) > 0 {
		filter = filter.And(store.Clause{Property: store.PropChunkType, Op: store.FilterOpContainsAny, Value: chunkTypes})
	}
	return &filter
}

func toResults(hits []store.Hit) []Result {
	results := make([]Result, len(hits))
	for i, h := range hits {
		c := store.ChunkFromProperties(h.Properties)
		jsDoc := c.JSDoc
		if len(jsDoc) > jsDocMaxChars {
			jsDoc = jsDoc[:jsDocMaxChars]
		}
		results[i] = Result{
			Rank:      i + 1,
			Name:      c.Name,
			Type:      string(c.ChunkType),
			File:      c.FilePath + ":" + strconv.Itoa(c.LineStart),
			Signature: c.Signature,
			JSDoc:     jsDoc,
			Score:     h.Score,
			Content:   c.Content,
		}
	}
	return results
}

