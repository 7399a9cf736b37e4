package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// collectionNames is the fixed set of collections the adapter serves (§6.2).
// The engines backing each are identical; only the stored properties differ.
var collectionNames = []string{
	CollectionCodeChunk,
	CollectionDocChunk,
	CollectionTypeDefinition,
	CollectionFileMetadata,
	CollectionConversationMemory,
}

// collectionEngines bundles the two search engines (BM25 and vector) that
// back one collection; the metadata store is shared and held by
// StoreAdapter.
type collectionEngines struct {
	bm25 BM25Index
	vec  VectorStore
}

// StoreAdapter is the sole C1 implementation of Adapter: one bleve BM25
// index and one HNSW vector store per collection, sharing a single sqlite
// metadata table keyed by (collection, id). There is one adapter
// implementation; the five collections are schema variations over the
// same two engines (§4.1.1).
type StoreAdapter struct {
	mu         sync.RWMutex
	baseDir    string
	engines    map[string]*collectionEngines
	metadata   *metadataStore
	fusion     *rrfFusion
	contentKey string // properties field treated as the document's searchable text
}

// AdapterOption configures a StoreAdapter at construction time.
type AdapterOption func(*StoreAdapter)

// WithRRFConstant overrides the default RRF smoothing constant.
func WithRRFConstant(k int) AdapterOption {
	return func(a *StoreAdapter) { a.fusion = newRRFFusion(k) }
}

// NewStoreAdapter opens (or creates) the bleve index, HNSW graph, and sqlite
// metadata table under baseDir for every collection. baseDir corresponds to
// the configured STORE_URL (§6.3).
func NewStoreAdapter(baseDir string, opts ...AdapterOption) (*StoreAdapter, error) {
	metadata, err := newMetadataStore(filepath.Join(baseDir, "metadata.db"))
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	a := &StoreAdapter{
		baseDir:    baseDir,
		engines:    make(map[string]*collectionEngines, len(collectionNames)),
		metadata:   metadata,
		fusion:     newRRFFusion(DefaultRRFConstant),
		contentKey: "content",
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, name := range collectionNames {
		eng, err := a.openCollection(name)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open collection %s: %w", name, err)
		}
		a.engines[name] = eng
	}

	return a, nil
}

func (a *StoreAdapter) openCollection(name string) (*collectionEngines, error) {
	bm25Path := filepath.Join(a.baseDir, "bm25", name)
	bm25, err := NewBleveBM25Index(bm25Path, DefaultBM25Config())
	if err != nil {
		return nil, fmt.Errorf("open bm25 index: %w", err)
	}

	vec, err := NewHNSWStore(DefaultVectorStoreConfig(embedDimensions))
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	vecPath := filepath.Join(a.baseDir, "hnsw", name+".gob")
	if err := vec.Load(vecPath); err != nil {
		// A missing graph file just means this is the first run; a
		// dimension mismatch against a previously-saved graph is a real
		// configuration error and must surface.
		if _, ok := err.(ErrDimensionMismatch); ok {
			return nil, err
		}
	}

	return &collectionEngines{bm25: bm25, vec: vec}, nil
}

func (a *StoreAdapter) engineFor(collection string) (*collectionEngines, error) {
	eng, ok := a.engines[collection]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %q", coreerrors.ErrSchema, collection)
	}
	return eng, nil
}

// HybridSearch blends BM25 and vector search for the given collection at
// the given alpha, applying filter and returning at most limit hits (§4.1).
// The BM25 and vector fetches run concurrently.
func (a *StoreAdapter) HybridSearch(ctx context.Context, collection, query string, alpha float64, filter *Filter, limit int, fields []string) ([]Hit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	eng, err := a.engineFor(collection)
	if err != nil {
		return nil, err
	}

	fetchLimit := limit * 3
	if fetchLimit < limit {
		fetchLimit = limit
	}

	var bm25Results []*BM25Result
	var vecResults []*VectorResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := eng.bm25.Search(gctx, query, fetchLimit)
		if err != nil {
			return fmt.Errorf("%w: bm25 search: %s", coreerrors.ErrTransient, err)
		}
		bm25Results = res
		return nil
	})
	g.Go(func() error {
		queryVec := hashEmbed(query)
		res, err := eng.vec.Search(gctx, queryVec, fetchLimit)
		if err != nil {
			return fmt.Errorf("%w: vector search: %s", coreerrors.ErrTransient, err)
		}
		vecResults = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := a.fusion.fuse(bm25Results, vecResults, alpha)
	return a.hydrateAndFilter(ctx, collection, hits, filter, limit, fields)
}

// NearText runs pure vector search (alpha=1 equivalent) and drops hits whose
// score falls below certainty.
func (a *StoreAdapter) NearText(ctx context.Context, collection, text string, certainty float64, filter *Filter, limit int) ([]Hit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	eng, err := a.engineFor(collection)
	if err != nil {
		return nil, err
	}

	fetchLimit := limit * 3
	if fetchLimit < limit {
		fetchLimit = limit
	}
	vecResults, err := eng.vec.Search(ctx, hashEmbed(text), fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %s", coreerrors.ErrTransient, err)
	}

	hits := a.fusion.fuse(nil, vecResults, 1)
	filtered := hits[:0]
	for _, h := range hits {
		if float64(h.Score) >= certainty {
			filtered = append(filtered, h)
		}
	}
	return a.hydrateAndFilter(ctx, collection, filtered, filter, limit, nil)
}

// hydrateAndFilter attaches stored properties to each hit, drops hits that
// fail filter or have no metadata row (deleted out from under a stale
// engine entry), and truncates to limit.
func (a *StoreAdapter) hydrateAndFilter(ctx context.Context, collection string, hits []Hit, filter *Filter, limit int, fields []string) ([]Hit, error) {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		props, err := a.metadata.get(ctx, collection, h.ID)
		if err != nil {
			return nil, err
		}
		if props == nil {
			continue
		}
		if !matchesFilter(props, filter) {
			continue
		}
		h.Properties = projectFields(props, fields)
		out = append(out, h)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// matchesFilter evaluates filter against an in-memory property map. Used to
// apply filters on top of already-ranked hybrid/near-text results, where the
// sqlite WHERE clause used by FilterFetch doesn't apply.
func matchesFilter(props map[string]any, filter *Filter) bool {
	if filter == nil || len(filter.Clauses) == 0 {
		return true
	}
	results := make([]bool, len(filter.Clauses))
	for i, c := range filter.Clauses {
		results[i] = clauseMatches(props, c)
	}
	if filter.Logic == FilterLogicOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

func clauseMatches(props map[string]any, c Clause) bool {
	v, ok := props[c.Property]
	if !ok {
		return false
	}
	switch c.Op {
	case FilterOpEquals:
		return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", c.Value)
	case FilterOpContainsAny:
		values, ok := c.Value.([]string)
		if !ok {
			return false
		}
		sv := fmt.Sprintf("%v", v)
		for _, want := range values {
			if sv == want {
				return true
			}
		}
		return false
	case FilterOpLessThan:
		return fmt.Sprintf("%v", v) < fmt.Sprintf("%v", c.Value)
	default:
		return false
	}
}

// FilterFetch returns unscored documents matching filter (§4.1).
func (a *StoreAdapter) FilterFetch(ctx context.Context, collection string, filter *Filter, limit int, fields []string) ([]Doc, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, err := a.engineFor(collection); err != nil {
		return nil, err
	}
	return a.metadata.filterFetch(ctx, collection, filter, limit, fields)
}

// AggregateCount returns the number of documents in collection matching filter.
func (a *StoreAdapter) AggregateCount(ctx context.Context, collection string, filter *Filter) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, err := a.engineFor(collection); err != nil {
		return 0, err
	}
	return a.metadata.aggregateCount(ctx, collection, filter)
}

// AggregateGroupBy buckets documents in collection by property value.
func (a *StoreAdapter) AggregateGroupBy(ctx context.Context, collection, property string) ([]GroupCount, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, err := a.engineFor(collection); err != nil {
		return nil, err
	}
	return a.metadata.aggregateGroupBy(ctx, collection, property)
}

// Insert writes a new document into collection and returns its generated
// id. Write ordering is bm25, then vector, then metadata last: the
// metadata row is what FilterFetch/hydrateAndFilter consult, so a document
// is only visible to readers once every engine has accepted it. A failure
// partway returns ErrTransient and leaves no partial document visible.
func (a *StoreAdapter) Insert(ctx context.Context, collection string, properties map[string]any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	eng, err := a.engineFor(collection)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	content := stringProp(properties, a.contentKey)

	if err := eng.bm25.Index(ctx, []*Document{{ID: id, Content: content}}); err != nil {
		return "", fmt.Errorf("%w: bm25 index: %s", coreerrors.ErrTransient, err)
	}
	if err := eng.vec.Add(ctx, []string{id}, [][]float32{hashEmbed(content)}); err != nil {
		_ = eng.bm25.Delete(ctx, []string{id})
		return "", fmt.Errorf("%w: vector add: %s", coreerrors.ErrTransient, err)
	}
	if err := a.metadata.put(ctx, collection, id, properties); err != nil {
		_ = eng.bm25.Delete(ctx, []string{id})
		_ = eng.vec.Delete(ctx, []string{id})
		return "", fmt.Errorf("%w: metadata insert: %s", coreerrors.ErrTransient, err)
	}

	return id, nil
}

// DeleteById removes a document from every engine and the metadata table.
func (a *StoreAdapter) DeleteById(ctx context.Context, collection, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	eng, err := a.engineFor(collection)
	if err != nil {
		return err
	}

	if err := a.metadata.delete(ctx, collection, id); err != nil {
		return fmt.Errorf("%w: metadata delete: %s", coreerrors.ErrTransient, err)
	}
	if err := eng.bm25.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("%w: bm25 delete: %s", coreerrors.ErrTransient, err)
	}
	if err := eng.vec.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("%w: vector delete: %s", coreerrors.ErrTransient, err)
	}
	return nil
}

// Close persists every engine to disk and releases the metadata db handle.
func (a *StoreAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for name, eng := range a.engines {
		record(eng.bm25.Save(filepath.Join(a.baseDir, "bm25", name)))
		record(eng.vec.Save(filepath.Join(a.baseDir, "hnsw", name+".gob")))
		record(eng.bm25.Close())
		record(eng.vec.Close())
	}
	if a.metadata != nil {
		record(a.metadata.Close())
	}
	return firstErr
}

func stringProp(properties map[string]any, key string) string {
	v, ok := properties[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
