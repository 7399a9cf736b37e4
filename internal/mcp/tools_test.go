package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/coderag/internal/searchfacade"
	"github.com/Aman-CERP/coderag/internal/store"
)

type fakeAdapter struct {
	hits        []store.Hit
	docs        []store.Doc
	counts      map[string]int
	groups      []store.GroupCount
	err         error
	aggregateErr error
}

func (f *fakeAdapter) HybridSearch(ctx context.Context, collection, query string, alpha float64, filter *store.Filter, limit int, fields []string) ([]store.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeAdapter) NearText(ctx context.Context, collection, text string, certainty float64, filter *store.Filter, limit int) ([]store.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeAdapter) FilterFetch(ctx context.Context, collection string, filter *store.Filter, limit int, fields []string) ([]store.Doc, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeAdapter) AggregateCount(ctx context.Context, collection string, filter *store.Filter) (int, error) {
	if f.aggregateErr != nil {
		return 0, f.aggregateErr
	}
	return f.counts[collection], nil
}

func (f *fakeAdapter) AggregateGroupBy(ctx context.Context, collection, property string) ([]store.GroupCount, error) {
	if f.aggregateErr != nil {
		return nil, f.aggregateErr
	}
	return f.groups, nil
}

func (f *fakeAdapter) Insert(ctx context.Context, collection string, properties map[string]any) (string, error) {
	return "id", nil
}

func (f *fakeAdapter) DeleteById(ctx context.Context, collection, id string) error { return nil }
func (f *fakeAdapter) Close() error                                                { return nil }

func chunkHit(name string, score float64) store.Hit {
	c := store.CodeChunk{Name: name, FilePath: "a.go", LineStart: 1, ChunkType: store.ChunkTypeFunction, Content: "func " + name + "() {}"}
	return store.Hit{ID: name, Properties: store.ChunkToProperties(c), Score: score}
}

func newTestServer(adapter *fakeAdapter) *Server {
	return &Server{
		facade: &searchfacade.Facade{Store: adapter},
		store:  adapter,
	}
}

func TestHandleSearch_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(&fakeAdapter{})
	_, _, err := s.handleSearch(context.Background(), nil, SearchInput{})
	require.Error(t, err)
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	s := newTestServer(&fakeAdapter{hits: []store.Hit{chunkHit("Foo", 0.9)}})
	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "foo"})
	require.NoError(t, err)
	assert.Empty(t, out.Error)
	assert.Equal(t, 1, out.ResultCount)
}

func TestHandleSearch_StoreErrorSurfacesInOutputNotProtocolError(t *testing.T) {
	s := newTestServer(&fakeAdapter{err: errors.New("store down")})
	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "foo"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Error)
}

func TestHandleSearchAdvanced_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(&fakeAdapter{})
	_, _, err := s.handleSearchAdvanced(context.Background(), nil, SearchAdvancedInput{})
	require.Error(t, err)
}

func TestHandleSearchAdvanced_ReturnsAttemptMetadata(t *testing.T) {
	s := newTestServer(&fakeAdapter{hits: []store.Hit{chunkHit("Foo", 0.81)}})
	_, out, err := s.handleSearchAdvanced(context.Background(), nil, SearchAdvancedInput{Query: "foo", Threshold: 0.6})
	require.NoError(t, err)
	assert.True(t, out.Metadata.QualityMet)
}

func TestHandleContext_RejectsEmptyFilePath(t *testing.T) {
	s := newTestServer(&fakeAdapter{})
	_, _, err := s.handleContext(context.Background(), nil, ContextInput{})
	require.Error(t, err)
}

func TestHandleContext_NotFoundSurfacesAsErrorField(t *testing.T) {
	s := newTestServer(&fakeAdapter{docs: nil})
	_, out, err := s.handleContext(context.Background(), nil, ContextInput{FilePath: "missing.go", Project: "p"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Error)
	assert.Nil(t, out.MainFile)
}

func TestHandleContext_AssemblesMainFile(t *testing.T) {
	doc := store.Doc{ID: "1", Properties: store.ChunkToProperties(store.CodeChunk{
		Project: "p", FilePath: "a.go", Name: "Foo", ChunkType: store.ChunkTypeFunction, LineStart: 1, LineEnd: 3,
	})}
	s := newTestServer(&fakeAdapter{docs: []store.Doc{doc}})
	_, out, err := s.handleContext(context.Background(), nil, ContextInput{FilePath: "a.go", Project: "p"})
	require.NoError(t, err)
	require.NotNil(t, out.MainFile)
	assert.Equal(t, "a.go", out.MainFile.Path)
	require.Len(t, out.MainFile.Chunks, 1)
	assert.Equal(t, "Foo", out.MainFile.Chunks[0].Name)
}

func TestHandleTypes_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(&fakeAdapter{})
	_, _, err := s.handleTypes(context.Background(), nil, TypesInput{})
	require.Error(t, err)
}

func TestHandleSimilar_RejectsEmptyCode(t *testing.T) {
	s := newTestServer(&fakeAdapter{})
	_, _, err := s.handleSimilar(context.Background(), nil, SimilarInput{})
	require.Error(t, err)
}

func TestHandleMemories_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(&fakeAdapter{})
	_, _, err := s.handleMemories(context.Background(), nil, MemoriesInput{})
	require.Error(t, err)
}

func TestHandleStatus_ReturnsCounts(t *testing.T) {
	s := newTestServer(&fakeAdapter{
		counts: map[string]int{
			store.CollectionCodeChunk:      12,
			store.CollectionDocChunk:       3,
			store.CollectionTypeDefinition: 4,
			store.CollectionFileMetadata:   7,
		},
		groups: []store.GroupCount{{Value: "p", Count: 12}},
	})
	_, out, err := s.handleStatus(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "ready", out.Status)
	assert.Equal(t, 12, out.TotalChunks.CodeChunk)
	assert.Equal(t, 12, out.ByProject["p"])
}

func TestHandleStatus_NeverReturnsProtocolErrorOnStoreFailure(t *testing.T) {
	s := newTestServer(&fakeAdapter{aggregateErr: errors.New("store unreachable")})
	_, out, err := s.handleStatus(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)
	assert.NotEmpty(t, out.Error)
}

func TestProject_FallsBackToDefault(t *testing.T) {
	s := &Server{defaultProject: "default-proj"}
	assert.Equal(t, "default-proj", s.project(""))
	assert.Equal(t, "other", s.project("other"))
}
