package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/coderag/internal/bundler"
	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
	"github.com/Aman-CERP/coderag/internal/searchfacade"
	"github.com/Aman-CERP/coderag/internal/store"
)

// SearchInput is the §6.1 `search` tool input.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the search query to execute"`
	Project    string   `json:"project,omitempty" jsonschema:"project filter; defaults to the configured default project"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	ChunkTypes []string `json:"chunkTypes,omitempty" jsonschema:"restrict to these chunk types (function, class, component, hook, service, migration)"`
	Alpha      float64  `json:"alpha,omitempty" jsonschema:"hybrid blend between keyword (0) and semantic (1) search, default 0.5"`
	Rewrite    bool     `json:"rewrite,omitempty" jsonschema:"expand the query with synonyms and identifier-case variants before searching"`
	Autocut    bool     `json:"autocut,omitempty" jsonschema:"trim the result list at the largest score gap instead of a hard limit"`
}

// SearchOutput is the §6.1 `search` tool output. Embeds the façade output
// shape directly; Error is set instead of the fields being populated when
// the underlying search fails (§7 propagation policy).
type SearchOutput struct {
	searchfacade.BasicSearchOutput
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	out, err := s.facade.BasicSearch(ctx, input.Query, searchfacade.BasicSearchOptions{
		Project:    s.project(input.Project),
		Limit:      input.Limit,
		ChunkTypes: input.ChunkTypes,
		Alpha:      input.Alpha,
		Rewrite:    input.Rewrite,
		Autocut:    input.Autocut,
	})
	result := SearchOutput{BasicSearchOutput: out}
	if err != nil {
		result.Error = coreerrors.FormatForUser(err, false)
	}
	return nil, result, nil
}

// SearchAdvancedInput is the §6.1 `search_advanced` tool input.
type SearchAdvancedInput struct {
	Query       string   `json:"query" jsonschema:"the search query to execute"`
	Project     string   `json:"project,omitempty" jsonschema:"project filter; defaults to the configured default project"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	ChunkTypes  []string `json:"chunkTypes,omitempty" jsonschema:"restrict to these chunk types"`
	Threshold   float64  `json:"threshold,omitempty" jsonschema:"quality score the reflexion loop must reach to stop early, default 0.5"`
	MaxAttempts int      `json:"maxAttempts,omitempty" jsonschema:"maximum number of reflexion strategies to try, default 3"`
}

// SearchAdvancedOutput is the §6.1 `search_advanced` tool output.
type SearchAdvancedOutput struct {
	searchfacade.AdvancedSearchOutput
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSearchAdvanced(ctx context.Context, _ *mcp.CallToolRequest, input SearchAdvancedInput) (*mcp.CallToolResult, SearchAdvancedOutput, error) {
	if input.Query == "" {
		return nil, SearchAdvancedOutput{}, NewInvalidParamsError("query parameter is required")
	}

	out, err := s.facade.AdvancedSearch(ctx, input.Query, searchfacade.AdvancedSearchOptions{
		Project:     s.project(input.Project),
		Limit:       input.Limit,
		ChunkTypes:  input.ChunkTypes,
		Threshold:   input.Threshold,
		MaxAttempts: input.MaxAttempts,
	})
	result := SearchAdvancedOutput{AdvancedSearchOutput: out}
	if err != nil {
		result.Error = coreerrors.FormatForUser(err, false)
	}
	return nil, result, nil
}

// ContextInput is the §6.1 `context` tool input.
type ContextInput struct {
	FilePath     string `json:"filePath" jsonschema:"path of the file to assemble context for"`
	Project      string `json:"project,omitempty" jsonschema:"project filter; defaults to the configured default project"`
	MaxFiles     int    `json:"maxFiles,omitempty" jsonschema:"maximum number of related (dependency) files to include, default 10"`
	IncludeTypes bool   `json:"includeTypes,omitempty" jsonschema:"include type definitions referenced by the file"`
}

// ChunkOutput is one code chunk nested inside a context bundle response.
type ChunkOutput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
	Signature string `json:"signature,omitempty"`
	JSDoc     string `json:"jsDoc,omitempty"`
	Content   string `json:"content"`
}

// FileOutput is one file's worth of chunks in a context bundle response
// (used for both the main file and its related files).
type FileOutput struct {
	Path   string        `json:"path"`
	Chunks []ChunkOutput `json:"chunks"`
}

// TypeDefOutput is one type definition nested inside a context bundle
// response.
type TypeDefOutput struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	File       string   `json:"file"`
	Properties []string `json:"properties,omitempty"`
	Extends    []string `json:"extends,omitempty"`
	Content    string   `json:"content"`
}

// ContextOutput is the §6.1 `context` tool output shape.
type ContextOutput struct {
	MainFile     *FileOutput     `json:"mainFile,omitempty"`
	RelatedFiles []FileOutput    `json:"relatedFiles,omitempty"`
	Types        []TypeDefOutput `json:"types,omitempty"`
	TotalLines   int             `json:"totalLines,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func toChunkOutputs(chunks []store.CodeChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkOutput{
			Name:      c.Name,
			Type:      string(c.ChunkType),
			LineStart: c.LineStart,
			LineEnd:   c.LineEnd,
			Signature: c.Signature,
			JSDoc:     c.JSDoc,
			Content:   c.Content,
		}
	}
	return out
}

func (s *Server) handleContext(ctx context.Context, _ *mcp.CallToolRequest, input ContextInput) (*mcp.CallToolResult, ContextOutput, error) {
	if input.FilePath == "" {
		return nil, ContextOutput{}, NewInvalidParamsError("filePath parameter is required")
	}

	bundle, err := bundler.Bundle(ctx, s.store, input.FilePath, bundler.Options{
		Project:      s.project(input.Project),
		MaxFiles:     input.MaxFiles,
		IncludeTypes: input.IncludeTypes,
		Aliases:      s.aliases,
	})
	if err != nil {
		return nil, ContextOutput{Error: coreerrors.FormatForUser(err, false)}, nil
	}

	out := ContextOutput{
		MainFile:   &FileOutput{Path: bundle.MainFilePath, Chunks: toChunkOutputs(bundle.MainChunks)},
		TotalLines: bundle.TotalLines,
	}
	for _, rf := range bundle.RelatedFiles {
		out.RelatedFiles = append(out.RelatedFiles, FileOutput{Path: rf.Path, Chunks: toChunkOutputs(rf.Chunks)})
	}
	for _, t := range bundle.Types {
		out.Types = append(out.Types, TypeDefOutput{
			Name:       t.Name,
			Kind:       string(t.TypeKind),
			File:       t.FilePath,
			Properties: t.Properties,
			Extends:    t.ExtendsTypes,
			Content:    t.Content,
		})
	}
	return nil, out, nil
}

// TypesInput is the §6.1 `types` tool input.
type TypesInput struct {
	Query   string `json:"query" jsonschema:"the type search query to execute"`
	Project string `json:"project,omitempty" jsonschema:"project filter; defaults to the configured default project"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// TypesOutput is the §6.1 `types` tool output.
type TypesOutput struct {
	searchfacade.TypeSearchOutput
	Error string `json:"error,omitempty"`
}

func (s *Server) handleTypes(ctx context.Context, _ *mcp.CallToolRequest, input TypesInput) (*mcp.CallToolResult, TypesOutput, error) {
	if input.Query == "" {
		return nil, TypesOutput{}, NewInvalidParamsError("query parameter is required")
	}

	out, err := s.facade.TypeSearch(ctx, input.Query, searchfacade.TypeSearchOptions{
		Project: s.project(input.Project),
		Limit:   input.Limit,
	})
	result := TypesOutput{TypeSearchOutput: out}
	if err != nil {
		result.Error = coreerrors.FormatForUser(err, false)
	}
	return nil, result, nil
}

// SimilarInput is the §6.1 `similar` tool input.
type SimilarInput struct {
	Code    string `json:"code" jsonschema:"the code snippet to find semantically similar chunks for"`
	Project string `json:"project,omitempty" jsonschema:"project filter; defaults to the configured default project"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SimilarOutput is the §6.1 `similar` tool output.
type SimilarOutput struct {
	searchfacade.SimilaritySearchOutput
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSimilar(ctx context.Context, _ *mcp.CallToolRequest, input SimilarInput) (*mcp.CallToolResult, SimilarOutput, error) {
	if input.Code == "" {
		return nil, SimilarOutput{}, NewInvalidParamsError("code parameter is required")
	}

	out, err := s.facade.SimilaritySearch(ctx, input.Code, searchfacade.SimilaritySearchOptions{
		Project: s.project(input.Project),
		Limit:   input.Limit,
	})
	result := SimilarOutput{SimilaritySearchOutput: out}
	if err != nil {
		result.Error = coreerrors.FormatForUser(err, false)
	}
	return nil, result, nil
}

// MemoriesInput is the §6.1 `memories` tool input. Project is optional:
// omitting it searches across all projects.
type MemoriesInput struct {
	Query   string `json:"query" jsonschema:"the memory search query to execute"`
	Project string `json:"project,omitempty" jsonschema:"optional project filter"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

// MemoriesOutput is the §6.1 `memories` tool output.
type MemoriesOutput struct {
	searchfacade.MemorySearchOutput
	Error string `json:"error,omitempty"`
}

func (s *Server) handleMemories(ctx context.Context, _ *mcp.CallToolRequest, input MemoriesInput) (*mcp.CallToolResult, MemoriesOutput, error) {
	if input.Query == "" {
		return nil, MemoriesOutput{}, NewInvalidParamsError("query parameter is required")
	}

	out, err := s.facade.MemorySearch(ctx, input.Query, searchfacade.MemorySearchOptions{
		Project: input.Project,
		Limit:   input.Limit,
	})
	result := MemoriesOutput{MemorySearchOutput: out}
	if err != nil {
		result.Error = coreerrors.FormatForUser(err, false)
	}
	return nil, result, nil
}

// StatusInput is the §6.1 `status` tool input (no parameters).
type StatusInput struct{}

// CollectionCounts is the per-collection chunk count block of the status
// tool output.
type CollectionCounts struct {
	CodeChunk      int `json:"CodeChunk"`
	DocChunk       int `json:"DocChunk"`
	TypeDefinition int `json:"TypeDefinition"`
	FileMetadata   int `json:"FileMetadata"`
}

// QueryMetricsSummary is the telemetry block of the status tool output
// (§10.4): a lightweight view of recent query activity, omitted entirely
// when no metrics recorder is configured.
type QueryMetricsSummary struct {
	TotalQueries      int64   `json:"totalQueries"`
	ZeroResultPercent float64 `json:"zeroResultPercent"`
	ExactRepeatRate   float64 `json:"exactRepeatRate"`
}

// StatusOutput is the §6.1 `status` tool output shape. This tool must
// never fail (§7): a store error surfaces as Status:"error" plus Error,
// never as a returned Go error.
type StatusOutput struct {
	Status      string               `json:"status"`
	TotalChunks CollectionCounts     `json:"totalChunks"`
	ByProject   map[string]int       `json:"byProject,omitempty"`
	QueryStats  *QueryMetricsSummary `json:"queryStats,omitempty"`
	Error       string               `json:"error,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	counts, err := s.collectionCounts(ctx)
	if err != nil {
		return nil, StatusOutput{Status: "error", Error: coreerrors.FormatForUser(err, false)}, nil
	}

	byProject := map[string]int{}
	groups, err := s.store.AggregateGroupBy(ctx, store.CollectionCodeChunk, store.PropProject)
	if err != nil {
		return nil, StatusOutput{Status: "error", Error: coreerrors.FormatForUser(err, false)}, nil
	}
	for _, g := range groups {
		byProject[g.Value] = g.Count
	}

	out := StatusOutput{Status: "ready", TotalChunks: counts, ByProject: byProject}
	if s.facade != nil && s.facade.Metrics != nil {
		snap := s.facade.Metrics.Snapshot()
		out.QueryStats = &QueryMetricsSummary{
			TotalQueries:      snap.TotalQueries,
			ZeroResultPercent: snap.ZeroResultPercentage(),
			ExactRepeatRate:   snap.ExactRepeatRate,
		}
	}

	return nil, out, nil
}

func (s *Server) collectionCounts(ctx context.Context) (CollectionCounts, error) {
	var counts CollectionCounts
	var err error

	if counts.CodeChunk, err = s.store.AggregateCount(ctx, store.CollectionCodeChunk, nil); err != nil {
		return counts, err
	}
	if counts.DocChunk, err = s.store.AggregateCount(ctx, store.CollectionDocChunk, nil); err != nil {
		return counts, err
	}
	if counts.TypeDefinition, err = s.store.AggregateCount(ctx, store.CollectionTypeDefinition, nil); err != nil {
		return counts, err
	}
	if counts.FileMetadata, err = s.store.AggregateCount(ctx, store.CollectionFileMetadata, nil); err != nil {
		return counts, err
	}
	return counts, nil
}
