// Package store provides the uniform adapter (C1) over the vector/keyword
// store: hybrid search, filter-fetch, aggregation, and delete-by-id across
// the five named collections.
package store

import (
	"context"
	"time"
)

// Collection names recognised by the adapter (§6.2).
const (
	CollectionCodeChunk         = "CodeChunk"
	CollectionDocChunk          = "DocChunk"
	CollectionTypeDefinition    = "TypeDefinition"
	CollectionFileMetadata      = "FileMetadata"
	CollectionConversationMemory = "ConversationMemory"
)

// ChunkType enumerates the kinds of indexed code units.
type ChunkType string

const (
	ChunkTypeFunction  ChunkType = "function"
	ChunkTypeClass     ChunkType = "class"
	ChunkTypeComponent ChunkType = "component"
	ChunkTypeHook      ChunkType = "hook"
	ChunkTypeService   ChunkType = "service"
	ChunkTypeMigration ChunkType = "migration"
)

// TypeKind enumerates the kinds of type definitions.
type TypeKind string

const (
	TypeKindInterface TypeKind = "interface"
	TypeKindType      TypeKind = "type"
	TypeKindEnum      TypeKind = "enum"
	TypeKindConst     TypeKind = "const"
)

// CodeChunk is a parsed logical unit of code (§3.1).
type CodeChunk struct {
	Project      string
	FilePath     string
	Name         string
	Content      string
	ChunkType    ChunkType
	Language     string
	LineStart    int
	LineEnd      int
	LineCount    int
	Signature    string
	JSDoc        string
	Imports      []string
	Dependencies []string
	UsedTypes    []string
	IsExported   bool
	IsAsync      bool
	Complexity   int
	LastModified time.Time
	GitCommit    string
}

// DocChunk mirrors CodeChunk's shape for non-code prose (§3.5).
type DocChunk struct {
	Project     string
	FilePath    string
	Name        string // section heading
	Content     string
	HeadingPath []string
	LineStart   int
	LineEnd     int
}

// TypeDefinition is an interface, type alias, enum, or const-type (§3.2).
type TypeDefinition struct {
	Project      string
	FilePath     string
	Name         string
	Content      string
	TypeKind     TypeKind
	Properties   []string
	ExtendsTypes []string
	JSDoc        string
	IsExported   bool
	FromDatabase bool
}

// FileMetadata is a per-file summary row (§3.5).
type FileMetadata struct {
	FilePath    string
	Project     string
	Language    string
	ChunkCount  int
	LastIndexed time.Time
	SizeBytes   int64
}

// ConversationMemory is a summary of a prior agent session (§3.3).
type ConversationMemory struct {
	ID              string
	SessionID       string
	Summary         string
	Decisions       []string
	FilesModified   []string
	Project         string
	Topics          []string
	Timestamp       time.Time
	AgentType       string
	Model           string
	TaskType        string
	Cost            float64
	InputTokens     int64
	OutputTokens    int64
	ParentSessionID string
}

// FilterOp is the comparison applied by a single filter clause.
type FilterOp string

const (
	FilterOpEquals      FilterOp = "eq"
	FilterOpContainsAny FilterOp = "contains_any"
	FilterOpLessThan    FilterOp = "lt"
)

// FilterLogic joins multiple clauses.
type FilterLogic string

const (
	FilterLogicAnd FilterLogic = "and"
	FilterLogicOr  FilterLogic = "or"
)

// Clause is a single filter condition on a property.
type Clause struct {
	Property string
	Op       FilterOp
	Value    any // string for eq/lt (lt expects a time.Time), []string for contains_any
}

// Filter composes clauses with AND/OR logic (§4.1).
type Filter struct {
	Logic   FilterLogic
	Clauses []Clause
}

// Eq returns a single-clause equality filter.
func Eq(property, value string) Filter {
	return Filter{Logic: FilterLogicAnd, Clauses: []Clause{{Property: property, Op: FilterOpEquals, Value: value}}}
}

// And appends a clause joined by AND.
func (f Filter) And(c Clause) Filter {
	f.Logic = FilterLogicAnd
	f.Clauses = append(f.Clauses, c)
	return f
}

// Hit is a single scored search result from HybridSearch/NearText.
type Hit struct {
	ID           string
	Properties   map[string]any
	Score        float64
	MatchedTerms []string
	BM25Rank     int
	VecRank      int
	InBothLists  bool
}

// Doc is an unscored document returned by FilterFetch.
type Doc struct {
	ID         string
	Properties map[string]any
}

// GroupCount is one bucket of an AggregateGroupBy result.
type GroupCount struct {
	Value string
	Count int
}

// Adapter is the narrow, synchronous interface the rest of the core
// depends on (C1). Implementations must be safe for concurrent use.
type Adapter interface {
	HybridSearch(ctx context.Context, collection, query string, alpha float64, filter *Filter, limit int, fields []string) ([]Hit, error)
	NearText(ctx context.Context, collection, text string, certainty float64, filter *Filter, limit int) ([]Hit, error)
	FilterFetch(ctx context.Context, collection string, filter *Filter, limit int, fields []string) ([]Doc, error)
	AggregateCount(ctx context.Context, collection string, filter *Filter) (int, error)
	AggregateGroupBy(ctx context.Context, collection, property string) ([]GroupCount, error)
	Insert(ctx context.Context, collection string, properties map[string]any) (string, error)
	DeleteById(ctx context.Context, collection, id string) error
	Close() error
}
