// Package bundler implements the Context Bundler (C6): given a file path,
// it assembles a dependency-aware context package of the file's own
// chunks, the chunks of files it depends on, and the type definitions it
// references, under a file-count bound.
package bundler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
	"github.com/Aman-CERP/coderag/internal/store"
)

const (
	defaultMaxFiles       = 10
	relatedChunksPerFile  = 5
	maxTypeDefinitions    = 20
)

// Options configures Bundle (§4.6).
type Options struct {
	Project      string
	MaxFiles     int
	IncludeTypes bool
	// Aliases maps a path-alias prefix (e.g. "@/") to its in-project
	// replacement (e.g. "src/"). Checked longest-prefix-first.
	Aliases map[string]string
}

func (o Options) normalize() Options {
	if o.MaxFiles <= 0 {
		o.MaxFiles = defaultMaxFiles
	}
	return o
}

// RelatedFile is one dependency file pulled into the bundle, with its
// exported chunks ordered by lineStart.
type RelatedFile struct {
	Path   string
	Chunks []store.CodeChunk
}

// Bundle is the C6 output (§4.6).
type Bundle struct {
	MainFilePath string
	MainChunks   []store.CodeChunk
	RelatedFiles []RelatedFile
	Types        []store.TypeDefinition
	TotalLines   int
}

// Bundle assembles the context package for filePath (§4.6).
func Bundle(ctx context.Context, adapter store.Adapter, filePath string, opts Options) (*Bundle, error) {
	opts = opts.normalize()

	mainDocs, err := adapter.FilterFetch(ctx, store.CollectionCodeChunk,
		&store.Filter{Logic: store.FilterLogicAnd, Clauses: []store.Clause{
			{Property: store.PropFilePath, Op: store.FilterOpEquals, Value: filePath},
			{Property: store.PropProject, Op: store.FilterOpEquals, Value: opts.Project},
		}}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("bundler: fetch main file: %w", err)
	}
	if len(mainDocs) == 0 {
		return nil, fmt.Errorf("%w: no chunks for %q in project %q", coreerrors.ErrNotFound, filePath, opts.Project)
	}

	mainChunks := make([]store.CodeChunk, 0, len(mainDocs))
	depSet := make(map[string]struct{})
	typeSet := make(map[string]struct{})
	for _, d := range mainDocs {
		c := store.ChunkFromProperties(d.Properties)
		mainChunks = append(mainChunks, c)
		for _, dep := range c.Dependencies {
			depSet[dep] = struct{}{}
		}
		for _, t := range c.UsedTypes {
			typeSet[t] = struct{}{}
		}
	}
	sortChunksByLine(mainChunks)

	prefixes := normalizePrefixes(depSet, opts.Aliases, opts.MaxFiles)

	allProjectDocs, err := adapter.FilterFetch(ctx, store.CollectionCodeChunk,
		store.Eq(store.PropProject, opts.Project), 0, nil)
	if err != nil {
		return nil, fmt.Errorf("bundler: fetch project chunks: %w", err)
	}

	bundle := &Bundle{MainFilePath: filePath, MainChunks: mainChunks}
	seenFiles := map[string]struct{}{filePath: {}}

	for _, prefix := range prefixes {
		matched := matchRelatedChunks(allProjectDocs, prefix, seenFiles)
		if len(matched.Chunks) == 0 {
			continue
		}
		seenFiles[matched.Path] = struct{}{}
		bundle.RelatedFiles = append(bundle.RelatedFiles, matched)
	}

	if opts.IncludeTypes && len(typeSet) > 0 {
		types, err := fetchTypes(ctx, adapter, opts.Project, typeSet)
		if err != nil {
			return nil, fmt.Errorf("bundler: fetch types: %w", err)
		}
		bundle.Types = types
	}

	bundle.TotalLines = countLines(bundle)
	return bundle, nil
}

// normalizePrefixes applies the alias map, strips leading "./", and drops
// specifiers that do not resolve to an in-project relative path (§4.6 step
// 3). Specifiers are resolved in sorted order, so the result is
// deterministic; it is capped at maxFiles.
func normalizePrefixes(deps map[string]struct{}, aliases map[string]string, maxFiles int) []string {
	// Deterministic order: sort the raw specifiers before resolving, since
	// map iteration order is not stable.
	raw := make([]string, 0, len(deps))
	for d := range deps {
		raw = append(raw, d)
	}
	sort.Strings(raw)

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, spec := range raw {
		resolved, ok := resolveSpecifier(spec, aliases)
		if !ok {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
		if len(out) >= maxFiles {
			break
		}
	}
	return out
}

func resolveSpecifier(spec string, aliases map[string]string) (string, bool) {
	prefixes := make([]string, 0, len(aliases))
	for prefix := range aliases {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, prefix := range prefixes {
		if strings.HasPrefix(spec, prefix) {
			return aliases[prefix] + strings.TrimPrefix(spec, prefix), true
		}
	}
	if strings.HasPrefix(spec, "./") {
		return strings.TrimPrefix(spec, "./"), true
	}
	if strings.HasPrefix(spec, "../") {
		return spec, true
	}
	return "", false
}

// matchRelatedChunks fetches up to relatedChunksPerFile exported chunks
// whose filePath contains prefix, from the file that first matches it
// (§4.6 step 4). seenFiles prevents a file reachable via two different
// dependency specifiers (or a dependency cycle) from being emitted twice.
func matchRelatedChunks(docs []store.Doc, prefix string, seenFiles map[string]struct{}) RelatedFile {
	byFile := make(map[string][]store.CodeChunk)
	var fileOrder []string
	for _, d := range docs {
		fp := getFilePath(d.Properties)
		if !strings.Contains(fp, prefix) {
			continue
		}
		if _, skip := seenFiles[fp]; skip {
			continue
		}
		c := store.ChunkFromProperties(d.Properties)
		if !c.IsExported {
			continue
		}
		if _, ok := byFile[fp]; !ok {
			fileOrder = append(fileOrder, fp)
		}
		byFile[fp] = append(byFile[fp], c)
	}

	for _, fp := range fileOrder {
		chunks := byFile[fp]
		sortChunksByLine(chunks)
		if len(chunks) > relatedChunksPerFile {
			chunks = chunks[:relatedChunksPerFile]
		}
		return RelatedFile{Path: fp, Chunks: chunks}
	}
	return RelatedFile{}
}

func fetchTypes(ctx context.Context, adapter store.Adapter, project string, names map[string]struct{}) ([]store.TypeDefinition, error) {
	docs, err := adapter.FilterFetch(ctx, store.CollectionTypeDefinition, store.Eq(store.PropProject, project), 0, nil)
	if err != nil {
		return nil, err
	}
	var out []store.TypeDefinition
	for _, d := range docs {
		t := store.TypeDefFromProperties(d.Properties)
		if _, want := names[t.Name]; !want {
			continue
		}
		out = append(out, t)
		if len(out) >= maxTypeDefinitions {
			break
		}
	}
	return out, nil
}

func countLines(b *Bundle) int {
	total := 0
	for _, c := range b.MainChunks {
		total += c.LineCount
	}
	for _, rf := range b.RelatedFiles {
		for _, c := range rf.Chunks {
			total += c.LineCount
		}
	}
	for _, t := range b.Types {
		total += strings.Count(t.Content, "\n") + 1
	}
	return total
}

func sortChunksByLine(chunks []store.CodeChunk) {
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].LineStart < chunks[j].LineStart })
}

func getFilePath(props map[string]any) string {
	if v, ok := props[store.PropFilePath]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
