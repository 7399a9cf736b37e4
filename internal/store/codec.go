package store

import "time"

// Property key constants mirror the wire-level document shape the feeder
// writes and the core reads (§3). They match the spec's own attribute
// names so a properties map round-trips without translation at either
// boundary.
const (
	PropName         = "name"
	PropContent      = "content"
	PropFilePath     = "filePath"
	PropProject      = "project"
	PropChunkType    = "chunkType"
	PropLanguage     = "language"
	PropLineStart    = "lineStart"
	PropLineEnd      = "lineEnd"
	PropLineCount    = "lineCount"
	PropSignature    = "signature"
	PropJSDoc        = "jsDoc"
	PropImports      = "imports"
	PropDependencies = "dependencies"
	PropUsedTypes    = "usedTypes"
	PropIsExported   = "isExported"
	PropIsAsync      = "isAsync"
	PropComplexity   = "complexity"
	PropLastModified = "lastModified"
	PropGitCommit    = "gitCommit"

	PropTypeKind     = "typeKind"
	PropProperties   = "properties"
	PropExtendsTypes = "extendsTypes"
	PropFromDatabase = "fromDatabase"

	PropSessionID       = "sessionId"
	PropSummary         = "summary"
	PropDecisions       = "decisions"
	PropFilesModified   = "filesModified"
	PropTopics          = "topics"
	PropTimestamp       = "timestamp"
	PropAgentType       = "agentType"
	PropModel           = "model"
	PropTaskType        = "taskType"
	PropCost            = "cost"
	PropInputTokens     = "inputTokens"
	PropOutputTokens    = "outputTokens"
	PropParentSessionID = "parentSessionId"
)

// ChunkToProperties encodes a CodeChunk as the map Insert expects.
func ChunkToProperties(c CodeChunk) map[string]any {
	p := map[string]any{
		PropName:         c.Name,
		PropContent:      c.Content,
		PropFilePath:     c.FilePath,
		PropProject:      c.Project,
		PropChunkType:    string(c.ChunkType),
		PropLanguage:     c.Language,
		PropLineStart:    c.LineStart,
		PropLineEnd:      c.LineEnd,
		PropLineCount:    c.LineCount,
		PropSignature:    c.Signature,
		PropJSDoc:        c.JSDoc,
		PropImports:      c.Imports,
		PropDependencies: c.Dependencies,
		PropUsedTypes:    c.UsedTypes,
		PropIsExported:   c.IsExported,
		PropIsAsync:      c.IsAsync,
		PropComplexity:   c.Complexity,
		PropGitCommit:    c.GitCommit,
	}
	if !c.LastModified.IsZero() {
		p[PropLastModified] = c.LastModified.Format(time.RFC3339)
	}
	return p
}

// ChunkFromProperties decodes a CodeChunk out of a Hit/Doc properties map.
func ChunkFromProperties(props map[string]any) CodeChunk {
	return CodeChunk{
		Name:         getString(props, PropName),
		Content:      getString(props, PropContent),
		FilePath:     getString(props, PropFilePath),
		Project:      getString(props, PropProject),
		ChunkType:    ChunkType(getString(props, PropChunkType)),
		Language:     getString(props, PropLanguage),
		LineStart:    getInt(props, PropLineStart),
		LineEnd:      getInt(props, PropLineEnd),
		LineCount:    getInt(props, PropLineCount),
		Signature:    getString(props, PropSignature),
		JSDoc:        getString(props, PropJSDoc),
		Imports:      getStringSlice(props, PropImports),
		Dependencies: getStringSlice(props, PropDependencies),
		UsedTypes:    getStringSlice(props, PropUsedTypes),
		IsExported:   getBool(props, PropIsExported),
		IsAsync:      getBool(props, PropIsAsync),
		Complexity:   getInt(props, PropComplexity),
		LastModified: getTime(props, PropLastModified),
		GitCommit:    getString(props, PropGitCommit),
	}
}

// TypeDefToProperties encodes a TypeDefinition as an Insert-ready map.
func TypeDefToProperties(t TypeDefinition) map[string]any {
	return map[string]any{
		PropName:         t.Name,
		PropContent:      t.Content,
		PropFilePath:     t.FilePath,
		PropProject:      t.Project,
		PropTypeKind:     string(t.TypeKind),
		PropProperties:   t.Properties,
		PropExtendsTypes: t.ExtendsTypes,
		PropJSDoc:        t.JSDoc,
		PropIsExported:   t.IsExported,
		PropFromDatabase: t.FromDatabase,
	}
}

// TypeDefFromProperties decodes a TypeDefinition out of a properties map.
func TypeDefFromProperties(props map[string]any) TypeDefinition {
	return TypeDefinition{
		Name:         getString(props, PropName),
		Content:      getString(props, PropContent),
		FilePath:     getString(props, PropFilePath),
		Project:      getString(props, PropProject),
		TypeKind:     TypeKind(getString(props, PropTypeKind)),
		Properties:   getStringSlice(props, PropProperties),
		ExtendsTypes: getStringSlice(props, PropExtendsTypes),
		JSDoc:        getString(props, PropJSDoc),
		IsExported:   getBool(props, PropIsExported),
		FromDatabase: getBool(props, PropFromDatabase),
	}
}

// MemoryToProperties encodes a ConversationMemory as an Insert-ready map.
// ID is not included: it is assigned by the store on Insert (§3.3).
func MemoryToProperties(m ConversationMemory) map[string]any {
	return map[string]any{
		PropSessionID:       m.SessionID,
		PropSummary:         m.Summary,
		PropDecisions:       m.Decisions,
		PropFilesModified:   m.FilesModified,
		PropProject:         m.Project,
		PropTopics:          m.Topics,
		PropTimestamp:       m.Timestamp.Format(time.RFC3339),
		PropAgentType:       m.AgentType,
		PropModel:           m.Model,
		PropTaskType:        m.TaskType,
		PropCost:            m.Cost,
		PropInputTokens:     m.InputTokens,
		PropOutputTokens:    m.OutputTokens,
		PropParentSessionID: m.ParentSessionID,
	}
}

// MemoryFromProperties decodes a ConversationMemory out of a properties
// map. id is the store-assigned identity, passed separately since it lives
// outside the properties blob.
func MemoryFromProperties(id string, props map[string]any) ConversationMemory {
	return ConversationMemory{
		ID:              id,
		SessionID:       getString(props, PropSessionID),
		Summary:         getString(props, PropSummary),
		Decisions:       getStringSlice(props, PropDecisions),
		FilesModified:   getStringSlice(props, PropFilesModified),
		Project:         getString(props, PropProject),
		Topics:          getStringSlice(props, PropTopics),
		Timestamp:       getTime(props, PropTimestamp),
		AgentType:       getString(props, PropAgentType),
		Model:           getString(props, PropModel),
		TaskType:        getString(props, PropTaskType),
		Cost:            getFloat64(props, PropCost),
		InputTokens:     getInt64(props, PropInputTokens),
		OutputTokens:    getInt64(props, PropOutputTokens),
		ParentSessionID: getString(props, PropParentSessionID),
	}
}

func getString(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(props map[string]any, key string) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getInt(props map[string]any, key string) int {
	return int(getFloat64(props, key))
}

func getInt64(props map[string]any, key string) int64 {
	return int64(getFloat64(props, key))
}

func getFloat64(props map[string]any, key string) float64 {
	if v, ok := props[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return 0
}

func getTime(props map[string]any, key string) time.Time {
	s := getString(props, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func getStringSlice(props map[string]any, key string) []string {
	v, ok := props[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
