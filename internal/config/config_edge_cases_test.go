package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Edge Case Tests - These test scenarios that could cause silent failures
// or unexpected behavior.

// =============================================================================
// FindProjectRoot Edge Cases
// =============================================================================

func TestFindProjectRoot_NonExistentDir_ReturnsPathOrError(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	root, err := FindProjectRoot(nonExistent)

	if err != nil {
		assert.Error(t, err)
	} else {
		assert.NotEmpty(t, root)
	}
}

func TestFindProjectRoot_DeepNesting_FindsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	deepNested := filepath.Join(tmpDir, "a", "b", "c", "d", "e", "f", "g", "h")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(deepNested, 0o755))

	root, err := FindProjectRoot(deepNested)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_RelativePath_ResolvesToAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	root, err := FindProjectRoot(".")

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root), "Root should be absolute path")
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

func TestFindProjectRoot_EmptyString_UsesCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	root, err := FindProjectRoot("")

	require.NoError(t, err)
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

// =============================================================================
// Config Merge Edge Cases
// =============================================================================

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
search:
  bm25_weight: 0
  semantic_weight: 0
compaction:
  min_group_size: 0
`
	err := os.WriteFile(filepath.Join(tmpDir, ".coderag.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight, "zero should not override default bm25_weight")
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight, "zero should not override default semantic_weight")
	assert.Equal(t, 5, cfg.Compaction.MinGroupSize, "zero should not override default min_group_size")
}

func TestLoad_NegativeCompactionValue_Validated(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
compaction:
  older_than_days: -10
`
	err := os.WriteFile(filepath.Join(tmpDir, ".coderag.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	require.Nil(t, cfg)
	assert.Contains(t, err.Error(), "older_than_days must be non-negative")
}

func TestValidate_WeightsSumValidated(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.9
	cfg.Search.SemanticWeight = 0.9

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bm25_weight + search.semantic_weight must equal 1.0")
}

func TestValidate_UnknownTransportRejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.Transport = "carrier-pigeon"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.transport")
}

func TestValidate_UnknownLogLevelRejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

// =============================================================================
// Config File Permission Edge Cases
// =============================================================================

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".coderag.yaml")
	err := os.WriteFile(configPath, []byte("version: 1"), 0o000)
	require.NoError(t, err)
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	cfg, err := Load(tmpDir)

	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read", "Error should mention read failure")
}

// =============================================================================
// Config JSON Marshaling Edge Cases
// =============================================================================

func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.4
	cfg.Search.SemanticWeight = 0.6
	cfg.Search.RRFConstant = 100
	cfg.DefaultProject = "my-proj"

	data, err := jsonMarshal(cfg)
	require.NoError(t, err)

	var parsed Config
	err = jsonUnmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "my-proj", parsed.DefaultProject)
	assert.Equal(t, 0.4, parsed.Search.BM25Weight)
	assert.Equal(t, 0.6, parsed.Search.SemanticWeight)
	assert.Equal(t, 100, parsed.Search.RRFConstant)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	invalidJSON := []byte("{invalid json")

	var cfg Config
	err := jsonUnmarshal(invalidJSON, &cfg)

	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}

// =============================================================================
// MergeNewDefaults Edge Cases
// =============================================================================

func TestMergeNewDefaults_FillsZeroedFields(t *testing.T) {
	cfg := &Config{Version: 1, DefaultProject: "kept"}

	added := cfg.MergeNewDefaults()

	assert.NotEmpty(t, added)
	assert.Equal(t, "kept", cfg.DefaultProject, "existing non-zero fields are untouched")
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}
