// Package config loads the coderag configuration from defaults, the user's
// global config file, a project-local config file, and environment
// variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete coderag configuration (§6.3, §10.3).
type Config struct {
	Version        int              `yaml:"version" json:"version"`
	StoreURL       string           `yaml:"store_url" json:"store_url"`
	DefaultProject string           `yaml:"default_project" json:"default_project"`
	LLM            LLMConfig        `yaml:"llm" json:"llm"`
	Search         SearchConfig     `yaml:"search" json:"search"`
	Server         ServerConfig     `yaml:"server" json:"server"`
	Logging        LoggingConfig    `yaml:"logging" json:"logging"`
	Compaction     CompactionConfig `yaml:"compaction" json:"compaction"`
}

// LLMConfig configures the optional LLM capability shared by the query
// rewriter and the memory compactor (§6.3).
type LLMConfig struct {
	// APIKey enables the LLM rewriter and compactor. Empty means both fall
	// back to their deterministic paths (lexicon-only rewrite, templated
	// summary) rather than erroring.
	APIKey string `yaml:"api_key" json:"api_key"`
	// ModelRewrite is the model id used for query rewriting.
	ModelRewrite string `yaml:"model_rewrite" json:"model_rewrite"`
	// ModelSummarise is the model id used for memory compaction.
	ModelSummarise string `yaml:"model_summarise" json:"model_summarise"`
	// TimeoutMS is the per-call LLM timeout in milliseconds.
	TimeoutMS int `yaml:"timeout_ms" json:"timeout_ms"`
	// BaseURL overrides the OpenAI-compatible endpoint; empty uses the
	// provider's default.
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// SearchConfig tunes C1's internal hybrid fusion (§10.3).
type SearchConfig struct {
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	RRFConstant    int     `yaml:"rrf_constant" json:"rrf_constant"`
}

// ServerConfig configures the MCP server transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"` // "stdio" or "http"
	Address   string `yaml:"address" json:"address"`     // used only when transport is "http"
}

// LoggingConfig configures the structured logger (§10.1).
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Path  string `yaml:"path" json:"path"`
}

// CompactionConfig mirrors the §4.7/§6.4 compactor defaults so the CLI and
// a scheduled run agree absent flags.
type CompactionConfig struct {
	OlderThanDays int `yaml:"older_than_days" json:"older_than_days"`
	MinGroupSize  int `yaml:"min_group_size" json:"min_group_size"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version:        1,
		StoreURL:       defaultStorePath(),
		DefaultProject: "",
		LLM: LLMConfig{
			ModelRewrite:   "gpt-4o-mini",
			ModelSummarise: "gpt-4o-mini",
			TimeoutMS:      10000,
		},
		Search: SearchConfig{
			BM25Weight:     0.5,
			SemanticWeight: 0.5,
			RRFConstant:    60,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Address:   "127.0.0.1:8765",
		},
		Logging: LoggingConfig{
			Level: "info",
			Path:  "",
		},
		Compaction: CompactionConfig{
			OlderThanDays: 30,
			MinGroupSize:  5,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "coderag", "store")
	}
	return filepath.Join(home, ".coderag", "store")
}

// GetUserConfigPath returns the path to the user/global configuration
// file, honouring XDG_CONFIG_HOME if set.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "coderag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "coderag", "config.yaml")
	}
	return filepath.Join(home, ".config", "coderag", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user/global configuration file. Returns a nil
// config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective configuration for the project rooted at dir,
// applying (in order of increasing precedence) hardcoded defaults, the
// user config, the project config (.coderag.yaml), and environment
// variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if cfg.StoreURL != "" && !filepath.IsAbs(cfg.StoreURL) {
		cfg.StoreURL = filepath.Join(dir, cfg.StoreURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads .coderag.yaml or .coderag.yml from dir, if present.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".coderag.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".coderag.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.StoreURL != "" {
		c.StoreURL = other.StoreURL
	}
	if other.DefaultProject != "" {
		c.DefaultProject = other.DefaultProject
	}

	if other.LLM.APIKey != "" {
		c.LLM.APIKey = other.LLM.APIKey
	}
	if other.LLM.ModelRewrite != "" {
		c.LLM.ModelRewrite = other.LLM.ModelRewrite
	}
	if other.LLM.ModelSummarise != "" {
		c.LLM.ModelSummarise = other.LLM.ModelSummarise
	}
	if other.LLM.TimeoutMS != 0 {
		c.LLM.TimeoutMS = other.LLM.TimeoutMS
	}
	if other.LLM.BaseURL != "" {
		c.LLM.BaseURL = other.LLM.BaseURL
	}

	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Address != "" {
		c.Server.Address = other.Server.Address
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Path != "" {
		c.Logging.Path = other.Logging.Path
	}

	if other.Compaction.OlderThanDays != 0 {
		c.Compaction.OlderThanDays = other.Compaction.OlderThanDays
	}
	if other.Compaction.MinGroupSize != 0 {
		c.Compaction.MinGroupSize = other.Compaction.MinGroupSize
	}
}

// applyEnvOverrides applies the §6.3 environment variables, plus the
// ambient CODERAG_* variables for everything §6.3 is silent on (§10.3).
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STORE_URL"); v != "" {
		c.StoreURL = v
	}
	if v := os.Getenv("DEFAULT_PROJECT"); v != "" {
		c.DefaultProject = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL_REWRITE"); v != "" {
		c.LLM.ModelRewrite = v
	}
	if v := os.Getenv("LLM_MODEL_SUMMARISE"); v != "" {
		c.LLM.ModelSummarise = v
	}
	if v := os.Getenv("LLM_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.LLM.TimeoutMS = ms
		}
	}

	if v := os.Getenv("CODERAG_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("CODERAG_SEMANTIC_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("CODERAG_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("CODERAG_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CODERAG_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("CODERAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CODERAG_LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("CODERAG_COMPACTION_OLDER_THAN_DAYS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Compaction.OlderThanDays = d
		}
	}
	if v := os.Getenv("CODERAG_COMPACTION_MIN_GROUP_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Compaction.MinGroupSize = n
		}
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .coderag.yaml/.yml file, returning the absolute form of startDir if
// neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".coderag.yaml")) ||
			fileExists(filepath.Join(currentDir, ".coderag.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if sum := c.Search.BM25Weight + c.Search.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.bm25_weight + search.semantic_weight must equal 1.0, got %.2f", sum)
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	if c.Compaction.OlderThanDays < 0 {
		return fmt.Errorf("compaction.older_than_days must be non-negative, got %d", c.Compaction.OlderThanDays)
	}
	if c.Compaction.MinGroupSize < 0 {
		return fmt.Errorf("compaction.min_group_size must be non-negative, got %d", c.Compaction.MinGroupSize)
	}

	return nil
}

// WriteYAML writes the configuration to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeNewDefaults fills in zero-valued fields added to the schema after a
// user's config file was created, returning the dotted names that were
// added so the CLI can report them.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Search.BM25Weight == 0 {
		c.Search.BM25Weight = defaults.Search.BM25Weight
		added = append(added, "search.bm25_weight")
	}
	if c.Search.SemanticWeight == 0 {
		c.Search.SemanticWeight = defaults.Search.SemanticWeight
		added = append(added, "search.semantic_weight")
	}
	if c.Search.RRFConstant == 0 {
		c.Search.RRFConstant = defaults.Search.RRFConstant
		added = append(added, "search.rrf_constant")
	}
	if c.LLM.TimeoutMS == 0 {
		c.LLM.TimeoutMS = defaults.LLM.TimeoutMS
		added = append(added, "llm.timeout_ms")
	}
	if c.Server.Transport == "" {
		c.Server.Transport = defaults.Server.Transport
		added = append(added, "server.transport")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		added = append(added, "logging.level")
	}
	if c.Compaction.OlderThanDays == 0 {
		c.Compaction.OlderThanDays = defaults.Compaction.OlderThanDays
		added = append(added, "compaction.older_than_days")
	}
	if c.Compaction.MinGroupSize == 0 {
		c.Compaction.MinGroupSize = defaults.Compaction.MinGroupSize
		added = append(added, "compaction.min_group_size")
	}

	return added
}
