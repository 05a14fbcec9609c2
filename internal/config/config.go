// Package config loads and persists interlinked configuration.
// Config lives at .interlinked/config.json in the project directory,
// falling back to ~/.interlinked/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all interlinked configuration.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Store     StoreConfig     `json:"store"`
	Search    SearchConfig    `json:"search"`
	Logging   LoggingConfig   `json:"logging"`
}

// LLMConfig configures the generative backend.
type LLMConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
	Timeout string `json:"timeout"` // Go duration string, e.g. "60s"
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider       string `json:"provider"` // "ollama" or "genai"
	OllamaEndpoint string `json:"ollama_endpoint"`
	OllamaModel    string `json:"ollama_model"`
	GenAIAPIKey    string `json:"genai_api_key"`
	GenAIModel     string `json:"genai_model"`
	TaskType       string `json:"task_type"`
}

// StoreConfig configures corpus storage.
type StoreConfig struct {
	DatabasePath string `json:"database_path"`
}

// SearchConfig exposes the tunable retrieval thresholds. Zero values fall
// back to the compiled defaults in internal/search.
type SearchConfig struct {
	VagueMinLength  int    `json:"vague_min_length"`  // inputs shorter than this look vague
	CodeLimit       int    `json:"code_limit"`        // default code hit limit
	IssueTopK       int    `json:"issue_topk"`        // default issue hit limit
	SynonymsPath    string `json:"synonyms_path"`     // optional YAML synonym table override
	FollowupCount   int    `json:"followup_count"`    // clarifying questions to generate
	DefaultSession  string `json:"default_session"`   // session key when none supplied
}

// LoggingConfig mirrors internal/logging's expectations.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level,omitempty"`
	JSONFormat bool            `json:"json_format,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout: "60s",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".interlinked", "corpus.db"),
		},
		Search: SearchConfig{
			VagueMinLength: 8,
			CodeLimit:      8,
			IssueTopK:      8,
			FollowupCount:  3,
			DefaultSession: "default",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the directory where config is stored.
// Prefers a project-local .interlinked directory, falls back to home.
func ConfigDir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".interlinked")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".interlinked"), nil
}

// ConfigFile returns the full path to the config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk, applies environment overrides,
// and fills unset fields with defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigFile()
	if err != nil {
		return applyEnvOverrides(cfg), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return applyEnvOverrides(cfg), nil
	}
	if err != nil {
		return applyEnvOverrides(cfg), err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnvOverrides(DefaultConfig()), err
	}
	return applyEnvOverrides(fillDefaults(cfg)), nil
}

// applyEnvOverrides lets environment variables win over file settings.
func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("INTERLINKED_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("INTERLINKED_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("INTERLINKED_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("INTERLINKED_DB"); v != "" {
		cfg.Store.DatabasePath = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		cfg.Embedding.OllamaEndpoint = v
	}
	return cfg
}

// fillDefaults replaces zero values with the compiled defaults so partial
// config files behave predictably.
func fillDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.Timeout == "" {
		cfg.LLM.Timeout = def.LLM.Timeout
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.OllamaEndpoint == "" {
		cfg.Embedding.OllamaEndpoint = def.Embedding.OllamaEndpoint
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = def.Embedding.OllamaModel
	}
	if cfg.Embedding.GenAIModel == "" {
		cfg.Embedding.GenAIModel = def.Embedding.GenAIModel
	}
	if cfg.Embedding.TaskType == "" {
		cfg.Embedding.TaskType = def.Embedding.TaskType
	}
	if cfg.Store.DatabasePath == "" {
		cfg.Store.DatabasePath = def.Store.DatabasePath
	}
	if cfg.Search.VagueMinLength == 0 {
		cfg.Search.VagueMinLength = def.Search.VagueMinLength
	}
	if cfg.Search.CodeLimit == 0 {
		cfg.Search.CodeLimit = def.Search.CodeLimit
	}
	if cfg.Search.IssueTopK == 0 {
		cfg.Search.IssueTopK = def.Search.IssueTopK
	}
	if cfg.Search.FollowupCount == 0 {
		cfg.Search.FollowupCount = def.Search.FollowupCount
	}
	if cfg.Search.DefaultSession == "" {
		cfg.Search.DefaultSession = def.Search.DefaultSession
	}
	return cfg
}

// Save writes the configuration to disk.
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
