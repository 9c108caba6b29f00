// Package config provides the configuration schema and loader for the
// Skyline Motors concierge service.
package config

import "github.com/skylinemotors/concierge/internal/tool/mcpbridge"

// LogLevel controls log verbosity for the concierge server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the concierge.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Concierge ConciergeConfig `yaml:"concierge"`
	Tools     ToolsConfig     `yaml:"tools"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	Embeddings ProviderEntry `yaml:"embeddings"`
	STT        ProviderEntry `yaml:"stt"`
	TTS        ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "anthropic").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`
}

// RetrievalConfig controls the handbook retrieval index and the augmentation
// policy that decides when to consult it.
type RetrievalConfig struct {
	// PostgresDSN is the connection string for the pgvector-backed index.
	// When empty, retrieval is disabled and turns proceed unaugmented.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions is the width of the embedding vectors stored in
	// the index. Must match the configured embeddings model.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`

	// TopK is the number of handbook passages fetched per augmented turn.
	TopK int `yaml:"top_k"`

	// QueryTimeoutSeconds bounds a single retrieval query. Zero means the
	// built-in default.
	QueryTimeoutSeconds float64 `yaml:"query_timeout_seconds"`

	// Keywords overrides the trigger vocabulary for the augmentation policy.
	// When empty the built-in dealership vocabulary is used.
	Keywords []string `yaml:"keywords"`

	// HandbookPath points at a plain-text handbook to ingest on startup.
	// When empty no ingestion happens and the index is used as-is.
	HandbookPath string `yaml:"handbook_path"`
}

// ConciergeConfig tunes the turn orchestrator.
type ConciergeConfig struct {
	// SystemPrompt overrides the built-in concierge persona prompt.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxToolRounds bounds consecutive tool-call rounds within one turn.
	// Zero means the built-in default.
	MaxToolRounds int `yaml:"max_tool_rounds"`

	// Temperature is passed to the reasoning provider. Zero means the
	// provider default.
	Temperature float64 `yaml:"temperature"`

	// Vocabulary overrides the transcript-correction vocabulary.
	// When empty the built-in model-name vocabulary is used.
	Vocabulary []string `yaml:"vocabulary"`

	// HistoryTokenBudget caps the estimated token size of session history
	// before older messages are summarised away. Zero means the built-in
	// default.
	HistoryTokenBudget int `yaml:"history_token_budget"`
}

// ToolsConfig configures the built-in tools and external MCP servers.
type ToolsConfig struct {
	// BookingDSN is the connection string for the test-drive booking store.
	// When empty bookings are kept in memory only.
	BookingDSN string `yaml:"booking_dsn"`

	// MCPServers lists external MCP servers whose tools are bridged into
	// the registry.
	MCPServers []mcpbridge.ServerConfig `yaml:"mcp_servers"`
}
