package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/skylinemotors/concierge/internal/tool/mcpbridge"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"embeddings": {"openai", "ollama"},
	"stt":        {"openai", "deepgram"},
	"tts":        {"openai", "elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}

	// Retrieval
	if cfg.Retrieval.PostgresDSN != "" && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("retrieval.postgres_dsn is set but providers.embeddings is not configured"))
	}
	if cfg.Retrieval.PostgresDSN == "" {
		slog.Warn("retrieval.postgres_dsn is empty; handbook retrieval will not be available")
	}
	if cfg.Retrieval.PostgresDSN != "" && cfg.Retrieval.EmbeddingDimensions <= 0 {
		slog.Warn("retrieval.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Retrieval.TopK < 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k %d must not be negative", cfg.Retrieval.TopK))
	}
	if cfg.Retrieval.QueryTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("retrieval.query_timeout_seconds %.2f must not be negative", cfg.Retrieval.QueryTimeoutSeconds))
	}
	if cfg.Retrieval.HandbookPath != "" && cfg.Retrieval.PostgresDSN == "" {
		errs = append(errs, errors.New("retrieval.handbook_path is set but retrieval.postgres_dsn is empty"))
	}

	// Concierge
	if cfg.Concierge.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("concierge.max_tool_rounds %d must not be negative", cfg.Concierge.MaxToolRounds))
	}
	if cfg.Concierge.Temperature < 0 || cfg.Concierge.Temperature > 2 {
		errs = append(errs, fmt.Errorf("concierge.temperature %.2f is out of range [0, 2]", cfg.Concierge.Temperature))
	}
	if cfg.Concierge.HistoryTokenBudget < 0 {
		errs = append(errs, fmt.Errorf("concierge.history_token_budget %d must not be negative", cfg.Concierge.HistoryTokenBudget))
	}

	// Tools
	if cfg.Tools.BookingDSN == "" {
		slog.Warn("tools.booking_dsn is empty; test-drive bookings will not survive restarts")
	}
	serverNamesSeen := make(map[string]int, len(cfg.Tools.MCPServers))
	for i, srv := range cfg.Tools.MCPServers {
		prefix := fmt.Sprintf("tools.mcp_servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := serverNamesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of tools.mcp_servers[%d]", prefix, srv.Name, prev))
			}
			serverNamesSeen[srv.Name] = i
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == mcpbridge.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == mcpbridge.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
