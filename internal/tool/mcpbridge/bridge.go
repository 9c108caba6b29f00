// Package mcpbridge imports tools from external MCP servers into the
// concierge's tool registry.
//
// Dealerships extend the concierge with their own systems (CRM lookups,
// service scheduling) by pointing it at an MCP server; every tool the server
// advertises becomes callable by the model, validated against the schema the
// server declares.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/skylinemotors/concierge/internal/tool"
)

// Transport selects how the bridge reaches an MCP server.
type Transport string

const (
	TransportStdio          Transport = "stdio"
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a known transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ServerConfig describes one external MCP server.
type ServerConfig struct {
	// Name identifies the server in logs and config.
	Name string `yaml:"name"`

	// Transport selects stdio or streamable-http.
	Transport Transport `yaml:"transport"`

	// Command is the executable plus space-separated arguments, for stdio.
	Command string `yaml:"command"`

	// Env holds additional environment variables for the stdio process.
	Env map[string]string `yaml:"env"`

	// URL is the endpoint address, for streamable-http.
	URL string `yaml:"url"`
}

// Bridge owns the live MCP sessions behind registered tools.
type Bridge struct {
	client *mcpsdk.Client
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*mcpsdk.ClientSession
}

// New creates a Bridge. A single SDK client manages all server sessions.
func New(log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		client: mcpsdk.NewClient(
			&mcpsdk.Implementation{Name: "skyline-concierge", Version: "1.0.0"},
			nil,
		),
		log:      log,
		sessions: make(map[string]*mcpsdk.ClientSession),
	}
}

// RegisterServer connects to the server described by cfg, lists its tools,
// and registers each into reg. It returns the number of tools registered.
func (b *Bridge) RegisterServer(ctx context.Context, cfg ServerConfig, reg *tool.Registry) (int, error) {
	if cfg.Name == "" {
		return 0, fmt.Errorf("mcpbridge: server config must have a name")
	}
	if !cfg.Transport.IsValid() {
		return 0, fmt.Errorf("mcpbridge: server %q: unknown transport %q", cfg.Name, cfg.Transport)
	}

	var transport mcpsdk.Transport
	switch cfg.Transport {
	case TransportStdio:
		parts := strings.Fields(cfg.Command)
		if len(parts) == 0 {
			return 0, fmt.Errorf("mcpbridge: stdio server %q requires a command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}
	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return 0, fmt.Errorf("mcpbridge: streamable-http server %q requires a URL", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	}

	session, err := b.client.Connect(ctx, transport, nil)
	if err != nil {
		return 0, fmt.Errorf("mcpbridge: connect to %q: %w", cfg.Name, err)
	}

	registered := 0
	for mcpTool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return registered, fmt.Errorf("mcpbridge: list tools for %q: %w", cfg.Name, err)
		}
		t := tool.Tool{
			Name:        mcpTool.Name,
			Description: mcpTool.Description,
			Schema:      schemaToMap(mcpTool.InputSchema),
			Handler:     b.handler(session, mcpTool.Name),
		}
		if err := reg.Register(t); err != nil {
			b.log.Warn("skipping MCP tool", "server", cfg.Name, "tool", mcpTool.Name, "error", err)
			continue
		}
		registered++
	}

	b.mu.Lock()
	if old, ok := b.sessions[cfg.Name]; ok {
		_ = old.Close()
	}
	b.sessions[cfg.Name] = session
	b.mu.Unlock()

	b.log.Info("MCP server registered", "server", cfg.Name, "tools", registered)
	return registered, nil
}

// handler returns a tool.Handler that forwards the call to the MCP session.
func (b *Bridge) handler(session *mcpsdk.ClientSession, name string) tool.Handler {
	return func(ctx context.Context, args string) (string, error) {
		var argsMap map[string]any
		if args != "" && args != "{}" {
			if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
				return "", fmt.Errorf("mcpbridge: invalid args for %q: %w", name, err)
			}
		}

		result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
			Name:      name,
			Arguments: argsMap,
		})
		if err != nil {
			return "", fmt.Errorf("mcpbridge: call %q: %w", name, err)
		}

		var sb strings.Builder
		for _, c := range result.Content {
			if tc, ok := c.(*mcpsdk.TextContent); ok {
				sb.WriteString(tc.Text)
			}
		}
		if result.IsError {
			return "", fmt.Errorf("mcpbridge: tool %q reported an error: %s", name, sb.String())
		}
		return sb.String(), nil
	}
}

// Close shuts down all server sessions.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for name, session := range b.sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcpbridge: close %q: %w", name, err)
		}
		delete(b.sessions, name)
	}
	return firstErr
}

// schemaToMap normalises whatever schema representation the SDK hands back
// into the map form the registry compiles.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
