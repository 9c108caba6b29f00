// Command concierge is the Skyline Motors dealership voice concierge server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/skylinemotors/concierge/internal/app"
	"github.com/skylinemotors/concierge/internal/config"
	"github.com/skylinemotors/concierge/internal/observe"
	"github.com/skylinemotors/concierge/internal/resilience"
	oaembed "github.com/skylinemotors/concierge/pkg/provider/embeddings/openai"
	"github.com/skylinemotors/concierge/pkg/provider/llm"
	"github.com/skylinemotors/concierge/pkg/provider/llm/anyllm"
	oaillm "github.com/skylinemotors/concierge/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "concierge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "concierge: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("concierge starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "skyline-concierge",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders instantiates the providers named in cfg. The reasoning
// provider is wrapped in a circuit breaker so a backend outage degrades to
// the spoken apology instead of hung turns.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	ps := &app.Providers{}

	name := cfg.Providers.LLM.Name
	reasoner, err := buildLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", name, err)
	}
	ps.LLM = resilience.NewReasoningFallback(reasoner, name, resilience.BreakerConfig{})
	slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)

	if entry := cfg.Providers.Embeddings; entry.Name != "" {
		switch entry.Name {
		case "openai":
			var opts []oaembed.Option
			if entry.BaseURL != "" {
				opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
			}
			if n := cfg.Retrieval.EmbeddingDimensions; n > 0 {
				opts = append(opts, oaembed.WithDimensions(n))
			}
			p, err := oaembed.New(entry.APIKey, entry.Model, opts...)
			if err != nil {
				return nil, fmt.Errorf("create embeddings provider %q: %w", entry.Name, err)
			}
			ps.Embeddings = p
			slog.Info("provider created", "kind", "embeddings", "name", entry.Name, "model", entry.Model)
		default:
			return nil, fmt.Errorf("embeddings provider %q is not built in", entry.Name)
		}
	}

	// Speech providers are supplied by the audio transport integration, not
	// built here. The server still runs its HTTP surface without them.
	if cfg.Providers.STT.Name != "" {
		slog.Warn("providers.stt is configured but no built-in STT implementation exists; ignoring",
			"name", cfg.Providers.STT.Name)
	}
	if cfg.Providers.TTS.Name != "" {
		slog.Warn("providers.tts is configured but no built-in TTS implementation exists; ignoring",
			"name", cfg.Providers.TTS.Name)
	}

	return ps, nil
}

// buildLLM constructs the reasoning provider. "openai" uses the native SDK
// provider; everything else goes through any-llm-go.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "openai" {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
