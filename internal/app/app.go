// Package app wires all concierge subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and pumps the conversation session, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithRetrievalClient, WithBookingStore, etc.). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/skylinemotors/concierge/internal/augment"
	"github.com/skylinemotors/concierge/internal/config"
	"github.com/skylinemotors/concierge/internal/events"
	"github.com/skylinemotors/concierge/internal/health"
	"github.com/skylinemotors/concierge/internal/orchestrator"
	"github.com/skylinemotors/concierge/internal/retrieval"
	"github.com/skylinemotors/concierge/internal/session"
	"github.com/skylinemotors/concierge/internal/tool"
	"github.com/skylinemotors/concierge/internal/tool/booking"
	"github.com/skylinemotors/concierge/internal/tool/inventory"
	"github.com/skylinemotors/concierge/internal/tool/mcpbridge"
	"github.com/skylinemotors/concierge/internal/transcript"
	"github.com/skylinemotors/concierge/pkg/provider/embeddings"
	"github.com/skylinemotors/concierge/pkg/provider/llm"
	"github.com/skylinemotors/concierge/pkg/provider/stt"
	"github.com/skylinemotors/concierge/pkg/provider/tts"
)

// DefaultSystemPrompt is the concierge persona used when the config does not
// override it.
const DefaultSystemPrompt = `You are the AI concierge for Skyline Motors, a modern car dealership.
You are the first point of contact for customers arriving on the website or voice line.

Goals:
- Understand what the customer wants.
- Answer questions about vehicles, trims, prices, warranties, financing, and service.
- Guide them toward useful actions such as comparing models, estimating payments,
  or booking a test drive or service visit.

Tone and style:
- Be warm, polite, and professional.
- Use natural spoken language that would sound good as audio.
- Prefer concise answers by default and expand when the customer asks for detail.
- Avoid sounding like a scripted robot.

Knowledge source:
- You have access to an internal Skyline Motors dealer handbook. Whenever the user
  asks for a specific fact, specification, warranty rule, or financing policy, a
  handbook reference may be provided to you. Prefer to base answers on the handbook
  and avoid guessing.

Tools:
- You can call internal tools such as search_inventory, which returns available
  vehicles that match a body type and budget range, and book_test_drive. When the
  user asks for help finding a car in a given price range you SHOULD call
  search_inventory and then explain the results in plain language.

Behavior and guardrails:
- Do not invent precise prices or promotions beyond what the handbook or tools
  provide. Use ranges and clearly mark them as estimates.
- If the handbook or tools do not contain an answer, say you are not sure and
  suggest speaking to a human representative.
- Ask short clarifying questions when user intent is ambiguous, especially about
  budget, body type, or timing.
- Keep the conversation focused on helping the user progress in their car search,
  but you can handle brief small talk.`

// handbookSource is the source label for handbook chunks in the index.
const handbookSource = "dealer_handbook"

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go from the config.
type Providers struct {
	LLM        llm.Provider
	Embeddings embeddings.Provider
	STT        stt.Provider
	TTS        tts.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger

	// Subsystems — initialised in New, torn down in Shutdown.
	index     *retrieval.Index
	retriever retrieval.Client
	policy    *augment.Policy
	registry  *tool.Registry
	bookings  booking.Store
	bridge    *mcpbridge.Bridge
	publisher *events.Publisher
	wsSink    *events.WebSocketSink
	history   *session.History
	orch      *orchestrator.Orchestrator
	host      *session.Host
	health    *health.Handler
	voice     orchestrator.Voice
	audioSink session.AudioSink

	server *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRetrievalClient injects a retrieval client instead of creating a
// pgvector index from config.
func WithRetrievalClient(c retrieval.Client) Option {
	return func(a *App) { a.retriever = c }
}

// WithBookingStore injects a booking store instead of creating one from config.
func WithBookingStore(s booking.Store) Option {
	return func(a *App) { a.bookings = s }
}

// WithVoice injects the outbound speech path instead of building one from the
// TTS provider.
func WithVoice(v orchestrator.Voice) Option {
	return func(a *App) { a.voice = v }
}

// WithAudioSink sets the sink synthesized audio frames are written to.
// Without one (and without WithVoice), responses are published as transcript
// events only.
func WithAudioSink(s session.AudioSink) Option {
	return func(a *App) { a.audioSink = s }
}

// WithLogger sets the logger for all subsystems. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Use Option functions to inject test doubles.
//
// New performs all initialisation synchronously: retrieval index creation and
// optional handbook ingestion, tool registration, MCP server bridging, and
// orchestrator assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, fmt.Errorf("app: an LLM provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		health:    health.New(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}

	if err := a.initRetrieval(ctx); err != nil {
		return nil, fmt.Errorf("app: init retrieval: %w", err)
	}
	if err := a.initTools(ctx); err != nil {
		return nil, fmt.Errorf("app: init tools: %w", err)
	}
	a.initEvents()
	if err := a.initConversation(); err != nil {
		return nil, fmt.Errorf("app: init conversation: %w", err)
	}

	return a, nil
}

// initRetrieval sets up the handbook index and the augmentation policy.
// Without a DSN (and without an injected client) turns run unaugmented.
func (a *App) initRetrieval(ctx context.Context) error {
	if a.retriever == nil && a.cfg.Retrieval.PostgresDSN != "" {
		dims := a.cfg.Retrieval.EmbeddingDimensions
		if dims == 0 {
			dims = 1536 // matches OpenAI text-embedding-3-small
		}
		index, err := retrieval.NewIndex(retrieval.IndexConfig{
			DSN:        a.cfg.Retrieval.PostgresDSN,
			Embedder:   a.providers.Embeddings,
			Dimensions: dims,
			Logger:     a.log,
		})
		if err != nil {
			return err
		}
		a.index = index
		a.retriever = index
		a.closers = append(a.closers, func() error {
			index.Close()
			return nil
		})
		a.health.AddChecker(health.Checker{Name: "retrieval", Check: index.Ping})

		if path := a.cfg.Retrieval.HandbookPath; path != "" {
			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read handbook %q: %w", path, err)
			}
			n, err := index.Ingest(ctx, handbookSource, string(text))
			if err != nil {
				return fmt.Errorf("ingest handbook %q: %w", path, err)
			}
			a.log.Info("ingested handbook", "path", path, "chunks", n)
		}
	}

	if a.retriever == nil {
		a.log.Warn("no retrieval index configured; turns will not be augmented")
		return nil
	}

	popts := []augment.Option{augment.WithLogger(a.log)}
	if k := a.cfg.Retrieval.TopK; k > 0 {
		popts = append(popts, augment.WithTopK(k))
	}
	if s := a.cfg.Retrieval.QueryTimeoutSeconds; s > 0 {
		popts = append(popts, augment.WithTimeout(time.Duration(s*float64(time.Second))))
	}
	if kw := a.cfg.Retrieval.Keywords; len(kw) > 0 {
		popts = append(popts, augment.WithKeywords(kw))
	}
	a.policy = augment.New(a.retriever, popts...)
	return nil
}

// initTools builds the registry with the built-in tools and any bridged MCP
// servers.
func (a *App) initTools(ctx context.Context) error {
	a.registry = tool.NewRegistry(a.log)

	if err := a.registry.Register(inventory.NewTool()); err != nil {
		return err
	}

	if a.bookings == nil {
		if dsn := a.cfg.Tools.BookingDSN; dsn != "" {
			store, err := booking.NewPostgresStore(ctx, dsn)
			if err != nil {
				return fmt.Errorf("connect booking store: %w", err)
			}
			a.bookings = store
			a.closers = append(a.closers, func() error {
				store.Close()
				return nil
			})
		} else {
			a.bookings = booking.NewMemStore()
		}
	}
	if err := a.registry.Register(booking.NewTool(a.bookings)); err != nil {
		return err
	}

	if len(a.cfg.Tools.MCPServers) > 0 {
		a.bridge = mcpbridge.New(a.log)
		a.closers = append(a.closers, a.bridge.Close)
		for _, srv := range a.cfg.Tools.MCPServers {
			n, err := a.bridge.RegisterServer(ctx, srv, a.registry)
			if err != nil {
				return fmt.Errorf("register mcp server %q: %w", srv.Name, err)
			}
			a.log.Info("bridged MCP server", "name", srv.Name, "tools", n)
		}
	}

	return nil
}

// initEvents creates the publisher with the WebSocket display sink attached.
func (a *App) initEvents() {
	a.wsSink = events.NewWebSocketSink(a.log)
	a.publisher = events.NewPublisher(a.log, a.wsSink)
	a.closers = append(a.closers, func() error {
		a.publisher.Close()
		a.wsSink.Close()
		return nil
	})
}

// initConversation assembles history, voice, orchestrator, and the optional
// STT-driven session host.
func (a *App) initConversation() error {
	budget := a.cfg.Concierge.HistoryTokenBudget
	if budget <= 0 {
		budget = 8000
	}
	a.history = session.NewHistory(session.HistoryConfig{
		MaxTokens:  budget,
		Summariser: session.NewLLMSummariser(a.providers.LLM),
		Logger:     a.log,
	})

	if a.voice == nil && a.providers.TTS != nil && a.audioSink != nil {
		a.voice = session.NewSpeechOutput(a.providers.TTS, tts.VoiceProfile{Voice: "alloy"}, a.audioSink)
	}

	prompt := a.cfg.Concierge.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	sessionID := uuid.NewString()
	orch, err := orchestrator.New(orchestrator.Config{
		SessionID:     sessionID,
		Provider:      a.providers.LLM,
		Policy:        a.policy,
		Registry:      a.registry,
		Publisher:     a.publisher,
		Voice:         a.voice,
		History:       a.history,
		SystemPrompt:  prompt,
		MaxToolRounds: a.cfg.Concierge.MaxToolRounds,
		Temperature:   a.cfg.Concierge.Temperature,
		Logger:        a.log,
	})
	if err != nil {
		return err
	}
	a.orch = orch

	if a.providers.STT != nil {
		vocab := a.cfg.Concierge.Vocabulary
		if len(vocab) == 0 {
			vocab = transcript.DefaultVocabulary()
		}
		host, err := session.NewHost(session.HostConfig{
			SessionID:    sessionID,
			STT:          a.providers.STT,
			Corrector:    transcript.New(vocab),
			Orchestrator: orch,
			Logger:       a.log,
		})
		if err != nil {
			return err
		}
		a.host = host
	} else {
		a.log.Warn("no STT provider configured; serving HTTP endpoints only")
	}

	return nil
}

// Orchestrator exposes the turn orchestrator, mainly for embedding the App in
// other transports and for tests.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orch }

// Bookings exposes the booking store.
func (a *App) Bookings() booking.Store { return a.bookings }

// Handler returns the HTTP mux served by Run: health probes, Prometheus
// metrics, the transcript WebSocket feed, and handbook upload.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /transcript", a.wsSink.Handler())
	mux.HandleFunc("POST /handbook", a.handleHandbookUpload)
	return mux
}

// handleHandbookUpload replaces the indexed handbook with the request body
// and resets the index so subsequent queries see the new content.
func (a *App) handleHandbookUpload(w http.ResponseWriter, r *http.Request) {
	if a.index == nil {
		http.Error(w, `{"error":"retrieval is not configured"}`, http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
		return
	}
	n, err := a.index.Ingest(r.Context(), handbookSource, string(body))
	if err != nil {
		a.log.Error("handbook ingest failed", "err", err)
		http.Error(w, `{"error":"ingest failed"}`, http.StatusInternalServerError)
		return
	}
	a.index.Reset()
	a.log.Info("handbook replaced", "chunks", n)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, `{"status":"ok","chunks":%d}`+"\n", n)
}

// Run serves HTTP and, when an STT provider is configured, pumps the
// conversation session. It blocks until ctx is cancelled or a subsystem
// fails.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", "addr", addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.host != nil {
		g.Go(func() error {
			err := a.host.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: session: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		if a.orch != nil {
			a.orch.Wait()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
