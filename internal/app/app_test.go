package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skylinemotors/concierge/internal/config"
	"github.com/skylinemotors/concierge/internal/retrieval"
	retrievalmock "github.com/skylinemotors/concierge/internal/retrieval/mock"
	"github.com/skylinemotors/concierge/internal/tool/booking"
	"github.com/skylinemotors/concierge/pkg/provider/llm"
	llmmock "github.com/skylinemotors/concierge/pkg/provider/llm/mock"
	sttmock "github.com/skylinemotors/concierge/pkg/provider/stt/mock"
	"github.com/skylinemotors/concierge/pkg/types"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Providers.LLM.Name = "openai"
	return cfg
}

func TestNewRequiresLLMProvider(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), testConfig(), &Providers{}); err == nil {
		t.Fatal("expected error without an LLM provider, got nil")
	}
	if _, err := New(context.Background(), testConfig(), nil); err == nil {
		t.Fatal("expected error for nil providers, got nil")
	}
}

func TestNewWiresDefaultSubsystems(t *testing.T) {
	t.Parallel()
	a, err := New(context.Background(), testConfig(), &Providers{LLM: &llmmock.Provider{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.Orchestrator() == nil {
		t.Error("orchestrator not wired")
	}
	if a.Bookings() == nil {
		t.Error("booking store not wired")
	}
	if a.policy != nil {
		t.Error("expected nil augmentation policy without a retrieval index")
	}

	// Built-in tools are always registered.
	defs := a.registry.Definitions()
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	got := strings.Join(names, ",")
	if got != "book_test_drive,search_inventory" {
		t.Errorf("registered tools = %q", got)
	}
}

func TestNewWithInjectedRetrievalClient(t *testing.T) {
	t.Parallel()
	client := &retrievalmock.Client{
		Passages: []retrieval.Passage{{Text: "Powertrain warranty lasts 5 years.", Score: 0.9, Rank: 1}},
	}
	a, err := New(context.Background(), testConfig(), &Providers{LLM: &llmmock.Provider{}},
		WithRetrievalClient(client))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.policy == nil {
		t.Fatal("expected augmentation policy with injected retrieval client")
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()
	a, err := New(context.Background(), testConfig(), &Providers{LLM: &llmmock.Provider{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}

func TestHandbookUploadWithoutIndex(t *testing.T) {
	t.Parallel()
	a, err := New(context.Background(), testConfig(), &Providers{LLM: &llmmock.Provider{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/handbook", strings.NewReader("new handbook text"))
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected an error field in the response")
	}
}

func TestConversationThroughSessionHost(t *testing.T) {
	t.Parallel()
	provider := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "We have two sedans in that range."}},
	}
	speech := sttmock.New()

	a, err := New(context.Background(), testConfig(), &Providers{LLM: provider, STT: speech},
		WithBookingStore(booking.NewMemStore()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfgAddrFree(a)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	speech.Emit(types.Transcript{Text: "show me sedans under 30000", IsFinal: true})
	speech.Close()

	waitFor(t, func() bool { return provider.CompleteCallCount() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()
	a, err := New(context.Background(), testConfig(), &Providers{LLM: &llmmock.Provider{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

// cfgAddrFree points the HTTP server at an ephemeral port so parallel tests
// do not collide.
func cfgAddrFree(a *App) {
	a.cfg.Server.ListenAddr = "127.0.0.1:0"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
