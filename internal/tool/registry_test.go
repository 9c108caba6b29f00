package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skylinemotors/concierge/pkg/provider/llm"
)

type echoArgs struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo back"`
}

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "Echoes the given text.",
		Schema:      MustArgsSchema[echoArgs](),
		Handler: func(ctx context.Context, args string) (string, error) {
			return args, nil
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("duplicate name", func(t *testing.T) {
		if err := r.Register(echoTool()); err == nil {
			t.Error("duplicate registration succeeded")
		}
	})

	t.Run("missing handler", func(t *testing.T) {
		err := r.Register(Tool{Name: "broken"})
		if err == nil {
			t.Error("registration without handler succeeded")
		}
	})

	t.Run("missing name", func(t *testing.T) {
		err := r.Register(Tool{Handler: func(context.Context, string) (string, error) { return "", nil }})
		if err == nil {
			t.Error("registration without name succeeded")
		}
	})
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	noop := func(context.Context, string) (string, error) { return "", nil }
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(Tool{Name: name, Handler: noop}); err != nil {
			t.Fatalf("Register(%q): %v", name, err)
		}
	}

	defs := r.Definitions()
	got := make([]string, len(defs))
	for i, d := range defs {
		got[i] = d.Name
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("definitions order = %v, want %v", got, want)
		}
	}
}

func TestRegistryInvoke(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("valid call", func(t *testing.T) {
		t.Parallel()
		res := r.Invoke(context.Background(), llm.ToolCall{
			ID: "call_1", Name: "echo", Arguments: `{"text":"hello"}`,
		})
		if res.IsError {
			t.Fatalf("unexpected error result: %s", res.Content)
		}
		if res.Content != `{"text":"hello"}` {
			t.Errorf("content = %q", res.Content)
		}
		if res.CallID != "call_1" {
			t.Errorf("call ID = %q", res.CallID)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		t.Parallel()
		res := r.Invoke(context.Background(), llm.ToolCall{Name: "teleport", Arguments: `{}`})
		if !res.IsError {
			t.Fatal("unknown tool did not produce an error result")
		}
		if !strings.Contains(res.Content, "teleport") {
			t.Errorf("content = %q, want tool name mentioned", res.Content)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		res := r.Invoke(context.Background(), llm.ToolCall{Name: "echo", Arguments: `{"text":`})
		if !res.IsError {
			t.Fatal("malformed arguments did not produce an error result")
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		t.Parallel()
		res := r.Invoke(context.Background(), llm.ToolCall{Name: "echo", Arguments: `{"volume":11}`})
		if !res.IsError {
			t.Fatal("schema-violating arguments did not produce an error result")
		}
		if !strings.Contains(res.Content, "echo") {
			t.Errorf("content = %q, want tool name mentioned", res.Content)
		}
	})

	t.Run("empty arguments default to object", func(t *testing.T) {
		t.Parallel()
		noop := func(context.Context, string) (string, error) { return "ok", nil }
		r2 := NewRegistry(nil)
		if err := r2.Register(Tool{Name: "ping", Handler: noop}); err != nil {
			t.Fatalf("Register: %v", err)
		}
		res := r2.Invoke(context.Background(), llm.ToolCall{Name: "ping"})
		if res.IsError {
			t.Fatalf("unexpected error result: %s", res.Content)
		}
	})

	t.Run("handler error", func(t *testing.T) {
		t.Parallel()
		r2 := NewRegistry(nil)
		err := r2.Register(Tool{
			Name: "flaky",
			Handler: func(context.Context, string) (string, error) {
				return "", errors.New("backend down")
			},
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		res := r2.Invoke(context.Background(), llm.ToolCall{Name: "flaky", Arguments: `{}`})
		if !res.IsError {
			t.Fatal("handler error did not produce an error result")
		}
		if !strings.Contains(res.Content, "backend down") {
			t.Errorf("content = %q, want handler error mentioned", res.Content)
		}
	})
}
