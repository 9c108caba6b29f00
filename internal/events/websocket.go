package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WebSocketSink broadcasts events to every connected WebSocket client. The
// showroom dashboard connects here to render the live transcript.
type WebSocketSink struct {
	log *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

var _ Sink = (*WebSocketSink)(nil)

// NewWebSocketSink creates an empty sink. Mount its Handler to accept
// connections.
func NewWebSocketSink(log *slog.Logger) *WebSocketSink {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketSink{
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler upgrades requests and tracks the connection until the client
// disconnects. Clients only listen; inbound messages are read and discarded
// to service control frames.
func (s *WebSocketSink) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.log.Warn("websocket accept failed", "error", err)
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.log.Debug("transcript client connected", "remote", r.RemoteAddr)

		// Block until the client goes away.
		ctx := conn.CloseRead(r.Context())
		<-ctx.Done()

		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		s.log.Debug("transcript client disconnected", "remote", r.RemoteAddr)
	})
}

// Deliver implements Sink. A write failure drops that client; the rest keep
// receiving.
func (s *WebSocketSink) Deliver(ctx context.Context, ev Event) error {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := wsjson.Write(ctx, c, ev); err != nil {
			s.log.Warn("dropping transcript client", "error", err)
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
			c.Close(websocket.StatusInternalError, "write failed")
		}
	}
	return nil
}

// Close disconnects all clients.
func (s *WebSocketSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.conns, c)
	}
}
