// Package relaytest provides an in-memory relay for tests and local
// development. It speaks the relay's websocket framing and answers
// requests through a Handler, either hand-written or compiled from a
// declarative Script.
package relaytest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/relay/token"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// Handler answers one request. Notifications emitted through w are
// already tagged with the request's token.
type Handler func(ctx context.Context, req wire.Request, w *ResponseWriter) error

// ResponseWriter emits notifications for one request.
type ResponseWriter struct {
	token uuid.UUID
	send  func(n wire.Notification) error
}

// NewResponseWriter builds a writer that tags emitted notifications with
// the given token and hands them to send. Exposed for custom servers.
func NewResponseWriter(tok uuid.UUID, send func(n wire.Notification) error) *ResponseWriter {
	return &ResponseWriter{token: tok, send: send}
}

// Head emits the response status and headers.
func (w *ResponseWriter) Head(status int, headers wire.Headers) error {
	return w.send(wire.Head(w.token, status, headers))
}

// Chunk emits one partial body buffer.
func (w *ResponseWriter) Chunk(data []byte) error {
	return w.send(wire.Chunk(w.token, data))
}

// Body emits the terminal body notification.
func (w *ResponseWriter) Body(data []byte) error {
	return w.send(wire.Body(w.token, data))
}

// Error emits a terminal error notification.
func (w *ResponseWriter) Error(cause string) error {
	return w.send(wire.Error(w.token, cause))
}

// Notify emits a raw notification with whatever token it carries. Tests
// use it to inject cross-talk for unrelated tokens.
func (w *ResponseWriter) Notify(n wire.Notification) error {
	return w.send(n)
}

// Server hosts a relay over websocket. It implements http.Handler so it
// can be mounted on any server; Start runs it on an ephemeral listener.
type Server struct {
	Handler Handler
	// Validator, when set, requires a valid bearer token on upgrade.
	Validator *token.Validator
	// Subject is the token subject Validator checks against.
	Subject string
}

// Start runs the relay on an ephemeral local listener and returns its
// ws:// URL and a shutdown func.
func (s *Server) Start() (url string, stop func()) {
	ts := httptest.NewServer(s)
	return "ws" + strings.TrimPrefix(ts.URL, "http"), ts.Close
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Validator != nil {
		auth := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := s.Validator.Validate(raw, s.Subject); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.serveConn(r.Context(), c)
}

func (s *Server) serveConn(ctx context.Context, c *websocket.Conn) {
	defer c.CloseNow()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handlers for distinct requests run concurrently; frame writes are
	// serialized.
	var wmu sync.Mutex
	send := func(n wire.Notification) error {
		b, err := relay.EncodeNotification(n)
		if err != nil {
			return err
		}
		wmu.Lock()
		defer wmu.Unlock()
		return c.Write(ctx, websocket.MessageText, b)
	}

	var g errgroup.Group
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		req, err := relay.DecodeRequest(data)
		if err != nil {
			slog.Warn("dropping conn on malformed request frame", slog.Any("error", err))
			break
		}
		g.Go(func() error {
			return s.Handler(ctx, req, NewResponseWriter(req.Token, send))
		})
	}
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("relay handler failed", slog.Any("error", err))
	}
}
