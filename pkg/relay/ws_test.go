package relay_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// newWSServer starts a websocket endpoint whose handler owns the accepted
// conn. Handlers run off the test goroutine, so they assert rather than
// require.
func newWSServer(t *testing.T, handler func(ctx context.Context, c *websocket.Conn, r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer c.CloseNow()
		handler(r.Context(), c, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketConnExchange(t *testing.T) {
	url := newWSServer(t, func(ctx context.Context, c *websocket.Conn, r *http.Request) {
		assert.Equal(t, "Bearer sesame", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		_, data, err := c.Read(ctx)
		if !assert.NoError(t, err) {
			return
		}
		req, err := relay.DecodeRequest(data)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, wire.GET, req.Method)
		assert.Equal(t, "/test1", req.Path)

		for _, n := range []wire.Notification{
			wire.Head(req.Token, 200, wire.Headers{{Name: "content-type", Value: "text/plain"}}),
			wire.Body(req.Token, []byte("124")),
		} {
			b, err := relay.EncodeNotification(n)
			if !assert.NoError(t, err) {
				return
			}
			if !assert.NoError(t, c.Write(ctx, websocket.MessageText, b)) {
				return
			}
		}
	})

	d := &relay.WebsocketDialer{AuthToken: "sesame"}
	conn, err := d.Dial(context.Background(), url, relay.ConnectOptions{ConnectTimeout: time.Second})
	require.NoError(t, err)
	defer conn.Close()

	tok := uuid.New()
	err = conn.Send(context.Background(), wire.Request{Token: tok, Method: wire.GET, Path: "/test1"})
	require.NoError(t, err)

	head := recvNotif(t, conn.Notifications())
	require.Equal(t, wire.KindHead, head.Kind)
	require.Equal(t, tok, head.Token)
	require.Equal(t, 200, head.Status)
	ct, ok := head.Headers.Get("content-type")
	require.True(t, ok)
	require.Equal(t, "text/plain", ct)

	body := recvNotif(t, conn.Notifications())
	require.Equal(t, wire.KindBody, body.Kind)
	require.Equal(t, "124", string(body.Data))
}

func TestWebsocketConnMalformedFrame(t *testing.T) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	url := newWSServer(t, func(ctx context.Context, c *websocket.Conn, r *http.Request) {
		_ = c.Write(ctx, websocket.MessageText, []byte("not a frame"))
		// Hold the conn open; the client must drop it on its own.
		<-done
	})

	d := &relay.WebsocketDialer{}
	conn, err := d.Dial(context.Background(), url, relay.ConnectOptions{})
	require.NoError(t, err)
	defer conn.Close()

	select {
	case _, ok := <-conn.Notifications():
		require.False(t, ok, "malformed frame must close the stream, not deliver")
	case <-time.After(3 * time.Second):
		t.Fatal("stream not closed after malformed frame")
	}
}

func TestWebsocketConnIdleTimeout(t *testing.T) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	url := newWSServer(t, func(ctx context.Context, c *websocket.Conn, r *http.Request) {
		<-done
	})

	d := &relay.WebsocketDialer{}
	conn, err := d.Dial(context.Background(), url, relay.ConnectOptions{IdleTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer conn.Close()

	select {
	case _, ok := <-conn.Notifications():
		require.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("idle timeout never tripped")
	}
}

func TestWebsocketDialerConnectTimeout(t *testing.T) {
	// A listener that accepts and then says nothing stalls the upgrade
	// handshake until the connect deadline trips.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	d := &relay.WebsocketDialer{}
	start := time.Now()
	_, err = d.Dial(context.Background(), "ws://"+l.Addr().String(), relay.ConnectOptions{
		ConnectTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestWebsocketSendAfterClose(t *testing.T) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	url := newWSServer(t, func(ctx context.Context, c *websocket.Conn, r *http.Request) {
		<-done
	})

	d := &relay.WebsocketDialer{}
	conn, err := d.Dial(context.Background(), url, relay.ConnectOptions{})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	err = conn.Send(context.Background(), wire.Request{Token: uuid.New(), Method: wire.GET, Path: "/"})
	require.ErrorIs(t, err, relay.ErrClosed)
}
