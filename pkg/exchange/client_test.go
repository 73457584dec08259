package exchange_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipwire-dev/slipwire/pkg/exchange"
	"github.com/slipwire-dev/slipwire/pkg/relay/relaytest"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

func TestClientExecuteScripted(t *testing.T) {
	script := &relaytest.Script{Routes: []relaytest.Route{{
		Method:  "GET",
		Path:    "/test1",
		Status:  200,
		Headers: wire.Headers{{Name: "content-type", Value: "text/plain"}},
		Body:    "124",
	}}}
	require.NoError(t, script.Validate())

	srv := &relaytest.Server{Handler: script.Handler()}
	url, stop := srv.Start()
	defer stop()

	c := exchange.NewClient(url)
	res, err := c.Execute(context.Background(), wire.GET, "/test1")
	require.NoError(t, err)
	require.Equal(t, 200, res.Status)
	require.Equal(t, "124", string(res.Body))

	ct, ok := res.Headers.Get("content-type")
	require.True(t, ok)
	require.Equal(t, "text/plain", ct)
}

func TestClientExecuteChunked(t *testing.T) {
	srv := &relaytest.Server{Handler: func(ctx context.Context, req wire.Request, w *relaytest.ResponseWriter) error {
		ok := assert.Equal(t, wire.PUT, req.Method) &&
			assert.Equal(t, "/test1", req.Path) &&
			assert.Equal(t, "125", string(req.Body))
		if !ok {
			return w.Error("unexpected request")
		}
		if err := w.Head(200, nil); err != nil {
			return err
		}
		for _, c := range []string{"1", "2", "5"} {
			if err := w.Chunk([]byte(c)); err != nil {
				return err
			}
		}
		return w.Body(nil)
	}}
	url, stop := srv.Start()
	defer stop()

	c := exchange.NewClient(url)
	res, err := c.Execute(context.Background(), wire.PUT, "/test1", exchange.WithBody([]byte("125")))
	require.NoError(t, err)
	require.Equal(t, 200, res.Status)
	require.Empty(t, res.Headers)
	require.Equal(t, "125", string(res.Body))
}

func TestClientExecuteRelayError(t *testing.T) {
	srv := &relaytest.Server{Handler: func(ctx context.Context, req wire.Request, w *relaytest.ResponseWriter) error {
		return w.Error("upstream reset")
	}}
	url, stop := srv.Start()
	defer stop()

	c := exchange.NewClient(url)
	_, err := c.Execute(context.Background(), wire.GET, "/boom")

	var perr *exchange.ProtocolError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "upstream reset", perr.Cause)
}

func TestClientExecuteConnectFailure(t *testing.T) {
	// Grab a port that is certain to refuse connections.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := exchange.NewClient("ws://"+addr,
		exchange.WithDefaults(exchange.WithConnectTimeout(500*time.Millisecond)))
	_, err = c.Execute(context.Background(), wire.GET, "/")

	var cerr *exchange.ConnectionError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "connect", cerr.Op)
}

func TestClientDefaultsMergeWithCallOptions(t *testing.T) {
	got := make(chan wire.Headers, 1)
	srv := &relaytest.Server{Handler: func(ctx context.Context, req wire.Request, w *relaytest.ResponseWriter) error {
		got <- req.Headers.Clone()
		if err := w.Head(204, nil); err != nil {
			return err
		}
		return w.Body(nil)
	}}
	url, stop := srv.Start()
	defer stop()

	c := exchange.NewClient(url, exchange.WithDefaults(exchange.WithHeader("x-env", "test")))
	res, err := c.Execute(context.Background(), wire.GET, "/", exchange.WithHeader("x-call", "1"))
	require.NoError(t, err)
	require.Equal(t, 204, res.Status)

	hs := <-got
	env, ok := hs.Get("x-env")
	require.True(t, ok)
	require.Equal(t, "test", env)
	call, ok := hs.Get("x-call")
	require.True(t, ok)
	require.Equal(t, "1", call)
}
