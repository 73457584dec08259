package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

func TestPipeDelivery(t *testing.T) {
	conn, srv := relay.NewPipe()
	defer conn.Close()

	tok := uuid.New()
	req := wire.Request{Token: tok, Method: wire.GET, Path: "/test1"}
	require.NoError(t, conn.Send(context.Background(), req))

	select {
	case got := <-srv.Requests():
		require.Equal(t, req, got)
	case <-time.After(time.Second):
		t.Fatal("request never reached the server end")
	}

	require.NoError(t, srv.Notify(wire.Head(tok, 200, nil)))
	require.NoError(t, srv.Notify(wire.Body(tok, []byte("124"))))

	first := recvNotif(t, conn.Notifications())
	require.Equal(t, wire.KindHead, first.Kind)
	second := recvNotif(t, conn.Notifications())
	require.Equal(t, wire.KindBody, second.Kind)
	require.Equal(t, "124", string(second.Data))
}

func TestPipeClose(t *testing.T) {
	conn, srv := relay.NewPipe()
	require.NoError(t, srv.Close())

	select {
	case <-srv.Done():
	default:
		t.Fatal("Done not closed after Close")
	}

	err := conn.Send(context.Background(), wire.Request{Token: uuid.New(), Method: wire.GET})
	require.ErrorIs(t, err, relay.ErrClosed)
	require.ErrorIs(t, srv.Notify(wire.Chunk(uuid.New(), nil)), relay.ErrClosed)

	// The notification stream drains to closed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-conn.Notifications():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("notification stream never closed")
		}
	}
}

func TestPipeClientCloseStopsServer(t *testing.T) {
	conn, srv := relay.NewPipe()
	require.NoError(t, conn.Close())
	select {
	case <-srv.Done():
	case <-time.After(time.Second):
		t.Fatal("server end did not observe client close")
	}
}

func recvNotif(t *testing.T, ch <-chan wire.Notification) wire.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatal("notification stream closed early")
		}
		return n
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a notification")
	}
	return wire.Notification{}
}
