// Package relay connects clients to relays. It defines the boundary the
// exchange layer drives (Dialer, Conn, ConnectOptions) and ships two
// implementations: a websocket transport and an in-process pipe.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// ErrClosed is returned by operations on a connection that has already
// been closed, locally or by the peer.
var ErrClosed = errors.New("relay: connection closed")

// ConnectOptions carries connection-establishment knobs. Headers is the
// caller's default header set; it travels with the connection as opaque
// user state and is never interpreted by a transport.
type ConnectOptions struct {
	// ConnectTimeout bounds connection establishment. Zero means no
	// limit beyond the dial context's own deadline.
	ConnectTimeout time.Duration
	// IdleTimeout bounds the silence between two inbound reads. Zero
	// disables the idle check.
	IdleTimeout time.Duration
	// Debug enables per-frame logging at debug level.
	Debug bool
	// Headers is the connection's default request header set.
	Headers wire.Headers
}

// Conn is one live connection to a relay.
//
// A Conn carries a single inbound notification stream. The stream may
// include notifications for tokens the consumer never issued; consumers
// filter by token rather than assume exclusivity.
type Conn interface {
	// Send submits one tagged request. It does not wait for any part of
	// the response.
	Send(ctx context.Context, req wire.Request) error
	// Notifications returns the conn's inbound stream. The channel is
	// closed when the connection dies.
	Notifications() <-chan wire.Notification
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer establishes connections to relays.
type Dialer interface {
	Dial(ctx context.Context, target string, opts ConnectOptions) (Conn, error)
}
