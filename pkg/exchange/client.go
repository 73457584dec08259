package exchange

import (
	"context"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// Client executes whole exchanges against one relay target: dial, send,
// collect, close.
type Client struct {
	dialer relay.Dialer
	target string
	base   []Option
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialer replaces the default websocket dialer.
func WithDialer(d relay.Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// WithDefaults appends options applied to every Execute call, before the
// call's own options.
func WithDefaults(opts ...Option) ClientOption {
	return func(c *Client) { c.base = append(c.base, opts...) }
}

// NewClient builds a client for the relay at target.
func NewClient(target string, opts ...ClientOption) *Client {
	c := &Client{
		dialer: &relay.WebsocketDialer{},
		target: target,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one complete exchange. Each call dials a fresh
// connection and closes it before returning; connection reuse is
// deliberately absent.
func (c *Client) Execute(ctx context.Context, method wire.Method, path string, opts ...Option) (*Result, error) {
	all := make([]Option, 0, len(c.base)+len(opts))
	all = append(all, c.base...)
	all = append(all, opts...)

	req, copts, err := BuildRequest(method, path, all...)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialer.Dial(ctx, c.target, copts)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	defer conn.Close()

	return Do(ctx, conn, req, all...)
}
