package exchange

import (
	"time"

	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// Defaults applied when an option is not given.
const (
	DefaultConnectTimeout = 1 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultSendTimeout    = 5 * time.Second
)

type options struct {
	headers        wire.Headers
	body           []byte
	connectTimeout time.Duration
	idleTimeout    time.Duration
	sendTimeout    time.Duration
	debug          bool
}

func defaultOptions() *options {
	return &options{
		connectTimeout: DefaultConnectTimeout,
		idleTimeout:    DefaultIdleTimeout,
		sendTimeout:    DefaultSendTimeout,
	}
}

// Option adjusts one exchange.
type Option func(*options)

// WithHeader appends one request header.
func WithHeader(name, value string) Option {
	return func(o *options) { o.headers = o.headers.Add(name, value) }
}

// WithHeaders appends a header list, preserving its order.
func WithHeaders(hs wire.Headers) Option {
	return func(o *options) { o.headers = append(o.headers, hs...) }
}

// WithBody sets the request body.
func WithBody(b []byte) Option {
	return func(o *options) { o.body = b }
}

// WithSendTimeout bounds each of the two response wait phases. The
// deadline arms once per phase; chunk arrivals do not extend it.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) { o.sendTimeout = d }
}

// WithConnectTimeout bounds connection establishment.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithIdleTimeout bounds transport-level read silence.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

// WithDebug turns on per-frame transport logging.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}
