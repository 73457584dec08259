package exchange

import (
	"fmt"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// BuildRequest merges opts with the package defaults and assembles the
// request description plus the connection options handed to the dialer.
// The returned values share nothing with the options, so callers may
// reuse or mutate them freely afterwards.
func BuildRequest(method wire.Method, path string, opts ...Option) (wire.Request, relay.ConnectOptions, error) {
	if !method.Valid() {
		return wire.Request{}, relay.ConnectOptions{}, fmt.Errorf("method %q is not valid", method)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	req := wire.Request{
		Method:  method,
		Path:    path,
		Headers: o.headers.Clone(),
		Body:    o.body,
	}
	copts := relay.ConnectOptions{
		ConnectTimeout: o.connectTimeout,
		IdleTimeout:    o.idleTimeout,
		Debug:          o.debug,
		Headers:        o.headers.Clone(),
	}
	return req, copts, nil
}
