// Package exchange turns one fire-and-forget send plus a stream of
// token-tagged notifications into a single synchronous result.
//
// The relay answers a request with at most one head, zero or more body
// chunks, and exactly one terminal body or error, all tagged with the
// request's correlation token. Do drives that collection; Client wraps
// it together with connection establishment.
package exchange

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// Result is one complete response.
type Result struct {
	Status  int
	Headers wire.Headers
	Body    []byte
}

// Do sends req over conn and waits until the response completes.
//
// A fresh correlation token is stamped on a copy of req before sending;
// any token already present is discarded. The wait runs in two phases,
// head then body, each bounded by the send timeout. The deadline arms
// once per phase: chunk arrivals do not extend it, and notifications for
// other tokens are skipped without touching it. Do must not be called
// concurrently for one conn; the protocol has no multiplexing layer.
func Do(ctx context.Context, conn relay.Conn, req wire.Request, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	req.Token = uuid.New()
	if err := conn.Send(ctx, req); err != nil {
		return nil, &ConnectionError{Op: "send", Err: err}
	}
	slog.Debug("request sent",
		slog.String("token", req.Token.String()),
		slog.String("method", string(req.Method)),
		slog.String("path", req.Path))

	timer := time.NewTimer(o.sendTimeout)
	defer timer.Stop()

	var (
		phase   = PhaseHead
		status  int
		headers wire.Headers
		chunks  [][]byte
	)
	for {
		select {
		case <-ctx.Done():
			return nil, &TimeoutError{Phase: phase, Wait: o.sendTimeout, Err: ctx.Err()}

		case <-timer.C:
			return nil, &TimeoutError{Phase: phase, Wait: o.sendTimeout}

		case n, ok := <-conn.Notifications():
			if !ok {
				return nil, &ConnectionError{Op: "await response", Err: relay.ErrClosed}
			}
			if n.Token != req.Token {
				// Not ours. Skip it; the running deadline stands.
				continue
			}

			switch n.Kind {
			case wire.KindHead:
				if phase != PhaseHead {
					return nil, fmt.Errorf("%w: second head", ErrUnexpectedNotification)
				}
				status, headers = n.Status, n.Headers
				phase = PhaseBody
				// One reset for the body phase. Stop and drain first so
				// an expiry racing this head cannot fire into the new
				// phase.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(o.sendTimeout)

			case wire.KindChunk:
				if phase != PhaseBody {
					return nil, fmt.Errorf("%w: chunk before head", ErrUnexpectedNotification)
				}
				chunks = append(chunks, n.Data)

			case wire.KindBody:
				if phase != PhaseBody {
					return nil, fmt.Errorf("%w: body before head", ErrUnexpectedNotification)
				}
				if len(chunks) == 0 {
					slog.Debug("exchange complete", slog.String("token", req.Token.String()), slog.Int("status", status))
					return &Result{Status: status, Headers: headers, Body: n.Data}, nil
				}
				if len(n.Data) > 0 {
					return nil, ErrBodyConflict
				}
				slog.Debug("exchange complete", slog.String("token", req.Token.String()), slog.Int("status", status))
				return &Result{Status: status, Headers: headers, Body: bytes.Join(chunks, nil)}, nil

			case wire.KindError:
				return nil, &ProtocolError{Cause: n.Cause}

			default:
				return nil, fmt.Errorf("%w: kind %q", ErrUnexpectedNotification, n.Kind)
			}
		}
	}
}
