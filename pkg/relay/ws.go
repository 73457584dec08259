package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/slipwire-dev/slipwire/build"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// wsNotifBuffer is the inbound queue depth of a websocket connection.
const wsNotifBuffer = 64

// WebsocketDialer dials relays over websocket, one JSON frame per
// message. The zero value is usable.
type WebsocketDialer struct {
	// AuthToken, when set, is presented as a bearer token during the
	// upgrade handshake.
	AuthToken string
	// UserAgent overrides the default user agent.
	UserAgent string
	// HTTPClient overrides the HTTP client used for the upgrade request.
	HTTPClient *http.Client
}

// Dial connects to the relay at target (a ws:// or wss:// URL).
func (d *WebsocketDialer) Dial(ctx context.Context, target string, opts ConnectOptions) (Conn, error) {
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	hdr := http.Header{}
	ua := d.UserAgent
	if ua == "" {
		ua = build.UserAgent()
	}
	hdr.Set("User-Agent", ua)
	if d.AuthToken != "" {
		hdr.Set("Authorization", "Bearer "+d.AuthToken)
	}

	wc, _, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: hdr,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &wsConn{
		wc:     wc,
		opts:   opts,
		notifs: make(chan wire.Notification, wsNotifBuffer),
		ctx:    connCtx,
		cancel: cancel,
	}
	go c.readLoop()

	if opts.Debug {
		slog.Debug("relay connection established", slog.String("target", target))
	}
	return c, nil
}

type wsConn struct {
	wc   *websocket.Conn
	opts ConnectOptions

	notifs chan wire.Notification

	// ctx spans the connection's lifetime, not the dial's.
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (c *wsConn) readLoop() {
	defer close(c.notifs)
	for {
		rctx := c.ctx
		cancel := context.CancelFunc(func() {})
		if c.opts.IdleTimeout > 0 {
			rctx, cancel = context.WithTimeout(c.ctx, c.opts.IdleTimeout)
		}
		_, data, err := c.wc.Read(rctx)
		cancel()
		if err != nil {
			if c.ctx.Err() == nil {
				slog.Debug("relay read ended", slog.Any("error", err))
				c.wc.Close(websocket.StatusNormalClosure, "")
			}
			return
		}

		n, err := DecodeNotification(data)
		if err != nil {
			slog.Warn("dropping relay connection", slog.Any("error", err))
			c.wc.Close(websocket.StatusProtocolError, "malformed frame")
			return
		}
		if c.opts.Debug {
			slog.Debug("notification received",
				slog.String("token", n.Token.String()),
				slog.String("kind", string(n.Kind)),
				slog.Int("bytes", len(n.Data)))
		}

		select {
		case c.notifs <- n:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *wsConn) Send(ctx context.Context, req wire.Request) error {
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	b, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	if c.opts.Debug {
		slog.Debug("sending request",
			slog.String("token", req.Token.String()),
			slog.String("method", string(req.Method)),
			slog.String("path", req.Path))
	}
	if err := c.wc.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("write request frame: %w", err)
	}
	return nil
}

func (c *wsConn) Notifications() <-chan wire.Notification {
	return c.notifs
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wc.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}
