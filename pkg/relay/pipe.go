package relay

import (
	"context"
	"sync"

	"github.com/slipwire-dev/slipwire/pkg/wire"
)

const (
	pipeRequestBuffer = 16
	pipeNotifBuffer   = 64
)

// NewPipe returns a connected in-process pair: the client end implements
// Conn, the server end consumes what the client sends and injects
// notifications back. It backs unit tests and in-process embeddings; no
// frames are involved, values cross as-is.
func NewPipe() (Conn, *PipeServer) {
	p := &pipe{
		requests: make(chan wire.Request, pipeRequestBuffer),
		inbound:  make(chan wire.Notification, pipeNotifBuffer),
		notifs:   make(chan wire.Notification, pipeNotifBuffer),
		done:     make(chan struct{}),
	}
	go p.pump()
	return &pipeConn{p: p}, &PipeServer{p: p}
}

type pipe struct {
	requests chan wire.Request
	// inbound is fed by PipeServer.Notify; pump moves it to notifs so
	// that notifs has exactly one closer.
	inbound chan wire.Notification
	notifs  chan wire.Notification

	done      chan struct{}
	closeOnce sync.Once
}

func (p *pipe) pump() {
	defer close(p.notifs)
	for {
		select {
		case <-p.done:
			return
		case n := <-p.inbound:
			select {
			case p.notifs <- n:
			case <-p.done:
				return
			}
		}
	}
}

func (p *pipe) close() {
	p.closeOnce.Do(func() { close(p.done) })
}

type pipeConn struct {
	p *pipe
}

func (c *pipeConn) Send(ctx context.Context, req wire.Request) error {
	select {
	case <-c.p.done:
		return ErrClosed
	case c.p.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Notifications() <-chan wire.Notification {
	return c.p.notifs
}

func (c *pipeConn) Close() error {
	c.p.close()
	return nil
}

// PipeServer is the far end of an in-process pipe.
type PipeServer struct {
	p *pipe
}

// Requests returns the stream of requests sent by the client end.
func (s *PipeServer) Requests() <-chan wire.Request {
	return s.p.requests
}

// Notify delivers one notification to the client end. Any token is
// accepted; a pipe carries whatever the far side chooses to send.
func (s *PipeServer) Notify(n wire.Notification) error {
	select {
	case <-s.p.done:
		return ErrClosed
	case s.p.inbound <- n:
		return nil
	}
}

// Done is closed when either end closes the pipe.
func (s *PipeServer) Done() <-chan struct{} {
	return s.p.done
}

// Close tears the pipe down from the server side. The client end's
// notification stream is closed as a result.
func (s *PipeServer) Close() error {
	s.p.close()
	return nil
}
