package exchange

import (
	"errors"
	"fmt"
	"time"
)

// Phase names the wait stage an exchange was in when it ended.
type Phase string

const (
	PhaseHead Phase = "head"
	PhaseBody Phase = "body"
)

var (
	// ErrBodyConflict marks a response that mixed chunked delivery with
	// a non-empty terminal body. The true body is ambiguous, so the
	// exchange fails rather than guess.
	ErrBodyConflict = errors.New("exchange: conflicting chunked and whole-body delivery")

	// ErrUnexpectedNotification marks a response that broke the
	// head-chunks-terminal ordering contract.
	ErrUnexpectedNotification = errors.New("exchange: notification out of order")
)

// ConnectionError reports that the connection failed underneath the
// exchange: the dial failed, the send failed, or the inbound stream died
// mid-wait.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("exchange: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that no matching notification arrived within the
// phase deadline. Err carries the context error when cancellation rather
// than the deadline ended the wait.
type TimeoutError struct {
	Phase Phase
	Wait  time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exchange: canceled awaiting response %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("exchange: timed out awaiting response %s after %v", e.Phase, e.Wait)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout reports true so callers can treat this like net timeouts.
func (e *TimeoutError) Timeout() bool { return true }

// ProtocolError carries a relay-reported error notification. Cause is
// opaque to the exchange and preserved unchanged.
type ProtocolError struct {
	Cause string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("exchange: relay reported error: %s", e.Cause)
}
