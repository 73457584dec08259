// Package wire defines the data model of the relay protocol: the request
// description sent over a connection and the token-tagged notifications
// the relay emits while answering it.
package wire

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Method is a request method. The protocol admits a fixed set.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
	HEAD   Method = "HEAD"
	PATCH  Method = "PATCH"
)

// ParseMethod returns the Method matching s, case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(s))
	if !m.Valid() {
		return "", fmt.Errorf("unknown method %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the methods the protocol admits.
func (m Method) Valid() bool {
	switch m {
	case GET, POST, PUT, DELETE, HEAD, PATCH:
		return true
	}
	return false
}

// Header is a single name/value pair. Header order is significant to the
// protocol, so headers travel as ordered slices rather than maps.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Headers is an ordered list of header pairs.
type Headers []Header

// Get returns the value of the first header whose name matches name,
// case-insensitively, and whether one was found.
func (hs Headers) Get(name string) (string, bool) {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Add appends a pair and returns the extended list.
func (hs Headers) Add(name, value string) Headers {
	return append(hs, Header{Name: name, Value: value})
}

// Clone returns an independent copy of hs.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	out := make(Headers, len(hs))
	copy(out, hs)
	return out
}

// Request describes one exchange with a relay. Token correlates the
// relay's notifications back to the waiting caller; it is stamped by the
// exchange layer immediately before sending. The remaining fields are
// caller-owned and immutable once the request has been handed off.
type Request struct {
	Token   uuid.UUID
	Method  Method
	Path    string
	Headers Headers
	Body    []byte
}

// Kind discriminates the notification variants a relay emits.
type Kind string

const (
	KindHead  Kind = "head"
	KindChunk Kind = "chunk"
	KindBody  Kind = "body"
	KindError Kind = "error"
)

// Valid reports whether k is a known notification kind.
func (k Kind) Valid() bool {
	switch k {
	case KindHead, KindChunk, KindBody, KindError:
		return true
	}
	return false
}

// Notification is one token-tagged event from the relay. For a given
// token the relay emits at most one head, then zero or more chunks, then
// exactly one of body or error. Consumers must validate that order
// rather than assume it.
type Notification struct {
	Token   uuid.UUID
	Kind    Kind
	Status  int     // head only
	Headers Headers // head only
	Data    []byte  // chunk and body
	Cause   string  // error only
}

// Head builds a head notification carrying the response status and
// headers.
func Head(token uuid.UUID, status int, headers Headers) Notification {
	return Notification{Token: token, Kind: KindHead, Status: status, Headers: headers}
}

// Chunk builds a partial-body notification.
func Chunk(token uuid.UUID, data []byte) Notification {
	return Notification{Token: token, Kind: KindChunk, Data: data}
}

// Body builds a terminal-body notification. An empty data slice ends a
// chunked response; a non-empty one carries the whole body.
func Body(token uuid.UUID, data []byte) Notification {
	return Notification{Token: token, Kind: KindBody, Data: data}
}

// Error builds a terminal error notification. The cause is opaque to the
// protocol and is handed to the caller unchanged.
func Error(token uuid.UUID, cause string) Notification {
	return Notification{Token: token, Kind: KindError, Cause: cause}
}
