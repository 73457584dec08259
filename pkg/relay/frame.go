package relay

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// Frames are single JSON documents, one per transport message. Byte
// payloads ride as base64 per encoding/json convention.

type requestFrame struct {
	Token   uuid.UUID    `json:"token"`
	Method  wire.Method  `json:"method"`
	Path    string       `json:"path"`
	Headers wire.Headers `json:"headers,omitempty"`
	Body    []byte       `json:"body,omitempty"`
}

type notificationFrame struct {
	Token   uuid.UUID    `json:"token"`
	Kind    wire.Kind    `json:"kind"`
	Status  int          `json:"status,omitempty"`
	Headers wire.Headers `json:"headers,omitempty"`
	Data    []byte       `json:"data,omitempty"`
	Cause   string       `json:"cause,omitempty"`
}

// EncodeRequest serializes req as one request frame.
func EncodeRequest(req wire.Request) ([]byte, error) {
	if req.Token == uuid.Nil {
		return nil, fmt.Errorf("request has no token")
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("request method %q is not valid", req.Method)
	}
	return json.Marshal(requestFrame{
		Token:   req.Token,
		Method:  req.Method,
		Path:    req.Path,
		Headers: req.Headers,
		Body:    req.Body,
	})
}

// DecodeRequest parses and validates one request frame.
func DecodeRequest(b []byte) (wire.Request, error) {
	var f requestFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return wire.Request{}, fmt.Errorf("malformed request frame: %w", err)
	}
	if f.Token == uuid.Nil {
		return wire.Request{}, fmt.Errorf("request frame has no token")
	}
	if !f.Method.Valid() {
		return wire.Request{}, fmt.Errorf("request frame method %q is not valid", f.Method)
	}
	return wire.Request{
		Token:   f.Token,
		Method:  f.Method,
		Path:    f.Path,
		Headers: f.Headers,
		Body:    f.Body,
	}, nil
}

// EncodeNotification serializes n as one notification frame.
func EncodeNotification(n wire.Notification) ([]byte, error) {
	if n.Token == uuid.Nil {
		return nil, fmt.Errorf("notification has no token")
	}
	if !n.Kind.Valid() {
		return nil, fmt.Errorf("notification kind %q is not valid", n.Kind)
	}
	return json.Marshal(notificationFrame{
		Token:   n.Token,
		Kind:    n.Kind,
		Status:  n.Status,
		Headers: n.Headers,
		Data:    n.Data,
		Cause:   n.Cause,
	})
}

// DecodeNotification parses and validates one notification frame. Head
// frames must carry a plausible status code; anything else is rejected so
// a misbehaving relay surfaces as a dropped connection instead of
// corrupt results.
func DecodeNotification(b []byte) (wire.Notification, error) {
	var f notificationFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return wire.Notification{}, fmt.Errorf("malformed notification frame: %w", err)
	}
	if f.Token == uuid.Nil {
		return wire.Notification{}, fmt.Errorf("notification frame has no token")
	}
	if !f.Kind.Valid() {
		return wire.Notification{}, fmt.Errorf("notification frame kind %q is not valid", f.Kind)
	}
	if f.Kind == wire.KindHead && (f.Status < 100 || f.Status > 599) {
		return wire.Notification{}, fmt.Errorf("head frame status %d out of range", f.Status)
	}
	return wire.Notification{
		Token:   f.Token,
		Kind:    f.Kind,
		Status:  f.Status,
		Headers: f.Headers,
		Data:    f.Data,
		Cause:   f.Cause,
	}, nil
}
