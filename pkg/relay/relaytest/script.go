package relaytest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slipwire-dev/slipwire/pkg/wire"
)

// Script answers requests declaratively by matching method and path
// against an ordered route list. It is the YAML format behind the serve
// command.
type Script struct {
	Routes []Route `yaml:"routes"`
}

// Route describes one canned response. Either Error is set, or Status
// plus Body or Chunks. Chunked routes finish with an empty terminal
// body, whole-body routes carry everything in the terminal body.
type Route struct {
	// Method matches case-insensitively; empty matches any method.
	Method string `yaml:"method,omitempty"`
	// Path matches exactly; empty matches any path.
	Path    string       `yaml:"path,omitempty"`
	Status  int          `yaml:"status,omitempty"`
	Headers wire.Headers `yaml:"headers,omitempty"`
	Body    string       `yaml:"body,omitempty"`
	Chunks  []string     `yaml:"chunks,omitempty"`
	Error   string       `yaml:"error,omitempty"`
	// DelayMS is inserted before every emitted frame.
	DelayMS int `yaml:"delay_ms,omitempty"`
}

// LoadScript reads and validates a YAML script file.
func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every route for a usable method, status, and exactly
// one response shape.
func (s *Script) Validate() error {
	for i, rt := range s.Routes {
		if rt.Method != "" {
			if _, err := wire.ParseMethod(rt.Method); err != nil {
				return fmt.Errorf("route %d: %w", i, err)
			}
		}
		if rt.Error != "" && (rt.Status != 0 || rt.Body != "" || len(rt.Chunks) > 0) {
			return fmt.Errorf("route %d: error routes carry no status or body", i)
		}
		if rt.Body != "" && len(rt.Chunks) > 0 {
			return fmt.Errorf("route %d: body and chunks are mutually exclusive", i)
		}
		if rt.Status != 0 && (rt.Status < 100 || rt.Status > 599) {
			return fmt.Errorf("route %d: status %d out of range", i, rt.Status)
		}
	}
	return nil
}

// Handler compiles the script. Requests matching no route are answered
// with a bare 404.
func (s *Script) Handler() Handler {
	return func(ctx context.Context, req wire.Request, w *ResponseWriter) error {
		rt := s.match(req.Method, req.Path)
		if rt == nil {
			if err := w.Head(404, nil); err != nil {
				return err
			}
			return w.Body(nil)
		}

		delay := time.Duration(rt.DelayMS) * time.Millisecond
		if rt.Error != "" {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			return w.Error(rt.Error)
		}

		status := rt.Status
		if status == 0 {
			status = 200
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		if err := w.Head(status, rt.Headers); err != nil {
			return err
		}

		if len(rt.Chunks) > 0 {
			for _, c := range rt.Chunks {
				if err := sleep(ctx, delay); err != nil {
					return err
				}
				if err := w.Chunk([]byte(c)); err != nil {
					return err
				}
			}
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			return w.Body(nil)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		return w.Body([]byte(rt.Body))
	}
}

func (s *Script) match(m wire.Method, path string) *Route {
	for i := range s.Routes {
		rt := &s.Routes[i]
		if rt.Method != "" && !strings.EqualFold(rt.Method, string(m)) {
			continue
		}
		if rt.Path != "" && rt.Path != path {
			continue
		}
		return rt
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
