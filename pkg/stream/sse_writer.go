package stream

import (
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/sse"
)

const heartbeatComment = ": keep-alive\n\n"

// SSEWriter writes frames as text/event-stream events.
type SSEWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	closed atomic.Bool
}

// NewSSEWriter sets the event-stream headers on w and commits them.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &SSEWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *SSEWriter) WriteFrame(f Frame, deadline time.Time) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.setDeadline(deadline)
	if err := sse.Encode(s.w, sse.Event{Event: f.Event, Data: f.Data}); err != nil {
		return err
	}
	return s.flush()
}

func (s *SSEWriter) WriteHeartbeat(deadline time.Time) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.setDeadline(deadline)
	if _, err := io.WriteString(s.w, heartbeatComment); err != nil {
		return err
	}
	return s.flush()
}

// Close stops further writes. The response itself ends when the handler returns.
func (s *SSEWriter) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *SSEWriter) setDeadline(deadline time.Time) {
	// recorders and some proxies' writers cannot carry deadlines
	_ = s.rc.SetWriteDeadline(deadline)
}

func (s *SSEWriter) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
