package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// sseWriter serializes Server-Sent Events onto one response. A background
// keepalive comment is written while the stream is idle.
type sseWriter struct {
	mu   sync.Mutex
	w    http.ResponseWriter
	rc   *http.ResponseController
	err  error
	stop chan struct{}
	once sync.Once
}

// newSSEWriter sends the event-stream headers and starts the keepalive.
// The caller must Close the writer.
func newSSEWriter(w http.ResponseWriter, keepalive time.Duration) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("server: sse flush: %w", err)
	}

	// Disable the server's WriteTimeout for this long-lived response.
	// Without this, slow turns are cut off after WriteTimeout.
	_ = rc.SetWriteDeadline(time.Time{})

	s := &sseWriter{w: w, rc: rc, stop: make(chan struct{})}
	if keepalive > 0 {
		go s.keepalive(keepalive)
	}
	return s, nil
}

// Event writes one event with v encoded as JSON data.
func (s *sseWriter) Event(eventType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("server: sse encode: %w", err)
	}
	return s.write(formatSSE(eventType, string(data)))
}

// Done writes the terminating "done" event with empty data.
func (s *sseWriter) Done() error {
	return s.write(formatSSE("done", ""))
}

var errStreamClosed = errors.New("server: sse stream closed")

// Close stops the keepalive. No writes happen after Close returns.
func (s *sseWriter) Close() {
	s.once.Do(func() { close(s.stop) })
	s.mu.Lock()
	if s.err == nil {
		s.err = errStreamClosed
	}
	s.mu.Unlock()
}

func (s *sseWriter) keepalive(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.write([]byte(":keepalive\n\n")); err != nil {
				return
			}
		}
	}
}

func (s *sseWriter) write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, err := s.w.Write(b); err != nil {
		s.err = err
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.err = err
		return err
	}
	return nil
}

// formatSSE formats one Server-Sent Events message. data must not contain
// newlines; JSON from encoding/json never does.
func formatSSE(eventType, data string) []byte {
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
