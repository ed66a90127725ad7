package stream

import (
	"context"
	"errors"
	"sync"
)

var ErrManagerClosed = errors.New("stream: manager is shutting down")

// Manager tracks every open session of the process so they can be closed
// together on shutdown.
type Manager struct {
	sub  Subscriber
	opts Options

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewManager(sub Subscriber, opts Options) *Manager {
	return &Manager{
		sub:      sub,
		opts:     opts.withDefaults(),
		sessions: make(map[*Session]struct{}),
	}
}

// Open registers a session for identity on w. The caller runs it with Run.
func (m *Manager) Open(ctx context.Context, identity Identity, w FrameWriter) (*Session, error) {
	s := newSession(ctx, identity, m.sub, w, m.opts, m.forget)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.cancel()
		return nil, ErrManagerClosed
	}
	m.sessions[s] = struct{}{}
	m.wg.Add(1)
	m.mu.Unlock()
	return s, nil
}

// Serve opens a session and runs it to completion.
func (m *Manager) Serve(ctx context.Context, identity Identity, w FrameWriter) error {
	s, err := m.Open(ctx, identity, w)
	if err != nil {
		_ = w.Close()
		return err
	}
	return s.Run()
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s]
	delete(m.sessions, s)
	m.mu.Unlock()
	if ok {
		m.wg.Done()
	}
}

// Active returns the number of sessions not yet torn down.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown refuses new sessions, closes the open ones and waits for their
// teardown or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	open := make([]*Session, 0, len(m.sessions))
	for s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
