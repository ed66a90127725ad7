package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Herald/pkg/bus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu         sync.Mutex
	frames     []Frame
	heartbeats int
	closes     int
	failOn     string
	frameCh    chan Frame
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{frameCh: make(chan Frame, 32)}
}

func (f *fakeWriter) WriteFrame(fr Frame, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && fr.Event == f.failOn {
		return errors.New("write: broken pipe")
	}
	f.frames = append(f.frames, fr)
	f.frameCh <- fr
	return nil
}

func (f *fakeWriter) WriteHeartbeat(time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeWriter) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeWriter) heartbeatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeats
}

func next(t *testing.T, f *fakeWriter) Frame {
	t.Helper()
	select {
	case fr := <-f.frameCh:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not tear down")
	}
}

func runAsync(s *Session) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()
	return errCh
}

func TestSession_ConnectedThenEvents(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, Options{Heartbeat: time.Hour})
	w := newFakeWriter()

	s, err := m.Open(context.Background(), Identity{UserID: "u1", Role: "member"}, w)
	require.NoError(t, err)
	errCh := runAsync(s)

	first := next(t, w)
	assert.Equal(t, FrameConnected, first.Event)
	cf, ok := first.Data.(ConnectedFrame)
	require.True(t, ok)
	assert.Equal(t, "u1", cf.UserID)
	assert.Equal(t, "member", cf.Role)

	require.Eventually(t, func() bool { return b.Subscribers("u1") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateOpen, s.State())

	b.Publish("u1", bus.Event{Type: "notify", Payload: map[string]string{"id": "n1"}})
	b.Publish("u2", bus.Event{Type: "notify", Payload: map[string]string{"id": "other"}})

	ev := next(t, w)
	assert.Equal(t, "notify", ev.Event)
	assert.Equal(t, map[string]string{"id": "n1"}, ev.Data)

	s.Close()
	assert.NoError(t, <-errCh)
	waitDone(t, s)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 0, b.Subscribers("u1"))
	assert.Equal(t, int64(0), b.Stats().ActiveSubscriptions)
	assert.Equal(t, 1, w.closeCount())
	assert.Equal(t, 0, m.Active())
}

func TestSession_ContextCancelTearsDownOnce(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, Options{Heartbeat: time.Hour})
	w := newFakeWriter()
	ctx, cancel := context.WithCancel(context.Background())

	s, err := m.Open(ctx, Identity{UserID: "u1"}, w)
	require.NoError(t, err)
	errCh := runAsync(s)
	next(t, w)

	cancel()
	assert.NoError(t, <-errCh)
	s.Close()
	s.Close()

	assert.Equal(t, 1, w.closeCount())
	assert.Equal(t, int64(0), b.Stats().ActiveSubscriptions)
}

func TestSession_HeartbeatWhileIdle(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, Options{Heartbeat: 10 * time.Millisecond})
	w := newFakeWriter()

	s, err := m.Open(context.Background(), Identity{UserID: "u1"}, w)
	require.NoError(t, err)
	errCh := runAsync(s)
	defer func() {
		s.Close()
		<-errCh
	}()

	assert.Eventually(t, func() bool { return w.heartbeatCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSession_WriteErrorEndsOnlyThatSession(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, Options{Heartbeat: time.Hour})
	broken := newFakeWriter()
	broken.failOn = "notify"
	healthy := newFakeWriter()

	s1, _ := m.Open(context.Background(), Identity{UserID: "u1"}, broken)
	s2, _ := m.Open(context.Background(), Identity{UserID: "u1"}, healthy)
	err1 := runAsync(s1)
	err2 := runAsync(s2)
	next(t, broken)
	next(t, healthy)
	require.Eventually(t, func() bool { return b.Subscribers("u1") == 2 }, time.Second, 5*time.Millisecond)

	b.Publish("u1", bus.Event{Type: "notify", Payload: 1})

	assert.Error(t, <-err1)
	waitDone(t, s1)
	assert.Error(t, s1.Err())

	assert.Equal(t, "notify", next(t, healthy).Event)
	assert.Equal(t, StateOpen, s2.State())
	assert.Equal(t, 1, b.Subscribers("u1"))

	s2.Close()
	<-err2
}

func TestSession_BusDropEndsSession(t *testing.T) {
	b := bus.New(1)
	w := newFakeWriter()
	// a writer that never drains would overflow; emulate by stalling the frame channel
	w.frameCh = make(chan Frame, 1)
	m := NewManager(b, Options{Heartbeat: time.Hour})

	s, _ := m.Open(context.Background(), Identity{UserID: "u1"}, w)
	errCh := runAsync(s)
	require.Eventually(t, func() bool { return b.Subscribers("u1") == 1 }, time.Second, 5*time.Millisecond)

	// connected frame fills frameCh, so the next WriteFrame blocks and the bus buffer fills up
	for i := 0; i < 5; i++ {
		b.Publish("u1", bus.Event{Type: "notify", Payload: i})
	}
	<-w.frameCh
	go func() {
		for range w.frameCh {
		}
	}()

	err := <-errCh
	assert.ErrorIs(t, err, bus.ErrSlowConsumer)
	waitDone(t, s)
}

func TestSession_CloseBeforeRun(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, Options{})
	w := newFakeWriter()

	s, err := m.Open(context.Background(), Identity{UserID: "u1"}, w)
	require.NoError(t, err)
	s.Close()
	waitDone(t, s)

	assert.ErrorIs(t, s.Run(), ErrSessionClosed)
	assert.Equal(t, 1, w.closeCount())
	assert.Equal(t, 0, m.Active())
}

func TestManager_ShutdownClosesAllSessions(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, Options{Heartbeat: time.Hour})

	var errs []<-chan error
	for i := 0; i < 3; i++ {
		w := newFakeWriter()
		s, err := m.Open(context.Background(), Identity{UserID: "u1"}, w)
		require.NoError(t, err)
		errs = append(errs, runAsync(s))
		next(t, w)
	}
	require.Equal(t, 3, m.Active())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	for _, ch := range errs {
		assert.NoError(t, <-ch)
	}
	assert.Equal(t, 0, m.Active())
	assert.Equal(t, int64(0), b.Stats().ActiveSubscriptions)

	_, err := m.Open(context.Background(), Identity{UserID: "u1"}, newFakeWriter())
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestSSEWriter_Frames(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)

	require.NoError(t, w.WriteFrame(Frame{Event: "notify", Data: map[string]string{"type": "notify"}}, time.Now().Add(time.Second)))
	require.NoError(t, w.WriteHeartbeat(time.Now().Add(time.Second)))

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, body, "event:notify\n")
	assert.Contains(t, body, `data:{"type":"notify"}`)
	assert.True(t, strings.HasSuffix(body, heartbeatComment))
	assert.True(t, rec.Flushed)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteHeartbeat(time.Now()), ErrSessionClosed)
}

func TestManager_ShutdownRacingOpen(t *testing.T) {
	for i := 0; i < 200; i++ {
		b := bus.New(8)
		m := NewManager(b, Options{Heartbeat: time.Hour})

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s, err := m.Open(context.Background(), Identity{UserID: "u1"}, newFakeWriter()); err == nil {
					go s.Run()
				}
			}()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, m.Shutdown(ctx))
		cancel()
		wg.Wait()

		// 关闭后打开的会话被拒绝，关闭前打开的都已结束
		require.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return b.Stats().ActiveSubscriptions == 0 }, time.Second, time.Millisecond)
	}
}

type countingSubscriber struct {
	b      *bus.Bus
	unsubs atomic.Int32
}

func (c *countingSubscriber) Subscribe(recipientID string) (*bus.Subscription, func()) {
	sub, unsub := c.b.Subscribe(recipientID)
	return sub, func() {
		c.unsubs.Add(1)
		unsub()
	}
}

func TestSession_StalledClientHitsWriteTimeout(t *testing.T) {
	b := bus.New(256)
	sub := &countingSubscriber{b: b}
	m := NewManager(sub, Options{Heartbeat: time.Hour, WriteTimeout: 100 * time.Millisecond})

	ended := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ended <- m.Serve(r.Context(), Identity{UserID: "u1"}, NewSSEWriter(w))
	}))
	defer srv.Close()

	// 只发请求，从不读取响应
	conn, err := net.Dial("tcp", srv.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = fmt.Fprintf(conn, "GET /stream HTTP/1.1\r\nHost: %s\r\n\r\n", srv.Listener.Addr().String())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return b.Subscribers("u1") == 1 }, 2*time.Second, 5*time.Millisecond)

	chunk := strings.Repeat("x", 256<<10)
	for i := 0; i < 128; i++ {
		b.Publish("u1", bus.Event{Type: "notify", Payload: map[string]string{"blob": chunk}})
	}

	select {
	case err := <-ended:
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	case <-time.After(10 * time.Second):
		t.Fatal("stalled session was not closed")
	}
	assert.Equal(t, int32(1), sub.unsubs.Load())
	assert.Equal(t, 0, b.Subscribers("u1"))
	assert.Equal(t, 0, m.Active())
}
