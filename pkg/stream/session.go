// Package stream drives long-lived per-viewer delivery connections. A Session
// pumps bus events, heartbeats and the opening frame into a FrameWriter until
// the client leaves, the bus drops it, a write fails, or the process shuts down.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"Herald/pkg/bus"
	"Herald/pkg/util"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
)

const (
	DefaultHeartbeat    = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second

	FrameConnected = "connected"
)

var ErrSessionClosed = errors.New("stream: session closed")

// Frame is one unit written to the client. Event names the frame; Data is
// encoded as JSON.
type Frame struct {
	Event string
	Data  interface{}
}

// FrameWriter is a transport. Only the session goroutine calls WriteFrame and
// WriteHeartbeat; Close is called exactly once, from teardown.
type FrameWriter interface {
	WriteFrame(f Frame, deadline time.Time) error
	WriteHeartbeat(deadline time.Time) error
	Close() error
}

// Subscriber is the part of the bus a session needs.
type Subscriber interface {
	Subscribe(recipientID string) (*bus.Subscription, func())
}

// Identity is the authenticated viewer behind a session.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// ConnectedFrame is the first frame of every session.
type ConnectedFrame struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
}

type Options struct {
	Heartbeat    time.Duration
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Heartbeat <= 0 {
		o.Heartbeat = DefaultHeartbeat
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	return o
}

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Session struct {
	id       string
	identity Identity
	sub      Subscriber
	w        FrameWriter
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc

	state   atomic.Int32
	started atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
	unsub     func()
	ticker    *time.Ticker
	onClose   func(*Session)
	endErr    error
}

// onClose is fixed before the session is visible to any other goroutine.
func newSession(parent context.Context, identity Identity, sub Subscriber, w FrameWriter, opts Options, onClose func(*Session)) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:       util.GenerateShortUUID(),
		identity: identity,
		sub:      sub,
		w:        w,
		opts:     opts.withDefaults(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		onClose:  onClose,
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Identity() Identity    { return s.identity }
func (s *Session) State() State          { return State(s.state.Load()) }
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session ended: nil for a clean close, otherwise the
// write or bus error. Only valid after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.endErr
	default:
		return nil
	}
}

// Run blocks until the session ends. It may be called once.
func (s *Session) Run() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}

	var err error
	defer func() { s.teardown(err) }()

	sub, unsub := s.sub.Subscribe(s.identity.UserID)
	s.unsub = unsub

	if err = s.w.WriteFrame(Frame{
		Event: FrameConnected,
		Data: ConnectedFrame{
			Type:   FrameConnected,
			UserID: s.identity.UserID,
			Role:   s.identity.Role,
			At:     time.Now().UTC(),
		},
	}, s.deadline()); err != nil {
		return err
	}

	s.state.Store(int32(StateOpen))
	s.ticker = time.NewTicker(s.opts.Heartbeat)
	zlog.Info("stream session open",
		zap.String("session_id", s.id),
		zap.String("user_id", s.identity.UserID),
	)

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-sub.Done():
			err = sub.Err()
			return err
		case ev := <-sub.C():
			if err = s.w.WriteFrame(Frame{Event: ev.Type, Data: ev.Payload}, s.deadline()); err != nil {
				return err
			}
		case <-s.ticker.C:
			if err = s.w.WriteHeartbeat(s.deadline()); err != nil {
				return err
			}
		}
	}
}

func (s *Session) deadline() time.Time {
	return time.Now().Add(s.opts.WriteTimeout)
}

// Close ends the session. Safe to call any number of times, from any
// goroutine, before or after Run.
func (s *Session) Close() {
	s.cancel()
	// never started: nobody else will tear down
	if s.started.CompareAndSwap(false, true) {
		s.teardown(nil)
	}
}

func (s *Session) teardown(err error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.cancel()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		if s.unsub != nil {
			s.unsub()
		}
		if cerr := s.w.Close(); cerr != nil {
			zlog.Debug("stream writer close failed", zap.String("session_id", s.id), zap.Error(cerr))
		}
		s.endErr = err

		fields := []zap.Field{
			zap.String("session_id", s.id),
			zap.String("user_id", s.identity.UserID),
		}
		if err != nil {
			zlog.Warn("stream session closed", append(fields, zap.Error(err))...)
		} else {
			zlog.Info("stream session closed", fields...)
		}

		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}
