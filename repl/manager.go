package repl

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hirossan4049/mpy-sdk/logger"
	"github.com/hirossan4049/mpy-sdk/transport"
)

// ErrPortInUse indicates an Open for a port that already has a live session.
var ErrPortInUse = errors.New("repl: port already has a connected session")

// SessionManager tracks one Session per serial port path, so multiple devices
// can be driven from the same process without interference.
//
// Each session exclusively owns its channel; the manager never multiplexes
// two sessions over one port.
type SessionManager struct {
	ctx      context.Context
	logger   logger.Logger
	sessions *xsync.MapOf[string, *Session]

	// opening holds paths with a connect in progress, reserved before any
	// liveness check so two concurrent Opens of the same path cannot both
	// pass it and silently overwrite each other's registration.
	opening *xsync.MapOf[string, struct{}]
}

// NewSessionManager creates an empty session registry.
func NewSessionManager(ctx context.Context, l logger.Logger) *SessionManager {
	if l == nil {
		l = logger.GetLogger()
	}

	return &SessionManager{
		ctx:      ctx,
		logger:   l,
		sessions: xsync.NewMapOf[string, *Session](),
		opening:  xsync.NewMapOf[string, struct{}](),
	}
}

// Open creates a serial channel on the port at path, wraps it in a Session,
// connects it, and registers it under path.
//
// A Disconnected session registered under the same path is replaced; a live
// one causes ErrPortInUse.
func (m *SessionManager) Open(path string, cfg *SessionConfig, opts ...transport.SerialOption) (*Session, error) {
	ch, err := transport.NewSerial(path, opts...)
	if err != nil {
		return nil, err
	}

	return m.connect(path, ch, cfg)
}

// OpenChannel is like Open but takes a caller-provided channel. Useful for
// non-serial transports and tests.
func (m *SessionManager) OpenChannel(path string, ch transport.Channel, cfg *SessionConfig) (*Session, error) {
	return m.connect(path, ch, cfg)
}

func (m *SessionManager) connect(path string, ch transport.Channel, cfg *SessionConfig) (*Session, error) {
	if _, loaded := m.opening.LoadOrStore(path, struct{}{}); loaded {
		return nil, fmt.Errorf("%w: %s", ErrPortInUse, path)
	}
	defer m.opening.Delete(path)

	// Holding the reservation, nobody else can register under path, so the
	// liveness check cannot race a concurrent connect.
	if existing, ok := m.sessions.Load(path); ok && !existing.State().Is(Disconnected) {
		return nil, fmt.Errorf("%w: %s", ErrPortInUse, path)
	}

	session, err := NewSession(m.ctx, ch, cfg)
	if err != nil {
		return nil, err
	}

	if err := session.Connect(); err != nil {
		return nil, err
	}

	m.sessions.Store(path, session)
	m.logger.Info("session registered", "path", path, "session_id", session.ID())

	return session, nil
}

// Get returns the session registered under path.
func (m *SessionManager) Get(path string) (*Session, bool) {
	return m.sessions.Load(path)
}

// Close disconnects and removes the session registered under path.
func (m *SessionManager) Close(path string) error {
	session, ok := m.sessions.LoadAndDelete(path)
	if !ok {
		return nil
	}

	return session.Disconnect()
}

// CloseAll disconnects every registered session.
func (m *SessionManager) CloseAll() error {
	var errs error

	m.sessions.Range(func(path string, session *Session) bool {
		if err := session.Disconnect(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", path, err))
		}
		m.sessions.Delete(path)

		return true
	})

	return errs
}

// Len returns the number of registered sessions.
func (m *SessionManager) Len() int {
	return m.sessions.Size()
}
