package service

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/socket"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

// Conn is the live real-time transport of one session.
type Conn interface {
	Emit(key string, value any) error
	Status() model.ConnStatus
	Close() error
}

// DialFunc opens a transport that feeds every inbound frame to onFrame.
type DialFunc func(ctx context.Context, onFrame socket.FrameHandler) Conn

// SocketDialer dials the backend notification channel with the session token.
// The token travels only when credentials are "include".
func SocketDialer(cfg *config.Config, token string, logger *slog.Logger) DialFunc {
	return func(ctx context.Context, onFrame socket.FrameHandler) Conn {
		header := http.Header{}
		if model.CredentialsMode(cfg.Backend.Credentials) == model.CredentialsInclude && token != "" {
			header.Set("Authorization", "Bearer "+token)
			header.Set("Cookie", (&http.Cookie{Name: "access_token", Value: token}).String())
		}
		return socket.Dial(ctx, socket.Options{
			Endpoint:      cfg.Backend.SocketURL,
			Header:        header,
			WriteTimeout:  cfg.Socket.WriteTimeout,
			ReconnectBase: cfg.Socket.ReconnectBase,
			ReconnectMax:  cfg.Socket.ReconnectMax,
			Logger:        logger,
		}, onFrame)
	}
}

// ConnectionManager owns the zero-or-one transport of a session.
//
// [LIFECYCLE_GATE]
// A connection exists only while the session is logged in AND privileged.
// Every other combination tears it down.
type ConnectionManager struct {
	dial    DialFunc
	onFrame socket.FrameHandler
	logger  *slog.Logger

	mu   sync.Mutex
	conn Conn

	opened  atomic.Uint64
	dropped atomic.Uint64
}

func NewConnectionManager(dial DialFunc, onFrame socket.FrameHandler, logger *slog.Logger) *ConnectionManager {
	return &ConnectionManager{dial: dial, onFrame: onFrame, logger: logger}
}

// Acquire reconciles the transport with the session flags. It is idempotent:
// repeated calls with the same flags keep the same connection. The returned Conn
// is nil when no connection may exist.
func (m *ConnectionManager) Acquire(ctx context.Context, loggedIn, privileged bool) (Conn, error) {
	if !loggedIn || !privileged {
		return nil, m.Release()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return m.conn, nil
	}

	m.conn = m.dial(ctx, m.onFrame)
	m.opened.Add(1)
	m.logger.Info("REALTIME_CONNECTION_OPENED")
	return m.conn, nil
}

// Release closes the transport if one is open.
func (m *ConnectionManager) Release() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	m.logger.Info("REALTIME_CONNECTION_CLOSED")
	// Close waits for the reader, so it must run outside mu.
	return conn.Close()
}

// Emit sends a frame fire-and-forget. With no live connection the frame is dropped.
func (m *ConnectionManager) Emit(key string, value any) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.dropped.Add(1)
		m.logger.Debug("EMIT_DROPPED", "key", key, "reason", "no connection")
		return
	}
	if err := conn.Emit(key, value); err != nil {
		m.dropped.Add(1)
		m.logger.Debug("EMIT_DROPPED", "key", key, "err", err)
	}
}

func (m *ConnectionManager) Status() model.ConnStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return model.Disconnected
	}
	return m.conn.Status()
}

// Opened counts transports created over the manager's lifetime.
func (m *ConnectionManager) Opened() uint64 { return m.opened.Load() }

// Dropped counts emits that never reached the wire.
func (m *ConnectionManager) Dropped() uint64 { return m.dropped.Load() }
