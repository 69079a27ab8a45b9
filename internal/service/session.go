package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/adapter/pubsub"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/store"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service/grid"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrSessionNotFound = errors.New("service: session not found")

// Authenticator exchanges console credentials for an identity and bearer token.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (model.Identity, string, error)
}

// Dialer builds the transport factory for a session token.
type Dialer func(token string) DialFunc

// Rows is the undecoded row type of grid pages proxied to the browser.
type Rows = json.RawMessage

// Session is everything the console holds for one logged-in browser.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	Store      *store.Store
	Conn       *ConnectionManager
	Dispatcher *Dispatcher
	Notifier   *Notifier

	mu       sync.RWMutex
	identity model.Identity
	token    string

	getter      grid.Getter
	tables      *lru.Cache[string, *grid.Table[Rows]]
	unsubscribe func()
	logger      *slog.Logger
	closeOnce   sync.Once
}

func (s *Session) Identity() model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetIdentity applies a login, logout or role change and reconciles the transport.
func (s *Session) SetIdentity(ctx context.Context, id model.Identity) error {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()

	_, err := s.Conn.Acquire(ctx, id.IsAuthenticated, id.IsPrivileged())
	return err
}

// Table returns the grid table of a resource, creating it on first use.
func (s *Session) Table(resource string) *grid.Table[Rows] {
	if t, ok := s.tables.Get(resource); ok {
		return t
	}
	fetch := LogFetch(grid.Bind[Rows](s.getter, resource, s.Token()), resource, s.logger)
	t := grid.NewTable(fetch)
	if prev, ok, _ := s.tables.PeekOrAdd(resource, t); ok {
		return prev
	}
	return t
}

// Grid loads one page of a resource through its table.
func (s *Session) Grid(ctx context.Context, resource string, q model.GridQuery) (grid.View[Rows], error) {
	return s.Table(resource).Load(ctx, q)
}

// Close releases the transport, the store subscription and every grid table.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		if err := s.Conn.Release(); err != nil {
			s.logger.Warn("SESSION_RELEASE_FAILED", "err", err)
		}
		s.tables.Purge()
	})
}

// SessionRegistry is the bounded set of live sessions. The least recently used
// session is evicted, and closed, when the bound is reached.
type SessionRegistry struct {
	cfg    *config.Config
	auth   Authenticator
	getter grid.Getter
	hub    registry.Hubber
	relay  pubsub.EventDispatcher
	routes *route.Table
	dialer Dialer
	logger *slog.Logger

	cache     *lru.Cache[uuid.UUID, *Session]
	startedAt time.Time
}

func NewSessionRegistry(
	cfg *config.Config,
	auth Authenticator,
	getter grid.Getter,
	hub registry.Hubber,
	relay pubsub.EventDispatcher,
	routes *route.Table,
	dialer Dialer,
	logger *slog.Logger,
) (*SessionRegistry, error) {
	r := &SessionRegistry{
		cfg:       cfg,
		auth:      auth,
		getter:    getter,
		hub:       hub,
		relay:     relay,
		routes:    routes,
		dialer:    dialer,
		logger:    logger.With(slog.String("component", "sessions")),
		startedAt: time.Now(),
	}

	size := cfg.Sessions.Max
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.NewWithEvict(size, func(id uuid.UUID, s *Session) {
		// [SCOPED_RELEASE] Eviction, logout and shutdown all end here
		s.Close()
		r.hub.Disconnect(id)
		r.logger.Info("SESSION_CLOSED", "session_id", id)
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// Login authenticates against the backend and opens a session for the result.
func (r *SessionRegistry) Login(ctx context.Context, creds backend.Credentials) (*Session, error) {
	id, token, err := r.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return r.Open(ctx, id, token)
}

// Open builds a session around an already authenticated identity.
func (r *SessionRegistry) Open(ctx context.Context, id model.Identity, token string) (*Session, error) {
	sid := uuid.New()
	logger := r.logger.With(slog.String("session_id", sid.String()))

	tablesSize := r.cfg.Grid.TablesPerSession
	if tablesSize <= 0 {
		tablesSize = 32
	}
	tables, err := lru.NewWithEvict(tablesSize, func(_ string, t *grid.Table[Rows]) { t.Close() })
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        sid,
		CreatedAt: time.Now(),
		Store:     store.New(store.WithMaxMessages(r.cfg.Store.MaxMessages)),
		token:     token,
		getter:    r.getter,
		tables:    tables,
		logger:    logger,
	}

	// [FAN_OUT] Store changes and notices reach every browser viewer of the session
	s.unsubscribe = s.Store.Subscribe(func(snap model.Snapshot) {
		r.hub.Broadcast(event.NewSnapshotEvent(sid, snap))
	})
	s.Dispatcher = NewDispatcher(s.Store, func(m model.Message) {
		ev := event.NewNoticeEvent(sid, s.Identity().UserID, &m)
		r.hub.Broadcast(ev)
		if err := r.relay.Publish(context.Background(), ev); err != nil {
			logger.Warn("RELAY_PUBLISH_FAILED", "err", err, "message_id", m.ID)
		}
	}, logger)
	s.Conn = NewConnectionManager(r.dialer(token), s.Dispatcher.OnFrame, logger)
	s.Notifier = NewNotifier(s.Store, r.routes, s.Conn)

	if err := s.SetIdentity(ctx, id); err != nil {
		s.Close()
		return nil, err
	}

	r.cache.Add(sid, s)
	logger.Info("SESSION_OPENED", "user_id", id.UserID, "role", id.Role, "realtime", id.IsPrivileged())
	return s, nil
}

func (r *SessionRegistry) Get(id uuid.UUID) (*Session, error) {
	s, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Logout closes and forgets a session.
func (r *SessionRegistry) Logout(id uuid.UUID) error {
	if !r.cache.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRegistry) Len() int { return r.cache.Len() }

// Stats combines registry and viewer hub counters.
func (r *SessionRegistry) Stats() model.HubStats {
	live := 0
	for _, s := range r.cache.Values() {
		if s.Conn.Status() == model.Connected {
			live++
		}
	}
	_, viewers := r.hub.Stats()
	return model.HubStats{
		TotalSessions:    r.cache.Len(),
		TotalConnections: viewers,
		LiveSockets:      live,
		Uptime:           time.Since(r.startedAt),
	}
}

// Close tears down every session.
func (r *SessionRegistry) Close() {
	r.cache.Purge()
}
