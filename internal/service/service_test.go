package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/socket"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/adapter/pubsub"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type emitted struct {
	Key   string
	Value any
}

// fakeConn stands in for the backend socket. Frames are injected with push.
type fakeConn struct {
	mu      sync.Mutex
	onFrame socket.FrameHandler
	status  model.ConnStatus
	emits   []emitted
	closed  int
	token   string
}

func (c *fakeConn) Emit(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.Connected {
		return socket.ErrNotConnected
	}
	c.emits = append(c.emits, emitted{Key: key, Value: value})
	return nil
}

func (c *fakeConn) Status() model.ConnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	c.status = model.Disconnected
	return nil
}

func (c *fakeConn) push(key string, value any) {
	raw, _ := json.Marshal(value)
	frame, _ := json.Marshal(model.Frame{Key: key, Value: raw})
	c.onFrame(frame)
}

func (c *fakeConn) sent() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]emitted(nil), c.emits...)
}

// fakeDialer records every transport it opens.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) dial(token string) DialFunc {
	return func(_ context.Context, onFrame socket.FrameHandler) Conn {
		d.mu.Lock()
		defer d.mu.Unlock()
		c := &fakeConn{onFrame: onFrame, status: model.Connected, token: token}
		d.conns = append(d.conns, c)
		return c
	}
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeAuth struct {
	id    model.Identity
	token string
	err   error
}

func (a *fakeAuth) Login(context.Context, backend.Credentials) (model.Identity, string, error) {
	return a.id, a.token, a.err
}

type fakeGetter struct {
	mu    sync.Mutex
	calls []url.Values
	body  string
}

func (g *fakeGetter) Get(_ context.Context, _ string, q url.Values, _ string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, q)
	return []byte(g.body), nil
}

var internalUser = model.Identity{IsAuthenticated: true, Role: model.RoleInternalUser, UserID: 42}

func testConfig() *config.Config {
	return &config.Config{
		Store:    config.StoreConfig{MaxMessages: 100},
		Sessions: config.SessionsConfig{Max: 8},
		Grid:     config.GridConfig{TablesPerSession: 4, DefaultPageSize: 10},
	}
}

func newTestRegistry(t *testing.T, cfg *config.Config, dialer *fakeDialer, auth Authenticator, getter *fakeGetter) (*SessionRegistry, *registry.Hub) {
	t.Helper()
	hub := registry.NewHub(registry.WithEvictionInterval(0))
	t.Cleanup(hub.Shutdown)

	if getter == nil {
		getter = &fakeGetter{}
	}
	r, err := NewSessionRegistry(cfg, auth, getter, hub, pubsub.NewNopDispatcher(), route.NewTable(nil), dialer.dial, discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r, hub
}
