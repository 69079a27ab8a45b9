package httphandler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/socket"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/adapter/pubsub"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/registry"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/lp"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/middleware"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/ws"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn is an in-memory backend socket.
type pipeConn struct {
	mu      sync.Mutex
	onFrame socket.FrameHandler
	emits   []string
}

func (c *pipeConn) Emit(key string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emits = append(c.emits, key)
	return nil
}
func (c *pipeConn) Status() model.ConnStatus { return model.Connected }
func (c *pipeConn) Close() error             { return nil }

func (c *pipeConn) attach(onFrame socket.FrameHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = onFrame
}

func (c *pipeConn) push(t *testing.T, key string, value any) {
	t.Helper()
	c.mu.Lock()
	onFrame := c.onFrame
	c.mu.Unlock()

	raw, err := json.Marshal(value)
	require.NoError(t, err)
	frame, err := json.Marshal(model.Frame{Key: key, Value: raw})
	require.NoError(t, err)
	onFrame(frame)
}

func (c *pipeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.emits...)
}

type harness struct {
	srv  *httptest.Server
	conn *pipeConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var creds backend.Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret" {
				http.Error(w, "bad credentials", http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"tkn","user":{"id":42,"role":"InternalUser"}}`))
		case "/orders":
			_, _ = w.Write([]byte(`{"data":[{"id":1},{"id":2}],"meta":{"totalItems":12,"totalPages":6}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(backendSrv.Close)

	cfg := &config.Config{
		HTTP:     config.HTTPConfig{PollTimeout: 200 * time.Millisecond},
		Store:    config.StoreConfig{MaxMessages: 100},
		Sessions: config.SessionsConfig{Max: 8},
		Grid:     config.GridConfig{TablesPerSession: 4, DefaultPageSize: 2, Timeout: time.Second},
		Hub:      config.HubConfig{ViewerBuffer: 16, SendTimeout: 100 * time.Millisecond},
	}
	base, _ := url.Parse(backendSrv.URL)
	client := backend.NewWithHTTP(base, backendSrv.Client(), cfg.Grid, logger)

	h := &harness{conn: &pipeConn{}}
	dialer := func(string) service.DialFunc {
		return func(_ context.Context, onFrame socket.FrameHandler) service.Conn {
			h.conn.attach(onFrame)
			return h.conn
		}
	}

	hub := registry.NewHub(registry.WithEvictionInterval(0))
	sessions, err := service.NewSessionRegistry(cfg, client, client, hub, pubsub.NewNopDispatcher(), route.NewTable(nil), dialer, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		sessions.Close()
		hub.Shutdown()
	})

	deliver := service.NewDeliveryService(hub, cfg)
	router := NewRouter(
		NewAPI(sessions, cfg, logger),
		ws.NewWSHandler(logger, deliver),
		lp.NewLPHandler(deliver, cfg),
		logger,
	)
	h.srv = httptest.NewServer(router)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, sid, body string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rdr)
	require.NoError(t, err)
	if sid != "" {
		req.Header.Set(middleware.SessionHeader, sid)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/session", "", `{"email":"ops@example.com","password":"secret"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out struct {
		SessionID string         `json:"session_id"`
		Identity  model.Identity `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Identity.IsPrivileged())
	return out.SessionID
}

func TestAPI_LoginRejected(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(t, http.MethodPost, "/api/session", "", `{"email":"x","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/session", "", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RequiresSession(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodGet, "/api/notifications", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)

	resp, _ = h.do(t, http.MethodGet, "/api/notifications", "0b6d3c4e-8a2f-4a51-9b1e-0c2f7d9a1e55", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_NotificationFlow(t *testing.T) {
	h := newHarness(t)
	sid := h.login(t)

	h.conn.push(t, model.KeyInitialMessage, model.InitialPayload{
		DefaultTotal: 2,
		BoardTotal:   1,
		LastMessages: []model.Message{
			{ID: 2, Type: model.NewOrder, Data: json.RawMessage(`{"order_id":77}`)},
			{ID: 1, Type: model.NewReview, Group: model.QueueBoard},
		},
	})

	resp, body := h.do(t, http.MethodGet, "/api/notifications", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Badge       int             `json:"badge"`
		BoardUnread int             `json:"board_unread"`
		Messages    []model.Message `json:"messages"`
		Status      string          `json:"transport_status"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 2, view.Badge)
	assert.Equal(t, 1, view.BoardUnread)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "connected", view.Status)

	resp, body = h.do(t, http.MethodPost, "/api/notifications/2/open", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"url":"/orders/77"}`, string(body))

	resp, _ = h.do(t, http.MethodPost, "/api/notifications/999/open", sid, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/notifications/read-all", sid, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = h.do(t, http.MethodGet, "/api/notifications", sid, "")
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 0, view.Badge)
	assert.Equal(t, 1, view.BoardUnread)

	assert.Equal(t, []string{model.KeyMessageViewed, model.KeyAllDefaultGroupViewed}, h.conn.sent())
}

func TestAPI_Grid(t *testing.T) {
	h := newHarness(t)
	sid := h.login(t)

	resp, body := h.do(t, http.MethodGet, "/api/grid/orders?page=2&sorting="+url.QueryEscape(`[{"id":"id","desc":true}]`), sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var view struct {
		State         string            `json:"state"`
		Rows          []json.RawMessage `json:"rows"`
		TotalRowCount int               `json:"totalRowCount"`
		IsError       bool              `json:"isError"`
		Query         model.GridQuery   `json:"query"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "ready", view.State)
	assert.Len(t, view.Rows, 2)
	assert.Equal(t, 12, view.TotalRowCount)
	assert.Equal(t, 1, view.Query.PageIndex)
	assert.Equal(t, 2, view.Query.PageSize)

	// Backend 404 surfaces as a table error, not an HTTP failure.
	resp, body = h.do(t, http.MethodGet, "/api/grid/missing", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.IsError)

	resp, _ = h.do(t, http.MethodGet, "/api/grid/orders?pageSize=0", sid, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/grid/Orders", sid, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_StreamDeliversSnapshotsAndNotices(t *testing.T) {
	h := newHarness(t)
	sid := h.login(t)

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/stream?session_id=" + sid
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	next := func() (string, json.RawMessage) {
		t.Helper()
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, c.ReadJSON(&env))
		return env.Event, env.Payload
	}

	// The priming snapshot is queued at subscribe time, before the handshake frame.
	seen := map[string]bool{}
	for len(seen) < 2 {
		ev, _ := next()
		seen[ev] = true
	}
	assert.True(t, seen["connected"])
	assert.True(t, seen["notifications"])

	h.conn.push(t, model.KeyNewMessage, model.Message{ID: 5, Type: model.NewOrder, Body: "Order #5 placed"})

	for {
		ev, payload := next()
		if ev == "notice" {
			assert.Contains(t, string(payload), "Order #5 placed")
			break
		}
	}
}

func TestAPI_PollAndLogout(t *testing.T) {
	h := newHarness(t)
	sid := h.login(t)

	resp, body := h.do(t, http.MethodGet, "/api/poll", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"event":"notifications"`)

	// Already rendered everything up to version 1000: nothing new arrives.
	resp, _ = h.do(t, http.MethodGet, "/api/poll?since=1000", sid, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/session", sid, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/notifications", sid, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Stats(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	resp, body := h.do(t, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats model.HubStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.LiveSockets)
}
