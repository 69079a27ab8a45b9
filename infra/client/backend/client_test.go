package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, grid config.GridConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return NewWithHTTP(base, srv.Client(), grid, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_GetSendsQueryAndToken(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}), config.GridConfig{Timeout: time.Second})

	body, err := c.Get(context.Background(), "orders", url.Values{"page": {"2"}}, "tkn")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "/orders", gotPath)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, "Bearer tkn", gotAuth)
}

func TestClient_StatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}), config.GridConfig{})

	_, err := c.Get(context.Background(), "orders", nil, "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), config.GridConfig{Breaker: config.BreakerConfig{ConsecutiveFailures: 2, Timeout: time.Minute}})

	for range 2 {
		_, err := c.Get(context.Background(), "orders", nil, "")
		require.Error(t, err)
	}
	_, err := c.Get(context.Background(), "orders", nil, "")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), config.GridConfig{Breaker: config.BreakerConfig{ConsecutiveFailures: 1}})

	for range 3 {
		_, err := c.Get(context.Background(), "orders", nil, "")
		var se *StatusError
		require.ErrorAs(t, err, &se)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_Timeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), config.GridConfig{Timeout: 50 * time.Millisecond})

	_, err := c.Get(context.Background(), "orders", nil, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var creds Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ops@example.com", creds.Email)
		_, _ = w.Write([]byte(`{"access_token":"abc","user":{"id":7,"role":"InternalUser"}}`))
	}), config.GridConfig{})

	id, token, err := c.Login(context.Background(), Credentials{Email: "ops@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.Equal(t, model.Identity{IsAuthenticated: true, Role: model.RoleInternalUser, UserID: 7}, id)
}

func TestClient_LoginUnknownRoleIsCustomer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc","user":{"id":1,"role":"Admin"}}`))
	}), config.GridConfig{})

	id, _, err := c.Login(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.False(t, id.IsPrivileged())
}

func TestClient_LoginWithoutToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1}}`))
	}), config.GridConfig{})

	_, _, err := c.Login(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrNoToken)
}
