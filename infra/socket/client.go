// Package socket is the client side of the backend's real-time notification channel.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrClosed       = errors.New("socket: client closed")
	ErrNotConnected = errors.New("socket: not connected")
)

// FrameHandler is invoked once per inbound text frame, in arrival order, on the
// client's reader goroutine.
type FrameHandler func(raw []byte)

type Options struct {
	Endpoint      string
	Header        http.Header
	WriteTimeout  time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	Dialer        *websocket.Dialer
	Logger        *slog.Logger
}

func (o *Options) withDefaults() {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectMax < o.ReconnectBase {
		o.ReconnectMax = 30 * time.Second
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Client keeps one logical connection alive: it dials, reads frames, and redials
// with exponential backoff after drops until Close is called.
type Client struct {
	opts    Options
	onFrame FrameHandler
	logger  *slog.Logger

	status atomic.Int32

	// [WRITER] gorilla allows one concurrent writer; wmu serializes emits.
	wmu  sync.Mutex
	cmu  sync.Mutex
	conn *websocket.Conn

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	dials atomic.Uint64
}

// Dial starts the connection loop and returns immediately. The first connect
// happens in the background; failures are logged and retried, never returned.
func Dial(ctx context.Context, opts Options, onFrame FrameHandler) *Client {
	opts.withDefaults()
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Client{
		opts:    opts,
		onFrame: onFrame,
		logger:  opts.Logger.With(slog.String("endpoint", opts.Endpoint)),
		ctx:     cctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.status.Store(int32(model.Connecting))
	go c.run()
	return c
}

func (c *Client) Status() model.ConnStatus { return model.ConnStatus(c.status.Load()) }

// Dials reports how many handshakes were attempted.
func (c *Client) Dials() uint64 { return c.dials.Load() }

// Emit sends one {key, value} frame. Delivery is at-most-once: nothing is queued
// while the socket is down.
func (c *Client) Emit(key string, value any) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("socket: encode %s: %w", key, err)
	}
	data, err := json.Marshal(model.Frame{Key: key, Value: raw})
	if err != nil {
		return fmt.Errorf("socket: encode frame %s: %w", key, err)
	}

	c.cmu.Lock()
	conn := c.conn
	c.cmu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("socket: write %s: %w", key, err)
	}
	return nil
}

// Close stops the loop, closes the live connection and waits until no more
// frames can be delivered. Must not be called from the FrameHandler.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.cmu.Lock()
		if c.conn != nil {
			c.wmu.Lock()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(time.Second))
			c.wmu.Unlock()
			_ = c.conn.Close()
		}
		c.cmu.Unlock()
	})
	<-c.done
	return nil
}

func (c *Client) run() {
	defer close(c.done)
	defer c.status.Store(int32(model.Disconnected))

	attempt := 0
	for c.ctx.Err() == nil {
		c.status.Store(int32(model.Connecting))
		conn, err := c.dial()
		if err != nil {
			c.status.Store(int32(model.Disconnected))
			delay := Backoff(c.opts.ReconnectBase, c.opts.ReconnectMax, attempt)
			c.logger.Warn("socket dial failed", slog.Any("err", err), slog.Int("attempt", attempt+1), slog.Duration("retry_in", delay))
			attempt++
			if !c.sleep(delay) {
				return
			}
			continue
		}
		attempt = 0

		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
		c.status.Store(int32(model.Connected))
		c.logger.Info("socket connected")

		err = c.readLoop(conn)

		c.detach()
		_ = conn.Close()
		c.status.Store(int32(model.Disconnected))
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn("socket dropped", slog.Any("err", err))
		if !c.sleep(Backoff(c.opts.ReconnectBase, c.opts.ReconnectMax, 0)) {
			return
		}
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	ctx, span := otel.Tracer("console/socket").Start(c.ctx, "socket.dial")
	defer span.End()
	span.SetAttributes(attribute.String("socket.endpoint", c.opts.Endpoint))

	c.dials.Add(1)
	conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.Endpoint, c.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, err
	}
	return conn, nil
}

// attach publishes conn for writers unless Close already ran.
func (c *Client) attach(conn *websocket.Conn) bool {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	if c.ctx.Err() != nil {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) detach() {
	c.cmu.Lock()
	c.conn = nil
	c.cmu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if typ != websocket.TextMessage {
			continue
		}
		if c.ctx.Err() != nil {
			return ErrClosed
		}
		c.onFrame(data)
	}
}

func (c *Client) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Backoff computes base * 2^attempt capped at max, with ±10% jitter.
func Backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	jitter := (rand.Float64() - 0.5) * 2 * delay * 0.1
	delay += jitter
	if delay < float64(base)/2 {
		delay = float64(base) / 2
	}
	return time.Duration(delay)
}
