package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/google/uuid"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (HUB, WS AND LONG-POLL HANDLERS)
type Connector interface {
	GetID() uuid.UUID
	GetSessionID() uuid.UUID
	Send(ev event.Eventer, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan event.Eventer
	Dropped() uint64
	Close() // Terminate the viewer stream and release resources
}

// [METADATA] EXPORTED FOR TRANSPORT LAYERS
type ConnectMetadata struct {
	Transport string // "ws" or "lp"
	RemoteIP  string
	UserAgent string
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id        uuid.UUID
	sessionID uuid.UUID
	metadata  ConnectMetadata
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc

	// mu guards sendCh against close-while-sending.
	mu     sync.RWMutex
	closed bool
	sendCh chan event.Eventer

	closeOnce    sync.Once
	droppedCount atomic.Uint64
}

// NewConnector creates a viewer stream bound to ctx; cancelling ctx stops pending sends.
func NewConnector(ctx context.Context, sessionID uuid.UUID, bufferSize int, meta ConnectMetadata) Connector {
	childCtx, cancel := context.WithCancel(ctx)
	return &connect{
		id:        uuid.New(),
		sessionID: sessionID,
		metadata:  meta,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan event.Eventer, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID        { return c.id }
func (c *connect) GetSessionID() uuid.UUID { return c.sessionID }
func (c *connect) Dropped() uint64         { return c.droppedCount.Load() }

// Send attempts to push an event into the viewer buffer.
// If the buffer stays full for the whole timeout, lower priority events are shed.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	// 1. [LIFECYCLE_GATE] Abort if the viewer is already gone.
	case <-c.ctx.Done():
		return false

	// 2. [PRIMARY_DELIVERY]
	case c.sendCh <- ev:
		return true

	// 3. [BACKPRESSURE_THRESHOLD] Buffer saturated for the entire window.
	case <-timer.C:
		return c.handleBackpressure(ev)
	}
}

// handleBackpressure manages full buffers by dropping low-priority events.
// Called with mu read-locked.
func (c *connect) handleBackpressure(ev event.Eventer) bool {
	if ev.GetPriority() <= event.PriorityLow {
		c.droppedCount.Add(1)
		return false
	}

	// Evict one buffered event if it is less important than the incoming one.
	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			select {
			case c.sendCh <- ev:
				c.droppedCount.Add(1) // the evicted one
				return true
			default:
			}
		} else {
			select {
			case c.sendCh <- oldEv:
			default:
			}
		}
	default:
	}

	c.droppedCount.Add(1)
	return false
}

func (c *connect) Recv() <-chan event.Eventer { return c.sendCh }

// Close terminates the stream. Safe to call from the hub, the cell and the handler.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		// [SIGNAL_ABORT] Wake up any Send blocked on a full buffer before taking the lock.
		c.cancelFn()

		c.mu.Lock()
		c.closed = true
		// [UPSTREAM_NOTIFY] Handlers observe !ok on Recv and exit their pump loop.
		close(c.sendCh)
		c.mu.Unlock()
	})
}
