package registry

import (
	"sync"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/google/uuid"
)

// Hubber defines the gateway for viewer management and event routing.
type Hubber interface {
	Broadcast(ev event.Eventer) bool
	Register(conn Connector)
	Unregister(sessionID, connID uuid.UUID)
	Disconnect(sessionID uuid.UUID)
	IsConnected(sessionID uuid.UUID) bool
	Stats() (sessions, viewers int)
	Shutdown()
}

type hubConfig struct {
	evictionInterval time.Duration
	idleTimeout      time.Duration
	mailboxSize      int
	sendTimeout      time.Duration
}

// Hub implements a [SCALABLE_REGISTRY] using the Virtual Cell pattern.
type Hub struct {
	// cells stores Map[uuid.UUID]Celler. Optimized for [READ_HEAVY] workloads.
	cells  sync.Map
	config hubConfig

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			evictionInterval: 5 * time.Minute,
			idleTimeout:      10 * time.Minute,
			mailboxSize:      256,
			sendTimeout:      500 * time.Millisecond,
		},
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.config.evictionInterval > 0 {
		go h.janitor()
	}
	return h
}

func (h *Hub) IsConnected(sessionID uuid.UUID) bool {
	_, ok := h.cells.Load(sessionID)
	return ok
}

// Broadcast routes event to the session's [CELL]. Returns false on miss or overflow.
func (h *Hub) Broadcast(ev event.Eventer) bool {
	if val, ok := h.cells.Load(ev.GetSessionID()); ok {
		if cell, ok := val.(Celler); ok {
			return cell.Push(ev)
		}
	}
	return false
}

// Register ensures [IDEMPOTENT] cell creation and attaches a new viewer.
func (h *Hub) Register(conn Connector) {
	sID := conn.GetSessionID()
	if val, ok := h.cells.Load(sID); ok {
		val.(Celler).Attach(conn)
		return
	}

	// [LAZY_INIT] Create cell only when the first viewer arrives.
	fresh := NewCell(sID, h.config.mailboxSize, h.config.sendTimeout)
	val, loaded := h.cells.LoadOrStore(sID, fresh)
	if loaded {
		fresh.Stop()
	}
	val.(Celler).Attach(conn)
}

// Unregister performs [GRACEFUL_RECLAMATION] of resources when a viewer leaves.
func (h *Hub) Unregister(sessionID, connID uuid.UUID) {
	if val, ok := h.cells.Load(sessionID); ok {
		if cell, ok := val.(Celler); ok {
			if cell.Detach(connID) {
				h.cells.CompareAndDelete(sessionID, val)
				cell.Stop()
			}
		}
	}
}

// Disconnect drops every viewer of a session (logout, eviction).
func (h *Hub) Disconnect(sessionID uuid.UUID) {
	if val, ok := h.cells.LoadAndDelete(sessionID); ok {
		val.(Celler).Stop()
	}
}

func (h *Hub) Stats() (sessions, viewers int) {
	h.cells.Range(func(_, val any) bool {
		sessions++
		viewers += val.(Celler).Len()
		return true
	})
	return sessions, viewers
}

// Shutdown stops the janitor and every cell.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.cells.Range(func(key, val any) bool {
			h.cells.Delete(key)
			val.(Celler).Stop()
			return true
		})
	})
}

// janitor evicts idle cells.
func (h *Hub) janitor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.cells.Range(func(key, val any) bool {
				if cell := val.(Celler); cell.IsIdle(h.config.idleTimeout) {
					if h.cells.CompareAndDelete(key, val) {
						cell.Stop()
					}
				}
				return true
			})
		}
	}
}
