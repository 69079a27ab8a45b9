/*
Package registry fans console events out to the browser viewers of a session.

Key Architectural Concepts:
  - Virtual Cells: every live session is represented by an isolated 'Cell' (Actor) that
    owns all viewer streams (tabs, long-poll requests) attached to that session.
  - Decoupling & Backpressure: each cell has its own mailbox, so a slow browser never
    blocks the socket reader that mutates the message store.
  - Computational Efficiency: events are marshaled once per event and cached on the
    event itself, whatever the number of viewers.
  - Concurrency Management: lock-free cell lookup via sync.Map and a per-cell RWMutex
    for the viewer set.
*/
package registry

import (
	"sync"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/google/uuid"
)

// Celler defines the internal API for session-specific delivery units.
type Celler interface {
	Push(ev event.Eventer) bool
	Attach(conn Connector)
	Detach(connID uuid.UUID) bool
	Len() int
	IsIdle(timeout time.Duration) bool
	Stop()
}

// Cell implements [ISOLATED_DELIVERY] logic for a single session.
type Cell struct {
	// [IDENTITY]
	sessionID uuid.UUID

	// [MAILBOX]
	// Buffered channel between the hub and the per-viewer send buffers.
	mailbox chan event.Eventer

	// [SESSIONS]
	// Every viewer stream currently attached to the session.
	viewers map[uuid.UUID]Connector

	mu sync.RWMutex

	// [LIFECYCLE_CONTROL]
	doneCh   chan struct{}
	stopOnce sync.Once

	sendTimeout    time.Duration
	lastActivityAt time.Time
}

func NewCell(sessionID uuid.UUID, bufferSize int, sendTimeout time.Duration) *Cell {
	c := &Cell{
		sessionID:      sessionID,
		mailbox:        make(chan event.Eventer, bufferSize), // [DYNAMIC_BUFFER]
		viewers:        make(map[uuid.UUID]Connector),
		doneCh:         make(chan struct{}),
		sendTimeout:    sendTimeout,
		lastActivityAt: time.Now(),
	}
	go c.loop()
	return c
}

// IsIdle returns true if the session has no viewers and hasn't received events lately.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.viewers) == 0 && time.Since(c.lastActivityAt) > timeout
}

func (c *Cell) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.viewers)
}

func (c *Cell) touch() {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	c.mu.Unlock()
}

func (c *Cell) Push(ev event.Eventer) bool {
	c.touch()
	select {
	case <-c.doneCh:
		return false
	case c.mailbox <- ev:
		return true
	default:
		return false
	}
}

func (c *Cell) Attach(conn Connector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivityAt = time.Now()
	c.viewers[conn.GetID()] = conn
}

// Detach removes and closes a viewer. Reports whether the cell is now empty.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.viewers[connID]; ok {
		conn.Close()
		delete(c.viewers, connID)
	}
	c.lastActivityAt = time.Now()
	return len(c.viewers) == 0
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case ev := <-c.mailbox:
			c.deliver(ev)
		}
	}
}

func (c *Cell) deliver(ev event.Eventer) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, conn := range c.viewers {
		conn.Send(ev, c.sendTimeout)
	}
}

// Stop terminates the mailbox loop and closes every attached viewer.
func (c *Cell) Stop() {
	c.stopOnce.Do(func() {
		close(c.doneCh)

		c.mu.Lock()
		defer c.mu.Unlock()
		for id, conn := range c.viewers {
			conn.Close()
			delete(c.viewers, id)
		}
	})
}
