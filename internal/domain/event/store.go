package event

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/google/uuid"
)

var (
	_ Eventer    = (*SnapshotEvent)(nil)
	_ Eventer    = (*NoticeEvent)(nil)
	_ Exportable = (*NoticeEvent)(nil)
)

// SnapshotEvent carries the full store state after a mutation. Viewers re-render from it.
type SnapshotEvent struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  uuid.UUID      `json:"session_id"`
	Snapshot   model.Snapshot `json:"snapshot"`
	OccurredAt int64          `json:"occurred_at"`

	cached atomic.Value
}

func NewSnapshotEvent(sessionID uuid.UUID, snap model.Snapshot) *SnapshotEvent {
	return &SnapshotEvent{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Snapshot:   snap,
		OccurredAt: time.Now().UnixMilli(),
	}
}

func (e *SnapshotEvent) GetID() string              { return e.ID.String() }
func (e *SnapshotEvent) GetKind() EventKind         { return StoreChanged }
func (e *SnapshotEvent) GetSessionID() uuid.UUID    { return e.SessionID }
func (e *SnapshotEvent) GetPriority() EventPriority { return PriorityNormal }
func (e *SnapshotEvent) GetOccurredAt() int64       { return e.OccurredAt }
func (e *SnapshotEvent) GetPayload() any            { return &e.Snapshot }
func (e *SnapshotEvent) GetCached() any             { return e.cached.Load() }
func (e *SnapshotEvent) SetCached(v any)            { e.cached.Store(v) }

// NoticeEvent is the transient user-facing notice raised for every pushed message.
//
// [ROUTING]
// SessionID picks the local viewers; UserID is carried for the bus so other consumers
// can correlate notices with the backend account.
type NoticeEvent struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  uuid.UUID      `json:"session_id"`
	UserID     int64          `json:"user_id"`
	Message    *model.Message `json:"message"`
	OccurredAt int64          `json:"occurred_at"`

	cached atomic.Value
}

func NewNoticeEvent(sessionID uuid.UUID, userID int64, msg *model.Message) *NoticeEvent {
	return &NoticeEvent{
		ID:         uuid.New(),
		SessionID:  sessionID,
		UserID:     userID,
		Message:    msg,
		OccurredAt: time.Now().UnixMilli(),
	}
}

func (e *NoticeEvent) GetID() string              { return e.ID.String() }
func (e *NoticeEvent) GetKind() EventKind         { return MessageNotice }
func (e *NoticeEvent) GetSessionID() uuid.UUID    { return e.SessionID }
func (e *NoticeEvent) GetPriority() EventPriority { return PriorityHigh }
func (e *NoticeEvent) GetOccurredAt() int64       { return e.OccurredAt }
func (e *NoticeEvent) GetPayload() any            { return e.Message }
func (e *NoticeEvent) GetCached() any             { return e.cached.Load() }
func (e *NoticeEvent) SetCached(v any)            { e.cached.Store(v) }

// Body is the text shown in the transient notice.
func (e *NoticeEvent) Body() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Body
}

// GetRoutingKey builds the bus topic.
// [PATTERN] console.v1.{user_id}.{queue}.{type}.notice
func (e *NoticeEvent) GetRoutingKey() string {
	if e.Message == nil {
		return ""
	}
	typ := string(e.Message.Type)
	if typ == "" {
		typ = "unknown"
	}
	return fmt.Sprintf("console.v1.%s.%s.%s.notice", strconv.FormatInt(e.UserID, 10), e.Message.Queue(), typ)
}

// SnapshotGate drops snapshots a viewer has already rendered or that were overtaken
// by a newer one (priming races the cell mailbox). Other events always pass.
// Not safe for concurrent use; each viewer pump owns one.
type SnapshotGate struct {
	seen    bool
	version uint64
}

// NewSnapshotGate starts a gate that already rendered version since (0 means nothing).
func NewSnapshotGate(since uint64) *SnapshotGate {
	return &SnapshotGate{seen: since > 0, version: since}
}

func (g *SnapshotGate) Admit(ev Eventer) bool {
	snap, ok := ev.(*SnapshotEvent)
	if !ok {
		return true
	}
	if g.seen && snap.Snapshot.Version <= g.version {
		return false
	}
	g.seen, g.version = true, snap.Snapshot.Version
	return true
}
