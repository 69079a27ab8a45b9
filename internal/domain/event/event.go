package event

import (
	"fmt"

	"github.com/google/uuid"
)

type EventKind int16

const (
	Connected     EventKind = iota + 1 // [SYSTEM]
	Disconnected                       // [SYSTEM]
	StoreChanged                       // [STATE]
	MessageNotice                      // [BUSINESS]
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case StoreChanged:
		return "store_changed"
	case MessageNotice:
		return "message_notice"
	default:
		return fmt.Sprintf("EventKind(%d)", int16(k))
	}
}

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all data packets flowing through the viewer Hub.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetSessionID() uuid.UUID
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	GetCached() any
	SetCached(any)
}

// Exportable defines an event that should be re-published to the message bus.
type Exportable interface {
	// An empty key means the event is not ready to be exported and the relay skips it.
	GetRoutingKey() string
}
