package model

import "encoding/json"

// MessageType is the server-side classification of a notification.
// The set is open on the wire; the values below are the ones the console routes.
type MessageType string

const (
	NewOrder    MessageType = "NewOrder"
	NewPayment  MessageType = "NewPayment"
	NewDelivery MessageType = "NewDelivery"
	NewReview   MessageType = "NewReview"
	NewQuestion MessageType = "NewQuestion"
)

// MessageTypes lists every type the notification surface knows how to route.
var MessageTypes = []MessageType{NewOrder, NewPayment, NewDelivery, NewReview, NewQuestion}

// Queue names one of the two logical message queues held per session.
type Queue string

const (
	QueueDefault Queue = "default"
	QueueBoard   Queue = "board"
)

// Queues is the closed set of queues, in display order.
var Queues = []Queue{QueueDefault, QueueBoard}

// Valid reports whether q is one of the known queues.
func (q Queue) Valid() bool {
	return q == QueueDefault || q == QueueBoard
}

// [MESSAGE] SERVER-PUSHED NOTIFICATION AS HELD BY THE STORE
type Message struct {
	ID        int64           `json:"id"`
	Type      MessageType     `json:"type"`
	Group     Queue           `json:"group,omitempty"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt string          `json:"created_at"`
	IsViewed  bool            `json:"is_viewed"`
}

// TypeQueues maps each routed type to the queue it is counted in. Every routed kind
// is a default-group event; board kinds are not enumerated by the backend and arrive
// tagged with group "board".
var TypeQueues = map[MessageType]Queue{
	NewOrder:    QueueDefault,
	NewPayment:  QueueDefault,
	NewDelivery: QueueDefault,
	NewReview:   QueueDefault,
	NewQuestion: QueueDefault,
}

// Queue resolves the queue a message belongs to: an explicit group wins, then the
// queue implied by the type, then the default queue.
func (m *Message) Queue() Queue {
	if m.Group.Valid() {
		return m.Group
	}
	if q, ok := TypeQueues[m.Type]; ok {
		return q
	}
	return QueueDefault
}
