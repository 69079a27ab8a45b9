// Package marshaller maps hub events to the JSON shapes browser viewers consume.
package marshaller

import (
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

// Event names on the viewer channel.
const (
	EventConnected     = "connected"
	EventDisconnected  = "disconnected"
	EventNotifications = "notifications"
	EventNotice        = "notice"
	EventUnknown       = "unknown"
)

// Envelope is the common wrapper of every viewer message.
type Envelope struct {
	Event   string `json:"event"`
	ID      string `json:"id"`
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// NotificationsView is what the notification surface renders: badge plus lists.
type NotificationsView struct {
	Version     uint64          `json:"version"`
	Badge       int             `json:"badge"`
	BoardUnread int             `json:"board_unread"`
	Messages    []model.Message `json:"messages"`
	Board       []model.Message `json:"board"`
}

// NoticeView is the transient toast raised for a pushed message.
type NoticeView struct {
	ID    int64             `json:"id"`
	Type  model.MessageType `json:"type"`
	Queue model.Queue       `json:"queue"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body"`
}

func NewNotificationsView(snap model.Snapshot) NotificationsView {
	return NotificationsView{
		Version:     snap.Version,
		Badge:       snap.DefaultUnread,
		BoardUnread: snap.BoardUnread,
		Messages:    snap.Filter(model.QueueDefault),
		Board:       snap.Filter(model.QueueBoard),
	}
}

// MapEvent resolves the viewer-facing name and payload of a hub event.
func MapEvent(ev event.Eventer) Envelope {
	env := Envelope{
		ID:     ev.GetID(),
		SentAt: ev.GetOccurredAt(),
	}

	switch p := ev.GetPayload().(type) {
	case *model.Snapshot:
		env.Event = EventNotifications
		env.Payload = NewNotificationsView(*p)
	case *model.Message:
		env.Event = EventNotice
		env.Payload = NoticeView{ID: p.ID, Type: p.Type, Queue: p.Queue(), Title: p.Title, Body: p.Body}
	case *model.ConnectedPayload:
		env.Event = EventConnected
		env.Payload = p
	case *model.DisconnectedPayload:
		env.Event = EventDisconnected
		env.Payload = p
	default:
		env.Event = EventUnknown
		env.Payload = p
	}
	return env
}
