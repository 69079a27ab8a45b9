package model

import "encoding/json"

// Frame keys understood on the real-time channel.
const (
	KeyNewMessage     = "new_message"
	KeyInitialMessage = "initial_message"

	KeyMessageViewed         = "message_viewed"
	KeyAllDefaultGroupViewed = "all_default_group_messages_viewed"
)

// Frame is the wire envelope used in both directions: {"key": ..., "value": ...}.
type Frame struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// InitialPayload is the full-state sync pushed right after the socket connects.
type InitialPayload struct {
	DefaultTotal int       `json:"default_total"`
	BoardTotal   int       `json:"board_total"`
	LastMessages []Message `json:"last_messages"`
}

// ViewedPayload is the read receipt for a single message.
type ViewedPayload struct {
	ID       int64 `json:"id"`
	IsViewed bool  `json:"is_viewed"`
}

// BulkViewedPayload marks every message of the default group as read.
type BulkViewedPayload struct {
	IsViewed bool `json:"is_viewed"`
}
