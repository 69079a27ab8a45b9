package model

// Snapshot is an immutable copy of a session's message store, handed to observers.
type Snapshot struct {
	Version       uint64    `json:"version"`
	DefaultUnread int       `json:"default_unread"`
	BoardUnread   int       `json:"board_unread"`
	Messages      []Message `json:"messages"`
}

// Filter returns the messages of one queue, preserving order.
func (s Snapshot) Filter(q Queue) []Message {
	out := make([]Message, 0, len(s.Messages))
	for i := range s.Messages {
		if s.Messages[i].Queue() == q {
			out = append(out, s.Messages[i])
		}
	}
	return out
}

// Unread returns the counter of one queue.
func (s Snapshot) Unread(q Queue) int {
	if q == QueueBoard {
		return s.BoardUnread
	}
	return s.DefaultUnread
}
