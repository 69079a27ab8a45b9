package model

// DisconnectedPayload is the last frame a viewer receives before the stream is closed.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"` // "SHUTDOWN", "EVICTED", "LOGOUT"
}
