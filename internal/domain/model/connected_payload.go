package model

// ConnectedPayload is the handshake sent to a browser viewer once its stream is attached.
type ConnectedPayload struct {
	Ok           bool   `json:"ok"`
	ConnectionID string `json:"connection_id"`
	SessionID    string `json:"session_id"`
	Status       string `json:"transport_status"`
}
