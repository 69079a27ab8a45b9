package model

import "time"

// HubStats is a point-in-time view of the viewer hub and the session registry.
type HubStats struct {
	TotalSessions    int           `json:"total_sessions"`
	TotalConnections int           `json:"total_connections"`
	LiveSockets      int           `json:"live_sockets"`
	Uptime           time.Duration `json:"uptime"`
}
