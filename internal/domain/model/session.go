package model

import "fmt"

// Role is the session's account kind as reported by the backend at login.
type Role string

const (
	RoleInternalUser Role = "InternalUser"
	RoleCustomerUser Role = "CustomerUser"
)

// Identity is the session identity created from the login response.
// The zero value is an anonymous, logged-out session.
type Identity struct {
	IsAuthenticated bool  `json:"is_authenticated"`
	Role            Role  `json:"role"`
	UserID          int64 `json:"user_id"`
}

// IsPrivileged reports whether the identity may hold a real-time connection.
func (i Identity) IsPrivileged() bool {
	return i.Role == RoleInternalUser
}

// ConnStatus is the lifecycle state of the real-time transport.
type ConnStatus int32

const (
	Disconnected ConnStatus = iota
	Connecting
	Connected
)

func (s ConnStatus) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnStatus(%d)", int32(s))
	}
}

// CredentialsMode controls whether the socket handshake carries the session credentials.
type CredentialsMode string

const (
	CredentialsInclude CredentialsMode = "include"
	CredentialsOmit    CredentialsMode = "omit"
)
