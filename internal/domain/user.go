package domain

import (
	"time"
)

// Connection is the handle to one live client connection.
// Send must not block; implementations queue or drop.
type Connection interface {
	ID() string
	UserID() string
	SetUserID(userID string)
	Send(event string, payload interface{}) error
}

// UserPresence maps a stable user identity to its live connection
type UserPresence struct {
	UserID      string     `json:"userId"`
	Conn        Connection `json:"-"`
	IsAvailable bool       `json:"isAvailable"`
	ConnectedAt time.Time  `json:"connectedAt"`
}
