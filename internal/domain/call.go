package domain

import (
	"time"
)

// CallStatus represents the negotiation state of a call session
type CallStatus string

const (
	CallStatusRinging   CallStatus = "ringing"
	CallStatusAnswered  CallStatus = "answered"
	CallStatusConnected CallStatus = "connected"

	// Terminal statuses are reported in metrics and logs only.
	// Sessions reaching them are removed from the store immediately.
	CallStatusRejected CallStatus = "rejected"
	CallStatusEnded    CallStatus = "ended"
	CallStatusTimedOut CallStatus = "timed_out"
)

// IsTerminal reports whether a session in this status must leave the store
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusRejected, CallStatusEnded, CallStatusTimedOut:
		return true
	}
	return false
}

// CallSession represents one in-progress call between two participants
type CallSession struct {
	CallID       string     `json:"callId"`
	CallerID     string     `json:"callerId"`
	TargetUserID string     `json:"targetUserId"`
	ScheduleID   string     `json:"scheduleId,omitempty"`
	CallType     string     `json:"callType,omitempty"`
	Status       CallStatus `json:"status"`
	StartTime    time.Time  `json:"startTime"`
}

// HasParticipant reports whether userID is the caller or the target
func (c *CallSession) HasParticipant(userID string) bool {
	return userID != "" && (c.CallerID == userID || c.TargetUserID == userID)
}

// OtherParticipant returns the participant that is not userID.
// Anyone other than the caller is treated as the target side.
func (c *CallSession) OtherParticipant(userID string) string {
	if userID == c.CallerID {
		return c.TargetUserID
	}
	return c.CallerID
}
