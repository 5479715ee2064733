// Package constants defines application-wide constants for timeouts, limits, and event names.
package constants

import "time"

// Time-related constants
const (
	// DefaultCallTimeout is how long a call may ring before it times out
	DefaultCallTimeout = 30 * time.Second

	// DefaultProviderTimeout bounds one upstream TURN provider request
	DefaultProviderTimeout = 5 * time.Second

	// WebSocketPongWait is how long a connection may stay silent before it is considered dead
	WebSocketPongWait = 60 * time.Second

	// WebSocketPingInterval must be shorter than WebSocketPongWait
	WebSocketPingInterval = (WebSocketPongWait * 9) / 10

	// WebSocketWriteWait is the deadline for a single frame write
	WebSocketWriteWait = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second

	// ProviderBreakerCooldown is how long a tripped TURN provider is skipped
	ProviderBreakerCooldown = 30 * time.Second

	// PresenceTTL is how long a mirrored presence key lives without refresh
	PresenceTTL = 5 * time.Minute
)

// Limits
const (
	// DefaultMaxConnections caps concurrent signaling WebSocket connections
	DefaultMaxConnections = 1000

	// WebSocketSendBuffer is the per-connection outbound frame queue
	WebSocketSendBuffer = 256

	// WebSocketMaxMessageSize bounds inbound frames; SDP offers fit comfortably
	WebSocketMaxMessageSize = 64 * 1024

	// ProviderBreakerThreshold is the run of failures that trips a TURN provider
	ProviderBreakerThreshold = 3

	// PresenceMirrorBuffer is the queue size of pending Redis presence updates
	PresenceMirrorBuffer = 1024
)

// Credential TTLs in seconds
const (
	// StunFallbackTTL applies when only the static STUN list is returned
	StunFallbackTTL = 3600

	// MeteredTTL is the lifetime Metered credentials are trusted for
	MeteredTTL = 86400

	// DefaultTurnRESTTTL is the lifetime of locally signed coturn credentials
	DefaultTurnRESTTTL = 86400
)

// Provider names accepted in credential requests
const (
	ProviderTwilio  = "twilio"
	ProviderMetered = "metered"
	ProviderCoturn  = "coturn"

	// DefaultPreferredProvider is used when a request names none
	DefaultPreferredProvider = ProviderTwilio
)

// Call end reasons
const (
	ReasonUserDisconnected = "user_disconnected"
)

// Auth modes
const (
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)
