package domain

// ICEServer is one STUN or TURN entry in the shape WebRTC clients consume
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// CredentialSet is a freshly vended, immutable list of ICE servers
type CredentialSet struct {
	ICEServers []ICEServer `json:"iceServers"`
	TTL        int64       `json:"ttl"` // seconds
	UserID     string      `json:"userId,omitempty"`
	Timestamp  int64       `json:"timestamp"` // unix millis
}
