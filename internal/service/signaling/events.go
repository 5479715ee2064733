package signaling

import (
	"bytes"
	"encoding/json"
)

// Inbound event names
const (
	EventRegisterUser       = "register_user"
	EventUpdateAvailability = "update_availability"
	EventCallInitiate       = "call_initiate"
	EventCallAnswer         = "call_answer"
	EventCallReject         = "call_reject"
	EventCallEnd            = "call_end"
	EventWebRTCOffer        = "webrtc_offer"
	EventWebRTCAnswer       = "webrtc_answer"
	EventWebRTCICECandidate = "webrtc_ice_candidate"
)

// Outbound-only event names. webrtc_* events are relayed under their inbound names.
const (
	EventRegistrationSuccess = "registration_success"
	EventCallIncoming        = "call_incoming"
	EventCallAnswered        = "call_answered"
	EventCallRejected        = "call_rejected"
	EventCallEnded           = "call_ended"
	EventCallTimeout         = "call_timeout"
)

// looseString decodes a JSON string or number into a string.
// Clients send scheduleId either way.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type registerUserPayload struct {
	UserID string `json:"userId"`
}

type updateAvailabilityPayload struct {
	UserID      string `json:"userId"`
	IsAvailable bool   `json:"isAvailable"`
}

type callInitiatePayload struct {
	CallID       string          `json:"callId"`
	CallerID     string          `json:"callerId"`
	TargetUserID string          `json:"targetUserId"`
	ScheduleID   looseString     `json:"scheduleId"`
	CallType     looseString     `json:"callType"`
	Offer        json.RawMessage `json:"offer"`
}

// callActionPayload is shared by call_answer, call_reject and call_end
type callActionPayload struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

type webrtcOfferPayload struct {
	CallID string          `json:"callId"`
	Offer  json.RawMessage `json:"offer"`
}

type webrtcAnswerPayload struct {
	CallID string          `json:"callId"`
	Answer json.RawMessage `json:"answer"`
}

type iceCandidatePayload struct {
	CallID    string          `json:"callId"`
	Candidate json.RawMessage `json:"candidate"`
}

// RegistrationSuccess confirms the identity a connection was registered under
type RegistrationSuccess struct {
	UserID string `json:"userId"`
}

// CallIncoming notifies the target of a new call
type CallIncoming struct {
	CallID     string          `json:"callId"`
	CallerID   string          `json:"callerId"`
	ScheduleID string          `json:"scheduleId"`
	CallType   string          `json:"callType"`
	Offer      json.RawMessage `json:"offer"`
}

// CallParticipantEvent is the payload of call_answered and call_rejected
type CallParticipantEvent struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

// CallEnded is sent when a call is hung up or a participant disconnects
type CallEnded struct {
	CallID string `json:"callId"`
	UserID string `json:"userId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CallTimeout is sent to both participants when ringing expires
type CallTimeout struct {
	CallID string `json:"callId"`
}

// WebRTCOffer relays an SDP offer
type WebRTCOffer struct {
	CallID string          `json:"callId"`
	Offer  json.RawMessage `json:"offer"`
}

// WebRTCAnswer relays an SDP answer
type WebRTCAnswer struct {
	CallID string          `json:"callId"`
	Answer json.RawMessage `json:"answer"`
}

// ICECandidate relays one ICE candidate
type ICECandidate struct {
	CallID    string          `json:"callId"`
	Candidate json.RawMessage `json:"candidate"`
}
