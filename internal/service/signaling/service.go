// Package signaling implements the call signaling relay: presence
// registration, the call state machine, and routing of WebRTC negotiation
// messages between the two participants of a call.
package signaling

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"signaling-relay/internal/domain"
	"signaling-relay/internal/repository/memory"
	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/logger"
)

// PresenceMirror receives presence changes for an external store
type PresenceMirror interface {
	Online(userID string, isAvailable bool)
	Offline(userID string)
}

// Recorder receives signaling metrics
type Recorder interface {
	RecordCall(callType, outcome string)
	SetActiveCalls(count int)
	SetRegisteredUsers(count int)
	RecordDroppedEvent(event, reason string)
	RecordRingDuration(duration time.Duration)
}

type nopMirror struct{}

func (nopMirror) Online(string, bool) {}
func (nopMirror) Offline(string)      {}

type nopRecorder struct{}

func (nopRecorder) RecordCall(string, string)         {}
func (nopRecorder) SetActiveCalls(int)                {}
func (nopRecorder) SetRegisteredUsers(int)            {}
func (nopRecorder) RecordDroppedEvent(string, string) {}
func (nopRecorder) RecordRingDuration(time.Duration)  {}

// Call outcomes reported to the Recorder
const (
	outcomeInitiated    = "initiated"
	outcomeAnswered     = "answered"
	outcomeConnected    = "connected"
	outcomeRejected     = "rejected"
	outcomeEnded        = "ended"
	outcomeTimedOut     = "timed_out"
	outcomeDisconnected = "disconnected"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	CallTimeout time.Duration
	Mirror      PresenceMirror
	Recorder    Recorder
}

// Service is the signaling relay.
// Every handler runs under one mutex so state transitions never interleave.
type Service struct {
	mu        sync.Mutex
	presence  *memory.PresenceRepository
	calls     *memory.CallRepository
	scheduler *Scheduler
	mirror    PresenceMirror
	recorder  Recorder
	now       func() time.Time
}

// NewService creates a new signaling service
func NewService(presence *memory.PresenceRepository, calls *memory.CallRepository, opts Options) *Service {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = constants.DefaultCallTimeout
	}
	if opts.Mirror == nil {
		opts.Mirror = nopMirror{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	s := &Service{
		presence: presence,
		calls:    calls,
		mirror:   opts.Mirror,
		recorder: opts.Recorder,
		now:      time.Now,
	}
	s.scheduler = NewScheduler(opts.CallTimeout, s.expire)
	return s
}

// Dispatch applies one inbound event from conn.
// Malformed, unknown and inapplicable events are dropped.
func (s *Service) Dispatch(conn domain.Connection, event string, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch event {
	case EventRegisterUser:
		var p registerUserPayload
		if err = decode(raw, &p); err == nil {
			s.registerUser(conn, p)
		}
	case EventUpdateAvailability:
		var p updateAvailabilityPayload
		if err = decode(raw, &p); err == nil {
			s.updateAvailability(conn, p)
		}
	case EventCallInitiate:
		var p callInitiatePayload
		if err = decode(raw, &p); err == nil {
			s.callInitiate(conn, p)
		}
	case EventCallAnswer:
		var p callActionPayload
		if err = decode(raw, &p); err == nil {
			s.callAnswer(conn, p)
		}
	case EventCallReject:
		var p callActionPayload
		if err = decode(raw, &p); err == nil {
			s.callReject(conn, p)
		}
	case EventCallEnd:
		var p callActionPayload
		if err = decode(raw, &p); err == nil {
			s.callEnd(conn, p)
		}
	case EventWebRTCOffer:
		var p webrtcOfferPayload
		if err = decode(raw, &p); err == nil {
			s.webrtcOffer(conn, p)
		}
	case EventWebRTCAnswer:
		var p webrtcAnswerPayload
		if err = decode(raw, &p); err == nil {
			s.webrtcAnswer(conn, p)
		}
	case EventWebRTCICECandidate:
		var p iceCandidatePayload
		if err = decode(raw, &p); err == nil {
			s.iceCandidate(conn, p)
		}
	default:
		s.recorder.RecordDroppedEvent(event, "unknown_event")
		logger.Warn("Unknown signaling event",
			zap.String("event", event),
			zap.String("conn_id", conn.ID()))
		return
	}

	if err != nil {
		s.recorder.RecordDroppedEvent(event, "malformed")
		logger.Warn("Malformed signaling payload",
			zap.String("event", event),
			zap.String("conn_id", conn.ID()),
			zap.Error(err))
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, v)
}

// Disconnect tears down everything owned by conn before returning.
// A connection that was replaced by a newer registration owns nothing; an
// authenticated connection that never registered still owns its calls.
func (s *Service) Disconnect(conn domain.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := conn.UserID()
	if userID == "" {
		return
	}
	if s.presence.RemoveConnection(userID, conn.ID()) {
		s.mirror.Offline(userID)
	} else if _, live := s.presence.Resolve(userID); live {
		logger.Debug("Stale connection closed",
			zap.String("user_id", userID),
			zap.String("conn_id", conn.ID()))
		return
	}

	for _, session := range s.calls.ListByParticipant(userID) {
		s.calls.Delete(session.CallID)
		s.scheduler.Cancel(session.CallID)
		s.recorder.RecordCall(session.CallType, outcomeDisconnected)

		s.send(session.OtherParticipant(userID), EventCallEnded, CallEnded{
			CallID: session.CallID,
			UserID: userID,
			Reason: constants.ReasonUserDisconnected,
		})
		logger.Info("Call ended by disconnect",
			zap.String("call_id", session.CallID),
			zap.String("user_id", userID))
	}

	s.updateGauges()
	logger.Info("User disconnected", zap.String("user_id", userID))
}

// Stats returns the number of registered users and live calls
func (s *Service) Stats() (users, calls int) {
	return s.presence.Count(), s.calls.Count()
}

// Shutdown cancels all pending call timeouts
func (s *Service) Shutdown() {
	s.scheduler.Stop()
}

func (s *Service) registerUser(conn domain.Connection, p registerUserPayload) {
	userID := conn.UserID()
	if userID == "" {
		userID = p.UserID
	}
	if userID == "" {
		s.recorder.RecordDroppedEvent(EventRegisterUser, "missing_user")
		logger.Warn("register_user without identity", zap.String("conn_id", conn.ID()))
		return
	}
	if p.UserID != "" && p.UserID != userID {
		logger.Debug("register_user payload identity ignored",
			zap.String("user_id", userID),
			zap.String("payload_user_id", p.UserID))
	}

	conn.SetUserID(userID)
	s.presence.Register(userID, conn)
	s.mirror.Online(userID, false)
	s.updateGauges()

	if err := conn.Send(EventRegistrationSuccess, RegistrationSuccess{UserID: userID}); err != nil {
		logger.Debug("registration_success not delivered",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	logger.Info("User registered",
		zap.String("user_id", userID),
		zap.String("conn_id", conn.ID()))
}

func (s *Service) updateAvailability(conn domain.Connection, p updateAvailabilityPayload) {
	userID := conn.UserID()
	if userID == "" {
		userID = p.UserID
	}

	if _, ok := s.presence.Get(userID); !ok {
		logger.Debug("Availability update for unknown user", zap.String("user_id", userID))
		return
	}
	s.presence.SetAvailability(userID, p.IsAvailable)
	s.mirror.Online(userID, p.IsAvailable)

	logger.Debug("User availability updated",
		zap.String("user_id", userID),
		zap.Bool("is_available", p.IsAvailable))
}

func (s *Service) callInitiate(conn domain.Connection, p callInitiatePayload) {
	sender := conn.UserID()
	callerID := p.CallerID
	if callerID == "" {
		callerID = sender
	}

	switch {
	case p.CallID == "":
		logger.Warn("call_initiate without callId", zap.String("conn_id", conn.ID()))
		return
	case callerID == "" || p.TargetUserID == "":
		logger.Warn("call_initiate without participants", zap.String("call_id", p.CallID))
		return
	case callerID == p.TargetUserID:
		logger.Warn("call_initiate to self", zap.String("call_id", p.CallID))
		return
	// An authenticated sender can only call as itself
	case sender != "" && callerID != sender:
		logger.Warn("call_initiate on behalf of another user",
			zap.String("call_id", p.CallID),
			zap.String("sender", sender),
			zap.String("caller_id", callerID))
		return
	}

	session := domain.CallSession{
		CallID:       p.CallID,
		CallerID:     callerID,
		TargetUserID: p.TargetUserID,
		ScheduleID:   string(p.ScheduleID),
		CallType:     string(p.CallType),
		Status:       domain.CallStatusRinging,
		StartTime:    s.now(),
	}
	if !s.calls.Create(session) {
		s.recorder.RecordDroppedEvent(EventCallInitiate, "duplicate_call")
		logger.Debug("call_initiate for live callId", zap.String("call_id", p.CallID))
		return
	}

	s.send(session.TargetUserID, EventCallIncoming, CallIncoming{
		CallID:     session.CallID,
		CallerID:   session.CallerID,
		ScheduleID: session.ScheduleID,
		CallType:   session.CallType,
		Offer:      p.Offer,
	})
	s.send(session.TargetUserID, EventWebRTCOffer, WebRTCOffer{
		CallID: session.CallID,
		Offer:  p.Offer,
	})
	s.scheduler.Arm(session.CallID)

	s.recorder.RecordCall(session.CallType, outcomeInitiated)
	s.updateGauges()
	logger.Info("Call initiated",
		zap.String("call_id", session.CallID),
		zap.String("caller_id", session.CallerID),
		zap.String("target_user_id", session.TargetUserID),
		zap.String("call_type", session.CallType))
}

// lookup returns the session for callID if sender may act on it.
// A known sender must be one of the two participants.
func (s *Service) lookup(event, callID string, sender string) (domain.CallSession, bool) {
	session, ok := s.calls.Get(callID)
	if !ok {
		logger.Debug("Event for unknown call",
			zap.String("event", event),
			zap.String("call_id", callID))
		return domain.CallSession{}, false
	}
	if sender != "" && !session.HasParticipant(sender) {
		s.recorder.RecordDroppedEvent(event, "not_participant")
		logger.Warn("Event from non-participant",
			zap.String("event", event),
			zap.String("call_id", callID),
			zap.String("sender", sender))
		return domain.CallSession{}, false
	}
	return session, true
}

// actor is the identity reported in call_answered, call_rejected and call_ended
func actor(p callActionPayload, conn domain.Connection) string {
	if id := conn.UserID(); id != "" {
		return id
	}
	return p.UserID
}

func (s *Service) callAnswer(conn domain.Connection, p callActionPayload) {
	session, ok := s.lookup(EventCallAnswer, p.CallID, conn.UserID())
	if !ok {
		return
	}
	if !s.calls.SetStatus(session.CallID, domain.CallStatusRinging, domain.CallStatusAnswered) {
		logger.Debug("call_answer for call not ringing",
			zap.String("call_id", session.CallID),
			zap.String("status", string(session.Status)))
		return
	}
	s.scheduler.Cancel(session.CallID)

	s.send(session.CallerID, EventCallAnswered, CallParticipantEvent{
		CallID: session.CallID,
		UserID: actor(p, conn),
	})

	s.recorder.RecordCall(session.CallType, outcomeAnswered)
	s.recorder.RecordRingDuration(s.now().Sub(session.StartTime))
	logger.Info("Call answered", zap.String("call_id", session.CallID))
}

func (s *Service) callReject(conn domain.Connection, p callActionPayload) {
	session, ok := s.lookup(EventCallReject, p.CallID, conn.UserID())
	if !ok {
		return
	}
	s.calls.Delete(session.CallID)
	s.scheduler.Cancel(session.CallID)

	s.send(session.CallerID, EventCallRejected, CallParticipantEvent{
		CallID: session.CallID,
		UserID: actor(p, conn),
	})

	s.recorder.RecordCall(session.CallType, outcomeRejected)
	s.updateGauges()
	logger.Info("Call rejected", zap.String("call_id", session.CallID))
}

func (s *Service) callEnd(conn domain.Connection, p callActionPayload) {
	session, ok := s.lookup(EventCallEnd, p.CallID, conn.UserID())
	if !ok {
		return
	}
	s.calls.Delete(session.CallID)
	s.scheduler.Cancel(session.CallID)

	ended := CallEnded{CallID: session.CallID, UserID: actor(p, conn)}
	s.send(session.CallerID, EventCallEnded, ended)
	s.send(session.TargetUserID, EventCallEnded, ended)

	s.recorder.RecordCall(session.CallType, outcomeEnded)
	s.updateGauges()
	logger.Info("Call ended", zap.String("call_id", session.CallID))
}

func (s *Service) webrtcOffer(conn domain.Connection, p webrtcOfferPayload) {
	session, ok := s.lookup(EventWebRTCOffer, p.CallID, conn.UserID())
	if !ok {
		return
	}
	s.send(session.TargetUserID, EventWebRTCOffer, WebRTCOffer{
		CallID: session.CallID,
		Offer:  p.Offer,
	})
}

func (s *Service) webrtcAnswer(conn domain.Connection, p webrtcAnswerPayload) {
	session, ok := s.lookup(EventWebRTCAnswer, p.CallID, conn.UserID())
	if !ok {
		return
	}
	s.calls.SetStatus(session.CallID, "", domain.CallStatusConnected)
	s.scheduler.Cancel(session.CallID)

	s.send(session.CallerID, EventWebRTCAnswer, WebRTCAnswer{
		CallID: session.CallID,
		Answer: p.Answer,
	})

	if session.Status != domain.CallStatusConnected {
		s.recorder.RecordCall(session.CallType, outcomeConnected)
	}
}

func (s *Service) iceCandidate(conn domain.Connection, p iceCandidatePayload) {
	sender := conn.UserID()
	session, ok := s.lookup(EventWebRTCICECandidate, p.CallID, sender)
	if !ok {
		return
	}

	// Direction depends only on who sent it, never on call status
	s.send(session.OtherParticipant(sender), EventWebRTCICECandidate, ICECandidate{
		CallID:    session.CallID,
		Candidate: p.Candidate,
	})
}

func (s *Service) expire(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.calls.Get(callID)
	if !ok || session.Status != domain.CallStatusRinging {
		return
	}
	s.calls.Delete(callID)

	timeout := CallTimeout{CallID: callID}
	s.send(session.CallerID, EventCallTimeout, timeout)
	s.send(session.TargetUserID, EventCallTimeout, timeout)

	s.recorder.RecordCall(session.CallType, outcomeTimedOut)
	s.updateGauges()
	logger.Info("Call timed out", zap.String("call_id", callID))
}

// send delivers to the user's current connection, or drops
func (s *Service) send(userID, event string, payload interface{}) {
	conn, ok := s.presence.Resolve(userID)
	if !ok {
		s.recorder.RecordDroppedEvent(event, "not_connected")
		logger.Debug("Destination not connected",
			zap.String("event", event),
			zap.String("user_id", userID))
		return
	}
	if err := conn.Send(event, payload); err != nil {
		s.recorder.RecordDroppedEvent(event, "send_failed")
		logger.Debug("Send failed",
			zap.String("event", event),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (s *Service) updateGauges() {
	s.recorder.SetRegisteredUsers(s.presence.Count())
	s.recorder.SetActiveCalls(s.calls.Count())
}
