package signaling

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaling-relay/internal/domain"
	"signaling-relay/internal/repository/memory"
)

type sentEvent struct {
	Event   string
	Payload interface{}
}

// fakeConn records every event sent to it
type fakeConn struct {
	mu     sync.Mutex
	id     string
	userID string
	events []sentEvent
	fail   bool
}

func newFakeConn(userID string) *fakeConn {
	return &fakeConn{id: uuid.New().String(), userID: userID}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *fakeConn) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

func (c *fakeConn) Send(event string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send buffer full")
	}
	c.events = append(c.events, sentEvent{Event: event, Payload: payload})
	return nil
}

func (c *fakeConn) Events() []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) Names() []string {
	var names []string
	for _, e := range c.Events() {
		names = append(names, e.Event)
	}
	return names
}

func (c *fakeConn) Has(event string) bool {
	for _, e := range c.Events() {
		if e.Event == event {
			return true
		}
	}
	return false
}

func (c *fakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type recordingMirror struct {
	mu      sync.Mutex
	online  map[string]bool
	offline []string
}

func (m *recordingMirror) Online(userID string, isAvailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == nil {
		m.online = map[string]bool{}
	}
	m.online[userID] = isAvailable
}

func (m *recordingMirror) Offline(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, userID)
	m.offline = append(m.offline, userID)
}

func newTestService(timeout time.Duration) (*Service, *memory.PresenceRepository, *memory.CallRepository) {
	presence := memory.NewPresenceRepository()
	calls := memory.NewCallRepository()
	svc := NewService(presence, calls, Options{CallTimeout: timeout})
	return svc, presence, calls
}

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// register connects userID and clears the registration reply
func register(t *testing.T, svc *Service, userID string) *fakeConn {
	t.Helper()
	conn := newFakeConn(userID)
	svc.Dispatch(conn, EventRegisterUser, payload(t, map[string]string{"userId": userID}))
	require.True(t, conn.Has(EventRegistrationSuccess))
	conn.Reset()
	return conn
}

func initiate(t *testing.T, svc *Service, from *fakeConn, callID, target string) {
	t.Helper()
	svc.Dispatch(from, EventCallInitiate, payload(t, map[string]interface{}{
		"callId":       callID,
		"callerId":     from.UserID(),
		"targetUserId": target,
		"scheduleId":   "s1",
		"callType":     "video",
		"offer":        map[string]string{"type": "offer", "sdp": "v=0"},
	}))
}

func TestRegisterUser_LastRegistrationWins(t *testing.T) {
	svc, presence, _ := newTestService(time.Minute)
	defer svc.Shutdown()

	for i := 0; i < 5; i++ {
		conn := newFakeConn("u1")
		svc.Dispatch(conn, EventRegisterUser, payload(t, map[string]string{"userId": "u1"}))

		resolved, ok := presence.Resolve("u1")
		require.True(t, ok)
		assert.Equal(t, conn.ID(), resolved.ID())
	}
	assert.Equal(t, 1, presence.Count())
}

func TestRegisterUser_PrefersAuthenticatedIdentity(t *testing.T) {
	svc, presence, _ := newTestService(time.Minute)
	defer svc.Shutdown()

	conn := newFakeConn("alice")
	svc.Dispatch(conn, EventRegisterUser, payload(t, map[string]string{"userId": "mallory"}))

	_, ok := presence.Resolve("mallory")
	assert.False(t, ok)

	p, ok := presence.Get("alice")
	require.True(t, ok)
	assert.False(t, p.IsAvailable)

	events := conn.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventRegistrationSuccess, events[0].Event)
	assert.Equal(t, RegistrationSuccess{UserID: "alice"}, events[0].Payload)
}

func TestRegisterUser_AnonymousUsesPayload(t *testing.T) {
	svc, presence, _ := newTestService(time.Minute)
	defer svc.Shutdown()

	conn := newFakeConn("")
	svc.Dispatch(conn, EventRegisterUser, payload(t, map[string]string{"userId": "u9"}))

	assert.Equal(t, "u9", conn.UserID())
	_, ok := presence.Resolve("u9")
	assert.True(t, ok)

	// No identity at all is dropped
	empty := newFakeConn("")
	svc.Dispatch(empty, EventRegisterUser, payload(t, map[string]string{}))
	assert.Empty(t, empty.Events())
}

func TestUpdateAvailability(t *testing.T) {
	presence := memory.NewPresenceRepository()
	mirror := &recordingMirror{}
	svc := NewService(presence, memory.NewCallRepository(), Options{CallTimeout: time.Minute, Mirror: mirror})
	defer svc.Shutdown()

	conn := register(t, svc, "u1")
	svc.Dispatch(conn, EventUpdateAvailability, payload(t, map[string]interface{}{"userId": "u1", "isAvailable": true}))

	p, _ := presence.Get("u1")
	assert.True(t, p.IsAvailable)
	assert.True(t, mirror.online["u1"])

	// Unknown user is a no-op
	stranger := newFakeConn("ghost")
	svc.Dispatch(stranger, EventUpdateAvailability, payload(t, map[string]interface{}{"isAvailable": true}))
	_, ok := presence.Get("ghost")
	assert.False(t, ok)
	assert.Empty(t, stranger.Events())
}

func TestInitiateAndAnswer(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")

	initiate(t, svc, u1, "c1", "u2")

	events := u2.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventCallIncoming, events[0].Event)
	incoming := events[0].Payload.(CallIncoming)
	assert.Equal(t, "c1", incoming.CallID)
	assert.Equal(t, "u1", incoming.CallerID)
	assert.Equal(t, "s1", incoming.ScheduleID)
	assert.Equal(t, "video", incoming.CallType)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(incoming.Offer))

	assert.Equal(t, EventWebRTCOffer, events[1].Event)
	assert.Equal(t, "c1", events[1].Payload.(WebRTCOffer).CallID)
	assert.Empty(t, u1.Events())

	session, ok := calls.Get("c1")
	require.True(t, ok)
	assert.Equal(t, domain.CallStatusRinging, session.Status)
	assert.Equal(t, 1, svc.scheduler.Pending())

	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))

	events = u1.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventCallAnswered, events[0].Event)
	assert.Equal(t, CallParticipantEvent{CallID: "c1", UserID: "u2"}, events[0].Payload)

	session, _ = calls.Get("c1")
	assert.Equal(t, domain.CallStatusAnswered, session.Status)
	assert.Equal(t, 0, svc.scheduler.Pending())

	// Second answer is ignored
	u1.Reset()
	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))
	assert.Empty(t, u1.Events())
}

func TestInitiate_DefaultsCallerToSender(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	register(t, svc, "u2")

	svc.Dispatch(u1, EventCallInitiate, payload(t, map[string]interface{}{
		"callId": "c1", "targetUserId": "u2", "scheduleId": 42,
	}))

	session, ok := calls.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "u1", session.CallerID)
	assert.Equal(t, "42", session.ScheduleID)
}

func TestInitiate_InvalidDropped(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")

	cases := []map[string]interface{}{
		{"callerId": "u1", "targetUserId": "u2"},
		{"callId": "c1", "callerId": "u1"},
		{"callId": "c1", "callerId": "u1", "targetUserId": "u1"},
		{"callId": "c1", "callerId": "u2", "targetUserId": "u1"},
	}
	for _, c := range cases {
		svc.Dispatch(u1, EventCallInitiate, payload(t, c))
	}

	assert.Equal(t, 0, calls.Count())
	assert.Empty(t, u1.Events())
	assert.Empty(t, u2.Events())
}

func TestInitiate_DuplicateCallIDDropped(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	register(t, svc, "u3")

	initiate(t, svc, u1, "c1", "u2")
	u2.Reset()
	initiate(t, svc, u1, "c1", "u3")

	session, _ := calls.Get("c1")
	assert.Equal(t, "u2", session.TargetUserID)
	assert.Equal(t, 1, calls.Count())
}

func TestInitiateThenEnd_NoLaterTimeout(t *testing.T) {
	svc, _, calls := newTestService(50 * time.Millisecond)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")

	initiate(t, svc, u1, "c1", "u2")
	svc.Dispatch(u1, EventCallEnd, payload(t, map[string]string{"callId": "c1", "userId": "u1"}))

	assert.Equal(t, CallEnded{CallID: "c1", UserID: "u1"}, u1.Events()[0].Payload)
	assert.True(t, u2.Has(EventCallEnded))
	assert.Equal(t, 0, calls.Count())
	assert.Equal(t, 0, svc.scheduler.Pending())

	assert.Never(t, func() bool {
		return u1.Has(EventCallTimeout) || u2.Has(EventCallTimeout)
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestAnswerAfterReject_NoOp(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")

	initiate(t, svc, u1, "c1", "u2")
	svc.Dispatch(u2, EventCallReject, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))

	events := u1.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventCallRejected, events[0].Event)
	assert.Equal(t, CallParticipantEvent{CallID: "c1", UserID: "u2"}, events[0].Payload)
	assert.Equal(t, 0, calls.Count())

	u1.Reset()
	u2.Reset()
	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))

	assert.Empty(t, u1.Events())
	assert.Empty(t, u2.Events())
	assert.Equal(t, 0, calls.Count())
}

func TestICECandidateRouting(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, u1, "c1", "u2")

	check := func(status string) {
		u1.Reset()
		u2.Reset()

		svc.Dispatch(u1, EventWebRTCICECandidate, payload(t, map[string]interface{}{
			"callId": "c1", "candidate": map[string]string{"candidate": "from-caller"},
		}))
		require.Len(t, u2.Events(), 1, status)
		assert.Empty(t, u1.Events(), status)
		assert.JSONEq(t, `{"candidate":"from-caller"}`, string(u2.Events()[0].Payload.(ICECandidate).Candidate))

		svc.Dispatch(u2, EventWebRTCICECandidate, payload(t, map[string]interface{}{
			"callId": "c1", "candidate": map[string]string{"candidate": "from-target"},
		}))
		require.Len(t, u1.Events(), 1, status)
		assert.JSONEq(t, `{"candidate":"from-target"}`, string(u1.Events()[0].Payload.(ICECandidate).Candidate))
	}

	u2.Reset()
	check("ringing")

	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))
	check("answered")

	svc.Dispatch(u2, EventWebRTCAnswer, payload(t, map[string]interface{}{"callId": "c1", "answer": map[string]string{"type": "answer"}}))
	session, _ := calls.Get("c1")
	require.Equal(t, domain.CallStatusConnected, session.Status)
	check("connected")
}

func TestWebRTCOfferAndAnswer(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, u1, "c1", "u2")
	u2.Reset()

	svc.Dispatch(u1, EventWebRTCOffer, payload(t, map[string]interface{}{"callId": "c1", "offer": map[string]string{"sdp": "renegotiate"}}))
	require.Len(t, u2.Events(), 1)
	assert.Equal(t, EventWebRTCOffer, u2.Events()[0].Event)

	svc.Dispatch(u2, EventWebRTCAnswer, payload(t, map[string]interface{}{"callId": "c1", "answer": map[string]string{"sdp": "ok"}}))
	require.Len(t, u1.Events(), 1)
	answer := u1.Events()[0].Payload.(WebRTCAnswer)
	assert.Equal(t, "c1", answer.CallID)
	assert.JSONEq(t, `{"sdp":"ok"}`, string(answer.Answer))

	session, _ := calls.Get("c1")
	assert.Equal(t, domain.CallStatusConnected, session.Status)
	assert.Equal(t, 0, svc.scheduler.Pending())
}

func TestDisconnect_EndsEverySessionOfUser(t *testing.T) {
	mirror := &recordingMirror{}
	presence := memory.NewPresenceRepository()
	calls := memory.NewCallRepository()
	svc := NewService(presence, calls, Options{CallTimeout: time.Minute, Mirror: mirror})
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	u3 := register(t, svc, "u3")

	// u1 is caller of A and target of B
	initiate(t, svc, u1, "A", "u2")
	initiate(t, svc, u3, "B", "u1")
	u1.Reset()
	u2.Reset()
	u3.Reset()

	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "A", "userId": "u2"}))
	u1.Reset()

	svc.Disconnect(u1)

	assert.Equal(t, 0, calls.Count())
	assert.Equal(t, 0, svc.scheduler.Pending())
	_, ok := presence.Resolve("u1")
	assert.False(t, ok)
	assert.Equal(t, []string{"u1"}, mirror.offline)

	require.Len(t, u2.Events(), 1)
	assert.Equal(t, EventCallEnded, u2.Events()[0].Event)
	assert.Equal(t, CallEnded{CallID: "A", UserID: "u1", Reason: "user_disconnected"}, u2.Events()[0].Payload)

	require.Len(t, u3.Events(), 1)
	assert.Equal(t, CallEnded{CallID: "B", UserID: "u1", Reason: "user_disconnected"}, u3.Events()[0].Payload)

	assert.Empty(t, u1.Events())
}

func TestDisconnect_StaleConnectionIsNoop(t *testing.T) {
	svc, presence, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	old := register(t, svc, "u1")
	current := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, current, "c1", "u2")
	u2.Reset()

	svc.Disconnect(old)

	resolved, ok := presence.Resolve("u1")
	require.True(t, ok)
	assert.Equal(t, current.ID(), resolved.ID())
	assert.Equal(t, 1, calls.Count())
	assert.Empty(t, u2.Events())

	// A connection that never registered owns nothing either
	svc.Disconnect(newFakeConn(""))
	assert.Equal(t, 2, presence.Count())
}

func TestDisconnect_UnregisteredCallerEndsItsCalls(t *testing.T) {
	mirror := &recordingMirror{}
	presence := memory.NewPresenceRepository()
	calls := memory.NewCallRepository()
	svc := NewService(presence, calls, Options{CallTimeout: time.Minute, Mirror: mirror})
	defer svc.Shutdown()

	// Authenticated but never sent register_user
	caller := newFakeConn("u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, caller, "c1", "u2")
	require.Equal(t, 1, calls.Count())

	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))
	session, ok := calls.Get("c1")
	require.True(t, ok)
	require.Equal(t, domain.CallStatusAnswered, session.Status)
	u2.Reset()

	svc.Disconnect(caller)

	assert.Equal(t, 0, calls.Count())
	assert.Equal(t, 0, svc.scheduler.Pending())
	require.Len(t, u2.Events(), 1)
	assert.Equal(t, EventCallEnded, u2.Events()[0].Event)
	assert.Equal(t, CallEnded{CallID: "c1", UserID: "u1", Reason: "user_disconnected"}, u2.Events()[0].Payload)
	assert.Empty(t, mirror.offline)

	_, ok = presence.Resolve("u2")
	assert.True(t, ok)
}

func TestDisconnect_UnregisteredConnectionKeepsLiveRegistration(t *testing.T) {
	svc, presence, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	current := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, current, "c1", "u2")
	u2.Reset()

	// Second socket of u1 that never registered
	svc.Disconnect(newFakeConn("u1"))

	resolved, ok := presence.Resolve("u1")
	require.True(t, ok)
	assert.Equal(t, current.ID(), resolved.ID())
	assert.Equal(t, 1, calls.Count())
	assert.Empty(t, u2.Events())
}

func TestTimeout_NotifiesBothAndRemovesSession(t *testing.T) {
	svc, _, calls := newTestService(30 * time.Millisecond)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, u1, "c1", "u2")

	assert.Eventually(t, func() bool {
		return u1.Has(EventCallTimeout) && u2.Has(EventCallTimeout)
	}, time.Second, 5*time.Millisecond)

	for _, e := range u1.Events() {
		if e.Event == EventCallTimeout {
			assert.Equal(t, CallTimeout{CallID: "c1"}, e.Payload)
		}
	}
	_, ok := calls.Get("c1")
	assert.False(t, ok)

	u1.Reset()
	u2.Reset()
	svc.Dispatch(u1, EventCallEnd, payload(t, map[string]string{"callId": "c1", "userId": "u1"}))
	assert.Empty(t, u1.Events())
	assert.Empty(t, u2.Events())
}

func TestTimeout_AnsweredCallDoesNotExpire(t *testing.T) {
	svc, _, calls := newTestService(40 * time.Millisecond)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, u1, "c1", "u2")
	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))

	assert.Never(t, func() bool { return u1.Has(EventCallTimeout) }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, calls.Count())
}

func TestExpire_RechecksRinging(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	initiate(t, svc, u1, "c1", "u2")
	svc.Dispatch(u2, EventCallAnswer, payload(t, map[string]string{"callId": "c1"}))
	u1.Reset()
	u2.Reset()

	// A timer that already fired before the answer landed
	svc.expire("c1")

	assert.Equal(t, 1, calls.Count())
	assert.Empty(t, u1.Events())
	assert.Empty(t, u2.Events())
}

func TestNonParticipantEventsDropped(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	intruder := register(t, svc, "u3")
	initiate(t, svc, u1, "c1", "u2")
	u2.Reset()

	svc.Dispatch(intruder, EventCallEnd, payload(t, map[string]string{"callId": "c1", "userId": "u2"}))
	svc.Dispatch(intruder, EventWebRTCICECandidate, payload(t, map[string]interface{}{"callId": "c1", "candidate": "x"}))

	assert.Equal(t, 1, calls.Count())
	assert.Empty(t, u1.Events())
	assert.Empty(t, u2.Events())
}

func TestDestinationNotConnected_Dropped(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	initiate(t, svc, u1, "c1", "offline-user")

	// Session still exists and rings; nothing reached anyone
	assert.Equal(t, 1, calls.Count())
	assert.Empty(t, u1.Events())
}

func TestMalformedAndUnknownEventsDropped(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")

	svc.Dispatch(u1, EventCallInitiate, json.RawMessage(`{"callId": 12`))
	svc.Dispatch(u1, EventCallInitiate, json.RawMessage(`"just a string"`))
	svc.Dispatch(u1, "make_coffee", json.RawMessage(`{}`))
	svc.Dispatch(u1, EventCallAnswer, nil)

	assert.Equal(t, 0, calls.Count())
	assert.Empty(t, u1.Events())
}

func TestSendFailureDoesNotBreakTransition(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	u2 := register(t, svc, "u2")
	u2.fail = true

	initiate(t, svc, u1, "c1", "u2")
	assert.Equal(t, 1, calls.Count())
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(time.Minute)
	defer svc.Shutdown()

	u1 := register(t, svc, "u1")
	register(t, svc, "u2")
	initiate(t, svc, u1, "c1", "u2")

	users, calls := svc.Stats()
	assert.Equal(t, 2, users)
	assert.Equal(t, 1, calls)
}

func TestConcurrentDispatch(t *testing.T) {
	svc, _, calls := newTestService(time.Minute)
	defer svc.Shutdown()

	callers := make([]*fakeConn, 20)
	for i := range callers {
		callers[i] = register(t, svc, uuid.New().String())
	}
	target := register(t, svc, "target")

	var wg sync.WaitGroup
	for i, c := range callers {
		wg.Add(1)
		go func(i int, c *fakeConn) {
			defer wg.Done()
			callID := c.UserID() + "-call"
			initiate(t, svc, c, callID, "target")
			svc.Dispatch(target, EventWebRTCICECandidate, payload(t, map[string]interface{}{"callId": callID, "candidate": i}))
			svc.Dispatch(c, EventCallEnd, payload(t, map[string]string{"callId": callID}))
		}(i, c)
	}
	wg.Wait()

	assert.Equal(t, 0, calls.Count())
	assert.Equal(t, 0, svc.scheduler.Pending())
}

func TestLooseString(t *testing.T) {
	var p callInitiatePayload
	require.NoError(t, json.Unmarshal([]byte(`{"scheduleId": 17, "callType": "audio"}`), &p))
	assert.Equal(t, looseString("17"), p.ScheduleID)
	assert.Equal(t, looseString("audio"), p.CallType)

	require.NoError(t, json.Unmarshal([]byte(`{"scheduleId": null}`), &p))
	assert.Equal(t, looseString(""), p.ScheduleID)

	assert.Error(t, json.Unmarshal([]byte(`{"scheduleId": {}}`), &p))
}
