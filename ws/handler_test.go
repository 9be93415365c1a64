package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collabroom/config"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) (string, *Relay) {
	t.Helper()
	relay := NewRelay(nil)
	srv := httptest.NewServer(http.HandlerFunc(relay.HandleWS))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), relay
}

func dialRelay(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, env *config.Envelope) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID, peerID string) {
	t.Helper()
	sendEnvelope(t, conn, &config.Envelope{
		Event:  config.EvJoinRoom,
		RoomID: roomID,
		PeerID: peerID,
	})
}

// waitMembers blocks until roomID has n live members, so joins from
// separate connections land in a known order.
func waitMembers(t *testing.T, relay *Relay, roomID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return relay.Hub().MemberCount(roomID) == n
	}, 2*time.Second, 5*time.Millisecond)
}

// joinPair puts two connections in roomID, draining the membership
// notification the first one receives.
func joinPair(t *testing.T, url string, relay *Relay, roomID string) (a, b *websocket.Conn) {
	t.Helper()
	a = dialRelay(t, url)
	joinRoom(t, a, roomID, "peer-a")
	waitMembers(t, relay, roomID, 1)

	b = dialRelay(t, url)
	joinRoom(t, b, roomID, "peer-b")
	expectEvent(t, a, config.EvUserConnected)
	waitMembers(t, relay, roomID, 2)
	return a, b
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *config.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env config.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return &env
}

// expectEvent reads until an envelope with the wanted event arrives,
// skipping membership chatter in between.
func expectEvent(t *testing.T, conn *websocket.Conn, event string) *config.Envelope {
	t.Helper()
	for i := 0; i < 10; i++ {
		env := readEnvelope(t, conn)
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("event %q never arrived", event)
	return nil
}

// expectSilence asserts nothing is delivered within d. A read timeout
// poisons the gorilla connection, so this must be the last read on conn.
func expectSilence(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(d)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected delivery: %s", raw)
}

func TestJoinNotifiesExistingMembers(t *testing.T) {
	url, relay := startRelay(t)

	a := dialRelay(t, url)
	joinRoom(t, a, "482913", "peer-a")
	waitMembers(t, relay, "482913", 1)

	b := dialRelay(t, url)
	joinRoom(t, b, "482913", "peer-b")

	env := expectEvent(t, a, config.EvUserConnected)
	assert.Equal(t, "peer-b", env.PeerID)
	assert.Equal(t, "482913", env.RoomID)

	waitMembers(t, relay, "482913", 2)
}

func TestStrokeRelayedInOrderWithoutEcho(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	sendEnvelope(t, a, &config.Envelope{
		Event: config.EvCanvasData,
		Stroke: &config.StrokeFragment{
			ID:     "s1",
			Phase:  config.StrokeStart,
			Tool:   config.ToolPen,
			Style:  config.StrokeStyle{Color: "#df4b26", Width: 5},
			Points: []config.Point{{X: 1, Y: 1}},
		},
	})
	sendEnvelope(t, a, &config.Envelope{
		Event: config.EvCanvasData,
		Stroke: &config.StrokeFragment{
			ID:     "s1",
			Phase:  config.StrokeAppend,
			Points: []config.Point{{X: 2, Y: 2}, {X: 3, Y: 3}},
		},
	})
	sendEnvelope(t, a, &config.Envelope{
		Event:  config.EvCanvasData,
		Stroke: &config.StrokeFragment{ID: "s1", Phase: config.StrokeEnd},
	})

	phases := []string{config.StrokeStart, config.StrokeAppend, config.StrokeEnd}
	var points []config.Point
	for _, phase := range phases {
		env := readEnvelope(t, b)
		assert.Equal(t, config.EvCanvasData, env.Event)
		assert.Equal(t, "peer-a", env.PeerID, "sender must be stamped")
		assert.Equal(t, "room1", env.RoomID)
		require.NotNil(t, env.Stroke)
		assert.Equal(t, phase, env.Stroke.Phase)
		points = append(points, env.Stroke.Points...)
	}
	assert.Equal(t,
		[]config.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
		points)

	// The sender never hears its own stroke back.
	expectSilence(t, a, 200*time.Millisecond)
}

func TestCodeChangeRebroadcastAsUpdate(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	sendEnvelope(t, a, &config.Envelope{
		Event: config.EvCodeChange,
		Code:  &config.CodePayload{Text: `print("hello world")`, Language: "python"},
	})

	env := expectEvent(t, b, config.EvCodeUpdate)
	assert.Equal(t, "peer-a", env.PeerID)
	require.NotNil(t, env.Code)
	assert.Equal(t, `print("hello world")`, env.Code.Text)
	assert.Equal(t, "python", env.Code.Language)

	expectSilence(t, a, 200*time.Millisecond)
}

func TestChatRelayedOnce(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	sendEnvelope(t, a, &config.Envelope{
		Event: config.EvSendMessage,
		Chat: &config.ChatMessage{
			Text:   "hi there",
			Sender: "Alice",
			Email:  "alice@example.com",
			Time:   "14:05:09",
		},
	})

	env := expectEvent(t, b, config.EvReceiveMessage)
	require.NotNil(t, env.Chat)
	assert.Equal(t, "hi there", env.Chat.Text)
	assert.Equal(t, "Alice", env.Chat.Sender)
	assert.Equal(t, "alice@example.com", env.Chat.Email)
	assert.Equal(t, "14:05:09", env.Chat.Time)

	expectSilence(t, a, 200*time.Millisecond)
}

func TestClearReachesSenderToo(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	sendEnvelope(t, a, &config.Envelope{Event: config.EvClear})

	envA := expectEvent(t, a, config.EvClear)
	envB := expectEvent(t, b, config.EvClear)
	assert.Equal(t, "peer-a", envA.PeerID)
	assert.Equal(t, "peer-a", envB.PeerID)
}

func TestSignalForwardedOnlyToTarget(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")
	c := dialRelay(t, url)
	joinRoom(t, c, "room1", "peer-c")
	expectEvent(t, a, config.EvUserConnected) // peer-c
	expectEvent(t, b, config.EvUserConnected) // peer-c
	waitMembers(t, relay, "room1", 3)

	sendEnvelope(t, a, &config.Envelope{
		Event:  config.EvRTCOffer,
		To:     "peer-c",
		Signal: &config.SignalPayload{SDP: "v=0 offer"},
	})

	env := expectEvent(t, c, config.EvRTCOffer)
	assert.Equal(t, "peer-a", env.PeerID, "forwarded signal carries the sender id")
	require.NotNil(t, env.Signal)
	assert.Equal(t, "v=0 offer", env.Signal.SDP)

	// Answer goes straight back, again only to its target.
	sendEnvelope(t, c, &config.Envelope{
		Event:  config.EvRTCAnswer,
		To:     "peer-a",
		Signal: &config.SignalPayload{SDP: "v=0 answer"},
	})

	env = expectEvent(t, a, config.EvRTCAnswer)
	assert.Equal(t, "peer-c", env.PeerID)
	assert.Equal(t, "v=0 answer", env.Signal.SDP)

	expectSilence(t, b, 200*time.Millisecond)
}

func TestRoomsAreIsolated(t *testing.T) {
	url, relay := startRelay(t)

	a := dialRelay(t, url)
	joinRoom(t, a, "room1", "peer-a")
	waitMembers(t, relay, "room1", 1)
	c := dialRelay(t, url)
	joinRoom(t, c, "room2", "peer-c")
	waitMembers(t, relay, "room2", 1)

	sendEnvelope(t, a, &config.Envelope{
		Event: config.EvSendMessage,
		Chat:  &config.ChatMessage{Text: "room1 only", Sender: "Alice"},
	})

	expectSilence(t, c, 200*time.Millisecond)
}

func TestDataBeforeJoinHasNoAudience(t *testing.T) {
	url, relay := startRelay(t)

	a := dialRelay(t, url)
	joinRoom(t, a, "room1", "peer-a")
	waitMembers(t, relay, "room1", 1)

	// Never joined; the room id in the envelope does not matter.
	x := dialRelay(t, url)
	sendEnvelope(t, x, &config.Envelope{
		Event:  config.EvSendMessage,
		RoomID: "room1",
		Chat:   &config.ChatMessage{Text: "sneaky", Sender: "X"},
	})

	expectSilence(t, a, 200*time.Millisecond)
}

func TestMalformedFrameDropped(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{not json")))
	sendEnvelope(t, a, &config.Envelope{
		Event: config.EvSendMessage,
		Chat:  &config.ChatMessage{Text: "still alive", Sender: "Alice"},
	})

	env := expectEvent(t, b, config.EvReceiveMessage)
	assert.Equal(t, "still alive", env.Chat.Text)
}

func TestDisconnectBroadcastsUserDisconnected(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	b.Close()

	env := expectEvent(t, a, config.EvUserDisconnected)
	assert.Equal(t, "peer-b", env.PeerID)

	require.Eventually(t, func() bool {
		return relay.Hub().MemberCount("room1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRejoinMovesConnectionBetweenRooms(t *testing.T) {
	url, relay := startRelay(t)

	a, b := joinPair(t, url, relay, "room1")

	joinRoom(t, a, "room2", "peer-a")

	env := expectEvent(t, b, config.EvUserDisconnected)
	assert.Equal(t, "peer-a", env.PeerID)

	require.Eventually(t, func() bool {
		return relay.Hub().MemberCount("room1") == 1 &&
			relay.Hub().MemberCount("room2") == 1
	}, 2*time.Second, 10*time.Millisecond)
}
