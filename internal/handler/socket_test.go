package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/realtime"
)

func dialSocket(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := realtime.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, payload))
}

func readEvent(t *testing.T, ws *websocket.Conn) realtime.Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var ev realtime.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestSocketHandler_Relay(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ann := dialSocket(t, srv)
	bob := dialSocket(t, srv)

	sendEvent(t, ann, realtime.EventAddUser, "ann")
	sendEvent(t, bob, realtime.EventAddUser, "bob")
	require.Eventually(t, func() bool { return s.registry.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	sendEvent(t, ann, realtime.EventSendMessage, realtime.IncomingMessage{SenderID: "ann", ReceiverID: "bob", Text: "hello"})

	ev := readEvent(t, bob)
	assert.Equal(t, realtime.EventGetMessage, ev.Type)
	assert.JSONEq(t, `{"senderId":"ann","text":"hello"}`, string(ev.Data))

	t.Run("disconnect removes presence", func(t *testing.T) {
		require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
		require.Eventually(t, func() bool {
			_, ok := s.registry.Lookup("bob")
			return !ok
		}, 2*time.Second, 10*time.Millisecond)

		_, ok := s.registry.Lookup("ann")
		assert.True(t, ok)
	})
}

func TestSocketHandler_MalformedFrames(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ws := dialSocket(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readEvent(t, ws)
	assert.Equal(t, realtime.EventError, ev.Type)

	sendEvent(t, ws, "dance", nil)
	ev = readEvent(t, ws)
	assert.Equal(t, realtime.EventError, ev.Type)
	assert.Contains(t, string(ev.Data), "UNKNOWN_EVENT")

	sendEvent(t, ws, realtime.EventAddUser, 42)
	ev = readEvent(t, ws)
	assert.Equal(t, realtime.EventError, ev.Type)
	assert.Equal(t, 0, s.registry.Count())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173/", " https://app.example.com"})

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/socket", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("http://localhost:5173")))
	assert.True(t, check(req("https://APP.example.com")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://evil.example.com")))

	assert.True(t, originChecker(nil)(req("https://anything.test")))
	assert.True(t, originChecker([]string{"*"})(req("https://anything.test")))
}
