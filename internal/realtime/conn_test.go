package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades each request and echoes text frames back through Conn.Send.
func echoServer(t *testing.T, done chan<- error) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(ws)
		conn.Start()
		err = conn.ReadLoop(func(data []byte) {
			_ = conn.Send(data)
		})
		conn.CloseWith(websocket.CloseNormalClosure, "bye")
		done <- err
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func TestConn_EchoAndClose(t *testing.T) {
	done := make(chan error, 1)
	srv := echoServer(t, done)
	defer srv.Close()

	client := dial(t, srv)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"event":"ping"}`)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Equal(t, `{"event":"ping"}`, string(data))

	require.NoError(t, client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit")
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ready := make(chan *Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ready <- NewConn(ws)
	}))
	defer srv.Close()

	client := dial(t, srv)
	defer client.Close()

	conn := <-ready
	conn.Start()
	conn.Close()
	conn.Close()

	assert.ErrorIs(t, conn.Send([]byte("x")), ErrConnClosed)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
