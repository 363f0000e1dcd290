package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(log.New(io.Discard, "", 0))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
}

func TestHubBroadcast(t *testing.T) {
	hub, url := newTestHub(t)

	c1 := dial(t, url)
	c2 := dial(t, url)
	waitForClients(t, hub, 2)

	hub.Broadcast(map[string]any{"type": "pools_updated", "count": 42})

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "pools_updated", msg["type"])
		assert.Equal(t, float64(42), msg["count"])
	}
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub, url := newTestHub(t)

	conn := dial(t, url)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubCloseRejectsNewClients(t *testing.T) {
	hub, url := newTestHub(t)

	hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		// Upgrade may succeed before the server closes the socket; the
		// connection must die immediately either way.
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, readErr := conn.ReadMessage()
		assert.Error(t, readErr)
		conn.Close()
	}
	assert.Equal(t, 0, hub.ClientCount())
}
