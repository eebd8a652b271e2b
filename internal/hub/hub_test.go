package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler greets new clients and broadcasts every inbound frame.
type echoHandler struct {
	hub          *Hub
	disconnected chan string
}

func (e *echoHandler) OnConnect(_ context.Context, c *Client) {
	c.Send(map[string]string{"type": "hello", "conn": c.ID()})
}

func (e *echoHandler) OnMessage(_ context.Context, c *Client, raw []byte) {
	var msg struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	_ = json.Unmarshal(raw, &msg)
	if msg.Type == "register" {
		c.SetIdentity(msg.ID)
		c.Send(map[string]string{"type": "registered"})
		return
	}
	e.hub.Broadcast(json.RawMessage(raw))
}

func (e *echoHandler) OnDisconnect(_ context.Context, c *Client) {
	e.disconnected <- c.Identity()
}

func newTestHub(t *testing.T) (*Hub, *echoHandler, string) {
	t.Helper()
	h := &echoHandler{disconnected: make(chan string, 4)}
	hb := New(h, Options{SendBuffer: 8})
	h.hub = hb
	srv := httptest.NewServer(hb)
	t.Cleanup(srv.Close)
	return hb, h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hb, _, url := newTestHub(t)
	a := dial(t, url)
	b := dial(t, url)
	assert.Equal(t, "hello", readType(t, a)["type"])
	assert.Equal(t, "hello", readType(t, b)["type"])
	assert.Eventually(t, func() bool { return hb.Count() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteJSON(map[string]string{"type": "ping_all"}))

	assert.Equal(t, "ping_all", readType(t, a)["type"], "origin receives its own broadcast")
	assert.Equal(t, "ping_all", readType(t, b)["type"])
}

func TestHub_SendToIdentityAndDisconnect(t *testing.T) {
	hb, h, url := newTestHub(t)
	kiosk := dial(t, url)
	readType(t, kiosk)

	require.NoError(t, kiosk.WriteJSON(map[string]string{"type": "register", "id": "APP1"}))
	assert.Equal(t, "registered", readType(t, kiosk)["type"])

	assert.True(t, hb.SendTo("APP1", map[string]string{"type": "command"}))
	assert.Equal(t, "command", readType(t, kiosk)["type"])
	assert.False(t, hb.SendTo("NOBODY", map[string]string{"type": "command"}))

	kiosk.Close()
	select {
	case id := <-h.disconnected:
		assert.Equal(t, "APP1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect hook not called")
	}
	assert.Eventually(t, func() bool { return hb.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestClient_FullBufferDrops(t *testing.T) {
	hb := New(nil, Options{})
	c := &Client{id: "c1", hub: hb, send: make(chan []byte, 1), done: make(chan struct{})}

	assert.True(t, c.enqueue([]byte(`{}`)))
	assert.False(t, c.enqueue([]byte(`{}`)), "second message does not fit")
	assert.Len(t, c.send, 1)

	close(c.done)
	<-c.send
	assert.False(t, c.enqueue([]byte(`{}`)), "closed clients accept nothing")
}

func TestOnConnectSeesConnectionID(t *testing.T) {
	_, _, url := newTestHub(t)
	conn := dial(t, url)
	msg := readType(t, conn)
	assert.NotEmpty(t, msg["conn"])
}

func TestHub_BoundIgnoresClosedConnections(t *testing.T) {
	hb, h, url := newTestHub(t)
	stale := dial(t, url)
	fresh := dial(t, url)
	readType(t, stale)
	readType(t, fresh)

	for _, conn := range []*websocket.Conn{stale, fresh} {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "register", "id": "APP7"}))
		assert.Equal(t, "registered", readType(t, conn)["type"])
	}
	assert.True(t, hb.Bound("APP7"))

	stale.Close()
	select {
	case id := <-h.disconnected:
		assert.Equal(t, "APP7", id)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect hook not called")
	}
	assert.True(t, hb.Bound("APP7"), "the other connection is still registered")
	assert.False(t, hb.Bound("APP8"))

	fresh.Close()
	<-h.disconnected
	assert.False(t, hb.Bound("APP7"))
}
