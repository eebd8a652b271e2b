// Package hub keeps the registry of realtime connections and fans messages out
// to them. Each client has one reader (the serving goroutine) and one writer.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meypark-backend/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Handler receives connection events. Calls for one client never overlap.
type Handler interface {
	OnConnect(ctx context.Context, c *Client)
	OnMessage(ctx context.Context, c *Client, raw []byte)
	OnDisconnect(ctx context.Context, c *Client)
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	handler    Handler
	upgrader   websocket.Upgrader
	sendBuffer int
	log        *zap.Logger
	metrics    *metrics.Metrics
}

type Options struct {
	SendBuffer int
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

func New(h Handler, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		handler: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// kiosks and dashboards are served from other origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuffer: opts.SendBuffer,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
}

// SetHandler replaces the event handler. It must be called before serving.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := h.register(conn)
	ctx := context.WithoutCancel(r.Context())

	go c.writePump()
	h.handler.OnConnect(ctx, c)
	c.readPump(ctx)
}

func (h *Hub) register(conn *websocket.Conn) *Client {
	c := &Client{
		id:       uuid.NewString(),
		identity: "kiosco-" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, h.sendBuffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
	h.log.Info("client connected", zap.String("conn_id", c.id), zap.String("remote", conn.RemoteAddr().String()))
	return c
}

func (h *Hub) unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	h.metrics.ConnectionClosed()
	h.log.Info("client disconnected", zap.String("conn_id", c.id), zap.String("identity", c.Identity()))
	h.handler.OnDisconnect(ctx, c)
}

// Broadcast encodes v once and queues it for every open connection.
// Clients whose buffer is full miss the message.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("broadcast encode failed", zap.Error(err))
		return
	}
	h.metrics.Broadcast()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// SendTo queues v for every connection bound to identity and reports whether
// any connection received it.
func (h *Hub) SendTo(identity string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode failed", zap.Error(err))
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := false
	for c := range h.clients {
		if c.Identity() == identity && c.enqueue(data) {
			sent = true
		}
	}
	return sent
}

// Bound reports whether an open connection is bound to identity.
func (h *Hub) Bound(identity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.Identity() == identity {
			return true
		}
	}
	return false
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}
