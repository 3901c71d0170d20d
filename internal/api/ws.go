package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"signal_hub/internal/domain"
	"signal_hub/internal/infra"
	"signal_hub/internal/service"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsPongTimeout  = 60 * time.Second

	// Per-client send buffer; a client that cannot drain it misses signals
	// instead of stalling the broadcast path.
	wsSendBuffer = 16
)

// wsClient is one connected subscriber terminal.
type wsClient struct {
	conn *websocket.Conn
	send chan domain.Signal
}

// Hub pushes every accepted broadcast to connected, licensed websocket
// clients. The pull endpoint stays authoritative; the hub is a latency
// optimization for terminals that keep a connection open.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	oracle   service.Oracle
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub backed by the licensing oracle.
func NewHub(oracle service.Oracle, log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		oracle:  oracle,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWS upgrades a licensed subscriber connection and starts its pumps.
// The key is validated before the upgrade, like every other entry point.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	valid, err := h.oracle.ValidKey(key, timeNow())
	if err != nil {
		infra.GlobalMetrics.RecordError()
		writeError(w, &domain.StorageError{Op: "validate key", Err: err})
		return
	}
	if !valid {
		infra.GlobalMetrics.RecordAuthFailure()
		writeError(w, &domain.AuthError{Key: key})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan domain.Signal, wsSendBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	infra.GlobalMetrics.IncrementWSClients()

	go h.writePump(client)
	go h.readPump(client)
}

// Broadcast fans the signal out to every connected client. Slow clients are
// skipped, not waited on.
func (h *Hub) Broadcast(sig domain.Signal) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- sig.Clone():
		default:
			h.log.Warn("dropping signal for slow websocket client")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		infra.GlobalMetrics.DecrementWSClients()
	}
	h.mu.Unlock()
	client.conn.Close()
}

// writePump serializes all writes on the connection: outbound signals and the
// keepalive pings.
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case sig, ok := <-client.send:
			if !ok {
				client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteJSON(sig); err != nil {
				h.unregister(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(client)
				return
			}
		}
	}
}

// readPump discards inbound frames and watches for disconnects and pongs.
func (h *Hub) readPump(client *wsClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
