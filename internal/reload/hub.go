// Package reload fans reload events out to live game sessions over
// websockets.
package reload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

// Path is the websocket endpoint served by Serve.
const Path = "/reload"

// Event names sent to clients.
const (
	EventHello  = "dpscript.hello"
	EventReload = "reload_server"
)

const (
	writeDeadline = 5 * time.Second
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 16
)

// Message is the JSON payload written to clients.
type Message struct {
	Time       string `json:"time"`
	Event      string `json:"event"`
	InstanceID string `json:"instance_id"`
	Seq        uint64 `json:"seq"`
	Output     string `json:"output,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
}

// Logger receives hub log lines.
type Logger func(format string, args ...any)

// Hub manages websocket clients and broadcasts reload events to them.
type Hub struct {
	clients    map[string]*client
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mutex      sync.RWMutex
	logf       Logger
	instanceID string
	seq        atomic.Uint64
	upgrader   gws.Upgrader
}

type client struct {
	id      string
	conn    *gws.Conn
	send    chan []byte
	hub     *Hub
	closed  chan struct{}
	closeMu sync.Mutex
}

func NewHub(logf Logger) *Hub {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Hub{
		clients:    make(map[string]*client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logf:       logf,
		instanceID: uuid.NewString(),
		upgrader: gws.Upgrader{
			// Game-side clients connect from localhost tooling without an Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run services registrations and broadcasts until ctx ends, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, c := range h.snapshotClients() {
				h.removeClient(c.id)
			}
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c.id] = c
			total := len(h.clients)
			h.mutex.Unlock()
			h.logf("reload client %s connected (%d total)", c.id, total)

		case c := <-h.unregister:
			h.removeClient(c.id)

		case message := <-h.broadcast:
			for _, c := range h.snapshotClients() {
				h.enqueue(c, message)
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast sends a reload event carrying the compile output path. It never
// blocks; when the broadcast queue is full the event is dropped.
func (h *Hub) Broadcast(output, trigger string) bool {
	data, err := json.Marshal(h.message(EventReload, output, trigger))
	if err != nil {
		h.logf("reload: marshal event: %v", err)
		return false
	}
	select {
	case h.broadcast <- data:
		return true
	default:
		h.logf("reload: dropping broadcast (queue full)")
		return false
	}
}

func (h *Hub) message(event, output, trigger string) Message {
	return Message{
		Time:       time.Now().UTC().Format(time.RFC3339),
		Event:      event,
		InstanceID: h.instanceID,
		Seq:        h.seq.Add(1),
		Output:     output,
		Trigger:    trigger,
	}
}

func (h *Hub) snapshotClients() []*client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// enqueue never blocks and never sends on a closed client. A full buffer
// drops its oldest message.
func (h *Hub) enqueue(c *client, payload []byte) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.send <- payload:
		return
	default:
	}
	select {
	case <-c.send:
		h.logf("reload: client %s is slow, dropped oldest message", c.id)
	default:
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *Hub) removeClient(id string) {
	h.mutex.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mutex.Unlock()

	if ok && c != nil {
		c.close()
		h.logf("reload client %s disconnected (%d total)", id, total)
	}
}

// HandleWebSocket upgrades the request and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("reload: websocket upgrade failed: %v", err)
		return
	}
	hello, err := json.Marshal(h.message(EventHello, "", ""))
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		err = conn.WriteMessage(gws.TextMessage, hello)
	}
	if err != nil {
		h.logf("reload: failed to greet client: %v", err)
		_ = conn.Close()
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
		closed: make(chan struct{}),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Serve listens on addr and serves the reload endpoint until ctx ends. The
// bound address is sent on ready once listening.
func (h *Hub) Serve(ctx context.Context, addr string, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("reload listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, h.HandleWebSocket)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go h.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeDeadline)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if ready != nil {
		ready <- ln.Addr()
	}
	h.logf("reload hub listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("reload serve: %w", err)
	}
	return nil
}

// readPump discards client messages and keeps the read deadline alive.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure, gws.CloseAbnormalClosure) {
				c.hub.logf("reload: read error (client %s): %v", c.id, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(gws.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}

func (c *client) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}
