package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/afroash/hydro-monitor/internal/history"
	"github.com/afroash/hydro-monitor/internal/poller"
	"github.com/afroash/hydro-monitor/internal/telemetry"
)

// Constants for WebSocket timeouts. Pings must fit inside the pong
// window, hence the 9/10 ratio.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub pushes live updates to connected dashboard browsers. It
// implements poller.Publisher, so every completed cycle lands on every
// open page without the page re-polling the API.
type Hub struct {
	upgrader       websocket.Upgrader
	logger         zerolog.Logger
	allowedOrigins []string
	clients        map[*websocket.Conn]struct{}
	mutex          sync.Mutex

	// Keepalive intervals, overridable in tests.
	pongWait   time.Duration
	pingPeriod time.Duration
}

// Compile-time interface check
var _ poller.Publisher = (*Hub)(nil)

// NewHub creates a new dashboard hub
func NewHub(logger zerolog.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		logger:         logger,
		allowedOrigins: allowedOrigins,
		clients:        make(map[*websocket.Conn]struct{}),
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the incoming request's Origin against the configured allowlist
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// No Origin header means same-origin request
	if origin == "" {
		return true
	}

	if len(h.allowedOrigins) == 0 {
		h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: no allowed origins configured")
		return false
	}

	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}

	h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: origin not in allowlist")
	return false
}

// ServeHTTP handles WebSocket connection requests from dashboard pages
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	h.mutex.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mutex.Unlock()
	h.logger.Info().Int("clients", count).Msg("Dashboard client connected")

	defer h.removeClient(conn)

	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		return nil
	})

	// Browser clients cannot initiate pings, so the hub drives the
	// keepalive; the pong responses extend the read deadline above.
	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	// Read loop only detects disconnects; clients never send data the
	// hub cares about.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// pingLoop pings one client until its read loop ends. WriteControl is
// safe to call concurrently with Broadcast's writes.
func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				// The read loop will notice the dead connection.
				return
			}
		case <-done:
			return
		}
	}
}

// removeClient closes and forgets a client connection
func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mutex.Unlock()
	conn.Close()
	h.logger.Info().Int("clients", count).Msg("Dashboard client disconnected")
}

// ClientCount returns the number of connected dashboard clients
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends a message to every connected client. Clients that
// fail a write are dropped.
func (h *Hub) Broadcast(msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(msgType)).Msg("Failed to create message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to push to client, dropping")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// readingPayload is the payload for MessageTypeReading
type readingPayload struct {
	Reading  *telemetry.Reading `json:"reading"`
	Appended bool               `json:"appended"`
}

// windowPayload is the payload for MessageTypeWindow
type windowPayload struct {
	Rows   history.Window `json:"rows"`
	Empty  bool           `json:"empty"`
	Single bool           `json:"single"`
}

// PublishReading pushes the latest reading to all clients.
func (h *Hub) PublishReading(r *telemetry.Reading, appended bool) {
	h.Broadcast(MessageTypeReading, readingPayload{Reading: r, Appended: appended})
}

// PublishWindow pushes the current display window to all clients.
func (h *Hub) PublishWindow(w history.Window) {
	h.Broadcast(MessageTypeWindow, windowPayload{
		Rows:   w,
		Empty:  w.IsEmpty(),
		Single: w.HasSingle(),
	})
}

// PublishStatus pushes the cycle status to all clients.
func (h *Hub) PublishStatus(status poller.CycleStatus) {
	h.Broadcast(MessageTypeStatus, status)
}
