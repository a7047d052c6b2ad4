// Package hub fans out entity sync messages between POS terminals over
// WebSocket. Connected terminals receive fan-outs immediately; known but
// disconnected terminals accumulate an in-memory queue drained on
// reconnect, before the CONNECTED ack.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/models"
)

// Close codes sent to terminals that violate the protocol.
const (
	CloseMissingTerminalID websocket.StatusCode = 4000
	CloseMalformedJSON     websocket.StatusCode = 4001
)

const defaultWriteTimeout = 5 * time.Second

// AuditSink records sync fan-outs. Implemented by audit.Logger.
type AuditSink interface {
	LogSyncEvent(msgType, entityType, entityID, userID, terminalID string, destinations []string, success bool)
}

// Status is the read-only view of the hub.
type Status struct {
	ConnectedTerminals map[string]string `json:"connected_terminals"`
	TotalConnections   int               `json:"total_connections"`
	QueuedMessages     map[string]int    `json:"queued_messages"`
}

// Hub routes sync messages between terminals. One instance per process.
type Hub struct {
	clock        clock.Clock
	audit        AuditSink
	writeTimeout time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	connections map[string]*connection // terminal_id → live connection
	users       map[string]string      // terminal_id → user_id, survives disconnect
	offline     map[string][][]byte    // terminal_id → queued raw frames
	lastStamp   time.Time
}

type connection struct {
	terminalID string
	userID     string
	conn       *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
}

// handshake is the first frame a terminal sends after connecting.
type handshake struct {
	TerminalID string `json:"terminal_id"`
	UserID     string `json:"user_id"`
}

// NewHub creates a sync hub. A nil audit sink disables fan-out logging;
// a non-positive write timeout falls back to the default.
func NewHub(clk clock.Clock, sink AuditSink, writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		clock:        clk,
		audit:        sink,
		writeTimeout: writeTimeout,
		logger:       slog.Default().With("component", "sync-hub"),
		connections:  make(map[string]*connection),
		users:        make(map[string]string),
		offline:      make(map[string][][]byte),
	}
}

// HandleConnection runs the sync protocol for one upgraded WebSocket
// connection. Called by the WebSocket HTTP handler; blocks until the
// connection closes.
func (h *Hub) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	var hs handshake
	if err := json.Unmarshal(data, &hs); err != nil {
		h.logger.Warn("Rejecting connection with malformed handshake", "error", err)
		_ = conn.Close(CloseMalformedJSON, "malformed JSON")
		return
	}
	if hs.TerminalID == "" {
		h.logger.Warn("Rejecting connection without terminal_id")
		_ = conn.Close(CloseMissingTerminalID, "terminal_id is required")
		return
	}

	c := &connection{
		terminalID: hs.TerminalID,
		userID:     hs.UserID,
		conn:       conn,
		ctx:        ctx,
		cancel:     cancel,
	}
	if !h.register(c) {
		return
	}
	defer h.unregister(c)

	h.sendSystem(c, models.SyncConnected, hs.TerminalID)
	h.broadcastPresence(models.SyncTerminalUp, hs.TerminalID)
	h.logger.Info("Terminal connected",
		"terminal_id", hs.TerminalID,
		"user_id", hs.UserID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg models.SyncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("Closing connection on malformed frame",
				"terminal_id", c.terminalID,
				"error", err)
			_ = conn.Close(CloseMalformedJSON, "malformed JSON")
			return
		}
		h.handleMessage(c, msg)
	}
}

// Publish fans out a server-originated sync message on behalf of the
// source terminal. Services call this after HTTP mutations so every
// other terminal converges without a WebSocket round trip.
func (h *Hub) Publish(fromTerminal, fromUser string, msg models.SyncMessage) {
	h.fanOut(fromTerminal, fromUser, msg)
}

// GetStatus returns a snapshot of connections and queue depths.
func (h *Hub) GetStatus() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	connected := make(map[string]string, len(h.connections))
	for id := range h.connections {
		connected[id] = h.users[id]
	}
	queued := make(map[string]int, len(h.offline))
	for id, frames := range h.offline {
		queued[id] = len(frames)
	}
	return Status{
		ConnectedTerminals: connected,
		TotalConnections:   len(h.connections),
		QueuedMessages:     queued,
	}
}

func (h *Hub) handleMessage(c *connection, msg models.SyncMessage) {
	switch {
	case msg.Type.FanOut():
		h.fanOut(c.terminalID, c.userID, msg)
	case msg.Type == models.SyncPing:
		h.sendSystem(c, models.SyncPong, c.terminalID)
	default:
		h.logger.Debug("Ignoring unknown sync message type",
			"terminal_id", c.terminalID,
			"type", string(msg.Type))
	}
}

// register installs the connection, closing any prior connection for the
// same terminal (later wins) and draining queued messages first so they
// arrive before the CONNECTED ack. Returns false if the drain failed and
// the connection was closed.
func (h *Hub) register(c *connection) bool {
	h.mu.Lock()
	if prior, ok := h.connections[c.terminalID]; ok {
		delete(h.connections, c.terminalID)
		// Close runs off the hub mutex: the close handshake can block
		// until its timeout.
		go func() {
			_ = prior.conn.Close(websocket.StatusNormalClosure, "replaced by newer connection")
			prior.cancel()
		}()
		h.logger.Info("Replacing existing connection", "terminal_id", c.terminalID)
	}
	h.users[c.terminalID] = c.userID
	h.mu.Unlock()

	// Loop until the queue is observed empty under the same lock that
	// installs the connection, so no frame is lost or reordered around
	// registration.
	for {
		h.mu.Lock()
		queued := h.offline[c.terminalID]
		delete(h.offline, c.terminalID)
		if len(queued) == 0 {
			h.connections[c.terminalID] = c
			h.mu.Unlock()
			return true
		}
		h.mu.Unlock()

		for i, raw := range queued {
			if err := h.send(c, raw); err != nil {
				h.logger.Warn("Failed to drain queued messages",
					"terminal_id", c.terminalID,
					"delivered", i,
					"remaining", len(queued)-i,
					"error", err)
				h.requeueFront(c.terminalID, queued[i:])
				_ = c.conn.Close(websocket.StatusNormalClosure, "")
				c.cancel()
				return false
			}
		}
		h.logger.Info("Drained queued messages",
			"terminal_id", c.terminalID,
			"count", len(queued))
	}
}

// unregister removes the connection if it still owns its terminal slot,
// keeps the offline queue, and announces the disconnect. Replaced and
// dropped connections skip the announcement; their terminal is either
// still connected or already announced.
func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	owner := h.connections[c.terminalID] == c
	if owner {
		delete(h.connections, c.terminalID)
	}
	h.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()

	if owner {
		h.logger.Info("Terminal disconnected", "terminal_id", c.terminalID)
		h.broadcastPresence(models.SyncTerminalDown, c.terminalID)
	}
}

// fanOut enriches the message and delivers it to every known terminal
// except the source. Disconnected terminals get a queued copy; a failed
// send drops the connection and queues the frame for redelivery.
func (h *Hub) fanOut(fromTerminal, fromUser string, msg models.SyncMessage) {
	msg.FromTerminal = fromTerminal
	msg.FromUser = fromUser
	msg.ServerTimestamp = h.nextStamp()

	raw, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode sync message",
			"type", string(msg.Type),
			"error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*connection, 0, len(h.connections))
	destinations := make([]string, 0, len(h.users))
	for terminalID := range h.users {
		if terminalID == fromTerminal {
			continue
		}
		if conn, ok := h.connections[terminalID]; ok {
			conns = append(conns, conn)
		} else {
			h.offline[terminalID] = append(h.offline[terminalID], raw)
		}
		destinations = append(destinations, terminalID)
	}
	h.mu.Unlock()

	delivered := true
	for _, conn := range conns {
		if err := h.send(conn, raw); err != nil {
			delivered = false
			h.logger.Warn("Dropping terminal after failed send",
				"terminal_id", conn.terminalID,
				"type", string(msg.Type),
				"error", err)
			h.dropConn(conn, raw)
		}
	}

	if h.audit != nil {
		sort.Strings(destinations)
		h.audit.LogSyncEvent(string(msg.Type), msg.Entity, msg.EntityID, fromUser, fromTerminal, destinations, delivered)
	}
}

// broadcastPresence tells currently connected terminals about a peer
// joining or leaving. Presence is not queued for offline terminals; it
// would be stale by the time they reconnect.
func (h *Hub) broadcastPresence(msgType models.SyncMessageType, terminalID string) {
	raw, err := json.Marshal(map[string]any{
		"type":        string(msgType),
		"terminal_id": terminalID,
		"timestamp":   h.nextStamp(),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	conns := make([]*connection, 0, len(h.connections))
	for id, conn := range h.connections {
		if id == terminalID {
			continue
		}
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := h.send(conn, raw); err != nil {
			h.logger.Warn("Failed to send presence update",
				"terminal_id", conn.terminalID,
				"error", err)
			h.dropConn(conn, nil)
		}
	}
}

// dropConn removes a connection whose send failed, queueing the
// undelivered frame (if any) for redelivery.
func (h *Hub) dropConn(c *connection, raw []byte) {
	h.mu.Lock()
	owner := h.connections[c.terminalID] == c
	if owner {
		delete(h.connections, c.terminalID)
		if raw != nil {
			h.offline[c.terminalID] = append(h.offline[c.terminalID], raw)
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()

	if owner {
		h.broadcastPresence(models.SyncTerminalDown, c.terminalID)
	}
}

func (h *Hub) sendSystem(c *connection, msgType models.SyncMessageType, terminalID string) {
	raw, err := json.Marshal(map[string]any{
		"type":        string(msgType),
		"terminal_id": terminalID,
		"timestamp":   h.nextStamp(),
	})
	if err != nil {
		return
	}
	if err := h.send(c, raw); err != nil {
		h.logger.Warn("Failed to send system message",
			"terminal_id", c.terminalID,
			"type", string(msgType),
			"error", err)
	}
}

// send writes raw bytes to a single connection with a write timeout.
func (h *Hub) send(c *connection, raw []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, h.writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, raw)
}

// nextStamp returns a server timestamp that never decreases, even if
// the wall clock steps backwards.
func (h *Hub) nextStamp() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.clock.Now().UTC()
	if now.Before(h.lastStamp) {
		now = h.lastStamp
	}
	h.lastStamp = now
	return now
}

func (h *Hub) requeueFront(terminalID string, frames [][]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offline[terminalID] = append(append([][]byte{}, frames...), h.offline[terminalID]...)
}
