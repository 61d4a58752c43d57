package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten per deployment
	},
}

// WSMessage is a client-to-server WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`              // "roll", "move", "state", "ping"
	ID      string          `json:"id"`                // request ID for correlating responses
	Payload json.RawMessage `json:"payload,omitempty"` // type-specific payload
}

// WSResponse is a server-to-client WebSocket message. State broadcasts
// carry no request ID; direct replies echo the client's.
type WSResponse struct {
	Type    string      `json:"type"`              // "state", "roll", "error", "pong"
	ID      string      `json:"id,omitempty"`      // request ID
	Payload interface{} `json:"payload,omitempty"` // response data
	Error   string      `json:"error,omitempty"`   // error message if any
}

// Hub fans state broadcasts out to every client watching one session.
type Hub struct {
	clients map[*WSClient]bool
	mu      sync.Mutex
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*WSClient]bool)}
}

func (h *Hub) register(c *WSClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	return true
}

func (h *Hub) unregister(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Broadcast sends a message to every connected client. Clients with a
// full send queue are skipped rather than blocking the caller.
func (h *Hub) Broadcast(msg WSResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.sendChan <- msg:
		default:
		}
	}
}

// Close disconnects all clients, typically when the session is pruned.
// Each client's read pump notices the closed connection and cleans up
// its own send channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
	h.clients = make(map[*WSClient]bool)
}

// WSClient is one connected WebSocket client, bound to a session.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	session  *Session
	sendChan chan WSResponse
}

// WebSocket handles GET /api/games/{id}/ws: it upgrades the connection
// and streams state updates for the session until either side closes.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "GAME_NOT_FOUND")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &WSClient{conn: conn, handlers: h, session: s, sendChan: make(chan WSResponse, 64)}
	if !s.hub.register(client) {
		conn.Close()
		return
	}

	// Initial snapshot so the client does not have to poll.
	snap := s.Snapshot()
	client.sendChan <- WSResponse{Type: "state", Payload: GameResponse{
		ID:    s.ID,
		Key:   snap.Key().String(),
		State: snap,
	}}

	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump owns the send channel: it closes it on exit, which stops the
// write pump.
func (c *WSClient) readPump() {
	defer func() {
		c.session.hub.unregister(c)
		close(c.sendChan)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "roll":
		c.handleRoll(msg)
	case "move":
		c.handleMove(msg)
	case "state":
		c.handleState(msg)
	case "ping":
		c.send(WSResponse{Type: "pong", ID: msg.ID})
	default:
		c.send(WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type"})
	}
}

// send queues a direct reply, dropping it if the client is backed up.
func (c *WSClient) send(msg WSResponse) {
	select {
	case c.sendChan <- msg:
	default:
	}
}

func (c *WSClient) handleRoll(msg WSMessage) {
	var req RollRequest
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.send(WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"})
			return
		}
	}

	s := c.session
	s.Lock()
	defer s.Unlock()

	var dice engine.DiceResult
	if req.Dice != nil {
		dice = engine.DiceResult{Die1: req.Dice[0], Die2: req.Dice[1]}
		if !dice.Valid() {
			c.send(WSResponse{Type: "error", ID: msg.ID, Error: "dice must be 1-6"})
			return
		}
	} else {
		dice = s.Roller.Roll()
	}

	moves, err := s.Game.Roll(dice)
	if err != nil {
		c.send(WSResponse{Type: "error", ID: msg.ID, Error: err.Error()})
		return
	}
	c.handlers.broadcastState(s)
	// Clone for the queued reply; writePump serializes outside the lock.
	c.send(WSResponse{Type: "roll", ID: msg.ID, Payload: RollResponse{
		Dice:  dice,
		Moves: moves,
		Game:  GameResponse{ID: s.ID, Key: s.Game.Key().String(), State: s.Game.Clone()},
	}})
}

func (c *WSClient) handleMove(msg WSMessage) {
	var req MoveRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.send(WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"})
		return
	}

	s := c.session
	s.Lock()
	defer s.Unlock()

	if err := s.Game.Apply(req.Move); err != nil {
		c.send(WSResponse{Type: "error", ID: msg.ID, Error: err.Error()})
		return
	}
	c.handlers.afterMutation(s)
}

func (c *WSClient) handleState(msg WSMessage) {
	s := c.session
	s.Lock()
	resp := GameResponse{ID: s.ID, Key: s.Game.Key().String(), State: s.Game.Clone()}
	s.Unlock()
	c.send(WSResponse{Type: "state", ID: msg.ID, Payload: resp})
}
