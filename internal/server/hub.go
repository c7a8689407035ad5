package server

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection bound to a player in one game.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	gameCode string
}

// Hub fans game state updates out to every connection watching a game code.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool // game code -> clients
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]bool),
		logger:  logger,
	}
}

// Register adds a client to its game's broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.gameCode]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[c.gameCode] = set
	}
	set[c] = true
	h.logger.Debug("client registered",
		zap.String("game_code", c.gameCode),
		zap.String("player", c.playerID),
	)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.gameCode]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.gameCode)
	}
}

// Broadcast queues a message for every client watching the game code.
// Clients with a full send buffer are dropped rather than blocking the hub.
func (h *Hub) Broadcast(gameCode string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[gameCode] {
		select {
		case c.send <- message:
		default:
			delete(h.clients[gameCode], c)
			close(c.send)
		}
	}
}

// writePump drains the send channel onto the connection.
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
