package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/karataya/karata-server-go/internal/config"
	"github.com/karataya/karata-server-go/internal/game"
	"github.com/karataya/karata-server-go/internal/lobby"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsRequest is a command from a client.
type wsRequest struct {
	Type       string      `json:"type"`
	GameCode   string      `json:"game_code"`
	Player     string      `json:"player"`
	Password   string      `json:"password,omitempty"`
	MaxPlayers int         `json:"max_players,omitempty"`
	Cards      []cardTuple `json:"cards,omitempty"`
}

// wsResponse is a message to a client.
type wsResponse struct {
	Type         string     `json:"type"`
	Error        string     `json:"error,omitempty"`
	Lobby        *lobbyView `json:"lobby,omitempty"`
	Game         *GameView  `json:"game,omitempty"`
	Drawn        *cardTuple `json:"drawn,omitempty"`
	Winner       string     `json:"winner,omitempty"`
	Disqualified string     `json:"disqualified,omitempty"`
	MatchOver    bool       `json:"match_over,omitempty"`
}

type lobbyView struct {
	Code       string   `json:"code"`
	Host       string   `json:"host"`
	Players    []string `json:"players"`
	MaxPlayers int      `json:"max_players"`
	State      string   `json:"state"`
}

// Server is the websocket front end: it translates {play, draw, pass, undo}
// commands into engine calls through the game manager and broadcasts the
// resulting view to every connection on the same game code.
type Server struct {
	cfg      config.WebSocketConfig
	lobbyMgr *lobby.Manager
	gameMgr  *game.Manager
	hub      *Hub
	logger   *zap.Logger
}

// NewServer creates the websocket server.
func NewServer(cfg config.WebSocketConfig, lobbyMgr *lobby.Manager, gameMgr *game.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		lobbyMgr: lobbyMgr,
		gameMgr:  gameMgr,
		hub:      NewHub(logger),
		logger:   logger,
	}
}

// Start blocks serving websocket connections until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.logger.Info("starting websocket server", zap.String("address", s.cfg.Address))
	return http.ListenAndServe(s.cfg.Address, mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go client.writePump()
	defer func() {
		if client.gameCode != "" {
			s.hub.Unregister(client)
		} else {
			close(client.send)
			conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(client, wsResponse{Type: "error", Error: "malformed request"})
			continue
		}
		s.dispatch(r.Context(), client, req)
	}
}

func (s *Server) dispatch(ctx context.Context, client *Client, req wsRequest) {
	switch req.Type {
	case "create_lobby":
		s.handleCreateLobby(client, req)
	case "join_lobby":
		s.handleJoinLobby(client, req)
	case "start_game":
		s.handleStartGame(ctx, client, req)
	case "play", "draw", "pass", "undo":
		s.handleMove(ctx, client, req)
	case "state":
		s.handleState(ctx, client, req)
	default:
		s.reply(client, wsResponse{Type: "error", Error: "unknown command " + req.Type})
	}
}

func (s *Server) handleCreateLobby(client *Client, req wsRequest) {
	if req.GameCode == "" {
		req.GameCode = newGameCode()
	}
	lb, err := s.lobbyMgr.Create(req.GameCode, req.Player, req.Password, req.MaxPlayers)
	if err != nil {
		s.reply(client, wsResponse{Type: "error", Error: err.Error()})
		return
	}
	s.bind(client, req)
	s.reply(client, wsResponse{Type: "lobby", Lobby: viewLobby(lb)})
}

func (s *Server) handleJoinLobby(client *Client, req wsRequest) {
	lb, err := s.lobbyMgr.Join(req.GameCode, req.Player, req.Password)
	if err != nil {
		s.reply(client, wsResponse{Type: "error", Error: err.Error()})
		return
	}
	s.bind(client, req)
	s.broadcast(req.GameCode, wsResponse{Type: "lobby", Lobby: viewLobby(lb)})
}

func (s *Server) handleStartGame(ctx context.Context, client *Client, req wsRequest) {
	lb, err := s.lobbyMgr.Start(req.GameCode, req.Player)
	if err != nil {
		s.reply(client, wsResponse{Type: "error", Error: err.Error()})
		return
	}
	state, err := s.gameMgr.CreateGame(ctx, req.GameCode, lb.Players)
	if err != nil {
		s.reply(client, wsResponse{Type: "error", Error: err.Error()})
		return
	}
	s.lobbyMgr.Remove(req.GameCode)
	s.broadcastState(req.GameCode, state, wsResponse{Type: "state"}, nil)
}

func (s *Server) handleMove(ctx context.Context, client *Client, req wsRequest) {
	cmd := game.Command{Type: game.CommandType(req.Type)}
	if req.Type == "play" {
		cards, err := parseCards(req.Cards)
		if err != nil {
			s.reply(client, wsResponse{Type: "error", Error: err.Error()})
			return
		}
		cmd.Cards = cards
	}

	result, err := s.gameMgr.Submit(ctx, req.GameCode, req.Player, cmd)
	if err != nil {
		var invalid *game.InvalidPlayError
		switch {
		case errors.As(err, &invalid):
			s.reply(client, wsResponse{Type: "error", Error: invalid.Error()})
		case errors.Is(err, game.ErrDeckExhausted),
			errors.Is(err, game.ErrNoHistory),
			errors.Is(err, game.ErrGameOver):
			s.reply(client, wsResponse{Type: "error", Error: err.Error()})
		default:
			s.logger.Error("command failed",
				zap.String("game_code", req.GameCode),
				zap.String("player", req.Player),
				zap.Error(err),
			)
			s.reply(client, wsResponse{Type: "error", Error: "internal error"})
		}
		return
	}

	resp := wsResponse{
		Type:         "state",
		Winner:       result.Winner,
		Disqualified: result.Disqualified,
		MatchOver:    result.MatchOver,
	}
	var served *Client
	if result.Drawn != nil {
		// Only the drawing player learns which card came up; their private
		// reply replaces the broadcast copy.
		private := resp
		drawn := tupleOf(*result.Drawn)
		private.Drawn = &drawn
		view := buildGameView(result.State, req.Player)
		private.Game = &view
		s.reply(client, private)
		served = client
	}
	s.broadcastState(req.GameCode, result.State, resp, served)
}

func (s *Server) handleState(ctx context.Context, client *Client, req wsRequest) {
	state, err := s.gameMgr.Snapshot(ctx, req.GameCode)
	if err != nil {
		s.reply(client, wsResponse{Type: "error", Error: err.Error()})
		return
	}
	s.bind(client, req)
	view := buildGameView(state, req.Player)
	s.reply(client, wsResponse{Type: "state", Game: &view})
}

// bind attaches the connection to a game code for broadcasts.
func (s *Server) bind(client *Client, req wsRequest) {
	if client.gameCode != "" {
		return
	}
	client.gameCode = req.GameCode
	client.playerID = req.Player
	s.hub.Register(client)
}

func (s *Server) reply(client *Client, resp wsResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	select {
	case client.send <- data:
	case <-time.After(time.Second):
	}
}

// broadcast sends the same payload to every client on the game code.
func (s *Server) broadcast(code string, resp wsResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal broadcast", zap.Error(err))
		return
	}
	s.hub.Broadcast(code, data)
}

// broadcastState renders a per-viewer view of the state for each connected
// client, since hands are private. A non-nil skip client is left out, for
// callers that already answered it directly.
func (s *Server) broadcastState(code string, state *game.GameState, base wsResponse, skip *Client) {
	s.hub.mu.RLock()
	clients := make([]*Client, 0, len(s.hub.clients[code]))
	for c := range s.hub.clients[code] {
		clients = append(clients, c)
	}
	s.hub.mu.RUnlock()

	for _, c := range clients {
		if c == skip {
			continue
		}
		resp := base
		view := buildGameView(state, c.playerID)
		resp.Game = &view
		data, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("failed to marshal state view", zap.Error(err))
			return
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// newGameCode derives a short join code from a random uuid.
func newGameCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func viewLobby(lb *lobby.Lobby) *lobbyView {
	return &lobbyView{
		Code:       lb.Code,
		Host:       lb.Host,
		Players:    lb.Players,
		MaxPlayers: lb.MaxPlayers,
		State:      lb.State.String(),
	}
}
