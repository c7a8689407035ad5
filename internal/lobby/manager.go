package lobby

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LobbyState represents the state of a lobby.
type LobbyState int

const (
	LobbyStateWaiting LobbyState = iota
	LobbyStateCountdown
	LobbyStateStarted
)

func (s LobbyState) String() string {
	switch s {
	case LobbyStateWaiting:
		return "WAITING"
	case LobbyStateCountdown:
		return "COUNTDOWN"
	case LobbyStateStarted:
		return "STARTED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyExists    = errors.New("lobby already exists")
	ErrLobbyFull      = errors.New("lobby is full")
	ErrWrongPassword  = errors.New("incorrect lobby password")
	ErrNotHost        = errors.New("only the host can start the game")
	ErrAlreadyStarted = errors.New("game already started")
	ErrTooFewPlayers  = errors.New("not enough players to start")
	ErrNameTaken      = errors.New("name already taken in this lobby")
)

// Lobby gathers players for one game before it starts.
type Lobby struct {
	Code           string
	Host           string
	Players        []string
	MaxPlayers     int
	State          LobbyState
	CountdownStart time.Time
	passwordHash   []byte
	CreatedAt      time.Time
}

// Manager tracks open lobbies: create/join by game code, optional password,
// host start with a player minimum, and an auto-start countdown once the
// lobby fills up.
type Manager struct {
	mu         sync.Mutex
	lobbies    map[string]*Lobby
	minPlayers int
	countdown  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewManager creates a lobby manager.
func NewManager(minPlayers int, countdown time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		lobbies:    make(map[string]*Lobby),
		minPlayers: minPlayers,
		countdown:  countdown,
		logger:     logger,
		now:        time.Now,
	}
}

// Create opens a lobby under the given code with the creator as host.
// An empty password leaves the lobby open.
func (m *Manager) Create(code, host, password string, maxPlayers int) (*Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.lobbies[code]; exists {
		return nil, ErrLobbyExists
	}
	if maxPlayers < m.minPlayers {
		return nil, fmt.Errorf("max players %d below minimum %d", maxPlayers, m.minPlayers)
	}

	lobby := &Lobby{
		Code:       code,
		Host:       host,
		Players:    []string{host},
		MaxPlayers: maxPlayers,
		State:      LobbyStateWaiting,
		CreatedAt:  m.now(),
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash lobby password: %w", err)
		}
		lobby.passwordHash = hash
	}
	m.lobbies[code] = lobby

	m.logger.Info("lobby created",
		zap.String("code", code),
		zap.String("host", host),
		zap.Int("max_players", maxPlayers),
	)
	return lobby, nil
}

// Join adds a player to a lobby. When the lobby fills, the auto-start
// countdown begins.
func (m *Manager) Join(code, name, password string) (*Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lobby, ok := m.lobbies[code]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if lobby.State == LobbyStateStarted {
		return nil, ErrAlreadyStarted
	}
	if lobby.passwordHash != nil {
		if err := bcrypt.CompareHashAndPassword(lobby.passwordHash, []byte(password)); err != nil {
			return nil, ErrWrongPassword
		}
	}
	for _, p := range lobby.Players {
		if p == name {
			return nil, ErrNameTaken
		}
	}
	if len(lobby.Players) >= lobby.MaxPlayers {
		return nil, ErrLobbyFull
	}

	lobby.Players = append(lobby.Players, name)
	if len(lobby.Players) == lobby.MaxPlayers {
		lobby.State = LobbyStateCountdown
		lobby.CountdownStart = m.now()
	}

	m.logger.Info("player joined lobby",
		zap.String("code", code),
		zap.String("player", name),
		zap.Int("players", len(lobby.Players)),
	)
	return lobby, nil
}

// Start begins the game at the host's request, once the player minimum is met.
func (m *Manager) Start(code, requester string) (*Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lobby, ok := m.lobbies[code]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if lobby.State == LobbyStateStarted {
		return nil, ErrAlreadyStarted
	}
	if requester != lobby.Host {
		return nil, ErrNotHost
	}
	if len(lobby.Players) < m.minPlayers {
		return nil, ErrTooFewPlayers
	}

	lobby.State = LobbyStateStarted
	m.logger.Info("lobby started",
		zap.String("code", code),
		zap.Strings("players", lobby.Players),
	)
	return lobby, nil
}

// PollAutoStart flips a full lobby to started once its countdown elapses.
// Returns the lobby and true when the caller should launch the game.
func (m *Manager) PollAutoStart(code string) (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lobby, ok := m.lobbies[code]
	if !ok || lobby.State != LobbyStateCountdown {
		return lobby, false
	}
	if m.now().Sub(lobby.CountdownStart) < m.countdown {
		return lobby, false
	}
	lobby.State = LobbyStateStarted
	m.logger.Info("lobby auto-started", zap.String("code", code))
	return lobby, true
}

// Get returns the lobby for a code.
func (m *Manager) Get(code string) (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lobby, ok := m.lobbies[code]
	return lobby, ok
}

// Remove drops a lobby once its game is underway or abandoned.
func (m *Manager) Remove(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lobbies, code)
}
