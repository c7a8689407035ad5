package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CommandType is the kind of move a player submits.
type CommandType string

const (
	CommandPlay CommandType = "play"
	CommandDraw CommandType = "draw"
	CommandPass CommandType = "pass"
	CommandUndo CommandType = "undo"
)

// Command is one player action against a game.
type Command struct {
	Type  CommandType
	Cards []Card
}

// Store persists game states keyed by game code. Save must be atomic per
// code and reject writes whose expected version no longer matches, so that
// near-simultaneous commands from two players cannot both commit against the
// same base state.
type Store interface {
	Load(ctx context.Context, code string) (*GameState, int64, error)
	Save(ctx context.Context, code string, state *GameState, expectedVersion int64) error
	Create(ctx context.Context, code string, state *GameState) error
}

// ErrVersionConflict is returned by a Store when the stored version moved
// under an optimistic save.
var ErrVersionConflict = errors.New("game state version conflict")

// saveRetries bounds optimistic-save retries before giving up.
const saveRetries = 3

// Manager drives complete games: it serializes mutating commands per game
// code, runs the rule engine, adjudicates victories and persists the result
// with an optimistic version check.
type Manager struct {
	engine       *Engine
	store        Store
	logger       *zap.Logger
	cardsPerHand int
	historyDepth int

	mu    sync.Mutex
	games map[string]*gameHandle
}

// gameHandle carries the in-process lock and undo history for one game.
type gameHandle struct {
	mu      sync.Mutex
	history *History
}

// Result is what a successfully applied command produces.
type Result struct {
	State        *GameState
	Drawn        *Card
	Winner       string
	Disqualified string
	MatchOver    bool
}

// NewManager creates a game manager.
func NewManager(engine *Engine, store Store, cardsPerHand, historyDepth int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		engine:       engine,
		store:        store,
		logger:       logger,
		cardsPerHand: cardsPerHand,
		historyDepth: historyDepth,
		games:        make(map[string]*gameHandle),
	}
}

func (m *Manager) handle(code string) *gameHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.games[code]
	if !ok {
		h = &gameHandle{history: NewHistory(m.historyDepth)}
		m.games[code] = h
	}
	return h
}

// CreateGame starts a new game under the given code and persists it.
func (m *Manager) CreateGame(ctx context.Context, code string, playerNames []string) (*GameState, error) {
	state, err := m.engine.NewGame(code, playerNames, m.cardsPerHand)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, code, state); err != nil {
		return nil, fmt.Errorf("failed to persist new game: %w", err)
	}
	m.handle(code).history.Clear()
	return state, nil
}

// Submit applies one command for the named player. Commands for the same
// game code are serialized by an in-process lock; the store's version check
// guards against writers in other processes. Legality pre-checks done by a
// UI against a stale snapshot are never trusted here; every command is
// re-validated against the freshly loaded state.
//
// History moves in lockstep with the store: a play's snapshot is dropped
// again whenever its save fails, and an undo's snapshot is consumed only
// after the restored state is saved, so a retried undo still reverts exactly
// one move.
func (m *Manager) Submit(ctx context.Context, code, playerName string, cmd Command) (*Result, error) {
	h := m.handle(code)
	h.mu.Lock()
	defer h.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		state, version, err := m.store.Load(ctx, code)
		if err != nil {
			return nil, err
		}
		result, err := m.apply(state, playerName, cmd, h.history)
		if err != nil {
			return nil, err
		}
		if err := m.store.Save(ctx, code, result.State, version); err != nil {
			if cmd.Type == CommandPlay {
				// Drop the snapshot recorded for the aborted attempt.
				_, _ = h.history.Undo()
			}
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				m.logger.Warn("optimistic save conflict, retrying",
					zap.String("game_code", code),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, err
		}
		if cmd.Type == CommandUndo {
			// The restored state is committed; consume the snapshot.
			_, _ = h.history.Undo()
		}
		return result, nil
	}
	return nil, lastErr
}

// apply runs one command against a loaded state. State is mutated in place;
// callers must not persist it when an error comes back.
func (m *Manager) apply(state *GameState, playerName string, cmd Command, history *History) (*Result, error) {
	if m.engine.IsMatchOver(state) {
		return nil, ErrGameOver
	}

	if cmd.Type == CommandUndo {
		snapshot, err := history.Peek()
		if err != nil {
			return nil, err
		}
		// Work on a clone; the snapshot stays in history until the caller
		// commits the restored state.
		restored := snapshot.Clone()
		restored.AppendLog("%s undid the last move", playerName)
		return &Result{State: restored}, nil
	}

	current := state.CurrentPlayer()
	if current == nil || current.Name != playerName {
		return nil, invalidPlay(ReasonNotYourTurn)
	}

	result := &Result{State: state}
	switch cmd.Type {
	case CommandPlay:
		if err := m.engine.PlayCard(playerName, cmd.Cards, state, history); err != nil {
			return nil, err
		}
		if winner, ok := m.engine.CheckVictory(state); ok {
			result.Winner = winner
			out, err := m.engine.EndRound(state, winner, m.cardsPerHand)
			if err != nil {
				return nil, err
			}
			result.Disqualified = out
			result.MatchOver = m.engine.IsMatchOver(state)
			history.Clear()
			return result, nil
		}
		m.engine.NextTurn(state)
	case CommandDraw:
		card, err := m.engine.Draw(playerName, state)
		if err != nil {
			return nil, err
		}
		result.Drawn = &card
		m.engine.NextTurn(state)
	case CommandPass:
		state.AppendLog("%s passed", playerName)
		m.engine.NextTurn(state)
	default:
		return nil, fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return result, nil
}

// Snapshot loads the current state for read-only rendering. The returned
// state must not be used as a base for a commit.
func (m *Manager) Snapshot(ctx context.Context, code string) (*GameState, error) {
	state, _, err := m.store.Load(ctx, code)
	return state, err
}
