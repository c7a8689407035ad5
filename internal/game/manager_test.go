package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory Store with the same optimistic versioning
// contract as the postgres repository.
type memStore struct {
	mu       sync.Mutex
	states   map[string]*GameState
	versions map[string]int64

	// failSaves makes the next n saves fail with ErrVersionConflict.
	failSaves int
	// failNext makes the next save fail with this error, once.
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		states:   make(map[string]*GameState),
		versions: make(map[string]int64),
	}
}

func (s *memStore) Load(_ context.Context, code string) (*GameState, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[code]
	if !ok {
		return nil, 0, errors.New("game not found")
	}
	return state.Clone(), s.versions[code], nil
}

func (s *memStore) Save(_ context.Context, code string, state *GameState, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves > 0 {
		s.failSaves--
		return ErrVersionConflict
	}
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	if s.versions[code] != expectedVersion {
		return ErrVersionConflict
	}
	s.states[code] = state.Clone()
	s.versions[code] = expectedVersion + 1
	return nil
}

func (s *memStore) Create(_ context.Context, code string, state *GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[code] = state.Clone()
	s.versions[code] = 1
	return nil
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	return NewManager(testEngine(), store, 3, 8, zap.NewNop())
}

func seedGame(t *testing.T, store *memStore, state *GameState) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), state.GameID, state))
}

func TestManagerEnforcesTurnOrder(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitHearts, RankFour)},
		"bob":   {card(SuitClubs, RankNine)},
	})
	seedGame(t, store, state)

	_, err := m.Submit(context.Background(), "test-game", "bob", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitClubs, RankNine)},
	})
	var invalid *InvalidPlayError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, ReasonNotYourTurn, invalid.Reason)
}

func TestManagerPlayAdvancesTurnAndPersists(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitHearts, RankFour), card(SuitClubs, RankSix)},
		"bob":   {card(SuitClubs, RankNine)},
	})
	seedGame(t, store, state)

	result, err := m.Submit(context.Background(), "test-game", "alice", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitHearts, RankFour)},
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", result.State.CurrentPlayer().Name)
	assert.Equal(t, card(SuitHearts, RankFour), result.State.TopCard)

	// The committed state is what a fresh snapshot sees.
	snap, err := m.Snapshot(context.Background(), "test-game")
	require.NoError(t, err)
	assert.Equal(t, StateChecksum(result.State), StateChecksum(snap))
	assert.Equal(t, int64(2), store.versions["test-game"])
}

func TestManagerDrawAdvancesTurn(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitClubs, RankFour)},
		"bob":   {card(SuitSpades, RankFive)},
	})
	seedGame(t, store, state)

	result, err := m.Submit(context.Background(), "test-game", "alice", Command{Type: CommandDraw})
	require.NoError(t, err)
	require.NotNil(t, result.Drawn)
	assert.Len(t, result.State.FindPlayer("alice").Hand, 2)
	assert.Equal(t, "bob", result.State.CurrentPlayer().Name)
}

func TestManagerUndoRestoresPrePlayState(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitHearts, RankTwo), card(SuitClubs, RankSix)},
		"bob":   {card(SuitSpades, RankFive)},
	})
	seedGame(t, store, state)
	before := StateChecksum(state)

	_, err := m.Submit(context.Background(), "test-game", "alice", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitHearts, RankTwo)},
	})
	require.NoError(t, err)

	result, err := m.Submit(context.Background(), "test-game", "bob", Command{Type: CommandUndo})
	require.NoError(t, err)
	assert.Equal(t, before, StateChecksum(result.State))

	// Nothing left to undo.
	_, err = m.Submit(context.Background(), "test-game", "bob", Command{Type: CommandUndo})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestManagerUndoRetryRevertsExactlyOneMove(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitHearts, RankFour), card(SuitClubs, RankSix)},
		"bob":   {card(SuitSpades, RankFour), card(SuitSpades, RankFive)},
	})
	seedGame(t, store, state)
	start := StateChecksum(state)

	first, err := m.Submit(context.Background(), "test-game", "alice", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitHearts, RankFour)},
	})
	require.NoError(t, err)
	afterFirst := StateChecksum(first.State)

	_, err = m.Submit(context.Background(), "test-game", "bob", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitSpades, RankFour)},
	})
	require.NoError(t, err)

	// A save conflict on the undo itself must not consume an extra snapshot.
	store.failSaves = 1
	result, err := m.Submit(context.Background(), "test-game", "alice", Command{Type: CommandUndo})
	require.NoError(t, err)
	assert.Equal(t, afterFirst, StateChecksum(result.State),
		"one undo reverts exactly one move")

	result, err = m.Submit(context.Background(), "test-game", "alice", Command{Type: CommandUndo})
	require.NoError(t, err)
	assert.Equal(t, start, StateChecksum(result.State))
}

func TestManagerFailedSaveDropsPlaySnapshot(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitHearts, RankFour), card(SuitClubs, RankSix)},
		"bob":   {card(SuitSpades, RankFive)},
	})
	seedGame(t, store, state)
	store.failNext = errors.New("connection reset")

	_, err := m.Submit(context.Background(), "test-game", "alice", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitHearts, RankFour)},
	})
	require.ErrorContains(t, err, "connection reset")

	// The play never committed, so there is nothing to undo.
	_, err = m.Submit(context.Background(), "test-game", "alice", Command{Type: CommandUndo})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestManagerRetriesOnVersionConflict(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitClubs, RankFour)},
		"bob":   {card(SuitSpades, RankFive)},
	})
	seedGame(t, store, state)
	store.failSaves = 1

	result, err := m.Submit(context.Background(), "test-game", "alice", Command{Type: CommandPass})
	require.NoError(t, err)
	assert.Equal(t, "bob", result.State.CurrentPlayer().Name)
}

func TestManagerVictoryAdjudication(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankKing), []string{"alice", "bob", "carol"}, map[string][]Card{
		"alice": {card(SuitHearts, RankNine)},
		"bob":   {card(SuitClubs, RankTen), card(SuitDiamonds, RankNine)},
		"carol": {card(SuitBlack, RankJoker)},
	})
	seedGame(t, store, state)

	// Alice empties her hand onto a king, a special card, so she wins.
	result, err := m.Submit(context.Background(), "test-game", "alice", Command{
		Type:  CommandPlay,
		Cards: []Card{card(SuitHearts, RankNine)},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Winner)
	assert.Equal(t, "carol", result.Disqualified, "joker hand scores highest")
	assert.False(t, result.MatchOver)

	// A fresh round was dealt for the two remaining players.
	assert.Len(t, result.State.Players, 2)
	assert.Equal(t, 2, result.State.Round)
	for _, p := range result.State.Players {
		assert.Len(t, p.Hand, 3)
	}

	// The undo history does not survive a round restart.
	_, err = m.Submit(context.Background(), "test-game",
		result.State.CurrentPlayer().Name, Command{Type: CommandUndo})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestManagerRejectsCommandsAfterMatchOver(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)
	state := newTestState(t, card(SuitHearts, RankNine), []string{"alice", "bob"}, map[string][]Card{
		"alice": {card(SuitClubs, RankFour)},
		"bob":   {card(SuitSpades, RankFive)},
	})
	state.Players = state.Players[:1] // only alice left standing
	seedGame(t, store, state)

	_, err := m.Submit(context.Background(), "test-game", "alice", Command{Type: CommandPass})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestManagerCreateGame(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store)

	state, err := m.CreateGame(context.Background(), "fresh", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.NoError(t, state.CheckConservation())
	for _, p := range state.Players {
		assert.Len(t, p.Hand, 3)
	}

	snap, err := m.Snapshot(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, StateChecksum(state), StateChecksum(snap))
}
