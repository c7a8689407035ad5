package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVictoryRequiresSpecialDiscard(t *testing.T) {
	e := testEngine()

	t.Run("hand out onto a dead numeral is no win", func(t *testing.T) {
		state := newTestState(t, card(SuitHearts, RankQueen), []string{"alice", "bob"}, map[string][]Card{
			"alice": nil,
			"bob":   {card(SuitClubs, RankFour)},
		})
		discardFromDeck(t, state, card(SuitHearts, RankSeven))

		_, ok := e.CheckVictory(state)
		assert.False(t, ok)
	})

	t.Run("hand out onto a special card wins", func(t *testing.T) {
		state := newTestState(t, card(SuitHearts, RankFive), []string{"alice", "bob"}, map[string][]Card{
			"alice": nil,
			"bob":   {card(SuitClubs, RankFour)},
		})
		discardFromDeck(t, state, card(SuitHearts, RankQueen))

		winner, ok := e.CheckVictory(state)
		require.True(t, ok)
		assert.Equal(t, "alice", winner)
	})

	t.Run("no cardless player means no winner", func(t *testing.T) {
		state := newTestState(t, card(SuitHearts, RankFive), []string{"alice", "bob"}, map[string][]Card{
			"alice": {card(SuitDiamonds, RankSix)},
			"bob":   {card(SuitClubs, RankFour)},
		})
		discardFromDeck(t, state, card(SuitHearts, RankQueen))

		_, ok := e.CheckVictory(state)
		assert.False(t, ok)
	})

	t.Run("empty discard pile means no winner", func(t *testing.T) {
		state := newTestState(t, card(SuitHearts, RankFive), []string{"alice", "bob"}, map[string][]Card{
			"alice": nil,
			"bob":   {card(SuitClubs, RankFour)},
		})
		_, ok := e.CheckVictory(state)
		assert.False(t, ok)
	})
}

func TestHandPoints(t *testing.T) {
	assert.Equal(t, 205, HandPoints([]Card{card(SuitHearts, RankKing), card(SuitClubs, RankFive)}))
	assert.Equal(t, 19, HandPoints([]Card{card(SuitHearts, RankTen), card(SuitClubs, RankNine)}))
	assert.Equal(t, 300, HandPoints([]Card{card(SuitBlack, RankJoker)}))
	assert.Equal(t, 0, HandPoints(nil))
}

func TestDisqualifyPlayerPicksHighestPoints(t *testing.T) {
	e := testEngine()
	players := []*Player{
		{Name: "winner"},
		{Name: "low", Hand: []Card{card(SuitHearts, RankTen), card(SuitClubs, RankNine)}},   // 19
		{Name: "high", Hand: []Card{card(SuitHearts, RankKing), card(SuitClubs, RankFive)}}, // 205
	}

	loser := e.DisqualifyPlayer(players, "winner")
	require.NotNil(t, loser)
	assert.Equal(t, "high", loser.Name)
}

func TestDisqualifyPlayerTieBreaksByTurnOrder(t *testing.T) {
	e := testEngine()
	players := []*Player{
		{Name: "winner"},
		{Name: "first", Hand: []Card{card(SuitHearts, RankKing)}},
		{Name: "second", Hand: []Card{card(SuitSpades, RankKing)}},
	}

	loser := e.DisqualifyPlayer(players, "winner")
	require.NotNil(t, loser)
	assert.Equal(t, "first", loser.Name, "earliest seat loses the tie")
}

func TestDisqualifyPlayerExcludesWinnerAndEliminated(t *testing.T) {
	e := testEngine()
	players := []*Player{
		{Name: "winner", Hand: []Card{card(SuitBlack, RankJoker)}},
		{Name: "gone", Eliminated: true, Hand: []Card{card(SuitRed, RankJoker)}},
		{Name: "stay", Hand: []Card{card(SuitClubs, RankFour)}},
	}

	loser := e.DisqualifyPlayer(players, "winner")
	require.NotNil(t, loser)
	assert.Equal(t, "stay", loser.Name)
}

func TestEndRoundRestartsWithFreshDeal(t *testing.T) {
	e := testEngine()
	state := newTestState(t, card(SuitHearts, RankFive), []string{"alice", "bob", "carol", "dave"}, map[string][]Card{
		"alice": nil,
		"bob":   {card(SuitClubs, RankFour)},
		"carol": {card(SuitHearts, RankKing), card(SuitBlack, RankJoker)},
		"dave":  {card(SuitSpades, RankSix)},
	})
	discardFromDeck(t, state, card(SuitHearts, RankQueen))
	state.Fine = 7
	state.Direction = -1
	state.SkipNext = true

	winner, ok := e.CheckVictory(state)
	require.True(t, ok)
	require.Equal(t, "alice", winner)

	out, err := e.EndRound(state, winner, 3)
	require.NoError(t, err)
	assert.Equal(t, "carol", out, "joker plus king is the costliest hand")

	assert.Len(t, state.Players, 3)
	assert.Nil(t, state.FindPlayer("carol"))
	assert.Contains(t, state.Disqualified, "carol")
	assert.Equal(t, 2, state.Round)
	assert.False(t, e.IsMatchOver(state))

	// Fresh deal, flags reset.
	for _, p := range state.Players {
		assert.Len(t, p.Hand, 3)
	}
	assert.Equal(t, 0, state.Fine)
	assert.Equal(t, 1, state.Direction)
	assert.False(t, state.SkipNext)
	assert.False(t, state.QuestionPending)
	assert.Nil(t, state.RequestedSuit)
	assert.NoError(t, state.CheckConservation())
}

func TestEndRoundEndsMatchWithTwoPlayers(t *testing.T) {
	e := testEngine()
	state := newTestState(t, card(SuitHearts, RankFive), []string{"alice", "bob"}, map[string][]Card{
		"alice": nil,
		"bob":   {card(SuitClubs, RankFour)},
	})
	discardFromDeck(t, state, card(SuitHearts, RankQueen))

	out, err := e.EndRound(state, "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, "bob", out)
	assert.True(t, e.IsMatchOver(state))
	assert.Len(t, state.Players, 1)
	assert.Equal(t, "alice", state.Players[0].Name)
}
