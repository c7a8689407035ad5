package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karataya/karata-server-go/internal/game"
)

func newTestServer() *Server {
	return &Server{hub: NewHub(zap.NewNop()), logger: zap.NewNop()}
}

func newTestGameState() *game.GameState {
	return &game.GameState{
		GameID:    "G1",
		Round:     1,
		Deck:      &game.Deck{},
		Direction: 1,
		TopCard:   game.Card{Suit: game.SuitHearts, Rank: game.RankNine},
		Players: []*game.Player{
			{Name: "alice", Hand: []game.Card{{Suit: game.SuitClubs, Rank: game.RankFour}}},
			{Name: "bob", Hand: []game.Card{{Suit: game.SuitSpades, Rank: game.RankFive}}},
		},
	}
}

func registerTestClient(s *Server, player string) *Client {
	c := &Client{send: make(chan []byte, 4), playerID: player, gameCode: "G1"}
	s.hub.Register(c)
	return c
}

func TestBroadcastStateReachesEveryClient(t *testing.T) {
	s := newTestServer()
	alice := registerTestClient(s, "alice")
	bob := registerTestClient(s, "bob")

	s.broadcastState("G1", newTestGameState(), wsResponse{Type: "state"}, nil)

	require.Len(t, alice.send, 1)
	require.Len(t, bob.send, 1)

	// Each client sees only its own hand.
	var resp wsResponse
	require.NoError(t, json.Unmarshal(<-alice.send, &resp))
	require.NotNil(t, resp.Game)
	assert.Equal(t, []cardTuple{{"Clubs", "4"}}, resp.Game.Hand)
}

func TestBroadcastStateSkipsServedClient(t *testing.T) {
	s := newTestServer()
	alice := registerTestClient(s, "alice")
	bob := registerTestClient(s, "bob")

	// The drawer already got a private reply; the broadcast must not send a
	// second state message to the same connection.
	s.broadcastState("G1", newTestGameState(), wsResponse{Type: "state"}, alice)

	assert.Empty(t, alice.send)
	assert.Len(t, bob.send, 1)
}
