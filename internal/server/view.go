package server

import (
	"github.com/karataya/karata-server-go/internal/game"
)

// Cards travel over the wire as (suit, rank) 2-tuples, matching the storage
// representation.
type cardTuple [2]string

func tupleOf(c game.Card) cardTuple {
	return cardTuple{c.Suit.String(), c.Rank.String()}
}

func tuplesOf(cards []game.Card) []cardTuple {
	out := make([]cardTuple, len(cards))
	for i, c := range cards {
		out[i] = tupleOf(c)
	}
	return out
}

// PlayerView is what everyone may see about a player: hand size, never the
// hand itself.
type PlayerView struct {
	Name       string `json:"name"`
	HandCount  int    `json:"hand_count"`
	Eliminated bool   `json:"eliminated"`
}

// GameView renders a game state for one viewer. Only the viewer's own hand
// is included.
type GameView struct {
	GameCode        string       `json:"game_code"`
	Round           int          `json:"round"`
	TopCard         cardTuple    `json:"top_card"`
	Fine            int          `json:"fine"`
	Direction       int          `json:"direction"`
	TurnPlayer      string       `json:"turn_player"`
	QuestionPending bool         `json:"question_pending"`
	QuestionRank    string       `json:"question_rank,omitempty"`
	RequestedSuit   string       `json:"requested_suit,omitempty"`
	RequestedRank   string       `json:"requested_rank,omitempty"`
	DeckCount       int          `json:"deck_count"`
	DiscardCount    int          `json:"discard_count"`
	Players         []PlayerView `json:"players"`
	Hand            []cardTuple  `json:"hand"`
	Disqualified    []string     `json:"disqualified,omitempty"`
	LastEvents      []string     `json:"last_events,omitempty"`
}

// lastEventCount limits how much of the game log a view carries.
const lastEventCount = 5

func buildGameView(state *game.GameState, viewer string) GameView {
	view := GameView{
		GameCode:        state.GameID,
		Round:           state.Round,
		TopCard:         tupleOf(state.TopCard),
		Fine:            state.Fine,
		Direction:       state.Direction,
		QuestionPending: state.QuestionPending,
		DeckCount:       state.Deck.Size(),
		DiscardCount:    len(state.DiscardPile),
		Disqualified:    state.Disqualified,
	}
	if current := state.CurrentPlayer(); current != nil {
		view.TurnPlayer = current.Name
	}
	if state.QuestionPending {
		view.QuestionRank = state.QuestionRank.String()
	}
	if state.RequestedSuit != nil {
		view.RequestedSuit = state.RequestedSuit.String()
	}
	if state.RequestedRank != nil {
		view.RequestedRank = state.RequestedRank.String()
	}
	for _, p := range state.Players {
		view.Players = append(view.Players, PlayerView{
			Name:       p.Name,
			HandCount:  len(p.Hand),
			Eliminated: p.Eliminated,
		})
		if p.Name == viewer {
			view.Hand = tuplesOf(p.Hand)
		}
	}
	start := len(state.Log) - lastEventCount
	if start < 0 {
		start = 0
	}
	for _, entry := range state.Log[start:] {
		view.LastEvents = append(view.LastEvents, entry.Message)
	}
	return view
}

func parseCards(tuples []cardTuple) ([]game.Card, error) {
	cards := make([]game.Card, 0, len(tuples))
	for _, t := range tuples {
		suit, err := game.ParseSuit(t[0])
		if err != nil {
			return nil, err
		}
		rank, err := game.ParseRank(t[1])
		if err != nil {
			return nil, err
		}
		cards = append(cards, game.Card{Suit: suit, Rank: rank})
	}
	return cards, nil
}
