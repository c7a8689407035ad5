package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SerializationVersion is bumped whenever the storage document shape changes.
const SerializationVersion = 1

// Cards cross the storage/wire boundary as (suit, rank) 2-tuples; the
// in-memory engine only ever handles the typed Card value.
type cardTuple [2]string

func toTuple(c Card) cardTuple {
	return cardTuple{c.Suit.String(), c.Rank.String()}
}

func fromTuple(t cardTuple) (Card, error) {
	suit, err := ParseSuit(t[0])
	if err != nil {
		return Card{}, err
	}
	rank, err := ParseRank(t[1])
	if err != nil {
		return Card{}, err
	}
	return Card{Suit: suit, Rank: rank}, nil
}

func toTuples(cards []Card) []cardTuple {
	out := make([]cardTuple, len(cards))
	for i, c := range cards {
		out[i] = toTuple(c)
	}
	return out
}

func fromTuples(tuples []cardTuple) ([]Card, error) {
	out := make([]Card, len(tuples))
	for i, t := range tuples {
		card, err := fromTuple(t)
		if err != nil {
			return nil, err
		}
		out[i] = card
	}
	return out, nil
}

type playerDocument struct {
	Name       string      `json:"name"`
	Hand       []cardTuple `json:"hand"`
	Eliminated bool        `json:"eliminated"`
}

type logDocument struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

type stateDocument struct {
	Version         int              `json:"version"`
	GameID          string           `json:"game_id"`
	Round           int              `json:"round"`
	Players         []playerDocument `json:"players"`
	Deck            []cardTuple      `json:"deck"`
	TurnIndex       int              `json:"turn_index"`
	Direction       int              `json:"direction"`
	TopCard         cardTuple        `json:"top_card"`
	DiscardPile     []cardTuple      `json:"discard_pile"`
	Fine            int              `json:"fine"`
	QuestionPending bool             `json:"question_pending"`
	QuestionRank    string           `json:"question_rank,omitempty"`
	RequestedSuit   string           `json:"requested_suit,omitempty"`
	RequestedRank   string           `json:"requested_rank,omitempty"`
	SkipNext        bool             `json:"skip_next"`
	Disqualified    []string         `json:"disqualified,omitempty"`
	Log             []logDocument    `json:"log,omitempty"`
}

// EncodeState serializes a game state into the versioned storage document.
func EncodeState(state *GameState) ([]byte, error) {
	doc := stateDocument{
		Version:         SerializationVersion,
		GameID:          state.GameID,
		Round:           state.Round,
		Deck:            toTuples(state.Deck.Cards),
		TurnIndex:       state.TurnIndex,
		Direction:       state.Direction,
		TopCard:         toTuple(state.TopCard),
		DiscardPile:     toTuples(state.DiscardPile),
		Fine:            state.Fine,
		QuestionPending: state.QuestionPending,
		SkipNext:        state.SkipNext,
		Disqualified:    state.Disqualified,
	}
	if state.QuestionPending {
		doc.QuestionRank = state.QuestionRank.String()
	}
	if state.RequestedSuit != nil {
		doc.RequestedSuit = state.RequestedSuit.String()
	}
	if state.RequestedRank != nil {
		doc.RequestedRank = state.RequestedRank.String()
	}
	for _, p := range state.Players {
		doc.Players = append(doc.Players, playerDocument{
			Name:       p.Name,
			Hand:       toTuples(p.Hand),
			Eliminated: p.Eliminated,
		})
	}
	for _, entry := range state.Log {
		doc.Log = append(doc.Log, logDocument{Time: entry.Time, Message: entry.Message})
	}
	return json.Marshal(doc)
}

// DecodeState deserializes a storage document back into a game state.
func DecodeState(data []byte) (*GameState, error) {
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode game state: %w", err)
	}
	if doc.Version != SerializationVersion {
		return nil, fmt.Errorf("unsupported game state version %d", doc.Version)
	}

	deckCards, err := fromTuples(doc.Deck)
	if err != nil {
		return nil, fmt.Errorf("bad deck: %w", err)
	}
	topCard, err := fromTuple(doc.TopCard)
	if err != nil {
		return nil, fmt.Errorf("bad top card: %w", err)
	}
	discard, err := fromTuples(doc.DiscardPile)
	if err != nil {
		return nil, fmt.Errorf("bad discard pile: %w", err)
	}

	state := &GameState{
		GameID:          doc.GameID,
		Round:           doc.Round,
		Deck:            &Deck{Cards: deckCards},
		TurnIndex:       doc.TurnIndex,
		Direction:       doc.Direction,
		TopCard:         topCard,
		DiscardPile:     discard,
		Fine:            doc.Fine,
		QuestionPending: doc.QuestionPending,
		SkipNext:        doc.SkipNext,
		Disqualified:    doc.Disqualified,
	}
	if doc.QuestionPending {
		rank, err := ParseRank(doc.QuestionRank)
		if err != nil {
			return nil, fmt.Errorf("bad question rank: %w", err)
		}
		state.QuestionRank = rank
	}
	if doc.RequestedSuit != "" {
		suit, err := ParseSuit(doc.RequestedSuit)
		if err != nil {
			return nil, fmt.Errorf("bad requested suit: %w", err)
		}
		state.RequestedSuit = &suit
	}
	if doc.RequestedRank != "" {
		rank, err := ParseRank(doc.RequestedRank)
		if err != nil {
			return nil, fmt.Errorf("bad requested rank: %w", err)
		}
		state.RequestedRank = &rank
	}
	for _, pd := range doc.Players {
		hand, err := fromTuples(pd.Hand)
		if err != nil {
			return nil, fmt.Errorf("bad hand for %s: %w", pd.Name, err)
		}
		state.Players = append(state.Players, &Player{
			Name:       pd.Name,
			Hand:       hand,
			Eliminated: pd.Eliminated,
		})
	}
	for _, ld := range doc.Log {
		state.Log = append(state.Log, LogEntry{Time: ld.Time, Message: ld.Message})
	}
	return state, nil
}

// StateChecksum computes a deterministic SHA-256 checksum of the game state,
// independent of log contents and timestamps. The repository stores it
// alongside each save to detect divergent or corrupted states.
func StateChecksum(state *GameState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GAME:%s|%d|%d|%d|%s|%d|%t|%t\n",
		state.GameID,
		state.Round,
		state.TurnIndex,
		state.Direction,
		state.TopCard,
		state.Fine,
		state.QuestionPending,
		state.SkipNext,
	)
	if state.QuestionPending {
		fmt.Fprintf(&b, "QUESTION:%s\n", state.QuestionRank)
	}
	if state.RequestedSuit != nil {
		fmt.Fprintf(&b, "REQ_SUIT:%s\n", state.RequestedSuit)
	}
	if state.RequestedRank != nil {
		fmt.Fprintf(&b, "REQ_RANK:%s\n", state.RequestedRank)
	}
	for _, p := range state.Players {
		fmt.Fprintf(&b, "PLAYER:%s|%t|%s\n", p.Name, p.Eliminated, formatCards(p.Hand))
	}
	fmt.Fprintf(&b, "DECK:%s\n", formatCards(state.Deck.Cards))
	fmt.Fprintf(&b, "DISCARD:%s\n", formatCards(state.DiscardPile))
	fmt.Fprintf(&b, "OUT:%s\n", strings.Join(state.Disqualified, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
