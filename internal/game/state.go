package game

import (
	"fmt"
	"time"
)

// Player is one seat in a game. Hands are multisets; order is irrelevant.
type Player struct {
	Name       string
	Hand       []Card
	Eliminated bool
}

// HoldsAll reports whether the hand contains every card in cards, counting
// duplicates in the request against distinct copies in the hand.
func (p *Player) HoldsAll(cards []Card) bool {
	remaining := make([]Card, len(p.Hand))
	copy(remaining, p.Hand)
	for _, want := range cards {
		found := -1
		for i, held := range remaining {
			if held == want {
				found = i
				break
			}
		}
		if found == -1 {
			return false
		}
		remaining[found] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}
	return true
}

// RemoveCard removes the first copy of card from the hand.
func (p *Player) RemoveCard(card Card) bool {
	for i, held := range p.Hand {
		if held == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Player) clone() *Player {
	hand := make([]Card, len(p.Hand))
	copy(hand, p.Hand)
	return &Player{Name: p.Name, Hand: hand, Eliminated: p.Eliminated}
}

// LogEntry is one line of the per-game event log.
type LogEntry struct {
	Time    time.Time
	Message string
}

// GameState is the complete mutable record of one in-progress game. Every
// engine operation takes the state explicitly and mutates it in place; there
// is no ambient shared game state, so independent games never interfere.
type GameState struct {
	GameID      string
	Round       int
	Players     []*Player
	Deck        *Deck
	TurnIndex   int
	Direction   int
	TopCard     Card
	DiscardPile []Card

	Fine            int
	QuestionPending bool
	QuestionRank    Rank
	RequestedSuit   *Suit
	RequestedRank   *Rank
	SkipNext        bool

	// Disqualified accumulates player names knocked out across rounds.
	Disqualified []string

	Log []LogEntry
}

// CurrentPlayer returns the player whose turn it is.
func (s *GameState) CurrentPlayer() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	return s.Players[s.TurnIndex%len(s.Players)]
}

// FindPlayer returns the named player, or nil.
func (s *GameState) FindPlayer(name string) *Player {
	for _, p := range s.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ActivePlayers returns the non-eliminated players in turn order.
func (s *GameState) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.Eliminated {
			active = append(active, p)
		}
	}
	return active
}

// AppendLog records a game event.
func (s *GameState) AppendLog(format string, args ...any) {
	s.Log = append(s.Log, LogEntry{
		Time:    time.Now().UTC(),
		Message: fmt.Sprintf(format, args...),
	})
}

// Clone returns a deep copy of the state, suitable for undo snapshots.
func (s *GameState) Clone() *GameState {
	players := make([]*Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = p.clone()
	}
	discard := make([]Card, len(s.DiscardPile))
	copy(discard, s.DiscardPile)
	disqualified := make([]string, len(s.Disqualified))
	copy(disqualified, s.Disqualified)
	log := make([]LogEntry, len(s.Log))
	copy(log, s.Log)

	clone := &GameState{
		GameID:          s.GameID,
		Round:           s.Round,
		Players:         players,
		Deck:            s.Deck.Clone(),
		TurnIndex:       s.TurnIndex,
		Direction:       s.Direction,
		TopCard:         s.TopCard,
		DiscardPile:     discard,
		Fine:            s.Fine,
		QuestionPending: s.QuestionPending,
		QuestionRank:    s.QuestionRank,
		SkipNext:        s.SkipNext,
		Disqualified:    disqualified,
		Log:             log,
	}
	if s.RequestedSuit != nil {
		suit := *s.RequestedSuit
		clone.RequestedSuit = &suit
	}
	if s.RequestedRank != nil {
		rank := *s.RequestedRank
		clone.RequestedRank = &rank
	}
	return clone
}

// CheckConservation verifies that the deck, the discard pile, all hands and
// the top card together form exactly the full 54-card set. Any duplicate or
// missing card is a fatal internal-consistency error.
func (s *GameState) CheckConservation() error {
	counts := make(map[Card]int, DeckSize)
	add := func(c Card) { counts[c]++ }

	for _, c := range s.Deck.Cards {
		add(c)
	}
	for _, c := range s.DiscardPile {
		add(c)
	}
	for _, p := range s.Players {
		for _, c := range p.Hand {
			add(c)
		}
	}
	add(s.TopCard)

	total := len(s.Deck.Cards) + len(s.DiscardPile) + 1
	for _, p := range s.Players {
		total += len(p.Hand)
	}
	if total != DeckSize {
		return &ConservationError{Detail: fmt.Sprintf("%d cards in circulation, want %d", total, DeckSize)}
	}

	for _, c := range FullSet() {
		switch counts[c] {
		case 1:
		case 0:
			return &ConservationError{Detail: fmt.Sprintf("missing %s", c)}
		default:
			return &ConservationError{Detail: fmt.Sprintf("%d copies of %s", counts[c], c)}
		}
	}
	return nil
}
