package game

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Engine is the rule engine for Karata ya Kushuka: a pure state-transition
// function over explicit GameState values. It holds no game state of its own
// and never blocks; the hosting layer serializes mutating commands per game.
type Engine struct {
	logger *zap.Logger
	rng    *rand.Rand
}

// NewEngine creates an engine seeded from the clock.
func NewEngine(logger *zap.Logger) *Engine {
	return NewEngineWithSeed(logger, time.Now().UnixNano())
}

// NewEngineWithSeed creates an engine with a deterministic shuffle source.
func NewEngineWithSeed(logger *zap.Logger, seed int64) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// NewGame creates a fresh game: new shuffled deck, cardsPerPlayer cards dealt
// to each named player, and the first top card drawn.
func (e *Engine) NewGame(gameID string, playerNames []string, cardsPerPlayer int) (*GameState, error) {
	if len(playerNames) < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", len(playerNames))
	}
	if cardsPerPlayer < 1 {
		return nil, fmt.Errorf("cards per player must be positive, got %d", cardsPerPlayer)
	}
	if cardsPerPlayer*len(playerNames) >= DeckSize {
		return nil, fmt.Errorf("cannot deal %d cards to %d players from a %d-card deck",
			cardsPerPlayer, len(playerNames), DeckSize)
	}
	seen := make(map[string]bool, len(playerNames))
	for _, name := range playerNames {
		if name == "" {
			return nil, fmt.Errorf("player name must not be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate player name %q", name)
		}
		seen[name] = true
	}

	state := &GameState{
		GameID:    gameID,
		Round:     1,
		Players:   make([]*Player, 0, len(playerNames)),
		Deck:      NewDeck(),
		Direction: 1,
	}
	for _, name := range playerNames {
		state.Players = append(state.Players, &Player{Name: name})
	}
	if err := e.deal(state, cardsPerPlayer); err != nil {
		return nil, err
	}
	state.AppendLog("game started, top card %s", state.TopCard)
	e.logger.Info("game created",
		zap.String("game_id", gameID),
		zap.Strings("players", playerNames),
		zap.Int("cards_per_player", cardsPerPlayer),
	)
	return state, nil
}

// deal shuffles a fresh deck, fills every active player's hand and draws the
// opening top card. Used at game start and at round restarts.
func (e *Engine) deal(state *GameState, cardsPerPlayer int) error {
	state.Deck = NewDeck()
	state.Deck.Shuffle(e.rng)
	state.DiscardPile = nil
	for _, p := range state.Players {
		p.Hand = p.Hand[:0]
		for i := 0; i < cardsPerPlayer; i++ {
			card, ok := state.Deck.Draw()
			if !ok {
				return ErrDeckExhausted
			}
			p.Hand = append(p.Hand, card)
		}
	}
	top, ok := state.Deck.Draw()
	if !ok {
		return ErrDeckExhausted
	}
	state.TopCard = top
	state.TurnIndex = 0
	state.Fine = 0
	state.Direction = 1
	state.QuestionPending = false
	state.QuestionRank = 0
	state.RequestedSuit = nil
	state.RequestedRank = nil
	state.SkipNext = false
	return nil
}

// IsValidPlay reports whether the stack of cards may legally be played on the
// current state. The policy is priority-ordered; the first matching clause
// decides:
//
//  1. A pending question must be answered by rank or by the top card's suit.
//  2. An active request filters every card by the requested suit and/or rank.
//  3. A joker on top restricts follow-ups to an ace, a same-tag joker, or the
//     suits of the joker's color.
//  4. Otherwise a card must share suit or rank with the top card, or be a joker.
//
// Stacks must be homogeneous in rank, and no play is legal while another
// active player is already cardless.
func (e *Engine) IsValidPlay(cards []Card, state *GameState) bool {
	return e.validatePlay(cards, state) == nil
}

func (e *Engine) validatePlay(cards []Card, state *GameState) error {
	if len(cards) == 0 {
		return invalidPlay(ReasonEmptyStack)
	}
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return invalidPlay(ReasonMixedRanks)
		}
	}
	return e.checkTopCardPolicy(cards, state)
}

func (e *Engine) checkTopCardPolicy(cards []Card, state *GameState) error {
	first := cards[0]
	top := state.TopCard

	if state.QuestionPending {
		if first.Rank == state.QuestionRank || first.Suit == top.Suit {
			return nil
		}
		return invalidPlay(ReasonQuestionUnmatched)
	}

	if state.RequestedSuit != nil || state.RequestedRank != nil {
		for _, c := range cards {
			if state.RequestedSuit != nil && c.Suit != *state.RequestedSuit {
				return invalidPlay(ReasonRequestUnmatched)
			}
			if state.RequestedRank != nil && c.Rank != *state.RequestedRank {
				return invalidPlay(ReasonRequestUnmatched)
			}
		}
		return nil
	}

	if top.Rank == RankJoker {
		if first.Rank == RankAce {
			return nil // an ace always breaks the joker chain
		}
		if first.Rank == RankJoker {
			if first.Suit == top.Suit {
				return nil
			}
			return invalidPlay(ReasonJokerChain)
		}
		switch top.Suit {
		case SuitBlack:
			if first.Suit == SuitSpades || first.Suit == SuitClubs {
				return nil
			}
		case SuitRed:
			if first.Suit == SuitHearts || first.Suit == SuitDiamonds {
				return nil
			}
		}
		return invalidPlay(ReasonJokerChain)
	}

	if first.Matches(top) || first.Rank == RankJoker {
		return nil
	}
	return invalidPlay(ReasonNoMatch)
}

// checkCardlessBlock rejects any play while some other active player already
// holds zero cards: an unadjudicated empty hand blocks everyone else.
func checkCardlessBlock(actor *Player, state *GameState) error {
	for _, p := range state.Players {
		if p != actor && !p.Eliminated && len(p.Hand) == 0 {
			return invalidPlay(ReasonCardlessBlock)
		}
	}
	return nil
}

// PlayCard validates and applies a stack of same-rank cards played by the
// named player. On success the state is mutated in place and a pre-mutation
// snapshot is pushed onto history (when non-nil) so the move can be undone.
// On rejection the state is unchanged and the error is an *InvalidPlayError.
func (e *Engine) PlayCard(playerName string, cards []Card, state *GameState, history *History) error {
	player := state.FindPlayer(playerName)
	if player == nil || player.Eliminated {
		return invalidPlay(ReasonUnknownPlayer)
	}
	if !player.HoldsAll(cards) {
		return invalidPlay(ReasonCardNotInHand)
	}
	if err := checkCardlessBlock(player, state); err != nil {
		return err
	}
	if err := e.validatePlay(cards, state); err != nil {
		e.logger.Debug("play rejected",
			zap.String("game_id", state.GameID),
			zap.String("player", playerName),
			zap.Error(err),
		)
		return err
	}

	if history != nil {
		history.Record(state.Clone())
	}

	// A valid play answers any pending question and satisfies any active
	// request; the effects below may immediately set new ones.
	state.QuestionPending = false
	state.QuestionRank = 0
	state.RequestedSuit = nil
	state.RequestedRank = nil

	aceCount := 0
	for _, card := range cards {
		e.applyRankEffect(card, state, &aceCount)
		state.DiscardPile = append(state.DiscardPile, state.TopCard)
		state.TopCard = card
		player.RemoveCard(card)
	}

	// One ace requests a suit; two aces pin both suit and rank. Beyond two
	// the last ace wins, same as two.
	if aceCount == 1 {
		suit := state.TopCard.Suit
		state.RequestedSuit = &suit
		state.RequestedRank = nil
	} else if aceCount >= 2 {
		suit := state.TopCard.Suit
		rank := state.TopCard.Rank
		state.RequestedSuit = &suit
		state.RequestedRank = &rank
	}

	if err := state.CheckConservation(); err != nil {
		e.logger.Error("card conservation violated after play",
			zap.String("game_id", state.GameID),
			zap.String("player", playerName),
			zap.Error(err),
		)
		return err
	}

	state.AppendLog("%s played %s", playerName, formatCards(cards))
	return nil
}

// applyRankEffect applies the special effect of one played card. The switch
// is exhaustive over the effect-bearing ranks; plain numerals fall through.
func (e *Engine) applyRankEffect(card Card, state *GameState, aceCount *int) {
	switch card.Rank {
	case RankJoker:
		state.Fine += 5
		state.SkipNext = true
	case RankTwo:
		state.Fine += 2
	case RankThree:
		state.Fine += 3
	case RankAce:
		state.Fine = 0
		*aceCount++
	case RankKing:
		state.Direction *= -1
	case RankQueen, RankEight:
		state.QuestionPending = true
		state.QuestionRank = card.Rank
	case RankJack:
		state.SkipNext = true
	}
}

// Draw moves one card from the deck into the named player's hand,
// reshuffling the discard pile (the top card stays in play) when the deck
// runs dry. Returns ErrDeckExhausted when no card is available anywhere.
func (e *Engine) Draw(playerName string, state *GameState) (Card, error) {
	player := state.FindPlayer(playerName)
	if player == nil || player.Eliminated {
		return Card{}, invalidPlay(ReasonUnknownPlayer)
	}

	card, ok := state.Deck.Draw()
	if !ok {
		if len(state.DiscardPile) == 0 {
			return Card{}, ErrDeckExhausted
		}
		e.logger.Info("deck empty, reshuffling discard pile",
			zap.String("game_id", state.GameID),
			zap.Int("discard_size", len(state.DiscardPile)),
		)
		state.Deck.Refill(state.DiscardPile)
		state.DiscardPile = state.DiscardPile[:0]
		state.Deck.Shuffle(e.rng)
		card, ok = state.Deck.Draw()
		if !ok {
			return Card{}, ErrDeckExhausted
		}
	}
	player.Hand = append(player.Hand, card)

	if err := state.CheckConservation(); err != nil {
		e.logger.Error("card conservation violated after draw",
			zap.String("game_id", state.GameID),
			zap.String("player", playerName),
			zap.Error(err),
		)
		return Card{}, err
	}

	state.AppendLog("%s drew a card", playerName)
	return card, nil
}

// NextTurn advances the turn pointer in the current direction. A set skip
// flag bypasses exactly one player and is cleared; it never compounds.
func (e *Engine) NextTurn(state *GameState) {
	n := len(state.Players)
	if n == 0 || len(state.ActivePlayers()) == 0 {
		return
	}
	step := state.Direction
	if state.SkipNext {
		state.SkipNext = false
		step = 2 * state.Direction
	}
	state.TurnIndex = mod(state.TurnIndex+step, n)

	// Eliminated seats are skipped; the round restart removes disqualified
	// players, so this only matters mid-adjudication.
	for state.Players[state.TurnIndex].Eliminated {
		state.TurnIndex = mod(state.TurnIndex+state.Direction, n)
	}
}

func mod(i, n int) int {
	return ((i % n) + n) % n
}

func formatCards(cards []Card) string {
	out := ""
	for i, c := range cards {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out
}
