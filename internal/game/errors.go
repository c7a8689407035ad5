package game

import (
	"errors"
	"fmt"
)

var (
	// ErrDeckExhausted is returned when a draw is attempted with both the
	// deck and the discard pile empty. The turn does not silently advance.
	ErrDeckExhausted = errors.New("deck and discard pile exhausted")

	// ErrNoHistory is returned when an undo is requested with nothing to undo.
	ErrNoHistory = errors.New("no move to undo")

	// ErrGameOver is returned for commands submitted after the match ended.
	ErrGameOver = errors.New("game is over")
)

// InvalidReason classifies why a play was rejected.
type InvalidReason string

const (
	ReasonEmptyStack        InvalidReason = "no cards submitted"
	ReasonMixedRanks        InvalidReason = "stacked cards must share one rank"
	ReasonCardNotInHand     InvalidReason = "card not in hand"
	ReasonCardlessBlock     InvalidReason = "another player is already cardless"
	ReasonQuestionUnmatched InvalidReason = "does not answer the pending question"
	ReasonRequestUnmatched  InvalidReason = "does not satisfy the active request"
	ReasonJokerChain        InvalidReason = "not playable on the joker in play"
	ReasonNoMatch           InvalidReason = "does not match the top card"
	ReasonNotYourTurn       InvalidReason = "not your turn"
	ReasonUnknownPlayer     InvalidReason = "player not in game"
)

// InvalidPlayError is a recoverable rejection of a play. The game state is
// unchanged; the caller re-prompts the same player.
type InvalidPlayError struct {
	Reason InvalidReason
}

func (e *InvalidPlayError) Error() string {
	return fmt.Sprintf("invalid play: %s", e.Reason)
}

func invalidPlay(reason InvalidReason) error {
	return &InvalidPlayError{Reason: reason}
}

// ConservationError signals a violation of the card-conservation invariant.
// It indicates a bug, not user error, and is never silently tolerated.
type ConservationError struct {
	Detail string
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("card conservation violated: %s", e.Detail)
}
