package game

import "go.uber.org/zap"

// CheckVictory reports the winner's name after a successful play. A player
// wins only when they are the single active cardless player and the card on
// top of the discard pile (the card the winner discarded onto) carries a
// rule effect. Emptying a hand onto a plain 4-10 numeral does not win.
func (e *Engine) CheckVictory(state *GameState) (string, bool) {
	var cardless *Player
	for _, p := range state.Players {
		if p.Eliminated || len(p.Hand) != 0 {
			continue
		}
		if cardless != nil {
			return "", false
		}
		cardless = p
	}
	if cardless == nil {
		return "", false
	}
	if len(state.DiscardPile) == 0 {
		return "", false
	}
	if !state.DiscardPile[len(state.DiscardPile)-1].Rank.Special() {
		return "", false
	}
	return cardless.Name, true
}

// HandPoints sums the disqualification point values of a hand.
func HandPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += c.Rank.Points()
	}
	return total
}

// DisqualifyPlayer selects the active player, excluding the winner, with the
// highest summed hand points. Ties break toward the earliest seat in turn
// order. Returns nil when no candidate exists.
func (e *Engine) DisqualifyPlayer(players []*Player, winnerName string) *Player {
	var loser *Player
	best := -1
	for _, p := range players {
		if p.Name == winnerName || p.Eliminated {
			continue
		}
		if points := HandPoints(p.Hand); points > best {
			best = points
			loser = p
		}
	}
	return loser
}

// EndRound adjudicates a detected victory: the highest-scoring remaining
// player is disqualified and removed from the seating, and unless the match
// is over a fresh round is dealt with all flags reset. Returns the name of
// the disqualified player. History should be cleared by the caller.
func (e *Engine) EndRound(state *GameState, winnerName string, cardsPerPlayer int) (string, error) {
	loser := e.DisqualifyPlayer(state.Players, winnerName)
	if loser == nil {
		return "", nil
	}
	loser.Eliminated = true
	state.Disqualified = append(state.Disqualified, loser.Name)
	state.AppendLog("%s wins the round; %s disqualified with %d points",
		winnerName, loser.Name, HandPoints(loser.Hand))
	e.logger.Info("round ended",
		zap.String("game_id", state.GameID),
		zap.String("winner", winnerName),
		zap.String("disqualified", loser.Name),
	)

	remaining := make([]*Player, 0, len(state.Players))
	for _, p := range state.Players {
		if !p.Eliminated {
			remaining = append(remaining, p)
		}
	}
	state.Players = remaining

	if e.IsMatchOver(state) {
		state.AppendLog("match over: %s is the last player standing", state.Players[0].Name)
		return loser.Name, nil
	}

	state.Round++
	if err := e.deal(state, cardsPerPlayer); err != nil {
		return loser.Name, err
	}
	state.AppendLog("round %d started, top card %s", state.Round, state.TopCard)
	return loser.Name, nil
}

// IsMatchOver reports whether only one player remains un-disqualified.
func (e *Engine) IsMatchOver(state *GameState) bool {
	return len(state.ActivePlayers()) <= 1
}
