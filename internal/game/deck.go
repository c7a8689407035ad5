package game

import "math/rand"

// DeckSize is the number of cards in a full deck: 52 standard plus 2 jokers.
const DeckSize = 54

var standardSuits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

var standardRanks = []Rank{
	RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing, RankAce,
}

// Deck is an ordered pile of cards owned exclusively by one game.
// The top of the deck is the end of the slice.
type Deck struct {
	Cards []Card
}

// NewDeck builds the full 54-card deck in a fixed order. Callers shuffle
// before dealing.
func NewDeck() *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range standardSuits {
		for _, rank := range standardRanks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	cards = append(cards,
		Card{Suit: SuitBlack, Rank: RankJoker},
		Card{Suit: SuitRed, Rank: RankJoker},
	)
	return &Deck{Cards: cards}
}

// FullSet returns the canonical 54-card set, used for conservation checks.
func FullSet() []Card {
	return NewDeck().Cards
}

// Shuffle applies a uniform random permutation using the supplied source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Draw removes and returns the top card. The second return value is false
// when the deck is empty; refilling from the discard pile is the engine's
// responsibility because the discard pile lives on the game state.
func (d *Deck) Draw() (Card, bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}
	card := d.Cards[len(d.Cards)-1]
	d.Cards = d.Cards[:len(d.Cards)-1]
	return card, true
}

// Refill replaces the deck contents. Used when the discard pile is
// reshuffled back in.
func (d *Deck) Refill(cards []Card) {
	d.Cards = append(d.Cards[:0], cards...)
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.Cards)
}

// Clone returns a deep copy of the deck.
func (d *Deck) Clone() *Deck {
	cards := make([]Card, len(d.Cards))
	copy(cards, d.Cards)
	return &Deck{Cards: cards}
}
