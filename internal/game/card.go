package game

import "fmt"

// Suit identifies a card's suit. The two jokers carry their own suit tags
// (Black and Red) which restrict what may be played on top of them.
type Suit int

const (
	SuitHearts Suit = iota
	SuitDiamonds
	SuitClubs
	SuitSpades
	SuitBlack
	SuitRed
)

var suitNames = map[Suit]string{
	SuitHearts:   "Hearts",
	SuitDiamonds: "Diamonds",
	SuitClubs:    "Clubs",
	SuitSpades:   "Spades",
	SuitBlack:    "Black",
	SuitRed:      "Red",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SUIT_%d", int(s))
}

// ParseSuit converts a serialized suit name back into a Suit.
func ParseSuit(name string) (Suit, error) {
	for suit, n := range suitNames {
		if n == name {
			return suit, nil
		}
	}
	// Some decks label the red joker "White".
	if name == "White" {
		return SuitRed, nil
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Rank identifies a card's rank.
type Rank int

const (
	RankTwo Rank = iota
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
	RankJoker
)

var rankNames = map[Rank]string{
	RankTwo:   "2",
	RankThree: "3",
	RankFour:  "4",
	RankFive:  "5",
	RankSix:   "6",
	RankSeven: "7",
	RankEight: "8",
	RankNine:  "9",
	RankTen:   "10",
	RankJack:  "J",
	RankQueen: "Q",
	RankKing:  "K",
	RankAce:   "A",
	RankJoker: "Joker",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RANK_%d", int(r))
}

// ParseRank converts a serialized rank name back into a Rank.
func ParseRank(name string) (Rank, error) {
	for rank, n := range rankNames {
		if n == name {
			return rank, nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", name)
}

// Special reports whether the rank carries a rule effect. Only the plain
// numerals 4 through 10 are dead cards; a game cannot be won on one.
func (r Rank) Special() bool {
	return r < RankFour || r > RankTen
}

// Points returns the disqualification point value of the rank.
func (r Rank) Points() int {
	switch r {
	case RankJoker:
		return 300
	case RankQueen:
		return 250
	case RankKing:
		return 200
	case RankAce:
		return 150
	case RankJack:
		return 100
	case RankTwo:
		return 75
	case RankThree:
		return 50
	default:
		// Numerals count their face value.
		return int(r) + 2
	}
}

// Card is an immutable card identity, compared by (suit, rank) equality.
type Card struct {
	Suit Suit
	Rank Rank
}

// Matches reports whether the card shares a suit or rank with other.
func (c Card) Matches(other Card) bool {
	return c.Suit == other.Suit || c.Rank == other.Rank
}

func (c Card) String() string {
	if c.Rank == RankJoker {
		return fmt.Sprintf("%s Joker", c.Suit)
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}
