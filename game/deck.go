package game

import (
	"math/rand"
	"sync"
	"time"
)

// Deck is the draw pool. Draw reports false once the pool is empty.
type Deck interface {
	Draw() (Card, bool)
}

// RandomDeck draws every card independently at random and never runs out.
// Attacks make up 60 of every 72 draws; Flow, Stun and Add take 4 each.
type RandomDeck struct {
	rng   *rand.Rand
	mutex sync.Mutex
}

// NewRandomDeck seeds a deck from the clock.
func NewRandomDeck() *RandomDeck {
	return NewSeededDeck(time.Now().UnixNano())
}

// NewSeededDeck returns a reproducible deck.
func NewSeededDeck(seed int64) *RandomDeck {
	return &RandomDeck{rng: rand.New(rand.NewSource(seed))}
}

func (d *RandomDeck) Draw() (Card, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	element := Element(d.rng.Intn(len(Elements)))

	var effect Effect
	switch roll := d.rng.Intn(72); {
	case roll < 60:
		effect = AttackEffect(MinAttackPower + d.rng.Intn(MaxAttackPower-MinAttackPower+1))
	case roll < 64:
		effect = FlowEffect()
	case roll < 68:
		effect = StunEffect()
	default:
		effect = AddEffect(MinAddCount + d.rng.Intn(MaxAddCount-MinAddCount+1))
	}
	return Card{Element: element, Effect: effect}, true
}

// StackedDeck hands out a fixed sequence of cards, first card first.
type StackedDeck struct {
	cards []Card
	mutex sync.Mutex
}

func NewStackedDeck(cards ...Card) *StackedDeck {
	stack := make([]Card, len(cards))
	copy(stack, cards)
	return &StackedDeck{cards: stack}
}

func (d *StackedDeck) Draw() (Card, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Remaining returns the number of cards left.
func (d *StackedDeck) Remaining() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.cards)
}
