// Package game is the turn-based elemental card engine. A Game is not safe
// for concurrent use; the owning room serializes access to it.
package game

import (
	"encoding/json"
	"math"

	"github.com/wfunc/cardroom/errs"
)

// HandSize is the number of cards dealt to each player.
const HandSize = 8

var (
	ErrNotEnoughPlayers = errs.New(errs.KindCapacity, "not enough players")
	ErrPlayerNotFound   = errs.New(errs.KindForbidden, "player is not in this game")
	ErrWrongTurn        = errs.New(errs.KindForbidden, "not your turn")
	ErrCardNotFound     = errs.New(errs.KindGameRule, "card index out of range")
	ErrIllegalCard      = errs.New(errs.KindGameRule, "card cannot be played on the last card")
	ErrNoCardsLeft      = errs.New(errs.KindGameRule, "no cards left to draw")
	ErrGameOver         = errs.New(errs.KindGameRule, "game is over")
)

// Direction is the order turns move through the players.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Flip reverses the direction in place.
func (d *Direction) Flip() {
	if *d == Forward {
		*d = Backward
	} else {
		*d = Forward
	}
}

func (d Direction) sign() int {
	if d == Backward {
		return -1
	}
	return 1
}

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Player is a participant in the active rotation.
type Player struct {
	ID       string
	Hand     []Card
	CardsHad int
}

// out is a player who has left the rotation.
type out struct {
	id       string
	cardsHad int
}

// Game is one round from deal to a single remaining player.
type Game struct {
	card       Card
	players    []*Player
	turn       int
	direction  Direction
	finished   bool
	eliminated []out
	forfeited  []out
	deck       Deck
}

// New deals handSize cards to every player in order. At least two players
// are required.
func New(playerIDs []string, deck Deck, handSize int) (*Game, error) {
	if len(playerIDs) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	g := &Game{
		card:      Opener,
		players:   make([]*Player, 0, len(playerIDs)),
		direction: Forward,
		deck:      deck,
	}
	for _, id := range playerIDs {
		p := &Player{ID: id, Hand: make([]Card, 0, handSize)}
		for i := 0; i < handSize; i++ {
			card, ok := deck.Draw()
			if !ok {
				return nil, ErrNoCardsLeft
			}
			p.Hand = append(p.Hand, card)
			p.CardsHad++
		}
		g.players = append(g.players, p)
	}
	return g, nil
}

// Outcome describes what a successful move did.
type Outcome struct {
	Played     *Card
	Drew       bool
	Eliminated bool
	Finished   bool
}

// Play moves for playerID. With a nil cardIndex the player draws one card
// instead of playing. An illegal move changes nothing.
func (g *Game) Play(playerID string, cardIndex *int) (Outcome, error) {
	if g.finished {
		return Outcome{}, ErrGameOver
	}
	index := g.indexOf(playerID)
	if index < 0 {
		return Outcome{}, ErrPlayerNotFound
	}
	if index != g.turn {
		return Outcome{}, ErrWrongTurn
	}
	player := g.players[index]

	if cardIndex == nil {
		card, ok := g.deck.Draw()
		if !ok {
			return Outcome{}, ErrNoCardsLeft
		}
		player.Hand = append(player.Hand, card)
		player.CardsHad++
		g.advance(index, 1, false)
		return Outcome{Drew: true}, nil
	}

	ci := *cardIndex
	if ci < 0 || ci >= len(player.Hand) {
		return Outcome{}, ErrCardNotFound
	}
	card := player.Hand[ci]
	if !card.PlayableOn(g.card) {
		return Outcome{}, ErrIllegalCard
	}

	g.card = card
	player.Hand = append(player.Hand[:ci], player.Hand[ci+1:]...)
	outcome := Outcome{Played: &card}

	step := 1
	penalty := 0
	switch card.Effect.Kind {
	case Stun:
		step = 2
	case Flow:
		g.direction.Flip()
	case Add:
		penalty = card.Effect.Value
	}

	if len(player.Hand) == 0 {
		g.eliminated = append(g.eliminated, out{id: player.ID, cardsHad: player.CardsHad})
		g.players = append(g.players[:index], g.players[index+1:]...)
		outcome.Eliminated = true
	}
	if g.finishIfLast() {
		outcome.Finished = true
		return outcome, nil
	}

	if penalty > 0 {
		target := g.players[g.next(index, 1, outcome.Eliminated)]
		for i := 0; i < penalty; i++ {
			drawn, ok := g.deck.Draw()
			if !ok {
				break
			}
			target.Hand = append(target.Hand, drawn)
			target.CardsHad++
		}
	}
	g.advance(index, step, outcome.Eliminated)
	return outcome, nil
}

// Forfeit drops playerID from the rotation. Forfeited players rank after
// everyone who emptied their hand.
func (g *Game) Forfeit(playerID string) error {
	if g.finished {
		return ErrGameOver
	}
	index := g.indexOf(playerID)
	if index < 0 {
		return ErrPlayerNotFound
	}
	player := g.players[index]
	g.forfeited = append(g.forfeited, out{id: player.ID, cardsHad: player.CardsHad})
	g.players = append(g.players[:index], g.players[index+1:]...)

	if g.finishIfLast() {
		return nil
	}
	switch {
	case index < g.turn:
		g.turn--
	case index == g.turn:
		g.advance(index, 1, true)
	}
	return nil
}

// next is the rotation index step places away from index. When the player at
// index was just removed, the forward neighbour has slid into index.
func (g *Game) next(index, step int, removed bool) int {
	base := index
	if removed && g.direction == Forward {
		base--
	}
	n := len(g.players)
	turn := (base + g.direction.sign()*step) % n
	if turn < 0 {
		turn += n
	}
	return turn
}

func (g *Game) advance(index, step int, removed bool) {
	g.turn = g.next(index, step, removed)
}

func (g *Game) finishIfLast() bool {
	if len(g.players) > 1 {
		return false
	}
	for _, p := range g.players {
		g.eliminated = append(g.eliminated, out{id: p.ID, cardsHad: p.CardsHad})
	}
	g.players = nil
	g.turn = 0
	g.finished = true
	return true
}

func (g *Game) indexOf(playerID string) int {
	for i, p := range g.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// Card returns the last played card.
func (g *Game) Card() Card { return g.card }

// Turn returns the rotation index of the player to move.
func (g *Game) Turn() int { return g.turn }

// Direction returns the current turn direction.
func (g *Game) Direction() Direction { return g.direction }

// Finished reports whether a single player remains.
func (g *Game) Finished() bool { return g.finished }

// CurrentPlayer returns the id of the player to move, or "" once finished.
func (g *Game) CurrentPlayer() string {
	if g.finished || len(g.players) == 0 {
		return ""
	}
	return g.players[g.turn].ID
}

// Hand returns a copy of playerID's hand.
func (g *Game) Hand(playerID string) ([]Card, bool) {
	index := g.indexOf(playerID)
	if index < 0 {
		return nil, false
	}
	hand := make([]Card, len(g.players[index].Hand))
	copy(hand, g.players[index].Hand)
	return hand, true
}

// ActivePlayers returns the ids still in the rotation, in turn order.
func (g *Game) ActivePlayers() []string {
	ids := make([]string, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	return ids
}

// Participants returns every player that was dealt in.
func (g *Game) Participants() []string {
	ids := g.ActivePlayers()
	for _, o := range g.eliminated {
		ids = append(ids, o.id)
	}
	for _, o := range g.forfeited {
		ids = append(ids, o.id)
	}
	return ids
}

// PlayerView is the public view of a player.
type PlayerView struct {
	ID       string `json:"id"`
	HandSize int    `json:"hand_size"`
}

// Snapshot is the public state of a game.
type Snapshot struct {
	Card      Card         `json:"card"`
	Players   []PlayerView `json:"players"`
	Turn      int          `json:"turn"`
	Direction Direction    `json:"direction"`
}

// Snapshot returns the state every participant may see.
func (g *Game) Snapshot() Snapshot {
	views := make([]PlayerView, len(g.players))
	for i, p := range g.players {
		views[i] = PlayerView{ID: p.ID, HandSize: len(p.Hand)}
	}
	return Snapshot{Card: g.card, Players: views, Turn: g.turn, Direction: g.direction}
}

// Standing is one line of the final results.
type Standing struct {
	ID       string `json:"id"`
	Points   int    `json:"points"`
	CardsHad int    `json:"cards_had"`
}

// Standings ranks players in the order they left the rotation: the first to
// empty their hand ranks highest and the last remaining player lowest, with
// points = round(10 * rank / players). Forfeited players follow with zero
// points. Standings is empty until the game is finished.
func (g *Game) Standings() []Standing {
	if !g.finished {
		return nil
	}
	total := len(g.eliminated) + len(g.forfeited)
	standings := make([]Standing, 0, total)
	for i, o := range g.eliminated {
		rank := total - i
		standings = append(standings, Standing{
			ID:       o.id,
			Points:   Points(rank, total),
			CardsHad: o.cardsHad,
		})
	}
	for _, o := range g.forfeited {
		standings = append(standings, Standing{ID: o.id, CardsHad: o.cardsHad})
	}
	return standings
}

// Points converts a rank (players = best) into a score out of 10.
func Points(rank, players int) int {
	if players <= 0 {
		return 0
	}
	return int(math.Round(10 * float64(rank) / float64(players)))
}
