package room

import (
	"errors"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/game"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/network"
	"github.com/wfunc/cardroom/table"
)

var (
	ErrRoomNotFound   = errs.New(errs.KindNotFound, "room not found")
	ErrNotMember      = errs.New(errs.KindForbidden, "not a member of this room")
	ErrNotOwner       = errs.New(errs.KindForbidden, "only the owner can do that")
	ErrWrongPassword  = errs.New(errs.KindForbidden, "wrong room password")
	ErrRoomFull       = errs.New(errs.KindCapacity, "room is full")
	ErrGameInProgress = errs.New(errs.KindConflict, "a game is in progress")
	ErrNoGame         = errs.New(errs.KindNotFound, "no game in this room")
)

// errUnchanged ends an Update mutator without committing the room record.
var errUnchanged = errors.New("room unchanged")

// DefaultListLimit caps ListPublic.
const DefaultListLimit = 100

// Options configure a Manager.
type Options struct {
	HandSize int
	NewDeck  func() game.Deck
	Observer Observer
}

// GameResult is reported once per finished game.
type GameResult struct {
	RoomID    string
	Standings []game.Standing
}

// HandEvent is the private payload of GameCards.
type HandEvent struct {
	RoomID string      `json:"room_id"`
	Cards  []game.Card `json:"cards"`
}

// GameEvent is the payload of GameStarted and GameNewTurn.
type GameEvent struct {
	RoomID string `json:"room_id"`
	game.Snapshot
}

// GameOverEvent lists the final standings, best first.
type GameOverEvent struct {
	RoomID    string          `json:"room_id"`
	Standings []game.Standing `json:"standings"`
}

// GameView is a member's view of the running game.
type GameView struct {
	game.Snapshot
	Hand []game.Card `json:"hand"`
}

// Manager is the room registry. Lock order: room table, then member table,
// then session table; room table, then game slot.
type Manager struct {
	rooms      *table.Table[string, Room]
	sessions   Tracker
	out        Broadcaster
	handSize   int
	newDeck    func() game.Deck
	observer   Observer
	onGameOver func(GameResult)

	rng      *rand.Rand
	rngMutex sync.Mutex
}

func NewRoomManager(sessions Tracker, out Broadcaster, opts Options) *Manager {
	if opts.HandSize <= 0 {
		opts.HandSize = game.HandSize
	}
	if opts.NewDeck == nil {
		opts.NewDeck = func() game.Deck { return game.NewRandomDeck() }
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Manager{
		rooms:    table.New[string, Room](table.ModeTable),
		sessions: sessions,
		out:      out,
		handSize: opts.HandSize,
		newDeck:  opts.NewDeck,
		observer: opts.Observer,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// OnGameOver registers the score write-back, run once per finished game and
// outside every room lock.
func (m *Manager) OnGameOver(fn func(GameResult)) {
	m.onGameOver = fn
}

func (m *Manager) newID() string {
	m.rngMutex.Lock()
	defer m.rngMutex.Unlock()
	return strconv.Itoa(100000 + m.rng.Intn(900000))
}

func notFound(err error) error {
	if errors.Is(err, table.ErrNotFound) {
		return ErrRoomNotFound
	}
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

// Create opens a room owned by ownerID, who joins it immediately.
func (m *Manager) Create(ownerID string, s Settings) (Snapshot, error) {
	if err := s.validate(); err != nil {
		return Snapshot{}, err
	}

	for {
		id := m.newID()
		if err := m.sessions.ClaimRoom(ownerID, id); err != nil {
			return Snapshot{}, err
		}

		r := Room{
			ID:         id,
			Name:       s.Name,
			Public:     s.Public,
			Password:   s.Password,
			Owner:      ownerID,
			MaxPlayers: s.MaxPlayers,
			Members:    table.New[string, Member](table.ModeShared),
			slot:       &gameSlot{},
			out:        m.out,
		}
		r.Members.Insert(Member{ID: ownerID, roomID: id, out: m.out})

		if m.rooms.Insert(r) {
			logger.Log.Infof("Account %s created room %s", ownerID, id)
			m.observer.SetActiveRooms(m.rooms.Len())
			return r.Snapshot(), nil
		}
		m.sessions.ReleaseRoom(ownerID, id)
	}
}

// Get returns a room snapshot.
func (m *Manager) Get(roomID string) (Snapshot, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	return r.Snapshot(), nil
}

// ListPublic returns public rooms with an id greater than after, ordered by
// id. limit <= 0 means DefaultListLimit.
func (m *Manager) ListPublic(after string, limit int) []Snapshot {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	var rooms []Room
	for _, r := range m.rooms.Values() {
		if r.Public && r.ID > after {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	if len(rooms) > limit {
		rooms = rooms[:limit]
	}

	snaps := make([]Snapshot, len(rooms))
	for i, r := range rooms {
		snaps[i] = r.Snapshot()
	}
	return snaps
}

// Count returns the number of open rooms.
func (m *Manager) Count() int {
	return m.rooms.Len()
}

// Join seats accountID in roomID. Joining a room the account is already in
// succeeds without changes.
func (m *Manager) Join(accountID, roomID, password string) (Snapshot, error) {
	_, err := m.rooms.Update(roomID, func(r *Room) error {
		if r.Members.Has(accountID) {
			return errUnchanged
		}
		if r.Password != "" && password != r.Password {
			return ErrWrongPassword
		}
		if r.Status() != StatusWaiting {
			return ErrGameInProgress
		}
		if r.Members.Len() >= r.MaxPlayers {
			return ErrRoomFull
		}
		if err := m.sessions.ClaimRoom(accountID, roomID); err != nil {
			return err
		}
		r.Members.Insert(Member{ID: accountID, roomID: roomID, out: m.out})
		return nil
	})
	if err := notFound(err); err != nil {
		return Snapshot{}, err
	}
	logger.Log.Infof("Account %s joined room %s", accountID, roomID)
	return m.Get(roomID)
}

// Leave removes accountID from roomID. A running game is forfeited, the
// owner is handed to the first remaining member and an empty room is deleted.
func (m *Manager) Leave(accountID, roomID string) error {
	var result []game.Standing
	_, err := m.rooms.Update(roomID, func(r *Room) error {
		if !r.Members.Has(accountID) {
			return ErrNotMember
		}
		result = m.forfeit(r, accountID)

		r.Members.Remove(accountID)
		m.sessions.ReleaseRoom(accountID, roomID)
		if r.Members.Len() == 0 {
			return table.ErrRemove
		}
		if r.Owner == accountID {
			r.Owner = r.Members.Keys()[0]
		}
		if result != nil {
			m.settle(r, result)
		}
		return nil
	})
	if err := notFound(err); err != nil {
		return err
	}

	logger.Log.Infof("Account %s left room %s", accountID, roomID)
	m.observer.SetActiveRooms(m.rooms.Len())
	if result != nil {
		m.gameOver(roomID, result)
	}
	return nil
}

// Evict is the session eviction hook.
func (m *Manager) Evict(accountID, roomID string) {
	if roomID == "" {
		return
	}
	if err := m.Leave(accountID, roomID); err != nil && !errors.Is(err, ErrRoomNotFound) && !errors.Is(err, ErrNotMember) {
		logger.Log.Errorf("Evicting %s from room %s: %v", accountID, roomID, err)
	}
}

// forfeit drops accountID from a running game. It returns the standings when
// the game is over, either by this forfeit or by a final move that has not
// been settled yet, and clears the slot in that case.
func (m *Manager) forfeit(r *Room, accountID string) []game.Standing {
	r.slot.mutex.Lock()
	defer r.slot.mutex.Unlock()

	g := r.slot.game
	if g == nil {
		return nil
	}
	members := without(r.Members.Keys(), accountID)
	if !g.Finished() {
		if err := g.Forfeit(accountID); err != nil {
			return nil
		}
		if !g.Finished() {
			m.out.SendTo(members, network.EventGameNewTurn, GameEvent{RoomID: r.ID, Snapshot: g.Snapshot()})
			return nil
		}
	}
	r.slot.game = nil
	standings := g.Standings()
	m.out.SendTo(members, network.EventGameOver, GameOverEvent{RoomID: r.ID, Standings: standings})
	return standings
}

// ToggleReady flips the member's ready flag.
func (m *Manager) ToggleReady(accountID, roomID string) (PlayerView, error) {
	var view PlayerView
	_, err := m.rooms.Update(roomID, func(r *Room) error {
		if !r.Members.Has(accountID) {
			return ErrNotMember
		}
		if r.Status() != StatusWaiting {
			return ErrGameInProgress
		}
		prior, err := r.Members.Update(accountID, func(mem *Member) error {
			mem.Ready = !mem.Ready
			return nil
		})
		if err != nil {
			return ErrNotMember
		}
		view = prior.View()
		view.IsReady = !prior.Ready
		return errUnchanged
	})
	if err := notFound(err); err != nil {
		return PlayerView{}, err
	}
	return view, nil
}

// Update changes room settings. Only the owner may do it, and either every
// field is applied or none is.
func (m *Manager) Update(accountID, roomID string, u SettingsUpdate) (Snapshot, error) {
	_, err := m.rooms.Update(roomID, func(r *Room) error {
		if !r.Members.Has(accountID) {
			return ErrNotMember
		}
		if r.Owner != accountID {
			return ErrNotOwner
		}
		return u.apply(r)
	})
	if err := notFound(err); err != nil {
		return Snapshot{}, err
	}
	return m.Get(roomID)
}

// StartGame deals a game to every ready member.
func (m *Manager) StartGame(accountID, roomID string) (game.Snapshot, error) {
	var snap game.Snapshot
	_, err := m.rooms.Update(roomID, func(r *Room) error {
		if !r.Members.Has(accountID) {
			return ErrNotMember
		}
		if r.Owner != accountID {
			return ErrNotOwner
		}

		r.slot.mutex.Lock()
		defer r.slot.mutex.Unlock()

		if r.slot.game != nil {
			return ErrGameInProgress
		}
		var ready []string
		for _, mem := range r.Members.Values() {
			if mem.Ready {
				ready = append(ready, mem.ID)
			}
		}
		g, err := game.New(ready, m.newDeck(), m.handSize)
		if err != nil {
			return err
		}
		r.slot.game = g
		snap = g.Snapshot()

		m.out.SendTo(r.Members.Keys(), network.EventGameStarted, GameEvent{RoomID: r.ID, Snapshot: snap})
		m.sendHands(r.ID, g)
		return nil
	})
	if err := notFound(err); err != nil {
		return game.Snapshot{}, err
	}

	logger.Log.Infof("Game started in room %s", roomID)
	m.observer.IncGamesStarted()
	return snap, nil
}

// Play makes a move for accountID. A nil cardIndex draws a card instead.
func (m *Manager) Play(accountID, roomID string, cardIndex *int) (game.Snapshot, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return game.Snapshot{}, ErrRoomNotFound
	}
	if !r.Members.Has(accountID) {
		return game.Snapshot{}, ErrNotMember
	}

	r.slot.mutex.Lock()
	g := r.slot.game
	if g == nil {
		r.slot.mutex.Unlock()
		return game.Snapshot{}, ErrNoGame
	}
	outcome, err := g.Play(accountID, cardIndex)
	if err != nil {
		r.slot.mutex.Unlock()
		m.observer.IncPlays("rejected")
		return game.Snapshot{}, err
	}

	snap := g.Snapshot()
	m.out.SendTo(r.Members.Keys(), network.EventGameNewTurn, GameEvent{RoomID: roomID, Snapshot: snap})
	m.sendHands(roomID, g)

	var standings []game.Standing
	if outcome.Finished {
		standings = g.Standings()
	}
	r.slot.mutex.Unlock()

	if outcome.Drew {
		m.observer.IncPlays("drew")
	} else {
		m.observer.IncPlays("played")
	}
	if outcome.Finished {
		m.finish(roomID, g, standings)
	}
	return snap, nil
}

// finish clears a finished game and applies its scores. A member leaving
// between the final move and finish settles the game instead.
func (m *Manager) finish(roomID string, g *game.Game, standings []game.Standing) {
	_, err := m.rooms.Update(roomID, func(r *Room) error {
		r.slot.mutex.Lock()
		current := r.slot.game
		if current == g {
			r.slot.game = nil
		}
		r.slot.mutex.Unlock()

		if current != g {
			return errUnchanged
		}
		m.out.SendTo(r.Members.Keys(), network.EventGameOver, GameOverEvent{RoomID: roomID, Standings: standings})
		m.settle(r, standings)
		return nil
	})
	if err != nil {
		return
	}
	logger.Log.Infof("Game finished in room %s", roomID)
	m.gameOver(roomID, standings)
}

// settle adds game points to the members and clears their ready flags.
func (m *Manager) settle(r *Room, standings []game.Standing) {
	points := make(map[string]int, len(standings))
	for _, s := range standings {
		points[s.ID] = s.Points
	}
	for _, id := range r.Members.Keys() {
		r.Members.Update(id, func(mem *Member) error {
			mem.Points += points[mem.ID]
			mem.Ready = false
			return nil
		})
	}
}

func (m *Manager) gameOver(roomID string, standings []game.Standing) {
	if m.onGameOver != nil {
		m.onGameOver(GameResult{RoomID: roomID, Standings: standings})
	}
}

// sendHands sends every active player their own hand. Needs the slot lock.
func (m *Manager) sendHands(roomID string, g *game.Game) {
	for _, id := range g.ActivePlayers() {
		hand, _ := g.Hand(id)
		m.out.SendTo([]string{id}, network.EventGameCards, HandEvent{RoomID: roomID, Cards: hand})
	}
}

// GameView returns the running game as accountID sees it.
func (m *Manager) GameView(accountID, roomID string) (GameView, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return GameView{}, ErrRoomNotFound
	}
	if !r.Members.Has(accountID) {
		return GameView{}, ErrNotMember
	}

	r.slot.mutex.Lock()
	defer r.slot.mutex.Unlock()

	g := r.slot.game
	if g == nil {
		return GameView{}, ErrNoGame
	}
	hand, _ := g.Hand(accountID)
	if hand == nil {
		hand = []game.Card{}
	}
	return GameView{Snapshot: g.Snapshot(), Hand: hand}, nil
}

// Resend replays the room, game and hand to a reconnecting member.
func (m *Manager) Resend(accountID, roomID string) {
	r, ok := m.rooms.Get(roomID)
	if !ok || !r.Members.Has(accountID) {
		return
	}
	m.out.SendTo([]string{accountID}, network.EventRoomUpdate, r.Snapshot())
	if view, err := m.GameView(accountID, roomID); err == nil {
		m.out.SendTo([]string{accountID}, network.EventGameNewTurn, GameEvent{RoomID: roomID, Snapshot: view.Snapshot})
		m.out.SendTo([]string{accountID}, network.EventGameCards, HandEvent{RoomID: roomID, Cards: view.Hand})
	}
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
