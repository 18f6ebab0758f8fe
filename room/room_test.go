package room

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/game"
	"github.com/wfunc/cardroom/network"
)

var errMockAlreadyInRoom = errs.New(errs.KindForbidden, "already in another room")

type sent struct {
	to        string
	eventType string
	payload   interface{}
}

// MockBroadcaster records every event instead of delivering it.
type MockBroadcaster struct {
	mutex  sync.Mutex
	events []sent
}

func (m *MockBroadcaster) SendTo(accountIDs []string, eventType string, payload interface{}) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, id := range accountIDs {
		m.events = append(m.events, sent{to: id, eventType: eventType, payload: payload})
	}
}

func (m *MockBroadcaster) count(to, eventType string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := 0
	for _, e := range m.events {
		if e.to == to && e.eventType == eventType {
			n++
		}
	}
	return n
}

func (m *MockBroadcaster) last(to, eventType string) (interface{}, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if e := m.events[i]; e.to == to && e.eventType == eventType {
			return e.payload, true
		}
	}
	return nil, false
}

func (m *MockBroadcaster) reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.events = nil
}

// MockTracker keeps one room per account like the session manager.
type MockTracker struct {
	mutex sync.Mutex
	rooms map[string]string
}

func (m *MockTracker) ClaimRoom(accountID, roomID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if cur := m.rooms[accountID]; cur != "" && cur != roomID {
		return errMockAlreadyInRoom
	}
	m.rooms[accountID] = roomID
	return nil
}

func (m *MockTracker) ReleaseRoom(accountID, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.rooms[accountID] == roomID {
		delete(m.rooms, accountID)
	}
}

func (m *MockTracker) roomOf(accountID string) string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.rooms[accountID]
}

var strong = game.Card{Element: game.Energy, Effect: game.AttackEffect(game.MaxAttackPower)}

func strongDeck() game.Deck {
	cards := make([]game.Card, 200)
	for i := range cards {
		cards[i] = strong
	}
	return game.NewStackedDeck(cards...)
}

func newTestManager(handSize int) (*Manager, *MockBroadcaster, *MockTracker) {
	out := &MockBroadcaster{}
	tracker := &MockTracker{rooms: make(map[string]string)}
	manager := NewRoomManager(tracker, out, Options{HandSize: handSize, NewDeck: strongDeck})
	return manager, out, tracker
}

func mustCreate(t *testing.T, m *Manager, owner string, s Settings) Snapshot {
	t.Helper()
	snap, err := m.Create(owner, s)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return snap
}

func mustJoin(t *testing.T, m *Manager, accountID, roomID, password string) {
	t.Helper()
	if _, err := m.Join(accountID, roomID, password); err != nil {
		t.Fatalf("%s failed to join: %v", accountID, err)
	}
}

func defaultSettings() Settings {
	return Settings{Name: "Table", Public: true, MaxPlayers: 4}
}

func TestManager_Create(t *testing.T) {
	m, out, tracker := newTestManager(2)

	snap := mustCreate(t, m, "alice", Settings{Name: "  Lobby  ", Password: "secret", MaxPlayers: 3})
	if len(snap.ID) != 6 {
		t.Errorf("Expected a 6 digit id, got %q", snap.ID)
	}
	if snap.Name != "Lobby" || !snap.Password || snap.Owner != "alice" || snap.MaxPlayers != 3 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if len(snap.Players) != 1 || snap.Players[0].ID != "alice" {
		t.Errorf("Creator should be the only member, got %+v", snap.Players)
	}
	if snap.Status != StatusWaiting {
		t.Errorf("New room should be waiting, got %s", snap.Status)
	}
	if tracker.roomOf("alice") != snap.ID {
		t.Error("Creator's session should point at the new room")
	}
	if out.count("alice", network.EventRoomCreate) != 1 {
		t.Error("Creator should receive RoomCreate")
	}
	if out.count("alice", network.EventPlayerJoined) != 0 {
		t.Error("Creator should not be told about their own join")
	}

	if _, err := m.Create("alice", defaultSettings()); !errors.Is(err, errMockAlreadyInRoom) {
		t.Errorf("Creating a second room should fail, got %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", m.Count())
	}
}

func TestManager_CreateValidation(t *testing.T) {
	m, _, _ := newTestManager(2)

	_, err := m.Create("alice", Settings{Name: " ", Password: "0123456789012345678901234567890123", MaxPlayers: 1})
	if errs.KindOf(err) != errs.KindBadRequest {
		t.Fatalf("Expected bad request, got %v", err)
	}
	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("Expected FieldErrors, got %T", err)
	}
	for _, key := range []string{"name", "password", "max_players"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected an error for %s", key)
		}
	}
	if m.Count() != 0 {
		t.Error("Invalid settings must not create a room")
	}

	snap := mustCreate(t, m, "bob", Settings{Name: "x", Password: "", MaxPlayers: 2})
	if snap.Password {
		t.Error("Empty password means no password")
	}
}

func TestManager_Join(t *testing.T) {
	m, out, tracker := newTestManager(2)
	snap := mustCreate(t, m, "alice", Settings{Name: "Locked", Password: "pw", MaxPlayers: 2})

	if _, err := m.Join("bob", snap.ID, "nope"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}

	joined, err := m.Join("bob", snap.ID, "pw")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if len(joined.Players) != 2 {
		t.Errorf("Expected 2 players, got %d", len(joined.Players))
	}
	if tracker.roomOf("bob") != snap.ID {
		t.Error("Joiner's session should point at the room")
	}
	if out.count("alice", network.EventPlayerJoined) != 1 {
		t.Error("Existing members should receive PlayerJoined")
	}
	if out.count("bob", network.EventRoomUpdate) != 1 {
		t.Error("Joiner should receive the room snapshot")
	}

	if _, err := m.Join("bob", snap.ID, ""); err != nil {
		t.Errorf("Re-joining should be idempotent, got %v", err)
	}
	if _, err := m.Join("carol", snap.ID, "pw"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
	if errs.KindOf(ErrRoomFull) != errs.KindCapacity {
		t.Error("A full room is a capacity error")
	}
	if _, err := m.Join("carol", "000000", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestManager_JoinWhileInAnotherRoom(t *testing.T) {
	m, _, _ := newTestManager(2)
	mustCreate(t, m, "alice", defaultSettings())
	second := mustCreate(t, m, "bob", defaultSettings())

	if _, err := m.Join("alice", second.ID, ""); !errors.Is(err, errMockAlreadyInRoom) {
		t.Errorf("Expected already-in-room error, got %v", err)
	}
	snap, _ := m.Get(second.ID)
	if len(snap.Players) != 1 {
		t.Error("Rejected join must not add the member")
	}
}

func TestManager_LeaveReassignsOwner(t *testing.T) {
	m, out, tracker := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	mustJoin(t, m, "carol", snap.ID, "")

	if err := m.Leave("alice", snap.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	after, _ := m.Get(snap.ID)
	if after.Owner != "bob" {
		t.Errorf("Expected bob to inherit the room, got %s", after.Owner)
	}
	if tracker.roomOf("alice") != "" {
		t.Error("Leaver's session should be cleared")
	}
	if out.count("bob", network.EventPlayerLeft) != 1 || out.count("carol", network.EventPlayerLeft) != 1 {
		t.Error("Remaining members should receive PlayerLeft")
	}
	if err := m.Leave("alice", snap.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}

func TestManager_LastLeaveDeletesRoom(t *testing.T) {
	m, out, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())

	if err := m.Leave("alice", snap.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if _, err := m.Get(snap.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Error("Empty room should be deleted")
	}
	if out.count("alice", network.EventRoomDelete) != 1 {
		t.Error("Last member should receive RoomDelete")
	}
	if m.Count() != 0 {
		t.Errorf("Expected no rooms, got %d", m.Count())
	}
}

func TestManager_ToggleReady(t *testing.T) {
	m, out, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")

	view, err := m.ToggleReady("bob", snap.ID)
	if err != nil {
		t.Fatalf("ToggleReady failed: %v", err)
	}
	if !view.IsReady {
		t.Error("First toggle should mark ready")
	}
	if out.count("alice", network.EventPlayerUpdated) != 1 {
		t.Error("Members should receive PlayerUpdated")
	}
	view, _ = m.ToggleReady("bob", snap.ID)
	if view.IsReady {
		t.Error("Second toggle should clear ready")
	}
	if _, err := m.ToggleReady("carol", snap.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}

func TestManager_StartGame(t *testing.T) {
	m, out, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	mustJoin(t, m, "carol", snap.ID, "")

	m.ToggleReady("alice", snap.ID)
	if _, err := m.StartGame("alice", snap.ID); !errors.Is(err, game.ErrNotEnoughPlayers) {
		t.Fatalf("Expected ErrNotEnoughPlayers with one ready member, got %v", err)
	}
	if _, err := m.StartGame("bob", snap.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}

	m.ToggleReady("bob", snap.ID)
	started, err := m.StartGame("alice", snap.ID)
	if err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if len(started.Players) != 2 || started.Players[0].ID != "alice" || started.Players[1].ID != "bob" {
		t.Errorf("Only ready members should be dealt in, got %+v", started.Players)
	}
	if started.Card != game.Opener {
		t.Errorf("Expected opener, got %s", started.Card)
	}

	for _, id := range []string{"alice", "bob", "carol"} {
		if out.count(id, network.EventGameStarted) != 1 {
			t.Errorf("%s should receive GameStarted", id)
		}
	}
	if out.count("alice", network.EventGameCards) != 1 || out.count("carol", network.EventGameCards) != 0 {
		t.Error("Only participants should receive their hand")
	}

	room, _ := m.Get(snap.ID)
	if room.Game == nil || room.Status != StatusGaming {
		t.Error("Room snapshot should include the game")
	}
	if _, err := m.StartGame("alice", snap.ID); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("Expected ErrGameInProgress, got %v", err)
	}
	if _, err := m.ToggleReady("carol", snap.ID); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("Ready toggles should be rejected mid-game, got %v", err)
	}
	if _, err := m.Join("dave", snap.ID, ""); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("Joins should be rejected mid-game, got %v", err)
	}
}

func TestManager_PlayToGameOver(t *testing.T) {
	m, out, _ := newTestManager(1)
	var results []GameResult
	m.OnGameOver(func(r GameResult) { results = append(results, r) })

	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	m.ToggleReady("alice", snap.ID)
	m.ToggleReady("bob", snap.ID)

	if _, err := m.Play("alice", snap.ID, nil); !errors.Is(err, ErrNoGame) {
		t.Errorf("Expected ErrNoGame before start, got %v", err)
	}
	m.StartGame("alice", snap.ID)

	zero := 0
	if _, err := m.Play("bob", snap.ID, &zero); !errors.Is(err, game.ErrWrongTurn) {
		t.Errorf("Expected ErrWrongTurn, got %v", err)
	}
	if _, err := m.Play("alice", snap.ID, &zero); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected one game result, got %d", len(results))
	}
	want := []game.Standing{{ID: "alice", Points: 10, CardsHad: 1}, {ID: "bob", Points: 5, CardsHad: 1}}
	for i := range want {
		if results[0].Standings[i] != want[i] {
			t.Errorf("Standing %d: expected %+v, got %+v", i, want[i], results[0].Standings[i])
		}
	}
	if out.count("bob", network.EventGameOver) != 1 {
		t.Error("Members should receive GameOver")
	}

	room, _ := m.Get(snap.ID)
	if room.Game != nil || room.Status != StatusWaiting {
		t.Error("Finished game should be cleared")
	}
	points := map[string]PlayerView{}
	for _, p := range room.Players {
		points[p.ID] = p
	}
	if points["alice"].Points != 10 || points["bob"].Points != 5 {
		t.Errorf("Expected points applied, got %+v", room.Players)
	}
	if points["alice"].IsReady || points["bob"].IsReady {
		t.Error("Ready flags should reset after a game")
	}
}

// MockObserver runs onPlay after every accepted move.
type MockObserver struct {
	onPlay func()
}

func (m *MockObserver) SetActiveRooms(int) {}
func (m *MockObserver) IncGamesStarted()   {}
func (m *MockObserver) IncPlays(result string) {
	if result != "rejected" && m.onPlay != nil {
		m.onPlay()
	}
}

func TestManager_RoomEmptiedAfterFinalMove(t *testing.T) {
	out := &MockBroadcaster{}
	tracker := &MockTracker{rooms: make(map[string]string)}
	observer := &MockObserver{}
	m := NewRoomManager(tracker, out, Options{HandSize: 1, NewDeck: strongDeck, Observer: observer})
	var results []GameResult
	m.OnGameOver(func(r GameResult) { results = append(results, r) })

	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	m.ToggleReady("alice", snap.ID)
	m.ToggleReady("bob", snap.ID)
	m.StartGame("alice", snap.ID)

	observer.onPlay = func() {
		observer.onPlay = nil
		if err := m.Leave("alice", snap.ID); err != nil {
			t.Errorf("Leave alice failed: %v", err)
		}
		if err := m.Leave("bob", snap.ID); err != nil {
			t.Errorf("Leave bob failed: %v", err)
		}
	}
	zero := 0
	if _, err := m.Play("alice", snap.ID, &zero); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected exactly one game result, got %d", len(results))
	}
	got := results[0].Standings
	if len(got) != 2 || got[0].ID != "alice" || got[0].Points != 10 || got[1].ID != "bob" || got[1].Points != 5 {
		t.Errorf("Unexpected standings %+v", got)
	}
	if _, err := m.Get(snap.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected the emptied room to be deleted, got %v", err)
	}
}

func TestManager_LeaveAfterFinalMoveSettlesOnce(t *testing.T) {
	out := &MockBroadcaster{}
	tracker := &MockTracker{rooms: make(map[string]string)}
	observer := &MockObserver{}
	m := NewRoomManager(tracker, out, Options{HandSize: 1, NewDeck: strongDeck, Observer: observer})
	var results []GameResult
	m.OnGameOver(func(r GameResult) { results = append(results, r) })

	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	m.ToggleReady("alice", snap.ID)
	m.ToggleReady("bob", snap.ID)
	m.StartGame("alice", snap.ID)

	observer.onPlay = func() {
		observer.onPlay = nil
		if err := m.Leave("bob", snap.ID); err != nil {
			t.Errorf("Leave bob failed: %v", err)
		}
	}
	zero := 0
	if _, err := m.Play("alice", snap.ID, &zero); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected exactly one game result, got %d", len(results))
	}
	if out.count("alice", network.EventGameOver) != 1 {
		t.Errorf("Expected one GameOver for alice, got %d", out.count("alice", network.EventGameOver))
	}
	room, _ := m.Get(snap.ID)
	if room.Game != nil || len(room.Players) != 1 || room.Players[0].Points != 10 {
		t.Errorf("Expected settled room, got %+v", room)
	}
}

func TestManager_GameView(t *testing.T) {
	m, _, _ := newTestManager(3)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	mustJoin(t, m, "carol", snap.ID, "")
	m.ToggleReady("alice", snap.ID)
	m.ToggleReady("bob", snap.ID)
	m.StartGame("alice", snap.ID)

	view, err := m.GameView("alice", snap.ID)
	if err != nil {
		t.Fatalf("GameView failed: %v", err)
	}
	if len(view.Hand) != 3 || view.Turn != 0 {
		t.Errorf("Unexpected view %+v", view)
	}
	spectator, err := m.GameView("carol", snap.ID)
	if err != nil || len(spectator.Hand) != 0 {
		t.Errorf("Non-participants see the table without a hand, got %+v (%v)", spectator, err)
	}
	if _, err := m.GameView("dave", snap.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}

func TestManager_LeaveMidGameForfeits(t *testing.T) {
	m, out, _ := newTestManager(2)
	var results []GameResult
	m.OnGameOver(func(r GameResult) { results = append(results, r) })

	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	m.ToggleReady("alice", snap.ID)
	m.ToggleReady("bob", snap.ID)
	m.StartGame("alice", snap.ID)

	if err := m.Leave("bob", snap.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Forfeit down to one player should end the game, got %d results", len(results))
	}
	got := results[0].Standings
	if len(got) != 2 || got[0].ID != "alice" || got[0].Points != 10 || got[1].ID != "bob" || got[1].Points != 0 {
		t.Errorf("Unexpected standings %+v", got)
	}
	if out.count("alice", network.EventGameOver) != 1 || out.count("bob", network.EventGameOver) != 0 {
		t.Error("Only remaining members should receive GameOver")
	}

	room, _ := m.Get(snap.ID)
	if room.Game != nil || room.Players[0].Points != 10 {
		t.Errorf("Expected settled room, got %+v", room)
	}
}

func TestManager_LeaveMidGameKeepsPlaying(t *testing.T) {
	m, _, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	for _, id := range []string{"bob", "carol"} {
		mustJoin(t, m, id, snap.ID, "")
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		m.ToggleReady(id, snap.ID)
	}
	m.StartGame("alice", snap.ID)

	if err := m.Leave("alice", snap.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	view, err := m.GameView("bob", snap.ID)
	if err != nil {
		t.Fatalf("Game should go on, got %v", err)
	}
	if len(view.Players) != 2 || view.Players[view.Turn].ID != "bob" {
		t.Errorf("Expected bob to move next, got %+v", view)
	}
}

func TestManager_Update(t *testing.T) {
	m, out, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	out.reset()

	name := "Renamed"
	if _, err := m.Update("bob", snap.ID, SettingsUpdate{Name: &name}); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}

	tiny, stranger := 1, "zed"
	_, err := m.Update("alice", snap.ID, SettingsUpdate{Name: &name, MaxPlayers: &tiny, Owner: &stranger})
	var fields FieldErrors
	if !errors.As(err, &fields) || len(fields) != 2 {
		t.Fatalf("Expected two field errors, got %v", err)
	}
	if current, _ := m.Get(snap.ID); current.Name != "Table" {
		t.Error("A failed update must change nothing")
	}

	owner, public, empty := "bob", false, ""
	updated, err := m.Update("alice", snap.ID, SettingsUpdate{Name: &name, Owner: &owner, Public: &public, Password: &empty})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Renamed" || updated.Owner != "bob" || updated.Public {
		t.Errorf("Unexpected snapshot %+v", updated)
	}
	if out.count("alice", network.EventRoomUpdate) != 1 || out.count("bob", network.EventRoomUpdate) != 1 {
		t.Error("Members should receive RoomUpdate")
	}
}

func TestManager_UpdateMaxPlayersBelowMembers(t *testing.T) {
	m, _, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")
	mustJoin(t, m, "carol", snap.ID, "")

	two := 2
	_, err := m.Update("alice", snap.ID, SettingsUpdate{MaxPlayers: &two})
	var fields FieldErrors
	if !errors.As(err, &fields) || fields["max_players"] == "" {
		t.Fatalf("Expected a max_players field error, got %v", err)
	}
	if current, _ := m.Get(snap.ID); current.MaxPlayers != snap.MaxPlayers {
		t.Errorf("Expected max players %d, got %d", snap.MaxPlayers, current.MaxPlayers)
	}

	three := 3
	updated, err := m.Update("alice", snap.ID, SettingsUpdate{MaxPlayers: &three})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.MaxPlayers != 3 {
		t.Errorf("Expected max players 3, got %d", updated.MaxPlayers)
	}
}

func TestManager_ListPublic(t *testing.T) {
	m, _, _ := newTestManager(2)
	for i := 0; i < 5; i++ {
		s := defaultSettings()
		s.Public = i != 2
		mustCreate(t, m, fmt.Sprintf("owner%d", i), s)
	}

	all := m.ListPublic("", 0)
	if len(all) != 4 {
		t.Fatalf("Expected 4 public rooms, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatal("Rooms should be ordered by id")
		}
	}

	page := m.ListPublic(all[1].ID, 1)
	if len(page) != 1 || page[0].ID != all[2].ID {
		t.Errorf("Expected the room after %s, got %+v", all[1].ID, page)
	}
}

func TestManager_ConcurrentJoinsRespectCapacity(t *testing.T) {
	m, _, _ := newTestManager(2)
	snap := mustCreate(t, m, "owner", Settings{Name: "Busy", MaxPlayers: 5})

	var wg sync.WaitGroup
	var mutex sync.Mutex
	joined := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := m.Join(fmt.Sprintf("p%d", i), snap.ID, ""); err == nil {
				mutex.Lock()
				joined++
				mutex.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if joined != 4 {
		t.Errorf("Expected exactly 4 joins, got %d", joined)
	}
	room, _ := m.Get(snap.ID)
	if len(room.Players) != 5 {
		t.Errorf("Expected a full room, got %d players", len(room.Players))
	}
}

func TestManager_Evict(t *testing.T) {
	m, _, _ := newTestManager(2)
	snap := mustCreate(t, m, "alice", defaultSettings())
	mustJoin(t, m, "bob", snap.ID, "")

	m.Evict("bob", snap.ID)
	m.Evict("bob", snap.ID)
	m.Evict("nobody", "")

	room, _ := m.Get(snap.ID)
	if len(room.Players) != 1 {
		t.Errorf("Evicted member should leave the room, got %+v", room.Players)
	}
}
