// room/room.go
package room

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/game"
	"github.com/wfunc/cardroom/network"
	"github.com/wfunc/cardroom/table"
)

const (
	MinPlayers        = 2
	MaxPasswordLength = 32
	MaxNameLength     = 64
)

// RoomStatus 表示房间的业务状态
type RoomStatus int

const (
	StatusWaiting RoomStatus = iota
	StatusGaming
	// StatusSettlement is a finished game whose scores are being applied.
	StatusSettlement
)

var statusNames = [...]string{"waiting", "gaming", "settlement"}

func (s RoomStatus) String() string {
	if s < StatusWaiting || s > StatusSettlement {
		return "unknown"
	}
	return statusNames[s]
}

func (s RoomStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// gameSlot guards a room's game independently of the room tables.
type gameSlot struct {
	game  *game.Game
	mutex sync.Mutex
}

// Room is a registry record. Copies share the member table and game slot.
type Room struct {
	ID         string
	Name       string
	Public     bool
	Password   string
	Owner      string
	MaxPlayers int
	Members    *table.Table[string, Member]
	slot       *gameSlot
	out        Broadcaster
}

func (r Room) Key() string { return r.ID }

func (r Room) OnInsert(changed Room) {
	r.announce(network.EventRoomCreate, changed.Members.Keys(), changed.Snapshot())
}

func (r Room) OnUpdate(changed Room) {
	r.announce(network.EventRoomUpdate, changed.Members.Keys(), changed.Snapshot())
}

// OnDelete tells the last member, who is always the owner at that point.
func (r Room) OnDelete(changed Room) {
	r.announce(network.EventRoomDelete, []string{changed.Owner}, RoomDeleted{ID: changed.ID})
}

func (r Room) announce(eventType string, to []string, payload interface{}) {
	if r.out == nil || len(to) == 0 {
		return
	}
	r.out.SendTo(to, eventType, payload)
}

// Status derives the room state from its game slot.
func (r Room) Status() RoomStatus {
	r.slot.mutex.Lock()
	defer r.slot.mutex.Unlock()
	return r.status()
}

// status needs the slot lock held.
func (r Room) status() RoomStatus {
	switch {
	case r.slot.game == nil:
		return StatusWaiting
	case r.slot.game.Finished():
		return StatusSettlement
	default:
		return StatusGaming
	}
}

// Snapshot 房间快照
type Snapshot struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Public     bool           `json:"is_public"`
	Password   bool           `json:"password"`
	Owner      string         `json:"owner"`
	MaxPlayers int            `json:"max_players"`
	Status     RoomStatus     `json:"status"`
	Players    []PlayerView   `json:"players"`
	Game       *game.Snapshot `json:"game,omitempty"`
}

// RoomDeleted is the payload of RoomDelete.
type RoomDeleted struct {
	ID string `json:"id"`
}

// Snapshot takes the member table lock, then the game lock.
func (r Room) Snapshot() Snapshot {
	members := r.Members.Values()
	players := make([]PlayerView, len(members))
	for i, m := range members {
		players[i] = m.View()
	}

	snap := Snapshot{
		ID:         r.ID,
		Name:       r.Name,
		Public:     r.Public,
		Password:   r.Password != "",
		Owner:      r.Owner,
		MaxPlayers: r.MaxPlayers,
		Players:    players,
	}

	r.slot.mutex.Lock()
	snap.Status = r.status()
	if r.slot.game != nil && !r.slot.game.Finished() {
		g := r.slot.game.Snapshot()
		snap.Game = &g
	}
	r.slot.mutex.Unlock()
	return snap
}

// Settings are the fields chosen when a room is created.
type Settings struct {
	Name       string `json:"name"`
	Public     bool   `json:"is_public"`
	Password   string `json:"password"`
	MaxPlayers int    `json:"max_players"`
}

// SettingsUpdate changes only the fields that are set.
type SettingsUpdate struct {
	Name       *string `json:"name,omitempty"`
	Public     *bool   `json:"is_public,omitempty"`
	Password   *string `json:"password,omitempty"`
	Owner      *string `json:"owner,omitempty"`
	MaxPlayers *int    `json:"max_players,omitempty"`
}

// FieldErrors maps a settings field to what is wrong with it.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + f[k]
	}
	return strings.Join(parts, "; ")
}

func (f FieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return errs.Wrap(errs.KindBadRequest, "invalid room settings", f)
}

func checkName(name string, fields FieldErrors) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		fields["name"] = "must not be empty"
	case utf8.RuneCountInString(name) > MaxNameLength:
		fields["name"] = "too long"
	}
	return name
}

func checkPassword(password string, fields FieldErrors) {
	if utf8.RuneCountInString(password) > MaxPasswordLength {
		fields["password"] = "at most 32 characters"
	}
}

func checkMaxPlayers(n int, fields FieldErrors) {
	if n < MinPlayers {
		fields["max_players"] = "must be at least 2"
	}
}

// validate normalizes s and reports every invalid field.
func (s *Settings) validate() error {
	fields := FieldErrors{}
	s.Name = checkName(s.Name, fields)
	checkPassword(s.Password, fields)
	checkMaxPlayers(s.MaxPlayers, fields)
	return fields.err()
}

// apply validates every set field against r and only then changes r.
func (u SettingsUpdate) apply(r *Room) error {
	fields := FieldErrors{}
	var name string
	if u.Name != nil {
		name = checkName(*u.Name, fields)
	}
	if u.Password != nil {
		checkPassword(*u.Password, fields)
	}
	if u.MaxPlayers != nil {
		checkMaxPlayers(*u.MaxPlayers, fields)
		if _, ok := fields["max_players"]; !ok && *u.MaxPlayers < r.Members.Len() {
			fields["max_players"] = "below the current member count"
		}
	}
	if u.Owner != nil && !r.Members.Has(*u.Owner) {
		fields["owner"] = "not a member of this room"
	}
	if err := fields.err(); err != nil {
		return err
	}

	if u.Name != nil {
		r.Name = name
	}
	if u.Public != nil {
		r.Public = *u.Public
	}
	if u.Password != nil {
		r.Password = *u.Password
	}
	if u.Owner != nil {
		r.Owner = *u.Owner
	}
	if u.MaxPlayers != nil {
		r.MaxPlayers = *u.MaxPlayers
	}
	return nil
}
