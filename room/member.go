package room

import (
	"github.com/wfunc/cardroom/network"
)

// Member is a seat in a room. Member tables run in shared mode, so every
// member hears about every change.
type Member struct {
	ID     string
	Ready  bool
	Points int
	roomID string
	out    Broadcaster
}

// PlayerView is the public view of a member.
type PlayerView struct {
	ID      string `json:"id"`
	IsReady bool   `json:"is_ready"`
	Points  int    `json:"points"`
}

// MemberEvent is the payload of PlayerJoined, PlayerUpdated and PlayerLeft.
type MemberEvent struct {
	RoomID string     `json:"room_id"`
	Player PlayerView `json:"player"`
}

func (m Member) View() PlayerView {
	return PlayerView{ID: m.ID, IsReady: m.Ready, Points: m.Points}
}

func (m Member) Key() string { return m.ID }

// OnInsert skips the joining member itself; it receives the room snapshot.
func (m Member) OnInsert(changed Member) {
	if changed.ID != m.ID {
		m.send(network.EventPlayerJoined, changed)
	}
}

func (m Member) OnUpdate(changed Member) { m.send(network.EventPlayerUpdated, changed) }
func (m Member) OnDelete(changed Member) { m.send(network.EventPlayerLeft, changed) }

func (m Member) send(eventType string, changed Member) {
	if m.out == nil {
		return
	}
	m.out.SendTo([]string{m.ID}, eventType, MemberEvent{RoomID: m.roomID, Player: changed.View()})
}
