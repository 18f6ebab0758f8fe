package room

// Broadcaster delivers events to accounts. Implementations must not block and
// must not call back into the room package.
type Broadcaster interface {
	SendTo(accountIDs []string, eventType string, payload interface{})
}

// Tracker records which room each session is in.
type Tracker interface {
	ClaimRoom(accountID, roomID string) error
	ReleaseRoom(accountID, roomID string)
}

// Observer receives room metrics.
type Observer interface {
	SetActiveRooms(n int)
	IncGamesStarted()
	IncPlays(result string)
}

type nopObserver struct{}

func (nopObserver) SetActiveRooms(int) {}
func (nopObserver) IncGamesStarted()   {}
func (nopObserver) IncPlays(string)    {}
