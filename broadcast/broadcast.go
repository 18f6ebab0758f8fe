// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/network"
)

// Deliverer queues a frame for one account. session.Manager satisfies it.
type Deliverer interface {
	Deliver(accountID string, frame []byte) bool
}

// 基于会话的广播器
type Broadcaster struct {
	sessions Deliverer
}

func NewBroadcaster(sessions Deliverer) *Broadcaster {
	return &Broadcaster{sessions: sessions}
}

// SendTo encodes the event once and queues it for every account. Accounts
// without a live session, or with a full queue, miss the event.
func (b *Broadcaster) SendTo(accountIDs []string, eventType string, payload interface{}) {
	if len(accountIDs) == 0 {
		return
	}
	frame, err := network.Encode(eventType, payload)
	if err != nil {
		logger.Log.Errorf("Failed to encode %s: %v", eventType, err)
		return
	}
	for _, id := range accountIDs {
		b.sessions.Deliver(id, frame)
	}
}

// SendError sends a gateway error to one account.
func (b *Broadcaster) SendError(accountID, kind, detail string) {
	b.SendTo([]string{accountID}, network.EventError, network.Error{Kind: kind, Detail: detail})
}
