// session/session.go
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/network"
	"github.com/wfunc/cardroom/table"
)

var (
	ErrSessionNotFound = errs.New(errs.KindForbidden, "no live session, identify first")
	ErrAlreadyInRoom   = errs.New(errs.KindForbidden, "already in another room")
)

var errStale = errors.New("session channel was replaced")

// Session is one identified account. The record is a value; the table holds
// the current copy.
type Session struct {
	AccountID string
	Channel   *network.Channel
	RoomID    string
	CreatedAt time.Time
	manager   *Manager
}

func (s Session) Key() string { return s.AccountID }

func (s Session) OnInsert(Session) { s.manager.online(1) }
func (s Session) OnUpdate(Session) {}
func (s Session) OnDelete(Session) { s.manager.online(-1) }

// Scheduler delays eviction. timer.TimerManager satisfies it.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64)
}

// Observer receives session metrics.
type Observer interface {
	SetOnlineSessions(n int)
	IncDroppedNotifications()
}

type nopObserver struct{}

func (nopObserver) SetOnlineSessions(int)    {}
func (nopObserver) IncDroppedNotifications() {}

// Session管理器
type Manager struct {
	sessions  *table.Table[string, Session]
	scheduler Scheduler
	grace     time.Duration
	observer  Observer
	count     atomic.Int64
	onEvict   func(accountID, roomID string)

	pending map[string]int64
	mutex   sync.Mutex
}

// NewManager creates a directory whose disconnected sessions are evicted
// after grace unless the account reconnects first.
func NewManager(scheduler Scheduler, grace time.Duration, observer Observer) *Manager {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Manager{
		sessions:  table.New[string, Session](table.ModeTable),
		scheduler: scheduler,
		grace:     grace,
		observer:  observer,
		pending:   make(map[string]int64),
	}
}

// OnEvict registers the callback run after a session is evicted. roomID is
// the room the session was in, if any.
func (m *Manager) OnEvict(fn func(accountID, roomID string)) {
	m.onEvict = fn
}

func (m *Manager) online(delta int64) {
	m.observer.SetOnlineSessions(int(m.count.Add(delta)))
}

// Identify binds ch to accountID. An existing session keeps its room and only
// has its channel replaced; the replaced channel is closed. resumed reports
// whether a session already existed.
func (m *Manager) Identify(accountID string, ch *network.Channel) (sess Session, resumed bool) {
	m.cancelEviction(accountID)

	for {
		var previous *network.Channel
		prior, err := m.sessions.Update(accountID, func(s *Session) error {
			previous = s.Channel
			s.Channel = ch
			return nil
		})
		if err == nil {
			if previous != nil && previous != ch {
				previous.Close()
			}
			prior.Channel = ch
			return prior, true
		}

		sess = Session{AccountID: accountID, Channel: ch, CreatedAt: time.Now(), manager: m}
		if m.sessions.Insert(sess) {
			logger.Log.Infof("Session created for account %s", accountID)
			return sess, false
		}
	}
}

// Get returns the session of accountID.
func (m *Manager) Get(accountID string) (Session, bool) {
	return m.sessions.Get(accountID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.Len()
}

// Deliver queues frame on the account's channel without blocking.
func (m *Manager) Deliver(accountID string, frame []byte) bool {
	sess, ok := m.sessions.Get(accountID)
	if !ok || sess.Channel == nil {
		return false
	}
	if !sess.Channel.Send(frame) {
		m.observer.IncDroppedNotifications()
		logger.Log.Debugf("Dropped notification for account %s", accountID)
		return false
	}
	return true
}

// RoomOf returns the room the account is in, "" when none.
func (m *Manager) RoomOf(accountID string) (string, error) {
	sess, ok := m.sessions.Get(accountID)
	if !ok {
		return "", ErrSessionNotFound
	}
	return sess.RoomID, nil
}

// ClaimRoom records roomID as the account's room. It fails when the account
// is already in a different room.
func (m *Manager) ClaimRoom(accountID, roomID string) error {
	_, err := m.sessions.Update(accountID, func(s *Session) error {
		if s.RoomID != "" && s.RoomID != roomID {
			return ErrAlreadyInRoom
		}
		s.RoomID = roomID
		return nil
	})
	if errors.Is(err, table.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// ReleaseRoom clears the account's room if it is still roomID.
func (m *Manager) ReleaseRoom(accountID, roomID string) {
	m.sessions.Update(accountID, func(s *Session) error {
		if s.RoomID == roomID {
			s.RoomID = ""
		}
		return nil
	})
}

// Disconnect is called when the connection owning channelID closes. The
// session is evicted after the grace period unless a newer channel has
// replaced it by then.
func (m *Manager) Disconnect(accountID, channelID string) {
	sess, ok := m.sessions.Get(accountID)
	if !ok || sess.Channel == nil || sess.Channel.ID != channelID {
		return
	}
	sess.Channel.Close()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if id, ok := m.pending[accountID]; ok {
		m.scheduler.RemoveTimer(id)
	}
	m.pending[accountID] = m.scheduler.AddTimer(m.grace, 0, func() {
		m.evict(accountID, channelID)
	})
}

func (m *Manager) cancelEviction(accountID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if id, ok := m.pending[accountID]; ok {
		m.scheduler.RemoveTimer(id)
		delete(m.pending, accountID)
	}
}

func (m *Manager) evict(accountID, channelID string) {
	m.mutex.Lock()
	delete(m.pending, accountID)
	m.mutex.Unlock()

	removed, err := m.sessions.Update(accountID, func(s *Session) error {
		if s.Channel == nil || s.Channel.ID != channelID {
			return errStale
		}
		return table.ErrRemove
	})
	if err != nil {
		return
	}

	logger.Log.Infof("Session for account %s evicted after %s", accountID, m.grace)
	if m.onEvict != nil {
		m.onEvict(accountID, removed.RoomID)
	}
}
