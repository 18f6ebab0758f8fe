package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/cardroom/models"
	"github.com/wfunc/cardroom/persistence"
)

// MockStore is an in-memory persistence.Database.
type MockStore struct {
	mutex    sync.Mutex
	accounts map[string]*models.Account
	tokens   map[string]*models.Token
	records  []*models.GameRecord
	failWith error
}

func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*models.Account),
		tokens:   make(map[string]*models.Token),
	}
}

func (m *MockStore) CreateAccount(ctx context.Context, account *models.Account) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, a := range m.accounts {
		if a.Login == account.Login {
			return persistence.ErrDuplicate
		}
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *MockStore) FindByLoginOrID(ctx context.Context, s string) (*models.Account, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, a := range m.accounts {
		if a.Login == s {
			copied := *a
			return &copied, nil
		}
	}
	if a, ok := m.accounts[s]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, persistence.ErrRecordNotFound
}

func (m *MockStore) UpdateStats(ctx context.Context, accountID string, fn func(*models.Stats)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	a, ok := m.accounts[accountID]
	if !ok {
		return persistence.ErrRecordNotFound
	}
	fn(&a.Stats)
	return nil
}

func (m *MockStore) CreateToken(ctx context.Context, token *models.Token) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	copied := *token
	m.tokens[token.Token] = &copied
	return nil
}

func (m *MockStore) ResolveToken(ctx context.Context, token string) (*models.Token, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *MockStore) Touch(ctx context.Context, token string, at time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return persistence.ErrRecordNotFound
	}
	t.CreatedAt = at
	return nil
}

func (m *MockStore) DeleteToken(ctx context.Context, token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *MockStore) DeleteAllTokensFor(ctx context.Context, accountID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for k, t := range m.tokens {
		if t.AccountID == accountID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *MockStore) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MockStore) ListGameRecords(ctx context.Context, roomID string, limit int) ([]*models.GameRecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []*models.GameRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if roomID == "" || m.records[i].RoomID == roomID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *MockStore) Migrate(ctx context.Context) error { return nil }
func (m *MockStore) Close() error                      { return nil }

var _ persistence.Database = (*MockStore)(nil)

var errMockStore = errors.New("store unavailable")
