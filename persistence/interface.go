// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/cardroom/models"
)

// AccountStore 账号存储
type AccountStore interface {
	// CreateAccount fails with ErrDuplicate when the login is taken.
	CreateAccount(ctx context.Context, account *models.Account) error
	// FindByLoginOrID looks s up as a login first, then as an account id.
	FindByLoginOrID(ctx context.Context, s string) (*models.Account, error)
	// UpdateStats applies fn to the account's stats atomically.
	UpdateStats(ctx context.Context, accountID string, fn func(*models.Stats)) error
}

// TokenStore 登录令牌存储
type TokenStore interface {
	CreateToken(ctx context.Context, token *models.Token) error
	ResolveToken(ctx context.Context, token string) (*models.Token, error)
	Touch(ctx context.Context, token string, at time.Time) error
	DeleteToken(ctx context.Context, token string) error
	DeleteAllTokensFor(ctx context.Context, accountID string) error
}

// RecordStore 游戏记录存储
type RecordStore interface {
	SaveGameRecord(ctx context.Context, record *models.GameRecord) error
	ListGameRecords(ctx context.Context, roomID string, limit int) ([]*models.GameRecord, error)
}

// Database 数据库接口
type Database interface {
	AccountStore
	TokenStore
	RecordStore
	Migrate(ctx context.Context) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("record already exists")
)
