// persistence/sqlstore.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/wfunc/cardroom/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the SQL driver behind a SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// queryTimeout bounds every statement issued without a caller deadline.
const queryTimeout = 5 * time.Second

// SQLStore 基于 database/sql 的实现, 支持 PostgreSQL (lib/pq) 与 SQLite (modernc)
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            VARCHAR(36) PRIMARY KEY,
		login         TEXT UNIQUE NOT NULL,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		games_played  INTEGER NOT NULL DEFAULT 0,
		points        INTEGER NOT NULL DEFAULT 0,
		cards_had     INTEGER NOT NULL DEFAULT 0,
		wins          INTEGER NOT NULL DEFAULT 0,
		loses         INTEGER NOT NULL DEFAULT 0,
		max_points    INTEGER NOT NULL DEFAULT 0,
		created_at    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		token      VARCHAR(36) PRIMARY KEY,
		account_id VARCHAR(36) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_account_id ON tokens(account_id)`,
	`CREATE TABLE IF NOT EXISTS game_records (
		id         VARCHAR(36) PRIMARY KEY,
		room_id    TEXT NOT NULL,
		standings  TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_game_records_created_at ON game_records(created_at)`,
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(opts PostgresOptions) (*SQLStore, error) {
	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return open(db, DialectPostgres)
}

// NewSQLite opens (or creates) a SQLite database file.
func NewSQLite(path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite serializes writers; one connection keeps transactions simple.
	db.SetMaxOpenConns(1)

	return open(db, DialectSQLite)
}

func open(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Migrate 初始化数据库表结构
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// isUniqueViolation reports a unique or primary key conflict from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

const accountColumns = `id, login, display_name, password_hash, games_played, points, cards_had, wins, loses, max_points, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		a       models.Account
		created int64
	)
	err := row.Scan(&a.ID, &a.Login, &a.DisplayName, &a.PasswordHash,
		&a.Stats.GamesPlayed, &a.Stats.Points, &a.Stats.CardsHad,
		&a.Stats.Wins, &a.Stats.Loses, &a.Stats.MaxPoints, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

// CreateAccount 创建账号
func (s *SQLStore) CreateAccount(ctx context.Context, account *models.Account) error {
	query := s.rebind(`INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.Login, account.DisplayName, account.PasswordHash,
		account.Stats.GamesPlayed, account.Stats.Points, account.Stats.CardsHad,
		account.Stats.Wins, account.Stats.Loses, account.Stats.MaxPoints,
		toMillis(account.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByLoginOrID 按登录名或账号ID查找, 登录名优先
func (s *SQLStore) FindByLoginOrID(ctx context.Context, key string) (*models.Account, error) {
	for _, column := range []string{"login", "id"} {
		query := s.rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ?`)
		account, err := scanAccount(s.db.QueryRowContext(ctx, query, key))
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		return account, err
	}
	return nil, ErrRecordNotFound
}

// UpdateStats 在事务内读取并更新统计信息
func (s *SQLStore) UpdateStats(ctx context.Context, accountID string, fn func(*models.Stats)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	if s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	account, err := scanAccount(tx.QueryRowContext(ctx, s.rebind(query), accountID))
	if err != nil {
		return err
	}

	stats := account.Stats
	fn(&stats)

	update := s.rebind(`UPDATE accounts SET games_played = ?, points = ?, cards_had = ?, wins = ?, loses = ?, max_points = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, update,
		stats.GamesPlayed, stats.Points, stats.CardsHad,
		stats.Wins, stats.Loses, stats.MaxPoints, accountID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateToken 保存令牌
func (s *SQLStore) CreateToken(ctx context.Context, token *models.Token) error {
	query := s.rebind(`INSERT INTO tokens (token, account_id, created_at) VALUES (?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, token.Token, token.AccountID, toMillis(token.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ResolveToken 查找令牌
func (s *SQLStore) ResolveToken(ctx context.Context, token string) (*models.Token, error) {
	var (
		t       models.Token
		created int64
	)
	query := s.rebind(`SELECT token, account_id, created_at FROM tokens WHERE token = ?`)
	err := s.db.QueryRowContext(ctx, query, token).Scan(&t.Token, &t.AccountID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

// Touch 刷新令牌时间
func (s *SQLStore) Touch(ctx context.Context, token string, at time.Time) error {
	query := s.rebind(`UPDATE tokens SET created_at = ? WHERE token = ?`)
	result, err := s.db.ExecContext(ctx, query, toMillis(at), token)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteToken 删除令牌
func (s *SQLStore) DeleteToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tokens WHERE token = ?`), token)
	return err
}

// DeleteAllTokensFor 删除账号的全部令牌
func (s *SQLStore) DeleteAllTokensFor(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tokens WHERE account_id = ?`), accountID)
	return err
}

// SaveGameRecord 保存游戏记录
func (s *SQLStore) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	standings, err := json.Marshal(record.Standings)
	if err != nil {
		return err
	}
	query := s.rebind(`INSERT INTO game_records (id, room_id, standings, created_at) VALUES (?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, record.ID, record.RoomID, string(standings), toMillis(record.CreatedAt))
	return err
}

// ListGameRecords 查询最近的游戏记录, roomID 为空时不过滤
func (s *SQLStore) ListGameRecords(ctx context.Context, roomID string, limit int) ([]*models.GameRecord, error) {
	query := `SELECT id, room_id, standings, created_at FROM game_records`
	args := []any{}
	if roomID != "" {
		query += ` WHERE room_id = ?`
		args = append(args, roomID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.GameRecord
	for rows.Next() {
		var (
			r         models.GameRecord
			standings string
			created   int64
		)
		if err := rows.Scan(&r.ID, &r.RoomID, &standings, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(standings), &r.Standings); err != nil {
			return nil, err
		}
		r.CreatedAt = fromMillis(created)
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}
