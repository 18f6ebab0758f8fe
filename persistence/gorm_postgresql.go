// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// PostgresOptions 连接参数
type PostgresOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func (o PostgresOptions) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		o.Host, o.Port, o.User, o.Password, o.DBName)
}

// zapWriter routes GORM's slow-query log into the process logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Log.Warnf(format, args...)
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(opts PostgresOptions) (*GormPostgreSQL, error) {
	gormLogger := gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(postgres.Open(opts.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &GormPostgreSQL{db: db}, nil
}

// Migrate 自动迁移表结构
func (p *GormPostgreSQL) Migrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(
		&models.GormAccount{},
		&models.GormToken{},
		&models.GormGameRecord{},
	)
}

// CreateAccount 创建账号
func (p *GormPostgreSQL) CreateAccount(ctx context.Context, account *models.Account) error {
	err := p.db.WithContext(ctx).Create(models.NewGormAccount(account)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByLoginOrID 按登录名或账号ID查找
func (p *GormPostgreSQL) FindByLoginOrID(ctx context.Context, s string) (*models.Account, error) {
	for _, column := range []string{"login", "id"} {
		var row models.GormAccount
		err := p.db.WithContext(ctx).Where(column+" = ?", s).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return row.Account(), nil
	}
	return nil, ErrRecordNotFound
}

// UpdateStats 在事务内更新统计信息
func (p *GormPostgreSQL) UpdateStats(ctx context.Context, accountID string, fn func(*models.Stats)) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.GormAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", accountID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		stats := row.Stats()
		fn(&stats)
		row.SetStats(stats)
		return tx.Save(&row).Error
	})
}

// CreateToken 保存令牌
func (p *GormPostgreSQL) CreateToken(ctx context.Context, token *models.Token) error {
	return p.db.WithContext(ctx).Create(&models.GormToken{
		Token:     token.Token,
		AccountID: token.AccountID,
		CreatedAt: token.CreatedAt,
	}).Error
}

// ResolveToken 查找令牌
func (p *GormPostgreSQL) ResolveToken(ctx context.Context, token string) (*models.Token, error) {
	var row models.GormToken
	err := p.db.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.Token{Token: row.Token, AccountID: row.AccountID, CreatedAt: row.CreatedAt}, nil
}

// Touch 刷新令牌时间
func (p *GormPostgreSQL) Touch(ctx context.Context, token string, at time.Time) error {
	result := p.db.WithContext(ctx).Model(&models.GormToken{}).Where("token = ?", token).Update("created_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteToken 删除令牌
func (p *GormPostgreSQL) DeleteToken(ctx context.Context, token string) error {
	return p.db.WithContext(ctx).Where("token = ?", token).Delete(&models.GormToken{}).Error
}

// DeleteAllTokensFor 删除账号的全部令牌
func (p *GormPostgreSQL) DeleteAllTokensFor(ctx context.Context, accountID string) error {
	return p.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.GormToken{}).Error
}

// SaveGameRecord 保存游戏记录
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	row, err := models.NewGormGameRecord(record)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Create(row).Error
}

// ListGameRecords 查询最近的游戏记录, roomID 为空时不过滤
func (p *GormPostgreSQL) ListGameRecords(ctx context.Context, roomID string, limit int) ([]*models.GameRecord, error) {
	query := p.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if roomID != "" {
		query = query.Where("room_id = ?", roomID)
	}

	var rows []models.GormGameRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*models.GameRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].GameRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
