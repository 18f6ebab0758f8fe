// models/gorm_models.go
package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// GormAccount 账号表
type GormAccount struct {
	ID           string `gorm:"primaryKey;size:36"`
	Login        string `gorm:"uniqueIndex;not null"`
	DisplayName  string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	GamesPlayed  int    `gorm:"not null;default:0"`
	Points       int    `gorm:"not null;default:0"`
	CardsHad     int    `gorm:"not null;default:0"`
	Wins         int    `gorm:"not null;default:0"`
	Loses        int    `gorm:"not null;default:0"`
	MaxPoints    int    `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GormAccount) TableName() string { return "accounts" }

// GormToken 登录令牌表
type GormToken struct {
	Token     string    `gorm:"primaryKey;size:36"`
	AccountID string    `gorm:"index;not null;size:36"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;not null"`
}

func (GormToken) TableName() string { return "tokens" }

// GormGameRecord 游戏记录表
type GormGameRecord struct {
	ID        string         `gorm:"primaryKey;size:36"`
	RoomID    string         `gorm:"index;not null"`
	Standings datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

func (GormGameRecord) TableName() string { return "game_records" }

// NewGormAccount converts an account into its row.
func NewGormAccount(a *Account) *GormAccount {
	return &GormAccount{
		ID:           a.ID,
		Login:        a.Login,
		DisplayName:  a.DisplayName,
		PasswordHash: a.PasswordHash,
		GamesPlayed:  a.Stats.GamesPlayed,
		Points:       a.Stats.Points,
		CardsHad:     a.Stats.CardsHad,
		Wins:         a.Stats.Wins,
		Loses:        a.Stats.Loses,
		MaxPoints:    a.Stats.MaxPoints,
		CreatedAt:    a.CreatedAt,
	}
}

// Account converts the row back into an account.
func (m *GormAccount) Account() *Account {
	return &Account{
		ID:           m.ID,
		Login:        m.Login,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		Stats:        m.Stats(),
	}
}

func (m *GormAccount) Stats() Stats {
	return Stats{
		GamesPlayed: m.GamesPlayed,
		Points:      m.Points,
		CardsHad:    m.CardsHad,
		Wins:        m.Wins,
		Loses:       m.Loses,
		MaxPoints:   m.MaxPoints,
	}
}

// SetStats copies s into the row.
func (m *GormAccount) SetStats(s Stats) {
	m.GamesPlayed = s.GamesPlayed
	m.Points = s.Points
	m.CardsHad = s.CardsHad
	m.Wins = s.Wins
	m.Loses = s.Loses
	m.MaxPoints = s.MaxPoints
}

// NewGormGameRecord converts a game record into its row, standings as JSON.
func NewGormGameRecord(r *GameRecord) (*GormGameRecord, error) {
	standings, err := json.Marshal(r.Standings)
	if err != nil {
		return nil, err
	}
	return &GormGameRecord{
		ID:        r.ID,
		RoomID:    r.RoomID,
		Standings: datatypes.JSON(standings),
		CreatedAt: r.CreatedAt,
	}, nil
}

// GameRecord converts the row back into a game record.
func (m *GormGameRecord) GameRecord() (*GameRecord, error) {
	record := &GameRecord{ID: m.ID, RoomID: m.RoomID, CreatedAt: m.CreatedAt}
	if err := json.Unmarshal(m.Standings, &record.Standings); err != nil {
		return nil, err
	}
	return record, nil
}
