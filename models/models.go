// models/models.go
package models

import (
	"time"
)

// Account 玩家账号
type Account struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	Stats        Stats     `json:"stats"`
}

// Stats 玩家统计信息
type Stats struct {
	GamesPlayed int `json:"games_played"`
	Points      int `json:"points"`
	CardsHad    int `json:"cards_had"`
	Wins        int `json:"wins"`
	Loses       int `json:"loses"`
	MaxPoints   int `json:"max_points"`
}

// Record folds one finished game into the stats.
func (s *Stats) Record(points, cardsHad int, won bool) {
	s.GamesPlayed++
	s.Points += points
	s.CardsHad += cardsHad
	if won {
		s.Wins++
	} else {
		s.Loses++
	}
	if points > s.MaxPoints {
		s.MaxPoints = points
	}
}

// Token 登录令牌. CreatedAt slides forward every time the token is used.
type Token struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GameRecord 游戏记录
type GameRecord struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	Standings []Standing `json:"standings"`
	CreatedAt time.Time  `json:"created_at"`
}

// Standing 单个玩家的结算结果
type Standing struct {
	AccountID string `json:"id"`
	Points    int    `json:"points"`
	CardsHad  int    `json:"cards_had"`
}
