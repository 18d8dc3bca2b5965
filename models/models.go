// models/models.go
package models

import (
	"time"
)

// ComputerName 是电脑玩家的固定用户名
const ComputerName = "Computer"

// Room 房间数据模型
type Room struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Password       string    `json:"password,omitempty"`
	MaxPlayers     int       `json:"max_players"`
	CurrentPlayers int       `json:"current_players"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Player 玩家数据模型
type Player struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	RoomID     string    `json:"room_id"`
	IsComputer bool      `json:"is_computer"`
	JoinedAt   time.Time `json:"joined_at"`
}

// RoomInfo 房间信息（只读投影，用于展示）
type RoomInfo struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	MaxPlayers     int          `json:"max_players"`
	CurrentPlayers int          `json:"current_players"`
	Players        []PlayerInfo `json:"players"`
}

// PlayerInfo 玩家信息（用于房间信息投影）
type PlayerInfo struct {
	Username   string `json:"username"`
	IsComputer bool   `json:"is_computer"`
}
