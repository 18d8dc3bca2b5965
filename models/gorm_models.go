// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoom 房间模型
type GormRoom struct {
	gorm.Model
	RoomID         string `gorm:"uniqueIndex;not null"`
	Name           string `gorm:"not null"`
	Password       string
	MaxPlayers     int  `gorm:"default:2"`
	CurrentPlayers int  `gorm:"default:0"`
	IsActive       bool `gorm:"default:true"`
}

// GormPlayer 玩家模型
type GormPlayer struct {
	gorm.Model
	PlayerID   string `gorm:"uniqueIndex;not null"`
	Username   string `gorm:"not null"`
	RoomID     string `gorm:"index;not null"`
	IsComputer bool   `gorm:"default:false"`
	JoinedAt   time.Time
}
