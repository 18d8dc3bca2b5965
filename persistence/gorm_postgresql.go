// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/connect4/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRoom{}, &models.GormPlayer{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (g *GormPostgreSQL) CreateRoom(room *models.Room) error {
	record := &models.GormRoom{
		RoomID:         room.ID,
		Name:           room.Name,
		Password:       room.Password,
		MaxPlayers:     room.MaxPlayers,
		CurrentPlayers: room.CurrentPlayers,
		IsActive:       room.IsActive,
	}
	return g.db.Create(record).Error
}

func (g *GormPostgreSQL) GetRoom(roomID string) (*models.Room, error) {
	var record models.GormRoom
	if err := g.db.Where("room_id = ?", roomID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return roomFromGorm(&record), nil
}

// AddPlayer 使用事务插入玩家并修正房间人数
func (g *GormPostgreSQL) AddPlayer(player *models.Player) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		record := &models.GormPlayer{
			PlayerID:   player.ID,
			Username:   player.Username,
			RoomID:     player.RoomID,
			IsComputer: player.IsComputer,
			JoinedAt:   player.JoinedAt,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.GormPlayer{}).
			Where("room_id = ?", player.RoomID).Count(&count).Error; err != nil {
			return err
		}

		return tx.Model(&models.GormRoom{}).
			Where("room_id = ?", player.RoomID).
			Update("current_players", count).Error
	})
}

func (g *GormPostgreSQL) GetPlayer(playerID string) (*models.Player, error) {
	var record models.GormPlayer
	if err := g.db.Where("player_id = ?", playerID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return playerFromGorm(&record), nil
}

func (g *GormPostgreSQL) PlayersInRoom(roomID string) ([]*models.Player, error) {
	var records []models.GormPlayer
	if err := g.db.Where("room_id = ?", roomID).Find(&records).Error; err != nil {
		return nil, err
	}
	return playersFromGorm(records), nil
}

func (g *GormPostgreSQL) HumanPlayersByJoinOrder(roomID string) ([]*models.Player, error) {
	var records []models.GormPlayer
	err := g.db.Where("room_id = ? AND is_computer = ?", roomID, false).
		Order("joined_at").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return playersFromGorm(records), nil
}

// RemoveOrphanedPlayers 清理不在活跃房间中的玩家并修正房间人数
func (g *GormPostgreSQL) RemoveOrphanedPlayers() (int, error) {
	var removed int64
	err := g.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where(
			"room_id NOT IN (?)",
			tx.Model(&models.GormRoom{}).Select("room_id").Where("is_active = ?", true),
		).Delete(&models.GormPlayer{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Exec(`
            UPDATE gorm_rooms SET current_players = (
                SELECT COUNT(*) FROM gorm_players
                WHERE gorm_players.room_id = gorm_rooms.room_id
                  AND gorm_players.deleted_at IS NULL
            ) WHERE deleted_at IS NULL`).Error
	})
	return int(removed), err
}

func (g *GormPostgreSQL) ResetAll() error {
	if err := g.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Unscoped().Delete(&models.GormPlayer{}).Error; err != nil {
		return err
	}
	return g.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Unscoped().Delete(&models.GormRoom{}).Error
}

// Close 关闭数据库连接
func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func roomFromGorm(r *models.GormRoom) *models.Room {
	return &models.Room{
		ID:             r.RoomID,
		Name:           r.Name,
		Password:       r.Password,
		MaxPlayers:     r.MaxPlayers,
		CurrentPlayers: r.CurrentPlayers,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
	}
}

func playerFromGorm(p *models.GormPlayer) *models.Player {
	return &models.Player{
		ID:         p.PlayerID,
		Username:   p.Username,
		RoomID:     p.RoomID,
		IsComputer: p.IsComputer,
		JoinedAt:   p.JoinedAt,
	}
}

func playersFromGorm(records []models.GormPlayer) []*models.Player {
	result := make([]*models.Player, 0, len(records))
	for i := range records {
		result = append(result, playerFromGorm(&records[i]))
	}
	return result
}
