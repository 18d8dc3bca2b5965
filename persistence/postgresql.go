// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/connect4/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	// 创建房间表
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rooms (
            id VARCHAR(64) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            password VARCHAR(255),
            max_players INTEGER DEFAULT 2,
            current_players INTEGER DEFAULT 0,
            is_active BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建玩家表
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id VARCHAR(64) PRIMARY KEY,
            username VARCHAR(255) NOT NULL,
            room_id VARCHAR(64) REFERENCES rooms (id),
            is_computer BOOLEAN DEFAULT FALSE,
            joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

func (p *PostgreSQL) CreateRoom(room *models.Room) error {
	_, err := p.db.Exec(`
        INSERT INTO rooms (id, name, password, max_players, current_players, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		room.ID, room.Name, room.Password, room.MaxPlayers,
		room.CurrentPlayers, room.IsActive, room.CreatedAt,
	)
	return err
}

func (p *PostgreSQL) GetRoom(roomID string) (*models.Room, error) {
	room := &models.Room{}
	err := p.db.QueryRow(`
        SELECT id, name, COALESCE(password, ''), max_players, current_players, is_active, created_at
        FROM rooms WHERE id = $1`, roomID,
	).Scan(&room.ID, &room.Name, &room.Password, &room.MaxPlayers,
		&room.CurrentPlayers, &room.IsActive, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// AddPlayer 插入玩家并在同一事务中修正房间人数
func (p *PostgreSQL) AddPlayer(player *models.Player) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO players (id, username, room_id, is_computer, joined_at)
        VALUES ($1, $2, $3, $4, $5)`,
		player.ID, player.Username, player.RoomID, player.IsComputer, player.JoinedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        UPDATE rooms SET current_players = (
            SELECT COUNT(*) FROM players WHERE room_id = $1
        ) WHERE id = $1`, player.RoomID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgreSQL) GetPlayer(playerID string) (*models.Player, error) {
	player := &models.Player{}
	err := p.db.QueryRow(`
        SELECT id, username, COALESCE(room_id, ''), is_computer, joined_at
        FROM players WHERE id = $1`, playerID,
	).Scan(&player.ID, &player.Username, &player.RoomID, &player.IsComputer, &player.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return player, nil
}

func (p *PostgreSQL) PlayersInRoom(roomID string) ([]*models.Player, error) {
	return p.queryPlayers(`
        SELECT id, username, room_id, is_computer, joined_at
        FROM players WHERE room_id = $1`, roomID)
}

func (p *PostgreSQL) HumanPlayersByJoinOrder(roomID string) ([]*models.Player, error) {
	return p.queryPlayers(`
        SELECT id, username, room_id, is_computer, joined_at
        FROM players WHERE room_id = $1 AND is_computer = FALSE
        ORDER BY joined_at`, roomID)
}

func (p *PostgreSQL) queryPlayers(query string, args ...interface{}) ([]*models.Player, error) {
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Player
	for rows.Next() {
		player := &models.Player{}
		if err := rows.Scan(&player.ID, &player.Username, &player.RoomID,
			&player.IsComputer, &player.JoinedAt); err != nil {
			return nil, err
		}
		result = append(result, player)
	}
	return result, rows.Err()
}

// RemoveOrphanedPlayers 清理不在活跃房间中的玩家并修正房间人数
func (p *PostgreSQL) RemoveOrphanedPlayers() (int, error) {
	tx, err := p.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
        DELETE FROM players
        WHERE room_id NOT IN (SELECT id FROM rooms WHERE is_active = TRUE)`)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()

	_, err = tx.Exec(`
        UPDATE rooms SET current_players = (
            SELECT COUNT(*) FROM players WHERE players.room_id = rooms.id
        )`)
	if err != nil {
		return 0, err
	}

	return int(removed), tx.Commit()
}

func (p *PostgreSQL) ResetAll() error {
	_, err := p.db.Exec(`DELETE FROM players`)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`DELETE FROM rooms`)
	return err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
