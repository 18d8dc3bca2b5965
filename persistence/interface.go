// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/connect4/models"
)

// Store 房间/玩家持久化接口
// AddPlayer inserts the player and refreshes the owning room's player count in
// one atomic step. JoinedAt ordering is the source of truth for seat numbers.
type Store interface {
	CreateRoom(room *models.Room) error
	GetRoom(roomID string) (*models.Room, error)
	AddPlayer(player *models.Player) error
	GetPlayer(playerID string) (*models.Player, error)
	PlayersInRoom(roomID string) ([]*models.Player, error)
	HumanPlayersByJoinOrder(roomID string) ([]*models.Player, error)
	RemoveOrphanedPlayers() (int, error)
	ResetAll() error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)
