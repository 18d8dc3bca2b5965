// persistence/memory.go
package persistence

import (
	"sort"
	"sync"

	"github.com/wfunc/connect4/models"
)

// Memory 内存存储实现，用于测试和无数据库部署
type Memory struct {
	rooms   map[string]*models.Room
	players map[string]*models.Player
	mutex   sync.RWMutex
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]*models.Room),
		players: make(map[string]*models.Player),
	}
}

func (m *Memory) CreateRoom(room *models.Room) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

func (m *Memory) GetRoom(roomID string) (*models.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRecordNotFound
	}
	cp := *room
	return &cp, nil
}

func (m *Memory) AddPlayer(player *models.Player) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cp := *player
	m.players[player.ID] = &cp

	if room, exists := m.rooms[player.RoomID]; exists {
		room.CurrentPlayers = m.countPlayersLocked(player.RoomID)
	}
	return nil
}

func (m *Memory) GetPlayer(playerID string) (*models.Player, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	player, exists := m.players[playerID]
	if !exists {
		return nil, ErrRecordNotFound
	}
	cp := *player
	return &cp, nil
}

func (m *Memory) PlayersInRoom(roomID string) ([]*models.Player, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*models.Player
	for _, p := range m.players {
		if p.RoomID == roomID {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *Memory) HumanPlayersByJoinOrder(roomID string) ([]*models.Player, error) {
	players, err := m.PlayersInRoom(roomID)
	if err != nil {
		return nil, err
	}

	humans := players[:0]
	for _, p := range players {
		if !p.IsComputer {
			humans = append(humans, p)
		}
	}
	sort.Slice(humans, func(i, j int) bool {
		return humans[i].JoinedAt.Before(humans[j].JoinedAt)
	})
	return humans, nil
}

// RemoveOrphanedPlayers 清理孤儿玩家并修正房间人数
func (m *Memory) RemoveOrphanedPlayers() (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for id, p := range m.players {
		room, exists := m.rooms[p.RoomID]
		if !exists || !room.IsActive {
			delete(m.players, id)
			removed++
		}
	}
	for id, room := range m.rooms {
		room.CurrentPlayers = m.countPlayersLocked(id)
	}
	return removed, nil
}

func (m *Memory) ResetAll() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rooms = make(map[string]*models.Room)
	m.players = make(map[string]*models.Player)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// countPlayersLocked 统计房间内玩家数量（含电脑玩家），调用方需持有锁
func (m *Memory) countPlayersLocked(roomID string) int {
	n := 0
	for _, p := range m.players {
		if p.RoomID == roomID {
			n++
		}
	}
	return n
}
