// room/room.go
package room

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/connect4/models"
	"github.com/wfunc/connect4/persistence"
)

const (
	// RoomCapacity 每个房间固定两个座位
	RoomCapacity = 2
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrWrongPassword  = errors.New("incorrect password")
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("username already taken")
	ErrComputerExists = errors.New("computer opponent already exists")
	ErrPlayerNotFound = errors.New("player not found")
)

// SessionCreator 在房间创建时懒初始化对局，由 session 包实现
// Defined here to break the import cycle between room and session.
type SessionCreator interface {
	Ensure(roomID string)
}

// Manager 房间注册表：创建房间、加入玩家、分配座位号
// Structural changes (new room, new player) are serialized by a coarse mutex;
// per-room game mutation locking lives in the session coordinator.
type Manager struct {
	store    persistence.Store
	sessions SessionCreator
	mutex    sync.Mutex
}

// NewManager 创建房间注册表
func NewManager(store persistence.Store) *Manager {
	return &Manager{store: store}
}

// SetSessionCreator wires the session coordinator in after construction.
func (m *Manager) SetSessionCreator(sc SessionCreator) {
	m.sessions = sc
}

// CreateRoom 创建房间并把创建者登记为1号座位候选人
func (m *Manager) CreateRoom(name, password, username string) (roomID, playerID string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	roomID = uuid.New().String()
	playerID = uuid.New().String()

	err = m.store.CreateRoom(&models.Room{
		ID:         roomID,
		Name:       name,
		Password:   password,
		MaxPlayers: RoomCapacity,
		IsActive:   true,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return "", "", fmt.Errorf("create room: %w", err)
	}

	err = m.store.AddPlayer(&models.Player{
		ID:       playerID,
		Username: username,
		RoomID:   roomID,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return "", "", fmt.Errorf("register creator: %w", err)
	}

	if m.sessions != nil {
		m.sessions.Ensure(roomID)
	}
	return roomID, playerID, nil
}

// JoinRoom 加入房间
// Check order: room exists and is active, password, capacity, username
// uniqueness. A room with IsActive=false is reported as not found.
func (m *Manager) JoinRoom(roomID, username, password string) (playerID string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	playerID, err = m.joinLocked(roomID, username, password)
	if err != nil {
		return "", err
	}

	if m.sessions != nil {
		m.sessions.Ensure(roomID)
	}
	return playerID, nil
}

// JoinVsComputer 加入房间并登记电脑对手
// Both seats are verified up front so a refused computer seat can never leave
// a half-applied join behind.
func (m *Manager) JoinVsComputer(roomID, username, password string) (playerID string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, err := m.activeRoom(roomID)
	if err != nil {
		return "", err
	}
	players, err := m.store.PlayersInRoom(roomID)
	if err != nil {
		return "", err
	}
	for _, p := range players {
		if p.IsComputer {
			return "", ErrComputerExists
		}
	}
	if len(players)+2 > room.MaxPlayers {
		return "", ErrRoomFull
	}

	playerID, err = m.joinLocked(roomID, username, password)
	if err != nil {
		return "", err
	}
	if err := m.addComputerLocked(roomID); err != nil {
		return "", err
	}

	if m.sessions != nil {
		m.sessions.Ensure(roomID)
	}
	return playerID, nil
}

// AddComputerOpponent 给已有房间登记电脑对手，重复登记会被拒绝
func (m *Manager) AddComputerOpponent(roomID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, err := m.activeRoom(roomID); err != nil {
		return err
	}
	return m.addComputerLocked(roomID)
}

// SeatNumber 返回玩家在房间内的座位号（按加入时间的1-based排名，电脑玩家除外）
func (m *Manager) SeatNumber(roomID, playerID string) (int, error) {
	humans, err := m.store.HumanPlayersByJoinOrder(roomID)
	if err != nil {
		return 0, fmt.Errorf("list players: %w", err)
	}
	for i, p := range humans {
		if p.ID == playerID {
			return i + 1, nil
		}
	}
	return 0, ErrPlayerNotFound
}

// HasComputer 房间内是否已有电脑玩家
func (m *Manager) HasComputer(roomID string) (bool, error) {
	players, err := m.store.PlayersInRoom(roomID)
	if err != nil {
		return false, err
	}
	for _, p := range players {
		if p.IsComputer {
			return true, nil
		}
	}
	return false, nil
}

// LookupPlayer 按ID查找玩家
func (m *Manager) LookupPlayer(playerID string) (*models.Player, error) {
	player, err := m.store.GetPlayer(playerID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	return player, err
}

// RoomInfo 房间信息只读投影
func (m *Manager) RoomInfo(roomID string) (*models.RoomInfo, error) {
	room, err := m.activeRoom(roomID)
	if err != nil {
		return nil, err
	}

	players, err := m.store.PlayersInRoom(roomID)
	if err != nil {
		return nil, err
	}

	info := &models.RoomInfo{
		ID:             room.ID,
		Name:           room.Name,
		MaxPlayers:     room.MaxPlayers,
		CurrentPlayers: room.CurrentPlayers,
		Players:        make([]models.PlayerInfo, 0, len(players)),
	}
	for _, p := range players {
		info.Players = append(info.Players, models.PlayerInfo{
			Username:   p.Username,
			IsComputer: p.IsComputer,
		})
	}
	return info, nil
}

// RoomExists 房间是否存在且活跃
func (m *Manager) RoomExists(roomID string) bool {
	_, err := m.activeRoom(roomID)
	return err == nil
}

func (m *Manager) activeRoom(roomID string) (*models.Room, error) {
	room, err := m.store.GetRoom(roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (m *Manager) joinLocked(roomID, username, password string) (string, error) {
	room, err := m.activeRoom(roomID)
	if err != nil {
		return "", err
	}

	if room.Password != "" && room.Password != password {
		return "", ErrWrongPassword
	}
	if room.CurrentPlayers >= room.MaxPlayers {
		return "", ErrRoomFull
	}

	players, err := m.store.PlayersInRoom(roomID)
	if err != nil {
		return "", err
	}
	for _, p := range players {
		if p.Username == username {
			return "", ErrNameTaken
		}
	}

	playerID := uuid.New().String()
	err = m.store.AddPlayer(&models.Player{
		ID:       playerID,
		Username: username,
		RoomID:   roomID,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("register player: %w", err)
	}
	return playerID, nil
}

func (m *Manager) addComputerLocked(roomID string) error {
	players, err := m.store.PlayersInRoom(roomID)
	if err != nil {
		return err
	}
	for _, p := range players {
		if p.IsComputer {
			return ErrComputerExists
		}
	}
	if len(players) >= RoomCapacity {
		return ErrRoomFull
	}

	return m.store.AddPlayer(&models.Player{
		ID:         uuid.New().String(),
		Username:   models.ComputerName,
		RoomID:     roomID,
		IsComputer: true,
		JoinedAt:   time.Now(),
	})
}
