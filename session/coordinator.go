// session/coordinator.go
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/connect4/game"
	"github.com/wfunc/connect4/logger"
)

var (
	// ErrSessionNotFound is returned by Snapshot when no game exists for the room.
	ErrSessionNotFound = errors.New("game not found")
)

// WrongTurnError 在非当前座位提交落子时返回，消息中注明当前轮到谁
type WrongTurnError struct {
	ActiveSeat int
}

func (e *WrongTurnError) Error() string {
	team := "Red Team"
	if e.ActiveSeat == 2 {
		team = "Blue Team"
	}
	return fmt.Sprintf("It's not your turn! Current turn: %s", team)
}

// Registry 座位解析接口，由 room.Manager 实现
// Defined here to break the import cycle between session and room.
type Registry interface {
	SeatNumber(roomID, playerID string) (int, error)
	HasComputer(roomID string) (bool, error)
}

// Notifier 对局快照推送接口，由 broadcast.Hub 实现
type Notifier interface {
	BroadcastState(roomID string, snap *game.Snapshot)
}

// GameSession 一个房间与其棋盘的活动配对
// The mutex serializes all mutation of the board; reset reuses the board in
// place rather than replacing the session.
type GameSession struct {
	RoomID    string
	Board     *game.Board
	CreatedAt time.Time
	mutex     sync.Mutex
}

// Coordinator 对局协调器：对所有传输层暴露唯一的写路径
type Coordinator struct {
	registry Registry
	notifier Notifier
	policy   game.Policy
	sessions map[string]*GameSession
	mutex    sync.RWMutex
}

// NewCoordinator 创建对局协调器
func NewCoordinator(registry Registry, notifier Notifier, policy game.Policy) *Coordinator {
	return &Coordinator{
		registry: registry,
		notifier: notifier,
		policy:   policy,
		sessions: make(map[string]*GameSession),
	}
}

// Ensure 返回房间的对局，不存在则创建
// Safe under concurrent first access from both transports.
func (c *Coordinator) Ensure(roomID string) {
	c.ensure(roomID)
}

func (c *Coordinator) ensure(roomID string) *GameSession {
	c.mutex.RLock()
	sess, exists := c.sessions[roomID]
	c.mutex.RUnlock()
	if exists {
		return sess
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if sess, exists := c.sessions[roomID]; exists {
		return sess
	}
	sess = &GameSession{
		RoomID:    roomID,
		Board:     game.NewBoard(),
		CreatedAt: time.Now(),
	}
	c.sessions[roomID] = sess
	return sess
}

// SubmitMove 提交落子
// Seat resolution happens before the room lock is taken; turn validation, move
// application and the inline computer reply all happen inside one critical
// section so a concurrent submission can never interleave with the reply.
func (c *Coordinator) SubmitMove(roomID, playerID string, column int) (*game.Snapshot, error) {
	seat, err := c.registry.SeatNumber(roomID, playerID)
	if err != nil {
		return nil, err
	}

	// Resolved up front so the critical section below does no store I/O.
	hasComputer, err := c.registry.HasComputer(roomID)
	if err != nil {
		logger.Log.Errorf("Computer lookup failed for room %s: %v", roomID, err)
		hasComputer = false
	}

	sess := c.ensure(roomID)

	sess.mutex.Lock()
	board := sess.Board

	if board.ActiveSeat() != seat {
		active := board.ActiveSeat()
		sess.mutex.Unlock()
		return nil, &WrongTurnError{ActiveSeat: active}
	}

	if err := board.ApplyMove(column); err != nil {
		sess.mutex.Unlock()
		return nil, err
	}

	if !board.Finished() && board.ActiveSeat() == 2 && hasComputer {
		col := c.policy.ChooseMove(board)
		if err := board.ApplyMove(col); err != nil {
			// the policy only picks legal columns, so this cannot happen
			logger.Log.Errorf("Computer move rejected in room %s: %v", roomID, err)
		}
	}

	snap := board.Snapshot()
	sess.mutex.Unlock()

	// Listeners only see the captured snapshot, so delivery runs outside the lock.
	c.notifier.BroadcastState(roomID, snap)
	return snap, nil
}

// Reset 原地清空棋盘并广播新快照
func (c *Coordinator) Reset(roomID string) (*game.Snapshot, error) {
	c.mutex.RLock()
	sess, exists := c.sessions[roomID]
	c.mutex.RUnlock()
	if !exists {
		return nil, ErrSessionNotFound
	}

	sess.mutex.Lock()
	sess.Board.Reset()
	snap := sess.Board.Snapshot()
	sess.mutex.Unlock()

	c.notifier.BroadcastState(roomID, snap)
	return snap, nil
}

// Snapshot 只读快照
func (c *Coordinator) Snapshot(roomID string) (*game.Snapshot, error) {
	c.mutex.RLock()
	sess, exists := c.sessions[roomID]
	c.mutex.RUnlock()
	if !exists {
		return nil, ErrSessionNotFound
	}

	sess.mutex.Lock()
	snap := sess.Board.Snapshot()
	sess.mutex.Unlock()
	return snap, nil
}

// DropAll 丢弃所有对局（配合存储重置使用）
func (c *Coordinator) DropAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessions = make(map[string]*GameSession)
}

// SessionCount 当前活动对局数量（用于监控）
func (c *Coordinator) SessionCount() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.sessions)
}
