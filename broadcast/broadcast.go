// broadcast/broadcast.go
package broadcast

import (
	"sync"

	"github.com/wfunc/connect4/game"
	"github.com/wfunc/connect4/logger"
	"github.com/wfunc/connect4/network"
)

// Listener 推送订阅者
type Listener interface {
	SendJSON(v interface{}) error
}

// Hub 按房间维护订阅者集合并向它们分发对局快照
// One dead listener never blocks delivery to the others: a failed write logs,
// drops the listener and moves on.
type Hub struct {
	subscribers map[string]map[Listener]struct{}
	mutex       sync.RWMutex
}

// NewHub 创建广播器
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[Listener]struct{}),
	}
}

// Subscribe 注册订阅者
// The welcome message (current snapshot plus the subscriber's seat and display
// name) is delivered before registration; a failed welcome aborts the
// subscription.
func (h *Hub) Subscribe(roomID string, l Listener, welcome *network.StateMessage) error {
	if welcome != nil {
		if err := l.SendJSON(welcome); err != nil {
			return err
		}
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.subscribers[roomID] == nil {
		h.subscribers[roomID] = make(map[Listener]struct{})
	}
	h.subscribers[roomID][l] = struct{}{}
	return nil
}

// Unsubscribe 移除订阅者，集合变空时回收集合本身
func (h *Hub) Unsubscribe(roomID string, l Listener) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	set, exists := h.subscribers[roomID]
	if !exists {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(h.subscribers, roomID)
	}
}

// BroadcastState 向房间所有订阅者推送快照
func (h *Hub) BroadcastState(roomID string, snap *game.Snapshot) {
	h.broadcast(roomID, network.NewStateMessage(snap))
}

func (h *Hub) broadcast(roomID string, message interface{}) {
	h.mutex.RLock()
	set := h.subscribers[roomID]
	listeners := make([]Listener, 0, len(set))
	for l := range set {
		listeners = append(listeners, l)
	}
	h.mutex.RUnlock()

	var dead []Listener
	for _, l := range listeners {
		if err := l.SendJSON(message); err != nil {
			logger.Log.Infof("Dropping subscriber of room %s after failed write: %v", roomID, err)
			dead = append(dead, l)
		}
	}
	for _, l := range dead {
		h.Unsubscribe(roomID, l)
	}
}

// SubscriberCount 当前订阅者总数（用于监控）
func (h *Hub) SubscriberCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, set := range h.subscribers {
		n += len(set)
	}
	return n
}
