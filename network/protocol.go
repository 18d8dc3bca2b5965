// network/protocol.go
package network

import (
	"github.com/wfunc/connect4/game"
)

// 消息类型
const (
	MsgTypeState    = "state"
	MsgTypeError    = "error"
	MsgTypeMakeMove = "make_move"
	MsgTypeReset    = "reset_game"
)

// StateMessage 推送给订阅者的对局快照
// Seat and DisplayName are set only on the first message after connect so a
// reconnecting client can re-derive its UI state.
type StateMessage struct {
	Type string `json:"type"`
	*game.Snapshot
	Seat        *int   `json:"seat,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ErrorMessage 推送给单个连接的错误
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage 客户端通过推送通道发来的指令
type ClientMessage struct {
	Type   string `json:"type"`
	Column int    `json:"column"`
}

// NewStateMessage wraps a snapshot in the push envelope.
func NewStateMessage(snap *game.Snapshot) *StateMessage {
	return &StateMessage{Type: MsgTypeState, Snapshot: snap}
}

// NewErrorMessage wraps a human-readable message in the error envelope.
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Message: message}
}
