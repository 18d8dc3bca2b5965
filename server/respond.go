// server/respond.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/connect4/game"
	"github.com/wfunc/connect4/room"
	"github.com/wfunc/connect4/session"
)

// moveResponse 轮询调用的成功响应：success 加结果快照
type moveResponse struct {
	Success bool `json:"success"`
	*game.Snapshot
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"detail":  detail,
	})
}

// statusForError maps the registry/coordinator error taxonomy onto HTTP
// status classes for poll callers.
func statusForError(err error) int {
	var wrongTurn *session.WrongTurnError
	switch {
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrPlayerNotFound),
		errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrNameTaken),
		errors.Is(err, room.ErrComputerExists),
		errors.Is(err, game.ErrInvalidColumn),
		errors.Is(err, game.ErrGameOver),
		errors.As(err, &wrongTurn):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
