// server/server.go
package server

import (
	"net/http"
	"net/rpc"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wfunc/connect4/broadcast"
	"github.com/wfunc/connect4/game"
	"github.com/wfunc/connect4/logger"
	"github.com/wfunc/connect4/monitor"
	"github.com/wfunc/connect4/network"
	"github.com/wfunc/connect4/persistence"
	"github.com/wfunc/connect4/room"
	connect4rpc "github.com/wfunc/connect4/rpc"
	"github.com/wfunc/connect4/session"
)

// GameServer 把注册表、协调器和广播器接到HTTP/WebSocket传输层
type GameServer struct {
	addr        string
	upgrader    websocket.Upgrader
	router      *mux.Router
	store       persistence.Store
	registry    *room.Manager
	coordinator *session.Coordinator
	hub         *broadcast.Hub
	monitor     *monitor.Monitor
	rpcServer   *connect4rpc.Server
}

// NewGameServer 组装服务器
func NewGameServer(addr, rpcAddr string, store persistence.Store, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:    addr,
		store:   store,
		monitor: mon,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.hub = broadcast.NewHub()
	s.registry = room.NewManager(store)
	s.coordinator = session.NewCoordinator(s.registry, s.hub, game.NewRandomPolicy(nil))
	s.registry.SetSessionCreator(s.coordinator)

	// 初始化RPC服务器
	rpcServer, err := connect4rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := connect4rpc.NewAdminService(s.registry, s.coordinator, s.hub)
	rpc.Register(adminService)

	s.router = s.routes()
	return s
}

// Coordinator exposes the session coordinator, mainly for maintenance tasks.
func (s *GameServer) Coordinator() *session.Coordinator {
	return s.coordinator
}

// Hub exposes the fan-out hub, mainly for maintenance tasks.
func (s *GameServer) Hub() *broadcast.Hub {
	return s.hub
}

func (s *GameServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/create-room", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/join-room", s.handleJoinRoom).Methods(http.MethodPost)
	r.HandleFunc("/join-vs-computer", s.handleJoinVsComputer).Methods(http.MethodPost)
	r.HandleFunc("/add-computer-opponent", s.handleAddComputerOpponent).Methods(http.MethodPost)
	r.HandleFunc("/make-move", s.handleMakeMove).Methods(http.MethodPost)
	r.HandleFunc("/reset-game", s.handleResetGame).Methods(http.MethodPost)
	r.HandleFunc("/reset-db", s.handleResetDB).Methods(http.MethodPost)
	r.HandleFunc("/room-info/{room_id}", s.handleRoomInfo).Methods(http.MethodGet)
	r.HandleFunc("/game-state/{room_id}", s.handleGameState).Methods(http.MethodGet)
	r.HandleFunc("/ws/{room_id}/{player_id}", s.handleWebSocket)
	return r
}

// Start 启动HTTP和RPC服务
func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.router)
}

// Shutdown 停止RPC监听
func (s *GameServer) Shutdown() {
	s.rpcServer.Stop()
}

// --- 轮询接口 ---

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	username := r.FormValue("username")
	password := r.FormValue("password")
	if name == "" || username == "" {
		writeError(w, http.StatusBadRequest, "name and username are required")
		return
	}

	roomID, playerID, err := s.registry.CreateRoom(name, password, username)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	logger.Log.Infof("Player %s created room %s", playerID, roomID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"room_id":   roomID,
		"name":      name,
		"password":  password,
		"player_id": playerID,
	})
}

func (s *GameServer) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	s.join(w, r, s.registry.JoinRoom)
}

func (s *GameServer) handleJoinVsComputer(w http.ResponseWriter, r *http.Request) {
	s.join(w, r, s.registry.JoinVsComputer)
}

func (s *GameServer) join(w http.ResponseWriter, r *http.Request, joinFn func(roomID, username, password string) (string, error)) {
	roomID := r.FormValue("room_id")
	username := r.FormValue("username")
	password := r.FormValue("password")
	if roomID == "" || username == "" {
		writeError(w, http.StatusBadRequest, "room_id and username are required")
		return
	}

	playerID, err := joinFn(roomID, username, password)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	logger.Log.Infof("Player %s joined room %s", playerID, roomID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"player_id": playerID,
		"room_id":   roomID,
	})
}

func (s *GameServer) handleAddComputerOpponent(w http.ResponseWriter, r *http.Request) {
	roomID := r.FormValue("room_id")
	if err := s.registry.AddComputerOpponent(roomID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *GameServer) handleMakeMove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	roomID := r.FormValue("room_id")
	playerID := r.FormValue("player_id")
	column, err := strconv.Atoi(r.FormValue("column"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "column must be an integer")
		return
	}

	snap, err := s.coordinator.SubmitMove(roomID, playerID, column)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	s.monitor.IncMoves()
	s.monitor.ObserveMoveLatency(time.Since(start))
	writeJSON(w, http.StatusOK, &moveResponse{Success: true, Snapshot: snap})
}

func (s *GameServer) handleResetGame(w http.ResponseWriter, r *http.Request) {
	roomID := r.FormValue("room_id")
	snap, err := s.coordinator.Reset(roomID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &moveResponse{Success: true, Snapshot: snap})
}

func (s *GameServer) handleResetDB(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ResetAll(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.coordinator.DropAll()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Database reset successfully",
	})
}

func (s *GameServer) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]
	info, err := s.registry.RoomInfo(roomID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleGameState serves poll callers. A room that exists but has no session
// yet reads as a freshly started game rather than an error.
func (s *GameServer) handleGameState(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]

	snap, err := s.coordinator.Snapshot(roomID)
	if err != nil {
		if !s.registry.RoomExists(roomID) {
			writeError(w, http.StatusNotFound, "Game not found")
			return
		}
		s.coordinator.Ensure(roomID)
		if snap, err = s.coordinator.Snapshot(roomID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

// --- 推送接口 ---

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["room_id"]
	playerID := vars["player_id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	s.servePush(wsConn, roomID, playerID)
}

func (s *GameServer) servePush(conn network.Connection, roomID, playerID string) {
	defer conn.Close()

	player, err := s.registry.LookupPlayer(playerID)
	if err != nil || player.RoomID != roomID {
		conn.SendJSON(network.NewErrorMessage("Player not found"))
		return
	}

	s.coordinator.Ensure(roomID)
	snap, err := s.coordinator.Snapshot(roomID)
	if err != nil {
		conn.SendJSON(network.NewErrorMessage(err.Error()))
		return
	}

	welcome := network.NewStateMessage(snap)
	welcome.DisplayName = player.Username
	if seat, err := s.registry.SeatNumber(roomID, playerID); err == nil {
		welcome.Seat = &seat
	}

	if err := s.hub.Subscribe(roomID, conn, welcome); err != nil {
		logger.Log.Infof("Subscriber of room %s lost before welcome: %v", roomID, err)
		return
	}
	s.monitor.IncPushSubscribers()
	logger.Log.Infof("Player %s subscribed to room %s", playerID, roomID)

	defer func() {
		s.hub.Unsubscribe(roomID, conn)
		s.monitor.DecPushSubscribers()
		logger.Log.Infof("Player %s unsubscribed from room %s", playerID, roomID)
	}()

	for {
		var msg network.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		s.handleClientMessage(conn, roomID, playerID, &msg)
	}
}

func (s *GameServer) handleClientMessage(conn network.Connection, roomID, playerID string, msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeMakeMove:
		start := time.Now()
		if _, err := s.coordinator.SubmitMove(roomID, playerID, msg.Column); err != nil {
			// Rejections go back to the sender only; the board is unchanged,
			// so the other subscribers have nothing to learn.
			conn.SendJSON(network.NewErrorMessage(err.Error()))
			return
		}
		s.monitor.IncMoves()
		s.monitor.ObserveMoveLatency(time.Since(start))
	case network.MsgTypeReset:
		if _, err := s.coordinator.Reset(roomID); err != nil {
			conn.SendJSON(network.NewErrorMessage(err.Error()))
		}
	default:
		logger.Log.Infof("Unknown message type %q from player %s", msg.Type, playerID)
	}
}
