// rpc/rpc.go
package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/connect4/logger"
	"github.com/wfunc/connect4/models"
	"github.com/wfunc/connect4/room"
	"github.com/wfunc/connect4/session"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// SubscriberCounter 推送订阅者计数接口，由 broadcast.Hub 实现
type SubscriberCounter interface {
	SubscriberCount() int
}

// AdminService exposes operational inspection over net/rpc.
type AdminService struct {
	registry    *room.Manager
	coordinator *session.Coordinator
	hub         SubscriberCounter
}

// NewAdminService creates a new AdminService.
func NewAdminService(registry *room.Manager, coordinator *session.Coordinator, hub SubscriberCounter) *AdminService {
	return &AdminService{
		registry:    registry,
		coordinator: coordinator,
		hub:         hub,
	}
}

type RoomInfoArgs struct {
	RoomID string
}

type RoomInfoReply struct {
	Info *models.RoomInfo
}

// RoomInfo is an RPC method returning a room's display projection.
// It follows the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
func (a *AdminService) RoomInfo(args *RoomInfoArgs, reply *RoomInfoReply) error {
	info, err := a.registry.RoomInfo(args.RoomID)
	if err != nil {
		return err
	}
	reply.Info = info
	return nil
}

type StatsArgs struct{}

type StatsReply struct {
	ActiveSessions  int
	PushSubscribers int
}

// Stats is an RPC method returning live counters.
func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.ActiveSessions = a.coordinator.SessionCount()
	reply.PushSubscribers = a.hub.SubscriberCount()
	return nil
}
