package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/quizroom/game"
	"github.com/wfunc/quizroom/logger"
	"github.com/wfunc/quizroom/models"
	"github.com/wfunc/quizroom/services"
)

// Server manages the RPC listener for the admin surface.
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

// RoomService exposes read-only room and player queries over net/rpc.
type RoomService struct {
	registry *game.Registry
	scores   *services.ScoreService
}

func NewRoomService(registry *game.Registry, scores *services.ScoreService) *RoomService {
	return &RoomService{registry: registry, scores: scores}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	RoomIDs []string
}

func (rs *RoomService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.RoomIDs = rs.registry.RoomIDs()
	return nil
}

type RoomInfoArgs struct {
	RoomID string
}

type RoomInfoReply struct {
	Phase    string
	Question string
	Roster   []game.RosterEntry
}

func (rs *RoomService) RoomInfo(args *RoomInfoArgs, reply *RoomInfoReply) error {
	room, exists := rs.registry.Room(args.RoomID)
	if !exists {
		return game.ErrRoomNotFound
	}
	reply.Phase = room.Phase().String()
	reply.Question = room.Question()
	reply.Roster = room.Roster()
	return nil
}

type PlayerStatsArgs struct {
	Name string
}

type PlayerStatsReply struct {
	Stats *models.PlayerStats
}

func (rs *RoomService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	if rs.scores == nil {
		return errors.New("persistence disabled")
	}
	stats, err := rs.scores.Stats(args.Name)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
