// server/server.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/quizroom/broadcast"
	"github.com/wfunc/quizroom/config"
	"github.com/wfunc/quizroom/game"
	"github.com/wfunc/quizroom/logger"
	"github.com/wfunc/quizroom/models"
	"github.com/wfunc/quizroom/monitor"
	"github.com/wfunc/quizroom/network"
	"github.com/wfunc/quizroom/persistence"
	quizroom_rpc "github.com/wfunc/quizroom/rpc"
	"github.com/wfunc/quizroom/services"
	"github.com/wfunc/quizroom/session"
	"github.com/wfunc/quizroom/timer"
)

var errInvalidRequest = errors.New("invalid request")

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	registry       *game.Registry
	sessionManager *session.Manager
	timers         *timer.Manager
	store          persistence.Store
	scoreService   *services.ScoreService
	monitor        *monitor.Monitor
	rpcServer      *quizroom_rpc.Server
	heartbeat      time.Duration
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, store persistence.Store) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: session.NewManager(),
		timers:         timer.NewManager(),
		store:          store,
		monitor:        monitor.NewMonitor("quizroom"),
		heartbeat:      cfg.Server.HeartbeatInterval,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 事件链: 房间 -> 指标 -> 存档 -> 广播
	var gateway game.Gateway = broadcast.NewRoomBroadcaster(s.sessionManager)
	if store != nil {
		s.scoreService = services.NewScoreService(store)
		gateway = services.NewRecorder(gateway, s.scoreService)
	}
	gateway = newMetricsGateway(gateway, s.monitor)

	settings := game.Settings{
		RoundDuration: cfg.Game.RoundDuration,
		AttemptBudget: cfg.Game.AttemptBudget,
		MinPlayers:    cfg.Game.MinPlayers,
		PointsPerWin:  cfg.Game.PointsPerWin,
	}
	s.registry = game.NewRegistry(gateway, s.timers, settings)

	rpcServer, err := quizroom_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(quizroom_rpc.NewRoomService(s.registry, s.scoreService))

	s.monitor.StartServer(cfg.Server.MetricsAddress)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	// 游戏端口用独立的 mux,避免与指标端口共享 DefaultServeMux。
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.leaveCurrentRoom(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeSetQuestion:
		s.handleSetQuestion(sess, packet)
	case network.MsgTypeStartRound:
		s.handleStartRound(sess, packet)
	case network.MsgTypeSubmitGuess:
		s.handleSubmitGuess(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.Name == "" {
		s.sendError(sess, network.MsgTypeCreateRoom, errInvalidRequest)
		return
	}

	roomID, err := s.registry.CreateRoom(sess.GetID(), req.Name)
	if err != nil {
		s.sendError(sess, network.MsgTypeCreateRoom, err)
		return
	}

	sess.SetName(req.Name)
	sess.SetRoom(roomID)
	s.monitor.SetActiveRooms(s.registry.Count())
	s.catchUp(sess, roomID)
	s.saveSnapshot(roomID)

	logger.Log.Infof("Session %s created room %s", sess.GetID(), roomID)
	s.sendJSON(sess, network.MsgTypeCreateRoom, map[string]string{"room_id": roomID})
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID string `json:"room_id"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if err := s.registry.Join(req.RoomID, sess.GetID(), req.Name); err != nil {
		s.sendError(sess, network.MsgTypeJoinRoom, err)
		return
	}

	sess.SetName(req.Name)
	sess.SetRoom(req.RoomID)
	s.catchUp(sess, req.RoomID)
	s.saveSnapshot(req.RoomID)

	logger.Log.Infof("Session %s joined room %s", sess.GetID(), req.RoomID)
	s.sendJSON(sess, network.MsgTypeJoinRoom, map[string]bool{"success": true})
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	s.leaveCurrentRoom(sess)
	s.sendJSON(sess, network.MsgTypeLeaveRoom, map[string]bool{"success": true})
}

func (s *GameServer) handleSetQuestion(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID   string `json:"room_id"`
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if err := s.registry.SetQuestion(req.RoomID, sess.GetID(), req.Question, req.Answer); err != nil {
		s.sendError(sess, network.MsgTypeSetQuestion, err)
		return
	}
	s.saveSnapshot(req.RoomID)
	s.sendJSON(sess, network.MsgTypeSetQuestion, map[string]bool{"success": true})
}

func (s *GameServer) handleStartRound(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if err := s.registry.Start(req.RoomID, sess.GetID()); err != nil {
		s.sendError(sess, network.MsgTypeStartRound, err)
		return
	}
	s.saveSnapshot(req.RoomID)
	s.sendJSON(sess, network.MsgTypeStartRound, map[string]bool{"success": true})
}

func (s *GameServer) handleSubmitGuess(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoomID string `json:"room_id"`
		Guess  string `json:"guess"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	s.monitor.IncGuesses()
	result, err := s.registry.Guess(req.RoomID, sess.GetID(), req.Guess)
	if err != nil {
		s.sendError(sess, network.MsgTypeSubmitGuess, err)
		return
	}
	s.saveSnapshot(req.RoomID)
	s.sendJSON(sess, network.MsgTypeGuessResult, result)
}

// leaveCurrentRoom applies the departure for the session's room, if any.
// Safe to call for sessions that never joined one.
func (s *GameServer) leaveCurrentRoom(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		return
	}

	s.registry.Leave(roomID, sess.GetID())
	sess.SetRoom("")
	s.monitor.SetActiveRooms(s.registry.Count())

	if _, exists := s.registry.Room(roomID); exists {
		s.saveSnapshot(roomID)
	} else if s.store != nil {
		if err := s.store.DeleteRoomSnapshot(roomID); err != nil {
			logger.Log.Errorf("Failed to delete snapshot of room %s: %v", roomID, err)
		}
	}
}

// catchUp sends the current roster and chat log to a freshly bound session;
// the events emitted while it was joining did not reach it yet.
func (s *GameServer) catchUp(sess *session.Session, roomID string) {
	room, exists := s.registry.Room(roomID)
	if !exists {
		return
	}
	s.sendJSON(sess, network.MsgTypeRosterChanged, room.Roster())
	s.sendJSON(sess, network.MsgTypeChatChanged, room.ChatLog())
}

func (s *GameServer) saveSnapshot(roomID string) {
	if s.store == nil {
		return
	}
	room, exists := s.registry.Room(roomID)
	if !exists {
		return
	}

	roster := room.Roster()
	participants := make([]models.RosterRow, 0, len(roster))
	for _, p := range roster {
		participants = append(participants, models.RosterRow{
			ID:       p.ID,
			Name:     p.Name,
			Score:    p.Score,
			IsMaster: p.IsMaster,
		})
	}
	snap := &models.RoomSnapshot{
		RoomID:       roomID,
		Phase:        room.Phase().String(),
		Question:     room.Question(),
		Participants: participants,
		UpdatedAt:    time.Now(),
	}

	go func() {
		if err := s.store.SaveRoomSnapshot(snap); err != nil {
			logger.Log.Errorf("Failed to save snapshot of room %s: %v", roomID, err)
		}
	}()
}

func (s *GameServer) sendJSON(sess *session.Session, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Failed to marshal reply %d: %v", msgID, err)
		return
	}
	sess.Send(msgID, data)
}

func (s *GameServer) sendError(sess *session.Session, cmd uint16, err error) {
	s.sendJSON(sess, network.MsgTypeError, map[string]interface{}{
		"command": cmd,
		"code":    game.Code(err),
		"error":   err.Error(),
	})
}
