// Package server hosts the realtime game server: websocket transport, room
// registry, and the per-room dispatcher that serializes every game mutation
// through the shared state store.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"manaforge/pkg/bot"
	"manaforge/pkg/debug"
	"manaforge/pkg/logging"
	"manaforge/pkg/metadata"
	"manaforge/pkg/server/store"
)

// Config carries the server's collaborators and switches.
type Config struct {
	Store    store.Store
	Metadata *metadata.Client
	// DevMode enables debug sessions and the relaxed-rules sandbox.
	DevMode    bool
	LogBackend *logging.Backend
}

// Server owns the room registry and routes every inbound frame.
type Server struct {
	log     slog.Logger
	gameLog slog.Logger
	store   store.Store
	meta    *metadata.Client
	devMode bool

	debug *debug.Manager
	bot   *bot.Bot

	mu    sync.RWMutex
	rooms map[string]*Room

	upgrader websocket.Upgrader
}

// New creates a server. Rooms persisted by a previous process are loadable
// lazily on rejoin.
func New(cfg Config) *Server {
	lb := cfg.LogBackend
	s := &Server{
		log:     lb.Logger("SRV"),
		gameLog: lb.Logger("GAME"),
		store:   cfg.Store,
		meta:    cfg.Metadata,
		devMode: cfg.DevMode,
		debug:   debug.NewManager(cfg.DevMode, lb.Logger("DBG")),
		bot:     bot.New(lb.Logger("BOT")),
		rooms:   make(map[string]*Room),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	return s
}

// Routes registers the HTTP surface on a gin router.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/ws", s.handleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// handleWS upgrades the connection and starts the pumps.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	client := newClient(s, conn)
	go client.writePump()
	go client.readPump()
}

// handleFrame routes one inbound frame. Transport errors already filtered;
// anything wrong from here on is answered with a game_error frame.
func (s *Server) handleFrame(c *Client, f Frame) {
	ctx := context.Background()
	switch f.Event {
	case EvCreateRoom:
		s.handleCreateRoom(ctx, c, f.Payload)
	case EvJoinRoom:
		s.handleJoinRoom(ctx, c, f.Payload, false)
	case EvRejoinRoom:
		s.handleJoinRoom(ctx, c, f.Payload, true)
	case EvLeaveRoom:
		s.handleLeaveRoom(ctx, c, f.Payload)
	case EvSendMessage:
		s.handleChat(c, f.Payload)
	case EvStartGame:
		s.handleStartGame(ctx, c, f.Payload)
	case EvStartSoloTest:
		s.handleSoloTest(ctx, c, f.Payload)
	case EvPlayerReady:
		s.handlePlayerReady(ctx, c, f.Payload)
	case EvStrictAction:
		s.handleStrictAction(ctx, c, f.Payload)
	case EvGameAction:
		s.handleSandboxAction(ctx, c, f.Payload)
	case EvDebugToggle, EvDebugContinue, EvDebugCancel, EvDebugUndo, EvDebugRedo, EvDebugClear, EvDebugPauseSet:
		s.handleDebug(ctx, c, f.Event, f.Payload)
	case EvSaveDeck:
		s.handleSaveDeck(ctx, c, f.Payload)
	case EvListDecks:
		s.handleListDecks(ctx, c, f.Payload)
	case EvListSets:
		s.handleListSets(ctx, c)
	default:
		c.sendError("unknown event "+f.Event, "unknown_event", "")
	}
}

// room returns the in-process room, or nil.
func (s *Server) room(id string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

// roomsForHost lists rooms where the player already has a seat.
func (s *Server) roomsForHost(playerID string) []*RoomView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*RoomView
	for _, r := range s.rooms {
		r.mu.Lock()
		if r.player(playerID) != nil && r.status != RoomFinished {
			out = append(out, r.view())
		}
		r.mu.Unlock()
	}
	return out
}

// registerRoom installs a room and persists its snapshot.
func (s *Server) registerRoom(ctx context.Context, r *Room) error {
	s.mu.Lock()
	s.rooms[r.id] = r
	s.mu.Unlock()
	return s.saveRoom(ctx, r)
}

// saveRoom persists the room snapshot to the store.
func (s *Server) saveRoom(ctx context.Context, r *Room) error {
	r.mu.Lock()
	view := r.view()
	r.mu.Unlock()
	return s.store.PutJSON(ctx, store.RoomKey(r.id), view)
}

// closeRoom drops a room everywhere and tells the remaining subscribers.
func (s *Server) closeRoom(ctx context.Context, r *Room, message string) {
	r.broadcast(mustFrame(EvRoomClosed, map[string]string{"message": message}))
	s.mu.Lock()
	delete(s.rooms, r.id)
	s.mu.Unlock()
	s.debug.Drop(r.id)
	if err := s.store.Delete(ctx, store.RoomKey(r.id)); err != nil {
		s.log.Warnf("delete room %s: %v", r.id, err)
	}
	if err := s.store.Delete(ctx, store.GameKey(r.id)); err != nil {
		s.log.Warnf("delete game %s: %v", r.id, err)
	}
}

// clientGone detaches a dropped connection from its room.
func (s *Server) clientGone(c *Client) {
	r := s.room(c.roomID)
	if r == nil {
		return
	}
	r.unsubscribe(c.playerID)
	s.broadcastRoom(context.Background(), r)
}

// broadcastRoom persists and fans out the current room snapshot.
func (s *Server) broadcastRoom(ctx context.Context, r *Room) {
	if err := s.saveRoom(ctx, r); err != nil {
		s.log.Warnf("save room %s: %v", r.id, err)
	}
	r.mu.Lock()
	view := r.view()
	r.mu.Unlock()
	r.broadcast(mustFrame(EvRoomUpdate, map[string]interface{}{"room": view}))
}

// mustFrame builds a frame for payloads the server controls end to end.
func mustFrame(event string, payload interface{}) Frame {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Frame{Event: event, Payload: data}
}
