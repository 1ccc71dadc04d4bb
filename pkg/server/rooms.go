package server

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"manaforge/pkg/game"
	"manaforge/pkg/server/store"
)

func (s *Server) handleCreateRoom(ctx context.Context, c *Client, payload json.RawMessage) {
	var req createRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.HostID == "" {
		c.sendEvent(EvCreateRoom, createRoomAck{Success: false, Message: "invalid create_room payload"})
		return
	}

	// Surface existing seats so the client can offer a rejoin instead of
	// quietly orphaning a running game.
	if existing := s.roomsForHost(req.HostID); len(existing) > 0 && !req.ForceNew {
		c.sendEvent(EvCreateRoom, createRoomAck{
			Success:          false,
			HasExistingRooms: true,
			ExistingRooms:    existing,
			Message:          "player already has active rooms",
		})
		return
	}

	r := newRoom(uuid.NewString(), req.HostID, req.HostName, req.Format, req.SetCode)
	if err := s.registerRoom(ctx, r); err != nil {
		s.log.Errorf("persist new room: %v", err)
		c.sendEvent(EvCreateRoom, createRoomAck{Success: false, Message: "store unavailable"})
		return
	}

	c.playerID = req.HostID
	c.roomID = r.id
	r.subscribe(c)
	s.log.Infof("room %s created by %s", r.id, req.HostID)

	r.mu.Lock()
	view := r.view()
	r.mu.Unlock()
	c.sendEvent(EvCreateRoom, createRoomAck{Success: true, Room: view})
}

func (s *Server) handleJoinRoom(ctx context.Context, c *Client, payload json.RawMessage, rejoin bool) {
	event := EvJoinRoom
	if rejoin {
		event = EvRejoinRoom
	}
	var req joinRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.RoomID == "" || req.PlayerID == "" {
		c.sendEvent(event, joinRoomAck{Success: false, Message: "invalid payload"})
		return
	}

	r := s.room(req.RoomID)
	if r == nil {
		var err error
		r, err = s.loadRoom(ctx, req.RoomID)
		if err != nil {
			c.sendEvent(event, joinRoomAck{Success: false, Message: "room not found"})
			return
		}
	}

	r.mu.Lock()
	seat := r.player(req.PlayerID)
	if seat == nil {
		if rejoin {
			r.mu.Unlock()
			c.sendEvent(event, joinRoomAck{Success: false, Message: "no seat to rejoin"})
			return
		}
		seat = &RoomPlayer{ID: req.PlayerID, Name: req.PlayerName}
		if !r.addPlayer(seat) {
			r.mu.Unlock()
			c.sendEvent(event, joinRoomAck{Success: false, Message: "room is full"})
			return
		}
	}
	r.mu.Unlock()

	c.playerID = req.PlayerID
	c.roomID = r.id
	r.subscribe(c)

	// Reconnect replays the full game snapshot when a match is running.
	var snapshot *game.GameState
	var g game.GameState
	if err := s.store.GetJSON(ctx, store.GameKey(r.id), &g); err == nil {
		snapshot = &g
	}

	s.broadcastRoom(ctx, r)
	r.mu.Lock()
	view := r.view()
	r.mu.Unlock()
	c.sendEvent(event, joinRoomAck{Success: true, Room: view, GameState: snapshot})
}

// loadRoom revives a persisted room snapshot into the registry, typically
// after a server restart.
func (s *Server) loadRoom(ctx context.Context, roomID string) (*Room, error) {
	var view RoomView
	if err := s.store.GetJSON(ctx, store.RoomKey(roomID), &view); err != nil {
		return nil, err
	}
	r := newRoom(view.ID, view.HostID, "", view.Format, view.SetCode)
	r.mu.Lock()
	r.players = view.Players
	for _, p := range r.players {
		p.Connected = false
	}
	r.status = view.Status
	r.createdAt = view.CreatedAt
	switch view.Status {
	case RoomDeckBuilding:
		r.machine.Set(stateDeckBuilding)
	case RoomPlaying:
		r.machine.Set(statePlaying)
	case RoomFinished:
		r.machine.Set(stateFinished)
	}
	r.mu.Unlock()

	s.mu.Lock()
	s.rooms[r.id] = r
	s.mu.Unlock()
	return r, nil
}

func (s *Server) handleLeaveRoom(ctx context.Context, c *Client, payload json.RawMessage) {
	var req leaveRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("invalid leave_room payload", "decode", "")
		return
	}
	r := s.room(req.RoomID)
	if r == nil {
		return
	}

	r.unsubscribe(req.PlayerID)
	r.mu.Lock()
	r.removePlayer(req.PlayerID)
	isHost := req.PlayerID == r.hostID
	empty := len(r.players) == 0
	r.mu.Unlock()

	if isHost || empty {
		s.closeRoom(ctx, r, "host left the room")
		return
	}
	s.broadcastRoom(ctx, r)
}

func (s *Server) handleChat(c *Client, payload json.RawMessage) {
	var req chatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("invalid send_message payload", "decode", "")
		return
	}
	r := s.room(req.RoomID)
	if r == nil {
		return
	}
	r.broadcast(mustFrame(EvChatMessage, chatEvent{RoomID: req.RoomID, Sender: req.Sender, Text: req.Text}))
}

func (s *Server) handlePlayerReady(ctx context.Context, c *Client, payload json.RawMessage) {
	var req playerReadyRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Deck == nil {
		c.sendError("invalid player_ready payload", "decode", "")
		return
	}
	roomID := req.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	r := s.room(roomID)
	if r == nil {
		c.sendError("room not found", "room_not_found", "")
		return
	}
	playerID := req.PlayerID
	if playerID == "" {
		playerID = c.playerID
	}

	r.mu.Lock()
	seat := r.player(playerID)
	if seat == nil {
		r.mu.Unlock()
		c.sendError("no seat in room", "room_not_found", "")
		return
	}
	seat.deck = req.Deck
	seat.Ready = true
	r.advance()
	ready := r.status == RoomPlaying
	decks := map[string]*game.Deck{}
	for _, p := range r.players {
		decks[p.ID] = p.deck
	}
	r.mu.Unlock()

	s.broadcastRoom(ctx, r)
	if ready {
		s.startMatch(ctx, r, decks)
	}
}

func (s *Server) handleStartGame(ctx context.Context, c *Client, payload json.RawMessage) {
	var req startGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("invalid start_game payload", "decode", "")
		return
	}
	r := s.room(req.RoomID)
	if r == nil {
		c.sendError("room not found", "room_not_found", "")
		return
	}
	r.mu.Lock()
	host := r.hostID
	r.mu.Unlock()
	if c.playerID != host {
		c.sendError("only the host starts the game", "not_host", "")
		return
	}
	s.startMatch(ctx, r, req.Decks)
}

func (s *Server) handleSoloTest(ctx context.Context, c *Client, payload json.RawMessage) {
	var req soloTestRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Deck == nil {
		c.sendError("invalid start_solo_test payload", "decode", "")
		return
	}

	r := newRoom(uuid.NewString(), req.PlayerID, req.PlayerName, "solo_test", "")
	botID := "bot_" + uuid.NewString()[:8]
	r.mu.Lock()
	r.addPlayer(&RoomPlayer{ID: botID, Name: "Goldfish", IsBot: true, Ready: true})
	r.mu.Unlock()
	if err := s.registerRoom(ctx, r); err != nil {
		c.sendError("store unavailable", "store", "")
		return
	}

	c.playerID = req.PlayerID
	c.roomID = r.id
	r.subscribe(c)

	// The bot plays the same deck; good enough for goldfishing.
	s.startMatch(ctx, r, map[string]*game.Deck{
		req.PlayerID: req.Deck,
		botID:        req.Deck,
	})
}

// startMatch builds the initial game state, persists it, and kicks off the
// mulligan step.
func (s *Server) startMatch(ctx context.Context, r *Room, decks map[string]*game.Deck) {
	r.mu.Lock()
	players := append([]*RoomPlayer(nil), r.players...)
	roomID := r.id
	r.machine.Set(statePlaying)
	r.status = RoomPlaying
	r.mu.Unlock()

	g := game.NewGameState(roomID, 0)
	for _, p := range players {
		deck := decks[p.ID]
		if deck == nil && !p.IsBot {
			r.broadcast(mustFrame(EvGameError, gameErrorEvent{
				Message: "player " + p.Name + " has no deck",
			}))
			return
		}
		g.Players[p.ID] = game.NewPlayer(p.ID, p.Name, p.IsBot)
		g.TurnOrder = append(g.TurnOrder, p.ID)
		if deck != nil {
			g.LoadDeck(p.ID, deck)
		}
	}
	if s.devMode {
		g.DebugSession = &game.DebugSessionInfo{Enabled: true}
	}

	eng := game.NewRulesEngine(g, s.gameLog)
	if err := eng.StartGame(); err != nil {
		r.broadcast(mustFrame(EvGameError, gameErrorEvent{Message: err.Error()}))
		return
	}
	if err := s.store.PutJSON(ctx, store.GameKey(roomID), g); err != nil {
		s.log.Errorf("persist initial game %s: %v", roomID, err)
		r.broadcast(mustFrame(EvGameError, gameErrorEvent{Message: "store unavailable"}))
		return
	}

	s.broadcastRoom(ctx, r)
	r.broadcast(mustFrame(EvMatchStart, map[string]string{"roomId": roomID}))
	s.broadcastGame(r, g)
	s.log.Infof("match started in room %s with %d players", roomID, len(players))

	// Bots decide their mulligans immediately.
	s.runBotsLocked(ctx, r)
}

func (s *Server) handleSaveDeck(ctx context.Context, c *Client, payload json.RawMessage) {
	var req saveDeckRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Deck == nil || req.PlayerID == "" {
		c.sendError("invalid save_deck payload", "decode", "")
		return
	}
	key := store.DecksKey(req.PlayerID)
	var decks []*game.Deck
	if err := s.store.GetJSON(ctx, key, &decks); err != nil && err != store.ErrNotFound {
		c.sendError("store unavailable", "store", "")
		return
	}
	replaced := false
	for i, d := range decks {
		if d.Name == req.Deck.Name {
			decks[i] = req.Deck
			replaced = true
		}
	}
	if !replaced {
		decks = append(decks, req.Deck)
	}
	if err := s.store.PutJSON(ctx, key, decks); err != nil {
		c.sendError("store unavailable", "store", "")
		return
	}
	c.sendEvent(EvSaveDeck, map[string]interface{}{"success": true, "count": len(decks)})
}

func (s *Server) handleListDecks(ctx context.Context, c *Client, payload json.RawMessage) {
	var req listDecksRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.PlayerID == "" {
		c.sendError("invalid list_decks payload", "decode", "")
		return
	}
	var decks []*game.Deck
	if err := s.store.GetJSON(ctx, store.DecksKey(req.PlayerID), &decks); err != nil && err != store.ErrNotFound {
		c.sendError("store unavailable", "store", "")
		return
	}
	c.sendEvent(EvListDecks, map[string]interface{}{"decks": decks})
}

func (s *Server) handleListSets(ctx context.Context, c *Client) {
	sets, err := s.meta.Sets(ctx)
	if err != nil {
		c.sendError("card database unavailable", "metadata", "")
		return
	}
	c.sendEvent(EvListSets, map[string]interface{}{"sets": sets})
}
