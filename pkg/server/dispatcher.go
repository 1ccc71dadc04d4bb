package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"manaforge/pkg/bot"
	"manaforge/pkg/debug"
	"manaforge/pkg/game"
	"manaforge/pkg/server/store"
)

// lockRetryInterval and lockRetryBudget bound how long an action waits for
// the room lock before being dropped for the client to retry.
const (
	lockRetryInterval = 50 * time.Millisecond
	lockRetryBudget   = 2 * time.Second
)

// snapshotSet lists the action types eligible for debug snapshots and
// breakpoints.
var snapshotSet = map[string]bool{
	ActPlayLand: true, ActCastSpell: true, ActActivateAbility: true,
	ActDeclareAttackers: true, ActDeclareBlockers: true,
	ActResolveTopStack: true, ActMulliganDecision: true,
	ActRespondToChoice: true, ActAddMana: true, ActChangeLife: true,
	ActDrawCard: true, ActShuffleLibrary: true, ActCreateToken: true,
	ActAddCounter: true, ActRemoveCounter: true, ActTapCard: true,
	ActMoveCard: true, ActDeleteCard: true, ActRestartGame: true,
	ActToggleStop: true, ActPassPriority: true,
}

// strictActionRequest is the inbound envelope for both action events.
type strictActionRequest struct {
	RoomID string `json:"roomId,omitempty"`
	Action Action `json:"action"`
}

// withGame runs fn inside the room's store-backed critical section: lock,
// load, mutate, save on success, release. Broadcasts emitted by fn happen
// before the lock is released, preserving commit order for subscribers.
func (s *Server) withGame(ctx context.Context, roomID string, fn func(g *game.GameState) error) error {
	lockKey := store.GameLockKey(roomID)
	var token string
	deadline := time.Now().Add(lockRetryBudget)
	for {
		var ok bool
		var err error
		token, ok, err = s.store.AcquireLock(ctx, lockKey)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return game.NewRuleError(game.ErrLockUnavailable, "room %s is busy", roomID)
		}
		time.Sleep(lockRetryInterval)
	}
	defer func() {
		if err := s.store.ReleaseLock(ctx, lockKey, token); err != nil {
			s.log.Warnf("release lock %s: %v", lockKey, err)
		}
	}()

	var g game.GameState
	if err := s.store.GetJSON(ctx, store.GameKey(roomID), &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return game.NewRuleError(game.ErrCardNotFound, "no game in room %s", roomID)
		}
		return err
	}

	if err := fn(&g); err != nil {
		return err
	}
	return s.store.PutJSON(ctx, store.GameKey(roomID), &g)
}

func (s *Server) handleStrictAction(ctx context.Context, c *Client, payload json.RawMessage) {
	var req strictActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("invalid action payload", string(game.ErrUnknownAction), "")
		return
	}
	roomID := req.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	if req.Action.PlayerID == "" {
		req.Action.PlayerID = c.playerID
	}
	if _, err := canonicalType(req.Action.Type); err != nil {
		s.replyRuleError(c, err)
		return
	}
	if !strictTypes[req.Action.Type] {
		c.sendError("action "+req.Action.Type+" is not a rules action",
			string(game.ErrUnknownAction), "")
		return
	}
	s.dispatch(ctx, c, roomID, &req.Action, false)
}

// handleSandboxAction runs relaxed-rules ops; dev mode only.
func (s *Server) handleSandboxAction(ctx context.Context, c *Client, payload json.RawMessage) {
	if !s.devMode {
		c.sendError("sandbox actions are disabled", string(game.ErrUnknownAction), "")
		return
	}
	var req strictActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("invalid action payload", string(game.ErrUnknownAction), "")
		return
	}
	roomID := req.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	if req.Action.PlayerID == "" {
		req.Action.PlayerID = c.playerID
	}
	if _, err := canonicalType(req.Action.Type); err != nil {
		s.replyRuleError(c, err)
		return
	}
	if !sandboxTypes[req.Action.Type] && !strictTypes[req.Action.Type] {
		c.sendError("unknown sandbox action "+req.Action.Type,
			string(game.ErrUnknownAction), "")
		return
	}
	s.dispatch(ctx, c, roomID, &req.Action, false)
}

// dispatch is the per-room critical section around one action. skipPause
// bypasses the debug breakpoint, used when a paused action is continued.
func (s *Server) dispatch(ctx context.Context, c *Client, roomID string, act *Action, skipPause bool) {
	r := s.room(roomID)
	if r == nil {
		if c != nil {
			c.sendError("room not found", "room_not_found", "")
		}
		return
	}

	err := s.withGame(ctx, roomID, func(g *game.GameState) error {
		sess := s.debug.Session(roomID)
		debugOn := sess != nil && sess.IsEnabled() && snapshotSet[act.Type]

		if debugOn && !skipPause && sess.ShouldPause(act.Type) {
			snap := sess.Begin(g, act.Type, act.PlayerID, act)
			if snap != nil {
				r.broadcast(mustFrame(EvDebugPause, pauseEvent{
					RoomID:      roomID,
					SnapshotID:  snap.ID,
					ActionType:  snap.ActionType,
					PlayerID:    snap.PlayerID,
					Description: snap.Description,
				}))
				s.emitDebugState(r, sess)
				// Nothing executed; keep the stored state as is.
				return errPaused
			}
		}

		if debugOn {
			sess.Begin(g, act.Type, act.PlayerID, act)
		}
		eng := game.NewRulesEngine(g, s.gameLog)
		if err := applyAction(eng, act); err != nil {
			if debugOn {
				sess.Abort()
			}
			return err
		}
		if debugOn {
			sess.Commit(g)
			s.emitDebugState(r, sess)
		}

		s.runBots(r, g, sess)
		s.broadcastGame(r, g)
		s.afterCommit(ctx, r, g)
		return nil
	})

	switch {
	case err == nil, errors.Is(err, errPaused):
	default:
		s.replyRuleError(c, err)
	}
}

// errPaused aborts the save path without surfacing an error to the client.
var errPaused = errors.New("action captured by debug pause")

// runBots keeps bot seats moving while one of them holds the decision,
// inside the same critical section as the triggering action.
func (s *Server) runBots(r *Room, g *game.GameState, sess *debug.Session) {
	for i := 0; i < bot.MaxIterations; i++ {
		if g.GameOver {
			return
		}
		if sess != nil && sess.Paused() {
			return
		}
		pid := s.botToMove(g)
		if pid == "" {
			return
		}
		if _, err := s.bot.Act(game.NewRulesEngine(g, s.gameLog), pid); err != nil {
			s.log.Warnf("bot %s in room %s: %v", pid, r.id, err)
			return
		}
	}
	s.log.Warnf("bot loop in room %s hit the iteration cap", r.id)
}

// botToMove returns the bot that currently owes a decision, if any.
func (s *Server) botToMove(g *game.GameState) string {
	if pc := g.PendingChoice; pc != nil {
		if p := g.Player(pc.ChoosingID); p != nil && p.IsBot {
			return p.ID
		}
		return ""
	}
	if g.Step == game.StepMulligan {
		for _, pid := range g.TurnOrder {
			if p := g.Players[pid]; p.IsBot && !p.HandKept {
				return pid
			}
		}
		return ""
	}
	if p := g.Player(g.PriorityPlayerID); p != nil && p.IsBot {
		return p.ID
	}
	return ""
}

// runBotsLocked is the standalone variant used right after match start.
func (s *Server) runBotsLocked(ctx context.Context, r *Room) {
	err := s.withGame(ctx, r.id, func(g *game.GameState) error {
		s.runBots(r, g, s.debug.Session(r.id))
		s.broadcastGame(r, g)
		s.afterCommit(ctx, r, g)
		return nil
	})
	if err != nil {
		s.log.Warnf("bot turn in room %s: %v", r.id, err)
	}
}

// broadcastGame fans out the committed state and its drained logs.
func (s *Server) broadcastGame(r *Room, g *game.GameState) {
	if logs := g.DrainLogs(); len(logs) > 0 {
		r.broadcast(mustFrame(EvGameLog, gameLogEvent{RoomID: r.id, Logs: logs}))
	}
	r.broadcast(mustFrame(EvGameUpdate, gameUpdateEvent{RoomID: r.id, Game: g}))
}

// afterCommit reacts to game-over transitions.
func (s *Server) afterCommit(ctx context.Context, r *Room, g *game.GameState) {
	if !g.GameOver {
		return
	}
	r.mu.Lock()
	alreadyDone := r.status == RoomFinished
	if !alreadyDone {
		r.finish()
	}
	r.mu.Unlock()
	if alreadyDone {
		return
	}
	winner := "nobody"
	if p := g.Player(g.WinnerID); p != nil {
		winner = p.Name
	}
	r.broadcast(mustFrame(EvGameNotification, notificationEvent{
		Message: winner + " wins the game",
		Type:    "game_over",
	}))
	s.broadcastRoom(ctx, r)
}

// replyRuleError sends a structured game_error for engine rejections.
func (s *Server) replyRuleError(c *Client, err error) {
	if c == nil || err == nil {
		return
	}
	var re *game.RuleError
	if errors.As(err, &re) {
		c.sendError(re.Message, string(re.Kind), re.Color)
		return
	}
	c.sendError(err.Error(), "internal", "")
}
