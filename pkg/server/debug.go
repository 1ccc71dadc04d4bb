package server

import (
	"context"
	"encoding/json"

	"manaforge/pkg/debug"
	"manaforge/pkg/game"
)

// handleDebug routes the debug_* events. All of them require dev mode; the
// manager hands out no sessions otherwise.
func (s *Server) handleDebug(ctx context.Context, c *Client, event string, payload json.RawMessage) {
	if !s.debug.Enabled() {
		c.sendError("debug mode is disabled", "debug_disabled", "")
		return
	}

	roomID := c.roomID
	var ref debugRefRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ref); err == nil && ref.RoomID != "" {
			roomID = ref.RoomID
		}
	}
	r := s.room(roomID)
	if r == nil {
		c.sendError("room not found", "room_not_found", "")
		return
	}
	sess := s.debug.Session(roomID)

	switch event {
	case EvDebugToggle:
		var req debugToggleRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			c.sendError("invalid debug_toggle payload", "decode", "")
			return
		}
		sess.SetEnabled(req.Enabled)
		s.emitDebugState(r, sess)

	case EvDebugContinue:
		snap := sess.Pending()
		if snap == nil || (ref.SnapshotID != "" && snap.ID != ref.SnapshotID) {
			c.sendError("no matching paused action", "debug_no_pending", "")
			return
		}
		act, ok := snap.Action.(*Action)
		if !ok {
			sess.Abort()
			c.sendError("paused action is not replayable", "debug_no_pending", "")
			return
		}
		// The captured Begin is replaced by a fresh one inside dispatch.
		sess.Abort()
		s.dispatch(ctx, c, roomID, act, true)

	case EvDebugCancel:
		snap := sess.Pending()
		if snap == nil || (ref.SnapshotID != "" && snap.ID != ref.SnapshotID) {
			c.sendError("no matching paused action", "debug_no_pending", "")
			return
		}
		sess.Abort()
		s.emitDebugState(r, sess)

	case EvDebugUndo:
		s.restoreSnapshot(ctx, c, r, sess, false)

	case EvDebugRedo:
		s.restoreSnapshot(ctx, c, r, sess, true)

	case EvDebugClear:
		s.debug.Drop(roomID)
		s.emitDebugState(r, s.debug.Session(roomID))

	case EvDebugPauseSet:
		var req debugPauseSetRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ActionType == "" {
			c.sendError("invalid debug_pause_set payload", "decode", "")
			return
		}
		typ, err := canonicalType(req.ActionType)
		if err != nil {
			s.replyRuleError(c, err)
			return
		}
		sess.SetPause(typ, req.Paused)
		s.emitDebugState(r, sess)
	}
}

// restoreSnapshot rewinds or replays one snapshot under the room lock and
// commits the restored state as the authoritative one.
func (s *Server) restoreSnapshot(ctx context.Context, c *Client, r *Room, sess *debug.Session, redo bool) {
	err := s.withGame(ctx, r.id, func(g *game.GameState) error {
		var restored *game.GameState
		var err error
		if redo {
			restored, _, err = sess.Redo()
		} else {
			restored, _, err = sess.Undo()
		}
		if err != nil {
			return game.NewRuleError(game.ErrUnknownAction, "%v", err)
		}
		*g = *restored
		s.broadcastGame(r, g)
		s.emitDebugState(r, sess)
		return nil
	})
	if err != nil {
		s.replyRuleError(c, err)
	}
}

// emitDebugState broadcasts the session's current history and depths.
func (s *Server) emitDebugState(r *Room, sess *debug.Session) {
	undo, redo := sess.Depths()
	r.broadcast(mustFrame(EvDebugState, debugStateEvent{
		RoomID:    r.id,
		Enabled:   sess.IsEnabled(),
		Paused:    sess.Paused(),
		UndoDepth: undo,
		RedoDepth: redo,
		History:   sess.History(),
		Skips:     sess.Skips(),
	}))
}
