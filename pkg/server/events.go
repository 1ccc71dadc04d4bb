package server

import (
	"encoding/json"

	"manaforge/pkg/debug"
	"manaforge/pkg/game"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound event names.
const (
	EvCreateRoom      = "create_room"
	EvJoinRoom        = "join_room"
	EvRejoinRoom      = "rejoin_room"
	EvLeaveRoom       = "leave_room"
	EvSendMessage     = "send_message"
	EvStartGame       = "start_game"
	EvStartSoloTest   = "start_solo_test"
	EvPlayerReady     = "player_ready"
	EvGameAction      = "game_action"
	EvStrictAction    = "game_strict_action"
	EvDebugToggle     = "debug_toggle"
	EvDebugContinue   = "debug_continue"
	EvDebugCancel     = "debug_cancel"
	EvDebugUndo       = "debug_undo"
	EvDebugRedo       = "debug_redo"
	EvDebugClear      = "debug_clear_history"
	EvDebugPauseSet   = "debug_pause_set"
	EvSaveDeck        = "save_deck"
	EvListDecks       = "list_decks"
	EvListSets        = "list_sets"
)

// Outbound event names.
const (
	EvRoomUpdate       = "room_update"
	EvGameUpdate       = "game_update"
	EvGameLog          = "game_log"
	EvGameError        = "game_error"
	EvGameNotification = "game_notification"
	EvChatMessage      = "chat_message"
	EvDebugPause       = "debug_pause"
	EvDebugState       = "debug_state"
	EvKicked           = "kicked"
	EvRoomClosed       = "room_closed"
	EvMatchStart       = "match_start"
)

// createRoomRequest opens a new room.
type createRoomRequest struct {
	HostID     string   `json:"hostId"`
	HostName   string   `json:"hostName"`
	Format     string   `json:"format,omitempty"`
	SetCode    string   `json:"setCode,omitempty"`
	BasicLands []string `json:"basicLands,omitempty"`
	ForceNew   bool     `json:"forceNew,omitempty"`
}

// createRoomAck answers create_room.
type createRoomAck struct {
	Success          bool        `json:"success"`
	Room             *RoomView   `json:"room,omitempty"`
	Message          string      `json:"message,omitempty"`
	HasExistingRooms bool        `json:"hasExistingRooms,omitempty"`
	ExistingRooms    []*RoomView `json:"existingRooms,omitempty"`
}

// joinRoomRequest joins or rejoins a room.
type joinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
}

// joinRoomAck answers join_room and rejoin_room.
type joinRoomAck struct {
	Success   bool            `json:"success"`
	Room      *RoomView       `json:"room,omitempty"`
	GameState *game.GameState `json:"gameState,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// leaveRoomRequest leaves a room.
type leaveRoomRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// chatRequest relays a chat line to the room.
type chatRequest struct {
	RoomID string `json:"roomId"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// startGameRequest starts the match with each player's chosen deck.
type startGameRequest struct {
	RoomID string                `json:"roomId"`
	Decks  map[string]*game.Deck `json:"decks"`
}

// soloTestRequest starts a single-human room against a bot.
type soloTestRequest struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Deck       *game.Deck `json:"deck"`
}

// playerReadyRequest hands in a deck during deck building.
type playerReadyRequest struct {
	RoomID   string     `json:"roomId"`
	PlayerID string     `json:"playerId"`
	Deck     *game.Deck `json:"deck"`
}

// gameUpdateEvent carries a full state snapshot.
type gameUpdateEvent struct {
	RoomID string          `json:"roomId"`
	Game   *game.GameState `json:"game"`
}

// gameLogEvent carries the log entries drained by the last commit.
type gameLogEvent struct {
	RoomID string          `json:"roomId"`
	Logs   []game.LogEntry `json:"logs"`
}

// gameErrorEvent reports a rejected action.
type gameErrorEvent struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Color   string `json:"color,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// notificationEvent is a transient banner message.
type notificationEvent struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chatEvent is a relayed chat line.
type chatEvent struct {
	RoomID string `json:"roomId"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// pauseEvent announces a captured action awaiting continue or cancel.
type pauseEvent struct {
	RoomID              string `json:"roomId"`
	SnapshotID          string `json:"snapshotId"`
	ActionType          string `json:"actionType"`
	PlayerID            string `json:"playerId,omitempty"`
	Description         string `json:"description"`
	DetailedExplanation string `json:"detailedExplanation,omitempty"`
}

// debugStateEvent reports the session's history and stack depths. Skips
// lists the action types disarmed from the pause-before-execute flow.
type debugStateEvent struct {
	RoomID    string          `json:"roomId"`
	Enabled   bool            `json:"enabled"`
	Paused    bool            `json:"paused"`
	UndoDepth int             `json:"undoDepth"`
	RedoDepth int             `json:"redoDepth"`
	History   []debug.Summary `json:"history"`
	Skips     []string        `json:"skips,omitempty"`
}

// debugRefRequest addresses a pending snapshot.
type debugRefRequest struct {
	RoomID     string `json:"roomId"`
	SnapshotID string `json:"snapshotId,omitempty"`
}

// debugToggleRequest enables or disables the room's session.
type debugToggleRequest struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

// debugPauseSetRequest arms or disarms the pause on one action type.
type debugPauseSetRequest struct {
	RoomID     string `json:"roomId"`
	ActionType string `json:"actionType"`
	Paused     bool   `json:"paused"`
}

// saveDeckRequest persists a deck for a user.
type saveDeckRequest struct {
	PlayerID string     `json:"playerId"`
	Deck     *game.Deck `json:"deck"`
}

// listDecksRequest fetches a user's saved decks.
type listDecksRequest struct {
	PlayerID string `json:"playerId"`
}

// ackFrame builds an outbound frame echoing the inbound event name.
func ackFrame(event string, payload interface{}) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Payload: data}, nil
}
