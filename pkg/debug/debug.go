// Package debug implements per-room developer sessions: action snapshots
// with undo/redo and breakpoints on action types. Sessions live in server
// memory; only the bounded action history is persisted with the game state.
package debug

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"manaforge/pkg/game"
	"manaforge/pkg/oracle"
)

// MaxSnapshots bounds the per-session snapshot ring.
const MaxSnapshots = 50

// Snapshot captures one committed action: the full state on both sides of it
// plus a human explanation of what the engine did.
type Snapshot struct {
	ID                  string          `json:"id"`
	Seq                 int             `json:"seq"`
	ActionType          string          `json:"actionType"`
	PlayerID            string          `json:"playerId,omitempty"`
	Description         string          `json:"description"`
	Explanation         string          `json:"explanation,omitempty"`
	DetailedExplanation string          `json:"detailedExplanation,omitempty"`
	Timestamp           time.Time       `json:"timestamp"`
	StateBefore         *game.GameState `json:"-"`
	StateAfter          *game.GameState `json:"-"`

	// Action is the captured action envelope, held while the snapshot is
	// pending so a continue can hand it back to the dispatcher.
	Action interface{} `json:"-"`
}

// Summary is the wire-friendly view of a snapshot.
type Summary struct {
	ID          string    `json:"id"`
	Seq         int       `json:"seq"`
	ActionType  string    `json:"actionType"`
	PlayerID    string    `json:"playerId,omitempty"`
	Description string    `json:"description"`
	Explanation string    `json:"explanation,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Session is one room's debug session. All methods are safe for concurrent
// use, though the dispatcher already serializes access per room.
type Session struct {
	mu        sync.Mutex
	roomID    string
	enabled   bool
	seq       int
	snapshots []*Snapshot
	undone    []*Snapshot
	pending   *Snapshot
	skips     map[string]bool
	log       slog.Logger
}

// Manager hands out sessions per room. When disabled every lookup returns
// nil and the dispatcher skips all snapshot work.
type Manager struct {
	mu       sync.Mutex
	enabled  bool
	sessions map[string]*Session
	log      slog.Logger
}

// NewManager creates a manager; enabled normally mirrors the dev-mode flag.
func NewManager(enabled bool, log slog.Logger) *Manager {
	return &Manager{
		enabled:  enabled,
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Enabled reports whether debug sessions are available at all.
func (m *Manager) Enabled() bool { return m.enabled }

// Session returns the room's session, creating it on first use. Nil when the
// manager is disabled.
func (m *Manager) Session(roomID string) *Session {
	if !m.enabled {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[roomID]
	if !ok {
		s = &Session{
			roomID:  roomID,
			enabled: true,
			skips:   make(map[string]bool),
			log:     m.log,
		}
		m.sessions[roomID] = s
	}
	return s
}

// Drop discards a room's session, typically when the room closes.
func (m *Manager) Drop(roomID string) {
	m.mu.Lock()
	delete(m.sessions, roomID)
	m.mu.Unlock()
}

// SetEnabled toggles the session on or off.
func (s *Session) SetEnabled(on bool) {
	s.mu.Lock()
	s.enabled = on
	s.mu.Unlock()
}

// IsEnabled reports whether the session intercepts actions.
func (s *Session) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Begin opens a pending snapshot before an action executes, capturing the
// action so a later continue can replay it. The state is deep-cloned so
// later mutation cannot leak into the history. Returns the pending snapshot.
func (s *Session) Begin(g *game.GameState, actionType, playerID string, action interface{}) *Snapshot {
	before, err := g.Clone()
	if err != nil {
		s.log.Errorf("debug snapshot clone failed for room %s: %v", s.roomID, err)
		return nil
	}
	snap := &Snapshot{
		ID:          uuid.NewString(),
		ActionType:  actionType,
		PlayerID:    playerID,
		Timestamp:   time.Now().UTC(),
		StateBefore: before,
		Action:      action,
	}
	who := playerID
	if p := g.Player(playerID); p != nil {
		who = p.Name
	}
	snap.Description = fmt.Sprintf("%s: %s", who,
		strings.ToLower(strings.ReplaceAll(actionType, "_", " ")))
	s.mu.Lock()
	s.pending = snap
	s.mu.Unlock()
	return snap
}

// Pending returns the snapshot awaiting a continue or cancel, if any.
func (s *Session) Pending() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Paused reports whether an action is captured and waiting.
func (s *Session) Paused() bool { return s.Pending() != nil }

// Commit closes the pending snapshot with the post-action state, derives the
// explanations and pushes the snapshot onto the ring. A committed action
// invalidates the redo stack. The persisted history on the state is updated
// in the same step so it travels with the room.
func (s *Session) Commit(g *game.GameState) *Snapshot {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return nil
	}

	// The history entry lands on the live state before the after-clone is
	// taken, so the clone carries it and a redo restores it.
	if g.DebugSession == nil {
		g.DebugSession = &game.DebugSessionInfo{Enabled: true}
	}
	g.DebugSession.AppendHistory(game.PersistedDebugAction{
		ID:          snap.ID,
		ActionType:  snap.ActionType,
		PlayerID:    snap.PlayerID,
		Description: snap.Description,
		Timestamp:   snap.Timestamp,
	})

	after, err := g.Clone()
	if err != nil {
		s.log.Errorf("debug snapshot clone failed for room %s: %v", s.roomID, err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	snap.Seq = s.seq
	snap.StateAfter = after
	snap.Description, snap.Explanation, snap.DetailedExplanation = explain(snap)

	s.snapshots = append(s.snapshots, snap)
	if len(s.snapshots) > MaxSnapshots {
		s.snapshots = s.snapshots[len(s.snapshots)-MaxSnapshots:]
	}
	s.undone = nil
	return snap
}

// Abort drops the pending snapshot after a rejected action.
func (s *Session) Abort() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Undo rewinds to the state before the most recent snapshot. The snapshot
// moves to the redo stack. Returns a clone so callers own the result.
func (s *Session) Undo() (*game.GameState, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil, nil, fmt.Errorf("nothing to undo")
	}
	snap := s.snapshots[len(s.snapshots)-1]
	s.snapshots = s.snapshots[:len(s.snapshots)-1]
	s.undone = append(s.undone, snap)
	restored, err := snap.StateBefore.Clone()
	if err != nil {
		return nil, nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return restored, snap, nil
}

// Redo replays the most recently undone snapshot, restoring its after-state.
func (s *Session) Redo() (*game.GameState, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undone) == 0 {
		return nil, nil, fmt.Errorf("nothing to redo")
	}
	snap := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	s.snapshots = append(s.snapshots, snap)
	restored, err := snap.StateAfter.Clone()
	if err != nil {
		return nil, nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return restored, snap, nil
}

// SetPause arms or disarms the pause on an action type. Every pausable type
// starts armed, so a fresh session steps through each action; disarming a
// type lets it run straight through.
func (s *Session) SetPause(actionType string, on bool) {
	s.mu.Lock()
	if on {
		delete(s.skips, actionType)
	} else {
		s.skips[actionType] = true
	}
	s.mu.Unlock()
}

// ShouldPause reports whether the action type pauses before executing.
func (s *Session) ShouldPause(actionType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.skips[actionType]
}

// Skips lists the action types disarmed from pausing.
func (s *Session) Skips() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.skips))
	for t := range s.skips {
		out = append(out, t)
	}
	return out
}

// History returns snapshot summaries, oldest first.
func (s *Session) History() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, Summary{
			ID:          snap.ID,
			Seq:         snap.Seq,
			ActionType:  snap.ActionType,
			PlayerID:    snap.PlayerID,
			Description: snap.Description,
			Explanation: snap.Explanation,
			Timestamp:   snap.Timestamp,
		})
	}
	return out
}

// Depths reports the undo and redo stack depths.
func (s *Session) Depths() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots), len(s.undone)
}

// explain derives the three explanation tiers for a snapshot by diffing the
// before and after states and reading the involved card text.
func explain(snap *Snapshot) (description, explanation, detailed string) {
	before, after := snap.StateBefore, snap.StateAfter
	who := snap.PlayerID
	if p := before.Player(snap.PlayerID); p != nil {
		who = p.Name
	}
	description = fmt.Sprintf("%s: %s", who, strings.ToLower(strings.ReplaceAll(snap.ActionType, "_", " ")))

	var parts []string
	var details []string

	if after.Phase != before.Phase || after.Step != before.Step {
		parts = append(parts, fmt.Sprintf("game moved to %s/%s", after.Phase, after.Step))
	}
	if after.TurnCount != before.TurnCount {
		parts = append(parts, fmt.Sprintf("turn %d began", after.TurnCount))
	}
	if len(after.Stack) > len(before.Stack) {
		top := after.TopOfStack()
		parts = append(parts, fmt.Sprintf("%s went on the stack", top.Name))
		if top.Text != "" {
			details = append(details, cardExplanation(top.Name, top.Text))
		}
	} else if len(after.Stack) < len(before.Stack) {
		resolved := before.Stack[len(before.Stack)-1]
		parts = append(parts, fmt.Sprintf("%s resolved", resolved.Name))
		if resolved.Text != "" {
			details = append(details, cardExplanation(resolved.Name, resolved.Text))
		}
	}
	for pid, bp := range before.Players {
		ap := after.Player(pid)
		if ap == nil {
			continue
		}
		if ap.Life != bp.Life {
			parts = append(parts, fmt.Sprintf("%s went from %d to %d life", bp.Name, bp.Life, ap.Life))
		}
	}
	for id, bc := range before.Cards {
		ac := after.Card(id)
		if ac == nil {
			details = append(details, fmt.Sprintf("%s left the game", bc.Name))
			continue
		}
		if ac.Zone != bc.Zone {
			details = append(details, fmt.Sprintf("%s moved from %s to %s", bc.Name, bc.Zone, ac.Zone))
		}
	}
	if after.PendingChoice != nil && before.PendingChoice == nil {
		parts = append(parts, fmt.Sprintf("waiting on a %s choice", after.PendingChoice.Kind))
	}
	if after.GameOver && !before.GameOver {
		parts = append(parts, "the game ended")
	}

	explanation = strings.Join(parts, "; ")
	detailed = strings.Join(details, "\n")
	return description, explanation, detailed
}

// cardExplanation summarizes what a card's text does using the oracle
// classifiers.
func cardExplanation(name, text string) string {
	tag := oracle.ClassifyEffect(text)
	switch tag {
	case oracle.EffectDamage:
		return fmt.Sprintf("%s deals %d damage", name, oracle.DamageAmount(text))
	case oracle.EffectDraw:
		return fmt.Sprintf("%s draws %d card(s)", name, oracle.DrawAmount(text))
	case oracle.EffectDestroy:
		return fmt.Sprintf("%s destroys a permanent", name)
	case oracle.EffectCounter:
		return fmt.Sprintf("%s counters a spell", name)
	case oracle.EffectBoardWipe:
		return fmt.Sprintf("%s sweeps the board", name)
	case oracle.EffectUnclassified:
		return fmt.Sprintf("%s: %s", name, text)
	default:
		return fmt.Sprintf("%s has a %s effect", name, tag)
	}
}
