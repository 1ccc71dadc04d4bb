package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Zone identifies where a card currently lives.
type Zone string

const (
	ZoneLibrary     Zone = "library"
	ZoneHand        Zone = "hand"
	ZoneBattlefield Zone = "battlefield"
	ZoneGraveyard   Zone = "graveyard"
	ZoneStack       Zone = "stack"
	ZoneExile       Zone = "exile"
	ZoneCommand     Zone = "command"
)

// Phase is a top-level segment of a turn.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseBeginning Phase = "beginning"
	PhaseMain1     Phase = "main1"
	PhaseCombat    Phase = "combat"
	PhaseMain2     Phase = "main2"
	PhaseEnding    Phase = "ending"
)

// Step is a sub-division of a phase.
type Step string

const (
	StepMulligan         Step = "mulligan"
	StepUntap            Step = "untap"
	StepUpkeep           Step = "upkeep"
	StepDraw             Step = "draw"
	StepMain             Step = "main"
	StepBeginningCombat  Step = "beginning_combat"
	StepDeclareAttackers Step = "declare_attackers"
	StepDeclareBlockers  Step = "declare_blockers"
	StepCombatDamage     Step = "combat_damage"
	StepEndCombat        Step = "end_combat"
	StepEnd              Step = "end"
	StepCleanup          Step = "cleanup"
)

// Color is one of the six mana colors (colorless included).
type Color string

const (
	White     Color = "W"
	Blue      Color = "U"
	Black     Color = "B"
	Red       Color = "R"
	Green     Color = "G"
	Colorless Color = "C"
)

// AllColors lists mana colors in canonical WUBRGC order. Cost payment and
// pool draining iterate in this order so results are deterministic.
var AllColors = []Color{White, Blue, Black, Red, Green, Colorless}

// Player holds the per-seat state of one participant in a game.
type Player struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Life          int           `json:"life"`
	Poison        int           `json:"poison"`
	Energy        int           `json:"energy"`
	IsActive      bool          `json:"isActive"`
	HasPassed     bool          `json:"hasPassed"`
	HandKept      bool          `json:"handKept"`
	MulliganCount int           `json:"mulliganCount"`
	ManaPool      map[Color]int `json:"manaPool"`
	IsBot         bool          `json:"isBot"`
	StopRequested bool          `json:"stopRequested"`
	HasLost       bool          `json:"hasLost"`
}

// NewPlayer creates a player at the starting life total with an empty pool.
func NewPlayer(id, name string, isBot bool) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Life:     StartingLife,
		ManaPool: make(map[Color]int),
		IsBot:    isBot,
	}
}

// StartingLife is the life total every player begins with.
const StartingLife = 20

// EmptyManaPool discards all mana in the player's pool.
func (p *Player) EmptyManaPool() {
	p.ManaPool = make(map[Color]int)
}

// TotalMana returns the number of mana of all colors currently in the pool.
func (p *Player) TotalMana() int {
	total := 0
	for _, n := range p.ManaPool {
		total += n
	}
	return total
}

// CounterGroup is a typed pile of counters on a card (+1/+1, loyalty, charge...).
type CounterGroup struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ModifierKind distinguishes the continuous effects a card can carry.
type ModifierKind string

const (
	ModPTBoost      ModifierKind = "pt_boost"
	ModSetPT        ModifierKind = "set_pt"
	ModAbilityGrant ModifierKind = "ability_grant"
	ModTypeChange   ModifierKind = "type_change"
)

// Modifier is a continuous effect applied to a battlefield card, keyed by the
// source that created it.
type Modifier struct {
	SourceID       string       `json:"sourceId"`
	Kind           ModifierKind `json:"kind"`
	Power          int          `json:"power,omitempty"`
	Toughness      int          `json:"toughness,omitempty"`
	Ability        string       `json:"ability,omitempty"`
	TypeChange     string       `json:"typeChange,omitempty"`
	UntilEndOfTurn bool         `json:"untilEndOfTurn"`
}

// Position is an optional battlefield placement hint for the UI.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CardFace carries the characteristics of one face of a double-faced card.
type CardFace struct {
	Name      string `json:"name"`
	ManaCost  string `json:"manaCost"`
	TypeLine  string `json:"typeLine"`
	Text      string `json:"text"`
	Power     int    `json:"power"`
	Toughness int    `json:"toughness"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Card is a single card instance. All cards across all zones of a game share
// one flat table keyed by instance id; relationships between cards are always
// expressed by id, never by pointer.
type Card struct {
	ID           string `json:"id"`
	OwnerID      string `json:"ownerId"`
	ControllerID string `json:"controllerId"`
	OracleID     string `json:"oracleId,omitempty"`
	ScryfallID   string `json:"scryfallId,omitempty"`
	SetCode      string `json:"setCode,omitempty"`

	Name     string `json:"name"`
	Zone     Zone   `json:"zone"`
	Tapped   bool   `json:"tapped"`
	FaceDown bool   `json:"faceDown"`
	// ActiveFace indexes into Faces for double-faced cards.
	ActiveFace int      `json:"activeFace"`
	Attacking  string   `json:"attacking,omitempty"`
	Blocking   []string `json:"blocking,omitempty"`
	AttachedTo string   `json:"attachedTo,omitempty"`

	ManaCost   string   `json:"manaCost,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	TypeLine   string   `json:"typeLine,omitempty"`
	OracleText string   `json:"oracleText,omitempty"`
	Types      []string `json:"types,omitempty"`
	Subtypes   []string `json:"subtypes,omitempty"`
	Supertypes []string `json:"supertypes,omitempty"`

	BasePower     int `json:"basePower"`
	BaseToughness int `json:"baseToughness"`
	BaseLoyalty   int `json:"baseLoyalty,omitempty"`
	Loyalty       int `json:"loyalty,omitempty"`
	BaseDefense   int `json:"baseDefense,omitempty"`
	Defense       int `json:"defense,omitempty"`

	DamageMarked int            `json:"damageMarked"`
	Counters     []CounterGroup `json:"counters,omitempty"`
	Keywords     []string       `json:"keywords,omitempty"`
	Modifiers    []Modifier     `json:"modifiers,omitempty"`

	ImageURL     string     `json:"imageUrl,omitempty"`
	ProducedMana []string   `json:"producedMana,omitempty"`
	Faces        []CardFace `json:"faces,omitempty"`
	Pos          *Position  `json:"position,omitempty"`

	// ControlledSinceTurn tracks summoning sickness: a creature may not
	// attack or tap for abilities the turn it came under this control.
	ControlledSinceTurn int  `json:"controlledSinceTurn"`
	IsToken             bool `json:"isToken"`

	// ZoneIndex orders cards within their zone. The library treats the
	// highest index as its top; shuffling permutes the indexes.
	ZoneIndex int `json:"zoneIndex"`
}

// HasType reports whether the card's type line includes the given card type.
func (c *Card) HasType(t string) bool {
	for _, ct := range c.Types {
		if strings.EqualFold(ct, t) {
			return true
		}
	}
	return false
}

// HasSubtype reports whether the card carries the given subtype.
func (c *Card) HasSubtype(st string) bool {
	for _, s := range c.Subtypes {
		if strings.EqualFold(s, st) {
			return true
		}
	}
	return false
}

// HasKeyword checks base keywords plus any ability-grant modifiers.
func (c *Card) HasKeyword(kw string) bool {
	for _, k := range c.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	for _, m := range c.Modifiers {
		if m.Kind == ModAbilityGrant && strings.EqualFold(m.Ability, kw) {
			return true
		}
	}
	return false
}

// CounterCount returns how many counters of the given type the card carries.
func (c *Card) CounterCount(counterType string) int {
	for _, cg := range c.Counters {
		if cg.Type == counterType {
			return cg.Count
		}
	}
	return 0
}

// CurrentPower applies set_pt modifiers, pt_boost modifiers and +1/+1 / -1/-1
// counters on top of the base power.
func (c *Card) CurrentPower() int {
	p := c.BasePower
	for _, m := range c.Modifiers {
		switch m.Kind {
		case ModSetPT:
			p = m.Power
		case ModPTBoost:
			p += m.Power
		}
	}
	p += c.CounterCount("+1/+1")
	p -= c.CounterCount("-1/-1")
	return p
}

// CurrentToughness mirrors CurrentPower for toughness.
func (c *Card) CurrentToughness() int {
	t := c.BaseToughness
	for _, m := range c.Modifiers {
		switch m.Kind {
		case ModSetPT:
			t = m.Toughness
		case ModPTBoost:
			t += m.Toughness
		}
	}
	t += c.CounterCount("+1/+1")
	t -= c.CounterCount("-1/-1")
	return t
}

// ParseTypeLine splits a scryfall-style type line ("Legendary Creature — Elf
// Druid") into supertypes, types and subtypes.
func ParseTypeLine(typeLine string) (supertypes, types, subtypes []string) {
	knownSupertypes := map[string]bool{
		"Basic": true, "Legendary": true, "Snow": true, "World": true, "Ongoing": true,
	}
	parts := strings.SplitN(strings.ReplaceAll(typeLine, "—", "-"), "-", 2)
	for _, w := range strings.Fields(parts[0]) {
		if knownSupertypes[w] {
			supertypes = append(supertypes, w)
		} else {
			types = append(types, w)
		}
	}
	if len(parts) == 2 {
		subtypes = append(subtypes, strings.Fields(parts[1])...)
	}
	return supertypes, types, subtypes
}

// StackItemKind distinguishes what kind of object sits on the stack.
type StackItemKind string

const (
	StackItemSpell   StackItemKind = "spell"
	StackItemAbility StackItemKind = "ability"
	StackItemTrigger StackItemKind = "trigger"
)

// ChoiceResult is one recorded answer to a PendingChoice, replayed when the
// owning stack item re-enters resolution.
type ChoiceResult struct {
	ChoiceID   string     `json:"choiceId"`
	Kind       ChoiceKind `json:"kind"`
	OptionIDs  []string   `json:"optionIds,omitempty"`
	CardIDs    []string   `json:"cardIds,omitempty"`
	TargetIDs  []string   `json:"targetIds,omitempty"`
	PlayerID   string     `json:"playerId,omitempty"`
	Yes        bool       `json:"yes,omitempty"`
	OrderedIDs []string   `json:"orderedIds,omitempty"`
	Number     int        `json:"number,omitempty"`
	AbilityIdx int        `json:"abilityIndex,omitempty"`
}

// ResolutionState carries the decisions already bound for a suspended stack item.
type ResolutionState struct {
	ChoicesMade []ChoiceResult `json:"choicesMade"`
}

// StackItem is one pending spell, activated ability or triggered ability.
// Items resolve top-down (LIFO).
type StackItem struct {
	ID           string           `json:"id"`
	SourceID     string           `json:"sourceId"`
	ControllerID string           `json:"controllerId"`
	Kind         StackItemKind    `json:"kind"`
	Name         string           `json:"name"`
	Text         string           `json:"text"`
	Targets      []string         `json:"targets,omitempty"`
	Modes        []int            `json:"modes,omitempty"`
	Pos          *Position        `json:"position,omitempty"`
	FaceIndex    int              `json:"faceIndex"`
	AbilityIndex int              `json:"abilityIndex"`
	Resolution   *ResolutionState `json:"resolutionState,omitempty"`
}

// ChoiceKind enumerates the decision protocols an effect can suspend on.
type ChoiceKind string

const (
	ChoiceModeSelection    ChoiceKind = "mode_selection"
	ChoiceCardSelection    ChoiceKind = "card_selection"
	ChoiceTargetSelection  ChoiceKind = "target_selection"
	ChoicePlayerSelection  ChoiceKind = "player_selection"
	ChoiceYesNo            ChoiceKind = "yes_no"
	ChoiceOrderSelection   ChoiceKind = "order_selection"
	ChoiceNumberSelection  ChoiceKind = "number_selection"
	ChoiceAbilitySelection ChoiceKind = "ability_selection"
)

// ChoiceOption is one selectable entry for enumerated choice kinds.
type ChoiceOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChoiceFilter restricts which cards a card_selection may pick.
type ChoiceFilter struct {
	Zones        []Zone   `json:"zones,omitempty"`
	ControllerID string   `json:"controllerId,omitempty"`
	Types        []string `json:"types,omitempty"`
	NotTypes     []string `json:"notTypes,omitempty"`
}

// PendingChoice is a cooperative suspension point: the stack item that created
// it stays on top of the stack until the choosing player binds a result.
// At most one exists per game state.
type PendingChoice struct {
	ID            string         `json:"id"`
	Kind          ChoiceKind     `json:"kind"`
	StackItemID   string         `json:"stackItemId"`
	SourceCardID  string         `json:"sourceCardId,omitempty"`
	SourceName    string         `json:"sourceName,omitempty"`
	SourceImage   string         `json:"sourceImage,omitempty"`
	ChoosingID    string         `json:"choosingPlayerId"`
	ControllingID string         `json:"controllingPlayerId"`
	Prompt        string         `json:"prompt"`
	Options       []ChoiceOption `json:"options,omitempty"`
	MinCount      int            `json:"minCount,omitempty"`
	MaxCount      int            `json:"maxCount,omitempty"`
	ExactCount    int            `json:"exactCount,omitempty"`
	Filter        *ChoiceFilter  `json:"filter,omitempty"`
	SelectableIDs []string       `json:"selectableIds,omitempty"`
	RevealedIDs   []string       `json:"revealedIds,omitempty"`
	MinNumber     int            `json:"minNumber,omitempty"`
	MaxNumber     int            `json:"maxNumber,omitempty"`
}

// LogSeverity classifies log entries for display.
type LogSeverity string

const (
	LogInfo    LogSeverity = "info"
	LogAction  LogSeverity = "action"
	LogCombat  LogSeverity = "combat"
	LogError   LogSeverity = "error"
	LogSuccess LogSeverity = "success"
	LogWarning LogSeverity = "warning"
	LogZone    LogSeverity = "zone"
)

// CardRef is a minimal card descriptor attached to log entries for hover previews.
type CardRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// LogEntry is one line of the persisted game log.
type LogEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Message   string      `json:"message"`
	Severity  LogSeverity `json:"severity"`
	Source    string      `json:"source,omitempty"`
	Cards     []CardRef   `json:"cards,omitempty"`
}

// DelayedTrigger fires when a future step is entered ("at the beginning of
// the next end step...").
type DelayedTrigger struct {
	ID           string `json:"id"`
	SourceID     string `json:"sourceId"`
	ControllerID string `json:"controllerId"`
	Phase        Phase  `json:"phase,omitempty"`
	Step         Step   `json:"step,omitempty"`
	Text         string `json:"text"`
	OneShot      bool   `json:"oneShot"`
	// MinTurn makes "next" semantics explicit: the trigger only fires on
	// this turn or later, so an end-step trigger created during the end
	// step waits for the following turn.
	MinTurn int `json:"minTurn,omitempty"`
}

// PersistedDebugAction is one entry of the debug session's action history.
type PersistedDebugAction struct {
	ID          string    `json:"id"`
	ActionType  string    `json:"actionType"`
	PlayerID    string    `json:"playerId,omitempty"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// MaxDebugHistory bounds DebugSessionInfo.ActionHistory.
const MaxDebugHistory = 200

// DebugSessionInfo is the persisted part of a room's debug session.
type DebugSessionInfo struct {
	Enabled       bool                   `json:"enabled"`
	ActionHistory []PersistedDebugAction `json:"actionHistory,omitempty"`
}

// AppendHistory records a debug action, keeping the history a bounded ring.
func (d *DebugSessionInfo) AppendHistory(a PersistedDebugAction) {
	d.ActionHistory = append(d.ActionHistory, a)
	if len(d.ActionHistory) > MaxDebugHistory {
		d.ActionHistory = d.ActionHistory[len(d.ActionHistory)-MaxDebugHistory:]
	}
}

// GameState is the authoritative snapshot of one match. It is fully
// JSON-serializable; the dispatcher persists it to the store after every
// committed action.
type GameState struct {
	RoomID  string `json:"roomId"`
	Format  string `json:"format,omitempty"`
	SetCode string `json:"setCode,omitempty"`

	Players map[string]*Player `json:"players"`
	Cards   map[string]*Card   `json:"cards"`
	Stack   []StackItem        `json:"stack"`

	TurnCount        int      `json:"turnCount"`
	TurnOrder        []string `json:"turnOrder"`
	ActivePlayerID   string   `json:"activePlayerId"`
	PriorityPlayerID string   `json:"priorityPlayerId"`

	Phase Phase `json:"phase"`
	Step  Step  `json:"step"`

	PassedPriorityCount int  `json:"passedPriorityCount"`
	LandsPlayedThisTurn int  `json:"landsPlayedThisTurn"`
	AttackersDeclared   bool `json:"attackersDeclared"`
	BlockersDeclared    bool `json:"blockersDeclared"`

	Logs []LogEntry `json:"logs"`
	// PendingLogs buffers entries produced by the in-flight action; the
	// dispatcher drains and emits them after the action commits.
	PendingLogs []LogEntry `json:"-"`

	PendingChoice    *PendingChoice    `json:"pendingChoice,omitempty"`
	DebugSession     *DebugSessionInfo `json:"debugSession,omitempty"`
	DelayedTriggers  []DelayedTrigger  `json:"delayedTriggers,omitempty"`
	LoyaltyActivated []string          `json:"loyaltyActivated,omitempty"`

	GameOver bool   `json:"gameOver"`
	WinnerID string `json:"winnerId,omitempty"`

	// Seed drives every random decision in the game (shuffles, bot
	// tie-breaks). Tests set it explicitly for determinism.
	Seed int64 `json:"seed"`

	// CardSeq is the monotonic counter behind card instance ids.
	CardSeq int `json:"cardSeq"`
	// ZoneSeq is the monotonic counter behind zone ordering indexes.
	ZoneSeq int `json:"zoneSeq"`

	rng *rand.Rand
}

// NewGameState creates an empty game state for a room. Seed 0 picks a
// time-based seed, anything else is used verbatim.
func NewGameState(roomID string, seed int64) *GameState {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GameState{
		RoomID:    roomID,
		Players:   make(map[string]*Player),
		Cards:     make(map[string]*Card),
		Stack:     nil,
		TurnCount: 1,
		Phase:     PhaseSetup,
		Step:      StepMulligan,
		Seed:      seed,
	}
}

// RNG returns the game's seeded random source, creating it on first use
// (and after deserialization).
func (g *GameState) RNG() *rand.Rand {
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(g.Seed))
	}
	return g.rng
}

// Player returns the player with the given id, or nil.
func (g *GameState) Player(id string) *Player {
	return g.Players[id]
}

// Card returns the card instance with the given id, or nil.
func (g *GameState) Card(id string) *Card {
	return g.Cards[id]
}

// OpponentOf returns the first other player in turn order. The rules subset
// is written for two-seat games but falls back gracefully for more.
func (g *GameState) OpponentOf(pid string) *Player {
	for _, id := range g.TurnOrder {
		if id != pid {
			return g.Players[id]
		}
	}
	return nil
}

// NextInTurnOrder returns the seat after pid, wrapping around.
func (g *GameState) NextInTurnOrder(pid string) string {
	for i, id := range g.TurnOrder {
		if id == pid {
			return g.TurnOrder[(i+1)%len(g.TurnOrder)]
		}
	}
	if len(g.TurnOrder) > 0 {
		return g.TurnOrder[0]
	}
	return ""
}

// CardsInZone returns the cards of one player in one zone ordered by zone
// index. The library treats the slice tail as its top.
func (g *GameState) CardsInZone(pid string, zone Zone) []*Card {
	var out []*Card
	for _, c := range g.Cards {
		if c.Zone == zone && c.OwnerID == pid {
			out = append(out, c)
		}
	}
	sortCardsStable(out)
	return out
}

// BattlefieldControlledBy returns battlefield cards under the player's control.
func (g *GameState) BattlefieldControlledBy(pid string) []*Card {
	var out []*Card
	for _, c := range g.Cards {
		if c.Zone == ZoneBattlefield && c.ControllerID == pid {
			out = append(out, c)
		}
	}
	sortCardsStable(out)
	return out
}

// CreaturesControlledBy returns battlefield creatures under the player's control.
func (g *GameState) CreaturesControlledBy(pid string) []*Card {
	var out []*Card
	for _, c := range g.BattlefieldControlledBy(pid) {
		if c.HasType("Creature") {
			out = append(out, c)
		}
	}
	return out
}

// TopOfLibrary returns the next card the player would draw, or nil when the
// library is empty.
func (g *GameState) TopOfLibrary(pid string) *Card {
	lib := g.CardsInZone(pid, ZoneLibrary)
	if len(lib) == 0 {
		return nil
	}
	return lib[len(lib)-1]
}

// TopOfStack returns the item that would resolve next, or nil.
func (g *GameState) TopOfStack() *StackItem {
	if len(g.Stack) == 0 {
		return nil
	}
	return &g.Stack[len(g.Stack)-1]
}

// StackItemByID returns the stack item with the given id, or nil.
func (g *GameState) StackItemByID(id string) *StackItem {
	for i := range g.Stack {
		if g.Stack[i].ID == id {
			return &g.Stack[i]
		}
	}
	return nil
}

// AddLog appends an entry to both the persisted log and the transient buffer.
func (g *GameState) AddLog(severity LogSeverity, source, format string, args ...interface{}) {
	g.AddLogWithCards(severity, source, nil, format, args...)
}

// AddLogWithCards is AddLog with hover-preview card descriptors attached.
func (g *GameState) AddLogWithCards(severity LogSeverity, source string, cards []CardRef, format string, args ...interface{}) {
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Message:   fmt.Sprintf(format, args...),
		Severity:  severity,
		Source:    source,
		Cards:     cards,
	}
	g.Logs = append(g.Logs, entry)
	g.PendingLogs = append(g.PendingLogs, entry)
}

// DrainLogs empties and returns the transient log buffer.
func (g *GameState) DrainLogs() []LogEntry {
	out := g.PendingLogs
	g.PendingLogs = nil
	return out
}

// Ref builds a log card descriptor for the given card id.
func (g *GameState) Ref(cardID string) []CardRef {
	c := g.Card(cardID)
	if c == nil {
		return nil
	}
	return []CardRef{{ID: c.ID, Name: c.Name, ImageURL: c.ImageURL}}
}

// Clone returns a deep structural copy with no shared references, suitable
// for debug snapshots. The transient log buffer is not carried over.
func (g *GameState) Clone() (*GameState, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("clone marshal: %w", err)
	}
	var out GameState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone unmarshal: %w", err)
	}
	return &out, nil
}

// sortCardsStable orders cards by zone index, falling back to instance id,
// so map iteration never leaks into game-visible ordering.
func sortCardsStable(cards []*Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].ZoneIndex != cards[j].ZoneIndex {
			return cards[i].ZoneIndex < cards[j].ZoneIndex
		}
		return cards[i].ID < cards[j].ID
	})
}

// NewCardID mints a card instance id. The monotonic sequence keeps ids
// unique for the lifetime of the state, including across token deletion,
// and keeps same-seed games minting the same ids.
func (g *GameState) NewCardID() string {
	g.CardSeq++
	return fmt.Sprintf("c%06d", g.CardSeq)
}

// NextZoneIndex returns a zone ordering index greater than any handed out so
// far, placing the card on top of (or last in) its destination zone.
func (g *GameState) NextZoneIndex() int {
	g.ZoneSeq++
	return g.ZoneSeq
}
