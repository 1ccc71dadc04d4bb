package game

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"manaforge/pkg/oracle"
)

// resetPriorityTo clears every pass flag and hands priority to pid. Called
// after any stack push or battlefield change.
func (g *GameState) resetPriorityTo(pid string) {
	for _, p := range g.Players {
		p.HasPassed = false
	}
	g.PassedPriorityCount = 0
	g.PriorityPlayerID = pid
}

// moveCardToZone is the single zone-move primitive. All invariant cleanup
// happens here: positional state is cleared when leaving the battlefield and
// tokens are deleted outright.
func (g *GameState) moveCardToZone(cardID string, to Zone, faceDown bool, pos *Position, faceIndex int) error {
	c := g.Card(cardID)
	if c == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", cardID)
	}
	from := c.Zone
	if from == ZoneBattlefield && to != ZoneBattlefield {
		c.Tapped = false
		c.Attacking = ""
		c.Blocking = nil
		c.AttachedTo = ""
		c.DamageMarked = 0
		c.Modifiers = nil
		c.Counters = nil
		c.Pos = nil
		// Unhook anything attached to the departing permanent.
		for _, other := range g.Cards {
			if other.AttachedTo == cardID {
				other.AttachedTo = ""
			}
		}
		if c.IsToken {
			g.AddLogWithCards(LogZone, "zone", g.Ref(cardID), "%s ceases to exist", c.Name)
			delete(g.Cards, cardID)
			return nil
		}
	}
	if to == ZoneBattlefield && from != ZoneBattlefield {
		c.ControlledSinceTurn = g.TurnCount
		c.DamageMarked = 0
		if c.HasType("Planeswalker") {
			c.Loyalty = c.BaseLoyalty
			if n := c.CounterCount("loyalty"); n == 0 && c.BaseLoyalty > 0 {
				c.Counters = append(c.Counters, CounterGroup{Type: "loyalty", Count: c.BaseLoyalty})
			}
		}
	}
	c.Zone = to
	c.FaceDown = faceDown
	if pos != nil {
		c.Pos = pos
	}
	if faceIndex >= 0 && faceIndex < len(c.Faces) {
		c.applyFace(faceIndex)
	}
	c.ZoneIndex = g.NextZoneIndex()
	if from != to {
		g.AddLogWithCards(LogZone, "zone", g.Ref(cardID), "%s moves from %s to %s", c.Name, from, to)
	}
	return nil
}

// applyFace switches a double-faced card's characteristics to the given face.
func (c *Card) applyFace(idx int) {
	if idx < 0 || idx >= len(c.Faces) {
		return
	}
	face := c.Faces[idx]
	c.ActiveFace = idx
	c.Name = face.Name
	c.ManaCost = face.ManaCost
	c.TypeLine = face.TypeLine
	c.OracleText = face.Text
	c.BasePower = face.Power
	c.BaseToughness = face.Toughness
	if face.ImageURL != "" {
		c.ImageURL = face.ImageURL
	}
	c.Supertypes, c.Types, c.Subtypes = ParseTypeLine(face.TypeLine)
}

// playLand handles a land drop: no stack, no cost, one per turn.
func (g *GameState) playLand(pid, cardID string) error {
	if g.PriorityPlayerID != pid {
		return NewRuleError(ErrNotYourPriority, "player %s does not have priority", pid)
	}
	if g.Phase != PhaseMain1 && g.Phase != PhaseMain2 {
		return NewRuleError(ErrWrongStep, "lands can only be played in a main phase")
	}
	if len(g.Stack) > 0 {
		return NewRuleError(ErrStackNotEmpty, "cannot play a land while the stack is not empty")
	}
	if g.LandsPlayedThisTurn >= 1 {
		return NewRuleError(ErrWrongStep, "already played a land this turn")
	}
	c := g.Card(cardID)
	if c == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", cardID)
	}
	if c.Zone != ZoneHand || c.OwnerID != pid {
		return NewRuleError(ErrCardNotInZone, "%s is not in %s's hand", c.Name, pid)
	}
	if !c.HasType("Land") {
		return NewRuleError(ErrInvalidTarget, "%s is not a land", c.Name)
	}

	c.ControllerID = pid
	if err := g.moveCardToZone(cardID, ZoneBattlefield, false, nil, -1); err != nil {
		return err
	}
	g.LandsPlayedThisTurn++
	g.AddLogWithCards(LogAction, "game", g.Ref(cardID), "%s plays %s", g.Player(pid).Name, c.Name)
	g.fireLandfallTriggers(pid, cardID)
	g.resetPriorityTo(pid)
	return nil
}

// castSpell validates speed and cost, pays mana, and pushes the spell.
func (g *GameState) castSpell(pid, cardID string, targets []string, pos *Position, faceIndex int) error {
	if g.PriorityPlayerID != pid {
		return NewRuleError(ErrNotYourPriority, "player %s does not have priority", pid)
	}
	c := g.Card(cardID)
	if c == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", cardID)
	}
	if c.Zone != ZoneHand || c.OwnerID != pid {
		return NewRuleError(ErrCardNotInZone, "%s is not in %s's hand", c.Name, pid)
	}
	if c.HasType("Land") {
		return NewRuleError(ErrInvalidTarget, "lands are played, not cast")
	}

	castName, castCost, castText := c.Name, c.ManaCost, c.OracleText
	if faceIndex >= 0 && faceIndex < len(c.Faces) {
		face := c.Faces[faceIndex]
		castName, castCost, castText = face.Name, face.ManaCost, face.Text
	}

	if !c.HasType("Instant") && !c.HasKeyword("Flash") {
		if pid != g.ActivePlayerID || (g.Phase != PhaseMain1 && g.Phase != PhaseMain2) || len(g.Stack) > 0 {
			return NewRuleError(ErrWrongStep, "%s can only be cast at sorcery speed", castName)
		}
	}

	for _, tid := range targets {
		if g.Card(tid) == nil && g.Player(tid) == nil {
			return NewRuleError(ErrInvalidTarget, "target %s not found", tid)
		}
	}

	cost, err := ParseManaCost(castCost)
	if err != nil {
		return err
	}
	if err := g.payCost(pid, cost); err != nil {
		return err
	}

	item := StackItem{
		ID:           uuid.NewString(),
		SourceID:     cardID,
		ControllerID: pid,
		Kind:         StackItemSpell,
		Name:         castName,
		Text:         castText,
		Targets:      targets,
		Pos:          pos,
		FaceIndex:    faceIndex,
	}
	g.Stack = append(g.Stack, item)
	if err := g.moveCardToZone(cardID, ZoneStack, false, nil, faceIndex); err != nil {
		return err
	}
	g.AddLogWithCards(LogAction, "game", g.Ref(cardID), "%s casts %s", g.Player(pid).Name, castName)
	g.resetPriorityTo(g.ActivePlayerID)
	return nil
}

// activateAbility pays an ability's costs and either resolves it immediately
// (mana abilities) or pushes it on the stack.
func (g *GameState) activateAbility(pid, sourceID string, abilityIndex int, targets []string) error {
	if g.PriorityPlayerID != pid {
		return NewRuleError(ErrNotYourPriority, "player %s does not have priority", pid)
	}
	src := g.Card(sourceID)
	if src == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", sourceID)
	}
	if src.Zone != ZoneBattlefield || src.ControllerID != pid {
		return NewRuleError(ErrCardNotInZone, "%s is not on the battlefield under %s's control", src.Name, pid)
	}

	hints := activatedAbilities(src)
	if abilityIndex < 0 || abilityIndex >= len(hints) {
		return NewRuleError(ErrInvalidTarget, "%s has no activated ability %d", src.Name, abilityIndex)
	}
	hint := hints[abilityIndex]

	costParts := parseActivationCost(hint.Cost)

	if costParts.isLoyalty {
		if src.Tapped {
			return NewRuleError(ErrWrongStep, "%s is tapped", src.Name)
		}
		for _, id := range g.LoyaltyActivated {
			if id == sourceID {
				return NewRuleError(ErrWrongStep, "%s already activated a loyalty ability this turn", src.Name)
			}
		}
		if pid != g.ActivePlayerID || (g.Phase != PhaseMain1 && g.Phase != PhaseMain2) || len(g.Stack) > 0 {
			return NewRuleError(ErrWrongStep, "loyalty abilities are sorcery-speed only")
		}
		if src.CounterCount("loyalty")+costParts.loyalty < 0 {
			return NewRuleError(ErrInvalidTarget, "not enough loyalty on %s", src.Name)
		}
	}
	if costParts.tap {
		if src.Tapped {
			return NewRuleError(ErrWrongStep, "%s is already tapped", src.Name)
		}
		if src.HasType("Creature") && src.ControlledSinceTurn == g.TurnCount && !src.HasKeyword("Haste") {
			return NewRuleError(ErrWrongStep, "%s has summoning sickness", src.Name)
		}
	}

	var mana *ManaCost
	if costParts.mana != "" {
		parsed, err := ParseManaCost(costParts.mana)
		if err != nil {
			return err
		}
		mana = parsed
	}

	// Validation complete; commit costs.
	if mana != nil {
		if err := g.payCost(pid, mana); err != nil {
			return err
		}
	}
	if costParts.tap {
		src.Tapped = true
	}
	if costParts.isLoyalty {
		g.adjustCounters(src, "loyalty", costParts.loyalty)
		g.LoyaltyActivated = append(g.LoyaltyActivated, sourceID)
	}
	if costParts.sacrificeSelf {
		if err := g.moveCardToZone(sourceID, ZoneGraveyard, false, nil, -1); err != nil {
			return err
		}
	}

	// Mana abilities resolve immediately without using the stack.
	if hint.Tag == oracle.EffectMana {
		for _, color := range AvailableManaColors(src) {
			g.Player(pid).ManaPool[color]++
			break
		}
		g.AddLogWithCards(LogAction, "game", g.Ref(sourceID), "%s taps %s for mana", g.Player(pid).Name, src.Name)
		return nil
	}

	item := StackItem{
		ID:           uuid.NewString(),
		SourceID:     sourceID,
		ControllerID: pid,
		Kind:         StackItemAbility,
		Name:         src.Name,
		Text:         hint.EffectText,
		Targets:      targets,
		AbilityIndex: abilityIndex,
	}
	g.Stack = append(g.Stack, item)
	g.AddLogWithCards(LogAction, "game", g.Ref(sourceID), "%s activates %s", g.Player(pid).Name, src.Name)
	g.resetPriorityTo(g.ActivePlayerID)
	return nil
}

// activatedAbilities lists the activated abilities of a card in oracle order.
func activatedAbilities(c *Card) []oracle.AbilityHint {
	var out []oracle.AbilityHint
	for _, h := range oracle.Parse(c.OracleText) {
		if h.Activated {
			out = append(out, h)
		}
	}
	return out
}

// activationCost is the decomposed cost side of an activated ability.
type activationCost struct {
	mana          string
	tap           bool
	sacrificeSelf bool
	isLoyalty     bool
	loyalty       int
}

// parseActivationCost decomposes cost text like "{1}{G}, {T}, Sacrifice
// this creature" or a loyalty cost like "+1" / "-3".
func parseActivationCost(cost string) activationCost {
	var out activationCost
	for _, part := range strings.Split(cost, ",") {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		switch {
		case part == "{T}" || lower == "{t}":
			out.tap = true
		case strings.HasPrefix(lower, "sacrifice"):
			out.sacrificeSelf = true
		case part == "0" || strings.HasPrefix(part, "+") || (strings.HasPrefix(part, "-") && !strings.Contains(part, "/")):
			if n, err := strconv.Atoi(part); err == nil {
				out.isLoyalty = true
				out.loyalty = n
			}
		case strings.HasPrefix(part, "{"):
			out.mana += part
		}
	}
	return out
}

// tapCard taps or untaps a card. Tapping an untapped basic land is auto-mana:
// one mana of the land's color is added to its controller's pool.
func (g *GameState) tapCard(pid, cardID string, tapped bool) error {
	c := g.Card(cardID)
	if c == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", cardID)
	}
	if c.Zone != ZoneBattlefield {
		return NewRuleError(ErrCardNotInZone, "%s is not on the battlefield", c.Name)
	}
	if c.Tapped == tapped {
		return nil
	}
	c.Tapped = tapped
	if tapped && c.HasType("Land") {
		colors := AvailableManaColors(c)
		if len(colors) == 1 {
			g.Player(c.ControllerID).ManaPool[colors[0]]++
			g.AddLogWithCards(LogAction, "game", g.Ref(cardID), "%s taps %s for {%s}", g.Player(pid).Name, c.Name, colors[0])
			return nil
		}
	}
	verb := "taps"
	if !tapped {
		verb = "untaps"
	}
	g.AddLogWithCards(LogAction, "game", g.Ref(cardID), "%s %s %s", g.Player(pid).Name, verb, c.Name)
	return nil
}

// drawCard moves the top library card to hand; drawing from an empty library
// marks the player as losing on the next state-based-action sweep.
func (g *GameState) drawCard(pid string) error {
	player := g.Player(pid)
	if player == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	top := g.TopOfLibrary(pid)
	if top == nil {
		player.HasLost = true
		g.AddLog(LogWarning, "game", "%s tries to draw from an empty library", player.Name)
		g.checkStateBasedActions()
		return nil
	}
	if err := g.moveCardToZone(top.ID, ZoneHand, false, nil, -1); err != nil {
		return err
	}
	g.AddLog(LogInfo, "game", "%s draws a card", player.Name)
	return nil
}

// changeLife adjusts a player's life total and runs the SBA sweep.
func (g *GameState) changeLife(pid string, delta int) error {
	player := g.Player(pid)
	if player == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	player.Life += delta
	if delta >= 0 {
		g.AddLog(LogInfo, "game", "%s gains %d life (now %d)", player.Name, delta, player.Life)
	} else {
		g.AddLog(LogInfo, "game", "%s loses %d life (now %d)", player.Name, -delta, player.Life)
	}
	g.checkStateBasedActions()
	return nil
}

// addMana adds one or more mana of a color to a player's pool.
func (g *GameState) addMana(pid string, color Color, amount int) error {
	player := g.Player(pid)
	if player == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	if amount <= 0 {
		amount = 1
	}
	player.ManaPool[color] += amount
	g.AddLog(LogInfo, "game", "%s adds {%s} x%d", player.Name, color, amount)
	return nil
}

// adjustCounters adds (or removes, for negative delta) counters of a type.
func (g *GameState) adjustCounters(c *Card, counterType string, delta int) {
	for i := range c.Counters {
		if c.Counters[i].Type == counterType {
			c.Counters[i].Count += delta
			if c.Counters[i].Count <= 0 {
				c.Counters = append(c.Counters[:i], c.Counters[i+1:]...)
			}
			return
		}
	}
	if delta > 0 {
		c.Counters = append(c.Counters, CounterGroup{Type: counterType, Count: delta})
	}
}

// addCounter is the exogenous counter mutator.
func (g *GameState) addCounter(cardID, counterType string, delta int) error {
	c := g.Card(cardID)
	if c == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", cardID)
	}
	g.adjustCounters(c, counterType, delta)
	g.AddLogWithCards(LogInfo, "game", g.Ref(cardID), "%s: %+d %s counter(s)", c.Name, delta, counterType)
	g.checkStateBasedActions()
	return nil
}

// TokenSpec describes a token to create.
type TokenSpec struct {
	Name      string   `json:"name"`
	TypeLine  string   `json:"typeLine"`
	Power     int      `json:"power"`
	Toughness int      `json:"toughness"`
	Colors    []string `json:"colors,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Count     int      `json:"count,omitempty"`
}

// createToken materializes token cards directly onto the battlefield.
func (g *GameState) createToken(pid string, spec TokenSpec) error {
	player := g.Player(pid)
	if player == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	count := spec.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		super, types, subs := ParseTypeLine(spec.TypeLine)
		token := &Card{
			ID:                  g.NewCardID(),
			OwnerID:             pid,
			ControllerID:        pid,
			Name:                spec.Name,
			Zone:                ZoneBattlefield,
			TypeLine:            spec.TypeLine,
			Types:               types,
			Subtypes:            subs,
			Supertypes:          super,
			BasePower:           spec.Power,
			BaseToughness:       spec.Toughness,
			Colors:              spec.Colors,
			Keywords:            spec.Keywords,
			ControlledSinceTurn: g.TurnCount,
			IsToken:             true,
			ZoneIndex:           g.NextZoneIndex(),
		}
		g.Cards[token.ID] = token
	}
	g.AddLog(LogSuccess, "game", "%s creates %d %s token(s)", player.Name, count, spec.Name)
	g.resetPriorityTo(g.ActivePlayerID)
	return nil
}

// shuffleLibrary permutes a player's library using the game RNG.
func (g *GameState) shuffleLibrary(pid string) {
	lib := g.CardsInZone(pid, ZoneLibrary)
	indexes := make([]int, len(lib))
	for i, c := range lib {
		indexes[i] = c.ZoneIndex
	}
	g.RNG().Shuffle(len(lib), func(i, j int) {
		lib[i], lib[j] = lib[j], lib[i]
	})
	for i, c := range lib {
		c.ZoneIndex = indexes[i]
	}
	g.AddLog(LogInfo, "game", "%s shuffles their library", g.Player(pid).Name)
}

// restartGame rewinds the match: non-token cards return to their owners'
// libraries, players reset to starting totals, turn one begins.
func (g *GameState) restartGame() error {
	for id, c := range g.Cards {
		if c.IsToken {
			delete(g.Cards, id)
			continue
		}
		c.Zone = ZoneLibrary
		c.Tapped = false
		c.FaceDown = true
		c.Attacking = ""
		c.Blocking = nil
		c.AttachedTo = ""
		c.DamageMarked = 0
		c.Counters = nil
		c.Modifiers = nil
		c.Pos = nil
		c.ControllerID = c.OwnerID
		c.ControlledSinceTurn = 0
		if len(c.Faces) > 0 {
			c.applyFace(0)
		}
	}
	for _, p := range g.Players {
		p.Life = StartingLife
		p.Poison = 0
		p.Energy = 0
		p.EmptyManaPool()
		p.HandKept = false
		p.MulliganCount = 0
		p.HasPassed = false
		p.HasLost = false
		p.StopRequested = false
	}
	g.Stack = nil
	g.TurnCount = 1
	g.Phase = PhaseSetup
	g.Step = StepMulligan
	g.PassedPriorityCount = 0
	g.LandsPlayedThisTurn = 0
	g.AttackersDeclared = false
	g.BlockersDeclared = false
	g.PendingChoice = nil
	g.DelayedTriggers = nil
	g.LoyaltyActivated = nil
	g.GameOver = false
	g.WinnerID = ""
	if len(g.TurnOrder) > 0 {
		g.ActivePlayerID = g.TurnOrder[0]
		g.PriorityPlayerID = g.TurnOrder[0]
		for _, p := range g.Players {
			p.IsActive = p.ID == g.ActivePlayerID
		}
	}
	for _, pid := range g.TurnOrder {
		g.shuffleLibrary(pid)
	}
	g.AddLog(LogInfo, "game", "game restarted")
	return nil
}

// checkStateBasedActions applies rule-enforced deaths and loss conditions:
// creatures with lethal damage die, players at 0 life / 10 poison / empty
// draw lose.
func (g *GameState) checkStateBasedActions() {
	// Lethal damage and zero toughness.
	for _, c := range g.Cards {
		if c.Zone != ZoneBattlefield || !c.HasType("Creature") {
			continue
		}
		toughness := c.CurrentToughness()
		if toughness <= 0 || c.DamageMarked >= toughness {
			g.AddLogWithCards(LogCombat, "sba", g.Ref(c.ID), "%s dies", c.Name)
			_ = g.moveCardToZone(c.ID, ZoneGraveyard, false, nil, -1)
		}
	}
	// Planeswalkers with no loyalty.
	for _, c := range g.Cards {
		if c.Zone == ZoneBattlefield && c.HasType("Planeswalker") && c.CounterCount("loyalty") <= 0 {
			g.AddLogWithCards(LogInfo, "sba", g.Ref(c.ID), "%s is put into its owner's graveyard", c.Name)
			_ = g.moveCardToZone(c.ID, ZoneGraveyard, false, nil, -1)
		}
	}
	// Player loss.
	for _, pid := range g.TurnOrder {
		p := g.Players[pid]
		if p.HasLost || p.Life <= 0 || p.Poison >= 10 {
			if !p.HasLost {
				p.HasLost = true
			}
			if !g.GameOver {
				g.GameOver = true
				if opp := g.OpponentOf(pid); opp != nil && !opp.HasLost {
					g.WinnerID = opp.ID
					g.AddLog(LogSuccess, "game", "%s wins the game", opp.Name)
				}
				g.AddLog(LogWarning, "game", "%s loses the game", p.Name)
			}
		}
	}
}
