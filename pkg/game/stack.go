package game

import (
	"errors"
	"fmt"
	"strings"

	"manaforge/pkg/oracle"
)

// resolveTopStack resolves the top item of the stack. Resolution may suspend
// on a PendingChoice, in which case the item stays on top and nil is
// returned; the next respondToChoice re-enters here.
func (g *GameState) resolveTopStack() error {
	if g.PendingChoice != nil {
		return NewRuleError(ErrChoiceMismatch, "waiting for a pending choice")
	}
	top := g.TopOfStack()
	if top == nil {
		return NewRuleError(ErrWrongStep, "the stack is empty")
	}

	r := &resolver{g: g, item: top}
	err := r.run()
	if errors.Is(err, errSuspended) {
		return nil
	}
	if err != nil {
		return err
	}

	g.removeStackItem(top.ID)
	g.resetPriorityTo(g.ActivePlayerID)
	g.checkStateBasedActions()
	return nil
}

// removeStackItem deletes the item with the given id from the stack.
func (g *GameState) removeStackItem(id string) {
	for i := range g.Stack {
		if g.Stack[i].ID == id {
			g.Stack = append(g.Stack[:i], g.Stack[i+1:]...)
			return
		}
	}
}

// counterStackItem removes a spell from the stack and puts its source into
// its owner's graveyard without any effect.
func (g *GameState) counterStackItem(id string) {
	item := g.StackItemByID(id)
	if item == nil {
		return
	}
	// removeStackItem shifts the slice, so copy what the log and the
	// graveyard move need before the pointer goes stale.
	sourceID, name := item.SourceID, item.Name
	g.removeStackItem(id)
	if src := g.Card(sourceID); src != nil && src.Zone == ZoneStack {
		_ = g.moveCardToZone(src.ID, ZoneGraveyard, false, nil, -1)
	}
	g.AddLog(LogAction, "stack", "%s is countered", name)
}

// resolver walks one stack item's effect, replaying recorded choices and
// suspending when a new decision is needed.
type resolver struct {
	g        *GameState
	item     *StackItem
	consumed int
	// targetsUsed counts how many pre-bound targets have been consumed by
	// effect clauses so multi-clause spells walk the target list in order.
	targetsUsed int
}

// recordedChoice returns the next recorded choice result if one of the given
// kind is queued.
func (r *resolver) recordedChoice(kind ChoiceKind) (*ChoiceResult, bool) {
	if r.item.Resolution == nil {
		return nil, false
	}
	if r.consumed >= len(r.item.Resolution.ChoicesMade) {
		return nil, false
	}
	cr := &r.item.Resolution.ChoicesMade[r.consumed]
	if cr.Kind != kind {
		return nil, false
	}
	r.consumed++
	return cr, true
}

// needChoice replays a recorded result or suspends resolution on a new
// PendingChoice.
func (r *resolver) needChoice(b choiceBuilder) (*ChoiceResult, error) {
	if cr, ok := r.recordedChoice(b.kind); ok {
		return cr, nil
	}
	r.g.createChoice(r.item, b)
	return nil, errSuspended
}

// run resolves the item: permanents land on the battlefield, other spells
// and abilities interpret their effect text.
func (r *resolver) run() error {
	g, item := r.g, r.item
	src := g.Card(item.SourceID)

	if item.Kind == StackItemSpell && src != nil && isPermanentCard(src) {
		return r.resolvePermanent(src)
	}

	text := item.Text
	if oracle.IsModal(text) {
		modes := oracle.Modes(text)
		options := make([]ChoiceOption, len(modes))
		for i, m := range modes {
			options[i] = ChoiceOption{ID: fmt.Sprintf("mode_%d", i), Text: m}
		}
		var chosen []int
		if len(item.Modes) > 0 {
			chosen = item.Modes
		} else {
			cr, err := r.needChoice(choiceBuilder{
				kind:       ChoiceModeSelection,
				prompt:     "Choose a mode",
				chooser:    item.ControllerID,
				options:    options,
				exactCount: 1,
			})
			if err != nil {
				return err
			}
			for _, optID := range cr.OptionIDs {
				var idx int
				fmt.Sscanf(optID, "mode_%d", &idx)
				chosen = append(chosen, idx)
			}
		}
		for _, idx := range chosen {
			if idx >= 0 && idx < len(modes) {
				if err := r.applyEffect(modes[idx]); err != nil {
					return err
				}
			}
		}
	} else {
		if err := r.applyEffect(text); err != nil {
			return err
		}
	}

	// Spells that resolved as one-shot effects go to the graveyard.
	if item.Kind == StackItemSpell && src != nil && src.Zone == ZoneStack {
		if err := g.moveCardToZone(src.ID, ZoneGraveyard, false, nil, -1); err != nil {
			return err
		}
	}
	return nil
}

// resolvePermanent moves a resolving permanent spell onto the battlefield,
// attaches auras, and fires enters-the-battlefield triggers.
func (r *resolver) resolvePermanent(src *Card) error {
	g, item := r.g, r.item

	if src.HasSubtype("Aura") {
		targetID := ""
		if len(item.Targets) > 0 {
			targetID = item.Targets[0]
		}
		target := g.Card(targetID)
		if target == nil || target.Zone != ZoneBattlefield {
			// Aura with no legal object to enchant fizzles.
			g.AddLogWithCards(LogWarning, "stack", g.Ref(src.ID), "%s fizzles: no legal target", src.Name)
			return g.moveCardToZone(src.ID, ZoneGraveyard, false, nil, -1)
		}
		src.AttachedTo = targetID
	}

	src.ControllerID = item.ControllerID
	if err := g.moveCardToZone(src.ID, ZoneBattlefield, false, item.Pos, item.FaceIndex); err != nil {
		return err
	}
	g.AddLogWithCards(LogSuccess, "stack", g.Ref(src.ID), "%s resolves and enters the battlefield", src.Name)
	g.fireETBTriggers(src.ID)
	return nil
}

func isPermanentCard(c *Card) bool {
	for _, t := range []string{"Creature", "Artifact", "Enchantment", "Planeswalker", "Land", "Battle"} {
		if c.HasType(t) {
			return true
		}
	}
	return false
}

// resolveTarget returns the effect's target id, using pre-bound targets
// first and suspending on a target_selection choice otherwise. Fizzling
// (no legal target remains) returns ok=false, which is a rules outcome,
// not an error.
func (r *resolver) resolveTarget(text string) (string, bool, error) {
	item := r.item

	legal := r.legalTargets(text)
	if r.targetsUsed < len(item.Targets) {
		tid := item.Targets[r.targetsUsed]
		r.targetsUsed++
		for _, id := range legal {
			if id == tid {
				return tid, true, nil
			}
		}
		return "", false, nil
	}
	if len(legal) == 0 {
		return "", false, nil
	}
	cr, err := r.needChoice(choiceBuilder{
		kind:          ChoiceTargetSelection,
		prompt:        "Choose a target",
		chooser:       item.ControllerID,
		exactCount:    1,
		selectableIDs: legal,
	})
	if err != nil {
		return "", false, err
	}
	if len(cr.TargetIDs) == 0 {
		return "", false, nil
	}
	return cr.TargetIDs[0], true, nil
}

// legalTargets enumerates ids the effect text may target right now.
func (r *resolver) legalTargets(text string) []string {
	g := r.g
	var out []string
	wantsCreatures := oracle.TargetsCreatures(text) || oracle.TargetsAnyTarget(text)
	wantsPlayers := oracle.TargetsPlayers(text) || oracle.TargetsAnyTarget(text)
	if !oracle.RequiresTarget(text) {
		return nil
	}
	if !wantsCreatures && !wantsPlayers {
		// "target permanent", "target land" and similar: any battlefield card.
		for _, c := range g.Cards {
			if c.Zone == ZoneBattlefield {
				out = append(out, c.ID)
			}
		}
		sortIDs(out)
		return out
	}
	if wantsCreatures {
		var cards []*Card
		for _, c := range g.Cards {
			if c.Zone == ZoneBattlefield && c.HasType("Creature") {
				cards = append(cards, c)
			}
		}
		sortCardsStable(cards)
		for _, c := range cards {
			out = append(out, c.ID)
		}
	}
	if wantsPlayers {
		out = append(out, g.TurnOrder...)
	}
	return out
}

func sortIDs(ids []string) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// applyEffect interprets one clause of effect text. Unrecognized text is a
// logged no-op: oracle parsing is best-effort and must never corrupt state.
func (r *resolver) applyEffect(text string) error {
	g, item := r.g, r.item
	controller := g.Player(item.ControllerID)

	switch oracle.ClassifyEffect(text) {
	case oracle.EffectDamage:
		amount := oracle.DamageAmount(text)
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if !ok {
			g.AddLog(LogWarning, "stack", "%s fizzles: no legal target", item.Name)
			return nil
		}
		if p := g.Player(tid); p != nil {
			p.Life -= amount
			g.AddLog(LogAction, "stack", "%s deals %d damage to %s (now %d)", item.Name, amount, p.Name, p.Life)
		} else if c := g.Card(tid); c != nil {
			c.DamageMarked += amount
			g.AddLogWithCards(LogAction, "stack", g.Ref(c.ID), "%s deals %d damage to %s", item.Name, amount, c.Name)
		}

	case oracle.EffectDraw:
		n := oracle.DrawAmount(text)
		for i := 0; i < n; i++ {
			if err := g.drawCard(item.ControllerID); err != nil {
				return err
			}
		}

	case oracle.EffectDestroy:
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if !ok {
			g.AddLog(LogWarning, "stack", "%s fizzles: no legal target", item.Name)
			return nil
		}
		if c := g.Card(tid); c != nil && c.Zone == ZoneBattlefield {
			if c.HasKeyword("Indestructible") {
				g.AddLogWithCards(LogInfo, "stack", g.Ref(c.ID), "%s is indestructible", c.Name)
			} else {
				g.AddLogWithCards(LogAction, "stack", g.Ref(c.ID), "%s destroys %s", item.Name, c.Name)
				if err := g.moveCardToZone(tid, ZoneGraveyard, false, nil, -1); err != nil {
					return err
				}
			}
		}

	case oracle.EffectExile:
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if !ok {
			g.AddLog(LogWarning, "stack", "%s fizzles: no legal target", item.Name)
			return nil
		}
		if c := g.Card(tid); c != nil {
			g.AddLogWithCards(LogAction, "stack", g.Ref(c.ID), "%s exiles %s", item.Name, c.Name)
			if err := g.moveCardToZone(tid, ZoneExile, false, nil, -1); err != nil {
				return err
			}
		}

	case oracle.EffectBounce:
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if !ok {
			g.AddLog(LogWarning, "stack", "%s fizzles: no legal target", item.Name)
			return nil
		}
		if c := g.Card(tid); c != nil {
			g.AddLogWithCards(LogAction, "stack", g.Ref(c.ID), "%s returns %s to its owner's hand", item.Name, c.Name)
			if err := g.moveCardToZone(tid, ZoneHand, false, nil, -1); err != nil {
				return err
			}
		}

	case oracle.EffectCounter:
		// Counter the topmost other spell on the stack, or the pre-bound
		// target when one was chosen at cast time.
		targetItemID := ""
		if len(item.Targets) > 0 {
			targetItemID = item.Targets[0]
		} else {
			for i := len(g.Stack) - 1; i >= 0; i-- {
				if g.Stack[i].ID != item.ID && g.Stack[i].Kind == StackItemSpell {
					targetItemID = g.Stack[i].ID
					break
				}
			}
		}
		if g.StackItemByID(targetItemID) == nil {
			g.AddLog(LogWarning, "stack", "%s fizzles: nothing to counter", item.Name)
			return nil
		}
		g.counterStackItem(targetItemID)

	case oracle.EffectPump:
		power, toughness, _ := oracle.PumpAmount(text)
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if !ok {
			g.AddLog(LogWarning, "stack", "%s fizzles: no legal target", item.Name)
			return nil
		}
		if c := g.Card(tid); c != nil && c.Zone == ZoneBattlefield {
			c.Modifiers = append(c.Modifiers, Modifier{
				SourceID:       item.SourceID,
				Kind:           ModPTBoost,
				Power:          power,
				Toughness:      toughness,
				UntilEndOfTurn: strings.Contains(strings.ToLower(text), "until end of turn"),
			})
			g.AddLogWithCards(LogAction, "stack", g.Ref(c.ID), "%s gets %+d/%+d", c.Name, power, toughness)
		}

	case oracle.EffectToken:
		spec := tokenSpecFromText(text)
		if err := g.createToken(item.ControllerID, spec); err != nil {
			return err
		}

	case oracle.EffectLifeGain:
		n := oracle.LifeAmount(text)
		controller.Life += n
		g.AddLog(LogAction, "stack", "%s gains %d life (now %d)", controller.Name, n, controller.Life)

	case oracle.EffectLifeLoss:
		n := oracle.LifeAmount(text)
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if ok {
			if p := g.Player(tid); p != nil {
				p.Life -= n
				g.AddLog(LogAction, "stack", "%s loses %d life (now %d)", p.Name, n, p.Life)
			}
		}

	case oracle.EffectBoardWipe:
		var doomed []*Card
		for _, c := range g.Cards {
			if c.Zone == ZoneBattlefield && c.HasType("Creature") && !c.HasKeyword("Indestructible") {
				doomed = append(doomed, c)
			}
		}
		sortCardsStable(doomed)
		g.AddLog(LogAction, "stack", "%s destroys all creatures", item.Name)
		for _, c := range doomed {
			if err := g.moveCardToZone(c.ID, ZoneGraveyard, false, nil, -1); err != nil {
				return err
			}
		}

	case oracle.EffectCounters:
		tid, ok, err := r.resolveTarget(text)
		if err != nil {
			return err
		}
		if ok {
			if c := g.Card(tid); c != nil {
				g.adjustCounters(c, "+1/+1", 1)
				g.AddLogWithCards(LogAction, "stack", g.Ref(c.ID), "%s puts a +1/+1 counter on %s", item.Name, c.Name)
			}
		}

	case oracle.EffectTutor:
		lib := g.CardsInZone(item.ControllerID, ZoneLibrary)
		ids := make([]string, len(lib))
		for i, c := range lib {
			ids[i] = c.ID
		}
		cr, err := r.needChoice(choiceBuilder{
			kind:          ChoiceCardSelection,
			prompt:        "Search your library for a card",
			chooser:       item.ControllerID,
			maxCount:      1,
			filter:        &ChoiceFilter{Zones: []Zone{ZoneLibrary}, ControllerID: item.ControllerID},
			selectableIDs: ids,
			revealedIDs:   ids,
		})
		if err != nil {
			return err
		}
		for _, id := range cr.CardIDs {
			if err := g.moveCardToZone(id, ZoneHand, false, nil, -1); err != nil {
				return err
			}
		}
		g.shuffleLibrary(item.ControllerID)

	case oracle.EffectDiscard:
		opp := g.OpponentOf(item.ControllerID)
		if opp == nil {
			return nil
		}
		hand := g.CardsInZone(opp.ID, ZoneHand)
		if len(hand) == 0 {
			return nil
		}
		ids := make([]string, len(hand))
		for i, c := range hand {
			ids[i] = c.ID
		}
		cr, err := r.needChoice(choiceBuilder{
			kind:          ChoiceCardSelection,
			prompt:        "Choose a card to discard",
			chooser:       opp.ID,
			exactCount:    1,
			filter:        &ChoiceFilter{Zones: []Zone{ZoneHand}, ControllerID: opp.ID},
			selectableIDs: ids,
		})
		if err != nil {
			return err
		}
		for _, id := range cr.CardIDs {
			if err := g.moveCardToZone(id, ZoneGraveyard, false, nil, -1); err != nil {
				return err
			}
		}

	default:
		// Delayed trigger creation ("at the beginning of the next end step").
		lower := strings.ToLower(text)
		if strings.Contains(lower, "at the beginning of the next end step") {
			g.DelayedTriggers = append(g.DelayedTriggers, DelayedTrigger{
				ID:           fmt.Sprintf("dt_%s", item.ID),
				SourceID:     item.SourceID,
				ControllerID: item.ControllerID,
				Step:         StepEnd,
				Text:         afterClause(text, "at the beginning of the next end step"),
				OneShot:      true,
				MinTurn:      g.TurnCount,
			})
			g.AddLog(LogInfo, "stack", "%s sets up a delayed trigger", item.Name)
			return nil
		}
		g.AddLog(LogInfo, "stack", "%s resolves", item.Name)
	}
	return nil
}

// afterClause returns the text following the given marker clause.
func afterClause(text, marker string) string {
	idx := strings.Index(strings.ToLower(text), marker)
	if idx < 0 {
		return text
	}
	rest := strings.TrimLeft(text[idx+len(marker):], ", ")
	return rest
}

// tokenSpecFromText derives a token to create from effect text, defaulting
// to a 1/1 when the wording is not understood.
func tokenSpecFromText(text string) TokenSpec {
	spec := TokenSpec{Name: "Token", TypeLine: "Token Creature", Power: 1, Toughness: 1, Count: 1}
	var p, t int
	if _, err := fmt.Sscanf(findPTClause(text), "%d/%d", &p, &t); err == nil {
		spec.Power, spec.Toughness = p, t
	}
	lower := strings.ToLower(text)
	for _, word := range []string{"two ", "three ", "four "} {
		if strings.Contains(lower, word+"tokens") || strings.Contains(lower, word) && strings.Contains(lower, "token") {
			switch word {
			case "two ":
				spec.Count = 2
			case "three ":
				spec.Count = 3
			case "four ":
				spec.Count = 4
			}
			break
		}
	}
	return spec
}

// findPTClause extracts an "N/M" fragment from token wording.
func findPTClause(text string) string {
	for _, f := range strings.Fields(text) {
		if strings.Count(f, "/") == 1 {
			clean := strings.Trim(f, ",.")
			if len(clean) >= 3 && clean[0] >= '0' && clean[0] <= '9' {
				return clean
			}
		}
	}
	return ""
}
