package game

import "github.com/google/uuid"

// stepOrder fixes the step sequence within each phase.
var stepOrder = map[Phase][]Step{
	PhaseSetup:     {StepMulligan},
	PhaseBeginning: {StepUntap, StepUpkeep, StepDraw},
	PhaseMain1:     {StepMain},
	PhaseCombat:    {StepBeginningCombat, StepDeclareAttackers, StepDeclareBlockers, StepCombatDamage, StepEndCombat},
	PhaseMain2:     {StepMain},
	PhaseEnding:    {StepEnd, StepCleanup},
}

// phaseOrder fixes the phase sequence within a turn.
var phaseOrder = []Phase{PhaseBeginning, PhaseMain1, PhaseCombat, PhaseMain2, PhaseEnding}

// advanceStep moves to the next step (or phase, or turn), emptying mana
// pools and resetting pass bookkeeping at the boundary, then performs the
// new step's turn-based actions.
func (g *GameState) advanceStep() {
	g.atStepBoundary()

	steps := stepOrder[g.Phase]
	idx := -1
	for i, s := range steps {
		if s == g.Step {
			idx = i
			break
		}
	}

	if idx >= 0 && idx+1 < len(steps) {
		g.setStep(g.Phase, steps[idx+1])
		return
	}

	// Phase exhausted: next phase, or next turn after cleanup.
	if g.Phase == PhaseSetup {
		g.setStep(PhaseBeginning, StepUntap)
		return
	}
	for i, ph := range phaseOrder {
		if ph == g.Phase {
			if i+1 < len(phaseOrder) {
				next := phaseOrder[i+1]
				g.setStep(next, stepOrder[next][0])
			} else {
				g.advanceTurn()
			}
			return
		}
	}
}

// atStepBoundary empties every mana pool and clears pass flags. Runs before
// any step or turn transition.
func (g *GameState) atStepBoundary() {
	for _, p := range g.Players {
		p.EmptyManaPool()
		p.HasPassed = false
		p.StopRequested = false
	}
	g.PassedPriorityCount = 0
}

// setStep enters a phase/step, applies skip rules, runs turn-based actions
// and delayed triggers.
func (g *GameState) setStep(phase Phase, step Step) {
	// Skip rules for declare_blockers.
	if step == StepDeclareBlockers {
		if !g.AttackersDeclared || !g.anyAttackers() {
			g.Phase = PhaseCombat
			g.Step = StepEndCombat
			g.AddLog(LogCombat, "phase", "no attackers; skipping to end of combat")
			g.performTurnBasedActions()
			return
		}
		if !g.defenderHasUntappedCreatures() {
			g.Phase = PhaseCombat
			g.Step = StepCombatDamage
			g.AddLog(LogCombat, "phase", "defender has no untapped creatures; skipping to combat damage")
			g.performTurnBasedActions()
			return
		}
	}
	g.Phase = phase
	g.Step = step
	g.AddLog(LogInfo, "phase", "%s — %s", phase, step)
	g.performTurnBasedActions()
}

func (g *GameState) anyAttackers() bool {
	for _, c := range g.Cards {
		if c.Zone == ZoneBattlefield && c.Attacking != "" {
			return true
		}
	}
	return false
}

func (g *GameState) defenderHasUntappedCreatures() bool {
	defender := g.NextInTurnOrder(g.ActivePlayerID)
	for _, c := range g.CreaturesControlledBy(defender) {
		if !c.Tapped {
			return true
		}
	}
	return false
}

// advanceTurn rotates the active player and starts the next turn at untap.
func (g *GameState) advanceTurn() {
	g.TurnCount++
	g.LandsPlayedThisTurn = 0
	g.LoyaltyActivated = nil
	next := g.NextInTurnOrder(g.ActivePlayerID)
	g.ActivePlayerID = next
	for _, p := range g.Players {
		p.IsActive = p.ID == next
	}
	g.PriorityPlayerID = next
	g.AddLog(LogInfo, "phase", "turn %d — %s", g.TurnCount, g.Player(next).Name)
	g.setStep(PhaseBeginning, StepUntap)
}

// performTurnBasedActions runs the automatic actions of the current step.
func (g *GameState) performTurnBasedActions() {
	g.fireDelayedTriggers()

	switch g.Step {
	case StepMulligan:
		// Deal opening hands to anyone who has not seen one yet.
		for _, pid := range g.TurnOrder {
			p := g.Players[pid]
			if !p.HandKept && len(g.CardsInZone(pid, ZoneHand)) == 0 {
				g.shuffleLibrary(pid)
				for i := 0; i < 7-p.MulliganCount; i++ {
					_ = g.drawCard(pid)
				}
			}
		}
		if g.allHandsKept() {
			g.advanceStep()
		}

	case StepUntap:
		for _, c := range g.BattlefieldControlledBy(g.ActivePlayerID) {
			c.Tapped = false
		}
		g.AddLog(LogInfo, "phase", "%s untaps", g.Player(g.ActivePlayerID).Name)
		// Untap grants no priority; move straight to upkeep.
		g.setStep(PhaseBeginning, StepUpkeep)

	case StepDraw:
		// The player going first skips their first draw in two-player games.
		if g.TurnCount == 1 && len(g.TurnOrder) == 2 {
			g.AddLog(LogInfo, "phase", "%s skips the first draw", g.Player(g.ActivePlayerID).Name)
		} else {
			_ = g.drawCard(g.ActivePlayerID)
		}
		g.resetPriorityTo(g.ActivePlayerID)

	case StepCleanup:
		for _, c := range g.Cards {
			if c.Zone != ZoneBattlefield {
				continue
			}
			c.DamageMarked = 0
			c.Attacking = ""
			c.Blocking = nil
			kept := c.Modifiers[:0]
			for _, m := range c.Modifiers {
				if !m.UntilEndOfTurn {
					kept = append(kept, m)
				}
			}
			c.Modifiers = kept
		}
		g.AttackersDeclared = false
		g.BlockersDeclared = false
		g.advanceTurn()

	case StepDeclareBlockers:
		// Defender gets priority to declare.
		defender := g.NextInTurnOrder(g.ActivePlayerID)
		g.resetPriorityTo(defender)

	case StepCombatDamage:
		g.resolveCombatDamage()
		g.resetPriorityTo(g.ActivePlayerID)

	default:
		g.resetPriorityTo(g.ActivePlayerID)
	}
}

func (g *GameState) allHandsKept() bool {
	for _, pid := range g.TurnOrder {
		if !g.Players[pid].HandKept {
			return false
		}
	}
	return len(g.TurnOrder) > 0
}

// passPriority records a pass. When every seat has passed in succession the
// top of the stack resolves, or the step advances if the stack is empty.
func (g *GameState) passPriority(pid string) error {
	if g.PriorityPlayerID != pid {
		return NewRuleError(ErrNotYourPriority, "player %s does not have priority", pid)
	}
	player := g.Player(pid)
	player.HasPassed = true
	g.PassedPriorityCount++

	if g.PassedPriorityCount >= len(g.TurnOrder) {
		if len(g.Stack) > 0 {
			return g.resolveTopStack()
		}
		g.advanceStep()
		return nil
	}
	g.PriorityPlayerID = g.NextInTurnOrder(pid)
	return nil
}

// fireDelayedTriggers puts matching delayed triggers on the stack and prunes
// one-shot entries.
func (g *GameState) fireDelayedTriggers() {
	if len(g.DelayedTriggers) == 0 {
		return
	}
	var kept []DelayedTrigger
	for _, dt := range g.DelayedTriggers {
		matches := (dt.Step == "" || dt.Step == g.Step) &&
			(dt.Phase == "" || dt.Phase == g.Phase) &&
			g.TurnCount >= dt.MinTurn
		if !matches {
			kept = append(kept, dt)
			continue
		}
		item := StackItem{
			ID:           uuid.NewString(),
			SourceID:     dt.SourceID,
			ControllerID: dt.ControllerID,
			Kind:         StackItemTrigger,
			Name:         "Delayed trigger",
			Text:         dt.Text,
		}
		if src := g.Card(dt.SourceID); src != nil {
			item.Name = src.Name
		}
		g.Stack = append(g.Stack, item)
		g.AddLog(LogInfo, "trigger", "delayed trigger from %s goes on the stack", item.Name)
		g.resetPriorityTo(g.ActivePlayerID)
		if !dt.OneShot {
			kept = append(kept, dt)
		}
	}
	g.DelayedTriggers = kept
}
