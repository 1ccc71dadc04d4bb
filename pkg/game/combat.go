package game

// AttackDeclaration pairs an attacker with the player or planeswalker it
// attacks.
type AttackDeclaration struct {
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
}

// BlockDeclaration assigns a blocker to one attacker.
type BlockDeclaration struct {
	BlockerID  string `json:"blockerId"`
	AttackerID string `json:"attackerId"`
}

// declareAttackers validates and commits the active player's attack.
func (g *GameState) declareAttackers(pid string, attacks []AttackDeclaration) error {
	if pid != g.ActivePlayerID {
		return NewRuleError(ErrNotYourTurn, "only the active player declares attackers")
	}
	if g.Step != StepDeclareAttackers {
		return NewRuleError(ErrWrongStep, "not the declare attackers step")
	}
	if g.AttackersDeclared {
		return NewRuleError(ErrWrongStep, "attackers already declared")
	}

	// Validate everything before touching state.
	for _, a := range attacks {
		c := g.Card(a.AttackerID)
		if c == nil {
			return NewRuleError(ErrCardNotFound, "attacker %s not found", a.AttackerID)
		}
		if c.Zone != ZoneBattlefield || c.ControllerID != pid {
			return NewRuleError(ErrCardNotInZone, "%s is not on your battlefield", c.Name)
		}
		if !c.HasType("Creature") {
			return NewRuleError(ErrInvalidTarget, "%s is not a creature", c.Name)
		}
		if c.Tapped {
			return NewRuleError(ErrInvalidTarget, "%s is tapped", c.Name)
		}
		if c.ControlledSinceTurn == g.TurnCount && !c.HasKeyword("Haste") {
			return NewRuleError(ErrInvalidTarget, "%s has summoning sickness", c.Name)
		}
		if g.Player(a.TargetID) == nil {
			t := g.Card(a.TargetID)
			if t == nil || t.Zone != ZoneBattlefield || !t.HasType("Planeswalker") {
				return NewRuleError(ErrInvalidTarget, "%s is not a player or planeswalker", a.TargetID)
			}
		}
	}

	for _, a := range attacks {
		c := g.Card(a.AttackerID)
		c.Attacking = a.TargetID
		if !c.HasKeyword("Vigilance") {
			c.Tapped = true
		}
		g.AddLogWithCards(LogCombat, "combat", g.Ref(c.ID), "%s attacks", c.Name)
		g.fireAttackTriggers(pid, c.ID)
	}
	g.AttackersDeclared = true
	if len(attacks) > 0 {
		g.AddLog(LogCombat, "combat", "%s attacks with %d creature(s)", g.Player(pid).Name, len(attacks))
	} else {
		g.AddLog(LogCombat, "combat", "%s declares no attackers", g.Player(pid).Name)
	}
	g.resetPriorityTo(pid)
	return nil
}

// declareBlockers validates and commits the defender's blocks.
func (g *GameState) declareBlockers(pid string, blocks []BlockDeclaration) error {
	if pid == g.ActivePlayerID {
		return NewRuleError(ErrNotYourTurn, "the active player cannot block")
	}
	if g.Step != StepDeclareBlockers {
		return NewRuleError(ErrWrongStep, "not the declare blockers step")
	}
	if g.BlockersDeclared {
		return NewRuleError(ErrWrongStep, "blockers already declared")
	}

	blockersPerAttacker := make(map[string][]string)
	for _, b := range blocks {
		blocker := g.Card(b.BlockerID)
		if blocker == nil {
			return NewRuleError(ErrCardNotFound, "blocker %s not found", b.BlockerID)
		}
		if blocker.Zone != ZoneBattlefield || blocker.ControllerID != pid {
			return NewRuleError(ErrCardNotInZone, "%s is not on your battlefield", blocker.Name)
		}
		if !blocker.HasType("Creature") || blocker.Tapped {
			return NewRuleError(ErrInvalidTarget, "%s cannot block", blocker.Name)
		}
		attacker := g.Card(b.AttackerID)
		if attacker == nil || attacker.Attacking == "" {
			return NewRuleError(ErrInvalidTarget, "%s is not attacking", b.AttackerID)
		}
		if attacker.HasKeyword("Flying") && !blocker.HasKeyword("Flying") && !blocker.HasKeyword("Reach") {
			return NewRuleError(ErrInvalidTarget, "%s cannot block a flyer", blocker.Name)
		}
		blockersPerAttacker[b.AttackerID] = append(blockersPerAttacker[b.AttackerID], b.BlockerID)
	}
	for attackerID, blockers := range blockersPerAttacker {
		attacker := g.Card(attackerID)
		if attacker.HasKeyword("Menace") && len(blockers) < 2 {
			return NewRuleError(ErrInvalidTarget, "%s must be blocked by two or more creatures", attacker.Name)
		}
	}

	for _, b := range blocks {
		blocker := g.Card(b.BlockerID)
		blocker.Blocking = append(blocker.Blocking, b.AttackerID)
		g.AddLogWithCards(LogCombat, "combat", g.Ref(blocker.ID), "%s blocks %s", blocker.Name, g.Card(b.AttackerID).Name)
	}
	g.BlockersDeclared = true
	g.resetPriorityTo(g.ActivePlayerID)
	return nil
}

// blockersOf returns the creatures blocking the given attacker, in block
// declaration order.
func (g *GameState) blockersOf(attackerID string) []*Card {
	var out []*Card
	for _, c := range g.Cards {
		for _, id := range c.Blocking {
			if id == attackerID {
				out = append(out, c)
			}
		}
	}
	sortCardsStable(out)
	return out
}

// resolveCombatDamage assigns and applies all combat damage, with a first
// strike sub-step before normal damage, then sweeps state-based actions.
func (g *GameState) resolveCombatDamage() {
	var attackers []*Card
	for _, c := range g.Cards {
		if c.Zone == ZoneBattlefield && c.Attacking != "" {
			attackers = append(attackers, c)
		}
	}
	sortCardsStable(attackers)
	if len(attackers) == 0 {
		return
	}

	firstStrike := false
	for _, a := range attackers {
		if a.HasKeyword("First strike") || a.HasKeyword("Double strike") {
			firstStrike = true
		}
		for _, b := range g.blockersOf(a.ID) {
			if b.HasKeyword("First strike") || b.HasKeyword("Double strike") {
				firstStrike = true
			}
		}
	}

	if firstStrike {
		g.AddLog(LogCombat, "combat", "first strike damage")
		g.dealCombatDamageWave(attackers, true)
		g.checkStateBasedActions()
	}
	g.dealCombatDamageWave(attackers, false)
	g.checkStateBasedActions()
}

// dealCombatDamageWave runs one damage sub-step. During the first strike
// wave only first/double strikers deal damage; in the normal wave double
// strikers hit again and plain first strikers stay silent.
func (g *GameState) dealCombatDamageWave(attackers []*Card, firstStrikeWave bool) {
	dealsNow := func(c *Card) bool {
		if firstStrikeWave {
			return c.HasKeyword("First strike") || c.HasKeyword("Double strike")
		}
		return !c.HasKeyword("First strike") || c.HasKeyword("Double strike")
	}

	for _, attacker := range attackers {
		if attacker.Zone != ZoneBattlefield || attacker.Attacking == "" {
			continue
		}
		blockers := g.blockersOf(attacker.ID)
		power := attacker.CurrentPower()

		if len(blockers) == 0 {
			if dealsNow(attacker) && power > 0 {
				g.dealDamageToTarget(attacker, attacker.Attacking, power)
			}
			continue
		}

		// Blocked: assign in declared order, tramplers spill over.
		if dealsNow(attacker) {
			remaining := power
			for _, blocker := range blockers {
				if remaining <= 0 {
					break
				}
				lethal := blocker.CurrentToughness() - blocker.DamageMarked
				if attacker.HasKeyword("Deathtouch") {
					lethal = 1
				}
				assign := remaining
				if attacker.HasKeyword("Trample") && assign > lethal {
					assign = lethal
				}
				if assign > 0 {
					g.dealDamageToCreature(attacker, blocker, assign)
					remaining -= assign
				}
			}
			if attacker.HasKeyword("Trample") && remaining > 0 {
				g.dealDamageToTarget(attacker, attacker.Attacking, remaining)
			}
		}
		for _, blocker := range blockers {
			if blocker.Zone == ZoneBattlefield && dealsNow(blocker) && blocker.CurrentPower() > 0 {
				g.dealDamageToCreature(blocker, attacker, blocker.CurrentPower())
			}
		}
	}
}

// dealDamageToTarget routes damage to a player or planeswalker by id.
func (g *GameState) dealDamageToTarget(source *Card, targetID string, amount int) {
	if p := g.Player(targetID); p != nil {
		p.Life -= amount
		g.AddLogWithCards(LogCombat, "combat", g.Ref(source.ID), "%s deals %d damage to %s (now %d)", source.Name, amount, p.Name, p.Life)
		if source.HasKeyword("Lifelink") {
			g.Player(source.ControllerID).Life += amount
			g.AddLog(LogInfo, "combat", "%s gains %d life from lifelink", g.Player(source.ControllerID).Name, amount)
		}
		if source.HasKeyword("Infect") {
			p.Poison += amount
		}
		return
	}
	if pw := g.Card(targetID); pw != nil && pw.Zone == ZoneBattlefield && pw.HasType("Planeswalker") {
		g.adjustCounters(pw, "loyalty", -amount)
		g.AddLogWithCards(LogCombat, "combat", g.Ref(source.ID), "%s deals %d damage to %s", source.Name, amount, pw.Name)
	}
}

// dealDamageToCreature marks damage on a creature, honoring lifelink and
// deathtouch bookkeeping.
func (g *GameState) dealDamageToCreature(source, target *Card, amount int) {
	target.DamageMarked += amount
	if source.HasKeyword("Deathtouch") && amount > 0 {
		// Any deathtouch damage is lethal: mark up to toughness.
		if target.DamageMarked < target.CurrentToughness() {
			target.DamageMarked = target.CurrentToughness()
		}
	}
	if source.HasKeyword("Lifelink") {
		g.Player(source.ControllerID).Life += amount
	}
	g.AddLogWithCards(LogCombat, "combat", g.Ref(source.ID), "%s deals %d damage to %s", source.Name, amount, target.Name)
}
