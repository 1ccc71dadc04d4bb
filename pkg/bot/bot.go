// Package bot implements the built-in opponent. Decisions are heuristic
// scores over the visible game state; the bot plays through the same rules
// engine surface as a human client, so an illegal idea costs nothing but a
// rejected action.
package bot

import (
	"sort"
	"strings"

	"github.com/decred/slog"

	"manaforge/pkg/game"
	"manaforge/pkg/oracle"
)

// MaxIterations bounds how many actions a bot may take in a row before the
// dispatcher forces a priority pass. Guards against decision loops.
const MaxIterations = 50

// Bot chooses one action at a time for the player it is asked about.
type Bot struct {
	log slog.Logger
}

// New returns a bot using the given logger.
func New(log slog.Logger) *Bot {
	return &Bot{log: log}
}

// Act performs exactly one action for pid. It returns true when it took a
// game-changing action and false when it passed priority (or had nothing to
// do). Any rules rejection is downgraded to a priority pass so the game
// always keeps moving.
func (b *Bot) Act(e *game.RulesEngine, pid string) (bool, error) {
	g := e.State()
	if g.GameOver {
		return false, nil
	}

	if pc := g.PendingChoice; pc != nil {
		if pc.ChoosingID != pid {
			return false, nil
		}
		return true, e.RespondToChoice(pid, b.decideChoice(g, pc))
	}

	if g.Step == game.StepMulligan {
		return b.decideMulligan(e, pid)
	}

	if g.PriorityPlayerID != pid {
		return false, nil
	}

	acted, err := b.decideAction(e, pid)
	if err != nil {
		b.log.Warnf("bot %s action rejected, passing: %v", pid, err)
		return false, e.PassPriority(pid)
	}
	if !acted {
		return false, e.PassPriority(pid)
	}
	return true, nil
}

// decideMulligan keeps hands with a workable land count and mulligans the
// rest, never going below four cards.
func (b *Bot) decideMulligan(e *game.RulesEngine, pid string) (bool, error) {
	g := e.State()
	player := g.Player(pid)
	if player == nil || player.HandKept {
		return false, nil
	}
	hand := g.CardsInZone(pid, game.ZoneHand)
	lands := 0
	for _, c := range hand {
		if c.HasType("Land") {
			lands++
		}
	}
	keep := (lands >= 2 && lands <= 5) || player.MulliganCount >= 3
	if !keep {
		return true, e.ResolveMulligan(pid, false, nil)
	}
	// Bottom the most expensive spells when a free keep is not available.
	var bottom []string
	if player.MulliganCount > 0 {
		sorted := append([]*game.Card(nil), hand...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return cmcOf(sorted[i]) > cmcOf(sorted[j])
		})
		for _, c := range sorted {
			if len(bottom) == player.MulliganCount {
				break
			}
			bottom = append(bottom, c.ID)
		}
	}
	return true, e.ResolveMulligan(pid, true, bottom)
}

// decideAction picks the single best legal action for the current window.
func (b *Bot) decideAction(e *game.RulesEngine, pid string) (bool, error) {
	g := e.State()

	if g.Step == game.StepDeclareAttackers && g.ActivePlayerID == pid && !g.AttackersDeclared {
		return true, e.DeclareAttackers(pid, b.chooseAttacks(g, pid))
	}
	if g.Step == game.StepDeclareBlockers && g.ActivePlayerID != pid && !g.BlockersDeclared {
		return true, e.DeclareBlockers(pid, b.chooseBlocks(g, pid))
	}

	mainWindow := g.Step == game.StepMain && len(g.Stack) == 0 && g.ActivePlayerID == pid

	if mainWindow && g.LandsPlayedThisTurn == 0 {
		if land := b.chooseLand(g, pid); land != "" {
			return true, e.PlayLand(pid, land)
		}
	}

	if cardID, targets, ok := b.chooseSpell(g, pid, mainWindow); ok {
		return true, e.CastSpell(pid, cardID, targets, nil, 0)
	}

	return false, nil
}

// chooseLand returns the hand land whose produced colors overlap the most
// with the pips of the castable spells still in hand.
func (b *Bot) chooseLand(g *game.GameState, pid string) string {
	need := map[game.Color]int{}
	hand := g.CardsInZone(pid, game.ZoneHand)
	for _, c := range hand {
		if c.HasType("Land") || c.ManaCost == "" {
			continue
		}
		cost, err := game.ParseManaCost(c.ManaCost)
		if err != nil {
			continue
		}
		for color, n := range cost.Colors {
			need[color] += n
		}
	}

	bestID, bestScore := "", -1
	for _, c := range hand {
		if !c.HasType("Land") {
			continue
		}
		colors := game.AvailableManaColors(c)
		score := 0
		for _, color := range colors {
			if need[color] > 0 {
				score += need[color]
			}
		}
		if len(colors) > 1 {
			score++
		}
		if score > bestScore {
			bestID, bestScore = c.ID, score
		}
	}
	return bestID
}

// chooseSpell returns the best affordable spell in hand and its targets.
// Instants are considered in any priority window; everything else only in the
// caster's own main phase with an empty stack.
func (b *Bot) chooseSpell(g *game.GameState, pid string, mainWindow bool) (string, []string, bool) {
	bestID := ""
	bestScore := 0.0
	var bestTargets []string

	for _, c := range g.CardsInZone(pid, game.ZoneHand) {
		if c.HasType("Land") {
			continue
		}
		fast := c.HasType("Instant") || c.HasKeyword("Flash")
		if !fast && !mainWindow {
			continue
		}
		cost, err := game.ParseManaCost(c.ManaCost)
		if err != nil || !g.CanPayCost(pid, cost) {
			continue
		}
		score := b.scoreSpell(g, pid, c)
		if score <= 0 {
			continue
		}
		targets, ok := b.chooseTargets(g, pid, c)
		if !ok {
			continue
		}
		if score > bestScore {
			bestID, bestScore, bestTargets = c.ID, score, targets
		}
	}
	return bestID, bestTargets, bestID != ""
}

// scoreSpell rates a castable card. Creatures are valued by body and
// keywords; other spells by their classified effect against the board.
func (b *Bot) scoreSpell(g *game.GameState, pid string, c *game.Card) float64 {
	opp := g.OpponentOf(pid)

	if c.HasType("Creature") {
		score := float64(2*c.BasePower + c.BaseToughness)
		for kw, bonus := range map[string]float64{
			"Flying": 3, "Trample": 2, "Lifelink": 2,
			"Deathtouch": 3, "Haste": 2, "Unblockable": 4,
		} {
			if c.HasKeyword(kw) {
				score += bonus
			}
		}
		if oracle.HasETBTrigger(c.OracleText) {
			score += 3
		}
		return score - 0.5*float64(cmcOf(c))
	}

	switch oracle.ClassifyEffect(c.OracleText) {
	case oracle.EffectDestroy, oracle.EffectExile:
		score := 8.0
		if opp != nil && biggestCreature(g, opp.ID) != nil && biggestCreature(g, opp.ID).CurrentPower() >= 4 {
			score += 3
		}
		if opp == nil || len(g.CreaturesControlledBy(opp.ID)) == 0 {
			return 0
		}
		return score
	case oracle.EffectDamage:
		score := 5.0
		if opp != nil && opp.Life <= 10 {
			score += 3
		}
		return score
	case oracle.EffectDraw:
		return 4
	case oracle.EffectBoardWipe:
		if opp != nil && len(g.CreaturesControlledBy(opp.ID)) > len(g.CreaturesControlledBy(pid)) {
			return 10
		}
		return -5
	case oracle.EffectCounter:
		if top := g.TopOfStack(); top != nil && top.ControllerID != pid {
			return 8
		}
		return 0
	case oracle.EffectPump:
		if g.Phase == game.PhaseCombat && len(g.CreaturesControlledBy(pid)) > 0 {
			return 4
		}
		return 0
	case oracle.EffectToken, oracle.EffectLifeGain, oracle.EffectCounters:
		return 3
	case oracle.EffectLifeLoss, oracle.EffectDiscard, oracle.EffectBounce:
		return 4
	case oracle.EffectTutor:
		return 3
	default:
		return 1
	}
}

// chooseTargets binds targets for a spell up front so resolution does not
// suspend on a target choice the bot would answer anyway. Returns ok=false
// when the spell needs a target and none exists.
func (b *Bot) chooseTargets(g *game.GameState, pid string, c *game.Card) ([]string, bool) {
	if !oracle.RequiresTarget(c.OracleText) {
		return nil, true
	}
	opp := g.OpponentOf(pid)

	switch oracle.ClassifyEffect(c.OracleText) {
	case oracle.EffectDamage:
		if opp == nil {
			return nil, false
		}
		if oracle.TargetsAnyTarget(c.OracleText) && opp.Life <= oracle.DamageAmount(c.OracleText) {
			return []string{opp.ID}, true
		}
		if big := biggestCreature(g, opp.ID); big != nil && big.CurrentToughness() <= oracle.DamageAmount(c.OracleText) {
			return []string{big.ID}, true
		}
		if oracle.TargetsAnyTarget(c.OracleText) || oracle.TargetsPlayers(c.OracleText) {
			return []string{opp.ID}, true
		}
		if big := biggestCreature(g, opp.ID); big != nil {
			return []string{big.ID}, true
		}
		return nil, false
	case oracle.EffectDestroy, oracle.EffectExile, oracle.EffectBounce:
		if opp == nil {
			return nil, false
		}
		if big := biggestCreature(g, opp.ID); big != nil {
			return []string{big.ID}, true
		}
		return nil, false
	case oracle.EffectPump, oracle.EffectCounters:
		if own := biggestCreature(g, pid); own != nil {
			return []string{own.ID}, true
		}
		return nil, false
	case oracle.EffectCounter:
		if top := g.TopOfStack(); top != nil && top.ControllerID != pid {
			return []string{top.ID}, true
		}
		return nil, false
	default:
		if oracle.TargetsCreatures(c.OracleText) {
			if opp != nil {
				if big := biggestCreature(g, opp.ID); big != nil {
					return []string{big.ID}, true
				}
			}
			if own := biggestCreature(g, pid); own != nil {
				return []string{own.ID}, true
			}
			return nil, false
		}
		if opp != nil {
			return []string{opp.ID}, true
		}
		return nil, false
	}
}

// chooseAttacks sends every creature whose attack is lethal, unanswerable or
// at worst an even trade.
func (b *Bot) chooseAttacks(g *game.GameState, pid string) []game.AttackDeclaration {
	opp := g.OpponentOf(pid)
	if opp == nil {
		return nil
	}

	var blockers []*game.Card
	for _, c := range g.CreaturesControlledBy(opp.ID) {
		if !c.Tapped {
			blockers = append(blockers, c)
		}
	}
	totalPower := 0
	var candidates []*game.Card
	for _, c := range g.CreaturesControlledBy(pid) {
		if c.Tapped || c.Attacking != "" {
			continue
		}
		if c.ControlledSinceTurn >= g.TurnCount && !c.HasKeyword("Haste") {
			continue
		}
		if c.CurrentPower() <= 0 {
			continue
		}
		candidates = append(candidates, c)
		totalPower += c.CurrentPower()
	}

	allIn := totalPower >= opp.Life || len(blockers) == 0

	var attacks []game.AttackDeclaration
	for _, c := range candidates {
		if allIn || b.attackIsSafe(c, blockers) {
			attacks = append(attacks, game.AttackDeclaration{AttackerID: c.ID, TargetID: opp.ID})
		}
	}
	return attacks
}

// attackIsSafe reports whether no untapped defender can block profitably.
func (b *Bot) attackIsSafe(attacker *game.Card, blockers []*game.Card) bool {
	for _, blk := range blockers {
		if attacker.HasKeyword("Flying") && !blk.HasKeyword("Flying") && !blk.HasKeyword("Reach") {
			continue
		}
		dies := blk.CurrentPower() >= attacker.CurrentToughness() || blk.HasKeyword("Deathtouch")
		kills := attacker.CurrentPower() >= blk.CurrentToughness() || attacker.HasKeyword("Deathtouch")
		if dies && !kills {
			return false
		}
	}
	return true
}

// chooseBlocks blocks when the defender would otherwise die, and otherwise
// only takes trades that kill the attacker.
func (b *Bot) chooseBlocks(g *game.GameState, pid string) []game.BlockDeclaration {
	player := g.Player(pid)
	if player == nil {
		return nil
	}

	var attackers []*game.Card
	incoming := 0
	for _, c := range g.Cards {
		if c.Zone == game.ZoneBattlefield && c.Attacking == pid {
			attackers = append(attackers, c)
			incoming += c.CurrentPower()
		}
	}
	sort.SliceStable(attackers, func(i, j int) bool {
		return attackers[i].CurrentPower() > attackers[j].CurrentPower()
	})

	var free []*game.Card
	for _, c := range g.CreaturesControlledBy(pid) {
		if !c.Tapped && len(c.Blocking) == 0 {
			free = append(free, c)
		}
	}

	mustChump := incoming >= player.Life
	var blocks []game.BlockDeclaration
	for _, atk := range attackers {
		for i, blk := range free {
			if blk == nil {
				continue
			}
			if atk.HasKeyword("Flying") && !blk.HasKeyword("Flying") && !blk.HasKeyword("Reach") {
				continue
			}
			kills := blk.CurrentPower() >= atk.CurrentToughness() || blk.HasKeyword("Deathtouch")
			survives := blk.CurrentToughness() > atk.CurrentPower() && !atk.HasKeyword("Deathtouch")
			if mustChump || kills || survives {
				blocks = append(blocks, game.BlockDeclaration{BlockerID: blk.ID, AttackerID: atk.ID})
				free[i] = nil
				break
			}
		}
	}
	return blocks
}

// decideChoice answers a pending choice by kind with the same scoring the
// casting decision uses.
func (b *Bot) decideChoice(g *game.GameState, pc *game.PendingChoice) game.ChoiceResult {
	result := game.ChoiceResult{ChoiceID: pc.ID, Kind: pc.Kind}
	pid := pc.ChoosingID
	opp := g.OpponentOf(pid)

	switch pc.Kind {
	case game.ChoiceModeSelection, game.ChoiceAbilitySelection:
		n := pc.ExactCount
		if n == 0 {
			n = 1
		}
		opts := append([]game.ChoiceOption(nil), pc.Options...)
		sort.SliceStable(opts, func(i, j int) bool {
			return b.scoreOptionText(g, pid, opts[i].Text) > b.scoreOptionText(g, pid, opts[j].Text)
		})
		for i := 0; i < n && i < len(opts); i++ {
			result.OptionIDs = append(result.OptionIDs, opts[i].ID)
		}
	case game.ChoiceCardSelection:
		n := pc.ExactCount
		if n == 0 {
			n = pc.MinCount
		}
		if n == 0 && pc.MaxCount > 0 {
			n = pc.MaxCount
		}
		if n == 0 {
			n = 1
		}
		picked := b.rankSelectable(g, pid, pc)
		for i := 0; i < n && i < len(picked); i++ {
			result.CardIDs = append(result.CardIDs, picked[i])
		}
	case game.ChoiceTargetSelection:
		n := pc.ExactCount
		if n == 0 {
			n = 1
		}
		ranked := b.rankTargets(g, pid, pc)
		for i := 0; i < n && i < len(ranked); i++ {
			result.TargetIDs = append(result.TargetIDs, ranked[i])
		}
	case game.ChoicePlayerSelection:
		result.PlayerID = pid
		if opp != nil {
			for _, id := range pc.SelectableIDs {
				if id == opp.ID {
					result.PlayerID = opp.ID
				}
			}
		}
	case game.ChoiceYesNo:
		result.Yes = true
	case game.ChoiceOrderSelection:
		result.OrderedIDs = append([]string(nil), pc.SelectableIDs...)
	case game.ChoiceNumberSelection:
		if pc.MaxNumber > 0 {
			result.Number = pc.MaxNumber
		} else {
			result.Number = pc.MinNumber
		}
	}
	return result
}

// scoreOptionText rates one modal option line.
func (b *Bot) scoreOptionText(g *game.GameState, pid string, text string) float64 {
	proxy := &game.Card{OracleText: text}
	return b.scoreSpell(g, pid, proxy)
}

// rankSelectable orders a card selection best-first. Own cards are ranked by
// value (tutors, returns); opponent cards by how much the bot wants them gone
// (discard effects select for the opponent's loss).
func (b *Bot) rankSelectable(g *game.GameState, pid string, pc *game.PendingChoice) []string {
	ids := append([]string(nil), pc.SelectableIDs...)
	wantBest := true
	if strings.Contains(strings.ToLower(pc.Prompt), "discard") {
		wantBest = false
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ci, cj := g.Card(ids[i]), g.Card(ids[j])
		si, sj := 0.0, 0.0
		if ci != nil {
			si = b.scoreSpell(g, pid, ci)
		}
		if cj != nil {
			sj = b.scoreSpell(g, pid, cj)
		}
		if wantBest {
			return si > sj
		}
		return si < sj
	})
	return ids
}

// rankTargets orders legal targets best-first: opposing creatures by size,
// then the opponent, then own cards.
func (b *Bot) rankTargets(g *game.GameState, pid string, pc *game.PendingChoice) []string {
	opp := g.OpponentOf(pid)
	ids := append([]string(nil), pc.SelectableIDs...)
	value := func(id string) float64 {
		if opp != nil && id == opp.ID {
			return 50
		}
		if id == pid {
			return -10
		}
		c := g.Card(id)
		if c == nil {
			return 0
		}
		v := float64(2*c.CurrentPower() + c.CurrentToughness())
		if opp != nil && c.ControllerID == opp.ID {
			v += 100
		}
		return v
	}
	sort.SliceStable(ids, func(i, j int) bool { return value(ids[i]) > value(ids[j]) })
	return ids
}

// biggestCreature returns the highest-power creature a player controls.
func biggestCreature(g *game.GameState, pid string) *game.Card {
	var best *game.Card
	for _, c := range g.CreaturesControlledBy(pid) {
		if best == nil || c.CurrentPower() > best.CurrentPower() {
			best = c
		}
	}
	return best
}

// cmcOf is the converted cost of a card, zero when the cost does not parse.
func cmcOf(c *game.Card) int {
	if c.ManaCost == "" {
		return 0
	}
	cost, err := game.ParseManaCost(c.ManaCost)
	if err != nil {
		return 0
	}
	return cost.ConvertedCost()
}
