package game

import (
	"strings"

	"github.com/google/uuid"

	"manaforge/pkg/oracle"
)

// pushTrigger puts a triggered ability on the stack and resets priority.
func (g *GameState) pushTrigger(sourceID, controllerID, text string) {
	name := "Triggered ability"
	if src := g.Card(sourceID); src != nil {
		name = src.Name
	}
	g.Stack = append(g.Stack, StackItem{
		ID:           uuid.NewString(),
		SourceID:     sourceID,
		ControllerID: controllerID,
		Kind:         StackItemTrigger,
		Name:         name,
		Text:         text,
	})
	g.AddLogWithCards(LogInfo, "trigger", g.Ref(sourceID), "triggered ability of %s goes on the stack", name)
	g.resetPriorityTo(g.ActivePlayerID)
}

// fireETBTriggers raises the enters-the-battlefield triggers of a permanent
// that just arrived.
func (g *GameState) fireETBTriggers(cardID string) {
	c := g.Card(cardID)
	if c == nil {
		return
	}
	for _, hint := range oracle.Parse(c.OracleText) {
		if !hint.Triggered {
			continue
		}
		cond := strings.ToLower(hint.TriggerCondition)
		if strings.Contains(cond, "enters the battlefield") || strings.Contains(cond, "enters,") ||
			strings.HasSuffix(cond, "enters") {
			g.pushTrigger(cardID, c.ControllerID, hint.EffectText)
		}
	}
}

// fireLandfallTriggers raises landfall-style triggers for every battlefield
// permanent of the player who just played a land.
func (g *GameState) fireLandfallTriggers(pid, landID string) {
	for _, c := range g.BattlefieldControlledBy(pid) {
		if c.ID == landID {
			continue
		}
		if !oracle.HasLandfall(c.OracleText) {
			continue
		}
		for _, hint := range oracle.Parse(c.OracleText) {
			if hint.Triggered && strings.Contains(strings.ToLower(hint.TriggerCondition), "land") {
				g.pushTrigger(c.ID, pid, hint.EffectText)
			}
		}
	}
}

// fireAttackTriggers raises "whenever ~ attacks" triggers for one attacker.
func (g *GameState) fireAttackTriggers(pid, attackerID string) {
	c := g.Card(attackerID)
	if c == nil || !oracle.HasAttackTrigger(c.OracleText) {
		return
	}
	for _, hint := range oracle.Parse(c.OracleText) {
		if hint.Triggered && strings.Contains(strings.ToLower(hint.TriggerCondition), "attacks") {
			g.pushTrigger(attackerID, pid, hint.EffectText)
		}
	}
}
