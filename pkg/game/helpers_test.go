package game

import (
	"github.com/decred/slog"
)

// newTestGame builds a two-player game with a fixed seed, positioned at the
// start of the first main phase with both hands kept.
func newTestGame() (*GameState, *RulesEngine) {
	g := NewGameState("room-test", 42)
	g.Players["alice"] = NewPlayer("alice", "Alice", false)
	g.Players["bob"] = NewPlayer("bob", "Bob", false)
	g.TurnOrder = []string{"alice", "bob"}
	g.ActivePlayerID = "alice"
	g.PriorityPlayerID = "alice"
	g.Players["alice"].IsActive = true
	g.Players["alice"].HandKept = true
	g.Players["bob"].HandKept = true
	g.Phase = PhaseMain1
	g.Step = StepMain
	return g, NewRulesEngine(g, slog.Disabled)
}

// addCard puts one card instance into the game in the given zone.
func addCard(g *GameState, owner string, zone Zone, def CardDefinition) *Card {
	c := newCardFromDefinition(g, owner, def)
	c.Zone = zone
	c.FaceDown = zone == ZoneLibrary
	g.Cards[c.ID] = c
	return c
}

func mountain() CardDefinition {
	return CardDefinition{
		Name:     "Mountain",
		TypeLine: "Basic Land — Mountain",
	}
}

func forest() CardDefinition {
	return CardDefinition{
		Name:     "Forest",
		TypeLine: "Basic Land — Forest",
	}
}

func lightningBolt() CardDefinition {
	return CardDefinition{
		Name:       "Lightning Bolt",
		ManaCost:   "{R}",
		TypeLine:   "Instant",
		OracleText: "Lightning Bolt deals 3 damage to any target.",
		Colors:     []string{"R"},
	}
}

func grizzlyBears() CardDefinition {
	return CardDefinition{
		Name:      "Grizzly Bears",
		ManaCost:  "{1}{G}",
		TypeLine:  "Creature — Bear",
		Power:     "2",
		Toughness: "2",
		Colors:    []string{"G"},
	}
}

func hillGiant() CardDefinition {
	return CardDefinition{
		Name:      "Hill Giant",
		ManaCost:  "{3}{R}",
		TypeLine:  "Creature — Giant",
		Power:     "4",
		Toughness: "4",
		Colors:    []string{"R"},
	}
}

func cancelSpell() CardDefinition {
	return CardDefinition{
		Name:       "Cancel",
		ManaCost:   "{1}{U}{U}",
		TypeLine:   "Instant",
		OracleText: "Counter target spell.",
		Colors:     []string{"U"},
	}
}

// fillLibrary stocks a player's library with n vanilla creatures so draws
// never deck the player by accident.
func fillLibrary(g *GameState, owner string, n int) {
	for i := 0; i < n; i++ {
		addCard(g, owner, ZoneLibrary, grizzlyBears())
	}
}
