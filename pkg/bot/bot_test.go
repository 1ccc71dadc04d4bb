package bot

import (
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manaforge/pkg/game"
)

func forest() game.CardDefinition {
	return game.CardDefinition{Name: "Forest", TypeLine: "Basic Land — Forest"}
}

func mountain() game.CardDefinition {
	return game.CardDefinition{Name: "Mountain", TypeLine: "Basic Land — Mountain"}
}

func bears() game.CardDefinition {
	return game.CardDefinition{
		Name: "Grizzly Bears", ManaCost: "{1}{G}", TypeLine: "Creature — Bear",
		Power: "2", Toughness: "2", Colors: []string{"G"},
	}
}

func bolt() game.CardDefinition {
	return game.CardDefinition{
		Name: "Lightning Bolt", ManaCost: "{R}", TypeLine: "Instant",
		OracleText: "Lightning Bolt deals 3 damage to any target.",
		Colors:     []string{"R"},
	}
}

func testDeck() *game.Deck {
	return &game.Deck{
		Name: "bot test",
		Entries: []game.DeckEntry{
			{Count: 10, Card: forest()},
			{Count: 14, Card: bears()},
		},
	}
}

// newBotGame builds a started two-bot game on a fixed seed.
func newBotGame(t *testing.T, seed int64) (*game.GameState, *game.RulesEngine) {
	t.Helper()
	g := game.NewGameState("room-bot", seed)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["b2"] = game.NewPlayer("b2", "Bot Two", true)
	g.TurnOrder = []string{"b1", "b2"}
	g.LoadDeck("b1", testDeck())
	g.LoadDeck("b2", testDeck())
	eng := game.NewRulesEngine(g, slog.Disabled)
	require.NoError(t, eng.StartGame())
	return g, eng
}

// nextBot mirrors the dispatcher's notion of which bot owes a decision.
func nextBot(g *game.GameState) string {
	if pc := g.PendingChoice; pc != nil {
		return pc.ChoosingID
	}
	if g.Step == game.StepMulligan {
		for _, pid := range g.TurnOrder {
			if !g.Players[pid].HandKept {
				return pid
			}
		}
		return ""
	}
	return g.PriorityPlayerID
}

func TestBotVsBotGameCompletes(t *testing.T) {
	g, eng := newBotGame(t, 7)
	b := New(slog.Disabled)

	for i := 0; i < 5000 && !g.GameOver; i++ {
		pid := nextBot(g)
		require.NotEmpty(t, pid)
		_, err := b.Act(eng, pid)
		require.NoError(t, err)
	}

	assert.True(t, g.GameOver, "bot game stalled at turn %d, %s/%s", g.TurnCount, g.Phase, g.Step)
	assert.NotEmpty(t, g.WinnerID)
}

func TestBotVsBotIsDeterministic(t *testing.T) {
	play := func() (string, int) {
		g, eng := newBotGame(t, 11)
		b := New(slog.Disabled)
		for i := 0; i < 5000 && !g.GameOver; i++ {
			if _, err := b.Act(eng, nextBot(g)); err != nil {
				t.Fatal(err)
			}
		}
		return g.WinnerID, g.TurnCount
	}
	w1, t1 := play()
	w2, t2 := play()
	assert.Equal(t, w1, w2)
	assert.Equal(t, t1, t2)
}

func TestBotMakesProgressEveryTurnWindow(t *testing.T) {
	g, eng := newBotGame(t, 3)
	b := New(slog.Disabled)

	// Within the per-action iteration cap the bot must at minimum get both
	// hands kept and the first turn underway.
	for i := 0; i < MaxIterations; i++ {
		if g.Step != game.StepMulligan {
			break
		}
		_, err := b.Act(eng, nextBot(g))
		require.NoError(t, err)
	}
	assert.NotEqual(t, game.StepMulligan, g.Step)
}

func TestBotKeepsReasonableHand(t *testing.T) {
	g := game.NewGameState("room-bot", 5)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"b1", "h"}
	g.LoadDeck("b1", testDeck())
	g.LoadDeck("h", testDeck())
	eng := game.NewRulesEngine(g, slog.Disabled)
	require.NoError(t, eng.StartGame())

	b := New(slog.Disabled)
	for i := 0; i < 10 && !g.Players["b1"].HandKept; i++ {
		acted, err := b.Act(eng, "b1")
		require.NoError(t, err)
		require.True(t, acted)
	}
	require.True(t, g.Players["b1"].HandKept)

	hand := g.CardsInZone("b1", game.ZoneHand)
	assert.Len(t, hand, 7-g.Players["b1"].MulliganCount)
}

func TestBotPlaysLandAndCreatureInMainPhase(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"b1", "h"}
	g.Players["b1"].HandKept = true
	g.Players["h"].HandKept = true
	g.ActivePlayerID = "b1"
	g.PriorityPlayerID = "b1"
	g.Players["b1"].IsActive = true
	g.Phase = game.PhaseMain1
	g.Step = game.StepMain

	addTo(g, "b1", game.ZoneHand, forest())
	addTo(g, "b1", game.ZoneBattlefield, forest())
	addTo(g, "b1", game.ZoneHand, bears())

	eng := game.NewRulesEngine(g, slog.Disabled)
	b := New(slog.Disabled)

	acted, err := b.Act(eng, "b1")
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, 1, g.LandsPlayedThisTurn)

	acted, err = b.Act(eng, "b1")
	require.NoError(t, err)
	require.True(t, acted)
	require.Len(t, g.Stack, 1)
	assert.Equal(t, "Grizzly Bears", g.Stack[0].Name)
}

func TestBotBoltsLethalPlayer(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"b1", "h"}
	g.Players["b1"].HandKept = true
	g.Players["h"].HandKept = true
	g.ActivePlayerID = "b1"
	g.PriorityPlayerID = "b1"
	g.Phase = game.PhaseMain1
	g.Step = game.StepMain
	g.Players["h"].Life = 3
	g.Players["b1"].ManaPool[game.Red] = 1

	// A big blocker makes creature damage unattractive; the lethal face
	// shot must win out.
	addTo(g, "h", game.ZoneBattlefield, game.CardDefinition{
		Name: "Hill Giant", ManaCost: "{3}{R}", TypeLine: "Creature — Giant",
		Power: "4", Toughness: "4",
	})
	addTo(g, "b1", game.ZoneHand, bolt())

	eng := game.NewRulesEngine(g, slog.Disabled)
	b := New(slog.Disabled)
	acted, err := b.Act(eng, "b1")
	require.NoError(t, err)
	require.True(t, acted)

	require.Len(t, g.Stack, 1)
	assert.Equal(t, []string{"h"}, g.Stack[0].Targets)
}

func TestBotAttacksIntoEmptyBoard(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"b1", "h"}
	g.Players["b1"].HandKept = true
	g.Players["h"].HandKept = true
	g.ActivePlayerID = "b1"
	g.PriorityPlayerID = "b1"
	g.Players["b1"].IsActive = true
	g.Phase = game.PhaseCombat
	g.Step = game.StepDeclareAttackers
	g.TurnCount = 3

	atk := addTo(g, "b1", game.ZoneBattlefield, bears())

	eng := game.NewRulesEngine(g, slog.Disabled)
	b := New(slog.Disabled)
	acted, err := b.Act(eng, "b1")
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, "h", atk.Attacking)
}

func TestBotHoldsBackUnfavorableAttack(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"b1", "h"}
	g.Players["b1"].HandKept = true
	g.Players["h"].HandKept = true
	g.ActivePlayerID = "b1"
	g.PriorityPlayerID = "b1"
	g.Players["b1"].IsActive = true
	g.Phase = game.PhaseCombat
	g.Step = game.StepDeclareAttackers
	g.TurnCount = 3

	atk := addTo(g, "b1", game.ZoneBattlefield, bears())
	addTo(g, "h", game.ZoneBattlefield, game.CardDefinition{
		Name: "Hill Giant", ManaCost: "{3}{R}", TypeLine: "Creature — Giant",
		Power: "4", Toughness: "4",
	})

	eng := game.NewRulesEngine(g, slog.Disabled)
	b := New(slog.Disabled)
	_, err := b.Act(eng, "b1")
	require.NoError(t, err)
	assert.Empty(t, atk.Attacking)
	assert.True(t, g.AttackersDeclared)
}

func TestBotChumpBlocksWhenLethalIncoming(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["a"] = game.NewPlayer("a", "Attacker", false)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.TurnOrder = []string{"a", "b1"}
	g.Players["a"].HandKept = true
	g.Players["b1"].HandKept = true
	g.ActivePlayerID = "a"
	g.Players["a"].IsActive = true
	g.Phase = game.PhaseCombat
	g.Step = game.StepDeclareBlockers
	g.AttackersDeclared = true
	g.PriorityPlayerID = "b1"
	g.Players["b1"].Life = 4

	giant := addTo(g, "a", game.ZoneBattlefield, game.CardDefinition{
		Name: "Hill Giant", ManaCost: "{3}{R}", TypeLine: "Creature — Giant",
		Power: "4", Toughness: "4",
	})
	giant.Attacking = "b1"
	giant.Tapped = true
	blocker := addTo(g, "b1", game.ZoneBattlefield, bears())

	eng := game.NewRulesEngine(g, slog.Disabled)
	b := New(slog.Disabled)
	acted, err := b.Act(eng, "b1")
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, []string{giant.ID}, blocker.Blocking)
}

func TestBotAnswersPendingChoice(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"b1", "h"}
	g.Players["b1"].HandKept = true
	g.Players["h"].HandKept = true
	g.ActivePlayerID = "b1"
	g.PriorityPlayerID = "b1"
	g.Phase = game.PhaseMain1
	g.Step = game.StepMain
	g.Players["b1"].ManaPool[game.Red] = 1

	card := addTo(g, "b1", game.ZoneHand, bolt())
	eng := game.NewRulesEngine(g, slog.Disabled)

	// Cast with no pre-bound target so resolution suspends on a choice.
	require.NoError(t, eng.CastSpell("b1", card.ID, nil, nil, -1))
	require.NoError(t, eng.PassPriority("b1"))
	require.NoError(t, eng.PassPriority("h"))
	require.NotNil(t, g.PendingChoice)

	b := New(slog.Disabled)
	acted, err := b.Act(eng, "b1")
	require.NoError(t, err)
	require.True(t, acted)

	assert.Nil(t, g.PendingChoice)
	assert.Equal(t, 17, g.Players["h"].Life)
}

func TestBotIgnoresChoicesItDoesNotOwn(t *testing.T) {
	g := game.NewGameState("room-bot", 9)
	g.Players["b1"] = game.NewPlayer("b1", "Bot One", true)
	g.Players["h"] = game.NewPlayer("h", "Human", false)
	g.TurnOrder = []string{"h", "b1"}
	g.PendingChoice = &game.PendingChoice{ID: "x", ChoosingID: "h", Kind: game.ChoiceYesNo}

	eng := game.NewRulesEngine(g, slog.Disabled)
	b := New(slog.Disabled)
	acted, err := b.Act(eng, "b1")
	require.NoError(t, err)
	assert.False(t, acted)
	assert.NotNil(t, g.PendingChoice)
}

// addTo places one instantiated card into a zone for test setup.
func addTo(g *game.GameState, owner string, zone game.Zone, def game.CardDefinition) *game.Card {
	deck := &game.Deck{Entries: []game.DeckEntry{{Count: 1, Card: def}}}
	g.LoadDeck(owner, deck)
	lib := g.CardsInZone(owner, game.ZoneLibrary)
	c := lib[len(lib)-1]
	c.Zone = zone
	c.FaceDown = zone == game.ZoneLibrary
	return c
}
