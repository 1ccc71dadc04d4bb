package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decred/slog"
)

// newSetupGame builds a game with stocked libraries that has not started yet.
func newSetupGame(t *testing.T) (*GameState, *RulesEngine) {
	t.Helper()
	g := NewGameState("room-test", 42)
	g.Players["alice"] = NewPlayer("alice", "Alice", false)
	g.Players["bob"] = NewPlayer("bob", "Bob", false)
	g.TurnOrder = []string{"alice", "bob"}
	fillLibrary(g, "alice", 40)
	fillLibrary(g, "bob", 40)
	return g, NewRulesEngine(g, slog.Disabled)
}

func TestStartGameDealsOpeningHands(t *testing.T) {
	g, eng := newSetupGame(t)
	require.NoError(t, eng.StartGame())

	assert.Equal(t, PhaseSetup, g.Phase)
	assert.Equal(t, StepMulligan, g.Step)
	assert.Equal(t, "alice", g.ActivePlayerID)
	assert.Len(t, g.CardsInZone("alice", ZoneHand), 7)
	assert.Len(t, g.CardsInZone("bob", ZoneHand), 7)
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	g := NewGameState("room-test", 42)
	g.Players["solo"] = NewPlayer("solo", "Solo", false)
	g.TurnOrder = []string{"solo"}
	eng := NewRulesEngine(g, slog.Disabled)
	require.Error(t, eng.StartGame())
}

func TestMulliganRedrawsOneFewer(t *testing.T) {
	g, eng := newSetupGame(t)
	require.NoError(t, eng.StartGame())

	require.NoError(t, eng.ResolveMulligan("bob", false, nil))
	assert.Equal(t, 1, g.Players["bob"].MulliganCount)
	assert.Len(t, g.CardsInZone("bob", ZoneHand), 6)
	assert.False(t, g.Players["bob"].HandKept)
	assert.Equal(t, StepMulligan, g.Step)
}

func TestMulliganKeepBottomsCards(t *testing.T) {
	g, eng := newSetupGame(t)
	require.NoError(t, eng.StartGame())
	require.NoError(t, eng.ResolveMulligan("bob", false, nil))

	hand := g.CardsInZone("bob", ZoneHand)
	bottomed := hand[0].ID

	// Keeping after one mulligan requires exactly one card on the bottom.
	err := eng.ResolveMulligan("bob", true, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrChoiceInvalid))

	require.NoError(t, eng.ResolveMulligan("bob", true, []string{bottomed}))
	assert.True(t, g.Players["bob"].HandKept)
	assert.Len(t, g.CardsInZone("bob", ZoneHand), 5)

	// The bottomed card is the last draw the library will yield.
	lib := g.CardsInZone("bob", ZoneLibrary)
	assert.Equal(t, bottomed, lib[0].ID)
}

func TestMulliganKeepTwiceRejected(t *testing.T) {
	_, eng := newSetupGame(t)
	require.NoError(t, eng.StartGame())
	require.NoError(t, eng.ResolveMulligan("alice", true, nil))

	err := eng.ResolveMulligan("alice", true, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrAlreadyKept))
}

func TestAllHandsKeptAdvancesPastUntap(t *testing.T) {
	g, eng := newSetupGame(t)
	require.NoError(t, eng.StartGame())
	require.NoError(t, eng.ResolveMulligan("alice", true, nil))
	require.NoError(t, eng.ResolveMulligan("bob", true, nil))

	// Untap grants no priority: the game lands on upkeep directly.
	assert.Equal(t, PhaseBeginning, g.Phase)
	assert.Equal(t, StepUpkeep, g.Step)
	assert.Equal(t, "alice", g.PriorityPlayerID)
}

func TestFirstDrawSkippedInTwoPlayerGame(t *testing.T) {
	g, eng := newSetupGame(t)
	require.NoError(t, eng.StartGame())
	require.NoError(t, eng.ResolveMulligan("alice", true, nil))
	require.NoError(t, eng.ResolveMulligan("bob", true, nil))

	handBefore := len(g.CardsInZone("alice", ZoneHand))
	require.NoError(t, eng.PassPriority("alice"))
	require.NoError(t, eng.PassPriority("bob"))

	assert.Equal(t, StepDraw, g.Step)
	assert.Len(t, g.CardsInZone("alice", ZoneHand), handBefore)
}

func TestPriorityRotatesThroughTurnOrder(t *testing.T) {
	g, eng := newTestGame()

	err := eng.PassPriority("bob")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrNotYourPriority))

	require.NoError(t, eng.PassPriority("alice"))
	assert.Equal(t, "bob", g.PriorityPlayerID)
	assert.Equal(t, 1, g.PassedPriorityCount)

	// The second consecutive pass with an empty stack advances the step.
	require.NoError(t, eng.PassPriority("bob"))
	assert.Equal(t, PhaseCombat, g.Phase)
	assert.Equal(t, StepBeginningCombat, g.Step)
	assert.Equal(t, 0, g.PassedPriorityCount)
}

func TestManaPoolEmptiesAtStepBoundary(t *testing.T) {
	g, eng := newTestGame()
	g.Players["alice"].ManaPool[Red] = 3

	require.NoError(t, eng.PassPriority("alice"))
	require.NoError(t, eng.PassPriority("bob"))

	assert.Equal(t, 0, g.Players["alice"].TotalMana())
}

func TestFullTurnRotation(t *testing.T) {
	g, eng := newTestGame()
	fillLibrary(g, "alice", 10)
	fillLibrary(g, "bob", 10)

	// Pass through main1, combat, main2 and ending into bob's turn.
	turn := g.TurnCount
	for g.TurnCount == turn {
		require.NoError(t, eng.PassPriority(g.PriorityPlayerID))
	}

	assert.Equal(t, turn+1, g.TurnCount)
	assert.Equal(t, "bob", g.ActivePlayerID)
	assert.True(t, g.Players["bob"].IsActive)
	assert.False(t, g.Players["alice"].IsActive)
}

func TestCleanupClearsDamageAndTemporaryModifiers(t *testing.T) {
	g, _ := newTestGame()
	bears := addCard(g, "alice", ZoneBattlefield, grizzlyBears())
	bears.DamageMarked = 1
	bears.Modifiers = []Modifier{
		{Kind: ModPTBoost, Power: 2, Toughness: 2, UntilEndOfTurn: true},
		{Kind: ModPTBoost, Power: 1, Toughness: 1},
	}

	g.Phase = PhaseEnding
	g.Step = StepEnd
	g.advanceStep()

	assert.Equal(t, 0, bears.DamageMarked)
	require.Len(t, bears.Modifiers, 1)
	assert.False(t, bears.Modifiers[0].UntilEndOfTurn)
	assert.Equal(t, 2, g.TurnCount)
}
