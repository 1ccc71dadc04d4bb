package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayLandAndBoltOpponent(t *testing.T) {
	g, eng := newTestGame()
	land := addCard(g, "alice", ZoneHand, mountain())
	bolt := addCard(g, "alice", ZoneHand, lightningBolt())

	require.NoError(t, eng.PlayLand("alice", land.ID))
	assert.Equal(t, ZoneBattlefield, land.Zone)
	assert.Equal(t, 1, g.LandsPlayedThisTurn)

	// Tapping a single-color land auto-produces its mana.
	require.NoError(t, eng.TapCard("alice", land.ID, true))
	assert.Equal(t, 1, g.Players["alice"].ManaPool[Red])

	require.NoError(t, eng.CastSpell("alice", bolt.ID, []string{"bob"}, nil, -1))
	assert.Equal(t, ZoneStack, bolt.Zone)
	require.Len(t, g.Stack, 1)
	assert.Equal(t, 0, g.Players["alice"].TotalMana())
	assert.Equal(t, "alice", g.PriorityPlayerID)

	require.NoError(t, eng.PassPriority("alice"))
	assert.Equal(t, "bob", g.PriorityPlayerID)
	require.NoError(t, eng.PassPriority("bob"))

	assert.Empty(t, g.Stack)
	assert.Equal(t, 17, g.Players["bob"].Life)
	assert.Equal(t, ZoneGraveyard, bolt.Zone)
	assert.Equal(t, "alice", g.PriorityPlayerID)
}

func TestPlayLandOncePerTurn(t *testing.T) {
	g, eng := newTestGame()
	first := addCard(g, "alice", ZoneHand, mountain())
	second := addCard(g, "alice", ZoneHand, forest())

	require.NoError(t, eng.PlayLand("alice", first.ID))
	err := eng.PlayLand("alice", second.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWrongStep))
	assert.Equal(t, ZoneHand, second.Zone)

	// The counter resets at the next turn boundary.
	g.advanceTurn()
	assert.Equal(t, 0, g.LandsPlayedThisTurn)
}

func TestPlayLandRequiresPriorityAndMainPhase(t *testing.T) {
	g, eng := newTestGame()
	land := addCard(g, "bob", ZoneHand, mountain())

	err := eng.PlayLand("bob", land.ID)
	assert.True(t, IsKind(err, ErrNotYourPriority))

	g.PriorityPlayerID = "bob"
	g.Phase = PhaseCombat
	g.Step = StepDeclareAttackers
	err = eng.PlayLand("bob", land.ID)
	assert.True(t, IsKind(err, ErrWrongStep))
}

func TestCastSorceryOnlyAtSorcerySpeed(t *testing.T) {
	g, eng := newTestGame()
	bears := addCard(g, "alice", ZoneHand, grizzlyBears())
	g.Players["alice"].ManaPool[Green] = 1
	g.Players["alice"].ManaPool[Colorless] = 1

	g.Phase = PhaseCombat
	g.Step = StepDeclareAttackers
	err := eng.CastSpell("alice", bears.ID, nil, nil, -1)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWrongStep))
	assert.Equal(t, ZoneHand, bears.Zone)

	g.Phase = PhaseMain1
	g.Step = StepMain
	require.NoError(t, eng.CastSpell("alice", bears.ID, nil, nil, -1))
}

func TestCastSpellManaFailureLeavesStateUntouched(t *testing.T) {
	g, eng := newTestGame()
	bolt := addCard(g, "alice", ZoneHand, lightningBolt())

	err := eng.CastSpell("alice", bolt.ID, []string{"bob"}, nil, -1)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInsufficientMana))
	assert.Equal(t, ZoneHand, bolt.Zone)
	assert.Empty(t, g.Stack)
	assert.Equal(t, 20, g.Players["bob"].Life)
}

func TestCreatureSpellResolvesToBattlefield(t *testing.T) {
	g, eng := newTestGame()
	bears := addCard(g, "alice", ZoneHand, grizzlyBears())
	g.Players["alice"].ManaPool[Green] = 2

	require.NoError(t, eng.CastSpell("alice", bears.ID, nil, nil, -1))
	require.NoError(t, eng.PassPriority("alice"))
	require.NoError(t, eng.PassPriority("bob"))

	assert.Equal(t, ZoneBattlefield, bears.Zone)
	assert.Equal(t, g.TurnCount, bears.ControlledSinceTurn)
	assert.Empty(t, g.Stack)
}

func TestBoltKillsCreatureThroughStateBasedActions(t *testing.T) {
	g, eng := newTestGame()
	bears := addCard(g, "bob", ZoneBattlefield, grizzlyBears())
	bolt := addCard(g, "alice", ZoneHand, lightningBolt())
	g.Players["alice"].ManaPool[Red] = 1

	require.NoError(t, eng.CastSpell("alice", bolt.ID, []string{bears.ID}, nil, -1))
	require.NoError(t, eng.PassPriority("alice"))
	require.NoError(t, eng.PassPriority("bob"))

	assert.Equal(t, ZoneGraveyard, bears.Zone)
	assert.Equal(t, ZoneGraveyard, bolt.Zone)
}

func TestDrawFromEmptyLibraryLosesTheGame(t *testing.T) {
	g, eng := newTestGame()
	require.NoError(t, eng.DrawCard("alice"))

	assert.True(t, g.Players["alice"].HasLost)
	assert.True(t, g.GameOver)
	assert.Equal(t, "bob", g.WinnerID)
}

func TestChangeLifeTriggersLossSweep(t *testing.T) {
	g, eng := newTestGame()
	require.NoError(t, eng.ChangeLife("bob", -20))
	assert.True(t, g.GameOver)
	assert.Equal(t, "alice", g.WinnerID)
}

func TestCreateTokenAndCleanupOnZoneExit(t *testing.T) {
	g, eng := newTestGame()
	require.NoError(t, eng.CreateToken("alice", TokenSpec{
		Name: "Soldier", TypeLine: "Token Creature — Soldier",
		Power: 1, Toughness: 1, Count: 2,
	}))
	tokens := g.CreaturesControlledBy("alice")
	require.Len(t, tokens, 2)

	// A token leaving the battlefield ceases to exist.
	require.NoError(t, eng.MoveCardToZone(tokens[0].ID, ZoneGraveyard, false, nil, -1))
	assert.Nil(t, g.Card(tokens[0].ID))
	assert.Len(t, g.CreaturesControlledBy("alice"), 1)
}

func TestAddAndRemoveCounters(t *testing.T) {
	g, eng := newTestGame()
	bears := addCard(g, "alice", ZoneBattlefield, grizzlyBears())

	require.NoError(t, eng.AddCounter(bears.ID, "+1/+1", 2))
	assert.Equal(t, 2, bears.CounterCount("+1/+1"))
	assert.Equal(t, 4, bears.CurrentPower())

	require.NoError(t, eng.AddCounter(bears.ID, "+1/+1", -2))
	assert.Equal(t, 0, bears.CounterCount("+1/+1"))
	assert.Empty(t, bears.Counters)
}

func TestShuffleLibraryIsSeeded(t *testing.T) {
	order := func() []string {
		g, eng := newTestGame()
		fillLibrary(g, "alice", 10)
		require.NoError(t, eng.ShuffleLibrary("alice"))
		var ids []string
		for _, c := range g.CardsInZone("alice", ZoneLibrary) {
			ids = append(ids, c.ID)
		}
		return ids
	}
	assert.Equal(t, order(), order())
}

func TestRestartGameRewindsEverything(t *testing.T) {
	g, eng := newTestGame()
	fillLibrary(g, "alice", 5)
	fillLibrary(g, "bob", 5)
	bears := addCard(g, "alice", ZoneBattlefield, grizzlyBears())
	bears.DamageMarked = 1
	g.Players["bob"].Life = 3
	g.TurnCount = 6

	require.NoError(t, eng.RestartGame())

	assert.Equal(t, ZoneLibrary, bears.Zone)
	assert.Equal(t, 0, bears.DamageMarked)
	assert.Equal(t, StartingLife, g.Players["bob"].Life)
	assert.Equal(t, 1, g.TurnCount)
	assert.Equal(t, PhaseSetup, g.Phase)
	assert.Equal(t, StepMulligan, g.Step)
	assert.False(t, g.Players["alice"].HandKept)

	// Hands are dealt by the mulligan step, not by the restart itself; a
	// rewound six-card library must not register as a failed draw.
	assert.Empty(t, g.CardsInZone("alice", ZoneHand))
	assert.False(t, g.Players["alice"].HasLost)
	assert.False(t, g.GameOver)
}

func TestActivateManaAbilityResolvesWithoutStack(t *testing.T) {
	g, eng := newTestGame()
	rock := addCard(g, "alice", ZoneBattlefield, CardDefinition{
		Name:       "Burnished Hart Idol",
		TypeLine:   "Artifact",
		OracleText: "{T}: Add {G}.",
	})

	require.NoError(t, eng.ActivateAbility("alice", rock.ID, 0, nil))
	assert.True(t, rock.Tapped)
	assert.Empty(t, g.Stack)
	assert.Equal(t, 1, g.Players["alice"].ManaPool[Green])

	err := eng.ActivateAbility("alice", rock.ID, 0, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWrongStep))
}

func TestActivateAbilityUsesStackForNonMana(t *testing.T) {
	g, eng := newTestGame()
	pinger := addCard(g, "alice", ZoneBattlefield, CardDefinition{
		Name:       "Prodigal Pyromancer",
		TypeLine:   "Creature — Human Wizard",
		Power:      "1",
		Toughness:  "1",
		OracleText: "{T}: This creature deals 1 damage to any target.",
	})

	require.NoError(t, eng.ActivateAbility("alice", pinger.ID, 0, []string{"bob"}))
	require.Len(t, g.Stack, 1)
	assert.Equal(t, StackItemAbility, g.Stack[0].Kind)

	require.NoError(t, eng.PassPriority("alice"))
	require.NoError(t, eng.PassPriority("bob"))
	assert.Equal(t, 19, g.Players["bob"].Life)
	assert.Equal(t, ZoneBattlefield, pinger.Zone)
}
