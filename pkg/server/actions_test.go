package server

import (
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manaforge/pkg/game"
)

func TestCanonicalTypeAcceptsOnlyUppercase(t *testing.T) {
	got, err := canonicalType(ActCastSpell)
	require.NoError(t, err)
	assert.Equal(t, "CAST_SPELL", got)

	_, err = canonicalType("cast_spell")
	assert.True(t, game.IsKind(err, game.ErrUnknownAction))

	_, err = canonicalType("Cast_Spell")
	assert.True(t, game.IsKind(err, game.ErrUnknownAction))

	_, err = canonicalType("")
	assert.True(t, game.IsKind(err, game.ErrUnknownAction))
}

func TestActionTypeSets(t *testing.T) {
	// Rules-enforced operations go through the strict set.
	for _, typ := range []string{ActPassPriority, ActCastSpell, ActDeclareAttackers, ActRespondToChoice} {
		assert.True(t, strictTypes[typ], typ)
	}
	// Direct state edits are sandbox-only.
	for _, typ := range []string{ActMoveCard, ActDeleteCard, ActShuffleLibrary} {
		assert.False(t, strictTypes[typ], typ)
		assert.True(t, sandboxTypes[typ], typ)
	}
}

// applyGame builds a minimal started game for action routing tests.
func applyGame(t *testing.T) (*game.GameState, *game.RulesEngine, *game.Card) {
	t.Helper()
	g := game.NewGameState("room-act", 7)
	g.Players["alice"] = game.NewPlayer("alice", "Alice", false)
	g.Players["bob"] = game.NewPlayer("bob", "Bob", false)
	g.TurnOrder = []string{"alice", "bob"}
	g.ActivePlayerID = "alice"
	g.PriorityPlayerID = "alice"
	g.Players["alice"].IsActive = true
	g.Players["alice"].HandKept = true
	g.Players["bob"].HandKept = true
	g.Phase = game.PhaseMain1
	g.Step = game.StepMain

	g.LoadDeck("alice", &game.Deck{Entries: []game.DeckEntry{
		{Count: 1, Card: game.CardDefinition{Name: "Forest", TypeLine: "Basic Land — Forest"}},
	}})
	var land *game.Card
	for _, c := range g.CardsInZone("alice", game.ZoneLibrary) {
		c.Zone = game.ZoneHand
		c.FaceDown = false
		land = c
	}
	require.NotNil(t, land)
	return g, game.NewRulesEngine(g, slog.Disabled), land
}

func TestApplyActionRoutesToEngine(t *testing.T) {
	g, eng, land := applyGame(t)

	require.NoError(t, applyAction(eng, &Action{
		Type: ActPlayLand, PlayerID: "alice", CardID: land.ID,
	}))
	assert.Equal(t, game.ZoneBattlefield, land.Zone)

	require.NoError(t, applyAction(eng, &Action{
		Type: ActChangeLife, PlayerID: "bob", Delta: -4,
	}))
	assert.Equal(t, 16, g.Players["bob"].Life)

	require.NoError(t, applyAction(eng, &Action{
		Type: ActAddMana, PlayerID: "alice", Color: "G",
	}))
	assert.Equal(t, 1, g.Players["alice"].ManaPool[game.Green])
}

func TestApplyActionCounterDeltaFallbacks(t *testing.T) {
	_, eng, land := applyGame(t)
	require.NoError(t, eng.PlayLand("alice", land.ID))

	// Amount carries the delta when Delta is unset; default is 1.
	require.NoError(t, applyAction(eng, &Action{
		Type: ActAddCounter, CardID: land.ID, CounterType: "charge", Amount: 2,
	}))
	require.NoError(t, applyAction(eng, &Action{
		Type: ActAddCounter, CardID: land.ID, CounterType: "charge",
	}))
	assert.Equal(t, 3, land.CounterCount("charge"))

	require.NoError(t, applyAction(eng, &Action{
		Type: ActRemoveCounter, CardID: land.ID, CounterType: "charge", Delta: 2,
	}))
	assert.Equal(t, 1, land.CounterCount("charge"))
}

func TestApplyActionValidatesEnvelopes(t *testing.T) {
	_, eng, _ := applyGame(t)

	err := applyAction(eng, &Action{Type: ActRespondToChoice, PlayerID: "alice"})
	assert.True(t, game.IsKind(err, game.ErrChoiceInvalid))

	err = applyAction(eng, &Action{Type: ActCreateToken, PlayerID: "alice"})
	assert.True(t, game.IsKind(err, game.ErrUnknownAction))

	err = applyAction(eng, &Action{Type: "NO_SUCH_ACTION", PlayerID: "alice"})
	assert.True(t, game.IsKind(err, game.ErrUnknownAction))
}

func TestApplyActionAbilityFallsBackToCardID(t *testing.T) {
	g, eng, _ := applyGame(t)

	def := game.CardDefinition{
		Name: "Mana Prism", ManaCost: "{1}", TypeLine: "Artifact",
		OracleText: "{T}: Add {G}.",
	}
	prism := addServerCard(t, g, "alice", game.ZoneBattlefield, def)

	// SourceID omitted; CardID carries the source.
	require.NoError(t, applyAction(eng, &Action{
		Type: ActActivateAbility, PlayerID: "alice", CardID: prism.ID,
	}))
	assert.Equal(t, 1, g.Players["alice"].ManaPool[game.Green])
	assert.True(t, prism.Tapped)
}

// addServerCard materializes one card straight into a zone.
func addServerCard(t *testing.T, g *game.GameState, owner string, zone game.Zone, def game.CardDefinition) *game.Card {
	t.Helper()
	before := len(g.CardsInZone(owner, game.ZoneLibrary))
	g.LoadDeck(owner, &game.Deck{Entries: []game.DeckEntry{{Count: 1, Card: def}}})
	lib := g.CardsInZone(owner, game.ZoneLibrary)
	require.Len(t, lib, before+1)
	var card *game.Card
	for _, c := range lib {
		if c.Name == def.Name {
			card = c
		}
	}
	require.NotNil(t, card)
	card.Zone = zone
	card.FaceDown = false
	return card
}
