package server

import (
	"strings"

	"manaforge/pkg/game"
)

// Strict action types accepted on game_strict_action. Only the canonical
// uppercase spelling is recognized; anything else is an unknown action.
const (
	ActPassPriority     = "PASS_PRIORITY"
	ActPlayLand         = "PLAY_LAND"
	ActCastSpell        = "CAST_SPELL"
	ActActivateAbility  = "ACTIVATE_ABILITY"
	ActAddMana          = "ADD_MANA"
	ActDeclareAttackers = "DECLARE_ATTACKERS"
	ActDeclareBlockers  = "DECLARE_BLOCKERS"
	ActMulliganDecision = "MULLIGAN_DECISION"
	ActRespondToChoice  = "RESPOND_TO_CHOICE"
	ActTapCard          = "TAP_CARD"
	ActDrawCard         = "DRAW_CARD"
	ActCreateToken      = "CREATE_TOKEN"
	ActAddCounter       = "ADD_COUNTER"
	ActRemoveCounter    = "REMOVE_COUNTER"
	ActChangeLife       = "CHANGE_LIFE"
	ActResolveTopStack  = "RESOLVE_TOP_STACK"
	ActRestartGame      = "RESTART_GAME"
	ActToggleStop       = "TOGGLE_STOP"
	ActShuffleLibrary   = "SHUFFLE_LIBRARY"
	ActMoveCard         = "MOVE_CARD"
	ActDeleteCard       = "DELETE_CARD"
)

// strictTypes are the rules-enforced operations.
var strictTypes = map[string]bool{
	ActPassPriority: true, ActPlayLand: true, ActCastSpell: true,
	ActActivateAbility: true, ActAddMana: true, ActDeclareAttackers: true,
	ActDeclareBlockers: true, ActMulliganDecision: true,
	ActRespondToChoice: true, ActTapCard: true, ActDrawCard: true,
	ActCreateToken: true, ActAddCounter: true, ActChangeLife: true,
	ActResolveTopStack: true, ActRestartGame: true, ActToggleStop: true,
}

// sandboxTypes are additionally allowed through game_action in dev mode,
// bypassing priority and timing rules.
var sandboxTypes = map[string]bool{
	ActShuffleLibrary: true, ActMoveCard: true, ActDeleteCard: true,
	ActRemoveCounter: true, ActDrawCard: true, ActAddMana: true,
	ActChangeLife: true, ActCreateToken: true, ActAddCounter: true,
	ActTapCard: true,
}

// Action is the decoded action envelope shared by the strict and sandbox
// paths. Fields are type-specific; unknown fields are ignored.
type Action struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`

	CardID       string         `json:"cardId,omitempty"`
	SourceID     string         `json:"sourceId,omitempty"`
	AbilityIndex int            `json:"abilityIndex,omitempty"`
	Targets      []string       `json:"targets,omitempty"`
	FaceIndex    int            `json:"faceIndex,omitempty"`
	Position     *game.Position `json:"position,omitempty"`

	Tapped   bool   `json:"tapped,omitempty"`
	FaceDown bool   `json:"faceDown,omitempty"`
	Zone     string `json:"zone,omitempty"`

	Color  string `json:"color,omitempty"`
	Amount int    `json:"amount,omitempty"`
	Delta  int    `json:"delta,omitempty"`

	Keep          bool     `json:"keep,omitempty"`
	CardsToBottom []string `json:"cardsToBottom,omitempty"`

	Attackers []game.AttackDeclaration `json:"attackers,omitempty"`
	Blockers  []game.BlockDeclaration  `json:"blockers,omitempty"`

	Choice *game.ChoiceResult `json:"choice,omitempty"`

	CounterType string          `json:"counterType,omitempty"`
	Token       *game.TokenSpec `json:"token,omitempty"`
}

// canonicalType validates the action type. Historically both spellings were
// dispatched in different paths; only uppercase is accepted now.
func canonicalType(t string) (string, error) {
	if t == "" {
		return "", game.NewRuleError(game.ErrUnknownAction, "missing action type")
	}
	if t != strings.ToUpper(t) {
		return "", game.NewRuleError(game.ErrUnknownAction, "unknown action type %q", t)
	}
	return t, nil
}

// applyAction executes one decoded action against the engine. The caller
// has already validated the type against the allowed set.
func applyAction(eng *game.RulesEngine, act *Action) error {
	pid := act.PlayerID
	switch act.Type {
	case ActPassPriority:
		return eng.PassPriority(pid)
	case ActPlayLand:
		return eng.PlayLand(pid, act.CardID)
	case ActCastSpell:
		return eng.CastSpell(pid, act.CardID, act.Targets, act.Position, act.FaceIndex)
	case ActActivateAbility:
		src := act.SourceID
		if src == "" {
			src = act.CardID
		}
		return eng.ActivateAbility(pid, src, act.AbilityIndex, act.Targets)
	case ActAddMana:
		amount := act.Amount
		if amount == 0 {
			amount = 1
		}
		return eng.AddMana(pid, game.Color(act.Color), amount)
	case ActDeclareAttackers:
		return eng.DeclareAttackers(pid, act.Attackers)
	case ActDeclareBlockers:
		return eng.DeclareBlockers(pid, act.Blockers)
	case ActMulliganDecision:
		return eng.ResolveMulligan(pid, act.Keep, act.CardsToBottom)
	case ActRespondToChoice:
		if act.Choice == nil {
			return game.NewRuleError(game.ErrChoiceInvalid, "missing choice result")
		}
		return eng.RespondToChoice(pid, *act.Choice)
	case ActTapCard:
		return eng.TapCard(pid, act.CardID, act.Tapped)
	case ActDrawCard:
		return eng.DrawCard(pid)
	case ActCreateToken:
		if act.Token == nil {
			return game.NewRuleError(game.ErrUnknownAction, "missing token spec")
		}
		return eng.CreateToken(pid, *act.Token)
	case ActAddCounter:
		return eng.AddCounter(act.CardID, act.CounterType, counterDelta(act, 1))
	case ActRemoveCounter:
		return eng.AddCounter(act.CardID, act.CounterType, -counterDelta(act, 1))
	case ActChangeLife:
		return eng.ChangeLife(pid, act.Delta)
	case ActResolveTopStack:
		return eng.ResolveTopStack()
	case ActRestartGame:
		return eng.RestartGame()
	case ActToggleStop:
		return eng.ToggleStop(pid)
	case ActShuffleLibrary:
		return eng.ShuffleLibrary(pid)
	case ActMoveCard:
		return eng.MoveCardToZone(act.CardID, game.Zone(act.Zone), act.FaceDown, act.Position, act.FaceIndex)
	case ActDeleteCard:
		return eng.DeleteCard(act.CardID)
	default:
		return game.NewRuleError(game.ErrUnknownAction, "unknown action type %q", act.Type)
	}
}

func counterDelta(act *Action, def int) int {
	if act.Delta != 0 {
		return act.Delta
	}
	if act.Amount != 0 {
		return act.Amount
	}
	return def
}
