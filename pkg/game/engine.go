package game

import (
	"github.com/decred/slog"
)

// RulesEngine is the dispatch surface for exogenous actions against one
// GameState. It is stateless across calls: every method validates, delegates
// to a sub-component on the state, and either commits or fails with a
// RuleError leaving the state untouched at the action boundary (the
// dispatcher only persists on success).
type RulesEngine struct {
	state *GameState
	log   slog.Logger
}

// NewRulesEngine binds an engine to a game state.
func NewRulesEngine(state *GameState, log slog.Logger) *RulesEngine {
	return &RulesEngine{state: state, log: log}
}

// State exposes the bound game state.
func (e *RulesEngine) State() *GameState { return e.state }

// StartGame deals opening hands and enters the mulligan step.
func (e *RulesEngine) StartGame() error {
	g := e.state
	if len(g.TurnOrder) < 2 {
		return NewRuleError(ErrUnknownAction, "need at least two players to start")
	}
	g.ActivePlayerID = g.TurnOrder[0]
	g.PriorityPlayerID = g.TurnOrder[0]
	for _, p := range g.Players {
		p.IsActive = p.ID == g.ActivePlayerID
	}
	g.Phase = PhaseSetup
	g.Step = StepMulligan
	g.AddLog(LogInfo, "game", "game started")
	g.performTurnBasedActions()
	return nil
}

// PassPriority passes priority for pid, possibly resolving the stack top or
// advancing the step.
func (e *RulesEngine) PassPriority(pid string) error {
	return e.state.passPriority(pid)
}

// PlayLand plays a land from hand; no stack involved.
func (e *RulesEngine) PlayLand(pid, cardID string) error {
	return e.state.playLand(pid, cardID)
}

// CastSpell pays costs and puts a spell on the stack.
func (e *RulesEngine) CastSpell(pid, cardID string, targets []string, pos *Position, faceIndex int) error {
	return e.state.castSpell(pid, cardID, targets, pos, faceIndex)
}

// ActivateAbility activates the indexed ability of a battlefield source.
func (e *RulesEngine) ActivateAbility(pid, sourceID string, abilityIndex int, targets []string) error {
	return e.state.activateAbility(pid, sourceID, abilityIndex, targets)
}

// TapCard taps or untaps a permanent (basic lands auto-produce mana).
func (e *RulesEngine) TapCard(pid, cardID string, tapped bool) error {
	return e.state.tapCard(pid, cardID, tapped)
}

// DeclareAttackers commits the active player's attack declarations.
func (e *RulesEngine) DeclareAttackers(pid string, attacks []AttackDeclaration) error {
	return e.state.declareAttackers(pid, attacks)
}

// DeclareBlockers commits the defender's block declarations.
func (e *RulesEngine) DeclareBlockers(pid string, blocks []BlockDeclaration) error {
	return e.state.declareBlockers(pid, blocks)
}

// ResolveMulligan handles a keep-or-mulligan decision during the setup phase.
// Keeping puts the listed cards on the bottom of the library; mulliganing
// shuffles the hand away and deals one fewer card.
func (e *RulesEngine) ResolveMulligan(pid string, keep bool, cardsToBottom []string) error {
	g := e.state
	if g.Step != StepMulligan {
		return NewRuleError(ErrMulliganNotActive, "not in the mulligan step")
	}
	player := g.Player(pid)
	if player == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	if player.HandKept {
		return NewRuleError(ErrAlreadyKept, "%s already kept their hand", player.Name)
	}

	if !keep {
		for _, c := range g.CardsInZone(pid, ZoneHand) {
			if err := g.moveCardToZone(c.ID, ZoneLibrary, true, nil, -1); err != nil {
				return err
			}
		}
		g.shuffleLibrary(pid)
		player.MulliganCount++
		for i := 0; i < 7-player.MulliganCount; i++ {
			if err := g.drawCard(pid); err != nil {
				return err
			}
		}
		g.AddLog(LogInfo, "game", "%s mulligans to %d", player.Name, 7-player.MulliganCount)
		return nil
	}

	if len(cardsToBottom) != player.MulliganCount && player.MulliganCount > 0 {
		return NewRuleError(ErrChoiceInvalid, "must put %d card(s) on the bottom", player.MulliganCount)
	}
	for _, id := range cardsToBottom {
		c := g.Card(id)
		if c == nil || c.Zone != ZoneHand || c.OwnerID != pid {
			return NewRuleError(ErrCardNotInZone, "card %s is not in your hand", id)
		}
	}
	for _, id := range cardsToBottom {
		if err := g.moveCardToZone(id, ZoneLibrary, true, nil, -1); err != nil {
			return err
		}
		// Bottom of the library is the lowest zone index.
		c := g.Card(id)
		c.ZoneIndex = -g.NextZoneIndex()
	}
	player.HandKept = true
	g.AddLog(LogInfo, "game", "%s keeps their hand", player.Name)
	if g.allHandsKept() {
		g.advanceStep()
	}
	return nil
}

// CreateToken materializes tokens on the battlefield.
func (e *RulesEngine) CreateToken(pid string, spec TokenSpec) error {
	return e.state.createToken(pid, spec)
}

// AddCounter adjusts counters of a type on a card.
func (e *RulesEngine) AddCounter(cardID, counterType string, delta int) error {
	return e.state.addCounter(cardID, counterType, delta)
}

// AddMana adds mana to a player's pool.
func (e *RulesEngine) AddMana(pid string, color Color, amount int) error {
	return e.state.addMana(pid, color, amount)
}

// MoveCardToZone is the exogenous zone-move primitive (sandbox mode).
func (e *RulesEngine) MoveCardToZone(cardID string, to Zone, faceDown bool, pos *Position, faceIndex int) error {
	return e.state.moveCardToZone(cardID, to, faceDown, pos, faceIndex)
}

// DrawCard draws the top library card for a player.
func (e *RulesEngine) DrawCard(pid string) error {
	return e.state.drawCard(pid)
}

// ChangeLife adjusts a player's life total.
func (e *RulesEngine) ChangeLife(pid string, delta int) error {
	return e.state.changeLife(pid, delta)
}

// ResolveTopStack resolves the topmost stack item.
func (e *RulesEngine) ResolveTopStack() error {
	return e.state.resolveTopStack()
}

// RespondToChoice binds a result to the pending choice and resumes
// resolution.
func (e *RulesEngine) RespondToChoice(pid string, result ChoiceResult) error {
	return e.state.respondToChoice(pid, result)
}

// ShuffleLibrary shuffles a player's library.
func (e *RulesEngine) ShuffleLibrary(pid string) error {
	if e.state.Player(pid) == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	e.state.shuffleLibrary(pid)
	return nil
}

// RestartGame rewinds the match to a fresh turn one.
func (e *RulesEngine) RestartGame() error {
	return e.state.restartGame()
}

// DeleteCard removes a card instance entirely (sandbox mode).
func (e *RulesEngine) DeleteCard(cardID string) error {
	g := e.state
	c := g.Card(cardID)
	if c == nil {
		return NewRuleError(ErrCardNotFound, "card %s not found", cardID)
	}
	for _, other := range g.Cards {
		if other.AttachedTo == cardID {
			other.AttachedTo = ""
		}
	}
	delete(g.Cards, cardID)
	g.AddLog(LogZone, "game", "%s is removed from the game", c.Name)
	return nil
}

// ToggleStop flips a player's stop request for the current priority window.
func (e *RulesEngine) ToggleStop(pid string) error {
	player := e.state.Player(pid)
	if player == nil {
		return NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}
	player.StopRequested = !player.StopRequested
	return nil
}
