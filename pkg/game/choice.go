package game

import (
	"errors"

	"github.com/google/uuid"
)

// errSuspended is the internal signal that effect resolution stopped to wait
// for a player decision. It never escapes the engine: the stack item stays
// put and the game state encodes the pause as a PendingChoice.
var errSuspended = errors.New("resolution suspended on pending choice")

// choiceBuilder assembles a PendingChoice before it is installed on the state.
type choiceBuilder struct {
	kind          ChoiceKind
	prompt        string
	chooser       string
	options       []ChoiceOption
	minCount      int
	maxCount      int
	exactCount    int
	filter        *ChoiceFilter
	selectableIDs []string
	revealedIDs   []string
	minNumber     int
	maxNumber     int
}

// createChoice installs a PendingChoice for the given stack item and hands
// priority to the chooser.
func (g *GameState) createChoice(item *StackItem, b choiceBuilder) {
	pc := &PendingChoice{
		ID:            uuid.NewString(),
		Kind:          b.kind,
		StackItemID:   item.ID,
		SourceCardID:  item.SourceID,
		SourceName:    item.Name,
		ChoosingID:    b.chooser,
		ControllingID: item.ControllerID,
		Prompt:        b.prompt,
		Options:       b.options,
		MinCount:      b.minCount,
		MaxCount:      b.maxCount,
		ExactCount:    b.exactCount,
		Filter:        b.filter,
		SelectableIDs: b.selectableIDs,
		RevealedIDs:   b.revealedIDs,
		MinNumber:     b.minNumber,
		MaxNumber:     b.maxNumber,
	}
	if src := g.Card(item.SourceID); src != nil {
		pc.SourceImage = src.ImageURL
	}
	g.PendingChoice = pc
	g.PriorityPlayerID = b.chooser
}

// respondToChoice validates a choice result, records it on the owning stack
// item and re-enters resolution.
func (g *GameState) respondToChoice(pid string, result ChoiceResult) error {
	pc := g.PendingChoice
	if pc == nil {
		return NewRuleError(ErrChoiceMismatch, "no pending choice")
	}
	if pc.ChoosingID != pid {
		return NewRuleError(ErrChoiceMismatch, "choice belongs to %s", pc.ChoosingID)
	}
	if result.ChoiceID != pc.ID {
		return NewRuleError(ErrChoiceMismatch, "stale choice id %s", result.ChoiceID)
	}
	if err := validateChoiceResult(pc, &result); err != nil {
		return err
	}

	item := g.StackItemByID(pc.StackItemID)
	if item == nil {
		// Owning item vanished (countered while suspended); drop the choice.
		g.PendingChoice = nil
		return nil
	}
	result.Kind = pc.Kind
	if item.Resolution == nil {
		item.Resolution = &ResolutionState{}
	}
	item.Resolution.ChoicesMade = append(item.Resolution.ChoicesMade, result)
	g.PendingChoice = nil

	return g.resolveTopStack()
}

// validateChoiceResult applies kind-specific validation: cardinality,
// membership in selectableIds, numeric bounds, permutation checks.
func validateChoiceResult(pc *PendingChoice, result *ChoiceResult) error {
	inSelectable := func(ids []string) error {
		allowed := make(map[string]bool, len(pc.SelectableIDs))
		for _, id := range pc.SelectableIDs {
			allowed[id] = true
		}
		for _, id := range ids {
			if !allowed[id] {
				return NewRuleError(ErrChoiceInvalid, "%s is not a legal selection", id)
			}
		}
		return nil
	}
	checkCardinality := func(n int) error {
		if pc.ExactCount > 0 && n != pc.ExactCount {
			return NewRuleError(ErrChoiceInvalid, "must select exactly %d", pc.ExactCount)
		}
		if pc.MinCount > 0 && n < pc.MinCount {
			return NewRuleError(ErrChoiceInvalid, "must select at least %d", pc.MinCount)
		}
		if pc.MaxCount > 0 && n > pc.MaxCount {
			return NewRuleError(ErrChoiceInvalid, "must select at most %d", pc.MaxCount)
		}
		return nil
	}

	switch pc.Kind {
	case ChoiceModeSelection, ChoiceAbilitySelection:
		if len(result.OptionIDs) == 0 {
			return NewRuleError(ErrChoiceInvalid, "no option selected")
		}
		valid := make(map[string]bool, len(pc.Options))
		for _, opt := range pc.Options {
			valid[opt.ID] = true
		}
		for _, id := range result.OptionIDs {
			if !valid[id] {
				return NewRuleError(ErrChoiceInvalid, "unknown option %s", id)
			}
		}
		return checkCardinality(len(result.OptionIDs))
	case ChoiceCardSelection:
		if err := checkCardinality(len(result.CardIDs)); err != nil {
			return err
		}
		return inSelectable(result.CardIDs)
	case ChoiceTargetSelection:
		if err := checkCardinality(len(result.TargetIDs)); err != nil {
			return err
		}
		return inSelectable(result.TargetIDs)
	case ChoicePlayerSelection:
		if result.PlayerID == "" {
			return NewRuleError(ErrChoiceInvalid, "no player selected")
		}
		return inSelectable([]string{result.PlayerID})
	case ChoiceYesNo:
		return nil
	case ChoiceOrderSelection:
		if len(result.OrderedIDs) != len(pc.SelectableIDs) {
			return NewRuleError(ErrChoiceInvalid, "ordering must include all %d cards", len(pc.SelectableIDs))
		}
		seen := make(map[string]bool, len(result.OrderedIDs))
		for _, id := range result.OrderedIDs {
			if seen[id] {
				return NewRuleError(ErrChoiceInvalid, "duplicate id %s in ordering", id)
			}
			seen[id] = true
		}
		return inSelectable(result.OrderedIDs)
	case ChoiceNumberSelection:
		if result.Number < pc.MinNumber || (pc.MaxNumber > 0 && result.Number > pc.MaxNumber) {
			return NewRuleError(ErrChoiceInvalid, "number must be between %d and %d", pc.MinNumber, pc.MaxNumber)
		}
		return nil
	default:
		return NewRuleError(ErrChoiceInvalid, "unknown choice kind %s", pc.Kind)
	}
}
