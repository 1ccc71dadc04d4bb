// Package oracle derives best-effort hints from card oracle text. Everything
// here is pure and side-effect-free: a wrong classification may steer a bot
// or an explanation, never corrupt game state.
package oracle

import (
	"regexp"
	"strconv"
	"strings"
)

// EffectTag is a coarse classification of what a piece of rules text does.
type EffectTag string

const (
	EffectDamage      EffectTag = "damage"
	EffectDraw        EffectTag = "draw"
	EffectDestroy     EffectTag = "destroy"
	EffectExile       EffectTag = "exile"
	EffectCounter     EffectTag = "counter_spell"
	EffectPump        EffectTag = "pump"
	EffectToken       EffectTag = "token"
	EffectLifeGain    EffectTag = "life_gain"
	EffectLifeLoss    EffectTag = "life_loss"
	EffectDiscard     EffectTag = "discard"
	EffectBoardWipe   EffectTag = "board_wipe"
	EffectTutor       EffectTag = "tutor"
	EffectBounce      EffectTag = "bounce"
	EffectTapUntap    EffectTag = "tap_untap"
	EffectMana        EffectTag = "mana"
	EffectCounters    EffectTag = "counters"
	EffectUnclassified EffectTag = "unclassified"
)

// AbilityHint is one parsed ability of a card: its trigger or activation
// condition plus a classification of the effect text.
type AbilityHint struct {
	// Raw is the ability's full text line.
	Raw string
	// Triggered is set for "when/whenever/at" abilities.
	Triggered bool
	// Activated is set for "cost: effect" abilities.
	Activated bool
	// TriggerCondition is the clause before the comma for triggered
	// abilities ("when this creature enters the battlefield").
	TriggerCondition string
	// Cost is the activation cost text for activated abilities.
	Cost string
	// EffectText is the text that actually does something.
	EffectText string
	Tag        EffectTag
}

var (
	damageRe       = regexp.MustCompile(`(?i)deals? (\d+|x) damage`)
	drawRe         = regexp.MustCompile(`(?i)draws? (a|one|two|three|four|\d+) cards?`)
	tokenRe        = regexp.MustCompile(`(?i)creates? .* token`)
	gainLifeRe     = regexp.MustCompile(`(?i)gains? (\d+|x) life`)
	loseLifeRe     = regexp.MustCompile(`(?i)loses? (\d+|x) life`)
	pumpRe         = regexp.MustCompile(`(?i)gets? ([+-]\d+)/([+-]\d+)`)
	counterSpellRe = regexp.MustCompile(`(?i)counter target .*spell`)
	wipeRe         = regexp.MustCompile(`(?i)destroy all|exile all|each creature|all creatures`)
	destroyRe      = regexp.MustCompile(`(?i)destroy target`)
	exileRe        = regexp.MustCompile(`(?i)exile target`)
	bounceRe       = regexp.MustCompile(`(?i)return target .* to (its owner's|their owners') hand`)
	tutorRe        = regexp.MustCompile(`(?i)search your library`)
	discardRe      = regexp.MustCompile(`(?i)discards? (a|one|two|\d+) cards?`)
	tapRe          = regexp.MustCompile(`(?i)\btap target\b|\buntap target\b|doesn't untap`)
	countersRe     = regexp.MustCompile(`(?i)put (a|one|two|three|\d+|x) [+-]\d+/[+-]\d+ counters?`)
	manaSymbolRe   = regexp.MustCompile(`\{([WUBRGC])\}`)
	addManaRe      = regexp.MustCompile(`(?i)^add `)
	numberWords    = map[string]int{"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5}
)

// ClassifyEffect tags a piece of effect text with its dominant effect.
// Ordering matters: board wipes are checked before single-target destroy,
// counterspells before generic "counter" wording.
func ClassifyEffect(text string) EffectTag {
	switch {
	case text == "":
		return EffectUnclassified
	case counterSpellRe.MatchString(text):
		return EffectCounter
	case wipeRe.MatchString(text) && (strings.Contains(strings.ToLower(text), "destroy") || strings.Contains(strings.ToLower(text), "exile")):
		return EffectBoardWipe
	case damageRe.MatchString(text):
		return EffectDamage
	case destroyRe.MatchString(text):
		return EffectDestroy
	case exileRe.MatchString(text):
		return EffectExile
	case bounceRe.MatchString(text):
		return EffectBounce
	case drawRe.MatchString(text):
		return EffectDraw
	case tokenRe.MatchString(text):
		return EffectToken
	case countersRe.MatchString(text):
		return EffectCounters
	case pumpRe.MatchString(text):
		return EffectPump
	case discardRe.MatchString(text):
		return EffectDiscard
	case tutorRe.MatchString(text):
		return EffectTutor
	case gainLifeRe.MatchString(text):
		return EffectLifeGain
	case loseLifeRe.MatchString(text):
		return EffectLifeLoss
	case addManaRe.MatchString(strings.TrimSpace(text)):
		return EffectMana
	case tapRe.MatchString(text):
		return EffectTapUntap
	default:
		return EffectUnclassified
	}
}

// Parse splits oracle text into per-line ability hints. Keyword lines
// ("Flying, vigilance") produce no hint; triggered and activated abilities
// are recognized by shape.
func Parse(oracleText string) []AbilityHint {
	var hints []AbilityHint
	for _, line := range strings.Split(oracleText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hint := AbilityHint{Raw: line, EffectText: line}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "when") || strings.HasPrefix(lower, "whenever") || strings.HasPrefix(lower, "at the beginning"):
			hint.Triggered = true
			if idx := strings.Index(line, ","); idx > 0 {
				hint.TriggerCondition = strings.TrimSpace(line[:idx])
				hint.EffectText = strings.TrimSpace(line[idx+1:])
			}
		case strings.Contains(line, ":"):
			parts := strings.SplitN(line, ":", 2)
			hint.Activated = true
			hint.Cost = strings.TrimSpace(parts[0])
			hint.EffectText = strings.TrimSpace(parts[1])
		}
		hint.Tag = ClassifyEffect(hint.EffectText)
		hints = append(hints, hint)
	}
	return hints
}

// DamageAmount extracts N from "deals N damage", 0 when absent or X.
func DamageAmount(text string) int {
	m := damageRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// DrawAmount extracts how many cards "draw ... cards" grants, 0 when absent.
func DrawAmount(text string) int {
	m := drawRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	word := strings.ToLower(m[1])
	if n, ok := numberWords[word]; ok {
		return n
	}
	n, err := strconv.Atoi(word)
	if err != nil {
		return 0
	}
	return n
}

// PumpAmount extracts the power/toughness delta from "gets +X/+Y".
func PumpAmount(text string) (power, toughness int, ok bool) {
	m := pumpRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	p, _ := strconv.Atoi(m[1])
	t, _ := strconv.Atoi(m[2])
	return p, t, true
}

// LifeAmount extracts N from "gain/lose N life", 0 when absent or X.
func LifeAmount(text string) int {
	if m := gainLifeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := loseLifeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

// ManaColors returns the distinct mana colors a piece of text can produce:
// explicit {W}..{C} symbols, or all five colors for "any color" wording.
func ManaColors(text string) []string {
	if strings.Contains(strings.ToLower(text), "any color") {
		return []string{"W", "U", "B", "R", "G"}
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range manaSymbolRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// TargetsCreatures reports whether the text asks for a creature target.
func TargetsCreatures(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "target creature")
}

// TargetsAnyTarget reports whether the text uses "any target" wording
// (creature, player or planeswalker).
func TargetsAnyTarget(text string) bool {
	return strings.Contains(strings.ToLower(text), "any target")
}

// TargetsPlayers reports whether the text asks for a player target.
func TargetsPlayers(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "target player") || strings.Contains(lower, "target opponent")
}

// RequiresTarget reports whether the effect text names any target at all.
func RequiresTarget(text string) bool {
	return strings.Contains(strings.ToLower(text), "target")
}

// IsModal reports whether the text is a "Choose one —" style modal effect.
func IsModal(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "choose one") || strings.Contains(lower, "choose two") ||
		strings.Contains(lower, "choose up to")
}

// Modes splits a modal effect's text into its bullet options.
func Modes(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") {
			out = append(out, strings.TrimSpace(strings.TrimLeft(line, "•- ")))
		}
	}
	// Single-line bullets separated inline.
	if len(out) == 0 && strings.Contains(text, "•") {
		parts := strings.Split(text, "•")
		for _, p := range parts[1:] {
			p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), ";"))
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// IsMayEffect reports whether the text is optional ("you may ...").
func IsMayEffect(text string) bool {
	return strings.Contains(strings.ToLower(text), "you may")
}

// HasETBTrigger reports whether the oracle text contains an
// enters-the-battlefield trigger.
func HasETBTrigger(oracleText string) bool {
	lower := strings.ToLower(oracleText)
	return strings.Contains(lower, "enters the battlefield") || strings.Contains(lower, "when this creature enters") ||
		strings.Contains(lower, "when this permanent enters")
}

// HasLandfall reports whether the oracle text has a landfall-style trigger.
func HasLandfall(oracleText string) bool {
	lower := strings.ToLower(oracleText)
	return strings.Contains(lower, "landfall") || strings.Contains(lower, "whenever a land enters the battlefield under your control")
}

// HasAttackTrigger reports whether the text triggers on attacking.
func HasAttackTrigger(oracleText string) bool {
	lower := strings.ToLower(oracleText)
	return strings.Contains(lower, "whenever this creature attacks") || strings.Contains(lower, "attacks,")
}
