package game

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"manaforge/pkg/oracle"
)

// ManaCost is the parsed form of a mana cost string like "{1}{U}{U}" or
// "{2}{W/U}".
type ManaCost struct {
	Generic int           `json:"generic"`
	Colors  map[Color]int `json:"colors"`
	// Hybrids holds one option list per hybrid symbol, in the order the
	// symbols appear. Each option is either a color letter or a small
	// integer rendered as a string.
	Hybrids [][]string `json:"hybrids,omitempty"`
}

var manaSymbolPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// ParseManaCost parses a cost string into its generic, colored and hybrid
// components. An empty string is a free cost.
func ParseManaCost(cost string) (*ManaCost, error) {
	parsed := &ManaCost{Colors: make(map[Color]int)}
	if cost == "" {
		return parsed, nil
	}
	matches := manaSymbolPattern.FindAllStringSubmatch(cost, -1)
	consumed := 0
	for _, m := range matches {
		consumed += len(m[0])
		sym := strings.ToUpper(m[1])
		switch {
		case isColorLetter(sym):
			parsed.Colors[Color(sym)]++
		case strings.Contains(sym, "/"):
			sides := strings.Split(sym, "/")
			if len(sides) < 2 {
				return nil, NewRuleError(ErrInvalidManaCost, "bad hybrid symbol %q in %q", sym, cost)
			}
			for _, side := range sides {
				if !isColorLetter(side) && !isSmallInteger(side) {
					return nil, NewRuleError(ErrInvalidManaCost, "bad hybrid side %q in %q", side, cost)
				}
			}
			parsed.Hybrids = append(parsed.Hybrids, sides)
		default:
			n, err := strconv.Atoi(sym)
			if err != nil || n < 0 {
				return nil, NewRuleError(ErrInvalidManaCost, "bad symbol %q in %q", sym, cost)
			}
			parsed.Generic += n
		}
	}
	if consumed != len(cost) {
		return nil, NewRuleError(ErrInvalidManaCost, "trailing characters in %q", cost)
	}
	return parsed, nil
}

// String renders the cost in canonical form: generic first, then colors in
// WUBRGC order, then hybrid symbols in recorded order. Parsing the result
// yields an equal ManaCost.
func (mc *ManaCost) String() string {
	var b strings.Builder
	if mc.Generic > 0 {
		fmt.Fprintf(&b, "{%d}", mc.Generic)
	}
	for _, color := range AllColors {
		for i := 0; i < mc.Colors[color]; i++ {
			fmt.Fprintf(&b, "{%s}", color)
		}
	}
	for _, hy := range mc.Hybrids {
		fmt.Fprintf(&b, "{%s}", strings.Join(hy, "/"))
	}
	return b.String()
}

// ConvertedCost returns the total mana value, counting hybrids at their
// cheapest numeric side (or 1 for pure color hybrids).
func (mc *ManaCost) ConvertedCost() int {
	total := mc.Generic
	for _, n := range mc.Colors {
		total += n
	}
	for _, hy := range mc.Hybrids {
		cheapest := 1
		for _, side := range hy {
			if n, err := strconv.Atoi(side); err == nil && n < cheapest {
				cheapest = n
			}
		}
		total += cheapest
	}
	return total
}

func isColorLetter(s string) bool {
	return len(s) == 1 && strings.ContainsAny(s, "WUBRGC")
}

func isSmallInteger(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 20
}

// manaPayment is the committed plan produced by planPayment: how much to
// draw from the pool per color and which lands to tap.
type manaPayment struct {
	fromPool   map[Color]int
	landsToTap []string
}

// AvailableManaColors returns the colors a card can produce: the card
// definition's produced-mana field if present, basic land subtypes second,
// and an oracle-text scan last.
func AvailableManaColors(c *Card) []Color {
	if len(c.ProducedMana) > 0 {
		out := make([]Color, 0, len(c.ProducedMana))
		for _, s := range c.ProducedMana {
			if isColorLetter(strings.ToUpper(s)) {
				out = append(out, Color(strings.ToUpper(s)))
			}
		}
		return out
	}
	basics := map[string]Color{
		"Plains": White, "Island": Blue, "Swamp": Black,
		"Mountain": Red, "Forest": Green, "Wastes": Colorless,
	}
	var out []Color
	for subtype, color := range basics {
		if c.HasSubtype(subtype) {
			out = append(out, color)
		}
	}
	if c.Name != "" {
		if color, ok := basics[c.Name]; ok && len(out) == 0 {
			out = append(out, color)
		}
	}
	if len(out) > 0 {
		sortColors(out)
		return out
	}
	for _, s := range oracle.ManaColors(c.OracleText) {
		out = append(out, Color(s))
	}
	sortColors(out)
	return out
}

func sortColors(colors []Color) {
	rank := map[Color]int{White: 0, Blue: 1, Black: 2, Red: 3, Green: 4, Colorless: 5}
	sort.Slice(colors, func(i, j int) bool { return rank[colors[i]] < rank[colors[j]] })
}

func canProduce(c *Card, color Color) bool {
	for _, pc := range AvailableManaColors(c) {
		if pc == color {
			return true
		}
	}
	return false
}

// planPayment runs the deterministic greedy auto-pay over a snapshot of the
// player's pool and untapped lands, without mutating state. Order is fixed:
// colored requirements in WUBRGC order (pool first, then first-seen producing
// lands), hybrid options in listed order, generic last from remaining pool
// then any remaining land.
func (g *GameState) planPayment(pid string, cost *ManaCost) (*manaPayment, error) {
	player := g.Player(pid)
	if player == nil {
		return nil, NewRuleError(ErrCardNotFound, "player %s not found", pid)
	}

	pool := make(map[Color]int, len(player.ManaPool))
	for color, n := range player.ManaPool {
		pool[color] = n
	}
	var lands []*Card
	for _, c := range g.BattlefieldControlledBy(pid) {
		if c.HasType("Land") && !c.Tapped {
			lands = append(lands, c)
		}
	}
	tapped := make(map[string]bool)
	payment := &manaPayment{fromPool: make(map[Color]int)}

	takeColor := func(color Color) bool {
		if pool[color] > 0 {
			pool[color]--
			payment.fromPool[color]++
			return true
		}
		for _, land := range lands {
			if !tapped[land.ID] && canProduce(land, color) {
				tapped[land.ID] = true
				payment.landsToTap = append(payment.landsToTap, land.ID)
				return true
			}
		}
		return false
	}

	// Colored requirements, canonical order.
	for _, color := range AllColors {
		for i := 0; i < cost.Colors[color]; i++ {
			if !takeColor(color) {
				return nil, NewManaError(string(color))
			}
		}
	}

	// Hybrid symbols: first listed option that succeeds wins.
	for _, options := range cost.Hybrids {
		paid := false
		for _, opt := range options {
			if isColorLetter(opt) {
				if takeColor(Color(opt)) {
					paid = true
					break
				}
				continue
			}
			// Numeric side of a hybrid behaves like generic cost.
			n, _ := strconv.Atoi(opt)
			if payGeneric(n, pool, lands, tapped, payment) {
				paid = true
				break
			}
		}
		if !paid {
			return nil, NewManaError(strings.Join(options, "/"))
		}
	}

	// Generic portion: remaining pool first, then any untapped producer.
	if !payGeneric(cost.Generic, pool, lands, tapped, payment) {
		return nil, NewManaError("generic")
	}
	return payment, nil
}

// payGeneric consumes n mana of any color from pool then lands, recording
// the plan. Pool colors drain in canonical order so tests are stable.
func payGeneric(n int, pool map[Color]int, lands []*Card, tapped map[string]bool, payment *manaPayment) bool {
	for n > 0 {
		paid := false
		for _, color := range AllColors {
			if pool[color] > 0 {
				pool[color]--
				payment.fromPool[color]++
				paid = true
				break
			}
		}
		if !paid {
			for _, land := range lands {
				if !tapped[land.ID] && len(AvailableManaColors(land)) > 0 {
					tapped[land.ID] = true
					payment.landsToTap = append(payment.landsToTap, land.ID)
					paid = true
					break
				}
			}
		}
		if !paid {
			return false
		}
		n--
	}
	return true
}

// payCost plans and commits a mana payment: pool is debited and the chosen
// lands are tapped. Returns an InsufficientMana error (state untouched) when
// the cost cannot be covered.
func (g *GameState) payCost(pid string, cost *ManaCost) error {
	payment, err := g.planPayment(pid, cost)
	if err != nil {
		return err
	}
	player := g.Player(pid)
	for color, n := range payment.fromPool {
		player.ManaPool[color] -= n
		if player.ManaPool[color] <= 0 {
			delete(player.ManaPool, color)
		}
	}
	for _, landID := range payment.landsToTap {
		g.Card(landID).Tapped = true
	}
	return nil
}

// CanPayCost reports whether the player could pay the given cost right now.
func (g *GameState) CanPayCost(pid string, cost *ManaCost) bool {
	_, err := g.planPayment(pid, cost)
	return err == nil
}
