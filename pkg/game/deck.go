package game

import (
	"strconv"
	"strings"
)

// CardDefinition is the printable card a deck entry refers to, as delivered
// by the card metadata service.
type CardDefinition struct {
	OracleID     string     `json:"oracleId,omitempty"`
	ScryfallID   string     `json:"scryfallId,omitempty"`
	SetCode      string     `json:"setCode,omitempty"`
	Name         string     `json:"name"`
	ManaCost     string     `json:"manaCost,omitempty"`
	TypeLine     string     `json:"typeLine"`
	OracleText   string     `json:"oracleText,omitempty"`
	Colors       []string   `json:"colors,omitempty"`
	Power        string     `json:"power,omitempty"`
	Toughness    string     `json:"toughness,omitempty"`
	Loyalty      string     `json:"loyalty,omitempty"`
	Defense      string     `json:"defense,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	ProducedMana []string   `json:"producedMana,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	Faces        []CardFace `json:"faces,omitempty"`
}

// DeckEntry is one line of a deck list.
type DeckEntry struct {
	Count int            `json:"count"`
	Card  CardDefinition `json:"card"`
}

// Deck is a named list of cards.
type Deck struct {
	Name    string      `json:"name"`
	Entries []DeckEntry `json:"entries"`
}

// Size returns the total number of cards in the deck.
func (d *Deck) Size() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Count
	}
	return total
}

// LoadDeck materializes a player's deck into their library, face down, and
// shuffles it. Types are parsed eagerly from the type line.
func (g *GameState) LoadDeck(pid string, deck *Deck) {
	for _, entry := range deck.Entries {
		for i := 0; i < entry.Count; i++ {
			c := newCardFromDefinition(g, pid, entry.Card)
			g.Cards[c.ID] = c
		}
	}
	g.shuffleLibrary(pid)
}

// newCardFromDefinition instantiates one card in the owner's library.
func newCardFromDefinition(g *GameState, ownerID string, def CardDefinition) *Card {
	super, types, subs := ParseTypeLine(def.TypeLine)
	c := &Card{
		ID:            g.NewCardID(),
		OwnerID:       ownerID,
		ControllerID:  ownerID,
		OracleID:      def.OracleID,
		ScryfallID:    def.ScryfallID,
		SetCode:       def.SetCode,
		Name:          def.Name,
		Zone:          ZoneLibrary,
		FaceDown:      true,
		ManaCost:      def.ManaCost,
		Colors:        def.Colors,
		TypeLine:      def.TypeLine,
		OracleText:    def.OracleText,
		Types:         types,
		Subtypes:      subs,
		Supertypes:    super,
		BasePower:     atoiOrZero(def.Power),
		BaseToughness: atoiOrZero(def.Toughness),
		BaseLoyalty:   atoiOrZero(def.Loyalty),
		BaseDefense:   atoiOrZero(def.Defense),
		Keywords:      def.Keywords,
		ProducedMana:  def.ProducedMana,
		ImageURL:      def.ImageURL,
		Faces:         def.Faces,
		ZoneIndex:     g.NextZoneIndex(),
	}
	if len(c.Faces) > 0 {
		c.applyFace(0)
	}
	return c
}

// atoiOrZero parses scryfall-style power/toughness strings ("3", "*", "1+*").
func atoiOrZero(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
