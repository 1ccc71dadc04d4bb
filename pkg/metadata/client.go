// Package metadata fetches card records from the external card database.
// The upstream is rate limited, so the client paces requests, chunks
// collection lookups and caches every record it has seen in process.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"

	"manaforge/pkg/game"
)

// DefaultBaseURL is the public card database endpoint.
const DefaultBaseURL = "https://api.scryfall.com"

// minRequestGap is the pacing the upstream asks clients to respect.
const minRequestGap = 75 * time.Millisecond

// collectionChunk is the identifier limit per collection request.
const collectionChunk = 75

// Identifier selects one card by scryfall id or by name.
type Identifier struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// cardRecord is the upstream card shape, reduced to the fields the engine
// consumes.
type cardRecord struct {
	ID           string   `json:"id"`
	OracleID     string   `json:"oracle_id"`
	Name         string   `json:"name"`
	ManaCost     string   `json:"mana_cost"`
	TypeLine     string   `json:"type_line"`
	OracleText   string   `json:"oracle_text"`
	Colors       []string `json:"colors"`
	Power        string   `json:"power"`
	Toughness    string   `json:"toughness"`
	Loyalty      string   `json:"loyalty"`
	Defense      string   `json:"defense"`
	Keywords     []string `json:"keywords"`
	ProducedMana []string `json:"produced_mana"`
	Set          string   `json:"set"`
	Layout       string   `json:"layout"`
	ImageURIs    struct {
		Normal string `json:"normal"`
	} `json:"image_uris"`
	CardFaces []struct {
		Name       string   `json:"name"`
		ManaCost   string   `json:"mana_cost"`
		TypeLine   string   `json:"type_line"`
		OracleText string   `json:"oracle_text"`
		Power      string   `json:"power"`
		Toughness  string   `json:"toughness"`
		Loyalty    string   `json:"loyalty"`
		Colors     []string `json:"colors"`
		ImageURIs  struct {
			Normal string `json:"normal"`
		} `json:"image_uris"`
	} `json:"card_faces"`
}

// Set is one release-tagged card set.
type Set struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	SetType    string `json:"set_type"`
	ReleasedAt string `json:"released_at"`
	CardCount  int    `json:"card_count"`
	IconURI    string `json:"icon_svg_uri"`
}

// Client talks to the card database. Safe for concurrent use; all requests
// are serialized through the pacing gate.
type Client struct {
	baseURL string
	http    *http.Client
	log     slog.Logger

	paceMu   sync.Mutex
	lastCall time.Time

	cacheMu sync.RWMutex
	byID    map[string]*game.CardDefinition
	byName  map[string]*game.CardDefinition
}

// NewClient creates a client for the given base URL, empty for the default.
func NewClient(baseURL string, log slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
		byID:    make(map[string]*game.CardDefinition),
		byName:  make(map[string]*game.CardDefinition),
	}
}

// Cards resolves identifiers to card definitions, serving from cache where
// possible and batching the rest through /cards/collection.
func (c *Client) Cards(ctx context.Context, idents []Identifier) ([]game.CardDefinition, error) {
	out := make([]game.CardDefinition, 0, len(idents))
	var missing []Identifier
	for _, ident := range idents {
		if def := c.cached(ident); def != nil {
			out = append(out, *def)
			continue
		}
		missing = append(missing, ident)
	}

	for start := 0; start < len(missing); start += collectionChunk {
		end := start + collectionChunk
		if end > len(missing) {
			end = len(missing)
		}
		defs, err := c.fetchCollection(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, defs...)
	}
	return out, nil
}

// Sets lists all card sets.
func (c *Client) Sets(ctx context.Context) ([]Set, error) {
	var body struct {
		Data []Set `json:"data"`
	}
	if err := c.get(ctx, "/sets", &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

func (c *Client) cached(ident Identifier) *game.CardDefinition {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	if ident.ID != "" {
		return c.byID[ident.ID]
	}
	return c.byName[strings.ToLower(ident.Name)]
}

func (c *Client) fetchCollection(ctx context.Context, idents []Identifier) ([]game.CardDefinition, error) {
	reqBody, err := json.Marshal(map[string]interface{}{"identifiers": idents})
	if err != nil {
		return nil, err
	}

	c.pace()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/cards/collection", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card collection request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card collection request: status %d", resp.StatusCode)
	}

	var body struct {
		Data     []cardRecord  `json:"data"`
		NotFound []interface{} `json:"not_found"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode card collection: %w", err)
	}
	if len(body.NotFound) > 0 {
		c.log.Warnf("card database could not resolve %d identifier(s)", len(body.NotFound))
	}

	defs := make([]game.CardDefinition, 0, len(body.Data))
	for _, rec := range body.Data {
		def := toDefinition(rec)
		defs = append(defs, def)
		c.cacheMu.Lock()
		stored := def
		c.byID[def.ScryfallID] = &stored
		c.byName[strings.ToLower(def.Name)] = &stored
		c.cacheMu.Unlock()
	}
	return defs, nil
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	c.pace()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// pace blocks until at least minRequestGap has passed since the last call.
func (c *Client) pace() {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()
	if wait := minRequestGap - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}

// toDefinition maps an upstream record into the engine's card shape.
func toDefinition(rec cardRecord) game.CardDefinition {
	def := game.CardDefinition{
		OracleID:     rec.OracleID,
		ScryfallID:   rec.ID,
		SetCode:      rec.Set,
		Name:         rec.Name,
		ManaCost:     rec.ManaCost,
		TypeLine:     rec.TypeLine,
		OracleText:   rec.OracleText,
		Colors:       rec.Colors,
		Power:        rec.Power,
		Toughness:    rec.Toughness,
		Loyalty:      rec.Loyalty,
		Defense:      rec.Defense,
		Keywords:     rec.Keywords,
		ProducedMana: rec.ProducedMana,
		ImageURL:     rec.ImageURIs.Normal,
	}
	for _, face := range rec.CardFaces {
		def.Faces = append(def.Faces, game.CardFace{
			Name:      face.Name,
			ManaCost:  face.ManaCost,
			TypeLine:  face.TypeLine,
			Text:      face.OracleText,
			Power:     atoiOrZero(face.Power),
			Toughness: atoiOrZero(face.Toughness),
			ImageURL:  face.ImageURIs.Normal,
		})
	}
	return def
}

// atoiOrZero parses numeric power/toughness, zero for "*" style values.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
