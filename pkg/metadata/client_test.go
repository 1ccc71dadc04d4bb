package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boltRecord() cardRecord {
	return cardRecord{
		ID:         "sf-bolt",
		OracleID:   "or-bolt",
		Name:       "Lightning Bolt",
		ManaCost:   "{R}",
		TypeLine:   "Instant",
		OracleText: "Lightning Bolt deals 3 damage to any target.",
		Colors:     []string{"R"},
		Set:        "lea",
	}
}

// collectionServer answers /cards/collection by echoing back a record per
// requested identifier and counts the requests it saw.
func collectionServer(t *testing.T, calls *atomic.Int32, chunkSizes *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cards/collection", r.URL.Path)
		calls.Add(1)

		var req struct {
			Identifiers []Identifier `json:"identifiers"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if chunkSizes != nil {
			*chunkSizes = append(*chunkSizes, len(req.Identifiers))
		}

		var data []cardRecord
		for _, ident := range req.Identifiers {
			rec := boltRecord()
			if ident.Name != "" {
				rec.Name = ident.Name
				rec.ID = "sf-" + ident.Name
			} else {
				rec.ID = ident.ID
			}
			data = append(data, rec)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
}

func TestCardsFetchesAndMaps(t *testing.T) {
	var calls atomic.Int32
	srv := collectionServer(t, &calls, nil)
	defer srv.Close()

	c := NewClient(srv.URL, slog.Disabled)
	defs, err := c.Cards(context.Background(), []Identifier{{Name: "Lightning Bolt"}})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Lightning Bolt", defs[0].Name)
	assert.Equal(t, "{R}", defs[0].ManaCost)
	assert.Equal(t, "Instant", defs[0].TypeLine)
	assert.Equal(t, "lea", defs[0].SetCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCardsServesRepeatsFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := collectionServer(t, &calls, nil)
	defer srv.Close()

	c := NewClient(srv.URL, slog.Disabled)
	ctx := context.Background()

	_, err := c.Cards(ctx, []Identifier{{Name: "Lightning Bolt"}})
	require.NoError(t, err)

	// Cache hits by name and by the id the first response carried.
	defs, err := c.Cards(ctx, []Identifier{{Name: "lightning bolt"}, {ID: "sf-Lightning Bolt"}})
	require.NoError(t, err)
	assert.Len(t, defs, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCardsChunksLargeCollections(t *testing.T) {
	var calls atomic.Int32
	var chunks []int
	srv := collectionServer(t, &calls, &chunks)
	defer srv.Close()

	idents := make([]Identifier, collectionChunk+10)
	for i := range idents {
		idents[i] = Identifier{Name: fmt.Sprintf("Card %03d", i)}
	}

	c := NewClient(srv.URL, slog.Disabled)
	defs, err := c.Cards(context.Background(), idents)
	require.NoError(t, err)
	assert.Len(t, defs, len(idents))
	assert.Equal(t, []int{collectionChunk, 10}, chunks)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCardsUpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.Disabled)
	_, err := c.Cards(context.Background(), []Identifier{{Name: "Anything"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSetsDecodesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sets", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []Set{
				{Code: "lea", Name: "Limited Edition Alpha", SetType: "core", CardCount: 295},
				{Code: "fdn", Name: "Foundations", SetType: "core", CardCount: 291},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.Disabled)
	sets, err := c.Sets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "lea", sets[0].Code)
	assert.Equal(t, 291, sets[1].CardCount)
}

func TestDoubleFacedRecordMapsFaces(t *testing.T) {
	rec := boltRecord()
	rec.Name = "Delver of Secrets // Insectile Aberration"
	rec.CardFaces = []struct {
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
	}{
		{Name: "Delver of Secrets", ManaCost: "{U}", TypeLine: "Creature — Human Wizard", Power: "1", Toughness: "1"},
		{Name: "Insectile Aberration", TypeLine: "Creature — Human Insect", Power: "3", Toughness: "2"},
	}

	def := toDefinition(rec)
	require.Len(t, def.Faces, 2)
	assert.Equal(t, "Delver of Secrets", def.Faces[0].Name)
	assert.Equal(t, 1, def.Faces[0].Power)
	assert.Equal(t, 3, def.Faces[1].Power)
	assert.Equal(t, 2, def.Faces[1].Toughness)
}
