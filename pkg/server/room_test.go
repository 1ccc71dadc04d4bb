package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manaforge/pkg/game"
)

func TestRoomLifecycle(t *testing.T) {
	r := newRoom("r1", "h", "Host", "standard", "FDN")
	assert.Equal(t, RoomWaiting, r.status)
	require.Len(t, r.players, 1)
	assert.True(t, r.players[0].IsHost)

	r.mu.Lock()
	defer r.mu.Unlock()

	require.True(t, r.addPlayer(&RoomPlayer{ID: "g", Name: "Guest"}))
	assert.Equal(t, RoomDeckBuilding, r.status)

	// Readiness without a deck does not move the room.
	r.player("h").Ready = true
	r.advance()
	assert.Equal(t, RoomDeckBuilding, r.status)

	deck := &game.Deck{Name: "mono"}
	for _, p := range r.players {
		p.Ready = true
		p.deck = deck
	}
	r.advance()
	assert.Equal(t, RoomPlaying, r.status)

	r.finish()
	assert.Equal(t, RoomFinished, r.status)
	// Terminal: further steps change nothing.
	assert.False(t, r.machine.Step())
	assert.Equal(t, RoomFinished, r.status)
}

func TestRoomRejectsOverfillAndDuplicates(t *testing.T) {
	r := newRoom("r1", "h", "Host", "", "")
	r.mu.Lock()
	defer r.mu.Unlock()

	assert.False(t, r.addPlayer(&RoomPlayer{ID: "h", Name: "Again"}))
	require.True(t, r.addPlayer(&RoomPlayer{ID: "g"}))
	assert.False(t, r.addPlayer(&RoomPlayer{ID: "third"}))
	assert.Len(t, r.players, 2)
}

func TestBotSeatNeedsNoDeck(t *testing.T) {
	r := newRoom("r1", "h", "Host", "solo_test", "")
	r.mu.Lock()
	defer r.mu.Unlock()

	require.True(t, r.addPlayer(&RoomPlayer{ID: "bot_1", Name: "Goldfish", IsBot: true, Ready: true}))
	assert.Equal(t, RoomDeckBuilding, r.status)

	host := r.player("h")
	host.Ready = true
	host.deck = &game.Deck{Name: "test"}
	r.advance()
	assert.Equal(t, RoomPlaying, r.status)
}

func TestRemovePlayerFreesTheSeat(t *testing.T) {
	r := newRoom("r1", "h", "Host", "", "")
	r.mu.Lock()
	defer r.mu.Unlock()

	require.True(t, r.addPlayer(&RoomPlayer{ID: "g"}))
	r.removePlayer("g")
	assert.Nil(t, r.player("g"))
	assert.Len(t, r.players, 1)
}

func TestRoomViewCopiesSeatsAndHidesDecks(t *testing.T) {
	r := newRoom("r1", "h", "Host", "standard", "FDN")
	r.mu.Lock()
	defer r.mu.Unlock()

	host := r.player("h")
	host.deck = &game.Deck{Name: "secret"}

	v := r.view()
	assert.Equal(t, "r1", v.ID)
	assert.Equal(t, "h", v.HostID)
	assert.Equal(t, "standard", v.Format)
	assert.Equal(t, "FDN", v.SetCode)
	require.Len(t, v.Players, 1)
	assert.Nil(t, v.Players[0].deck)

	// The view holds copies; mutating it does not touch the room.
	v.Players[0].Name = "renamed"
	assert.Equal(t, "Host", host.Name)
}

func TestSubscribeTracksConnection(t *testing.T) {
	r := newRoom("r1", "h", "Host", "", "")
	c := &Client{playerID: "h"}

	r.subscribe(c)
	r.mu.Lock()
	assert.True(t, r.player("h").Connected)
	r.mu.Unlock()

	r.unsubscribe("h")
	r.mu.Lock()
	assert.False(t, r.player("h").Connected)
	r.mu.Unlock()
}
