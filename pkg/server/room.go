package server

import (
	"sync"
	"time"

	"manaforge/pkg/game"
	"manaforge/pkg/statemachine"
)

// RoomStatus is the lifecycle stage of a room.
type RoomStatus string

const (
	RoomWaiting      RoomStatus = "waiting"
	RoomDeckBuilding RoomStatus = "deck_building"
	RoomPlaying      RoomStatus = "playing"
	RoomFinished     RoomStatus = "finished"
)

// MaxRoomPlayers caps the seats in a room.
const MaxRoomPlayers = 2

// RoomPlayer is one seat in a room.
type RoomPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsBot     bool   `json:"isBot"`
	IsHost    bool   `json:"isHost"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`

	deck *game.Deck
}

// RoomView is the serialized shape of a room, both for the store and for
// room_update frames.
type RoomView struct {
	ID        string        `json:"id"`
	HostID    string        `json:"hostId"`
	Format    string        `json:"format,omitempty"`
	SetCode   string        `json:"setCode,omitempty"`
	Status    RoomStatus    `json:"status"`
	Players   []*RoomPlayer `json:"players"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Room is the live, in-process room: membership, lifecycle and the set of
// connected subscribers. The game state itself lives in the store and is
// only touched under the room's store lock.
type Room struct {
	mu sync.Mutex

	id        string
	hostID    string
	format    string
	setCode   string
	status    RoomStatus
	players   []*RoomPlayer
	createdAt time.Time

	subscribers map[string]*Client
	machine     *statemachine.Machine[Room]
}

func newRoom(id, hostID, hostName, format, setCode string) *Room {
	r := &Room{
		id:        id,
		hostID:    hostID,
		format:    format,
		setCode:   setCode,
		status:    RoomWaiting,
		createdAt: time.Now().UTC(),
		players: []*RoomPlayer{{
			ID:     hostID,
			Name:   hostName,
			IsHost: true,
		}},
		subscribers: make(map[string]*Client),
	}
	r.machine = statemachine.New(r, stateWaiting)
	return r
}

// stateWaiting holds until every seat is filled.
func stateWaiting(r *Room) statemachine.StateFn[Room] {
	r.status = RoomWaiting
	if len(r.players) >= MaxRoomPlayers {
		return stateDeckBuilding
	}
	return stateWaiting
}

// stateDeckBuilding holds until every seat has a deck and is ready.
func stateDeckBuilding(r *Room) statemachine.StateFn[Room] {
	r.status = RoomDeckBuilding
	for _, p := range r.players {
		if !p.IsBot && (!p.Ready || p.deck == nil) {
			return stateDeckBuilding
		}
	}
	return statePlaying
}

// statePlaying is the match in progress; the dispatcher flips to finished
// when the game state reports a winner.
func statePlaying(r *Room) statemachine.StateFn[Room] {
	r.status = RoomPlaying
	return statePlaying
}

// stateFinished is terminal.
func stateFinished(r *Room) statemachine.StateFn[Room] {
	r.status = RoomFinished
	return nil
}

// advance runs the lifecycle machine until it settles, so a transition
// decided by one state is applied before control returns. Callers hold r.mu.
func (r *Room) advance() {
	r.machine.Settle()
}

// player finds a seat by id. Callers hold r.mu.
func (r *Room) player(id string) *RoomPlayer {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// addPlayer seats a player, stepping the lifecycle. Callers hold r.mu.
func (r *Room) addPlayer(p *RoomPlayer) bool {
	if len(r.players) >= MaxRoomPlayers || r.player(p.ID) != nil {
		return false
	}
	r.players = append(r.players, p)
	r.advance()
	return true
}

// removePlayer drops a seat. Callers hold r.mu.
func (r *Room) removePlayer(id string) {
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return
		}
	}
}

// finish moves the room to its terminal state. Callers hold r.mu.
func (r *Room) finish() {
	r.machine.Dispatch(stateFinished)
}

// view snapshots the room for serialization. Callers hold r.mu.
func (r *Room) view() *RoomView {
	players := make([]*RoomPlayer, len(r.players))
	for i, p := range r.players {
		cp := *p
		cp.deck = nil
		players[i] = &cp
	}
	return &RoomView{
		ID:        r.id,
		HostID:    r.hostID,
		Format:    r.format,
		SetCode:   r.setCode,
		Status:    r.status,
		Players:   players,
		CreatedAt: r.createdAt,
	}
}

// subscribe attaches a client connection to room broadcasts.
func (r *Room) subscribe(c *Client) {
	r.mu.Lock()
	r.subscribers[c.playerID] = c
	if p := r.player(c.playerID); p != nil {
		p.Connected = true
	}
	r.mu.Unlock()
}

// unsubscribe detaches a client; the seat stays for rejoin.
func (r *Room) unsubscribe(playerID string) {
	r.mu.Lock()
	delete(r.subscribers, playerID)
	if p := r.player(playerID); p != nil {
		p.Connected = false
	}
	r.mu.Unlock()
}

// broadcast sends a frame to every subscriber.
func (r *Room) broadcast(f Frame) {
	r.mu.Lock()
	subs := make([]*Client, 0, len(r.subscribers))
	for _, c := range r.subscribers {
		subs = append(subs, c)
	}
	r.mu.Unlock()
	for _, c := range subs {
		c.send(f)
	}
}

// sendTo sends a frame to one subscriber, if connected.
func (r *Room) sendTo(playerID string, f Frame) {
	r.mu.Lock()
	c := r.subscribers[playerID]
	r.mu.Unlock()
	if c != nil {
		c.send(f)
	}
}
