package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one websocket connection. A client identifies itself through the
// first room event it sends; until then it can only create or join rooms.
type Client struct {
	server *Server
	conn   *websocket.Conn

	playerID string
	roomID   string

	out       chan Frame
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		server: s,
		conn:   conn,
		out:    make(chan Frame, 64),
		done:   make(chan struct{}),
	}
}

// send queues a frame for delivery, dropping it if the client is too far
// behind to matter.
func (c *Client) send(f Frame) {
	select {
	case c.out <- f:
	case <-c.done:
	default:
		c.server.log.Warnf("dropping frame %s to slow client %s", f.Event, c.playerID)
	}
}

// sendEvent marshals a payload and queues it.
func (c *Client) sendEvent(event string, payload interface{}) {
	f, err := ackFrame(event, payload)
	if err != nil {
		c.server.log.Errorf("encode %s frame: %v", event, err)
		return
	}
	c.send(f)
}

// sendError delivers a game_error frame to this client only.
func (c *Client) sendError(message, kind, color string) {
	c.sendEvent(EvGameError, gameErrorEvent{
		Message: message,
		Kind:    kind,
		Color:   color,
		UserID:  c.playerID,
	})
}

// close tears the connection down once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		if c.roomID != "" {
			c.server.clientGone(c)
		}
	})
}

// readPump decodes inbound frames and hands them to the server until the
// connection dies.
func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.log.Debugf("client %s read error: %v", c.playerID, err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.sendError("malformed frame", "decode", "")
			continue
		}
		c.server.handleFrame(c, f)
	}
}

// writePump serializes outbound frames and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case f := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
