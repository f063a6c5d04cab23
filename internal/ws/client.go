package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/tracking"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// ErrSendBufferFull is returned by Deliver when a subscriber cannot
// keep up; the registry drops it from the room.
var ErrSendBufferFull = errors.New("ws: send buffer full")

// Client is one websocket connection's view of the tracking engine. It
// implements tracking.Subscriber: fan-out goes through the send channel
// so a slow socket never blocks a room.
type Client struct {
	id       string
	role     models.Role
	conn     *websocket.Conn
	send     chan models.Event
	registry *tracking.Registry
	logger   zerolog.Logger

	mu    sync.Mutex
	rooms map[string]bool

	closeOnce sync.Once
}

func newClient(id string, role models.Role, conn *websocket.Conn, registry *tracking.Registry, buffer int, logger zerolog.Logger) *Client {
	return &Client{
		id:       id,
		role:     role,
		conn:     conn,
		send:     make(chan models.Event, buffer),
		registry: registry,
		rooms:    make(map[string]bool),
		logger:   logger.With().Str("client_id", id).Logger(),
	}
}

// ID implements tracking.Subscriber.
func (c *Client) ID() string {
	return c.id
}

// Deliver implements tracking.Subscriber. It never blocks.
func (c *Client) Deliver(ev models.Event) error {
	select {
	case c.send <- ev:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) trackRoom(alertID string) {
	c.mu.Lock()
	c.rooms[alertID] = true
	c.mu.Unlock()
}

func (c *Client) forgetRoom(alertID string) {
	c.mu.Lock()
	delete(c.rooms, alertID)
	c.mu.Unlock()
}

// shutdown leaves every joined room and closes the socket exactly once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		rooms := make([]string, 0, len(c.rooms))
		for id := range c.rooms {
			rooms = append(rooms, id)
		}
		c.rooms = make(map[string]bool)
		c.mu.Unlock()

		for _, id := range rooms {
			c.registry.Leave(id, c.id)
		}
		close(c.send)
		c.conn.Close()
	})
}

// readPump consumes inbound events until the connection drops.
func (c *Client) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev models.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("connection dropped")
			}
			return
		}
		c.handle(ev)
	}
}

// handle routes one inbound event. Join/leave/create are connection
// concerns; everything else goes through the registry's publish path.
func (c *Client) handle(ev models.Event) {
	if ev.SenderID == "" {
		ev.SenderID = c.id
	}
	if ev.Role == "" {
		ev.Role = c.role
	}

	switch ev.Type {
	case models.EventJoinTracking:
		if _, err := c.registry.Join(ev.AlertID, c, ev.Role); err != nil {
			c.replyError(ev.AlertID, err)
			return
		}
		c.trackRoom(ev.AlertID)

	case models.EventLeaveTracking:
		c.registry.Leave(ev.AlertID, c.id)
		c.forgetRoom(ev.AlertID)

	case models.EventSOSAlert:
		if ev.Alert == nil {
			c.replyError(ev.AlertID, errors.New("sos-alert requires an alert payload"))
			return
		}
		alert := *ev.Alert
		alert.ReporterID = ev.SenderID
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := c.registry.CreateAlert(ctx, &alert)
		cancel()
		if err != nil {
			c.replyError(ev.AlertID, err)
			return
		}
		if _, err := c.registry.Join(alert.ID.String(), c, models.RoleVictim); err == nil {
			c.trackRoom(alert.ID.String())
		}

	case models.EventStatusUpdate, models.EventSnapshot, models.EventRouteUpdate,
		models.EventAgentAssigned, models.EventAgentLocation,
		models.EventAgentMessage, models.EventError:
		// Engine-originated kinds; accepting them from a socket would
		// let any subscriber spoof status and route broadcasts.
		c.replyError(ev.AlertID, fmt.Errorf("ws: event %q is not accepted from clients", ev.Type))

	default:
		if err := c.registry.Publish(context.Background(), ev); err != nil {
			c.replyError(ev.AlertID, err)
		}
	}
}

// replyError surfaces a protocol failure to this connection only.
func (c *Client) replyError(alertID string, err error) {
	c.logger.Debug().Err(err).Str("alert_id", alertID).Msg("rejected event")
	_ = c.Deliver(models.NewErrorEvent(alertID, err.Error()))
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
