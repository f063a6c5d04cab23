// Package crisislink provides a Go client for the CrisisLink tracking
// engine: registration over HTTP plus a managed tracking socket with
// automatic reconnection and heartbeats.
package crisislink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Reconnection defaults. The delay is deliberately short and fixed:
// rescue tracking degrades fast, so the client retries aggressively
// for a few seconds and then gives up loudly rather than backing off
// into silence.
const (
	DefaultReconnectDelay    = 500 * time.Millisecond
	DefaultReconnectAttempts = 10
	DefaultHeartbeatInterval = 30 * time.Second
)

// ErrConnectionLost is reported through Err after every reconnection
// attempt has failed.
var ErrConnectionLost = errors.New("crisislink: connection lost")

// ErrClosed is returned from operations on a closed client.
var ErrClosed = errors.New("crisislink: client closed")

// Config holds client configuration. Zero values select defaults.
type Config struct {
	// ServerURL is the engine's HTTP base URL, e.g. http://localhost:8080.
	ServerURL string
	// ClientID identifies this device. A random ID is generated when empty.
	ClientID string
	// Role is the part this client plays in rooms it joins.
	Role string
	// Sampler, when set, feeds the periodic heartbeat with cached fixes.
	Sampler *Sampler

	ReconnectDelay    time.Duration
	ReconnectAttempts int
	HeartbeatInterval time.Duration
}

// Client is a managed connection to the tracking engine. It remembers
// every joined room and rejoins them after a reconnect, so callers
// never see a membership gap.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu      sync.Mutex
	conn    *websocket.Conn
	rooms   map[string]string // alert ID -> role joined with
	handler func(Event)
	err     error
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a client. Connect must be called before use.
func NewClient(cfg Config) *Client {
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.Role == "" {
		cfg.Role = RoleObserver
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultReconnectAttempts
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rooms:      make(map[string]string),
		done:       make(chan struct{}),
	}
}

// ID returns the client identifier used on the socket.
func (c *Client) ID() string { return c.cfg.ClientID }

// OnEvent installs the handler invoked for every event received from
// the engine. It must be set before Connect.
func (c *Client) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// RegisterRequest is the request body for responder registration.
type RegisterRequest struct {
	Name  string `json:"name"`
	Badge string `json:"badge"`
	Phone string `json:"phone,omitempty"`
}

// RegisterResponse is the response from responder registration.
type RegisterResponse struct {
	ID string `json:"id"`
}

// Register registers a responder identity and adopts the returned ID
// as this client's ID. Registration is idempotent on badge number.
func (c *Client) Register(name, badge, phone string) (*RegisterResponse, error) {
	body, _ := json.Marshal(RegisterRequest{Name: name, Badge: badge, Phone: phone})

	httpResp, err := c.httpClient.Post(c.cfg.ServerURL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("crisislink error %d: %s", httpResp.StatusCode, errResp.Error)
	}

	var resp RegisterResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cfg.ClientID = resp.ID
	c.mu.Unlock()
	return &resp, nil
}

// socketURL converts the HTTP base URL into the tracking socket URL.
func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("role", c.cfg.Role)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the tracking socket and starts the read and heartbeat
// loops.
func (c *Client) Connect() error {
	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readLoop()
	go c.heartbeatLoop()
	return nil
}

// JoinRoom subscribes this client to an alert's tracking room. The
// membership is remembered and re-established after reconnects.
func (c *Client) JoinRoom(alertID string) error {
	return c.JoinRoomAs(alertID, c.cfg.Role)
}

// JoinRoomAs joins a room with an explicit role. Membership is recorded
// before the join is sent, so a join racing a reconnect is replayed
// rather than lost.
func (c *Client) JoinRoomAs(alertID, role string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.rooms[alertID] = role
	c.mu.Unlock()

	ev := newEvent(EventJoinTracking, alertID)
	ev.Role = role
	ev.SenderID = c.cfg.ClientID
	return c.Send(ev)
}

// LeaveRoom cancels this client's interest in a room.
func (c *Client) LeaveRoom(alertID string) error {
	c.mu.Lock()
	delete(c.rooms, alertID)
	c.mu.Unlock()

	ev := newEvent(EventLeaveTracking, alertID)
	ev.SenderID = c.cfg.ClientID
	return c.Send(ev)
}

// Rooms returns the alert IDs of every room this client is joined to.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Send writes an event to the socket. Sender identity and role default
// to this client's.
func (c *Client) Send(ev Event) error {
	if ev.SenderID == "" {
		ev.SenderID = c.cfg.ClientID
	}
	if ev.Role == "" {
		ev.Role = c.cfg.Role
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrConnectionLost
	}
	return c.conn.WriteJSON(ev)
}

// SendLocation publishes a position fix into a room.
func (c *Client) SendLocation(alertID string, fix Fix) error {
	ev := newEvent(EventLocationUpdate, alertID)
	ev.Location = &fix
	return c.Send(ev)
}

// SendChat sends a chat message into a room.
func (c *Client) SendChat(alertID, body string) error {
	ev := newEvent(EventSOSResponse, alertID)
	ev.Message = body
	return c.Send(ev)
}

// SignalArrival reports that this responder has reached the victim.
// Arrival is always explicit; the engine never infers it from
// coordinates.
func (c *Client) SignalArrival(alertID string) error {
	ev := newEvent(EventAgentArrived, alertID)
	ev.Role = RoleResponder
	return c.Send(ev)
}

// RaiseSOS raises a new emergency over the socket. The engine opens a
// tracking room, joins this client to it as the victim, and replies
// with a snapshot carrying the new alert ID.
func (c *Client) RaiseSOS(req AlertRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	ev := newEvent(EventSOSAlert, "")
	ev.Role = RoleVictim
	ev.Alert = payload
	return c.Send(ev)
}

// Err returns the terminal error after Done is closed, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the client has permanently stopped, either via
// Close or after exhausting reconnection attempts.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close tears the connection down and stops all loops.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			conn.Close()
		}
	})
	c.wg.Wait()
	return nil
}

// fail records a terminal error and stops the client.
func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.closed = true
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			conn.Close()
		}
	})
}

// readLoop reads events and dispatches them to the handler. On read
// failure it attempts to reconnect before giving up.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		conn := c.conn
		handler := c.handler
		c.mu.Unlock()
		if conn == nil {
			return
		}

		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if !c.reconnect() {
				c.fail(ErrConnectionLost)
				return
			}
			continue
		}

		if handler != nil {
			handler(ev)
		}
	}
}

// reconnect redials the socket with a fixed delay between attempts and
// rejoins every remembered room. It reports whether the connection was
// re-established.
func (c *Client) reconnect() bool {
	wsURL, err := c.socketURL()
	if err != nil {
		return false
	}

	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return false
		case <-time.After(c.cfg.ReconnectDelay):
		}

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return false
		}
		if c.conn != nil {
			c.conn.Close()
		}
		c.conn = conn
		rooms := make(map[string]string, len(c.rooms))
		for id, role := range c.rooms {
			rooms[id] = role
		}
		c.mu.Unlock()

		for id, role := range rooms {
			ev := newEvent(EventJoinTracking, id)
			ev.Role = role
			ev.SenderID = c.cfg.ClientID
			if err := c.Send(ev); err != nil {
				break
			}
		}
		return true
	}
	return false
}

// heartbeatLoop publishes the sampler's cached fix into every joined
// room at the heartbeat interval. A device that has gone stationary
// keeps announcing its last-known position.
func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	if c.cfg.Sampler == nil {
		return
	}

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		fix, err := c.cfg.Sampler.Sample(ctx)
		cancel()
		if err != nil {
			continue
		}
		for _, alertID := range c.Rooms() {
			if err := c.SendLocation(alertID, fix); err != nil {
				break
			}
		}
	}
}
