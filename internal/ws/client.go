package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"presence-gateway/internal/metrics"
)

const (
	baseBackoff   = 1000 * time.Millisecond
	maxBackoff    = 30000 * time.Millisecond
	backoffFactor = 1.5
)

// Conn is the slice of *websocket.Conn the client uses, split out so
// tests can run against fake connections.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens a connection to the presence service.
type DialFunc func(url string) (Conn, error)

func gorillaDial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Heartbeat is the client→server liveness message.
type Heartbeat struct {
	UserID   string         `json:"userId"`
	Status   string         `json:"status,omitempty"`
	TTLMs    int64          `json:"ttlMs,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type heartbeatMessage struct {
	Type string `json:"type"`
	Heartbeat
}

type offlineMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Options configures a Client. Zero values fall back to the real
// gorilla dialer, a fresh bus, and real timers.
type Options struct {
	Dial DialFunc
	Bus  *Bus

	// OfflineFallback delivers the offline intent when the socket is
	// down, beacon-style: fire and forget.
	OfflineFallback func(userID string)
}

// Client maintains one logical connection to the presence service,
// reconnecting with growing backoff. Public methods never return
// transport errors; every operation is best-effort.
type Client struct {
	url             string
	dial            DialFunc
	bus             *Bus
	offlineFallback func(string)
	afterFunc       func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	conn    Conn
	ready   bool
	dialing bool
	closed  bool
	backoff time.Duration
	retry   *time.Timer
}

func NewClient(url string, opts Options) *Client {
	c := &Client{
		url:             url,
		dial:            opts.Dial,
		bus:             opts.Bus,
		offlineFallback: opts.OfflineFallback,
		afterFunc:       time.AfterFunc,
		backoff:         baseBackoff,
	}
	if c.dial == nil {
		c.dial = gorillaDial
	}
	if c.bus == nil {
		c.bus = NewBus()
	}
	return c
}

// Bus exposes the broadcast bus inbound messages are published to.
func (c *Client) Bus() *Bus { return c.bus }

// Connect establishes the connection if one is not already open,
// being dialed, or scheduled. Dial failures schedule a retry instead
// of surfacing an error.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.conn != nil || c.dialing || c.retry != nil {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	c.closed = false
	url := c.url
	c.mu.Unlock()

	conn, err := c.dial(url)

	c.mu.Lock()
	c.dialing = false
	if c.closed {
		c.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.ready = true
	c.backoff = baseBackoff
	c.mu.Unlock()

	go c.readLoop(conn)
}

// SendHeartbeat writes a heartbeat if the socket is open. Without a
// userId it is a complete no-op. While disconnected it kicks off a
// connect and drops the message; callers heartbeat periodically, so
// the next tick lands once the socket is up.
func (c *Client) SendHeartbeat(hb Heartbeat) {
	if hb.UserID == "" {
		return
	}

	c.mu.Lock()
	conn, ready := c.conn, c.ready
	c.mu.Unlock()

	if conn == nil || !ready {
		go c.Connect()
		return
	}
	if err := conn.WriteJSON(heartbeatMessage{Type: "heartbeat", Heartbeat: hb}); err != nil {
		// The read loop observes the dead socket and drives reconnection.
		conn.Close()
	}
}

// SendOffline announces the user is gone and closes the socket. When
// the socket is down the intent is delivered through the fallback.
func (c *Client) SendOffline(userID string) {
	if userID == "" {
		return
	}

	c.mu.Lock()
	conn, ready := c.conn, c.ready
	c.mu.Unlock()

	if conn != nil && ready {
		_ = conn.WriteJSON(offlineMessage{Type: "offline", UserID: userID})
		conn.Close()
		return
	}
	if c.offlineFallback != nil {
		go c.offlineFallback(userID)
	}
}

// Close tears the client down: socket closed, pending retry cancelled.
// The client stays quiescent until the next Connect.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.ready = false
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn)
			return
		}
		if !json.Valid(data) {
			continue
		}
		c.bus.Publish(json.RawMessage(data))
	}
}

func (c *Client) handleClose(conn Conn) {
	conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	c.ready = false
	if !c.closed {
		c.scheduleReconnectLocked()
	}
}

// scheduleReconnectLocked arms the retry timer at the current backoff
// and grows it for the next attempt. A pending timer is never
// duplicated. Callers hold c.mu.
func (c *Client) scheduleReconnectLocked() {
	if c.retry != nil || c.closed {
		return
	}
	delay := c.backoff
	c.backoff = nextBackoff(c.backoff)
	metrics.IncWSReconnect()
	c.retry = c.afterFunc(delay, func() {
		c.mu.Lock()
		c.retry = nil
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.Connect()
		}
	})
}

func nextBackoff(d time.Duration) time.Duration {
	grown := time.Duration(float64(d) * backoffFactor)
	if grown > maxBackoff {
		return maxBackoff
	}
	return grown
}
