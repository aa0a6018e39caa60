// Package hass connects to the Home Assistant WebSocket API. It keeps a
// local cache of entity states fed by state_changed events, so reads never
// block on the network once the initial get_states has completed.
package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/core/state"
	"github.com/homewatt/homewatt/infra/logger"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// Config holds the connection settings for the Home Assistant API.
type Config struct {
	URL              string `json:"url"`   // ws://host:8123/api/websocket
	Token            string `json:"token"` // long-lived access token
	ReconnectSeconds int    `json:"reconnect_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ReconnectSeconds == 0 {
		c.ReconnectSeconds = 5
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("hass: url required")
	}
	if c.Token == "" {
		return fmt.Errorf("hass: token required")
	}
	return nil
}

type message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Event   *eventPayload   `json:"event,omitempty"`

	AccessToken string         `json:"access_token,omitempty"`
	EventType   string         `json:"event_type,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
}

type eventPayload struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string       `json:"entity_id"`
		NewState *entityState `json:"new_state"`
	} `json:"data"`
}

type entityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Client implements state.Source over the Home Assistant WebSocket API.
// One reader goroutine per connection dispatches result frames to waiting
// requests and folds state_changed events into the cache.
type Client struct {
	cfg Config
	log logger.Logger

	mu    sync.RWMutex
	conn  *websocket.Conn
	cache map[string]state.Value
	ready bool

	writeMu sync.Mutex
	nextID  int

	pendingMu sync.Mutex
	pending   map[int]chan message

	bus          eventbus.EventBus
	priceEntity  string
	priceDeltaCt float64

	priceMu   sync.Mutex
	lastPrice *float64
}

// NewClient creates an unconnected client. Call Start to connect.
func NewClient(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		log:     logger.New("hass"),
		cache:   make(map[string]state.Value),
		pending: make(map[int]chan message),
	}, nil
}

// AttachBus sets the event bus used for price change events.
func (c *Client) AttachBus(bus eventbus.EventBus) { c.bus = bus }

// WatchPrice enables PriceChangeEvents for the given entity.
func (c *Client) WatchPrice(entityID string, deltaCt float64) {
	c.priceEntity = entityID
	c.priceDeltaCt = deltaCt
}

// Start connects and keeps reconnecting with a fixed backoff until the
// context is canceled. It returns after the first successful connect, or
// with the connect error if the first attempt fails.
func (c *Client) Start(ctx context.Context) error {
	done, err := c.connect(ctx)
	if err != nil {
		return err
	}
	go c.supervise(ctx, done)
	return nil
}

func (c *Client) supervise(ctx context.Context, done <-chan struct{}) {
	backoff := time.Duration(c.cfg.ReconnectSeconds) * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
		}
		c.setReady(false)
		c.log.Warnf("connection lost, reconnecting in %s", backoff)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			var err error
			done, err = c.connect(ctx)
			if err == nil {
				break
			}
			c.log.Errorf("reconnect failed: %v", err)
		}
	}
}

// connect dials, authenticates, starts the reader, subscribes to
// state_changed and primes the cache from get_states. The returned channel
// closes when the connection's reader exits.
func (c *Client) connect(ctx context.Context) (<-chan struct{}, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	var hello message
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected handshake message %q", hello.Type)
	}
	if err := conn.WriteJSON(message{Type: "auth", AccessToken: c.cfg.Token}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send auth: %w", err)
	}
	var authRes message
	if err := conn.ReadJSON(&authRes); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read auth result: %w", err)
	}
	if authRes.Type != "auth_ok" {
		_ = conn.Close()
		return nil, fmt.Errorf("authentication rejected: %s", authRes.Type)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	go c.readLoop(conn, done)

	if _, err := c.request(message{Type: "subscribe_events", EventType: "state_changed"}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe state_changed: %w", err)
	}
	res, err := c.request(message{Type: "get_states"})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("get_states: %w", err)
	}
	var states []entityState
	if err := json.Unmarshal(res.Result, &states); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode get_states: %w", err)
	}
	c.mu.Lock()
	for _, s := range states {
		c.cache[s.EntityID] = toValue(s)
	}
	c.ready = true
	c.mu.Unlock()
	c.log.Infof("connected, %d entities cached", len(states))
	return done, nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			c.failPending(err)
			return
		}
		switch msg.Type {
		case "event":
			c.handleEvent(msg)
		case "result":
			c.pendingMu.Lock()
			if ch, ok := c.pending[msg.ID]; ok {
				delete(c.pending, msg.ID)
				ch <- msg
			}
			c.pendingMu.Unlock()
		}
	}
}

// request sends a command and waits for the matching result frame.
func (c *Client) request(msg message) (message, error) {
	conn := c.currentConn()
	if conn == nil {
		return message{}, fmt.Errorf("not connected")
	}
	ch := make(chan message, 1)
	c.writeMu.Lock()
	c.nextID++
	msg.ID = c.nextID
	c.pendingMu.Lock()
	c.pending[msg.ID] = ch
	c.pendingMu.Unlock()
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(msg.ID)
		return message{}, err
	}
	select {
	case res, ok := <-ch:
		if !ok {
			return message{}, fmt.Errorf("connection closed")
		}
		if res.Success != nil && !*res.Success {
			return res, fmt.Errorf("command %s rejected", msg.Type)
		}
		return res, nil
	case <-time.After(10 * time.Second):
		c.dropPending(msg.ID)
		return message{}, fmt.Errorf("timeout waiting for result of %s", msg.Type)
	}
}

func (c *Client) dropPending(id int) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	_ = err
}

func (c *Client) handleEvent(msg message) {
	if msg.Event == nil || msg.Event.EventType != "state_changed" || msg.Event.Data.NewState == nil {
		return
	}
	s := *msg.Event.Data.NewState
	c.mu.Lock()
	c.cache[s.EntityID] = toValue(s)
	c.mu.Unlock()
	c.maybePublishPriceChange(s)
}

func (c *Client) maybePublishPriceChange(s entityState) {
	if c.priceEntity == "" || s.EntityID != c.priceEntity {
		return
	}
	price, err := strconv.ParseFloat(s.State, 64)
	if err != nil {
		return
	}
	c.priceMu.Lock()
	last := c.lastPrice
	p := price
	c.lastPrice = &p
	c.priceMu.Unlock()
	if c.bus != nil && last != nil && math.Abs(price-*last) > c.priceDeltaCt {
		c.bus.Publish(events.PriceChangeEvent{OldPrice: *last, NewPrice: price})
	}
}

// Get returns the cached value for the entity. A missing entity or an
// unavailable state is reported via Value.Unavailable, not an error. The
// only error condition is a cache that has never been primed.
func (c *Client) Get(_ context.Context, entityID string) (state.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready {
		return state.Value{}, fmt.Errorf("%w: not connected", state.ErrSourceDown)
	}
	v, ok := c.cache[entityID]
	if !ok {
		return state.Value{Unavailable: true}, nil
	}
	return v, nil
}

// CallService invokes a Home Assistant service, e.g. notify.mobile_app.
func (c *Client) CallService(_ context.Context, domain, service string, data map[string]any) error {
	_, err := c.request(message{Type: "call_service", Domain: domain, Service: service, ServiceData: data})
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) setReady(r bool) {
	c.mu.Lock()
	c.ready = r
	c.mu.Unlock()
}

func toValue(s entityState) state.Value {
	if s.State == "unavailable" || s.State == "unknown" || s.State == "" {
		return state.Value{Attributes: s.Attributes, Unavailable: true}
	}
	return state.Value{State: s.State, Attributes: s.Attributes}
}
