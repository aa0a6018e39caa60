package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/core/state"
	"github.com/homewatt/homewatt/infra/logger"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// SourceConfig configures the statestream source.
type SourceConfig struct {
	Client      Config `json:"client"`
	TopicPrefix string `json:"topic_prefix"`
	// NotifyTopic is where outbound notifications are published, to be
	// picked up by a Home Assistant automation.
	NotifyTopic string `json:"notify_topic"`
}

// SetDefaults fills unset fields.
func (c *SourceConfig) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "homeassistant/statestream"
	}
	if c.NotifyTopic == "" {
		c.NotifyTopic = "homewatt/notify"
	}
	if c.Client.ClientID == "" {
		c.Client.ClientID = "homewatt-statestream"
	}
}

// Validate checks required fields.
func (c *SourceConfig) Validate() error {
	if c.Client.Broker == "" {
		return fmt.Errorf("statestream: broker required")
	}
	return nil
}

// StatestreamSource implements state.Source on top of the Home Assistant
// MQTT statestream. Topics follow <prefix>/<domain>/<object_id>/<attr>;
// the "state" attribute carries the entity state, everything else is
// folded into the attributes map. Retained messages warm the cache right
// after subscribing.
type StatestreamSource struct {
	cfg SourceConfig
	log logger.Logger

	mu    sync.RWMutex
	cache map[string]state.Value
	ready bool

	cli pahoClient

	bus          eventbus.EventBus
	priceEntity  string
	priceDeltaCt float64

	priceMu   sync.Mutex
	lastPrice *float64
}

// NewStatestreamSource creates an unconnected source. Call Start to connect.
func NewStatestreamSource(cfg SourceConfig) (*StatestreamSource, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StatestreamSource{
		cfg:   cfg,
		log:   logger.New("statestream"),
		cache: make(map[string]state.Value),
	}, nil
}

// AttachBus sets the event bus used for price change events.
func (s *StatestreamSource) AttachBus(bus eventbus.EventBus) { s.bus = bus }

// WatchPrice enables PriceChangeEvents for the given entity.
func (s *StatestreamSource) WatchPrice(entityID string, deltaCt float64) {
	s.priceEntity = entityID
	s.priceDeltaCt = deltaCt
}

// Start connects to the broker and subscribes to the statestream topics.
// Paho handles reconnects internally.
func (s *StatestreamSource) Start(ctx context.Context) error {
	opts, err := NewClientOptions(s.cfg.Client)
	if err != nil {
		return err
	}
	opts.OnConnect = func(c paho.Client) {
		s.log.Infof("connected to %s", s.cfg.Client.Broker)
		topic := s.cfg.TopicPrefix + "/#"
		if token := c.Subscribe(topic, s.cfg.Client.QoS, s.onMessage); token.Wait() && token.Error() != nil {
			s.log.Errorf("subscribe %s: %v", topic, token.Error())
			return
		}
		s.setReady(true)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		s.setReady(false)
		s.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		s.log.Warnf("reconnecting to broker")
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	s.cli = cli
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return nil
}

func (s *StatestreamSource) onMessage(_ paho.Client, msg paho.Message) {
	s.handleMessage(msg.Topic(), msg.Payload())
}

// handleMessage folds one statestream message into the cache.
func (s *StatestreamSource) handleMessage(topic string, payload []byte) {
	rel := strings.TrimPrefix(topic, s.cfg.TopicPrefix+"/")
	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return
	}
	entityID := parts[0] + "." + parts[1]
	attr := parts[2]
	raw := strings.TrimSpace(string(payload))

	s.mu.Lock()
	v := s.cache[entityID]
	if attr == "state" {
		v.State = unquote(raw)
		v.Unavailable = v.State == "unavailable" || v.State == "unknown" || v.State == ""
	} else {
		if v.Attributes == nil {
			v.Attributes = make(map[string]any)
		}
		var decoded any
		if err := json.Unmarshal(payload, &decoded); err == nil {
			v.Attributes[attr] = decoded
		} else {
			v.Attributes[attr] = raw
		}
	}
	s.cache[entityID] = v
	s.mu.Unlock()

	if attr == "state" {
		s.maybePublishPriceChange(entityID, v.State)
	}
}

func (s *StatestreamSource) maybePublishPriceChange(entityID, raw string) {
	if s.priceEntity == "" || entityID != s.priceEntity {
		return
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	s.priceMu.Lock()
	last := s.lastPrice
	p := price
	s.lastPrice = &p
	s.priceMu.Unlock()
	if s.bus != nil && last != nil && math.Abs(price-*last) > s.priceDeltaCt {
		s.bus.Publish(events.PriceChangeEvent{OldPrice: *last, NewPrice: price})
	}
}

// Get returns the cached value for the entity.
func (s *StatestreamSource) Get(_ context.Context, entityID string) (state.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return state.Value{}, fmt.Errorf("%w: broker not connected", state.ErrSourceDown)
	}
	v, ok := s.cache[entityID]
	if !ok {
		return state.Value{Unavailable: true}, nil
	}
	return v, nil
}

// Send publishes a notification on the configured notify topic. This lets
// the statestream source double as the notification transport.
func (s *StatestreamSource) Send(_ context.Context, service, title, message string) error {
	if s.cli == nil || !s.cli.IsConnected() {
		return fmt.Errorf("notify: broker not connected")
	}
	payload, err := json.Marshal(map[string]string{
		"service": service,
		"title":   title,
		"message": message,
	})
	if err != nil {
		return err
	}
	token := s.cli.Publish(s.cfg.NotifyTopic, s.cfg.Client.QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *StatestreamSource) Close() error {
	s.setReady(false)
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
	return nil
}

func (s *StatestreamSource) setReady(r bool) {
	s.mu.Lock()
	s.ready = r
	s.mu.Unlock()
}

// unquote strips one layer of JSON string quoting, which statestream
// applies to string states.
func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		var out string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}
	return raw
}
