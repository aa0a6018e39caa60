package hass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/internal/eventbus"
)

var upgrader = websocket.Upgrader{}

// fakeHass speaks just enough of the Home Assistant WebSocket protocol for
// the client handshake. Pushed events are written after the handshake.
type fakeHass struct {
	srv    *httptest.Server
	events chan map[string]any
}

func newFakeHass(t *testing.T, states []map[string]any) *fakeHass {
	t.Helper()
	f := &fakeHass{events: make(chan map[string]any, 16)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		if err := conn.WriteJSON(map[string]any{"type": "auth_required"}); err != nil {
			return
		}
		var auth map[string]any
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth["access_token"] != "secret" {
			_ = conn.WriteJSON(map[string]any{"type": "auth_invalid"})
			return
		}
		if err := conn.WriteJSON(map[string]any{"type": "auth_ok"}); err != nil {
			return
		}

		results := make(chan map[string]any, 4)
		go func() {
			for {
				var cmd map[string]any
				if err := conn.ReadJSON(&cmd); err != nil {
					close(results)
					return
				}
				id := cmd["id"]
				switch cmd["type"] {
				case "subscribe_events", "call_service":
					results <- map[string]any{"id": id, "type": "result", "success": true}
				case "get_states":
					results <- map[string]any{"id": id, "type": "result", "success": true, "result": states}
				}
			}
		}()
		for {
			select {
			case res, ok := <-results:
				if !ok {
					return
				}
				if err := conn.WriteJSON(res); err != nil {
					return
				}
			case ev := <-f.events:
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHass) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeHass) pushState(entityID, st string) {
	f.events <- map[string]any{
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"data": map[string]any{
				"entity_id": entityID,
				"new_state": map[string]any{"entity_id": entityID, "state": st},
			},
		},
	}
}

func startClient(t *testing.T, f *fakeHass, bus eventbus.EventBus, priceEntity string) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: f.url(), Token: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if bus != nil {
		c.AttachBus(bus)
		c.WatchPrice(priceEntity, 2)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestClientPrimesCacheFromGetStates(t *testing.T) {
	f := newFakeHass(t, []map[string]any{
		{"entity_id": "sensor.pv_power", "state": "3200"},
		{"entity_id": "sensor.battery_soc", "state": "unavailable"},
	})
	c := startClient(t, f, nil, "")

	v, err := c.Get(context.Background(), "sensor.pv_power")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.State != "3200" || v.Unavailable {
		t.Fatalf("unexpected value: %+v", v)
	}
	v, err = c.Get(context.Background(), "sensor.battery_soc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !v.Unavailable {
		t.Fatal("unavailable sentinel should map to Unavailable")
	}
	v, err = c.Get(context.Background(), "sensor.missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !v.Unavailable {
		t.Fatal("missing entity should be Unavailable, not an error")
	}
}

func TestClientAppliesStateChanged(t *testing.T) {
	f := newFakeHass(t, []map[string]any{
		{"entity_id": "sensor.pv_power", "state": "1000"},
	})
	c := startClient(t, f, nil, "")

	f.pushState("sensor.pv_power", "2500")
	waitFor(t, func() bool {
		v, err := c.Get(context.Background(), "sensor.pv_power")
		return err == nil && v.State == "2500"
	})
}

func TestClientPublishesPriceChange(t *testing.T) {
	f := newFakeHass(t, []map[string]any{
		{"entity_id": "sensor.tibber_current_price", "state": "20"},
	})
	bus := eventbus.New()
	sub := bus.Subscribe()
	c := startClient(t, f, bus, "sensor.tibber_current_price")
	_ = c

	f.pushState("sensor.tibber_current_price", "20.5")
	f.pushState("sensor.tibber_current_price", "28")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sub:
			if pc, ok := ev.(events.PriceChangeEvent); ok {
				if pc.OldPrice != 20.5 || pc.NewPrice != 28 {
					t.Fatalf("unexpected prices: %+v", pc)
				}
				return
			}
		case <-deadline:
			t.Fatal("no price change event")
		}
	}
}

func TestClientRejectsBadToken(t *testing.T) {
	f := newFakeHass(t, nil)
	c, err := NewClient(Config{URL: f.url(), Token: "wrong"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestNotifierSplitsService(t *testing.T) {
	var gotDomain, gotService string
	var gotData map[string]any
	n := NewNotifier(serviceCallerFunc(func(_ context.Context, domain, service string, data map[string]any) error {
		gotDomain, gotService, gotData = domain, service, data
		return nil
	}))
	if err := n.Send(context.Background(), "notify.mobile_app", "Energy Manager", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotDomain != "notify" || gotService != "mobile_app" {
		t.Fatalf("service split wrong: %s.%s", gotDomain, gotService)
	}
	if gotData["title"] != "Energy Manager" || gotData["message"] != "hello" {
		t.Fatalf("data wrong: %+v", gotData)
	}
	if err := n.Send(context.Background(), "nodot", "t", "m"); err == nil {
		t.Fatal("expected error for malformed service")
	}
}

type serviceCallerFunc func(ctx context.Context, domain, service string, data map[string]any) error

func (f serviceCallerFunc) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	return f(ctx, domain, service, data)
}
