package mqtt

import (
	"context"
	"testing"

	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/internal/eventbus"
)

func newTestSource(t *testing.T) *StatestreamSource {
	t.Helper()
	s, err := NewStatestreamSource(SourceConfig{Client: Config{Broker: "tcp://localhost:1883"}})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	s.setReady(true)
	return s
}

func TestStatestreamHandleMessage(t *testing.T) {
	s := newTestSource(t)
	s.handleMessage("homeassistant/statestream/sensor/pv_power/state", []byte("3200"))
	s.handleMessage("homeassistant/statestream/sensor/pv_power/unit_of_measurement", []byte(`"W"`))
	s.handleMessage("homeassistant/statestream/binary_sensor/car_connected/state", []byte(`"on"`))

	v, err := s.Get(context.Background(), "sensor.pv_power")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.State != "3200" {
		t.Errorf("state = %q, want 3200", v.State)
	}
	if v.Attributes["unit_of_measurement"] != "W" {
		t.Errorf("attribute = %v, want W", v.Attributes["unit_of_measurement"])
	}
	v, err = s.Get(context.Background(), "binary_sensor.car_connected")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.State != "on" {
		t.Errorf("quoted state = %q, want on", v.State)
	}
}

func TestStatestreamUnavailableState(t *testing.T) {
	s := newTestSource(t)
	s.handleMessage("homeassistant/statestream/sensor/battery_soc/state", []byte("unavailable"))
	v, err := s.Get(context.Background(), "sensor.battery_soc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !v.Unavailable {
		t.Fatal("unavailable sentinel should set Unavailable")
	}
}

func TestStatestreamIgnoresMalformedTopics(t *testing.T) {
	s := newTestSource(t)
	s.handleMessage("homeassistant/statestream/sensor/state", []byte("1"))
	if _, err := s.Get(context.Background(), "sensor.state"); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestStatestreamNotReady(t *testing.T) {
	s, err := NewStatestreamSource(SourceConfig{Client: Config{Broker: "tcp://localhost:1883"}})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if _, err := s.Get(context.Background(), "sensor.pv_power"); err == nil {
		t.Fatal("expected source down error before connect")
	}
}

func TestStatestreamPriceChangeEvents(t *testing.T) {
	s := newTestSource(t)
	bus := eventbus.New()
	sub := bus.Subscribe()
	s.AttachBus(bus)
	s.WatchPrice("sensor.tibber_current_price", 2)

	s.handleMessage("homeassistant/statestream/sensor/tibber_current_price/state", []byte("20"))
	s.handleMessage("homeassistant/statestream/sensor/tibber_current_price/state", []byte("21"))
	s.handleMessage("homeassistant/statestream/sensor/tibber_current_price/state", []byte("28"))

	select {
	case ev := <-sub:
		pc, ok := ev.(events.PriceChangeEvent)
		if !ok {
			t.Fatalf("unexpected event %T", ev)
		}
		if pc.OldPrice != 21 || pc.NewPrice != 28 {
			t.Fatalf("unexpected prices: %+v", pc)
		}
	default:
		t.Fatal("expected a price change event")
	}
}
