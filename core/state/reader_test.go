package state

import (
	"context"
	"errors"
	"testing"

	"github.com/homewatt/homewatt/core/engine"
	"github.com/homewatt/homewatt/infra/logger"
)

type mapStore struct {
	values map[string]Value
	err    error
}

func (m *mapStore) Get(_ context.Context, id string) (Value, error) {
	if m.err != nil {
		return Value{}, m.err
	}
	v, ok := m.values[id]
	if !ok {
		return Value{Unavailable: true}, nil
	}
	return v, nil
}

func testEntities() EntityMap {
	m := EntityMap{}
	m.SetDefaults()
	return m
}

func testReader(store Store) *Reader {
	var cfg engine.Config
	cfg.SetDefaults()
	return NewReader(store, testEntities(), cfg, logger.NopLogger{})
}

func TestReadComputesSurplusAndUnits(t *testing.T) {
	store := &mapStore{values: map[string]Value{
		"sensor.pv_power":            {State: "5000"},
		"sensor.house_consumption":   {State: "1000"},
		"sensor.battery_soc":         {State: "50"},
		"sensor.car_battery_level":   {State: "50"},
		"binary_sensor.car_connected": {State: "on"},
		"sensor.tibber_current_price": {State: "20"},
	}}
	s, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.PVPowerKW != 5 || s.HouseConsumptionKW != 1 {
		t.Fatalf("unit conversion wrong: pv=%v house=%v", s.PVPowerKW, s.HouseConsumptionKW)
	}
	if s.PVSurplusKW != 4 {
		t.Fatalf("surplus = %v, want 4", s.PVSurplusKW)
	}
	if !s.CarConnected {
		t.Fatal("car should be connected")
	}
}

func TestSurplusFormulaConfigurable(t *testing.T) {
	store := &mapStore{values: map[string]Value{
		"sensor.pv_power":          {State: "5000"},
		"sensor.house_consumption": {State: "1000"},
		"sensor.battery_power":     {State: "2000"}, // charging
	}}
	var cfg engine.Config
	cfg.SetDefaults()

	r := NewReader(store, testEntities(), cfg, logger.NopLogger{})
	s, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.PVSurplusKW != 4 {
		t.Fatalf("default formula must ignore battery draw, got %v", s.PVSurplusKW)
	}

	cfg.SurplusNetsBattery = true
	r = NewReader(store, testEntities(), cfg, logger.NopLogger{})
	s, err = r.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.PVSurplusKW != 2 {
		t.Fatalf("netting formula must subtract battery draw, got %v", s.PVSurplusKW)
	}
}

func TestSurplusClampedAtZero(t *testing.T) {
	store := &mapStore{values: map[string]Value{
		"sensor.pv_power":          {State: "500"},
		"sensor.house_consumption": {State: "2000"},
	}}
	s, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.PVSurplusKW != 0 {
		t.Fatalf("surplus must clamp at zero, got %v", s.PVSurplusKW)
	}
}

func TestAllSensorsUnavailable(t *testing.T) {
	s, err := testReader(&mapStore{}).Read(context.Background())
	if err != nil {
		t.Fatalf("missing sensors must not fail the cycle: %v", err)
	}
	if s.PVPowerKW != 0 || s.BatterySoC != 0 || s.CarSoC != 0 || s.PriceCtKWh != 0 {
		t.Fatalf("expected zero fallbacks, got %+v", s)
	}
	if s.CarConnected {
		t.Fatal("booleans must fall back to false")
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	store := &mapStore{values: map[string]Value{
		"sensor.pv_power":             {State: "not-a-number"},
		"binary_sensor.car_connected": {State: "maybe"},
	}}
	s, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.PVPowerKW != 0 || s.CarConnected {
		t.Fatalf("malformed values must fall back, got %+v", s)
	}
}

func TestStoreOutagePropagates(t *testing.T) {
	outage := errors.New("store unreachable")
	_, err := testReader(&mapStore{err: outage}).Read(context.Background())
	if !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}
}

func TestReadSchedule(t *testing.T) {
	store := &mapStore{values: map[string]Value{
		"sensor.tibber_current_price": {
			State: "20",
			Attributes: map[string]any{
				"today": []any{
					map[string]any{"starts_at": "2026-03-01T00:00:00Z", "total": 12.5},
					map[string]any{"starts_at": "2026-03-01T01:00:00Z", "total": 9.0},
					map[string]any{"starts_at": "bogus", "total": 9.0},
				},
			},
		},
	}}
	points, err := testReader(store).ReadSchedule(context.Background())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 parsable points, got %d", len(points))
	}
	if points[0].Price != 12.5 {
		t.Fatalf("price = %v, want 12.5", points[0].Price)
	}
}
