// Package state derives normalized system snapshots from raw entity
// readings. Missing or malformed sensors fall back to zero values; only a
// store-level outage aborts a cycle.
package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/homewatt/homewatt/core/engine"
	"github.com/homewatt/homewatt/core/logger"
	"github.com/homewatt/homewatt/core/model"
)

// truthy is the fixed set of raw values coerced to true. Anything else,
// including unavailable sentinels, is false.
var truthy = map[string]bool{
	"on":        true,
	"true":      true,
	"True":      true,
	"1":         true,
	"home":      true,
	"connected": true,
}

// Reader translates store readings into immutable SystemState snapshots.
type Reader struct {
	store    Store
	entities EntityMap
	cfg      engine.Config
	log      logger.Logger
}

// NewReader creates a Reader. The entity map and config are read-only
// during a cycle.
func NewReader(store Store, entities EntityMap, cfg engine.Config, log logger.Logger) *Reader {
	return &Reader{store: store, entities: entities, cfg: cfg, log: log}
}

// Read pulls all configured entities and builds one snapshot. Power
// sensors report watts and are converted to kW. Derived fields (PV
// surplus, price level) are computed here exactly once.
func (r *Reader) Read(ctx context.Context) (model.SystemState, error) {
	pvW, err := r.safeFloat(ctx, EntityPVPower)
	if err != nil {
		return model.SystemState{}, err
	}
	houseW, err := r.safeFloat(ctx, EntityHouseConsumption)
	if err != nil {
		return model.SystemState{}, err
	}
	gridW, err := r.safeFloat(ctx, EntityGridPower)
	if err != nil {
		return model.SystemState{}, err
	}
	batteryW, err := r.safeFloat(ctx, EntityBatteryPower)
	if err != nil {
		return model.SystemState{}, err
	}
	carChargeW, err := r.safeFloat(ctx, EntityCarChargingPower)
	if err != nil {
		return model.SystemState{}, err
	}
	batterySoC, err := r.safeFloat(ctx, EntityBatterySoC)
	if err != nil {
		return model.SystemState{}, err
	}
	carSoC, err := r.safeFloat(ctx, EntityCarSoC)
	if err != nil {
		return model.SystemState{}, err
	}
	forecastToday, err := r.safeFloat(ctx, EntityPVForecastToday)
	if err != nil {
		return model.SystemState{}, err
	}
	forecastRemain, err := r.safeFloat(ctx, EntityPVForecastRemaining)
	if err != nil {
		return model.SystemState{}, err
	}
	price, err := r.safeFloat(ctx, EntityCurrentPrice)
	if err != nil {
		return model.SystemState{}, err
	}
	carConnected, err := r.safeBool(ctx, EntityCarConnected)
	if err != nil {
		return model.SystemState{}, err
	}

	s := model.SystemState{
		PVPowerKW:           pvW / 1000,
		HouseConsumptionKW:  houseW / 1000,
		GridPowerKW:         gridW / 1000,
		BatteryPowerKW:      batteryW / 1000,
		CarChargingPowerKW:  carChargeW / 1000,
		BatterySoC:          batterySoC,
		CarSoC:              carSoC,
		CarConnected:        carConnected,
		PVForecastTodayKWh:  forecastToday,
		PVForecastRemainKWh: forecastRemain,
		PriceCtKWh:          price,
		Timestamp:           time.Now(),
	}
	s.PVSurplusKW = surplus(s, r.cfg)
	s.PriceLevel = r.cfg.Prices().Classify(price)
	return s, nil
}

// surplus computes the derived PV surplus. The battery term is only
// subtracted while the battery is charging and only when configured.
func surplus(s model.SystemState, cfg engine.Config) float64 {
	v := s.PVPowerKW - s.HouseConsumptionKW
	if cfg.SurplusNetsBattery && s.BatteryPowerKW > 0 {
		v -= s.BatteryPowerKW
	}
	if v < 0 {
		return 0
	}
	return v
}

// ReadSchedule reads the day's price schedule from the attributes of the
// price entity. Entries it cannot parse are skipped.
func (r *Reader) ReadSchedule(ctx context.Context) ([]model.PricePoint, error) {
	id := r.entities.Resolve(EntityCurrentPrice)
	if id == "" {
		return nil, nil
	}
	v, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	if v.Unavailable {
		return nil, nil
	}
	var points []model.PricePoint
	for _, key := range []string{"today", "tomorrow"} {
		raw, ok := v.Attributes[key].([]any)
		if !ok {
			continue
		}
		for _, e := range raw {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			p, ok := schedulePoint(entry)
			if !ok {
				r.log.Debugf("skipping malformed schedule entry in %s", key)
				continue
			}
			points = append(points, p)
		}
	}
	return points, nil
}

func schedulePoint(entry map[string]any) (model.PricePoint, bool) {
	var ts time.Time
	for _, key := range []string{"time", "starts_at", "start_time"} {
		raw, ok := entry[key].(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			ts = t
			break
		}
	}
	if ts.IsZero() {
		return model.PricePoint{}, false
	}
	for _, key := range []string{"price", "total"} {
		switch p := entry[key].(type) {
		case float64:
			return model.PricePoint{Time: ts, Price: p}, true
		case string:
			if f, err := strconv.ParseFloat(p, 64); err == nil {
				return model.PricePoint{Time: ts, Price: f}, true
			}
		}
	}
	return model.PricePoint{}, false
}

// safeFloat reads the entity mapped to the logical name as a float.
// Unmapped, missing, unavailable and malformed values all fall back to 0;
// only a store outage is returned as an error.
func (r *Reader) safeFloat(ctx context.Context, name string) (float64, error) {
	id := r.entities.Resolve(name)
	if id == "" {
		return 0, nil
	}
	v, err := r.store.Get(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	if v.Unavailable {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.State), 64)
	if err != nil {
		r.log.Debugf("entity %s: unparsable value %q, using 0", id, v.State)
		return 0, nil
	}
	return f, nil
}

// safeBool reads the entity mapped to the logical name as a bool.
func (r *Reader) safeBool(ctx context.Context, name string) (bool, error) {
	id := r.entities.Resolve(name)
	if id == "" {
		return false, nil
	}
	v, err := r.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if v.Unavailable {
		return false, nil
	}
	return truthy[v.State], nil
}
