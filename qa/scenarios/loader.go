// Package scenarios runs YAML-described system states through the decision
// engine and checks the resulting decision list.
package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/homewatt/homewatt/core/engine"
	"github.com/homewatt/homewatt/core/model"
)

// StateDef describes the sensor snapshot of a scenario.
type StateDef struct {
	PVPowerKW          float64 `yaml:"pv_power_kw"`
	HouseConsumptionKW float64 `yaml:"house_consumption_kw"`
	BatterySoC         float64 `yaml:"battery_soc"`
	BatteryPowerKW     float64 `yaml:"battery_power_kw"`
	CarSoC             float64 `yaml:"car_soc"`
	CarConnected       bool    `yaml:"car_connected"`
	GridPowerKW        float64 `yaml:"grid_power_kw"`
	PriceCtKWh         float64 `yaml:"price_ct_kwh"`
}

// ToModel builds the snapshot the way the state reader would, including
// the derived fields.
func (s StateDef) ToModel(cfg engine.Config) model.SystemState {
	st := model.SystemState{
		PVPowerKW:          s.PVPowerKW,
		HouseConsumptionKW: s.HouseConsumptionKW,
		BatterySoC:         s.BatterySoC,
		BatteryPowerKW:     s.BatteryPowerKW,
		CarSoC:             s.CarSoC,
		CarConnected:       s.CarConnected,
		GridPowerKW:        s.GridPowerKW,
		PriceCtKWh:         s.PriceCtKWh,
		Timestamp:          time.Now(),
	}
	surplus := st.PVPowerKW - st.HouseConsumptionKW
	if cfg.SurplusNetsBattery && st.BatteryPowerKW > 0 {
		surplus -= st.BatteryPowerKW
	}
	if surplus > 0 {
		st.PVSurplusKW = surplus
	}
	st.PriceLevel = cfg.Prices().Classify(st.PriceCtKWh)
	return st
}

// Expected is the assertion section of a scenario.
type Expected struct {
	// Kinds is the exact ordered decision kind list.
	Kinds []string `yaml:"kinds"`
	// Notifications is the number of notifications sent on a cold
	// dispatcher.
	Notifications int `yaml:"notifications"`
}

// Scenario binds a state, optional config overrides and expectations.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	State       StateDef           `yaml:"state"`
	Overrides   map[string]float64 `yaml:"overrides,omitempty"`
	Expected    Expected           `yaml:"expected"`
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// EngineConfig returns the default policy config with the scenario's
// overrides applied.
func (sc *Scenario) EngineConfig() engine.Config {
	var cfg engine.Config
	cfg.SetDefaults()
	for key, v := range sc.Overrides {
		switch key {
		case "price_very_cheap_threshold":
			cfg.PriceVeryCheapCt = v
		case "price_cheap_threshold":
			cfg.PriceCheapCt = v
		case "price_expensive_threshold":
			cfg.PriceExpensiveCt = v
		case "pv_surplus_for_car_charging":
			cfg.PVSurplusForCarKW = v
		case "pv_surplus_for_battery":
			cfg.PVSurplusForBatteryKW = v
		case "car_min_soc_target":
			cfg.CarMinSoCTarget = v
		case "car_default_target_soc":
			cfg.CarDefaultTargetSoC = v
		case "battery_max_soc":
			cfg.BatteryMaxSoC = v
		case "battery_reserve_evening":
			cfg.BatteryReserveEvening = v
		}
	}
	return cfg
}
