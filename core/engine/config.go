package engine

import (
	"fmt"

	"github.com/homewatt/homewatt/core/pricing"
)

// Config holds the policy thresholds. All price values are in ct/kWh, all
// power values in kW, all SoC values in percent.
type Config struct {
	BatteryCapacityKWh    float64 `json:"battery_capacity_kwh"`
	BatteryMinSoC         float64 `json:"battery_min_soc"`
	BatteryMaxSoC         float64 `json:"battery_max_soc"`
	BatteryReserveEvening float64 `json:"battery_reserve_evening"`

	CarBatteryCapacityKWh float64 `json:"car_battery_capacity_kwh"`
	CarMaxChargePowerKW   float64 `json:"car_max_charge_power_kw"`
	CarMinSoCTarget       float64 `json:"car_min_soc_target"`
	CarDefaultTargetSoC   float64 `json:"car_default_target_soc"`

	PVPeakPowerKW float64 `json:"pv_peak_power_kw"`

	PriceVeryCheapCt float64 `json:"price_very_cheap_threshold"`
	PriceCheapCt     float64 `json:"price_cheap_threshold"`
	PriceExpensiveCt float64 `json:"price_expensive_threshold"`

	PVSurplusForCarKW     float64 `json:"pv_surplus_for_car_charging"`
	PVSurplusForBatteryKW float64 `json:"pv_surplus_for_battery"`

	// SurplusNetsBattery selects the surplus formula: when true, power
	// currently flowing into the home battery is subtracted from the PV
	// surplus before the engine sees it.
	SurplusNetsBattery bool `json:"surplus_nets_battery"`
}

// SetDefaults applies the documented defaults so an empty configuration is
// valid.
func (c *Config) SetDefaults() {
	if c.BatteryCapacityKWh == 0 {
		c.BatteryCapacityKWh = 10
	}
	if c.BatteryMinSoC == 0 {
		c.BatteryMinSoC = 10
	}
	if c.BatteryMaxSoC == 0 {
		c.BatteryMaxSoC = 95
	}
	if c.BatteryReserveEvening == 0 {
		c.BatteryReserveEvening = 30
	}
	if c.CarBatteryCapacityKWh == 0 {
		c.CarBatteryCapacityKWh = 77
	}
	if c.CarMaxChargePowerKW == 0 {
		c.CarMaxChargePowerKW = 11
	}
	if c.CarMinSoCTarget == 0 {
		c.CarMinSoCTarget = 20
	}
	if c.CarDefaultTargetSoC == 0 {
		c.CarDefaultTargetSoC = 80
	}
	if c.PVPeakPowerKW == 0 {
		c.PVPeakPowerKW = 10
	}
	if c.PriceVeryCheapCt == 0 {
		c.PriceVeryCheapCt = 8
	}
	if c.PriceCheapCt == 0 {
		c.PriceCheapCt = 15
	}
	if c.PriceExpensiveCt == 0 {
		c.PriceExpensiveCt = 30
	}
	if c.PVSurplusForCarKW == 0 {
		c.PVSurplusForCarKW = 3
	}
	if c.PVSurplusForBatteryKW == 0 {
		c.PVSurplusForBatteryKW = 1
	}
}

// Validate checks threshold consistency. Configuration errors abort
// startup before the first cycle runs.
func (c Config) Validate() error {
	if c.BatteryCapacityKWh <= 0 || c.CarBatteryCapacityKWh <= 0 {
		return fmt.Errorf("battery capacities must be positive")
	}
	for name, soc := range map[string]float64{
		"battery_min_soc":         c.BatteryMinSoC,
		"battery_max_soc":         c.BatteryMaxSoC,
		"battery_reserve_evening": c.BatteryReserveEvening,
		"car_min_soc_target":      c.CarMinSoCTarget,
		"car_default_target_soc":  c.CarDefaultTargetSoC,
	} {
		if soc < 0 || soc > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %v", name, soc)
		}
	}
	if c.BatteryMinSoC >= c.BatteryMaxSoC {
		return fmt.Errorf("battery_min_soc must be below battery_max_soc")
	}
	if c.CarMinSoCTarget >= c.CarDefaultTargetSoC {
		return fmt.Errorf("car_min_soc_target must be below car_default_target_soc")
	}
	if c.PriceVeryCheapCt > c.PriceCheapCt {
		return fmt.Errorf("price_very_cheap_threshold must not exceed price_cheap_threshold")
	}
	if c.PriceCheapCt >= c.PriceExpensiveCt {
		return fmt.Errorf("price_cheap_threshold must be below price_expensive_threshold")
	}
	if c.PVSurplusForCarKW <= 0 || c.PVSurplusForBatteryKW <= 0 {
		return fmt.Errorf("pv surplus thresholds must be positive")
	}
	return nil
}

// Prices returns the absolute price bands used for classification.
func (c Config) Prices() pricing.Thresholds {
	return pricing.Thresholds{
		VeryCheapCt: c.PriceVeryCheapCt,
		CheapCt:     c.PriceCheapCt,
		ExpensiveCt: c.PriceExpensiveCt,
	}
}
