package config

import "fmt"

// LoopConfig controls the cycle cadence of the control loop.
type LoopConfig struct {
	// CheckIntervalMinutes is the fixed cadence between evaluation cycles.
	CheckIntervalMinutes int `json:"check_interval_minutes"`
	// PriceChangeTriggerCt additionally triggers a cycle when the price
	// moves by more than this many ct/kWh between readings.
	PriceChangeTriggerCt float64 `json:"price_change_trigger_ct"`
}

// SetDefaults applies sane defaults.
func (c *LoopConfig) SetDefaults() {
	if c.CheckIntervalMinutes == 0 {
		c.CheckIntervalMinutes = 15
	}
	if c.PriceChangeTriggerCt == 0 {
		c.PriceChangeTriggerCt = 2
	}
}

// Validate checks mandatory fields.
func (c LoopConfig) Validate() error {
	if c.CheckIntervalMinutes < 1 {
		return fmt.Errorf("check_interval_minutes must be at least 1")
	}
	if c.PriceChangeTriggerCt < 0 {
		return fmt.Errorf("price_change_trigger_ct must not be negative")
	}
	return nil
}
