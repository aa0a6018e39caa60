package model

import "time"

// PriceLevel classifies the current electricity price against the
// configured absolute thresholds.
type PriceLevel int

const (
	PriceNormal PriceLevel = iota
	PriceVeryCheap
	PriceCheap
	PriceExpensive
)

// String returns a human-readable representation of the price level.
func (l PriceLevel) String() string {
	switch l {
	case PriceVeryCheap:
		return "VERY_CHEAP"
	case PriceCheap:
		return "CHEAP"
	case PriceExpensive:
		return "EXPENSIVE"
	default:
		return "NORMAL"
	}
}

// PricePoint is one entry of the day's price schedule.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"` // ct/kWh
}

// SystemState is the immutable snapshot of all sensor readings taken at the
// start of an evaluation cycle. Derived fields are computed once by the
// state reader and never recomputed afterwards.
type SystemState struct {
	PVPowerKW           float64 `json:"pv_power_kw"`
	HouseConsumptionKW  float64 `json:"house_consumption_kw"`
	PVForecastTodayKWh  float64 `json:"pv_forecast_today_kwh"`
	PVForecastRemainKWh float64 `json:"pv_forecast_remaining_kwh"`
	BatterySoC          float64 `json:"battery_soc"`       // percent
	BatteryPowerKW      float64 `json:"battery_power_kw"`  // positive while charging
	CarSoC              float64 `json:"car_soc"`           // percent
	CarChargingPowerKW  float64 `json:"car_charging_power_kw"`
	CarConnected        bool    `json:"car_connected"`
	GridPowerKW         float64 `json:"grid_power_kw"` // positive = import, negative = export
	PriceCtKWh          float64 `json:"current_price_ct"`

	// Derived at construction.
	PVSurplusKW float64    `json:"pv_surplus_kw"`
	PriceLevel  PriceLevel `json:"price_level"`

	Timestamp time.Time `json:"timestamp"`
}
