package state

// Logical entity names used by the reader. The entity map resolves each of
// them to a concrete entity id of the backing store.
const (
	EntityPVPower             = "pv_power"
	EntityPVForecastToday     = "pv_forecast_today"
	EntityPVForecastRemaining = "pv_forecast_remaining"
	EntityBatterySoC          = "battery_soc"
	EntityBatteryPower        = "battery_power"
	EntityBatteryChargeSwitch = "battery_charging_switch"
	EntityCarSoC              = "car_soc"
	EntityCarChargeSwitch     = "car_charging_switch"
	EntityCarChargingPower    = "car_charging_power"
	EntityCarConnected        = "car_connected"
	EntityGridPower           = "grid_power"
	EntityHouseConsumption    = "house_consumption"
	EntityCurrentPrice        = "current_price"
)

// EntityMap maps logical quantity names to entity ids.
type EntityMap map[string]string

// DefaultEntities returns the default logical-name to entity-id mapping.
func DefaultEntities() EntityMap {
	return EntityMap{
		EntityPVPower:             "sensor.pv_power",
		EntityPVForecastToday:     "sensor.solcast_pv_forecast_today",
		EntityPVForecastRemaining: "sensor.solcast_forecast_remaining",
		EntityBatterySoC:          "sensor.battery_soc",
		EntityBatteryPower:        "sensor.battery_power",
		EntityBatteryChargeSwitch: "switch.battery_force_charge",
		EntityCarSoC:              "sensor.car_battery_level",
		EntityCarChargeSwitch:     "switch.car_charger",
		EntityCarChargingPower:    "sensor.car_charging_power",
		EntityCarConnected:        "binary_sensor.car_connected",
		EntityGridPower:           "sensor.grid_power",
		EntityHouseConsumption:    "sensor.house_consumption",
		EntityCurrentPrice:        "sensor.tibber_current_price",
	}
}

// SetDefaults fills missing logical names with the default mapping.
func (m EntityMap) SetDefaults() {
	for k, v := range DefaultEntities() {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
}

// Resolve returns the entity id for the logical name, or the empty string
// when unmapped.
func (m EntityMap) Resolve(name string) string { return m[name] }
