package model

// DecisionKind identifies which policy rule produced a decision. It is the
// cooldown key of the notification dispatcher: decisions carry no identity
// across cycles beyond their kind.
type DecisionKind int

const (
	EmergencyCarCharge DecisionKind = iota
	PvChargeCar
	PvChargeBattery
	CheapGridChargeBattery
	CheapGridChargeCar
	ExpensiveStopCharging
)

// String returns a human-readable representation of the decision kind.
func (k DecisionKind) String() string {
	switch k {
	case EmergencyCarCharge:
		return "emergency_car_charge"
	case PvChargeCar:
		return "pv_charge_car"
	case PvChargeBattery:
		return "pv_charge_battery"
	case CheapGridChargeBattery:
		return "cheap_grid_charge_battery"
	case CheapGridChargeCar:
		return "cheap_grid_charge_car"
	case ExpensiveStopCharging:
		return "expensive_stop_charging"
	default:
		return "unknown"
	}
}

// Actuator names the switch entity class a decision recommends toggling.
type Actuator int

const (
	ActuatorNone Actuator = iota
	ActuatorCarCharger
	ActuatorBatteryCharger
)

// String returns the actuator name.
func (a Actuator) String() string {
	switch a {
	case ActuatorCarCharger:
		return "car_charger"
	case ActuatorBatteryCharger:
		return "battery_charger"
	default:
		return "none"
	}
}

// ActionHint describes which actuator the decision recommends toggling and
// to what state. The engine only recommends; nothing guarantees the hint is
// consumed.
type ActionHint struct {
	Actuator Actuator `json:"actuator"`
	TurnOn   bool     `json:"turn_on"`
}

// Decision is one recommendation produced by the decision engine. Decisions
// are created fresh each cycle.
type Decision struct {
	Kind    DecisionKind `json:"kind"`
	Message string       `json:"message"`
	Notify  bool         `json:"notify"`
	Hint    *ActionHint  `json:"hint,omitempty"`
}
