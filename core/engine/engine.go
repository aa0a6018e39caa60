// Package engine implements the priority-ordered decision policy: free
// solar power first, cheap grid power second, protection against running
// out of charge always.
package engine

import (
	"fmt"

	"github.com/homewatt/homewatt/core/model"
)

// Decide maps a system snapshot to an ordered list of recommendations.
// It is a pure function: no I/O, no clock, no hidden state, so calling it
// twice with the same snapshot yields identical output.
//
// Three tiers are evaluated in fixed order: emergency, PV-first, price.
// Later tiers run even when an earlier tier fired, but a decision never
// invalidates an earlier one. The returned list preserves tier order.
func Decide(s model.SystemState, cfg Config) []model.Decision {
	var decisions []model.Decision

	// Tier 1: emergency. A critically low car battery is charged
	// regardless of price, and never interrupted by a later stop rule.
	emergency := s.CarConnected && s.CarSoC < cfg.CarMinSoCTarget
	if emergency {
		decisions = append(decisions, model.Decision{
			Kind: model.EmergencyCarCharge,
			Message: fmt.Sprintf(
				"Car battery critically low: %.0f%%. Immediate charging recommended (minimum %.0f%%).",
				s.CarSoC, cfg.CarMinSoCTarget),
			Notify: true,
			Hint:   &model.ActionHint{Actuator: model.ActuatorCarCharger, TurnOn: true},
		})
	}

	// Tier 2: PV-first. The two checks target different actuators and are
	// independent of each other.
	if !emergency && s.CarConnected &&
		s.CarSoC < cfg.CarDefaultTargetSoC &&
		s.PVSurplusKW >= cfg.PVSurplusForCarKW {
		decisions = append(decisions, model.Decision{
			Kind: model.PvChargeCar,
			Message: fmt.Sprintf(
				"PV surplus: %.1f kW available. Car battery at %.0f%% - charging recommended.",
				s.PVSurplusKW, s.CarSoC),
			Notify: true,
			Hint:   &model.ActionHint{Actuator: model.ActuatorCarCharger, TurnOn: true},
		})
	}
	if s.PVSurplusKW >= cfg.PVSurplusForBatteryKW && s.BatterySoC < cfg.BatteryMaxSoC {
		// Silent action: routing surplus into the home battery needs no
		// user attention.
		decisions = append(decisions, model.Decision{
			Kind:   model.PvChargeBattery,
			Notify: false,
			Hint:   &model.ActionHint{Actuator: model.ActuatorBatteryCharger, TurnOn: true},
		})
	}

	// Tier 3: price. The cheap branches form an either/or pair; the stop
	// rule is evaluated independently, not as their else.
	if s.PriceCtKWh <= cfg.PriceVeryCheapCt && s.BatterySoC < cfg.BatteryMaxSoC {
		decisions = append(decisions, model.Decision{
			Kind: model.CheapGridChargeBattery,
			Message: fmt.Sprintf(
				"Electricity very cheap: %.1f ct/kWh. Charging the home battery (%.0f%%) from the grid recommended.",
				s.PriceCtKWh, s.BatterySoC),
			Notify: true,
			Hint:   &model.ActionHint{Actuator: model.ActuatorBatteryCharger, TurnOn: true},
		})
	} else if s.PriceCtKWh <= cfg.PriceCheapCt && s.CarConnected && s.CarSoC < cfg.CarDefaultTargetSoC {
		decisions = append(decisions, model.Decision{
			Kind: model.CheapGridChargeCar,
			Message: fmt.Sprintf(
				"Cheap electricity: %.1f ct/kWh. Car battery at %.0f%% - charging now recommended.",
				s.PriceCtKWh, s.CarSoC),
			Notify: true,
			Hint:   &model.ActionHint{Actuator: model.ActuatorCarCharger, TurnOn: true},
		})
	}
	if s.PriceCtKWh >= cfg.PriceExpensiveCt && s.BatterySoC > cfg.BatteryReserveEvening {
		hint := &model.ActionHint{Actuator: model.ActuatorCarCharger, TurnOn: false}
		if emergency {
			// Emergency charging wins: the stop recommendation must not
			// target the car actuator in the same cycle.
			hint = &model.ActionHint{Actuator: model.ActuatorBatteryCharger, TurnOn: false}
		}
		decisions = append(decisions, model.Decision{
			Kind: model.ExpensiveStopCharging,
			Message: fmt.Sprintf(
				"Electricity expensive: %.1f ct/kWh. Using the home battery (%.0f%%) instead of grid power recommended.",
				s.PriceCtKWh, s.BatterySoC),
			Notify: true,
			Hint:   hint,
		})
	}

	return decisions
}
