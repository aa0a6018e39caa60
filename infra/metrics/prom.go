package metrics

import (
	"strconv"

	coremetrics "github.com/homewatt/homewatt/core/metrics"
	"github.com/homewatt/homewatt/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records evaluation cycles and notification outcomes in
// Prometheus metrics.
type PromSink struct {
	cycles        *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pvPower       prometheus.Gauge
	houseLoad     prometheus.Gauge
	batterySoC    prometheus.Gauge
	carSoC        prometheus.Gauge
	gridPower     prometheus.Gauge
	price         prometheus.Gauge
	surplus       prometheus.Gauge
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The Prometheus server should be started separately via StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_cycles_total",
		Help: "Total number of evaluation cycles",
	}, []string{"trigger", "failed"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_decisions_total",
		Help: "Total number of decisions emitted, by kind",
	}, []string{"kind"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_notifications_total",
		Help: "Total number of notification attempts, by kind and outcome",
	}, []string{"kind", "outcome"})

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}
	s := &PromSink{
		cycles:        cycles,
		decisions:     decisions,
		notifications: notifications,
		pvPower:       gauge("energy_pv_power_kw", "Current PV production in kW"),
		houseLoad:     gauge("energy_house_consumption_kw", "Current house consumption in kW"),
		batterySoC:    gauge("energy_battery_soc_percent", "Home battery state of charge"),
		carSoC:        gauge("energy_car_soc_percent", "EV state of charge"),
		gridPower:     gauge("energy_grid_power_kw", "Grid flow in kW, positive is import"),
		price:         gauge("energy_price_ct_kwh", "Current electricity price in ct/kWh"),
		surplus:       gauge("energy_pv_surplus_kw", "Derived PV surplus in kW"),
	}

	if err := registerCounterVec(reg, &s.cycles); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &s.decisions); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &s.notifications); err != nil {
		return nil, err
	}
	for _, g := range []*prometheus.Gauge{&s.pvPower, &s.houseLoad, &s.batterySoC, &s.carSoC, &s.gridPower, &s.price, &s.surplus} {
		if err := registerGauge(reg, g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func registerCounterVec(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*c = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

func registerGauge(reg prometheus.Registerer, g *prometheus.Gauge) error {
	if err := reg.Register(*g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*g = are.ExistingCollector.(prometheus.Gauge)
			return nil
		}
		return err
	}
	return nil
}

// RecordCycle increments the cycle counter and the per-kind decision
// counters, and updates the state gauges from the cycle snapshot.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	s.cycles.WithLabelValues(rec.Trigger, strconv.FormatBool(rec.Failed)).Inc()
	for _, d := range rec.Decisions {
		s.decisions.WithLabelValues(d.Kind.String()).Inc()
	}
	return s.RecordSnapshot(rec.State)
}

// RecordNotification counts a notification attempt by outcome.
func (s *PromSink) RecordNotification(rec coremetrics.NotificationRecord) error {
	outcome := "sent"
	switch {
	case rec.Suppressed:
		outcome = "suppressed"
	case rec.Failed:
		outcome = "failed"
	}
	s.notifications.WithLabelValues(rec.Kind.String(), outcome).Inc()
	return nil
}

// RecordSnapshot updates the state gauges.
func (s *PromSink) RecordSnapshot(st model.SystemState) error {
	s.pvPower.Set(st.PVPowerKW)
	s.houseLoad.Set(st.HouseConsumptionKW)
	s.batterySoC.Set(st.BatterySoC)
	s.carSoC.Set(st.CarSoC)
	s.gridPower.Set(st.GridPowerKW)
	s.price.Set(st.PriceCtKWh)
	s.surplus.Set(st.PVSurplusKW)
	return nil
}
