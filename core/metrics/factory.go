package metrics

import (
	"github.com/homewatt/homewatt/core/factory"
	"github.com/homewatt/homewatt/core/model"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink creates a MetricsSink from the provided configuration.
// Multiple sink configs are combined into a fan-out sink; an empty list
// yields a NopSink.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordCycle(rec CycleRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordCycle(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordNotification forwards notification outcomes.
func (m *MultiSink) RecordNotification(rec NotificationRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(NotificationRecorder); ok {
			if err := r.RecordNotification(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSnapshot forwards state snapshots.
func (m *MultiSink) RecordSnapshot(state model.SystemState) error {
	for _, s := range m.Sinks {
		if r, ok := s.(SnapshotRecorder); ok {
			if err := r.RecordSnapshot(state); err != nil {
				return err
			}
		}
	}
	return nil
}
