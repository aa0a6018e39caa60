package metrics

import (
	"time"

	"github.com/homewatt/homewatt/core/model"
)

// CycleRecord summarizes one evaluation cycle for observability purposes.
type CycleRecord struct {
	CycleID           string
	Trigger           string // "interval", "price_change" or "manual"
	State             model.SystemState
	Decisions         []model.Decision
	NotificationsSent int
	Failed            bool
	Time              time.Time
}

// MetricsSink records cycle results.
type MetricsSink interface {
	RecordCycle(rec CycleRecord) error
}

// NotificationRecord captures the outcome of one notification attempt.
type NotificationRecord struct {
	Kind       model.DecisionKind
	Suppressed bool
	Failed     bool
	Time       time.Time
}

// NotificationRecorder is implemented by sinks able to record notification
// outcomes.
type NotificationRecorder interface {
	RecordNotification(rec NotificationRecord) error
}

// SnapshotRecorder is implemented by sinks able to record raw state
// snapshots, e.g. as gauge values or time series points.
type SnapshotRecorder interface {
	RecordSnapshot(s model.SystemState) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleRecord) error               { return nil }
func (NopSink) RecordNotification(NotificationRecord) error { return nil }
func (NopSink) RecordSnapshot(model.SystemState) error      { return nil }
