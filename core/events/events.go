package events

import (
	"time"

	"github.com/homewatt/homewatt/core/model"
)

// SnapshotEvent is published after the state reader produced a snapshot.
type SnapshotEvent struct {
	CycleID string
	State   model.SystemState
}

// DecisionEvent is published once per cycle with the full ordered decision
// list, before any notification is dispatched.
type DecisionEvent struct {
	CycleID   string
	State     model.SystemState
	Decisions []model.Decision
}

// NotificationEvent reports the outcome of one notification attempt.
type NotificationEvent struct {
	CycleID    string
	Kind       model.DecisionKind
	Suppressed bool
	Err        error
	SentAt     time.Time
}

// PriceChangeEvent is published when the price entity changed by more than
// the configured trigger threshold.
type PriceChangeEvent struct {
	OldPrice float64
	NewPrice float64
}
