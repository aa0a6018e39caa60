// Package history persists a per-cycle audit record. The cooldown state of
// the notification dispatcher is deliberately not persisted; history is a
// log, not a checkpoint.
package history

import (
	"context"
	"time"

	"github.com/homewatt/homewatt/core/model"
)

// CycleRecord captures one evaluation cycle and its outcome.
type CycleRecord struct {
	Timestamp         time.Time         `json:"timestamp"`
	CycleID           string            `json:"cycle_id"`
	Trigger           string            `json:"trigger"`
	State             model.SystemState `json:"state"`
	Decisions         []model.Decision  `json:"decisions"`
	NotificationsSent int               `json:"notifications_sent"`
}

// Query defines filters for retrieving records. Zero times and the empty
// kind match everything.
type Query struct {
	Start time.Time
	End   time.Time
	Kind  string
}

// matches reports whether the record satisfies the query.
func (q Query) matches(r CycleRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" {
		found := false
		for _, d := range r.Decisions {
			if d.Kind.String() == q.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store persists CycleRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec CycleRecord) error
	Query(ctx context.Context, q Query) ([]CycleRecord, error)
	Close() error
}
