package metrics

import (
	"context"
	"time"

	"github.com/homewatt/homewatt/core/events"
	coremetrics "github.com/homewatt/homewatt/core/metrics"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// snapshot and notification events. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.SnapshotEvent:
					if r, ok := sink.(coremetrics.SnapshotRecorder); ok {
						_ = r.RecordSnapshot(e.State)
					}
				case events.NotificationEvent:
					if r, ok := sink.(coremetrics.NotificationRecorder); ok {
						at := e.SentAt
						if at.IsZero() {
							at = time.Now()
						}
						_ = r.RecordNotification(coremetrics.NotificationRecord{
							Kind:       e.Kind,
							Suppressed: e.Suppressed,
							Failed:     e.Err != nil,
							Time:       at,
						})
					}
				}
			}
		}
	}()
}
