package notify

import (
	"context"
	"time"

	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/core/logger"
	"github.com/homewatt/homewatt/core/model"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// Dispatcher sends at most one notification per surviving decision,
// suppressing repeats of the same kind within the cooldown window. It is
// not safe for concurrent use; the control loop guarantees cycles never
// interleave.
type Dispatcher struct {
	notifier Notifier
	cfg      Config
	log      logger.Logger
	bus      eventbus.EventBus
	now      func() time.Time
	lastSent map[model.DecisionKind]time.Time
}

// NewDispatcher creates a Dispatcher. The bus may be nil.
func NewDispatcher(notifier Notifier, cfg Config, log logger.Logger, bus eventbus.EventBus) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		bus:      bus,
		now:      time.Now,
		lastSent: make(map[model.DecisionKind]time.Time),
	}
}

// SetClock overrides the time source, for tests.
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

// Cooldown returns the configured suppression window.
func (d *Dispatcher) Cooldown() time.Duration {
	return time.Duration(d.cfg.CooldownMinutes) * time.Minute
}

// Dispatch processes the decisions in engine order and returns the number
// of notifications sent. A send failure for one kind is logged, leaves the
// cooldown timestamp untouched so the next cycle retries, and never blocks
// delivery of the remaining decisions.
func (d *Dispatcher) Dispatch(ctx context.Context, cycleID string, decisions []model.Decision) int {
	sent := 0
	cooldown := d.Cooldown()
	for _, dec := range decisions {
		if !dec.Notify || dec.Message == "" {
			continue
		}
		now := d.now()
		if last, ok := d.lastSent[dec.Kind]; ok && now.Sub(last) < cooldown {
			d.log.Debugf("notification %s suppressed (cooldown)", dec.Kind)
			d.publish(events.NotificationEvent{CycleID: cycleID, Kind: dec.Kind, Suppressed: true})
			continue
		}
		if err := d.notifier.Send(ctx, d.cfg.Service, d.cfg.Title, dec.Message); err != nil {
			d.log.Errorf("notification %s failed: %v", dec.Kind, err)
			d.publish(events.NotificationEvent{CycleID: cycleID, Kind: dec.Kind, Err: err})
			continue
		}
		d.lastSent[dec.Kind] = now
		sent++
		d.log.Infof("notification sent: %s", dec.Kind)
		d.publish(events.NotificationEvent{CycleID: cycleID, Kind: dec.Kind, SentAt: now})
	}
	return sent
}

func (d *Dispatcher) publish(ev events.NotificationEvent) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}
