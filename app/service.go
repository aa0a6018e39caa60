// Package app wires the configured modules into a running service and owns
// the control loop. One worker runs all cycles; interval ticks and price
// change triggers are coalesced, never interleaved.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homewatt/homewatt/api/feed"
	"github.com/homewatt/homewatt/config"
	"github.com/homewatt/homewatt/core/engine"
	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/core/history"
	coremetrics "github.com/homewatt/homewatt/core/metrics"
	"github.com/homewatt/homewatt/core/model"
	coremon "github.com/homewatt/homewatt/core/monitoring"
	"github.com/homewatt/homewatt/core/notify"
	"github.com/homewatt/homewatt/core/state"
	"github.com/homewatt/homewatt/infra/dashboard"
	"github.com/homewatt/homewatt/infra/hass"
	"github.com/homewatt/homewatt/infra/logger"
	"github.com/homewatt/homewatt/infra/metrics"
	_ "github.com/homewatt/homewatt/infra/mqtt" // register statestream source
	"github.com/homewatt/homewatt/infra/monitoring"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// Service orchestrates the state source, decision engine and dispatcher.
type Service struct {
	cfg *config.Config
	log logger.Logger
	bus eventbus.EventBus

	source     state.Source
	reader     *state.Reader
	dispatcher *notify.Dispatcher
	sink       coremetrics.MetricsSink
	history    history.Store
	monitor    coremon.Monitor
	feed       *feed.Server
}

// logNotifier is the fallback transport when the source offers none: it
// only logs, so dry runs against a mock source still exercise the full
// pipeline.
type logNotifier struct{ log logger.Logger }

func (n logNotifier) Send(_ context.Context, service, title, message string) error {
	n.log.Infof("notify %s: %s: %s", service, title, message)
	return nil
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")
	bus := eventbus.New()

	source, err := state.NewSource(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("state source: %w", err)
	}
	if ba, ok := source.(state.BusAware); ok {
		ba.AttachBus(bus)
	}
	if pw, ok := source.(state.PriceWatcher); ok {
		pw.WatchPrice(cfg.Entities.Resolve(state.EntityCurrentPrice), cfg.Loop.PriceChangeTriggerCt)
	}

	var notifier notify.Notifier
	switch src := source.(type) {
	case notify.Notifier:
		notifier = src
	case hass.ServiceCaller:
		notifier = hass.NewNotifier(src)
	default:
		notifier = logNotifier{log: logger.New("notify")}
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	svc := &Service{
		cfg:        cfg,
		log:        log,
		bus:        bus,
		source:     source,
		reader:     state.NewReader(source, cfg.Entities, cfg.Engine, logger.New("reader")),
		dispatcher: notify.NewDispatcher(notifier, cfg.Notify, logger.New("notify"), bus),
		sink:       sink,
		monitor:    monitor,
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.Backend, cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		svc.history = store
	}
	if cfg.Feed.Address != "" {
		svc.feed = feed.NewServer(cfg.Feed, svc.reader, bus)
	}
	if cfg.Dashboard.Enabled {
		if err := dashboard.NewDeployer(cfg.Dashboard).Deploy(cfg.Entities); err != nil {
			log.Warnf("dashboard deploy failed: %v", err)
		}
	}
	return svc, nil
}

// Run starts the control loop and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.source.Start(ctx); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.feed != nil {
		go func() {
			if err := s.feed.Start(ctx); err != nil {
				s.log.Errorf("feed server: %v", err)
			}
		}()
	}
	if s.cfg.Metrics.PrometheusAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	priceCh := s.watchPriceChanges(ctx)
	interval := time.Duration(s.cfg.Loop.CheckIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunCycle(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunCycle(ctx, "interval")
		case <-priceCh:
			s.RunCycle(ctx, "price_change")
		}
	}
}

// watchPriceChanges forwards price change events into a buffered channel.
// Bursts collapse into one pending trigger.
func (s *Service) watchPriceChanges(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	sub := s.bus.Subscribe()
	go func() {
		defer s.bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if pc, isPrice := ev.(events.PriceChangeEvent); isPrice {
					s.log.Infof("price changed %.1f -> %.1f ct/kWh", pc.OldPrice, pc.NewPrice)
					select {
					case out <- struct{}{}:
					default:
					}
				}
			}
		}
	}()
	return out
}

// RunCycle executes one full evaluation cycle: read, decide, dispatch,
// record. Errors are reported and the loop keeps running.
func (s *Service) RunCycle(ctx context.Context, trigger string) []model.Decision {
	defer s.monitor.Recover()
	cycleID := uuid.NewString()

	st, err := s.reader.Read(ctx)
	if err != nil {
		s.log.Errorf("cycle %s aborted: %v", cycleID, err)
		s.monitor.CaptureException(err, map[string]string{"cycle_id": cycleID, "trigger": trigger})
		if rerr := s.sink.RecordCycle(coremetrics.CycleRecord{
			CycleID: cycleID,
			Trigger: trigger,
			Failed:  true,
			Time:    time.Now(),
		}); rerr != nil {
			s.log.Warnf("record failed cycle: %v", rerr)
		}
		return nil
	}
	s.bus.Publish(events.SnapshotEvent{CycleID: cycleID, State: st})
	s.log.Infof("%s", summarize(st))

	decisions := engine.Decide(st, s.cfg.Engine)
	s.bus.Publish(events.DecisionEvent{CycleID: cycleID, State: st, Decisions: decisions})
	s.log.Debugf("cycle %s (%s): %d decisions", cycleID, trigger, len(decisions))

	sent := s.dispatcher.Dispatch(ctx, cycleID, decisions)

	if err := s.sink.RecordCycle(coremetrics.CycleRecord{
		CycleID:           cycleID,
		Trigger:           trigger,
		State:             st,
		Decisions:         decisions,
		NotificationsSent: sent,
		Time:              st.Timestamp,
	}); err != nil {
		s.log.Warnf("record cycle: %v", err)
	}
	if s.history != nil {
		if err := s.history.Append(ctx, history.CycleRecord{
			Timestamp:         st.Timestamp,
			CycleID:           cycleID,
			Trigger:           trigger,
			State:             st,
			Decisions:         decisions,
			NotificationsSent: sent,
		}); err != nil {
			s.log.Warnf("append history: %v", err)
		}
	}
	return decisions
}

// summarize renders the one-line system summary logged each cycle.
func summarize(st model.SystemState) string {
	return fmt.Sprintf("pv %.1f kW surplus %.1f kW battery %.0f%% car %.0f%% price %.1f ct (%s)",
		st.PVPowerKW, st.PVSurplusKW, st.BatterySoC, st.CarSoC, st.PriceCtKWh, st.PriceLevel)
}

// Evaluate starts the source, reads one snapshot and returns the decision
// list without dispatching notifications. Used for one-shot checks.
func (s *Service) Evaluate(ctx context.Context) (model.SystemState, []model.Decision, error) {
	if err := s.source.Start(ctx); err != nil {
		return model.SystemState{}, nil, fmt.Errorf("start source: %w", err)
	}
	st, err := s.reader.Read(ctx)
	if err != nil {
		return model.SystemState{}, nil, err
	}
	return st, engine.Decide(st, s.cfg.Engine), nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var firstErr error
	if err := s.source.Close(); err != nil {
		firstErr = err
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.monitor.Flush(2 * time.Second)
	s.bus.Close()
	return firstErr
}
