package scenarios

import (
	"context"
	"testing"

	"github.com/homewatt/homewatt/core/engine"
	"github.com/homewatt/homewatt/core/notify"
	"github.com/homewatt/homewatt/infra/hass"
	"github.com/homewatt/homewatt/infra/logger"
)

// RunScenario evaluates the scenario state and checks the decision list
// and the notification count on a cold dispatcher.
func RunScenario(t *testing.T, sc *Scenario) {
	cfg := sc.EngineConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("scenario %s config: %v", sc.Name, err)
	}
	st := sc.State.ToModel(cfg)
	decisions := engine.Decide(st, cfg)

	kinds := make([]string, len(decisions))
	for i, d := range decisions {
		kinds[i] = d.Kind.String()
	}
	if len(kinds) != len(sc.Expected.Kinds) {
		t.Fatalf("scenario %s: expected kinds %v, got %v", sc.Name, sc.Expected.Kinds, kinds)
	}
	for i := range kinds {
		if kinds[i] != sc.Expected.Kinds[i] {
			t.Fatalf("scenario %s: expected kinds %v, got %v", sc.Name, sc.Expected.Kinds, kinds)
		}
	}

	notifier := &hass.MockNotifier{}
	var ncfg notify.Config
	ncfg.SetDefaults()
	dispatcher := notify.NewDispatcher(notifier, ncfg, logger.NopLogger{}, nil)
	sent := dispatcher.Dispatch(context.Background(), "scenario", decisions)
	if sent != sc.Expected.Notifications {
		t.Errorf("scenario %s: expected %d notifications, got %d", sc.Name, sc.Expected.Notifications, sent)
	}
}
