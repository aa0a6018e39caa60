package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homewatt/homewatt/core/model"
	"github.com/homewatt/homewatt/infra/logger"
)

type fakeNotifier struct {
	sent []string
	fail bool
}

func (f *fakeNotifier) Send(_ context.Context, _, _, message string) error {
	if f.fail {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, message)
	return nil
}

func testDispatcher(n Notifier) *Dispatcher {
	cfg := Config{}
	cfg.SetDefaults()
	return NewDispatcher(n, cfg, logger.NopLogger{}, nil)
}

func decision(kind model.DecisionKind) model.Decision {
	return model.Decision{Kind: kind, Message: "msg " + kind.String(), Notify: true}
}

func TestCooldownSuppressesWithinWindow(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return now })

	if got := d.Dispatch(context.Background(), "c1", []model.Decision{decision(model.PvChargeCar)}); got != 1 {
		t.Fatalf("first dispatch sent %d, want 1", got)
	}
	now = now.Add(119 * time.Minute)
	if got := d.Dispatch(context.Background(), "c2", []model.Decision{decision(model.PvChargeCar)}); got != 0 {
		t.Fatalf("dispatch within cooldown sent %d, want 0", got)
	}
	// Boundary: exactly the cooldown duration later, the window is over.
	now = now.Add(time.Minute)
	if got := d.Dispatch(context.Background(), "c3", []model.Decision{decision(model.PvChargeCar)}); got != 1 {
		t.Fatalf("dispatch at cooldown boundary sent %d, want 1", got)
	}
	if len(n.sent) != 2 {
		t.Fatalf("notifier invoked %d times, want 2", len(n.sent))
	}
}

func TestCooldownKeyedByKind(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n)
	ds := []model.Decision{decision(model.PvChargeCar), decision(model.CheapGridChargeBattery)}
	if got := d.Dispatch(context.Background(), "c1", ds); got != 2 {
		t.Fatalf("sent %d, want 2", got)
	}
}

func TestSendFailureDoesNotPoisonCooldown(t *testing.T) {
	n := &fakeNotifier{fail: true}
	d := testDispatcher(n)
	if got := d.Dispatch(context.Background(), "c1", []model.Decision{decision(model.EmergencyCarCharge)}); got != 0 {
		t.Fatalf("sent %d, want 0", got)
	}
	// Next cycle retries immediately: the failed send must not have
	// updated the timestamp.
	n.fail = false
	if got := d.Dispatch(context.Background(), "c2", []model.Decision{decision(model.EmergencyCarCharge)}); got != 1 {
		t.Fatalf("retry sent %d, want 1", got)
	}
}

func TestSendFailureDoesNotBlockOthers(t *testing.T) {
	n := &failFirstNotifier{}
	d := testDispatcher(n)
	ds := []model.Decision{decision(model.EmergencyCarCharge), decision(model.CheapGridChargeBattery)}
	if got := d.Dispatch(context.Background(), "c1", ds); got != 1 {
		t.Fatalf("sent %d, want 1", got)
	}
}

type failFirstNotifier struct{ calls int }

func (f *failFirstNotifier) Send(context.Context, string, string, string) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("boom")
	}
	return nil
}

func TestSilentDecisionsSkipped(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n)
	ds := []model.Decision{{Kind: model.PvChargeBattery, Notify: false}}
	if got := d.Dispatch(context.Background(), "c1", ds); got != 0 {
		t.Fatalf("sent %d, want 0", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	cfg.Service = "plainstring"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for service without domain")
	}
}
