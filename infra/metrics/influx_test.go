package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/homewatt/homewatt/core/metrics"
	"github.com/homewatt/homewatt/core/model"
)

func TestInfluxSink_RecordNotification(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	rec := coremetrics.NotificationRecord{
		Kind:       model.CheapGridChargeCar,
		Suppressed: false,
		Failed:     true,
		Time:       now,
	}
	if err := sink.RecordNotification(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("energy_notification").
		AddTag("kind", "cheap_grid_charge_car").
		AddTag("suppressed", "false").
		AddField("failed", true).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordCycle(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	rec := coremetrics.CycleRecord{
		CycleID:           "c1",
		Trigger:           "price_change",
		Decisions:         []model.Decision{{Kind: model.ExpensiveStopCharging, Notify: true}},
		NotificationsSent: 1,
		Time:              now,
	}
	if err := sink.RecordCycle(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected cycle + decision points, got %d writes", len(bodies))
	}
	if !strings.HasPrefix(bodies[0], "energy_cycle,") {
		t.Errorf("first point: %s", bodies[0])
	}
	if !strings.Contains(bodies[1], "kind=expensive_stop_charging") {
		t.Errorf("second point: %s", bodies[1])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
