package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/homewatt/homewatt/core/metrics"
	"github.com/homewatt/homewatt/core/model"
	"github.com/homewatt/homewatt/infra/logger"
)

// InfluxSink writes cycle records to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCycle writes one point per cycle plus one per decision.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("energy_cycle").
		AddTag("cycle_id", rec.CycleID).
		AddTag("trigger", rec.Trigger).
		AddTag("failed", strconv.FormatBool(rec.Failed)).
		AddField("decisions", len(rec.Decisions)).
		AddField("notifications_sent", rec.NotificationsSent).
		SetTime(rec.Time)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	for _, d := range rec.Decisions {
		dp := write.NewPointWithMeasurement("energy_decision").
			AddTag("cycle_id", rec.CycleID).
			AddTag("kind", d.Kind.String()).
			AddField("notify", d.Notify).
			SetTime(rec.Time)
		if err := s.writeAPI.WritePoint(ctx, dp); err != nil {
			return err
		}
	}
	return nil
}

// RecordNotification persists one notification attempt.
func (s *InfluxSink) RecordNotification(rec coremetrics.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("energy_notification").
		AddTag("kind", rec.Kind.String()).
		AddTag("suppressed", strconv.FormatBool(rec.Suppressed)).
		AddField("failed", rec.Failed).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSnapshot writes a snapshot of the system state.
func (s *InfluxSink) RecordSnapshot(st model.SystemState) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("energy_state").
		AddTag("price_level", st.PriceLevel.String()).
		AddField("pv_power_kw", round3(st.PVPowerKW)).
		AddField("house_consumption_kw", round3(st.HouseConsumptionKW)).
		AddField("battery_soc", round3(st.BatterySoC)).
		AddField("battery_power_kw", round3(st.BatteryPowerKW)).
		AddField("car_soc", round3(st.CarSoC)).
		AddField("car_connected", st.CarConnected).
		AddField("grid_power_kw", round3(st.GridPowerKW)).
		AddField("price_ct_kwh", round3(st.PriceCtKWh)).
		AddField("pv_surplus_kw", round3(st.PVSurplusKW)).
		SetTime(st.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
