package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/homewatt/homewatt/core/model"
)

func record(ts time.Time, id string, kinds ...model.DecisionKind) CycleRecord {
	var ds []model.Decision
	for _, k := range kinds {
		ds = append(ds, model.Decision{Kind: k, Notify: true})
	}
	return CycleRecord{
		Timestamp: ts,
		CycleID:   id,
		Trigger:   "interval",
		State:     model.SystemState{PriceCtKWh: 20, Timestamp: ts},
		Decisions: ds,
	}
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "cycles.log"))
	if err != nil {
		t.Fatalf("jsonl store: %v", err)
	}
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "cycles.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	return map[string]Store{"jsonl": jsonl, "sqlite": sqlite}
}

func TestStoreAppendQuery(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			recs := []CycleRecord{
				record(base, "c1", model.PvChargeCar),
				record(base.Add(time.Hour), "c2", model.CheapGridChargeBattery),
				record(base.Add(2*time.Hour), "c3"),
			}
			for _, r := range recs {
				if err := store.Append(ctx, r); err != nil {
					t.Fatalf("append: %v", err)
				}
			}

			all, err := store.Query(ctx, Query{})
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 records, got %d", len(all))
			}

			ranged, err := store.Query(ctx, Query{Start: base.Add(30 * time.Minute)})
			if err != nil {
				t.Fatalf("query range: %v", err)
			}
			if len(ranged) != 2 {
				t.Fatalf("expected 2 records after start, got %d", len(ranged))
			}

			byKind, err := store.Query(ctx, Query{Kind: model.PvChargeCar.String()})
			if err != nil {
				t.Fatalf("query kind: %v", err)
			}
			if len(byKind) != 1 || byKind[0].CycleID != "c1" {
				t.Fatalf("kind filter wrong: %+v", byKind)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	if _, err := NewStore("bolt", "x"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
