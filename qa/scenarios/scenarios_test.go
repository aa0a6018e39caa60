package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestOverridesApply(t *testing.T) {
	sc := &Scenario{Overrides: map[string]float64{
		"price_cheap_threshold":       12,
		"pv_surplus_for_car_charging": 4,
	}}
	cfg := sc.EngineConfig()
	if cfg.PriceCheapCt != 12 {
		t.Errorf("price_cheap_threshold = %v", cfg.PriceCheapCt)
	}
	if cfg.PVSurplusForCarKW != 4 {
		t.Errorf("pv_surplus_for_car_charging = %v", cfg.PVSurplusForCarKW)
	}
	if cfg.PriceExpensiveCt != 30 {
		t.Errorf("default not kept: %v", cfg.PriceExpensiveCt)
	}
}
