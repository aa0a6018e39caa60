package factory

import "testing"

type fakeSink struct{ bucket string }

type fakeSinkConf struct {
	Bucket string `json:"bucket"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*fakeSink]()
	if err := reg.Register("fake", func(conf map[string]any) (*fakeSink, error) {
		var c fakeSinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &fakeSink{bucket: c.Bucket}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	sink, err := reg.Create(ModuleConfig{Type: "fake", Conf: map[string]any{"bucket": "energy"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sink.bucket != "energy" {
		t.Fatalf("expected bucket energy, got %q", sink.bucket)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[*fakeSink]()
	if err := reg.Register("fake", func(map[string]any) (*fakeSink, error) { return &fakeSink{}, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("fake", func(map[string]any) (*fakeSink, error) { return &fakeSink{}, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}
