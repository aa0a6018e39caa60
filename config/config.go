// Package config loads and validates the full application configuration
// from a YAML or JSON file, with optional HW_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/homewatt/homewatt/api/feed"
	"github.com/homewatt/homewatt/core/engine"
	"github.com/homewatt/homewatt/core/factory"
	"github.com/homewatt/homewatt/core/metrics"
	"github.com/homewatt/homewatt/core/notify"
	"github.com/homewatt/homewatt/core/state"
	"github.com/homewatt/homewatt/infra/dashboard"
	"github.com/homewatt/homewatt/infra/monitoring"
)

type Config struct {
	Source    factory.ModuleConfig    `json:"source"`
	Entities  state.EntityMap         `json:"entities"`
	Engine    engine.Config           `json:"engine"`
	Notify    notify.Config           `json:"notify"`
	Loop      LoopConfig              `json:"loop"`
	Metrics   metrics.Config          `json:"metrics"`
	History   HistoryConfig           `json:"history"`
	Feed      feed.Config             `json:"feed"`
	Dashboard dashboard.Config        `json:"dashboard"`
	Sentry    monitoring.SentryConfig `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("HW_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "hw_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = "hass"
	}
	if c.Entities == nil {
		c.Entities = make(state.EntityMap)
	}
	c.Entities.SetDefaults()
	c.Engine.SetDefaults()
	c.Notify.SetDefaults()
	c.Loop.SetDefaults()
	c.History.SetDefaults()
	c.Feed.SetDefaults()
}

// Validate checks every section that defines constraints.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Notify.Validate(); err != nil {
		return err
	}
	if err := c.Loop.Validate(); err != nil {
		return err
	}
	return c.History.Validate()
}
