// Package notify delivers decision notifications with per-kind cooldown
// suppression. It owns the only cross-cycle mutable state of the pipeline.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Notifier abstracts the outbound notification transport.
type Notifier interface {
	Send(ctx context.Context, service, title, message string) error
}

// Config holds notification settings.
type Config struct {
	// Service is a dotted domain.service pair, e.g. "notify.mobile_app".
	Service string `json:"service"`
	Title   string `json:"title"`
	// CooldownMinutes is the minimum gap between two notifications of the
	// same decision kind.
	CooldownMinutes int `json:"cooldown_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Service == "" {
		c.Service = "notify.mobile_app"
	}
	if c.Title == "" {
		c.Title = "Energy Manager"
	}
	if c.CooldownMinutes == 0 {
		c.CooldownMinutes = 120
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if !strings.Contains(c.Service, ".") {
		return fmt.Errorf("notify service must be a domain.service pair, got %q", c.Service)
	}
	if c.CooldownMinutes < 0 {
		return fmt.Errorf("cooldown_minutes must not be negative")
	}
	return nil
}
