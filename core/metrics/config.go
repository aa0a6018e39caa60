package metrics

import "github.com/homewatt/homewatt/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr is the listen address of the /metrics endpoint. Empty
	// disables the server even when a prometheus sink is configured.
	PrometheusAddr string `json:"prometheus_addr"`
}
