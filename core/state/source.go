package state

import (
	"context"

	"github.com/homewatt/homewatt/core/factory"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// Source is a Store with a connection lifecycle. Start establishes the
// backend connection and keeps the cache warm until the context is canceled.
type Source interface {
	Store
	Start(ctx context.Context) error
	Close() error
}

// BusAware sources publish events (e.g. price changes) on the bus.
type BusAware interface {
	AttachBus(bus eventbus.EventBus)
}

// PriceWatcher sources emit a PriceChangeEvent when the given entity moves
// by more than deltaCt.
type PriceWatcher interface {
	WatchPrice(entityID string, deltaCt float64)
}

var sourceRegistry = factory.NewRegistry[Source]()

// RegisterSource adds a state source factory identified by name.
func RegisterSource(name string, f factory.Factory[Source]) error {
	return sourceRegistry.Register(name, f)
}

// NewSource creates a Source from the provided configuration.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	return sourceRegistry.Create(cfg)
}
