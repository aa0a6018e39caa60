package hass

import (
	"github.com/homewatt/homewatt/core/factory"
	corestate "github.com/homewatt/homewatt/core/state"
)

// init registers the websocket and mock state sources.
func init() {
	_ = corestate.RegisterSource("hass", func(conf map[string]any) (corestate.Source, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewClient(c)
	})

	_ = corestate.RegisterSource("mock", func(conf map[string]any) (corestate.Source, error) {
		values := make(map[string]corestate.Value)
		for k, v := range conf {
			if s, ok := v.(string); ok {
				values[k] = corestate.Value{State: s}
			}
		}
		return NewMockSource(values), nil
	})
}
