package mqtt

import (
	"github.com/homewatt/homewatt/core/factory"
	corestate "github.com/homewatt/homewatt/core/state"
)

// init registers the statestream state source.
func init() {
	_ = corestate.RegisterSource("statestream", func(conf map[string]any) (corestate.Source, error) {
		var c SourceConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewStatestreamSource(c)
	})
}
