// Package shards bundles the built-in unit modules.
package shards

import (
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shards/general"
	"github.com/ib-77/shardwire/pkg/shards/gfx"
	"github.com/ib-77/shardwire/pkg/shards/gui"
	"github.com/ib-77/shardwire/pkg/shards/ws"
)

// Modules lists the built-in modules in registration order.
var Modules = []func(r *unit.Registry) error{
	general.Module,
	gfx.Module,
	gui.Module,
	ws.Module,
}

// RegisterAll registers every built-in unit into r.
func RegisterAll(r *unit.Registry) error {
	for _, m := range Modules {
		if err := m(r); err != nil {
			return err
		}
	}
	return nil
}
