// Package host provides the Runtime a shards process loads once: the unit
// registry, the shared blocking bridge and the host-wide variables.
//
//	rt, err := host.Load(ctx, cfg, logger, shards.RegisterAll)
//	defer rt.Unload()
//
//	m, _ := rt.NewMesh("main")
//	w, _ := rt.Wire("counter", []host.UnitSpec{
//		host.Unit("Const", map[string]value.Var{"Value": value.IntVar(1)}),
//	}, wire.Looped())
//	_ = m.Schedule(w, value.NoneVar())
//	_ = m.Run(ctx)
package host
