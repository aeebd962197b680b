package unit

import (
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// Unit is the interface every processing unit implements. Values passed to
// Activate are borrowed: a unit that keeps one past the call must Clone it
// and Release it later. The returned value is owned by the unit and stays
// valid until its next activation or cleanup.
type Unit interface {
	Name() string
	InputTypes() value.Types
	OutputTypes() value.Types
	Activate(c *Context, input value.Var) (value.Var, error)
}

// Helper documents a unit.
type Helper interface {
	Help() string
}

// Parameterized exposes the parameter descriptor table. The same *param.Set
// must be returned on every call.
type Parameterized interface {
	Parameters() *param.Set
}

// ComposeData is what a unit sees at compose time.
type ComposeData struct {
	Wire      string
	InputType value.TypeInfo
	// Shared lists the variables exposed by upstream units and enclosing
	// wires.
	Shared []param.Requirement
}

// Composer overrides the default output type derivation. It is also where a
// unit selects its specialized routine.
type Composer interface {
	Compose(data ComposeData) (value.TypeInfo, error)
}

// Warmer acquires resources after parameters are bound.
type Warmer interface {
	Warmup(c *Context) error
}

// Cleaner releases what Warmup and Activate acquired.
type Cleaner interface {
	Cleanup(c *Context) error
}

// Requirer declares implicit scope dependencies, beyond the variables
// referenced by parameters.
type Requirer interface {
	Requirements() []param.Requirement
}

// Exposer declares variables the unit publishes for downstream units.
type Exposer interface {
	Exposed() []param.Requirement
}

func helpOf(u Unit) string {
	if h, ok := u.(Helper); ok {
		return h.Help()
	}
	return ""
}

func paramsOf(u Unit) *param.Set {
	if p, ok := u.(Parameterized); ok {
		return p.Parameters()
	}
	return nil
}
