package unit

import (
	"fmt"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// Routine is one specialized activation body.
type Routine func(c *Context, input value.Var) (value.Var, error)

// Variant pairs a routine with the input shape it handles.
type Variant struct {
	Name   string
	Input  value.TypeInfo
	Output value.TypeInfo
	Run    Routine
}

// Dispatch selects one Variant per composition. The choice is made in
// Compose from the concrete upstream type and every Activate calls the
// chosen routine directly. A value whose type does not match the composed
// variant is rejected rather than routed elsewhere.
type Dispatch struct {
	variants []Variant
	chosen   int
}

func NewDispatch(variants ...Variant) *Dispatch {
	return &Dispatch{variants: variants, chosen: -1}
}

// Inputs lists the input shapes of all variants.
func (d *Dispatch) Inputs() value.Types {
	ts := make(value.Types, len(d.variants))
	for i, v := range d.variants {
		ts[i] = v.Input
	}
	return ts
}

// Outputs lists the distinct output shapes of all variants.
func (d *Dispatch) Outputs() value.Types {
	var ts value.Types
	for _, v := range d.variants {
		if !ts.Contains(v.Output) {
			ts = append(ts, v.Output)
		}
	}
	return ts
}

// Compose selects the first variant accepting input. Recomposing recomputes
// the choice.
func (d *Dispatch) Compose(input value.TypeInfo) (value.TypeInfo, error) {
	d.chosen = -1
	for i, v := range d.variants {
		if value.Match(input, v.Input) {
			d.chosen = i
			return v.Output, nil
		}
	}
	return value.TypeInfo{}, fmt.Errorf("%w: no routine for %s", shard.ErrBuildTimeType, input)
}

// Selected returns the name of the chosen variant, empty before Compose.
func (d *Dispatch) Selected() string {
	if d.chosen < 0 {
		return ""
	}
	return d.variants[d.chosen].Name
}

// Activate runs the chosen routine.
func (d *Dispatch) Activate(c *Context, input value.Var) (value.Var, error) {
	if d.chosen < 0 {
		return value.NoneVar(), shard.ErrNotComposed
	}
	v := &d.variants[d.chosen]
	if !value.Match(input.Info(), v.Input) {
		return value.NoneVar(), fmt.Errorf("%w: %s routine got %s", shard.ErrSpecializationMismatch, v.Name, input.Info())
	}
	return v.Run(c, input)
}
