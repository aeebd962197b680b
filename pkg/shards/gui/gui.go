package gui

import (
	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
	"github.com/ib-77/shardwire/pkg/shards/gfx"
)

var parentTypes = value.Types{value.ObjectOf(UIKind)}

// parent is the implicit binding to ParentsVar.
type parent struct {
	ui param.ParamVar
}

func newParent() parent {
	return parent{ui: param.NewVariable(ParentsVar)}
}

func (p *parent) Warmup(c *unit.Context) error {
	return p.ui.Acquire(c.Scope())
}

func (p *parent) Cleanup(*unit.Context) error {
	return p.ui.Release()
}

// Root starts a frame: it resets its draw list and publishes it in
// ParentsVar for the widgets downstream. It outputs the draw list.
type Root struct {
	parent
	list value.Var
}

func NewRoot() unit.Unit {
	return &Root{parent: newParent()}
}

func (r *Root) Name() string             { return "UI.Root" }
func (r *Root) Help() string             { return "Starts a UI frame for the widgets that follow." }
func (r *Root) InputTypes() value.Types  { return value.AnyTypes }
func (r *Root) OutputTypes() value.Types { return parentTypes }

func (r *Root) Exposed() []param.Requirement {
	return []param.Requirement{{Name: ParentsVar, Types: parentTypes}}
}

func (r *Root) Warmup(c *unit.Context) error {
	if err := r.parent.Warmup(c); err != nil {
		return err
	}
	r.list = WrapDrawList(NewDrawList())
	return nil
}

func (r *Root) Activate(_ *unit.Context, _ value.Var) (value.Var, error) {
	dl, err := value.Borrow[*DrawList](r.list, UIKind)
	if err != nil {
		return value.NoneVar(), err
	}
	dl.Reset()
	if err := r.ui.Write(r.list); err != nil {
		return value.NoneVar(), err
	}
	return r.list, nil
}

func (r *Root) Cleanup(c *unit.Context) error {
	_ = r.ui.Write(value.NoneVar())
	_ = r.list.Release()
	r.list = value.NoneVar()
	return r.parent.Cleanup(c)
}

// Image draws an image or a texture into the enclosing UI at its size
// multiplied by Scale. The input passes through.
type Image struct {
	parent
	scale    param.ParamVar
	params   *param.Set
	dispatch *unit.Dispatch
	size     [2]float64
}

func NewImage() unit.Unit {
	img := &Image{
		parent: newParent(),
		scale:  param.NewConstant(value.Float2Var(1, 1)),
	}
	img.params = param.NewSet(param.Bind(param.Info{
		Name:  "Scale",
		Help:  "Scaling applied to the image size.",
		Types: value.Types{value.Of(value.Float2), value.VarOf(value.Of(value.Float2))},
	}, &img.scale))
	img.dispatch = unit.NewDispatch(
		unit.Variant{
			Name:   "image",
			Input:  value.Of(value.Image),
			Output: value.Of(value.Image),
			Run:    img.drawImage,
		},
		unit.Variant{
			Name:   "texture",
			Input:  value.ObjectOf(gfx.TextureKind),
			Output: value.ObjectOf(gfx.TextureKind),
			Run:    img.drawTexture,
		},
	)
	return img
}

func (u *Image) Name() string             { return "UI.Image" }
func (u *Image) Help() string             { return "Displays an image or a texture." }
func (u *Image) InputTypes() value.Types  { return u.dispatch.Inputs() }
func (u *Image) OutputTypes() value.Types { return u.dispatch.Outputs() }
func (u *Image) Parameters() *param.Set   { return u.params }

func (u *Image) Requirements() []param.Requirement {
	return []param.Requirement{{Name: ParentsVar, Types: parentTypes}}
}

func (u *Image) Compose(data unit.ComposeData) (value.TypeInfo, error) {
	return u.dispatch.Compose(data.InputType)
}

// Specialization names the routine chosen by the last Compose.
func (u *Image) Specialization() string {
	return u.dispatch.Selected()
}

// Size is the effective size of the last drawn widget.
func (u *Image) Size() (float64, float64) {
	return u.size[0], u.size[1]
}

func (u *Image) Activate(c *unit.Context, input value.Var) (value.Var, error) {
	return u.dispatch.Activate(c, input)
}

// frame resolves the enclosing draw list and the scale. Nothing is modified
// unless both are available.
func (u *Image) frame() (*DrawList, float64, float64, error) {
	cur, err := u.ui.Get()
	if err != nil {
		return nil, 0, 0, err
	}
	if cur.IsNone() {
		return nil, 0, 0, shard.DependencyError(ParentsVar)
	}
	dl, err := value.Borrow[*DrawList](cur, UIKind)
	if err != nil {
		return nil, 0, 0, err
	}
	scale, err := u.scale.Get()
	if err != nil {
		return nil, 0, 0, err
	}
	sx, sy, err := scale.AsFloat2()
	if err != nil {
		return nil, 0, 0, err
	}
	return dl, sx, sy, nil
}

func (u *Image) drawImage(_ *unit.Context, input value.Var) (value.Var, error) {
	dl, sx, sy, err := u.frame()
	if err != nil {
		return value.NoneVar(), err
	}
	img, err := input.AsImage()
	if err != nil {
		return value.NoneVar(), err
	}
	u.size = [2]float64{float64(img.Width) * sx, float64(img.Height) * sy}
	dl.add(Item{Kind: "image", Width: u.size[0], Height: u.size[1]})
	return input, nil
}

func (u *Image) drawTexture(_ *unit.Context, input value.Var) (value.Var, error) {
	dl, sx, sy, err := u.frame()
	if err != nil {
		return value.NoneVar(), err
	}
	tex, err := value.Borrow[*gfx.Texture](input, gfx.TextureKind)
	if err != nil {
		return value.NoneVar(), err
	}
	u.size = [2]float64{float64(tex.Width()) * sx, float64(tex.Height()) * sy}
	dl.add(Item{Kind: "texture", Width: u.size[0], Height: u.size[1], Texture: input.Clone()})
	return input, nil
}

// Module registers the UI units.
func Module(r *unit.Registry) error {
	for _, f := range []unit.Factory{NewRoot, NewImage} {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
