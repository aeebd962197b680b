package gui

import "github.com/ib-77/shardwire/pkg/shard/value"

// UIKind tags draw list objects.
var UIKind = value.NewObjectType("frag", "eguU")

// ParentsVar is the variable through which a UI root hands its draw list to
// the widgets that follow it.
const ParentsVar = "UI.Parents"

// Item is one recorded widget.
type Item struct {
	Kind   string
	Width  float64
	Height float64
	// Texture keeps the drawn texture alive until the next frame.
	Texture value.Var
}

// DrawList collects the widgets of one frame. It is only touched from the
// wire that owns it.
type DrawList struct {
	items  []Item
	frames int
}

func NewDrawList() *DrawList {
	return &DrawList{}
}

func (d *DrawList) Items() []Item { return d.items }

// Frames counts the frames started so far.
func (d *DrawList) Frames() int { return d.frames }

func (d *DrawList) add(it Item) {
	d.items = append(d.items, it)
}

// Reset starts a new frame, releasing the textures of the previous one.
func (d *DrawList) Reset() {
	for _, it := range d.items {
		_ = it.Texture.Release()
	}
	d.items = d.items[:0]
	d.frames++
}

// WrapDrawList returns an object value owning d.
func WrapDrawList(d *DrawList) value.Var {
	return value.Wrap(d, UIKind, value.WithDrop(func(data any) {
		data.(*DrawList).Reset()
	}))
}
