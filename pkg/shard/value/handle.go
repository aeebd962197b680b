package value

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ib-77/shardwire/pkg/shard"
)

// Handle is a reference-counted, type-tagged capability over a resource
// owned by a unit or by the host. Only the count is synchronized; the
// resource's own thread-safety is its own business.
type Handle struct {
	id    uuid.UUID
	kind  ObjectType
	refs  atomic.Int32
	data  any
	drop  func(data any)
	clone func(data any) (any, error)
}

// HandleOption configures a Handle at wrap time.
type HandleOption func(h *Handle)

// WithDrop sets the destructor run synchronously by the last Release.
func WithDrop(drop func(data any)) HandleOption {
	return func(h *Handle) { h.drop = drop }
}

// WithClone sets the glue UnwrapOwned uses when the handle is shared.
func WithClone(clone func(data any) (any, error)) HandleOption {
	return func(h *Handle) { h.clone = clone }
}

// Wrap creates a new handle with a reference count of one and returns the
// object value referencing it.
func Wrap(data any, kind ObjectType, opts ...HandleOption) Var {
	h := &Handle{
		id:   uuid.New(),
		kind: kind,
		data: data,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.refs.Store(1)
	return Var{typ: Object, object: h}
}

func (h *Handle) ID() uuid.UUID {
	return h.id
}

func (h *Handle) Kind() ObjectType {
	return h.kind
}

// Refs returns the current reference count.
func (h *Handle) Refs() int32 {
	return h.refs.Load()
}

// Alive reports whether the resource has not been destroyed or moved out.
func (h *Handle) Alive() bool {
	return h.refs.Load() > 0
}

func (h *Handle) retain() bool {
	for {
		r := h.refs.Load()
		if r <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

func (h *Handle) release() error {
	for {
		r := h.refs.Load()
		if r <= 0 {
			return shard.ErrHandleReleased
		}
		if !h.refs.CompareAndSwap(r, r-1) {
			continue
		}
		if r == 1 {
			data := h.data
			h.data = nil
			if h.drop != nil && data != nil {
				h.drop(data)
			}
		}
		return nil
	}
}

// Borrow returns the payload of an object value as T without taking a
// reference. Both tags are checked before the payload is touched; the
// reference count is never changed.
func Borrow[T any](v Var, want ObjectType) (T, error) {
	var zero T
	h, err := checkObject(v, want)
	if err != nil {
		return zero, err
	}
	data, ok := h.data.(T)
	if !ok {
		return zero, shard.MismatchError("object %s holds %T", want, h.data)
	}
	return data, nil
}

// UnwrapOwned extracts ownership of the payload. When the caller holds the
// only reference the payload is moved out and the handle is emptied without
// running its destructor. Otherwise the handle's clone glue produces an
// independent copy and the caller's reference is left untouched.
func UnwrapOwned[T any](v Var, want ObjectType) (T, error) {
	var zero T
	h, err := checkObject(v, want)
	if err != nil {
		return zero, err
	}
	if _, ok := h.data.(T); !ok {
		return zero, shard.MismatchError("object %s holds %T", want, h.data)
	}

	if h.refs.CompareAndSwap(1, 0) {
		data := h.data.(T)
		h.data = nil
		return data, nil
	}

	if h.clone == nil {
		return zero, shard.ErrNotUnique
	}
	cloned, err := h.clone(h.data)
	if err != nil {
		return zero, err
	}
	out, ok := cloned.(T)
	if !ok {
		return zero, shard.MismatchError("clone of %s produced %T", want, cloned)
	}
	return out, nil
}

func checkObject(v Var, want ObjectType) (*Handle, error) {
	if v.typ != Object || v.object == nil {
		return nil, shard.MismatchError("expected object %s, got %s", want, v.typ)
	}
	h := v.object
	if h.kind.Vendor != want.Vendor || h.kind.TypeID != want.TypeID {
		return nil, shard.MismatchError("expected object %s, got %s", want, h.kind)
	}
	if !h.Alive() {
		return nil, shard.ErrHandleReleased
	}
	return h, nil
}
