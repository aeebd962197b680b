package unit

import (
	"context"
	"time"

	"github.com/ib-77/shardwire/internal/logging"
	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/bridge"
	"github.com/ib-77/shardwire/pkg/shard/scope"
)

// Yielder is the suspension side of the cooperative scheduler, implemented
// by bridge.Coroutine.
type Yielder interface {
	Await(done <-chan struct{}) error
	Sleep(d time.Duration) error
}

// Context is handed to every lifecycle call. It carries the wire scope and
// the facilities a unit may use; it is not shared between wires.
type Context struct {
	ctx     context.Context
	scope   *scope.Scope
	logger  *logging.Logger
	bridge  *bridge.Bridge
	yielder Yielder
	wire    string
	current *Instance
}

type ContextOption func(c *Context)

func WithScope(s *scope.Scope) ContextOption {
	return func(c *Context) { c.scope = s }
}

func WithLogger(l *logging.Logger) ContextOption {
	return func(c *Context) { c.logger = l }
}

func WithBridge(b *bridge.Bridge) ContextOption {
	return func(c *Context) { c.bridge = b }
}

func WithYielder(y Yielder) ContextOption {
	return func(c *Context) { c.yielder = y }
}

func WithWire(name string) ContextOption {
	return func(c *Context) { c.wire = name }
}

func NewContext(ctx context.Context, opts ...ContextOption) *Context {
	c := &Context{ctx: ctx}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NopLogger()
	}
	if c.scope == nil {
		c.scope = scope.New("detached")
	}
	return c
}

// Derive returns a copy of c with opts applied.
func (c *Context) Derive(opts ...ContextOption) *Context {
	cp := *c
	cp.current = nil
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func (c *Context) Context() context.Context {
	return c.ctx
}

func (c *Context) Scope() *scope.Scope {
	return c.scope
}

// Logger returns the wire logger, tagged with the current unit when called
// from inside a lifecycle call.
func (c *Context) Logger() *logging.Logger {
	if c.current != nil {
		return c.logger.WithUnit(c.current.Name())
	}
	return c.logger
}

func (c *Context) Bridge() *bridge.Bridge {
	return c.bridge
}

func (c *Context) Wire() string {
	return c.wire
}

// Current is the instance whose lifecycle call is running, nil outside one.
func (c *Context) Current() *Instance {
	return c.current
}

func (c *Context) enter(inst *Instance) func() {
	prev := c.current
	c.current = inst
	return func() { c.current = prev }
}

// Suspend pauses the calling wire for d. Inside a coroutine other wires keep
// running; otherwise the call blocks the caller, honoring cancellation.
func (c *Context) Suspend(d time.Duration) error {
	if c.yielder != nil {
		return c.yielder.Sleep(d)
	}
	if d <= 0 {
		return c.ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-c.ctx.Done():
		return shard.ErrCancelled
	}
}
