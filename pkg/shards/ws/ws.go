package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// ClientKind tags websocket client objects.
var ClientKind = value.NewObjectType("frag", "wsCl")

var clientVariable = value.Types{value.VarOf(value.ObjectOf(ClientKind))}

var errNotText = errors.New("invalid message type")

const closeTimeout = 100 * time.Millisecond

// Client is the payload of a websocket client object. gorilla allows one
// concurrent reader and one concurrent writer; the mutexes extend that to
// any number of units sharing the object.
type Client struct {
	url  string
	conn *websocket.Conn
	rmu  sync.Mutex
	wmu  sync.Mutex
}

func (cl *Client) URL() string { return cl.url }

// close never waits for a writer: the close frame is only sent when no
// write is in progress.
func (cl *Client) close() {
	if cl.wmu.TryLock() {
		_ = cl.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeTimeout))
		cl.wmu.Unlock()
	}
	_ = cl.conn.Close()
}

// Dial opens a client and wraps it in a handle whose last release closes
// the connection.
func Dial(ctx context.Context, url string) (value.Var, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return value.NoneVar(), err
	}
	cl := &Client{url: url, conn: conn}
	return value.Wrap(cl, ClientKind, value.WithDrop(func(data any) {
		data.(*Client).close()
	})), nil
}

// ClientUnit connects to the URL received as input and outputs the client.
// The connection is reused across activations until the URL changes.
type ClientUnit struct {
	client value.Var
	url    string
}

func NewClient() unit.Unit {
	return &ClientUnit{}
}

func (u *ClientUnit) Name() string { return "WS.Client" }
func (u *ClientUnit) Help() string {
	return "Connects to a websocket server and outputs the client object."
}
func (u *ClientUnit) InputTypes() value.Types  { return value.StringTypes }
func (u *ClientUnit) OutputTypes() value.Types { return value.Types{value.ObjectOf(ClientKind)} }

func (u *ClientUnit) Activate(c *unit.Context, input value.Var) (value.Var, error) {
	url, err := input.AsString()
	if err != nil {
		return value.NoneVar(), err
	}
	if !u.client.IsNone() && u.url == url {
		return u.client, nil
	}

	client, err := unit.RunBlocking(c, func(ctx context.Context) (value.Var, error) {
		return Dial(ctx, url)
	})
	if err != nil {
		return value.NoneVar(), ioError("connect failed", err)
	}
	u.reset()
	u.client, u.url = client, url
	c.Logger().Debug("websocket connected", "url", url)
	return u.client, nil
}

func (u *ClientUnit) reset() {
	_ = u.client.Release()
	u.client, u.url = value.NoneVar(), ""
}

func (u *ClientUnit) Cleanup(*unit.Context) error {
	u.reset()
	return nil
}

// clientParam is the Client parameter shared by the reader and the sender.
type clientParam struct {
	client param.ParamVar
	params *param.Set
}

func (p *clientParam) bind() {
	p.params = param.NewSet(param.Bind(param.Info{
		Name:  "Client",
		Help:  "The variable holding the websocket client.",
		Types: clientVariable,
	}, &p.client))
}

func (p *clientParam) Parameters() *param.Set { return p.params }

// get resolves the client and takes a reference to it. The variable must be
// set by an upstream unit; the tags are checked before the count changes.
func (p *clientParam) get() (value.Var, *Client, error) {
	v, err := p.client.Get()
	if err != nil {
		return value.NoneVar(), nil, err
	}
	if v.IsNone() {
		return value.NoneVar(), nil, shard.DependencyError(p.client.Name())
	}
	cl, err := value.Borrow[*Client](v, ClientKind)
	if err != nil {
		return value.NoneVar(), nil, err
	}
	return v.Clone(), cl, nil
}

// withClient runs fn on a bridge worker while holding a reference to the
// client, so a detached closure keeps the connection alive until it returns.
// The reference goes to whichever of the closure and the caller claims it
// first.
func withClient[T any](c *unit.Context, p *clientParam, fn func(ctx context.Context, cl *Client) (T, error)) (T, error) {
	var zero T
	ref, cl, err := p.get()
	if err != nil {
		return zero, err
	}

	var claimed atomic.Bool
	out, err := unit.RunBlocking(c, func(ctx context.Context) (T, error) {
		if !claimed.CompareAndSwap(false, true) {
			return zero, shard.ErrAborted
		}
		defer func() { _ = ref.Release() }()
		return fn(ctx, cl)
	})
	if claimed.CompareAndSwap(false, true) {
		_ = ref.Release()
	}
	return out, err
}

// ReadString waits for the next text message.
type ReadString struct {
	clientParam
	last value.Var
}

func NewReadString() unit.Unit {
	r := &ReadString{}
	r.bind()
	return r
}

func (r *ReadString) Name() string             { return "WS.ReadString" }
func (r *ReadString) Help() string             { return "Reads the next message as a string." }
func (r *ReadString) InputTypes() value.Types  { return value.AnyTypes }
func (r *ReadString) OutputTypes() value.Types { return value.StringTypes }

func (r *ReadString) Activate(c *unit.Context, _ value.Var) (value.Var, error) {
	msg, err := withClient(c, &r.clientParam, func(ctx context.Context, cl *Client) (string, error) {
		cl.rmu.Lock()
		defer cl.rmu.Unlock()
		mt, data, err := cl.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt != websocket.TextMessage {
			return "", fmt.Errorf("%w: %d", errNotText, mt)
		}
		return string(data), nil
	})
	if err != nil {
		return value.NoneVar(), ioError("read failed", err)
	}
	r.last = value.StringVar(msg)
	return r.last, nil
}

// SendString writes the input as a text message and passes it through.
type SendString struct {
	clientParam
}

func NewSendString() unit.Unit {
	s := &SendString{}
	s.bind()
	return s
}

func (s *SendString) Name() string             { return "WS.SendString" }
func (s *SendString) Help() string             { return "Sends the input as a text message." }
func (s *SendString) InputTypes() value.Types  { return value.StringTypes }
func (s *SendString) OutputTypes() value.Types { return value.StringTypes }

func (s *SendString) Activate(c *unit.Context, input value.Var) (value.Var, error) {
	msg, err := input.AsString()
	if err != nil {
		return value.NoneVar(), err
	}
	_, err = withClient(c, &s.clientParam, func(ctx context.Context, cl *Client) (struct{}, error) {
		cl.wmu.Lock()
		defer cl.wmu.Unlock()
		if deadline, ok := ctx.Deadline(); ok {
			_ = cl.conn.SetWriteDeadline(deadline)
		}
		return struct{}{}, cl.conn.WriteMessage(websocket.TextMessage, []byte(msg))
	})
	if err != nil {
		return value.NoneVar(), ioError("send failed", err)
	}
	return input, nil
}

// ioError hides the transport cause behind ErrIOFailure. Cancellation and
// lifecycle errors from the bridge pass through unchanged.
func ioError(msg string, err error) error {
	if shard.IsCancellationError(err) || errors.Is(err, shard.ErrLifecycle) ||
		errors.Is(err, shard.ErrBridgeClosed) || errors.Is(err, shard.ErrIOFailure) {
		return err
	}
	return shard.IOError(msg, err)
}

// Module registers the websocket units.
func Module(r *unit.Registry) error {
	for _, f := range []unit.Factory{NewClient, NewReadString, NewSendString} {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
