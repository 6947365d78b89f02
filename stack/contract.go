package stack

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/kbukum/reqkit/future"
)

type frameKey struct{}

// frame marks one invocation of one layer. calls counts how many times the
// layer dispatched its inner handler during that invocation.
type frame struct {
	chain  *chain
	layer  int
	calls  atomic.Int32
	parent *frame
}

// chain identifies one composed handler so frames from nested stacks do not
// interfere.
type chain struct {
	generation uint64
}

// Redispatch marks req as a deliberate new dispatch. Layers that send a
// request more than once (retries, redirects) pass every re-sent request
// through Redispatch.
func Redispatch(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), frameKey{}, (*frame)(nil)))
}

func currentFrame(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

// outer opens a frame for layer i and checks the future it returns.
func (c *chain) outer(i int, name string, h Handler) Handler {
	return func(req *http.Request, opts Options) *future.Future[*http.Response] {
		f := &frame{chain: c, layer: i, parent: currentFrame(req.Context())}
		req = req.WithContext(context.WithValue(req.Context(), frameKey{}, f))
		out := h(req, opts)
		if out == nil {
			panic(&ContractViolation{Layer: i, Name: name, Reason: "handler returned a nil future"})
		}
		return out
	}
}

// inner counts dispatches of the handler below layer i.
func (c *chain) inner(i int, name string, next Handler) Handler {
	return func(req *http.Request, opts Options) *future.Future[*http.Response] {
		for f := currentFrame(req.Context()); f != nil; f = f.parent {
			if f.chain != c || f.layer != i {
				continue
			}
			if f.calls.Add(1) > 1 {
				panic(&ContractViolation{Layer: i, Name: name, Reason: "inner handler dispatched more than once"})
			}
			break
		}
		return next(req, opts)
	}
}

func guardTerminal(h Handler) Handler {
	return func(req *http.Request, opts Options) *future.Future[*http.Response] {
		out := h(req, opts)
		if out == nil {
			panic(&ContractViolation{Layer: -1, Reason: "handler returned a nil future"})
		}
		return out
	}
}
