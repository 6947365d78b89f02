package transport

import (
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/stack"
)

// ErrQueueEmpty is returned by Mock when no queued result is left.
var ErrQueueEmpty = stderrors.New("transport: mock queue is empty")

// MockFunc computes a mock result from the request and options.
type MockFunc func(*http.Request, stack.Options) (*http.Response, error)

type mockItem struct {
	resp *http.Response
	err  error
	fn   MockFunc
}

// Mock is a terminal handler that returns queued results in order.
type Mock struct {
	mu       sync.Mutex
	queue    []mockItem
	lastReq  *http.Request
	lastOpts stack.Options
	calls    int
}

// NewMock creates a mock that returns responses in order.
func NewMock(responses ...*http.Response) *Mock {
	m := &Mock{}
	for _, r := range responses {
		m.AddResponse(r)
	}
	return m
}

// AddResponse queues a response.
func (m *Mock) AddResponse(resp *http.Response) *Mock {
	return m.add(mockItem{resp: resp})
}

// AddError queues a rejection.
func (m *Mock) AddError(err error) *Mock {
	return m.add(mockItem{err: err})
}

// AddFunc queues a computed result.
func (m *Mock) AddFunc(fn MockFunc) *Mock {
	return m.add(mockItem{fn: fn})
}

func (m *Mock) add(it mockItem) *Mock {
	m.mu.Lock()
	m.queue = append(m.queue, it)
	m.mu.Unlock()
	return m
}

// Len returns the number of queued results.
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Calls returns how many requests the mock has received.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request, or nil.
func (m *Mock) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

// LastOptions returns the options of the most recent request.
func (m *Mock) LastOptions() stack.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}

// Reset drops queued results and recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.queue = nil
	m.lastReq = nil
	m.lastOpts = nil
	m.calls = 0
	m.mu.Unlock()
}

// Handle pops the next queued result. The "delay" option moves settlement
// onto a goroutine.
func (m *Mock) Handle(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
	m.mu.Lock()
	m.lastReq = req
	m.lastOpts = opts
	m.calls++
	var it mockItem
	empty := len(m.queue) == 0
	if !empty {
		it = m.queue[0]
		m.queue = m.queue[1:]
	}
	m.mu.Unlock()

	run := func() (*http.Response, error) {
		start := time.Now()
		if err := resilience.Sleep(req.Context(), opts.Duration(OptDelay, 0)); err != nil {
			return m.done(req, opts, start, nil, err)
		}
		if empty {
			return m.done(req, opts, start, nil, ErrQueueEmpty)
		}
		resp, err := it.resp, it.err
		if it.fn != nil {
			resp, err = it.fn(req, opts)
		}
		if err == nil && resp != nil {
			if resp.Request == nil {
				resp.Request = req
			}
			if _, ok := opts[OptSink]; ok {
				resp, err = drainToSink(resp, opts[OptSink])
			}
		}
		return m.done(req, opts, start, resp, err)
	}

	if opts.Duration(OptDelay, 0) > 0 {
		return future.Go(run)
	}
	resp, err := run()
	if err != nil {
		return future.Rejected[*http.Response](err)
	}
	return future.Resolved(resp)
}

func (m *Mock) done(req *http.Request, opts stack.Options, start time.Time, resp *http.Response, err error) (*http.Response, error) {
	if fn := statsFunc(opts); fn != nil {
		fn(TransferStats{Request: req, Response: resp, Err: err, TransferTime: time.Since(start)})
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
