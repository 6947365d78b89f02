package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/stack"
)

// HTTP is a terminal handler backed by net/http. It never follows redirects
// and keeps no cookie jar; both are middleware concerns.
type HTTP struct {
	client    *http.Client
	transport *http.Transport
	cfg       Config
}

// NewHTTP creates the net/http terminal handler.
func NewHTTP(cfg Config) (*HTTP, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = cfg.MaxIdleConns
	t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	t.IdleConnTimeout = cfg.IdleConnTimeout
	t.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	t.DisableKeepAlives = cfg.DisableKeepAlives
	t.DisableCompression = cfg.DisableCompression

	if cfg.ConnectTimeout > 0 {
		d := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
		t.DialContext = d.DialContext
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, errors.InvalidConfig(fmt.Sprintf("transport: invalid proxy: %v", err))
		}
		t.Proxy = http.ProxyURL(u)
	}
	if err := cfg.TLS.Apply(t); err != nil {
		return nil, err
	}
	if cfg.HTTP2 {
		t.ForceAttemptHTTP2 = false
		t2, err := http2.ConfigureTransports(t)
		if err != nil {
			return nil, fmt.Errorf("transport: configure http2: %w", err)
		}
		t2.ReadIdleTimeout = cfg.HTTP2ReadIdleTimeout
	}

	return &HTTP{
		client: &http.Client{
			Transport: t,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		transport: t,
		cfg:       cfg,
	}, nil
}

// NewDefault returns the net/http terminal handler routed by the
// "synchronous" and "stream" options.
func NewDefault(cfg Config) (stack.Handler, *HTTP, error) {
	h, err := NewHTTP(cfg)
	if err != nil {
		return nil, nil, err
	}
	return WrapStreaming(WrapSync(h.Handle, h.HandleSync), h.HandleStream), h, nil
}

// Handle sends req on a new goroutine.
func (h *HTTP) Handle(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
	if err := checkRequest(req); err != nil {
		return future.Rejected[*http.Response](err)
	}
	return future.Go(func() (*http.Response, error) {
		return h.roundTrip(req, opts)
	})
}

// HandleSync sends req on the calling goroutine and returns a settled future.
func (h *HTTP) HandleSync(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
	if err := checkRequest(req); err != nil {
		return future.Rejected[*http.Response](err)
	}
	resp, err := h.roundTrip(req, opts)
	if err != nil {
		return future.Rejected[*http.Response](err)
	}
	return future.Resolved(resp)
}

// HandleStream sends req without buffering the response body.
func (h *HTTP) HandleStream(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
	return h.Handle(req, opts.With(OptStream, true))
}

// Client returns the underlying *http.Client.
func (h *HTTP) Client() *http.Client {
	return h.client
}

// Close releases idle connections.
func (h *HTTP) Close() {
	h.transport.CloseIdleConnections()
}

func checkRequest(req *http.Request) error {
	if req == nil || req.URL == nil {
		return errors.InvalidRequest(req, "request has no URL")
	}
	if req.URL.Host == "" {
		return errors.InvalidRequest(req, "request URL has no host")
	}
	return nil
}

func (h *HTTP) roundTrip(req *http.Request, opts stack.Options) (*http.Response, error) {
	ctx := req.Context()
	onStats := statsFunc(opts)
	rec := newRecorder(req)

	resp, err := h.exchange(ctx, req, opts, rec)
	if err != nil {
		err = errors.FromTransport(req, err)
	}
	if onStats != nil {
		onStats(rec.finish(resp, err))
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (h *HTTP) exchange(ctx context.Context, req *http.Request, opts stack.Options, rec *recorder) (*http.Response, error) {
	if err := resilience.Sleep(ctx, opts.Duration(OptDelay, 0)); err != nil {
		return nil, err
	}

	cancel := context.CancelFunc(func() {})
	if d := opts.Duration(OptTimeout, h.cfg.Timeout); d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	}
	if statsFunc(opts) != nil {
		ctx = httptrace.WithClientTrace(ctx, rec.trace())
	}

	resp, err := h.client.Do(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Request = req
	limit := int64(opts.Int(OptMaxBody, int(h.cfg.MaxResponseBytes)))
	return finishBody(resp, opts, limit, cancel)
}

// finishBody consumes the body according to the sink and stream options.
// A buffered body longer than limit bytes rejects the exchange; limit < 0
// disables the check. cancel releases the request context once the body is
// done with.
func finishBody(resp *http.Response, opts stack.Options, limit int64, cancel context.CancelFunc) (*http.Response, error) {
	if sink, ok := opts[OptSink]; ok && sink != nil {
		defer cancel()
		return drainToSink(resp, sink)
	}
	if opts.Bool(OptStream, false) {
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	defer cancel()
	var r io.Reader = resp.Body
	if limit >= 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	b, err := io.ReadAll(r)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if limit >= 0 && int64(len(b)) > limit {
		return nil, errors.BadResponse(resp.Request, resp, fmt.Sprintf("response body exceeds %d bytes", limit))
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	if resp.ContentLength < 0 {
		resp.ContentLength = int64(len(b))
	}
	return resp, nil
}

func drainToSink(resp *http.Response, sink any) (*http.Response, error) {
	defer func() { _ = resp.Body.Close() }()

	var w io.Writer
	switch s := sink.(type) {
	case io.Writer:
		w = s
	case string:
		f, err := os.Create(s)
		if err != nil {
			return nil, errors.InvalidRequest(resp.Request, fmt.Sprintf("open sink: %v", err))
		}
		defer func() { _ = f.Close() }()
		w = f
	default:
		return nil, errors.InvalidRequest(resp.Request, fmt.Sprintf("unsupported sink type %T", sink))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, err
	}
	resp.Body = http.NoBody
	resp.ContentLength = 0
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
