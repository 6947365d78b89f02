package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/reqkit/cache"
	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/middleware"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/stack"
	"github.com/kbukum/reqkit/transport"
	"github.com/kbukum/reqkit/validation"
)

// Request option keys handled by Request.
const (
	// OptHeaders adds headers: http.Header or map[string]string.
	OptHeaders = "headers"
	// OptQuery sets query parameters: url.Values, map[string]string or a
	// raw query string.
	OptQuery = "query"
)

// Client owns one stack and sends requests through it. A Client is safe for
// concurrent use; change its stack through Configure.
type Client struct {
	cfg      Config
	mu       sync.Mutex
	stack    *stack.Stack
	http     *transport.HTTP
	redis    *cache.RedisStore
	jar      http.CookieJar
	defaults stack.Options
	base     *url.URL
	log      *logger.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	handler stack.Handler
	logger  *logger.Logger
	store   cache.Store
	jar     http.CookieJar
	meter   metric.Meter
}

// WithHandler replaces the net/http terminal handler, e.g. with a
// transport.Mock.
func WithHandler(h stack.Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCacheStore sets the store of the cache layer, overriding the
// configured backend.
func WithCacheStore(s cache.Store) Option {
	return func(o *options) { o.store = s }
}

// WithCookieJar sets the jar used when cookies are enabled.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) { o.jar = jar }
}

// WithMeter sets the meter of the metrics layer.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// DefaultStack returns a stack around h with the default layers, outermost
// first: prepare_body, http_errors, allow_redirects, cookies.
func DefaultStack(h stack.Handler, opts ...stack.Option) *stack.Stack {
	s := stack.New(append([]stack.Option{stack.WithHandler(h)}, opts...)...)
	mustPush(s, middleware.PrepareBody(), middleware.NamePrepareBody)
	mustPush(s, middleware.HTTPErrors(), middleware.NameHTTPErrors)
	mustPush(s, middleware.Redirect(), middleware.NameRedirects)
	mustPush(s, middleware.Cookies(), middleware.NameCookies)
	return s
}

func mustPush(s *stack.Stack, mw stack.Middleware, name string) {
	if err := s.Push(mw, name); err != nil {
		panic(err)
	}
}

// New creates a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg, log: o.logger}
	if c.log == nil {
		c.log = logger.WithComponent("client")
	}
	c.log = c.log.WithFields(map[string]interface{}{"client": cfg.Name})

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, errors.InvalidConfig(fmt.Sprintf("client: invalid base_url: %v", err))
		}
		c.base = u
	}

	h := o.handler
	if h == nil {
		def, ht, err := transport.NewDefault(cfg.Transport)
		if err != nil {
			return nil, err
		}
		h, c.http = def, ht
	}

	c.stack = DefaultStack(h,
		stack.WithLogger(c.log.WithComponent("stack")),
		stack.WithContractChecks(!cfg.DisableContractChecks),
	)
	if err := c.addLayers(o); err != nil {
		c.Close()
		return nil, err
	}
	if _, err := c.stack.Resolve(); err != nil {
		c.Close()
		return nil, err
	}

	c.defaults = stack.Options{
		middleware.OptHTTPErrors:     *cfg.HTTPErrors,
		middleware.OptAllowRedirects: cfg.Redirects.redirectOptions(),
	}
	if cfg.Timeout > 0 {
		c.defaults[transport.OptTimeout] = cfg.Timeout
	}
	if cfg.Cookies {
		c.jar = o.jar
		if c.jar == nil {
			c.jar = middleware.NewCookieJar()
		}
		c.defaults[middleware.OptCookies] = c.jar
	}

	c.log.Debug("client created", logger.Fields(
		"base_url", cfg.BaseURL,
		"layers", strings.Join(c.stack.Names(), ","),
	))
	return c, nil
}

// addLayers splices the configured optional layers around the preset so the
// full order, outermost first, is: request_id, log, tracing, metrics,
// prepare_body, http_errors, retry, circuit_breaker, rate_limit, bulkhead,
// auth, cache, allow_redirects, cookies. The cache sees the credentials auth
// adds, so entries never cross identities.
func (c *Client) addLayers(o options) error {
	cfg := c.cfg
	var inner []struct {
		mw   stack.Middleware
		name string
	}
	add := func(mw stack.Middleware, name string) {
		inner = append(inner, struct {
			mw   stack.Middleware
			name string
		}{mw, name})
	}

	var metrics *observability.ClientMetrics
	if cfg.Metrics.Enabled {
		meter := o.meter
		if meter == nil {
			meter = observability.Meter(observability.TracerName)
		}
		m, err := observability.NewClientMetrics(meter, cfg.Name)
		if err != nil {
			return fmt.Errorf("client: create metrics: %w", err)
		}
		metrics = m
	}

	if cfg.Retry != nil {
		add(middleware.Retry(middleware.RetryOptions{
			Config:  *cfg.Retry,
			Metrics: metrics,
			Logger:  c.log,
		}), middleware.NameRetry)
	}
	if cfg.CircuitBreaker != nil {
		add(middleware.CircuitBreaker(resilience.NewCircuitBreaker(*cfg.CircuitBreaker)), middleware.NameCircuitBreaker)
	}
	if cfg.RateLimit != nil {
		add(middleware.RateLimit(resilience.NewRateLimiter(*cfg.RateLimit)), middleware.NameRateLimit)
	}
	if cfg.Bulkhead != nil {
		add(middleware.Bulkhead(resilience.NewBulkhead(*cfg.Bulkhead)), middleware.NameBulkhead)
	}
	if cfg.Auth != nil {
		add(middleware.Auth(cfg.Auth), middleware.NameAuth)
	}
	if cfg.Cache != nil {
		store, err := c.cacheStore(o)
		if err != nil {
			return err
		}
		add(middleware.Cache(store, middleware.CacheOptions{
			TTL:        cfg.Cache.TTL,
			Methods:    cfg.Cache.Methods,
			Statuses:   cfg.Cache.Statuses,
			Vary:       cacheVary(cfg),
			SharedAuth: cfg.Cache.SharedAuth,
			Logger:     c.log.WithComponent("cache"),
		}), middleware.NameCache)
	}
	for _, l := range inner {
		if err := c.stack.Before(middleware.NameRedirects, l.mw, l.name); err != nil {
			return err
		}
	}

	// Unshift in reverse so request_id ends up outermost.
	if metrics != nil {
		if err := c.stack.Unshift(middleware.Metrics(metrics), middleware.NameMetrics); err != nil {
			return err
		}
	}
	if cfg.Tracing.Enabled {
		if err := c.stack.Unshift(middleware.Tracing(cfg.Tracing.TracerName), middleware.NameTracing); err != nil {
			return err
		}
	}
	if cfg.Logging.Enabled {
		lw := middleware.LogWithLevel(c.log, middleware.NewFormatter(cfg.Logging.Format), cfg.Logging.logLevel())
		if err := c.stack.Unshift(lw, middleware.NameLog); err != nil {
			return err
		}
	}
	if cfg.RequestIDHeader != "" {
		if err := c.stack.Unshift(middleware.RequestID(cfg.RequestIDHeader), middleware.NameRequestID); err != nil {
			return err
		}
	}
	return nil
}

// cacheVary adds the API key header to the configured vary headers so the
// cache, sitting inside auth, keys entries by credential.
func cacheVary(cfg Config) []string {
	vary := slices.Clone(cfg.Cache.Vary)
	if a := cfg.Auth; a != nil && a.Type == middleware.AuthAPIKey && a.In != "query" && !cfg.Cache.SharedAuth {
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		vary = append(vary, name)
	}
	return vary
}

func (c *Client) cacheStore(o options) (cache.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	if c.cfg.Cache.Backend != CacheBackendRedis {
		return cache.NewMemoryStore(), nil
	}
	rs, err := cache.NewRedisStore(*c.cfg.Cache.Redis, c.log)
	if err != nil {
		return nil, err
	}
	c.redis = rs
	return rs, nil
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Stack returns the client's stack for inspection. Mutating it directly
// while requests are in flight is a data race; use Configure instead.
func (c *Client) Stack() *stack.Stack {
	return c.stack
}

// Configure runs fn with exclusive access to the stack and rebuilds the
// handler chain. Changes apply to requests sent after Configure returns;
// requests already dispatched keep the chain they started with.
func (c *Client) Configure(fn func(*stack.Stack) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.stack); err != nil {
		return err
	}
	_, err := c.stack.Resolve()
	return err
}

// Layers returns the names of the stack layers, outermost first.
func (c *Client) Layers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stack.Names()
}

func (c *Client) handler() (stack.Handler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stack.Resolve()
}

// CookieJar returns the client's jar, or nil when cookies are disabled.
func (c *Client) CookieJar() http.CookieJar {
	return c.jar
}

// RedisStore returns the redis cache store, or nil.
func (c *Client) RedisStore() *cache.RedisStore {
	return c.redis
}

// Send dispatches req through the stack. The client defaults sit beneath
// opts.
func (c *Client) Send(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
	h, err := c.handler()
	if err != nil {
		return future.Rejected[*http.Response](err)
	}
	return h(req, opts.Merge(c.defaults))
}

// Do sends req and waits for the result.
func (c *Client) Do(req *http.Request, opts stack.Options) (*http.Response, error) {
	return c.Send(req, opts).Wait(req.Context())
}

// Request builds a request for method and uri, resolving uri against the
// base URL and applying default headers and the headers and query options,
// and sends it.
func (c *Client) Request(ctx context.Context, method, uri string, opts stack.Options) *future.Future[*http.Response] {
	req, err := c.NewRequest(ctx, method, uri, opts)
	if err != nil {
		return future.Rejected[*http.Response](err)
	}
	return c.Send(req, opts)
}

// NewRequest builds the request Request would send.
func (c *Client) NewRequest(ctx context.Context, method, uri string, opts stack.Options) (*http.Request, error) {
	method = strings.ToUpper(method)
	target, err := c.resolve(uri)
	if err != nil {
		return nil, err
	}
	if err := applyQuery(target, opts[OptQuery]); err != nil {
		return nil, err
	}

	v := validation.New().
		OneOf("method", method, validation.Methods).
		URL("url", target.String())
	if err := v.Err(nil); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, errors.InvalidRequest(nil, err.Error())
	}
	for k, val := range c.cfg.Headers {
		req.Header.Set(k, val)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	switch h := opts[OptHeaders].(type) {
	case nil:
	case http.Header:
		for k, vals := range h {
			req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
		}
	case map[string]string:
		for k, val := range h {
			req.Header.Set(k, val)
		}
	default:
		return nil, errors.InvalidRequest(req, fmt.Sprintf("headers option must be http.Header or map[string]string, got %T", h))
	}
	return req, nil
}

func (c *Client) resolve(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.InvalidRequest(nil, fmt.Sprintf("invalid uri %q: %v", uri, err))
	}
	if c.base != nil {
		u = c.base.ResolveReference(u)
	}
	return u, nil
}

func applyQuery(u *url.URL, q any) error {
	switch v := q.(type) {
	case nil:
		return nil
	case string:
		u.RawQuery = strings.TrimPrefix(v, "?")
	case url.Values:
		u.RawQuery = v.Encode()
	case map[string]string:
		vals := url.Values{}
		for k, s := range v {
			vals.Set(k, s)
		}
		u.RawQuery = vals.Encode()
	default:
		return errors.InvalidRequest(nil, fmt.Sprintf("query option must be url.Values, map[string]string or string, got %T", q))
	}
	return nil
}

// Get sends a GET request and waits for the result.
func (c *Client) Get(ctx context.Context, uri string, opts stack.Options) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, uri, opts).Wait(ctx)
}

// Head sends a HEAD request and waits for the result.
func (c *Client) Head(ctx context.Context, uri string, opts stack.Options) (*http.Response, error) {
	return c.Request(ctx, http.MethodHead, uri, opts).Wait(ctx)
}

// Post sends a POST request and waits for the result.
func (c *Client) Post(ctx context.Context, uri string, opts stack.Options) (*http.Response, error) {
	return c.Request(ctx, http.MethodPost, uri, opts).Wait(ctx)
}

// Put sends a PUT request and waits for the result.
func (c *Client) Put(ctx context.Context, uri string, opts stack.Options) (*http.Response, error) {
	return c.Request(ctx, http.MethodPut, uri, opts).Wait(ctx)
}

// Patch sends a PATCH request and waits for the result.
func (c *Client) Patch(ctx context.Context, uri string, opts stack.Options) (*http.Response, error) {
	return c.Request(ctx, http.MethodPatch, uri, opts).Wait(ctx)
}

// Delete sends a DELETE request and waits for the result.
func (c *Client) Delete(ctx context.Context, uri string, opts stack.Options) (*http.Response, error) {
	return c.Request(ctx, http.MethodDelete, uri, opts).Wait(ctx)
}

// Result is the outcome of one request sent by SendAll.
type Result struct {
	Response *http.Response
	Err      error
}

// SendAll sends reqs with at most concurrency requests in flight (all at
// once when concurrency <= 0) and returns the results in request order.
func (c *Client) SendAll(ctx context.Context, reqs []*http.Request, opts stack.Options, concurrency int) []Result {
	results := make([]Result, len(reqs))
	if concurrency <= 0 || concurrency > len(reqs) {
		concurrency = len(reqs)
	}
	sem := make(chan struct{}, max(concurrency, 1))

	var wg sync.WaitGroup
	for i, req := range reqs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(reqs); j++ {
				results[j].Err = errors.Canceled(reqs[j], ctx.Err())
			}
			wg.Wait()
			return results
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			resp, err := c.Send(req, opts).Wait(ctx)
			results[i] = Result{Response: resp, Err: err}
		}()
	}
	wg.Wait()
	return results
}

// Close releases idle connections and the redis cache connection.
func (c *Client) Close() error {
	if c.http != nil {
		c.http.Close()
	}
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
