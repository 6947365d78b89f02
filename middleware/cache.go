package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/reqkit/cache"
	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/stack"
)

// HeaderCacheStatus reports HIT or MISS on responses seen by Cache.
const HeaderCacheStatus = "X-Cache"

// CacheOptions configures the cache middleware.
type CacheOptions struct {
	// TTL is the lifetime of stored entries. Zero stores without expiry.
	TTL time.Duration
	// Methods are the cacheable request methods. Defaults to GET and HEAD.
	Methods []string
	// Statuses are the cacheable response statuses. Defaults to 200.
	Statuses []int
	// Vary lists request headers that are part of the key. Authorization is
	// always part of it unless SharedAuth is set.
	Vary []string
	// SharedAuth shares entries between requests carrying different
	// credentials.
	SharedAuth bool
	// Logger receives store failures, which never fail a request.
	Logger *logger.Logger
}

func (o *CacheOptions) applyDefaults() {
	if len(o.Methods) == 0 {
		o.Methods = []string{http.MethodGet, http.MethodHead}
	}
	if len(o.Statuses) == 0 {
		o.Statuses = []int{http.StatusOK}
	}
	if o.Logger == nil {
		o.Logger = logger.WithComponent("cache")
	}
	if !o.SharedAuth {
		o.Vary = append(slices.Clone(o.Vary), "Authorization")
	}
}

// Cache answers cacheable requests from store and stores cacheable
// responses. The cache option set to false bypasses it for one request, as
// do no-cache and no-store request directives.
func Cache(store cache.Store, o CacheOptions) stack.Middleware {
	o.applyDefaults()
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			if !opts.Bool(OptCache, true) || !slices.Contains(o.Methods, req.Method) || noCache(req.Header) {
				return next(req, opts)
			}
			key := cache.Key(req, o.Vary...)

			return future.Go(func() (*http.Response, error) {
				e, ok, err := store.Get(req.Context(), key)
				if err != nil {
					o.Logger.Warn("cache lookup failed", logger.ErrorFields("get", err))
				}
				if !ok || err != nil {
					return nil, nil
				}
				resp := e.Response(req)
				resp.Header.Set(HeaderCacheStatus, "HIT")
				return resp, nil
			}).Compose(func(hit *http.Response, _ error) *result {
				if hit != nil {
					return future.Resolved(hit)
				}
				return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
					if err != nil {
						return nil, err
					}
					if slices.Contains(o.Statuses, resp.StatusCode) && !noStore(resp.Header) && !opts.Bool(OptStream, false) {
						storeResponse(req.Context(), store, key, resp, o)
					}
					resp.Header.Set(HeaderCacheStatus, "MISS")
					return resp, nil
				})
			})
		}
	}
}

func storeResponse(ctx context.Context, store cache.Store, key string, resp *http.Response, o CacheOptions) {
	e, err := cache.NewEntry(resp)
	if err == nil {
		err = store.Set(context.WithoutCancel(ctx), key, e, o.TTL)
	}
	if err != nil {
		o.Logger.Warn("cache store failed", logger.ErrorFields("set", err))
	}
}

func noCache(h http.Header) bool {
	cc := strings.ToLower(h.Get("Cache-Control"))
	return strings.Contains(cc, "no-cache") || strings.Contains(cc, "no-store")
}

func noStore(h http.Header) bool {
	cc := strings.ToLower(h.Get("Cache-Control"))
	return strings.Contains(cc, "no-store") || strings.Contains(cc, "private")
}
