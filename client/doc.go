// Package client provides a configured HTTP client built on a handler
// stack.
//
// A Client owns one stack.Stack. New builds the default layers
// (prepare_body, http_errors, allow_redirects, cookies) and splices in the
// optional layers enabled by Config, so the full order, outermost first, is:
//
//	request_id, log, tracing, metrics, prepare_body, http_errors, retry,
//	circuit_breaker, rate_limit, bulkhead, auth, cache, allow_redirects, cookies
//
// Requests are sent asynchronously and return a future:
//
//	c, err := client.New(client.Config{Name: "users", BaseURL: "https://api.example.com/v1/"})
//	f := c.Request(ctx, http.MethodPost, "users", stack.Options{"json": user})
//	resp, err := f.Wait(ctx)
//
// Options passed per call sit on top of the client defaults. Layers can
// still be added or removed through Configure, also while requests are in
// flight.
package client
