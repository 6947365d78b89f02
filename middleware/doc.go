// Package middleware provides the layers a reqkit stack is assembled from.
//
// Every constructor returns a stack.Middleware. Layers never block the
// dispatching goroutine: post-processing is attached to the inner future
// with Then or Compose, and layers that send a request again (Retry,
// Redirect) pass it through stack.Redispatch.
//
// The default preset, outermost first:
//
//	s.Push(middleware.PrepareBody(), middleware.NamePrepareBody)
//	s.Push(middleware.HTTPErrors(), middleware.NameHTTPErrors)
//	s.Push(middleware.Redirect(), middleware.NameRedirects)
//	s.Push(middleware.Cookies(), middleware.NameCookies)
//
// Per-request behavior is controlled through stack.Options; the Opt*
// constants list the keys read here.
package middleware
