// Package stack is the handler composition engine of reqkit.
//
// A Stack holds an ordered list of middleware around one terminal Handler.
// Entry 0 is the outermost layer: its pre-call logic runs first and its
// post-call logic runs last. Push appends a new innermost layer, Unshift
// prepends a new outermost layer, and Before/After splice next to a named
// entry. Resolve folds the entries last to first around the handler and
// caches the result until the next mutation.
//
//	s := stack.New(stack.WithHandler(transport.NewHTTP(transport.Config{}).Handle))
//	_ = s.Push(middleware.HTTPErrors(), "http_errors")
//	_ = s.Unshift(middleware.PrepareBody(), "prepare_body")
//	h, err := s.Resolve()
//	resp, err := h(req, stack.Options{}).Wait(ctx)
//
// Configuration errors are returned synchronously as *ConfigError. Runtime
// failures travel inside the returned future. A middleware that breaks the
// composition contract (nil handler, nil future, dispatching its inner
// handler twice) makes the stack panic with *ContractViolation.
package stack
