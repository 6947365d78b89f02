// Package future provides a small generic asynchronous result type.
//
// A Future is settled once with (value, error). Continuations attached with
// Then, Compose or Map observe the settled result and produce a new future,
// which is how request pipelines add post-call logic without blocking the
// dispatching goroutine.
//
//	f := future.Go(func() (int, error) { return compute() })
//	doubled := f.Then(func(v int, err error) (int, error) { return v * 2, err })
//	v, err := doubled.Wait(ctx)
package future
