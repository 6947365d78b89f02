// Package resilience provides the fault-tolerance policies used by reqkit
// middleware: retry backoff, circuit breaking, token-bucket rate limiting
// and bulkhead concurrency limits.
//
// The policies are split into acquire/record steps so asynchronous layers can
// consult them before dispatch and report the outcome once the response
// future settles:
//
//	if err := cb.Allow(); err != nil {
//	    return future.Rejected[*http.Response](err)
//	}
//	return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
//	    cb.Record(err)
//	    return resp, err
//	})
package resilience
