package middleware

import (
	"net/http"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/stack"
)

// HTTPErrors rejects responses with a status of 400 or above with a client
// or server *errors.Error. The http_errors option set to false disables it.
func HTTPErrors() stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			if !opts.Bool(OptHTTPErrors, true) {
				return next(req, opts)
			}
			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				if err != nil {
					return nil, err
				}
				if e := errors.FromStatus(req, resp); e != nil {
					return nil, e
				}
				return resp, nil
			})
		}
	}
}
