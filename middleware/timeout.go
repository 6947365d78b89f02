package middleware

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/reqkit/stack"
)

// Timeout bounds everything below it, retries and redirects included, by d.
// Streamed bodies keep the deadline until they are closed.
func Timeout(d time.Duration) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		if d <= 0 {
			return next
		}
		return func(req *http.Request, opts stack.Options) *result {
			ctx, cancel := context.WithTimeout(req.Context(), d)
			return next(req.WithContext(ctx), opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				if err != nil || !opts.Bool(OptStream, false) || resp.Body == nil {
					cancel()
					return resp, err
				}
				resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
				return resp, nil
			})
		}
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
