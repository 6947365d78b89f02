package middleware

import (
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/reqkit/stack"
)

// NewCookieJar returns an in-memory jar that honors the public suffix list.
func NewCookieJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// Cookies adds cookies from the jar in the cookies option to each request
// and stores the cookies a response sets. Without a jar it passes through.
func Cookies() stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			jar, ok := opts[OptCookies].(http.CookieJar)
			if !ok || jar == nil {
				return next(req, opts)
			}

			if cookies := jar.Cookies(req.URL); len(cookies) > 0 {
				out := req.Clone(req.Context())
				for _, c := range cookies {
					out.AddCookie(c)
				}
				req = out
			}
			u := req.URL
			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				if err == nil && resp != nil {
					if rc := resp.Cookies(); len(rc) > 0 {
						jar.SetCookies(u, rc)
					}
				}
				return resp, err
			})
		}
	}
}
