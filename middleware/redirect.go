package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/stack"
)

// Headers added to the final response when redirects are tracked.
const (
	HeaderRedirectHistory       = "X-Redirect-History"
	HeaderRedirectStatusHistory = "X-Redirect-Status-History"
)

const redirectCountKey = "__redirect_count"

// RedirectOptions configures redirect following.
type RedirectOptions struct {
	// Max is the number of redirects followed before TOO_MANY_REDIRECTS.
	Max int
	// Strict keeps the method and body on 301 and 302 like a 307.
	Strict bool
	// Referer adds a Referer header when following.
	Referer bool
	// Protocols lists the allowed schemes of redirect targets.
	Protocols []string
	// TrackRedirects records the followed URIs and statuses in response
	// headers.
	TrackRedirects bool
	// OnRedirect is called before each followed redirect.
	OnRedirect func(req *http.Request, resp *http.Response, target *url.URL)
}

// DefaultRedirectOptions returns the options used when allow_redirects is
// true or absent.
func DefaultRedirectOptions() RedirectOptions {
	return RedirectOptions{Max: 5, Protocols: []string{"http", "https"}}
}

func redirectOptions(opts stack.Options) (RedirectOptions, bool) {
	switch v := opts[OptAllowRedirects].(type) {
	case nil:
		return DefaultRedirectOptions(), true
	case RedirectOptions:
		return v.withDefaults(), true
	case *RedirectOptions:
		if v == nil {
			return RedirectOptions{}, false
		}
		return v.withDefaults(), true
	}
	return DefaultRedirectOptions(), opts.Bool(OptAllowRedirects, true)
}

func (o RedirectOptions) withDefaults() RedirectOptions {
	d := DefaultRedirectOptions()
	if o.Max <= 0 {
		o.Max = d.Max
	}
	if len(o.Protocols) == 0 {
		o.Protocols = d.Protocols
	}
	return o
}

func isRedirect(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return resp.Header.Get("Location") != ""
	}
	return false
}

// Redirect follows redirect responses by dispatching the redirected request
// through itself again. The allow_redirects option takes false, true or a
// RedirectOptions.
func Redirect() stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		var self stack.Handler
		self = func(req *http.Request, opts stack.Options) *result {
			ro, ok := redirectOptions(opts)
			if !ok {
				return next(req, opts)
			}
			return next(req, opts).Compose(func(resp *http.Response, err error) *result {
				if err != nil || !isRedirect(resp) {
					return settled(resp, err)
				}
				return follow(self, req, resp, opts, ro)
			})
		}
		return self
	}
}

func follow(self stack.Handler, req *http.Request, resp *http.Response, opts stack.Options, ro RedirectOptions) *result {
	count := opts.Int(redirectCountKey, 0) + 1
	if count > ro.Max {
		return reject(errors.TooManyRedirects(req, resp, ro.Max))
	}

	nextReq, err := redirectRequest(req, resp, ro)
	if err != nil {
		return reject(err)
	}
	if ro.OnRedirect != nil {
		ro.OnRedirect(req, resp, nextReq.URL)
	}
	discardBody(resp)

	out := self(stack.Redispatch(nextReq), opts.With(redirectCountKey, count))
	if !ro.TrackRedirects {
		return out
	}
	target := nextReq.URL.String()
	status := strconv.Itoa(resp.StatusCode)
	return out.Then(func(final *http.Response, err error) (*http.Response, error) {
		if err != nil {
			return nil, err
		}
		final.Header[HeaderRedirectHistory] = append([]string{target}, final.Header[HeaderRedirectHistory]...)
		final.Header[HeaderRedirectStatusHistory] = append([]string{status}, final.Header[HeaderRedirectStatusHistory]...)
		return final, nil
	})
}

func redirectRequest(req *http.Request, resp *http.Response, ro RedirectOptions) (*http.Request, error) {
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return nil, errors.BadResponse(req, resp, fmt.Sprintf("invalid redirect location: %v", err))
	}
	target := req.URL.ResolveReference(loc)
	if !slices.Contains(ro.Protocols, target.Scheme) {
		return nil, errors.BadResponse(req, resp,
			fmt.Sprintf("redirect URI %s does not use one of the allowed protocols %v", target.Redacted(), ro.Protocols))
	}

	out := req.Clone(req.Context())
	out.URL = target
	out.Host = ""
	out.RequestURI = ""

	if resp.StatusCode == http.StatusSeeOther ||
		(resp.StatusCode <= http.StatusFound && !ro.Strict) {
		switch req.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			out.Method = http.MethodGet
		}
		dropBody(out)
	} else if hasBody(req) {
		if req.GetBody == nil {
			return nil, errors.BadResponse(req, resp, "cannot follow redirect: request body can not be rewound")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.InvalidRequest(req, fmt.Sprintf("rewind body: %v", err))
		}
		out.Body = body
	}

	if ro.Referer && !(req.URL.Scheme == "https" && target.Scheme != "https") {
		ref := *req.URL
		ref.User = nil
		ref.Fragment = ""
		out.Header.Set("Referer", ref.String())
	} else {
		out.Header.Del("Referer")
	}

	if stripSensitive(req.URL, target) {
		out.Header.Del("Authorization")
		out.Header.Del("Cookie")
	}
	return out, nil
}

// stripSensitive reports whether credentials must not follow a redirect
// from one URL to the other. They survive a same-origin hop and an http to
// https upgrade on the same host between the default ports.
func stripSensitive(from, to *url.URL) bool {
	if from.Hostname() != to.Hostname() {
		return true
	}
	if from.Scheme == to.Scheme {
		return portOf(from) != portOf(to)
	}
	if from.Scheme == "http" && to.Scheme == "https" {
		return portOf(from) != "80" || portOf(to) != "443"
	}
	return true
}

func portOf(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if u.Scheme == "https" {
		return "443"
	}
	return "80"
}

func dropBody(req *http.Request) {
	req.Body = http.NoBody
	req.GetBody = nil
	req.ContentLength = 0
	req.Header.Del("Content-Type")
	req.Header.Del("Content-Length")
	req.Header.Del("Transfer-Encoding")
}

func discardBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
