package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/stack"
)

// expectThreshold is the body size from which "Expect: 100-continue" is
// added when the expect option is absent.
const expectThreshold = 1 << 20

// PrepareBody builds the request body from the body, json, form_params and
// multipart options, and sets Content-Type, Content-Length, GetBody and the
// Expect header. At most one body option may be given.
func PrepareBody() stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			out, err := prepareBody(req, opts)
			if err != nil {
				return reject(err)
			}
			return next(out, opts)
		}
	}
}

func prepareBody(req *http.Request, opts stack.Options) (*http.Request, error) {
	body, contentType, ok, err := bodyFromOptions(req, opts)
	if err != nil {
		return nil, err
	}
	if !ok && !hasBody(req) && !opts.Has(OptExpect) {
		return req, nil
	}

	out := req.Clone(req.Context())
	if ok {
		setBody(out, body)
		if contentType != "" && out.Header.Get("Content-Type") == "" {
			out.Header.Set("Content-Type", contentType)
		}
	}
	applyExpect(out, opts)
	return out, nil
}

func bodyFromOptions(req *http.Request, opts stack.Options) ([]byte, string, bool, error) {
	var given []string
	for _, k := range []string{OptBody, OptJSON, OptFormParams, OptMultipart} {
		if v, ok := opts[k]; ok && v != nil {
			given = append(given, k)
		}
	}
	switch len(given) {
	case 0:
		return nil, "", false, nil
	case 1:
	default:
		return nil, "", false, errors.InvalidRequest(req,
			fmt.Sprintf("only one of body, json, form_params or multipart may be set, got %v", given))
	}

	switch given[0] {
	case OptBody:
		b, err := rawBody(opts[OptBody])
		if err != nil {
			return nil, "", false, errors.InvalidRequest(req, err.Error())
		}
		return b, "", true, nil
	case OptJSON:
		b, err := json.Marshal(opts[OptJSON])
		if err != nil {
			return nil, "", false, errors.InvalidRequest(req, fmt.Sprintf("encode json: %v", err))
		}
		return b, "application/json", true, nil
	case OptFormParams:
		vals, err := formValues(opts[OptFormParams])
		if err != nil {
			return nil, "", false, errors.InvalidRequest(req, err.Error())
		}
		return []byte(vals.Encode()), "application/x-www-form-urlencoded", true, nil
	default:
		var m *Multipart
		switch v := opts[OptMultipart].(type) {
		case *Multipart:
			m = v
		case Multipart:
			m = &v
		default:
			return nil, "", false, errors.InvalidRequest(req, fmt.Sprintf("unsupported multipart type %T", v))
		}
		b, ct, err := m.encode()
		if err != nil {
			return nil, "", false, errors.InvalidRequest(req, fmt.Sprintf("encode multipart: %v", err))
		}
		return b, ct, true, nil
	}
}

func rawBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported body type %T", v)
}

func formValues(v any) (url.Values, error) {
	switch f := v.(type) {
	case url.Values:
		return f, nil
	case map[string][]string:
		return url.Values(f), nil
	case map[string]string:
		vals := make(url.Values, len(f))
		for k, s := range f {
			vals.Set(k, s)
		}
		return vals, nil
	case map[string]any:
		vals := make(url.Values, len(f))
		for k, s := range f {
			vals.Set(k, fmt.Sprint(s))
		}
		return vals, nil
	}
	return nil, fmt.Errorf("unsupported form_params type %T", v)
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func setBody(req *http.Request, b []byte) {
	req.ContentLength = int64(len(b))
	if len(b) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

func applyExpect(req *http.Request, opts stack.Options) {
	switch v := opts[OptExpect].(type) {
	case bool:
		if !v {
			req.Header.Del("Expect")
			return
		}
		if hasBody(req) {
			req.Header.Set("Expect", "100-continue")
		}
		return
	case int:
		if hasBody(req) && req.ContentLength >= int64(v) {
			req.Header.Set("Expect", "100-continue")
		}
		return
	}

	if req.Header.Get("Expect") != "" || !hasBody(req) || req.ProtoAtLeast(2, 0) {
		return
	}
	if req.ContentLength <= 0 || req.ContentLength >= expectThreshold {
		req.Header.Set("Expect", "100-continue")
	}
}
