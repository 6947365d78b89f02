package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Log line templates.
const (
	FormatCLF   = `{hostname} {req_header_User-Agent} - [{date_common_log}] "{method} {target} HTTP/{version}" {code} {res_header_Content-Length}`
	FormatShort = `[{ts}] "{method} {target} HTTP/{version}" {code}`
	FormatDebug = ">>>>>>>>\n{request}\n<<<<<<<<\n{response}\n--------\n{error}"
)

var placeholder = regexp.MustCompile(`\{\s*([A-Za-z0-9_\-\.\/\\]+)\s*\}`)

// Formatter renders log lines from templates with {placeholder} variables:
// request, response, ts, date_iso_8601, date_common_log, method, version,
// uri, url, target, host, hostname, code, phrase, error, duration,
// req_headers, res_headers, res_body, req_header_<Name> and
// res_header_<Name>. Unknown placeholders render empty.
type Formatter struct {
	template string
}

// NewFormatter creates a formatter. An empty template uses FormatCLF.
func NewFormatter(template string) *Formatter {
	if template == "" {
		template = FormatCLF
	}
	return &Formatter{template: template}
}

// Format renders the template for one exchange.
func (f *Formatter) Format(req *http.Request, resp *http.Response, err error, d time.Duration) string {
	cache := map[string]string{}
	return placeholder.ReplaceAllStringFunc(f.template, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := cache[name]; ok {
			return v
		}
		v := f.value(name, req, resp, err, d)
		cache[name] = v
		return v
	})
}

func (f *Formatter) value(name string, req *http.Request, resp *http.Response, err error, d time.Duration) string {
	switch name {
	case "request":
		b, _ := httputil.DumpRequestOut(withoutBody(req), false)
		return strings.TrimRight(string(b), "\r\n")
	case "response":
		if resp == nil {
			return "NULL"
		}
		b, _ := httputil.DumpResponse(resp, false)
		return strings.TrimRight(string(b), "\r\n")
	case "ts", "date_iso_8601":
		return time.Now().UTC().Format(time.RFC3339)
	case "date_common_log":
		return time.Now().Format("02/Jan/2006:15:04:05 -0700")
	case "method":
		return req.Method
	case "version":
		return fmt.Sprintf("%d.%d", req.ProtoMajor, req.ProtoMinor)
	case "uri", "url":
		return req.URL.Redacted()
	case "target":
		return req.URL.RequestURI()
	case "host":
		if req.Host != "" {
			return req.Host
		}
		return req.URL.Host
	case "hostname":
		h, _ := os.Hostname()
		return h
	case "code":
		if resp == nil {
			return "NULL"
		}
		return strconv.Itoa(resp.StatusCode)
	case "phrase":
		if resp == nil {
			return "NULL"
		}
		return http.StatusText(resp.StatusCode)
	case "error":
		if err == nil {
			return "NULL"
		}
		return err.Error()
	case "duration":
		return strconv.FormatInt(d.Milliseconds(), 10)
	case "req_headers":
		return formatHeaders(req.Header)
	case "res_headers":
		if resp == nil {
			return "NULL"
		}
		return formatHeaders(resp.Header)
	case "res_body":
		if resp == nil {
			return "NULL"
		}
		return peekBody(resp)
	}

	if h, ok := strings.CutPrefix(name, "req_header_"); ok {
		return strings.Join(req.Header.Values(h), ", ")
	}
	if h, ok := strings.CutPrefix(name, "res_header_"); ok {
		if resp == nil {
			return ""
		}
		return strings.Join(resp.Header.Values(h), ", ")
	}
	return ""
}

func withoutBody(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	out.Body = nil
	out.ContentLength = req.ContentLength
	return out
}

func formatHeaders(h http.Header) string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	slices.Sort(names)
	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, "%s: %s\r\n", k, strings.Join(h[k], ", "))
	}
	return strings.TrimRight(b.String(), "\r\n")
}

// peekBody reads the body and puts an equivalent reader back.
func peekBody(resp *http.Response) string {
	if resp.Body == nil || resp.Body == http.NoBody {
		return ""
	}
	b, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return ""
	}
	return string(b)
}
