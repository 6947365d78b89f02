package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is a stored response.
type Entry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// NewEntry captures resp. The body is read in full and replaced with an
// equivalent reader.
func NewEntry(resp *http.Response) (*Entry, error) {
	var body []byte
	if resp.Body != nil && resp.Body != http.NoBody {
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("cache: read body: %w", err)
		}
		body = b
		resp.Body = io.NopCloser(bytes.NewReader(b))
	}
	return &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now(),
	}, nil
}

// Response rebuilds an *http.Response for req. Each call returns a fresh
// body reader.
func (e *Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}
