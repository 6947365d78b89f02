package transport

import (
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/kbukum/reqkit/stack"
)

// TransferStats describes one completed (or failed) exchange.
type TransferStats struct {
	Request  *http.Request
	Response *http.Response
	Err      error

	// TransferTime spans from dispatch to the end of body buffering.
	TransferTime time.Duration
	// ConnectTime and TLSTime are zero for reused connections.
	ConnectTime time.Duration
	TLSTime     time.Duration
	// FirstByteTime is the time until the first response byte.
	FirstByteTime time.Duration
	Reused        bool
	RemoteAddr    string
}

// StatsFunc receives transfer statistics.
type StatsFunc func(TransferStats)

func statsFunc(opts stack.Options) StatsFunc {
	switch fn := opts[OptOnStats].(type) {
	case StatsFunc:
		return fn
	case func(TransferStats):
		return fn
	}
	return nil
}

// recorder collects connection timings through httptrace.
type recorder struct {
	mu           sync.Mutex
	start        time.Time
	connectStart time.Time
	tlsStart     time.Time
	stats        TransferStats
}

func newRecorder(req *http.Request) *recorder {
	return &recorder{start: time.Now(), stats: TransferStats{Request: req}}
}

func (r *recorder) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			r.mu.Lock()
			r.stats.Reused = info.Reused
			if info.Conn != nil {
				r.stats.RemoteAddr = info.Conn.RemoteAddr().String()
			}
			r.mu.Unlock()
		},
		ConnectStart: func(string, string) {
			r.mu.Lock()
			r.connectStart = time.Now()
			r.mu.Unlock()
		},
		ConnectDone: func(string, string, error) {
			r.mu.Lock()
			if !r.connectStart.IsZero() {
				r.stats.ConnectTime = time.Since(r.connectStart)
			}
			r.mu.Unlock()
		},
		TLSHandshakeStart: func() {
			r.mu.Lock()
			r.tlsStart = time.Now()
			r.mu.Unlock()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			r.mu.Lock()
			if !r.tlsStart.IsZero() {
				r.stats.TLSTime = time.Since(r.tlsStart)
			}
			r.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			r.mu.Lock()
			r.stats.FirstByteTime = time.Since(r.start)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) finish(resp *http.Response, err error) TransferStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Response = resp
	r.stats.Err = err
	r.stats.TransferTime = time.Since(r.start)
	return r.stats
}
