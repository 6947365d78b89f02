package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/stack"
)

// Log writes one line per exchange: successful exchanges at info level,
// failures at error level.
func Log(l *logger.Logger, f *Formatter) stack.Middleware {
	return LogWithLevel(l, f, zerolog.InfoLevel)
}

// LogWithLevel is Log with a custom level for successful exchanges.
func LogWithLevel(l *logger.Logger, f *Formatter, level zerolog.Level) stack.Middleware {
	if f == nil {
		f = NewFormatter("")
	}
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			start := time.Now()
			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				d := time.Since(start)
				lvl := level
				if err != nil {
					lvl = zerolog.ErrorLevel
				}
				log := l.WithContext(req.Context())
				if !log.Enabled(lvl) {
					return resp, err
				}

				fields := logger.DurationFields("request", d)
				fields[logger.FieldMethod] = req.Method
				fields[logger.FieldURL] = req.URL.Redacted()
				if id := RequestIDFromContext(req.Context()); id != "" {
					fields[logger.FieldRequestID] = id
				}
				if s := statusOf(resp, err); s != 0 {
					fields[logger.FieldStatusCode] = s
				}
				if err != nil {
					fields[logger.FieldError] = err.Error()
				}
				log.Log(lvl, f.Format(req, resp, err, d), fields)
				return resp, err
			})
		}
	}
}
