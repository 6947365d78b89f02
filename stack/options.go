package stack

import (
	"maps"
	"strconv"
	"time"
)

// Options carries per-call settings alongside a request through every layer.
// Keys are defined by the middleware and transports that read them.
type Options map[string]any

// Get returns the value stored under key.
func (o Options) Get(key string) (any, bool) {
	v, ok := o[key]
	return v, ok
}

// Has reports whether key is set.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Bool returns key as a bool, or def when missing or of another type.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// String returns key as a string, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Int returns key as an int, or def.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Duration returns key as a duration. Plain numbers are read as seconds and
// strings are parsed with time.ParseDuration.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	switch v := o[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Clone returns a shallow copy. Cloning nil yields an empty map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	maps.Copy(out, o)
	return out
}

// With returns a copy with key set to value.
func (o Options) With(key string, value any) Options {
	out := o.Clone()
	out[key] = value
	return out
}

// Merge returns a copy of defaults overlaid with o. Values in o win.
func (o Options) Merge(defaults Options) Options {
	out := make(Options, len(o)+len(defaults))
	maps.Copy(out, defaults)
	maps.Copy(out, o)
	return out
}
