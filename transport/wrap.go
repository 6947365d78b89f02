package transport

import (
	"net/http"

	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/stack"
)

// WrapStreaming routes requests with the "stream" option to streaming and
// all others to def.
func WrapStreaming(def, streaming stack.Handler) stack.Handler {
	return route(OptStream, def, streaming)
}

// WrapSync routes requests with the "synchronous" option to sync and all
// others to def.
func WrapSync(def, sync stack.Handler) stack.Handler {
	return route(OptSynchronous, def, sync)
}

func route(key string, def, alt stack.Handler) stack.Handler {
	return func(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
		if opts.Bool(key, false) {
			return alt(req, opts)
		}
		return def(req, opts)
	}
}
