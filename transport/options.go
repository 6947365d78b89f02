package transport

// Request option keys read by the terminal handlers.
const (
	// OptTimeout bounds the whole exchange (time.Duration or seconds).
	OptTimeout = "timeout"
	// OptDelay waits before sending (time.Duration or seconds).
	OptDelay = "delay"
	// OptStream leaves the response body unbuffered.
	OptStream = "stream"
	// OptMaxBody overrides Config.MaxResponseBytes for one request (bytes,
	// negative for no cap).
	OptMaxBody = "max_body"
	// OptSink receives the response body: an io.Writer or a file path.
	OptSink = "sink"
	// OptOnStats is called with TransferStats once the exchange ends.
	OptOnStats = "on_stats"
	// OptSynchronous selects the synchronous handler in WrapSync.
	OptSynchronous = "synchronous"
)
