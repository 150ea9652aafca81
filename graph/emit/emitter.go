package emit

// Emitter receives and processes observability events from turn execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files, syslog
//   - Distributed tracing: OpenTelemetry, Jaeger, Zipkin
//   - In-memory capture for tests and dashboards
//
// Implementations should be:
//   - Non-blocking: Avoid slowing down turn execution
//   - Thread-safe: May be called concurrently for multiple threads
//   - Resilient: Handle failures gracefully (don't crash the turn)
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Implementations should not block turn execution.
	// If the backend is unavailable or slow, events should be:
	//   - Buffered for later delivery
	//   - Dropped with error logging
	//   - Sent asynchronously
	//
	// Emit should not panic. Errors should be logged internally.
	Emit(event Event)
}
