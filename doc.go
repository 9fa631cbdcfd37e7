// Package ofetch provides an HTTP client with an ordered, mutable
// interceptor pipeline around every outbound call:
//
//   - Request interceptors mutate the per-call configuration before
//     dispatch (most recently registered runs first)
//   - Response interceptors transform the settled value or recover from
//     failures afterwards (registration order)
//   - Entries are independently removable (Use / Eject / Clear) and can be
//     gated per call with a RunWhen predicate
//   - A synchronous fast path skips the chained execution machinery when
//     every request interceptor declares it never suspends
//   - Per-request timeout with context-based cancellation, XSRF header
//     injection from a cookie jar, query parameter cleaning
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via a pluggable Transport and metrics / logging hooks
//
// Typical usage:
//
//	client := ofetch.New(
//	    ofetch.WithBaseURL("https://api.example.com"),
//	    ofetch.WithTimeout(5*time.Second),
//	)
//	client.OnRequest(func(cfg *ofetch.RequestConfig) *ofetch.RequestConfig {
//	    cfg.Headers.Set("X-Trace", "1")
//	    return cfg
//	})
//	body, err := client.Get(ctx, "/data")
//
// There is no retry, caching or connection-pooling policy in this layer;
// a failed dispatch or unrecovered interceptor rejection settles the whole
// call as failed, and retry policy stays with the caller.
package ofetch
