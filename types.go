package ofetch

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Interceptor is the fulfilled-path transform for one pipeline stage. It
// receives the current value (a *RequestConfig before dispatch, the settled
// response value after) and returns the value the next stage sees.
type Interceptor[T any] func(ctx context.Context, v T) (T, error)

// Recovery is the rejected-path handler paired with an Interceptor. It may
// recover by returning a replacement value, or re-fail by returning an error.
type Recovery[T any] func(ctx context.Context, err error) (T, error)

// RunWhen is a per-call predicate over the resolved request configuration.
// An entry whose predicate returns false is skipped for that call only.
type RunWhen func(config *RequestConfig) bool

// InterceptorOptions carries the optional registration flags for Use.
type InterceptorOptions struct {
	// Synchronous declares that the fulfilled handler never needs the
	// chained execution strategy. The fast path is taken only when every
	// surviving request interceptor declares it.
	Synchronous bool
	// RunWhen, when set, gates the entry per call.
	RunWhen RunWhen
}

// InterceptorEntry is one registered (fulfilled, rejected) pair. Entries are
// immutable once registered; Eject empties the slot instead of mutating it.
type InterceptorEntry[T any] struct {
	OnFulfilled Interceptor[T]
	OnRejected  Recovery[T]
	Synchronous bool
	RunWhen     RunWhen
}

// Handle identifies a registered interceptor for Eject. Handles issued
// before a Clear never match entries registered after it.
type Handle struct {
	index      int
	generation int
}

// Credentials modes understood by the dispatch step.
const (
	// CredentialsInclude asks the dispatch step to attach cookie-derived
	// state (the XSRF header) to the outgoing request.
	CredentialsInclude = "include"
	// CredentialsOmit suppresses cookie-derived state.
	CredentialsOmit = "omit"
)

// Default cross-site request forgery cookie and header names.
const (
	DefaultXSRFCookieName = "XSRF-TOKEN"
	DefaultXSRFHeaderName = "X-XSRF-TOKEN"
)

// RequestConfig is the mutable configuration for a single call. It is built
// per call by merging the instance defaults with the call-site overrides and
// is mutated in place by request interceptors.
type RequestConfig struct {
	// URL is the call target, absolute or relative to BaseURL.
	URL string
	// Method is the HTTP method; normalized to upper case, default GET.
	Method string
	// BaseURL is prepended to relative URLs. It is dropped when URL
	// already carries an http:// or https:// scheme.
	BaseURL string
	// Headers are sent verbatim; call-site values win per key on merge.
	Headers http.Header
	// Params are serialized onto the query string after CleanParams.
	Params map[string]any
	// Body is the request body: string, []byte, io.Reader, or any
	// JSON-marshalable value.
	Body any
	// Timeout bounds the whole dispatch; zero means never abort.
	Timeout time.Duration
	// Raw selects the decoded-plus-metadata transport shape. On merge a
	// false value is indistinguishable from absent, so a call site cannot
	// unset a default-enabled flag.
	Raw bool
	// Native selects the bare *http.Response transport shape. Merges like
	// Raw: once set in the defaults it stays set.
	Native bool
	// Credentials controls cookie-derived request state; see
	// CredentialsInclude.
	Credentials string
	// XSRFCookieName names the cookie read for forgery protection.
	XSRFCookieName string
	// XSRFHeaderName names the header the cookie value is copied into.
	XSRFHeaderName string
}

// Response is the decoded-plus-metadata transport shape.
type Response struct {
	Status  int
	Headers http.Header
	Body    any
}

// Transport performs the actual network call for a fully resolved
// configuration. All three shapes honor context cancellation by aborting
// in-flight work.
type Transport interface {
	// Decoded returns the parsed response body.
	Decoded(ctx context.Context, url string, config *RequestConfig) (any, error)
	// Raw returns the status, headers and parsed body.
	Raw(ctx context.Context, url string, config *RequestConfig) (*Response, error)
	// Native returns the unprocessed *http.Response.
	Native(ctx context.Context, url string, config *RequestConfig) (*http.Response, error)
}

// CookieSource reports the cookies visible for a request URL. *http.Client
// cookie jars satisfy it. A nil source reports no cookies, which is the
// non-browser execution context.
type CookieSource interface {
	Cookies(u *url.URL) []*http.Cookie
}

// Option is a configuration option for New.
type Option func(*Client)
