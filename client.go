package ofetch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Client is an HTTP client that threads every call through an ordered,
// independently removable interceptor pipeline: request interceptors run
// before dispatch (most recently registered first), response interceptors
// after (registration order). A single instance is safe for concurrent use;
// registries tolerate registration and removal between calls, and defaults
// follow last-write-wins.
type Client struct {
	requestChain  *InterceptorChain[*RequestConfig]
	responseChain *InterceptorChain[any]

	defaults   *RequestConfig
	transport  Transport
	httpClient *http.Client
	cookies    CookieSource

	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		requestChain:  NewInterceptorChain[*RequestConfig](),
		responseChain: NewInterceptorChain[any](),
		defaults: &RequestConfig{
			Headers:        http.Header{},
			XSRFCookieName: DefaultXSRFCookieName,
			XSRFHeaderName: DefaultXSRFHeaderName,
		},
		httpClient: &http.Client{},
		debug:      DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.cookies == nil && client.httpClient != nil && client.httpClient.Jar != nil {
		client.cookies = client.httpClient.Jar
	}
	if client.transport == nil {
		client.transport = NewHTTPTransport(client.httpClient)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Create forks a child client whose defaults are this client's current
// defaults merged with overrides (overrides win). The child starts with
// fresh, empty interceptor registries and shares the transport, cookie
// source, metrics and logging wiring.
func (c *Client) Create(overrides *RequestConfig) *Client {
	child := &Client{
		requestChain:  NewInterceptorChain[*RequestConfig](),
		responseChain: NewInterceptorChain[any](),
		defaults:      mergeConfig(c.defaults, overrides),
		transport:     c.transport,
		httpClient:    c.httpClient,
		cookies:       c.cookies,
		metrics:       c.metrics,
		debug:         c.debug,
		logger:        c.logger,
	}
	if err := child.ValidateConfiguration(); err != nil {
		child.validationError = err
	}
	return child
}

// RequestInterceptors exposes the request-stage registry.
func (c *Client) RequestInterceptors() *InterceptorChain[*RequestConfig] {
	return c.requestChain
}

// ResponseInterceptors exposes the response-stage registry.
func (c *Client) ResponseInterceptors() *InterceptorChain[any] {
	return c.responseChain
}

// SetHeader sets a default header sent with every request.
func (c *Client) SetHeader(key, value string) {
	if c.defaults.Headers == nil {
		c.defaults.Headers = http.Header{}
	}
	c.defaults.Headers.Set(key, value)
}

// SetToken sets the default Authorization header to a bearer token.
func (c *Client) SetToken(token string) {
	c.SetHeader("Authorization", "Bearer "+token)
}

// OnRequest registers a request interceptor from a single-argument transform.
// Returning nil keeps the (possibly mutated in place) current config.
func (c *Client) OnRequest(fn func(config *RequestConfig) *RequestConfig) Handle {
	return c.requestChain.Use(func(_ context.Context, config *RequestConfig) (*RequestConfig, error) {
		if out := fn(config); out != nil {
			return out, nil
		}
		return config, nil
	}, nil, nil)
}

// OnRequestError registers a request-stage error handler. Returning nil
// re-rejects with the original error; returning an error re-rejects with a
// wrapped rejection; returning a *RequestConfig recovers the pipeline with
// that configuration.
func (c *Client) OnRequestError(fn func(err error) any) Handle {
	return c.requestChain.Use(nil, func(_ context.Context, err error) (*RequestConfig, error) {
		switch out := fn(err).(type) {
		case nil:
			return nil, err
		case *RequestConfig:
			return out, nil
		case error:
			return nil, &ClientError{
				Type:      ErrorTypeInterceptor,
				Message:   "request error handler re-rejected",
				Cause:     out,
				Stage:     StageRequest,
				Timestamp: time.Now(),
			}
		default:
			return nil, &ClientError{
				Type:      ErrorTypeInterceptor,
				Message:   "request error handler returned an unusable recovery value",
				Cause:     err,
				Stage:     StageRequest,
				Timestamp: time.Now(),
			}
		}
	}, nil)
}

// OnResponse registers a response interceptor from a single-argument
// transform. Returning nil keeps the current value.
func (c *Client) OnResponse(fn func(v any) any) Handle {
	return c.responseChain.Use(func(_ context.Context, v any) (any, error) {
		if out := fn(v); out != nil {
			return out, nil
		}
		return v, nil
	}, nil, nil)
}

// OnResponseError registers a response-stage error handler with the same
// recovery contract as OnRequestError, except any non-error value recovers.
func (c *Client) OnResponseError(fn func(err error) any) Handle {
	return c.responseChain.Use(nil, func(_ context.Context, err error) (any, error) {
		switch out := fn(err).(type) {
		case nil:
			return nil, err
		case error:
			return nil, &ClientError{
				Type:      ErrorTypeInterceptor,
				Message:   "response error handler re-rejected",
				Cause:     out,
				Stage:     StageResponse,
				Timestamp: time.Now(),
			}
		default:
			return out, nil
		}
	}, nil)
}

// Get performs a GET and returns the decoded body.
func (c *Client) Get(ctx context.Context, url string) (any, error) {
	return c.Request(ctx, url, &RequestConfig{Method: http.MethodGet})
}

// GetRaw performs a GET and returns the decoded body with status metadata.
func (c *Client) GetRaw(ctx context.Context, url string) (*Response, error) {
	return c.requestRaw(ctx, url, &RequestConfig{Method: http.MethodGet, Raw: true})
}

// Post performs a POST with the given body and returns the decoded response.
func (c *Client) Post(ctx context.Context, url string, body any) (any, error) {
	return c.Request(ctx, url, &RequestConfig{Method: http.MethodPost, Body: body})
}

// PostRaw performs a POST and returns the decoded body with status metadata.
func (c *Client) PostRaw(ctx context.Context, url string, body any) (*Response, error) {
	return c.requestRaw(ctx, url, &RequestConfig{Method: http.MethodPost, Body: body, Raw: true})
}

// Put performs a PUT with the given body and returns the decoded response.
func (c *Client) Put(ctx context.Context, url string, body any) (any, error) {
	return c.Request(ctx, url, &RequestConfig{Method: http.MethodPut, Body: body})
}

// PutRaw performs a PUT and returns the decoded body with status metadata.
func (c *Client) PutRaw(ctx context.Context, url string, body any) (*Response, error) {
	return c.requestRaw(ctx, url, &RequestConfig{Method: http.MethodPut, Body: body, Raw: true})
}

// Patch performs a PATCH with the given body and returns the decoded
// response.
func (c *Client) Patch(ctx context.Context, url string, body any) (any, error) {
	return c.Request(ctx, url, &RequestConfig{Method: http.MethodPatch, Body: body})
}

// PatchRaw performs a PATCH and returns the decoded body with status
// metadata.
func (c *Client) PatchRaw(ctx context.Context, url string, body any) (*Response, error) {
	return c.requestRaw(ctx, url, &RequestConfig{Method: http.MethodPatch, Body: body, Raw: true})
}

// Delete performs a DELETE and returns the decoded response.
func (c *Client) Delete(ctx context.Context, url string) (any, error) {
	return c.Request(ctx, url, &RequestConfig{Method: http.MethodDelete})
}

// DeleteRaw performs a DELETE and returns the decoded body with status
// metadata.
func (c *Client) DeleteRaw(ctx context.Context, url string) (*Response, error) {
	return c.requestRaw(ctx, url, &RequestConfig{Method: http.MethodDelete, Raw: true})
}

// Head performs a HEAD and returns the status metadata.
func (c *Client) Head(ctx context.Context, url string) (*Response, error) {
	return c.requestRaw(ctx, url, &RequestConfig{Method: http.MethodHead, Raw: true})
}

// Native performs the call described by target and returns the unprocessed
// *http.Response. The caller owns the response body.
func (c *Client) Native(ctx context.Context, target any) (*http.Response, error) {
	result, err := c.Request(ctx, target, &RequestConfig{Native: true})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*http.Response)
	if !ok {
		return nil, &ClientError{
			Type:      ErrorTypeInterceptor,
			Message:   "native call settled with an unexpected value type",
			Stage:     StageResponse,
			Timestamp: time.Now(),
		}
	}
	return resp, nil
}

// GetInto performs a GET and decodes the response body into out.
func (c *Client) GetInto(ctx context.Context, url string, out any) error {
	result, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return DecodeInto(result, out)
}

// PostInto performs a POST and decodes the response body into out.
func (c *Client) PostInto(ctx context.Context, url string, body, out any) error {
	result, err := c.Post(ctx, url, body)
	if err != nil {
		return err
	}
	return DecodeInto(result, out)
}

// DecodeInto converts a decoded pipeline result into a typed value via JSON.
func DecodeInto(result, out any) error {
	var raw []byte
	switch v := result.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return &ClientError{Type: ErrorTypeSerialize, Message: "re-encoding decoded body failed", Cause: err}
		}
		raw = encoded
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ClientError{Type: ErrorTypeSerialize, Message: "decoding body into target failed", Cause: err}
	}
	return nil
}

func (c *Client) requestRaw(ctx context.Context, url string, overrides *RequestConfig) (*Response, error) {
	result, err := c.Request(ctx, url, overrides)
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*Response)
	if !ok {
		return nil, &ClientError{
			Type:      ErrorTypeInterceptor,
			Message:   "raw call settled with an unexpected value type",
			Stage:     StageResponse,
			Timestamp: time.Now(),
		}
	}
	return resp, nil
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}
