package ofetch

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WithBaseURL sets the default base URL prepended to relative targets.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.defaults.BaseURL = base
	}
}

// WithTimeout sets the default per-request timeout. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.Timeout = d
	}
}

// WithHeader sets a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.defaults.Headers == nil {
			c.defaults.Headers = http.Header{}
		}
		c.defaults.Headers.Set(key, value)
	}
}

// WithHeaders merges the given headers into the defaults.
func WithHeaders(headers http.Header) Option {
	return func(c *Client) {
		if c.defaults.Headers == nil {
			c.defaults.Headers = http.Header{}
		}
		for key, values := range headers {
			c.defaults.Headers[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
}

// WithParams merges default query parameters sent with every request.
func WithParams(params map[string]any) Option {
	return func(c *Client) {
		c.defaults.Params = mergeParams(c.defaults.Params, params)
	}
}

// WithCredentials sets the default credentials mode; CredentialsInclude
// enables cookie-derived request state such as the XSRF header.
func WithCredentials(mode string) Option {
	return func(c *Client) {
		c.defaults.Credentials = mode
	}
}

// WithXSRF overrides the cookie and header names used for cross-site
// request forgery protection.
func WithXSRF(cookieName, headerName string) Option {
	return func(c *Client) {
		c.defaults.XSRFCookieName = cookieName
		c.defaults.XSRFHeaderName = headerName
	}
}

// WithDefaults replaces the instance defaults wholesale.
func WithDefaults(defaults *RequestConfig) Option {
	return func(c *Client) {
		if defaults != nil {
			c.defaults = defaults
		}
	}
}

// WithHTTPClient sets the *http.Client behind the default transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTransport sets a custom transport implementation.
func WithTransport(transport Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithCookieJar sets the cookie source consulted by the dispatch step and
// installs it on the underlying *http.Client.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.cookies = jar
		if c.httpClient != nil {
			c.httpClient.Jar = jar
		}
	}
}

// WithMetrics enables Prometheus metrics collection.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateDefaults()...)
	errors = append(errors, c.validateTransportConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateExtremeValues()...)

	if len(errors) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (c *Client) validateDefaults() []string {
	var errors []string

	if c.defaults == nil {
		return append(errors, "defaults cannot be nil")
	}
	if c.defaults.Timeout < 0 {
		errors = append(errors, "timeout must be non-negative")
	}
	if c.defaults.BaseURL != "" {
		if _, err := url.Parse(c.defaults.BaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("baseURL does not parse: %v", err))
		}
	}
	if c.defaults.Credentials == CredentialsInclude {
		if c.defaults.XSRFCookieName == "" {
			errors = append(errors, "xsrfCookieName must be set when credentials include cookies")
		}
		if c.defaults.XSRFHeaderName == "" {
			errors = append(errors, "xsrfHeaderName must be set when credentials include cookies")
		}
	}

	return errors
}

func (c *Client) validateTransportConfig() []string {
	var errors []string

	if c.transport == nil && c.httpClient == nil {
		errors = append(errors, "transport and HTTP client cannot both be nil")
	}

	return errors
}

func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}

	return errors
}

func (c *Client) validateExtremeValues() []string {
	var errors []string

	if c.defaults != nil && c.defaults.Timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m may cause requests to hang for too long")
	}

	return errors
}
