package ofetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// chainStep is one (fulfilled, rejected) pair in the flat execution chain.
// A nil handler is a pass-through for its path: a value flows to the next
// fulfilled handler, a failure to the next rejected handler.
type chainStep struct {
	stage     string
	fulfilled func(ctx context.Context, v any) (any, error)
	rejected  func(ctx context.Context, err error) (any, error)
}

// Request executes one call through the full interceptor pipeline. target is
// either a URL string or a *RequestConfig carrying the whole call; overrides,
// when non-nil, are merged over the instance defaults (call-site wins).
func (c *Client) Request(ctx context.Context, target any, overrides *RequestConfig) (any, error) {
	start := time.Now()

	config, err := c.resolveTarget(target, overrides)
	if err != nil {
		return nil, err
	}

	endpoint := joinURL(config.BaseURL, config.URL)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", config.Method, "endpoint", endpoint)
	}
	if c.metrics != nil {
		c.metrics.RecordRequestStart(config.Method, endpoint)
	}

	requestEntries, allSynchronous := c.collectRequestEntries(config)

	var result any
	var callErr error
	if allSynchronous {
		result, callErr = c.runSynchronous(ctx, config, requestEntries, requestID)
	} else {
		result, callErr = c.runChained(ctx, config, requestEntries, requestID)
	}

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordRequestEnd(config.Method, endpoint)
		c.metrics.RecordRequest(config.Method, endpoint, callErr == nil, duration)
		if callErr != nil {
			c.metrics.RecordError(errorType(callErr), config.Method, endpoint)
			if IsTimeout(callErr) {
				c.metrics.RecordTimeout(endpoint)
			}
		}
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		if callErr != nil {
			c.logger.Debug("Request settled with failure", "requestID", requestID, "endpoint", endpoint, "duration", duration, "error", callErr.Error())
		} else {
			c.logger.Debug("Request settled", "requestID", requestID, "endpoint", endpoint, "duration", duration)
		}
	}

	return result, callErr
}

// resolveTarget builds the per-call configuration from the instance defaults,
// the call target and the call-site overrides, then normalizes it.
func (c *Client) resolveTarget(target any, overrides *RequestConfig) (*RequestConfig, error) {
	var config *RequestConfig
	switch t := target.(type) {
	case nil:
		config = mergeConfig(c.defaults, overrides)
	case string:
		config = mergeConfig(c.defaults, overrides)
		if t != "" {
			config.URL = t
		}
	case *RequestConfig:
		config = mergeConfig(c.defaults, t)
		if overrides != nil {
			config = mergeConfig(config, overrides)
		}
	default:
		return nil, &ClientError{
			Type:      ErrorTypeConfig,
			Message:   "request target must be a URL string or *RequestConfig",
			Cause:     ErrInvalidTarget,
			Timestamp: time.Now(),
		}
	}
	normalizeConfig(config)
	return config, nil
}

// collectRequestEntries walks the request registry once, filtering RunWhen
// per call and reversing registration order so the most recently registered
// request interceptor runs first. The second result reports whether every
// surviving entry declared itself synchronous.
func (c *Client) collectRequestEntries(config *RequestConfig) ([]*InterceptorEntry[*RequestConfig], bool) {
	var entries []*InterceptorEntry[*RequestConfig]
	allSynchronous := true
	c.requestChain.ForEach(func(entry *InterceptorEntry[*RequestConfig]) {
		if entry.RunWhen != nil && !entry.RunWhen(config) {
			return
		}
		allSynchronous = allSynchronous && entry.Synchronous
		entries = append([]*InterceptorEntry[*RequestConfig]{entry}, entries...)
	})
	return entries, allSynchronous
}

// runChained is the general-purpose strategy: one flat chain of request
// interceptors, the terminal dispatch, and response interceptors, threaded
// sequentially. A failure at any stage is absorbed only by the next stage
// carrying a rejected handler.
func (c *Client) runChained(ctx context.Context, config *RequestConfig, requestEntries []*InterceptorEntry[*RequestConfig], requestID string) (any, error) {
	steps := make([]chainStep, 0, len(requestEntries)+1)
	for _, entry := range requestEntries {
		steps = append(steps, requestStep(entry))
	}
	steps = append(steps, chainStep{
		stage: StageDispatch,
		fulfilled: func(ctx context.Context, v any) (any, error) {
			config, ok := v.(*RequestConfig)
			if !ok || config == nil {
				return nil, &ClientError{
					Type:      ErrorTypeConfig,
					Message:   "interceptor produced no usable request config",
					Cause:     ErrNilConfig,
					RequestID: requestID,
					Stage:     StageDispatch,
					Timestamp: time.Now(),
				}
			}
			return c.dispatch(ctx, config, requestID)
		},
	})
	steps = append(steps, c.responseSteps()...)

	return c.executeChain(ctx, steps, config, nil, requestID)
}

// runSynchronous is the fast path taken only when every surviving request
// interceptor declared itself synchronous. Its error recovery is
// deliberately different from the chained strategy: a failing request
// interceptor hands the error to its own paired handler, the remaining
// request interceptors are skipped, and dispatch proceeds with the last good
// config. Errors raised while preparing the dispatch short-circuit before
// the response interceptors; the transport result, success or failure, is
// threaded through them as usual.
func (c *Client) runSynchronous(ctx context.Context, config *RequestConfig, requestEntries []*InterceptorEntry[*RequestConfig], requestID string) (any, error) {
	working := config
	for _, entry := range requestEntries {
		if entry.OnFulfilled == nil {
			continue
		}
		next, err := entry.OnFulfilled(ctx, working)
		if err == nil {
			if next != nil {
				working = next
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordInterceptorRejection(StageRequest)
		}
		if entry.OnRejected == nil {
			return nil, err
		}
		// The paired handler observes the failure but its result is
		// discarded and a secondary failure does not propagate; dispatch
		// proceeds with the last good config. Kept for compatibility.
		if _, handlerErr := entry.OnRejected(ctx, err); handlerErr != nil {
			if c.debug != nil && c.debug.Enabled && c.debug.LogInterceptors && c.logger != nil {
				c.logger.Warn("Discarding secondary rejection from synchronous handler", "requestID", requestID, "error", handlerErr.Error())
			}
		}
		break
	}

	prepared, err := c.prepare(ctx, working, requestID)
	if err != nil {
		return nil, err
	}
	value, sendErr := c.send(prepared)
	return c.executeChain(ctx, c.responseSteps(), value, sendErr, requestID)
}

// executeChain threads (value, err) through the steps sequentially. A live
// value skips stages without a fulfilled handler; a live failure skips
// stages without a rejected handler.
func (c *Client) executeChain(ctx context.Context, steps []chainStep, value any, err error, requestID string) (any, error) {
	for _, step := range steps {
		if err != nil {
			if step.rejected == nil {
				continue
			}
			value, err = step.rejected(ctx, err)
		} else {
			if step.fulfilled == nil {
				continue
			}
			value, err = step.fulfilled(ctx, value)
		}
		if err != nil {
			if c.metrics != nil && step.stage != StageDispatch {
				c.metrics.RecordInterceptorRejection(step.stage)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogInterceptors && c.logger != nil {
				c.logger.Debug("Stage rejected", "requestID", requestID, "stage", step.stage, "error", err.Error())
			}
		}
	}
	return value, err
}

// requestStep adapts a typed request entry into a chain step.
func requestStep(entry *InterceptorEntry[*RequestConfig]) chainStep {
	step := chainStep{stage: StageRequest}
	if entry.OnFulfilled != nil {
		fulfilled := entry.OnFulfilled
		step.fulfilled = func(ctx context.Context, v any) (any, error) {
			config, ok := v.(*RequestConfig)
			if !ok || config == nil {
				return nil, &ClientError{
					Type:      ErrorTypeConfig,
					Message:   "interceptor produced no usable request config",
					Cause:     ErrNilConfig,
					Stage:     StageRequest,
					Timestamp: time.Now(),
				}
			}
			return fulfilled(ctx, config)
		}
	}
	if entry.OnRejected != nil {
		rejected := entry.OnRejected
		step.rejected = func(ctx context.Context, err error) (any, error) {
			return rejected(ctx, err)
		}
	}
	return step
}

// responseSteps adapts the response registry, in registration order, into
// chain steps.
func (c *Client) responseSteps() []chainStep {
	var steps []chainStep
	c.responseChain.ForEach(func(entry *InterceptorEntry[any]) {
		step := chainStep{stage: StageResponse}
		if entry.OnFulfilled != nil {
			step.fulfilled = entry.OnFulfilled
		}
		if entry.OnRejected != nil {
			step.rejected = entry.OnRejected
		}
		steps = append(steps, step)
	})
	return steps
}

// preparedDispatch is a dispatch-ready call: final URL, cleaned params, XSRF
// header applied, and a cancellation context bounding the transport call.
type preparedDispatch struct {
	ctx       context.Context
	cancel    context.CancelFunc
	url       string
	config    *RequestConfig
	requestID string
}

// dispatch runs the terminal step: prepare then send.
func (c *Client) dispatch(ctx context.Context, config *RequestConfig, requestID string) (any, error) {
	prepared, err := c.prepare(ctx, config, requestID)
	if err != nil {
		return nil, err
	}
	return c.send(prepared)
}

func (c *Client) prepare(ctx context.Context, config *RequestConfig, requestID string) (*preparedDispatch, error) {
	if config == nil {
		return nil, &ClientError{
			Type:      ErrorTypeConfig,
			Message:   "no request config to dispatch",
			Cause:     ErrNilConfig,
			RequestID: requestID,
			Stage:     StageDispatch,
			Timestamp: time.Now(),
		}
	}
	// Interceptors may have rewritten URL to an absolute target after
	// normalization already ran; an absolute URL always wins over BaseURL.
	base := config.BaseURL
	if isAbsoluteURL(config.URL) {
		base = ""
	}
	rawurl := joinURL(base, config.URL)
	if rawurl == "" {
		return nil, &ClientError{
			Type:      ErrorTypeConfig,
			Message:   "empty request URL",
			RequestID: requestID,
			Stage:     StageDispatch,
			Timestamp: time.Now(),
		}
	}

	config.Params = CleanParams(config.Params)

	if config.Credentials == CredentialsInclude {
		if token, ok := c.Cookie(rawurl, config.XSRFCookieName); ok && token != "" {
			if config.Headers == nil {
				config.Headers = http.Header{}
			}
			config.Headers.Set(config.XSRFHeaderName, token)
		}
	}

	cancel := func() {}
	if config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
	}

	return &preparedDispatch{
		ctx:       ctx,
		cancel:    cancel,
		url:       rawurl,
		config:    config,
		requestID: requestID,
	}, nil
}

// send invokes exactly one of the three transport shapes per the config
// flags. Native wins over Raw when both are set.
func (c *Client) send(p *preparedDispatch) (any, error) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogDispatch && c.logger != nil {
		c.logger.Debug("Dispatching", "requestID", p.requestID, "method", p.config.Method, "url", p.url, "timeout", p.config.Timeout)
	}

	switch {
	case p.config.Native:
		resp, err := c.transport.Native(p.ctx, p.url, p.config)
		if err != nil {
			p.cancel()
			return nil, c.dispatchError(err, p)
		}
		// The caller owns the body, so the timeout context must outlive
		// this call; Close releases it instead.
		if resp.Body != nil {
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: p.cancel}
		} else {
			p.cancel()
		}
		return resp, nil
	case p.config.Raw:
		defer p.cancel()
		resp, err := c.transport.Raw(p.ctx, p.url, p.config)
		if err != nil {
			return nil, c.dispatchError(err, p)
		}
		return resp, nil
	default:
		defer p.cancel()
		body, err := c.transport.Decoded(p.ctx, p.url, p.config)
		if err != nil {
			return nil, c.dispatchError(err, p)
		}
		return body, nil
	}
}

// cancelOnClose ties a context's release to the response body lifetime.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// dispatchError classifies transport failures and stamps request context
// onto them.
func (c *Client) dispatchError(err error, p *preparedDispatch) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{
			Type:      ErrorTypeTimeout,
			Message:   "request aborted after timeout",
			Cause:     err,
			RequestID: p.requestID,
			Method:    p.config.Method,
			URL:       p.url,
			Stage:     StageDispatch,
			Timestamp: time.Now(),
			Duration:  p.config.Timeout,
		}
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if clientErr.RequestID == "" {
			clientErr.RequestID = p.requestID
		}
		if clientErr.Stage == "" {
			clientErr.Stage = StageDispatch
		}
		if clientErr.Timestamp.IsZero() {
			clientErr.Timestamp = time.Now()
		}
		return err
	}

	return &ClientError{
		Type:      ErrorTypeNetwork,
		Message:   "network request failed",
		Cause:     err,
		RequestID: p.requestID,
		Method:    p.config.Method,
		URL:       p.url,
		Stage:     StageDispatch,
		Timestamp: time.Now(),
	}
}
