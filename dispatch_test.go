package ofetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// stubTransport is a scriptable Transport for pipeline tests.
type stubTransport struct {
	decoded func(ctx context.Context, url string, config *RequestConfig) (any, error)
	raw     func(ctx context.Context, url string, config *RequestConfig) (*Response, error)
	native  func(ctx context.Context, url string, config *RequestConfig) (*http.Response, error)

	decodedCalls int
	rawCalls     int
	nativeCalls  int
	lastConfig   *RequestConfig
	lastURL      string
}

func (s *stubTransport) Decoded(ctx context.Context, url string, config *RequestConfig) (any, error) {
	s.decodedCalls++
	s.lastConfig = config
	s.lastURL = url
	if s.decoded != nil {
		return s.decoded(ctx, url, config)
	}
	return "ok", nil
}

func (s *stubTransport) Raw(ctx context.Context, url string, config *RequestConfig) (*Response, error) {
	s.rawCalls++
	s.lastConfig = config
	s.lastURL = url
	if s.raw != nil {
		return s.raw(ctx, url, config)
	}
	return &Response{Status: 200, Headers: http.Header{}, Body: "ok"}, nil
}

func (s *stubTransport) Native(ctx context.Context, url string, config *RequestConfig) (*http.Response, error) {
	s.nativeCalls++
	s.lastConfig = config
	s.lastURL = url
	if s.native != nil {
		return s.native(ctx, url, config)
	}
	return &http.Response{StatusCode: 200}, nil
}

func newStubClient(transport *stubTransport, options ...Option) *Client {
	return New(append([]Option{WithTransport(transport)}, options...)...)
}

func TestRequestInterceptorsRunInReverseRegistrationOrder(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
			order = append(order, i)
			return cfg, nil
		}, nil, nil)
	}

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("Expected execution order [3 2 1], got %v", order)
	}
}

func TestResponseInterceptorsRunInRegistrationOrder(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		client.ResponseInterceptors().Use(func(_ context.Context, v any) (any, error) {
			order = append(order, i)
			return v, nil
		}, nil, nil)
	}

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("Expected execution order [1 2 3], got %v", order)
	}
}

func TestRunWhenSkipsEntryPerCall(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	applied := 0
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		applied++
		return cfg, nil
	}, nil, &InterceptorOptions{
		RunWhen: func(cfg *RequestConfig) bool { return cfg.Method == http.MethodPost },
	})

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if applied != 0 {
		t.Errorf("Expected interceptor to be skipped for GET, applied %d times", applied)
	}

	if _, err := client.Post(context.Background(), "/ping", nil); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if applied != 1 {
		t.Errorf("Expected interceptor to apply for POST, applied %d times", applied)
	}
}

func TestChainedRejectionSkipsDispatch(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	boom := errors.New("boom")
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return nil, boom
	}, nil, nil)

	_, err := client.Get(context.Background(), "/ping")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom to propagate, got %v", err)
	}
	if transport.decodedCalls != 0 {
		t.Errorf("Expected dispatch to be skipped, transport called %d times", transport.decodedCalls)
	}
}

func TestChainedRejectionRecoveredByNextStage(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	boom := errors.New("boom")
	// Registered first, so it runs second and sees the failure.
	client.RequestInterceptors().Use(nil, func(_ context.Context, err error) (*RequestConfig, error) {
		if !errors.Is(err, boom) {
			t.Errorf("Expected recovery handler to receive boom, got %v", err)
		}
		return &RequestConfig{URL: "/recovered", Method: http.MethodGet}, nil
	}, nil)
	// Registered second, so it runs first and fails.
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return nil, boom
	}, nil, nil)

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Expected recovered call to succeed, got %v", err)
	}
	if transport.decodedCalls != 1 {
		t.Fatalf("Expected one dispatch, got %d", transport.decodedCalls)
	}
	if transport.lastURL != "/recovered" {
		t.Errorf("Expected dispatch with recovered config URL /recovered, got %s", transport.lastURL)
	}
}

func TestChainedFailureNotCaughtByOwnPair(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	boom := errors.New("boom")
	ownHandlerCalled := false
	nextHandlerCalled := false

	// Runs second; its rejected handler is the next stage after the failure.
	client.RequestInterceptors().Use(nil, func(_ context.Context, err error) (*RequestConfig, error) {
		nextHandlerCalled = true
		return nil, err
	}, nil)
	// Runs first and fails; its own paired handler must not see the error.
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return nil, boom
	}, func(_ context.Context, err error) (*RequestConfig, error) {
		ownHandlerCalled = true
		return nil, err
	}, nil)

	_, err := client.Get(context.Background(), "/ping")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom to propagate, got %v", err)
	}
	if ownHandlerCalled {
		t.Error("Expected the failing entry's own handler to be bypassed")
	}
	if !nextHandlerCalled {
		t.Error("Expected the next stage's handler to observe the failure")
	}
}

func TestSynchronousFastPathSkipsRemainingInterceptors(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	sync := &InterceptorOptions{Synchronous: true}
	boom := errors.New("boom")
	var order []string
	handlerCalled := false

	// Registration order 1..3; execution order 3, 2, 1.
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		order = append(order, "first-registered")
		return cfg, nil
	}, nil, sync)
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		order = append(order, "second-registered")
		return nil, boom
	}, func(_ context.Context, err error) (*RequestConfig, error) {
		handlerCalled = true
		if !errors.Is(err, boom) {
			t.Errorf("Expected paired handler to receive boom, got %v", err)
		}
		return nil, nil
	}, sync)
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		order = append(order, "third-registered")
		cfg.Headers = http.Header{"X-Seen": {"1"}}
		return cfg, nil
	}, nil, sync)

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Expected dispatch to proceed, got %v", err)
	}

	if len(order) != 2 || order[0] != "third-registered" || order[1] != "second-registered" {
		t.Errorf("Expected first-registered interceptor to be skipped, got order %v", order)
	}
	if !handlerCalled {
		t.Error("Expected the failing entry's paired handler to be invoked")
	}
	if transport.decodedCalls != 1 {
		t.Fatalf("Expected one dispatch, got %d", transport.decodedCalls)
	}
	if transport.lastConfig.Headers.Get("X-Seen") != "1" {
		t.Error("Expected dispatch to use the last successfully produced config")
	}
}

func TestSynchronousSecondaryRejectionIsDiscarded(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	sync := &InterceptorOptions{Synchronous: true}
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return nil, errors.New("primary")
	}, func(_ context.Context, err error) (*RequestConfig, error) {
		return nil, errors.New("secondary")
	}, sync)

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Expected dispatch to proceed despite secondary rejection, got %v", err)
	}
	if transport.decodedCalls != 1 {
		t.Errorf("Expected one dispatch, got %d", transport.decodedCalls)
	}
}

func TestSynchronousWithoutPairedHandlerPropagates(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	boom := errors.New("boom")
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return nil, boom
	}, nil, &InterceptorOptions{Synchronous: true})

	_, err := client.Get(context.Background(), "/ping")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom to propagate, got %v", err)
	}
	if transport.decodedCalls != 0 {
		t.Errorf("Expected no dispatch, got %d", transport.decodedCalls)
	}
}

func TestOneAsynchronousEntryForcesChainedStrategy(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	boom := errors.New("boom")
	ownHandlerCalled := false

	// Registered first, execution second; omitting Synchronous forces the
	// chained strategy for the whole call.
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return cfg, nil
	}, nil, nil)
	client.RequestInterceptors().Use(func(_ context.Context, cfg *RequestConfig) (*RequestConfig, error) {
		return nil, boom
	}, func(_ context.Context, err error) (*RequestConfig, error) {
		ownHandlerCalled = true
		return nil, err
	}, &InterceptorOptions{Synchronous: true})

	_, err := client.Get(context.Background(), "/ping")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom to propagate through the chained strategy, got %v", err)
	}
	if ownHandlerCalled {
		t.Error("Expected chained semantics: the failing entry's own handler is bypassed")
	}
	if transport.decodedCalls != 0 {
		t.Errorf("Expected no dispatch, got %d", transport.decodedCalls)
	}
}

func TestDispatchSelectsExactlyOneShape(t *testing.T) {
	cases := []struct {
		name    string
		config  *RequestConfig
		decoded int
		raw     int
		native  int
	}{
		{"decoded", &RequestConfig{}, 1, 0, 0},
		{"raw", &RequestConfig{Raw: true}, 0, 1, 0},
		{"native", &RequestConfig{Native: true}, 0, 0, 1},
		{"native wins over raw", &RequestConfig{Raw: true, Native: true}, 0, 0, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := &stubTransport{}
			client := newStubClient(transport)

			if _, err := client.Request(context.Background(), "/ping", tc.config); err != nil {
				t.Fatalf("Request returned error: %v", err)
			}
			if transport.decodedCalls != tc.decoded || transport.rawCalls != tc.raw || transport.nativeCalls != tc.native {
				t.Errorf("Expected calls (decoded=%d raw=%d native=%d), got (%d %d %d)",
					tc.decoded, tc.raw, tc.native, transport.decodedCalls, transport.rawCalls, transport.nativeCalls)
			}
		})
	}
}

func TestTargetAsConfigObject(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport, WithBaseURL("https://api.example.com"))

	_, err := client.Request(context.Background(), &RequestConfig{URL: "/things", Method: "put"}, nil)
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if transport.lastConfig.Method != http.MethodPut {
		t.Errorf("Expected method PUT, got %s", transport.lastConfig.Method)
	}
	if transport.lastURL != "https://api.example.com/things" {
		t.Errorf("Expected joined URL, got %s", transport.lastURL)
	}
}

func TestInterceptorRewriteToAbsoluteURLDropsBaseURL(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport, WithBaseURL("https://api.example.com"))

	client.OnRequest(func(cfg *RequestConfig) *RequestConfig {
		cfg.URL = "https://mirror.example.com/ping"
		return cfg
	})

	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if transport.lastURL != "https://mirror.example.com/ping" {
		t.Errorf("Expected rewritten absolute URL to win over BaseURL, got %s", transport.lastURL)
	}
}

func TestInvalidTargetRejected(t *testing.T) {
	client := newStubClient(&stubTransport{})

	_, err := client.Request(context.Background(), 42, nil)
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("Expected ErrInvalidTarget, got %v", err)
	}
}

func TestDispatchCleansParams(t *testing.T) {
	transport := &stubTransport{}
	client := newStubClient(transport)

	_, err := client.Request(context.Background(), "/ping", &RequestConfig{Params: map[string]any{
		"a": 1,
		"b": nil,
		"c": "",
		"d": []string{},
		"e": []int{2, 2, 3},
	}})
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	params := transport.lastConfig.Params
	if len(params) != 2 {
		t.Fatalf("Expected 2 surviving params, got %v", params)
	}
	if _, ok := params["a"]; !ok {
		t.Error("Expected param a to survive")
	}
	members, ok := params["e"].([]int)
	if !ok || len(members) != 2 || members[0] != 2 || members[1] != 3 {
		t.Errorf("Expected e deduplicated to [2 3], got %v", params["e"])
	}
}

func TestTimeoutSettlesAsFailure(t *testing.T) {
	transport := &stubTransport{
		decoded: func(ctx context.Context, _ string, _ *RequestConfig) (any, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return "pong", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	client := newStubClient(transport, WithTimeout(20*time.Millisecond))

	client.OnRequest(func(cfg *RequestConfig) *RequestConfig {
		if cfg.Headers == nil {
			cfg.Headers = http.Header{}
		}
		cfg.Headers.Set("X-Test", "1")
		return cfg
	})
	client.OnResponse(func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToUpper(s)
		}
		return v
	})

	_, err := client.Get(context.Background(), "/ping")
	if err == nil {
		t.Fatal("Expected timeout failure")
	}
	if !IsTimeout(err) {
		t.Errorf("Expected timeout classification, got %v", err)
	}
}

func TestFastResponsePassesThroughInterceptors(t *testing.T) {
	transport := &stubTransport{
		decoded: func(ctx context.Context, _ string, _ *RequestConfig) (any, error) {
			select {
			case <-time.After(5 * time.Millisecond):
				return "pong", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	client := newStubClient(transport, WithTimeout(500*time.Millisecond))

	client.OnRequest(func(cfg *RequestConfig) *RequestConfig {
		if cfg.Headers == nil {
			cfg.Headers = http.Header{}
		}
		cfg.Headers.Set("X-Test", "1")
		return cfg
	})
	client.OnResponse(func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToUpper(s)
		}
		return v
	})

	result, err := client.Get(context.Background(), "/ping")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if result != "PONG" {
		t.Errorf("Expected PONG, got %v", result)
	}
	if transport.lastConfig.Headers.Get("X-Test") != "1" {
		t.Error("Expected request interceptor header on dispatched config")
	}
}

func TestResponseErrorHandlerRecoversDispatchFailure(t *testing.T) {
	transport := &stubTransport{
		decoded: func(_ context.Context, _ string, _ *RequestConfig) (any, error) {
			return nil, errors.New("connection refused")
		},
	}
	client := newStubClient(transport)

	client.OnResponseError(func(err error) any {
		return "fallback"
	})

	result, err := client.Get(context.Background(), "/ping")
	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if result != "fallback" {
		t.Errorf("Expected fallback value, got %v", result)
	}
}

// fixedJar serves a static cookie set for any URL.
type fixedJar struct {
	cookies []*http.Cookie
}

func (j *fixedJar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.cookies = append(j.cookies, cookies...)
}

func (j *fixedJar) Cookies(_ *url.URL) []*http.Cookie {
	return j.cookies
}

func TestXSRFHeaderInjectedWhenCredentialsInclude(t *testing.T) {
	jar := &fixedJar{cookies: []*http.Cookie{{Name: "XSRF-TOKEN", Value: "secret%3Dtoken"}}}
	transport := &stubTransport{}
	client := newStubClient(transport, WithCookieJar(jar), WithCredentials(CredentialsInclude))

	if _, err := client.Get(context.Background(), "https://api.example.com/ping"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	got := transport.lastConfig.Headers.Get(DefaultXSRFHeaderName)
	if got != "secret=token" {
		t.Errorf("Expected decoded cookie value on %s, got %q", DefaultXSRFHeaderName, got)
	}
}

func TestXSRFHeaderOmittedWithoutCredentials(t *testing.T) {
	jar := &fixedJar{cookies: []*http.Cookie{{Name: "XSRF-TOKEN", Value: "secret"}}}
	transport := &stubTransport{}
	client := newStubClient(transport, WithCookieJar(jar))

	if _, err := client.Get(context.Background(), "https://api.example.com/ping"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if got := transport.lastConfig.Headers.Get(DefaultXSRFHeaderName); got != "" {
		t.Errorf("Expected no XSRF header, got %q", got)
	}
}
