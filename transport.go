package ofetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// HTTPTransport is the default Transport built on *http.Client. It encodes
// query parameters and JSON bodies, decodes response bodies by content type,
// and surfaces non-success statuses as errors for the Decoded and Raw shapes.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client as a Transport. A nil client gets a zero
// http.Client; request lifetimes are bounded by context, not client timeout.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

// Decoded performs the call and returns the parsed response body.
func (t *HTTPTransport) Decoded(ctx context.Context, rawurl string, config *RequestConfig) (any, error) {
	resp, err := t.roundTrip(ctx, rawurl, config)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Raw performs the call and returns the status, headers and parsed body.
func (t *HTTPTransport) Raw(ctx context.Context, rawurl string, config *RequestConfig) (*Response, error) {
	resp, err := t.roundTrip(ctx, rawurl, config)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp, body); err != nil {
		return nil, err
	}
	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header.Clone(),
		Body:    body,
	}, nil
}

// Native performs the call and returns the unprocessed *http.Response. The
// caller owns the body; non-success statuses are not treated as errors.
func (t *HTTPTransport) Native(ctx context.Context, rawurl string, config *RequestConfig) (*http.Response, error) {
	return t.roundTrip(ctx, rawurl, config)
}

func (t *HTTPTransport) roundTrip(ctx context.Context, rawurl string, config *RequestConfig) (*http.Response, error) {
	req, err := buildRequest(ctx, rawurl, config)
	if err != nil {
		return nil, err
	}
	return t.client.Do(req)
}

// buildRequest assembles the *http.Request: query parameters are appended to
// the URL, the body is encoded by type, and headers are copied verbatim.
func buildRequest(ctx context.Context, rawurl string, config *RequestConfig) (*http.Request, error) {
	target, err := url.Parse(rawurl)
	if err != nil {
		return nil, &ClientError{Type: ErrorTypeConfig, Message: "invalid request URL", Cause: err, URL: rawurl}
	}

	if len(config.Params) > 0 {
		query := target.Query()
		encodeParams(query, "", config.Params)
		target.RawQuery = query.Encode()
	}

	body, contentType, err := encodeBody(config.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, target.String(), body)
	if err != nil {
		return nil, &ClientError{Type: ErrorTypeConfig, Message: "building request failed", Cause: err, URL: rawurl}
	}

	for key, values := range config.Headers {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// encodeParams flattens params into query values. Slice members repeat the
// key; nested maps use bracket notation (key[sub]=value).
func encodeParams(query url.Values, prefix string, params map[string]any) {
	for key, value := range params {
		name := key
		if prefix != "" {
			name = prefix + "[" + key + "]"
		}
		switch v := value.(type) {
		case map[string]any:
			encodeParams(query, name, v)
		default:
			rv := reflect.ValueOf(value)
			if rv.Kind() == reflect.Slice {
				for i := 0; i < rv.Len(); i++ {
					query.Add(name, fmt.Sprintf("%v", rv.Index(i).Interface()))
				}
				continue
			}
			query.Add(name, fmt.Sprintf("%v", value))
		}
	}
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case string:
		return strings.NewReader(v), "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case url.Values:
		return strings.NewReader(v.Encode()), "application/x-www-form-urlencoded", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, "", &ClientError{Type: ErrorTypeSerialize, Message: "encoding request body failed", Cause: err}
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}

// decodeBody parses the response body by content type: JSON payloads are
// unmarshaled, everything else is returned as a string.
func decodeBody(resp *http.Response) (any, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrorTypeNetwork, Message: "reading response body failed", Cause: err, StatusCode: resp.StatusCode}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, &ClientError{Type: ErrorTypeSerialize, Message: "decoding response body failed", Cause: err, StatusCode: resp.StatusCode}
		}
		return decoded, nil
	}
	return string(raw), nil
}

// statusError turns a non-success status into a rejection carrying the
// decoded body for error handlers to inspect.
func statusError(resp *http.Response, body any) error {
	if resp.StatusCode < 400 {
		return nil
	}
	err := &ClientError{
		Type:       ErrorTypeHTTP,
		Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
	}
	if resp.Request != nil {
		err.URL = resp.Request.URL.String()
		err.Method = resp.Request.Method
	}
	if body != nil {
		err.Cause = fmt.Errorf("%v", body)
	}
	return err
}
