package ofetch

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// mergeConfig deep-merges call over defaults and returns a fresh config.
// Call-site values win at every key. Header values and slices replace the
// default wholesale; nested param maps are merged key by key.
func mergeConfig(defaults, call *RequestConfig) *RequestConfig {
	merged := &RequestConfig{}
	if defaults != nil {
		*merged = *defaults
		merged.Headers = cloneHeader(defaults.Headers)
		merged.Params = mergeParams(nil, defaults.Params)
	}
	if call == nil {
		return merged
	}

	if call.URL != "" {
		merged.URL = call.URL
	}
	if call.Method != "" {
		merged.Method = call.Method
	}
	if call.BaseURL != "" {
		merged.BaseURL = call.BaseURL
	}
	if call.Credentials != "" {
		merged.Credentials = call.Credentials
	}
	if call.XSRFCookieName != "" {
		merged.XSRFCookieName = call.XSRFCookieName
	}
	if call.XSRFHeaderName != "" {
		merged.XSRFHeaderName = call.XSRFHeaderName
	}
	if call.Body != nil {
		merged.Body = call.Body
	}
	if call.Timeout > 0 {
		merged.Timeout = call.Timeout
	}
	merged.Raw = merged.Raw || call.Raw
	merged.Native = merged.Native || call.Native

	if len(call.Headers) > 0 {
		if merged.Headers == nil {
			merged.Headers = http.Header{}
		}
		for key, values := range call.Headers {
			merged.Headers[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
	merged.Params = mergeParams(merged.Params, call.Params)

	return merged
}

// mergeParams merges call over base. Nested map values are merged
// recursively; everything else, slices included, is replaced.
func mergeParams(base, call map[string]any) map[string]any {
	if base == nil && call == nil {
		return nil
	}
	merged := make(map[string]any, len(base)+len(call))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range call {
		callMap, callIsMap := value.(map[string]any)
		baseMap, baseIsMap := merged[key].(map[string]any)
		if callIsMap && baseIsMap {
			merged[key] = mergeParams(baseMap, callMap)
			continue
		}
		merged[key] = value
	}
	return merged
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	return h.Clone()
}

// normalizeConfig uppercases the method (default GET), fills the XSRF
// defaults, and drops BaseURL when the target URL is already absolute.
func normalizeConfig(config *RequestConfig) {
	config.Method = strings.ToUpper(config.Method)
	if config.Method == "" {
		config.Method = http.MethodGet
	}
	if config.XSRFCookieName == "" {
		config.XSRFCookieName = DefaultXSRFCookieName
	}
	if config.XSRFHeaderName == "" {
		config.XSRFHeaderName = DefaultXSRFHeaderName
	}
	if isAbsoluteURL(config.URL) {
		config.BaseURL = ""
	}
}

// isAbsoluteURL reports whether raw carries an http or https scheme.
func isAbsoluteURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// joinURL prepends base to path unless base is empty.
func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// CleanParams returns a copy of params with meaningless entries removed:
// nil values, empty strings and empty slices are dropped, and slice members
// are de-duplicated preserving first-seen order.
func CleanParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	cleaned := make(map[string]any, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice {
			if rv.Len() == 0 {
				continue
			}
			cleaned[key] = dedupeSlice(rv)
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

// dedupeSlice removes duplicate members preserving order. Members are keyed
// by their printed form so mixed and non-comparable element types are safe.
func dedupeSlice(rv reflect.Value) any {
	seen := make(map[string]struct{}, rv.Len())
	out := reflect.MakeSlice(rv.Type(), 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		member := rv.Index(i)
		key := fmt.Sprintf("%v", member.Interface())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = reflect.Append(out, member)
	}
	return out.Interface()
}
