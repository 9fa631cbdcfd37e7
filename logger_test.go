package ofetch

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologAdapterLevels(t *testing.T) {
	var buf strings.Builder
	adapter := NewZerologAdapter(zerolog.New(&buf))

	adapter.Debug("debug message", "key", "value")
	adapter.Info("info message")
	adapter.Warn("warn message")
	adapter.Error("error message")

	out := buf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message", `"key":"value"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestNewSimpleLoggerReusability(t *testing.T) {
	logger := NewSimpleLogger()
	if logger == nil {
		t.Fatal("NewSimpleLogger returned nil")
	}
	logger.Debug("first", "n", 1)
	logger.Debug("second", "n", 2)
}

func TestDefaultDebugConfig(t *testing.T) {
	config := DefaultDebugConfig()

	if config.Enabled {
		t.Error("Expected debug to default off")
	}
	if !config.LogRequests || !config.LogInterceptors || !config.LogDispatch {
		t.Error("Expected all log areas to default on")
	}
	if config.RequestIDGen == nil {
		t.Fatal("Expected a default request ID generator")
	}
	if config.RequestIDGen() == config.RequestIDGen() {
		t.Error("Expected generated request IDs to be unique")
	}
}
