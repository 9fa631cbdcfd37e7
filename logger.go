package ofetch

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the minimal structured logging interface the client emits debug
// output through. keysAndValues alternate key and value.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig gates what the client logs. All areas default on; Enabled
// defaults off so construction is silent without opting in.
type DebugConfig struct {
	Enabled         bool
	LogRequests     bool
	LogInterceptors bool
	LogDispatch     bool
	RequestIDGen    func() string
}

// DefaultDebugConfig returns the default debug configuration with UUID
// request IDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:         false,
		LogRequests:     true,
		LogInterceptors: true,
		LogDispatch:     true,
		RequestIDGen:    uuid.NewString,
	}
}

// ZerologAdapter adapts a zerolog.Logger to the Logger interface.
type ZerologAdapter struct {
	log zerolog.Logger
}

// NewZerologAdapter wraps an existing zerolog.Logger.
func NewZerologAdapter(log zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{log: log}
}

// NewSimpleLogger returns a console logger writing to stderr.
func NewSimpleLogger() *ZerologAdapter {
	writer := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})
	return &ZerologAdapter{log: zerolog.New(writer).With().Timestamp().Logger()}
}

// Debug implements Logger.
func (z *ZerologAdapter) Debug(msg string, keysAndValues ...any) {
	z.log.Debug().Fields(keysAndValues).Msg(msg)
}

// Info implements Logger.
func (z *ZerologAdapter) Info(msg string, keysAndValues ...any) {
	z.log.Info().Fields(keysAndValues).Msg(msg)
}

// Warn implements Logger.
func (z *ZerologAdapter) Warn(msg string, keysAndValues ...any) {
	z.log.Warn().Fields(keysAndValues).Msg(msg)
}

// Error implements Logger.
func (z *ZerologAdapter) Error(msg string, keysAndValues ...any) {
	z.log.Error().Fields(keysAndValues).Msg(msg)
}
