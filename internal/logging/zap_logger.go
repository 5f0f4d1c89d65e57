package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// Log formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ZapLogger emits one JSON object per message. Messages are formatted with
// fmt before they reach zap, so callers keep the printf-style Logger contract.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a JSON logger writing to w. Verbose messages are
// emitted at debug level and only when verbose is true.
func NewZapLogger(w io.Writer, verbose bool, fields ...zap.Field) *ZapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return &ZapLogger{logger: zap.New(core).With(fields...)}
}

func (l *ZapLogger) Verbose(format string, args ...interface{}) {
	l.logger.Debug(sprintf(format, args))
}

func (l *ZapLogger) Info(format string, args ...interface{}) {
	l.logger.Info(sprintf(format, args))
}

func (l *ZapLogger) Error(format string, args ...interface{}) {
	l.logger.Error(sprintf(format, args))
}

// With returns a logger that adds a structured field to every message.
func (l *ZapLogger) With(key, value string) *ZapLogger {
	return &ZapLogger{logger: l.logger.With(zap.String(key, value))}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func sprintf(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// NullLogger discards all messages.
type NullLogger struct{}

func NewNullLogger() *NullLogger { return &NullLogger{} }

func (NullLogger) Verbose(string, ...interface{}) {}
func (NullLogger) Info(string, ...interface{})    {}
func (NullLogger) Error(string, ...interface{})   {}

// New returns the logger for the given --log-format value, writing to stderr.
func New(format string, verbose bool) (tripload.Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatConsole:
		return NewConsoleLogger(verbose), nil
	case FormatJSON:
		return NewZapLogger(os.Stderr, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (use console or json): %w", format, tripload.ErrInvalidConfig)
	}
}
