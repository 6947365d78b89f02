package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
)

// Logger wraps zerolog.Logger with the service name it was built for.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init initializes the global logger from config.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	SetGlobalLogger(New(&cfg, "reqkit"))
}

// New creates a new logger instance with configuration.
func New(cfg *Config, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zl = zerolog.New(consoleWriter(outputWriter(cfg.Output), cfg.NoColor))
	default:
		zl = zerolog.New(outputWriter(cfg.Output))
	}
	zl = zl.Level(level)

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}
	if serviceName != "" {
		zl = zl.With().Str("service", serviceName).Logger()
	}

	return &Logger{logger: zl, service: serviceName}
}

// NewDefault creates a console logger at info level.
func NewDefault(serviceName string) *Logger {
	return New(&Config{
		Level:     "info",
		Format:    FormatConsole,
		Output:    "stdout",
		Timestamp: true,
	}, serviceName)
}

// NewWithWriter creates a JSON logger writing to w. Useful for capturing
// log lines in tests.
func NewWithWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return &Logger{logger: zerolog.New(w).Level(lvl)}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithContext returns a logger enriched with the trace and span IDs of the
// span carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return &Logger{
		logger: l.logger.With().
			Str(FieldTraceID, sc.TraceID().String()).
			Str(FieldSpanID, sc.SpanID().String()).
			Logger(),
		service: l.service,
	}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	return l.logger.GetLevel() <= level && zerolog.GlobalLevel() <= level
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Log writes msg at the given level.
func (l *Logger) Log(level zerolog.Level, msg string, fields ...map[string]interface{}) {
	event := l.logger.WithLevel(level)
	addFields(event, fields...)
	event.Msg(msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	event := l.logger.Debug()
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	event := l.logger.Info()
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	event := l.logger.Warn()
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	event := l.logger.Error()
	addFields(event, fields...)
	event.Msg(msg)
}

// --- Global logger ---

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the global logger, creating a default one if needed.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefault("reqkit")
	}
	return globalLogger
}

// Package-level convenience functions delegate to the global logger.

func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

// WithComponent returns a component-tagged logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// --- internal helpers ---

func addFields(event *zerolog.Event, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
}

func outputWriter(output string) *os.File {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

var levelTags = map[string]string{
	"TRACE": "[TRC]",
	"DEBUG": "[DBG]",
	"INFO":  "[INF]",
	"WARN":  "[WRN]",
	"ERROR": "[ERR]",
}

var levelColors = map[string]string{
	"DEBUG": "\033[36m",
	"INFO":  "\033[32m",
	"WARN":  "\033[33m",
	"ERROR": "\033[31m",
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToUpper(fmt.Sprintf("%s", i))
			tag, ok := levelTags[lvl]
			if !ok {
				tag = fmt.Sprintf("[%s]", lvl)
			}
			if color, ok := levelColors[lvl]; ok && !noColor {
				return color + tag + "\033[0m"
			}
			return tag
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	}
}
