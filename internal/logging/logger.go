package logging

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// ParseLevel converts a config string to a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn:
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	case LogLevelFatal:
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError, LogLevelFatal:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  atomic.Pointer[zap.Logger]
)

func init() {
	base.Store(newZap(level, os.Stdout))
}

func newZap(enabler zapcore.LevelEnabler, outputs ...io.Writer) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	syncers := make([]zapcore.WriteSyncer, 0, len(outputs))
	for _, w := range outputs {
		syncers = append(syncers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		enabler,
	)
	return zap.New(core)
}

// Configure replaces the process-wide sink. Loggers created earlier pick up
// the new sink on their next call.
func Configure(minLevel LogLevel, outputs ...io.Writer) {
	if len(outputs) == 0 {
		outputs = []io.Writer{os.Stdout}
	}
	level.SetLevel(minLevel.zapLevel())
	base.Store(newZap(level, outputs...))
}

// SetMinLevel sets the process-wide minimum level
func SetMinLevel(minLevel LogLevel) {
	level.SetLevel(minLevel.zapLevel())
}

// Sync flushes buffered log entries
func Sync() error {
	return base.Load().Sync()
}

// Logger provides structured logging for one component
type Logger struct {
	component string
	zap       *zap.Logger // optional override, used by tests and file loggers
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// NewLoggerWithZap creates a component logger bound to a specific zap logger
func NewLoggerWithZap(component string, z *zap.Logger) *Logger {
	return &Logger{component: component, zap: z}
}

func (l *Logger) target() *zap.Logger {
	z := l.zap
	if z == nil {
		z = base.Load()
	}
	return z.Named(l.component)
}

// log writes a log entry
func (l *Logger) log(lvl zapcore.Level, message string, err error, context map[string]interface{}) {
	z := l.target()
	if ce := z.Check(lvl, message); ce != nil {
		ce.Write(fields(err, context)...)
	}
}

// fields turns a context map into zap fields in a stable key order
func fields(err error, context map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(context)+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, zap.Any(k, context[k]))
	}
	return out
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(zapcore.DebugLevel, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(zapcore.InfoLevel, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(zapcore.InfoLevel, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(zapcore.WarnLevel, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(zapcore.WarnLevel, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(zapcore.ErrorLevel, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(zapcore.ErrorLevel, message, err, context)
}

// Fatal logs an unrecoverable error. It does not exit; the caller decides.
func (l *Logger) Fatal(message string, err error) {
	l.log(zapcore.ErrorLevel, message, err, map[string]interface{}{"severity": string(LogLevelFatal)})
}

// WithContext returns a log function that includes context
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		context: context,
	}
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

// Debug logs a debug message with pre-set context
func (cl *ContextLogger) Debug(message string) {
	cl.logger.log(zapcore.DebugLevel, message, nil, cl.context)
}

// Info logs an info message with pre-set context
func (cl *ContextLogger) Info(message string) {
	cl.logger.log(zapcore.InfoLevel, message, nil, cl.context)
}

// Warn logs a warning message with pre-set context
func (cl *ContextLogger) Warn(message string) {
	cl.logger.log(zapcore.WarnLevel, message, nil, cl.context)
}
