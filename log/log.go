package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log      *zap.SugaredLogger
	level    zap.AtomicLevel
	errorLog *os.File
)

func init() {
	// $LOG_LEVEL applies to tests too, and the logger must never be nil.
	lvl := "error"
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		lvl = s
	}
	Init(lvl, "stderr")
}

// Logger returns the package level sugared logger.
func Logger() *zap.SugaredLogger { return log }

// Init initializes the logger. Output can be either "stdout", "stderr" or a
// file path. If $LOG_FORMAT is "json", lines are encoded as JSON objects.
func Init(logLevel string, output string) {
	cfg := newConfig(logLevel, output, os.Getenv("LOG_FORMAT"))
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	level = cfg.Level
	log = logger.Sugar()
	log.Debugf("logger initialized at level %s with output %s", logLevel, output)
}

// SetLevel changes the level of the current logger without rebuilding it.
func SetLevel(logLevel string) error {
	lvl, ok := levelFromString(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	level.SetLevel(lvl)
	return nil
}

// Level returns the current log level as a string.
func Level() string {
	return level.Level().String()
}

// SetFileErrorLog if set writes the Warning and Error messages to a file.
func SetFileErrorLog(path string) error {
	log.Infof("using file %s for logging warnings and errors", path)
	var err error
	errorLog, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	return err
}

func levelFromString(logLevel string) (zapcore.Level, bool) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zap.DebugLevel, true
	case "info":
		return zap.InfoLevel, true
	case "warn":
		return zap.WarnLevel, true
	case "error":
		return zap.ErrorLevel, true
	case "fatal":
		return zap.FatalLevel, true
	default:
		return zap.InfoLevel, false
	}
}

func newConfig(logLevel, output, format string) zap.Config {
	lvl, _ := levelFromString(logLevel)
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalColorLevelEncoder,
		EncodeTime: func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
			encoder.AppendString(ts.Local().Format(time.RFC3339))
		},
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := "console"
	if format == "json" {
		encoding = "json"
		encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(lvl),
		Encoding: encoding,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}
}

func writeErrorToFile(msg string) {
	if errorLog == nil {
		return
	}
	go errorLog.WriteString(fmt.Sprintf("[%s] %s\n", time.Now().Format("2006/0102/150405"), msg))
}

// Debug sends a debug level log message
func Debug(args ...any) {
	log.Debug(args...)
}

// Info sends an info level log message
func Info(args ...any) {
	log.Info(args...)
}

// Warn sends a warn level log message
func Warn(args ...any) {
	log.Warn(args...)
	writeErrorToFile(fmt.Sprint(args...))
}

// Error sends an error level log message
func Error(args ...any) {
	log.Error(args...)
	writeErrorToFile(fmt.Sprint(args...))
}

// Fatal sends a fatal level log message
func Fatal(args ...any) {
	log.Fatal(args...)
	// log.Fatal always exits the program.
	panic("unreachable")
}

// Debugf sends a formatted debug level log message
func Debugf(template string, args ...any) {
	log.Debugf(template, args...)
}

// Infof sends a formatted info level log message
func Infof(template string, args ...any) {
	log.Infof(template, args...)
}

// Warnf sends a formatted warn level log message
func Warnf(template string, args ...any) {
	log.Warnf(template, args...)
	writeErrorToFile(fmt.Sprintf(template, args...))
}

// Errorf sends a formatted error level log message
func Errorf(template string, args ...any) {
	log.Errorf(template, args...)
	writeErrorToFile(fmt.Sprintf(template, args...))
}

// Fatalf sends a formatted fatal level log message
func Fatalf(template string, args ...any) {
	log.Fatalf(template, args...)
	panic("unreachable")
}

// Debugw sends a key-value formatted debug level log message
func Debugw(msg string, keysAndValues ...any) {
	log.Debugw(msg, keysAndValues...)
}

// Infow sends a key-value formatted info level log message
func Infow(msg string, keysAndValues ...any) {
	log.Infow(msg, keysAndValues...)
}

// Warnw sends a key-value formatted warn level log message
func Warnw(msg string, keysAndValues ...any) {
	log.Warnw(msg, keysAndValues...)
	writeErrorToFile(msg)
}

// Errorw sends a key-value formatted error level log message
func Errorw(msg string, keysAndValues ...any) {
	log.Errorw(msg, keysAndValues...)
	writeErrorToFile(msg)
}
