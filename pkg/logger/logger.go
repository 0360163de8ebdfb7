package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Until Init runs every helper writes to a no-op logger.
var (
	InfoLogger  = zap.NewNop()
	FatalLogger = zap.NewNop()
)

var (
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init builds the process loggers. level is a zap level name ("debug",
// "info", ...); development switches to the console encoder.
func Init(level string, development bool) error {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	InfoLogger = l
	FatalLogger = l
	return nil
}

func Sync() {
	_ = InfoLogger.Sync()
}

func with() *zap.Logger {
	return InfoLogger.With(zap.String("service", serviceName))
}

func Debug(format string, args ...interface{}) {
	with().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	with().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	with().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	with().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	FatalLogger.With(
		zap.String("service", serviceName),
	).Fatal(msg)
}
