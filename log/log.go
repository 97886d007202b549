package log

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var sugaredLogger *zap.SugaredLogger
var logger *zap.Logger

var Config = zap.NewDevelopmentConfig()

func init() {
	Config.EncoderConfig.NewReflectedEncoder = func(w io.Writer) zapcore.ReflectedEncoder {
		return yaml.NewEncoder(w)
	}
	Config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	Config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	Config.Level.SetLevel(zapcore.InfoLevel)
	logger = zap.New(
		zapcore.NewCore(zapcore.NewConsoleEncoder(Config.EncoderConfig), zapcore.AddSync(multipleWriter), Config.Level),
	)
	sugaredLogger = logger.Sugar()
}

// SetLevel accepts zap level names such as "debug", "info" or "warn".
func SetLevel(level string) error {
	lv, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	Config.Level.SetLevel(lv)
	return nil
}

// DisableColor switches level names to plain text, for sinks that are not terminals.
func DisableColor() {
	Config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	logger = zap.New(
		zapcore.NewCore(zapcore.NewConsoleEncoder(Config.EncoderConfig), zapcore.AddSync(multipleWriter), Config.Level),
	)
	sugaredLogger = logger.Sugar()
}

type Zap interface {
	With(fields ...zap.Field) *zap.Logger
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

func Debug(args ...any) {
	sugaredLogger.Debug(args...)
}

func Info(args ...any) {
	sugaredLogger.Info(args...)
}

func Warn(args ...any) {
	sugaredLogger.Warn(args...)
}

func Error(args ...any) {
	sugaredLogger.Error(args...)
}

func Debugf(format string, args ...interface{}) {
	sugaredLogger.Debugf(format, args...)
}

// Infof logs a message at level Info on the standard logger.
func Infof(format string, args ...interface{}) {
	sugaredLogger.Infof(format, args...)
}

// Warnf logs a message at level Warn on the standard logger.
func Warnf(format string, args ...interface{}) {
	sugaredLogger.Warnf(format, args...)
}

// Errorf logs a message at level Error on the standard logger.
func Errorf(format string, args ...interface{}) {
	sugaredLogger.Errorf(format, args...)
}

// Fatalf logs a message at level Fatal on the standard logger then the process will exit with status set to 1.
func Fatalf(format string, args ...interface{}) {
	sugaredLogger.Fatalf(format, args...)
}

func Sync() error {
	return logger.Sync()
}
