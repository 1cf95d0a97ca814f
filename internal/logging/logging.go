package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"equipment-monitor-backend/config"
)

var (
	base *zap.Logger
	once sync.Once
)

// Init builds the process-wide logger: JSON to a rotated file plus a console
// core. Safe to call more than once; only the first call takes effect.
func Init(cfg *config.LoggingConfig) error {
	var initErr error
	once.Do(func() {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			initErr = err
			return
		}

		level := zap.InfoLevel
		if err := level.Set(cfg.Level); err != nil {
			level = zap.InfoLevel
		}

		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "equipmond.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(logFile),
			level,
		)
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stdout),
			level,
		)

		base = zap.New(zapcore.NewTee(fileCore, consoleCore),
			zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	})
	return initErr
}

// L returns the named component logger. Falls back to a no-op logger when Init
// has not run, which keeps tests quiet.
func L(name string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(name)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
