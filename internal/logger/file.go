package logger

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a rotated JSON log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// WithFile tees l into a rotated JSON file at the same level as l.
// The returned close func flushes and closes the file.
func WithFile(l *zap.Logger, cfg FileConfig) (*zap.Logger, func() error, error) {
	if cfg.Path == "" {
		return nil, nil, errors.New("log file path is required")
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	teed := l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		enabled := zap.LevelEnablerFunc(c.Enabled)
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			enabled,
		)
		return zapcore.NewTee(c, fileCore)
	}))

	closeFn := func() error {
		_ = teed.Sync()
		return rotator.Close()
	}
	return teed, closeFn, nil
}
