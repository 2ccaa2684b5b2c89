package logger

import (
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// logFileMaxSizeMB is the size after which the log file is rotated.
	logFileMaxSizeMB = 5
	// logFileMaxBackups is the number of rotated files kept on disk.
	logFileMaxBackups = 10
	// logFileMaxAgeDays is the retention period of rotated files.
	logFileMaxAgeDays = 30
)

// WithFileOutput is an option that duplicates every entry into a rotating
// log file at path. The file gets a plain (colorless) console encoding.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithFileOutput(path string, level zapcore.LevelEnabler) zap.Option {
	writer := &lumberjack.Logger{
		Filename:   filepath.Clean(path),
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalLevelEncoder))

	fileCore := zapcore.NewCore(encoder, zapcore.AddSync(writer), level)

	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})
}

// Setup configures the global logger from a level name and an optional log file.
// Unknown level names fall back to info and report false.
func Setup(levelName, filePath string) bool {
	level, ok := ParseLogLevel(levelName)
	if levelName == "" {
		ok = true
	}

	SetLevel(level)

	if filePath != "" {
		SetLogger(New(defaultLevel, WithFileOutput(filePath, defaultLevel)))
	}

	return ok
}
