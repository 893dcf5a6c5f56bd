package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func encoderConfig(config Config) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func newEncoder(config Config) zapcore.Encoder {
	if config.Format == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig(config))
	}
	return zapcore.NewJSONEncoder(encoderConfig(config))
}

// getZapCores builds the output cores: an optional terminal core and an
// optional rotated file core under Director.
func getZapCores(config Config) []zapcore.Core {
	level := config.TransportLevel()
	cores := make([]zapcore.Core, 0, 2)

	if config.LogInTerminal {
		cores = append(cores, zapcore.NewCore(
			newEncoder(config),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if config.Director != "" {
		_ = os.MkdirAll(config.Director, 0o755)
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(config.Director, "agent.log"),
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(
			newEncoder(config),
			zapcore.AddSync(rotated),
			level,
		))
	}

	return cores
}
