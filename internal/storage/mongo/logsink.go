package mongo

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// driverLevelInfo is the driver's level for informational messages.
// Larger levels are debug detail.
const driverLevelInfo = 1

// slogSink adapts slog.Logger to the driver's LogSink interface.
type slogSink struct {
	logger *slog.Logger
}

var _ options.LogSink = (*slogSink)(nil)

func (s *slogSink) Info(level int, message string, keysAndValues ...any) {
	lvl := slog.LevelDebug
	if level <= driverLevelInfo {
		lvl = slog.LevelInfo
	}
	s.logger.Log(context.Background(), lvl, message, keysAndValues...)
}

func (s *slogSink) Error(err error, message string, keysAndValues ...any) {
	s.logger.Error(message, append([]any{"error", err}, keysAndValues...)...)
}

// loggerOptions routes driver logs for connection and server selection
// events into logger. Command logging is left off; it would log payloads.
func loggerOptions(logger *slog.Logger) *options.LoggerOptions {
	level := options.LogLevelInfo
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		level = options.LogLevelDebug
	}
	return options.Logger().
		SetSink(&slogSink{logger: logger}).
		SetComponentLevel(options.LogComponentConnection, level).
		SetComponentLevel(options.LogComponentServerSelection, level).
		SetComponentLevel(options.LogComponentTopology, options.LogLevelInfo)
}
