package logger

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

func InitLogger() *zerolog.Logger {
	return InitLoggerWithWriter(os.Stdout)
}

// InitLoggerWithWriter installs a console logger writing to out as the
// default context logger.
func InitLoggerWithWriter(out io.Writer) *zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}

	logger := zerolog.New(consoleWriter).
		With().
		Timestamp().
		Caller().
		Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zerolog.DefaultContextLogger = &logger
	return &logger
}

// SetLevel applies a textual level such as "info" or "warn". Unknown levels
// leave the current level untouched.
func SetLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		Logger(context.Background()).Warn().Err(err).Msgf("ignore unknown log level %q", level)
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

func Logger(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
