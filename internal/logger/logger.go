package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var Global = zerolog.New(os.Stderr).With().Timestamp().Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if err == nil {
			return nil
		}
		type stackTracer interface {
			StackTrace() errors.StackTrace
		}
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		return nil
	}
}

// Configure sets the global level and where Global writes to. output is one
// of stderr, stdout or file; file falls back to stderr when path can't be
// opened.
func Configure(level, output, path string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if output == "" {
		output = "stdout"
	}

	switch output {
	case "stderr":
		Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	case "stdout":
		Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	case "file":
		if path == "" {
			Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			return nil
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			Global.Error().Err(err).Msgf("couldn't open log file %s, defaulting to stderr", path)
		} else {
			Global = Global.Output(file)
		}
	default:
		Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		Global.Error().Msgf("Unknown log output: %s, defaulting to stderr", output)
	}

	return nil
}

// SetOutput points Global at w without console formatting.
func SetOutput(w io.Writer) {
	Global = Global.Output(w)
}
