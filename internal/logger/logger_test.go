package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfigure_Level(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, Configure("debug", "stderr", ""))
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.Error(t, Configure("loud", "stderr", ""))
}

func TestConfigure_File(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Global = Global.Output(os.Stderr)
	})

	path := filepath.Join(t.TempDir(), "mq.log")
	require.NoError(t, Configure("info", "file", path))

	Global.Info().Str("queue", "orders").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"queue":"orders"`)
}

func TestErrorStack(t *testing.T) {
	t.Cleanup(func() { Global = Global.Output(os.Stderr) })

	var buf bytes.Buffer
	SetOutput(&buf)

	Global.Error().Stack().Err(errors.New("boom")).Msg("failed")

	require.Contains(t, buf.String(), `"stack"`)
	require.Contains(t, buf.String(), `"error":"boom"`)
}
