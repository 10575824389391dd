package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	require.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestGetForComponentAddsField(t *testing.T) {
	prevLogger, prevLevel := Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	InitializeWithWriter("debug", &buf)

	l := GetForComponent("pricing")
	l.Info().Msg("hello")

	require.Contains(t, buf.String(), `"component":"pricing"`)
	require.Contains(t, buf.String(), `"message":"hello"`)
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "circle.log")
	w, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
}

func TestInitializeWithFileWritesJSON(t *testing.T) {
	prevLogger, prevLevel := Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "circle.log")
	require.NoError(t, InitializeWithFile("info", path))

	l := GetForComponent("web_server")
	l.Info().Msg("started")
	l.Debug().Msg("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"component":"web_server"`)
	require.Contains(t, string(data), `"message":"started"`)
	require.NotContains(t, string(data), "hidden")
}

func TestInitializeWithFileRejectsBadPath(t *testing.T) {
	prevLogger, prevLevel := Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	err := InitializeWithFile("info", filepath.Join(t.TempDir(), "missing", "circle.log"))
	require.Error(t, err)
}
