package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	out := &bytes.Buffer{}

	cmd, shouldExit, err := Parse([]string{"-cache-dir", "/tmp/c", "list"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "list", cmd.Name)
	assert.Equal(t, "/tmp/c", cmd.Config.CacheDir)
	assert.Equal(t, "info", cmd.Config.LogLevel)
}

func TestParseShow(t *testing.T) {
	out := &bytes.Buffer{}

	t.Run("with fingerprint", func(t *testing.T) {
		cmd, _, err := Parse([]string{"show", "abcd1234"}, out)
		require.NoError(t, err)
		assert.Equal(t, "show", cmd.Name)
		assert.Equal(t, "abcd1234", cmd.Fingerprint)
	})

	t.Run("missing fingerprint", func(t *testing.T) {
		_, _, err := Parse([]string{"show"}, out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, exitErr.Message, "FINGERPRINT")
	})
}

func TestParseUnknownCommand(t *testing.T) {
	_, _, err := Parse([]string{"frobnicate"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "unknown command")
}

func TestParseNoArgsPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}

	_, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseInvalidLogLevel(t *testing.T) {
	_, _, err := Parse([]string{"-log-level", "verbose", "list"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "invalid log_level")
}

func TestParseFlagError(t *testing.T) {
	_, _, err := Parse([]string{"--not-a-flag", "list"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
