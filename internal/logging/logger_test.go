package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "bot.log")

	logger, closer := New(Options{AppName: "bot", Env: "production", Level: "debug", File: file, Console: &console})
	logger.Debug().Str("user", "42").Msg("answer accepted")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "answer accepted")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user":"42"`)
	assert.Contains(t, string(data), `"app":"bot"`)
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var console bytes.Buffer
	logger, _ := New(Options{Level: "warn", Console: &console})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestContextRoundTrip(t *testing.T) {
	var console bytes.Buffer
	logger, _ := New(Options{Console: &console})

	ctx := IntoContext(context.Background(), logger.With().Str("component", "bot").Logger())
	fromCtx := FromContext(ctx)
	fromCtx.Info().Msg("from context")
	assert.Contains(t, console.String(), "from context")

	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	assert.NotContains(t, console.String(), "dropped")
}
