package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestFromContextFallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestLogAlertFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithUser(zerolog.New(&buf), "u1")

	LogAlert(logger, "Acme", "gain", 150, 15, -15, []string{"+50.00% vs Issue Price"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "alert", entry["event"])
	assert.Equal(t, "Acme", entry["company"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, 150.0, entry["cmp"])
}

func TestLogIntegrityOneLinePerIssue(t *testing.T) {
	var buf bytes.Buffer
	LogIntegrity(zerolog.New(&buf), []error{errors.New("a"), errors.New("b")})
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestNewLoggerWithConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "debug",
		File:     true,
		FilePath: path,
		MaxSize:  1,
	})
	logger.Debug().Msg("to file")
	assert.FileExists(t, path)
}
