package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerProduction(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf, "production")
	logger.Info("hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "production logs must be JSON")
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])

	// Debug is suppressed in production.
	buf.Reset()
	logger.Debug("quiet")
	assert.Empty(t, buf.String())
}

func TestNewLoggerDevelopment(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf, "development")
	logger.Debug("verbose")

	assert.Contains(t, buf.String(), "verbose")
	assert.NotContains(t, buf.String(), `{"`)
}
