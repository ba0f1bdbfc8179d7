package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(Config{
		Level:      "debug",
		Format:     "json",
		OutputPath: out,
		Fields:     map[string]string{"app": "manual-markers"},
	})
	require.NoError(t, err)

	logger.Debug("page rendered")
	_ = logger.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "page rendered", entry["msg"])
	assert.Equal(t, "manual-markers", entry["app"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := New(Config{Level: "chatty", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(0))
}
