package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anshu-9837/Banning/config"
)

func TestNewWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(config.LoggingConfig{Level: "info", Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)

	logger.Info("batch finished", zap.String("batch_id", "MULTI1"))
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"batch_id":"MULTI1"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
