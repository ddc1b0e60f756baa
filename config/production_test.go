package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *ProductionConfig {
	cfg := FromEnv()
	cfg.JWT.SecretKey = strings.Repeat("k", 32)
	return cfg
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, 5*time.Minute, cfg.OTP.Expiry)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, 50, cfg.Report.MaxReportsPerDay)
	assert.Equal(t, 25, cfg.Report.MaxBatchCount)
	assert.Equal(t, 10, cfg.Report.MaxDelaySeconds)
	assert.Equal(t, 0.95, cfg.Report.SuccessProbability)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionTimeout)
	assert.Equal(t, time.Minute, cfg.Report.ResumeInterval)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REPORT_MAX_BATCH_COUNT", "5")
	t.Setenv("REPORT_SUCCESS_PROBABILITY", "0.5")
	t.Setenv("OTP_EXPIRY", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := FromEnv()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Report.MaxBatchCount)
	assert.Equal(t, 0.5, cfg.Report.SuccessProbability)
	assert.Equal(t, 2*time.Minute, cfg.OTP.Expiry)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
}

func TestValidateProductionConfig(t *testing.T) {
	require.NoError(t, ValidateProductionConfig(validConfig()))

	cfg := validConfig()
	cfg.JWT.SecretKey = "short"
	cfg.Database.Driver = "mysql"
	cfg.Report.SuccessProbability = 1.5
	cfg.Report.ResumeInterval = 0
	err := ValidateProductionConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "REPORT_SUCCESS_PROBABILITY")
	assert.Contains(t, err.Error(), "REPORT_RESUME_INTERVAL")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BANNING_TEST_VALUE=\"from-file\"\n"), 0o600))
	t.Setenv("BANNING_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("BANNING_TEST_VALUE"))
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("BANNING_TEST_VALUE"))
}
