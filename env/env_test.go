package env

import (
	"testing"

	"github.com/agentuity/go-paging/logger"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestFlagOrEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("test-flag", "", "Test flag")

	cmd.Flags().Set("test-flag", "flag-value")
	assert.Equal(t, "flag-value", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))

	cmd.Flags().Set("test-flag", "")
	t.Setenv("TEST_ENV", "env-value")
	assert.Equal(t, "env-value", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))

	assert.Equal(t, "default", FlagOrEnv(cmd, "test-flag", "TEST_ENV_MISSING", "default"))
}

func TestIntFlagOrEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("size", 20, "Page size")

	assert.Equal(t, 10, IntFlagOrEnv(cmd, "size", "TEST_SIZE", 10))

	t.Setenv("TEST_SIZE", "15")
	assert.Equal(t, 15, IntFlagOrEnv(cmd, "size", "TEST_SIZE", 10))

	t.Setenv("TEST_SIZE", "fifteen")
	assert.Equal(t, 10, IntFlagOrEnv(cmd, "size", "TEST_SIZE", 10))

	cmd.Flags().Set("size", "30")
	assert.Equal(t, 30, IntFlagOrEnv(cmd, "size", "TEST_SIZE", 10))
}

func TestLogLevel(t *testing.T) {
	testCases := []struct {
		name      string
		flagValue string
		envValue  string
		expected  logger.LogLevel
	}{
		{"debug level via flag", "debug", "", logger.LevelDebug},
		{"debug level via env", "", "DEBUG", logger.LevelDebug},
		{"warn level via flag", "warn", "", logger.LevelWarn},
		{"warn level via env", "", "WARN", logger.LevelWarn},
		{"error level via flag", "error", "", logger.LevelError},
		{"trace level via env", "", "TRACE", logger.LevelTrace},
		{"flag wins over env", "error", "debug", logger.LevelError},
		{"unknown level", "loud", "", logger.LevelInfo},
		{"default level", "", "", logger.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			cmd.Flags().String("log-level", "", "Log level")
			if tc.flagValue != "" {
				cmd.Flags().Set("log-level", tc.flagValue)
			}
			t.Setenv(logger.LevelEnv, tc.envValue)
			assert.Equal(t, tc.expected, LogLevel(cmd))
		})
	}
}
