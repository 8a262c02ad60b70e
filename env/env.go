// Package env resolves command settings from cobra flags and the process
// environment.
package env

import (
	"log"
	"os"
	"strconv"

	"github.com/agentuity/go-paging/logger"
	"github.com/spf13/cobra"
)

// Environment variables consulted when the matching flag is not given.
const (
	RedisURLEnv = "PAGING_REDIS_URL"
	DatabaseEnv = "PAGING_DB"
)

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// IntFlagOrEnv is FlagOrEnv for integer settings. A flag that was not set
// explicitly, or an environment value that does not parse, falls through.
func IntFlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue int) int {
	if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
		if v, err := cmd.Flags().GetInt(flagName); err == nil {
			return v
		}
	}
	if val, ok := os.LookupEnv(envName); ok {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultValue
}

// LogLevel reads --log-level, then PAGING_LOG_LEVEL. Commands default to info.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnv, "info"), logger.LevelInfo)
}

// NewLogger returns a console logger at the level chosen by LogLevel.
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd))
}
