// Package config resolves daemon settings from the environment. An optional
// .env file is loaded first; explicit environment variables and CLI flags
// override it.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/yamakit/timekeeper/internal/util"
)

// Config carries every tunable the daemon reads at startup.
type Config struct {
	// DBPath is the sqlite database holding all enforcement state.
	DBPath string
	// EventsPath is the foreground-app event spool written by the
	// platform agent.
	EventsPath string
	// Timezone controls the daily rollover boundary.
	Timezone string
	// LogLevel and LogFile feed the global logger.
	LogLevel string
	LogFile  string
	// Debug mirrors logs to stderr.
	Debug bool
	// DisableGapDetection turns the tamper detector off. Development only.
	DisableGapDetection bool
}

// Load builds a Config from an optional .env file and the environment.
// A missing .env file is not an error.
func Load(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			util.LogWarnf("config: loading %s failed: %v", envFile, err)
		}
	}

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".timekeeper")

	return &Config{
		DBPath:              getEnv("TIMEKEEPER_DB", filepath.Join(base, "timekeeper.db")),
		EventsPath:          getEnv("TIMEKEEPER_EVENTS", filepath.Join(base, "events.log")),
		Timezone:            getEnv("TIMEKEEPER_TZ", "Local"),
		LogLevel:            getEnv("TIMEKEEPER_LOG_LEVEL", "info"),
		LogFile:             getEnv("TIMEKEEPER_LOG_FILE", filepath.Join(base, "logs", "timekeeper.log")),
		Debug:               getEnvBool("TIMEKEEPER_DEBUG", false),
		DisableGapDetection: getEnvBool("TIMEKEEPER_DISABLE_GAP_DETECTION", false),
	}
}

// EnsureDirs creates the directories the configured paths live in.
func (c *Config) EnsureDirs() error {
	for _, p := range []string{c.DBPath, c.EventsPath, c.LogFile} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
