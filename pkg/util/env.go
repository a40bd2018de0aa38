package util

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv attempts to load a ".env" file from the current working
// directory into the process environment. It never overrides variables
// that are already set (godotenv's non-overwriting semantics). A missing
// file is not an error; this is a convenience for local development only.
func LoadDotEnv() {
	if info, err := os.Stat(".env"); err == nil && !info.IsDir() {
		_ = godotenv.Load(".env")
	}
}

// EnvBool returns true if the named environment variable is set to a truthy value.
// Accepted truthy values (case-insensitive, trimmed):
// "1", "true", "yes", "y", "on"
func EnvBool(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// EnvString returns the trimmed value of the environment variable, or def if empty/unset.
func EnvString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// EnvInt64 returns the parsed int64 value of the environment variable, or def if empty/unset/invalid.
func EnvInt64(name string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
