package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrInvalidEnv is returned when a SHINGLE_* variable cannot be parsed.
var ErrInvalidEnv = errors.New("invalid environment")

// Env holds the process settings read from the environment.
type Env struct {
	DataDir   string
	CacheDir  string
	Store     string
	StoreKind string
	TempDir   string
	PlanFile  string
	Seed      int64
	// SeedSet reports whether SHINGLE_SEED was given.
	SeedSet  bool
	LogLevel string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnv reads a .env file from the working directory, if there is one,
// and then the SHINGLE_* variables. A malformed SHINGLE_SEED is an error;
// the returned Env still carries every other setting and the default seed.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	env := Env{
		DataDir:   getEnvOrDefault("SHINGLE_DATA_DIR", "./wavs"),
		CacheDir:  getEnvOrDefault("SHINGLE_CACHE_DIR", "./data"),
		Store:     getEnvOrDefault("SHINGLE_STORE", ""),
		StoreKind: getEnvOrDefault("SHINGLE_STORE_KIND", "json"),
		TempDir:   getEnvOrDefault("SHINGLE_TEMP_DIR", os.TempDir()),
		PlanFile:  getEnvOrDefault("SHINGLE_PLAN", ""),
		Seed:      1,
		LogLevel:  getEnvOrDefault("SHINGLE_LOG_LEVEL", "INFO"),
	}

	if v := os.Getenv("SHINGLE_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return env, fmt.Errorf("SHINGLE_SEED %q: %w", v, ErrInvalidEnv)
		}
		env.Seed, env.SeedSet = seed, true
	}
	return env, nil
}
