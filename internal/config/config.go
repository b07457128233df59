package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete service configuration.
type AppConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string

	MaxOptimizationTime        int // seconds
	MaxShiftsPerOptimization   int
	MaxConcurrentOptimizations int
	MaxMemoryMB                int

	GAPopulation  int
	GAGenerations int

	LogDir string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory first.
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if exeDir != "" {
			logDir = filepath.Join(exeDir, "logs")
		} else {
			logDir = "logs"
		}
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	cfg := &AppConfig{
		Host:                       getEnv("HOST", "0.0.0.0"),
		Port:                       getEnvInt("PORT", 8000),
		AllowedOrigins:             getEnvCSV("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		MaxOptimizationTime:        getEnvInt("MAX_OPTIMIZATION_TIME", 300),
		MaxShiftsPerOptimization:   getEnvInt("MAX_SHIFTS_PER_OPTIMIZATION", 1000),
		MaxConcurrentOptimizations: getEnvInt("MAX_CONCURRENT_OPTIMIZATIONS", 10),
		MaxMemoryMB:                getEnvInt("MAX_MEMORY_MB", 1024),
		GAPopulation:               getEnvInt("GA_POPULATION", 50),
		GAGenerations:              getEnvInt("GA_GENERATIONS", 100),
		LogDir:                     logDir,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
