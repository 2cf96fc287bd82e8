package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFile loads environment variables from .env/.env.local files.
// It attempts each supported filename in order and stops at the first one
// that parses. Existing process environment variables are never overwritten,
// so the process environment always wins over file contents.
func loadEnvFile() error {
	envPaths := []string{".env", ".env.local"}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("failed to parse %s: %w", envPath, err)
		}
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
		return nil
	}
	return fmt.Errorf("no .env file found")
}
