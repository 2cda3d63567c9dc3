package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Get resolves a secret from the environment. A KEY_FILE variant pointing at a
// mounted file (Docker secrets convention) takes precedence over KEY itself.
func Get(envKey, defaultValue string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptional resolves a secret and falls back to the default on any failure.
func GetOptional(envKey, defaultValue string) string {
	value, err := Get(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}
