package config

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the environment variable value or a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv returns an integer environment variable or a default.
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetBoolEnv returns a boolean environment variable or a default.
// Accepts 1/0, true/false, yes/no in any case.
func GetBoolEnv(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultValue
	}
}

// GetListEnv returns a whitespace-separated environment variable as a slice.
func GetListEnv(key string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Fields(value)
	}
	return nil
}
