package env

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// GetStringFromFile reads KEY_FILE (Docker secret) when set, otherwise KEY
func GetStringFromFile(key, defaultValue string) string {
	if filePath := os.Getenv(key + "_FILE"); filePath != "" {
		content, err := os.ReadFile(filepath.Clean(filePath))
		if err == nil {
			return string(bytes.TrimSpace(content))
		}
		// If file read fails, fall back to env var
	}

	return GetString(key, defaultValue)
}

// GetString returns the environment variable value or the default value if not set
func GetString(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetInt returns the environment variable value as an integer or the default value if not set
func GetInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(GetString(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetPositiveInt is GetInt that also rejects zero and negative values
func GetPositiveInt(key string, defaultValue int) int {
	if value := GetInt(key, defaultValue); value > 0 {
		return value
	}
	return defaultValue
}

// GetBool returns the environment variable value as a boolean or the default value if not set
func GetBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(GetString(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetDuration accepts Go duration syntax ("5s") or a bare number of seconds
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := GetString(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		if seconds <= 0 {
			return defaultValue
		}
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// GetStringSlice splits a comma-separated value, dropping empty items
func GetStringSlice(key string, defaultValue []string) []string {
	valueStr := GetString(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
