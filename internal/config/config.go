package config

import "os"

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	APIBaseURL     string
	SessionBackend string
	SessionFile    string
	RedisAddr      string
	RedisPassword  string
	SQLitePath     string
}

func Load() *Config {
	return &Config{
		Port:           getenv("PORT", "3000"),
		APIBaseURL:     getenv("API_BASE_URL", "http://localhost:5000/api"),
		SessionBackend: getenv("SESSION_BACKEND", "file"),
		SessionFile:    getenv("SESSION_FILE", ""),
		RedisAddr:      getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		SQLitePath:     getenv("SQLITE_PATH", "./blogfront.db"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
