package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	TablePrefix string
	// StorageBackend selects the ContentStore implementation ("postgres" or "memory")
	StorageBackend string
	CORSOrigins    string
	// Auth
	JWKSURL      string
	AuthDisabled bool
	DevUserID    string // Caller identity used when AuthDisabled is set
	// Translation
	AnthropicAPIKey     string
	OpenRouterAPIKey    string
	TranslationProvider string // Empty infers the provider from TranslationModel
	TranslationModel    string
	TranslationTimeout  time.Duration
	TranslationRetries  uint
	MachineTranslatorID string // Creator recorded on machine-translated revisions
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		TablePrefix:    tablePrefix,
		StorageBackend: getEnv("STORAGE_BACKEND", "postgres"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWKSURL:        getEnv("JWKS_URL", ""),
		AuthDisabled:   getEnv("AUTH_DISABLED", "false") == "true",
		DevUserID:      getEnv("DEV_USER_ID", "dev-user"),
		// Translation
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		OpenRouterAPIKey:    getEnv("OPENROUTER_API_KEY", ""),
		TranslationProvider: getEnv("TRANSLATION_PROVIDER", ""),
		TranslationModel:    getEnv("TRANSLATION_MODEL", "claude-haiku-4-5-20251001"),
		TranslationTimeout:  getDuration("TRANSLATION_TIMEOUT", 60*time.Second),
		TranslationRetries:  uint(getInt("TRANSLATION_RETRIES", 3)),
		MachineTranslatorID: getEnv("MACHINE_TRANSLATOR_ID", "machine-translator"),
		LogDir:              getEnv("LOG_DIR", ""),
		LogMaxFiles:         getInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// CORSOriginList splits the comma separated CORS_ORIGINS value
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

// getDuration accepts Go duration strings ("45s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
