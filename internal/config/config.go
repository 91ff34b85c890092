package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"recolookup/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig `validate:"required"`
	Tables  TablesConfig `validate:"required"`
	Logging LoggingConfig
	HTTP    HTTPConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string        `validate:"required,numeric"`
	GinMode        string        `validate:"oneof=debug release test"`
	AllowedOrigins []string      `validate:"dive,required"`
	RateLimit      int           `validate:"gte=0"`
	RateWindow     time.Duration `validate:"gt=0"`
}

// TablesConfig describes where the two recommendation tables come from
type TablesConfig struct {
	Collaborative TableConfig   `validate:"required"`
	Content       TableConfig   `validate:"required"`
	FeatureStart  int           `validate:"gte=0"`
	FeatureEnd    int           `validate:"gtfield=FeatureStart"`
	LoadTimeout   time.Duration `validate:"gt=0"`
}

// TableConfig is the location, join key and optional named feature columns of one table
type TableConfig struct {
	Location       string `validate:"required"`
	KeyField       string `validate:"required"`
	FeatureColumns []string
}

// LoggingConfig holds zerolog settings
type LoggingConfig struct {
	Level  string `validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `validate:"oneof=json console"`
}

// HTTPConfig holds outbound fetch settings for URL table sources
type HTTPConfig struct {
	Timeout time.Duration `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:  *loadServerConfig(),
		Tables:  *loadTablesConfig(),
		Logging: *loadLoggingConfig(),
		HTTP: HTTPConfig{
			Timeout: getEnvDurationOrDefault("HTTP_TIMEOUT", 10*time.Second),
		},
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		AllowedOrigins: getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimit:      getEnvIntOrDefault("RATE_LIMIT_REQUESTS", 100),
		RateWindow:     getEnvDurationOrDefault("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func loadTablesConfig() *TablesConfig {
	return &TablesConfig{
		Collaborative: TableConfig{
			Location:       getEnvOrDefault("COLLAB_TABLE_PATH", "./data/collaborative_filtering.csv"),
			KeyField:       getEnvOrDefault("COLLAB_KEY_FIELD", "self"),
			FeatureColumns: getEnvListOrDefault("COLLAB_FEATURE_COLUMNS", nil),
		},
		Content: TableConfig{
			Location:       getEnvOrDefault("CONTENT_TABLE_PATH", "./data/content_filtering.csv"),
			KeyField:       getEnvOrDefault("CONTENT_KEY_FIELD", "item_id"),
			FeatureColumns: getEnvListOrDefault("CONTENT_FEATURE_COLUMNS", nil),
		},
		FeatureStart: getEnvIntOrDefault("FEATURE_START", 2),
		FeatureEnd:   getEnvIntOrDefault("FEATURE_END", 7),
		LoadTimeout:  getEnvDurationOrDefault("LOAD_TIMEOUT", 30*time.Second),
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

// Validate checks struct tags and cross-field rules
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s failed %q check", first.Namespace(), first.Tag()))
		}
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma separated variable, dropping empty items
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
