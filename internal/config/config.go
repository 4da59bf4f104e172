package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"

	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// Auth
	AuthMode  string
	JWTSecret string
	JWTIssuer string

	// Generation
	AIProvider              string
	GeminiAPIKey            string
	GeminiModel             string
	AnthropicAPIKey         string
	AnthropicModel          string
	AnthropicMaxTokens      int
	GenerationTimeout       time.Duration
	GenerationRatePerMinute float64

	// HTTP limits and caching
	GenerateRequestsPerMinute int
	PlanCacheSize             int
	PlanCacheTTL              time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	PlansSheetName           string
	ReviewsSheetName         string

	// Monthly review worker
	ReviewSchedule string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetplanner.db"),

		AuthMode:  getEnv("AUTH_MODE", AuthModeJWT),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		AIProvider:              getEnv("AI_PROVIDER", ProviderGemini),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AnthropicAPIKey:         getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:          getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		AnthropicMaxTokens:      getEnvInt("ANTHROPIC_MAX_TOKENS", 2048),
		GenerationTimeout:       getEnvDuration("GENERATION_TIMEOUT", 30*time.Second),
		GenerationRatePerMinute: getEnvFloat("GENERATION_RATE_PER_MINUTE", 30),

		GenerateRequestsPerMinute: getEnvInt("GENERATE_REQUESTS_PER_MINUTE", 5),
		PlanCacheSize:             getEnvInt("PLAN_CACHE_SIZE", 1000),
		PlanCacheTTL:              getEnvDuration("PLAN_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetplanner"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "plan_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		PlansSheetName:           getEnv("PLANS_SHEET_NAME", "Plans"),
		ReviewsSheetName:         getEnv("REVIEWS_SHEET_NAME", "Reviews"),

		ReviewSchedule: getEnv("REVIEW_SCHEDULE", "0 6 1 * *"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	switch c.AuthMode {
	case AuthModeJWT:
		if len(c.JWTSecret) < 16 {
			errors = append(errors, "JWT_SECRET must be at least 16 characters when AUTH_MODE is jwt")
		}
	case AuthModeHeader:
	default:
		errors = append(errors, fmt.Sprintf("invalid auth mode '%s': must be one of [jwt header]", c.AuthMode))
	}

	switch c.AIProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
		if c.GeminiModel == "" {
			errors = append(errors, "GEMINI_MODEL cannot be empty")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errors = append(errors, "ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
		}
		if c.AnthropicModel == "" {
			errors = append(errors, "ANTHROPIC_MODEL cannot be empty")
		}
		if c.AnthropicMaxTokens < 256 || c.AnthropicMaxTokens > 8192 {
			errors = append(errors, fmt.Sprintf("invalid anthropic max tokens %d: must be between 256 and 8192", c.AnthropicMaxTokens))
		}
	case ProviderNone:
	default:
		errors = append(errors, fmt.Sprintf("invalid AI provider '%s': must be one of [gemini anthropic none]", c.AIProvider))
	}

	if c.GenerationTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid generation timeout %v: must be at least 1 second", c.GenerationTimeout))
	} else if c.GenerationTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid generation timeout %v: must be at most 2 minutes", c.GenerationTimeout))
	}
	if c.GenerationRatePerMinute <= 0 {
		errors = append(errors, fmt.Sprintf("invalid generation rate %v: must be positive", c.GenerationRatePerMinute))
	}
	if c.GenerateRequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid generate requests per minute %d: must be at least 1", c.GenerateRequestsPerMinute))
	}
	if c.PlanCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid plan cache size %d: must be at least 1", c.PlanCacheSize))
	}
	if c.PlanCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid plan cache TTL %v: must be positive", c.PlanCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := cron.ParseStandard(c.ReviewSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid review schedule '%s': %v", c.ReviewSchedule, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateExport checks the settings only the export worker needs.
func (c *Config) ValidateExport() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the export worker")
	}
	if c.GoogleServiceAccountFile == "" {
		errors = append(errors, "GOOGLE_SERVICE_ACCOUNT_FILE is required for the export worker")
	} else if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
	}
	if c.PlansSheetName == "" || c.ReviewsSheetName == "" {
		errors = append(errors, "PLANS_SHEET_NAME and REVIEWS_SHEET_NAME cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
