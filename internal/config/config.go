package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"famfin/internal/services"
)

type Config struct {
	// HTTP Server
	Port      string
	JWTSecret string
	JWTIssuer string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets snapshot export
	GoogleSpreadsheetID      string
	GoogleSnapshotSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// SMTP reminders
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Scheduler
	SnapshotSchedule string
	ReminderSchedule string
	ReminderLeadDays int
	JobTimeout       time.Duration

	// Agency calculation
	AgencyWindowDays       int
	AgencyBufferRate       string
	RecurrenceMaxSteps     int
	BudgetWarningThreshold float64

	// Export worker
	ExportBatchSize int
	ExportInterval  time.Duration

	// Snapshot cache
	CacheSize int
	CacheTTL  time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8081"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "famfin"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/famfin.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "famfin"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_exports"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSnapshotSheet:      getEnv("GOOGLE_SNAPSHOT_SHEET", "Snapshots"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 6 * * *"),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderLeadDays: getEnvInt("REMINDER_LEAD_DAYS", 3),
		JobTimeout:       getEnvDuration("JOB_TIMEOUT", 10*time.Minute),

		AgencyWindowDays:       getEnvInt("AGENCY_WINDOW_DAYS", 45),
		AgencyBufferRate:       getEnv("AGENCY_BUFFER_RATE", "0.05"),
		RecurrenceMaxSteps:     getEnvInt("RECURRENCE_MAX_STEPS", services.DefaultMaxRecurrenceSteps),
		BudgetWarningThreshold: getEnvFloat("BUDGET_WARNING_THRESHOLD", 0.85),

		ExportBatchSize: getEnvInt("EXPORT_BATCH_SIZE", 20),
		ExportInterval:  getEnvDuration("EXPORT_INTERVAL", time.Minute),

		CacheSize: getEnvInt("CACHE_SIZE", 1000),
		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	return cfg
}

// Validate checks the settings shared by every binary and returns one error
// listing every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided with GOOGLE_SPREADSHEET_ID")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SMTPHost != "" {
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
		if c.SMTPFrom == "" {
			errors = append(errors, "SMTP sender address cannot be empty when SMTP host is provided")
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"snapshot": c.SnapshotSchedule, "reminder": c.ReminderSchedule} {
		if _, err := parser.Parse(spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s schedule '%s': %v", name, spec, err))
		}
	}
	if c.ReminderLeadDays < 0 {
		errors = append(errors, fmt.Sprintf("invalid reminder lead days %d: must not be negative", c.ReminderLeadDays))
	}
	if c.JobTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid job timeout %v: must be at least 1 second", c.JobTimeout))
	}

	if _, err := c.AgencyConfig(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid agency settings: %v", err))
	}
	if c.BudgetWarningThreshold <= 0 || c.BudgetWarningThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid budget warning threshold %v: must be in (0, 1]", c.BudgetWarningThreshold))
	}

	if c.ExportBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}
	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'text'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateServer runs Validate plus the checks only the API server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("configuration validation failed:\n- JWT secret must be at least 16 characters")
	}
	return nil
}

// AgencyConfig converts the agency settings into the calculator's tunables.
func (c *Config) AgencyConfig() (services.AgencyConfig, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.AgencyBufferRate))
	if err != nil {
		return services.AgencyConfig{}, fmt.Errorf("buffer rate '%s': %w", c.AgencyBufferRate, err)
	}
	cfg := services.AgencyConfig{
		WindowDays:         c.AgencyWindowDays,
		BufferRate:         rate,
		MaxRecurrenceSteps: c.RecurrenceMaxSteps,
	}
	if err := cfg.Validate(); err != nil {
		return services.AgencyConfig{}, err
	}
	return cfg, nil
}

// SheetsEnabled reports whether snapshots go to a real spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// SMTPEnabled reports whether payment reminders can be mailed.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
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

// getEnvList splits a comma-separated value, skipping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
