package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"expenses/internal/core"
)

// Keys understood by Load. Each maps to the environment variable of the same name.
const (
	KeyPort                     = "PORT"
	KeySQLiteDBPath             = "SQLITE_DB_PATH"
	KeyCategories               = "EXPENSE_CATEGORIES"
	KeyPaymentMethods           = "EXPENSE_PAYMENT_METHODS"
	KeyLogLevel                 = "LOG_LEVEL"
	KeyLogFormat                = "LOG_FORMAT"
	KeyRateLimit                = "RATE_LIMIT_PER_MINUTE"
	KeyCSVPath                  = "CSV_PATH"
	KeyAMQPURL                  = "AMQP_URL"
	KeyAMQPExchange             = "AMQP_EXCHANGE"
	KeyAMQPQueue                = "AMQP_QUEUE"
	KeyGoogleSpreadsheetID      = "GOOGLE_SPREADSHEET_ID"
	KeyGoogleSheetName          = "GOOGLE_SHEET_NAME"
	KeyGoogleServiceAccountFile = "GOOGLE_SERVICE_ACCOUNT_FILE"
	KeyGoogleServiceAccountJSON = "GOOGLE_SERVICE_ACCOUNT_JSON"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Catalog
	Categories     []string
	PaymentMethods []string

	LogLevel  string
	LogFormat string

	// Form submissions allowed per client per minute; 0 disables the limit
	RateLimitPerMinute int

	// Import/export utility
	CSVPath string

	// AMQP change notifications (disabled when URL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// Load reads configuration from the environment.
func Load() *Config {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, so callers can bind command line
// flags to the same keys before loading.
func LoadFrom(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	defaults := core.DefaultCatalog()
	cfg := &Config{
		Port:         v.GetString(KeyPort),
		SQLiteDBPath: v.GetString(KeySQLiteDBPath),

		Categories:     splitList(v.GetString(KeyCategories), defaults.Categories),
		PaymentMethods: splitList(v.GetString(KeyPaymentMethods), defaults.PaymentMethods),

		LogLevel:  strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),

		RateLimitPerMinute: v.GetInt(KeyRateLimit),

		CSVPath: v.GetString(KeyCSVPath),

		AMQPURL:      v.GetString(KeyAMQPURL),
		AMQPExchange: v.GetString(KeyAMQPExchange),
		AMQPQueue:    v.GetString(KeyAMQPQueue),

		GoogleSpreadsheetID:      v.GetString(KeyGoogleSpreadsheetID),
		GoogleSheetName:          v.GetString(KeyGoogleSheetName),
		GoogleServiceAccountFile: v.GetString(KeyGoogleServiceAccountFile),
		GoogleServiceAccountJSON: v.GetString(KeyGoogleServiceAccountJSON),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "5000")
	v.SetDefault(KeySQLiteDBPath, "expenses.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyRateLimit, 60)
	v.SetDefault(KeyCSVPath, "expenses_export.csv")
	v.SetDefault(KeyAMQPExchange, "expenses")
	v.SetDefault(KeyAMQPQueue, "expense_events")
	v.SetDefault(KeyGoogleSheetName, "Expenses")
}

// Catalog returns the configured categories and payment methods.
func (c *Config) Catalog() core.Catalog {
	return core.Catalog{
		Categories:     slices.Clone(c.Categories),
		PaymentMethods: slices.Clone(c.PaymentMethods),
	}
}

// AMQPEnabled reports whether change notifications should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []error

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Errorf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, errors.New("SQLite database path cannot be empty"))
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if len(c.Categories) == 0 {
		problems = append(problems, errors.New("at least one expense category must be configured"))
	}
	if len(c.PaymentMethods) == 0 {
		problems = append(problems, errors.New("at least one payment method must be configured"))
	} else if dup := firstDuplicate(c.PaymentMethods); dup != "" {
		problems = append(problems, fmt.Errorf("duplicate payment method '%s'", dup))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.LogLevel) {
		problems = append(problems, fmt.Errorf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Errorf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.RateLimitPerMinute < 0 {
		problems = append(problems, fmt.Errorf("invalid rate limit %d: must be zero or positive", c.RateLimitPerMinute))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Errorf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, errors.New("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
		if c.AMQPQueue == "" {
			problems = append(problems, errors.New("AMQP queue name cannot be empty when AMQP URL is provided"))
		}
	}

	// Return combined errors
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(problems...))
	}

	return nil
}

// ValidateSheets checks the settings required by the Google Sheets mirror.
func (c *Config) ValidateSheets() error {
	var problems []error
	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, errors.New("Google Spreadsheet ID is required"))
	}
	if c.GoogleSheetName == "" {
		problems = append(problems, errors.New("Google Sheet name is required"))
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		problems = append(problems, errors.New("either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided"))
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Errorf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("sheets configuration invalid: %w", errors.Join(problems...))
	}
	return nil
}

// splitList parses a comma separated list, falling back to def when empty.
func splitList(raw string, def []string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return slices.Clone(def)
	}
	return out
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
