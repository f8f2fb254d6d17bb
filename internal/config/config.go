package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cardmarket-bi/internal/core"
)

const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

// Public export locations of the CardMarket data set.
const (
	defaultBucketURL    = "https://mtg-streamlit-dashboard-s3-bucket.s3.eu-central-1.amazonaws.com/public/exports/"
	defaultOrdersFile   = "cardmarket_orders_data.csv"
	defaultArticlesFile = "cardmarket_articles_sold.csv"
	defaultExpensesFile = "monthly_expenses.xlsx"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Data sources
	DataBackend   string
	DataDir       string
	OrdersURL     string
	ArticlesURL   string
	ExpensesURL   string
	ExpensesSheet string

	// Ambiguous dates such as 03/04/2024 are read per source.
	OrdersDateOrder   string
	ExpensesDateOrder string

	CacheTTL           time.Duration
	FetchTimeout       time.Duration
	GCSCredentialsFile string
	// Service account used for gsheets:// sources; empty means
	// application default credentials.
	SheetsCredentialsFile string
	Preload               bool

	// Costs page gate
	CostsPassword           string
	CostsPasswordHash       string
	SessionTTL              time.Duration
	UnlockAttemptsPerMinute int

	// AMQP refresh broadcast, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	InstanceID   string

	StoreURL string
	// Extra proxy networks allowed to set X-Forwarded-For, in CIDR form.
	TrustedProxies []string
}

func Load() *Config {
	backend := strings.ToLower(getEnv("DATA_BACKEND", BackendRemote))
	base := defaultBucketURL
	if backend == BackendMemory {
		base = "mem://"
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:   backend,
		DataDir:       getEnv("DATA_DIR", "./data"),
		OrdersURL:     getEnv("ORDERS_URL", base+defaultOrdersFile),
		ArticlesURL:   getEnv("ARTICLES_URL", base+defaultArticlesFile),
		ExpensesURL:   getEnv("EXPENSES_URL", base+defaultExpensesFile),
		ExpensesSheet: getEnv("EXPENSES_SHEET", ""),

		OrdersDateOrder:   getEnv("ORDERS_DATE_ORDER", "month-first"),
		ExpensesDateOrder: getEnv("EXPENSES_DATE_ORDER", "day-first"),

		CacheTTL:              getEnvDuration("CACHE_TTL", time.Hour),
		FetchTimeout:          getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		GCSCredentialsFile:    getEnv("GCS_CREDENTIALS_FILE", ""),
		SheetsCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		Preload:               getEnvBool("PRELOAD", false),

		CostsPassword:           getEnv("COSTS_PASSWORD", ""),
		CostsPasswordHash:       getEnv("COSTS_PASSWORD_HASH", ""),
		SessionTTL:              getEnvDuration("SESSION_TTL", 12*time.Hour),
		UnlockAttemptsPerMinute: getEnvInt("UNLOCK_ATTEMPTS_PER_MINUTE", 5),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cardmarket-bi.refresh"),
		InstanceID:   getEnv("INSTANCE_ID", defaultInstanceID()),

		StoreURL:       getEnv("STORE_URL", "https://www.cardmarket.com/en/Magic/Users/ExCardin"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}

	return cfg
}

// OrdersOrder returns the parsed ORDERS_DATE_ORDER. Call after Validate.
func (c *Config) OrdersOrder() core.DateOrder {
	o, _ := core.ParseDateOrder(c.OrdersDateOrder)
	return o
}

// ExpensesOrder returns the parsed EXPENSES_DATE_ORDER. Call after Validate.
func (c *Config) ExpensesOrder() core.DateOrder {
	o, _ := core.ParseDateOrder(c.ExpensesDateOrder)
	return o
}

// CostsGateEnabled reports whether any password is configured.
func (c *Config) CostsGateEnabled() bool {
	return c.CostsPassword != "" || c.CostsPasswordHash != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	validBackends := []string{BackendRemote, BackendMemory}
	if c.DataBackend != BackendRemote && c.DataBackend != BackendMemory {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	for _, s := range []struct{ name, value string }{
		{"ORDERS_URL", c.OrdersURL},
		{"ARTICLES_URL", c.ArticlesURL},
		{"EXPENSES_URL", c.ExpensesURL},
	} {
		if msg := validateSourceURL(s.name, s.value); msg != "" {
			errors = append(errors, msg)
		}
	}

	if _, err := core.ParseDateOrder(c.OrdersDateOrder); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ORDERS_DATE_ORDER '%s': must be day-first or month-first", c.OrdersDateOrder))
	}
	if _, err := core.ParseDateOrder(c.ExpensesDateOrder); err != nil {
		errors = append(errors, fmt.Sprintf("invalid EXPENSES_DATE_ORDER '%s': must be day-first or month-first", c.ExpensesDateOrder))
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.FetchTimeout < time.Second || c.FetchTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be between 1 second and 10 minutes", c.FetchTimeout))
	}

	if c.GCSCredentialsFile != "" {
		if _, err := os.Stat(c.GCSCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("GCS credentials file does not exist: %s", c.GCSCredentialsFile))
		}
	}
	if c.SheetsCredentialsFile != "" {
		if _, err := os.Stat(c.SheetsCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Sheets credentials file does not exist: %s", c.SheetsCredentialsFile))
		}
	}

	if c.CostsPasswordHash != "" && !strings.HasPrefix(c.CostsPasswordHash, "$2") {
		errors = append(errors, "COSTS_PASSWORD_HASH must be a bcrypt hash")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.UnlockAttemptsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid unlock attempts %d: must be at least 1", c.UnlockAttemptsPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid TRUSTED_PROXIES entry '%s': must be a CIDR", cidr))
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
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateSourceURL(name, value string) string {
	if value == "" {
		return fmt.Sprintf("%s cannot be empty", name)
	}
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': %v", name, value, err)
	}
	switch u.Scheme {
	case "http", "https", "gs", "gsheets", "file", "mem":
		return ""
	}
	return fmt.Sprintf("invalid %s scheme '%s': must be one of [http https gs gsheets file mem]", name, u.Scheme)
}

func defaultInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "dashboard"
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
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
