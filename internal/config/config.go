package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port         string   `yaml:"port" env:"SERVER_PORT"`
		Mode         string   `yaml:"mode" env:"SERVER_MODE"`
		BaseURL      string   `yaml:"base_url" env:"SERVER_BASE_URL"`
		AppURL       string   `yaml:"app_url" env:"SERVER_APP_URL"`
		CORSOrigins  []string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
		ReadTimeout  string   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout string   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		Migrations   string   `yaml:"migrations_dir" env:"SERVER_MIGRATIONS_DIR"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		URL             string `yaml:"url" env:"DATABASE_URL"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	// Auth verifies tokens issued by the identity provider.
	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
		Issuer    string `yaml:"issuer" env:"AUTH_ISSUER"`
		Audience  string `yaml:"audience" env:"AUTH_AUDIENCE"`
	} `yaml:"auth"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Storage struct {
		Driver    string `yaml:"driver" env:"STORAGE_DRIVER"`
		Path      string `yaml:"path" env:"STORAGE_PATH"`
		Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET"`
		Region    string `yaml:"region" env:"STORAGE_REGION"`
		Endpoint  string `yaml:"endpoint" env:"STORAGE_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"STORAGE_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"STORAGE_SECRET_KEY"`
		PublicURL string `yaml:"public_url" env:"STORAGE_PUBLIC_URL"`
		MaxUpload int64  `yaml:"max_upload_bytes" env:"STORAGE_MAX_UPLOAD_BYTES"`
	} `yaml:"storage"`

	Billing struct {
		SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
		WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
		PriceID       string `yaml:"price_id" env:"STRIPE_PRICE_ID"`
		SuccessURL    string `yaml:"success_url" env:"STRIPE_SUCCESS_URL"`
		CancelURL     string `yaml:"cancel_url" env:"STRIPE_CANCEL_URL"`
		PortalReturn  string `yaml:"portal_return_url" env:"STRIPE_PORTAL_RETURN_URL"`
	} `yaml:"billing"`

	ChatOps struct {
		WebhookURL string `yaml:"webhook_url" env:"SLACK_WEBHOOK_URL"`
		Username   string `yaml:"username" env:"SLACK_USERNAME"`
		Timeout    string `yaml:"timeout" env:"SLACK_TIMEOUT"`
	} `yaml:"chatops"`

	CMS struct {
		ServiceDomain    string   `yaml:"service_domain" env:"CMS_SERVICE_DOMAIN"`
		BaseURL          string   `yaml:"base_url" env:"CMS_BASE_URL"`
		APIKey           string   `yaml:"api_key" env:"CMS_API_KEY"`
		CacheTTL         string   `yaml:"cache_ttl" env:"CMS_CACHE_TTL"`
		CacheSize        int      `yaml:"cache_size" env:"CMS_CACHE_SIZE"`
		AllowedEndpoints []string `yaml:"allowed_endpoints" env:"CMS_ALLOWED_ENDPOINTS"`
		Timeout          string   `yaml:"timeout" env:"CMS_TIMEOUT"`
	} `yaml:"cms"`

	Documents struct {
		ClientID      string   `yaml:"client_id" env:"DOCS_CLIENT_ID"`
		ClientSecret  string   `yaml:"client_secret" env:"DOCS_CLIENT_SECRET"`
		AuthURL       string   `yaml:"auth_url" env:"DOCS_AUTH_URL"`
		TokenURL      string   `yaml:"token_url" env:"DOCS_TOKEN_URL"`
		RedirectURL   string   `yaml:"redirect_url" env:"DOCS_REDIRECT_URL"`
		Scopes        []string `yaml:"scopes" env:"DOCS_SCOPES"`
		APIBaseURL    string   `yaml:"api_base_url" env:"DOCS_API_BASE_URL"`
		TemplateID    string   `yaml:"template_id" env:"DOCS_TEMPLATE_ID"`
		WebhookSecret string   `yaml:"webhook_secret" env:"DOCS_WEBHOOK_SECRET"`
		Timeout       string   `yaml:"timeout" env:"DOCS_TIMEOUT"`
	} `yaml:"documents"`

	Calendar struct {
		APIKey          string `yaml:"api_key" env:"CALENDAR_API_KEY"`
		CredentialsFile string `yaml:"credentials_file" env:"CALENDAR_CREDENTIALS_FILE"`
		CalendarID      string `yaml:"calendar_id" env:"CALENDAR_ID"`
		Endpoint        string `yaml:"endpoint" env:"CALENDAR_ENDPOINT"`
	} `yaml:"calendar"`

	AI struct {
		APIKey        string `yaml:"api_key" env:"GEMINI_API_KEY"`
		Model         string `yaml:"model" env:"AI_MODEL"`
		SystemPrompt  string `yaml:"system_prompt" env:"AI_SYSTEM_PROMPT"`
		HistoryWindow int    `yaml:"history_window" env:"AI_HISTORY_WINDOW"`
		MaxTokens     int    `yaml:"max_output_tokens" env:"AI_MAX_OUTPUT_TOKENS"`
	} `yaml:"ai"`

	Security struct {
		// TokenEncryptionKey is a base64 32-byte key used to seal stored OAuth tokens.
		TokenEncryptionKey string `yaml:"token_encryption_key" env:"TOKEN_ENCRYPTION_KEY"`
	} `yaml:"security"`

	Admin struct {
		BootstrapIdentities []string `yaml:"bootstrap_identities" env:"ADMIN_BOOTSTRAP_IDENTITIES"`
	} `yaml:"admin"`

	RateLimit struct {
		ChatPerMinute int `yaml:"chat_per_minute" env:"RATELIMIT_CHAT_PER_MINUTE"`
		ChatBurst     int `yaml:"chat_burst" env:"RATELIMIT_CHAT_BURST"`
	} `yaml:"ratelimit"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.AppURL = "http://localhost:3000"
	config.Server.CORSOrigins = []string{"http://localhost:3000"}
	config.Server.ReadTimeout = "15s"
	config.Server.WriteTimeout = "60s"
	config.Server.Migrations = "migrations"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "frogmembers"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Storage.Driver = "local"
	config.Storage.Path = "uploads"
	config.Storage.MaxUpload = 10 << 20

	config.ChatOps.Username = "Frog Members"
	config.ChatOps.Timeout = "5s"

	config.CMS.CacheTTL = "5m"
	config.CMS.CacheSize = 512
	config.CMS.AllowedEndpoints = []string{"news", "faq", "columns", "events"}
	config.CMS.Timeout = "10s"

	config.Documents.Timeout = "15s"

	config.AI.Model = "gemini-2.0-flash"
	config.AI.HistoryWindow = 20
	config.AI.MaxTokens = 1024
	config.AI.SystemPrompt = "You are the Frog Members assistant. You help members with studying abroad, " +
		"visa planning and career questions. Answer concisely and recommend a staff consultation for legal decisions."

	config.RateLimit.ChatPerMinute = 10
	config.RateLimit.ChatBurst = 3
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.URL == "" && config.Database.Host == "" {
		return fmt.Errorf("database host or url is required")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required")
	}

	for name, value := range map[string]string{
		"server.read_timeout":        config.Server.ReadTimeout,
		"server.write_timeout":       config.Server.WriteTimeout,
		"database.conn_max_lifetime": config.Database.ConnMaxLifetime,
		"cms.cache_ttl":              config.CMS.CacheTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	switch strings.ToLower(config.Storage.Driver) {
	case "local":
	case "s3":
		if config.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.CMS.CacheSize <= 0 {
		return fmt.Errorf("cms cache size must be positive")
	}

	if config.Documents.APIBaseURL != "" {
		if _, err := url.Parse(config.Documents.APIBaseURL); err != nil {
			return fmt.Errorf("invalid documents api base url: %w", err)
		}
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// BillingEnabled reports whether Stripe credentials are configured
func (c *Config) BillingEnabled() bool {
	return c.Billing.SecretKey != "" && c.Billing.PriceID != ""
}

// DocumentsEnabled reports whether the document-collection OAuth client is configured
func (c *Config) DocumentsEnabled() bool {
	return c.Documents.ClientID != "" && c.Documents.TokenURL != "" && c.Documents.APIBaseURL != ""
}

// CMSBaseURL returns the CMS API root, derived from the service domain unless overridden
func (c *Config) CMSBaseURL() string {
	if c.CMS.BaseURL != "" {
		return strings.TrimRight(c.CMS.BaseURL, "/")
	}
	if c.CMS.ServiceDomain == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.microcms.io/api/v1", c.CMS.ServiceDomain)
}
