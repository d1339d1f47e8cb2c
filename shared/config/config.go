package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tutorial-scraper/internal/ingest"
	"tutorial-scraper/internal/models"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Storage    StorageConfig    `yaml:"storage"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Log        LogConfig        `yaml:"log"`
	Schedule   string           `yaml:"schedule" validate:"required"`
}

const (
	AuthAPIKey = "api_key"
	AuthOAuth  = "oauth"
)

type YouTubeConfig struct {
	AuthMode          string  `yaml:"auth_mode" validate:"oneof=api_key oauth"`
	APIKey            string  `yaml:"api_key" validate:"required_if=AuthMode api_key"`
	ClientID          string  `yaml:"client_id" validate:"required_if=AuthMode oauth"`
	ClientSecret      string  `yaml:"client_secret" validate:"required_if=AuthMode oauth"`
	TokenFile         string  `yaml:"token_file"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	RelevanceLanguage string  `yaml:"relevance_language"`
}

type ScraperConfig struct {
	Languages          []string      `yaml:"languages"`
	Subjects           []string      `yaml:"subjects"`
	MinDurationSeconds int           `yaml:"min_duration_seconds"`
	MaxResultsPerQuery int           `yaml:"max_results_per_query"`
	UploadDateFilter   string        `yaml:"upload_date_filter"`
	ExcludedPatterns   []string      `yaml:"excluded_patterns"`
	QuotaBudget        int           `yaml:"quota_budget"`
	MaxQueries         int           `yaml:"max_queries"`
	RunTimeout         time.Duration `yaml:"run_timeout" validate:"gte=0"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite json"`
	Path   string `yaml:"path" validate:"required"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server" validate:"required_if=Enabled true"`
	SMTPPort   int    `yaml:"smtp_port" validate:"gte=0,lte=65535"`
	Username   string `yaml:"username" validate:"required_if=Enabled true"`
	Password   string `yaml:"password" validate:"required_if=Enabled true"`
	FromEmail  string `yaml:"from_email" validate:"required_if=Enabled true"`
	ToEmail    string `yaml:"to_email" validate:"required_if=Enabled true"`
}

type MonitoringConfig struct {
	// HealthPort defaults to 8080; a negative port disables the health server
	HealthPort int `yaml:"health_port" validate:"lte=65535"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Load reads CONFIG_FILE (default config.yaml) after loading .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	return LoadFile(configFile)
}

// LoadFile reads, defaults and validates the config at path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.AuthMode == "" {
		c.YouTube.AuthMode = AuthAPIKey
	}
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.RelevanceLanguage == "" {
		c.YouTube.RelevanceLanguage = "en"
	}

	defaults := ingest.DefaultConfig()
	if c.Scraper.MinDurationSeconds == 0 {
		c.Scraper.MinDurationSeconds = defaults.MinDurationSeconds
	}
	if c.Scraper.MaxResultsPerQuery == 0 {
		c.Scraper.MaxResultsPerQuery = defaults.MaxResultsPerQuery
	}
	if c.Scraper.UploadDateFilter == "" {
		c.Scraper.UploadDateFilter = string(defaults.Recency)
	}
	if c.Scraper.RunTimeout == 0 {
		c.Scraper.RunTimeout = 30 * time.Minute
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "json" {
			c.Storage.Path = "data"
		} else {
			c.Storage.Path = "data/tutorials.db"
		}
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 6 * * *" // Daily at 6 AM
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	var cfgErr *models.ConfigError
	if err := c.Ingest().Validate(); errors.As(err, &cfgErr) {
		problems = append(problems, cfgErr.Problems...)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(fe.Param(), " ", " is ", 1))
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Ingest returns the ingestion settings for one run
func (c *Config) Ingest() ingest.Config {
	return ingest.Config{
		Languages:          c.Scraper.Languages,
		Subjects:           c.Scraper.Subjects,
		MinDurationSeconds: c.Scraper.MinDurationSeconds,
		MaxResultsPerQuery: c.Scraper.MaxResultsPerQuery,
		Recency:            models.Recency(c.Scraper.UploadDateFilter),
		ExcludedPatterns:   c.Scraper.ExcludedPatterns,
		QuotaBudget:        c.Scraper.QuotaBudget,
		MaxQueries:         c.Scraper.MaxQueries,
		RequestsPerSecond:  c.YouTube.RequestsPerSecond,
		RelevanceLanguage:  c.YouTube.RelevanceLanguage,
	}
}
