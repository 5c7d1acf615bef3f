package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Source types supported by the feed adapter.
const (
	SourceWebcal = "webcal"
	SourceGoogle = "google"
)

// SourceConfig selects and configures the event source.
type SourceConfig struct {
	Type string `json:"type,omitempty"` // "webcal" (default) or "google"

	// Webcal source
	URL string `json:"url,omitempty"` // webcal:// or https:// ICS endpoint

	// Google Calendar source
	CalendarID            string `json:"calendar_id,omitempty"`
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	TokenPath             string `json:"token_path,omitempty"`
}

// MongoConfig locates the snapshot collection.
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// SMTPConfig configures the outgoing mail transport.
type SMTPConfig struct {
	Server   string `json:"server"`
	Port     int    `json:"port,omitempty"` // default 587
	Username string `json:"username"`
	Password string `json:"password"`
}

// Config holds the configuration for the calendar watch service.
type Config struct {
	Env    string `json:"env,omitempty"`    // "local", "development" or "production"
	Listen string `json:"listen,omitempty"` // HTTP listen address

	Source SourceConfig `json:"source"`
	Mongo  MongoConfig  `json:"mongo"`
	SMTP   SMTPConfig   `json:"smtp"`

	RecipientEmail string `json:"recipient_email"`

	// RetentionHours is how long after an event's start its
	// disappearance from the feed is still treated as a cancellation.
	RetentionHours int `json:"retention_hours,omitempty"`

	// ExcludedLocations is matched case-insensitively against trimmed
	// event locations.
	ExcludedLocations []string `json:"excluded_locations,omitempty"`

	CheckIntervalMinutes int  `json:"check_interval_minutes,omitempty"`
	DisableScheduler     bool `json:"disable_scheduler,omitempty"`
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile, feedURLFlag, recipientFlag, listenFlag string) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	if v := os.Getenv("WEB_CAL_URL"); v != "" {
		config.Source.URL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		config.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		config.Mongo.Database = v
	}
	if v := os.Getenv("MONGO_COLLECTION"); v != "" {
		config.Mongo.Collection = v
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		config.SMTP.Server = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT value: %w", err)
		}
		config.SMTP.Port = port
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		config.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		config.SMTP.Password = v
	}
	if v := os.Getenv("RECIPIENT_EMAIL"); v != "" {
		config.RecipientEmail = v
	}
	if v := os.Getenv("RETENTION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RETENTION_HOURS value: %w", err)
		}
		config.RetentionHours = hours
	}
	if v := os.Getenv("CHECK_INTERVAL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL_MINUTES value: %w", err)
		}
		config.CheckIntervalMinutes = minutes
	}
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULER_ENABLED value: %w", err)
		}
		config.DisableScheduler = !enabled
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		config.Listen = v
	}

	// Step 3: Override with command-line flags (highest priority)
	if feedURLFlag != "" {
		config.Source.URL = feedURLFlag
	}
	if recipientFlag != "" {
		config.RecipientEmail = recipientFlag
	}
	if listenFlag != "" {
		config.Listen = listenFlag
	}

	// Step 4: Apply defaults and validate required fields
	if config.Env == "" {
		config.Env = "local"
	}
	if config.Listen == "" {
		config.Listen = ":3001"
	}
	if config.Source.Type == "" {
		config.Source.Type = SourceWebcal
	}
	if config.RetentionHours <= 0 {
		config.RetentionHours = 10
	}
	if len(config.ExcludedLocations) == 0 {
		config.ExcludedLocations = []string{"privat"}
	}
	if config.CheckIntervalMinutes <= 0 {
		config.CheckIntervalMinutes = 15
	}
	if config.SMTP.Port == 0 {
		config.SMTP.Port = 587
	}

	switch config.Source.Type {
	case SourceWebcal:
		if config.Source.URL == "" {
			return nil, fmt.Errorf("source.url must be provided via --feed-url flag, WEB_CAL_URL environment variable, or config file")
		}
	case SourceGoogle:
		if config.Source.GoogleCredentialsPath == "" {
			return nil, fmt.Errorf("source.google_credentials_path must be provided for the google source")
		}
		if config.Source.TokenPath == "" {
			return nil, fmt.Errorf("source.token_path must be provided for the google source")
		}
	default:
		return nil, fmt.Errorf("source.type must be %q or %q, got %q", SourceWebcal, SourceGoogle, config.Source.Type)
	}

	if config.Mongo.URI == "" {
		return nil, fmt.Errorf("mongo.uri must be provided via MONGO_URI environment variable or config file")
	}
	if config.Mongo.Database == "" {
		return nil, fmt.Errorf("mongo.database must be provided via MONGO_DB environment variable or config file")
	}
	if config.Mongo.Collection == "" {
		return nil, fmt.Errorf("mongo.collection must be provided via MONGO_COLLECTION environment variable or config file")
	}

	if config.SMTP.Server == "" {
		return nil, fmt.Errorf("smtp.server must be provided via SMTP_SERVER environment variable or config file")
	}
	if config.RecipientEmail == "" {
		return nil, fmt.Errorf("recipient_email must be provided via --recipient flag, RECIPIENT_EMAIL environment variable, or config file")
	}
	if !strings.Contains(config.RecipientEmail, "@") {
		return nil, fmt.Errorf("recipient_email %q does not look like an email address", config.RecipientEmail)
	}

	return &config, nil
}

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}
