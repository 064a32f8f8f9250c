package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server" envPrefix:"SERVER_"`
	Database      DatabaseConfig      `json:"database" envPrefix:"DATABASE_"`
	Security      SecurityConfig      `json:"security" envPrefix:"SECURITY_"`
	Logging       LoggingConfig       `json:"logging" envPrefix:"LOG_"`
	AWS           AWSConfig           `json:"aws" envPrefix:"AWS_"`
	Notifications NotificationsConfig `json:"notifications" envPrefix:"NOTIFICATIONS_"`
	Workflow      WorkflowConfig      `json:"workflow" envPrefix:"WORKFLOW_"`
	Requirements  RequirementsConfig  `json:"requirements" envPrefix:"REQUIREMENTS_"`
	Scheduler     SchedulerConfig     `json:"scheduler" envPrefix:"SCHEDULER_"`
	Audit         AuditConfig         `json:"audit" envPrefix:"AUDIT_"`
	Archive       ArchiveConfig       `json:"archive" envPrefix:"ARCHIVE_"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host" env:"HOST"`
	Port            int           `json:"port" env:"PORT"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// AllowedOrigins for CORS and websocket upgrades. Empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	// RunScheduler hosts the job runner inside the API process.
	RunScheduler bool `json:"run_scheduler" env:"RUN_SCHEDULER"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory driver keeps workflow and
	// notification state in process and is meant for local runs.
	Driver         string        `json:"driver" env:"DRIVER"`
	Host           string        `json:"host" env:"HOST"`
	Port           int           `json:"port" env:"PORT"`
	User           string        `json:"user" env:"USER"`
	Password       string        `json:"password" env:"PASSWORD"`
	DBName         string        `json:"db_name" env:"DBNAME"`
	SSLMode        string        `json:"ssl_mode" env:"SSLMODE"`
	MaxConnections int           `json:"max_connections" env:"MAX_CONNECTIONS"`
	MaxIdleConns   int           `json:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxLifetime    time.Duration `json:"max_lifetime" env:"MAX_LIFETIME"`
	AutoMigrate    bool          `json:"auto_migrate" env:"AUTO_MIGRATE"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret" env:"JWT_SECRET"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level" env:"LEVEL"`
	Development bool   `json:"development" env:"DEVELOPMENT"`
}

// AWSConfig holds credentials shared by the SES, SNS, S3, DynamoDB and
// API Gateway clients. Empty keys fall back to the default credential chain.
type AWSConfig struct {
	Region          string `json:"region" env:"REGION"`
	AccessKeyID     string `json:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	SessionToken    string `json:"session_token" env:"SESSION_TOKEN"`
}

// NotificationsConfig selects outbound transports.
type NotificationsConfig struct {
	EmailProvider string     `json:"email_provider" env:"EMAIL_PROVIDER"` // ses, smtp, none
	FromAddress   string     `json:"from_address" env:"FROM_ADDRESS"`
	FromName      string     `json:"from_name" env:"FROM_NAME"`
	SMTP          SMTPConfig `json:"smtp" envPrefix:"SMTP_"`

	SMSProvider string `json:"sms_provider" env:"SMS_PROVIDER"` // sns, none
	SMSSenderID string `json:"sms_sender_id" env:"SMS_SENDER_ID"`

	PushProvider       string `json:"push_provider" env:"PUSH_PROVIDER"` // websocket, apigateway, none
	APIGatewayEndpoint string `json:"apigateway_endpoint" env:"APIGATEWAY_ENDPOINT"`
	ConnectionsTable   string `json:"connections_table" env:"CONNECTIONS_TABLE"`

	Retention     time.Duration `json:"retention" env:"RETENTION"`
	ActionBaseURL string        `json:"action_base_url" env:"ACTION_BASE_URL"`
}

// SMTPConfig configuration for email delivery over SMTP
type SMTPConfig struct {
	Host     string `json:"host" env:"HOST"`
	Port     int    `json:"port" env:"PORT"`
	Username string `json:"username" env:"USERNAME"`
	Password string `json:"password" env:"PASSWORD"`
}

// WorkflowConfig tunes the collaboration workflow.
type WorkflowConfig struct {
	ExpiryWindow time.Duration `json:"expiry_window" env:"EXPIRY_WINDOW"`
	// AdminIDs is used as the admin directory when the database driver is memory.
	AdminIDs []string `json:"admin_ids" env:"ADMIN_IDS" envSeparator:","`
}

// RequirementsConfig tunes the action-requirement reminder cooldowns.
type RequirementsConfig struct {
	ScheduledCooldown time.Duration `json:"scheduled_cooldown" env:"SCHEDULED_COOLDOWN"`
	DashboardCooldown time.Duration `json:"dashboard_cooldown" env:"DASHBOARD_COOLDOWN"`
	ExpiringWithin    time.Duration `json:"expiring_within" env:"EXPIRING_WITHIN"`
}

// SchedulerConfig holds the cron expressions of the periodic sweeps.
type SchedulerConfig struct {
	Timezone            string        `json:"timezone" env:"TIMEZONE"`
	JobTimeout          time.Duration `json:"job_timeout" env:"JOB_TIMEOUT"`
	EventReminder       string        `json:"event_reminder" env:"EVENT_REMINDER"`
	RatingRequest       string        `json:"rating_request" env:"RATING_REQUEST"`
	ProfileIncomplete   string        `json:"profile_incomplete" env:"PROFILE_INCOMPLETE"`
	DraftEvent          string        `json:"draft_event" env:"DRAFT_EVENT"`
	KYCPending          string        `json:"kyc_pending" env:"KYC_PENDING"`
	CollaborationExpiry string        `json:"collaboration_expiry" env:"COLLABORATION_EXPIRY"`
	NotificationPurge   string        `json:"notification_purge" env:"NOTIFICATION_PURGE"`
}

// AuditConfig points the transition audit trail at Elasticsearch.
// With no addresses the audit trail is written to the log only.
type AuditConfig struct {
	Addresses []string `json:"addresses" env:"ELASTICSEARCH_ADDRESSES" envSeparator:","`
	Username  string   `json:"username" env:"ELASTICSEARCH_USERNAME"`
	Password  string   `json:"password" env:"ELASTICSEARCH_PASSWORD"`
	Index     string   `json:"index" env:"INDEX"`
}

// ArchiveConfig configures where purged notifications are archived.
type ArchiveConfig struct {
	Bucket string `json:"bucket" env:"BUCKET"`
	Prefix string `json:"prefix" env:"PREFIX"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "collab_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    time.Hour,
		},
		Logging: LoggingConfig{Level: "info"},
		AWS:     AWSConfig{Region: "us-east-1"},
		Notifications: NotificationsConfig{
			EmailProvider: "none",
			FromName:      "Collab Portal",
			SMTP:          SMTPConfig{Port: 587},
			SMSProvider:   "none",
			PushProvider:  "websocket",
			Retention:     90 * 24 * time.Hour,
		},
		Workflow: WorkflowConfig{ExpiryWindow: 14 * 24 * time.Hour},
		Requirements: RequirementsConfig{
			ScheduledCooldown: 7 * 24 * time.Hour,
			DashboardCooldown: 24 * time.Hour,
			ExpiringWithin:    7 * 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Timezone:            "UTC",
			JobTimeout:          30 * time.Minute,
			EventReminder:       "0 9 * * *",
			RatingRequest:       "0 10 * * *",
			ProfileIncomplete:   "0 9 * * 1",
			DraftEvent:          "0 11 * * 1",
			KYCPending:          "0 12 * * 1",
			CollaborationExpiry: "0 * * * *",
			NotificationPurge:   "30 3 * * *",
		},
		Audit:   AuditConfig{Index: "collaboration-transitions"},
		Archive: ArchiveConfig{Prefix: "notifications/archive"},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()

	// Load from file if exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Workflow.ExpiryWindow <= 0 {
		return fmt.Errorf("config: workflow expiry window must be positive")
	}
	if c.Requirements.ScheduledCooldown < time.Second || c.Requirements.DashboardCooldown < time.Second {
		return fmt.Errorf("config: requirement cooldowns must be at least one second")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("config: invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Build creates the zap logger described by the logging section.
func (c LoggingConfig) Build() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("config: invalid log level %q: %w", c.Level, err)
		}
		cfg.Level = level
	}
	return cfg.Build()
}
