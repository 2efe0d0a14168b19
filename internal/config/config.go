package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/numera/numera/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	DynamoDB   DynamoDBConfig   `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Ledger     LedgerConfig     `validate:"required"`
	Event      EventConfig      `validate:"required"`
	Cache      CacheConfig
	S3         S3Config
	Sentry     SentryConfig
	Pyroscope  PyroscopeConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// DynamoDBConfig configures the primary ledger store
type DynamoDBConfig struct {
	Region   string `validate:"required"`
	Endpoint string
	Table    string `validate:"required"`
	// MaxTxAttempts bounds how often an optimistic transaction is re-run
	// after a commit conflict before Conflict is surfaced to the caller
	MaxTxAttempts int
}

// PostgresConfig configures the read only connection to the inbound invoice
// ledger filled by the ingestion pipeline
type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// LedgerConfig carries business defaults for document writes
type LedgerConfig struct {
	DefaultCurrency string `validate:"required"`
}

// EventConfig configures post commit ledger event publishing
type EventConfig struct {
	Topic string `validate:"required"`
}

type CacheConfig struct {
	Enabled       bool
	ExpiryMinutes int
}

type S3Config struct {
	Enabled           bool
	Region            string
	Bucket            string
	KeyPrefix         string
	PresignExpiryMins int
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

type PyroscopeConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	BasicAuthUser   string
	BasicAuthPass   string
	SampleRate      uint32
	DisableGCRuns   bool
	ProfileTypes    []string
}

func NewConfig() (*Configuration, error) {
	// Local runs keep secrets in a .env file; a missing file is fine
	_ = godotenv.Load()

	v := viper.New()

	// Modify config paths to ensure config.yaml is found
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/numera")

	// Set up environment variables support
	v.SetEnvPrefix("NUMERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	setDefaults(v)

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("dynamodb.maxtxattempts", 5)
	v.SetDefault("ledger.defaultcurrency", types.DefaultCurrency)
	v.SetDefault("event.topic", "ledger.events")
	v.SetDefault("cache.expiryminutes", 5)
	v.SetDefault("s3.presignexpirymins", 15)
	v.SetDefault("postgres.sslmode", "disable")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts, tests or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		DynamoDB: DynamoDBConfig{
			Region:        "il-central-1",
			Table:         "numera-ledger-local",
			MaxTxAttempts: 5,
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "numera",
			DBName:  "numera_expenses",
			SSLMode: "disable",
		},
		Ledger: LedgerConfig{DefaultCurrency: types.DefaultCurrency},
		Event:  EventConfig{Topic: "ledger.events"},
		Cache:  CacheConfig{Enabled: false, ExpiryMinutes: 5},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
