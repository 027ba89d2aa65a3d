package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	SES          SESConfig          `yaml:"ses"`
	Storage      StorageConfig      `yaml:"storage"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Cron         CronConfig         `yaml:"cron"`
	Verification VerificationConfig `yaml:"verification"`
	Notify       NotifyConfig       `yaml:"notify"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings for the pipeline run locks
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// SESConfig holds AWS SES API configuration for outbound alert email
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig holds certificate document storage settings
type StorageConfig struct {
	S3Bucket   string `yaml:"s3_bucket"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// ExtractionConfig holds Bedrock-based certificate field extraction settings
type ExtractionConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ModelID             string  `yaml:"model_id"`
	Region              string  `yaml:"region"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// CronConfig holds settings for the scheduler-triggered pipeline endpoints
type CronConfig struct {
	Secret              string `yaml:"secret"`
	ReverifyBatchSize   int    `yaml:"reverify_batch_size"`
	ReverifyIntervalDays int   `yaml:"reverify_interval_days"`
	RunLockTTLSeconds   int    `yaml:"run_lock_ttl_seconds"`
}

// RunLockTTL returns the pipeline run-lock TTL as a duration
func (c CronConfig) RunLockTTL() time.Duration {
	return time.Duration(c.RunLockTTLSeconds) * time.Second
}

// VerificationConfig holds certification verification settings
type VerificationConfig struct {
	GOTSLookupURL       string `yaml:"gots_lookup_url"`
	LookupTimeoutSecs   int    `yaml:"lookup_timeout_seconds"`
	LookupMaxRetries    int    `yaml:"lookup_max_retries"`
	SA8000DirectoryPath string `yaml:"sa8000_directory_path"`
}

// NotifyConfig holds alert email settings
type NotifyConfig struct {
	DashboardBaseURL string `yaml:"dashboard_base_url"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.FromName == "" {
		cfg.SES.FromName = "SupplyVault"
	}
	if cfg.Extraction.ModelID == "" {
		cfg.Extraction.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if cfg.Extraction.Region == "" {
		cfg.Extraction.Region = "us-east-1"
	}
	if cfg.Extraction.ConfidenceThreshold == 0 {
		cfg.Extraction.ConfidenceThreshold = 0.6
	}
	if cfg.Cron.ReverifyBatchSize == 0 {
		cfg.Cron.ReverifyBatchSize = 100
	}
	if cfg.Cron.ReverifyIntervalDays == 0 {
		cfg.Cron.ReverifyIntervalDays = 30
	}
	if cfg.Cron.RunLockTTLSeconds == 0 {
		cfg.Cron.RunLockTTLSeconds = 300
	}
	if cfg.Verification.LookupTimeoutSecs == 0 {
		cfg.Verification.LookupTimeoutSecs = 20
	}
	if cfg.Verification.LookupMaxRetries == 0 {
		cfg.Verification.LookupMaxRetries = 3
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("ALERT_FROM_EMAIL"); from != "" {
		cfg.SES.FromEmail = from
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		cfg.Cron.Secret = secret
	}
	if bucket := os.Getenv("CERT_S3_BUCKET"); bucket != "" {
		cfg.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("CERT_S3_REGION"); region != "" {
		cfg.Storage.AWSRegion = region
	}
	if model := os.Getenv("EXTRACTION_MODEL_ID"); model != "" {
		cfg.Extraction.ModelID = model
	}
	if url := os.Getenv("GOTS_LOOKUP_URL"); url != "" {
		cfg.Verification.GOTSLookupURL = url
	}
	if base := os.Getenv("DASHBOARD_BASE_URL"); base != "" {
		cfg.Notify.DashboardBaseURL = base
	}

	return cfg, nil
}
