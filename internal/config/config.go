package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret            string
	TokenExpiry          time.Duration
	OperatorEmail        string
	OperatorPasswordHash string
	EncryptionKey        string

	HubspotURL   string
	HubspotToken string
	CRMTimeout   time.Duration

	CBCURL           string
	CBCUser          string
	CBCPassword      string
	CBCTimeout       time.Duration
	RotationSchedule string

	MongoURI string
	MongoDB  string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	OpsEmail     string
}

// NewConfig loads configuration from the environment, reading .env first when present
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found, using process environment")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5432 user=loans password=loans dbname=loans sslmode=disable"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		OperatorEmail:        getEnv("OPERATOR_EMAIL", ""),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		EncryptionKey:        getEnv("ENCRYPTION_KEY", ""),

		HubspotURL:   getEnv("HUBSPOT_URL", "https://api.hubapi.com"),
		HubspotToken: getEnv("HUBSPOT_TOKEN", ""),

		CBCURL:           getEnv("CBC_URL", "https://www.creditbureaureports.com/servlet/gnbank"),
		CBCUser:          getEnv("CBC_USER", ""),
		CBCPassword:      getEnv("CBC_PASSWORD", ""),
		RotationSchedule: getEnv("ROTATION_SCHEDULE", "0 3 * * *"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "loans"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:    getEnv("S3_BUCKET", "credit-reports"),
		S3UseSSL:    getEnv("S3_USE_SSL", "false") == "true",

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@localhost"),
		OpsEmail:     getEnv("OPS_EMAIL", ""),
	}

	var err error
	if cfg.TokenExpiry, err = getDuration("TOKEN_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CRMTimeout, err = getDuration("CRM_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.CBCTimeout, err = getDuration("CBC_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HubspotToken == "" {
		return nil, fmt.Errorf("HUBSPOT_TOKEN is required")
	}
	if n := len(cfg.EncryptionKey); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 16, 24 or 32 bytes, got %d", n)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
