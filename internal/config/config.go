package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	EncryptionKey                    string `mapstructure:"ENCRYPTION_KEY"` // Base64 encoded, 32 bytes decoded
	JWTSecret                        string `mapstructure:"JWT_SECRET"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	RedisAddress                     string `mapstructure:"REDIS_ADDRESS"` // optional; permission cache disabled when empty
	RedisPassword                    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                          int    `mapstructure:"REDIS_DB"`
	AMQPURL                          string `mapstructure:"AMQP_URL"` // optional; audit event publishing disabled when empty
	AuditQueueName                   string `mapstructure:"AUDIT_QUEUE_NAME"`
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("AUDIT_QUEUE_NAME", "access-audit-events")
	viper.SetDefault("REDIS_DB", 0)

	for _, key := range []string{
		"PORT", "GIN_MODE",
		"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
		"ENCRYPTION_KEY", "JWT_SECRET", "CLIENT_URL",
		"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
		"AMQP_URL", "AUDIT_QUEUE_NAME",
	} {
		viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return &cfg, nil
}
