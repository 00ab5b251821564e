package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Port      string        `env:"CHOREBANK_PORT" envDefault:"8080"`
	DBPath    string        `env:"CHOREBANK_DB_PATH" envDefault:"chorebank.db"`
	LogLevel  string        `env:"CHOREBANK_LOG_LEVEL" envDefault:"info"`
	JWTSecret string        `env:"CHOREBANK_JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"CHOREBANK_TOKEN_TTL" envDefault:"168h"`

	Backup Backup
}

// Backup configures the optional encrypted S3 backup. Leaving the bucket
// or credentials empty disables it.
type Backup struct {
	S3Endpoint string        `env:"CHOREBANK_S3_ENDPOINT"`
	S3Bucket   string        `env:"CHOREBANK_S3_BUCKET"`
	S3Region   string        `env:"CHOREBANK_S3_REGION" envDefault:"auto"`
	AccessKey  string        `env:"CHOREBANK_S3_ACCESS_KEY"`
	SecretKey  string        `env:"CHOREBANK_S3_SECRET_KEY"`
	Passphrase string        `env:"CHOREBANK_BACKUP_PASSPHRASE"`
	Interval   time.Duration `env:"CHOREBANK_BACKUP_INTERVAL" envDefault:"24h"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
