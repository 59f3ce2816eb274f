package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/netbatch/netbatch/pkg/napi/utils"
)

type EnvConfig struct {
	Port        string `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"netbatch"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"password"`
	DBName     string `envconfig:"DB_NAME" default:"netbatch"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	ValkeyAddr     string `envconfig:"VALKEY_ADDR"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`

	// ArtifactBackend selects where command output lands: "s3" or "fs".
	ArtifactBackend string `envconfig:"ARTIFACT_BACKEND" default:"fs"`
	ArtifactDir     string `envconfig:"ARTIFACT_DIR" default:"./artifacts"`
	S3Endpoint      string `envconfig:"S3_ENDPOINT"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	S3Bucket        string `envconfig:"S3_BUCKET" default:"netbatch-artifacts"`
	S3UseSSL        bool   `envconfig:"S3_USE_SSL" default:"false"`

	// Fleet-default device credentials, used when a device row has none.
	DeviceUsername       string `envconfig:"DEVICE_USERNAME"`
	DevicePassword       string `envconfig:"DEVICE_PASSWORD"`
	DeviceEnablePassword string `envconfig:"DEVICE_ENABLE_PASSWORD"`

	// Simulate makes unreachable devices fall back to fabricated sessions.
	Simulate bool `envconfig:"NETBATCH_SIMULATE" default:"false"`

	ConnectTimeoutSec int    `envconfig:"CONNECT_TIMEOUT_SEC" default:"30"`
	CommandTimeoutSec int    `envconfig:"COMMAND_TIMEOUT_SEC" default:"60"`
	SessionIdleSec    int    `envconfig:"SESSION_IDLE_SEC" default:"600"`
	TranscriptDir     string `envconfig:"TRANSCRIPT_DIR"`
}

func ValidateEnv() (*EnvConfig, error) {
	if utils.IsDev() {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var errors []string

	switch cfg.ArtifactBackend {
	case "fs":
		if cfg.ArtifactDir == "" {
			errors = append(errors, "  ❌ ARTIFACT_DIR is required when ARTIFACT_BACKEND=fs")
		}
	case "s3":
		if cfg.S3Endpoint == "" {
			errors = append(errors, "  ❌ S3_ENDPOINT is required when ARTIFACT_BACKEND=s3")
		}
		if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			errors = append(errors, "  ❌ S3_ACCESS_KEY and S3_SECRET_KEY are required when ARTIFACT_BACKEND=s3")
		}
	default:
		errors = append(errors, fmt.Sprintf("  ❌ ARTIFACT_BACKEND must be fs or s3, got %q", cfg.ArtifactBackend))
	}

	if cfg.ConnectTimeoutSec <= 0 {
		errors = append(errors, "  ❌ CONNECT_TIMEOUT_SEC must be positive")
	}
	if cfg.CommandTimeoutSec <= 0 {
		errors = append(errors, "  ❌ COMMAND_TIMEOUT_SEC must be positive")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return &cfg, nil
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Database: %s@%s:%d/%s (sslmode=%s)\n", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)

	if c.ValkeyAddr != "" {
		fmtr("  Valkey: ✓ %s (db %d)\n", c.ValkeyAddr, c.ValkeyDB)
	} else {
		fmtr("  Valkey: ✗ Disabled (in-memory KV)\n")
	}

	fmtr("  Artifacts: %s\n", c.ArtifactBackend)
	if c.ArtifactBackend == "s3" {
		fmtr("    Endpoint: %s\n", c.S3Endpoint)
		fmtr("    Bucket: %s\n", c.S3Bucket)
		fmtr("    Access Key: %s\n", MaskSecret(c.S3AccessKey))
	} else {
		fmtr("    Directory: %s\n", c.ArtifactDir)
	}

	fmtr("  Device Defaults: user=%s password=%s\n", c.DeviceUsername, MaskSecret(c.DevicePassword))

	if c.Simulate {
		fmtr("  Simulate: ✓ Enabled (unreachable devices get fabricated sessions)\n")
	} else {
		fmtr("  Simulate: ✗ Disabled\n")
	}
}
