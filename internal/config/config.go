package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Storage
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	StoreBackend    string `envconfig:"STORE_BACKEND" default:"memory"`
	TemplateBackend string `envconfig:"TEMPLATE_BACKEND" default:"kv"`

	// Provider
	FaceProvider string `envconfig:"FACE_PROVIDER" default:"mock"`
	DeepFaceURL  string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Capture timing
	FaceTickInterval     time.Duration `envconfig:"FACE_TICK_INTERVAL" default:"300ms"`
	EnrollTickInterval   time.Duration `envconfig:"ENROLL_TICK_INTERVAL" default:"500ms"`
	VerifyTimeout        time.Duration `envconfig:"VERIFY_TIMEOUT" default:"8s"`
	VoiceCaptureDuration time.Duration `envconfig:"VOICE_CAPTURE_DURATION" default:"3s"`
	ResultDisplayDelay   time.Duration `envconfig:"RESULT_DISPLAY_DELAY" default:"3s"`
	AudioSampleRate      int           `envconfig:"AUDIO_SAMPLE_RATE" default:"16000"`

	// Risk
	RiskChallengeThreshold int    `envconfig:"RISK_CHALLENGE_THRESHOLD" default:"50"`
	RiskBlockThreshold     int    `envconfig:"RISK_BLOCK_THRESHOLD" default:"85"`
	MockOTP                string `envconfig:"MOCK_OTP" default:"123456"`
	SeedSimIccid           string `envconfig:"SEED_SIM_ICCID" default:"892540212345678901f"`

	// Security log
	SecurityLogLimit int `envconfig:"SECURITY_LOG_LIMIT" default:"100"`
}

// Load reads and validates the configuration
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (supported: memory, postgres)", c.StoreBackend)
	}

	switch c.TemplateBackend {
	case "kv":
	case "pgvector":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TEMPLATE_BACKEND=pgvector")
		}
	default:
		return fmt.Errorf("unknown TEMPLATE_BACKEND %q (supported: kv, pgvector)", c.TemplateBackend)
	}

	if c.RiskChallengeThreshold <= 0 || c.RiskBlockThreshold <= c.RiskChallengeThreshold {
		return fmt.Errorf("risk thresholds must satisfy 0 < challenge (%d) < block (%d)",
			c.RiskChallengeThreshold, c.RiskBlockThreshold)
	}

	if c.FaceTickInterval <= 0 || c.EnrollTickInterval <= 0 || c.VerifyTimeout <= 0 || c.VoiceCaptureDuration <= 0 {
		return fmt.Errorf("capture intervals and timeouts must be positive")
	}

	if c.SecurityLogLimit <= 0 {
		return fmt.Errorf("SECURITY_LOG_LIMIT must be positive")
	}

	return nil
}

// UsesDatabase reports whether any component needs a PostgreSQL pool
func (c *Config) UsesDatabase() bool {
	return c.StoreBackend == "postgres" || c.TemplateBackend == "pgvector"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
