package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name:    "uses defaults when nothing is set",
			envVars: map[string]string{},
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.StoreBackend == "memory" &&
					c.TemplateBackend == "kv" &&
					c.FaceProvider == "mock" &&
					c.FaceTickInterval == 300*time.Millisecond &&
					c.EnrollTickInterval == 500*time.Millisecond &&
					c.VerifyTimeout == 8*time.Second &&
					c.VoiceCaptureDuration == 3*time.Second &&
					c.ResultDisplayDelay == 3*time.Second &&
					c.RiskChallengeThreshold == 50 &&
					c.RiskBlockThreshold == 85 &&
					c.MockOTP == "123456" &&
					c.SeedSimIccid == "892540212345678901f" &&
					c.SecurityLogLimit == 100 &&
					!c.UsesDatabase()
			},
		},
		{
			name: "loads postgres backends",
			envVars: map[string]string{
				"PORT":             "8080",
				"ENV":              "production",
				"DATABASE_URL":     "postgres://localhost/test",
				"STORE_BACKEND":    "postgres",
				"TEMPLATE_BACKEND": "pgvector",
				"VERIFY_TIMEOUT":   "10s",
			},
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.VerifyTimeout == 10*time.Second &&
					c.UsesDatabase()
			},
		},
		{
			name:    "fails when postgres store has no DATABASE_URL",
			envVars: map[string]string{"STORE_BACKEND": "postgres"},
			wantErr: true,
		},
		{
			name:    "fails when pgvector templates have no DATABASE_URL",
			envVars: map[string]string{"TEMPLATE_BACKEND": "pgvector"},
			wantErr: true,
		},
		{
			name:    "fails on unknown store backend",
			envVars: map[string]string{"STORE_BACKEND": "redis"},
			wantErr: true,
		},
		{
			name: "fails when block threshold is not above challenge",
			envVars: map[string]string{
				"RISK_CHALLENGE_THRESHOLD": "60",
				"RISK_BLOCK_THRESHOLD":     "60",
			},
			wantErr: true,
		},
		{
			name:    "fails on malformed duration",
			envVars: map[string]string{"VERIFY_TIMEOUT": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
