package config

import (
	"strings"
	"testing"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REFRESH_INTERVAL", "")
}

func TestLoadValidConfig(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level info, got %s", cfg.LogLevel)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Errorf("Expected UTC location, got %v", cfg.Location)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("Expected default backend memory, got %s", cfg.StoreBackend)
	}
	if cfg.RefreshInterval != 15 {
		t.Errorf("Expected default refresh interval 15, got %d", cfg.RefreshInterval)
	}
	if cfg.Location == nil {
		t.Error("Expected a location")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"port not a number", "PORT", "abc", "PORT must be a valid number"},
		{"port zero", "PORT", "0", "PORT must be between 1 and 65535"},
		{"port too high", "PORT", "65536", "PORT must be between 1 and 65535"},
		{"privileged port", "PORT", "80", "PORT 80 is privileged"},
		{"address", "ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"public address", "ADDRESS", "8.8.8.8", "is a public IP"},
		{"env", "ENV", "invalid", "unknown environment"},
		{"log level", "LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"backend", "STORE_BACKEND", "redis", "STORE_BACKEND must be one of"},
		{"refresh interval", "REFRESH_INTERVAL", "0", "REFRESH_INTERVAL must be positive"},
		{"timezone", "TIMEZONE", "Mars/Olympus", "invalid TIMEZONE"},
		{"retention", "LOG_RETENTION_WEEKS", "60", "LOG_RETENTION_WEEKS is too large"},
		{"log file size", "MAX_LOG_FILE_SIZE", "1024", "MAX_LOG_FILE_SIZE is too small"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestStoreBackendRequirements(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL is required") {
		t.Errorf("Expected DATABASE_URL error, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/rotations")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.StoreBackend != BackendPostgres {
		t.Errorf("Expected postgres backend, got %s", cfg.StoreBackend)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for %s: %v", tt.input, err)
				}
				if env != tt.expected {
					t.Errorf("Expected %v, got %v", tt.expected, env)
				}
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
