package common

import (
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("DCRX_KV_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_SecretKeyEnvOverride(t *testing.T) {
	t.Setenv("DCRX_KV_SECRET_KEY", "secret-from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Auth.SecretKey != "secret-from-env" {
		t.Errorf("Auth.SecretKey = %q, want %q", cfg.Auth.SecretKey, "secret-from-env")
	}
}

func TestConfig_DatabaseTypeEnvOverride(t *testing.T) {
	t.Setenv("DCRX_KV_DATABASE_TYPE", "postgres")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Database.Type != "postgres" {
		t.Errorf("Database.Type = %q after env override, want %q", cfg.Database.Type, "postgres")
	}
}

func TestConfig_EnvironmentEnvOverride(t *testing.T) {
	t.Setenv("DCRX_KV_ENV", "production")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if !cfg.IsProduction() {
		t.Errorf("IsProduction() = false after DCRX_KV_ENV=production override")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cases := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"Production", true},
		{"development", false},
		{"", false},
	}
	for _, c := range cases {
		cfg := &Config{Environment: c.env}
		if got := cfg.IsProduction(); got != c.want {
			t.Errorf("IsProduction() with Environment=%q = %v, want %v", c.env, got, c.want)
		}
	}
}

func TestStorageConfig_DurationAccessors_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.GetUploadTimeout() != 30*time.Second {
		t.Errorf("GetUploadTimeout() = %v, want 30s", cfg.Storage.GetUploadTimeout())
	}
	if cfg.Storage.GetDownloadTimeout() != 30*time.Second {
		t.Errorf("GetDownloadTimeout() = %v, want 30s", cfg.Storage.GetDownloadTimeout())
	}
	if cfg.Storage.GetPruneInterval() != 30*time.Second {
		t.Errorf("GetPruneInterval() = %v, want 30s", cfg.Storage.GetPruneInterval())
	}
	if cfg.Storage.GetBlobMaxAge() != 10*time.Minute {
		t.Errorf("GetBlobMaxAge() = %v, want 10m", cfg.Storage.GetBlobMaxAge())
	}
	if cfg.Storage.GetMaxPendingWait() != 5*time.Second {
		t.Errorf("GetMaxPendingWait() = %v, want 5s", cfg.Storage.GetMaxPendingWait())
	}
}

func TestStorageConfig_DurationAccessors_InvalidFallsBack(t *testing.T) {
	cfg := &StorageConfig{BlobMaxAge: "not-a-duration"}
	if d := cfg.GetBlobMaxAge(); d != 10*time.Minute {
		t.Errorf("GetBlobMaxAge() = %v, want 10m fallback for invalid value", d)
	}
}

func TestAuthConfig_GetTokenExpiry_Default(t *testing.T) {
	cfg := &AuthConfig{}
	if d := cfg.GetTokenExpiry(); d != time.Hour {
		t.Errorf("GetTokenExpiry() = %v, want 1h", d)
	}
}

func TestAuthConfig_GetTokenExpiry_Configured(t *testing.T) {
	cfg := &AuthConfig{TokenExpiry: "15m"}
	if d := cfg.GetTokenExpiry(); d != 15*time.Minute {
		t.Errorf("GetTokenExpiry() = %v, want 15m", d)
	}
}

func TestDatabaseConfig_GetTransactionRetries_Default(t *testing.T) {
	cfg := &DatabaseConfig{}
	if n := cfg.GetTransactionRetries(); n != 3 {
		t.Errorf("GetTransactionRetries() = %d, want 3", n)
	}
}

func TestDatabaseConfig_GetTransactionRetries_Configured(t *testing.T) {
	cfg := &DatabaseConfig{TransactionRetries: 5}
	if n := cfg.GetTransactionRetries(); n != 5 {
		t.Errorf("GetTransactionRetries() = %d, want 5", n)
	}
}

func TestMonitorConfig_GetSampleInterval_Default(t *testing.T) {
	cfg := &MonitorConfig{}
	if d := cfg.GetSampleInterval(); d != 5*time.Second {
		t.Errorf("GetSampleInterval() = %v, want 5s", d)
	}
}

func TestConfig_NewDefault_StorageFields(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.MaxJobs != 16 {
		t.Errorf("Storage.MaxJobs default = %d, want 16", cfg.Storage.MaxJobs)
	}
	if cfg.Storage.MaxPendingJobs != 64 {
		t.Errorf("Storage.MaxPendingJobs default = %d, want 64", cfg.Storage.MaxPendingJobs)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type default = %q, want %q", cfg.Database.Type, "sqlite")
	}
}
