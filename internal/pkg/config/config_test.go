package config_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/propertypulse/propertypulse/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load("propertypulse-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.BodyLimit() != 10*1024*1024 {
		t.Errorf("expected 10 MB body limit, got %d", cfg.Server.BodyLimit())
	}
	if cfg.Session.IdleTTL != 2*time.Hour {
		t.Errorf("expected 2h idle ttl, got %v", cfg.Session.IdleTTL)
	}
	if cfg.Valkey.ExportTTL != 10*time.Minute {
		t.Errorf("expected 10m export ttl, got %v", cfg.Valkey.ExportTTL)
	}
	if cfg.Telemetry.ServiceName != "propertypulse-test" {
		t.Errorf("expected service name from argument, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PROPERTYPULSE_SERVER_PORT", "9090")
	t.Setenv("PROPERTYPULSE_VALKEY_ENABLED", "true")
	t.Setenv("PROPERTYPULSE_VALKEY_ADDR", "cache:6379")
	t.Setenv("PROPERTYPULSE_SESSION_IDLE_TTL", "30m")

	cfg, err := config.Load("propertypulse-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Valkey.Enabled || cfg.Valkey.Addr != "cache:6379" {
		t.Errorf("unexpected valkey config %+v", cfg.Valkey)
	}
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("expected 30m, got %v", cfg.Session.IdleTTL)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1, BodyLimitMB: 1},
		Session: config.SessionConfig{
			IdleTTL:       time.Hour,
			SweepInterval: time.Minute,
		},
		Valkey: config.ValkeyConfig{Enabled: true},
		NATS:   config.NATSConfig{Enabled: true},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "valkey.addr", "valkey.export_ttl", "nats.url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_DisabledBackendsNeedNoAddress(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080, ReadTimeout: 1, WriteTimeout: 1, BodyLimitMB: 1},
		Session: config.SessionConfig{IdleTTL: time.Hour, SweepInterval: time.Minute},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
