package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("TOKEN_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "attendance-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "attendance-auth")
	}
	if cfg.JWTAudience != "attendance-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "attendance-api")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.RotationIntervalMS != 30000 {
		t.Errorf("RotationIntervalMS = %d, want 30000", cfg.RotationIntervalMS)
	}
	if cfg.TrustPenalty != 15 {
		t.Errorf("TrustPenalty = %d, want 15", cfg.TrustPenalty)
	}
	if cfg.TrustRecovery != 2 {
		t.Errorf("TrustRecovery = %d, want 2", cfg.TrustRecovery)
	}
	if cfg.TrustFloor != 50 {
		t.Errorf("TrustFloor = %d, want 50", cfg.TrustFloor)
	}
	if cfg.RateLimitBurst != 10 {
		t.Errorf("RateLimitBurst = %d, want 10", cfg.RateLimitBurst)
	}
}

func TestLoad_MissingTokenSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail without TOKEN_SECRET")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("TOKEN_SECRET", "test-secret")
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("ROTATION_INTERVAL_MS", "10000")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.RotationIntervalMS != 10000 {
		t.Errorf("RotationIntervalMS = %d, want 10000", cfg.RotationIntervalMS)
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("TOKEN_SECRET", "test-secret")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for BCRYPT_COST out of range")
	}
}

func TestDurationHelpers(t *testing.T) {
	os.Clearenv()
	os.Setenv("TOKEN_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.RotationInterval(); got != 30*time.Second {
		t.Errorf("RotationInterval = %v, want 30s", got)
	}
	if got := cfg.SessionDuration(); got != time.Hour {
		t.Errorf("SessionDuration = %v, want 1h", got)
	}
	if got := cfg.LateAfter(); got != 15*time.Minute {
		t.Errorf("LateAfter = %v, want 15m", got)
	}
	if got := cfg.MultiDeviceWindow(); got != 10*time.Minute {
		t.Errorf("MultiDeviceWindow = %v, want 10m", got)
	}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", got)
	}
}
