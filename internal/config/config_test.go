package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/ancient_arch")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}

	t.Setenv("JWT_SECRET", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Fatalf("unexpected default addr %q", cfg.HTTPAddr)
	}
	if cfg.JWTExpiration != time.Hour {
		t.Fatalf("unexpected default expiration %v", cfg.JWTExpiration)
	}
}

func TestJWTExpirationFormats(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ancient_arch")
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("JWT_EXPIRATION", "7200")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.JWTExpiration != 2*time.Hour {
		t.Fatalf("expected 2h from seconds, got %v", cfg.JWTExpiration)
	}

	t.Setenv("JWT_EXPIRATION", "30m")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.JWTExpiration != 30*time.Minute {
		t.Fatalf("expected 30m from duration string, got %v", cfg.JWTExpiration)
	}
}
