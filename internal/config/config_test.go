package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("PUBLIC_BASE_URL", "https://attend.example.org/")
	t.Setenv("QR_SIGNATURE_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ISSUE_SIGNED_PASSES", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("PORT", "")
	t.Setenv("VENUE_RATE_LIMIT", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PublicBaseURL != "https://attend.example.org" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
	if cfg.VerifyLimit != 10 || cfg.VerifyWindow != time.Minute {
		t.Fatalf("unexpected rate limit defaults %d/%s", cfg.VerifyLimit, cfg.VerifyWindow)
	}
	if !cfg.IssueSignedPasses || len(cfg.ProgramDates) != 4 || cfg.Timezone == nil {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.VenueLimit != 300 || cfg.VenueWindow != time.Minute {
		t.Fatalf("unexpected venue limit defaults %d/%s", cfg.VenueLimit, cfg.VenueWindow)
	}
	if cfg.LogFormat != "json" || cfg.DBMaxConns != 10 {
		t.Fatalf("unexpected log format %q or pool size %d", cfg.LogFormat, cfg.DBMaxConns)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DAY2_TOKEN", " venue-two ")
	t.Setenv("VERIFY_RATE_LIMIT", "3")
	t.Setenv("VERIFY_RATE_WINDOW", "30s")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "4")
	t.Setenv("PROGRAM_DAYS", "2026-01-01, 2026-01-02,2026-01-03,2026-01-04")
	t.Setenv("PROGRAM_TIMEZONE", "UTC")
	t.Setenv("LOG_FORMAT", "Text")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DayTokens[1] != "venue-two" || cfg.DayTokens[0] != "" {
		t.Fatalf("unexpected day tokens %v", cfg.DayTokens)
	}
	if cfg.VerifyLimit != 3 || cfg.VerifyWindow != 30*time.Second || cfg.ShutdownPeriod != 4*time.Second {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.LogFormat != "text" || cfg.DBMaxConns != 25 {
		t.Fatalf("unexpected log format %q or pool size %d", cfg.LogFormat, cfg.DBMaxConns)
	}
	if cfg.ProgramDates[1] != "2026-01-02" || cfg.Timezone.String() != "UTC" {
		t.Fatalf("unexpected program settings %v %s", cfg.ProgramDates, cfg.Timezone)
	}
}

func TestLoadRequiresStoresOutsideDev(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/attendance")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("QR_SIGNATURE_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without signing secret")
	}
	t.Setenv("ISSUE_SIGNED_PASSES", "false")
	if _, err := Load(); err != nil {
		t.Fatalf("signing secret is optional without signed passes: %v", err)
	}
	t.Setenv("ADMIN_PASSWORD", "code")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without session secret")
	}
}

func TestLoadVenueLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("VENUE_RATE_LIMIT", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.VenueLimit != 0 {
		t.Fatalf("expected venue limit disabled, got %d", cfg.VenueLimit)
	}
	t.Setenv("VENUE_RATE_LIMIT", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative venue limit")
	}
}
