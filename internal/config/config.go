package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/wrc-program/attendance/internal/daytoken"
	"github.com/wrc-program/attendance/internal/program"
)

const (
	defaultAppName          = "ProgramAttendance"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultDBMaxConns       = 10
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultSessionTTL       = 12 * time.Hour
	defaultVerifyRateLimit  = 10
	defaultVerifyRateWindow = time.Minute
	defaultVenueRateLimit   = 300
	defaultTimezone         = "Africa/Lagos"
	defaultQRStorageDir     = "./data/qr-codes"
	defaultQRStoragePrefix  = "/qr-codes"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	ProxyHeader    string

	PublicBaseURL      string
	QRSignatureSecret  string
	IssueSignedPasses  bool
	QRStorageDir       string
	QRStoragePrefix    string
	AdminPassword      string
	AdminSessionSecret string
	AdminSessionTTL    time.Duration

	DayTokens    [program.NumDays]string
	ProgramDates []string
	Timezone     *time.Location
	VerifyLimit  int
	VerifyWindow time.Duration
	// VenueLimit caps venue token checks per client IP per VenueWindow.
	// Zero disables the limit.
	VenueLimit  int
	VenueWindow time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		ProxyHeader:        os.Getenv("PROXY_HEADER"),
		PublicBaseURL:      strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		QRSignatureSecret:  os.Getenv("QR_SIGNATURE_SECRET"),
		QRStorageDir:       getEnv("QR_STORAGE_DIR", defaultQRStorageDir),
		QRStoragePrefix:    getEnv("QR_STORAGE_PREFIX", defaultQRStoragePrefix),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		AdminSessionSecret: os.Getenv("ADMIN_SESSION_SECRET"),
		ProgramDates:       program.DefaultDates,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AdminSessionTTL, err = durationEnv("", "ADMIN_SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.VerifyWindow, err = durationEnv("", "VERIFY_RATE_WINDOW", defaultVerifyRateWindow); err != nil {
		return Config{}, err
	}
	if cfg.VerifyLimit, err = intEnv("VERIFY_RATE_LIMIT", defaultVerifyRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.VerifyLimit < 1 {
		return Config{}, fmt.Errorf("VERIFY_RATE_LIMIT must be positive")
	}
	if cfg.VenueWindow, err = durationEnv("", "VENUE_RATE_WINDOW", defaultVerifyRateWindow); err != nil {
		return Config{}, err
	}
	if cfg.VenueLimit, err = intEnv("VENUE_RATE_LIMIT", defaultVenueRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.VenueLimit < 0 {
		return Config{}, fmt.Errorf("VENUE_RATE_LIMIT must not be negative")
	}
	maxConns, err := intEnv("DB_MAX_CONNS", defaultDBMaxConns)
	if err != nil {
		return Config{}, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.IssueSignedPasses, err = boolEnv("ISSUE_SIGNED_PASSES", true); err != nil {
		return Config{}, err
	}

	tz := getEnv("PROGRAM_TIMEZONE", defaultTimezone)
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid PROGRAM_TIMEZONE: %w", err)
	}
	if v := os.Getenv("PROGRAM_DAYS"); v != "" {
		cfg.ProgramDates = splitList(v)
	}
	for _, day := range program.AllDays() {
		cfg.DayTokens[day.Index()] = strings.TrimSpace(os.Getenv(daytoken.EnvKey(day)))
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be set")
	}
	if c.IssueSignedPasses && c.QRSignatureSecret == "" {
		return fmt.Errorf("QR_SIGNATURE_SECRET must be set when ISSUE_SIGNED_PASSES is enabled")
	}
	if c.AdminPassword != "" && c.AdminSessionSecret == "" {
		return fmt.Errorf("ADMIN_SESSION_SECRET must be set when ADMIN_PASSWORD is set")
	}
	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDev reports whether in-memory fallbacks are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv prefers a whole-seconds variable, then a Go duration string.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
