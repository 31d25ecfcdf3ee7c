package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wrc-program/attendance/internal/admin"
	"github.com/wrc-program/attendance/internal/attendance"
	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/auth"
	"github.com/wrc-program/attendance/internal/checkin"
	"github.com/wrc-program/attendance/internal/clock"
	"github.com/wrc-program/attendance/internal/config"
	"github.com/wrc-program/attendance/internal/daytoken"
	"github.com/wrc-program/attendance/internal/middleware"
	"github.com/wrc-program/attendance/internal/notification"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrpass"
	"github.com/wrc-program/attendance/internal/qrsign"
	"github.com/wrc-program/attendance/internal/ratelimit"
	"github.com/wrc-program/attendance/internal/storage"
)

const (
	loginRateLimit  = 5
	loginRateWindow = time.Minute
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Store receives rendered QR images. When nil a local directory store is
	// created and served under the configured prefix.
	Store storage.ObjectStore
	// AccessLog disables the plain text request log when false.
	AccessLog bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	schedule, err := program.NewSchedule(d.Cfg.ProgramDates, d.Cfg.Timezone, d.Clock)
	if err != nil {
		return err
	}

	var (
		attendeeRepo attendee.Repository
		logStore     attendance.Store
	)
	if d.DB != nil {
		attendeeRepo = attendee.NewPostgresRepository(d.DB)
		logStore = attendance.NewPostgresStore(d.DB)
	} else {
		attendeeRepo = attendee.NewMemoryRepository()
		logStore = attendance.NewInMemory()
	}

	objects := d.Store
	if objects == nil {
		local, err := storage.NewLocalStore(d.Cfg.QRStorageDir, d.Cfg.QRStoragePrefix)
		if err != nil {
			return err
		}
		app.Static(d.Cfg.QRStoragePrefix, d.Cfg.QRStorageDir)
		objects = local
	}

	var signer *qrsign.Signer
	if d.Cfg.QRSignatureSecret != "" {
		if signer, err = qrsign.NewSigner(qrsign.ServerSecret(d.Cfg.QRSignatureSecret)); err != nil {
			return err
		}
	}
	var minter attendee.PassMinter
	if d.Cfg.IssueSignedPasses {
		m, err := qrpass.NewMinter(signer, d.Cfg.PublicBaseURL, objects)
		if err != nil {
			return err
		}
		minter = m
	}

	tokens := daytoken.NewRegistry(d.Cfg.DayTokens)
	if missing := tokens.MissingEnvKeys(); len(missing) > 0 {
		d.Logger.Warn("venue tokens not configured", slog.Any("env_keys", missing))
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	attendeeSvc := attendee.NewService(attendeeRepo, minter, d.Clock)
	recorder := attendance.NewRecorder(logStore, d.Clock)
	checkinSvc := checkin.NewService(attendeeRepo, recorder, schedule, signer, tokens, notifier)
	adminSvc := admin.NewService(attendeeRepo, logStore, tokens, d.Cfg.PublicBaseURL)

	authSvc, err := auth.NewService(d.Cfg.AdminPassword, []byte(d.Cfg.AdminSessionSecret), d.Cfg.AdminSessionTTL, d.Clock)
	if err != nil {
		return err
	}
	if !authSvc.Enabled() {
		d.Logger.Warn("admin dashboard disabled: ADMIN_PASSWORD not set")
	}

	newLimiter := func(limit int, window time.Duration) ratelimit.Limiter {
		if d.Cache != nil {
			return ratelimit.NewRedis(d.Cache, limit, window, d.Clock)
		}
		return ratelimit.NewMemory(limit, window, d.Clock)
	}
	verifyLimiter := newLimiter(d.Cfg.VerifyLimit, d.Cfg.VerifyWindow)
	loginLimiter := newLimiter(loginRateLimit, loginRateWindow)
	var venueLimiter ratelimit.Limiter
	if d.Cfg.VenueLimit > 0 {
		venueLimiter = newLimiter(d.Cfg.VenueLimit, d.Cfg.VenueWindow)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  d.Clock.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	idempotency := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	RegisterAttendeeRoutes(api, attendeeSvc, logStore, schedule, notifier, idempotency, d.Logger)
	RegisterCheckinRoutes(api, checkin.NewHandler(checkinSvc),
		middleware.RateLimit(verifyLimiter, "verify", d.Logger),
		middleware.RateLimit(venueLimiter, "venue", d.Logger))
	RegisterAuthRoutes(api, auth.NewHandler(authSvc), middleware.RateLimit(loginLimiter, "login", d.Logger))

	// Protected routes
	protected := api.Group("/admin", middleware.AdminAuth(authSvc))
	RegisterAdminRoutes(protected, admin.NewHandler(adminSvc, attendeeSvc))

	return nil
}
