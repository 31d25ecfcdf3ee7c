package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/clock"
	"github.com/wrc-program/attendance/internal/config"
	"github.com/wrc-program/attendance/internal/logging"
	"github.com/wrc-program/attendance/internal/middleware"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/storage"
)

const testBaseURL = "https://attend.example.org"

type testApp struct {
	app   *fiber.App
	clock *clock.FakeClock
	store *storage.MemoryStore
}

func newTestApp(t *testing.T, overrides ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Config{
		AppName:            "attendance-test",
		AppEnv:             "test",
		PublicBaseURL:      testBaseURL,
		QRSignatureSecret:  "server-secret",
		IssueSignedPasses:  true,
		QRStoragePrefix:    "/qr-codes",
		AdminPassword:      "letmein",
		AdminSessionSecret: "session-secret",
		AdminSessionTTL:    time.Hour,
		DayTokens:          [program.NumDays]string{"tok-day1", "tok-day2", "", ""},
		ProgramDates:       program.DefaultDates,
		Timezone:           time.UTC,
		VerifyLimit:        10,
		VerifyWindow:       time.Minute,
		IdempotencyTTL:     time.Hour,
	}
	for _, override := range overrides {
		override(&cfg)
	}
	logger := logging.Discard()
	fc := clock.Fake(time.Date(2025, 12, 11, 9, 0, 0, 0, time.UTC))
	store := storage.NewMemoryStore(cfg.QRStoragePrefix)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	if err := Setup(app, Deps{Cfg: cfg, Logger: logger, Clock: fc, Store: store}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return &testApp{app: app, clock: fc, store: store}
}

func (a *testApp) do(t *testing.T, method, target, body, bearer string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := a.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (a *testApp) register(t *testing.T, name, phone string) map[string]any {
	t.Helper()
	status, body := a.do(t, fiber.MethodPost, "/api/v1/register", `{"name":"`+name+`","phone":"`+phone+`"}`, "")
	if status != fiber.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %v", phone, status, body)
	}
	return body
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	status, body := a.do(t, fiber.MethodPost, "/api/v1/auth/login", `{"code":"letmein"}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("login: expected 200, got %d %v", status, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func TestRegisterVerifyAndReplay(t *testing.T) {
	a := newTestApp(t)
	body := a.register(t, "Ada Obi", "0803-123-4567")

	urls, _ := body["qr_urls"].([]any)
	images, _ := body["qr_image_urls"].([]any)
	if len(urls) != program.NumDays || len(images) != program.NumDays {
		t.Fatalf("expected four passes, got %v", body)
	}
	if a.store.Len() != program.NumDays {
		t.Fatalf("expected four stored images, got %d", a.store.Len())
	}
	if img, _ := images[0].(string); !strings.HasPrefix(img, "/qr-codes/") {
		t.Fatalf("unexpected image url %v", images[0])
	}

	day1 := strings.TrimPrefix(urls[0].(string), testBaseURL)
	status, resp := a.do(t, fiber.MethodPost, day1, `{"scanned_by":"gate-1"}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("verify: expected 200, got %d %v", status, resp)
	}
	status, resp = a.do(t, fiber.MethodPost, day1, "", "")
	if status != fiber.StatusConflict || resp["first_scan_time"] == nil {
		t.Fatalf("replay: expected 409 with first_scan_time, got %d %v", status, resp)
	}

	day2 := strings.TrimPrefix(urls[1].(string), testBaseURL)
	if status, resp = a.do(t, fiber.MethodPost, day2, "", ""); status != fiber.StatusBadRequest {
		t.Fatalf("day 2 before its date: expected 400, got %d %v", status, resp)
	}

	status, resp = a.do(t, fiber.MethodGet, "/api/v1/attendees/lookup?phone=08031234567", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("lookup: expected 200, got %d %v", status, resp)
	}
	days, _ := resp["attendance"].(map[string]any)
	if days["day1"] == nil || days["day2"] != nil {
		t.Fatalf("unexpected attendance %v", days)
	}
	if first, _ := days["day1"].(map[string]any); first["scanned_by"] != "gate-1" {
		t.Fatalf("unexpected scanned_by %v", first)
	}
}

func TestRegisterErrors(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "Ada Obi", "08031234567")

	status, body := a.do(t, fiber.MethodPost, "/api/v1/register", `{"name":"Other","phone":"08031234567"}`, "")
	if status != fiber.StatusConflict || body["success"] != false {
		t.Fatalf("duplicate phone: expected 409, got %d %v", status, body)
	}
	if status, _ = a.do(t, fiber.MethodPost, "/api/v1/register", `{"name":"Short","phone":"0803"}`, ""); status != fiber.StatusBadRequest {
		t.Fatalf("short phone: expected 400, got %d", status)
	}
	if status, _ = a.do(t, fiber.MethodPost, "/api/v1/register", `{"phone":"08031234568"}`, ""); status != fiber.StatusBadRequest {
		t.Fatalf("missing name: expected 400, got %d", status)
	}
	if status, _ = a.do(t, fiber.MethodGet, "/api/v1/attendees/lookup?phone=09000000000", "", ""); status != fiber.StatusNotFound {
		t.Fatalf("unknown phone: expected 404, got %d", status)
	}
}

func TestVenueTokenFlow(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "Ada Obi", "08031234567")

	status, body := a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day1"}`, "")
	if status != fiber.StatusOK || body["requires_phone"] != true {
		t.Fatalf("expected phone prompt, got %d %v", status, body)
	}
	status, body = a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day1","phone":"08031234567"}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("expected check-in, got %d %v", status, body)
	}
	if status, _ = a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day2","phone":"08031234567"}`, ""); status != fiber.StatusBadRequest {
		t.Fatalf("day 2 token early: expected 400, got %d", status)
	}
	a.clock.Advance(24 * time.Hour)
	if status, body = a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day2","phone":"08031234567"}`, ""); status != fiber.StatusOK {
		t.Fatalf("day 2 token on its date: expected 200, got %d %v", status, body)
	}
}

func TestPassPDF(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "Ada Obi", "08031234567")

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/attendees/pass.pdf?phone=08031234567", nil)
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK || resp.Header.Get(fiber.HeaderContentType) != "application/pdf" {
		t.Fatalf("expected pdf, got %d %s", resp.StatusCode, resp.Header.Get(fiber.HeaderContentType))
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatalf("body is not a pdf")
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "Ada Obi", "08031234567")
	a.register(t, "Bola Ade", "08031234568")

	if status, _ := a.do(t, fiber.MethodGet, "/api/v1/admin/attendees", "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := a.do(t, fiber.MethodPost, "/api/v1/auth/login", `{"code":"nope"}`, ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d", status)
	}

	token := a.login(t)
	status, body := a.do(t, fiber.MethodGet, "/api/v1/admin/attendees", "", token)
	if status != fiber.StatusOK {
		t.Fatalf("list: expected 200, got %d %v", status, body)
	}
	pagination, _ := body["pagination"].(map[string]any)
	if pagination["total"] != float64(2) {
		t.Fatalf("expected 2 attendees, got %v", pagination)
	}

	status, body = a.do(t, fiber.MethodGet, "/api/v1/admin/day-links", "", token)
	if status != fiber.StatusOK {
		t.Fatalf("day links: expected 200, got %d %v", status, body)
	}

	a.clock.Advance(2 * time.Hour)
	if status, _ := a.do(t, fiber.MethodGet, "/api/v1/admin/attendees", "", token); status != fiber.StatusUnauthorized {
		t.Fatalf("expected expired session to be rejected, got %d", status)
	}
}

func TestPingAndHealth(t *testing.T) {
	a := newTestApp(t)
	status, body := a.do(t, fiber.MethodGet, "/api/v1/ping", "", "")
	if status != fiber.StatusOK || body["status"] != "ok" {
		t.Fatalf("ping: got %d %v", status, body)
	}
	status, body = a.do(t, fiber.MethodGet, "/healthz", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("healthz: got %d %v", status, body)
	}
}

func TestSetupRequiresStoresOutsideDev(t *testing.T) {
	app := fiber.New()
	err := Setup(app, Deps{Cfg: config.Config{AppEnv: "production"}, Logger: logging.Discard()})
	if err == nil {
		t.Fatalf("expected error without database")
	}
}

func TestVenueChecksDoNotConsumeScannerQuota(t *testing.T) {
	a := newTestApp(t)
	body := a.register(t, "Ada Obi", "08031234567")
	urls, _ := body["qr_urls"].([]any)
	day1 := strings.TrimPrefix(urls[0].(string), testBaseURL)

	for i := 0; i < 10; i++ {
		if status, resp := a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day1"}`, ""); status != fiber.StatusOK {
			t.Fatalf("venue prompt %d: expected 200, got %d %v", i+1, status, resp)
		}
	}
	status, resp := a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day1","phone":"08031234567"}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("venue check-in: expected 200, got %d %v", status, resp)
	}
	if status, resp = a.do(t, fiber.MethodPost, day1, "", ""); status != fiber.StatusConflict {
		t.Fatalf("scanner must still reach verification, got %d %v", status, resp)
	}
}

func TestVenueChecksHaveTheirOwnLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.VenueLimit = 2
		cfg.VenueWindow = time.Minute
	})
	body := a.register(t, "Ada Obi", "08031234567")
	urls, _ := body["qr_urls"].([]any)
	day1 := strings.TrimPrefix(urls[0].(string), testBaseURL)

	for i := 0; i < 2; i++ {
		a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day1"}`, "")
	}
	if status, _ := a.do(t, fiber.MethodPost, "/api/v1/token-check", `{"token":"tok-day1"}`, ""); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected venue limit to apply, got %d", status)
	}
	if status, resp := a.do(t, fiber.MethodPost, day1, "", ""); status != fiber.StatusOK {
		t.Fatalf("scanner quota must be untouched, got %d %v", status, resp)
	}
}
