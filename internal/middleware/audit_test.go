package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAuditLogsRequestIDAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Post("/verify", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "already scanned")
	})

	req := httptest.NewRequest(fiber.MethodPost, "/verify?uid=WRC0000001&day=2", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id to be echoed")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-42" || entry["uid"] != "WRC0000001" || entry["status"] != float64(fiber.StatusConflict) {
		t.Fatalf("unexpected log entry %v", entry)
	}
}
