package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/attendance"
	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/clock"
	"github.com/wrc-program/attendance/internal/daytoken"
	"github.com/wrc-program/attendance/internal/program"
)

type fixture struct {
	svc       *Service
	attendees *attendee.Service
	repo      attendee.Repository
	recorder  *attendance.Recorder
	clock     *clock.FakeClock
	ids       []string
}

// newFixture registers n attendees (oldest first) and returns their ids.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	fc := clock.Fake(time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC))
	repo := attendee.NewMemoryRepository()
	logs := attendance.NewInMemory()
	tokens := daytoken.NewRegistry([program.NumDays]string{"tok1", "", "tok 3", ""})
	f := &fixture{
		svc:       NewService(repo, logs, tokens, "https://attend.example.org/"),
		attendees: attendee.NewService(repo, nil, fc),
		repo:      repo,
		recorder:  attendance.NewRecorder(logs, fc),
		clock:     fc,
	}
	for i := 0; i < n; i++ {
		fc.Advance(time.Minute)
		a, err := f.attendees.Register(context.Background(), attendee.RegisterInput{
			Name:  fmt.Sprintf("Attendee %02d", i),
			Phone: fmt.Sprintf("080300000%02d", i),
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		f.ids = append(f.ids, a.ID)
	}
	return f
}

func (f *fixture) present(t *testing.T, idx int, days ...program.Day) {
	t.Helper()
	for _, d := range days {
		if _, err := f.recorder.RecordPresence(context.Background(), f.ids[idx], d, "test"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
}

func TestListAttendeesFilteredOnDaysOneAndThree(t *testing.T) {
	f := newFixture(t, 6)
	f.present(t, 0, 1, 3)
	f.present(t, 1, 1)
	f.present(t, 2, 3)
	f.present(t, 3, 1, 2, 3)
	f.present(t, 5, 1, 3, 4)

	ctx := context.Background()
	days := program.NewDaySet(1, 3)

	page, err := f.svc.ListAttendees(ctx, ListParams{Page: 1, Limit: 2, Days: days})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Rows) != 2 {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Rows[0].Attendee.ID != f.ids[5] || page.Rows[1].Attendee.ID != f.ids[3] {
		t.Fatalf("expected newest first, got %s, %s", page.Rows[0].Attendee.Name, page.Rows[1].Attendee.Name)
	}
	if page.Rows[0].Attendance != [program.NumDays]bool{true, false, true, true} {
		t.Fatalf("unexpected attendance flags %v", page.Rows[0].Attendance)
	}

	page, err = f.svc.ListAttendees(ctx, ListParams{Page: 2, Limit: 2, Days: days})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if page.Total != 3 || len(page.Rows) != 1 || page.Rows[0].Attendee.ID != f.ids[0] {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestListAttendeesDefaultsAndSearch(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	page, err := f.svc.ListAttendees(ctx, ListParams{Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Limit != MaxPageSize || page.Total != 3 {
		t.Fatalf("unexpected defaults %+v", page)
	}

	page, _ = f.svc.ListAttendees(ctx, ListParams{Search: "attendee 01"})
	if page.Total != 1 || page.Rows[0].Attendee.ID != f.ids[1] {
		t.Fatalf("unexpected search result %+v", page)
	}

	page, _ = f.svc.ListAttendees(ctx, ListParams{Days: program.NewDaySet(4)})
	if page.Total != 0 || len(page.Rows) != 0 || page.Rows == nil {
		t.Fatalf("expected an empty page, got %+v", page)
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t, 3)
	f.present(t, 0, 1, 2)
	f.present(t, 2, 2)
	ctx := context.Background()

	if _, err := f.svc.Report(ctx, nil); err != ErrDaysRequired {
		t.Fatalf("expected ErrDaysRequired, got %v", err)
	}
	report, err := f.svc.Report(ctx, program.NewDaySet(2))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(report.Attendees))
	}
	report, _ = f.svc.Report(ctx, program.NewDaySet(1, 2))
	if len(report.Attendees) != 1 || report.Attendees[0].ID != f.ids[0] {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSummaryAndDayLinks(t *testing.T) {
	f := newFixture(t, 4)
	f.present(t, 0, 1, 2)
	f.present(t, 1, 1)

	sum, err := f.svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalRegistered != 4 || sum.PerDay != [program.NumDays]int{2, 1, 0, 0} {
		t.Fatalf("unexpected summary %+v", sum)
	}

	links := f.svc.DayLinks()
	if len(links) != program.NumDays {
		t.Fatalf("expected %d links", program.NumDays)
	}
	if links[0].VenueURL != "https://attend.example.org/confirm?token=tok1" {
		t.Fatalf("unexpected venue url %s", links[0].VenueURL)
	}
	if links[2].VenueURL != "https://attend.example.org/confirm?token=tok+3" {
		t.Fatalf("expected escaped token, got %s", links[2].VenueURL)
	}
	if links[1].Configured || links[1].Token != "" || links[1].EnvKey != "DAY2_TOKEN" {
		t.Fatalf("unexpected unconfigured slot %+v", links[1])
	}
}

func TestHandlerEndpoints(t *testing.T) {
	f := newFixture(t, 2)
	f.present(t, 1, 1)
	h := NewHandler(f.svc, f.attendees)

	app := fiber.New()
	app.Get("/admin/attendees", h.ListAttendees)
	app.Get("/admin/attendance/report", h.Report)
	app.Post("/admin/attendees/mark-collected", h.MarkCollected)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/admin/attendees?days=1,9", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var list struct {
		Attendees []struct {
			ID         string          `json:"id"`
			Attendance map[string]bool `json:"attendance"`
		} `json:"attendees"`
		Pagination map[string]int `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(list.Attendees) != 1 || !list.Attendees[0].Attendance["day1"] || list.Pagination["total"] != 1 {
		t.Fatalf("unexpected list response %+v", list)
	}

	resp, _ = app.Test(httptest.NewRequest(fiber.MethodGet, "/admin/attendance/report", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without days, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest(fiber.MethodGet, "/admin/attendance/report?days=7", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for invalid days, got %d", resp.StatusCode)
	}

	body := fmt.Sprintf(`{"attendee_id":%q,"collected":true}`, f.ids[0])
	req := httptest.NewRequest(fiber.MethodPost, "/admin/attendees/mark-collected", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("mark collected: %v %d", err, resp.StatusCode)
	}
	a, _ := f.repo.FindByID(context.Background(), f.ids[0])
	if !a.VoucherCollected || a.VoucherCollectedAt == nil {
		t.Fatalf("expected voucher marked, got %+v", a)
	}

	req = httptest.NewRequest(fiber.MethodPost, "/admin/attendees/mark-collected", strings.NewReader(`{"collected":true}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, _ = app.Test(req)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without attendee_id, got %d", resp.StatusCode)
	}
}
