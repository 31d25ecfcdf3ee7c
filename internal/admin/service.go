package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wrc-program/attendance/internal/attendance"
	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/daytoken"
	"github.com/wrc-program/attendance/internal/program"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ErrDaysRequired is returned by Report when no valid day was selected.
var ErrDaysRequired = errors.New("days parameter is required")

// ListParams selects a page of the attendee list.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Days   program.DaySet
}

// Row is an attendee with their per-day presence.
type Row struct {
	Attendee   attendee.Attendee
	Attendance [program.NumDays]bool
}

// Page is one page of the attendee list.
type Page struct {
	Rows       []Row
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// Report lists every attendee present on all of Days.
type Report struct {
	Days      program.DaySet
	Attendees []attendee.Attendee
}

// Summary holds registration and per-day presence totals.
type Summary struct {
	TotalRegistered int
	PerDay          [program.NumDays]int
}

// DayLink is one day's venue token and the URL to encode in its QR code.
type DayLink struct {
	Day        program.Day
	EnvKey     string
	Configured bool
	Token      string
	VenueURL   string
}

// Service answers the dashboard queries.
type Service struct {
	attendees attendee.Repository
	logs      attendance.Store
	filter    *attendance.Filter
	tokens    *daytoken.Registry
	baseURL   string
}

func NewService(attendees attendee.Repository, logs attendance.Store, tokens *daytoken.Registry, baseURL string) *Service {
	return &Service{
		attendees: attendees,
		logs:      logs,
		filter:    attendance.NewFilter(logs),
		tokens:    tokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// ListAttendees returns a newest-first page of attendees present on every
// selected day and matching the search text.
func (s *Service) ListAttendees(ctx context.Context, p ListParams) (Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	page := Page{Rows: []Row{}, Page: p.Page, Limit: p.Limit}

	match, err := s.filter.FilterByDays(ctx, p.Days)
	if err != nil {
		return Page{}, err
	}
	if match.Empty() {
		return page, nil
	}

	list, total, err := s.attendees.List(ctx, attendee.ListQuery{
		Search:     strings.TrimSpace(p.Search),
		Restricted: !match.All,
		RestrictTo: match.IDs(),
		Offset:     (p.Page - 1) * p.Limit,
		Limit:      p.Limit,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list attendees: %w", err)
	}
	page.Total = total
	page.TotalPages = (total + p.Limit - 1) / p.Limit

	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	present, err := s.logs.PresentDays(ctx, ids)
	if err != nil {
		return Page{}, fmt.Errorf("load attendance: %w", err)
	}
	for _, a := range list {
		page.Rows = append(page.Rows, Row{Attendee: a, Attendance: present[a.ID].Flags()})
	}
	return page, nil
}

// Report returns every attendee present on all of days, unpaginated.
func (s *Service) Report(ctx context.Context, days program.DaySet) (Report, error) {
	if len(days) == 0 {
		return Report{}, ErrDaysRequired
	}
	match, err := s.filter.FilterByDays(ctx, days)
	if err != nil {
		return Report{}, err
	}
	report := Report{Days: days, Attendees: []attendee.Attendee{}}
	if match.Empty() {
		return report, nil
	}
	list, err := s.attendees.ListByIDs(ctx, match.IDs())
	if err != nil {
		return Report{}, fmt.Errorf("load attendees: %w", err)
	}
	if list != nil {
		report.Attendees = list
	}
	return report, nil
}

// Summary counts registrations and present logs per day.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	total, err := s.attendees.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count attendees: %w", err)
	}
	counts, err := s.logs.CountByDay(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count attendance: %w", err)
	}
	sum := Summary{TotalRegistered: total}
	for _, d := range program.AllDays() {
		sum.PerDay[d.Index()] = counts[d]
	}
	return sum, nil
}

// DayLinks lists the venue token of every day. Unconfigured days carry no
// token and no URL.
func (s *Service) DayLinks() []DayLink {
	var links []DayLink
	for _, slot := range s.tokens.Slots() {
		link := DayLink{Day: slot.Day, EnvKey: slot.EnvKey, Configured: slot.Configured()}
		if link.Configured {
			link.Token = slot.Token
			link.VenueURL = daytoken.VenueURL(s.baseURL, slot.Token)
		}
		links = append(links, link)
	}
	return links
}
