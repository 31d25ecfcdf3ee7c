package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wrc-program/attendance/internal/attendance"
	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/daytoken"
	"github.com/wrc-program/attendance/internal/notification"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrsign"
)

var (
	ErrMalformed        = errors.New("malformed request")
	ErrDayNotOpen       = errors.New("day has not started yet")
	ErrUnregistered     = errors.New("unregistered attendee")
	ErrInvalidSignature = errors.New("invalid QR signature")
	ErrInvalidToken     = errors.New("invalid or expired QR code")
	ErrAlreadyScanned   = errors.New("already scanned")
)

// AlreadyScannedError reports a replayed check-in and when the first one happened.
type AlreadyScannedError struct {
	Day           program.Day
	FirstScanTime time.Time
}

func (e *AlreadyScannedError) Error() string {
	return fmt.Sprintf("already checked in on %s at %s", e.Day, e.FirstScanTime.Format(time.RFC3339))
}

func (e *AlreadyScannedError) Is(target error) bool { return target == ErrAlreadyScanned }

// DayNotOpenError reports a scan before the program day's date.
type DayNotOpenError struct {
	Day  program.Day
	Date string
}

func (e *DayNotOpenError) Error() string {
	return fmt.Sprintf("%s has not started yet; its codes can only be scanned from %s", e.Day, e.Date)
}

func (e *DayNotOpenError) Is(target error) bool { return target == ErrDayNotOpen }

// Attendees is the lookup surface check-in needs from the attendee store.
type Attendees interface {
	FindByUID(ctx context.Context, uid string) (attendee.Attendee, error)
	FindByPhone(ctx context.Context, phone string) (attendee.Attendee, error)
}

// SignedRequest is a staff scan of an attendee's personal QR code.
type SignedRequest struct {
	UID       string
	Day       string
	Signature string
	ScannedBy string
}

// StaticRequest is an attendee scan of the shared venue code, optionally
// confirmed with a phone number.
type StaticRequest struct {
	Token string
	Phone string
}

// Result describes a successful check-in, or a request for the phone number.
type Result struct {
	AttendeeName string
	Day          program.Day
	ScanTime     time.Time
	NeedsPhone   bool
	Message      string
}

// Service verifies scans and records attendance.
type Service struct {
	attendees Attendees
	recorder  *attendance.Recorder
	schedule  *program.Schedule
	signer    *qrsign.Signer
	tokens    *daytoken.Registry
	notifier  notification.Notifier
}

func NewService(attendees Attendees, recorder *attendance.Recorder, schedule *program.Schedule,
	signer *qrsign.Signer, tokens *daytoken.Registry, notifier notification.Notifier) *Service {
	return &Service{
		attendees: attendees,
		recorder:  recorder,
		schedule:  schedule,
		signer:    signer,
		tokens:    tokens,
		notifier:  notifier,
	}
}

// VerifySigned checks a signed per-day code and marks the attendee present.
func (s *Service) VerifySigned(ctx context.Context, req SignedRequest) (Result, error) {
	uid := strings.TrimSpace(req.UID)
	sig := strings.TrimSpace(req.Signature)
	if uid == "" || sig == "" || strings.TrimSpace(req.Day) == "" {
		return Result{}, fmt.Errorf("%w: missing required parameters", ErrMalformed)
	}
	day, err := program.ParseDay(req.Day)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.checkOpen(day); err != nil {
		return Result{}, err
	}

	a, err := s.attendees.FindByUID(ctx, uid)
	if errors.Is(err, attendee.ErrNotFound) || (err == nil && !a.HasSecret()) {
		return Result{}, ErrUnregistered
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup attendee: %w", err)
	}

	if s.signer == nil || !s.signer.Verify(uid, day, sig, a.QRSecret) {
		return Result{}, ErrInvalidSignature
	}

	log, err := s.record(ctx, a, day, req.ScannedBy)
	if err != nil {
		return Result{}, err
	}
	return Result{
		AttendeeName: a.Name,
		Day:          day,
		ScanTime:     log.ScanTime,
		Message:      fmt.Sprintf("%s checked in for %s", a.Name, day),
	}, nil
}

// CheckStaticToken resolves a venue token to its day and, once a phone number
// is supplied, marks the matching attendee present.
func (s *Service) CheckStaticToken(ctx context.Context, req StaticRequest) (Result, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return Result{}, fmt.Errorf("%w: missing QR token", ErrMalformed)
	}
	day, ok := s.tokens.ResolveDay(token)
	if !ok {
		return Result{}, ErrInvalidToken
	}
	if err := s.checkOpen(day); err != nil {
		return Result{}, err
	}

	if strings.TrimSpace(req.Phone) == "" {
		return Result{
			Day:        day,
			NeedsPhone: true,
			Message:    fmt.Sprintf("Enter your phone number to confirm attendance for %s.", s.schedule.DayName(day)),
		}, nil
	}
	phone, err := attendee.ValidatePhone(req.Phone)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	a, err := s.attendees.FindByPhone(ctx, phone)
	if errors.Is(err, attendee.ErrNotFound) {
		return Result{}, ErrUnregistered
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup attendee: %w", err)
	}

	log, err := s.record(ctx, a, day, attendance.ScannedByDailyToken)
	if err != nil {
		return Result{}, err
	}
	return Result{
		AttendeeName: a.Name,
		Day:          day,
		ScanTime:     log.ScanTime,
		Message:      fmt.Sprintf("%s checked in for %s!", a.Name, s.schedule.DayName(day)),
	}, nil
}

func (s *Service) checkOpen(day program.Day) error {
	if s.schedule.IsReached(day) {
		return nil
	}
	return &DayNotOpenError{Day: day, Date: s.schedule.FormatDate(day)}
}

func (s *Service) record(ctx context.Context, a attendee.Attendee, day program.Day, scannedBy string) (attendance.Log, error) {
	log, err := s.recorder.RecordPresence(ctx, a.ID, day, scannedBy)
	if errors.Is(err, attendance.ErrAlreadyRecorded) {
		return attendance.Log{}, &AlreadyScannedError{Day: day, FirstScanTime: log.ScanTime}
	}
	if err != nil {
		return attendance.Log{}, fmt.Errorf("record attendance: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCheckIn,
			Destination: a.Phone,
			Body:        fmt.Sprintf("%s checked in for %s via %s", a.UID, day, log.ScannedBy),
		})
	}
	return log, nil
}
