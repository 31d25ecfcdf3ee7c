package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/wrc-program/attendance/internal/program"
)

var (
	// ErrAlreadyRecorded indicates a present log already exists for the
	// attendee and day. Store.Insert returns the existing row alongside it.
	ErrAlreadyRecorded = errors.New("attendance already recorded")

	// ErrNotFound indicates no present log exists for the attendee and day.
	ErrNotFound = errors.New("attendance log not found")
)

const (
	// StatusPresent is the only status ever written. Absence is the lack of a row.
	StatusPresent = "present"

	// ScannedByDailyToken marks rows created through a venue static token.
	ScannedByDailyToken = "daily-token"
	// ScannedByUnknown is recorded when the scanning device does not identify itself.
	ScannedByUnknown = "unknown"
)

// Log is one attendance row.
type Log struct {
	ID         string
	AttendeeID string
	Day        program.Day
	Status     string
	ScanTime   time.Time
	ScannedBy  string
}

// Store defines the contract implemented by attendance backends (e.g. Postgres).
//
// Insert must be atomic with respect to the (attendee, day) pair: when a row
// already exists it returns that row and ErrAlreadyRecorded instead of
// writing a second one.
type Store interface {
	Insert(ctx context.Context, log Log) (Log, error)
	Find(ctx context.Context, attendeeID string, day program.Day) (Log, error)
	ListForAttendee(ctx context.Context, attendeeID string) ([]Log, error)
	AttendeesPresentOn(ctx context.Context, day program.Day) ([]string, error)
	PresentDays(ctx context.Context, attendeeIDs []string) (map[string]program.DaySet, error)
	CountByDay(ctx context.Context) (map[program.Day]int, error)
}
