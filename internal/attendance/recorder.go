package attendance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wrc-program/attendance/internal/clock"
	"github.com/wrc-program/attendance/internal/program"
)

// Recorder writes present logs, at most one per attendee and day.
type Recorder struct {
	store Store
	clock clock.Clock
}

// NewRecorder builds a Recorder. A nil clock uses the wall clock.
func NewRecorder(store Store, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{store: store, clock: clk}
}

// RecordPresence logs attendeeID as present on day. When a log already
// exists it is returned together with ErrAlreadyRecorded.
func (r *Recorder) RecordPresence(ctx context.Context, attendeeID string, day program.Day, scannedBy string) (Log, error) {
	if attendeeID == "" {
		return Log{}, fmt.Errorf("attendee id is required")
	}
	if !day.Valid() {
		return Log{}, program.ErrInvalidDay
	}
	scannedBy = strings.TrimSpace(scannedBy)
	if scannedBy == "" {
		scannedBy = ScannedByUnknown
	}

	log := Log{
		ID:         uuid.New().String(),
		AttendeeID: attendeeID,
		Day:        day,
		Status:     StatusPresent,
		ScanTime:   r.clock.Now().UTC(),
		ScannedBy:  scannedBy,
	}
	return r.store.Insert(ctx, log)
}
