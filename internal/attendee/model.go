package attendee

import (
	"time"

	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrsign"
)

// Attendee represents a registered program participant.
type Attendee struct {
	ID                 string
	UID                string
	Name               string
	Phone              string
	QRSecret           qrsign.AttendeeSecret
	DayURLs            [program.NumDays]string
	DayImageURLs       [program.NumDays]string
	VoucherCollected   bool
	VoucherCollectedAt *time.Time
	CreatedAt          time.Time
}

// HasSecret reports whether signed passes were issued for the attendee.
func (a Attendee) HasSecret() bool {
	return a.QRSecret != ""
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name  string
	Phone string
}

// Passes are the four per-day verification links and their rendered images.
type Passes struct {
	URLs      [program.NumDays]string
	ImageURLs [program.NumDays]string
}

// ListQuery selects a page of attendees. When Restricted is set only ids in
// RestrictTo are considered.
type ListQuery struct {
	Search     string
	Restricted bool
	RestrictTo []string
	Offset     int
	Limit      int
}
