package attendee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wrc-program/attendance/internal/clock"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrsign"
)

var (
	ErrNotFound      = errors.New("attendee not found")
	ErrPhoneTaken    = errors.New("phone number already registered")
	ErrUIDTaken      = errors.New("attendee code already in use")
	ErrInvalidPhone  = fmt.Errorf("phone number must be exactly %d digits", PhoneDigits)
	ErrMissingFields = errors.New("name and phone are required")
	ErrMissingID     = errors.New("attendee id is required")

	// ErrPassImages is returned alongside a persisted attendee whose QR
	// images could not be published. The links remain valid.
	ErrPassImages = errors.New("pass images unavailable")
)

const maxUIDAttempts = 5

// PassMinter issues the signed per-day passes for a new attendee. Links is
// pure; PublishImages renders and uploads, so it only runs for stored rows.
type PassMinter interface {
	Links(uid string, secret qrsign.AttendeeSecret) [program.NumDays]string
	PublishImages(ctx context.Context, uid string, links [program.NumDays]string) ([program.NumDays]string, error)
}

// Service manages the attendee lifecycle.
type Service struct {
	repo   Repository
	minter PassMinter
	clock  clock.Clock
	newUID func() (string, error)
}

// NewService creates an attendee service. A nil minter registers attendees
// without signed passes; they can then only check in through venue tokens.
func NewService(repo Repository, minter PassMinter, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{repo: repo, minter: minter, clock: clk, newUID: NewUID}
}

// Register creates an attendee and, when a minter is configured, their four
// passes. Images are published only once the row exists; a publishing
// failure returns the stored attendee together with ErrPassImages.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Attendee, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Phone) == "" {
		return Attendee{}, ErrMissingFields
	}
	phone, err := ValidatePhone(in.Phone)
	if err != nil {
		return Attendee{}, err
	}

	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return Attendee{}, ErrPhoneTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Attendee{}, fmt.Errorf("lookup phone: %w", err)
	}

	a, err := s.create(ctx, name, phone)
	if err != nil || s.minter == nil {
		return a, err
	}

	images, err := s.minter.PublishImages(ctx, a.UID, a.DayURLs)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrPassImages, err)
	}
	if images == ([program.NumDays]string{}) {
		return a, nil
	}
	if err := s.repo.SetImageURLs(ctx, a.ID, images); err != nil {
		return a, fmt.Errorf("%w: %v", ErrPassImages, err)
	}
	a.DayImageURLs = images
	return a, nil
}

// create inserts the attendee row, drawing a new code on collisions.
func (s *Service) create(ctx context.Context, name, phone string) (Attendee, error) {
	for attempt := 0; attempt < maxUIDAttempts; attempt++ {
		uid, err := s.newUID()
		if err != nil {
			return Attendee{}, err
		}
		a := Attendee{
			ID:        uuid.New().String(),
			UID:       uid,
			Name:      name,
			Phone:     phone,
			CreatedAt: s.clock.Now().UTC(),
		}
		if s.minter != nil {
			secret, err := qrsign.NewAttendeeSecret()
			if err != nil {
				return Attendee{}, err
			}
			a.QRSecret = secret
			a.DayURLs = s.minter.Links(uid, secret)
		}

		err = s.repo.Create(ctx, a)
		if errors.Is(err, ErrUIDTaken) {
			continue
		}
		if err != nil {
			return Attendee{}, err
		}
		return a, nil
	}
	return Attendee{}, fmt.Errorf("allocate attendee code: %w", ErrUIDTaken)
}

// Lookup finds an attendee by phone number in any format.
func (s *Service) Lookup(ctx context.Context, rawPhone string) (Attendee, error) {
	phone := NormalizePhone(rawPhone)
	if phone == "" {
		return Attendee{}, ErrInvalidPhone
	}
	return s.repo.FindByPhone(ctx, phone)
}

// FindByUID resolves an attendee short code.
func (s *Service) FindByUID(ctx context.Context, uid string) (Attendee, error) {
	return s.repo.FindByUID(ctx, uid)
}

// SetVoucher marks or clears the physical voucher handout. Marking stamps
// the current time; clearing removes it.
func (s *Service) SetVoucher(ctx context.Context, id string, collected bool) (Attendee, error) {
	if id == "" {
		return Attendee{}, ErrMissingID
	}
	var at *time.Time
	if collected {
		now := s.clock.Now().UTC()
		at = &now
	}
	return s.repo.SetVoucher(ctx, id, collected, at)
}
