package attendee

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrsign"
)

const uniqueViolation = "23505"

// Repository persists attendees.
type Repository interface {
	Create(ctx context.Context, a Attendee) error
	FindByID(ctx context.Context, id string) (Attendee, error)
	FindByUID(ctx context.Context, uid string) (Attendee, error)
	FindByPhone(ctx context.Context, phone string) (Attendee, error)
	List(ctx context.Context, q ListQuery) ([]Attendee, int, error)
	ListByIDs(ctx context.Context, ids []string) ([]Attendee, error)
	Count(ctx context.Context) (int, error)
	SetVoucher(ctx context.Context, id string, collected bool, at *time.Time) (Attendee, error)
	SetImageURLs(ctx context.Context, id string, urls [program.NumDays]string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed attendee repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const attendeeColumns = `id, uid, name, phone, qr_secret, day_urls, day_image_urls,
        voucher_collected, voucher_collected_at, created_at`

// Create inserts a new attendee. Unique violations on phone or uid map to
// ErrPhoneTaken and ErrUIDTaken.
func (r *PostgresRepository) Create(ctx context.Context, a Attendee) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	var secret *string
	if a.QRSecret != "" {
		s := string(a.QRSecret)
		secret = &s
	}
	_, err = r.db.Exec(ctx, `INSERT INTO attendees (`+attendeeColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, a.UID, a.Name, a.Phone, secret, a.DayURLs[:], a.DayImageURLs[:],
		a.VoucherCollected, a.VoucherCollectedAt, a.CreatedAt.UTC())

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "attendees_phone_key":
			return ErrPhoneTaken
		case "attendees_uid_key":
			return ErrUIDTaken
		}
	}
	return err
}

// FindByID fetches an attendee by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Attendee, error) {
	attendeeID, err := uuid.Parse(id)
	if err != nil {
		return Attendee{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, attendeeID)
}

// FindByUID fetches an attendee by short code.
func (r *PostgresRepository) FindByUID(ctx context.Context, uid string) (Attendee, error) {
	return r.findOne(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE uid = $1`, uid)
}

// FindByPhone fetches an attendee by normalised phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (Attendee, error) {
	return r.findOne(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE phone = $1`, phone)
}

// List returns a newest-first page of attendees and the total matching count.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]Attendee, int, error) {
	pattern := ""
	if q.Search != "" {
		pattern = "%" + escapeLike(q.Search) + "%"
	}
	restrict := q.RestrictTo
	if restrict == nil {
		restrict = []string{}
	}
	const where = `
        WHERE ($1 = '' OR name ILIKE $1 OR phone ILIKE $1)
          AND (NOT $2::boolean OR id = ANY($3::uuid[]))`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM attendees`+where, pattern, q.Restricted, restrict).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+attendeeColumns+` FROM attendees`+where+`
        ORDER BY created_at DESC, id
        LIMIT $4 OFFSET $5`, pattern, q.Restricted, restrict, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	list, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, int(total), nil
}

// ListByIDs fetches the given attendees, newest first.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]Attendee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+attendeeColumns+` FROM attendees
        WHERE id = ANY($1::uuid[]) ORDER BY created_at DESC, id`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Count returns the number of registered attendees.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM attendees`).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// SetVoucher stores the voucher flag and its timestamp.
func (r *PostgresRepository) SetVoucher(ctx context.Context, id string, collected bool, at *time.Time) (Attendee, error) {
	attendeeID, err := uuid.Parse(id)
	if err != nil {
		return Attendee{}, ErrNotFound
	}
	return r.findOne(ctx, `UPDATE attendees SET voucher_collected = $1, voucher_collected_at = $2
        WHERE id = $3 RETURNING `+attendeeColumns, collected, at, attendeeID)
}

// SetImageURLs records the published QR image of each day.
func (r *PostgresRepository) SetImageURLs(ctx context.Context, id string, urls [program.NumDays]string) error {
	attendeeID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE attendees SET day_image_urls = $1 WHERE id = $2`, urls[:], attendeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (Attendee, error) {
	a, err := scanAttendee(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attendee{}, ErrNotFound
	}
	return a, err
}

func collect(rows pgx.Rows) ([]Attendee, error) {
	defer rows.Close()
	var out []Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttendee(row pgx.Row) (Attendee, error) {
	var (
		id              uuid.UUID
		secret          *string
		urls, imageURLs []string
		collectedAt     *time.Time
		createdAt       time.Time
		a               Attendee
	)
	if err := row.Scan(&id, &a.UID, &a.Name, &a.Phone, &secret, &urls, &imageURLs,
		&a.VoucherCollected, &collectedAt, &createdAt); err != nil {
		return Attendee{}, err
	}
	a.ID = id.String()
	if secret != nil {
		a.QRSecret = qrsign.AttendeeSecret(*secret)
	}
	copy(a.DayURLs[:], urls)
	copy(a.DayImageURLs[:], imageURLs)
	if collectedAt != nil {
		t := collectedAt.UTC()
		a.VoucherCollectedAt = &t
	}
	a.CreatedAt = createdAt.UTC()
	return a, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
