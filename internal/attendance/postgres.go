package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wrc-program/attendance/internal/program"
)

// PostgresStore persists attendance logs in PostgreSQL. The
// attendance_logs_attendee_day_key unique constraint backs Insert.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed attendance store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes a log, or returns the existing one with ErrAlreadyRecorded.
func (s *PostgresStore) Insert(ctx context.Context, log Log) (Log, error) {
	logID, err := uuid.Parse(log.ID)
	if err != nil {
		return Log{}, err
	}
	attendeeID, err := uuid.Parse(log.AttendeeID)
	if err != nil {
		return Log{}, err
	}

	const query = `
        INSERT INTO attendance_logs (id, attendee_id, day, status, scan_time, scanned_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (attendee_id, day) DO NOTHING
        RETURNING id`
	var inserted uuid.UUID
	err = s.db.QueryRow(ctx, query, logID, attendeeID, int16(log.Day), log.Status, log.ScanTime.UTC(), log.ScannedBy).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, findErr := s.Find(ctx, log.AttendeeID, log.Day)
			if findErr != nil {
				return Log{}, findErr
			}
			return existing, ErrAlreadyRecorded
		}
		return Log{}, err
	}
	return log, nil
}

// Find fetches the present log for an attendee and day.
func (s *PostgresStore) Find(ctx context.Context, attendeeID string, day program.Day) (Log, error) {
	id, err := uuid.Parse(attendeeID)
	if err != nil {
		return Log{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, attendee_id, day, status, scan_time, scanned_by
        FROM attendance_logs WHERE attendee_id = $1 AND day = $2 AND status = $3`, id, int16(day), StatusPresent)
	log, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Log{}, ErrNotFound
	}
	return log, err
}

// ListForAttendee returns an attendee's present logs ordered by day.
func (s *PostgresStore) ListForAttendee(ctx context.Context, attendeeID string) ([]Log, error) {
	id, err := uuid.Parse(attendeeID)
	if err != nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT id, attendee_id, day, status, scan_time, scanned_by
        FROM attendance_logs WHERE attendee_id = $1 AND status = $2 ORDER BY day`, id, StatusPresent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// AttendeesPresentOn returns the ids of attendees with a present log on day.
func (s *PostgresStore) AttendeesPresentOn(ctx context.Context, day program.Day) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT attendee_id FROM attendance_logs WHERE day = $1 AND status = $2`, int16(day), StatusPresent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id.String())
	}
	return ids, rows.Err()
}

// PresentDays returns, for each of the given attendees, the days they were present.
func (s *PostgresStore) PresentDays(ctx context.Context, attendeeIDs []string) (map[string]program.DaySet, error) {
	out := make(map[string]program.DaySet, len(attendeeIDs))
	if len(attendeeIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT attendee_id, day FROM attendance_logs
        WHERE status = $1 AND attendee_id = ANY($2::uuid[])`, StatusPresent, attendeeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collected := make(map[string][]program.Day)
	for rows.Next() {
		var (
			id  uuid.UUID
			day int16
		)
		if err := rows.Scan(&id, &day); err != nil {
			return nil, err
		}
		collected[id.String()] = append(collected[id.String()], program.Day(day))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for id, days := range collected {
		out[id] = program.NewDaySet(days...)
	}
	return out, nil
}

// CountByDay returns the number of present logs per day.
func (s *PostgresStore) CountByDay(ctx context.Context) (map[program.Day]int, error) {
	rows, err := s.db.Query(ctx, `SELECT day, COUNT(*) FROM attendance_logs WHERE status = $1 GROUP BY day`, StatusPresent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[program.Day]int, program.NumDays)
	for rows.Next() {
		var (
			day   int16
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		counts[program.Day(day)] = int(count)
	}
	return counts, rows.Err()
}

func scanLog(row pgx.Row) (Log, error) {
	var (
		id, attendeeID uuid.UUID
		day            int16
		scanTime       time.Time
		log            Log
	)
	if err := row.Scan(&id, &attendeeID, &day, &log.Status, &scanTime, &log.ScannedBy); err != nil {
		return Log{}, err
	}
	log.ID = id.String()
	log.AttendeeID = attendeeID.String()
	log.Day = program.Day(day)
	log.ScanTime = scanTime.UTC()
	return log, nil
}
