package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStorage persists delivery entries in the delivery_queue table.
// Claims and resolutions are single-statement UPDATEs filtered on status.
type PostgresStorage struct {
	db pg.DBTX
}

// NewPostgresStorage returns a storage backed by db.
func NewPostgresStorage(db pg.DBTX) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const entrySelect = `id::text, notification_id::text, channel, status, attempts, last_error,
	available_at, claimed_at, created_at, updated_at`

func (s *PostgresStorage) Enqueue(ctx context.Context, notificationID string, channel notifications.Channel, availableAt time.Time) (*Entry, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO delivery_queue (id, notification_id, channel, status, attempts, available_at, created_at, updated_at)
		 VALUES ($1, $2, $3, 'pending', 0, $4, now(), now())
		 RETURNING `+entrySelect,
		uuid.NewString(), notificationID, string(channel), availableAt,
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return e, nil
}

func (s *PostgresStorage) FetchDue(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	return s.query(ctx,
		`SELECT `+entrySelect+` FROM delivery_queue
		 WHERE status = 'pending' AND available_at <= $1
		 ORDER BY created_at, id
		 LIMIT $2`,
		now, limit,
	)
}

func (s *PostgresStorage) Claim(ctx context.Context, id string, now time.Time) (*Entry, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE delivery_queue
		 SET status = 'processing', claimed_at = $2, updated_at = $2
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+entrySelect,
		id, now,
	)
	e, err := scanEntry(row)
	if err == nil {
		return e, nil
	}
	if !pg.IsNotFoundError(err) {
		return nil, s.storageErr(err)
	}

	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrClaimLost
}

func (s *PostgresStorage) MarkSent(ctx context.Context, id string, attempts int, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE delivery_queue SET status = 'sent', attempts = $2, updated_at = $3
		 WHERE id = $1 AND status = 'processing'`,
		id, attempts, now,
	)
	if err != nil {
		return s.storageErr(err)
	}
	return s.resolved(ctx, id, tag.RowsAffected())
}

func (s *PostgresStorage) MarkFailed(ctx context.Context, id string, upd FailureUpdate) error {
	if upd.Status != StatusPending && upd.Status != StatusFailed {
		return fmt.Errorf("%w: %q after failure", ErrInvalidStatus, upd.Status)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE delivery_queue
		 SET status = $2, attempts = $3, last_error = $4, available_at = $5, updated_at = $6
		 WHERE id = $1 AND status = 'processing'`,
		id, string(upd.Status), upd.Attempts, upd.LastError, upd.AvailableAt, upd.UpdatedAt,
	)
	if err != nil {
		return s.storageErr(err)
	}
	return s.resolved(ctx, id, tag.RowsAffected())
}

func (s *PostgresStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]Entry, error) {
	if limit <= 0 {
		return s.query(ctx,
			`SELECT `+entrySelect+` FROM delivery_queue WHERE status = $1 ORDER BY created_at, id`,
			string(status))
	}
	return s.query(ctx,
		`SELECT `+entrySelect+` FROM delivery_queue WHERE status = $1 ORDER BY created_at, id LIMIT $2`,
		string(status), limit)
}

func (s *PostgresStorage) ListByNotification(ctx context.Context, notificationID string) ([]Entry, error) {
	entries, err := s.query(ctx,
		`SELECT `+entrySelect+` FROM delivery_queue WHERE notification_id = $1 ORDER BY created_at, id`,
		notificationID)
	if errors.Is(err, ErrEntryNotFound) {
		return []Entry{}, nil
	}
	return entries, err
}

func (s *PostgresStorage) PurgeFailed(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM delivery_queue WHERE status = 'failed' AND updated_at < $1`, olderThan)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE delivery_queue SET status = 'pending', claimed_at = NULL, updated_at = now()
		 WHERE status = 'processing' AND claimed_at < $1`, olderThan)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) resolved(ctx context.Context, id string, affected int64) error {
	if affected == 1 {
		return nil
	}
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: entry %s", ErrNotProcessing, id)
}

func (s *PostgresStorage) exists(ctx context.Context, id string) error {
	var ok bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivery_queue WHERE id = $1)`, id,
	).Scan(&ok); err != nil {
		return s.storageErr(err)
	}
	if !ok {
		return ErrEntryNotFound
	}
	return nil
}

func (s *PostgresStorage) query(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, s.storageErr(err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr(err)
	}
	return entries, nil
}

// storageErr maps malformed ids to ErrEntryNotFound.
func (s *PostgresStorage) storageErr(err error) error {
	if pg.IsInvalidTextError(err) {
		return ErrEntryNotFound
	}
	return errors.Join(ErrStorage, err)
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e       Entry
		channel string
		status  string
	)
	if err := row.Scan(
		&e.ID, &e.NotificationID, &channel, &status, &e.Attempts, &e.LastError,
		&e.AvailableAt, &e.ClaimedAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Channel = notifications.Channel(channel)
	e.Status = Status(status)
	return &e, nil
}
