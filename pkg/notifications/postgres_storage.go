package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStorage persists notifications in the notifications table created
// by the pg package migrations.
type PostgresStorage struct {
	db pg.DBTX
}

// NewPostgresStorage returns a storage backed by db.
func NewPostgresStorage(db pg.DBTX) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const (
	notificationColumns = `id, user_id, type, title, body, payload, read, channel, sent_at, delivered_at, created_at`
	// ids are read back as text so they scan into plain strings
	notificationSelect = `id::text, user_id, type, title, body, payload, read, channel, sent_at, delivered_at, created_at`
)

func (s *PostgresStorage) Create(ctx context.Context, notif Notification) error {
	if notif.Payload == nil {
		notif.Payload = map[string]any{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		notif.ID, notif.UserID, notif.Type, notif.Title, notif.Body, notif.Payload,
		notif.Read, string(notif.Channel), notif.SentAt, notif.DeliveredAt, notif.CreatedAt,
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+notificationSelect+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, pgErr(err)
	}
	return n, nil
}

func (s *PostgresStorage) List(ctx context.Context, userID string, page, limit int) (*Page, error) {
	page, skip := offset(page, limit)
	result := &Page{Items: []Notification{}, Page: page, Limit: limit}

	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1`, userID,
	).Scan(&result.Total); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	if limit <= 0 || skip >= result.Total {
		return result, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+notificationSelect+` FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, skip,
	)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
		result.Items = append(result.Items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return result, nil
}

func (s *PostgresStorage) MarkRead(ctx context.Context, id, userID string) (*Notification, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE notifications SET read = TRUE
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+notificationSelect,
		id, userID,
	)
	n, err := scanNotification(row)
	if err != nil {
		return nil, pgErr(err)
	}
	return n, nil
}

func (s *PostgresStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID,
	).Scan(&n); err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return n, nil
}

func (s *PostgresStorage) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL`, id, at)
	if err != nil {
		return false, pgErr(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, pgErr(err)
	}
	if !exists {
		return false, ErrNotificationNotFound
	}
	return false, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n       Notification
		channel string
	)
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Payload,
		&n.Read, &channel, &n.SentAt, &n.DeliveredAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Channel = Channel(channel)
	return &n, nil
}

// pgErr maps missing rows and malformed ids to ErrNotificationNotFound.
func pgErr(err error) error {
	if pg.IsNotFoundError(err) || pg.IsInvalidTextError(err) {
		return ErrNotificationNotFound
	}
	return errors.Join(ErrStorage, err)
}
