package notification

import (
	"context"
	"database/sql"

	"CANIS-backend/internal/platform/db"
)

type NotificationStore interface {
	Insert(ctx context.Context, n *Notification) error
	GetByULID(ctx context.Context, ulid string) (*Notification, error)
	MarkRead(ctx context.Context, notificationID int64) (int64, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	List(ctx context.Context, q ListQuery) ([]Notification, error)
}

type Store struct{ q db.DBTX }

func NewStore(q db.DBTX) NotificationStore { return &Store{q: q} }

func (s *Store) Insert(ctx context.Context, n *Notification) error {
	const q = `
	INSERT INTO notifications
	  (notification_ulid, user_id, type, title, message, related_type, related_id, is_read, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0, UTC_TIMESTAMP(6))`

	res, err := s.q.ExecContext(ctx, q,
		n.NotificationULID, n.UserID, n.Type, n.Title, n.Message,
		nilIfEmpty(n.RelatedType), nilIfEmpty(n.RelatedID))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.NotificationID = id
	return nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Notification, error) {
	const q = `
	SELECT notification_id, notification_ulid, user_id, type, title, message,
	       related_type, related_id, is_read, created_at
	FROM notifications
	WHERE notification_ulid = ?
	LIMIT 1`

	var n Notification
	var relType, relID sql.NullString
	var isReadInt int
	err := s.q.QueryRowContext(ctx, q, ulid).Scan(
		&n.NotificationID, &n.NotificationULID, &n.UserID, &n.Type, &n.Title, &n.Message,
		&relType, &relID, &isReadInt, &n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if relType.Valid {
		v := relType.String
		n.RelatedType = &v
	}
	if relID.Valid {
		v := relID.String
		n.RelatedID = &v
	}
	n.IsRead = isReadInt != 0
	return &n, nil
}

func (s *Store) MarkRead(ctx context.Context, notificationID int64) (int64, error) {
	const q = `UPDATE notifications SET is_read = 1 WHERE notification_id = ? AND is_read = 0`
	res, err := s.q.ExecContext(ctx, q, notificationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	const q = `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`
	res, err := s.q.ExecContext(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`
	var n int64
	if err := s.q.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Notification, error) {
	query := `
	SELECT notification_id, notification_ulid, user_id, type, title, message,
	       related_type, related_id, is_read, created_at
	FROM notifications
	WHERE user_id = ?`
	args := []any{q.UserID}
	if q.UnreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, notification_id DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var relType, relID sql.NullString
		var isReadInt int
		if err := rows.Scan(
			&n.NotificationID, &n.NotificationULID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&relType, &relID, &isReadInt, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		if relType.Valid {
			v := relType.String
			n.RelatedType = &v
		}
		if relID.Valid {
			v := relID.String
			n.RelatedID = &v
		}
		n.IsRead = isReadInt != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func nilIfEmpty(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
