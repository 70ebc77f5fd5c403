package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/notification"
	"github.com/glowhouse/portal-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type notificationRepositoryImpl struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, n *notification.Notification) error {
	q := GetQuerier(ctx, r.db)

	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (id, recipient_email, sender_email, type, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = q.Exec(ctx, query,
		n.ID, n.RecipientEmail, n.SenderEmail, n.Type, n.Title, n.Message, data, n.IsRead, n.CreatedAt,
	)
	return err
}

func (r *notificationRepositoryImpl) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO notifications (id, recipient_email, sender_email, type, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, n := range notifications {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		batch.Queue(query, n.ID, n.RecipientEmail, n.SenderEmail, n.Type, n.Title, n.Message, data, n.IsRead, n.CreatedAt)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range notifications {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to batch insert notifications: %w", err)
		}
	}

	return nil
}

func (r *notificationRepositoryImpl) GetByRecipient(ctx context.Context, email string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "WHERE recipient_email = $1"
	if unreadOnly {
		whereClause += " AND is_read = FALSE"
	}

	countQuery := "SELECT COUNT(*) FROM notifications " + whereClause
	var total int
	if err := q.QueryRow(ctx, countQuery, email).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT id, recipient_email, sender_email, type, title, message, data, is_read, read_at, created_at
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, whereClause)

	rows, err := q.Query(ctx, query, email, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var data []byte
		err := rows.Scan(
			&n.ID, &n.RecipientEmail, &n.SenderEmail, &n.Type, &n.Title, &n.Message,
			&data, &n.IsRead, &n.ReadAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal notification data: %w", err)
			}
		}
		notifications = append(notifications, &n)
	}

	return notifications, total, rows.Err()
}

func (r *notificationRepositoryImpl) GetUnreadCount(ctx context.Context, email string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_email = $1 AND is_read = FALSE`,
		email,
	).Scan(&count)
	return count, err
}

func (r *notificationRepositoryImpl) MarkAsRead(ctx context.Context, ids []string, email string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $3
		WHERE id = ANY($1) AND recipient_email = $2
	`

	_, err := q.Exec(ctx, query, ids, email, time.Now())
	return err
}

func (r *notificationRepositoryImpl) MarkAllAsRead(ctx context.Context, email string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE recipient_email = $1 AND is_read = FALSE
	`

	_, err := q.Exec(ctx, query, email, time.Now())
	return err
}

func (r *notificationRepositoryImpl) Delete(ctx context.Context, id string, email string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_email = $2`,
		id, email,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}
