package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

// NotificationRepository stores notifications keyed by recipient email, so
// guests who raised a request without an account still receive them.
type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, email string) (bool, error)
	MarkAllAsRead(ctx context.Context, email string) error
	CountUnread(ctx context.Context, email string) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_email, type, title, message, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.RecipientEmail, notif.Type, notif.Title, notif.Message, notif.RelatedID, notif.RelatedType,
	).Scan(&notif.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	err := r.db.GetContext(ctx, &notif, `SELECT * FROM notifications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	where := `WHERE LOWER(recipient_email) = LOWER($1)`
	if unreadOnly {
		where += ` AND is_read = false`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications `+where, email); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM notifications
		` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	notifications := []domain.Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, email, params.PageSize, params.Offset())
	return notifications, total, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID, email string) (bool, error) {
	query := `
		UPDATE notifications SET is_read = true, read_at = NOW()
		WHERE id = $1 AND LOWER(recipient_email) = LOWER($2) AND is_read = false`

	res, err := r.db.ExecContext(ctx, query, id, email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, email string) error {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE LOWER(recipient_email) = LOWER($1) AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, email)
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context, email string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE LOWER(recipient_email) = LOWER($1) AND is_read = false`
	err := r.db.GetContext(ctx, &count, query, email)
	return count, err
}
