package notification

import (
	"context"
)

// Repository defines the notification repository interface
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	CreateBatch(ctx context.Context, notifications []*Notification) error
	GetByRecipient(ctx context.Context, email string, page, pageSize int, unreadOnly bool) ([]*Notification, int, error)
	GetUnreadCount(ctx context.Context, email string) (int, error)
	MarkAsRead(ctx context.Context, ids []string, email string) error
	MarkAllAsRead(ctx context.Context, email string) error
	Delete(ctx context.Context, id string, email string) error
}
