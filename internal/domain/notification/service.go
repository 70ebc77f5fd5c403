package notification

import (
	"context"
)

// Service defines the notification service interface
type Service interface {
	// Queue notification (async processing via background workers)
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error
	QueueBulkNotification(ctx context.Context, reqs []CreateNotificationRequest) error

	// Inbox
	GetNotifications(ctx context.Context, email string, page, pageSize int, unreadOnly bool) (*NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, email string) (int, error)
	MarkAsRead(ctx context.Context, email string, req MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, email string) error
	Delete(ctx context.Context, email string, notificationID string) error

	// SSE subscription
	Subscribe(ctx context.Context, email string) (<-chan SSEEvent, func())

	// Lifecycle
	Stop()
}
