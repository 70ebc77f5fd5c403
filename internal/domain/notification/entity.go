package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeRequestSubmitted NotificationType = "request_submitted"
	TypeRequestApproved  NotificationType = "request_approved"
	TypeRequestRejected  NotificationType = "request_rejected"
	TypeRequestCancelled NotificationType = "request_cancelled"
	TypeBalanceChanged   NotificationType = "balance_changed"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeRequestCancelled,
		TypeBalanceChanged,
	}
}

// Notification represents one delivered notification record
type Notification struct {
	ID             string
	RecipientEmail string
	SenderEmail    *string
	Type           NotificationType
	Title          string
	Message        string
	Data           map[string]interface{}
	IsRead         bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}
