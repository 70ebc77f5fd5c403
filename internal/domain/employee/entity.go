package employee

import "time"

// Employee is a portal account. Approvers review time-off requests and
// receive new-request notifications.
type Employee struct {
	Email        string
	FullName     string
	PasswordHash *string
	IsApprover   bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
