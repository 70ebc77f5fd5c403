package timeoff

import (
	"context"
	"time"
)

// UpdateRequestPatch is a partial update; nil fields are left untouched.
type UpdateRequestPatch struct {
	ID           string
	Status       *Status
	Archived     *bool
	ReviewedBy   *string
	ReviewedAt   *time.Time
	ManagerNotes *string
	History      *History
}

// RequestRepository - interface for timeoff_requests table
type RequestRepository interface {
	Create(ctx context.Context, request Request) (Request, error)
	GetByID(ctx context.Context, id string) (Request, error)
	// ListByEmployee returns the employee's requests newest-first. Archived
	// requests are included only when includeArchived is set.
	ListByEmployee(ctx context.Context, email string, includeArchived bool) ([]Request, error)
	Update(ctx context.Context, patch UpdateRequestPatch) error
	// FindConflicts returns other employees' pending/approved requests whose
	// range intersects [start, end].
	FindConflicts(ctx context.Context, start, end time.Time, excludeEmail string) ([]Conflict, error)
	// PendingDays sums the business-day counts of the employee's pending
	// requests per balance type.
	PendingDays(ctx context.Context, email string) (map[Type]int, error)
}

// BalanceRepository - interface for timeoff_balances table
type BalanceRepository interface {
	GetByEmployee(ctx context.Context, email string) ([]Balance, error)
	Upsert(ctx context.Context, balance Balance) error
	// IncrementUsed adds days to the used counter. Runs inside the approval
	// transaction so the status flip and the deduction commit together.
	IncrementUsed(ctx context.Context, email string, t Type, days int) error
}
