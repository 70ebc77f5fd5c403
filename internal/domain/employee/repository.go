package employee

import "context"

type Repository interface {
	GetByEmail(ctx context.Context, email string) (Employee, error)
	// ListApprovers returns every active employee with the approver flag set.
	// The lifecycle service fans new-request notifications out to this list.
	ListApprovers(ctx context.Context) ([]Employee, error)
	Create(ctx context.Context, emp Employee) (Employee, error)
	Update(ctx context.Context, emp Employee) error
}
