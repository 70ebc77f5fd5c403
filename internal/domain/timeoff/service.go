package timeoff

import (
	"context"
)

type Service interface {
	// Request lifecycle
	Submit(ctx context.Context, req CreateRequestRequest) (RequestResponse, error)
	Cancel(ctx context.Context, requestID, byEmail, reason string) (RequestResponse, error)
	Approve(ctx context.Context, requestID, byEmail string, managerNotes *string) (RequestResponse, error)
	Reject(ctx context.Context, requestID, byEmail, reason string) (RequestResponse, error)
	Archive(ctx context.Context, requestID, byEmail string) error
	Unarchive(ctx context.Context, requestID, byEmail string) error

	// Reads
	Get(ctx context.Context, requestID string) (RequestResponse, error)
	MyRequests(ctx context.Context, email string, includeArchived bool) ([]RequestResponse, error)
	Balances(ctx context.Context, email string) (BalanceSummary, error)
	Conflicts(ctx context.Context, start, end, excludeEmail string) ([]Conflict, error)

	// Approver-only balance override
	AdjustBalance(ctx context.Context, req AdjustBalanceRequest) error

	// Subscribe delivers a full snapshot of the employee's requests on every
	// change. The returned func must be called on teardown.
	Subscribe(ctx context.Context, email string) (<-chan SnapshotEvent, func())
}

// Dispatcher fans notification records out to the relevant recipients. Calls
// never return an error: partial or total delivery failure is logged by the
// implementation and must not block the lifecycle transition that triggered
// it.
type Dispatcher interface {
	NotifyNewRequest(ctx context.Context, request Request)
	NotifyApproved(ctx context.Context, request Request, approvedBy string)
	NotifyRejected(ctx context.Context, request Request, rejectedBy, reason string)
	NotifyCancelled(ctx context.Context, request Request, cancelledBy, reason string)
	NotifyBalanceChange(ctx context.Context, email, changedBy string, t Type, oldValue, newValue int)
}
