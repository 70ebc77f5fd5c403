package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmployeeRepo struct {
	approvers []employee.Employee
	listErr   error
}

func (r *fakeEmployeeRepo) GetByEmail(ctx context.Context, email string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r *fakeEmployeeRepo) ListApprovers(ctx context.Context) ([]employee.Employee, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.approvers, nil
}

func (r *fakeEmployeeRepo) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	return emp, nil
}

func (r *fakeEmployeeRepo) Update(ctx context.Context, emp employee.Employee) error {
	return nil
}

func approver(email string) employee.Employee {
	return employee.Employee{Email: email, FullName: email, IsApprover: true, Active: true}
}

func sampleRequest() timeoff.Request {
	return timeoff.Request{
		ID:            "req-1",
		EmployeeEmail: "alice@glowhouse.test",
		EmployeeName:  "Alice",
		Type:          timeoff.TypeVacation,
		StartDate:     time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 10, 7, 0, 0, 0, 0, time.UTC),
		Days:          3,
		Status:        timeoff.StatusPending,
	}
}

func recipientsOf(repo *fakeNotificationRepo) []string {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var out []string
	for _, n := range repo.stored {
		out = append(out, n.RecipientEmail)
	}
	return out
}

func TestNewRequestFansOutToApprovers(t *testing.T) {
	repo := &fakeNotificationRepo{}
	employees := &fakeEmployeeRepo{approvers: []employee.Employee{
		approver("manager@glowhouse.test"),
		approver("director@glowhouse.test"),
	}}
	svc := NewNotificationService(repo, sse.NewHub(), Config{})
	d := NewDispatcher(svc, employees)

	d.NotifyNewRequest(context.Background(), sampleRequest())
	svc.Stop()

	recipients := recipientsOf(repo)
	assert.ElementsMatch(t, []string{"manager@glowhouse.test", "director@glowhouse.test"}, recipients)
}

func TestNewRequestSkipsRequestingApprover(t *testing.T) {
	repo := &fakeNotificationRepo{}
	employees := &fakeEmployeeRepo{approvers: []employee.Employee{
		approver("alice@glowhouse.test"), // the requester is an approver too
		approver("manager@glowhouse.test"),
	}}
	svc := NewNotificationService(repo, sse.NewHub(), Config{})
	d := NewDispatcher(svc, employees)

	d.NotifyNewRequest(context.Background(), sampleRequest())
	svc.Stop()

	assert.Equal(t, []string{"manager@glowhouse.test"}, recipientsOf(repo))
}

func TestApprovedGoesToEmployee(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, sse.NewHub(), Config{})
	d := NewDispatcher(svc, &fakeEmployeeRepo{})

	d.NotifyApproved(context.Background(), sampleRequest(), "manager@glowhouse.test")
	svc.Stop()

	require.Equal(t, []string{"alice@glowhouse.test"}, recipientsOf(repo))
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, "manager@glowhouse.test", *repo.stored[0].SenderEmail)
}

func TestRejectedIncludesReason(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, sse.NewHub(), Config{})
	d := NewDispatcher(svc, &fakeEmployeeRepo{})

	d.NotifyRejected(context.Background(), sampleRequest(), "manager@glowhouse.test", "coverage gap")
	svc.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.stored, 1)
	assert.Contains(t, repo.stored[0].Message, "coverage gap")
	assert.Equal(t, "coverage gap", repo.stored[0].Data["reason"])
}

func TestApproverLookupFailureIsSwallowed(t *testing.T) {
	repo := &fakeNotificationRepo{}
	employees := &fakeEmployeeRepo{listErr: errors.New("db down")}
	svc := NewNotificationService(repo, sse.NewHub(), Config{})
	d := NewDispatcher(svc, employees)

	// Must not panic or block; the lifecycle transition already succeeded.
	d.NotifyNewRequest(context.Background(), sampleRequest())
	d.NotifyCancelled(context.Background(), sampleRequest(), "alice@glowhouse.test", "")
	svc.Stop()

	assert.Empty(t, recipientsOf(repo))
}

func TestBalanceChangeCarriesOldAndNewValues(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, sse.NewHub(), Config{})
	d := NewDispatcher(svc, &fakeEmployeeRepo{})

	d.NotifyBalanceChange(context.Background(), "alice@glowhouse.test", "manager@glowhouse.test", timeoff.TypeVacation, 5, 8)
	svc.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.stored, 1)
	assert.Equal(t, 5, repo.stored[0].Data["old_value"])
	assert.Equal(t, 8, repo.stored[0].Data["new_value"])
}
