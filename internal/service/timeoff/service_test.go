package timeoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeRequestRepo struct {
	requests map[string]timeoff.Request
	order    []string
	nextID   int

	updateErr error
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]timeoff.Request)}
}

func (r *fakeRequestRepo) Create(ctx context.Context, request timeoff.Request) (timeoff.Request, error) {
	r.nextID++
	request.ID = fmt.Sprintf("req-%d", r.nextID)
	now := time.Now()
	request.SubmittedAt = now
	request.CreatedAt = now
	request.UpdatedAt = now
	r.requests[request.ID] = request
	r.order = append(r.order, request.ID)
	return request, nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id string) (timeoff.Request, error) {
	request, ok := r.requests[id]
	if !ok {
		return timeoff.Request{}, timeoff.ErrRequestNotFound
	}
	return request, nil
}

func (r *fakeRequestRepo) ListByEmployee(ctx context.Context, email string, includeArchived bool) ([]timeoff.Request, error) {
	var out []timeoff.Request
	for i := len(r.order) - 1; i >= 0; i-- {
		request := r.requests[r.order[i]]
		if request.EmployeeEmail != email {
			continue
		}
		if request.Archived && !includeArchived {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

func (r *fakeRequestRepo) Update(ctx context.Context, patch timeoff.UpdateRequestPatch) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	request, ok := r.requests[patch.ID]
	if !ok {
		return timeoff.ErrRequestNotFound
	}
	if patch.Status != nil {
		request.Status = *patch.Status
	}
	if patch.Archived != nil {
		request.Archived = *patch.Archived
	}
	if patch.ReviewedBy != nil {
		request.ReviewedBy = patch.ReviewedBy
	}
	if patch.ReviewedAt != nil {
		request.ReviewedAt = patch.ReviewedAt
	}
	if patch.ManagerNotes != nil {
		request.ManagerNotes = patch.ManagerNotes
	}
	if patch.History != nil {
		request.History = *patch.History
	}
	request.UpdatedAt = time.Now()
	r.requests[patch.ID] = request
	return nil
}

func (r *fakeRequestRepo) FindConflicts(ctx context.Context, start, end time.Time, excludeEmail string) ([]timeoff.Conflict, error) {
	var out []timeoff.Conflict
	for _, id := range r.order {
		request := r.requests[id]
		if request.EmployeeEmail == excludeEmail {
			continue
		}
		if request.Status != timeoff.StatusPending && request.Status != timeoff.StatusApproved {
			continue
		}
		if request.StartDate.After(end) || start.After(request.EndDate) {
			continue
		}
		out = append(out, timeoff.Conflict{
			ID:           request.ID,
			EmployeeName: request.EmployeeName,
			Type:         request.Type,
			Status:       request.Status,
			StartDate:    request.StartDate,
			EndDate:      request.EndDate,
		})
	}
	return out, nil
}

func (r *fakeRequestRepo) PendingDays(ctx context.Context, email string) (map[timeoff.Type]int, error) {
	pending := make(map[timeoff.Type]int)
	for _, id := range r.order {
		request := r.requests[id]
		if request.EmployeeEmail == email && request.Status == timeoff.StatusPending && request.Type.HasBalance() {
			pending[request.Type] += request.Days
		}
	}
	return pending, nil
}

type fakeBalanceRepo struct {
	balances     map[string]timeoff.Balance // keyed email|type
	incrementErr error
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]timeoff.Balance)}
}

func balanceKey(email string, t timeoff.Type) string { return email + "|" + string(t) }

func (r *fakeBalanceRepo) set(b timeoff.Balance) {
	r.balances[balanceKey(b.EmployeeEmail, b.Type)] = b
}

func (r *fakeBalanceRepo) GetByEmployee(ctx context.Context, email string) ([]timeoff.Balance, error) {
	var out []timeoff.Balance
	for _, b := range r.balances {
		if b.EmployeeEmail == email {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBalanceRepo) Upsert(ctx context.Context, balance timeoff.Balance) error {
	r.set(balance)
	return nil
}

func (r *fakeBalanceRepo) IncrementUsed(ctx context.Context, email string, t timeoff.Type, days int) error {
	if r.incrementErr != nil {
		return r.incrementErr
	}
	b, ok := r.balances[balanceKey(email, t)]
	if !ok {
		return timeoff.ErrBalanceNotFound
	}
	b.Used += days
	r.balances[balanceKey(email, t)] = b
	return nil
}

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[string]employee.Employee)}
}

func (r *fakeEmployeeRepo) add(email string, isApprover bool) {
	r.employees[email] = employee.Employee{Email: email, FullName: email, IsApprover: isApprover, Active: true}
}

func (r *fakeEmployeeRepo) GetByEmail(ctx context.Context, email string) (employee.Employee, error) {
	emp, ok := r.employees[email]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (r *fakeEmployeeRepo) ListApprovers(ctx context.Context) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, emp := range r.employees {
		if emp.IsApprover && emp.Active {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (r *fakeEmployeeRepo) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	r.employees[emp.Email] = emp
	return emp, nil
}

func (r *fakeEmployeeRepo) Update(ctx context.Context, emp employee.Employee) error {
	r.employees[emp.Email] = emp
	return nil
}

// fakeDispatcher records every fan-out without side effects.
type fakeDispatcher struct {
	newRequests    []string
	approved       []string
	rejected       []string
	cancelled      []string
	balanceChanges []string
}

func (d *fakeDispatcher) NotifyNewRequest(ctx context.Context, request timeoff.Request) {
	d.newRequests = append(d.newRequests, request.ID)
}

func (d *fakeDispatcher) NotifyApproved(ctx context.Context, request timeoff.Request, approvedBy string) {
	d.approved = append(d.approved, request.ID)
}

func (d *fakeDispatcher) NotifyRejected(ctx context.Context, request timeoff.Request, rejectedBy, reason string) {
	d.rejected = append(d.rejected, request.ID)
}

func (d *fakeDispatcher) NotifyCancelled(ctx context.Context, request timeoff.Request, cancelledBy, reason string) {
	d.cancelled = append(d.cancelled, request.ID)
}

func (d *fakeDispatcher) NotifyBalanceChange(ctx context.Context, email, changedBy string, t timeoff.Type, oldValue, newValue int) {
	d.balanceChanges = append(d.balanceChanges, fmt.Sprintf("%s:%s:%d->%d", email, t, oldValue, newValue))
}

// fakeTxRunner runs fn directly and counts invocations.
type fakeTxRunner struct {
	calls int
}

func (t *fakeTxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// --- fixture ---

type fixture struct {
	svc        timeoff.Service
	requests   *fakeRequestRepo
	balances   *fakeBalanceRepo
	employees  *fakeEmployeeRepo
	dispatcher *fakeDispatcher
	tx         *fakeTxRunner
	hub        *sse.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		requests:   newFakeRequestRepo(),
		balances:   newFakeBalanceRepo(),
		employees:  newFakeEmployeeRepo(),
		dispatcher: &fakeDispatcher{},
		tx:         &fakeTxRunner{},
		hub:        sse.NewHub(),
	}

	f.employees.add("alice@glowhouse.test", false)
	f.employees.add("manager@glowhouse.test", true)
	f.balances.set(timeoff.Balance{EmployeeEmail: "alice@glowhouse.test", Type: timeoff.TypeVacation, Total: 15, Used: 5})
	f.balances.set(timeoff.Balance{EmployeeEmail: "alice@glowhouse.test", Type: timeoff.TypeSick, Total: 10, Used: 0})

	v := NewValidator(nil)
	v.Now = func() time.Time { return date("2026-09-01") }

	f.svc = NewService(f.tx, f.requests, f.balances, f.employees, f.dispatcher, v, f.hub)
	return f
}

func (f *fixture) submit(t *testing.T, start, end string) timeoff.RequestResponse {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), timeoff.CreateRequestRequest{
		EmployeeEmail: "alice@glowhouse.test",
		EmployeeName:  "Alice",
		Type:          "vacation",
		StartDate:     start,
		EndDate:       end,
		Reason:        "family trip",
	})
	require.NoError(t, err)
	return resp
}

// --- tests ---

func TestSubmitCreatesPendingRequest(t *testing.T) {
	f := newFixture(t)

	resp := f.submit(t, "2026-10-05", "2026-10-07")

	assert.Equal(t, timeoff.StatusPending, resp.Status)
	assert.Equal(t, 3, resp.Days)
	require.Len(t, resp.History, 1)
	assert.Equal(t, timeoff.ActionSubmitted, resp.History[0].Action)
	assert.Equal(t, "alice@glowhouse.test", resp.History[0].By)
	assert.Equal(t, []string{resp.ID}, f.dispatcher.newRequests)
}

func TestSubmitWeekendOnlyCreatesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), timeoff.CreateRequestRequest{
		EmployeeEmail: "alice@glowhouse.test",
		Type:          "vacation",
		StartDate:     "2026-10-03",
		EndDate:       "2026-10-04",
		Reason:        "weekend",
	})

	var failed *timeoff.ValidationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.Result.Errors, "no business days in selected range")
	assert.Empty(t, f.requests.requests)
	assert.Empty(t, f.dispatcher.newRequests)
}

func TestSubmitReturnsShortNoticeWarning(t *testing.T) {
	f := newFixture(t)

	resp := f.submit(t, "2026-09-07", "2026-09-08")

	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "notice")
	assert.Equal(t, timeoff.StatusPending, resp.Status)
}

func TestCancelPendingRequest(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	resp, err := f.svc.Cancel(context.Background(), created.ID, "alice@glowhouse.test", "plans changed")

	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusCancelled, resp.Status)
	require.Len(t, resp.History, 2)
	assert.Equal(t, timeoff.ActionCancelled, resp.History[1].Action)
	assert.Equal(t, []string{created.ID}, f.dispatcher.cancelled)
}

func TestCancelTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	_, err := f.svc.Cancel(context.Background(), created.ID, "alice@glowhouse.test", "")
	require.NoError(t, err)

	// Second cancel, e.g. from a stale tab, is a no-op.
	resp, err := f.svc.Cancel(context.Background(), created.ID, "alice@glowhouse.test", "")
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusCancelled, resp.Status)
	assert.Len(t, resp.History, 2, "repeat cancel must not append history")
	assert.Len(t, f.dispatcher.cancelled, 1, "repeat cancel must not re-notify")
}

func TestCancelByNonOwnerRejected(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	_, err := f.svc.Cancel(context.Background(), created.ID, "manager@glowhouse.test", "")
	assert.ErrorIs(t, err, timeoff.ErrNotRequestOwner)
}

func TestApproveDeductsBalanceTransactionally(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	resp, err := f.svc.Approve(context.Background(), created.ID, "manager@glowhouse.test", nil)

	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusApproved, resp.Status)
	require.NotNil(t, resp.ReviewedBy)
	assert.Equal(t, "manager@glowhouse.test", *resp.ReviewedBy)
	require.Len(t, resp.History, 2)
	assert.Equal(t, timeoff.ActionApproved, resp.History[1].Action)

	assert.Equal(t, 1, f.tx.calls)
	b := f.balances.balances[balanceKey("alice@glowhouse.test", timeoff.TypeVacation)]
	assert.Equal(t, 8, b.Used)
	assert.Equal(t, []string{"alice@glowhouse.test:vacation:5->8"}, f.dispatcher.balanceChanges)
}

func TestApproveFailsWhenDeductionFails(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")
	f.balances.incrementErr = errors.New("deadlock")

	_, err := f.svc.Approve(context.Background(), created.ID, "manager@glowhouse.test", nil)

	require.Error(t, err)
	assert.Empty(t, f.dispatcher.approved, "no notification when the transaction fails")
}

func TestApproveRemoteSkipsBalance(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Submit(context.Background(), timeoff.CreateRequestRequest{
		EmployeeEmail: "alice@glowhouse.test",
		Type:          "remote",
		StartDate:     "2026-10-05",
		EndDate:       "2026-10-09",
		Reason:        "working from home",
	})
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), resp.ID, "manager@glowhouse.test", nil)
	require.NoError(t, err)

	b := f.balances.balances[balanceKey("alice@glowhouse.test", timeoff.TypeVacation)]
	assert.Equal(t, 5, b.Used, "remote approval must not touch balances")
	assert.Empty(t, f.dispatcher.balanceChanges)
}

func TestApproveByNonApproverRejected(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	_, err := f.svc.Approve(context.Background(), created.ID, "alice@glowhouse.test", nil)
	assert.ErrorIs(t, err, timeoff.ErrApproverRequired)
}

func TestApproveAlreadyProcessedRejected(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	_, err := f.svc.Approve(context.Background(), created.ID, "manager@glowhouse.test", nil)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), created.ID, "manager@glowhouse.test", nil)
	assert.ErrorIs(t, err, timeoff.ErrAlreadyProcessed)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	_, err := f.svc.Reject(context.Background(), created.ID, "manager@glowhouse.test", "  ")
	require.Error(t, err)

	resp, err := f.svc.Reject(context.Background(), created.ID, "manager@glowhouse.test", "coverage gap")
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusRejected, resp.Status)
	require.NotNil(t, resp.History[1].Notes)
	assert.Equal(t, "coverage gap", *resp.History[1].Notes)

	// Rejection never touches the balance.
	b := f.balances.balances[balanceKey("alice@glowhouse.test", timeoff.TypeVacation)]
	assert.Equal(t, 5, b.Used)
}

func TestArchivePendingRejected(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")

	err := f.svc.Archive(context.Background(), created.ID, "alice@glowhouse.test")
	assert.ErrorIs(t, err, timeoff.ErrArchivePending)
}

func TestArchiveWritesNoHistory(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")
	_, err := f.svc.Cancel(context.Background(), created.ID, "alice@glowhouse.test", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Archive(context.Background(), created.ID, "alice@glowhouse.test"))

	stored := f.requests.requests[created.ID]
	assert.True(t, stored.Archived)
	assert.Len(t, stored.History, 2, "archive toggles never write history")

	require.NoError(t, f.svc.Unarchive(context.Background(), created.ID, "alice@glowhouse.test"))
	stored = f.requests.requests[created.ID]
	assert.False(t, stored.Archived)
	assert.Len(t, stored.History, 2)
}

func TestArchiveByApproverAllowed(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, "2026-10-05", "2026-10-07")
	_, err := f.svc.Approve(context.Background(), created.ID, "manager@glowhouse.test", nil)
	require.NoError(t, err)

	assert.NoError(t, f.svc.Archive(context.Background(), created.ID, "manager@glowhouse.test"))
}

func TestArchiveByStrangerRejected(t *testing.T) {
	f := newFixture(t)
	f.employees.add("bob@glowhouse.test", false)
	created := f.submit(t, "2026-10-05", "2026-10-07")
	_, err := f.svc.Cancel(context.Background(), created.ID, "alice@glowhouse.test", "")
	require.NoError(t, err)

	err = f.svc.Archive(context.Background(), created.ID, "bob@glowhouse.test")
	assert.ErrorIs(t, err, timeoff.ErrNotRequestOwner)
}

func TestMyRequestsFiltersArchived(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t, "2026-10-05", "2026-10-07")
	second := f.submit(t, "2026-11-02", "2026-11-03")
	_, err := f.svc.Cancel(context.Background(), first.ID, "alice@glowhouse.test", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Archive(context.Background(), first.ID, "alice@glowhouse.test"))

	visible, err := f.svc.MyRequests(context.Background(), "alice@glowhouse.test", false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, second.ID, visible[0].ID)

	all, err := f.svc.MyRequests(context.Background(), "alice@glowhouse.test", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBalancesIncludePendingDays(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "2026-10-05", "2026-10-07")

	summary, err := f.svc.Balances(context.Background(), "alice@glowhouse.test")
	require.NoError(t, err)

	assert.Equal(t, 15, summary.Vacation.Total)
	assert.Equal(t, 5, summary.Vacation.Used)
	assert.Equal(t, 10, summary.Vacation.Remaining)
	assert.Equal(t, 3, summary.Vacation.Pending)
	assert.Equal(t, 10, summary.Sick.Total)
	assert.Equal(t, 0, summary.Sick.Pending)
}

func TestConflictsExcludeCaller(t *testing.T) {
	f := newFixture(t)
	f.employees.add("bob@glowhouse.test", false)
	f.balances.set(timeoff.Balance{EmployeeEmail: "bob@glowhouse.test", Type: timeoff.TypeVacation, Total: 15, Used: 0})

	f.submit(t, "2026-10-05", "2026-10-07")
	_, err := f.svc.Submit(context.Background(), timeoff.CreateRequestRequest{
		EmployeeEmail: "bob@glowhouse.test",
		EmployeeName:  "Bob",
		Type:          "vacation",
		StartDate:     "2026-10-06",
		EndDate:       "2026-10-08",
		Reason:        "trip",
	})
	require.NoError(t, err)

	conflicts, err := f.svc.Conflicts(context.Background(), "2026-10-05", "2026-10-09", "alice@glowhouse.test")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Bob", conflicts[0].EmployeeName)
}

func TestAdjustBalanceRequiresApprover(t *testing.T) {
	f := newFixture(t)

	err := f.svc.AdjustBalance(context.Background(), timeoff.AdjustBalanceRequest{
		EmployeeEmail: "alice@glowhouse.test",
		Type:          "vacation",
		Total:         20,
		Used:          5,
		AdjustedBy:    "alice@glowhouse.test",
	})
	assert.ErrorIs(t, err, timeoff.ErrApproverRequired)
}

func TestAdjustBalanceOverridesCounters(t *testing.T) {
	f := newFixture(t)

	err := f.svc.AdjustBalance(context.Background(), timeoff.AdjustBalanceRequest{
		EmployeeEmail: "alice@glowhouse.test",
		Type:          "vacation",
		Total:         10,
		Used:          12,
		AdjustedBy:    "manager@glowhouse.test",
	})
	require.NoError(t, err)

	b := f.balances.balances[balanceKey("alice@glowhouse.test", timeoff.TypeVacation)]
	assert.Equal(t, 10, b.Total)
	assert.Equal(t, 12, b.Used)
	assert.Equal(t, -2, b.Remaining(), "manual override may push remaining negative")
	assert.Equal(t, []string{"alice@glowhouse.test:vacation:5->12"}, f.dispatcher.balanceChanges)
}

func TestSubscribeDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "2026-10-05", "2026-10-07")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, cleanup := f.svc.Subscribe(ctx, "alice@glowhouse.test")
	defer cleanup()

	initial := waitForSnapshot(t, events)
	assert.Len(t, initial.Requests, 1)

	f.submit(t, "2026-11-02", "2026-11-03")
	updated := waitForSnapshot(t, events)
	assert.Len(t, updated.Requests, 2)
}

func waitForSnapshot(t *testing.T, events <-chan timeoff.SnapshotEvent) timeoff.SnapshotEvent {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot event")
		return timeoff.SnapshotEvent{}
	}
}
