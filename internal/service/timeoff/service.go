package timeoff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/database"
	"github.com/glowhouse/portal-backend-go/internal/pkg/sse"
	"github.com/glowhouse/portal-backend-go/internal/pkg/validator"
)

// Service orchestrates the request lifecycle: submit, cancel, approve,
// reject and the archive toggle. The persisted record is the source of
// truth; nothing is mutated optimistically, and subscribers get a fresh
// snapshot after every successful write.
type Service struct {
	tx         database.TxRunner
	requests   timeoff.RequestRepository
	balances   timeoff.BalanceRepository
	employees  employee.Repository
	dispatcher timeoff.Dispatcher
	validator  *Validator
	hub        *sse.Hub
}

func NewService(
	tx database.TxRunner,
	requests timeoff.RequestRepository,
	balances timeoff.BalanceRepository,
	employees employee.Repository,
	dispatcher timeoff.Dispatcher,
	v *Validator,
	hub *sse.Hub,
) timeoff.Service {
	return &Service{
		tx:         tx,
		requests:   requests,
		balances:   balances,
		employees:  employees,
		dispatcher: dispatcher,
		validator:  v,
		hub:        hub,
	}
}

func (s *Service) Submit(ctx context.Context, req timeoff.CreateRequestRequest) (timeoff.RequestResponse, error) {
	if err := req.Validate(); err != nil {
		return timeoff.RequestResponse{}, err
	}
	c := req.ToCandidate()

	balances, err := s.balances.GetByEmployee(ctx, c.EmployeeEmail)
	if err != nil {
		return timeoff.RequestResponse{}, fmt.Errorf("failed to load balances: %w", err)
	}

	existing, err := s.requests.ListByEmployee(ctx, c.EmployeeEmail, true)
	if err != nil {
		return timeoff.RequestResponse{}, fmt.Errorf("failed to load existing requests: %w", err)
	}

	// The balance and duplicate checks are read-then-write with no
	// transactional guard; two concurrent submissions can both pass. This
	// matches the product's accepted behavior, see DESIGN.md.
	result := s.validator.Validate(c, balances, existing)
	if !result.Valid {
		return timeoff.RequestResponse{}, &timeoff.ValidationFailedError{Result: result}
	}

	request := timeoff.Request{
		EmployeeEmail:     c.EmployeeEmail,
		EmployeeName:      c.EmployeeName,
		Type:              c.Type,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		Days:              result.RequestedDays,
		Reason:            c.Reason,
		Notes:             c.Notes,
		IsTravel:          c.IsTravel,
		Destination:       c.Destination,
		TravelPurpose:     c.TravelPurpose,
		EstimatedExpenses: c.EstimatedExpenses,
		Status:            timeoff.StatusPending,
		Archived:          false,
		History: timeoff.History{{
			Action:    timeoff.ActionSubmitted,
			By:        c.EmployeeEmail,
			Timestamp: time.Now(),
		}},
	}

	created, err := s.requests.Create(ctx, request)
	if err != nil {
		return timeoff.RequestResponse{}, fmt.Errorf("failed to create time-off request: %w", err)
	}

	s.dispatcher.NotifyNewRequest(ctx, created)
	s.publishSnapshot(ctx, created.EmployeeEmail)

	resp := timeoff.ToRequestResponse(created)
	resp.Warnings = result.Warnings
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, requestID, byEmail, reason string) (timeoff.RequestResponse, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return timeoff.RequestResponse{}, err
	}

	if request.EmployeeEmail != byEmail {
		return timeoff.RequestResponse{}, timeoff.ErrNotRequestOwner
	}

	// A second cancel (two tabs) is a no-op, not an error.
	if request.Status == timeoff.StatusCancelled {
		return timeoff.ToRequestResponse(request), nil
	}

	if request.Status != timeoff.StatusPending {
		return timeoff.RequestResponse{}, timeoff.ErrAlreadyProcessed
	}

	var notes *string
	if !validator.IsEmpty(reason) {
		notes = &reason
	}

	status := timeoff.StatusCancelled
	history := request.AppendHistory(timeoff.ActionCancelled, byEmail, notes, time.Now())
	if err := s.requests.Update(ctx, timeoff.UpdateRequestPatch{
		ID:      request.ID,
		Status:  &status,
		History: &history,
	}); err != nil {
		return timeoff.RequestResponse{}, fmt.Errorf("failed to cancel time-off request: %w", err)
	}

	request.Status = status
	request.History = history

	// No balance change: nothing was deducted while the request was pending.
	s.dispatcher.NotifyCancelled(ctx, request, byEmail, reason)
	s.publishSnapshot(ctx, request.EmployeeEmail)

	return timeoff.ToRequestResponse(request), nil
}

func (s *Service) Approve(ctx context.Context, requestID, byEmail string, managerNotes *string) (timeoff.RequestResponse, error) {
	if err := s.requireApprover(ctx, byEmail); err != nil {
		return timeoff.RequestResponse{}, err
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return timeoff.RequestResponse{}, err
	}

	if request.Status != timeoff.StatusPending {
		return timeoff.RequestResponse{}, timeoff.ErrAlreadyProcessed
	}

	oldUsed := 0
	if request.Type.HasBalance() {
		balances, err := s.balances.GetByEmployee(ctx, request.EmployeeEmail)
		if err != nil {
			return timeoff.RequestResponse{}, fmt.Errorf("failed to load balances: %w", err)
		}
		if b, ok := balanceFor(balances, request.Type); ok {
			oldUsed = b.Used
		}
	}

	now := time.Now()
	status := timeoff.StatusApproved
	history := request.AppendHistory(timeoff.ActionApproved, byEmail, managerNotes, now)
	patch := timeoff.UpdateRequestPatch{
		ID:           request.ID,
		Status:       &status,
		ReviewedBy:   &byEmail,
		ReviewedAt:   &now,
		ManagerNotes: managerNotes,
		History:      &history,
	}

	if err := s.applyApproval(ctx, request, patch); err != nil {
		return timeoff.RequestResponse{}, err
	}

	request.Status = status
	request.ReviewedBy = &byEmail
	request.ReviewedAt = &now
	request.ManagerNotes = managerNotes
	request.History = history

	s.dispatcher.NotifyApproved(ctx, request, byEmail)
	if request.Type.HasBalance() {
		s.dispatcher.NotifyBalanceChange(ctx, request.EmployeeEmail, byEmail, request.Type, oldUsed, oldUsed+request.Days)
	}
	s.publishSnapshot(ctx, request.EmployeeEmail)

	return timeoff.ToRequestResponse(request), nil
}

// applyApproval writes the status flip and the balance deduction in one
// transaction; they commit or roll back together.
func (s *Service) applyApproval(ctx context.Context, request timeoff.Request, patch timeoff.UpdateRequestPatch) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, patch); err != nil {
			return fmt.Errorf("failed to approve time-off request: %w", err)
		}
		if request.Type.HasBalance() {
			if err := s.balances.IncrementUsed(txCtx, request.EmployeeEmail, request.Type, request.Days); err != nil {
				return fmt.Errorf("failed to deduct balance: %w", err)
			}
		}
		return nil
	})
}

func (s *Service) Reject(ctx context.Context, requestID, byEmail, reason string) (timeoff.RequestResponse, error) {
	if err := s.requireApprover(ctx, byEmail); err != nil {
		return timeoff.RequestResponse{}, err
	}

	if validator.IsEmpty(reason) {
		return timeoff.RequestResponse{}, validator.ValidationErrors{
			{Field: "reason", Message: "is required when rejecting"},
		}
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return timeoff.RequestResponse{}, err
	}

	if request.Status != timeoff.StatusPending {
		return timeoff.RequestResponse{}, timeoff.ErrAlreadyProcessed
	}

	now := time.Now()
	status := timeoff.StatusRejected
	history := request.AppendHistory(timeoff.ActionRejected, byEmail, &reason, now)
	if err := s.requests.Update(ctx, timeoff.UpdateRequestPatch{
		ID:           request.ID,
		Status:       &status,
		ReviewedBy:   &byEmail,
		ReviewedAt:   &now,
		ManagerNotes: &reason,
		History:      &history,
	}); err != nil {
		return timeoff.RequestResponse{}, fmt.Errorf("failed to reject time-off request: %w", err)
	}

	request.Status = status
	request.ReviewedBy = &byEmail
	request.ReviewedAt = &now
	request.ManagerNotes = &reason
	request.History = history

	s.dispatcher.NotifyRejected(ctx, request, byEmail, reason)
	s.publishSnapshot(ctx, request.EmployeeEmail)

	return timeoff.ToRequestResponse(request), nil
}

func (s *Service) Archive(ctx context.Context, requestID, byEmail string) error {
	return s.setArchived(ctx, requestID, byEmail, true)
}

func (s *Service) Unarchive(ctx context.Context, requestID, byEmail string) error {
	return s.setArchived(ctx, requestID, byEmail, false)
}

// setArchived toggles the archive flag. Only terminal requests may be
// archived, and the toggle writes no history entry.
func (s *Service) setArchived(ctx context.Context, requestID, byEmail string, archived bool) error {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if !request.Status.Terminal() {
		return timeoff.ErrArchivePending
	}

	if request.EmployeeEmail != byEmail {
		// Approvers may archive on the employee's behalf.
		if err := s.requireApprover(ctx, byEmail); err != nil {
			return timeoff.ErrNotRequestOwner
		}
	}

	if request.Archived == archived {
		return nil
	}

	if err := s.requests.Update(ctx, timeoff.UpdateRequestPatch{
		ID:       request.ID,
		Archived: &archived,
	}); err != nil {
		return fmt.Errorf("failed to update archive flag: %w", err)
	}

	s.publishSnapshot(ctx, request.EmployeeEmail)
	return nil
}

func (s *Service) Get(ctx context.Context, requestID string) (timeoff.RequestResponse, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return timeoff.RequestResponse{}, err
	}
	return timeoff.ToRequestResponse(request), nil
}

func (s *Service) MyRequests(ctx context.Context, email string, includeArchived bool) ([]timeoff.RequestResponse, error) {
	requests, err := s.requests.ListByEmployee(ctx, email, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	responses := make([]timeoff.RequestResponse, len(requests))
	for i, r := range requests {
		responses[i] = timeoff.ToRequestResponse(r)
	}
	return responses, nil
}

// Balances returns the stored counters with both derived fields filled in,
// so every consumer sees the same arithmetic.
func (s *Service) Balances(ctx context.Context, email string) (timeoff.BalanceSummary, error) {
	balances, err := s.balances.GetByEmployee(ctx, email)
	if err != nil {
		return timeoff.BalanceSummary{}, fmt.Errorf("failed to load balances: %w", err)
	}

	pending, err := s.requests.PendingDays(ctx, email)
	if err != nil {
		return timeoff.BalanceSummary{}, fmt.Errorf("failed to sum pending days: %w", err)
	}

	var summary timeoff.BalanceSummary
	for _, b := range balances {
		ts := timeoff.TypeSummary{
			Total:     b.Total,
			Used:      b.Used,
			Remaining: b.Remaining(),
			Pending:   pending[b.Type],
		}
		switch b.Type {
		case timeoff.TypeVacation:
			summary.Vacation = ts
		case timeoff.TypeSick:
			summary.Sick = ts
		}
	}
	return summary, nil
}

func (s *Service) Conflicts(ctx context.Context, start, end, excludeEmail string) ([]timeoff.Conflict, error) {
	startDate, ok := validator.IsValidDate(start)
	if !ok {
		return nil, validator.ValidationErrors{{Field: "start", Message: "must be a date in YYYY-MM-DD format"}}
	}
	endDate, ok := validator.IsValidDate(end)
	if !ok {
		return nil, validator.ValidationErrors{{Field: "end", Message: "must be a date in YYYY-MM-DD format"}}
	}

	conflicts, err := s.requests.FindConflicts(ctx, startDate, endDate, excludeEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to find conflicts: %w", err)
	}
	return conflicts, nil
}

func (s *Service) AdjustBalance(ctx context.Context, req timeoff.AdjustBalanceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.requireApprover(ctx, req.AdjustedBy); err != nil {
		return err
	}

	oldUsed := 0
	balances, err := s.balances.GetByEmployee(ctx, req.EmployeeEmail)
	if err != nil {
		return fmt.Errorf("failed to load balances: %w", err)
	}
	if b, ok := balanceFor(balances, timeoff.Type(req.Type)); ok {
		oldUsed = b.Used
	}

	if err := s.balances.Upsert(ctx, timeoff.Balance{
		EmployeeEmail: req.EmployeeEmail,
		Type:          timeoff.Type(req.Type),
		Total:         req.Total,
		Used:          req.Used,
	}); err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	s.dispatcher.NotifyBalanceChange(ctx, req.EmployeeEmail, req.AdjustedBy, timeoff.Type(req.Type), oldUsed, req.Used)
	return nil
}

// Subscribe delivers the full current request list on every change, starting
// with an initial snapshot. The cleanup func must run on teardown.
func (s *Service) Subscribe(ctx context.Context, email string) (<-chan timeoff.SnapshotEvent, func()) {
	ch, cleanup := s.hub.Subscribe(email)

	out := make(chan timeoff.SnapshotEvent, 10)

	go func() {
		defer close(out)

		if snapshot, err := s.MyRequests(ctx, email, true); err == nil {
			out <- timeoff.SnapshotEvent{Event: "requests", Requests: snapshot}
		}

		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if snapshot, ok := event.Data.(timeoff.SnapshotEvent); ok {
					out <- snapshot
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

func (s *Service) requireApprover(ctx context.Context, email string) error {
	emp, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		return timeoff.ErrApproverRequired
	}
	if !emp.IsApprover || !emp.Active {
		return timeoff.ErrApproverRequired
	}
	return nil
}

// publishSnapshot pushes the employee's full request list to their
// subscribers. Failure to load the snapshot is logged, never surfaced: the
// primary write already succeeded.
func (s *Service) publishSnapshot(ctx context.Context, email string) {
	snapshot, err := s.MyRequests(ctx, email, true)
	if err != nil {
		slog.Error("failed to load request snapshot for push", "email", email, "error", err)
		return
	}
	s.hub.Publish(email, sse.Event{
		Email: email,
		Event: "requests",
		Data:  timeoff.SnapshotEvent{Event: "requests", Requests: snapshot},
	})
}
