package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/domain/notification"
	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
)

// Dispatcher fans time-off lifecycle events out as notification records. No
// method returns an error: delivery failure is logged and must never block
// the state transition that triggered it.
type Dispatcher struct {
	notifications notification.Service
	employees     employee.Repository
}

func NewDispatcher(notifications notification.Service, employees employee.Repository) timeoff.Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		employees:     employees,
	}
}

// NotifyNewRequest informs every approver of a freshly submitted request.
func (d *Dispatcher) NotifyNewRequest(ctx context.Context, request timeoff.Request) {
	approvers, err := d.employees.ListApprovers(ctx)
	if err != nil {
		slog.Error("failed to load approvers for new-request notification", "request_id", request.ID, "error", err)
		return
	}

	sender := request.EmployeeEmail
	var reqs []notification.CreateNotificationRequest
	for _, approver := range approvers {
		if approver.Email == request.EmployeeEmail {
			continue
		}
		reqs = append(reqs, notification.CreateNotificationRequest{
			RecipientEmail: approver.Email,
			SenderEmail:    &sender,
			Type:           notification.TypeRequestSubmitted,
			Title:          "New time-off request",
			Message: fmt.Sprintf("%s requested %d business day(s) of %s (%s to %s)",
				request.EmployeeName, request.Days, request.Type,
				request.StartDate.Format("2006-01-02"), request.EndDate.Format("2006-01-02")),
			Data: requestData(request),
		})
	}

	d.queue(ctx, reqs)
}

// NotifyApproved informs the requesting employee.
func (d *Dispatcher) NotifyApproved(ctx context.Context, request timeoff.Request, approvedBy string) {
	d.queue(ctx, []notification.CreateNotificationRequest{{
		RecipientEmail: request.EmployeeEmail,
		SenderEmail:    &approvedBy,
		Type:           notification.TypeRequestApproved,
		Title:          "Time-off request approved",
		Message: fmt.Sprintf("Your %s request for %s to %s was approved by %s",
			request.Type, request.StartDate.Format("2006-01-02"),
			request.EndDate.Format("2006-01-02"), approvedBy),
		Data: requestData(request),
	}})
}

// NotifyRejected informs the requesting employee, including the reason.
func (d *Dispatcher) NotifyRejected(ctx context.Context, request timeoff.Request, rejectedBy, reason string) {
	data := requestData(request)
	data["reason"] = reason

	d.queue(ctx, []notification.CreateNotificationRequest{{
		RecipientEmail: request.EmployeeEmail,
		SenderEmail:    &rejectedBy,
		Type:           notification.TypeRequestRejected,
		Title:          "Time-off request rejected",
		Message: fmt.Sprintf("Your %s request for %s to %s was rejected by %s: %s",
			request.Type, request.StartDate.Format("2006-01-02"),
			request.EndDate.Format("2006-01-02"), rejectedBy, reason),
		Data: data,
	}})
}

// NotifyCancelled informs the approvers that a pending request was withdrawn.
func (d *Dispatcher) NotifyCancelled(ctx context.Context, request timeoff.Request, cancelledBy, reason string) {
	approvers, err := d.employees.ListApprovers(ctx)
	if err != nil {
		slog.Error("failed to load approvers for cancellation notification", "request_id", request.ID, "error", err)
		return
	}

	message := fmt.Sprintf("%s cancelled their %s request for %s to %s",
		request.EmployeeName, request.Type,
		request.StartDate.Format("2006-01-02"), request.EndDate.Format("2006-01-02"))
	if reason != "" {
		message += ": " + reason
	}

	var reqs []notification.CreateNotificationRequest
	for _, approver := range approvers {
		if approver.Email == cancelledBy {
			continue
		}
		reqs = append(reqs, notification.CreateNotificationRequest{
			RecipientEmail: approver.Email,
			SenderEmail:    &cancelledBy,
			Type:           notification.TypeRequestCancelled,
			Title:          "Time-off request cancelled",
			Message:        message,
			Data:           requestData(request),
		})
	}

	d.queue(ctx, reqs)
}

// NotifyBalanceChange informs the employee whose balance moved.
func (d *Dispatcher) NotifyBalanceChange(ctx context.Context, email, changedBy string, t timeoff.Type, oldValue, newValue int) {
	d.queue(ctx, []notification.CreateNotificationRequest{{
		RecipientEmail: email,
		SenderEmail:    &changedBy,
		Type:           notification.TypeBalanceChanged,
		Title:          "Time-off balance updated",
		Message:        fmt.Sprintf("Your %s balance used count changed from %d to %d", t, oldValue, newValue),
		Data: map[string]interface{}{
			"type":      string(t),
			"old_value": oldValue,
			"new_value": newValue,
		},
	}})
}

func (d *Dispatcher) queue(ctx context.Context, reqs []notification.CreateNotificationRequest) {
	if len(reqs) == 0 {
		return
	}
	if err := d.notifications.QueueBulkNotification(ctx, reqs); err != nil {
		slog.Error("failed to queue notifications", "count", len(reqs), "error", err)
	}
}

func requestData(request timeoff.Request) map[string]interface{} {
	return map[string]interface{}{
		"request_id": request.ID,
		"type":       string(request.Type),
		"start_date": request.StartDate.Format("2006-01-02"),
		"end_date":   request.EndDate.Format("2006-01-02"),
		"days":       request.Days,
	}
}
