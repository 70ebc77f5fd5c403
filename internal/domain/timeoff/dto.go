package timeoff

import (
	"time"

	"github.com/glowhouse/portal-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// CreateRequestRequest is the submission payload. EmployeeEmail and
// EmployeeName come from the access token, never from the client body.
type CreateRequestRequest struct {
	EmployeeEmail string `json:"-"`
	EmployeeName  string `json:"-"`

	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
	Notes     *string `json:"notes,omitempty"`

	IsTravel          bool             `json:"is_travel"`
	Destination       *string          `json:"destination,omitempty"`
	TravelPurpose     *string          `json:"travel_purpose,omitempty"`
	EstimatedExpenses *decimal.Decimal `json:"estimated_expenses,omitempty"`
}

// Validate checks payload shape only. Business rules (balances, duplicates,
// business days) belong to the validator, which runs against current state.
func (r CreateRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if !Type(r.Type).Valid() {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be vacation, sick or remote"})
	}
	if _, ok := validator.IsValidDate(r.StartDate); !ok {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	if _, ok := validator.IsValidDate(r.EndDate); !ok {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	if r.EstimatedExpenses != nil && r.EstimatedExpenses.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "estimated_expenses", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Candidate is a parsed, shape-valid prospective request ready for business
// validation.
type Candidate struct {
	EmployeeEmail string
	EmployeeName  string
	Type          Type
	StartDate     time.Time
	EndDate       time.Time
	Reason        string
	Notes         *string

	IsTravel          bool
	Destination       *string
	TravelPurpose     *string
	EstimatedExpenses *decimal.Decimal
}

// ToCandidate parses a shape-valid payload. Call Validate first.
func (r CreateRequestRequest) ToCandidate() Candidate {
	start, _ := time.Parse("2006-01-02", r.StartDate)
	end, _ := time.Parse("2006-01-02", r.EndDate)
	return Candidate{
		EmployeeEmail:     r.EmployeeEmail,
		EmployeeName:      r.EmployeeName,
		Type:              Type(r.Type),
		StartDate:         start,
		EndDate:           end,
		Reason:            r.Reason,
		Notes:             r.Notes,
		IsTravel:          r.IsTravel,
		Destination:       r.Destination,
		TravelPurpose:     r.TravelPurpose,
		EstimatedExpenses: r.EstimatedExpenses,
	}
}

// ValidationResult is what the validator hands back to the submission flow.
// Errors block the submission; warnings are surfaced but never block.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	RequestedDays int      `json:"requested_days"`
}

// ValidationFailedError carries a failed ValidationResult across the service
// boundary so handlers can render the full error/warning lists.
type ValidationFailedError struct {
	Result ValidationResult
}

func (e *ValidationFailedError) Error() string {
	if len(e.Result.Errors) == 0 {
		return "time-off request validation failed"
	}
	return "time-off request validation failed: " + e.Result.Errors[0]
}

// CancelRequestRequest payload for cancelling an own pending request.
type CancelRequestRequest struct {
	Reason string `json:"reason"`
}

// ReviewRequestRequest payload for approve/reject. Reason is required for
// rejections only.
type ReviewRequestRequest struct {
	Reason       string  `json:"reason"`
	ManagerNotes *string `json:"manager_notes,omitempty"`
}

// AdjustBalanceRequest is the approver-only manual override of a balance
// record. It may legitimately push remaining negative.
type AdjustBalanceRequest struct {
	EmployeeEmail string `json:"employee_email"`
	Type          string `json:"type"`
	Total         int    `json:"total"`
	Used          int    `json:"used"`
	AdjustedBy    string `json:"-"`
}

func (r AdjustBalanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidEmail(r.EmployeeEmail) {
		errs = append(errs, validator.ValidationError{Field: "employee_email", Message: "must be a valid email"})
	}
	if !Type(r.Type).HasBalance() {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be vacation or sick"})
	}
	if r.Total < 0 {
		errs = append(errs, validator.ValidationError{Field: "total", Message: "must not be negative"})
	}
	if r.Used < 0 {
		errs = append(errs, validator.ValidationError{Field: "used", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RequestResponse is the wire shape of a request.
type RequestResponse struct {
	ID            string `json:"id"`
	EmployeeEmail string `json:"employee_email"`
	EmployeeName  string `json:"employee_name"`

	Type      Type   `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`

	Reason string  `json:"reason"`
	Notes  *string `json:"notes,omitempty"`

	IsTravel          bool             `json:"is_travel"`
	Destination       *string          `json:"destination,omitempty"`
	TravelPurpose     *string          `json:"travel_purpose,omitempty"`
	EstimatedExpenses *decimal.Decimal `json:"estimated_expenses,omitempty"`

	Status   Status `json:"status"`
	Archived bool   `json:"archived"`

	ReviewedBy   *string    `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ManagerNotes *string    `json:"manager_notes,omitempty"`

	History History `json:"history"`

	SubmittedAt time.Time `json:"submitted_at"`

	// Warnings from validation, populated on submission responses only.
	Warnings []string `json:"warnings,omitempty"`
}

func ToRequestResponse(r Request) RequestResponse {
	return RequestResponse{
		ID:                r.ID,
		EmployeeEmail:     r.EmployeeEmail,
		EmployeeName:      r.EmployeeName,
		Type:              r.Type,
		StartDate:         r.StartDate.Format("2006-01-02"),
		EndDate:           r.EndDate.Format("2006-01-02"),
		Days:              r.Days,
		Reason:            r.Reason,
		Notes:             r.Notes,
		IsTravel:          r.IsTravel,
		Destination:       r.Destination,
		TravelPurpose:     r.TravelPurpose,
		EstimatedExpenses: r.EstimatedExpenses,
		Status:            r.Status,
		Archived:          r.Archived,
		ReviewedBy:        r.ReviewedBy,
		ReviewedAt:        r.ReviewedAt,
		ManagerNotes:      r.ManagerNotes,
		History:           r.History,
		SubmittedAt:       r.SubmittedAt,
	}
}

// SnapshotEvent is one push of the subscription feed: the full current list
// of the employee's requests, re-sent on every change.
type SnapshotEvent struct {
	Event    string            `json:"event"`
	Requests []RequestResponse `json:"requests"`
}
