package timeoff

import (
	"fmt"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// noticeDays is the advisory notice period. Submitting with less notice
// produces a warning, never an error.
const noticeDays = 14

// Validator checks a prospective request against the employee's balances and
// existing requests. It performs no I/O; the caller supplies current state.
type Validator struct {
	// ExpenseWarnThreshold flags unusually high travel expense estimates.
	// Nil disables the warning; there is no product-approved default.
	ExpenseWarnThreshold *decimal.Decimal

	// Now is overridable for tests. Defaults to time.Now.
	Now func() time.Time
}

func NewValidator(expenseWarnThreshold *decimal.Decimal) *Validator {
	return &Validator{
		ExpenseWarnThreshold: expenseWarnThreshold,
		Now:                  time.Now,
	}
}

// BusinessDays counts Monday–Friday days in the inclusive range [start, end].
// Holiday calendars are not modeled.
func BusinessDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days++
	}
	return days
}

// Validate applies every submission rule. Errors block the submission;
// warnings are returned for display and never block.
func (v *Validator) Validate(c timeoff.Candidate, balances []timeoff.Balance, existing []timeoff.Request) timeoff.ValidationResult {
	result := timeoff.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}

	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		result.Errors = append(result.Errors, "start and end dates are required")
		return result
	}

	if c.EndDate.Before(c.StartDate) {
		result.Errors = append(result.Errors, "end date must not be before start date")
		return result
	}

	result.RequestedDays = BusinessDays(c.StartDate, c.EndDate)
	if result.RequestedDays == 0 {
		result.Errors = append(result.Errors, "no business days in selected range")
	}

	if validator.IsEmpty(c.Reason) {
		result.Errors = append(result.Errors, "reason is required")
	}

	if c.Type.HasBalance() && result.RequestedDays > 0 {
		balance, found := balanceFor(balances, c.Type)
		if !found {
			result.Errors = append(result.Errors, fmt.Sprintf("no %s balance on record", c.Type))
		} else if result.RequestedDays > balance.Remaining() {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"insufficient %s balance: requested %d days, %d remaining",
				c.Type, result.RequestedDays, balance.Remaining()))
		}
	}

	for _, req := range existing {
		if req.Status == timeoff.StatusCancelled || req.Status == timeoff.StatusRejected {
			continue
		}
		if req.Type != c.Type {
			continue
		}
		if rangesOverlap(c.StartDate, c.EndDate, req.StartDate, req.EndDate) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"duplicate request: overlaps your existing %s request from %s to %s",
				req.Type, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")))
			break
		}
	}

	if c.StartDate.Sub(now) < noticeDays*24*time.Hour {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"request submitted with less than %d days notice", noticeDays))
	}

	if c.IsTravel {
		if c.Destination == nil || validator.IsEmpty(*c.Destination) {
			result.Warnings = append(result.Warnings, "travel destination not provided")
		}
		if c.TravelPurpose == nil || validator.IsEmpty(*c.TravelPurpose) {
			result.Warnings = append(result.Warnings, "travel purpose not provided")
		}
		if c.EstimatedExpenses != nil && v.ExpenseWarnThreshold != nil &&
			c.EstimatedExpenses.GreaterThan(*v.ExpenseWarnThreshold) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"estimated expenses %s exceed the review threshold of %s",
				c.EstimatedExpenses.StringFixed(2), v.ExpenseWarnThreshold.StringFixed(2)))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func balanceFor(balances []timeoff.Balance, t timeoff.Type) (timeoff.Balance, bool) {
	for _, b := range balances {
		if b.Type == t {
			return b, true
		}
	}
	return timeoff.Balance{}, false
}

// rangesOverlap reports whether two inclusive date ranges intersect.
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}
