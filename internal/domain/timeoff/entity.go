package timeoff

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the kind of time off being requested. Remote days carry no balance
// and are never limited by one.
type Type string

const (
	TypeVacation Type = "vacation"
	TypeSick     Type = "sick"
	TypeRemote   Type = "remote"
)

// BalanceTypes lists the types that are tracked against a balance.
func BalanceTypes() []Type {
	return []Type{TypeVacation, TypeSick}
}

func (t Type) HasBalance() bool {
	return t == TypeVacation || t == TypeSick
}

func (t Type) Valid() bool {
	return t == TypeVacation || t == TypeSick || t == TypeRemote
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is past review. Only terminal requests
// may be archived.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// History actions, one per lifecycle transition. Archive toggles do not write
// history.
const (
	ActionSubmitted = "submitted"
	ActionApproved  = "approved"
	ActionRejected  = "rejected"
	ActionCancelled = "cancelled"
)

// HistoryEntry is one line of the append-only audit log on a request.
type HistoryEntry struct {
	Action    string    `json:"action"`
	By        string    `json:"by"`
	Timestamp time.Time `json:"timestamp"`
	Notes     *string   `json:"notes,omitempty"`
}

// History is stored as a JSONB column.
type History []HistoryEntry

// Value implements driver.Valuer for database storage
func (h History) Value() (driver.Value, error) {
	if h == nil {
		return json.Marshal(History{})
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner for database retrieval
func (h *History) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan History: invalid type")
	}

	return json.Unmarshal(bytes, h)
}

// Request entity
type Request struct {
	ID            string
	EmployeeEmail string
	EmployeeName  string

	Type      Type
	StartDate time.Time
	EndDate   time.Time

	// Days is the business-day count of the inclusive range, weekends
	// excluded.
	Days int

	Reason string
	Notes  *string

	IsTravel          bool
	Destination       *string
	TravelPurpose     *string
	EstimatedExpenses *decimal.Decimal

	Status   Status
	Archived bool

	ReviewedBy   *string
	ReviewedAt   *time.Time
	ManagerNotes *string

	History History

	SubmittedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppendHistory returns the request history with one more entry. The stored
// log is append-only; nothing ever rewrites earlier entries.
func (r Request) AppendHistory(action, by string, notes *string, at time.Time) History {
	out := make(History, len(r.History), len(r.History)+1)
	copy(out, r.History)
	return append(out, HistoryEntry{Action: action, By: by, Timestamp: at, Notes: notes})
}

// Balance entity, keyed by (employee, type). Only vacation and sick carry
// balances. used > total is representable: the business may push a balance
// negative through a manual override.
type Balance struct {
	EmployeeEmail string
	Type          Type
	Total         int
	Used          int
	UpdatedAt     time.Time
}

// Remaining is the derived allowance left for new approvals.
func (b Balance) Remaining() int {
	return b.Total - b.Used
}

// TypeSummary is the read contract for one balance type: the stored counters
// plus both derived fields, so every consumer computes them identically.
type TypeSummary struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	// Pending sums the days of the employee's own pending requests for the
	// type. Nothing is deducted from Used until approval.
	Pending int `json:"pending"`
}

// BalanceSummary is the per-employee balance view.
type BalanceSummary struct {
	Vacation TypeSummary `json:"vacation"`
	Sick     TypeSummary `json:"sick"`
}

// Conflict is another employee's request overlapping a date range. Purely
// informational; a conflict never blocks submission.
type Conflict struct {
	ID           string    `json:"id"`
	EmployeeName string    `json:"employee_name"`
	Type         Type      `json:"type"`
	Status       Status    `json:"status"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}
