package timeoff

import "errors"

var (
	ErrRequestNotFound  = errors.New("time-off request not found")
	ErrAlreadyProcessed = errors.New("time-off request already processed")
	ErrNotRequestOwner  = errors.New("only the requesting employee may perform this action")
	ErrApproverRequired = errors.New("approver privilege required")
	ErrArchivePending   = errors.New("pending requests cannot be archived")
	ErrBalanceNotFound  = errors.New("balance record not found")
)
