package audit

import (
	"context"
	"time"
)

const (
	ActionCreate = "create"
	ActionDelete = "delete"

	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Entry records one write forwarded to the upstream directory.
type Entry struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Action       string    `json:"action"`
	EmployeeID   string    `json:"employee_id,omitempty"`
	EmployeeName string    `json:"employee_name,omitempty"`
	Outcome      string    `json:"outcome"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists and lists audit entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Mode() string
	Close() error
}
