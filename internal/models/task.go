package models

import "time"

const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	// PreviousStatus holds the status the task had immediately before
	// the most recent explicit status change. Empty until the first
	// such change happens; assignment changes never touch it.
	PreviousStatus string
	DueDate        time.Time
	// AssignedToID is a weak reference to an identity owned by the
	// identity service. Empty means unassigned. The referenced identity
	// may have been deleted since, so readers must not assume it resolves.
	AssignedToID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
