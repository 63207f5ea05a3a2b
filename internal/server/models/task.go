// Package models defines server-side data models persisted in the database
// and the pure functions that derive display facts from them.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/timex"
)

// Status is the closed set of task states.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Statuses lists every valid Status in display order.
var Statuses = []Status{StatusOngoing, StatusCompleted}

// ParseStatus accepts only the enumerated values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOngoing, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Toggled returns the opposite state.
func (s Status) Toggled() Status {
	if s == StatusCompleted {
		return StatusOngoing
	}
	return StatusCompleted
}

// Priority is the closed set of task priorities.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid Priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority accepts only the enumerated values.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Rank orders priorities: low=1, medium=2, high=3, unknown=0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Task is the persisted task record.
type Task struct {
	// ID is assigned by the database on insert and never changes.
	ID          string
	Title       string
	Description string
	// DueDate is nil when the task has no due date.
	DueDate  *timex.Date
	Status   Status
	Priority Priority
	// AttachmentPath is the blob store key of the single attachment, or ""
	// when there is none.
	AttachmentPath string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasAttachment reports whether the task references a stored file.
func (t *Task) HasAttachment() bool {
	return t.AttachmentPath != ""
}
