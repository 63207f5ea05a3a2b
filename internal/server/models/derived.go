package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/timex"
)

// DueDateLayout renders due dates as "Mar 09, 2025".
const DueDateLayout = "Jan 02, 2006"

// FormatDueDate returns the human-readable due date, or nil without one.
func FormatDueDate(d *timex.Date) *string {
	if d == nil {
		return nil
	}
	s := d.Format(DueDateLayout)
	return &s
}

// IsOverdue reports whether a task with due date d and status s is overdue
// at now. Completed tasks and tasks without a due date never are. The
// comparison is by calendar day in now's location, so a task due today is
// not overdue.
func IsOverdue(d *timex.Date, s Status, now time.Time) bool {
	if d == nil || s == StatusCompleted {
		return false
	}
	return d.Before(timex.DateOf(now))
}

// AttachmentDisplayName is the last segment of the storage key, or nil when
// there is no attachment.
func AttachmentDisplayName(path string) *string {
	if path == "" {
		return nil
	}
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	return &name
}

// TaskView is a task together with its derived facts, as handed to the
// presentation layer.
type TaskView struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	DueDate          *timex.Date `json:"due_date"`
	Status           Status      `json:"status"`
	Priority         Priority    `json:"priority"`
	AttachmentPath   string      `json:"attachment_path,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	FormattedDueDate *string     `json:"formatted_due_date"`
	IsOverdue        bool        `json:"is_overdue"`
	AttachmentName   *string     `json:"attachment_name"`
}

// NewTaskView computes the derived facts of t at now.
func NewTaskView(t *Task, now time.Time) TaskView {
	return TaskView{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		DueDate:          t.DueDate,
		Status:           t.Status,
		Priority:         t.Priority,
		AttachmentPath:   t.AttachmentPath,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		FormattedDueDate: FormatDueDate(t.DueDate),
		IsOverdue:        IsOverdue(t.DueDate, t.Status, now),
		AttachmentName:   AttachmentDisplayName(t.AttachmentPath),
	}
}
