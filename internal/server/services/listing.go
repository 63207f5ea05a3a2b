package services

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
)

// Filter selects a subset of tasks.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterOngoing   Filter = "ongoing"
	FilterCompleted Filter = "completed"
	FilterOverdue   Filter = "overdue"
	FilterHigh      Filter = "high"
)

// Sort orders a task list.
type Sort string

const (
	SortCreatedAt Sort = "created_at"
	SortDueDate   Sort = "due_date"
	SortPriority  Sort = "priority"
)

// ListQuery is a validated filter and sort pair.
type ListQuery struct {
	Filter Filter
	Sort   Sort
}

// ParseListQuery maps raw query values onto a ListQuery. Empty values select
// the defaults: all tasks, newest first.
func ParseListQuery(filter, sort string) (ListQuery, error) {
	q := ListQuery{Filter: FilterAll, Sort: SortCreatedAt}
	errs := common.NewValidationError()

	switch f := Filter(filter); f {
	case "":
	case FilterAll, FilterOngoing, FilterCompleted, FilterOverdue, FilterHigh:
		q.Filter = f
	default:
		errs.Add("filter", "The selected filter is invalid.")
	}

	switch s := Sort(sort); s {
	case "":
	case SortCreatedAt, SortDueDate, SortPriority:
		q.Sort = s
	default:
		errs.Add("sort", "The selected sort is invalid.")
	}

	if err := errs.OrNil(); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

// Stats summarizes the full task set.
type Stats struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Ongoing      int `json:"ongoing"`
	Overdue      int `json:"overdue"`
	HighPriority int `json:"high_priority"`
}

// List loads every task newest first, then filters and sorts in memory.
func (s *TaskService) List(ctx context.Context, q ListQuery) ([]*models.Task, error) {
	all, err := s.repomanager.Tasks(s.db).ListLatest(ctx)
	if err != nil {
		return nil, persistenceErr(err)
	}
	filtered, err := FilterTasks(all, q.Filter, s.now())
	if err != nil {
		return nil, err
	}
	if err := SortTasks(filtered, q.Sort); err != nil {
		return nil, err
	}
	return filtered, nil
}

// Stats counts tasks by status, overdue state and high priority.
func (s *TaskService) Stats(ctx context.Context) (*Stats, error) {
	all, err := s.repomanager.Tasks(s.db).ListLatest(ctx)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return ComputeStats(all, s.now()), nil
}

// FilterTasks returns the tasks matching f, keeping their order.
func FilterTasks(tasks []*models.Task, f Filter, now time.Time) ([]*models.Task, error) {
	var keep func(*models.Task) bool
	switch f {
	case FilterAll, "":
		keep = func(*models.Task) bool { return true }
	case FilterOngoing:
		keep = func(t *models.Task) bool { return t.Status == models.StatusOngoing }
	case FilterCompleted:
		keep = func(t *models.Task) bool { return t.Status == models.StatusCompleted }
	case FilterOverdue:
		keep = func(t *models.Task) bool { return models.IsOverdue(t.DueDate, t.Status, now) }
	case FilterHigh:
		keep = func(t *models.Task) bool { return t.Priority == models.PriorityHigh }
	default:
		errs := common.NewValidationError()
		errs.Add("filter", "The selected filter is invalid.")
		return nil, errs
	}

	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// SortTasks orders tasks in place. The sort is stable, so tasks that compare
// equal keep the newest-first order they were loaded in.
func SortTasks(tasks []*models.Task, by Sort) error {
	switch by {
	case SortCreatedAt, "":
		slices.SortStableFunc(tasks, func(a, b *models.Task) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortDueDate:
		slices.SortStableFunc(tasks, func(a, b *models.Task) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			default:
				return a.DueDate.Compare(*b.DueDate)
			}
		})
	case SortPriority:
		slices.SortStableFunc(tasks, func(a, b *models.Task) int {
			return b.Priority.Rank() - a.Priority.Rank()
		})
	default:
		errs := common.NewValidationError()
		errs.Add("sort", "The selected sort is invalid.")
		return errs
	}
	return nil
}

// ComputeStats counts over tasks at now.
func ComputeStats(tasks []*models.Task, now time.Time) *Stats {
	st := &Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusCompleted:
			st.Completed++
		case models.StatusOngoing:
			st.Ongoing++
		}
		if models.IsOverdue(t.DueDate, t.Status, now) {
			st.Overdue++
		}
		if t.Priority == models.PriorityHigh {
			st.HighPriority++
		}
	}
	return st
}
