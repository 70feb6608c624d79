package domain

import (
	"math"
	"time"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Next is the toggle order TODO -> IN_PROGRESS -> DONE -> TODO.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskTodo:
		return TaskInProgress
	case TaskInProgress:
		return TaskDone
	default:
		return TaskTodo
	}
}

type Task struct {
	ID          string
	AccountID   string
	Title       string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter narrows ListTasks. Page is 1-based.
type TaskFilter struct {
	Status TaskStatus // empty means any
	Search string     // case-insensitive match on title or description
	Limit  int
	Page   int
}

// Offset is the number of rows skipped for the current page. It
// saturates at math.MaxInt instead of wrapping.
func (f TaskFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// TaskPatch holds the fields of a partial update; nil fields are kept.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}
