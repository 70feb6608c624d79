package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
)

// Paging bounds for List.
const (
	DefaultTaskLimit = 10
	MaxTaskLimit     = 100
)

type CreateTaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus // empty means TODO
}

// UpdateTaskInput is a partial update; nil fields are left alone.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
}

// TaskService implements per-account task CRUD. Every operation is
// scoped to accountID; a task owned by someone else is reported exactly
// like a missing one.
type TaskService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *TaskService) Create(ctx context.Context, accountID string, in CreateTaskInput) (domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Task{}, Validation("Validation failed", map[string]string{"title": "Title is required"})
	}

	status := in.Status
	if status == "" {
		status = domain.TaskTodo
	}
	if !status.Valid() {
		return domain.Task{}, Validation("Validation failed", map[string]string{"status": "must be one of TODO IN_PROGRESS DONE"})
	}

	now := s.now()
	t := domain.Task{
		ID:          idx.NewAt(now).String(),
		AccountID:   accountID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Tasks().CreateTask(ctx, t); err != nil {
		return domain.Task{}, Internal(err)
	}
	return t, nil
}

// NormalizeTaskFilter applies the default and maximum page size and the
// first page default.
func NormalizeTaskFilter(f domain.TaskFilter) domain.TaskFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultTaskLimit
	case f.Limit > MaxTaskLimit:
		f.Limit = MaxTaskLimit
	}
	if f.Page < 1 {
		f.Page = 1
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// List returns one page of tasks, newest first, with the total number of
// matches. The filter is returned normalised so callers can echo it.
func (s *TaskService) List(ctx context.Context, accountID string, f domain.TaskFilter) ([]domain.Task, int, domain.TaskFilter, error) {
	f = NormalizeTaskFilter(f)
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, f, Validation("Validation failed", map[string]string{"status": "must be one of TODO IN_PROGRESS DONE"})
	}
	// The row offset must fit an int.
	if f.Page > math.MaxInt/f.Limit {
		return nil, 0, f, Validation("Validation failed", map[string]string{"page": "is too large"})
	}

	items, total, err := s.Store.Tasks().ListTasks(ctx, accountID, f)
	if err != nil {
		return nil, 0, f, Internal(err)
	}
	return items, total, f, nil
}

func (s *TaskService) Get(ctx context.Context, accountID, id string) (domain.Task, error) {
	t, err := s.Store.Tasks().GetTask(ctx, accountID, id)
	if err != nil {
		return domain.Task{}, taskError(err)
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, accountID, id string, in UpdateTaskInput) error {
	details := map[string]string{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			details["title"] = "Title must not be empty"
		}
		in.Title = &title
	}
	if in.Status != nil && !in.Status.Valid() {
		details["status"] = "must be one of TODO IN_PROGRESS DONE"
	}
	if len(details) > 0 {
		return Validation("Validation failed", details)
	}

	patch := domain.TaskPatch{Title: in.Title, Description: in.Description, Status: in.Status}
	if patch.Empty() {
		// Still answer 404 for tasks the caller cannot see.
		_, err := s.Get(ctx, accountID, id)
		return err
	}

	if err := s.Store.Tasks().UpdateTask(ctx, accountID, id, patch, s.now()); err != nil {
		return taskError(err)
	}
	return nil
}

func (s *TaskService) Delete(ctx context.Context, accountID, id string) error {
	if err := s.Store.Tasks().DeleteTask(ctx, accountID, id); err != nil {
		return taskError(err)
	}
	return nil
}

// Toggle advances the task along TODO -> IN_PROGRESS -> DONE -> TODO and
// returns the new status.
func (s *TaskService) Toggle(ctx context.Context, accountID, id string) (domain.TaskStatus, error) {
	var next domain.TaskStatus

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.Tasks().GetTask(ctx, accountID, id)
		if err != nil {
			return err
		}
		next = t.Status.Next()
		return tx.Tasks().UpdateTask(ctx, accountID, id, domain.TaskPatch{Status: &next}, s.now())
	})
	if err != nil {
		return "", taskError(err)
	}
	return next, nil
}

func taskError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(msgTaskNotFound)
	}
	return Internal(err)
}

func (s *TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
