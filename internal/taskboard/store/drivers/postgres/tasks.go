package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

type tasksRepo struct {
	db dbtx
}

const taskColumns = `id, account_id, title, description, status, created_at, updated_at`

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.AccountID, t.Title, t.Description, string(t.Status), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *tasksRepo) GetTask(ctx context.Context, accountID, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND account_id = $2`, id, accountID)
	return scanTask(row)
}

func (r *tasksRepo) ListTasks(ctx context.Context, accountID string, f domain.TaskFilter) ([]domain.Task, int, error) {
	var a args
	where := []string{"account_id = " + a.add(accountID)}

	if f.Status != "" {
		where = append(where, "status = "+a.add(string(f.Status)))
	}
	if f.Search != "" {
		p := a.add(likePattern(f.Search))
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, a...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := a.add(f.Limit), a.add(f.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+cond+` ORDER BY created_at DESC, id DESC LIMIT `+limit+` OFFSET `+offset,
		a...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.Task, 0, f.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *tasksRepo) UpdateTask(ctx context.Context, accountID, id string, p domain.TaskPatch, at time.Time) error {
	var a args
	sets := []string{"updated_at = " + a.add(at.UTC())}

	if p.Title != nil {
		sets = append(sets, "title = "+a.add(*p.Title))
	}
	if p.Description != nil {
		sets = append(sets, "description = "+a.add(*p.Description))
	}
	if p.Status != nil {
		sets = append(sets, "status = "+a.add(string(*p.Status)))
	}

	q := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + a.add(id) + ` AND account_id = ` + a.add(accountID)

	res, err := r.db.ExecContext(ctx, q, a...)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *tasksRepo) DeleteTask(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireOneRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	t.Status = domain.TaskStatus(status)
	return t, nil
}
