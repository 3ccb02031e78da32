package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// TaskRepository encapsulates task persistence. It is also the SLAStore
// for the TASK entity kind.
type TaskRepository interface {
	SLAStore
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.Task, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates the repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, request_id, assignee_operator_id, title, status, priority, category_id,
               sla_deadline, sla_status, sla_started_at, sla_paused_at, sla_total_paused_minutes,
               created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (request_id, assignee_operator_id, title, status, priority, category_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.RequestID,
		task.AssigneeID,
		task.Title,
		task.Status,
		task.Priority,
		task.CategoryID,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET assignee_operator_id=$1, title=$2, status=$3, priority=$4, category_id=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		task.AssigneeID,
		task.Title,
		task.Status,
		task.Priority,
		task.CategoryID,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	var task domain.Task
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.RequestID,
		&task.AssigneeID,
		&task.Title,
		&task.Status,
		&task.Priority,
		&task.CategoryID,
		&task.SLADeadline,
		&task.SLAStatus,
		&task.SLAStartedAt,
		&task.SLAPausedAt,
		&task.SLATotalPausedMinutes,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.RequestID,
			&task.AssigneeID,
			&task.Title,
			&task.Status,
			&task.Priority,
			&task.CategoryID,
			&task.SLADeadline,
			&task.SLAStatus,
			&task.SLAStartedAt,
			&task.SLAPausedAt,
			&task.SLATotalPausedMinutes,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

// GetSLA implements SLAStore for tasks.
func (r *taskRepository) GetSLA(ctx context.Context, id string) (*domain.SLASnapshot, error) {
	const query = `
        SELECT id, sla_deadline, sla_status, sla_started_at, sla_paused_at, sla_total_paused_minutes
        FROM tasks WHERE id=$1`
	snap := domain.SLASnapshot{Kind: domain.EntityKindTask}
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&snap.ID,
		&snap.SLADeadline,
		&snap.SLAStatus,
		&snap.SLAStartedAt,
		&snap.SLAPausedAt,
		&snap.SLATotalPausedMinutes,
	); err != nil {
		return nil, err
	}
	return &snap, nil
}

// InitializeSLA implements SLAStore for tasks.
func (r *taskRepository) InitializeSLA(ctx context.Context, id string, init SLAInit) error {
	const query = `
        UPDATE tasks
        SET sla_deadline=$1, sla_status=$2, sla_started_at=$3, sla_total_paused_minutes=0, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, init.Deadline, init.Status, init.StartedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BeginPause implements SLAStore for tasks.
func (r *taskRepository) BeginPause(ctx context.Context, id string, pausedAt time.Time) (bool, error) {
	const query = `
        UPDATE tasks
        SET sla_paused_at=$1, sla_status=$2, updated_at=NOW()
        WHERE id=$3 AND sla_paused_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, pausedAt, domain.SLAStatusPaused, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// FinishResume implements SLAStore for tasks.
func (r *taskRepository) FinishResume(ctx context.Context, id string, totalPausedMinutes int64, status domain.SLAStatus) (bool, error) {
	const query = `
        UPDATE tasks
        SET sla_paused_at=NULL, sla_total_paused_minutes=$1, sla_status=$2, updated_at=NOW()
        WHERE id=$3 AND sla_paused_at IS NOT NULL`
	cmd, err := r.pool.Exec(ctx, query, totalPausedMinutes, status, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// SetSLAStatus implements SLAStore for tasks.
func (r *taskRepository) SetSLAStatus(ctx context.Context, id string, status domain.SLAStatus, expect SLAExpect) (bool, error) {
	const query = `
        UPDATE tasks
        SET sla_status=$1, updated_at=NOW()
        WHERE id=$2
          AND sla_paused_at IS NOT DISTINCT FROM $3
          AND sla_total_paused_minutes = $4`
	cmd, err := r.pool.Exec(ctx, query, status, id, expect.PausedAt, expect.TotalPausedMinutes)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// ListDueForRefresh implements SLAStore for tasks.
func (r *taskRepository) ListDueForRefresh(ctx context.Context, limit int) ([]domain.SLASnapshot, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `
        SELECT id, sla_deadline, sla_status, sla_started_at, sla_paused_at, sla_total_paused_minutes
        FROM tasks
        WHERE sla_deadline IS NOT NULL AND status NOT IN ($1,$2)
        ORDER BY sla_deadline ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.TaskStatusDone, domain.TaskStatusCancelled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnapshots(rows, domain.EntityKindTask)
}
