package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// RequestFilter captures listing parameters.
type RequestFilter struct {
	RequesterID *string
	CategoryID  *string
	AssigneeID  *string
	Statuses    []domain.RequestStatus
	Priorities  []domain.Priority
	SLAStatuses []domain.SLAStatus
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// RequestRepository encapsulates request persistence. It is also the
// SLAStore for the REQUEST entity kind.
type RequestRepository interface {
	SLAStore
	Create(ctx context.Context, request *domain.Request) error
	Update(ctx context.Context, request *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Request, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, external_key, requester_user_id, category_id, assignee_operator_id,
               title, description, status, priority,
               sla_deadline, sla_status, sla_started_at, sla_paused_at, sla_total_paused_minutes,
               created_at, updated_at, completed_at`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (external_key, requester_user_id, category_id, assignee_operator_id, title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.ExternalKey,
		request.RequesterID,
		request.CategoryID,
		request.AssigneeID,
		request.Title,
		request.Description,
		request.Status,
		request.Priority,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.Request) error {
	const query = `
        UPDATE requests SET category_id=$1, assignee_operator_id=$2, title=$3, description=$4,
            status=$5, priority=$6, completed_at=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		request.CategoryID,
		request.AssigneeID,
		request.Title,
		request.Description,
		request.Status,
		request.Priority,
		request.CompletedAt,
		request.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE external_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Request, error) {
	var request domain.Request
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&request.ID,
		&request.ExternalKey,
		&request.RequesterID,
		&request.CategoryID,
		&request.AssigneeID,
		&request.Title,
		&request.Description,
		&request.Status,
		&request.Priority,
		&request.SLADeadline,
		&request.SLAStatus,
		&request.SLAStartedAt,
		&request.SLAPausedAt,
		&request.SLATotalPausedMinutes,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	base := `SELECT ` + requestColumns + ` FROM requests`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_user_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_operator_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.SLAStatuses) > 0 {
		placeholders := make([]string, len(filter.SLAStatuses))
		for i, st := range filter.SLAStatuses {
			args = append(args, st)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("sla_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		var request domain.Request
		if err := rows.Scan(
			&request.ID,
			&request.ExternalKey,
			&request.RequesterID,
			&request.CategoryID,
			&request.AssigneeID,
			&request.Title,
			&request.Description,
			&request.Status,
			&request.Priority,
			&request.SLADeadline,
			&request.SLAStatus,
			&request.SLAStartedAt,
			&request.SLAPausedAt,
			&request.SLATotalPausedMinutes,
			&request.CreatedAt,
			&request.UpdatedAt,
			&request.CompletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}

// GetSLA implements SLAStore for requests.
func (r *requestRepository) GetSLA(ctx context.Context, id string) (*domain.SLASnapshot, error) {
	const query = `
        SELECT id, sla_deadline, sla_status, sla_started_at, sla_paused_at, sla_total_paused_minutes
        FROM requests WHERE id=$1`
	snap := domain.SLASnapshot{Kind: domain.EntityKindRequest}
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

// InitializeSLA implements SLAStore for requests.
func (r *requestRepository) InitializeSLA(ctx context.Context, id string, init SLAInit) error {
	const query = `
        UPDATE requests
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

// BeginPause implements SLAStore for requests. The guard rejects the write
// when the request is already paused, so concurrent double-pause loses here.
func (r *requestRepository) BeginPause(ctx context.Context, id string, pausedAt time.Time) (bool, error) {
	const query = `
        UPDATE requests
        SET sla_paused_at=$1, sla_status=$2, updated_at=NOW()
        WHERE id=$3 AND sla_paused_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, pausedAt, domain.SLAStatusPaused, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// FinishResume implements SLAStore for requests. Pause marker, pause total
// and status update in one statement.
func (r *requestRepository) FinishResume(ctx context.Context, id string, totalPausedMinutes int64, status domain.SLAStatus) (bool, error) {
	const query = `
        UPDATE requests
        SET sla_paused_at=NULL, sla_total_paused_minutes=$1, sla_status=$2, updated_at=NOW()
        WHERE id=$3 AND sla_paused_at IS NOT NULL`
	cmd, err := r.pool.Exec(ctx, query, totalPausedMinutes, status, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// SetSLAStatus implements SLAStore for requests.
func (r *requestRepository) SetSLAStatus(ctx context.Context, id string, status domain.SLAStatus, expect SLAExpect) (bool, error) {
	const query = `
        UPDATE requests
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

// ListDueForRefresh implements SLAStore for requests.
func (r *requestRepository) ListDueForRefresh(ctx context.Context, limit int) ([]domain.SLASnapshot, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `
        SELECT id, sla_deadline, sla_status, sla_started_at, sla_paused_at, sla_total_paused_minutes
        FROM requests
        WHERE sla_deadline IS NOT NULL AND status NOT IN ($1,$2)
        ORDER BY sla_deadline ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.RequestStatusCompleted, domain.RequestStatusCancelled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnapshots(rows, domain.EntityKindRequest)
}

func scanSnapshots(rows pgx.Rows, kind domain.EntityKind) ([]domain.SLASnapshot, error) {
	var result []domain.SLASnapshot
	for rows.Next() {
		snap := domain.SLASnapshot{Kind: kind}
		if err := rows.Scan(
			&snap.ID,
			&snap.SLADeadline,
			&snap.SLAStatus,
			&snap.SLAStartedAt,
			&snap.SLAPausedAt,
			&snap.SLATotalPausedMinutes,
		); err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}
