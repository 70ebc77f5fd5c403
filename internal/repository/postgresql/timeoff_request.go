package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type requestRepositoryImpl struct {
	db *database.DB
}

func NewRequestRepository(db *database.DB) timeoff.RequestRepository {
	return &requestRepositoryImpl{db: db}
}

const requestColumns = `
	id, employee_email, employee_name, type, start_date, end_date, days,
	reason, notes, is_travel, destination, travel_purpose, estimated_expenses,
	status, archived, reviewed_by, reviewed_at, manager_notes, history,
	submitted_at, created_at, updated_at
`

func scanRequest(row pgx.Row) (timeoff.Request, error) {
	var r timeoff.Request
	err := row.Scan(
		&r.ID, &r.EmployeeEmail, &r.EmployeeName, &r.Type, &r.StartDate, &r.EndDate, &r.Days,
		&r.Reason, &r.Notes, &r.IsTravel, &r.Destination, &r.TravelPurpose, &r.EstimatedExpenses,
		&r.Status, &r.Archived, &r.ReviewedBy, &r.ReviewedAt, &r.ManagerNotes, &r.History,
		&r.SubmittedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (r *requestRepositoryImpl) Create(ctx context.Context, request timeoff.Request) (timeoff.Request, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO timeoff_requests (
			id, employee_email, employee_name, type,
			start_date, end_date, days,
			reason, notes, is_travel, destination, travel_purpose, estimated_expenses,
			status, archived, history,
			submitted_at, created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3,
			$4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15,
			NOW(), NOW(), NOW()
		) RETURNING id, submitted_at, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		request.EmployeeEmail, request.EmployeeName, request.Type,
		request.StartDate, request.EndDate, request.Days,
		request.Reason, request.Notes, request.IsTravel, request.Destination, request.TravelPurpose, request.EstimatedExpenses,
		request.Status, request.Archived, request.History,
	).Scan(&request.ID, &request.SubmittedAt, &request.CreatedAt, &request.UpdatedAt)

	if err != nil {
		return timeoff.Request{}, fmt.Errorf("failed to insert time-off request: %w", err)
	}

	return request, nil
}

func (r *requestRepositoryImpl) GetByID(ctx context.Context, id string) (timeoff.Request, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM timeoff_requests WHERE id = $1`

	request, err := scanRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return timeoff.Request{}, timeoff.ErrRequestNotFound
		}
		return timeoff.Request{}, err
	}

	return request, nil
}

func (r *requestRepositoryImpl) ListByEmployee(ctx context.Context, email string, includeArchived bool) ([]timeoff.Request, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM timeoff_requests WHERE employee_email = $1`
	if !includeArchived {
		query += ` AND archived = FALSE`
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := q.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []timeoff.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	return requests, rows.Err()
}

func (r *requestRepositoryImpl) Update(ctx context.Context, patch timeoff.UpdateRequestPatch) error {
	q := GetQuerier(ctx, r.db)

	updates := make([]string, 0)
	args := make([]interface{}, 0)
	argIdx := 1

	if patch.Status != nil {
		updates = append(updates, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *patch.Status)
		argIdx++
	}
	if patch.Archived != nil {
		updates = append(updates, fmt.Sprintf("archived = $%d", argIdx))
		args = append(args, *patch.Archived)
		argIdx++
	}
	if patch.ReviewedBy != nil {
		updates = append(updates, fmt.Sprintf("reviewed_by = $%d", argIdx))
		args = append(args, *patch.ReviewedBy)
		argIdx++
	}
	if patch.ReviewedAt != nil {
		updates = append(updates, fmt.Sprintf("reviewed_at = $%d", argIdx))
		args = append(args, *patch.ReviewedAt)
		argIdx++
	}
	if patch.ManagerNotes != nil {
		updates = append(updates, fmt.Sprintf("manager_notes = $%d", argIdx))
		args = append(args, *patch.ManagerNotes)
		argIdx++
	}
	if patch.History != nil {
		updates = append(updates, fmt.Sprintf("history = $%d", argIdx))
		args = append(args, *patch.History)
		argIdx++
	}

	if len(updates) == 0 {
		return fmt.Errorf("no updatable fields provided for time-off request update")
	}

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now())
	argIdx++

	args = append(args, patch.ID)

	sql := "UPDATE timeoff_requests SET " + strings.Join(updates, ", ") + fmt.Sprintf(" WHERE id = $%d RETURNING id", argIdx)

	var updatedID string
	if err := q.QueryRow(ctx, sql, args...).Scan(&updatedID); err != nil {
		if err == pgx.ErrNoRows {
			return timeoff.ErrRequestNotFound
		}
		return fmt.Errorf("failed to update time-off request with id %s: %w", patch.ID, err)
	}
	return nil
}

func (r *requestRepositoryImpl) FindConflicts(ctx context.Context, start, end time.Time, excludeEmail string) ([]timeoff.Conflict, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_name, type, status, start_date, end_date
		FROM timeoff_requests
		WHERE employee_email <> $1
		AND status IN ('pending', 'approved')
		AND start_date <= $3
		AND end_date >= $2
		ORDER BY start_date
	`

	rows, err := q.Query(ctx, query, excludeEmail, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []timeoff.Conflict
	for rows.Next() {
		var c timeoff.Conflict
		err := rows.Scan(&c.ID, &c.EmployeeName, &c.Type, &c.Status, &c.StartDate, &c.EndDate)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}

	return conflicts, rows.Err()
}

func (r *requestRepositoryImpl) PendingDays(ctx context.Context, email string) (map[timeoff.Type]int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT type, COALESCE(SUM(days), 0)
		FROM timeoff_requests
		WHERE employee_email = $1 AND status = 'pending' AND type IN ('vacation', 'sick')
		GROUP BY type
	`

	rows, err := q.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make(map[timeoff.Type]int)
	for rows.Next() {
		var t timeoff.Type
		var days int
		if err := rows.Scan(&t, &days); err != nil {
			return nil, err
		}
		pending[t] = days
	}

	return pending, rows.Err()
}
