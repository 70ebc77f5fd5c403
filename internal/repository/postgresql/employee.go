package postgresql

import (
	"context"

	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.Repository {
	return &employeeRepositoryImpl{db: db}
}

func (r *employeeRepositoryImpl) GetByEmail(ctx context.Context, email string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT email, full_name, password_hash, is_approver, active, created_at, updated_at
		FROM employees
		WHERE email = $1
	`

	var emp employee.Employee
	err := q.QueryRow(ctx, query, email).Scan(
		&emp.Email,
		&emp.FullName,
		&emp.PasswordHash,
		&emp.IsApprover,
		&emp.Active,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, err
	}

	return emp, nil
}

func (r *employeeRepositoryImpl) ListApprovers(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT email, full_name, password_hash, is_approver, active, created_at, updated_at
		FROM employees
		WHERE is_approver = TRUE AND active = TRUE
		ORDER BY email
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvers []employee.Employee
	for rows.Next() {
		var emp employee.Employee
		err := rows.Scan(
			&emp.Email,
			&emp.FullName,
			&emp.PasswordHash,
			&emp.IsApprover,
			&emp.Active,
			&emp.CreatedAt,
			&emp.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		approvers = append(approvers, emp)
	}

	return approvers, rows.Err()
}

func (r *employeeRepositoryImpl) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employees (email, full_name, password_hash, is_approver, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		emp.Email, emp.FullName, emp.PasswordHash, emp.IsApprover, emp.Active,
	).Scan(&emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return employee.Employee{}, err
	}

	return emp, nil
}

func (r *employeeRepositoryImpl) Update(ctx context.Context, emp employee.Employee) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET full_name = $2, password_hash = $3, is_approver = $4, active = $5, updated_at = NOW()
		WHERE email = $1
	`

	tag, err := q.Exec(ctx, query, emp.Email, emp.FullName, emp.PasswordHash, emp.IsApprover, emp.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}
