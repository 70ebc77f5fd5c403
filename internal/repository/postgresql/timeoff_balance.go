package postgresql

import (
	"context"
	"fmt"

	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/database"
)

type balanceRepositoryImpl struct {
	db *database.DB
}

func NewBalanceRepository(db *database.DB) timeoff.BalanceRepository {
	return &balanceRepositoryImpl{db: db}
}

func (r *balanceRepositoryImpl) GetByEmployee(ctx context.Context, email string) ([]timeoff.Balance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_email, type, total, used, updated_at
		FROM timeoff_balances
		WHERE employee_email = $1
		ORDER BY type
	`

	rows, err := q.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []timeoff.Balance
	for rows.Next() {
		var b timeoff.Balance
		if err := rows.Scan(&b.EmployeeEmail, &b.Type, &b.Total, &b.Used, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}

func (r *balanceRepositoryImpl) Upsert(ctx context.Context, balance timeoff.Balance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO timeoff_balances (employee_email, type, total, used, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (employee_email, type)
		DO UPDATE SET total = EXCLUDED.total, used = EXCLUDED.used, updated_at = NOW()
	`

	_, err := q.Exec(ctx, query, balance.EmployeeEmail, balance.Type, balance.Total, balance.Used)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

func (r *balanceRepositoryImpl) IncrementUsed(ctx context.Context, email string, t timeoff.Type, days int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE timeoff_balances
		SET used = used + $3, updated_at = NOW()
		WHERE employee_email = $1 AND type = $2
	`

	tag, err := q.Exec(ctx, query, email, t, days)
	if err != nil {
		return fmt.Errorf("failed to increment used balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timeoff.ErrBalanceNotFound
	}
	return nil
}
