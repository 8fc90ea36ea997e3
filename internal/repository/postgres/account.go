package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

const accountColumns = `id, username, plan_type, allowed_queries, queries_used, results_per_query, created_at`

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

func (r *AccountRepo) GetOrCreate(ctx context.Context, id int64, username string) (*domain.Account, error) {
	query := `
        INSERT INTO accounts (id, username, plan_type, allowed_queries, results_per_query)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE
            SET username = COALESCE(NULLIF(EXCLUDED.username, ''), accounts.username)
        RETURNING ` + accountColumns

	free := domain.ResolvePlan(domain.PlanFree, 0, 0)
	a, err := scanAccount(r.db.Pool.QueryRow(ctx, query,
		id,
		username,
		domain.PlanFree.String(),
		free.AllowedQueries,
		free.ResultsPerQuery,
	))
	if err != nil {
		return nil, fmt.Errorf("get or create account: %w", err)
	}
	return a, nil
}

// IncrementUsage - один атомарный UPDATE, без read-modify-write в приложении
func (r *AccountRepo) IncrementUsage(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
        UPDATE accounts SET queries_used = queries_used + 1
        WHERE id = $1
        RETURNING ` + accountColumns

	a, err := scanAccount(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	return a, nil
}

func (r *AccountRepo) IncrementUsageIfAvailable(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
        UPDATE accounts SET queries_used = queries_used + 1
        WHERE id = $1 AND queries_used < allowed_queries
        RETURNING ` + accountColumns

	a, err := scanAccount(r.db.Pool.QueryRow(ctx, query, id))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("increment usage if available: %w", err)
	}

	// ни одной строки: либо аккаунта нет, либо слоты кончились
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrQuotaExceeded
}

func (r *AccountRepo) UpdatePlan(ctx context.Context, id int64, plan domain.PlanType, quota domain.Quota) error {
	query := `
        UPDATE accounts
        SET plan_type = $2, allowed_queries = $3, results_per_query = $4, queries_used = 0
        WHERE id = $1
    `

	result, err := r.db.Pool.Exec(ctx, query, id, plan.String(), quota.AllowedQueries, quota.ResultsPerQuery)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var plan string
	err := row.Scan(
		&a.ID,
		&a.Username,
		&plan,
		&a.AllowedQueries,
		&a.QueriesUsed,
		&a.ResultsPerQuery,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Plan = domain.PlanType(plan)
	return &a, nil
}
