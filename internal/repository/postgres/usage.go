package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

type UsageRepo struct {
	db *DB
}

func NewUsageRepo(db *DB) *UsageRepo {
	return &UsageRepo{db: db}
}

func (r *UsageRepo) Append(ctx context.Context, record *domain.UsageRecord) error {
	query := `
        INSERT INTO scraped_queries (account_id, query, result_count)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		record.AccountID,
		record.Query,
		record.ResultCount,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

func (r *UsageRepo) ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.UsageRecord, error) {
	query := `
        SELECT id, account_id, query, result_count, created_at
        FROM scraped_queries
        WHERE account_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `

	// LIMIT NULL в postgres = без ограничения
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.db.Pool.Query(ctx, query, accountID, lim)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var rec domain.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Query, &rec.ResultCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage records: %w", err)
	}

	return records, nil
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
