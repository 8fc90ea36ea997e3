package repository

import (
	"context"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

// AccountRepository - хранилище аккаунтов и счетчиков использования.
// Инкременты обязаны быть атомарными на стороне хранилища:
// процессов несколько, общей памяти у них нет.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetOrCreate(ctx context.Context, id int64, username string) (*domain.Account, error)
	// IncrementUsage - queries_used + 1, возвращает обновленный аккаунт
	IncrementUsage(ctx context.Context, id int64) (*domain.Account, error)
	// IncrementUsageIfAvailable - то же самое, но только пока queries_used < allowed_queries.
	// Если слотов нет - domain.ErrQuotaExceeded.
	IncrementUsageIfAvailable(ctx context.Context, id int64) (*domain.Account, error)
	// UpdatePlan меняет тариф и обнуляет queries_used
	UpdatePlan(ctx context.Context, id int64, plan domain.PlanType, quota domain.Quota) error
}

type UsageRepository interface {
	Append(ctx context.Context, record *domain.UsageRecord) error
	// ListByAccount - свежие сверху
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.UsageRecord, error)
}
