package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/repository"
)

// QuotaGate проверяет лимит до поиска и списывает запрос после.
// Между проверкой и списанием есть окно: два параллельных поиска могут
// пройти проверку на последнем слоте. В strict режиме второй получит ErrQuotaExceeded.
type QuotaGate struct {
	accounts repository.AccountRepository
	usage    repository.UsageRepository
	strict   bool
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewQuotaGate(accounts repository.AccountRepository, usage repository.UsageRepository, strict bool, logger *zap.Logger, m *metrics.Metrics) *QuotaGate {
	return &QuotaGate{
		accounts: accounts,
		usage:    usage,
		strict:   strict,
		logger:   logger,
		metrics:  m,
	}
}

func (g *QuotaGate) CheckAndReserve(account *domain.Account) error {
	if !account.HasQuota() {
		if g.metrics != nil {
			g.metrics.RecordQuotaDenied()
		}
		return domain.ErrQuotaExceeded
	}
	return nil
}

// Commit списывает ровно один запрос и пишет строку аудита.
// Ошибка аудита только логируется, ошибка списания фатальна.
func (g *QuotaGate) Commit(ctx context.Context, accountID int64, resultCount int, queryText string) (*domain.Account, error) {
	// учет доводим до конца, даже если вызывающий уже отвалился
	ctx = context.WithoutCancel(ctx)

	updated, err := g.increment(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			if g.metrics != nil {
				g.metrics.RecordQuotaDenied()
			}
			return nil, err
		}
		if g.metrics != nil {
			g.metrics.RecordCommitFailure("increment")
		}
		g.logger.Error("failed to increment usage",
			zap.Error(err),
			zap.Int64("account_id", accountID),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrUsageNotRecorded, err)
	}

	record := &domain.UsageRecord{
		AccountID:   accountID,
		Query:       queryText,
		ResultCount: resultCount,
	}
	if err := g.usage.Append(ctx, record); err != nil {
		if g.metrics != nil {
			g.metrics.RecordCommitFailure("audit")
		}
		g.logger.Warn("failed to append usage record",
			zap.Error(err),
			zap.Int64("account_id", accountID),
			zap.String("query", queryText),
		)
	}

	return updated, nil
}

func (g *QuotaGate) increment(ctx context.Context, accountID int64) (*domain.Account, error) {
	if g.strict {
		return g.accounts.IncrementUsageIfAvailable(ctx, accountID)
	}
	return g.accounts.IncrementUsage(ctx, accountID)
}
