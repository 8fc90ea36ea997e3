package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/repository"
)

const defaultHistoryLimit = 50

type AccountService interface {
	Register(ctx context.Context, id int64, username string) (*domain.Account, error)
	GetPlan(ctx context.Context, id int64) (*domain.PlanInfo, error)
	ChangePlan(ctx context.Context, id int64, planID string, requestedQueries, requestedResults int) (*domain.PlanInfo, error)
	History(ctx context.Context, id int64, limit int) ([]domain.UsageRecord, error)
}

type accountService struct {
	accounts     repository.AccountRepository
	usage        repository.UsageRepository
	historyLimit int
	logger       *zap.Logger
}

func NewAccountService(accounts repository.AccountRepository, usage repository.UsageRepository, historyLimit int, logger *zap.Logger) AccountService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &accountService{
		accounts:     accounts,
		usage:        usage,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Register заводит аккаунт на бесплатном тарифе, существующий возвращает как есть
func (s *accountService) Register(ctx context.Context, id int64, username string) (*domain.Account, error) {
	account, err := s.accounts.GetOrCreate(ctx, id, username)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("account registered",
		zap.Int64("account_id", id),
		zap.String("username", username),
		zap.String("plan", account.Plan.String()),
	)
	return account, nil
}

func (s *accountService) GetPlan(ctx context.Context, id int64) (*domain.PlanInfo, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.NewPlanInfo(account), nil
}

// ChangePlan переводит аккаунт на тариф и обнуляет счетчик.
// Неизвестный тариф не ошибка: аккаунт получает нулевую квоту.
func (s *accountService) ChangePlan(ctx context.Context, id int64, planID string, requestedQueries, requestedResults int) (*domain.PlanInfo, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, domain.ErrInvalidPlan
	}

	plan := domain.ParsePlan(planID)
	quota := domain.ResolvePlan(plan, requestedQueries, requestedResults)

	if plan == domain.PlanUnknown {
		s.logger.Warn("unknown plan requested, quota set to zero",
			zap.Int64("account_id", id),
			zap.String("plan_id", planID),
		)
	}

	if err := s.accounts.UpdatePlan(ctx, id, plan, quota); err != nil {
		return nil, err
	}

	s.logger.Info("plan changed",
		zap.Int64("account_id", id),
		zap.String("plan", plan.String()),
		zap.Int("allowed_queries", quota.AllowedQueries),
		zap.Int("results_per_query", quota.ResultsPerQuery),
	)

	return s.GetPlan(ctx, id)
}

func (s *accountService) History(ctx context.Context, id int64, limit int) ([]domain.UsageRecord, error) {
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.usage.ListByAccount(ctx, id, limit)
}
