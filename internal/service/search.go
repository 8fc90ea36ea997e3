package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/repository"
	"github.com/kitbuilder587/fetscr/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error)
}

type SearchConfig struct {
	KeywordConcurrency int
	StrictQuota        bool
	// Timeout - общий бюджет на один поиск, 0 - без ограничения
	Timeout time.Duration
}

type SearchServiceDeps struct {
	Accounts repository.AccountRepository
	Usage    repository.UsageRepository
	Fetcher  search.PageFetcher
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Config   SearchConfig
}

type searchService struct {
	accounts   repository.AccountRepository
	aggregator *Aggregator
	gate       *QuotaGate
	logger     *zap.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
}

func NewSearchService(deps SearchServiceDeps) SearchService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &searchService{
		accounts:   deps.Accounts,
		aggregator: NewAggregator(NewPaginator(deps.Fetcher), deps.Config.KeywordConcurrency, deps.Logger),
		gate:       NewQuotaGate(deps.Accounts, deps.Usage, deps.Config.StrictQuota, deps.Logger, deps.Metrics),
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		timeout:    deps.Config.Timeout,
	}
}

func (s *searchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	subs, err := domain.Expand(req.Query, req.Keywords)
	if err != nil {
		s.record("", "invalid_request", startTime)
		return nil, err
	}
	mode := domain.ModeKeyword
	if domain.IsSimple(subs) {
		mode = domain.ModeSimple
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		s.record(mode, "account_error", startTime)
		return nil, err
	}

	if err := s.gate.CheckAndReserve(account); err != nil {
		s.logger.Info("search rejected: quota exhausted",
			zap.Int64("account_id", account.ID),
			zap.Int("allowed", account.AllowedQueries),
			zap.Int("used", account.QueriesUsed),
		)
		s.record(mode, "quota_exceeded", startTime)
		return nil, err
	}

	// свой бюджет времени только урезает выдачу, отмену вызывающего смотрим по ctx
	aggCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		aggCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	agg := s.aggregator.Aggregate(aggCtx, subs, account.ResultsPerQuery)

	if err := ctx.Err(); err != nil {
		s.logger.Warn("search abandoned before commit",
			zap.Int64("account_id", account.ID),
			zap.Error(err),
		)
		s.record(mode, "cancelled", startTime)
		return nil, err
	}

	if aggCtx.Err() != nil {
		s.logger.Warn("search time budget exhausted, returning collected results",
			zap.Int64("account_id", account.ID),
			zap.Duration("budget", s.timeout),
			zap.Int("results", agg.Count()),
		)
	}

	if agg.Partial() {
		if s.metrics != nil {
			s.metrics.RecordIncomplete(string(mode))
		}
		s.logger.Info("search returned fewer results than plan allows",
			zap.Int64("account_id", account.ID),
			zap.Int("results_per_query", account.ResultsPerQuery),
			zap.Strings("incomplete", agg.Incomplete),
		)
	}

	updated, err := s.gate.Commit(ctx, account.ID, agg.Count(), req.AuditText())
	if err != nil {
		status := "commit_error"
		if errors.Is(err, domain.ErrQuotaExceeded) {
			status = "quota_exceeded"
		}
		s.record(mode, status, startTime)
		return nil, err
	}

	s.logger.Info("search completed",
		zap.Int64("account_id", account.ID),
		zap.String("mode", string(mode)),
		zap.Int("sub_queries", len(subs)),
		zap.Int("results", agg.Count()),
		zap.Duration("duration", time.Since(startTime)),
	)
	s.record(mode, "success", startTime)

	return buildResponse(agg, updated), nil
}

func (s *searchService) record(mode domain.SearchMode, status string, startTime time.Time) {
	if s.metrics == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	s.metrics.RecordSearch(string(mode), status, time.Since(startTime))
}

func buildResponse(agg *domain.AggregatedResult, account *domain.Account) *domain.SearchResponse {
	resp := &domain.SearchResponse{
		Mode:             agg.Mode,
		ResultCount:      agg.Count(),
		QueriesUsed:      account.QueriesUsed,
		QueriesRemaining: account.QueriesRemaining(),
		PlanType:         account.Plan,
		AllowedQueries:   account.AllowedQueries,
		ResultsPerQuery:  account.ResultsPerQuery,
		Partial:          agg.Partial(),
	}

	if agg.Mode == domain.ModeSimple {
		// пустая выдача уходит как [], а не null
		resp.Results = agg.Results
		if resp.Results == nil {
			resp.Results = []domain.ResultItem{}
		}
		return resp
	}

	resp.ResultsByKeyword = agg.ByKeyword
	resp.Keywords = agg.Keywords
	resp.IncompleteKeywords = agg.Incomplete
	return resp
}
