package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

const (
	SimplePageCap  = 10
	KeywordPageCap = 5

	defaultKeywordConcurrency = 4
)

// Aggregator раскладывает подзапросы по Paginator и собирает итог
type Aggregator struct {
	paginator   *Paginator
	concurrency int
	logger      *zap.Logger
}

func NewAggregator(paginator *Paginator, concurrency int, logger *zap.Logger) *Aggregator {
	if concurrency <= 0 {
		concurrency = defaultKeywordConcurrency
	}
	return &Aggregator{
		paginator:   paginator,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (a *Aggregator) Aggregate(ctx context.Context, subs []domain.SubQuery, resultsPerQuery int) *domain.AggregatedResult {
	if domain.IsSimple(subs) {
		return a.simple(ctx, subs[0], resultsPerQuery)
	}
	return a.byKeyword(ctx, subs, resultsPerQuery)
}

func (a *Aggregator) simple(ctx context.Context, sq domain.SubQuery, resultsPerQuery int) *domain.AggregatedResult {
	items := a.paginator.Paginate(ctx, sq.Text, resultsPerQuery, MaxPages(resultsPerQuery, SimplePageCap))

	res := &domain.AggregatedResult{
		Mode:    domain.ModeSimple,
		Results: items,
	}
	if len(items) < resultsPerQuery {
		res.Incomplete = []string{sq.Label}
	}
	return res
}

func (a *Aggregator) byKeyword(ctx context.Context, subs []domain.SubQuery, resultsPerQuery int) *domain.AggregatedResult {
	unique := dedupeLabels(subs)
	maxPages := MaxPages(resultsPerQuery, KeywordPageCap)

	// каждая горутина пишет только в свой индекс
	results := make([][]domain.ResultItem, len(unique))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, sq := range unique {
		g.Go(func() error {
			results[i] = a.paginator.Paginate(ctx, sq.Text, resultsPerQuery, maxPages)
			return nil
		})
	}
	_ = g.Wait()

	res := &domain.AggregatedResult{
		Mode:      domain.ModeKeyword,
		ByKeyword: make(map[string][]domain.ResultItem, len(unique)),
		Keywords:  make([]string, 0, len(unique)),
	}
	for i, sq := range unique {
		res.ByKeyword[sq.Label] = results[i]
		res.Keywords = append(res.Keywords, sq.Label)
		if len(results[i]) < resultsPerQuery {
			res.Incomplete = append(res.Incomplete, sq.Label)
		}
	}

	a.logger.Debug("keyword aggregation done",
		zap.Int("keywords", len(unique)),
		zap.Int("results", res.Count()),
		zap.Strings("incomplete", res.Incomplete),
	)

	return res
}

// dedupeLabels: повтор ключевого слова дает ту же выдачу, второй раз не ходим
func dedupeLabels(subs []domain.SubQuery) []domain.SubQuery {
	seen := make(map[string]struct{}, len(subs))
	out := make([]domain.SubQuery, 0, len(subs))
	for _, sq := range subs {
		if _, ok := seen[sq.Label]; ok {
			continue
		}
		seen[sq.Label] = struct{}{}
		out = append(out, sq)
	}
	return out
}
