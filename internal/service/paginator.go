package service

import (
	"context"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/search"
)

// Paginator собирает результаты одного подзапроса постранично
type Paginator struct {
	fetcher search.PageFetcher
}

func NewPaginator(fetcher search.PageFetcher) *Paginator {
	return &Paginator{fetcher: fetcher}
}

// Paginate идет по страницам, пока не наберет target, не упрется в maxPages
// или провайдер не скажет, что дальше ничего нет. Результат обрезан до target.
func (p *Paginator) Paginate(ctx context.Context, text string, target, maxPages int) []domain.ResultItem {
	if target <= 0 || maxPages <= 0 {
		return []domain.ResultItem{}
	}

	collected := make([]domain.ResultItem, 0, target)
	start := 1

	for i := 0; i < maxPages; i++ {
		if ctx.Err() != nil {
			break
		}

		page := p.fetcher.FetchPage(ctx, text, start)
		if page.Empty() {
			break
		}
		collected = append(collected, page.Items...)

		if !page.HasMore || len(collected) >= target {
			break
		}

		next := page.NextStartIndex
		if next <= 0 {
			next = start + search.PageSize
		}
		start = next
	}

	if len(collected) > target {
		collected = collected[:target]
	}
	return collected
}

// MaxPages = min(ceil(target/PageSize), pageCap)
func MaxPages(target, pageCap int) int {
	if target <= 0 || pageCap <= 0 {
		return 0
	}
	pages := (target + search.PageSize - 1) / search.PageSize
	return min(pages, pageCap)
}
