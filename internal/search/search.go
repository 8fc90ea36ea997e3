package search

import (
	"context"
	"errors"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

// Ошибки клиента провайдера. Наружу из PageFetcher не уходят,
// нужны только для логов и метрик.
var (
	ErrUnauthorized = errors.New("invalid API key")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrSearchFailed = errors.New("search request failed")
	ErrMalformed    = errors.New("malformed response")
	ErrEmptyResults = errors.New("no results found")
)

const (
	// PageSize - сколько результатов провайдер отдает на страницу
	PageSize = 10
	// MaxStartIndex - дальше этого offset провайдер не пагинирует
	MaxStartIndex = 100
)

// PageFetcher - одна страница выдачи. Ошибок не возвращает:
// любой сбой превращается в пустую страницу.
type PageFetcher interface {
	FetchPage(ctx context.Context, query string, start int) Page
}

type Page struct {
	Items          []domain.ResultItem
	NextStartIndex int
	HasMore        bool
}

func (p Page) Empty() bool {
	return len(p.Items) == 0
}

// EmptyPage - терминальное состояние пагинации
func EmptyPage() Page {
	return Page{NextStartIndex: 1}
}
