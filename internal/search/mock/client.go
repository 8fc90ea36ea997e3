package mock

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/search"
)

type Request struct {
	Query string
	Start int
}

// Client - детерминированный PageFetcher для тестов.
// Страницы адресуются парой (запрос, offset), неизвестная пара -> пустая страница.
type Client struct {
	Delay time.Duration

	CallCount   int
	LastRequest Request
	AllRequests []Request

	pages map[string]map[int]search.Page
	mu    sync.Mutex
}

func New() *Client {
	return &Client{pages: make(map[string]map[int]search.Page)}
}

func (c *Client) WithPage(query string, start int, page search.Page) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pages[query] == nil {
		c.pages[query] = make(map[int]search.Page)
	}
	c.pages[query][start] = page
	return c
}

// WithPages - n страниц по perPage результатов, последняя с HasMore=false
func (c *Client) WithPages(query string, n, perPage int) *Client {
	start := 1
	for i := 0; i < n; i++ {
		next := start + perPage
		c.WithPage(query, start, MakePage(query, start, perPage, next, i < n-1))
		start = next
	}
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) FetchPage(ctx context.Context, query string, start int) search.Page {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = Request{Query: query, Start: start}
	c.AllRequests = append(c.AllRequests, c.LastRequest)
	page, ok := c.pages[query][start]
	delay := c.Delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return search.EmptyPage()
		case <-time.After(delay):
		}
	}

	if !ok {
		return search.EmptyPage()
	}
	return page
}

// Calls - сколько раз запрашивали конкретный query
func (c *Client) Calls(query string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.AllRequests {
		if r.Query == query {
			n++
		}
	}
	return n
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = Request{}
	c.AllRequests = nil
}

// MakePage строит страницу с предсказуемыми результатами
func MakePage(query string, start, size, next int, hasMore bool) search.Page {
	items := make([]domain.ResultItem, size)
	for i := range items {
		pos := start + i
		items[i] = domain.ResultItem{
			Title:          fmt.Sprintf("%s #%d", query, pos),
			Snippet:        fmt.Sprintf("snippet %d", pos),
			Link:           fmt.Sprintf("https://example.com/%s/%d", url.PathEscape(query), pos),
			NextStartIndex: next,
			HasMore:        hasMore,
		}
	}
	return search.Page{Items: items, NextStartIndex: next, HasMore: hasMore}
}
